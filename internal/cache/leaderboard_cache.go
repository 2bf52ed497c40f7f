package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Weekly boards linger long enough to show last week's final standings.
const leaderboardTTL = 21 * 24 * time.Hour

// RankedScore is one ZSET row: a user and their weekly XP, 1-indexed rank.
type RankedScore struct {
	UserID int64
	Score  int64
	Rank   int
}

// LeaderboardCache keeps the weekly XP standings per league tier in Redis
// sorted sets. Postgres holds the durable XP totals; these keys only order
// the current race.
type LeaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

func boardKey(league, week string) string {
	return fmt.Sprintf("lb:%s:%s", league, week)
}

// AddXP adds to the user's score on the given board, creating it if needed.
func (c *LeaderboardCache) AddXP(ctx context.Context, league, week string, userID int64, xp int) error {
	key := boardKey(league, week)
	if err := c.client.ZIncrBy(ctx, key, float64(xp), strconv.FormatInt(userID, 10)).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, leaderboardTTL).Err()
}

// Top returns the highest-scoring users on the board.
func (c *LeaderboardCache) Top(ctx context.Context, league, week string, limit int) ([]RankedScore, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, boardKey(league, week), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]RankedScore, 0, len(results))
	for i, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, RankedScore{
			UserID: userID,
			Score:  int64(z.Score),
			Rank:   i + 1,
		})
	}
	return entries, nil
}

// Rank returns the user's 1-indexed position on the board, or -1 if the
// user has no score yet.
func (c *LeaderboardCache) Rank(ctx context.Context, league, week string, userID int64) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, boardKey(league, week), strconv.FormatInt(userID, 10)).Result()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return rank + 1, nil
}

// Score returns the user's current score on the board, zero if absent.
func (c *LeaderboardCache) Score(ctx context.Context, league, week string, userID int64) (int64, error) {
	score, err := c.client.ZScore(ctx, boardKey(league, week), strconv.FormatInt(userID, 10)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(score), nil
}
