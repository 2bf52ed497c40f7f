package gamification

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adaptlearn/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Core Gamification CRUD ──────────────────────────────

func (s *Store) GetOrCreateGamification(userID int64) (*models.UserGamification, error) {
	_, err := s.db.Exec(
		`INSERT INTO user_gamification (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert gamification: %w", err)
	}

	var g models.UserGamification
	err = s.db.QueryRow(
		`SELECT user_id, total_xp, weekly_xp, weekly_xp_reset_at,
		        current_streak, longest_streak, last_active_date,
		        streak_freeze_active, streak_freezes_owned, gems,
		        daily_goal_target, daily_goal_progress, daily_goal_date,
		        league_tier, questions_answered_total, questions_correct_total,
		        sessions_completed_total, perfect_sessions_total,
		        created_at, updated_at
		 FROM user_gamification WHERE user_id = $1`,
		userID,
	).Scan(&g.UserID, &g.TotalXP, &g.WeeklyXP, &g.WeeklyXPResetAt,
		&g.CurrentStreak, &g.LongestStreak, &g.LastActiveDate,
		&g.StreakFreezeActive, &g.StreakFreezesOwned, &g.Gems,
		&g.DailyGoalTarget, &g.DailyGoalProgress, &g.DailyGoalDate,
		&g.LeagueTier, &g.QuestionsAnsweredTotal, &g.QuestionsCorrectTotal,
		&g.SessionsCompletedTotal, &g.PerfectSessionsTotal,
		&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get gamification: %w", err)
	}
	return &g, nil
}

func (s *Store) UpdateGamification(userID int64, g *models.UserGamification) error {
	_, err := s.db.Exec(
		`UPDATE user_gamification SET
		    total_xp = $2, weekly_xp = $3,
		    current_streak = $4, longest_streak = $5, last_active_date = $6,
		    streak_freeze_active = $7, streak_freezes_owned = $8, gems = $9,
		    daily_goal_target = $10, daily_goal_progress = $11, daily_goal_date = $12,
		    league_tier = $13, questions_answered_total = $14, questions_correct_total = $15,
		    sessions_completed_total = $16, perfect_sessions_total = $17,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, g.TotalXP, g.WeeklyXP,
		g.CurrentStreak, g.LongestStreak, g.LastActiveDate,
		g.StreakFreezeActive, g.StreakFreezesOwned, g.Gems,
		g.DailyGoalTarget, g.DailyGoalProgress, g.DailyGoalDate,
		g.LeagueTier, g.QuestionsAnsweredTotal, g.QuestionsCorrectTotal,
		g.SessionsCompletedTotal, g.PerfectSessionsTotal,
	)
	return err
}

func (s *Store) IncrementCounters(userID int64, correct bool) error {
	correctInc := 0
	if correct {
		correctInc = 1
	}
	_, err := s.db.Exec(
		`UPDATE user_gamification SET
		    questions_answered_total = questions_answered_total + 1,
		    questions_correct_total = questions_correct_total + $2,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, correctInc,
	)
	return err
}

func (s *Store) AwardGems(userID int64, gems int) error {
	_, err := s.db.Exec(
		`UPDATE user_gamification SET gems = gems + $2, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, gems,
	)
	return err
}

func (s *Store) BuyStreakFreeze(userID int64) error {
	_, err := s.db.Exec(
		`UPDATE user_gamification SET
		    gems = gems - 50,
		    streak_freezes_owned = streak_freezes_owned + 1,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID,
	)
	return err
}

func (s *Store) SetDailyGoalTarget(userID int64, target int) error {
	_, err := s.db.Exec(
		`UPDATE user_gamification SET daily_goal_target = $2, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, target,
	)
	return err
}

// ── XP Events ───────────────────────────────────────────

func (s *Store) LogXPEvent(userID int64, eventType string, xpAmount int, metadata map[string]interface{}) error {
	var metaJSON *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err == nil {
			s := string(b)
			metaJSON = &s
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO xp_events (user_id, event_type, xp_amount, metadata)
		 VALUES ($1, $2, $3, $4)`,
		userID, eventType, xpAmount, metaJSON,
	)
	return err
}

// ── Achievements ────────────────────────────────────────

func (s *Store) GetUserAchievements(userID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT achievement FROM achievements WHERE user_id = $1 ORDER BY earned_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get achievements: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// AwardAchievement inserts the achievement, returning sql.ErrNoRows if the
// user already has it.
func (s *Store) AwardAchievement(userID int64, key string) error {
	res, err := s.db.Exec(
		`INSERT INTO achievements (user_id, achievement) VALUES ($1, $2)
		 ON CONFLICT (user_id, achievement) DO NOTHING`,
		userID, key,
	)
	if err != nil {
		return fmt.Errorf("award achievement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountHighEstimateSubjects counts subjects where the user's ability
// estimate has reached mastery level (8.0 on the 0-10 scale).
func (s *Store) CountHighEstimateSubjects(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM ability_profiles
		 WHERE user_id = $1 AND ability_estimate >= 8.0`,
		userID,
	).Scan(&count)
	return count, err
}

// ── Leaderboard Profiles ────────────────────────────────

// LeaderboardProfile carries the display fields for one ranked user.
type LeaderboardProfile struct {
	UserID        int64
	Name          string
	Username      string
	LeagueTier    string
	CurrentStreak int
}

// GetLeaderboardProfiles hydrates Redis rank entries with user display data.
func (s *Store) GetLeaderboardProfiles(userIDs []int64) (map[int64]LeaderboardProfile, error) {
	if len(userIDs) == 0 {
		return map[int64]LeaderboardProfile{}, nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT u.id, u.name, u.username,
		        COALESCE(g.league_tier, 'bronze'), COALESCE(g.current_streak, 0)
		 FROM users u
		 LEFT JOIN user_gamification g ON g.user_id = u.id
		 WHERE u.id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard profiles: %w", err)
	}
	defer rows.Close()

	profiles := make(map[int64]LeaderboardProfile, len(userIDs))
	for rows.Next() {
		var p LeaderboardProfile
		if err := rows.Scan(&p.UserID, &p.Name, &p.Username, &p.LeagueTier, &p.CurrentStreak); err != nil {
			return nil, fmt.Errorf("scan leaderboard profile: %w", err)
		}
		profiles[p.UserID] = p
	}
	return profiles, rows.Err()
}

// ── Leagues ─────────────────────────────────────────────

// LeagueChange represents a user's league tier change.
type LeagueChange struct {
	UserID  int64
	OldTier string
	NewTier string
}

func (s *Store) ProcessLeagueChanges() ([]LeagueChange, error) {
	rows, err := s.db.Query(
		`SELECT user_id, weekly_xp, league_tier FROM user_gamification`,
	)
	if err != nil {
		return nil, fmt.Errorf("get league data: %w", err)
	}
	defer rows.Close()

	var changes []LeagueChange
	for rows.Next() {
		var userID int64
		var weeklyXP int64
		var tier string
		if err := rows.Scan(&userID, &weeklyXP, &tier); err != nil {
			return nil, err
		}

		newTier := evaluateLeague(tier, weeklyXP)
		if newTier != tier {
			changes = append(changes, LeagueChange{UserID: userID, OldTier: tier, NewTier: newTier})
			s.db.Exec(`UPDATE user_gamification SET league_tier = $1 WHERE user_id = $2`, newTier, userID)
		}
	}
	return changes, rows.Err()
}

func evaluateLeague(currentTier string, weeklyXP int64) string {
	switch currentTier {
	case models.LeagueBronze:
		if weeklyXP >= 500 {
			return models.LeagueSilver
		}
	case models.LeagueSilver:
		if weeklyXP >= 1000 {
			return models.LeagueGold
		}
		if weeklyXP < 200 {
			return models.LeagueBronze
		}
	case models.LeagueGold:
		if weeklyXP >= 2000 {
			return models.LeagueDiamond
		}
		if weeklyXP < 500 {
			return models.LeagueSilver
		}
	case models.LeagueDiamond:
		if weeklyXP >= 4000 {
			return models.LeagueObsidian
		}
		if weeklyXP < 1000 {
			return models.LeagueGold
		}
	case models.LeagueObsidian:
		if weeklyXP < 2000 {
			return models.LeagueDiamond
		}
	}
	return currentTier
}

func (s *Store) ResetWeeklyXP() error {
	_, err := s.db.Exec(
		`UPDATE user_gamification SET weekly_xp = 0, weekly_xp_reset_at = NOW()`,
	)
	return err
}

// ── Streak Maintenance ──────────────────────────────────

// GetAllForStreakCheck returns the streak fields for every user with a live
// streak to protect.
func (s *Store) GetAllForStreakCheck() ([]models.UserGamification, error) {
	rows, err := s.db.Query(
		`SELECT user_id, current_streak, longest_streak, last_active_date,
		        streak_freeze_active, streak_freezes_owned
		 FROM user_gamification
		 WHERE current_streak > 0`,
	)
	if err != nil {
		return nil, fmt.Errorf("get streak data: %w", err)
	}
	defer rows.Close()

	var users []models.UserGamification
	for rows.Next() {
		var g models.UserGamification
		if err := rows.Scan(&g.UserID, &g.CurrentStreak, &g.LongestStreak,
			&g.LastActiveDate, &g.StreakFreezeActive, &g.StreakFreezesOwned); err != nil {
			return nil, err
		}
		users = append(users, g)
	}
	return users, rows.Err()
}

func (s *Store) UpdateStreakData(userID int64, current, longest int, freezeActive bool, freezesOwned int) error {
	_, err := s.db.Exec(
		`UPDATE user_gamification SET
		    current_streak = $2, longest_streak = $3,
		    streak_freeze_active = $4, streak_freezes_owned = $5,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, current, longest, freezeActive, freezesOwned,
	)
	return err
}
