package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adaptlearn/backend/internal/models"
)

// Active sessions stay pinned a bit past the idle-abandonment window so a
// returning learner still gets the fast path.
const sessionTTL = 45 * time.Minute

// SessionCache pins active assessment sessions in Redis. The session
// document in Mongo stays authoritative; a miss here is never an error the
// caller has to care about.
type SessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

func sessionKey(id string) string {
	return "assessment:session:" + id
}

func (c *SessionCache) Set(ctx context.Context, session *models.AssessmentSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(session.SessionID), data, sessionTTL).Err()
}

func (c *SessionCache) Get(ctx context.Context, id string) (*models.AssessmentSession, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var session models.AssessmentSession
	err = json.Unmarshal([]byte(data), &session)
	return &session, err
}

func (c *SessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, sessionKey(id)).Err()
}
