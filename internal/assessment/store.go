package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adaptlearn/backend/internal/models"
)

var (
	// ErrSessionNotFound is returned when no session exists for an ID.
	ErrSessionNotFound = errors.New("assessment session not found")

	// ErrSessionConflict is returned when a save races with another update
	// of the same session. The caller's copy is stale; exactly one of the
	// racing writers wins.
	ErrSessionConflict = errors.New("assessment session was modified concurrently")
)

// SessionStore persists assessment sessions. Update applies only when the
// stored version matches the one the caller loaded, which serializes
// concurrent submissions for the same session.
type SessionStore interface {
	Create(ctx context.Context, session *models.AssessmentSession) error
	Get(ctx context.Context, sessionID string) (*models.AssessmentSession, error)
	Update(ctx context.Context, session *models.AssessmentSession) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.AssessmentSession, error)
	ListIdleActive(ctx context.Context, idleSince time.Time) ([]models.AssessmentSession, error)
}

const sessionCollection = "assessment_sessions"

type mongoSessionStore struct {
	collection *mongo.Collection
}

func NewSessionStore(db *mongo.Database) SessionStore {
	return &mongoSessionStore{collection: db.Collection(sessionCollection)}
}

// InitializeIndexes creates the secondary indexes the list queries rely on.
// Point lookups go through _id, which Mongo indexes on its own.
func InitializeIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(sessionCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create session indexes: %w", err)
	}
	return nil
}

func (s *mongoSessionStore) Create(ctx context.Context, session *models.AssessmentSession) error {
	session.Version = 1
	if _, err := s.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *mongoSessionStore) Get(ctx context.Context, sessionID string) (*models.AssessmentSession, error) {
	var session models.AssessmentSession
	err := s.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Update replaces the stored document if its version still matches the
// caller's copy, bumping the version in the same write. A matched count of
// zero means either the session vanished or another writer got there first.
func (s *mongoSessionStore) Update(ctx context.Context, session *models.AssessmentSession) error {
	filter := bson.M{"_id": session.SessionID, "version": session.Version}
	session.Version++

	res, err := s.collection.ReplaceOne(ctx, filter, session)
	if err != nil {
		session.Version--
		return fmt.Errorf("update session: %w", err)
	}
	if res.MatchedCount == 0 {
		session.Version--
		count, cerr := s.collection.CountDocuments(ctx, bson.M{"_id": session.SessionID})
		if cerr == nil && count == 0 {
			return ErrSessionNotFound
		}
		return ErrSessionConflict
	}
	return nil
}

func (s *mongoSessionStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.AssessmentSession, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.AssessmentSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

func (s *mongoSessionStore) ListIdleActive(ctx context.Context, idleSince time.Time) ([]models.AssessmentSession, error) {
	filter := bson.M{
		"status":     models.SessionActive,
		"updated_at": bson.M{"$lt": idleSince},
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.AssessmentSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode idle sessions: %w", err)
	}
	return sessions, nil
}
