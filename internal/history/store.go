package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adaptlearn/backend/internal/models"
)

// Store persists answered questions and per-subject ability profiles in
// Postgres. The assessment service writes through it at answer and
// completion time; the history endpoints read back from it.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Recording ───────────────────────────────────────────────────────────────

// RecordResponse appends one answered question to the response log.
func (s *Store) RecordResponse(ctx context.Context, rec *models.ResponseRecord) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO responses (user_id, session_id, question_id, subject, difficulty,
		                        selected_choice, correct, time_taken_seconds, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		rec.UserID, rec.SessionID, rec.QuestionID, rec.Subject, rec.Difficulty,
		rec.SelectedChoice, rec.Correct, rec.TimeTakenSeconds, rec.AnsweredAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return nil
}

// RecordSessionCompletion folds a finished session into the user's ability
// profile for that subject. The estimate and standard error replace the
// previous values; the counters accumulate.
func (s *Store) RecordSessionCompletion(ctx context.Context, userID int64, subject models.Subject, estimate, stdError float64, answered, correct int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ability_profiles (user_id, subject, ability_estimate, standard_error,
		                               sessions_completed, questions_answered, questions_correct, last_updated)
		 VALUES ($1, $2, $3, $4, 1, $5, $6, NOW())
		 ON CONFLICT (user_id, subject) DO UPDATE SET
		    ability_estimate    = EXCLUDED.ability_estimate,
		    standard_error      = EXCLUDED.standard_error,
		    sessions_completed  = ability_profiles.sessions_completed + 1,
		    questions_answered  = ability_profiles.questions_answered + EXCLUDED.questions_answered,
		    questions_correct   = ability_profiles.questions_correct + EXCLUDED.questions_correct,
		    last_updated        = NOW()`,
		userID, subject, estimate, stdError, answered, correct,
	)
	if err != nil {
		return fmt.Errorf("record session completion: %w", err)
	}
	return nil
}

// ── Reading ─────────────────────────────────────────────────────────────────

// ListResponses returns a page of the user's answered questions, newest
// first, optionally filtered to one subject.
func (s *Store) ListResponses(ctx context.Context, userID int64, subject string, page, pageSize int) (*models.ResponseListResponse, error) {
	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	paramIdx := 2

	if subject != "" {
		where += fmt.Sprintf(" AND subject = $%d", paramIdx)
		args = append(args, subject)
		paramIdx++
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM responses "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count responses: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, user_id, session_id, question_id, subject, difficulty,
		        selected_choice, correct, time_taken_seconds, answered_at
		 FROM responses %s
		 ORDER BY answered_at DESC
		 LIMIT $%d OFFSET $%d`, where, paramIdx, paramIdx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	responses := []models.ResponseRecord{}
	for rows.Next() {
		var r models.ResponseRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.QuestionID, &r.Subject,
			&r.Difficulty, &r.SelectedChoice, &r.Correct, &r.TimeTakenSeconds, &r.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.ResponseListResponse{
		Responses: responses,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

// GetProfiles returns the user's ability profile for every subject they
// have completed at least one session in.
func (s *Store) GetProfiles(ctx context.Context, userID int64) ([]models.AbilityProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, subject, ability_estimate, standard_error,
		        sessions_completed, questions_answered, questions_correct, last_updated
		 FROM ability_profiles
		 WHERE user_id = $1
		 ORDER BY subject`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.AbilityProfile{}
	for rows.Next() {
		var p models.AbilityProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Subject, &p.AbilityEstimate, &p.StandardError,
			&p.SessionsCompleted, &p.QuestionsAnswered, &p.QuestionsCorrect, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Stats aggregates the user's lifetime accuracy, per-subject rollups joined
// with the live ability profile, and a day-by-day trend over the last two
// weeks.
func (s *Store) Stats(ctx context.Context, userID int64) (*models.HistoryStatsResponse, error) {
	resp := &models.HistoryStatsResponse{
		SubjectStats: map[string]models.SubjectStat{},
		RecentTrend:  []models.DailyAccuracy{},
	}

	var avgTime sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE correct),
		        AVG(time_taken_seconds)
		 FROM responses
		 WHERE user_id = $1`,
		userID,
	).Scan(&resp.TotalAnswered, &resp.TotalCorrect, &avgTime)
	if err != nil {
		return nil, fmt.Errorf("overall stats: %w", err)
	}
	if resp.TotalAnswered > 0 {
		resp.OverallAccuracy = float64(resp.TotalCorrect) / float64(resp.TotalAnswered)
	}
	if avgTime.Valid {
		resp.AvgTimeSeconds = avgTime.Float64
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.subject,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE r.correct),
		        AVG(r.time_taken_seconds),
		        COALESCE(ap.ability_estimate, 5.0),
		        COALESCE(ap.standard_error, 2.0)
		 FROM responses r
		 LEFT JOIN ability_profiles ap
		   ON ap.user_id = r.user_id AND ap.subject = r.subject
		 WHERE r.user_id = $1
		 GROUP BY r.subject, ap.ability_estimate, ap.standard_error`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("subject stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var subject string
		var stat models.SubjectStat
		var avg sql.NullFloat64
		if err := rows.Scan(&subject, &stat.Answered, &stat.Correct, &avg,
			&stat.AbilityEstimate, &stat.StandardError); err != nil {
			return nil, fmt.Errorf("scan subject stats: %w", err)
		}
		if stat.Answered > 0 {
			stat.Accuracy = float64(stat.Correct) / float64(stat.Answered)
		}
		if avg.Valid {
			stat.AvgTime = avg.Float64
		}
		resp.SubjectStats[subject] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trendRows, err := s.db.QueryContext(ctx,
		`SELECT TO_CHAR(answered_at, 'YYYY-MM-DD') AS day,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE correct)
		 FROM responses
		 WHERE user_id = $1 AND answered_at >= NOW() - INTERVAL '14 days'
		 GROUP BY day
		 ORDER BY day`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("recent trend: %w", err)
	}
	defer trendRows.Close()

	for trendRows.Next() {
		var d models.DailyAccuracy
		if err := trendRows.Scan(&d.Date, &d.Answered, &d.Correct); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		if d.Answered > 0 {
			d.Accuracy = float64(d.Correct) / float64(d.Answered)
		}
		resp.RecentTrend = append(resp.RecentTrend, d)
	}
	return resp, trendRows.Err()
}
