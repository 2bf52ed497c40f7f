package questions

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/adaptlearn/backend/internal/generator"
	"github.com/adaptlearn/backend/internal/models"
)

// Store wraps all Postgres access for the question bank: serving, authoring,
// the generation pipeline's persistence, and import/export.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// servingFilter gates what can reach a live session: rejected and
// review-flagged questions stay out, unreviewed ones serve as long as their
// quality score clears the floor.
const servingFilter = `review_status IN ('approved', 'unreviewed') AND (quality_score >= 0.50 OR quality_score IS NULL)`

const questionColumns = `id, subject, grade_band, difficulty, stem, correct_choice, explanation,
	       source, quality_score, review_status, exposure_count, times_correct, last_exposed_at, created_at`

// ── Question CRUD ───────────────────────────────────────

// CreateQuestion inserts a hand-authored question with its choices. Authored
// questions enter the bank pre-approved.
func (s *Store) CreateQuestion(ctx context.Context, req *models.CreateQuestionRequest) (*models.QuestionItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var questionID int64
	err = tx.QueryRow(
		`INSERT INTO questions (subject, grade_band, difficulty, stem, correct_choice, explanation, source, review_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		req.Subject, req.GradeBand, req.Difficulty, req.Stem, req.CorrectChoice,
		req.Explanation, models.SourceAuthored, models.ReviewApproved,
	).Scan(&questionID)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	for _, c := range req.Choices {
		_, err := tx.Exec(
			`INSERT INTO answer_choices (question_id, choice_id, choice_text, explanation, is_correct)
			 VALUES ($1, $2, $3, $4, $5)`,
			questionID, c.ChoiceID, c.ChoiceText, c.Explanation, c.ChoiceID == req.CorrectChoice,
		)
		if err != nil {
			return nil, fmt.Errorf("insert choice: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit question: %w", err)
	}

	return s.GetByID(ctx, questionID)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.QuestionItem, error) {
	var q models.QuestionItem
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM questions WHERE id = $1`, questionColumns), id,
	).Scan(&q.ID, &q.Subject, &q.GradeBand, &q.Difficulty, &q.Stem, &q.CorrectChoice,
		&q.Explanation, &q.Source, &q.QualityScore, &q.ReviewStatus,
		&q.ExposureCount, &q.TimesCorrect, &q.LastExposedAt, &q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}

	choices, err := s.getChoicesForQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Choices = choices
	return &q, nil
}

func (s *Store) getChoicesForQuestion(ctx context.Context, questionID int64) ([]models.Choice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, choice_id, choice_text, explanation, COALESCE(misconception, ''), is_correct
		 FROM answer_choices
		 WHERE question_id = $1
		 ORDER BY choice_id`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get choices: %w", err)
	}
	defer rows.Close()

	var choices []models.Choice
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.ChoiceID, &c.ChoiceText,
			&c.Explanation, &c.Misconception, &c.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// ListFilter narrows a bank listing. Zero values match everything.
type ListFilter struct {
	Subject       string
	GradeBand     string
	ReviewStatus  string
	MinDifficulty *float64
	MaxDifficulty *float64
}

// List pages through the bank with optional subject, grade band, review
// status, and difficulty range filters.
func (s *Store) List(ctx context.Context, filter ListFilter, page, pageSize int) (*models.QuestionListResponse, error) {
	var clauses []string
	var args []interface{}
	paramIdx := 1

	if filter.Subject != "" {
		clauses = append(clauses, fmt.Sprintf("AND subject = $%d", paramIdx))
		args = append(args, filter.Subject)
		paramIdx++
	}
	if filter.GradeBand != "" {
		clauses = append(clauses, fmt.Sprintf("AND grade_band = $%d", paramIdx))
		args = append(args, filter.GradeBand)
		paramIdx++
	}
	if filter.ReviewStatus != "" {
		clauses = append(clauses, fmt.Sprintf("AND review_status = $%d", paramIdx))
		args = append(args, filter.ReviewStatus)
		paramIdx++
	}
	if filter.MinDifficulty != nil {
		clauses = append(clauses, fmt.Sprintf("AND difficulty >= $%d", paramIdx))
		args = append(args, *filter.MinDifficulty)
		paramIdx++
	}
	if filter.MaxDifficulty != nil {
		clauses = append(clauses, fmt.Sprintf("AND difficulty <= $%d", paramIdx))
		args = append(args, *filter.MaxDifficulty)
		paramIdx++
	}
	extra := strings.Join(clauses, " ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM questions WHERE 1=1 %s`, extra)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT %s FROM questions
		WHERE 1=1 %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, questionColumns, extra, paramIdx, paramIdx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	resp := &models.QuestionListResponse{
		Questions: []models.QuestionItem{},
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	}
	for rows.Next() {
		var q models.QuestionItem
		if err := rows.Scan(&q.ID, &q.Subject, &q.GradeBand, &q.Difficulty, &q.Stem, &q.CorrectChoice,
			&q.Explanation, &q.Source, &q.QualityScore, &q.ReviewStatus,
			&q.ExposureCount, &q.TimesCorrect, &q.LastExposedAt, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		choices, err := s.getChoicesForQuestion(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		q.Choices = choices
		resp.Questions = append(resp.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// ── Adaptive Serving ────────────────────────────────────

// GetCandidates returns servable questions for a subject with choices
// loaded, least-exposed first so the bank wears evenly once it outgrows the
// candidate window.
func (s *Store) GetCandidates(ctx context.Context, subject models.Subject, excludeIDs []int64, limit int) ([]models.QuestionItem, error) {
	args := []interface{}{subject}
	paramIdx := 2

	exclude := ""
	if len(excludeIDs) > 0 {
		placeholders := make([]string, len(excludeIDs))
		for i, id := range excludeIDs {
			placeholders[i] = fmt.Sprintf("$%d", paramIdx)
			args = append(args, id)
			paramIdx++
		}
		exclude = fmt.Sprintf("AND id NOT IN (%s)", strings.Join(placeholders, ","))
	}

	pickQuery := fmt.Sprintf(`
		SELECT id FROM questions
		WHERE subject = $1
		  %s
		  AND %s
		ORDER BY exposure_count ASC, id ASC
		LIMIT $%d`, exclude, servingFilter, paramIdx)
	args = append(args, limit)

	idRows, err := s.db.QueryContext(ctx, pickQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}
	defer idRows.Close()

	var ids []int64
	for idRows.Next() {
		var id int64
		if err := idRows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := idRows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	return s.fetchQuestionsWithChoices(ctx, ids)
}

// fetchQuestionsWithChoices loads full question rows for the given IDs in a
// single join, assembling choices under their parent question.
func (s *Store) fetchQuestionsWithChoices(ctx context.Context, ids []int64) ([]models.QuestionItem, error) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT q.id, q.subject, q.grade_band, q.difficulty, q.stem, q.correct_choice, q.explanation,
		       q.source, q.quality_score, q.review_status, q.exposure_count, q.times_correct,
		       q.last_exposed_at, q.created_at,
		       ac.id, ac.choice_id, ac.choice_text, ac.explanation, COALESCE(ac.misconception, ''), ac.is_correct
		FROM questions q
		JOIN answer_choices ac ON ac.question_id = q.id
		WHERE q.id IN (%s)
		ORDER BY q.id, ac.choice_id`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer rows.Close()

	questionMap := make(map[int64]*models.QuestionItem)
	var questionOrder []int64
	for rows.Next() {
		var q models.QuestionItem
		var c models.Choice
		if err := rows.Scan(&q.ID, &q.Subject, &q.GradeBand, &q.Difficulty, &q.Stem, &q.CorrectChoice,
			&q.Explanation, &q.Source, &q.QualityScore, &q.ReviewStatus,
			&q.ExposureCount, &q.TimesCorrect, &q.LastExposedAt, &q.CreatedAt,
			&c.ID, &c.ChoiceID, &c.ChoiceText, &c.Explanation, &c.Misconception, &c.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}

		item, ok := questionMap[q.ID]
		if !ok {
			item = &q
			questionMap[q.ID] = item
			questionOrder = append(questionOrder, q.ID)
		}
		c.QuestionID = q.ID
		item.Choices = append(item.Choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	questions := make([]models.QuestionItem, 0, len(questionOrder))
	for _, id := range questionOrder {
		questions = append(questions, *questionMap[id])
	}
	return questions, nil
}

// MarkServed bumps exposure bookkeeping when a question goes out to a
// learner.
func (s *Store) MarkServed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE questions SET exposure_count = exposure_count + 1, last_exposed_at = NOW() WHERE id = $1`, id)
	return err
}

func (s *Store) RecordOutcome(ctx context.Context, id int64, correct bool) error {
	if !correct {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE questions SET times_correct = times_correct + 1 WHERE id = $1`, id)
	return err
}

// ── Generated Batches ───────────────────────────────────

// GeneratedItem pairs a parsed question with the verdict the scoring
// pipeline assigned to it.
type GeneratedItem struct {
	Question     generator.GeneratedQuestion
	Difficulty   float64
	QualityScore float64
	ReviewStatus models.ReviewStatus
}

// SaveGenerated stores a batch of generated questions in one transaction and
// returns how many were written.
func (s *Store) SaveGenerated(ctx context.Context, subject models.Subject, band models.GradeBand, items []GeneratedItem) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stored := 0
	for _, item := range items {
		var questionID int64
		err := tx.QueryRow(
			`INSERT INTO questions (subject, grade_band, difficulty, stem, correct_choice, explanation, source, quality_score, review_status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			subject, band, item.Difficulty, item.Question.Stem, item.Question.CorrectAnswerID,
			item.Question.Explanation, models.SourceGenerated, item.QualityScore, item.ReviewStatus,
		).Scan(&questionID)
		if err != nil {
			return stored, fmt.Errorf("insert generated question: %w", err)
		}

		for _, c := range item.Question.Choices {
			_, err := tx.Exec(
				`INSERT INTO answer_choices (question_id, choice_id, choice_text, explanation, misconception, is_correct)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				questionID, c.ID, c.Text, c.Explanation, c.Misconception, c.ID == item.Question.CorrectAnswerID,
			)
			if err != nil {
				return stored, fmt.Errorf("insert generated choice: %w", err)
			}
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit generated batch: %w", err)
	}
	return stored, nil
}

// CheckExisting reports which stems already exist for a subject so the
// pipeline can drop duplicate generations before storage.
func (s *Store) CheckExisting(ctx context.Context, subject models.Subject, stems []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for _, stem := range stems {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM questions WHERE subject = $1 AND stem = $2)`,
			subject, stem,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check existing: %w", err)
		}
		if exists {
			existing[stem] = true
		}
	}
	return existing, nil
}

// ── Coverage & Stats ────────────────────────────────────

// BankCoverage counts servable questions per subject, grade band and
// difficulty quartile of the 0-10 scale. Subject/band combinations with no
// questions produce no rows; callers treat missing slots as empty.
func (s *Store) BankCoverage(ctx context.Context) ([]models.BankCoverage, error) {
	query := fmt.Sprintf(`
		SELECT subject, grade_band,
		       COUNT(*) FILTER (WHERE difficulty < 2.5),
		       COUNT(*) FILTER (WHERE difficulty >= 2.5 AND difficulty < 5),
		       COUNT(*) FILTER (WHERE difficulty >= 5 AND difficulty < 7.5),
		       COUNT(*) FILTER (WHERE difficulty >= 7.5)
		FROM questions
		WHERE %s
		GROUP BY subject, grade_band
		ORDER BY subject, grade_band`, servingFilter)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("bank coverage: %w", err)
	}
	defer rows.Close()

	var coverage []models.BankCoverage
	for rows.Next() {
		var subject models.Subject
		var band models.GradeBand
		var buckets [4]int
		if err := rows.Scan(&subject, &band, &buckets[0], &buckets[1], &buckets[2], &buckets[3]); err != nil {
			return nil, fmt.Errorf("scan coverage: %w", err)
		}
		for i, available := range buckets {
			coverage = append(coverage, models.BankCoverage{
				Subject:   subject,
				GradeBand: band,
				BandLow:   float64(i) * 2.5,
				BandHigh:  float64(i+1) * 2.5,
				Available: available,
			})
		}
	}
	return coverage, rows.Err()
}

func (s *Store) BankStats(ctx context.Context) (*models.BankStats, error) {
	stats := &models.BankStats{
		BySubject: make(map[string]int),
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE review_status = 'approved'),
			COUNT(*) FILTER (WHERE review_status = 'unreviewed'),
			COUNT(*) FILTER (WHERE review_status = 'flagged'),
			COUNT(*) FILTER (WHERE review_status = 'rejected'),
			COUNT(*) FILTER (WHERE source = 'generated'),
			COUNT(*) FILTER (WHERE source = 'authored'),
			COUNT(*) FILTER (WHERE source = 'imported'),
			AVG(quality_score)
		 FROM questions`,
	).Scan(&stats.TotalQuestions, &stats.Approved, &stats.Unreviewed, &stats.Flagged,
		&stats.Rejected, &stats.Generated, &stats.Authored, &stats.Imported, &stats.AvgQuality)
	if err != nil {
		return nil, fmt.Errorf("bank stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, COUNT(*) FROM questions GROUP BY subject ORDER BY subject`)
	if err != nil {
		return nil, fmt.Errorf("bank stats by subject: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var subject string
		var count int
		if err := rows.Scan(&subject, &count); err != nil {
			return nil, fmt.Errorf("scan subject count: %w", err)
		}
		stats.BySubject[subject] = count
	}
	return stats, rows.Err()
}

// ── Review ──────────────────────────────────────────────

func (s *Store) GetFlagged(ctx context.Context, limit, offset int) ([]models.QuestionItem, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE review_status = 'flagged'`,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count flagged: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM questions
		 WHERE review_status = 'flagged'
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, questionColumns),
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("get flagged: %w", err)
	}
	defer rows.Close()

	var questions []models.QuestionItem
	for rows.Next() {
		var q models.QuestionItem
		if err := rows.Scan(&q.ID, &q.Subject, &q.GradeBand, &q.Difficulty, &q.Stem, &q.CorrectChoice,
			&q.Explanation, &q.Source, &q.QualityScore, &q.ReviewStatus,
			&q.ExposureCount, &q.TimesCorrect, &q.LastExposedAt, &q.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan flagged: %w", err)
		}
		choices, err := s.getChoicesForQuestion(ctx, q.ID)
		if err != nil {
			return nil, 0, err
		}
		q.Choices = choices
		questions = append(questions, q)
	}

	return questions, total, rows.Err()
}

func (s *Store) UpdateReviewStatus(ctx context.Context, id int64, status models.ReviewStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET review_status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
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

// ── Recalibration ───────────────────────────────────────

// recalibrationScale matches the logistic scale used by the ability
// estimator.
const recalibrationScale = 1.25

// suggestDifficulty inverts the logistic model around the takers' mean
// ability: if takers averaging ability m answer correctly with rate p, the
// difficulty consistent with that rate is m + scale*ln((1-p)/p). Accuracy is
// clamped away from 0 and 1 before taking the log, and the result is clamped
// to the 0-10 scale and rounded to one decimal.
func suggestDifficulty(meanAbility, observedAccuracy float64) float64 {
	p := math.Min(0.95, math.Max(0.05, observedAccuracy))
	suggested := meanAbility + recalibrationScale*math.Log((1-p)/p)
	suggested = math.Min(10, math.Max(0, suggested))
	return math.Round(suggested*10) / 10
}

// GetRecalibrationCandidates finds questions whose live accuracy disagrees
// with their labeled difficulty by at least a full point. Because adaptive
// serving conditions who sees each question, the suggestion inverts the
// logistic around the takers' mean ability rather than the scale midpoint.
func (s *Store) GetRecalibrationCandidates(ctx context.Context, minAnswers int) ([]models.RecalibrationCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.difficulty,
		        COUNT(r.id),
		        COUNT(r.id) FILTER (WHERE r.correct),
		        AVG(ap.ability_estimate)
		 FROM questions q
		 JOIN responses r ON r.question_id = q.id
		 JOIN ability_profiles ap ON ap.user_id = r.user_id AND ap.subject = r.subject
		 GROUP BY q.id, q.difficulty
		 HAVING COUNT(r.id) >= $1
		 ORDER BY COUNT(r.id) DESC`,
		minAnswers,
	)
	if err != nil {
		return nil, fmt.Errorf("recalibration candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.RecalibrationCandidate
	for rows.Next() {
		var c models.RecalibrationCandidate
		if err := rows.Scan(&c.QuestionID, &c.CurrentDifficulty, &c.Answered, &c.Correct, &c.MeanTakerAbility); err != nil {
			return nil, fmt.Errorf("scan recalibration candidate: %w", err)
		}
		c.ObservedAccuracy = float64(c.Correct) / float64(c.Answered)
		c.SuggestedDifficulty = suggestDifficulty(c.MeanTakerAbility, c.ObservedAccuracy)

		if math.Abs(c.SuggestedDifficulty-c.CurrentDifficulty) >= 1.0 {
			candidates = append(candidates, c)
		}
	}
	return candidates, rows.Err()
}

func (s *Store) UpdateDifficulty(ctx context.Context, id int64, difficulty float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET difficulty = $1 WHERE id = $2`, difficulty, id)
	if err != nil {
		return fmt.Errorf("update difficulty: %w", err)
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

// ── Generation Queue ────────────────────────────────────

// UpsertGenerationQueue enqueues a refill request unless one is already
// pending or running for the same slot.
func (s *Store) UpsertGenerationQueue(ctx context.Context, subject models.Subject, band models.GradeBand, targetDifficulty float64, needed int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_queue (subject, grade_band, target_difficulty, questions_needed)
		 SELECT $1, $2, $3, $4
		 WHERE NOT EXISTS (
		     SELECT 1 FROM generation_queue
		     WHERE subject = $1
		     AND grade_band = $2
		     AND target_difficulty = $3
		     AND status IN ('pending', 'running')
		 )`,
		subject, band, targetDifficulty, needed,
	)
	return err
}

func (s *Store) GetPendingGenerations(ctx context.Context, limit int) ([]models.GenerationQueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, grade_band, target_difficulty, questions_needed,
		        status, error_message, created_at, completed_at
		 FROM generation_queue
		 WHERE status = 'pending'
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending generations: %w", err)
	}
	defer rows.Close()

	var items []models.GenerationQueueItem
	for rows.Next() {
		var item models.GenerationQueueItem
		if err := rows.Scan(&item.ID, &item.Subject, &item.GradeBand, &item.TargetDifficulty,
			&item.QuestionsNeeded, &item.Status, &item.ErrorMessage,
			&item.CreatedAt, &item.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan generation queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) UpdateGenerationStatus(ctx context.Context, id int64, status models.GenerationStatus, errMsg *string) error {
	if status == models.GenerationCompleted || status == models.GenerationFailed {
		_, err := s.db.ExecContext(ctx,
			`UPDATE generation_queue SET status = $1, error_message = $2, completed_at = NOW() WHERE id = $3`,
			status, errMsg, id)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE generation_queue SET status = $1 WHERE id = $2`, status, id)
	return err
}

// ── Export/Import ───────────────────────────────────────

// ExportServable packages every servable question with its choices. The
// export mirrors the serving filter, so flagged and rejected questions never
// leave the environment they were caught in.
func (s *Store) ExportServable(ctx context.Context) ([]models.ExportQuestion, error) {
	idRows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM questions WHERE %s ORDER BY id`, servingFilter))
	if err != nil {
		return nil, fmt.Errorf("export query ids: %w", err)
	}
	defer idRows.Close()

	var ids []int64
	for idRows.Next() {
		var id int64
		if err := idRows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := idRows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	questions, err := s.fetchQuestionsWithChoices(ctx, ids)
	if err != nil {
		return nil, err
	}

	exported := make([]models.ExportQuestion, 0, len(questions))
	for _, q := range questions {
		eq := models.ExportQuestion{
			Subject:       q.Subject,
			GradeBand:     q.GradeBand,
			Difficulty:    q.Difficulty,
			Stem:          q.Stem,
			CorrectChoice: q.CorrectChoice,
			Explanation:   q.Explanation,
			QualityScore:  q.QualityScore,
			ReviewStatus:  q.ReviewStatus,
		}
		for _, c := range q.Choices {
			eq.Choices = append(eq.Choices, models.ExportChoice{
				ChoiceID:      c.ChoiceID,
				ChoiceText:    c.ChoiceText,
				Explanation:   c.Explanation,
				Misconception: c.Misconception,
				IsCorrect:     c.IsCorrect,
			})
		}
		exported = append(exported, eq)
	}
	return exported, nil
}

// ImportQuestions inserts exported questions in one transaction, skipping
// any whose stem already exists for the same subject.
func (s *Store) ImportQuestions(ctx context.Context, questions []models.ExportQuestion) (*models.ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result := &models.ImportResult{TotalInPayload: len(questions)}

	for _, q := range questions {
		var exists bool
		if err := tx.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM questions WHERE subject = $1 AND stem = $2)`,
			q.Subject, q.Stem,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check import duplicate: %w", err)
		}
		if exists {
			result.Skipped++
			continue
		}

		reviewStatus := q.ReviewStatus
		if reviewStatus == "" {
			reviewStatus = models.ReviewUnreviewed
		}

		var questionID int64
		if err := tx.QueryRow(
			`INSERT INTO questions (subject, grade_band, difficulty, stem, correct_choice, explanation, source, quality_score, review_status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			q.Subject, q.GradeBand, q.Difficulty, q.Stem, q.CorrectChoice, q.Explanation,
			models.SourceImported, q.QualityScore, reviewStatus,
		).Scan(&questionID); err != nil {
			return nil, fmt.Errorf("insert import question: %w", err)
		}

		for _, c := range q.Choices {
			if _, err := tx.Exec(
				`INSERT INTO answer_choices (question_id, choice_id, choice_text, explanation, misconception, is_correct)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				questionID, c.ChoiceID, c.ChoiceText, c.Explanation, nullString(c.Misconception), c.IsCorrect,
			); err != nil {
				return nil, fmt.Errorf("insert import choice: %w", err)
			}
		}

		result.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return result, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
