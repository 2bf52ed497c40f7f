package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adaptlearn/backend/internal/models"
)

// ── Fakes ───────────────────────────────────────────────

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.AssessmentSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.AssessmentSession)}
}

func copySession(s *models.AssessmentSession) *models.AssessmentSession {
	dup := *s
	dup.Administered = append([]models.AdministeredQuestion(nil), s.Administered...)
	return &dup
}

func (f *fakeSessionStore) Create(ctx context.Context, session *models.AssessmentSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.sessions[session.SessionID]; exists {
		return fmt.Errorf("duplicate session %s", session.SessionID)
	}
	session.Version = 1
	f.sessions[session.SessionID] = copySession(session)
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID string) (*models.AssessmentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

func (f *fakeSessionStore) Update(ctx context.Context, session *models.AssessmentSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.sessions[session.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if cur.Version != session.Version {
		return ErrSessionConflict
	}
	session.Version++
	f.sessions[session.SessionID] = copySession(session)
	return nil
}

func (f *fakeSessionStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.AssessmentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AssessmentSession
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		out = append(out, *copySession(s))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSessionStore) ListIdleActive(ctx context.Context, idleSince time.Time) ([]models.AssessmentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AssessmentSession
	for _, s := range f.sessions {
		if s.Status == models.SessionActive && s.UpdatedAt.Before(idleSince) {
			out = append(out, *copySession(s))
		}
	}
	return out, nil
}

func (f *fakeSessionStore) mutate(sessionID string, fn func(*models.AssessmentSession)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		fn(s)
	}
}

type fakeQuestionSource struct {
	mu        sync.Mutex
	questions map[int64]*models.QuestionItem
	served    map[int64]int
}

func newFakeQuestionSource(difficulties ...float64) *fakeQuestionSource {
	f := &fakeQuestionSource{
		questions: make(map[int64]*models.QuestionItem),
		served:    make(map[int64]int),
	}
	for i, d := range difficulties {
		id := int64(i + 1)
		f.questions[id] = &models.QuestionItem{
			ID:            id,
			Subject:       models.SubjectMath,
			GradeBand:     models.BandMiddle,
			Difficulty:    d,
			Stem:          fmt.Sprintf("What is question %d?", id),
			CorrectChoice: "A",
			Explanation:   "A is right.",
			Choices: []models.Choice{
				{ChoiceID: "A", ChoiceText: "the right one", IsCorrect: true},
				{ChoiceID: "B", ChoiceText: "a wrong one"},
			},
		}
	}
	return f
}

func (f *fakeQuestionSource) GetByID(ctx context.Context, id int64) (*models.QuestionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %d not found", id)
	}
	dup := *q
	return &dup, nil
}

func (f *fakeQuestionSource) GetCandidates(ctx context.Context, subject models.Subject, excludeIDs []int64, limit int) ([]models.QuestionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []models.QuestionItem
	for _, q := range f.questions {
		if q.Subject != subject || excluded[q.ID] {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (f *fakeQuestionSource) MarkServed(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.served[id]++
	return nil
}

func (f *fakeQuestionSource) RecordOutcome(ctx context.Context, id int64, correct bool) error {
	return nil
}

func newTestService(store SessionStore, source QuestionSource) *Service {
	return NewService(store, source, NewEstimator(DefaultEstimatorConfig()), NewSelector(), nil, nil, nil, nil, nil)
}

// ── Start ───────────────────────────────────────────────

func TestStartCreatesActiveSession(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(3.0, 5.0, 7.0)
	svc := newTestService(store, source)

	resp, err := svc.Start(context.Background(), 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if resp.SessionID == "" {
		t.Error("Start returned empty session ID")
	}
	if resp.InitialEstimate != 5.0 {
		t.Errorf("InitialEstimate = %v, want 5.0", resp.InitialEstimate)
	}
	if resp.StandardError != 2.0 {
		t.Errorf("StandardError = %v, want 2.0", resp.StandardError)
	}
	if resp.NextQuestion == nil {
		t.Fatal("Start returned no first question")
	}
	if resp.NextQuestion.ID != 2 {
		t.Errorf("first question = %d (difficulty %v), want 2 (closest to estimate)",
			resp.NextQuestion.ID, resp.NextQuestion.Difficulty)
	}

	session, err := store.Get(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("Get stored session error: %v", err)
	}
	if session.Status != models.SessionActive {
		t.Errorf("stored status = %s, want %s", session.Status, models.SessionActive)
	}
	if session.CurrentQuestionID != 2 {
		t.Errorf("stored current question = %d, want 2", session.CurrentQuestionID)
	}
	if len(session.Administered) != 1 || session.Administered[0].Response != nil {
		t.Errorf("administered = %+v, want one unanswered entry", session.Administered)
	}
}

func TestStartSeedsEstimateFromGradeLevel(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(2.0, 2.5, 5.0, 8.0)
	svc := newTestService(store, source)

	grade := 3
	resp, err := svc.Start(context.Background(), 1, models.StartAssessmentRequest{
		Subject:    models.SubjectMath,
		GradeLevel: &grade,
	})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if resp.InitialEstimate != 2.5 {
		t.Errorf("InitialEstimate for grade 3 = %v, want 2.5", resp.InitialEstimate)
	}
	if resp.NextQuestion.ID != 2 {
		t.Errorf("first question = %d, want 2 (difficulty 2.5)", resp.NextQuestion.ID)
	}
}

func TestStartRejectsUnknownSubject(t *testing.T) {
	svc := newTestService(newFakeSessionStore(), newFakeQuestionSource(5.0))

	if _, err := svc.Start(context.Background(), 1, models.StartAssessmentRequest{Subject: "underwater_basket_weaving"}); err == nil {
		t.Error("Start with unknown subject succeeded, want error")
	}
}

func TestStartWithEmptyBank(t *testing.T) {
	svc := newTestService(newFakeSessionStore(), newFakeQuestionSource())

	_, err := svc.Start(context.Background(), 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if !errors.Is(err, ErrBankExhausted) {
		t.Errorf("Start with empty bank error = %v, want ErrBankExhausted", err)
	}
}

// ── SubmitAnswer ────────────────────────────────────────

func TestSubmitAnswerCorrect(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(3.0, 5.0, 7.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	// Lowercase response exercises normalization against the answer key.
	ans, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "a",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}

	if !ans.Correct {
		t.Error("Correct = false, want true")
	}
	if ans.CorrectChoice != "A" {
		t.Errorf("CorrectChoice = %q, want %q", ans.CorrectChoice, "A")
	}
	if ans.AbilityEstimate <= start.InitialEstimate {
		t.Errorf("AbilityEstimate = %v, want above %v after correct answer", ans.AbilityEstimate, start.InitialEstimate)
	}
	if ans.StandardError >= start.StandardError {
		t.Errorf("StandardError = %v, want below %v", ans.StandardError, start.StandardError)
	}
	if ans.QuestionsAsked != 1 {
		t.Errorf("QuestionsAsked = %d, want 1", ans.QuestionsAsked)
	}
	if ans.SessionComplete {
		t.Error("SessionComplete = true after one answer, want false")
	}
	if ans.NextQuestion == nil {
		t.Fatal("no next question returned")
	}
	if ans.NextQuestion.ID == start.NextQuestion.ID {
		t.Errorf("next question repeated question %d", ans.NextQuestion.ID)
	}
}

func TestSubmitAnswerIncorrectLowersEstimate(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(3.0, 5.0, 7.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	ans, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "B",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}

	if ans.Correct {
		t.Error("Correct = true, want false")
	}
	if ans.AbilityEstimate >= start.InitialEstimate {
		t.Errorf("AbilityEstimate = %v, want below %v after incorrect answer", ans.AbilityEstimate, start.InitialEstimate)
	}
}

func TestSubmitAnswerRejections(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(3.0, 5.0, 7.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	tests := []struct {
		name    string
		userID  int64
		req     models.AnswerRequest
		wantErr error
	}{
		{
			"unknown session",
			1,
			models.AnswerRequest{SessionID: "no-such-session", QuestionID: 1, Response: "A"},
			ErrSessionNotFound,
		},
		{
			"another user's session",
			2,
			models.AnswerRequest{SessionID: start.SessionID, QuestionID: start.NextQuestion.ID, Response: "A"},
			ErrSessionNotFound,
		},
		{
			"stale question id",
			1,
			models.AnswerRequest{SessionID: start.SessionID, QuestionID: 999, Response: "A"},
			ErrUnexpectedQuestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitAnswer(ctx, tt.userID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SubmitAnswer error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitAnswerOnFinishedSession(t *testing.T) {
	t.Setenv("ASSESSMENT_MAX_QUESTIONS", "1")

	store := newFakeSessionStore()
	source := newFakeQuestionSource(3.0, 5.0, 7.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	ans, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "A",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}
	if !ans.SessionComplete {
		t.Fatal("session not complete after reaching question cap")
	}

	_, err = svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "A",
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("SubmitAnswer on completed session error = %v, want ErrInvalidState", err)
	}
}

// ── Stopping Rule ───────────────────────────────────────

func TestStopsAtMaxQuestions(t *testing.T) {
	t.Setenv("ASSESSMENT_MAX_QUESTIONS", "3")

	store := newFakeSessionStore()
	source := newFakeQuestionSource(4.0, 4.5, 5.0, 5.5, 6.0, 6.5)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	questionID := start.NextQuestion.ID
	for i := 1; i <= 3; i++ {
		ans, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
			SessionID:  start.SessionID,
			QuestionID: questionID,
			Response:   "A",
		})
		if err != nil {
			t.Fatalf("answer %d error: %v", i, err)
		}

		if i < 3 {
			if ans.SessionComplete {
				t.Fatalf("session completed after %d answers, want 3", i)
			}
			questionID = ans.NextQuestion.ID
			continue
		}

		if !ans.SessionComplete {
			t.Error("session not complete after 3 answers")
		}
		if ans.CompletionReason != models.CompletionMaxQuestions {
			t.Errorf("CompletionReason = %s, want %s", ans.CompletionReason, models.CompletionMaxQuestions)
		}
		if ans.NextQuestion != nil {
			t.Error("completed session still returned a next question")
		}
	}

	session, err := store.Get(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if session.Status != models.SessionCompleted {
		t.Errorf("stored status = %s, want %s", session.Status, models.SessionCompleted)
	}
	if session.CompletedAt == nil {
		t.Error("CompletedAt not set on completed session")
	}
}

func TestStopsWhenPrecisionReached(t *testing.T) {
	t.Setenv("ASSESSMENT_TARGET_SE", "1.9")

	store := newFakeSessionStore()
	source := newFakeQuestionSource(4.0, 5.0, 6.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	// One matched-difficulty answer drops the standard error below 1.9.
	ans, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "A",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}

	if !ans.SessionComplete {
		t.Fatalf("session not complete at StandardError %v", ans.StandardError)
	}
	if ans.CompletionReason != models.CompletionPrecision {
		t.Errorf("CompletionReason = %s, want %s", ans.CompletionReason, models.CompletionPrecision)
	}
}

func TestBankExhaustionCompletesSession(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(5.0, 5.5)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	first, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "A",
	})
	if err != nil {
		t.Fatalf("first answer error: %v", err)
	}
	if first.SessionComplete {
		t.Fatal("session completed with one question left in the bank")
	}

	second, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: first.NextQuestion.ID,
		Response:   "A",
	})
	if err != nil {
		t.Fatalf("second answer error: %v", err)
	}

	if !second.SessionComplete {
		t.Error("session not complete after exhausting the bank")
	}
	if second.CompletionReason != models.CompletionBankExhausted {
		t.Errorf("CompletionReason = %s, want %s", second.CompletionReason, models.CompletionBankExhausted)
	}
}

// ── Concurrency ─────────────────────────────────────────

// Two racing submissions for the same question must resolve to exactly one
// recorded response; the loser sees a conflict-class error, never a lost
// update.
func TestConcurrentSubmissionsSingleWinner(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(3.0, 5.0, 7.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	firstQuestion := start.NextQuestion.ID

	req := models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: firstQuestion,
		Response:   "A",
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.SubmitAnswer(ctx, 1, req)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, ErrSessionConflict) && !errors.Is(err, ErrUnexpectedQuestion) && !errors.Is(err, ErrInvalidState) {
			t.Errorf("losing submission error = %v, want a conflict-class error", err)
		}
	}
	if successes != 1 {
		t.Fatalf("%d submissions succeeded, want exactly 1", successes)
	}

	session, err := store.Get(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	recorded := 0
	for _, a := range session.Administered {
		if a.QuestionID == firstQuestion && a.Response != nil {
			recorded++
		}
	}
	if recorded != 1 {
		t.Errorf("question %d has %d recorded responses, want exactly 1", firstQuestion, recorded)
	}
}

// ── Abandon & Sweep ─────────────────────────────────────

func TestAbandonSession(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(5.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	summary, err := svc.Abandon(ctx, 1, start.SessionID)
	if err != nil {
		t.Fatalf("Abandon error: %v", err)
	}
	if summary.Status != models.SessionAbandoned {
		t.Errorf("summary status = %s, want %s", summary.Status, models.SessionAbandoned)
	}

	if _, err := svc.Abandon(ctx, 1, start.SessionID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Abandon error = %v, want ErrInvalidState", err)
	}

	_, err = svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "A",
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("SubmitAnswer on abandoned session error = %v, want ErrInvalidState", err)
	}
}

func TestSweepAbandonsIdleSessions(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(4.0, 5.0, 6.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	idle, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	fresh, err := svc.Start(ctx, 2, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	store.mutate(idle.SessionID, func(s *models.AssessmentSession) {
		s.UpdatedAt = time.Now().Add(-2 * time.Hour)
	})

	svc.sweepIdleSessions(ctx)

	idleSession, _ := store.Get(ctx, idle.SessionID)
	if idleSession.Status != models.SessionAbandoned {
		t.Errorf("idle session status = %s, want %s", idleSession.Status, models.SessionAbandoned)
	}
	freshSession, _ := store.Get(ctx, fresh.SessionID)
	if freshSession.Status != models.SessionActive {
		t.Errorf("fresh session status = %s, want %s", freshSession.Status, models.SessionActive)
	}
}

// ── Estimator Failure Recovery ──────────────────────────

// A degenerate estimator update falls back to a bounded step and the
// session stays usable instead of wedging.
func TestDegenerateUpdateKeepsSessionActive(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(4.0, 5.0, 6.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	store.mutate(start.SessionID, func(s *models.AssessmentSession) {
		s.StandardError = 0
	})

	ans, err := svc.SubmitAnswer(ctx, 1, models.AnswerRequest{
		SessionID:  start.SessionID,
		QuestionID: start.NextQuestion.ID,
		Response:   "A",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}

	if ans.AbilityEstimate != 5.5 {
		t.Errorf("AbilityEstimate = %v, want 5.5 (default step from 5.0)", ans.AbilityEstimate)
	}
	if ans.StandardError != 2.0 {
		t.Errorf("StandardError = %v, want reset to 2.0", ans.StandardError)
	}
	if ans.SessionComplete {
		t.Error("session completed on degenerate update, want still active")
	}

	session, _ := store.Get(ctx, start.SessionID)
	if session.Status != models.SessionActive {
		t.Errorf("stored status = %s, want %s", session.Status, models.SessionActive)
	}
}

// ── Reads ───────────────────────────────────────────────

func TestGetSessionScopedToOwner(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(5.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	start, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if _, err := svc.GetSession(ctx, 1, start.SessionID); err != nil {
		t.Errorf("GetSession as owner error: %v", err)
	}
	if _, err := svc.GetSession(ctx, 2, start.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession as other user error = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	store := newFakeSessionStore()
	source := newFakeQuestionSource(4.0, 5.0, 6.0)
	svc := newTestService(store, source)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Start(ctx, 1, models.StartAssessmentRequest{Subject: models.SubjectMath}); err != nil {
			t.Fatalf("Start error: %v", err)
		}
	}
	if _, err := svc.Start(ctx, 2, models.StartAssessmentRequest{Subject: models.SubjectMath}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	resp, err := svc.ListSessions(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListSessions error: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("ListSessions total = %d, want 2", resp.Total)
	}
	for _, s := range resp.Sessions {
		if s.Status != models.SessionActive {
			t.Errorf("session %s status = %s, want %s", s.SessionID, s.Status, models.SessionActive)
		}
	}
}
