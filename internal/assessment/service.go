package assessment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adaptlearn/backend/internal/models"
)

var (
	// ErrInvalidState is returned when an operation is attempted on a
	// session that is not in the required lifecycle state.
	ErrInvalidState = errors.New("session is not in a valid state for this operation")

	// ErrUnexpectedQuestion is returned when an answer arrives for a
	// question other than the one currently served to the session.
	ErrUnexpectedQuestion = errors.New("answer does not match the current question")
)

// Lifecycle event routing keys.
const (
	EventSessionStarted   = "assessment.session.started"
	EventSessionCompleted = "assessment.session.completed"
	EventSessionAbandoned = "assessment.session.abandoned"
)

// Live feed message types.
const (
	MsgQuestionServed   = "question_served"
	MsgAnswerEvaluated  = "answer_evaluated"
	MsgSessionCompleted = "session_completed"
	MsgSessionAbandoned = "session_abandoned"
)

// QuestionSource supplies calibrated questions and tracks their exposure.
type QuestionSource interface {
	GetByID(ctx context.Context, id int64) (*models.QuestionItem, error)
	GetCandidates(ctx context.Context, subject models.Subject, excludeIDs []int64, limit int) ([]models.QuestionItem, error)
	MarkServed(ctx context.Context, id int64) error
	RecordOutcome(ctx context.Context, id int64, correct bool) error
}

// SessionCache pins active sessions for cheap reads. All methods are
// best-effort from the service's point of view.
type SessionCache interface {
	Set(ctx context.Context, session *models.AssessmentSession) error
	Get(ctx context.Context, sessionID string) (*models.AssessmentSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// HistoryRecorder projects responses and completed-session rollups into
// relational storage for reporting.
type HistoryRecorder interface {
	RecordResponse(ctx context.Context, rec *models.ResponseRecord) error
	RecordSessionCompletion(ctx context.Context, userID int64, subject models.Subject, estimate, stdError float64, answered, correct int) error
}

// Rewarder hands out XP, streaks, and achievements.
type Rewarder interface {
	RecordAnswer(userID int64, correct bool)
	AwardSessionRewards(userID int64, questionsAnswered, questionsCorrect int, precisionReached bool) (*models.SessionRewardResponse, error)
}

// EventPublisher pushes lifecycle events to the message broker.
type EventPublisher interface {
	Publish(eventType string, payload interface{}) error
}

// Broadcaster streams progress to live watchers of a session.
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
}

// SessionEvent is the payload published on lifecycle transitions.
type SessionEvent struct {
	SessionID       string               `json:"session_id"`
	UserID          int64                `json:"user_id"`
	Subject         models.Subject       `json:"subject"`
	Status          models.SessionStatus `json:"status"`
	AbilityEstimate float64              `json:"ability_estimate"`
	StandardError   float64              `json:"standard_error"`
	QuestionsAsked  int                  `json:"questions_asked"`
}

// Config holds the stopping rule and selection window tuning.
type Config struct {
	MaxQuestions     int
	TargetStdError   float64
	InitialTolerance float64
	WidenedTolerance float64
	CandidateLimit   int
	IdleTimeout      time.Duration
	SweepInterval    time.Duration
}

// Service owns the assessment session lifecycle: it starts sessions, routes
// answers through the estimator, selects the next question, and applies the
// stopping rule. Optional collaborators (cache, history, rewards, events,
// live) may be nil.
type Service struct {
	store     SessionStore
	questions QuestionSource
	estimator *Estimator
	selector  *Selector
	cache     SessionCache
	history   HistoryRecorder
	rewards   Rewarder
	events    EventPublisher
	live      Broadcaster
	cfg       Config
}

func NewService(store SessionStore, questions QuestionSource, estimator *Estimator, selector *Selector,
	cache SessionCache, history HistoryRecorder, rewards Rewarder, events EventPublisher, live Broadcaster) *Service {

	maxQuestions := envInt("ASSESSMENT_MAX_QUESTIONS", 20)
	targetSE := envFloat("ASSESSMENT_TARGET_SE", 0.6)
	tolerance := envFloat("ASSESSMENT_TOLERANCE", 2.5)
	idleMinutes := envInt("ASSESSMENT_IDLE_TIMEOUT_MINUTES", 30)
	sweepSeconds := envInt("ASSESSMENT_SWEEP_INTERVAL_SECONDS", 300)

	cfg := Config{
		MaxQuestions:     maxQuestions,
		TargetStdError:   targetSE,
		InitialTolerance: tolerance,
		WidenedTolerance: estimator.Config().MaxEstimate - estimator.Config().MinEstimate,
		CandidateLimit:   200,
		IdleTimeout:      time.Duration(idleMinutes) * time.Minute,
		SweepInterval:    time.Duration(sweepSeconds) * time.Second,
	}

	log.Printf("Assessment service: maxQuestions=%d targetSE=%.2f tolerance=%.2f idleTimeout=%s",
		cfg.MaxQuestions, cfg.TargetStdError, cfg.InitialTolerance, cfg.IdleTimeout)

	return &Service{
		store:     store,
		questions: questions,
		estimator: estimator,
		selector:  selector,
		cache:     cache,
		history:   history,
		rewards:   rewards,
		events:    events,
		live:      live,
		cfg:       cfg,
	}
}

// ── Session Lifecycle ───────────────────────────────────

func (s *Service) Start(ctx context.Context, userID int64, req models.StartAssessmentRequest) (*models.StartAssessmentResponse, error) {
	if !models.ValidSubjects[req.Subject] {
		return nil, fmt.Errorf("invalid subject: %s", req.Subject)
	}

	now := time.Now()
	initial := s.estimator.InitialEstimate(req.GradeLevel)

	session := &models.AssessmentSession{
		SessionID:       uuid.NewString(),
		UserID:          userID,
		Subject:         req.Subject,
		AbilityEstimate: initial,
		StandardError:   s.estimator.Config().InitialStdError,
		Status:          models.SessionActive,
		StartedAt:       now,
		UpdatedAt:       now,
	}
	if req.GradeLevel != nil {
		session.GradeBand = models.BandForGrade(*req.GradeLevel)
	}

	first, err := s.pickNext(ctx, session)
	if err != nil {
		return nil, err
	}

	session.CurrentQuestionID = first.ID
	session.Administered = append(session.Administered, models.AdministeredQuestion{
		QuestionID: first.ID,
		Difficulty: first.Difficulty,
		ServedAt:   now,
	})

	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.questions.MarkServed(ctx, first.ID)
	s.pinSession(ctx, session)
	s.publish(EventSessionStarted, session)

	serving := first.ToServing()
	s.broadcast(session.SessionID, MsgQuestionServed, serving)

	return &models.StartAssessmentResponse{
		SessionID:       session.SessionID,
		Subject:         session.Subject,
		InitialEstimate: session.AbilityEstimate,
		StandardError:   session.StandardError,
		NextQuestion:    &serving,
	}, nil
}

func (s *Service) SubmitAnswer(ctx context.Context, userID int64, req models.AnswerRequest) (*models.AnswerResponse, error) {
	session, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if session.Status != models.SessionActive {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if req.QuestionID != session.CurrentQuestionID {
		return nil, fmt.Errorf("%w: expected question %d, got %d",
			ErrUnexpectedQuestion, session.CurrentQuestionID, req.QuestionID)
	}

	question, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	selected := strings.ToUpper(strings.TrimSpace(req.Response))
	correct := selected == strings.ToUpper(question.CorrectChoice)
	now := time.Now()

	newEstimate, newSE, estErr := s.estimator.Update(
		session.AbilityEstimate, session.StandardError, question.Difficulty, correct)
	if estErr != nil {
		log.Printf("WARN: degenerate ability update for session %s (difficulty %.2f): %v",
			session.SessionID, question.Difficulty, estErr)
	}
	if math.IsNaN(newEstimate) || math.IsInf(newEstimate, 0) || math.IsNaN(newSE) || math.IsInf(newSE, 0) {
		s.failSession(ctx, session)
		return nil, fmt.Errorf("estimator produced non-finite state: %w", ErrNumericInstability)
	}

	response := &models.Response{
		QuestionID:       question.ID,
		UserID:           userID,
		SelectedChoice:   selected,
		Correct:          correct,
		TimeTakenSeconds: req.TimeTakenSeconds,
		Timestamp:        now,
	}
	for i := range session.Administered {
		if session.Administered[i].QuestionID == question.ID && session.Administered[i].Response == nil {
			session.Administered[i].Response = response
			break
		}
	}

	session.AbilityEstimate = newEstimate
	session.StandardError = newSE
	session.UpdatedAt = now

	done, reason := s.shouldStop(session)

	var next *models.QuestionItem
	if !done {
		next, err = s.pickNext(ctx, session)
		if errors.Is(err, ErrBankExhausted) {
			done, reason = true, models.CompletionBankExhausted
		} else if err != nil {
			return nil, err
		}
	}

	if done {
		session.Status = models.SessionCompleted
		session.CompletionReason = reason
		session.CurrentQuestionID = 0
		session.CompletedAt = &now
	} else {
		session.CurrentQuestionID = next.ID
		session.Administered = append(session.Administered, models.AdministeredQuestion{
			QuestionID: next.ID,
			Difficulty: next.Difficulty,
			ServedAt:   now,
		})
	}

	// The estimate, the recorded response, and the lifecycle transition
	// commit in a single versioned write: a concurrent submission for the
	// same session loses with ErrSessionConflict instead of clobbering.
	if err := s.store.Update(ctx, session); err != nil {
		return nil, err
	}

	s.recordResponse(ctx, session, question, response)
	s.questions.RecordOutcome(ctx, question.ID, correct)
	if s.rewards != nil {
		s.rewards.RecordAnswer(userID, correct)
	}

	resp := &models.AnswerResponse{
		Correct:         correct,
		CorrectChoice:   question.CorrectChoice,
		Explanation:     question.Explanation,
		AbilityEstimate: session.AbilityEstimate,
		StandardError:   session.StandardError,
		QuestionsAsked:  session.AnsweredCount(),
	}
	s.broadcast(session.SessionID, MsgAnswerEvaluated, resp)

	if done {
		resp.SessionComplete = true
		resp.CompletionReason = session.CompletionReason
		s.finishSession(ctx, session, resp)
	} else {
		s.questions.MarkServed(ctx, next.ID)
		serving := next.ToServing()
		resp.NextQuestion = &serving
		s.pinSession(ctx, session)
		s.broadcast(session.SessionID, MsgQuestionServed, serving)
	}

	return resp, nil
}

// Abandon moves an active session to abandoned, either on explicit client
// request or from the idle sweeper.
func (s *Service) Abandon(ctx context.Context, userID int64, sessionID string) (*models.SessionSummary, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if !session.Status.CanTransitionTo(models.SessionAbandoned) {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}

	now := time.Now()
	session.Status = models.SessionAbandoned
	session.CurrentQuestionID = 0
	session.UpdatedAt = now
	session.CompletedAt = &now

	if err := s.store.Update(ctx, session); err != nil {
		return nil, err
	}

	s.unpinSession(ctx, session.SessionID)
	s.publish(EventSessionAbandoned, session)
	summary := summarize(session)
	s.broadcast(session.SessionID, MsgSessionAbandoned, summary)

	return &summary, nil
}

// GetSession returns the current session state, cache-first.
func (s *Service) GetSession(ctx context.Context, userID int64, sessionID string) (*models.AssessmentSession, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, sessionID); err == nil && cached != nil && cached.UserID == userID {
			return cached, nil
		}
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}

	if session.Status == models.SessionActive {
		s.pinSession(ctx, session)
	}
	return session, nil
}

// ListSessions returns summaries of the user's recent sessions.
func (s *Service) ListSessions(ctx context.Context, userID int64, limit int) (*models.AssessmentHistoryResponse, error) {
	sessions, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	resp := &models.AssessmentHistoryResponse{Sessions: []models.SessionSummary{}, Total: len(sessions)}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, summarize(&sessions[i]))
	}
	return resp, nil
}

// ── Stopping Rule & Selection ───────────────────────────

func (s *Service) shouldStop(session *models.AssessmentSession) (bool, models.CompletionReason) {
	if session.StandardError <= s.cfg.TargetStdError {
		return true, models.CompletionPrecision
	}
	if session.AnsweredCount() >= s.cfg.MaxQuestions {
		return true, models.CompletionMaxQuestions
	}
	return false, ""
}

// pickNext selects the next question, widening the difficulty window once
// before giving up with ErrBankExhausted.
func (s *Service) pickNext(ctx context.Context, session *models.AssessmentSession) (*models.QuestionItem, error) {
	exclude := session.AdministeredIDs()

	candidates, err := s.questions.GetCandidates(ctx, session.Subject, exclude, s.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	next, err := s.selector.Next(session.AbilityEstimate, candidates, exclude, s.cfg.InitialTolerance)
	if errors.Is(err, ErrBankExhausted) {
		next, err = s.selector.Next(session.AbilityEstimate, candidates, exclude, s.cfg.WidenedTolerance)
	}
	return next, err
}

// ── Completion & Failure Paths ──────────────────────────

func (s *Service) finishSession(ctx context.Context, session *models.AssessmentSession, resp *models.AnswerResponse) {
	answered, correctCount := 0, 0
	for _, a := range session.Administered {
		if a.Response != nil {
			answered++
			if a.Response.Correct {
				correctCount++
			}
		}
	}

	if s.history != nil {
		if err := s.history.RecordSessionCompletion(ctx, session.UserID, session.Subject,
			session.AbilityEstimate, session.StandardError, answered, correctCount); err != nil {
			log.Printf("WARN: failed to record session completion for %s: %v", session.SessionID, err)
		}
	}

	if s.rewards != nil {
		precision := session.CompletionReason == models.CompletionPrecision
		reward, err := s.rewards.AwardSessionRewards(session.UserID, answered, correctCount, precision)
		if err != nil {
			log.Printf("WARN: failed to award session rewards for %s: %v", session.SessionID, err)
		} else if reward != nil {
			resp.XPAwarded = reward.XPBreakdown.TotalXP
		}
	}

	s.unpinSession(ctx, session.SessionID)
	s.publish(EventSessionCompleted, session)
	s.broadcast(session.SessionID, MsgSessionCompleted, summarize(session))
}

// failSession closes a session after an unrecoverable estimator failure so
// it never stays active with inconsistent state.
func (s *Service) failSession(ctx context.Context, session *models.AssessmentSession) {
	now := time.Now()
	session.Status = models.SessionAbandoned
	session.CurrentQuestionID = 0
	session.UpdatedAt = now
	session.CompletedAt = &now

	if err := s.store.Update(ctx, session); err != nil {
		log.Printf("WARN: failed to abandon session %s after estimator failure: %v", session.SessionID, err)
	}
	s.unpinSession(ctx, session.SessionID)
	s.publish(EventSessionAbandoned, session)
	s.broadcast(session.SessionID, MsgSessionAbandoned, summarize(session))
}

func (s *Service) recordResponse(ctx context.Context, session *models.AssessmentSession, question *models.QuestionItem, response *models.Response) {
	if s.history == nil {
		return
	}
	rec := &models.ResponseRecord{
		UserID:           session.UserID,
		SessionID:        session.SessionID,
		QuestionID:       question.ID,
		Subject:          session.Subject,
		Difficulty:       question.Difficulty,
		SelectedChoice:   &response.SelectedChoice,
		Correct:          response.Correct,
		TimeTakenSeconds: &response.TimeTakenSeconds,
		AnsweredAt:       response.Timestamp,
	}
	if err := s.history.RecordResponse(ctx, rec); err != nil {
		log.Printf("WARN: failed to record response history: %v", err)
	}
}

// ── Idle Abandonment Sweep ──────────────────────────────

// StartAbandonmentSweeper abandons active sessions idle past the configured
// timeout. Runs until the context is cancelled.
func (s *Service) StartAbandonmentSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	log.Println("[sweeper] Idle session sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[sweeper] Shutting down")
			return
		case <-ticker.C:
			s.sweepIdleSessions(ctx)
		}
	}
}

func (s *Service) sweepIdleSessions(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.IdleTimeout)
	sessions, err := s.store.ListIdleActive(ctx, cutoff)
	if err != nil {
		log.Printf("[sweeper] error listing idle sessions: %v", err)
		return
	}

	swept := 0
	for i := range sessions {
		session := &sessions[i]
		now := time.Now()
		session.Status = models.SessionAbandoned
		session.CurrentQuestionID = 0
		session.UpdatedAt = now
		session.CompletedAt = &now

		if err := s.store.Update(ctx, session); err != nil {
			// A conflict means the learner came back; leave it alone.
			if !errors.Is(err, ErrSessionConflict) {
				log.Printf("[sweeper] failed to abandon session %s: %v", session.SessionID, err)
			}
			continue
		}

		s.unpinSession(ctx, session.SessionID)
		s.publish(EventSessionAbandoned, session)
		s.broadcast(session.SessionID, MsgSessionAbandoned, summarize(session))
		swept++
	}

	if swept > 0 {
		log.Printf("[sweeper] abandoned %d idle sessions", swept)
	}
}

// ── Helpers ─────────────────────────────────────────────

func (s *Service) pinSession(ctx context.Context, session *models.AssessmentSession) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, session); err != nil {
		log.Printf("WARN: failed to cache session %s: %v", session.SessionID, err)
	}
}

func (s *Service) unpinSession(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("WARN: failed to evict session %s: %v", sessionID, err)
	}
}

func (s *Service) publish(eventType string, session *models.AssessmentSession) {
	if s.events == nil {
		return
	}
	payload := SessionEvent{
		SessionID:       session.SessionID,
		UserID:          session.UserID,
		Subject:         session.Subject,
		Status:          session.Status,
		AbilityEstimate: session.AbilityEstimate,
		StandardError:   session.StandardError,
		QuestionsAsked:  session.AnsweredCount(),
	}
	if err := s.events.Publish(eventType, payload); err != nil {
		log.Printf("WARN: failed to publish %s for session %s: %v", eventType, session.SessionID, err)
	}
}

func (s *Service) broadcast(sessionID, msgType string, payload interface{}) {
	if s.live == nil {
		return
	}
	s.live.BroadcastToSession(sessionID, msgType, payload)
}

func summarize(s *models.AssessmentSession) models.SessionSummary {
	return models.SessionSummary{
		SessionID:        s.SessionID,
		Subject:          s.Subject,
		Status:           s.Status,
		AbilityEstimate:  s.AbilityEstimate,
		StandardError:    s.StandardError,
		QuestionsAsked:   s.AnsweredCount(),
		CompletionReason: s.CompletionReason,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
