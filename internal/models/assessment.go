package models

import "time"

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionActive     SessionStatus = "active"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

var ValidSessionStatuses = map[SessionStatus]bool{
	SessionNotStarted: true,
	SessionActive:     true,
	SessionCompleted:  true,
	SessionAbandoned:  true,
}

// sessionTransitions lists the legal lifecycle moves. Completed and
// abandoned are terminal.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionNotStarted: {SessionActive},
	SessionActive:     {SessionCompleted, SessionAbandoned},
}

func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

type CompletionReason string

const (
	CompletionPrecision     CompletionReason = "precision_reached"
	CompletionMaxQuestions  CompletionReason = "max_questions"
	CompletionBankExhausted CompletionReason = "bank_exhausted"
)

// ── Core Structs ───────────────────────────────────────

type AssessmentSession struct {
	SessionID         string                 `bson:"_id" json:"session_id"`
	UserID            int64                  `bson:"user_id" json:"user_id"`
	Subject           Subject                `bson:"subject" json:"subject"`
	GradeBand         GradeBand              `bson:"grade_band" json:"grade_band"`
	AbilityEstimate   float64                `bson:"ability_estimate" json:"ability_estimate"`
	StandardError     float64                `bson:"standard_error" json:"standard_error"`
	Status            SessionStatus          `bson:"status" json:"status"`
	CompletionReason  CompletionReason       `bson:"completion_reason,omitempty" json:"completion_reason,omitempty"`
	CurrentQuestionID int64                  `bson:"current_question_id" json:"current_question_id,omitempty"`
	Administered      []AdministeredQuestion `bson:"administered" json:"administered"`
	Version           int64                  `bson:"version" json:"-"`
	StartedAt         time.Time              `bson:"started_at" json:"started_at"`
	UpdatedAt         time.Time              `bson:"updated_at" json:"updated_at"`
	CompletedAt       *time.Time             `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

type AdministeredQuestion struct {
	QuestionID int64     `bson:"question_id" json:"question_id"`
	Difficulty float64   `bson:"difficulty" json:"difficulty"`
	ServedAt   time.Time `bson:"served_at" json:"served_at"`
	Response   *Response `bson:"response,omitempty" json:"response,omitempty"`
}

type Response struct {
	QuestionID       int64     `bson:"question_id" json:"question_id"`
	UserID           int64     `bson:"user_id" json:"user_id"`
	SelectedChoice   string    `bson:"selected_choice" json:"selected_choice"`
	Correct          bool      `bson:"correct" json:"correct"`
	TimeTakenSeconds float64   `bson:"time_taken_seconds" json:"time_taken_seconds"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`
}

// AdministeredIDs returns the IDs of every question served so far, in order.
func (s *AssessmentSession) AdministeredIDs() []int64 {
	ids := make([]int64, 0, len(s.Administered))
	for _, a := range s.Administered {
		ids = append(ids, a.QuestionID)
	}
	return ids
}

// AnsweredCount returns how many administered questions carry a recorded response.
func (s *AssessmentSession) AnsweredCount() int {
	n := 0
	for _, a := range s.Administered {
		if a.Response != nil {
			n++
		}
	}
	return n
}

// ── Request Types ─────────────────────────────────────

type StartAssessmentRequest struct {
	Subject    Subject `json:"subject"`
	GradeLevel *int    `json:"grade_level,omitempty"`
}

type AnswerRequest struct {
	SessionID        string  `json:"session_id"`
	QuestionID       int64   `json:"question_id"`
	Response         string  `json:"response"`
	TimeTakenSeconds float64 `json:"time_taken_seconds,omitempty"`
}

// ── Response Types ────────────────────────────────────

type StartAssessmentResponse struct {
	SessionID       string           `json:"session_id"`
	Subject         Subject          `json:"subject"`
	InitialEstimate float64          `json:"initial_estimate"`
	StandardError   float64          `json:"standard_error"`
	NextQuestion    *ServingQuestion `json:"next_question"`
}

type AnswerResponse struct {
	Correct          bool             `json:"correct"`
	CorrectChoice    string           `json:"correct_choice"`
	Explanation      string           `json:"explanation,omitempty"`
	AbilityEstimate  float64          `json:"ability_estimate"`
	StandardError    float64          `json:"standard_error"`
	QuestionsAsked   int              `json:"questions_asked"`
	SessionComplete  bool             `json:"session_complete"`
	CompletionReason CompletionReason `json:"completion_reason,omitempty"`
	NextQuestion     *ServingQuestion `json:"next_question,omitempty"`
	XPAwarded        int              `json:"xp_awarded,omitempty"`
}

type SessionSummary struct {
	SessionID        string           `json:"session_id"`
	Subject          Subject          `json:"subject"`
	Status           SessionStatus    `json:"status"`
	AbilityEstimate  float64          `json:"ability_estimate"`
	StandardError    float64          `json:"standard_error"`
	QuestionsAsked   int              `json:"questions_asked"`
	CompletionReason CompletionReason `json:"completion_reason,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

type AssessmentHistoryResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}
