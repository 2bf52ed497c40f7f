package models

import "time"

// ── History Types ────────────────────────────────────────

// ResponseRecord is the relational projection of a session response, kept
// for reporting and exposure accounting after the session document closes.
type ResponseRecord struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	SessionID        string    `json:"session_id"`
	QuestionID       int64     `json:"question_id"`
	Subject          Subject   `json:"subject"`
	Difficulty       float64   `json:"difficulty"`
	SelectedChoice   *string   `json:"selected_choice,omitempty"`
	Correct          bool      `json:"correct"`
	TimeTakenSeconds *float64  `json:"time_taken_seconds,omitempty"`
	AnsweredAt       time.Time `json:"answered_at"`
}

// AbilityProfile is the rolling per-subject ability for a user, refreshed
// whenever one of their sessions completes.
type AbilityProfile struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Subject           Subject   `json:"subject"`
	AbilityEstimate   float64   `json:"ability_estimate"`
	StandardError     float64   `json:"standard_error"`
	SessionsCompleted int       `json:"sessions_completed"`
	QuestionsAnswered int       `json:"questions_answered"`
	QuestionsCorrect  int       `json:"questions_correct"`
	LastUpdated       time.Time `json:"last_updated"`
}

// ── Response Types ────────────────────────────────────────

type ResponseListResponse struct {
	Responses []ResponseRecord `json:"responses"`
	Total     int              `json:"total"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
}

type HistoryStatsResponse struct {
	TotalAnswered   int                    `json:"total_answered"`
	TotalCorrect    int                    `json:"total_correct"`
	OverallAccuracy float64                `json:"overall_accuracy"`
	AvgTimeSeconds  float64                `json:"avg_time_seconds"`
	SubjectStats    map[string]SubjectStat `json:"subject_stats"`
	RecentTrend     []DailyAccuracy        `json:"recent_trend"`
}

type SubjectStat struct {
	Answered        int     `json:"answered"`
	Correct         int     `json:"correct"`
	Accuracy        float64 `json:"accuracy"`
	AvgTime         float64 `json:"avg_time_seconds"`
	AbilityEstimate float64 `json:"ability_estimate"`
	StandardError   float64 `json:"standard_error"`
}

type DailyAccuracy struct {
	Date     string  `json:"date"`
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}
