package models

import "time"

type Subject string

const (
	SubjectMath     Subject = "math"
	SubjectReading  Subject = "reading"
	SubjectScience  Subject = "science"
	SubjectLanguage Subject = "language_arts"
	SubjectSocial   Subject = "social_studies"
)

var ValidSubjects = map[Subject]bool{
	SubjectMath:     true,
	SubjectReading:  true,
	SubjectScience:  true,
	SubjectLanguage: true,
	SubjectSocial:   true,
}

// AllSubjects is the stable iteration order for coverage sweeps and reports.
var AllSubjects = []Subject{SubjectMath, SubjectReading, SubjectScience, SubjectLanguage, SubjectSocial}

type GradeBand string

const (
	BandElementary GradeBand = "elementary"
	BandMiddle     GradeBand = "middle"
	BandHigh       GradeBand = "high"
)

var ValidGradeBands = map[GradeBand]bool{
	BandElementary: true,
	BandMiddle:     true,
	BandHigh:       true,
}

var AllGradeBands = []GradeBand{BandElementary, BandMiddle, BandHigh}

// BandForGrade maps a 1-12 grade level onto its band. Out-of-range grades
// clamp to the nearest band.
func BandForGrade(grade int) GradeBand {
	switch {
	case grade <= 5:
		return BandElementary
	case grade <= 8:
		return BandMiddle
	default:
		return BandHigh
	}
}

type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationRunning   GenerationStatus = "running"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

type ReviewStatus string

const (
	ReviewUnreviewed ReviewStatus = "unreviewed"
	ReviewApproved   ReviewStatus = "approved"
	ReviewFlagged    ReviewStatus = "flagged"
	ReviewRejected   ReviewStatus = "rejected"
)

// Question provenance.
const (
	SourceAuthored  = "authored"
	SourceGenerated = "generated"
	SourceImported  = "imported"
)

// ── Core Structs ───────────────────────────────────────

type QuestionItem struct {
	ID            int64        `json:"id"`
	Subject       Subject      `json:"subject"`
	GradeBand     GradeBand    `json:"grade_band"`
	Difficulty    float64      `json:"difficulty"`
	Stem          string       `json:"stem"`
	CorrectChoice string       `json:"correct_choice"`
	Explanation   string       `json:"explanation"`
	Choices       []Choice     `json:"choices"`
	Source        string       `json:"source"`
	QualityScore  *float64     `json:"quality_score,omitempty"`
	ReviewStatus  ReviewStatus `json:"review_status"`
	ExposureCount int          `json:"exposure_count"`
	TimesCorrect  int          `json:"times_correct"`
	LastExposedAt *time.Time   `json:"last_exposed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type Choice struct {
	ID            int64  `json:"id"`
	QuestionID    int64  `json:"question_id"`
	ChoiceID      string `json:"choice_id"`
	ChoiceText    string `json:"choice_text"`
	Explanation   string `json:"explanation,omitempty"`
	Misconception string `json:"misconception,omitempty"`
	IsCorrect     bool   `json:"is_correct"`
}

// ── Serving Types (strip answers before sending to a learner) ───────────

type ServingQuestion struct {
	ID         int64           `json:"id"`
	Subject    Subject         `json:"subject"`
	GradeBand  GradeBand       `json:"grade_band"`
	Difficulty float64         `json:"difficulty"`
	Stem       string          `json:"stem"`
	Choices    []ServingChoice `json:"choices"`
}

type ServingChoice struct {
	ChoiceID   string `json:"choice_id"`
	ChoiceText string `json:"choice_text"`
}

// ToServing strips the answer key and explanation for delivery.
func (q *QuestionItem) ToServing() ServingQuestion {
	sq := ServingQuestion{
		ID:         q.ID,
		Subject:    q.Subject,
		GradeBand:  q.GradeBand,
		Difficulty: q.Difficulty,
		Stem:       q.Stem,
	}
	for _, c := range q.Choices {
		sq.Choices = append(sq.Choices, ServingChoice{ChoiceID: c.ChoiceID, ChoiceText: c.ChoiceText})
	}
	return sq
}

// ── Request Types ─────────────────────────────────────

type CreateQuestionRequest struct {
	Subject       Subject        `json:"subject"`
	GradeBand     GradeBand      `json:"grade_band"`
	Difficulty    float64        `json:"difficulty"`
	Stem          string         `json:"stem"`
	CorrectChoice string         `json:"correct_choice"`
	Explanation   string         `json:"explanation"`
	Choices       []CreateChoice `json:"choices"`
}

type CreateChoice struct {
	ChoiceID    string `json:"choice_id"`
	ChoiceText  string `json:"choice_text"`
	Explanation string `json:"explanation,omitempty"`
}

type GenerateQuestionsRequest struct {
	Subject    Subject   `json:"subject"`
	GradeBand  GradeBand `json:"grade_band"`
	Difficulty float64   `json:"difficulty"`
	Count      int       `json:"count"`
}

type ReviewQuestionRequest struct {
	Status ReviewStatus `json:"status"`
}

type ApplyDifficultyRequest struct {
	Difficulty float64 `json:"difficulty"`
}

// ── Response Types ────────────────────────────────────

type GenerateQuestionsResponse struct {
	Requested int    `json:"requested"`
	Stored    int    `json:"stored"`
	Rejected  int    `json:"rejected"`
	ModelUsed string `json:"model_used,omitempty"`
	Message   string `json:"message"`
}

type QuestionListResponse struct {
	Questions []QuestionItem `json:"questions"`
	Total     int            `json:"total"`
	Page      int            `json:"page"`
	PageSize  int            `json:"page_size"`
}

type BankCoverage struct {
	Subject   Subject   `json:"subject"`
	GradeBand GradeBand `json:"grade_band"`
	BandLow   float64   `json:"band_low"`
	BandHigh  float64   `json:"band_high"`
	Available int       `json:"available"`
}

type BankStats struct {
	TotalQuestions int            `json:"total_questions"`
	Approved       int            `json:"approved"`
	Unreviewed     int            `json:"unreviewed"`
	Flagged        int            `json:"flagged"`
	Rejected       int            `json:"rejected"`
	Generated      int            `json:"generated"`
	Authored       int            `json:"authored"`
	Imported       int            `json:"imported"`
	AvgQuality     *float64       `json:"avg_quality,omitempty"`
	BySubject      map[string]int `json:"by_subject"`
}

// RecalibrationCandidate is a question whose live accuracy disagrees with its
// labeled difficulty enough to suggest a new value.
type RecalibrationCandidate struct {
	QuestionID          int64   `json:"question_id"`
	CurrentDifficulty   float64 `json:"current_difficulty"`
	Answered            int     `json:"answered"`
	Correct             int     `json:"correct"`
	ObservedAccuracy    float64 `json:"observed_accuracy"`
	MeanTakerAbility    float64 `json:"mean_taker_ability"`
	SuggestedDifficulty float64 `json:"suggested_difficulty"`
}

// ── Generation Queue ──────────────────────────────────

type GenerationQueueItem struct {
	ID               int64            `json:"id"`
	Subject          Subject          `json:"subject"`
	GradeBand        GradeBand        `json:"grade_band"`
	TargetDifficulty float64          `json:"target_difficulty"`
	QuestionsNeeded  int              `json:"questions_needed"`
	Status           GenerationStatus `json:"status"`
	ErrorMessage     *string          `json:"error_message,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// ── Export/Import Types ──────────────────────────────────

type ExportEnvelope struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Questions  []ExportQuestion `json:"questions"`
}

type ExportQuestion struct {
	Subject       Subject        `json:"subject"`
	GradeBand     GradeBand      `json:"grade_band"`
	Difficulty    float64        `json:"difficulty"`
	Stem          string         `json:"stem"`
	CorrectChoice string         `json:"correct_choice"`
	Explanation   string         `json:"explanation"`
	QualityScore  *float64       `json:"quality_score"`
	ReviewStatus  ReviewStatus   `json:"review_status"`
	Choices       []ExportChoice `json:"choices"`
}

type ExportChoice struct {
	ChoiceID      string `json:"choice_id"`
	ChoiceText    string `json:"choice_text"`
	Explanation   string `json:"explanation,omitempty"`
	Misconception string `json:"misconception,omitempty"`
	IsCorrect     bool   `json:"is_correct"`
}

type ImportResult struct {
	TotalInPayload int `json:"total_in_payload"`
	Imported       int `json:"imported"`
	Skipped        int `json:"skipped"`
}
