package generator

import (
	"math"
	"strings"
	"testing"

	"github.com/adaptlearn/backend/internal/models"
)

func TestComputeQualityScore_AllPerfect(t *testing.T) {
	vr := &ValidationResult{Confidence: "high", Matches: true}
	ar := &AdversarialResult{Challenges: nil} // no challenges = clean
	structural := StructuralScore{
		StemLengthOK:           true,
		AllChoicesInRange:      true,
		AllExplanationsPresent: true,
		CorrectAnswerDistribOK: true,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 1.0*0.40 + adversarial: 1.0*0.35 + structural: 1.0*0.25 = 1.0
	if !almostEqual(score, 1.0) {
		t.Errorf("expected score ~1.0, got %f", score)
	}
}

func TestComputeQualityScore_LowVerification(t *testing.T) {
	vr := &ValidationResult{Confidence: "low", Matches: true}
	ar := &AdversarialResult{} // clean
	structural := StructuralScore{
		StemLengthOK:           true,
		AllChoicesInRange:      true,
		AllExplanationsPresent: true,
		CorrectAnswerDistribOK: true,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 0.4*0.40 + adversarial: 1.0*0.35 + structural: 1.0*0.25 = 0.16 + 0.35 + 0.25 = 0.76
	if !almostEqual(score, 0.76) {
		t.Errorf("expected score ~0.76, got %f", score)
	}
}

func TestComputeQualityScore_StrongAdversarial(t *testing.T) {
	vr := &ValidationResult{Confidence: "high", Matches: true}
	ar := &AdversarialResult{
		Challenges: []AdversarialChallenge{
			{ChoiceID: "B", DefenseStrength: "strong"},
		},
	}
	structural := StructuralScore{
		StemLengthOK:           true,
		AllChoicesInRange:      true,
		AllExplanationsPresent: true,
		CorrectAnswerDistribOK: true,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 1.0*0.40 + adversarial: 0.0*0.35 + structural: 1.0*0.25 = 0.40 + 0.0 + 0.25 = 0.65
	if !almostEqual(score, 0.65) {
		t.Errorf("expected score ~0.65, got %f", score)
	}
}

func TestComputeQualityScore_PartialStructural(t *testing.T) {
	vr := &ValidationResult{Confidence: "medium", Matches: true}
	ar := &AdversarialResult{} // clean
	structural := StructuralScore{
		StemLengthOK:           true,
		AllChoicesInRange:      false,
		AllExplanationsPresent: true,
		CorrectAnswerDistribOK: false,
	}

	score := ComputeQualityScore(vr, ar, structural)
	// verification: 0.7*0.40 + adversarial: 1.0*0.35 + structural: 0.50*0.25 = 0.28 + 0.35 + 0.125 = 0.755
	if !almostEqual(score, 0.755) {
		t.Errorf("expected score ~0.755, got %f", score)
	}
}

func TestComputeQualityScore_NilInputs(t *testing.T) {
	structural := StructuralScore{
		StemLengthOK:           true,
		AllChoicesInRange:      true,
		AllExplanationsPresent: true,
		CorrectAnswerDistribOK: true,
	}

	score := ComputeQualityScore(nil, nil, structural)
	// verification: 0.4*0.40 + adversarial: 1.0*0.35 + structural: 1.0*0.25 = 0.16 + 0.35 + 0.25 = 0.76
	if !almostEqual(score, 0.76) {
		t.Errorf("expected score ~0.76, got %f", score)
	}
}

func TestClassifyQuality_Rejected(t *testing.T) {
	if got := ClassifyQuality(0.49); got != models.ReviewRejected {
		t.Errorf("expected rejected for 0.49, got %q", got)
	}
	if got := ClassifyQuality(0.0); got != models.ReviewRejected {
		t.Errorf("expected rejected for 0.0, got %q", got)
	}
}

func TestClassifyQuality_Flagged(t *testing.T) {
	if got := ClassifyQuality(0.50); got != models.ReviewFlagged {
		t.Errorf("expected flagged for 0.50, got %q", got)
	}
	if got := ClassifyQuality(0.70); got != models.ReviewFlagged {
		t.Errorf("expected flagged for 0.70, got %q", got)
	}
}

func TestClassifyQuality_Servable(t *testing.T) {
	if got := ClassifyQuality(0.71); got != models.ReviewUnreviewed {
		t.Errorf("expected unreviewed for 0.71, got %q", got)
	}
	if got := ClassifyQuality(1.0); got != models.ReviewUnreviewed {
		t.Errorf("expected unreviewed for 1.0, got %q", got)
	}
}

func TestComputeStructuralScore(t *testing.T) {
	q := GeneratedQuestion{
		Stem: strings.Repeat("x", 200),
	}
	q.Choices = []GeneratedChoice{
		{ID: "A", Text: "42", Explanation: "expl"},
		{ID: "B", Text: "24", Explanation: "expl"},
		{ID: "C", Text: "66", Explanation: "expl"},
		{ID: "D", Text: "18", Explanation: "expl"},
	}

	score := ComputeStructuralScore(q)
	if !score.StemLengthOK {
		t.Error("expected StemLengthOK = true for 200-char stem")
	}
	if !score.AllChoicesInRange {
		t.Error("expected AllChoicesInRange = true for short numeric choices")
	}
	if !score.AllExplanationsPresent {
		t.Error("expected AllExplanationsPresent = true")
	}
}

func TestComputeStructuralScore_Violations(t *testing.T) {
	q := GeneratedQuestion{
		Stem: "Too short",
		Choices: []GeneratedChoice{
			{ID: "A", Text: strings.Repeat("x", 400), Explanation: "expl"},
			{ID: "B", Text: "24", Explanation: ""},
			{ID: "C", Text: "66", Explanation: "expl"},
			{ID: "D", Text: "18", Explanation: "expl"},
		},
	}

	score := ComputeStructuralScore(q)
	if score.StemLengthOK {
		t.Error("expected StemLengthOK = false for 9-char stem")
	}
	if score.AllChoicesInRange {
		t.Error("expected AllChoicesInRange = false for 400-char choice")
	}
	if score.AllExplanationsPresent {
		t.Error("expected AllExplanationsPresent = false with an empty explanation")
	}
}

func TestDetermineAdversarialScore(t *testing.T) {
	tests := []struct {
		name       string
		challenges []AdversarialChallenge
		expected   string
	}{
		{"no challenges", nil, "clean"},
		{"all weak", []AdversarialChallenge{
			{DefenseStrength: "weak"}, {DefenseStrength: "none"},
		}, "clean"},
		{"one moderate", []AdversarialChallenge{
			{DefenseStrength: "moderate"}, {DefenseStrength: "weak"},
		}, "minor_concern"},
		{"any strong", []AdversarialChallenge{
			{DefenseStrength: "weak"}, {DefenseStrength: "strong"},
		}, "ambiguous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineAdversarialScore(tt.challenges)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}
