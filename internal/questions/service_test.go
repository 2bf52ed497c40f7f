package questions

import (
	"testing"

	"github.com/adaptlearn/backend/internal/models"
)

func validExportQuestion() models.ExportQuestion {
	return models.ExportQuestion{
		Subject:       models.SubjectMath,
		GradeBand:     models.BandMiddle,
		Difficulty:    5.0,
		Stem:          "What is 7 x 8?",
		CorrectChoice: "B",
		Explanation:   "7 x 8 = 56.",
		ReviewStatus:  models.ReviewApproved,
		Choices: []models.ExportChoice{
			{ChoiceID: "A", ChoiceText: "54", IsCorrect: false},
			{ChoiceID: "B", ChoiceText: "56", IsCorrect: true},
			{ChoiceID: "C", ChoiceText: "58", IsCorrect: false},
			{ChoiceID: "D", ChoiceText: "63", IsCorrect: false},
		},
	}
}

func TestValidateImportQuestion(t *testing.T) {
	// A well-formed question passes.
	if err := validateImportQuestion(validExportQuestion()); err != nil {
		t.Fatalf("valid question rejected: %v", err)
	}

	// Unknown subject
	q := validExportQuestion()
	q.Subject = "alchemy"
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for unknown subject")
	}

	// Unknown grade band
	q = validExportQuestion()
	q.GradeBand = "kindergarten"
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for unknown grade band")
	}

	// Difficulty outside the 0-10 scale
	q = validExportQuestion()
	q.Difficulty = -0.5
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for negative difficulty")
	}

	q = validExportQuestion()
	q.Difficulty = 10.5
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for difficulty above 10")
	}

	// Whitespace-only stem
	q = validExportQuestion()
	q.Stem = "   "
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for empty stem")
	}

	// Wrong choice count
	q = validExportQuestion()
	q.Choices = q.Choices[:3]
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for 3 choices")
	}

	// Empty choice text
	q = validExportQuestion()
	q.Choices[2].ChoiceText = ""
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for empty choice text")
	}

	// Choice ID outside A-D
	q = validExportQuestion()
	q.Choices[0].ChoiceID = "a"
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for lowercase choice ID")
	}

	// Duplicate choice IDs
	q = validExportQuestion()
	q.Choices[3].ChoiceID = "A"
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error for duplicate choice ID")
	}

	// Correct choice ID missing from the choice list
	q = validExportQuestion()
	q.CorrectChoice = "E"
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error when correct choice is not among choices")
	}

	// Correct choice present but not marked is_correct
	q = validExportQuestion()
	q.Choices[1].IsCorrect = false
	if err := validateImportQuestion(q); err == nil {
		t.Error("expected error when correct choice is not marked correct")
	}
}
