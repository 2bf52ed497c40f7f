package generator

import (
	"encoding/json"
	"strings"
	"testing"
)

func validBatchJSON(count int) string {
	correctAnswers := []string{"A", "B", "C", "D"}
	batch := GeneratedBatch{Questions: make([]GeneratedQuestion, count)}

	for i := 0; i < count; i++ {
		correctID := correctAnswers[i%4]
		choices := make([]GeneratedChoice, 4)
		for j, id := range correctAnswers {
			isCorrect := id == correctID
			label := "incorrect"
			var misconception *string
			if isCorrect {
				label = "correct"
			} else {
				m := "partial_answer"
				misconception = &m
			}
			choices[j] = GeneratedChoice{
				ID:            id,
				Text:          "Option " + id + " is the " + label + " value for this computation",
				Explanation:   "This is the explanation for why this choice is " + label,
				Misconception: misconception,
			}
		}
		batch.Questions[i] = GeneratedQuestion{
			Stem:            strings.Repeat("A class collected 48 cans for recycling ", 3) + "and must split them evenly. How many does each group get?",
			Choices:         choices,
			CorrectAnswerID: correctID,
			Explanation:     "The correct answer follows from dividing the total evenly across the groups.",
		}
	}

	data, _ := json.Marshal(batch)
	return string(data)
}

func TestParseResponse_ValidJSON(t *testing.T) {
	input := validBatchJSON(6)

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(batch.Questions) != 6 {
		t.Errorf("expected 6 questions, got %d", len(batch.Questions))
	}

	for i, q := range batch.Questions {
		if len(q.Choices) != 4 {
			t.Errorf("question %d: expected 4 choices, got %d", i+1, len(q.Choices))
		}
		if q.CorrectAnswerID == "" {
			t.Errorf("question %d: empty correct_answer_id", i+1)
		}
	}
}

func TestParseResponse_MarkdownFences(t *testing.T) {
	input := "```json\n" + validBatchJSON(3) + "\n```"

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error with markdown fences, got: %v", err)
	}

	if len(batch.Questions) != 3 {
		t.Errorf("expected 3 questions, got %d", len(batch.Questions))
	}
}

func TestParseResponse_MissingChoice(t *testing.T) {
	batch := GeneratedBatch{
		Questions: []GeneratedQuestion{
			{
				Stem: "A bakery sold 48 muffins in the morning and 36 in the afternoon. How many muffins were sold in total?",
				Choices: []GeneratedChoice{
					{ID: "A", Text: "84", Explanation: "explanation"},
					{ID: "B", Text: "74", Explanation: "explanation"},
					{ID: "C", Text: "94", Explanation: "explanation"},
					// Missing D
				},
				CorrectAnswerID: "A",
				Explanation:     "The answer is A.",
			},
		},
	}
	data, _ := json.Marshal(batch)

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for missing choice")
	}

	var ve *ValidationError
	if !isValidationError(err, &ve) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}

	found := false
	for _, e := range ve.Errors {
		if strings.Contains(e, "expected 4 choices") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error about 4 choices, got: %v", ve.Errors)
	}
}

func TestParseResponse_InvalidCorrectAnswerID(t *testing.T) {
	batch := GeneratedBatch{
		Questions: []GeneratedQuestion{
			{
				Stem: "A bakery sold 48 muffins in the morning and 36 in the afternoon. How many muffins were sold in total?",
				Choices: []GeneratedChoice{
					{ID: "A", Text: "84", Explanation: "explanation"},
					{ID: "B", Text: "74", Explanation: "explanation"},
					{ID: "C", Text: "94", Explanation: "explanation"},
					{ID: "D", Text: "12", Explanation: "explanation"},
				},
				CorrectAnswerID: "E",
				Explanation:     "The answer is E.",
			},
		},
	}
	data, _ := json.Marshal(batch)

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for invalid correct_answer_id")
	}

	var ve *ValidationError
	if !isValidationError(err, &ve) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}

	found := false
	for _, e := range ve.Errors {
		if strings.Contains(e, "invalid correct_answer_id") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error about invalid correct_answer_id, got: %v", ve.Errors)
	}
}

func TestParseResponse_StemTooShort(t *testing.T) {
	batch := GeneratedBatch{
		Questions: []GeneratedQuestion{
			{
				Stem: "2+2?",
				Choices: []GeneratedChoice{
					{ID: "A", Text: "4", Explanation: "explanation"},
					{ID: "B", Text: "3", Explanation: "explanation"},
					{ID: "C", Text: "5", Explanation: "explanation"},
					{ID: "D", Text: "22", Explanation: "explanation"},
				},
				CorrectAnswerID: "A",
				Explanation:     "The answer is A.",
			},
		},
	}
	data, _ := json.Marshal(batch)

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for short stem")
	}

	var ve *ValidationError
	if !isValidationError(err, &ve) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}

	found := false
	for _, e := range ve.Errors {
		if strings.Contains(e, "stem length") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error about stem length, got: %v", ve.Errors)
	}
}

func TestParseResponse_MalformedJSON(t *testing.T) {
	_, err := ParseResponse("this is not json at all")
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}

	// Should NOT be a ValidationError — should be a parse error
	var ve *ValidationError
	if isValidationError(err, &ve) {
		t.Fatal("expected parse error, not ValidationError")
	}
}

func TestParseResponse_EmptyChoiceExplanation(t *testing.T) {
	batch := GeneratedBatch{
		Questions: []GeneratedQuestion{
			{
				Stem: "Which sentence uses the underlined word correctly in context?",
				Choices: []GeneratedChoice{
					{ID: "A", Text: "The first sentence option", Explanation: "explanation"},
					{ID: "B", Text: "The second sentence option", Explanation: "explanation"},
					{ID: "C", Text: "The third sentence option", Explanation: ""},
					{ID: "D", Text: "The fourth sentence option", Explanation: "explanation"},
				},
				CorrectAnswerID: "A",
				Explanation:     "The answer is A.",
			},
		},
	}
	data, _ := json.Marshal(batch)

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for empty choice explanation")
	}
}

func TestParseResponse_ShortNumericChoices(t *testing.T) {
	batch := GeneratedBatch{
		Questions: []GeneratedQuestion{
			{
				Stem: "A rectangle is 7 cm long and 4 cm wide. What is its area in square centimeters?",
				Choices: []GeneratedChoice{
					{ID: "A", Text: "28", Explanation: "Length times width gives the area."},
					{ID: "B", Text: "22", Explanation: "Adding the sides gives the perimeter, not the area."},
					{ID: "C", Text: "11", Explanation: "Adding length and width ignores the other two sides."},
					{ID: "D", Text: "14", Explanation: "Doubling the length ignores the width."},
				},
				CorrectAnswerID: "A",
				Explanation:     "Area of a rectangle is length times width: 7 x 4 = 28.",
			},
		},
	}
	data, _ := json.Marshal(batch)

	parsed, err := ParseResponse(string(data))
	if err != nil {
		t.Fatalf("expected bare numeric choices to be accepted, got: %v", err)
	}
	if len(parsed.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(parsed.Questions))
	}
}

func TestParseResponse_Misconceptions(t *testing.T) {
	wrongType := "place_value_slip"
	batch := GeneratedBatch{
		Questions: []GeneratedQuestion{
			{
				Stem: "Rounded to the nearest hundred, what is the value of 1,451 plus 2,367?",
				Choices: []GeneratedChoice{
					{ID: "A", Text: "3,800", Explanation: "explanation", Misconception: nil},
					{ID: "B", Text: "3,900", Explanation: "explanation", Misconception: &wrongType},
					{ID: "C", Text: "3,700", Explanation: "explanation", Misconception: &wrongType},
					{ID: "D", Text: "4,000", Explanation: "explanation", Misconception: &wrongType},
				},
				CorrectAnswerID: "A",
				Explanation:     "The answer is A.",
			},
		},
	}
	data, _ := json.Marshal(batch)

	parsed, err := ParseResponse(string(data))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	q := parsed.Questions[0]

	// Correct answer should have nil misconception
	if q.Choices[0].Misconception != nil {
		t.Error("correct answer should have nil misconception")
	}

	// Wrong answers should carry the misconception label
	for _, c := range q.Choices[1:] {
		if c.Misconception == nil {
			t.Errorf("choice %s: expected misconception to be set", c.ID)
		} else if *c.Misconception != "place_value_slip" {
			t.Errorf("choice %s: expected misconception 'place_value_slip', got %q", c.ID, *c.Misconception)
		}
	}
}

// isValidationError checks if err is a *ValidationError via type assertion
func isValidationError(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if ok && target != nil {
		*target = ve
	}
	return ok
}
