package generator

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

type GeneratedBatch struct {
	Questions []GeneratedQuestion `json:"questions"`
}

type GeneratedQuestion struct {
	Stem            string            `json:"stem"`
	Choices         []GeneratedChoice `json:"choices"`
	CorrectAnswerID string            `json:"correct_answer_id"`
	Explanation     string            `json:"explanation"`
}

type GeneratedChoice struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	Explanation   string  `json:"explanation"`
	Misconception *string `json:"misconception"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func ParseResponse(responseBody string) (*GeneratedBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch GeneratedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateBatch(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

var validChoiceIDs = map[string]bool{"A": true, "B": true, "C": true, "D": true}

func validateBatch(batch *GeneratedBatch) error {
	var errs []string

	if len(batch.Questions) == 0 {
		return &ValidationError{Errors: []string{"no questions in batch"}}
	}

	correctAnswerCounts := make(map[string]int)

	for i, q := range batch.Questions {
		qNum := i + 1

		if len(q.Choices) != 4 {
			errs = append(errs, fmt.Sprintf("question %d: expected 4 choices, got %d", qNum, len(q.Choices)))
			continue
		}

		expectedIDs := []string{"A", "B", "C", "D"}
		for j, c := range q.Choices {
			if c.ID != expectedIDs[j] {
				errs = append(errs, fmt.Sprintf("question %d: choice %d has id %q, expected %q", qNum, j+1, c.ID, expectedIDs[j]))
			}
		}

		if !validChoiceIDs[q.CorrectAnswerID] {
			errs = append(errs, fmt.Sprintf("question %d: invalid correct_answer_id %q", qNum, q.CorrectAnswerID))
		}

		// Stem length check — reading stems may embed a short excerpt
		stemLen := len(q.Stem)
		if stemLen < 15 || stemLen > 1200 {
			errs = append(errs, fmt.Sprintf("question %d: stem length %d outside range [15, 1200]", qNum, stemLen))
		}

		for j, c := range q.Choices {
			// A bare number is a valid math choice, so no minimum length
			textLen := len(c.Text)
			if textLen == 0 || textLen > 300 {
				errs = append(errs, fmt.Sprintf("question %d: choice %s text length %d outside range [1, 300]", qNum, c.ID, textLen))
			}
			if c.Explanation == "" {
				errs = append(errs, fmt.Sprintf("question %d: choice %d has empty explanation", qNum, j+1))
			}

			// Warn if a distractor is missing its misconception label
			if c.ID != q.CorrectAnswerID && c.Misconception == nil {
				log.Printf("WARNING: question %d choice %s missing misconception label", qNum, c.ID)
			}
		}

		if q.Explanation == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty explanation", qNum))
		}

		correctAnswerCounts[q.CorrectAnswerID]++
	}

	// Warn (but don't reject) if correct answers are clustered
	for letter, count := range correctAnswerCounts {
		if count > 2 && len(batch.Questions) >= 5 {
			log.Printf("WARNING: correct answer %q appears %d times in batch of %d questions", letter, count, len(batch.Questions))
		}
	}

	// Topic diversity check (Jaccard keyword overlap warning)
	checkTopicDiversity(batch.Questions)

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// checkTopicDiversity warns if any two stems share >60% keyword overlap.
func checkTopicDiversity(questions []GeneratedQuestion) {
	if len(questions) < 2 {
		return
	}

	tokenSets := make([]map[string]bool, len(questions))
	for i, q := range questions {
		tokenSets[i] = tokenize(q.Stem)
	}

	for i := 0; i < len(questions); i++ {
		for j := i + 1; j < len(questions); j++ {
			overlap := jaccardSimilarity(tokenSets[i], tokenSets[j])
			if overlap > 0.60 {
				log.Printf("WARNING: questions %d and %d have %.0f%% keyword overlap — consider more topic diversity", i+1, j+1, overlap*100)
			}
		}
	}
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		// Skip very short words (articles, prepositions)
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
