package assessment

import (
	"errors"
	"math"

	"github.com/adaptlearn/backend/internal/models"
)

// ErrBankExhausted signals that no unadministered question lies within the
// selector's difficulty window. Callers widen the window or end the session.
var ErrBankExhausted = errors.New("question bank exhausted")

// Selector picks the next question by the maximum-information criterion:
// the candidate whose difficulty sits closest to the current estimate.
type Selector struct{}

func NewSelector() *Selector {
	return &Selector{}
}

// Next returns the most informative candidate within tolerance whose ID is
// not in the exclusion set. Ties break toward the least recently exposed
// item so usage spreads across the bank.
func (s *Selector) Next(estimate float64, candidates []models.QuestionItem, exclude []int64, tolerance float64) (*models.QuestionItem, error) {
	excluded := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	best := -1
	for i := range candidates {
		q := &candidates[i]
		if excluded[q.ID] {
			continue
		}
		if math.Abs(q.Difficulty-estimate) > tolerance {
			continue
		}
		if best == -1 || betterCandidate(q, &candidates[best], estimate) {
			best = i
		}
	}

	if best == -1 {
		return nil, ErrBankExhausted
	}
	pick := candidates[best]
	return &pick, nil
}

// betterCandidate reports whether a should be served before b.
func betterCandidate(a, b *models.QuestionItem, estimate float64) bool {
	da := math.Abs(a.Difficulty - estimate)
	db := math.Abs(b.Difficulty - estimate)
	if da != db {
		return da < db
	}
	switch {
	case a.LastExposedAt == nil && b.LastExposedAt != nil:
		return true
	case a.LastExposedAt != nil && b.LastExposedAt == nil:
		return false
	case a.LastExposedAt != nil && b.LastExposedAt != nil && !a.LastExposedAt.Equal(*b.LastExposedAt):
		return a.LastExposedAt.Before(*b.LastExposedAt)
	}
	if a.ExposureCount != b.ExposureCount {
		return a.ExposureCount < b.ExposureCount
	}
	return a.ID < b.ID
}
