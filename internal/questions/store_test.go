package questions

import (
	"math"
	"testing"
)

func TestSuggestDifficulty(t *testing.T) {
	tests := []struct {
		meanAbility float64
		accuracy    float64
		want        float64
	}{
		{5.0, 0.5, 5.0},   // half right at the takers' level → difficulty is their level
		{5.0, 0.9, 2.3},   // nearly everyone gets it → easier than labeled
		{5.0, 0.2, 6.7},   // mostly missed → harder than labeled
		{1.0, 0.95, 0.0},  // clamped at the bottom of the scale
		{9.0, 0.05, 10.0}, // clamped at the top
	}

	for _, tt := range tests {
		got := suggestDifficulty(tt.meanAbility, tt.accuracy)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("suggestDifficulty(%.1f, %.2f) = %.1f, want %.1f", tt.meanAbility, tt.accuracy, got, tt.want)
		}
	}

	// Perfect accuracy clamps to 0.95 before the inversion, so the two agree.
	if suggestDifficulty(5.0, 1.0) != suggestDifficulty(5.0, 0.95) {
		t.Error("accuracy above 0.95 should behave like 0.95")
	}

	// Stronger takers shift the suggestion up for the same accuracy.
	low := suggestDifficulty(3.0, 0.5)
	high := suggestDifficulty(7.0, 0.5)
	if high <= low {
		t.Errorf("suggestion should track taker ability: got %.1f at mean 3.0 and %.1f at mean 7.0", low, high)
	}
}
