package gamification

import "testing"

func TestAccuracyBonus(t *testing.T) {
	tests := []struct {
		correct  int
		answered int
		want     int
	}{
		{0, 0, 0},    // no questions, no bonus
		{18, 20, 30}, // 90%
		{15, 20, 20}, // 75%
		{12, 20, 10}, // 60%
		{11, 20, 0},  // 55%
		{0, 20, 0},
	}

	for _, tt := range tests {
		got := AccuracyBonus(tt.correct, tt.answered)
		if got != tt.want {
			t.Errorf("AccuracyBonus(%d, %d) = %d, want %d", tt.correct, tt.answered, got, tt.want)
		}
	}
}

func TestStreakMultiplier(t *testing.T) {
	tests := []struct {
		streak int
		want   float64
	}{
		{0, 1.0},
		{2, 1.0},
		{3, 1.15},
		{6, 1.15},
		{7, 1.25},
		{13, 1.25},
		{14, 1.5},
		{29, 1.5},
		{30, 2.0},
		{365, 2.0},
	}

	for _, tt := range tests {
		got := StreakMultiplier(tt.streak)
		if got != tt.want {
			t.Errorf("StreakMultiplier(%d) = %f, want %f", tt.streak, got, tt.want)
		}
	}
}

func TestApplyStreakMultiplier(t *testing.T) {
	// 225 * 1.15 = 258.75 rounds to 259
	if got := ApplyStreakMultiplier(225, 1.15); got != 259 {
		t.Errorf("ApplyStreakMultiplier(225, 1.15) = %d, want 259", got)
	}

	// Multiplier of 1.0 leaves XP unchanged
	if got := ApplyStreakMultiplier(100, 1.0); got != 100 {
		t.Errorf("ApplyStreakMultiplier(100, 1.0) = %d, want 100", got)
	}
}
