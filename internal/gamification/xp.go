package gamification

import "math"

// QuestionXP is the base XP per question answered in a completed assessment.
const QuestionXP = 10

// PrecisionBonusXP is awarded when a session stopped because the ability
// estimate converged, not because the question budget ran out.
const PrecisionBonusXP = 25

// AccuracyBonus rewards high accuracy across a completed session. The
// selector keeps questions near the taker's level, so sustained accuracy
// is hard to reach.
func AccuracyBonus(correct, answered int) int {
	if answered == 0 {
		return 0
	}
	accuracy := float64(correct) / float64(answered)
	if accuracy >= 0.9 {
		return 30
	}
	if accuracy >= 0.75 {
		return 20
	}
	if accuracy >= 0.6 {
		return 10
	}
	return 0
}

// StreakMultiplier returns the XP multiplier for a daily streak.
func StreakMultiplier(currentStreak int) float64 {
	if currentStreak < 3 {
		return 1.0
	}
	if currentStreak < 7 {
		return 1.15
	}
	if currentStreak < 14 {
		return 1.25
	}
	if currentStreak < 30 {
		return 1.5
	}
	return 2.0
}

// ApplyStreakMultiplier rounds the multiplied XP to the nearest integer.
func ApplyStreakMultiplier(xp int, multiplier float64) int {
	return int(math.Round(float64(xp) * multiplier))
}
