package models

import "time"

// ── Core Gamification Structs ─────────────────────────────

type UserGamification struct {
	UserID                  int64      `json:"user_id"`
	TotalXP                 int64      `json:"total_xp"`
	WeeklyXP                int64      `json:"weekly_xp"`
	WeeklyXPResetAt         time.Time  `json:"weekly_xp_reset_at"`
	CurrentStreak           int        `json:"current_streak"`
	LongestStreak           int        `json:"longest_streak"`
	LastActiveDate          *time.Time `json:"last_active_date"`
	StreakFreezeActive      bool       `json:"streak_freeze_active"`
	StreakFreezesOwned      int        `json:"streak_freezes_owned"`
	Gems                    int        `json:"gems"`
	DailyGoalTarget         int        `json:"daily_goal_target"`
	DailyGoalProgress       int        `json:"daily_goal_progress"`
	DailyGoalDate           time.Time  `json:"daily_goal_date"`
	LeagueTier              string     `json:"league_tier"`
	QuestionsAnsweredTotal  int        `json:"questions_answered_total"`
	QuestionsCorrectTotal   int        `json:"questions_correct_total"`
	SessionsCompletedTotal  int        `json:"sessions_completed_total"`
	PerfectSessionsTotal    int        `json:"perfect_sessions_total"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

type XPEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	EventType string    `json:"event_type"`
	XPAmount  int       `json:"xp_amount"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Achievement struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Achievement string    `json:"achievement"`
	EarnedAt    time.Time `json:"earned_at"`
}

// ── Request Types ─────────────────────────────────────────

type SetDailyGoalRequest struct {
	Target int `json:"target"`
}

// ── Response Types ────────────────────────────────────────

type GamificationResponse struct {
	TotalXP                int64    `json:"total_xp"`
	WeeklyXP               int64    `json:"weekly_xp"`
	CurrentStreak          int      `json:"current_streak"`
	LongestStreak          int      `json:"longest_streak"`
	StreakFreezeActive     bool     `json:"streak_freeze_active"`
	StreakFreezesOwned     int      `json:"streak_freezes_owned"`
	Gems                   int      `json:"gems"`
	DailyGoalTarget        int      `json:"daily_goal_target"`
	DailyGoalProgress      int      `json:"daily_goal_progress"`
	LeagueTier             string   `json:"league_tier"`
	QuestionsAnsweredTotal int      `json:"questions_answered_total"`
	QuestionsCorrectTotal  int      `json:"questions_correct_total"`
	SessionsCompletedTotal int      `json:"sessions_completed_total"`
	PerfectSessionsTotal   int      `json:"perfect_sessions_total"`
	Achievements           []string `json:"achievements"`
}

type SessionRewardResponse struct {
	XPBreakdown          XPBreakdown   `json:"xp_breakdown"`
	GemsEarned           int           `json:"gems_earned"`
	Streak               StreakInfo    `json:"streak"`
	DailyGoal            DailyGoalInfo `json:"daily_goal"`
	AchievementsUnlocked []string      `json:"achievements_unlocked"`
	LeagueTier           string        `json:"league_tier"`
}

type XPBreakdown struct {
	Questions        int     `json:"questions"`
	AccuracyBonus    int     `json:"accuracy_bonus"`
	PrecisionBonus   int     `json:"precision_bonus"`
	Subtotal         int     `json:"subtotal"`
	StreakMultiplier float64 `json:"streak_multiplier"`
	TotalXP          int     `json:"total_xp"`
}

type StreakInfo struct {
	Current    int     `json:"current"`
	Multiplier float64 `json:"multiplier"`
}

type DailyGoalInfo struct {
	Progress  int  `json:"progress"`
	Target    int  `json:"target"`
	Completed bool `json:"completed"`
}

type StreakFreezeResponse struct {
	GemsRemaining      int `json:"gems_remaining"`
	StreakFreezesOwned int `json:"streak_freezes_owned"`
}

type LeaderboardResponse struct {
	Period      string             `json:"period"`
	Entries     []LeaderboardEntry `json:"entries"`
	CurrentUser *LeaderboardEntry  `json:"current_user,omitempty"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id"`
	DisplayName   string `json:"display_name"`
	Username      string `json:"username"`
	WeeklyXP      int64  `json:"weekly_xp"`
	LeagueTier    string `json:"league_tier"`
	CurrentStreak int    `json:"current_streak"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// ── League Tier Constants ─────────────────────────────────

const (
	LeagueBronze   = "bronze"
	LeagueSilver   = "silver"
	LeagueGold     = "gold"
	LeagueDiamond  = "diamond"
	LeagueObsidian = "obsidian"
)
