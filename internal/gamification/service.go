package gamification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/adaptlearn/backend/internal/cache"
	"github.com/adaptlearn/backend/internal/models"
)

// ErrLeaderboardUnavailable is returned when the Redis board backing the
// weekly race cannot be reached.
var ErrLeaderboardUnavailable = errors.New("leaderboard unavailable")

// Service owns XP, streaks, achievements, and the weekly leaderboard race.
type Service struct {
	store  *Store
	boards *cache.LeaderboardCache
}

func NewService(store *Store, boards *cache.LeaderboardCache) *Service {
	return &Service{store: store, boards: boards}
}

var leagueTiers = []string{
	models.LeagueBronze,
	models.LeagueSilver,
	models.LeagueGold,
	models.LeagueDiamond,
	models.LeagueObsidian,
}

var streakMilestoneGems = map[int]int{
	3: 10, 7: 25, 14: 50, 30: 100, 60: 200, 100: 500, 365: 1000,
}

// weekKey identifies one ISO week's leaderboard race.
func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ── Per-Answer Tracking (called from the assessment flow) ──

// RecordAnswer bumps the lifetime answer counters. Best-effort: the session
// flow never waits on or fails for gamification.
func (s *Service) RecordAnswer(userID int64, correct bool) {
	if _, err := s.store.GetOrCreateGamification(userID); err != nil {
		log.Printf("[gamification] ensure row for user %d: %v", userID, err)
		return
	}
	if err := s.store.IncrementCounters(userID, correct); err != nil {
		log.Printf("[gamification] increment counters for user %d: %v", userID, err)
	}
}

// ── Session Rewards ─────────────────────────────────────

// AwardSessionRewards hands out XP, streak credit, daily-goal progress, gems,
// and achievements for a completed assessment.
func (s *Service) AwardSessionRewards(userID int64, questionsAnswered, questionsCorrect int, precisionReached bool) (*models.SessionRewardResponse, error) {
	gam, err := s.store.GetOrCreateGamification(userID)
	if err != nil {
		return nil, fmt.Errorf("get gamification: %w", err)
	}

	s.advanceStreak(gam)
	goalJustMet := s.advanceDailyGoal(gam, questionsAnswered)

	questionXP := questionsAnswered * QuestionXP
	accuracyXP := AccuracyBonus(questionsCorrect, questionsAnswered)
	precisionXP := 0
	if precisionReached {
		precisionXP = PrecisionBonusXP
	}
	subtotal := questionXP + accuracyXP + precisionXP
	multiplier := StreakMultiplier(gam.CurrentStreak)
	totalXP := ApplyStreakMultiplier(subtotal, multiplier)

	gam.TotalXP += int64(totalXP)
	gam.WeeklyXP += int64(totalXP)

	gam.SessionsCompletedTotal++
	perfect := questionsAnswered > 0 && questionsCorrect == questionsAnswered

	gemsEarned := 0
	if perfect {
		gam.PerfectSessionsTotal++
		gemsEarned += 10
	}
	if gam.SessionsCompletedTotal == 1 {
		gemsEarned += 50
	}
	if goalJustMet {
		gemsEarned += 5
	}
	gam.Gems += gemsEarned

	if err := s.store.UpdateGamification(userID, gam); err != nil {
		return nil, fmt.Errorf("update gamification: %w", err)
	}

	s.store.LogXPEvent(userID, "session_complete", totalXP, map[string]interface{}{
		"question_xp":     questionXP,
		"accuracy_bonus":  accuracyXP,
		"precision_bonus": precisionXP,
		"multiplier":      multiplier,
		"answered":        questionsAnswered,
		"correct":         questionsCorrect,
	})

	// The Redis board orders the current week's race; Postgres keeps the
	// durable totals.
	if s.boards != nil && totalXP > 0 {
		if err := s.boards.AddXP(context.Background(), gam.LeagueTier, weekKey(time.Now()), userID, totalXP); err != nil {
			log.Printf("[gamification] leaderboard update for user %d: %v", userID, err)
		}
	}

	newAchievements, achievementGems := s.checkAndAward(userID, gam)
	gemsEarned += achievementGems

	return &models.SessionRewardResponse{
		XPBreakdown: models.XPBreakdown{
			Questions:        questionXP,
			AccuracyBonus:    accuracyXP,
			PrecisionBonus:   precisionXP,
			Subtotal:         subtotal,
			StreakMultiplier: multiplier,
			TotalXP:          totalXP,
		},
		GemsEarned: gemsEarned,
		Streak: models.StreakInfo{
			Current:    gam.CurrentStreak,
			Multiplier: multiplier,
		},
		DailyGoal: models.DailyGoalInfo{
			Progress:  gam.DailyGoalProgress,
			Target:    gam.DailyGoalTarget,
			Completed: gam.DailyGoalProgress >= gam.DailyGoalTarget,
		},
		AchievementsUnlocked: newAchievements,
		LeagueTier:           gam.LeagueTier,
	}, nil
}

// advanceStreak applies one day of streak credit in-memory; the caller
// persists the row.
func (s *Service) advanceStreak(gam *models.UserGamification) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	if gam.LastActiveDate != nil {
		lastActive := gam.LastActiveDate.Truncate(24 * time.Hour)

		// Already active today — no change
		if lastActive.Equal(today) {
			return
		}

		daysSinceLast := int(today.Sub(lastActive).Hours() / 24)
		switch {
		case daysSinceLast == 1:
			// Consecutive day
			gam.CurrentStreak++
		case daysSinceLast == 2 && gam.StreakFreezesOwned > 0:
			// Missed yesterday but a freeze covers it
			gam.CurrentStreak++
			gam.StreakFreezeActive = false
			gam.StreakFreezesOwned--
		default:
			// Streak broken
			gam.CurrentStreak = 1
			gam.StreakFreezeActive = false
		}
	} else {
		// First ever activity
		gam.CurrentStreak = 1
	}

	if gam.CurrentStreak > gam.LongestStreak {
		gam.LongestStreak = gam.CurrentStreak
	}
	gam.LastActiveDate = &today

	if gems, ok := streakMilestoneGems[gam.CurrentStreak]; ok {
		gam.Gems += gems
		s.store.LogXPEvent(gam.UserID, "streak_milestone", 0, map[string]interface{}{
			"streak":       gam.CurrentStreak,
			"gems_awarded": gems,
		})
	}
}

// advanceDailyGoal adds this session's questions to today's goal, resetting
// on a new day. Returns true when this session pushed the goal over the line.
func (s *Service) advanceDailyGoal(gam *models.UserGamification, questionsAnswered int) bool {
	today := time.Now().UTC().Format("2006-01-02")
	if today != gam.DailyGoalDate.Format("2006-01-02") {
		gam.DailyGoalProgress = 0
		gam.DailyGoalDate = time.Now().UTC()
	}

	wasCompleted := gam.DailyGoalProgress >= gam.DailyGoalTarget
	gam.DailyGoalProgress += questionsAnswered
	nowCompleted := gam.DailyGoalProgress >= gam.DailyGoalTarget

	if !wasCompleted && nowCompleted {
		s.store.LogXPEvent(gam.UserID, "daily_goal", 0, map[string]interface{}{
			"target": gam.DailyGoalTarget,
		})
		return true
	}
	return false
}

// checkAndAward persists newly qualified achievements and awards their gems.
func (s *Service) checkAndAward(userID int64, gam *models.UserGamification) ([]string, int) {
	highEstimates, err := s.store.CountHighEstimateSubjects(userID)
	if err != nil {
		log.Printf("[gamification] high-estimate count for user %d: %v", userID, err)
	}

	qualified := CheckAchievements(gam, highEstimates)
	existing, err := s.store.GetUserAchievements(userID)
	if err != nil {
		log.Printf("[gamification] load achievements for user %d: %v", userID, err)
		return []string{}, 0
	}
	existingSet := make(map[string]bool, len(existing))
	for _, a := range existing {
		existingSet[a] = true
	}

	newAchievements := []string{}
	gems := 0
	for _, key := range qualified {
		if existingSet[key] {
			continue
		}
		if err := s.store.AwardAchievement(userID, key); err != nil {
			continue
		}
		newAchievements = append(newAchievements, key)
		if def, ok := Achievements[key]; ok && def.Gems > 0 {
			s.store.AwardGems(userID, def.Gems)
			gems += def.Gems
		}
	}
	return newAchievements, gems
}

// ── Profile ─────────────────────────────────────────────

func (s *Service) GetProfile(userID int64) (*models.GamificationResponse, error) {
	gam, err := s.store.GetOrCreateGamification(userID)
	if err != nil {
		return nil, err
	}

	achievements, err := s.store.GetUserAchievements(userID)
	if err != nil {
		achievements = []string{}
	}
	if achievements == nil {
		achievements = []string{}
	}

	// Show zero progress if the goal date rolled over
	today := time.Now().UTC().Format("2006-01-02")
	dailyProgress := gam.DailyGoalProgress
	if today != gam.DailyGoalDate.Format("2006-01-02") {
		dailyProgress = 0
	}

	return &models.GamificationResponse{
		TotalXP:                gam.TotalXP,
		WeeklyXP:               gam.WeeklyXP,
		CurrentStreak:          gam.CurrentStreak,
		LongestStreak:          gam.LongestStreak,
		StreakFreezeActive:     gam.StreakFreezeActive,
		StreakFreezesOwned:     gam.StreakFreezesOwned,
		Gems:                   gam.Gems,
		DailyGoalTarget:        gam.DailyGoalTarget,
		DailyGoalProgress:      dailyProgress,
		LeagueTier:             gam.LeagueTier,
		QuestionsAnsweredTotal: gam.QuestionsAnsweredTotal,
		QuestionsCorrectTotal:  gam.QuestionsCorrectTotal,
		SessionsCompletedTotal: gam.SessionsCompletedTotal,
		PerfectSessionsTotal:   gam.PerfectSessionsTotal,
		Achievements:           achievements,
	}, nil
}

// ── Purchases & Settings ────────────────────────────────

func (s *Service) BuyStreakFreeze(userID int64) (*models.StreakFreezeResponse, error) {
	gam, err := s.store.GetOrCreateGamification(userID)
	if err != nil {
		return nil, err
	}

	if gam.StreakFreezesOwned >= 3 {
		return nil, fmt.Errorf("already have maximum freezes (3)")
	}
	if gam.Gems < 50 {
		return nil, fmt.Errorf("not enough gems (need 50, have %d)", gam.Gems)
	}

	if err := s.store.BuyStreakFreeze(userID); err != nil {
		return nil, err
	}

	return &models.StreakFreezeResponse{
		GemsRemaining:      gam.Gems - 50,
		StreakFreezesOwned: gam.StreakFreezesOwned + 1,
	}, nil
}

func (s *Service) SetDailyGoal(userID int64, target int) error {
	if _, err := s.store.GetOrCreateGamification(userID); err != nil {
		return err
	}
	return s.store.SetDailyGoalTarget(userID, target)
}

// ── Leaderboard ─────────────────────────────────────────

// GetLeaderboard returns the caller's league board for the current week:
// the top of the Redis race plus the caller's own rank when outside it.
func (s *Service) GetLeaderboard(ctx context.Context, userID int64, limit int) (*models.LeaderboardResponse, error) {
	if s.boards == nil {
		return nil, ErrLeaderboardUnavailable
	}
	if limit <= 0 {
		limit = 20
	}

	gam, err := s.store.GetOrCreateGamification(userID)
	if err != nil {
		return nil, err
	}

	week := weekKey(time.Now())
	scores, err := s.boards.Top(ctx, gam.LeagueTier, week, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard read: %w", err)
	}

	ids := make([]int64, 0, len(scores))
	for _, sc := range scores {
		ids = append(ids, sc.UserID)
	}
	profiles, err := s.store.GetLeaderboardProfiles(ids)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	found := false
	for _, sc := range scores {
		entry := models.LeaderboardEntry{
			Rank:       sc.Rank,
			UserID:     sc.UserID,
			WeeklyXP:   sc.Score,
			LeagueTier: gam.LeagueTier,
		}
		if p, ok := profiles[sc.UserID]; ok {
			entry.DisplayName = models.User{Name: p.Name}.DisplayName()
			entry.Username = p.Username
			entry.CurrentStreak = p.CurrentStreak
		}
		if sc.UserID == userID {
			entry.IsCurrentUser = true
			found = true
		}
		entries = append(entries, entry)
	}

	var currentUser *models.LeaderboardEntry
	if !found {
		rank, err := s.boards.Rank(ctx, gam.LeagueTier, week, userID)
		if err == nil && rank > 0 {
			// Rank and score both come from the board so the row is
			// consistent even when Postgres weekly XP has drifted.
			weeklyXP := gam.WeeklyXP
			if score, serr := s.boards.Score(ctx, gam.LeagueTier, week, userID); serr == nil && score > 0 {
				weeklyXP = score
			}
			currentUser = &models.LeaderboardEntry{
				Rank:          int(rank),
				UserID:        userID,
				DisplayName:   "You",
				WeeklyXP:      weeklyXP,
				LeagueTier:    gam.LeagueTier,
				CurrentStreak: gam.CurrentStreak,
				IsCurrentUser: true,
			}
		}
	}

	return &models.LeaderboardResponse{
		Period:      weekPeriod(time.Now()),
		Entries:     entries,
		CurrentUser: currentUser,
	}, nil
}

// weekPeriod formats the Monday-to-Sunday range of the current race.
func weekPeriod(t time.Time) string {
	now := t.UTC()
	weekStart := now.AddDate(0, 0, -int(now.Weekday()-time.Monday+7)%7)
	weekEnd := weekStart.AddDate(0, 0, 6)
	return fmt.Sprintf("%s to %s", weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"))
}

// ── Background Workers ──────────────────────────────────

// StartWeeklyResetWorker closes out the leaderboard race shortly after each
// ISO week rolls over: gems for last week's podium, league moves, weekly XP
// reset. The Redis board for the new week starts empty on its own.
func (s *Service) StartWeeklyResetWorker(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	log.Println("[gamification] Weekly reset worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[gamification] Weekly reset worker shutting down")
			return
		case t := <-ticker.C:
			utc := t.UTC()
			if utc.Weekday() == time.Monday && utc.Hour() == 0 {
				log.Println("[gamification] Running weekly leaderboard reset")
				s.runWeeklyReset(ctx)
			}
		}
	}
}

func (s *Service) runWeeklyReset(ctx context.Context) {
	lastWeek := weekKey(time.Now().AddDate(0, 0, -7))

	// 1. Podium gems per league from the finished race
	if s.boards != nil {
		podiumGems := []int{50, 30, 20}
		for _, tier := range leagueTiers {
			top, err := s.boards.Top(ctx, tier, lastWeek, 3)
			if err != nil {
				log.Printf("[gamification] weekly reset: read %s board: %v", tier, err)
				continue
			}
			for i, entry := range top {
				if i < len(podiumGems) {
					s.store.AwardGems(entry.UserID, podiumGems[i])
					log.Printf("[gamification] weekly reset: awarded %d gems to user %d (%s rank %d)",
						podiumGems[i], entry.UserID, tier, i+1)
				}
			}
		}
	}

	// 2. League moves based on the finished week's XP
	changes, err := s.store.ProcessLeagueChanges()
	if err != nil {
		log.Printf("[gamification] weekly reset: failed to process leagues: %v", err)
	} else {
		for _, c := range changes {
			log.Printf("[gamification] league change: user %d %s → %s", c.UserID, c.OldTier, c.NewTier)
			if isPromotion(c.OldTier, c.NewTier) {
				s.store.AwardGems(c.UserID, 25)
				switch c.NewTier {
				case models.LeagueSilver:
					s.store.AwardAchievement(c.UserID, "league_silver")
				case models.LeagueGold:
					s.store.AwardAchievement(c.UserID, "league_gold")
				case models.LeagueDiamond:
					s.store.AwardAchievement(c.UserID, "league_diamond")
				case models.LeagueObsidian:
					s.store.AwardAchievement(c.UserID, "league_obsidian")
				}
			}
		}
	}

	// 3. Zero the weekly XP for the new race
	if err := s.store.ResetWeeklyXP(); err != nil {
		log.Printf("[gamification] weekly reset: failed to reset XP: %v", err)
	}
}

func isPromotion(old, new string) bool {
	order := map[string]int{
		models.LeagueBronze:   0,
		models.LeagueSilver:   1,
		models.LeagueGold:     2,
		models.LeagueDiamond:  3,
		models.LeagueObsidian: 4,
	}
	return order[new] > order[old]
}

// StartDailyStreakWorker auto-activates a streak freeze at midnight UTC for
// users who missed a day but own one.
func (s *Service) StartDailyStreakWorker(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	log.Println("[gamification] Daily streak worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[gamification] Daily streak worker shutting down")
			return
		case t := <-ticker.C:
			if t.UTC().Hour() == 0 {
				log.Println("[gamification] Running daily streak check")
				s.runDailyStreakCheck()
			}
		}
	}
}

func (s *Service) runDailyStreakCheck() {
	users, err := s.store.GetAllForStreakCheck()
	if err != nil {
		log.Printf("[gamification] streak check: failed to get users: %v", err)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)

	for _, g := range users {
		if g.LastActiveDate == nil {
			continue
		}

		lastActive := g.LastActiveDate.Truncate(24 * time.Hour)

		// Last active before yesterday with a freeze on hand — spend it
		if lastActive.Before(yesterday) && g.StreakFreezesOwned > 0 && !g.StreakFreezeActive {
			if err := s.store.UpdateStreakData(g.UserID, g.CurrentStreak, g.LongestStreak, true, g.StreakFreezesOwned); err != nil {
				log.Printf("[gamification] streak check: update user %d: %v", g.UserID, err)
				continue
			}
			log.Printf("[gamification] streak check: auto-activated freeze for user %d", g.UserID)
		}
	}
}
