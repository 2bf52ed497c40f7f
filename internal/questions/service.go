package questions

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adaptlearn/backend/internal/generator"
	"github.com/adaptlearn/backend/internal/models"
)

const exportVersion = 1

// Service owns the question bank workflows: authoring, the LLM generation
// pipeline, review, import/export, and the background refill worker.
type Service struct {
	store     *Store
	generator *generator.Generator
	validator *generator.Validator

	validationEnabled  bool
	adversarialEnabled bool
	autoRefillEnabled  bool
	refillThreshold    int
	refillBatch        int
	sweepInterval      time.Duration
}

// NewService reads pipeline toggles from the environment. MOCK_GENERATOR=true
// forces both scoring stages off.
func NewService(store *Store) *Service {
	validationEnabled := os.Getenv("VALIDATION_ENABLED") != "false"
	adversarialEnabled := os.Getenv("ADVERSARIAL_ENABLED") != "false"
	if os.Getenv("MOCK_GENERATOR") == "true" {
		validationEnabled = false
		adversarialEnabled = false
	}

	svc := &Service{
		store:              store,
		generator:          generator.NewGenerator(),
		validator:          generator.NewValidator(),
		validationEnabled:  validationEnabled,
		adversarialEnabled: adversarialEnabled,
		autoRefillEnabled:  os.Getenv("AUTO_REFILL_ENABLED") != "false",
		refillThreshold:    envInt("BANK_REFILL_THRESHOLD", 5),
		refillBatch:        envInt("BANK_REFILL_BATCH", 6),
		sweepInterval:      time.Duration(envInt("BANK_SWEEP_INTERVAL_MINUTES", 10)) * time.Minute,
	}

	log.Printf("Questions service: validation=%v adversarial=%v autoRefill=%v refillThreshold=%d",
		svc.validationEnabled, svc.adversarialEnabled, svc.autoRefillEnabled, svc.refillThreshold)

	return svc
}

// ── Generation Pipeline ─────────────────────────────────

// GenerateBatch runs the authoring pipeline for one subject/band/difficulty
// slot: generate, drop duplicate stems, verify answers, adversarial-check,
// score, store. Rejected questions are counted but never stored.
func (s *Service) GenerateBatch(ctx context.Context, subject models.Subject, band models.GradeBand, difficulty float64, count int) (*models.GenerateQuestionsResponse, error) {
	startTime := time.Now()

	// ── Stage 1: Generation ──────────────────────────────────
	genBatch, llmResp, err := s.generator.GenerateQuestions(ctx, subject, band, difficulty, count)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	modelUsed := ""
	if llmResp != nil {
		modelUsed = llmResp.Model
	}
	log.Printf("Stage 1 complete: generated %d questions for %s/%s @ %.1f",
		len(genBatch.Questions), subject, band, difficulty)

	// Drop stems the bank already has before paying for scoring calls.
	stems := make([]string, len(genBatch.Questions))
	for i, q := range genBatch.Questions {
		stems[i] = q.Stem
	}
	existing, err := s.store.CheckExisting(ctx, subject, stems)
	if err != nil {
		log.Printf("WARN: duplicate stem check failed: %v — keeping all questions", err)
		existing = map[string]bool{}
	}
	if len(existing) > 0 {
		var kept []generator.GeneratedQuestion
		for _, q := range genBatch.Questions {
			if existing[q.Stem] {
				continue
			}
			kept = append(kept, q)
		}
		log.Printf("Dropped %d duplicate stems", len(genBatch.Questions)-len(kept))
		genBatch.Questions = kept
	}

	if len(genBatch.Questions) == 0 {
		return &models.GenerateQuestionsResponse{
			Requested: count,
			ModelUsed: modelUsed,
			Message:   "all generated questions duplicated existing bank content",
		}, nil
	}

	// ── Stage 2: Self-Verification ───────────────────────────
	var batchValidation *generator.BatchValidationResult
	if s.validationEnabled && s.validator != nil {
		batchValidation, err = s.validator.ValidateBatch(ctx, genBatch)
		if err != nil {
			log.Printf("WARN: Stage 2 validation failed: %v — skipping validation", err)
			batchValidation = nil
		} else {
			log.Printf("Stage 2 complete: passed=%d flagged=%d rejected=%d",
				batchValidation.PassedCount, batchValidation.FlaggedCount, batchValidation.RejectedCount)
		}
	}

	// ── Stage 3: Adversarial Check ───────────────────────────
	// Bottom-quartile items skip the adversarial pass.
	var adversarialResults []generator.AdversarialResult
	if s.adversarialEnabled && s.validator != nil && difficulty >= 2.5 {
		advResults, err := s.validator.AdversarialCheckBatch(ctx, genBatch)
		if err != nil {
			log.Printf("WARN: Stage 3 adversarial check failed: %v — skipping", err)
		} else {
			adversarialResults = advResults
			log.Printf("Stage 3 complete: checked %d questions", len(advResults))
		}
	}

	// ── Score, classify, store ───────────────────────────────
	items := make([]GeneratedItem, 0, len(genBatch.Questions))
	rejected := 0

	for i, q := range genBatch.Questions {
		var vr *generator.ValidationResult
		if batchValidation != nil && i < len(batchValidation.Results) {
			r := batchValidation.Results[i]
			vr = &r
		}
		var ar *generator.AdversarialResult
		if i < len(adversarialResults) {
			r := adversarialResults[i]
			ar = &r
		}

		structural := generator.ComputeStructuralScore(q)
		qualityScore := generator.ComputeQualityScore(vr, ar, structural)
		status := generator.ClassifyQuality(qualityScore)

		if vr != nil {
			if !vr.Matches {
				status = models.ReviewRejected
			} else if vr.Confidence != "high" && status == models.ReviewUnreviewed {
				status = models.ReviewFlagged
			}
		}
		if ar != nil && status != models.ReviewRejected {
			switch generator.DetermineAdversarialScore(ar.Challenges) {
			case "ambiguous":
				status = models.ReviewRejected
			case "minor_concern":
				if status == models.ReviewUnreviewed {
					status = models.ReviewFlagged
				}
			}
		}

		if status == models.ReviewRejected {
			rejected++
			continue
		}

		items = append(items, GeneratedItem{
			Question:     q,
			Difficulty:   generator.AssignDifficulty(difficulty),
			QualityScore: qualityScore,
			ReviewStatus: status,
		})
	}

	// Save on a background context so questions already paid for are not
	// lost when the HTTP client disconnects.
	stored, err := s.store.SaveGenerated(context.Background(), subject, band, items)
	if err != nil {
		return nil, fmt.Errorf("save generated batch: %w", err)
	}

	elapsed := time.Since(startTime).Milliseconds()
	log.Printf("Pipeline complete: %s/%s @ %.1f stored=%d rejected=%d elapsedMs=%d",
		subject, band, difficulty, stored, rejected, elapsed)

	return &models.GenerateQuestionsResponse{
		Requested: count,
		Stored:    stored,
		Rejected:  rejected,
		ModelUsed: modelUsed,
		Message:   fmt.Sprintf("Generated %d questions (%d stored, %d rejected)", len(genBatch.Questions), stored, rejected),
	}, nil
}

// ── Background Refill Worker ────────────────────────────

// StartGenerationWorker drains the refill queue every 30 seconds and sweeps
// bank coverage on a slower cadence. Runs until the context is cancelled.
func (s *Service) StartGenerationWorker(ctx context.Context) {
	queueTicker := time.NewTicker(30 * time.Second)
	sweepTicker := time.NewTicker(s.sweepInterval)
	defer queueTicker.Stop()
	defer sweepTicker.Stop()

	log.Println("[gen-worker] Background generation worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[gen-worker] Shutting down")
			return
		case <-queueTicker.C:
			s.processGenerationQueue(ctx)
		case <-sweepTicker.C:
			s.sweepCoverage(ctx)
		}
	}
}

func (s *Service) processGenerationQueue(ctx context.Context) {
	items, err := s.store.GetPendingGenerations(ctx, 5)
	if err != nil {
		log.Printf("[gen-queue] error fetching pending items: %v", err)
		return
	}

	for _, item := range items {
		if err := s.store.UpdateGenerationStatus(ctx, item.ID, models.GenerationRunning, nil); err != nil {
			log.Printf("[gen-queue] error marking item %d running: %v", item.ID, err)
			continue
		}

		if _, err := s.GenerateBatch(ctx, item.Subject, item.GradeBand, item.TargetDifficulty, item.QuestionsNeeded); err != nil {
			errMsg := err.Error()
			if updateErr := s.store.UpdateGenerationStatus(ctx, item.ID, models.GenerationFailed, &errMsg); updateErr != nil {
				log.Printf("[gen-queue] error marking item %d failed: %v", item.ID, updateErr)
			}
			log.Printf("[gen-queue] failed: %s/%s @ %.1f: %v", item.Subject, item.GradeBand, item.TargetDifficulty, err)
			continue
		}

		if err := s.store.UpdateGenerationStatus(ctx, item.ID, models.GenerationCompleted, nil); err != nil {
			log.Printf("[gen-queue] error marking item %d completed: %v", item.ID, err)
		}
		log.Printf("[gen-queue] completed: %s/%s @ %.1f", item.Subject, item.GradeBand, item.TargetDifficulty)
	}
}

// sweepCoverage queues refill work for every slot below the threshold,
// including slots the bank has nothing in yet.
func (s *Service) sweepCoverage(ctx context.Context) {
	if !s.autoRefillEnabled {
		return
	}

	grid, err := s.Coverage(ctx)
	if err != nil {
		log.Printf("[gen-worker] coverage sweep failed: %v", err)
		return
	}

	thin := 0
	for _, slot := range grid {
		if slot.Available >= s.refillThreshold {
			continue
		}
		target := (slot.BandLow + slot.BandHigh) / 2
		if err := s.store.UpsertGenerationQueue(ctx, slot.Subject, slot.GradeBand, target, s.refillBatch); err != nil {
			log.Printf("[gen-worker] error queueing refill for %s/%s @ %.2f: %v",
				slot.Subject, slot.GradeBand, target, err)
			continue
		}
		thin++
	}
	if thin > 0 {
		log.Printf("[gen-worker] Coverage sweep found %d slots below threshold", thin)
	}
}

// ── Bank Operations ─────────────────────────────────────

// CreateQuestion normalizes choice identifiers and stores a hand-authored
// question.
func (s *Service) CreateQuestion(ctx context.Context, req *models.CreateQuestionRequest) (*models.QuestionItem, error) {
	req.CorrectChoice = strings.ToUpper(strings.TrimSpace(req.CorrectChoice))
	for i := range req.Choices {
		req.Choices[i].ChoiceID = strings.ToUpper(strings.TrimSpace(req.Choices[i].ChoiceID))
	}
	return s.store.CreateQuestion(ctx, req)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*models.QuestionItem, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) ListQuestions(ctx context.Context, filter ListFilter, page, pageSize int) (*models.QuestionListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	return s.store.List(ctx, filter, page, pageSize)
}

func (s *Service) FlaggedQuestions(ctx context.Context, limit, offset int) ([]models.QuestionItem, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.GetFlagged(ctx, limit, offset)
}

func (s *Service) ReviewQuestion(ctx context.Context, id int64, status models.ReviewStatus) error {
	return s.store.UpdateReviewStatus(ctx, id, status)
}

// Coverage returns the full subject × grade band × difficulty-quartile grid,
// with zero rows for slots the bank has nothing in.
func (s *Service) Coverage(ctx context.Context) ([]models.BankCoverage, error) {
	rows, err := s.store.BankCoverage(ctx)
	if err != nil {
		return nil, err
	}

	available := make(map[string]int, len(rows))
	for _, c := range rows {
		available[coverageKey(c.Subject, c.GradeBand, c.BandLow)] = c.Available
	}

	grid := make([]models.BankCoverage, 0, len(models.AllSubjects)*len(models.AllGradeBands)*4)
	for _, subject := range models.AllSubjects {
		for _, band := range models.AllGradeBands {
			for bucket := 0; bucket < 4; bucket++ {
				low := float64(bucket) * 2.5
				grid = append(grid, models.BankCoverage{
					Subject:   subject,
					GradeBand: band,
					BandLow:   low,
					BandHigh:  low + 2.5,
					Available: available[coverageKey(subject, band, low)],
				})
			}
		}
	}
	return grid, nil
}

func coverageKey(subject models.Subject, band models.GradeBand, low float64) string {
	return fmt.Sprintf("%s|%s|%.1f", subject, band, low)
}

func (s *Service) Stats(ctx context.Context) (*models.BankStats, error) {
	return s.store.BankStats(ctx)
}

// ── Recalibration ───────────────────────────────────────

func (s *Service) RecalibrationCandidates(ctx context.Context, minAnswers int) ([]models.RecalibrationCandidate, error) {
	if minAnswers <= 0 {
		minAnswers = 20
	}
	return s.store.GetRecalibrationCandidates(ctx, minAnswers)
}

// ApplyDifficulty overrides a question's difficulty, typically from a
// recalibration suggestion.
func (s *Service) ApplyDifficulty(ctx context.Context, id int64, difficulty float64) error {
	return s.store.UpdateDifficulty(ctx, id, difficulty)
}

// ── Export/Import ───────────────────────────────────────

func (s *Service) Export(ctx context.Context) (*models.ExportEnvelope, error) {
	questions, err := s.store.ExportServable(ctx)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []models.ExportQuestion{}
	}
	return &models.ExportEnvelope{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Questions:  questions,
	}, nil
}

// Import loads an export envelope, skipping malformed entries and stems the
// bank already has.
func (s *Service) Import(ctx context.Context, envelope *models.ExportEnvelope) (*models.ImportResult, error) {
	if envelope.Version != exportVersion {
		return nil, fmt.Errorf("unsupported export version %d", envelope.Version)
	}

	valid := make([]models.ExportQuestion, 0, len(envelope.Questions))
	malformed := 0
	for _, q := range envelope.Questions {
		if err := validateImportQuestion(q); err != nil {
			log.Printf("WARN: skipping malformed import question: %v", err)
			malformed++
			continue
		}
		valid = append(valid, q)
	}

	result, err := s.store.ImportQuestions(ctx, valid)
	if err != nil {
		return nil, err
	}
	result.TotalInPayload = len(envelope.Questions)
	result.Skipped += malformed
	return result, nil
}

func validateImportQuestion(q models.ExportQuestion) error {
	if !models.ValidSubjects[q.Subject] {
		return fmt.Errorf("unknown subject %q", q.Subject)
	}
	if !models.ValidGradeBands[q.GradeBand] {
		return fmt.Errorf("unknown grade band %q", q.GradeBand)
	}
	if q.Difficulty < 0 || q.Difficulty > 10 {
		return fmt.Errorf("difficulty %.2f out of range", q.Difficulty)
	}
	if strings.TrimSpace(q.Stem) == "" {
		return fmt.Errorf("empty stem")
	}
	if len(q.Choices) != 4 {
		return fmt.Errorf("expected 4 choices, got %d", len(q.Choices))
	}
	validIDs := map[string]bool{"A": true, "B": true, "C": true, "D": true}
	seen := map[string]bool{}
	correctFound := false
	for _, c := range q.Choices {
		if !validIDs[c.ChoiceID] {
			return fmt.Errorf("choice ID %q is not A-D", c.ChoiceID)
		}
		if seen[c.ChoiceID] {
			return fmt.Errorf("duplicate choice ID %q", c.ChoiceID)
		}
		seen[c.ChoiceID] = true
		if strings.TrimSpace(c.ChoiceText) == "" {
			return fmt.Errorf("empty text for choice %q", c.ChoiceID)
		}
		if c.ChoiceID == q.CorrectChoice {
			correctFound = true
			if !c.IsCorrect {
				return fmt.Errorf("correct choice %q not marked correct", q.CorrectChoice)
			}
		}
	}
	if !correctFound {
		return fmt.Errorf("correct choice %q not among choices", q.CorrectChoice)
	}
	return nil
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
