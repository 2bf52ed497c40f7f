package assessment

import (
	"errors"
	"math"
	"testing"
)

func TestInitialEstimate(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())

	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name  string
		grade *int
		want  float64
	}{
		{"no grade uses default", nil, 5.0},
		{"zero grade uses default", intPtr(0), 5.0},
		{"negative grade uses default", intPtr(-3), 5.0},
		{"grade 6 maps to midpoint", intPtr(6), 5.0},
		{"grade 3 maps proportionally", intPtr(3), 2.5},
		{"grade 1 clamps above floor", intPtr(1), 1.0},
		{"grade 12 clamps below ceiling", intPtr(12), 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.InitialEstimate(tt.grade)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("InitialEstimate(%v) = %v, want %v", tt.grade, got, tt.want)
			}
		})
	}
}

func TestExpectedAccuracy(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())

	// A learner matched to the question difficulty is a coin flip.
	if got := e.ExpectedAccuracy(5.0, 5.0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("ExpectedAccuracy(5.0, 5.0) = %v, want 0.5", got)
	}

	// Higher ability against the same difficulty means higher accuracy.
	prev := 0.0
	for _, ability := range []float64{1.0, 3.0, 5.0, 7.0, 9.0} {
		got := e.ExpectedAccuracy(ability, 5.0)
		if got <= prev {
			t.Errorf("ExpectedAccuracy(%v, 5.0) = %v, not increasing past %v", ability, got, prev)
		}
		if got <= 0 || got >= 1 {
			t.Errorf("ExpectedAccuracy(%v, 5.0) = %v, want within (0, 1)", ability, got)
		}
		prev = got
	}
}

func TestItemInformationPeaksAtMatchedDifficulty(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())

	matched := e.ItemInformation(5.0, 5.0)
	for _, difficulty := range []float64{1.0, 3.0, 7.0, 9.0} {
		if got := e.ItemInformation(5.0, difficulty); got >= matched {
			t.Errorf("ItemInformation(5.0, %v) = %v, want below matched value %v", difficulty, got, matched)
		}
	}
}

func TestUpdateMovesEstimateTowardEvidence(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())

	tests := []struct {
		name       string
		estimate   float64
		stdError   float64
		difficulty float64
		correct    bool
		wantRise   bool
	}{
		{"correct at matched difficulty raises", 5.0, 2.0, 5.0, true, true},
		{"incorrect at matched difficulty lowers", 5.0, 2.0, 5.0, false, false},
		{"correct on hard question raises", 3.0, 1.5, 6.0, true, true},
		{"incorrect on easy question lowers", 7.0, 1.5, 4.0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newEst, newSE, err := e.Update(tt.estimate, tt.stdError, tt.difficulty, tt.correct)
			if err != nil {
				t.Fatalf("Update(%v, %v, %v, %v) error: %v", tt.estimate, tt.stdError, tt.difficulty, tt.correct, err)
			}
			if tt.wantRise && newEst <= tt.estimate {
				t.Errorf("Update estimate = %v, want above %v", newEst, tt.estimate)
			}
			if !tt.wantRise && newEst >= tt.estimate {
				t.Errorf("Update estimate = %v, want below %v", newEst, tt.estimate)
			}
			if newSE > tt.stdError {
				t.Errorf("Update stdError = %v, want at most %v", newSE, tt.stdError)
			}
		})
	}
}

// Walks the canonical two-answer sequence: a correct answer at the current
// estimate raises it and tightens the error, then a miss on a harder
// question pulls the estimate back down.
func TestUpdateSequence(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())

	est, se := 5.0, 2.0

	est1, se1, err := e.Update(est, se, 5.0, true)
	if err != nil {
		t.Fatalf("first Update error: %v", err)
	}
	if est1 <= est {
		t.Errorf("estimate after correct answer = %v, want above %v", est1, est)
	}
	if se1 >= se {
		t.Errorf("stdError after correct answer = %v, want below %v", se1, se)
	}

	est2, se2, err := e.Update(est1, se1, 7.0, false)
	if err != nil {
		t.Fatalf("second Update error: %v", err)
	}
	if est2 >= est1 {
		t.Errorf("estimate after incorrect answer = %v, want below %v", est2, est1)
	}
	if se2 >= se1 {
		t.Errorf("stdError after incorrect answer = %v, want below %v", se2, se1)
	}
}

func TestStandardErrorNeverIncreases(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())
	cfg := e.Config()

	est, se := 5.0, cfg.InitialStdError
	answers := []struct {
		difficulty float64
		correct    bool
	}{
		{5.0, true}, {6.1, false}, {5.5, true}, {4.2, true},
		{6.8, false}, {5.9, true}, {5.0, false}, {6.3, true},
		{5.4, false}, {5.7, true}, {4.9, true}, {6.0, false},
	}

	for i, a := range answers {
		newEst, newSE, err := e.Update(est, se, a.difficulty, a.correct)
		if err != nil {
			t.Fatalf("Update %d error: %v", i, err)
		}
		if newSE > se {
			t.Errorf("Update %d: stdError rose from %v to %v", i, se, newSE)
		}
		if newSE < cfg.MinStdError {
			t.Errorf("Update %d: stdError %v fell below floor %v", i, newSE, cfg.MinStdError)
		}
		est, se = newEst, newSE
	}

	if se >= cfg.InitialStdError {
		t.Errorf("stdError after %d answers = %v, want below initial %v", len(answers), se, cfg.InitialStdError)
	}
}

func TestStandardErrorApproachesFloor(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())
	cfg := e.Config()

	est, se := 5.0, cfg.InitialStdError
	for i := 0; i < 500; i++ {
		var err error
		est, se, err = e.Update(est, se, est, i%2 == 0)
		if err != nil {
			t.Fatalf("Update %d error: %v", i, err)
		}
	}

	if math.Abs(se-cfg.MinStdError) > 1e-6 {
		t.Errorf("stdError after long sequence = %v, want floor %v", se, cfg.MinStdError)
	}
}

func TestUpdateClampsToScale(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())
	cfg := e.Config()

	est, se := cfg.MaxEstimate, cfg.InitialStdError
	for i := 0; i < 20; i++ {
		var err error
		est, se, err = e.Update(est, se, cfg.MaxEstimate-0.5, true)
		if err != nil {
			t.Fatalf("Update %d error: %v", i, err)
		}
		if est > cfg.MaxEstimate {
			t.Fatalf("estimate %v exceeded scale maximum %v", est, cfg.MaxEstimate)
		}
	}

	est, se = cfg.MinEstimate, cfg.InitialStdError
	for i := 0; i < 20; i++ {
		var err error
		est, se, err = e.Update(est, se, cfg.MinEstimate+0.5, false)
		if err != nil {
			t.Fatalf("Update %d error: %v", i, err)
		}
		if est < cfg.MinEstimate {
			t.Fatalf("estimate %v fell below scale minimum %v", est, cfg.MinEstimate)
		}
	}
}

func TestUpdateDegenerateFallsBackToBoundedStep(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig())
	cfg := e.Config()

	tests := []struct {
		name       string
		estimate   float64
		stdError   float64
		difficulty float64
		correct    bool
		wantEst    float64
		wantSE     float64
	}{
		{"zero stdError steps up on correct", 5.0, 0, 5.0, true, 5.0 + cfg.DefaultStep, cfg.InitialStdError},
		{"zero stdError steps down on incorrect", 5.0, 0, 5.0, false, 5.0 - cfg.DefaultStep, cfg.InitialStdError},
		{"negative stdError recovers", 5.0, -1.0, 5.0, true, 5.0 + cfg.DefaultStep, cfg.InitialStdError},
		{"vanishing information steps by default", 5.0, 2.0, 1e9, true, 5.0 + cfg.DefaultStep, 2.0},
		{"step clamps at scale edge", 9.8, 0, 9.8, true, cfg.MaxEstimate, cfg.InitialStdError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newEst, newSE, err := e.Update(tt.estimate, tt.stdError, tt.difficulty, tt.correct)
			if !errors.Is(err, ErrNumericInstability) {
				t.Fatalf("Update error = %v, want ErrNumericInstability", err)
			}
			if math.Abs(newEst-tt.wantEst) > 1e-9 {
				t.Errorf("Update estimate = %v, want %v", newEst, tt.wantEst)
			}
			if math.Abs(newSE-tt.wantSE) > 1e-9 {
				t.Errorf("Update stdError = %v, want %v", newSE, tt.wantSE)
			}
		})
	}
}
