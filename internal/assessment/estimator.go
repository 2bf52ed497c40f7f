package assessment

import (
	"errors"
	"math"
)

// ErrNumericInstability signals a degenerate likelihood update. The estimate
// still moves by a bounded default step; callers should log a warning and
// let the session continue.
var ErrNumericInstability = errors.New("numeric instability in ability update")

// EstimatorConfig holds the tuning constants for the ability estimator.
// Ability and difficulty share a 0-10 scale.
type EstimatorConfig struct {
	Scale           float64 // discrimination scale of the logistic curve
	MinEstimate     float64
	MaxEstimate     float64
	DefaultEstimate float64
	InitialStdError float64
	MinStdError     float64
	DefaultStep     float64 // fallback step when the update degenerates
	MinInformation  float64 // below this the likelihood step is degenerate
}

// DefaultEstimatorConfig returns the production tuning.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Scale:           1.25,
		MinEstimate:     0,
		MaxEstimate:     10,
		DefaultEstimate: 5.0,
		InitialStdError: 2.0,
		MinStdError:     0.3,
		DefaultStep:     0.5,
		MinInformation:  1e-6,
	}
}

// Estimator maintains one-parameter logistic ability estimates. It is
// stateless; session state lives in the session document.
type Estimator struct {
	cfg EstimatorConfig
}

func NewEstimator(cfg EstimatorConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

func (e *Estimator) Config() EstimatorConfig {
	return e.cfg
}

// InitialEstimate returns the starting ability for a new session. A
// self-reported grade level seeds the position on the scale; without one
// the midpoint default applies.
func (e *Estimator) InitialEstimate(gradeLevel *int) float64 {
	if gradeLevel == nil || *gradeLevel <= 0 {
		return e.cfg.DefaultEstimate
	}
	est := float64(*gradeLevel) * e.cfg.MaxEstimate / 12.0
	if est < e.cfg.MinEstimate+1.0 {
		est = e.cfg.MinEstimate + 1.0
	}
	if est > e.cfg.MaxEstimate-1.0 {
		est = e.cfg.MaxEstimate - 1.0
	}
	return est
}

// ExpectedAccuracy returns the probability that a learner at the given
// ability answers a question of the given difficulty correctly.
// Uses a logistic curve centered on the difficulty.
func (e *Estimator) ExpectedAccuracy(ability, difficulty float64) float64 {
	x := (ability - difficulty) / e.cfg.Scale
	return 1.0 / (1.0 + math.Exp(-x))
}

// ItemInformation returns the Fisher information a response at this
// difficulty contributes to an estimate at the given ability.
func (e *Estimator) ItemInformation(ability, difficulty float64) float64 {
	p := e.ExpectedAccuracy(ability, difficulty)
	return p * (1.0 - p) / (e.cfg.Scale * e.cfg.Scale)
}

// Update folds one (difficulty, correctness) observation into the estimate.
// The step is a Newton move on the response log-likelihood damped by the
// accumulated information, so steps shrink as responses accrue. The prior
// information is recovered from the incoming standard error; the returned
// standard error is 1/sqrt(total information), clamped at the configured
// minimum and never above the incoming value.
func (e *Estimator) Update(estimate, stdError, difficulty float64, correct bool) (float64, float64, error) {
	result := 0.0
	if correct {
		result = 1.0
	}

	p := e.ExpectedAccuracy(estimate, difficulty)
	residual := result - p
	itemInfo := p * (1.0 - p) / (e.cfg.Scale * e.cfg.Scale)

	if itemInfo < e.cfg.MinInformation || stdError <= 0 || !isFinite(estimate) || !isFinite(stdError) {
		step := e.cfg.DefaultStep
		if residual < 0 {
			step = -step
		}
		newEstimate := e.clampEstimate(estimate + step)
		newSE := stdError
		if !(newSE > 0) || !isFinite(newSE) {
			newSE = e.cfg.InitialStdError
		}
		return newEstimate, newSE, ErrNumericInstability
	}

	prior := 1.0 / (stdError * stdError)
	total := prior + itemInfo

	newEstimate := e.clampEstimate(estimate + residual/(e.cfg.Scale*total))

	newSE := 1.0 / math.Sqrt(total)
	if newSE < e.cfg.MinStdError {
		newSE = e.cfg.MinStdError
	}
	if newSE > stdError {
		newSE = stdError
	}

	return newEstimate, newSE, nil
}

func (e *Estimator) clampEstimate(v float64) float64 {
	if v < e.cfg.MinEstimate {
		return e.cfg.MinEstimate
	}
	if v > e.cfg.MaxEstimate {
		return e.cfg.MaxEstimate
	}
	return v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
