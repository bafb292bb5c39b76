// Package risk holds the objective utilities that trade expected execution
// cost against its variance.
package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ObjectiveUtility scores a cost distribution summarised by its mean and
// variance. Lower is better.
type ObjectiveUtility interface {
	Utility(mean, variance float64) float64
	// Sensitivity returns ∂U/∂mean and ∂U/∂variance at (mean, variance).
	Sensitivity(mean, variance float64) (dMean, dVariance float64)
}

// MeanVarianceObjectiveUtility is U = E + λV.
type MeanVarianceObjectiveUtility struct {
	RiskAversion float64
}

// NewMeanVariance validates λ ≥ 0.
func NewMeanVariance(riskAversion float64) (MeanVarianceObjectiveUtility, error) {
	if riskAversion < 0 || math.IsNaN(riskAversion) || math.IsInf(riskAversion, 0) {
		return MeanVarianceObjectiveUtility{}, fmt.Errorf("NewMeanVariance: risk aversion must be non-negative and finite, got %v", riskAversion)
	}
	return MeanVarianceObjectiveUtility{RiskAversion: riskAversion}, nil
}

func (m MeanVarianceObjectiveUtility) Utility(mean, variance float64) float64 {
	return mean + m.RiskAversion*variance
}

func (m MeanVarianceObjectiveUtility) Sensitivity(float64, float64) (float64, float64) {
	return 1, m.RiskAversion
}

// ValueAtRiskObjectiveUtility is U = E + z_p·√V, the cost not exceeded with
// probability p under a normal cost distribution.
type ValueAtRiskObjectiveUtility struct {
	Confidence float64
}

// NewValueAtRisk validates 0.5 ≤ p < 1.
func NewValueAtRisk(confidence float64) (ValueAtRiskObjectiveUtility, error) {
	if !(confidence >= 0.5 && confidence < 1) {
		return ValueAtRiskObjectiveUtility{}, fmt.Errorf("NewValueAtRisk: confidence must lie in [0.5, 1), got %v", confidence)
	}
	return ValueAtRiskObjectiveUtility{Confidence: confidence}, nil
}

// Multiplier returns z_p, the standard normal quantile at Confidence.
func (v ValueAtRiskObjectiveUtility) Multiplier() float64 {
	return distuv.UnitNormal.Quantile(v.Confidence)
}

func (v ValueAtRiskObjectiveUtility) Utility(mean, variance float64) float64 {
	return mean + v.Multiplier()*math.Sqrt(math.Max(variance, 0))
}

func (v ValueAtRiskObjectiveUtility) Sensitivity(_ float64, variance float64) (float64, float64) {
	if variance <= 0 {
		return 1, 0
	}
	return 1, 0.5 * v.Multiplier() / math.Sqrt(variance)
}
