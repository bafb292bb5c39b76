package adaptive

import (
	"fmt"
	"math"

	"github.com/meenmo/quantlib/execution/dynamics"
)

// CoordinatedVariation ties volatility and liquidity to the market state:
//
//	σ(s) = σ̄ e^{s/2},  η(s) = η̄ e^{s}
//
// so the market urgency σ²/η does not depend on s.
type CoordinatedVariation struct {
	ReferenceVolatility float64
	ReferenceLiquidity  float64
}

// NewCoordinatedVariation validates σ̄ ≥ 0 and η̄ > 0.
func NewCoordinatedVariation(referenceVolatility, referenceLiquidity float64) (CoordinatedVariation, error) {
	cv := CoordinatedVariation{ReferenceVolatility: referenceVolatility, ReferenceLiquidity: referenceLiquidity}
	if !(referenceVolatility >= 0) || math.IsInf(referenceVolatility, 0) {
		return CoordinatedVariation{}, fmt.Errorf("NewCoordinatedVariation: reference volatility must be non-negative, got %v", referenceVolatility)
	}
	if !(referenceLiquidity > 0) || math.IsInf(referenceLiquidity, 0) {
		return CoordinatedVariation{}, fmt.Errorf("NewCoordinatedVariation: reference liquidity must be positive, got %v", referenceLiquidity)
	}
	return cv, nil
}

// Volatility returns σ(s).
func (c CoordinatedVariation) Volatility(s float64) float64 {
	return c.ReferenceVolatility * math.Exp(0.5*s)
}

// Liquidity returns η(s), the temporary impact slope in state s.
func (c CoordinatedVariation) Liquidity(s float64) float64 {
	return c.ReferenceLiquidity * math.Exp(s)
}

// ParametersAt returns the driftless linear-impact walk in state s.
func (c CoordinatedVariation) ParametersAt(s float64) dynamics.PriceEvolutionParameters {
	return dynamics.PriceEvolutionParameters{
		Dynamics:  dynamics.ArithmeticPriceDynamicsSettings{Volatility: c.Volatility(s)},
		Temporary: dynamics.SlopeOnly(c.Liquidity(s)),
	}
}

// ReferenceParameters returns the walk at s = 0.
func (c CoordinatedVariation) ReferenceParameters() dynamics.PriceEvolutionParameters {
	return c.ParametersAt(0)
}

// TrajectoryDeterminant holds the scales that make the adaptive problem
// non-dimensional.
type TrajectoryDeterminant struct {
	ExecutionSize  float64
	RelaxationTime float64
	// CostScale is η̄X²/θ = η̄(X/θ)²θ, the impact cost of trading at
	// TradeRateScale for one relaxation time. It carries cost units; η̄Xθ
	// does not.
	CostScale float64
	// TradeRateScale is X/θ.
	TradeRateScale float64
	// MeanMarketUrgency is κ̄ = σ̄√(λ/η̄).
	MeanMarketUrgency float64
	// NonDimensionalUrgency is μ = κ̄θ.
	NonDimensionalUrgency float64
}

func newTrajectoryDeterminant(size, relaxationTime, riskAversion float64, cv CoordinatedVariation) TrajectoryDeterminant {
	urgency := cv.ReferenceVolatility * math.Sqrt(riskAversion/cv.ReferenceLiquidity)
	return TrajectoryDeterminant{
		ExecutionSize:         size,
		RelaxationTime:        relaxationTime,
		CostScale:             cv.ReferenceLiquidity * size * size / relaxationTime,
		TradeRateScale:        size / relaxationTime,
		MeanMarketUrgency:     urgency,
		NonDimensionalUrgency: urgency * relaxationTime,
	}
}
