package generator

import (
	"fmt"
	"math"

	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

// LinearTradingEnhancedTrajectory is the Almgren (2003) optimum when the
// execution price volatility grows linearly with the trade rate,
// σ̃(v) = β|v|. No closed form exists; the holdings are found numerically.
type LinearTradingEnhancedTrajectory struct {
	EfficientDiscreteTrajectory

	// CharacteristicTime is T* = √(η/(λσ²)), the liquidation time scale
	// without trading-enhanced risk.
	CharacteristicTime float64
	// CharacteristicSize is X* = √3·σT*²/β. Orders much smaller than X* behave
	// like Almgren-Chriss; much larger ones are dominated by execution noise.
	CharacteristicSize float64
}

// Almgren2003LinearTradingEnhanced solves the linear trading-enhanced
// problem on control.
func Almgren2003LinearTradingEnhanced(control strategy.DiscreteTrajectoryControl, params dynamics.PriceEvolutionParameters, utility risk.MeanVarianceObjectiveUtility, settings NumericalSettings) (LinearTradingEnhancedTrajectory, error) {
	if params.TemporaryVolatility.Offset != 0 || params.TemporaryVolatility.Slope <= 0 {
		return LinearTradingEnhancedTrajectory{}, fmt.Errorf("Almgren2003LinearTradingEnhanced: need σ̃(v) = β|v| with β > 0: %w", ErrUnsupportedWalk)
	}
	sigma := params.Dynamics.Volatility
	riskRate := utility.RiskAversion * sigma * sigma
	if riskRate <= 0 {
		return LinearTradingEnhancedTrajectory{}, fmt.Errorf("Almgren2003LinearTradingEnhanced: λσ² must be positive")
	}
	if params.Temporary.Slope <= 0 {
		return LinearTradingEnhancedTrajectory{}, fmt.Errorf("Almgren2003LinearTradingEnhanced: temporary impact slope must be positive")
	}

	eff, err := OptimalDiscrete(control, params, utility, settings)
	if err != nil {
		return LinearTradingEnhancedTrajectory{}, fmt.Errorf("Almgren2003LinearTradingEnhanced: %w", err)
	}

	tStar := math.Sqrt(params.Temporary.Slope / riskRate)
	return LinearTradingEnhancedTrajectory{
		EfficientDiscreteTrajectory: eff,
		CharacteristicTime:          tStar,
		CharacteristicSize:          math.Sqrt(3) * sigma * tStar * tStar / params.TemporaryVolatility.Slope,
	}, nil
}
