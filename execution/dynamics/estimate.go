package dynamics

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// EstimateFromCloses estimates per-epoch arithmetic drift and volatility from
// a series of daily closing prices, using the trailing window of price
// changes.
func EstimateFromCloses(closes []float64, window int) (ArithmeticPriceDynamicsSettings, error) {
	if window < 2 {
		return ArithmeticPriceDynamicsSettings{}, fmt.Errorf("EstimateFromCloses: window must be at least 2, got %d", window)
	}
	if len(closes) < window+1 {
		return ArithmeticPriceDynamicsSettings{}, fmt.Errorf("EstimateFromCloses: need %d closes, got %d: %w", window+1, len(closes), ErrInsufficientHistory)
	}

	changes := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if !isFinite(closes[i]) || !isFinite(closes[i-1]) {
			return ArithmeticPriceDynamicsSettings{}, fmt.Errorf("EstimateFromCloses: non-finite close at index %d", i)
		}
		changes[i-1] = closes[i] - closes[i-1]
	}

	drift := talib.Sma(changes, window)
	vol := talib.StdDev(changes, window, 1)
	last := len(changes) - 1

	return NewArithmeticPriceDynamicsSettings(drift[last], vol[last], 0)
}
