// Package dynamics holds the arithmetic price walk used by the execution
// generators: drift, volatility, and the permanent/temporary market impact
// transaction functions.
package dynamics

import (
	"fmt"
	"math"
)

// TradingDaysPerYear converts annualised inputs to per-epoch (daily) settings.
const TradingDaysPerYear = 250.0

// ArithmeticPriceDynamicsSettings describes the unaffected price walk
//
//	dS = α dt + σ dW
//
// in price units per epoch (one trading day).
type ArithmeticPriceDynamicsSettings struct {
	// Drift is α, the expected price change per epoch.
	Drift float64
	// Volatility is σ, the price volatility per square-root epoch.
	Volatility float64
	// SerialCorrelation is the first-order autocorrelation of price increments.
	SerialCorrelation float64
}

// NewArithmeticPriceDynamicsSettings validates and builds the settings.
func NewArithmeticPriceDynamicsSettings(drift, volatility, serialCorrelation float64) (ArithmeticPriceDynamicsSettings, error) {
	s := ArithmeticPriceDynamicsSettings{
		Drift:             drift,
		Volatility:        volatility,
		SerialCorrelation: serialCorrelation,
	}
	if err := s.Validate(); err != nil {
		return ArithmeticPriceDynamicsSettings{}, err
	}
	return s, nil
}

// FromAnnualReturnsSettings converts annualised return and volatility (as
// decimals) quoted on a reference price into per-epoch arithmetic settings.
func FromAnnualReturnsSettings(annualReturns, annualVolatility, serialCorrelation, price float64) (ArithmeticPriceDynamicsSettings, error) {
	if !isFinite(annualReturns) || !isFinite(annualVolatility) {
		return ArithmeticPriceDynamicsSettings{}, fmt.Errorf("FromAnnualReturnsSettings: annual returns/volatility must be finite")
	}
	if price <= 0 || !isFinite(price) {
		return ArithmeticPriceDynamicsSettings{}, fmt.Errorf("FromAnnualReturnsSettings: price must be positive")
	}

	return NewArithmeticPriceDynamicsSettings(
		annualReturns*price/TradingDaysPerYear,
		annualVolatility*price/math.Sqrt(TradingDaysPerYear),
		serialCorrelation,
	)
}

// EpochVolatility returns σ.
func (s ArithmeticPriceDynamicsSettings) EpochVolatility() float64 {
	return s.Volatility
}

// Validate checks the settings for finiteness and range.
func (s ArithmeticPriceDynamicsSettings) Validate() error {
	if !isFinite(s.Drift) {
		return fmt.Errorf("ArithmeticPriceDynamicsSettings: drift must be finite")
	}
	if !isFinite(s.Volatility) || s.Volatility < 0 {
		return fmt.Errorf("ArithmeticPriceDynamicsSettings: volatility must be non-negative")
	}
	if !isFinite(s.SerialCorrelation) || s.SerialCorrelation <= -1 || s.SerialCorrelation >= 1 {
		return fmt.Errorf("ArithmeticPriceDynamicsSettings: serial correlation must lie in (-1, 1)")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
