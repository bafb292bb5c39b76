package dynamics

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// PriceEvolutionParameters is the full arithmetic price walk seen by an
// executing trader:
//
//	S_k = S_{k-1} + α τ_k + σ τ_k^½ ξ_k − τ_k g(v_k)        (unaffected + permanent)
//	S̃_k = S_{k-1} − h(v_k) + σ̃(v_k) τ_k^-½ ζ_k              (execution price)
//
// where g is Permanent, h is Temporary and σ̃(v) = Offset + Slope·|v| is the
// trading-enhanced volatility of the execution price.
type PriceEvolutionParameters struct {
	Dynamics            ArithmeticPriceDynamicsSettings
	Permanent           ParticipationRateLinear
	Temporary           ParticipationRateLinear
	TemporaryVolatility ParticipationRateLinear
}

// LinearExpectation builds the classical Almgren-Chriss walk with linear
// permanent and temporary impact and no trading-enhanced noise.
func LinearExpectation(dynamics ArithmeticPriceDynamicsSettings, permanent, temporary ParticipationRateLinear) (PriceEvolutionParameters, error) {
	p := PriceEvolutionParameters{
		Dynamics:  dynamics,
		Permanent: permanent,
		Temporary: temporary,
	}
	if err := p.Validate(); err != nil {
		return PriceEvolutionParameters{}, err
	}
	return p, nil
}

// TradingEnhanced builds the Almgren (2003) walk: driftless price with
// volatility sigma, temporary impact expectation and a temporary impact
// volatility that may grow with the trade rate.
func TradingEnhanced(sigma float64, temporaryExpectation, temporaryVolatility ParticipationRateLinear) (PriceEvolutionParameters, error) {
	p := PriceEvolutionParameters{
		Dynamics:            ArithmeticPriceDynamicsSettings{Volatility: sigma},
		Temporary:           temporaryExpectation,
		TemporaryVolatility: temporaryVolatility,
	}
	if err := p.Validate(); err != nil {
		return PriceEvolutionParameters{}, err
	}
	return p, nil
}

// Validate reports every invalid field at once.
func (p PriceEvolutionParameters) Validate() error {
	var err error
	err = multierr.Append(err, p.Dynamics.Validate())
	err = multierr.Append(err, p.Permanent.validate("permanent impact"))
	err = multierr.Append(err, p.Temporary.validate("temporary impact"))
	err = multierr.Append(err, p.TemporaryVolatility.validate("temporary volatility"))
	if err != nil {
		return fmt.Errorf("PriceEvolutionParameters: %w", err)
	}
	return nil
}

// ExecutionVolatility returns σ̃(v), the trading-enhanced execution price
// volatility at trade rate v.
func (p PriceEvolutionParameters) ExecutionVolatility(rate float64) float64 {
	if p.TemporaryVolatility.IsZero() {
		return 0
	}
	return p.TemporaryVolatility.Offset + p.TemporaryVolatility.Slope*math.Abs(rate)
}

// ExecutionVolatilityDerivative returns dσ̃/dv.
func (p PriceEvolutionParameters) ExecutionVolatilityDerivative(rate float64) float64 {
	return p.TemporaryVolatility.Slope * sign(rate)
}

// HasTradingEnhancedRisk reports whether execution prices carry extra noise.
func (p PriceEvolutionParameters) HasTradingEnhancedRisk() bool {
	return !p.TemporaryVolatility.IsZero()
}

// ErrInsufficientHistory is returned when a price history is too short for
// the requested estimation window.
var ErrInsufficientHistory = errors.New("insufficient price history")
