package generator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

// quadratureNodes is the Simpson grid used when a drift bends the profile.
const quadratureNodes = 2001

// continuousProfile is the solution of the Euler-Lagrange equation
// x'' = κ²(x − x̄) with x(0) = X, x(T) = 0, together with the path integrals
// the cost functionals need.
type continuousProfile struct {
	trajectory strategy.ContinuousTrajectory
	kappa      float64

	absRate   float64 // ∫|v| dt
	sqRate    float64 // ∫v² dt
	holdings  float64 // ∫x dt
	sqHolding float64 // ∫x² dt
}

// solveContinuous builds the profile for temporary slope eta, risk rate
// λσ² and drift α.
func solveContinuous(X, T, eta, riskRate, alpha float64) continuousProfile {
	var p continuousProfile
	p.trajectory.ExecutionTime = T

	kappa := math.Sqrt(riskRate / eta)
	if kappa*T < 1e-8 {
		curvature := alpha / (4 * eta)
		p.trajectory.Holdings = func(t float64) float64 {
			return X*(1-t/T) + curvature*t*(T-t)
		}
		p.trajectory.TradeRate = func(t float64) float64 {
			return X/T - curvature*(T-2*t)
		}
		if alpha == 0 {
			p.absRate = math.Abs(X)
			p.sqRate = X * X / T
			p.holdings = X * T / 2
			p.sqHolding = X * X * T / 3
			return p
		}
		p.integrate()
		return p
	}

	p.kappa = kappa
	kT := kappa * T
	target := 0.0
	if riskRate > 0 {
		target = alpha / (2 * riskRate)
	}
	p.trajectory.Holdings = func(t float64) float64 {
		t = clamp(t, 0, T)
		remaining := sinhRatio(kappa*(T-t), kT)
		elapsed := sinhRatio(kappa*t, kT)
		return X*remaining + target*(1-remaining-elapsed)
	}
	p.trajectory.TradeRate = func(t float64) float64 {
		t = clamp(t, 0, T)
		return kappa * ((X-target)*coshSinhRatio(kappa*(T-t), kT) + target*coshSinhRatio(kappa*t, kT))
	}

	if alpha != 0 {
		p.integrate()
		return p
	}

	coth := 1 / math.Tanh(kT)
	cosech2 := 1 / (math.Sinh(kT) * math.Sinh(kT))
	p.absRate = math.Abs(X)
	p.sqRate = X * X * kappa * (0.5*kT*cosech2 + 0.5*coth)
	p.holdings = X * math.Tanh(0.5*kT) / kappa
	p.sqHolding = X * X * (0.5*coth/kappa - 0.5*T*cosech2)
	return p
}

func (p *continuousProfile) integrate() {
	T := p.trajectory.ExecutionTime
	t := make([]float64, quadratureNodes)
	floats.Span(t, 0, T)

	x := make([]float64, len(t))
	x2 := make([]float64, len(t))
	v := make([]float64, len(t))
	v2 := make([]float64, len(t))
	for i, ti := range t {
		h := p.trajectory.Holdings(ti)
		r := p.trajectory.TradeRate(ti)
		x[i], x2[i] = h, h*h
		v[i], v2[i] = math.Abs(r), r*r
	}
	p.holdings = integrate.Simpsons(t, x)
	p.sqHolding = integrate.Simpsons(t, x2)
	p.absRate = integrate.Simpsons(t, v)
	p.sqRate = integrate.Simpsons(t, v2)
}

// ContinuousAlmgrenChriss generates the continuous-time optimum of E + λV
// with κ = √(λσ²/η):
//
//	x(t) = X sinh(κ(T−t))/sinh(κT)
//	E    = ½γX² + ε∫|v| + η∫v² − α∫x
//	V    = σ²∫x²
func ContinuousAlmgrenChriss(order strategy.OrderSpecification, params dynamics.PriceEvolutionParameters, utility risk.MeanVarianceObjectiveUtility) (EfficientContinuousTrajectory, error) {
	if err := validateContinuous(order, params); err != nil {
		return EfficientContinuousTrajectory{}, fmt.Errorf("ContinuousAlmgrenChriss: %w", err)
	}
	if params.HasTradingEnhancedRisk() {
		return EfficientContinuousTrajectory{}, fmt.Errorf("ContinuousAlmgrenChriss: trading-enhanced volatility: %w", ErrUnsupportedWalk)
	}

	X, T := order.Size, order.MaxExecutionTime
	sigma := params.Dynamics.Volatility
	eta := params.Temporary.Slope
	profile := solveContinuous(X, T, eta, utility.RiskAversion*sigma*sigma, params.Dynamics.Drift)

	mean := 0.5*params.Permanent.Slope*X*X + params.Temporary.Offset*profile.absRate + eta*profile.sqRate - params.Dynamics.Drift*profile.holdings
	variance := sigma * sigma * profile.sqHolding
	return EfficientContinuousTrajectory{
		ContinuousTrajectory:       profile.trajectory,
		TransactionCostExpectation: mean,
		TransactionCostVariance:    variance,
		Utility:                    utility.Utility(mean, variance),
		Kappa:                      profile.kappa,
	}, nil
}

// ConstantTradingEnhanced is the Almgren (2003) case σ̃(v) = α₀: the extra
// execution noise α₀²∫v² acts like additional temporary impact, so the
// optimum is the Almgren-Chriss profile with η_eff = η + λα₀².
func ConstantTradingEnhanced(order strategy.OrderSpecification, params dynamics.PriceEvolutionParameters, utility risk.MeanVarianceObjectiveUtility) (EfficientContinuousTrajectory, error) {
	if err := validateContinuous(order, params); err != nil {
		return EfficientContinuousTrajectory{}, fmt.Errorf("ConstantTradingEnhanced: %w", err)
	}
	if params.TemporaryVolatility.Slope != 0 {
		return EfficientContinuousTrajectory{}, fmt.Errorf("ConstantTradingEnhanced: rate-dependent execution volatility: %w", ErrUnsupportedWalk)
	}

	X, T := order.Size, order.MaxExecutionTime
	lambda := utility.RiskAversion
	sigma := params.Dynamics.Volatility
	alpha0 := params.TemporaryVolatility.Offset
	eta := params.Temporary.Slope
	profile := solveContinuous(X, T, eta+lambda*alpha0*alpha0, lambda*sigma*sigma, params.Dynamics.Drift)

	mean := 0.5*params.Permanent.Slope*X*X + params.Temporary.Offset*profile.absRate + eta*profile.sqRate - params.Dynamics.Drift*profile.holdings
	variance := sigma*sigma*profile.sqHolding + alpha0*alpha0*profile.sqRate
	return EfficientContinuousTrajectory{
		ContinuousTrajectory:       profile.trajectory,
		TransactionCostExpectation: mean,
		TransactionCostVariance:    variance,
		Utility:                    utility.Utility(mean, variance),
		Kappa:                      profile.kappa,
	}, nil
}

func validateContinuous(order strategy.OrderSpecification, params dynamics.PriceEvolutionParameters) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if params.Temporary.Slope <= 0 {
		return fmt.Errorf("temporary impact slope must be positive, got %g", params.Temporary.Slope)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
