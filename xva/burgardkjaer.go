package xva

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// ErrUnstableGrid is returned when the explicit scheme would not be stable.
var ErrUnstableGrid = errors.New("explicit finite difference grid is unstable")

// CloseOut selects the mark-to-market M used on default.
type CloseOut int

const (
	// CloseOutRiskFree settles at the risk-free value V.
	CloseOutRiskFree CloseOut = iota
	// CloseOutRisky settles at the adjusted value V̂.
	CloseOutRisky
)

func (c CloseOut) String() string {
	switch c {
	case CloseOutRiskFree:
		return "risk-free"
	case CloseOutRisky:
		return "risky"
	default:
		return fmt.Sprintf("CloseOut(%d)", int(c))
	}
}

// ParseCloseOut maps "risk-free" or "risky" to a close-out convention.
func ParseCloseOut(name string) (CloseOut, error) {
	switch name {
	case "risk-free", "riskfree", "":
		return CloseOutRiskFree, nil
	case "risky":
		return CloseOutRisky, nil
	default:
		return 0, fmt.Errorf("ParseCloseOut: unknown close-out %q", name)
	}
}

// CreditSpecification holds the bank (B) and counterparty (C) default
// intensities and recoveries, and the risk-free rate.
type CreditSpecification struct {
	RiskFreeRate           float64
	BankHazardRate         float64
	BankRecovery           float64
	CounterpartyHazardRate float64
	CounterpartyRecovery   float64
	CloseOut               CloseOut
}

// FundingSpread returns s_F = (1 − R_B) λ_B.
func (c CreditSpecification) FundingSpread() float64 {
	return (1 - c.BankRecovery) * c.BankHazardRate
}

func (c CreditSpecification) Validate() error {
	var err error
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		err = multierr.Append(err, fmt.Errorf("risk-free rate must be finite"))
	}
	if !(c.BankHazardRate >= 0) || math.IsInf(c.BankHazardRate, 0) {
		err = multierr.Append(err, fmt.Errorf("bank hazard rate must be non-negative"))
	}
	if !(c.CounterpartyHazardRate >= 0) || math.IsInf(c.CounterpartyHazardRate, 0) {
		err = multierr.Append(err, fmt.Errorf("counterparty hazard rate must be non-negative"))
	}
	if !(c.BankRecovery >= 0 && c.BankRecovery <= 1) {
		err = multierr.Append(err, fmt.Errorf("bank recovery must lie in [0, 1]"))
	}
	if !(c.CounterpartyRecovery >= 0 && c.CounterpartyRecovery <= 1) {
		err = multierr.Append(err, fmt.Errorf("counterparty recovery must lie in [0, 1]"))
	}
	if c.CloseOut != CloseOutRiskFree && c.CloseOut != CloseOutRisky {
		err = multierr.Append(err, fmt.Errorf("unknown close-out %v", c.CloseOut))
	}
	if err != nil {
		return fmt.Errorf("CreditSpecification: %w", err)
	}
	return nil
}

// PDE grid defaults.
const (
	DefaultSpotNodes    = 201
	DefaultSpotMultiple = 4.0
)

// PDEControl sizes the spot/time grid. The spot grid runs from 0 to
// SpotMultiple × spot; TimeSteps of zero picks the smallest stable count.
type PDEControl struct {
	SpotNodes    int
	SpotMultiple float64
	TimeSteps    int
}

// DefaultPDEControl returns the default grid.
func DefaultPDEControl() PDEControl {
	return PDEControl{SpotNodes: DefaultSpotNodes, SpotMultiple: DefaultSpotMultiple}
}

func (c PDEControl) Validate() error {
	var err error
	if c.SpotNodes < 3 {
		err = multierr.Append(err, fmt.Errorf("spot nodes must be at least 3, got %d", c.SpotNodes))
	}
	if !(c.SpotMultiple > 1) || math.IsInf(c.SpotMultiple, 0) {
		err = multierr.Append(err, fmt.Errorf("spot multiple must exceed 1, got %v", c.SpotMultiple))
	}
	if c.TimeSteps < 0 {
		err = multierr.Append(err, fmt.Errorf("time steps must be non-negative, got %d", c.TimeSteps))
	}
	if err != nil {
		return fmt.Errorf("PDEControl: %w", err)
	}
	return nil
}

// Payoff is the terminal value as a function of spot.
type Payoff func(s float64) float64

// CallPayoff returns max(S − K, 0).
func CallPayoff(strike float64) Payoff {
	return func(s float64) float64 { return math.Max(s-strike, 0) }
}

// PutPayoff returns max(K − S, 0).
func PutPayoff(strike float64) Payoff {
	return func(s float64) float64 { return math.Max(strike-s, 0) }
}

// ForwardPayoff returns S − K.
func ForwardPayoff(strike float64) Payoff {
	return func(s float64) float64 { return s - strike }
}

// BurgardKjaer solves, backward from maturity,
//
//	∂V/∂t + A V − rV = 0
//	∂V̂/∂t + A V̂ − rV̂ = (λ_B + λ_C) V̂ + s_F V̂⁺ − λ_B g_B − λ_C g_C
//
// with g_B = M⁺ + R_B M⁻, g_C = R_C M⁺ + M⁻ and close-out M.
type BurgardKjaer struct {
	Asset   TradeableAsset
	Credit  CreditSpecification
	Control PDEControl
	Logger  *zap.Logger
}

// Solution is the risk-free and adjusted value surface at time 0.
type Solution struct {
	Spots    []float64
	RiskFree []float64
	Adjusted []float64

	Spot         float64
	RiskFreeEdge EdgeGreeks
	AdjustedEdge EdgeGreeks
	TimeSteps    int
}

// XVA returns V̂ − V at the solution spot.
func (s Solution) XVA() float64 {
	return s.AdjustedEdge.Value - s.RiskFreeEdge.Value
}

// Solve values payoff at maturity for the given spot.
func (b BurgardKjaer) Solve(payoff Payoff, maturity, spot float64) (Solution, error) {
	var err error
	err = multierr.Append(err, b.Asset.Validate())
	err = multierr.Append(err, b.Credit.Validate())
	err = multierr.Append(err, b.Control.Validate())
	if payoff == nil {
		err = multierr.Append(err, fmt.Errorf("payoff is required"))
	}
	if !(maturity > 0) || math.IsInf(maturity, 0) {
		err = multierr.Append(err, fmt.Errorf("maturity must be positive"))
	}
	if !(spot > 0) || math.IsInf(spot, 0) {
		err = multierr.Append(err, fmt.Errorf("spot must be positive"))
	}
	if err != nil {
		return Solution{}, fmt.Errorf("BurgardKjaer.Solve: %w", err)
	}
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	n := b.Control.SpotNodes
	M := float64(n - 1)
	sigma := b.Asset.Numeraire.Volatility
	mu := b.Asset.drift()
	r := b.Credit.RiskFreeRate
	lb, lc := b.Credit.BankHazardRate, b.Credit.CounterpartyHazardRate
	rb, rc := b.Credit.BankRecovery, b.Credit.CounterpartyRecovery
	sF := b.Credit.FundingSpread()

	// Worst-case diagonal coefficient over the grid, in units of 1/dt.
	rate := sigma*sigma*M*M + math.Abs(mu)*M + math.Abs(r) + lb + lc + sF
	steps := b.Control.TimeSteps
	if steps == 0 {
		steps = max(1, int(math.Ceil(maturity*rate/0.9)))
	}
	dt := maturity / float64(steps)
	if dt*rate > 1 {
		return Solution{}, fmt.Errorf("BurgardKjaer.Solve: %d time steps need dt ≤ %.3g, have %.3g: %w", steps, 1/rate, dt, ErrUnstableGrid)
	}

	spots := make([]float64, n)
	floats.Span(spots, 0, b.Control.SpotMultiple*spot)
	ds := spots[1]

	v := make([]float64, n)
	for i, s := range spots {
		v[i] = payoff(s)
	}
	vHat := append([]float64(nil), v...)
	nextV := make([]float64, n)
	nextHat := make([]float64, n)

	op := ParabolicDifferentialOperator{Underlier: b.Asset}
	for range steps {
		for i := 0; i < n-1; i++ {
			s := spots[i]
			riskFree := edgeAt(v, i, ds)
			adjusted := edgeAt(vHat, i, ds)
			aV, _ := op.Apply(riskFree, s)
			aHat, _ := op.Apply(adjusted, s)

			mark := v[i]
			if b.Credit.CloseOut == CloseOutRisky {
				mark = vHat[i]
			}
			gB := math.Max(mark, 0) + rb*math.Min(mark, 0)
			gC := rc*math.Max(mark, 0) + math.Min(mark, 0)

			nextV[i] = v[i] + dt*(aV-r*v[i])
			nextHat[i] = vHat[i] + dt*(aHat-(r+lb+lc)*vHat[i]-sF*math.Max(vHat[i], 0)+lb*gB+lc*gC)
		}
		// Zero gamma at the far boundary.
		nextV[n-1] = 2*nextV[n-2] - nextV[n-3]
		nextHat[n-1] = 2*nextHat[n-2] - nextHat[n-3]
		v, nextV = nextV, v
		vHat, nextHat = nextHat, vHat
	}

	out := Solution{
		Spots:     spots,
		RiskFree:  v,
		Adjusted:  vHat,
		Spot:      spot,
		TimeSteps: steps,
	}
	if out.RiskFreeEdge, err = edgeAtSpot(spots, v, spot); err != nil {
		return Solution{}, fmt.Errorf("BurgardKjaer.Solve: %w", err)
	}
	if out.AdjustedEdge, err = edgeAtSpot(spots, vHat, spot); err != nil {
		return Solution{}, fmt.Errorf("BurgardKjaer.Solve: %w", err)
	}

	logger.Debug("burgard-kjaer pde solved",
		zap.Int("spot_nodes", n),
		zap.Int("time_steps", steps),
		zap.Float64("spot", spot),
		zap.Float64("risk_free", out.RiskFreeEdge.Value),
		zap.Float64("xva", out.XVA()))
	return out, nil
}

// edgeAt takes central differences at node i; node 0 carries no spot terms.
func edgeAt(values []float64, i int, ds float64) EdgeGreeks {
	if i == 0 {
		return EdgeGreeks{Value: values[0]}
	}
	return EdgeGreeks{
		Value: values[i],
		Delta: (values[i+1] - values[i-1]) / (2 * ds),
		Gamma: (values[i+1] - 2*values[i] + values[i-1]) / (ds * ds),
	}
}

func edgeAtSpot(spots, values []float64, spot float64) (EdgeGreeks, error) {
	n := len(spots)
	ds := spots[1] - spots[0]
	delta := make([]float64, n)
	gamma := make([]float64, n)
	for i := 1; i < n-1; i++ {
		e := edgeAt(values, i, ds)
		delta[i], gamma[i] = e.Delta, e.Gamma
	}
	delta[0], gamma[0] = delta[1], gamma[1]
	delta[n-1], gamma[n-1] = delta[n-2], gamma[n-2]

	var edge EdgeGreeks
	for _, f := range []struct {
		ys  []float64
		dst *float64
	}{{values, &edge.Value}, {delta, &edge.Delta}, {gamma, &edge.Gamma}} {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(spots, f.ys); err != nil {
			return EdgeGreeks{}, err
		}
		*f.dst = pl.Predict(spot)
	}
	return edge, nil
}
