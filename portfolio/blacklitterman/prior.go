// Package blacklitterman blends market-implied equilibrium returns with
// investor views (Black and Litterman, 1992; He and Litterman, 1999).
package blacklitterman

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is wrapped by every shape error.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// PriorControlSpecification selects the reference model and the prior
// scaling. In the alternate reference model (Meucci, Walters) the posterior
// covariance is the prior covariance; in the standard model it is Σ + M.
type PriorControlSpecification struct {
	UseAlternateReferenceModel bool
	RiskFreeRate               float64
	// Tau is τ, the uncertainty of the prior mean relative to Σ.
	Tau float64
}

// NewPriorControlSpecification validates a finite risk-free rate and τ > 0.
func NewPriorControlSpecification(alternate bool, riskFreeRate, tau float64) (PriorControlSpecification, error) {
	spec := PriorControlSpecification{UseAlternateReferenceModel: alternate, RiskFreeRate: riskFreeRate, Tau: tau}
	if err := spec.Validate(); err != nil {
		return PriorControlSpecification{}, err
	}
	return spec, nil
}

func (s PriorControlSpecification) Validate() error {
	if math.IsNaN(s.RiskFreeRate) || math.IsInf(s.RiskFreeRate, 0) {
		return fmt.Errorf("PriorControlSpecification: risk-free rate must be finite")
	}
	if !(s.Tau > 0) || math.IsInf(s.Tau, 0) {
		return fmt.Errorf("PriorControlSpecification: tau must be positive, got %v", s.Tau)
	}
	return nil
}

// RiskAversion returns δ = (E[r_m] − r_f)/σ_m², the market price of risk
// implied by the market portfolio.
func RiskAversion(marketExcessReturn, marketVariance float64) (float64, error) {
	if !(marketVariance > 0) {
		return 0, fmt.Errorf("RiskAversion: market variance must be positive, got %v", marketVariance)
	}
	return marketExcessReturn / marketVariance, nil
}

// ImpliedExcessReturns reverse-optimises the market weights: Π = δΣw.
func ImpliedExcessReturns(cov mat.Symmetric, weights []float64, riskAversion float64) ([]float64, error) {
	if cov == nil {
		return nil, fmt.Errorf("ImpliedExcessReturns: covariance is required")
	}
	n := cov.SymmetricDim()
	if len(weights) != n {
		return nil, fmt.Errorf("ImpliedExcessReturns: %d weights for %d assets: %w", len(weights), n, ErrDimensionMismatch)
	}
	var pi mat.VecDense
	pi.MulVec(cov, mat.NewVecDense(n, append([]float64(nil), weights...)))
	pi.ScaleVec(riskAversion, &pi)
	return vecToSlice(&pi), nil
}

// ForwardOptimize returns the unconstrained mean-variance weights
// w = (δΣ)⁻¹μ.
func ForwardOptimize(cov mat.Symmetric, excessReturns []float64, riskAversion float64) ([]float64, error) {
	if cov == nil {
		return nil, fmt.Errorf("ForwardOptimize: covariance is required")
	}
	n := cov.SymmetricDim()
	if len(excessReturns) != n {
		return nil, fmt.Errorf("ForwardOptimize: %d returns for %d assets: %w", len(excessReturns), n, ErrDimensionMismatch)
	}
	if !(riskAversion > 0) {
		return nil, fmt.Errorf("ForwardOptimize: risk aversion must be positive, got %v", riskAversion)
	}

	var scaled mat.SymDense
	scaled.ScaleSym(riskAversion, cov)
	var chol mat.Cholesky
	if ok := chol.Factorize(&scaled); !ok {
		return nil, fmt.Errorf("ForwardOptimize: covariance is not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, mat.NewVecDense(n, append([]float64(nil), excessReturns...))); err != nil {
		return nil, fmt.Errorf("ForwardOptimize: %w", err)
	}
	return vecToSlice(&w), nil
}

// Prior is the market equilibrium: covariance, capitalisation weights,
// risk aversion and the implied excess returns.
type Prior struct {
	Covariance           *mat.SymDense
	MarketWeights        []float64
	RiskAversion         float64
	ImpliedExcessReturns []float64
}

// NewPrior computes the implied excess returns of the market portfolio.
func NewPrior(cov [][]float64, weights []float64, riskAversion float64) (Prior, error) {
	sym, err := symFromRows(cov)
	if err != nil {
		return Prior{}, fmt.Errorf("NewPrior: %w", err)
	}
	if !(riskAversion > 0) {
		return Prior{}, fmt.Errorf("NewPrior: risk aversion must be positive, got %v", riskAversion)
	}
	pi, err := ImpliedExcessReturns(sym, weights, riskAversion)
	if err != nil {
		return Prior{}, fmt.Errorf("NewPrior: %w", err)
	}
	return Prior{
		Covariance:           sym,
		MarketWeights:        append([]float64(nil), weights...),
		RiskAversion:         riskAversion,
		ImpliedExcessReturns: pi,
	}, nil
}

func symFromRows(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("empty matrix: %w", ErrDimensionMismatch)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d entries, want %d: %w", i, len(row), n, ErrDimensionMismatch)
		}
		data = append(data, row...)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(rows[i][j]-rows[j][i]) > 1e-12*math.Max(1, math.Abs(rows[i][j])) {
				return nil, fmt.Errorf("matrix is not symmetric at (%d, %d)", i, j)
			}
		}
	}
	return mat.NewSymDense(n, data), nil
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
