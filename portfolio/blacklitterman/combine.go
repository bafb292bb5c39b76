package blacklitterman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Output is the Black-Litterman posterior.
type Output struct {
	PriorExcessReturns     []float64
	PosteriorExcessReturns []float64
	// PosteriorTotalReturns adds the risk-free rate.
	PosteriorTotalReturns []float64
	PosteriorCovariance   *mat.SymDense
	// PosteriorWeights are the forward-optimised weights at the prior risk
	// aversion.
	PosteriorWeights []float64
	// Uncertainty is the Ω actually used.
	Uncertainty *mat.SymDense
}

// Combine blends prior and views:
//
//	A = P τΣ Pᵀ + Ω
//	μ = Π + τΣPᵀ A⁻¹ (Q − PΠ)
//	M = τΣ − τΣPᵀ A⁻¹ P τΣ
//
// The posterior covariance is Σ + M, or Σ in the alternate reference model.
func Combine(prior Prior, views ViewSet, spec PriorControlSpecification) (Output, error) {
	if err := spec.Validate(); err != nil {
		return Output{}, fmt.Errorf("Combine: %w", err)
	}
	if prior.Covariance == nil {
		return Output{}, fmt.Errorf("Combine: prior covariance is required")
	}
	n := prior.Covariance.SymmetricDim()
	if len(prior.ImpliedExcessReturns) != n {
		return Output{}, fmt.Errorf("Combine: %d implied returns for %d assets: %w", len(prior.ImpliedExcessReturns), n, ErrDimensionMismatch)
	}

	var tauSigma mat.SymDense
	tauSigma.ScaleSym(spec.Tau, prior.Covariance)
	pi := mat.NewVecDense(n, append([]float64(nil), prior.ImpliedExcessReturns...))

	mu := mat.VecDenseCopyOf(pi)
	m := mat.NewSymDense(n, nil)
	m.CopySym(&tauSigma)
	var omega *mat.SymDense

	if k := views.Count(); k > 0 {
		if views.Loadings == nil {
			return Output{}, fmt.Errorf("Combine: view loadings are required")
		}
		if r, c := views.Loadings.Dims(); r != k || c != n {
			return Output{}, fmt.Errorf("Combine: loadings are %dx%d, want %dx%d: %w", r, c, k, n, ErrDimensionMismatch)
		}
		p := views.Loadings

		omega = views.Uncertainty
		if omega == nil {
			omega = HeLittermanUncertainty(p, prior.Covariance, spec.Tau)
		}
		if omega.SymmetricDim() != k {
			return Output{}, fmt.Errorf("Combine: uncertainty is %dx%d for %d views: %w", omega.SymmetricDim(), omega.SymmetricDim(), k, ErrDimensionMismatch)
		}

		// B = P τΣ (k×n); A = B Pᵀ + Ω.
		var b, bpt mat.Dense
		b.Mul(p, &tauSigma)
		bpt.Mul(&b, p.T())
		a := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				a.SetSym(i, j, 0.5*(bpt.At(i, j)+bpt.At(j, i))+omega.At(i, j))
			}
		}
		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok {
			return Output{}, fmt.Errorf("Combine: view covariance P τΣ Pᵀ + Ω is not positive definite")
		}

		// μ = Π + Bᵀ A⁻¹ (Q − PΠ).
		var surprise mat.VecDense
		surprise.MulVec(p, pi)
		surprise.SubVec(mat.NewVecDense(k, append([]float64(nil), views.Returns...)), &surprise)
		var x mat.VecDense
		if err := chol.SolveVecTo(&x, &surprise); err != nil {
			return Output{}, fmt.Errorf("Combine: %w", err)
		}
		var shift mat.VecDense
		shift.MulVec(b.T(), &x)
		mu.AddVec(mu, &shift)

		// M = τΣ − Bᵀ A⁻¹ B.
		var y, correction mat.Dense
		if err := chol.SolveTo(&y, &b); err != nil {
			return Output{}, fmt.Errorf("Combine: %w", err)
		}
		correction.Mul(b.T(), &y)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				m.SetSym(i, j, tauSigma.At(i, j)-0.5*(correction.At(i, j)+correction.At(j, i)))
			}
		}
	}

	posteriorCov := mat.NewSymDense(n, nil)
	if spec.UseAlternateReferenceModel {
		posteriorCov.CopySym(prior.Covariance)
	} else {
		posteriorCov.AddSym(prior.Covariance, m)
	}

	excess := vecToSlice(mu)
	weights, err := ForwardOptimize(posteriorCov, excess, prior.RiskAversion)
	if err != nil {
		return Output{}, fmt.Errorf("Combine: %w", err)
	}
	total := make([]float64, n)
	for i, r := range excess {
		total[i] = r + spec.RiskFreeRate
	}
	return Output{
		PriorExcessReturns:     append([]float64(nil), prior.ImpliedExcessReturns...),
		PosteriorExcessReturns: excess,
		PosteriorTotalReturns:  total,
		PosteriorCovariance:    posteriorCov,
		PosteriorWeights:       weights,
		Uncertainty:            omega,
	}, nil
}
