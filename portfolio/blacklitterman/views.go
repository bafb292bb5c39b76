package blacklitterman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ViewSet is K investor views P·μ = Q + ε, ε ~ N(0, Ω).
type ViewSet struct {
	// Loadings is P, K×n.
	Loadings *mat.Dense
	// Returns is Q.
	Returns []float64
	// Uncertainty is Ω, K×K. Nil selects the He-Litterman default
	// diag(P τΣ Pᵀ).
	Uncertainty *mat.SymDense
}

// NewViewSet builds views from row-major loadings, one row per view.
// omega may be nil.
func NewViewSet(loadings [][]float64, returns []float64, omega [][]float64) (ViewSet, error) {
	if len(loadings) != len(returns) {
		return ViewSet{}, fmt.Errorf("NewViewSet: %d loading rows for %d returns: %w", len(loadings), len(returns), ErrDimensionMismatch)
	}
	if len(loadings) == 0 {
		return ViewSet{}, nil
	}
	n := len(loadings[0])
	data := make([]float64, 0, len(loadings)*n)
	for i, row := range loadings {
		if len(row) != n || n == 0 {
			return ViewSet{}, fmt.Errorf("NewViewSet: loading row %d has %d entries, want %d: %w", i, len(row), n, ErrDimensionMismatch)
		}
		data = append(data, row...)
	}
	vs := ViewSet{
		Loadings: mat.NewDense(len(loadings), n, data),
		Returns:  append([]float64(nil), returns...),
	}
	if omega != nil {
		sym, err := symFromRows(omega)
		if err != nil {
			return ViewSet{}, fmt.Errorf("NewViewSet: uncertainty: %w", err)
		}
		if sym.SymmetricDim() != len(returns) {
			return ViewSet{}, fmt.Errorf("NewViewSet: uncertainty is %dx%d for %d views: %w", sym.SymmetricDim(), sym.SymmetricDim(), len(returns), ErrDimensionMismatch)
		}
		vs.Uncertainty = sym
	}
	return vs, nil
}

// Count returns K.
func (v ViewSet) Count() int {
	return len(v.Returns)
}

// HeLittermanUncertainty returns diag(P τΣ Pᵀ), view variances proportional
// to the prior variance of the view portfolios.
func HeLittermanUncertainty(loadings mat.Matrix, cov mat.Symmetric, tau float64) *mat.SymDense {
	k, _ := loadings.Dims()
	var pSigma, full mat.Dense
	pSigma.Mul(loadings, cov)
	full.Mul(&pSigma, loadings.T())
	omega := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		omega.SetSym(i, i, tau*full.At(i, i))
	}
	return omega
}
