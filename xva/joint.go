package xva

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// GaussianJoint draws count vectors of correlated standard normals. Row i
// of the result is draw i.
func GaussianJoint(count int, correlation mat.Symmetric, src rand.Source) ([][]float64, error) {
	if count < 1 {
		return nil, fmt.Errorf("GaussianJoint: count must be positive, got %d", count)
	}
	if correlation == nil {
		return nil, fmt.Errorf("GaussianJoint: correlation is required")
	}
	n := correlation.SymmetricDim()
	for i := 0; i < n; i++ {
		if correlation.At(i, i) != 1 {
			return nil, fmt.Errorf("GaussianJoint: correlation diagonal must be 1, got %v at %d", correlation.At(i, i), i)
		}
	}

	normal, ok := distmv.NewNormal(make([]float64, n), correlation, src)
	if !ok {
		return nil, fmt.Errorf("GaussianJoint: correlation matrix is not positive definite")
	}
	out := make([][]float64, count)
	for i := range out {
		out[i] = normal.Rand(nil)
	}
	return out, nil
}

// NumeraireSet is the joint model of the four Burgard-Kjaer numeraires: the
// asset, the collateral account, and the bank and counterparty zero-coupon
// bonds.
type NumeraireSet struct {
	Asset        LogarithmicEvolver
	Collateral   LogarithmicEvolver
	Bank         LogarithmicEvolver
	Counterparty LogarithmicEvolver
}

// NumeraireRealization is one joint path of the numeraires.
type NumeraireRealization struct {
	Times        []float64
	Asset        []float64
	Collateral   []float64
	Bank         []float64
	Counterparty []float64
}

// NumeraireEvolution evolves the numeraires from initial values (asset,
// collateral, bank, counterparty) over steps equal steps to horizon, with
// shocks correlated by the 4×4 correlation matrix.
func NumeraireEvolution(set NumeraireSet, initial [4]float64, correlation mat.Symmetric, horizon float64, steps int, src rand.Source) (NumeraireRealization, error) {
	if !(horizon > 0) {
		return NumeraireRealization{}, fmt.Errorf("NumeraireEvolution: horizon must be positive, got %v", horizon)
	}
	if steps < 1 {
		return NumeraireRealization{}, fmt.Errorf("NumeraireEvolution: steps must be positive, got %d", steps)
	}
	if correlation == nil || correlation.SymmetricDim() != 4 {
		return NumeraireRealization{}, fmt.Errorf("NumeraireEvolution: need a 4x4 correlation matrix")
	}
	evolvers := [4]LogarithmicEvolver{set.Asset, set.Collateral, set.Bank, set.Counterparty}
	for i, e := range evolvers {
		if err := e.Validate(); err != nil {
			return NumeraireRealization{}, fmt.Errorf("NumeraireEvolution: numeraire %d: %w", i, err)
		}
		if !(initial[i] > 0) {
			return NumeraireRealization{}, fmt.Errorf("NumeraireEvolution: initial value %d must be positive", i)
		}
	}

	draws, err := GaussianJoint(steps, correlation, src)
	if err != nil {
		return NumeraireRealization{}, fmt.Errorf("NumeraireEvolution: %w", err)
	}

	dt := horizon / float64(steps)
	var paths [4][]float64
	for j, e := range evolvers {
		z := make([]float64, steps)
		for i, d := range draws {
			z[i] = d[j]
		}
		paths[j] = e.Path(initial[j], dt, z)
	}

	times := make([]float64, steps+1)
	for i := range times {
		times[i] = dt * float64(i)
	}
	times[steps] = horizon
	return NumeraireRealization{
		Times:        times,
		Asset:        paths[0],
		Collateral:   paths[1],
		Bank:         paths[2],
		Counterparty: paths[3],
	}, nil
}
