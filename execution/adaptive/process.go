// Package adaptive generates execution trajectories that react to a
// stochastic market state s: volatility and liquidity vary together
// (coordinated variation) and s mean-reverts as an Ornstein-Uhlenbeck
// process. The optimal trade rate follows from the Hamilton-Jacobi-Bellman
// cost function, solved numerically on a state grid.
package adaptive

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// OrnsteinUhlenbeck is the market state process ds = −(s/θ)dt + β dW.
type OrnsteinUhlenbeck struct {
	// RelaxationTime is θ, the mean-reversion time scale.
	RelaxationTime float64
	// Burstiness is β, the instantaneous volatility of s.
	Burstiness float64
}

// NewOrnsteinUhlenbeck validates θ > 0 and β ≥ 0.
func NewOrnsteinUhlenbeck(relaxationTime, burstiness float64) (OrnsteinUhlenbeck, error) {
	p := OrnsteinUhlenbeck{RelaxationTime: relaxationTime, Burstiness: burstiness}
	if err := p.Validate(); err != nil {
		return OrnsteinUhlenbeck{}, err
	}
	return p, nil
}

func (p OrnsteinUhlenbeck) Validate() error {
	if !(p.RelaxationTime > 0) || math.IsInf(p.RelaxationTime, 0) {
		return fmt.Errorf("OrnsteinUhlenbeck: relaxation time must be positive, got %v", p.RelaxationTime)
	}
	if !(p.Burstiness >= 0) || math.IsInf(p.Burstiness, 0) {
		return fmt.Errorf("OrnsteinUhlenbeck: burstiness must be non-negative, got %v", p.Burstiness)
	}
	return nil
}

// Evolve advances s by dt using the exact transition with standard normal z.
func (p OrnsteinUhlenbeck) Evolve(s, dt, z float64) float64 {
	decay := math.Exp(-dt / p.RelaxationTime)
	return s*decay + p.Burstiness*math.Sqrt(0.5*p.RelaxationTime*(1-decay*decay))*z
}

// StationaryStdDev returns β√(θ/2).
func (p OrnsteinUhlenbeck) StationaryStdDev() float64 {
	return p.Burstiness * math.Sqrt(0.5*p.RelaxationTime)
}

// Diffusion returns the non-dimensional diffusivity D = θβ²/2.
func (p OrnsteinUhlenbeck) Diffusion() float64 {
	return 0.5 * p.RelaxationTime * p.Burstiness * p.Burstiness
}

// Path samples steps transitions of size dt starting at s0. The result has
// steps+1 entries.
func (p OrnsteinUhlenbeck) Path(s0, dt float64, steps int, src rand.Source) ([]float64, error) {
	if steps < 1 {
		return nil, fmt.Errorf("OrnsteinUhlenbeck.Path: need at least one step, got %d", steps)
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("OrnsteinUhlenbeck.Path: time step must be positive, got %v", dt)
	}
	z := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	path := make([]float64, steps+1)
	path[0] = s0
	for i := 1; i <= steps; i++ {
		path[i] = p.Evolve(path[i-1], dt, z.Rand())
	}
	return path, nil
}
