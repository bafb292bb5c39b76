// Package xva values derivatives under bilateral counterparty risk and
// funding costs following Burgard and Kjaer (2011), "Partial Differential
// Equation Representations of Derivatives with Bilateral Counterparty Risk
// and Funding Costs".
package xva

import (
	"fmt"
	"math"
)

// LogarithmicEvolver is the geometric walk dS = μS dt + σS dW.
type LogarithmicEvolver struct {
	Drift      float64
	Volatility float64
}

// NewLogarithmicEvolver validates a finite drift and non-negative volatility.
func NewLogarithmicEvolver(drift, volatility float64) (LogarithmicEvolver, error) {
	e := LogarithmicEvolver{Drift: drift, Volatility: volatility}
	if err := e.Validate(); err != nil {
		return LogarithmicEvolver{}, err
	}
	return e, nil
}

func (e LogarithmicEvolver) Validate() error {
	if math.IsNaN(e.Drift) || math.IsInf(e.Drift, 0) {
		return fmt.Errorf("LogarithmicEvolver: drift must be finite")
	}
	if !(e.Volatility >= 0) || math.IsInf(e.Volatility, 0) {
		return fmt.Errorf("LogarithmicEvolver: volatility must be non-negative and finite")
	}
	return nil
}

// Increment returns the Euler step μS dt + σS√dt z.
func (e LogarithmicEvolver) Increment(s, dt, z float64) float64 {
	return e.Drift*s*dt + e.Volatility*s*math.Sqrt(dt)*z
}

// Evolve returns the exact transition S·exp((μ − σ²/2)dt + σ√dt z).
func (e LogarithmicEvolver) Evolve(s, dt, z float64) float64 {
	return s * math.Exp((e.Drift-0.5*e.Volatility*e.Volatility)*dt+e.Volatility*math.Sqrt(dt)*z)
}

// Path evolves s0 through one step of size dt per draw in z.
func (e LogarithmicEvolver) Path(s0, dt float64, z []float64) []float64 {
	out := make([]float64, len(z)+1)
	out[0] = s0
	for i, zi := range z {
		out[i+1] = e.Evolve(out[i], dt, zi)
	}
	return out
}

// TradeableAsset is the hedge instrument: its price numeraire, the repo
// rate q_S earned on it when lent out, and the cash accumulation rate γ_S
// (dividend yield) it pays.
type TradeableAsset struct {
	Numeraire            LogarithmicEvolver
	RepoRate             float64
	CashAccumulationRate float64
}

func (a TradeableAsset) Validate() error {
	if err := a.Numeraire.Validate(); err != nil {
		return fmt.Errorf("TradeableAsset: %w", err)
	}
	if math.IsNaN(a.RepoRate) || math.IsInf(a.RepoRate, 0) {
		return fmt.Errorf("TradeableAsset: repo rate must be finite")
	}
	if math.IsNaN(a.CashAccumulationRate) || math.IsInf(a.CashAccumulationRate, 0) {
		return fmt.Errorf("TradeableAsset: cash accumulation rate must be finite")
	}
	return nil
}

// EdgeGreeks is the derivative value and its spot sensitivities at one
// point of the time/spot grid.
type EdgeGreeks struct {
	Time  float64
	Value float64
	Delta float64
	Gamma float64
}

// ParabolicDifferentialOperator is the spot part of the pricing PDE,
//
//	A V = ½σ²S² ∂²V/∂S² + (q_S − γ_S) S ∂V/∂S
type ParabolicDifferentialOperator struct {
	Underlier TradeableAsset
}

// Apply evaluates A V at spot s from the edge greeks.
func (p ParabolicDifferentialOperator) Apply(edge EdgeGreeks, s float64) (float64, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, fmt.Errorf("ParabolicDifferentialOperator.Apply: spot must be finite")
	}
	sigma := p.Underlier.Numeraire.Volatility
	return 0.5*sigma*sigma*s*s*edge.Gamma + p.Underlier.drift()*s*edge.Delta, nil
}

func (a TradeableAsset) drift() float64 {
	return a.RepoRate - a.CashAccumulationRate
}
