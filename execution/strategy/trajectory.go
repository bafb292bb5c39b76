package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscreteTrajectory is a holdings schedule on the execution time nodes.
//
// Holdings[k] is x_k, the position remaining after the k-th trade, and
// TradeList[k-1] is n_k = x_{k-1} − x_k, the amount traded over (t_{k-1}, t_k].
type DiscreteTrajectory struct {
	ExecutionTimeNodes []float64
	Holdings           []float64
	TradeList          []float64
}

// NewDiscreteTrajectory derives the trade list from holdings on nodes.
func NewDiscreteTrajectory(nodes, holdings []float64) (DiscreteTrajectory, error) {
	if err := validateNodes(nodes); err != nil {
		return DiscreteTrajectory{}, fmt.Errorf("NewDiscreteTrajectory: %w", err)
	}
	if len(holdings) != len(nodes) {
		return DiscreteTrajectory{}, fmt.Errorf("NewDiscreteTrajectory: %d holdings for %d nodes: %w", len(holdings), len(nodes), ErrInvalidTrajectory)
	}
	for i, h := range holdings {
		if !isFinite(h) {
			return DiscreteTrajectory{}, fmt.Errorf("NewDiscreteTrajectory: non-finite holdings at node %d: %w", i, ErrInvalidTrajectory)
		}
	}

	t := DiscreteTrajectory{
		ExecutionTimeNodes: make([]float64, len(nodes)),
		Holdings:           make([]float64, len(holdings)),
		TradeList:          make([]float64, len(holdings)-1),
	}
	copy(t.ExecutionTimeNodes, nodes)
	copy(t.Holdings, holdings)
	for k := 1; k < len(holdings); k++ {
		t.TradeList[k-1] = holdings[k-1] - holdings[k]
	}
	return t, nil
}

// LinearTrajectory trades at a constant rate over the control horizon.
func LinearTrajectory(control DiscreteTrajectoryControl) (DiscreteTrajectory, error) {
	nodes := control.ExecutionTimeNodes
	if err := validateNodes(nodes); err != nil {
		return DiscreteTrajectory{}, fmt.Errorf("LinearTrajectory: %w", err)
	}

	x := control.Order.Size
	T := nodes[len(nodes)-1]
	holdings := make([]float64, len(nodes))
	for i, t := range nodes {
		holdings[i] = x * (1 - t/T)
	}
	holdings[len(holdings)-1] = 0
	return NewDiscreteTrajectory(nodes, holdings)
}

// NumIntervals returns N.
func (t DiscreteTrajectory) NumIntervals() int {
	return len(t.TradeList)
}

// Intervals returns τ_k for k = 1..N.
func (t DiscreteTrajectory) Intervals() []float64 {
	return intervals(t.ExecutionTimeNodes)
}

// TradeRates returns v_k = n_k/τ_k.
func (t DiscreteTrajectory) TradeRates() []float64 {
	tau := t.Intervals()
	out := make([]float64, len(t.TradeList))
	for k, n := range t.TradeList {
		out[k] = n / tau[k]
	}
	return out
}

// ExecutionTime returns t_N.
func (t DiscreteTrajectory) ExecutionTime() float64 {
	return t.ExecutionTimeNodes[len(t.ExecutionTimeNodes)-1]
}

// InitialHoldings returns x_0.
func (t DiscreteTrajectory) InitialHoldings() float64 {
	return t.Holdings[0]
}

// RoundToLots rounds every intermediate holding to a whole number of lots.
//
// The first and last holdings are kept exactly, so the rounded trade list
// still sums to x_0 − x_N.
func (t DiscreteTrajectory) RoundToLots(lot float64) (DiscreteTrajectory, error) {
	if lot <= 0 || !isFinite(lot) {
		return DiscreteTrajectory{}, fmt.Errorf("RoundToLots: lot size must be positive, got %v", lot)
	}

	lotDec := decimal.NewFromFloat(lot)
	holdings := make([]float64, len(t.Holdings))
	holdings[0] = t.Holdings[0]
	last := len(t.Holdings) - 1
	holdings[last] = t.Holdings[last]

	for i := 1; i < last; i++ {
		lots := decimal.NewFromFloat(t.Holdings[i]).Div(lotDec).Round(0)
		holdings[i] = lots.Mul(lotDec).InexactFloat64()
	}
	return NewDiscreteTrajectory(t.ExecutionTimeNodes, holdings)
}

// ContinuousTrajectory is a closed-form holdings path x(t) on [0, ExecutionTime]
// with trade rate v(t) = −x'(t).
type ContinuousTrajectory struct {
	ExecutionTime float64
	Holdings      func(t float64) float64
	TradeRate     func(t float64) float64
}

// Sample evaluates the continuous holdings on nodes.
func (c ContinuousTrajectory) Sample(nodes []float64) (DiscreteTrajectory, error) {
	if c.Holdings == nil {
		return DiscreteTrajectory{}, fmt.Errorf("ContinuousTrajectory.Sample: holdings function is nil: %w", ErrInvalidTrajectory)
	}
	holdings := make([]float64, len(nodes))
	for i, t := range nodes {
		holdings[i] = c.Holdings(t)
	}
	return NewDiscreteTrajectory(nodes, holdings)
}
