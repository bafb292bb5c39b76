// Package strategy describes what is to be executed (the order) and how the
// execution horizon is discretised, plus the trajectories generators emit.
package strategy

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTrajectory is wrapped by every trajectory construction failure.
var ErrInvalidTrajectory = errors.New("invalid trajectory")

// OrderSpecification is the block to be executed: Size shares (positive for
// a sale, negative for a purchase) within MaxExecutionTime epochs.
type OrderSpecification struct {
	Size             float64
	MaxExecutionTime float64
}

// NewOrderSpecification validates and builds an order.
func NewOrderSpecification(size, maxExecutionTime float64) (OrderSpecification, error) {
	o := OrderSpecification{Size: size, MaxExecutionTime: maxExecutionTime}
	if err := o.Validate(); err != nil {
		return OrderSpecification{}, err
	}
	return o, nil
}

// Validate checks the order is non-empty with a positive horizon.
func (o OrderSpecification) Validate() error {
	if o.Size == 0 || !isFinite(o.Size) {
		return fmt.Errorf("OrderSpecification: size must be non-zero and finite")
	}
	if o.MaxExecutionTime <= 0 || !isFinite(o.MaxExecutionTime) {
		return fmt.Errorf("OrderSpecification: max execution time must be positive")
	}
	return nil
}

// DiscreteTrajectoryControl fixes the execution time nodes t_0 = 0 < t_1 < ... < t_N.
type DiscreteTrajectoryControl struct {
	Order              OrderSpecification
	ExecutionTimeNodes []float64
}

// FixedInterval splits the order horizon into numIntervals equal intervals.
func FixedInterval(order OrderSpecification, numIntervals int) (DiscreteTrajectoryControl, error) {
	if err := order.Validate(); err != nil {
		return DiscreteTrajectoryControl{}, err
	}
	if numIntervals < 1 {
		return DiscreteTrajectoryControl{}, fmt.Errorf("FixedInterval: need at least one interval, got %d", numIntervals)
	}

	tau := order.MaxExecutionTime / float64(numIntervals)
	nodes := make([]float64, numIntervals+1)
	for i := range nodes {
		nodes[i] = tau * float64(i)
	}
	nodes[numIntervals] = order.MaxExecutionTime

	return DiscreteTrajectoryControl{Order: order, ExecutionTimeNodes: nodes}, nil
}

// NewDiscreteTrajectoryControl builds a control from explicit time nodes.
func NewDiscreteTrajectoryControl(order OrderSpecification, nodes []float64) (DiscreteTrajectoryControl, error) {
	if err := order.Validate(); err != nil {
		return DiscreteTrajectoryControl{}, err
	}
	if err := validateNodes(nodes); err != nil {
		return DiscreteTrajectoryControl{}, fmt.Errorf("NewDiscreteTrajectoryControl: %w", err)
	}
	if math.Abs(nodes[len(nodes)-1]-order.MaxExecutionTime) > 1e-12*order.MaxExecutionTime {
		return DiscreteTrajectoryControl{}, fmt.Errorf("NewDiscreteTrajectoryControl: last node %.6f must equal max execution time %.6f", nodes[len(nodes)-1], order.MaxExecutionTime)
	}

	out := make([]float64, len(nodes))
	copy(out, nodes)
	return DiscreteTrajectoryControl{Order: order, ExecutionTimeNodes: out}, nil
}

// NumIntervals returns N.
func (c DiscreteTrajectoryControl) NumIntervals() int {
	return max(len(c.ExecutionTimeNodes)-1, 0)
}

// Intervals returns τ_k = t_k − t_{k-1} for k = 1..N.
func (c DiscreteTrajectoryControl) Intervals() []float64 {
	return intervals(c.ExecutionTimeNodes)
}

// IsUniform reports whether every interval has the same width. A control
// with no intervals is uniform.
func (c DiscreteTrajectoryControl) IsUniform() bool {
	tau := c.Intervals()
	if len(tau) == 0 {
		return true
	}
	for _, t := range tau[1:] {
		if math.Abs(t-tau[0]) > 1e-9*tau[0] {
			return false
		}
	}
	return true
}

func validateNodes(nodes []float64) error {
	if len(nodes) < 2 {
		return fmt.Errorf("need at least 2 time nodes, got %d: %w", len(nodes), ErrInvalidTrajectory)
	}
	if nodes[0] != 0 {
		return fmt.Errorf("first time node must be 0, got %v: %w", nodes[0], ErrInvalidTrajectory)
	}
	for i := 1; i < len(nodes); i++ {
		if !isFinite(nodes[i]) || nodes[i] <= nodes[i-1] {
			return fmt.Errorf("time nodes must be strictly increasing at index %d: %w", i, ErrInvalidTrajectory)
		}
	}
	return nil
}

func intervals(nodes []float64) []float64 {
	if len(nodes) < 2 {
		return nil
	}
	out := make([]float64, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		out[i-1] = nodes[i] - nodes[i-1]
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
