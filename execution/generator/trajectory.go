// Package generator produces cost-efficient execution trajectories: the
// Almgren-Chriss closed forms (discrete and continuous), the Almgren (2003)
// trading-enhanced risk variants, and a numerical scheme for arbitrary
// objective utilities.
package generator

import (
	"errors"
	"math"

	"github.com/meenmo/quantlib/execution/capture"
	"github.com/meenmo/quantlib/execution/strategy"
)

var (
	// ErrNonUniformControl is returned by closed forms that require equal intervals.
	ErrNonUniformControl = errors.New("closed form requires uniform time intervals")
	// ErrUnsupportedWalk is returned when a scheme cannot handle the supplied price walk.
	ErrUnsupportedWalk = errors.New("price walk not supported by scheme")
)

// EfficientDiscreteTrajectory is an optimal holdings schedule with its cost
// distribution summary.
type EfficientDiscreteTrajectory struct {
	strategy.DiscreteTrajectory

	TransactionCostExpectation float64
	TransactionCostVariance    float64
	Utility                    float64
}

// Synopsis returns the normal summary of the transaction cost.
func (e EfficientDiscreteTrajectory) Synopsis() capture.Synopsis {
	return capture.Synopsis{Mean: e.TransactionCostExpectation, Variance: e.TransactionCostVariance}
}

// EfficientContinuousTrajectory is an optimal continuous holdings path with
// its cost distribution summary.
type EfficientContinuousTrajectory struct {
	strategy.ContinuousTrajectory

	TransactionCostExpectation float64
	TransactionCostVariance    float64
	Utility                    float64
	// Kappa is the urgency κ of the sinh profile; zero for a linear schedule.
	Kappa float64
}

// HalfLife returns 1/κ.
func (e EfficientContinuousTrajectory) HalfLife() float64 {
	return halfLife(e.Kappa)
}

// Synopsis returns the normal summary of the transaction cost.
func (e EfficientContinuousTrajectory) Synopsis() capture.Synopsis {
	return capture.Synopsis{Mean: e.TransactionCostExpectation, Variance: e.TransactionCostVariance}
}

func halfLife(kappa float64) float64 {
	if kappa == 0 {
		return math.Inf(1)
	}
	return 1 / kappa
}

// sinhRatio returns sinh(a)/sinh(b) for 0 ≤ a ≤ b, b > 0, without overflow.
func sinhRatio(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return math.Exp(a-b) * (-math.Expm1(-2 * a)) / (-math.Expm1(-2 * b))
}

// coshSinhRatio returns cosh(a)/sinh(b) for 0 ≤ a ≤ b, b > 0, without overflow.
func coshSinhRatio(a, b float64) float64 {
	return math.Exp(a-b) * (1 + math.Exp(-2*a)) / (-math.Expm1(-2 * b))
}
