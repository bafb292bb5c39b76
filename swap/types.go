// Package swap prices vanilla fixed/float interest rate swaps off a single
// discount curve.
package swap

import (
	"errors"
	"time"

	"github.com/meenmo/quantlib/utils"
)

var (
	// ErrNilCurve is returned when a required curve argument is nil.
	ErrNilCurve = errors.New("nil curve")
	// ErrInvalidDirection is returned for a Position other than REC or PAY.
	ErrInvalidDirection = errors.New("invalid direction: must be REC or PAY")
)

// DiscountCurve provides discount factors for valuation.
type DiscountCurve interface {
	DF(t time.Time) float64
}

// Position describes whether the swap receives or pays the fixed leg.
type Position string

const (
	PositionReceive Position = "REC"
	PositionPay     Position = "PAY"
)

// LegConvention is the accrual convention of a single leg.
type LegConvention struct {
	// PaymentMonths is the period length in months (3 = quarterly, 12 = annual).
	PaymentMonths int
	DayCount      utils.DayCount
}

// SchedulePeriod is a cashflow period for a single leg.
//
// Dates are unadjusted and PayDate equals EndDate.
type SchedulePeriod struct {
	StartDate time.Time
	EndDate   time.Time
	PayDate   time.Time
	Accrual   float64
}
