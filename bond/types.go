// Package bond holds fixed-coupon bond analytics: yield, risk, futures
// forward yield and asset swap spread.
package bond

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cashflow is a single dated cash payment for a bond.
//
// Amounts are per 100 face unless a caller says otherwise.
type Cashflow struct {
	Date      time.Time
	Coupon    float64
	Principal float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// CashflowCents mirrors feeds that store coupon and principal as integer
// minor units (e.g. cents).
type CashflowCents struct {
	Date           time.Time
	CouponCents    int64
	PrincipalCents int64
}

func (c CashflowCents) ToCashflow() Cashflow {
	return Cashflow{
		Date:      c.Date,
		Coupon:    decimal.New(c.CouponCents, -2).InexactFloat64(),
		Principal: decimal.New(c.PrincipalCents, -2).InexactFloat64(),
	}
}

func ToCashflows(in []CashflowCents) []Cashflow {
	out := make([]Cashflow, 0, len(in))
	for _, cf := range in {
		out = append(out, cf.ToCashflow())
	}
	return out
}
