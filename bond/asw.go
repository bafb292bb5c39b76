package bond

import (
	"fmt"
	"time"

	"github.com/meenmo/quantlib/swap"
	"github.com/meenmo/quantlib/utils"
)

// ASWInput prices a par asset swap on a bond. DirtyPrice and the cash flow
// amounts are in the same currency units as Notional.
type ASWInput struct {
	SettlementDate time.Time
	DirtyPrice     float64
	Notional       float64
	Cashflows      []Cashflow

	// FloatLeg is the accrual convention of the leg the spread is paid on.
	FloatLeg swap.LegConvention
	Curve    swap.DiscountCurve
}

// ASWResult carries the spread and the two values it is built from.
type ASWResult struct {
	SpreadBP float64
	// PVBondRF is the bond's cash flows discounted on Curve.
	PVBondRF float64
	// PV01 is the value of 1bp running on Notional over the float schedule.
	PV01     float64
	Maturity time.Time
}

// ComputeASWSpread returns the running spread over FloatLeg that funds the
// gap between the bond's curve value and its dirty price:
//
//	spread = (PVBondRF − DirtyPrice) / PV01
//
// The float schedule runs from settlement to the last bond cash flow.
func ComputeASWSpread(in ASWInput) (ASWResult, error) {
	switch {
	case in.SettlementDate.IsZero():
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: SettlementDate is required")
	case in.Notional <= 0:
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: Notional must be positive, got %g", in.Notional)
	case in.Curve == nil:
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: %w", swap.ErrNilCurve)
	}

	maturity, ok := lastCashflowDate(in.Cashflows)
	if !ok {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: Cashflows are required")
	}
	if !maturity.After(in.SettlementDate) {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: last cash flow %s is not after settlement %s", utils.FormatDate(maturity), utils.FormatDate(in.SettlementDate))
	}

	periods, err := swap.GenerateSchedule(in.SettlementDate, maturity, in.FloatLeg)
	if err != nil {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: %w", err)
	}
	pv01 := in.Notional * 1e-4 * annuity(periods, in.Curve)
	if pv01 == 0 {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: float leg PV01 is zero")
	}

	pv := curveValue(in.Cashflows, in.SettlementDate, in.Curve)
	return ASWResult{
		SpreadBP: (pv - in.DirtyPrice) / pv01,
		PVBondRF: pv,
		PV01:     pv01,
		Maturity: maturity,
	}, nil
}

func lastCashflowDate(cfs []Cashflow) (time.Time, bool) {
	if len(cfs) == 0 {
		return time.Time{}, false
	}
	last := cfs[0].Date
	for _, cf := range cfs[1:] {
		if cf.Date.After(last) {
			last = cf.Date
		}
	}
	return last, true
}

// curveValue discounts the cash flows paid after settlement.
func curveValue(cfs []Cashflow, settlement time.Time, curve swap.DiscountCurve) float64 {
	var pv float64
	for _, cf := range cfs {
		if cf.Date.After(settlement) {
			pv += cf.Amount() * curve.DF(cf.Date)
		}
	}
	return pv
}

// annuity is Σ accrual·DF(pay) over the schedule.
func annuity(periods []swap.SchedulePeriod, curve swap.DiscountCurve) float64 {
	var sum float64
	for _, p := range periods {
		sum += p.Accrual * curve.DF(p.PayDate)
	}
	return sum
}
