package swap

import (
	"fmt"
	"time"

	"github.com/meenmo/quantlib/utils"
)

// InterestRateSwap captures the key economic terms for pricing.
type InterestRateSwap struct {
	Effective time.Time
	Maturity  time.Time
	// SettlementDate is the valuation date; cashflows paid on or before it are ignored.
	// Zero means Effective.
	SettlementDate time.Time
	Notional       float64
	// FixedRate is in percent (e.g. 2.5 for 2.5%).
	FixedRate float64
	Direction Position
	FixedLeg  LegConvention
	FloatLeg  LegConvention
	// LastFixing is the percent rate of the float period straddling settlement.
	// When zero the period's forward is implied from the curve.
	LastFixing float64
}

// Cashflow is a single projected leg payment.
type Cashflow struct {
	PayDate time.Time
	Amount  float64
	DF      float64
}

func (irs InterestRateSwap) settlement() time.Time {
	if irs.SettlementDate.IsZero() {
		return irs.Effective
	}
	return irs.SettlementDate
}

func (irs InterestRateSwap) validate(curve DiscountCurve) error {
	if curve == nil {
		return ErrNilCurve
	}
	if irs.Direction != PositionReceive && irs.Direction != PositionPay {
		return fmt.Errorf("%q: %w", irs.Direction, ErrInvalidDirection)
	}
	if irs.Notional <= 0 {
		return fmt.Errorf("Notional must be positive, got %g", irs.Notional)
	}
	return nil
}

// annuity is Σ notional·accrual·DF over live periods of leg.
func (irs InterestRateSwap) annuity(curve DiscountCurve, leg LegConvention) (float64, error) {
	periods, err := GenerateSchedule(irs.Effective, irs.Maturity, leg)
	if err != nil {
		return 0, err
	}
	settlement := irs.settlement()
	var sum float64
	for _, p := range periods {
		if !p.PayDate.After(settlement) {
			continue
		}
		sum += irs.Notional * p.Accrual * curve.DF(p.PayDate)
	}
	return sum, nil
}

// FixedCashflows projects the fixed leg payments.
func (irs InterestRateSwap) FixedCashflows(curve DiscountCurve) ([]Cashflow, error) {
	if err := irs.validate(curve); err != nil {
		return nil, fmt.Errorf("FixedCashflows: %w", err)
	}
	periods, err := GenerateSchedule(irs.Effective, irs.Maturity, irs.FixedLeg)
	if err != nil {
		return nil, fmt.Errorf("FixedCashflows: %w", err)
	}
	settlement := irs.settlement()
	out := make([]Cashflow, 0, len(periods))
	for _, p := range periods {
		if !p.PayDate.After(settlement) {
			continue
		}
		out = append(out, Cashflow{
			PayDate: p.PayDate,
			Amount:  irs.FixedRate / 100 * irs.Notional * p.Accrual,
			DF:      curve.DF(p.PayDate),
		})
	}
	return out, nil
}

// FloatCashflows projects the floating leg off simple forwards implied by DF ratios.
func (irs InterestRateSwap) FloatCashflows(curve DiscountCurve) ([]Cashflow, error) {
	if err := irs.validate(curve); err != nil {
		return nil, fmt.Errorf("FloatCashflows: %w", err)
	}
	periods, err := GenerateSchedule(irs.Effective, irs.Maturity, irs.FloatLeg)
	if err != nil {
		return nil, fmt.Errorf("FloatCashflows: %w", err)
	}
	settlement := irs.settlement()
	out := make([]Cashflow, 0, len(periods))
	for _, p := range periods {
		if !p.PayDate.After(settlement) {
			continue
		}
		var rate float64
		if p.StartDate.Before(settlement) && irs.LastFixing != 0 {
			rate = irs.LastFixing / 100
		} else {
			rate = forwardRate(curve, p)
		}
		out = append(out, Cashflow{
			PayDate: p.PayDate,
			Amount:  rate * irs.Notional * p.Accrual,
			DF:      curve.DF(p.PayDate),
		})
	}
	return out, nil
}

// forwardRate is the simple rate over p implied by the curve.
func forwardRate(curve DiscountCurve, p SchedulePeriod) float64 {
	if p.Accrual == 0 {
		return 0
	}
	return (curve.DF(p.StartDate)/curve.DF(p.EndDate) - 1) / p.Accrual
}

func presentValue(cfs []Cashflow) float64 {
	var pv float64
	for _, cf := range cfs {
		pv += cf.Amount * cf.DF
	}
	return pv
}

// PVByLeg returns the present values of the fixed and floating legs.
func (irs InterestRateSwap) PVByLeg(curve DiscountCurve) (float64, float64, error) {
	fixed, err := irs.FixedCashflows(curve)
	if err != nil {
		return 0, 0, err
	}
	float, err := irs.FloatCashflows(curve)
	if err != nil {
		return 0, 0, err
	}
	return presentValue(fixed), presentValue(float), nil
}

// NPV is the swap value to the holder of Direction.
func (irs InterestRateSwap) NPV(curve DiscountCurve) (float64, error) {
	sumFixed, sumFloat, err := irs.PVByLeg(curve)
	if err != nil {
		return 0, err
	}
	if irs.Direction == PositionReceive {
		return sumFixed - sumFloat, nil
	}
	return sumFloat - sumFixed, nil
}

// ParRate is the fixed rate (percent) at which NPV is zero.
func (irs InterestRateSwap) ParRate(curve DiscountCurve) (float64, error) {
	_, sumFloat, err := irs.PVByLeg(curve)
	if err != nil {
		return 0, fmt.Errorf("ParRate: %w", err)
	}
	annuity, err := irs.annuity(curve, irs.FixedLeg)
	if err != nil {
		return 0, fmt.Errorf("ParRate: %w", err)
	}
	if annuity == 0 {
		return 0, fmt.Errorf("ParRate: fixed leg annuity is zero")
	}
	return sumFloat / annuity * 100, nil
}

// PV01 is the change in NPV for a one basis point rise in the fixed rate.
func (irs InterestRateSwap) PV01(curve DiscountCurve) (float64, error) {
	if err := irs.validate(curve); err != nil {
		return 0, fmt.Errorf("PV01: %w", err)
	}
	annuity, err := irs.annuity(curve, irs.FixedLeg)
	if err != nil {
		return 0, fmt.Errorf("PV01: %w", err)
	}
	pv01 := annuity * 1e-4
	if irs.Direction == PositionPay {
		return -pv01, nil
	}
	return pv01, nil
}

// FloatSpreadBP is the spread over the floating leg (bp) that sets NPV to zero.
func (irs InterestRateSwap) FloatSpreadBP(curve DiscountCurve) (float64, error) {
	sumFixed, sumFloat, err := irs.PVByLeg(curve)
	if err != nil {
		return 0, fmt.Errorf("FloatSpreadBP: %w", err)
	}
	annuity, err := irs.annuity(curve, irs.FloatLeg)
	if err != nil {
		return 0, fmt.Errorf("FloatSpreadBP: %w", err)
	}
	if annuity == 0 {
		return 0, fmt.Errorf("FloatSpreadBP: floating leg annuity is zero")
	}
	return (sumFixed - sumFloat) / (annuity * 1e-4), nil
}

// MaturityFromTenor returns effective + years, month-end clamped.
func MaturityFromTenor(effective time.Time, years int) time.Time {
	return utils.AddMonth(effective, 12*years)
}
