package bond

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/quantlib/utils"
)

// YieldInput prices a bond on its settlement date from a quoted clean price.
type YieldInput struct {
	SettlementDate time.Time
	// CleanPrice is per 100 face.
	CleanPrice float64
	// CouponRate is the annual coupon in percent (e.g. 2.5 for 2.5%).
	CouponRate float64
	// CouponFrequency is coupons per year (1 = annual, 2 = semi-annual).
	CouponFrequency int
	// Cashflows are the remaining cash flows after settlement, per 100 face.
	Cashflows []Cashflow
}

// YieldResult is the output of ComputeYield.
type YieldResult struct {
	// Yield is the annualised yield in percent, compounded CouponFrequency times a year.
	Yield           float64
	DirtyPrice      float64
	AccruedInterest float64
	Iterations      int
}

// ComputeYield solves for the yield whose ACT/ACT ICMA dirty price matches
// the clean price plus accrued interest.
func ComputeYield(in YieldInput) (YieldResult, error) {
	sched, err := newCouponSchedule("ComputeYield", in.SettlementDate, in.CouponFrequency, in.Cashflows)
	if err != nil {
		return YieldResult{}, err
	}
	accrued := sched.accruedInterest(in.CouponRate)
	dirty := in.CleanPrice + accrued

	y, iterations, err := sched.solveYield(dirty)
	if err != nil {
		return YieldResult{}, fmt.Errorf("ComputeYield: %w", err)
	}
	return YieldResult{
		Yield:           y * 100.0,
		DirtyPrice:      dirty,
		AccruedInterest: accrued,
		Iterations:      iterations,
	}, nil
}

// PriceInput evaluates a bond at a given yield.
type PriceInput struct {
	SettlementDate time.Time
	// Yield is in percent.
	Yield           float64
	CouponFrequency int
	Cashflows       []Cashflow
}

// DirtyPrice discounts the cash flows at the given yield (ACT/ACT ICMA).
func DirtyPrice(in PriceInput) (float64, error) {
	sched, err := newCouponSchedule("DirtyPrice", in.SettlementDate, in.CouponFrequency, in.Cashflows)
	if err != nil {
		return 0, err
	}
	price, _ := sched.dirtyPriceAndDeriv(in.Yield / 100.0)
	return price, nil
}

// Risk holds first and second order yield sensitivities.
type Risk struct {
	DirtyPrice float64
	// MacaulayDuration and ModifiedDuration are in years.
	MacaulayDuration float64
	ModifiedDuration float64
	// DV01 is the price change for a one basis point fall in yield.
	DV01      float64
	Convexity float64
}

// RiskMeasures computes duration, DV01 and convexity at the given yield.
func RiskMeasures(in PriceInput) (Risk, error) {
	sched, err := newCouponSchedule("RiskMeasures", in.SettlementDate, in.CouponFrequency, in.Cashflows)
	if err != nil {
		return Risk{}, err
	}
	y := in.Yield / 100.0
	f := float64(sched.frequency)
	base := 1.0 + y/f
	if base <= 0 {
		return Risk{}, fmt.Errorf("RiskMeasures: yield %g%% is below -100%% per period", in.Yield)
	}

	var price, weighted, convex float64
	for i, cf := range sched.cashflows {
		t := sched.t1 + float64(i)
		pv := cf.Amount() / math.Pow(base, t)
		price += pv
		weighted += t / f * pv
		convex += t * (t + 1) / (f * f) * pv / (base * base)
	}
	if price == 0 {
		return Risk{}, fmt.Errorf("RiskMeasures: price is zero")
	}

	mac := weighted / price
	mod := mac / base
	return Risk{
		DirtyPrice:       price,
		MacaulayDuration: mac,
		ModifiedDuration: mod,
		DV01:             mod * price * 1e-4,
		Convexity:        convex / price,
	}, nil
}

// ForwardYieldInput holds the parameters needed to compute the forward yield
// of a bond delivered via a futures contract.
type ForwardYieldInput struct {
	// SettlementDate is the futures delivery date (e.g. 2026-03-10 for Eurex).
	SettlementDate time.Time
	// FuturesPrice is the clean futures price (e.g. 128.20).
	FuturesPrice float64
	// ConversionFactor maps the futures price to the CTD bond's invoice price.
	ConversionFactor float64
	// CouponRate is the annual coupon in percent (e.g. 2.5 for 2.5%).
	CouponRate float64
	// CouponFrequency is coupons per year (1 = annual, 2 = semi-annual).
	CouponFrequency int
	// Cashflows are the remaining cash flows *after* settlement, in per-100
	// terms. Callers using DB-format cents should divide by 10 000 first.
	Cashflows []Cashflow
}

// ForwardYieldResult is the output of ComputeForwardYield.
type ForwardYieldResult struct {
	// ForwardYield is the annualised yield in percent (e.g. 2.83).
	ForwardYield float64
	// InvoicePrice is futures_price × conversion_factor + accrued_interest (per-100).
	InvoicePrice float64
	// AccruedInterest is the accrued coupon at settlement (per-100).
	AccruedInterest float64
	// Iterations is the number of Newton-Raphson steps taken.
	Iterations int
}

// ComputeForwardYield solves for the yield y such that the dirty-price
// function (ACT/ACT ICMA discounting) equals the invoice price of the
// futures delivery.
func ComputeForwardYield(in ForwardYieldInput) (ForwardYieldResult, error) {
	sched, err := newCouponSchedule("ComputeForwardYield", in.SettlementDate, in.CouponFrequency, in.Cashflows)
	if err != nil {
		return ForwardYieldResult{}, err
	}
	if in.ConversionFactor <= 0 {
		return ForwardYieldResult{}, fmt.Errorf("ComputeForwardYield: ConversionFactor must be positive")
	}

	accruedInterest := sched.accruedInterest(in.CouponRate)
	invoicePrice := in.FuturesPrice*in.ConversionFactor + accruedInterest

	yield, iterations, err := sched.solveYield(invoicePrice)
	if err != nil {
		return ForwardYieldResult{}, fmt.Errorf("ComputeForwardYield: %w", err)
	}

	return ForwardYieldResult{
		ForwardYield:    yield * 100.0, // decimal → percent
		InvoicePrice:    invoicePrice,
		AccruedInterest: accruedInterest,
		Iterations:      iterations,
	}, nil
}

// ---------------------------------------------------------------------------
// coupon schedule and Newton-Raphson solver (unexported)
// ---------------------------------------------------------------------------

const (
	yieldTolerance = 1e-12
	yieldMaxIter   = 100
	yieldFloor     = -0.05
	yieldCeiling   = 0.50
)

type couponSchedule struct {
	settlement time.Time
	prevCoupon time.Time
	frequency  int
	cashflows  []Cashflow
	// t1 is the fraction of a coupon period from settlement to the first cash flow.
	t1 float64
}

func newCouponSchedule(fn string, settlement time.Time, frequency int, cfs []Cashflow) (couponSchedule, error) {
	if settlement.IsZero() {
		return couponSchedule{}, fmt.Errorf("%s: SettlementDate is required", fn)
	}
	if len(cfs) == 0 {
		return couponSchedule{}, fmt.Errorf("%s: Cashflows are required", fn)
	}
	if frequency <= 0 || 12%frequency != 0 {
		return couponSchedule{}, fmt.Errorf("%s: CouponFrequency must divide 12, got %d", fn, frequency)
	}
	if !cfs[0].Date.After(settlement) {
		return couponSchedule{}, fmt.Errorf("%s: first cash flow (%s) must be after settlement (%s)", fn, utils.FormatDate(cfs[0].Date), utils.FormatDate(settlement))
	}

	// Previous coupon date: first cashflow minus one coupon period.
	prevCoupon := utils.AddMonth(cfs[0].Date, -12/frequency)

	return couponSchedule{
		settlement: settlement,
		prevCoupon: prevCoupon,
		frequency:  frequency,
		cashflows:  cfs,
		t1:         float64(daysBetween(settlement, cfs[0].Date)) / float64(daysBetween(prevCoupon, cfs[0].Date)),
	}, nil
}

// accruedInterest is the per-period coupon × (days from last coupon to settlement) / (days in period).
func (s couponSchedule) accruedInterest(couponRate float64) float64 {
	daysAccrued := daysBetween(s.prevCoupon, s.settlement)
	daysPeriod := daysBetween(s.prevCoupon, s.cashflows[0].Date)
	return couponRate / float64(s.frequency) * float64(daysAccrued) / float64(daysPeriod)
}

// solveYield finds y such that dirtyPrice(y) == target via Newton-Raphson.
func (s couponSchedule) solveYield(target float64) (float64, int, error) {
	// Initial guess: mid-range (2.5 %).
	y := 0.025

	for iter := 0; iter < yieldMaxIter; iter++ {
		price, dPdy := s.dirtyPriceAndDeriv(y)
		f := price - target

		if math.Abs(f) < yieldTolerance {
			return y, iter + 1, nil
		}
		if math.Abs(dPdy) < 1e-15 {
			return y, iter + 1, fmt.Errorf("derivative too small at iter %d", iter)
		}

		y = clamp(y-f/dPdy, yieldFloor, yieldCeiling)
	}

	return y, yieldMaxIter, fmt.Errorf("did not converge after %d iterations", yieldMaxIter)
}

// dirtyPriceAndDeriv returns (price, dPrice/dy) using ACT/ACT ICMA.
//
//	t_1  = days(settlement, cf[0]) / days(prevCoupon, cf[0])   (fractional first period)
//	t_k  = t_1 + (k − 1)                                       (coupon period steps)
//	price = Σ CF_k / (1+y/f)^t_k
//	dP/dy = Σ −(t_k/f) · CF_k / (1+y/f)^(t_k+1)
func (s couponSchedule) dirtyPriceAndDeriv(y float64) (float64, float64) {
	f := float64(s.frequency)
	base := 1.0 + y/f

	var price, deriv float64
	for i, cf := range s.cashflows {
		t := s.t1 + float64(i)
		amt := cf.Amount()
		price += amt / math.Pow(base, t)
		deriv += -t / f * amt / math.Pow(base, t+1)
	}

	return price, deriv
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// daysBetween returns the number of calendar days from start to end (ACT).
func daysBetween(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Hours() / 24))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
