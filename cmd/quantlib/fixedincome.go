package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meenmo/quantlib/bond"
	"github.com/meenmo/quantlib/swap"
	"github.com/meenmo/quantlib/utils"
)

type cashflowJSON struct {
	Date      string  `json:"date"`
	Coupon    float64 `json:"coupon"`
	Principal float64 `json:"principal"`
}

func parseCashflows(in []cashflowJSON) ([]bond.Cashflow, error) {
	cfs := make([]bond.Cashflow, 0, len(in))
	for _, cf := range in {
		d, err := parseDate("cashflow date", cf.Date)
		if err != nil {
			return nil, err
		}
		cfs = append(cfs, bond.Cashflow{Date: d, Coupon: cf.Coupon, Principal: cf.Principal})
	}
	return cfs, nil
}

type legJSON struct {
	PaymentMonths int    `json:"payment_months"`
	DayCount      string `json:"day_count"`
}

func (l legJSON) convention() (swap.LegConvention, error) {
	dc, err := utils.ParseDayCount(l.DayCount)
	if err != nil {
		return swap.LegConvention{}, err
	}
	return swap.LegConvention{PaymentMonths: l.PaymentMonths, DayCount: dc}, nil
}

// curveJSON carries either discount factors or continuously compounded zero rates.
type curveJSON struct {
	Reference       string    `json:"reference"`
	Dates           []string  `json:"dates"`
	DiscountFactors []float64 `json:"discount_factors,omitempty"`
	ZeroRates       []float64 `json:"zero_rates,omitempty"`
}

func (c curveJSON) build() (*swap.NodeCurve, error) {
	ref, err := parseDate("curve reference", c.Reference)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(c.Dates))
	for _, s := range c.Dates {
		d, err := parseDate("curve date", s)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	if len(c.ZeroRates) > 0 {
		return swap.NewZeroCurve(ref, dates, c.ZeroRates)
	}
	return swap.NewNodeCurve(ref, dates, c.DiscountFactors)
}

// ---------------------------------------------------------------------------
// fwdyield
// ---------------------------------------------------------------------------

type yieldInput struct {
	TaskID           string         `json:"task_id,omitempty"`
	SettlementDate   string         `json:"settlement_date"`
	FuturesPrice     float64        `json:"futures_price"`
	ConversionFactor float64        `json:"conversion_factor"`
	CouponRate       float64        `json:"coupon_rate"`
	DayCount         string         `json:"day_count"`
	CouponFrequency  int            `json:"coupon_frequency"`
	Cashflows        []cashflowJSON `json:"cashflows"`
}

type yieldOutput struct {
	TaskID           string  `json:"task_id,omitempty"`
	SettlementDate   string  `json:"settlement_date,omitempty"`
	FuturesPrice     float64 `json:"futures_price,omitempty"`
	InvoicePrice     float64 `json:"invoice_price"`
	AccruedInterest  float64 `json:"accrued_interest"`
	ForwardYield     float64 `json:"forward_yield"`
	Iterations       int     `json:"iterations"`
	ModifiedDuration float64 `json:"modified_duration"`
	DV01             float64 `json:"dv01"`
	Convexity        float64 `json:"convexity"`
	Error            string  `json:"error,omitempty"`
}

func newFwdYieldCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fwdyield",
		Short: "CTD forward yield from a bond futures invoice price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, cmd, processFwdYield, func(in yieldInput, err error) yieldOutput {
				return yieldOutput{TaskID: in.TaskID, Error: err.Error()}
			})
		},
	}
}

func processFwdYield(in yieldInput) (yieldOutput, error) {
	settlement, err := parseDate("settlement_date", in.SettlementDate)
	if err != nil {
		return yieldOutput{}, err
	}
	if dc, err := utils.ParseDayCount(in.DayCount); err != nil || dc != utils.ACTACTICMA {
		return yieldOutput{}, fmt.Errorf("unsupported day_count %q (only ACT/ACT)", in.DayCount)
	}
	cfs, err := parseCashflows(in.Cashflows)
	if err != nil {
		return yieldOutput{}, err
	}

	res, err := bond.ComputeForwardYield(bond.ForwardYieldInput{
		SettlementDate:   settlement,
		FuturesPrice:     in.FuturesPrice,
		ConversionFactor: in.ConversionFactor,
		CouponRate:       in.CouponRate,
		CouponFrequency:  in.CouponFrequency,
		Cashflows:        cfs,
	})
	if err != nil {
		return yieldOutput{}, err
	}
	risk, err := bond.RiskMeasures(bond.PriceInput{
		SettlementDate:  settlement,
		Yield:           res.ForwardYield,
		CouponFrequency: in.CouponFrequency,
		Cashflows:       cfs,
	})
	if err != nil {
		return yieldOutput{}, err
	}

	return yieldOutput{
		TaskID:           in.TaskID,
		SettlementDate:   in.SettlementDate,
		FuturesPrice:     in.FuturesPrice,
		InvoicePrice:     res.InvoicePrice,
		AccruedInterest:  res.AccruedInterest,
		ForwardYield:     res.ForwardYield,
		Iterations:       res.Iterations,
		ModifiedDuration: risk.ModifiedDuration,
		DV01:             risk.DV01,
		Convexity:        risk.Convexity,
	}, nil
}

// ---------------------------------------------------------------------------
// aswspread
// ---------------------------------------------------------------------------

type centsCashflowJSON struct {
	Date           string `json:"date"`
	CouponCents    int64  `json:"coupon_cents"`
	PrincipalCents int64  `json:"principal_cents"`
}

type aswInput struct {
	TaskID         string `json:"task_id,omitempty"`
	SettlementDate string `json:"settlement_date"`
	// DirtyPrice is per 100 face; Notional is in currency units.
	DirtyPrice float64             `json:"dirty_price"`
	Notional   float64             `json:"notional"`
	Cashflows  []centsCashflowJSON `json:"cashflows"`
	FloatLeg   legJSON             `json:"float_leg"`
	Curve      curveJSON           `json:"curve"`
}

type aswOutput struct {
	TaskID   string  `json:"task_id,omitempty"`
	SpreadBP float64 `json:"spread_bp"`
	PVBondRF float64 `json:"pv_bond_rf"`
	PV01     float64 `json:"pv01"`
	Error    string  `json:"error,omitempty"`
}

func newASWSpreadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "aswspread",
		Short: "Par asset swap spread of a bond over a floating leg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, cmd, processASW, func(in aswInput, err error) aswOutput {
				return aswOutput{TaskID: in.TaskID, Error: err.Error()}
			})
		},
	}
}

func processASW(in aswInput) (aswOutput, error) {
	settlement, err := parseDate("settlement_date", in.SettlementDate)
	if err != nil {
		return aswOutput{}, err
	}
	cents := make([]bond.CashflowCents, 0, len(in.Cashflows))
	for _, cf := range in.Cashflows {
		d, err := parseDate("cashflow date", cf.Date)
		if err != nil {
			return aswOutput{}, err
		}
		cents = append(cents, bond.CashflowCents{Date: d, CouponCents: cf.CouponCents, PrincipalCents: cf.PrincipalCents})
	}
	leg, err := in.FloatLeg.convention()
	if err != nil {
		return aswOutput{}, err
	}
	curve, err := in.Curve.build()
	if err != nil {
		return aswOutput{}, err
	}

	res, err := bond.ComputeASWSpread(bond.ASWInput{
		SettlementDate: settlement,
		DirtyPrice:     in.DirtyPrice / 100 * in.Notional,
		Notional:       in.Notional,
		Cashflows:      bond.ToCashflows(cents),
		FloatLeg:       leg,
		Curve:          curve,
	})
	if err != nil {
		return aswOutput{}, err
	}
	return aswOutput{TaskID: in.TaskID, SpreadBP: res.SpreadBP, PVBondRF: res.PVBondRF, PV01: res.PV01}, nil
}

// ---------------------------------------------------------------------------
// swap
// ---------------------------------------------------------------------------

type swapInput struct {
	TaskID         string    `json:"task_id,omitempty"`
	EffectiveDate  string    `json:"effective_date"`
	MaturityDate   string    `json:"maturity_date,omitempty"`
	TenorYears     int       `json:"tenor_years,omitempty"`
	SettlementDate string    `json:"settlement_date,omitempty"`
	Notional       float64   `json:"notional"`
	FixedRate      float64   `json:"fixed_rate"`
	Direction      string    `json:"direction"`
	FixedLeg       legJSON   `json:"fixed_leg"`
	FloatLeg       legJSON   `json:"float_leg"`
	LastFixing     float64   `json:"last_fixing,omitempty"`
	Curve          curveJSON `json:"curve"`
}

type swapOutput struct {
	TaskID        string  `json:"task_id,omitempty"`
	FixedLegPV    float64 `json:"fixed_leg_pv"`
	FloatLegPV    float64 `json:"float_leg_pv"`
	NPV           float64 `json:"npv"`
	ParRate       float64 `json:"par_rate"`
	PV01          float64 `json:"pv01"`
	FloatSpreadBP float64 `json:"float_spread_bp"`
	Error         string  `json:"error,omitempty"`
}

func newSwapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "swap",
		Short: "Vanilla fixed/float swap valuation off a discount curve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, cmd, processSwap, func(in swapInput, err error) swapOutput {
				return swapOutput{TaskID: in.TaskID, Error: err.Error()}
			})
		},
	}
}

func processSwap(in swapInput) (swapOutput, error) {
	effective, err := parseDate("effective_date", in.EffectiveDate)
	if err != nil {
		return swapOutput{}, err
	}
	var maturity time.Time
	switch {
	case in.MaturityDate != "":
		if maturity, err = parseDate("maturity_date", in.MaturityDate); err != nil {
			return swapOutput{}, err
		}
	case in.TenorYears > 0:
		maturity = swap.MaturityFromTenor(effective, in.TenorYears)
	default:
		return swapOutput{}, fmt.Errorf("maturity_date or tenor_years is required")
	}
	var settlement time.Time
	if in.SettlementDate != "" {
		if settlement, err = parseDate("settlement_date", in.SettlementDate); err != nil {
			return swapOutput{}, err
		}
	}
	fixedLeg, err := in.FixedLeg.convention()
	if err != nil {
		return swapOutput{}, err
	}
	floatLeg, err := in.FloatLeg.convention()
	if err != nil {
		return swapOutput{}, err
	}
	curve, err := in.Curve.build()
	if err != nil {
		return swapOutput{}, err
	}

	irs := swap.InterestRateSwap{
		Effective:      effective,
		Maturity:       maturity,
		SettlementDate: settlement,
		Notional:       in.Notional,
		FixedRate:      in.FixedRate,
		Direction:      swap.Position(strings.ToUpper(in.Direction)),
		FixedLeg:       fixedLeg,
		FloatLeg:       floatLeg,
		LastFixing:     in.LastFixing,
	}

	out := swapOutput{TaskID: in.TaskID}
	if out.FixedLegPV, out.FloatLegPV, err = irs.PVByLeg(curve); err != nil {
		return swapOutput{}, err
	}
	if out.NPV, err = irs.NPV(curve); err != nil {
		return swapOutput{}, err
	}
	if out.ParRate, err = irs.ParRate(curve); err != nil {
		return swapOutput{}, err
	}
	if out.PV01, err = irs.PV01(curve); err != nil {
		return swapOutput{}, err
	}
	if out.FloatSpreadBP, err = irs.FloatSpreadBP(curve); err != nil {
		return swapOutput{}, err
	}
	return out, nil
}
