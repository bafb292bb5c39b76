package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meenmo/quantlib/xva"
)

type xvaInput struct {
	TaskID   string  `json:"task_id,omitempty"`
	Payoff   string  `json:"payoff"`
	Strike   float64 `json:"strike"`
	Spot     float64 `json:"spot"`
	Maturity float64 `json:"maturity"`

	Volatility           float64 `json:"volatility"`
	RepoRate             float64 `json:"repo_rate"`
	CashAccumulationRate float64 `json:"cash_accumulation_rate,omitempty"`

	RiskFreeRate           float64 `json:"risk_free_rate"`
	BankHazardRate         float64 `json:"bank_hazard_rate"`
	BankRecovery           float64 `json:"bank_recovery"`
	CounterpartyHazardRate float64 `json:"counterparty_hazard_rate"`
	CounterpartyRecovery   float64 `json:"counterparty_recovery"`
	// CloseOut overrides xva.close_out from the config.
	CloseOut string `json:"close_out,omitempty"`
}

type edgeJSON struct {
	Value float64 `json:"value"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
}

type xvaOutput struct {
	TaskID        string    `json:"task_id,omitempty"`
	CloseOut      string    `json:"close_out,omitempty"`
	RiskFree      *edgeJSON `json:"risk_free,omitempty"`
	Adjusted      *edgeJSON `json:"adjusted,omitempty"`
	XVA           float64   `json:"xva"`
	FundingSpread float64   `json:"funding_spread"`
	TimeSteps     int       `json:"time_steps,omitempty"`
	Error         string    `json:"error,omitempty"`
}

func newXVACmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "xva",
		Short: "Burgard-Kjaer counterparty and funding adjusted value",
		Long: `Solves the risk-free and the credit/funding adjusted pricing PDEs for a
European call, put or forward on a lognormal asset and reports the
adjustment at the input spot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, cmd, a.processXVA, func(in xvaInput, err error) xvaOutput {
				return xvaOutput{TaskID: in.TaskID, Error: err.Error()}
			})
		},
	}
}

func parsePayoff(name string, strike float64) (xva.Payoff, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "call":
		return xva.CallPayoff(strike), nil
	case "put":
		return xva.PutPayoff(strike), nil
	case "forward":
		return xva.ForwardPayoff(strike), nil
	default:
		return nil, fmt.Errorf("unknown payoff %q", name)
	}
}

func (a *app) processXVA(in xvaInput) (xvaOutput, error) {
	payoff, err := parsePayoff(in.Payoff, in.Strike)
	if err != nil {
		return xvaOutput{}, err
	}
	closeOut := a.cfg.XVA.CloseOut
	if in.CloseOut != "" {
		if closeOut, err = xva.ParseCloseOut(strings.ToLower(in.CloseOut)); err != nil {
			return xvaOutput{}, err
		}
	}
	numeraire, err := xva.NewLogarithmicEvolver(in.RepoRate-in.CashAccumulationRate, in.Volatility)
	if err != nil {
		return xvaOutput{}, err
	}

	solver := xva.BurgardKjaer{
		Asset: xva.TradeableAsset{
			Numeraire:            numeraire,
			RepoRate:             in.RepoRate,
			CashAccumulationRate: in.CashAccumulationRate,
		},
		Credit: xva.CreditSpecification{
			RiskFreeRate:           in.RiskFreeRate,
			BankHazardRate:         in.BankHazardRate,
			BankRecovery:           in.BankRecovery,
			CounterpartyHazardRate: in.CounterpartyHazardRate,
			CounterpartyRecovery:   in.CounterpartyRecovery,
			CloseOut:               closeOut,
		},
		Control: a.cfg.XVA.PDEControl(),
		Logger:  a.logger,
	}
	sol, err := solver.Solve(payoff, in.Maturity, in.Spot)
	if err != nil {
		return xvaOutput{}, err
	}

	return xvaOutput{
		TaskID:        in.TaskID,
		CloseOut:      closeOut.String(),
		RiskFree:      &edgeJSON{Value: sol.RiskFreeEdge.Value, Delta: sol.RiskFreeEdge.Delta, Gamma: sol.RiskFreeEdge.Gamma},
		Adjusted:      &edgeJSON{Value: sol.AdjustedEdge.Value, Delta: sol.AdjustedEdge.Delta, Gamma: sol.AdjustedEdge.Gamma},
		XVA:           sol.XVA(),
		FundingSpread: solver.Credit.FundingSpread(),
		TimeSteps:     sol.TimeSteps,
	}, nil
}
