package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/quantlib/portfolio/blacklitterman"
)

type blackLittermanInput struct {
	TaskID        string      `json:"task_id,omitempty"`
	Assets        []string    `json:"assets,omitempty"`
	Covariance    [][]float64 `json:"covariance"`
	MarketWeights []float64   `json:"market_weights"`
	// RiskAversion is δ; when zero it is derived from the market excess
	// return and variance.
	RiskAversion       float64     `json:"risk_aversion,omitempty"`
	MarketExcessReturn float64     `json:"market_excess_return,omitempty"`
	MarketVariance     float64     `json:"market_variance,omitempty"`
	Tau                float64     `json:"tau"`
	RiskFreeRate       float64     `json:"risk_free_rate"`
	Alternate          bool        `json:"alternate_reference_model,omitempty"`
	ViewLoadings       [][]float64 `json:"view_loadings,omitempty"`
	ViewReturns        []float64   `json:"view_returns,omitempty"`
	ViewUncertainty    [][]float64 `json:"view_uncertainty,omitempty"`
}

type blackLittermanOutput struct {
	TaskID                 string      `json:"task_id,omitempty"`
	Assets                 []string    `json:"assets,omitempty"`
	RiskAversion           float64     `json:"risk_aversion"`
	PriorExcessReturns     []float64   `json:"prior_excess_returns,omitempty"`
	PosteriorExcessReturns []float64   `json:"posterior_excess_returns,omitempty"`
	PosteriorTotalReturns  []float64   `json:"posterior_total_returns,omitempty"`
	PosteriorWeights       []float64   `json:"posterior_weights,omitempty"`
	PosteriorCovariance    [][]float64 `json:"posterior_covariance,omitempty"`
	Uncertainty            [][]float64 `json:"uncertainty,omitempty"`
	Error                  string      `json:"error,omitempty"`
}

func newBlackLittermanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "blacklitterman",
		Aliases: []string{"bl"},
		Short:   "Black-Litterman posterior returns and weights",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, cmd, processBlackLitterman, func(in blackLittermanInput, err error) blackLittermanOutput {
				return blackLittermanOutput{TaskID: in.TaskID, Assets: in.Assets, Error: err.Error()}
			})
		},
	}
}

func processBlackLitterman(in blackLittermanInput) (blackLittermanOutput, error) {
	if len(in.Assets) > 0 && len(in.Assets) != len(in.MarketWeights) {
		return blackLittermanOutput{}, fmt.Errorf("%d asset names for %d weights", len(in.Assets), len(in.MarketWeights))
	}
	delta := in.RiskAversion
	if delta == 0 {
		var err error
		if delta, err = blacklitterman.RiskAversion(in.MarketExcessReturn, in.MarketVariance); err != nil {
			return blackLittermanOutput{}, err
		}
	}
	spec, err := blacklitterman.NewPriorControlSpecification(in.Alternate, in.RiskFreeRate, in.Tau)
	if err != nil {
		return blackLittermanOutput{}, err
	}
	prior, err := blacklitterman.NewPrior(in.Covariance, in.MarketWeights, delta)
	if err != nil {
		return blackLittermanOutput{}, err
	}
	views, err := blacklitterman.NewViewSet(in.ViewLoadings, in.ViewReturns, in.ViewUncertainty)
	if err != nil {
		return blackLittermanOutput{}, err
	}
	res, err := blacklitterman.Combine(prior, views, spec)
	if err != nil {
		return blackLittermanOutput{}, err
	}

	return blackLittermanOutput{
		TaskID:                 in.TaskID,
		Assets:                 in.Assets,
		RiskAversion:           delta,
		PriorExcessReturns:     res.PriorExcessReturns,
		PosteriorExcessReturns: res.PosteriorExcessReturns,
		PosteriorTotalReturns:  res.PosteriorTotalReturns,
		PosteriorWeights:       res.PosteriorWeights,
		PosteriorCovariance:    symRows(res.PosteriorCovariance),
		Uncertainty:            symRows(res.Uncertainty),
	}, nil
}

func symRows(s *mat.SymDense) [][]float64 {
	if s == nil {
		return nil
	}
	n := s.SymmetricDim()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = s.At(i, j)
		}
	}
	return rows
}
