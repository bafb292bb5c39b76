package main

import (
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/meenmo/quantlib/execution/adaptive"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

type adaptiveInput struct {
	TaskID              string  `json:"task_id,omitempty"`
	Size                float64 `json:"size"`
	ExecutionTime       float64 `json:"execution_time"`
	Intervals           int     `json:"intervals"`
	RelaxationTime      float64 `json:"relaxation_time"`
	Burstiness          float64 `json:"burstiness"`
	ReferenceVolatility float64 `json:"reference_volatility"`
	ReferenceLiquidity  float64 `json:"reference_liquidity"`
	RiskAversion        float64 `json:"risk_aversion"`
	// MarketStates are observed at the intervals+1 nodes; sampled from the
	// state process when empty.
	MarketStates []float64 `json:"market_states,omitempty"`
	InitialState float64   `json:"initial_state,omitempty"`
	Seed         uint64    `json:"seed,omitempty"`
	// Initializer overrides adaptive.initializer from the config.
	Initializer string `json:"initializer,omitempty"`
}

type determinantJSON struct {
	CostScale             float64 `json:"cost_scale"`
	TradeRateScale        float64 `json:"trade_rate_scale"`
	MeanMarketUrgency     float64 `json:"mean_market_urgency"`
	NonDimensionalUrgency float64 `json:"non_dimensional_urgency"`
}

type staticJSON struct {
	Kappa       float64   `json:"kappa"`
	Holdings    []float64 `json:"holdings"`
	Expectation float64   `json:"expectation"`
	Variance    float64   `json:"variance"`
}

type adaptiveOutput struct {
	TaskID       string           `json:"task_id,omitempty"`
	Determinant  *determinantJSON `json:"determinant,omitempty"`
	Static       *staticJSON      `json:"static,omitempty"`
	Nodes        []float64        `json:"nodes,omitempty"`
	MarketStates []float64        `json:"market_states,omitempty"`
	Holdings     []float64        `json:"holdings,omitempty"`
	TradeRates   []float64        `json:"trade_rates,omitempty"`
	CostToGo     []float64        `json:"cost_to_go,omitempty"`
	RealizedCost float64          `json:"realized_cost"`
	Error        string           `json:"error,omitempty"`
}

func newAdaptiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "adaptive",
		Short: "Adaptive execution under coordinated volatility and liquidity variation",
		Long: `Solves the cost function of the coordinated-variation model and trades
along an observed (or simulated) market state path. The static Almgren-Chriss
schedule at the reference parameters is reported alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, cmd, a.processAdaptive, func(in adaptiveInput, err error) adaptiveOutput {
				return adaptiveOutput{TaskID: in.TaskID, Error: err.Error()}
			})
		},
	}
}

func (a *app) costEvolver(process adaptive.OrnsteinUhlenbeck) (*adaptive.CostEvolver, error) {
	evolver, err := adaptive.NewCostEvolver(process)
	if err != nil {
		return nil, err
	}
	evolver.StateNodes = a.cfg.Adaptive.StateNodes
	evolver.StateWidth = a.cfg.Adaptive.StateWidth
	evolver.MinSubsteps = a.cfg.Adaptive.MinSubsteps
	evolver.Logger = a.logger
	return evolver, nil
}

func (a *app) processAdaptive(in adaptiveInput) (adaptiveOutput, error) {
	process, err := adaptive.NewOrnsteinUhlenbeck(in.RelaxationTime, in.Burstiness)
	if err != nil {
		return adaptiveOutput{}, err
	}
	cv, err := adaptive.NewCoordinatedVariation(in.ReferenceVolatility, in.ReferenceLiquidity)
	if err != nil {
		return adaptiveOutput{}, err
	}
	order, err := strategy.NewOrderSpecification(in.Size, in.ExecutionTime)
	if err != nil {
		return adaptiveOutput{}, err
	}
	mv, err := risk.NewMeanVariance(in.RiskAversion)
	if err != nil {
		return adaptiveOutput{}, err
	}
	initializer := a.cfg.Adaptive.Initializer
	if in.Initializer != "" {
		if initializer, err = adaptive.ParseTradeRateInitializer(in.Initializer); err != nil {
			return adaptiveOutput{}, err
		}
	}
	evolver, err := a.costEvolver(process)
	if err != nil {
		return adaptiveOutput{}, err
	}
	gen, err := adaptive.NewCoordinatedVariationTrajectoryGenerator(order, cv, mv, evolver, initializer)
	if err != nil {
		return adaptiveOutput{}, err
	}

	states := in.MarketStates
	if len(states) == 0 {
		control, err := strategy.FixedInterval(order, in.Intervals)
		if err != nil {
			return adaptiveOutput{}, err
		}
		dt := control.Intervals()[0]
		states, err = process.Path(in.InitialState, dt, in.Intervals, rand.NewPCG(in.Seed, in.Seed^0x9e3779b97f4a7c15))
		if err != nil {
			return adaptiveOutput{}, err
		}
	}

	static, err := gen.GenerateStatic()
	if err != nil {
		return adaptiveOutput{}, err
	}
	dynamic, err := gen.GenerateDynamic(states)
	if err != nil {
		return adaptiveOutput{}, err
	}
	staticTraj, err := static.Trajectory.Sample(dynamic.ExecutionTimeNodes)
	if err != nil {
		return adaptiveOutput{}, err
	}

	det := dynamic.Determinant
	rates := make([]float64, len(dynamic.NonDimensionalTradeRate))
	for i, v := range dynamic.NonDimensionalTradeRate {
		rates[i] = v * det.TradeRateScale
	}

	return adaptiveOutput{
		TaskID: in.TaskID,
		Determinant: &determinantJSON{
			CostScale:             det.CostScale,
			TradeRateScale:        det.TradeRateScale,
			MeanMarketUrgency:     det.MeanMarketUrgency,
			NonDimensionalUrgency: det.NonDimensionalUrgency,
		},
		Static: &staticJSON{
			Kappa:       static.Trajectory.Kappa,
			Holdings:    staticTraj.Holdings,
			Expectation: static.Trajectory.TransactionCostExpectation,
			Variance:    static.Trajectory.TransactionCostVariance,
		},
		Nodes:        dynamic.ExecutionTimeNodes,
		MarketStates: dynamic.MarketStates,
		Holdings:     dynamic.Holdings(),
		TradeRates:   rates,
		CostToGo:     dynamic.CostToGo(),
		RealizedCost: dynamic.RealizedCost,
	}, nil
}
