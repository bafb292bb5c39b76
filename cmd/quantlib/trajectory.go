package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/quantlib/execution/capture"
	"github.com/meenmo/quantlib/execution/dynamics"
	"github.com/meenmo/quantlib/execution/generator"
	"github.com/meenmo/quantlib/execution/risk"
	"github.com/meenmo/quantlib/execution/strategy"
)

type trajectoryInput struct {
	TaskID string `json:"task_id,omitempty"`
	// Model is ac2000, continuous, constant-te, numerical or almgren2003.
	Model         string       `json:"model"`
	Size          float64      `json:"size"`
	ExecutionTime float64      `json:"execution_time"`
	Intervals     int          `json:"intervals"`
	Dynamics      dynamicsJSON `json:"dynamics"`
	Impact        impactJSON   `json:"impact"`
	RiskAversion  float64      `json:"risk_aversion"`
	// VaRConfidence switches the numerical model to a value-at-risk objective.
	VaRConfidence float64 `json:"var_confidence,omitempty"`
	LotSize       float64 `json:"lot_size,omitempty"`
	Simulations   int     `json:"simulations,omitempty"`
	Seed          uint64  `json:"seed,omitempty"`
}

// dynamicsJSON is resolved in order: closes, annualised quote, per-epoch values.
type dynamicsJSON struct {
	Closes           []float64 `json:"closes,omitempty"`
	Window           int       `json:"window,omitempty"`
	AnnualReturn     float64   `json:"annual_return,omitempty"`
	AnnualVolatility float64   `json:"annual_volatility,omitempty"`
	Price            float64   `json:"price,omitempty"`
	Drift            float64   `json:"drift,omitempty"`
	Volatility       float64   `json:"volatility,omitempty"`
}

type linearJSON struct {
	Offset float64 `json:"offset"`
	Slope  float64 `json:"slope"`
}

type liquidityJSON struct {
	Price             float64 `json:"price"`
	DailyVolume       float64 `json:"daily_volume"`
	BidAsk            float64 `json:"bid_ask"`
	PermanentFraction float64 `json:"permanent_fraction"`
	TemporaryFraction float64 `json:"temporary_fraction"`
}

type impactJSON struct {
	Permanent           linearJSON     `json:"permanent"`
	Temporary           linearJSON     `json:"temporary"`
	TemporaryVolatility linearJSON     `json:"temporary_volatility"`
	Liquidity           *liquidityJSON `json:"liquidity,omitempty"`
}

type simulationJSON struct {
	Paths  int     `json:"paths"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type trajectoryOutput struct {
	TaskID             string          `json:"task_id,omitempty"`
	Model              string          `json:"model,omitempty"`
	Nodes              []float64       `json:"nodes,omitempty"`
	Holdings           []float64       `json:"holdings,omitempty"`
	TradeList          []float64       `json:"trade_list,omitempty"`
	Expectation        float64         `json:"expectation"`
	Variance           float64         `json:"variance"`
	Utility            float64         `json:"utility"`
	Kappa              *float64        `json:"kappa,omitempty"`
	HalfLife           *float64        `json:"half_life,omitempty"`
	CharacteristicTime *float64        `json:"characteristic_time,omitempty"`
	CharacteristicSize *float64        `json:"characteristic_size,omitempty"`
	Simulation         *simulationJSON `json:"simulation,omitempty"`
	Error              string          `json:"error,omitempty"`
}

func newTrajectoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trajectory",
		Short: "Optimal execution trajectory for a block order",
		Long: `Computes a cost-efficient liquidation schedule.

Models:
  ac2000       discrete Almgren-Chriss closed form
  continuous   continuous Almgren-Chriss sampled on the nodes
  constant-te  continuous schedule with constant trading-enhanced risk
  numerical    L-BFGS over the holdings (mean-variance or value-at-risk)
  almgren2003  linear trading-enhanced risk, solved numerically`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, cmd, a.processTrajectory, func(in trajectoryInput, err error) trajectoryOutput {
				return trajectoryOutput{TaskID: in.TaskID, Model: in.Model, Error: err.Error()}
			})
		},
	}
}

func (d dynamicsJSON) resolve() (dynamics.ArithmeticPriceDynamicsSettings, error) {
	switch {
	case len(d.Closes) > 0:
		return dynamics.EstimateFromCloses(d.Closes, d.Window)
	case d.Price > 0:
		return dynamics.FromAnnualReturnsSettings(d.AnnualReturn, d.AnnualVolatility, 0, d.Price)
	default:
		return dynamics.NewArithmeticPriceDynamicsSettings(d.Drift, d.Volatility, 0)
	}
}

func (i impactJSON) resolve(settings dynamics.ArithmeticPriceDynamicsSettings) (dynamics.PriceEvolutionParameters, error) {
	params := dynamics.PriceEvolutionParameters{
		Dynamics:            settings,
		Permanent:           dynamics.ParticipationRateLinear(i.Permanent),
		Temporary:           dynamics.ParticipationRateLinear(i.Temporary),
		TemporaryVolatility: dynamics.ParticipationRateLinear(i.TemporaryVolatility),
	}
	if l := i.Liquidity; l != nil {
		permanent, temporary, err := dynamics.PriceMarketImpactLinear(
			dynamics.AssetTransactionSettings{Price: l.Price, DailyVolume: l.DailyVolume, BidAsk: l.BidAsk},
			l.PermanentFraction, l.TemporaryFraction,
		)
		if err != nil {
			return dynamics.PriceEvolutionParameters{}, err
		}
		params.Permanent, params.Temporary = permanent, temporary
	}
	if err := params.Validate(); err != nil {
		return dynamics.PriceEvolutionParameters{}, err
	}
	return params, nil
}

func (a *app) numericalSettings() generator.NumericalSettings {
	return generator.NumericalSettings{
		GradientThreshold: a.cfg.Optimizer.GradientThreshold,
		MajorIterations:   a.cfg.Optimizer.MajorIterations,
		Logger:            a.logger,
	}
}

func (a *app) processTrajectory(in trajectoryInput) (trajectoryOutput, error) {
	settings, err := in.Dynamics.resolve()
	if err != nil {
		return trajectoryOutput{}, err
	}
	params, err := in.Impact.resolve(settings)
	if err != nil {
		return trajectoryOutput{}, err
	}
	order, err := strategy.NewOrderSpecification(in.Size, in.ExecutionTime)
	if err != nil {
		return trajectoryOutput{}, err
	}
	control, err := strategy.FixedInterval(order, in.Intervals)
	if err != nil {
		return trajectoryOutput{}, err
	}
	mv, err := risk.NewMeanVariance(in.RiskAversion)
	if err != nil {
		return trajectoryOutput{}, err
	}

	model := strings.ToLower(strings.TrimSpace(in.Model))
	out := trajectoryOutput{TaskID: in.TaskID, Model: model}
	var traj strategy.DiscreteTrajectory
	var utility risk.ObjectiveUtility = mv

	switch model {
	case "ac2000", "":
		out.Model = "ac2000"
		res, err := generator.AlmgrenChriss2000(control, params, mv)
		if err != nil {
			return trajectoryOutput{}, err
		}
		traj = res.DiscreteTrajectory
		out.Kappa = finite(res.Kappa)
		out.HalfLife = finite(res.HalfLife())
	case "continuous", "constant-te":
		generate := generator.ContinuousAlmgrenChriss
		if model == "constant-te" {
			generate = generator.ConstantTradingEnhanced
		}
		res, err := generate(order, params, mv)
		if err != nil {
			return trajectoryOutput{}, err
		}
		traj, err = res.Sample(control.ExecutionTimeNodes)
		if err != nil {
			return trajectoryOutput{}, err
		}
		out.Kappa = finite(res.Kappa)
		out.HalfLife = finite(res.HalfLife())
	case "numerical":
		if in.VaRConfidence > 0 {
			utility, err = risk.NewValueAtRisk(in.VaRConfidence)
			if err != nil {
				return trajectoryOutput{}, err
			}
		}
		res, err := generator.OptimalDiscrete(control, params, utility, a.numericalSettings())
		if err != nil {
			return trajectoryOutput{}, err
		}
		traj = res.DiscreteTrajectory
	case "almgren2003":
		res, err := generator.Almgren2003LinearTradingEnhanced(control, params, mv, a.numericalSettings())
		if err != nil {
			return trajectoryOutput{}, err
		}
		traj = res.DiscreteTrajectory
		out.CharacteristicTime = finite(res.CharacteristicTime)
		out.CharacteristicSize = finite(res.CharacteristicSize)
	default:
		return trajectoryOutput{}, fmt.Errorf("unknown model %q", in.Model)
	}

	if in.LotSize > 0 {
		traj, err = traj.RoundToLots(in.LotSize)
		if err != nil {
			return trajectoryOutput{}, err
		}
	}

	syn, err := capture.TotalCostDistributionSynopsis(traj, params)
	if err != nil {
		return trajectoryOutput{}, err
	}
	out.Nodes = traj.ExecutionTimeNodes
	out.Holdings = traj.Holdings
	out.TradeList = traj.TradeList
	out.Expectation = syn.Mean
	out.Variance = syn.Variance
	out.Utility = utility.Utility(syn.Mean, syn.Variance)

	if in.Simulations > 0 {
		draws, err := capture.Simulate(traj, params, in.Simulations, rand.NewPCG(in.Seed, in.Seed^0x9e3779b97f4a7c15))
		if err != nil {
			return trajectoryOutput{}, err
		}
		mean, std := stat.MeanStdDev(draws, nil)
		out.Simulation = &simulationJSON{Paths: in.Simulations, Mean: mean, StdDev: std}
	}
	return out, nil
}

// finite returns nil for values JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
