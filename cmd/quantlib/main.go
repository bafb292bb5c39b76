// Command quantlib runs the library's pricing and execution models over JSON
// inputs read from a file or stdin.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meenmo/quantlib/internal/config"
	qlog "github.com/meenmo/quantlib/internal/log"
)

// errBatchFailed marks a run where at least one input reported an error.
var errBatchFailed = errors.New("one or more inputs failed")

type app struct {
	configPath string
	inputPath  string
	format     string

	cfg    *config.Config
	logger *zap.Logger
	runID  string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "quantlib",
		Short: "Execution, XVA, portfolio and fixed income analytics",
		Long: `quantlib evaluates one model per subcommand.

Each subcommand reads a JSON object, or an array of objects, from --input or
stdin and writes one result per input as JSON or YAML. Inputs that fail are
reported in place with an "error" field and the command exits non-zero.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config path (defaults and QUANTLIB_* env when omitted)")
	flags.StringVarP(&a.inputPath, "input", "i", "", "JSON input path (reads stdin if omitted)")
	flags.StringVarP(&a.format, "output", "o", "", "output format: json or yaml (overrides config)")

	rootCmd.AddCommand(
		newTrajectoryCmd(a),
		newAdaptiveCmd(a),
		newBlackLittermanCmd(a),
		newXVACmd(a),
		newFwdYieldCmd(a),
		newASWSpreadCmd(a),
		newSwapCmd(a),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.format != "" {
		cfg.Output.Format = a.format
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	logger, err := qlog.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	a.runID = uuid.NewString()
	a.logger = logger.With(zap.String("run_id", a.runID))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errBatchFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
