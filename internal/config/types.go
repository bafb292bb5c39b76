package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/meenmo/quantlib/execution/adaptive"
	"github.com/meenmo/quantlib/xva"
)

// Config aggregates every setting the CLI needs.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Adaptive  AdaptiveConfig  `mapstructure:"adaptive"`
	XVA       XVAConfig       `mapstructure:"xva"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// OutputConfig controls how results are written.
type OutputConfig struct {
	// Format is "json" or "yaml".
	Format string `mapstructure:"format"`
	Indent int    `mapstructure:"indent"`
}

// OptimizerConfig feeds generator.NumericalSettings.
type OptimizerConfig struct {
	GradientThreshold float64 `mapstructure:"gradient_threshold"`
	MajorIterations   int     `mapstructure:"major_iterations"`
}

// AdaptiveConfig sizes the cost evolver grid.
type AdaptiveConfig struct {
	StateNodes  int                           `mapstructure:"state_nodes"`
	StateWidth  float64                       `mapstructure:"state_width"`
	MinSubsteps int                           `mapstructure:"min_substeps"`
	Initializer adaptive.TradeRateInitializer `mapstructure:"initializer"`
}

// XVAConfig sizes the Burgard-Kjaer grid.
type XVAConfig struct {
	SpotNodes    int          `mapstructure:"spot_nodes"`
	SpotMultiple float64      `mapstructure:"spot_multiple"`
	TimeSteps    int          `mapstructure:"time_steps"`
	CloseOut     xva.CloseOut `mapstructure:"close_out"`
}

// PDEControl converts the section into the solver's grid control.
func (c XVAConfig) PDEControl() xva.PDEControl {
	return xva.PDEControl{SpotNodes: c.SpotNodes, SpotMultiple: c.SpotMultiple, TimeSteps: c.TimeSteps}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level must not be empty"))
	}
	if c.Logging.Encoding != "console" && c.Logging.Encoding != "json" {
		err = multierr.Append(err, fmt.Errorf("logging.encoding must be console or json, got %q", c.Logging.Encoding))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths needs at least one target"))
	}
	if c.Output.Format != "json" && c.Output.Format != "yaml" {
		err = multierr.Append(err, fmt.Errorf("output.format must be json or yaml, got %q", c.Output.Format))
	}
	if c.Output.Indent < 0 {
		err = multierr.Append(err, errors.New("output.indent must not be negative"))
	}
	if !(c.Optimizer.GradientThreshold > 0) {
		err = multierr.Append(err, errors.New("optimizer.gradient_threshold must be positive"))
	}
	if c.Optimizer.MajorIterations <= 0 {
		err = multierr.Append(err, errors.New("optimizer.major_iterations must be positive"))
	}
	if c.Adaptive.StateNodes < 3 {
		err = multierr.Append(err, errors.New("adaptive.state_nodes must be at least 3"))
	}
	if !(c.Adaptive.StateWidth > 0) {
		err = multierr.Append(err, errors.New("adaptive.state_width must be positive"))
	}
	if c.Adaptive.MinSubsteps <= 0 {
		err = multierr.Append(err, errors.New("adaptive.min_substeps must be positive"))
	}
	err = multierr.Append(err, c.XVA.PDEControl().Validate())

	if err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}

	return nil
}
