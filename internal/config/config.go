// Package config loads the quantlib CLI configuration from YAML and
// QUANTLIB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/meenmo/quantlib/execution/adaptive"
	"github.com/meenmo/quantlib/xva"
)

const envPrefix = "quantlib"

// Load reads the configuration file at path, overlays environment variables
// and validates the result. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: file %q not found: %w", path, err)
			}
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration Load produces with no file and a clean environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("output.format", "json")
	v.SetDefault("output.indent", 2)

	v.SetDefault("optimizer.gradient_threshold", 1e-10)
	v.SetDefault("optimizer.major_iterations", 5000)

	v.SetDefault("adaptive.state_nodes", adaptive.DefaultStateNodes)
	v.SetDefault("adaptive.state_width", adaptive.DefaultStateWidth)
	v.SetDefault("adaptive.min_substeps", adaptive.DefaultMinSubsteps)
	v.SetDefault("adaptive.initializer", "zero")

	v.SetDefault("xva.spot_nodes", xva.DefaultSpotNodes)
	v.SetDefault("xva.spot_multiple", xva.DefaultSpotMultiple)
	v.SetDefault("xva.time_steps", 0)
	v.SetDefault("xva.close_out", "risk-free")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			stringToEnumHookFunc(),
		)
	}
}

// stringToEnumHookFunc decodes the named initializer and close-out conventions.
func stringToEnumHookFunc() mapstructure.DecodeHookFuncType {
	initializerType := reflect.TypeOf(adaptive.TradeRateInitializer(0))
	closeOutType := reflect.TypeOf(xva.CloseOut(0))
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		name := strings.ToLower(strings.TrimSpace(data.(string)))
		switch to {
		case initializerType:
			return adaptive.ParseTradeRateInitializer(name)
		case closeOutType:
			return xva.ParseCloseOut(name)
		default:
			return data, nil
		}
	}
}
