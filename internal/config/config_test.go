package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/quantlib/execution/adaptive"
	"github.com/meenmo/quantlib/internal/config"
	"github.com/meenmo/quantlib/xva"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quantlib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, adaptive.DefaultStateNodes, cfg.Adaptive.StateNodes)
	assert.Equal(t, adaptive.TradeRateZeroInitialization, cfg.Adaptive.Initializer)
	assert.Equal(t, xva.CloseOutRiskFree, cfg.XVA.CloseOut)
	assert.Equal(t, xva.DefaultPDEControl(), cfg.XVA.PDEControl())
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
logging:
  level: debug
  encoding: json
output:
  format: yaml
optimizer:
  major_iterations: 200
adaptive:
  state_nodes: 61
  initializer: static
xva:
  spot_nodes: 121
  close_out: Risky
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, 200, cfg.Optimizer.MajorIterations)
	assert.InDelta(t, 1e-10, cfg.Optimizer.GradientThreshold, 1e-20)
	assert.Equal(t, 61, cfg.Adaptive.StateNodes)
	assert.Equal(t, adaptive.TradeRateStaticInitialization, cfg.Adaptive.Initializer)
	assert.Equal(t, 121, cfg.XVA.SpotNodes)
	assert.Equal(t, xva.CloseOutRisky, cfg.XVA.CloseOut)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
output:
  format: xml
optimizer:
  major_iterations: 0
xva:
  spot_nodes: 2
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
	assert.Contains(t, err.Error(), "optimizer.major_iterations")
	assert.Contains(t, err.Error(), "spot nodes")
}

func TestLoadRejectsUnknownInitializer(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "adaptive:\n  initializer: eager\n")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("QUANTLIB_OUTPUT_FORMAT", "yaml")
	t.Setenv("QUANTLIB_LOGGING_OUTPUT_PATHS", "stdout,stderr")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, []string{"stdout", "stderr"}, cfg.Logging.OutputPaths)
}
