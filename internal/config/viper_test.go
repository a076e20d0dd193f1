package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/fin-insights/internal/analyticserror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, "logistic", config.Categorization.Backend)
	assert.Equal(t, 5000, config.Categorization.MaxFeatures)
	assert.Equal(t, 3, config.Budget.TrailingMonths)
	assert.Equal(t, 0.1, config.Budget.SavingsRate)
	assert.Equal(t, 0.8, config.Budget.WatchRatio)
	assert.Equal(t, 30, config.Anomaly.SpikeWindow)
	assert.Equal(t, 5, config.Anomaly.SpikeMinSamples)
	assert.Equal(t, 2.5, config.Anomaly.SpikeZThreshold)
	assert.Equal(t, 7, config.Anomaly.DuplicateWindowDays)
	assert.Equal(t, 90, config.Forecast.TrailingDays)
	assert.Equal(t, 14, config.Forecast.MinHistoryDays)
	assert.Equal(t, []int{30, 60, 90}, config.Forecast.Horizons)
	assert.Equal(t, 0.5, config.Goal.BufferRatio)
	assert.Equal(t, 0.2, config.Nudge.GrowthThreshold)
	assert.Equal(t, 30, config.Limits.RunTimeoutSeconds)
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	chdirTemp(t)

	t.Setenv("FININSIGHTS_LOG_LEVEL", "debug")
	t.Setenv("FININSIGHTS_CATEGORIZATION_BACKEND", "bayes")
	t.Setenv("FININSIGHTS_BUDGET_SAVINGS_RATE", "0.25")
	t.Setenv("FININSIGHTS_ANOMALY_SPIKE_Z_THRESHOLD", "3")

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "bayes", config.Categorization.Backend)
	assert.Equal(t, 0.25, config.Budget.SavingsRate)
	assert.Equal(t, 3.0, config.Anomaly.SpikeZThreshold)
}

func TestInitializeConfig_HierarchicalPrecedence(t *testing.T) {
	dir := chdirTemp(t)

	content := `
log:
  level: "warn"
budget:
  trailing_months: 6
forecast:
  trailing_days: 60
  horizons: [7, 14]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	t.Setenv("FININSIGHTS_LOG_LEVEL", "error")

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level)
	assert.Equal(t, 6, config.Budget.TrailingMonths)
	assert.Equal(t, 60, config.Forecast.TrailingDays)
	assert.Equal(t, []int{7, 14}, config.Forecast.Horizons)
}

func TestInitializeConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("goal:\n  buffer_ratio: 0.25\ndata:\n  directory: /srv/fin\n"), 0644))

	config, err := InitializeConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, config.Goal.BufferRatio)
	assert.Equal(t, "/srv/fin", config.Data.Directory)

	_, err = InitializeConfigFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("budget:\n  savings_rate: 2\n"), 0644))
	_, err = InitializeConfigFile(path)
	var cfgErr *analyticserror.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "budget.savings_rate", cfgErr.Field)
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		field        string
	}{
		{"invalid log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"unknown backend", func(c *Config) { c.Categorization.Backend = "svm" }, "categorization.backend"},
		{"savings rate of one", func(c *Config) { c.Budget.SavingsRate = 1 }, "budget.savings_rate"},
		{"negative savings rate", func(c *Config) { c.Budget.SavingsRate = -0.1 }, "budget.savings_rate"},
		{"zero trailing months", func(c *Config) { c.Budget.TrailingMonths = 0 }, "budget.trailing_months"},
		{"window below min samples", func(c *Config) { c.Anomaly.SpikeWindow = 3 }, "anomaly.spike_window"},
		{"zero z threshold", func(c *Config) { c.Anomaly.SpikeZThreshold = 0 }, "anomaly.spike_z_threshold"},
		{"negative duplicate window", func(c *Config) { c.Anomaly.DuplicateWindowDays = -1 }, "anomaly.duplicate_window_days"},
		{"forecast window too long", func(c *Config) { c.Forecast.TrailingDays = 400 }, "forecast.trailing_days"},
		{"no horizons", func(c *Config) { c.Forecast.Horizons = nil }, "forecast.horizons"},
		{"negative horizon", func(c *Config) { c.Forecast.Horizons = []int{30, -1} }, "forecast.horizons"},
		{"zero timeout", func(c *Config) { c.Limits.RunTimeoutSeconds = 0 }, "limits.run_timeout_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			require.NoError(t, validateConfig(config))

			tt.modifyConfig(config)
			err := validateConfig(config)
			require.Error(t, err)

			var cfgErr *analyticserror.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_DataPath(t *testing.T) {
	config := Default()
	assert.Equal(t, "model.gob", config.DataPath("model.gob"))

	config.Data.Directory = "/var/lib/fin"
	assert.Equal(t, filepath.Join("/var/lib/fin", "model.gob"), config.DataPath("model.gob"))
	assert.Equal(t, "/tmp/abs.gob", config.DataPath("/tmp/abs.gob"))
	assert.Equal(t, "", config.DataPath(""))
}

// chdirTemp moves the test into an empty directory so no config.yaml from the
// working tree is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}
