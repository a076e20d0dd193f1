// Package config provides Viper-based hierarchical configuration management.
// Every threshold used by the analytics modules is a named key so that runs are
// reproducible from a config file.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"fjacquet/fin-insights/internal/analyticserror"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "FININSIGHTS"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Data struct {
		Directory        string `mapstructure:"directory" yaml:"directory"`
		SnapshotDB       string `mapstructure:"snapshot_db" yaml:"snapshot_db"`
		FeedbackDB       string `mapstructure:"feedback_db" yaml:"feedback_db"`
		ModelFile        string `mapstructure:"model_file" yaml:"model_file"`
		ExamplesFile     string `mapstructure:"examples_file" yaml:"examples_file"`
		KeywordRulesFile string `mapstructure:"keyword_rules_file" yaml:"keyword_rules_file"`
		RecurringFile    string `mapstructure:"recurring_file" yaml:"recurring_file"`
		DebtsFile        string `mapstructure:"debts_file" yaml:"debts_file"`
	} `mapstructure:"data" yaml:"data"`

	Categorization struct {
		Backend       string  `mapstructure:"backend" yaml:"backend"`
		MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
		Strict        bool    `mapstructure:"strict" yaml:"strict"`
		MaxFeatures   int     `mapstructure:"max_features" yaml:"max_features"`
		Epochs        int     `mapstructure:"epochs" yaml:"epochs"`
		LearningRate  float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
		L2            float64 `mapstructure:"l2" yaml:"l2"`
	} `mapstructure:"categorization" yaml:"categorization"`

	Budget struct {
		TrailingMonths  int     `mapstructure:"trailing_months" yaml:"trailing_months"`
		SavingsRate     float64 `mapstructure:"savings_rate" yaml:"savings_rate"`
		OverspendMargin float64 `mapstructure:"overspend_margin" yaml:"overspend_margin"`
		WatchRatio      float64 `mapstructure:"watch_ratio" yaml:"watch_ratio"`
	} `mapstructure:"budget" yaml:"budget"`

	Anomaly struct {
		SpikeWindow         int     `mapstructure:"spike_window" yaml:"spike_window"`
		SpikeMinSamples     int     `mapstructure:"spike_min_samples" yaml:"spike_min_samples"`
		SpikeZThreshold     float64 `mapstructure:"spike_z_threshold" yaml:"spike_z_threshold"`
		DuplicateWindowDays int     `mapstructure:"duplicate_window_days" yaml:"duplicate_window_days"`
		PacingMargin        float64 `mapstructure:"pacing_margin" yaml:"pacing_margin"`
	} `mapstructure:"anomaly" yaml:"anomaly"`

	Forecast struct {
		TrailingDays   int     `mapstructure:"trailing_days" yaml:"trailing_days"`
		MinHistoryDays int     `mapstructure:"min_history_days" yaml:"min_history_days"`
		Horizons       []int   `mapstructure:"horizons" yaml:"horizons"`
		OpeningBalance float64 `mapstructure:"opening_balance" yaml:"opening_balance"`
	} `mapstructure:"forecast" yaml:"forecast"`

	Goal struct {
		BufferRatio float64 `mapstructure:"buffer_ratio" yaml:"buffer_ratio"`
	} `mapstructure:"goal" yaml:"goal"`

	Nudge struct {
		GrowthThreshold float64 `mapstructure:"growth_threshold" yaml:"growth_threshold"`
		SafetyFloor     float64 `mapstructure:"safety_floor" yaml:"safety_floor"`
	} `mapstructure:"nudge" yaml:"nudge"`

	Limits struct {
		MaxHistory        int `mapstructure:"max_history" yaml:"max_history"`
		RunTimeoutSeconds int `mapstructure:"run_timeout_seconds" yaml:"run_timeout_seconds"`
	} `mapstructure:"limits" yaml:"limits"`

	API struct {
		Address        string   `mapstructure:"address" yaml:"address"`
		AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	} `mapstructure:"api" yaml:"api"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading:
// defaults, then config.yaml, then FININSIGHTS_* environment variables.
func InitializeConfig() (*Config, error) {
	return InitializeConfigFile("")
}

// InitializeConfigFile is InitializeConfig with an explicit config file. An
// empty path searches the standard locations.
func InitializeConfigFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.fin-insights")
		v.AddConfigPath(".fin-insights")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration holding only the default values.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults are static; unmarshalling them cannot fail.
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("data.directory", "")
	v.SetDefault("data.snapshot_db", "ledger.db")
	v.SetDefault("data.feedback_db", "feedback.bolt")
	v.SetDefault("data.model_file", "model.gob")
	v.SetDefault("data.examples_file", "")
	v.SetDefault("data.keyword_rules_file", "")
	v.SetDefault("data.recurring_file", "recurring.yaml")
	v.SetDefault("data.debts_file", "debts.yaml")

	v.SetDefault("categorization.backend", "logistic")
	v.SetDefault("categorization.min_confidence", 0.5)
	v.SetDefault("categorization.strict", false)
	v.SetDefault("categorization.max_features", 5000)
	v.SetDefault("categorization.epochs", 300)
	v.SetDefault("categorization.learning_rate", 2.0)
	v.SetDefault("categorization.l2", 0.0001)

	v.SetDefault("budget.trailing_months", 3)
	v.SetDefault("budget.savings_rate", 0.1)
	v.SetDefault("budget.overspend_margin", 0.0)
	v.SetDefault("budget.watch_ratio", 0.8)

	v.SetDefault("anomaly.spike_window", 30)
	v.SetDefault("anomaly.spike_min_samples", 5)
	v.SetDefault("anomaly.spike_z_threshold", 2.5)
	v.SetDefault("anomaly.duplicate_window_days", 7)
	v.SetDefault("anomaly.pacing_margin", 0.0)

	v.SetDefault("forecast.trailing_days", 90)
	v.SetDefault("forecast.min_history_days", 14)
	v.SetDefault("forecast.horizons", []int{30, 60, 90})
	v.SetDefault("forecast.opening_balance", 0.0)

	v.SetDefault("goal.buffer_ratio", 0.5)

	v.SetDefault("nudge.growth_threshold", 0.2)
	v.SetDefault("nudge.safety_floor", 0.0)

	v.SetDefault("limits.max_history", 100000)
	v.SetDefault("limits.run_timeout_seconds", 30)

	v.SetDefault("api.address", "127.0.0.1:8080")
	v.SetDefault("api.allowed_origins", []string{"http://localhost:8501"})
}

// Validate checks every threshold of c, for use after programmatic overrides.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return invalid("log.level", config.Log.Level, "unknown log level")
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return invalid("log.format", config.Log.Format, "must be 'text' or 'json'")
	}

	c := config.Categorization
	if c.Backend != "logistic" && c.Backend != "bayes" {
		return invalid("categorization.backend", c.Backend, "must be 'logistic' or 'bayes'")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return invalid("categorization.min_confidence", ftoa(c.MinConfidence), "must be between 0 and 1")
	}
	if c.MaxFeatures < 1 {
		return invalid("categorization.max_features", strconv.Itoa(c.MaxFeatures), "must be positive")
	}
	if c.Epochs < 1 {
		return invalid("categorization.epochs", strconv.Itoa(c.Epochs), "must be positive")
	}
	if c.LearningRate <= 0 {
		return invalid("categorization.learning_rate", ftoa(c.LearningRate), "must be positive")
	}
	if c.L2 < 0 {
		return invalid("categorization.l2", ftoa(c.L2), "must not be negative")
	}

	b := config.Budget
	if b.TrailingMonths < 1 || b.TrailingMonths > 24 {
		return invalid("budget.trailing_months", strconv.Itoa(b.TrailingMonths), "must be between 1 and 24")
	}
	if b.SavingsRate < 0 || b.SavingsRate >= 1 {
		return invalid("budget.savings_rate", ftoa(b.SavingsRate), "must be in [0,1)")
	}
	if b.OverspendMargin < 0 {
		return invalid("budget.overspend_margin", ftoa(b.OverspendMargin), "must not be negative")
	}
	if b.WatchRatio <= 0 || b.WatchRatio > 1 {
		return invalid("budget.watch_ratio", ftoa(b.WatchRatio), "must be in (0,1]")
	}

	a := config.Anomaly
	if a.SpikeMinSamples < 2 {
		return invalid("anomaly.spike_min_samples", strconv.Itoa(a.SpikeMinSamples), "must be at least 2")
	}
	if a.SpikeWindow < a.SpikeMinSamples {
		return invalid("anomaly.spike_window", strconv.Itoa(a.SpikeWindow), "must be at least spike_min_samples")
	}
	if a.SpikeZThreshold <= 0 {
		return invalid("anomaly.spike_z_threshold", ftoa(a.SpikeZThreshold), "must be positive")
	}
	if a.DuplicateWindowDays < 0 {
		return invalid("anomaly.duplicate_window_days", strconv.Itoa(a.DuplicateWindowDays), "must not be negative")
	}
	if a.PacingMargin < 0 {
		return invalid("anomaly.pacing_margin", ftoa(a.PacingMargin), "must not be negative")
	}

	f := config.Forecast
	if f.TrailingDays < 1 || f.TrailingDays > 365 {
		return invalid("forecast.trailing_days", strconv.Itoa(f.TrailingDays), "must be between 1 and 365")
	}
	if f.MinHistoryDays < 1 {
		return invalid("forecast.min_history_days", strconv.Itoa(f.MinHistoryDays), "must be positive")
	}
	if len(f.Horizons) == 0 {
		return invalid("forecast.horizons", "", "at least one horizon is required")
	}
	for _, h := range f.Horizons {
		if h < 1 {
			return invalid("forecast.horizons", strconv.Itoa(h), "horizons must be positive")
		}
	}

	if config.Goal.BufferRatio < 0 {
		return invalid("goal.buffer_ratio", ftoa(config.Goal.BufferRatio), "must not be negative")
	}
	if config.Nudge.GrowthThreshold < 0 {
		return invalid("nudge.growth_threshold", ftoa(config.Nudge.GrowthThreshold), "must not be negative")
	}

	if config.Limits.MaxHistory < 1 {
		return invalid("limits.max_history", strconv.Itoa(config.Limits.MaxHistory), "must be positive")
	}
	if config.Limits.RunTimeoutSeconds < 1 || config.Limits.RunTimeoutSeconds > 3600 {
		return invalid("limits.run_timeout_seconds", strconv.Itoa(config.Limits.RunTimeoutSeconds), "must be between 1 and 3600")
	}

	return nil
}

// DataPath resolves a data file name against Data.Directory. Absolute paths
// and empty names are returned unchanged.
func (c *Config) DataPath(name string) string {
	if name == "" || filepath.IsAbs(name) || c.Data.Directory == "" {
		return name
	}
	return filepath.Join(c.Data.Directory, name)
}

func invalid(field, value, reason string) error {
	return &analyticserror.ConfigError{Field: field, Value: value, Reason: reason}
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
