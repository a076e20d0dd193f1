// Package root contains the root command for the application
package root

import (
	"fmt"
	"sync"

	"fjacquet/fin-insights/internal/config"
	"fjacquet/fin-insights/internal/container"
	"fjacquet/fin-insights/internal/logging"

	"github.com/spf13/cobra"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigFile string
	DataDir    string
	LogLevel   string
	LogFormat  string
	// Format selects the command output: text, json or yaml.
	Format string
}

var (
	// Log is the shared logger instance for commands
	Log = logging.NewLogrusAdapter("info", "text")

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "fin-insights",
		Short: "Personal finance analytics over a local transaction ledger.",
		Long: `fin-insights imports transactions into a local ledger, labels them with a
trained classifier and derives budgets, anomalies, balance forecasts, savings
plans and prioritized nudges from them.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return Setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			Teardown()
		},
	}

	// Flags holds the values of the persistent flags.
	Flags = GlobalFlags{}

	mu      sync.Mutex
	cfg     *config.Config
	current *container.Container
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&Flags.ConfigFile, "config", "c", "", "Config file (default: config.yaml in $HOME/.fin-insights, .fin-insights or .)")
	Cmd.PersistentFlags().StringVarP(&Flags.DataDir, "data-dir", "d", "", "Directory holding the ledger, feedback log and model")
	Cmd.PersistentFlags().StringVar(&Flags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&Flags.LogFormat, "log-format", "", "Log format (text or json)")
	Cmd.PersistentFlags().StringVarP(&Flags.Format, "format", "f", "text", "Output format (text, json or yaml)")
}

// Setup loads the configuration, applies the flag overrides and configures
// the shared logger.
func Setup() error {
	config.LoadEnv()
	c, err := config.InitializeConfigFile(Flags.ConfigFile)
	if err != nil {
		return err
	}
	if Flags.DataDir != "" {
		c.Data.Directory = Flags.DataDir
	}
	if Flags.LogLevel != "" {
		c.Log.Level = Flags.LogLevel
	}
	if Flags.LogFormat != "" {
		c.Log.Format = Flags.LogFormat
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch Flags.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format: %s", Flags.Format)
	}

	mu.Lock()
	defer mu.Unlock()
	cfg = c
	Log = logging.NewLogrusAdapter(c.Log.Level, c.Log.Format)
	Log.Debug("Configuration loaded", logging.F("data_dir", c.Data.Directory))
	return nil
}

// Config returns the configuration loaded by Setup.
func Config() *config.Config {
	mu.Lock()
	defer mu.Unlock()
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg
}

// Container returns the application container, creating it on first use.
// It stays open until Teardown.
func Container() (*container.Container, error) {
	c := Config()
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return current, nil
	}
	built, err := container.NewContainer(c, container.WithLogger(Log))
	if err != nil {
		return nil, err
	}
	current = built
	return current, nil
}

// Teardown closes the container if one was created.
func Teardown() {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return
	}
	if err := current.Close(); err != nil {
		Log.WithError(err).Warn("Failed to close container")
	}
	current = nil
}
