package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/config-puller/internal/artifact"
	"github.com/timvw/config-puller/internal/config"
	"github.com/timvw/config-puller/internal/extractor"
	"github.com/timvw/config-puller/internal/logger"
	"github.com/timvw/config-puller/internal/model"
	telem "github.com/timvw/config-puller/internal/otel"
	"github.com/timvw/config-puller/internal/transport"
)

var (
	// Global flags.
	flagConfig    string
	flagPort      string
	flagHostname  string
	flagOutput    string
	flagLogLevel  string
	flagLogFormat string
)

// cfg is the merged configuration, loaded before any subcommand runs.
var cfg *config.Config

// restoreLogger undoes logger.Install on exit.
var restoreLogger = func() {}

var rootCmd = &cobra.Command{
	Use:   "config-puller",
	Short: "Pull running configuration from a network device over its serial console",
	Long: `config-puller drives a network device's serial console into privileged
exec mode, runs a list of show commands and saves their combined output
to a plain text file.

Configuration is loaded from --config, .config-puller.yaml or
~/.config/config-puller/config.yaml, then CONFIG_PULLER_* environment
variables, then command line flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		applyFlags(cmd, c)
		cfg = c

		restore, err := logger.Install(cfg.LogFormat, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		restoreLogger = restore

		if cfg.ConfigFile != "" {
			zap.S().Debugw("config loaded", "file", cfg.ConfigFile)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		restoreLogger()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .config-puller.yaml or ~/.config/config-puller/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "serial port, e.g. /dev/ttyUSB0 or COM1")
	rootCmd.PersistentFlags().StringVar(&flagHostname, "hostname", "", "device hostname; the prompt is <hostname>#")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "artifact path (default: config.txt)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console, json")
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		c.Port = flagPort
	}
	if flags.Changed("hostname") {
		c.Hostname = flagHostname
	}
	if flags.Changed("output") {
		c.Output = flagOutput
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
}

// initTelemetry starts OTEL export when an endpoint is configured.
// Failures are logged and extraction continues without export.
func initTelemetry(ctx context.Context) (*telem.Metrics, func()) {
	telem.Version = Version

	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		zap.S().Warnw("otel init failed", "error", err)
		return nil, func() {}
	}
	return tel.Metrics, func() { tel.Shutdown(context.WithoutCancel(ctx)) }
}

// newSession wires a session over opener using the loaded config.
func newSession(ctx context.Context, opener transport.Opener, metrics *telem.Metrics, commands []string) *extractor.Session {
	orch := &extractor.Orchestrator{
		Opener:           opener,
		Artifact:         artifact.NewFile(cfg.Output),
		ReadinessTimeout: cfg.ReadinessTimeoutDuration,
		MaxEmptyReads:    cfg.MaxEmptyReads,
		Metrics:          metrics,
	}
	return extractor.NewSession(ctx, orch, model.NewCommandList(commands...))
}
