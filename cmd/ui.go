package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/timvw/config-puller/internal/logger"
	"github.com/timvw/config-puller/internal/transport"
	"github.com/timvw/config-puller/internal/ui"
)

var (
	flagTheme   string
	flagLogFile string
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Interactive terminal UI to queue commands and run extractions",
	Long: `Launch an interactive terminal UI. Queue commands, start an extraction
and follow its progress and log. The command list from the config file is
queued at startup.

Diagnostic logs go to --log-file so they do not disturb the screen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		restore, err := logger.InstallTo(cfg.LogFormat, cfg.LogLevel, flagLogFile)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer restore()

		metrics, shutdown := initTelemetry(ctx)
		defer shutdown()

		session := newSession(ctx, transport.NewSerial(), metrics, cfg.Commands)

		tui := &ui.TUI{
			Session:    session,
			Connection: cfg.Connection(),
			Output:     cfg.Output,
			Theme:      flagTheme,
		}
		return tui.Run(ctx)
	},
}

func init() {
	uiCmd.Flags().StringVar(&flagTheme, "theme", "dark", "Color theme: dark, light")
	uiCmd.Flags().StringVar(&flagLogFile, "log-file", filepath.Join(os.TempDir(), "config-puller.log"),
		"file for diagnostic logs while the UI is running")
	rootCmd.AddCommand(uiCmd)
}
