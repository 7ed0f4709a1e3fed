package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/config-puller/internal/extractor"
	"github.com/timvw/config-puller/internal/model"
	"github.com/timvw/config-puller/internal/transport"
)

var (
	flagReplay string
	flagPrint  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [command...]",
	Short: "Run commands on the device console and save their output",
	Long: `Open the serial console, wait for the device to become ready, enter
privileged exec mode and run each command in order. The combined output
is written to the artifact path (default config.txt).

Commands given as arguments replace the configured command list. Use
--replay to run against a recorded console transcript instead of a
serial port.`,
	Example: `  config-puller extract --port /dev/ttyUSB0 "show version" "show running-config"
  config-puller capture --for 30s > router.txt
  config-puller extract --replay router.txt "show running-config"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		commands := cfg.Commands
		if len(args) > 0 {
			commands = args
		}

		var opener transport.Opener = transport.NewSerial()
		if flagReplay != "" {
			script, err := transport.LoadScript(flagReplay)
			if err != nil {
				return err
			}
			opener = script
		}

		metrics, shutdown := initTelemetry(ctx)
		defer shutdown()

		session := newSession(ctx, opener, metrics, nil)
		stderr := cmd.ErrOrStderr()
		session.Subscribe(extractor.Hooks{
			Log: func(e model.LogEvent) {
				fmt.Fprintln(stderr, e.String())
			},
			Progress: func(percent int) {
				zap.S().Debugw("progress", "percent", percent)
			},
		})

		h, err := session.Start(commands, cfg.Connection())
		if err != nil {
			return err
		}
		if err := h.Wait(); err != nil {
			return err
		}

		if flagPrint {
			result, _ := session.Result()
			fmt.Fprint(cmd.OutOrStdout(), result)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&flagReplay, "replay", "", "replay a recorded console transcript instead of opening a serial port")
	extractCmd.Flags().BoolVar(&flagPrint, "print", false, "also print the captured output to stdout")
	rootCmd.AddCommand(extractCmd)
}
