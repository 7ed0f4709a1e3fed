package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/config-puller/internal/transport"
)

var flagCaptureFor time.Duration

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record raw console output",
	Long: `Wake the serial console and print every line it sends to stdout for
--for (default 15s). Nothing is interpreted and nothing is answered.

The output is a transcript that extract --replay can play back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		conn := cfg.Connection()
		c, err := transport.NewSerial().Open(ctx, conn)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.WriteLine(""); err != nil {
			return fmt.Errorf("wake console: %w", err)
		}

		out := cmd.OutOrStdout()
		deadline := time.Now().Add(flagCaptureFor)
		for time.Now().Before(deadline) && ctx.Err() == nil {
			line, err := c.ReadLine(conn.ReadTimeout)
			if err != nil {
				return fmt.Errorf("read console: %w", err)
			}
			if line == "" {
				continue
			}
			fmt.Fprintln(out, transport.StripTerminator(line))
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().DurationVar(&flagCaptureFor, "for", 15*time.Second, "how long to record")
	rootCmd.AddCommand(captureCmd)
}
