package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/config-puller/internal/readiness"
	"github.com/timvw/config-puller/internal/transport"
)

// checkResult is the JSON report printed by check.
type checkResult struct {
	Port        string       `json:"port"`
	Hostname    string       `json:"hostname"`
	Ready       bool         `json:"ready"`
	State       string       `json:"state"`
	Error       string       `json:"error,omitempty"`
	Transitions []transition `json:"transitions"`
	DurationMs  int64        `json:"duration_ms"`
	CheckedAt   time.Time    `json:"checked_at"`
}

type transition struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Signal string `json:"signal"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the device console becomes ready",
	Long: `Open the serial console and run only the readiness handshake: wake the
console, decline the initial configuration dialog and leave configuration
mode if needed. No commands are run and nothing is written.

Prints a JSON report with the final state and every transition. Exits
non-zero when the device did not become ready.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn := cfg.Connection()
		start := time.Now()

		c, err := transport.NewSerial().Open(cmd.Context(), conn)
		if err != nil {
			return err
		}
		defer c.Close()

		result := checkResult{Port: conn.Port, Hostname: conn.Hostname, Transitions: []transition{}}
		n := readiness.New(conn.Hostname, cfg.ReadinessTimeoutDuration, conn.ReadTimeout)
		n.OnTransition = func(from, to readiness.State, sig readiness.Signal) {
			result.Transitions = append(result.Transitions, transition{From: from.String(), To: to.String(), Signal: sig.String()})
		}

		state, negErr := n.Negotiate(cmd.Context(), c)
		result.State = state.String()
		result.Ready = state == readiness.Ready
		if negErr != nil {
			result.Error = negErr.Error()
		}
		result.DurationMs = time.Since(start).Milliseconds()
		result.CheckedAt = time.Now().UTC()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		return negErr
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
