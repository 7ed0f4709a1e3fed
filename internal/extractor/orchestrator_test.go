package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/timvw/config-puller/internal/model"
	ppotel "github.com/timvw/config-puller/internal/otel"
	"github.com/timvw/config-puller/internal/transport"
)

// stepReporter records what the orchestrator reports.
type stepReporter struct {
	steps []int
	logs  []string
}

func (r *stepReporter) progress(p int) { r.steps = append(r.steps, p) }

func (r *stepReporter) logf(level, format string, args ...any) {
	r.logs = append(r.logs, level+": "+fmt.Sprintf(format, args...))
}

// brokenConn replays lines, then fails every read.
type brokenConn struct {
	lines []string
	err   error
}

func (c *brokenConn) WriteLine(string) error { return nil }

func (c *brokenConn) ReadLine(time.Duration) (string, error) {
	if len(c.lines) == 0 {
		return "", c.err
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

func (c *brokenConn) Close() error { return nil }

type connOpener struct{ conn transport.Conn }

func (o connOpener) Open(context.Context, model.ConnectionConfig) (transport.Conn, error) {
	return o.conn, nil
}

func TestOrchestrator_CustomBootstrap(t *testing.T) {
	script := transport.NewScript(
		"\r\n", "\r\n", // ready
		"Router#", // bootstrap prompt
		"Cisco IOS\r\n", "Router#\r\n",
	)
	w := &memWriter{}
	o := &Orchestrator{Opener: script, Artifact: w, Bootstrap: []string{"terminal length 0"}, MaxEmptyReads: 2}
	r := &stepReporter{}

	got, err := o.Run(context.Background(), []string{"show version"}, testConn(), r)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "Cisco IOS\n" {
		t.Errorf("result: got %q", got)
	}
	if writes := script.Writes(); strings.Join(writes, "|") != "|terminal length 0|show version" {
		t.Errorf("writes: got %q", writes)
	}
	if fmt.Sprint(r.steps) != "[50 100]" {
		t.Errorf("progress: got %v", r.steps)
	}
}

func TestOrchestrator_ReadErrorAborts(t *testing.T) {
	ioErr := errors.New("device unplugged")
	conn := &brokenConn{
		lines: []string{"\r\n", "\r\n", "Router#", "Router#", "partial line\r\n"},
		err:   ioErr,
	}
	w := &memWriter{}
	o := &Orchestrator{Opener: connOpener{conn}, Artifact: w, MaxEmptyReads: 2}
	r := &stepReporter{}

	_, err := o.Run(context.Background(), []string{"show version", "show clock"}, testConn(), r)
	if !errors.Is(err, ioErr) {
		t.Fatalf("expected read error, got %v", err)
	}
	if w.count() != 0 {
		t.Error("artifact must not be written after an I/O error")
	}
	if fmt.Sprint(r.steps) != "[33]" {
		t.Errorf("progress: got %v", r.steps)
	}
}

func TestOrchestrator_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := ppotel.NewMetricsFor(mp)
	if err != nil {
		t.Fatalf("NewMetricsFor: %v", err)
	}

	script := transport.NewScript(transcript(
		[]string{"IOS\r\n", "Router#\r\n"},
		[]string{"partial\r\n"}, // prompt never comes back
	)...)
	o := &Orchestrator{Opener: script, Artifact: &memWriter{}, MaxEmptyReads: 2, Metrics: metrics}

	if _, err := o.Run(context.Background(), []string{"show version", "show tech"}, testConn(), &stepReporter{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	commands := map[string]int64{}
	var readiness uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != "extraction.commands" {
					continue
				}
				for _, dp := range data.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("command.outcome"))
					commands[v.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name == "readiness.duration" {
					for _, dp := range data.DataPoints {
						readiness += dp.Count
					}
				}
			}
		}
	}

	// enable + terminal length 0 + show version are ok; show tech times out.
	if commands["ok"] != 3 || commands["prompt_timeout"] != 1 {
		t.Errorf("command outcomes: got %v", commands)
	}
	if readiness != 1 {
		t.Errorf("readiness samples: got %d, want 1", readiness)
	}
}
