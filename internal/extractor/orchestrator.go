// Package extractor runs extraction sessions: it opens the console, brings
// it to privileged exec mode, runs the bootstrap and user commands in order,
// and persists the captured output.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timvw/config-puller/internal/artifact"
	"github.com/timvw/config-puller/internal/executor"
	"github.com/timvw/config-puller/internal/model"
	ppotel "github.com/timvw/config-puller/internal/otel"
	"github.com/timvw/config-puller/internal/readiness"
	"github.com/timvw/config-puller/internal/transport"
)

var tracer = otel.Tracer("config-puller")

// DefaultBootstrap enters privileged exec mode and disables output paging.
// Their output is not part of the artifact.
var DefaultBootstrap = []string{"enable", "terminal length 0"}

// Orchestrator sequences one extraction over a console connection.
type Orchestrator struct {
	Opener   transport.Opener
	Artifact artifact.Writer

	ReadinessTimeout time.Duration // readiness.DefaultTimeout when zero
	MaxEmptyReads    int           // executor.DefaultMaxEmptyReads when zero
	Bootstrap        []string      // DefaultBootstrap when nil

	Metrics *ppotel.Metrics // nil-safe
}

// reporter is how the orchestrator publishes progress and log lines.
type reporter interface {
	progress(percent int)
	logf(level, format string, args ...any)
}

// Run performs one extraction and returns the captured text. The artifact
// is written only when every step up to the last command succeeded;
// prompt timeouts on single commands are reported and skipped over.
func (o *Orchestrator) Run(ctx context.Context, commands []string, conn model.ConnectionConfig, r reporter) (string, error) {
	ctx, span := tracer.Start(ctx, "extract",
		trace.WithAttributes(
			attribute.String("console.port", conn.Port),
			attribute.String("console.hostname", conn.Hostname),
			attribute.Int("commands.total", len(commands)),
		))
	defer span.End()

	result, err := o.run(ctx, commands, conn, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("result.bytes", len(result)))
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, commands []string, conn model.ConnectionConfig, r reporter) (string, error) {
	total := len(commands) + 1
	completed := 0

	c, err := o.Opener.Open(ctx, conn)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := c.Close(); err != nil {
			zap.S().Warnw("closing console failed", "port", conn.Port, "error", err)
		}
	}()
	r.logf(model.LevelInfo, "opened %s at %d baud", conn.Port, conn.BaudRate)

	if err := o.negotiate(ctx, c, conn, r); err != nil {
		return "", err
	}
	completed++
	r.progress(model.Percent(completed, total))

	exec := executor.New(c, conn.Hostname, conn.ReadTimeout, o.MaxEmptyReads)

	bootstrap := o.Bootstrap
	if bootstrap == nil {
		bootstrap = DefaultBootstrap
	}
	for _, cmd := range bootstrap {
		if _, err := o.runCommand(ctx, exec, cmd, r); err != nil {
			return "", err
		}
	}

	var result strings.Builder
	for _, cmd := range commands {
		out, err := o.runCommand(ctx, exec, cmd, r)
		if err != nil {
			return "", err
		}
		result.WriteString(out)
		completed++
		r.progress(model.Percent(completed, total))
	}

	if err := o.Artifact.Write(result.String()); err != nil {
		return "", fmt.Errorf("persist artifact: %w", err)
	}
	return result.String(), nil
}

func (o *Orchestrator) negotiate(ctx context.Context, c transport.Conn, conn model.ConnectionConfig, r reporter) error {
	ctx, span := tracer.Start(ctx, "negotiate")
	defer span.End()

	n := readiness.New(conn.Hostname, o.ReadinessTimeout, conn.ReadTimeout)
	n.OnTransition = func(from, to readiness.State, sig readiness.Signal) {
		r.logf(model.LevelInfo, "console %s -> %s (%s)", from, to, sig)
	}

	start := time.Now()
	state, err := n.Negotiate(ctx, c)
	o.Metrics.RecordReadiness(ctx, time.Since(start), state.String())
	span.SetAttributes(attribute.String("readiness.state", state.String()))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("readiness: %w", err)
	}
	return nil
}

// runCommand runs one command. A prompt timeout is downgraded to a warning
// and the partial output is returned with a nil error.
func (o *Orchestrator) runCommand(ctx context.Context, exec *executor.Executor, cmd string, r reporter) (string, error) {
	ctx, span := tracer.Start(ctx, "command",
		trace.WithAttributes(attribute.String("command", cmd)))
	defer span.End()

	r.logf(model.LevelInfo, "running %q", cmd)
	out, err := exec.Run(ctx, cmd)
	switch {
	case errors.Is(err, executor.ErrPromptTimeout):
		o.Metrics.RecordCommand(ctx, "prompt_timeout")
		span.SetAttributes(attribute.Bool("prompt.timeout", true))
		r.logf(model.LevelWarn, "%q: prompt not seen, output may be incomplete (%d bytes kept)", cmd, len(out))
		return out, nil
	case err != nil:
		o.Metrics.RecordCommand(ctx, "error")
		span.RecordError(err)
		return "", err
	}
	o.Metrics.RecordCommand(ctx, "ok")
	span.SetAttributes(attribute.Int("output.bytes", len(out)))
	return out, nil
}
