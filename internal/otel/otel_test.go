package otel

import (
	"context"
	"testing"
	"time"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" Authorization=Basic abc= , x-team = net ,bogus,=nokey")
	if len(got) != 2 {
		t.Fatalf("expected 2 headers, got %v", got)
	}
	if got["Authorization"] != "Basic abc=" {
		t.Errorf("Authorization = %q", got["Authorization"])
	}
	if got["x-team"] != "net" {
		t.Errorf("x-team = %q", got["x-team"])
	}
	if len(parseHeaders("")) != 0 {
		t.Errorf("expected no headers for empty input")
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := parseEndpoint("http://collector:4318/otel/")
	if err != nil {
		t.Fatalf("parseEndpoint: %v", err)
	}
	if ep.host != "collector:4318" || ep.basePath != "/otel" || !ep.insecure {
		t.Fatalf("unexpected endpoint: %+v", ep)
	}

	ep, err = parseEndpoint("https://otlp.example.com")
	if err != nil {
		t.Fatalf("parseEndpoint: %v", err)
	}
	if ep.insecure || ep.basePath != "" {
		t.Fatalf("unexpected endpoint: %+v", ep)
	}

	if _, err := parseEndpoint("not a url"); err == nil {
		t.Fatalf("expected error for endpoint without host")
	}
}

func TestInit_NoEndpointIsNoop(t *testing.T) {
	tel, err := Init(context.Background(), OTELConfig{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer tel.Shutdown(context.Background())

	if tel.Tracer == nil || tel.Metrics == nil {
		t.Fatalf("expected tracer and metrics")
	}
	// Instruments must be usable without an exporter.
	tel.Metrics.RecordSession(context.Background(), "completed")
	tel.Metrics.RecordCommand(context.Background(), "ok")
	tel.Metrics.RecordReadiness(context.Background(), time.Second, "ready")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordSession(context.Background(), "completed")
	m.RecordCommand(context.Background(), "ok")
	m.RecordReadiness(context.Background(), time.Second, "ready")
}
