package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/example/qfold/internal/config"
)

func TestInitTracingDisabled(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	shutdown, err := InitTracing(context.Background(), config.Tracing{Exporter: "none"}, "qfold-test")
	if err != nil {
		t.Fatalf("init tracing: %v", err)
	}
	_, span := StartSpan(context.Background(), "folding.predict")
	if span.SpanContext().IsValid() {
		t.Fatalf("disabled tracing must not record spans")
	}
	EndSpan(span, nil)
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), config.Tracing{Exporter: "zipkin"}, "qfold-test")
	if err == nil || !strings.Contains(err.Error(), `"zipkin"`) {
		t.Fatalf("expected unsupported exporter error, got %v", err)
	}
}

func TestInitTracingStdoutRecordsSpans(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	shutdown, err := InitTracing(context.Background(), config.Tracing{Exporter: "stdout", Environment: "test"}, "qfold-test")
	if err != nil {
		t.Fatalf("init tracing: %v", err)
	}
	_, span := StartSpan(context.Background(), "msa.align")
	if !span.SpanContext().IsValid() || !span.SpanContext().IsSampled() {
		t.Fatalf("expected a sampled span")
	}
	EndSpan(span, nil)
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewSamplerFromConfig(t *testing.T) {
	cases := map[string]string{
		"always_off":   "root:AlwaysOffSampler",
		"traceidratio": "root:TraceIDRatioBased{0.25}",
		"":             "root:AlwaysOnSampler",
	}
	for sampler, want := range cases {
		got := newSampler(config.Tracing{Sampler: sampler, SampleRatio: 0.25}).Description()
		if !strings.Contains(got, want) {
			t.Fatalf("sampler %q: description %q does not mention %s", sampler, got, want)
		}
	}
}

func TestFlushExportsBufferedSpans(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	var buf bytes.Buffer
	exp, err := stdouttrace.New(stdouttrace.WithWriter(&buf))
	if err != nil {
		t.Fatalf("exporter: %v", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(time.Hour)))
	otel.SetTracerProvider(tp)

	_, span := StartSpan(context.Background(), "folding.predict")
	EndSpan(span, errors.New("vqe job failed"))
	if buf.Len() != 0 {
		t.Fatalf("span exported before flush")
	}
	if err := Flush(tp.Shutdown, time.Second); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !strings.Contains(buf.String(), "folding.predict") || !strings.Contains(buf.String(), "vqe job failed") {
		t.Fatalf("failed span not exported on flush: %s", buf.String())
	}
}

func TestFlushBoundsShutdown(t *testing.T) {
	var sawDeadline bool
	err := Flush(func(ctx context.Context) error {
		_, sawDeadline = ctx.Deadline()
		return errors.New("collector unreachable")
	}, time.Second)
	if !sawDeadline {
		t.Fatalf("shutdown must run with a deadline")
	}
	if err == nil || err.Error() != "collector unreachable" {
		t.Fatalf("expected shutdown error to propagate, got %v", err)
	}
}
