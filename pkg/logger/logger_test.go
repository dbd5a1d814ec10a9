package logger

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T, opts ...Option) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := Init(append(opts, WithWriter(&buf))...); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	t.Cleanup(func() { _ = Init() })
	return &buf
}

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	buf := capture(t, WithFormat("json"))

	Get().Named("panel").Info(context.Background(), "built",
		Int("rows", 12), Bool("filled", true), Duration("took", time.Second), Error(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{`"msg":"built"`, `"rows":12`, `"filled":true`, `"component":"panel"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestLoggerSourceIsCaller(t *testing.T) {
	buf := capture(t)

	Get().Info(context.Background(), "where")

	if out := buf.String(); !strings.Contains(out, "source=logger/logger_test.go:") {
		t.Errorf("expected the test file as source, got %s", out)
	}
}

func TestLoggerNamedAndWith(t *testing.T) {
	buf := capture(t, WithFormat("json"))

	run := Named("backtest").Named("pnl").With(String("run", "r-1"))
	run.Warn(context.Background(), "settled", Int("bets", 3))

	out := buf.String()
	for _, want := range []string{`"component":"backtest.pnl"`, `"run":"r-1"`, `"bets":3`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestLoggerMissingFloat(t *testing.T) {
	buf := capture(t, WithFormat("json"))

	Get().Info(context.Background(), "summary", Float64("hitRatio", math.NaN()), Float64("profit", 2.5))

	out := buf.String()
	if strings.Contains(out, "!ERROR") {
		t.Errorf("NaN broke the JSON encoding: %s", out)
	}
	for _, want := range []string{`"hitRatio":"NaN"`, `"profit":2.5`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	buf := capture(t)

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Info(context.Background(), "hidden")
	Get().Debug(context.Background(), "hidden too")
	Get().Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("level filter not applied: %s", out)
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerUnknownFormat(t *testing.T) {
	if err := Init(WithFormat("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}
