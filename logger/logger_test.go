package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test", buf)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "invalid-level")
	l.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Error("expected invalid level to fall back to info")
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")
	l.Info("dropped")
	l.Warn("kept")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["message"] != "kept" {
		t.Errorf("unexpected message %v", lines[0]["message"])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").WithComponent("pipeline")
	if l.service != "test" {
		t.Errorf("service should be preserved, got %q", l.service)
	}
	l.Info("started")
	lines := decodeLines(t, &buf)
	if lines[0][FieldComponent] != "pipeline" {
		t.Errorf("expected component field, got %v", lines[0])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := NewDefault("test")
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected the same logger when ctx carries no span")
	}
}

func TestWithContext_Span(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.WithContext(ctx).Info("traced")
	lines := decodeLines(t, &buf)
	if lines[0][FieldTraceID] != traceID.String() {
		t.Errorf("expected trace id, got %v", lines[0][FieldTraceID])
	}
	if lines[0][FieldSpanID] != spanID.String() {
		t.Errorf("expected span id, got %v", lines[0][FieldSpanID])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").
		WithFields(map[string]interface{}{FieldStage: "write"}).
		WithError(errors.New("boom"))
	l.Error("failed", Fields(FieldWorker, 3))

	lines := decodeLines(t, &buf)
	got := lines[0]
	if got[FieldStage] != "write" || got[FieldError] != "boom" || got[FieldWorker] != float64(3) {
		t.Errorf("unexpected fields %v", got)
	}
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().Info("nothing")
}

func TestInitSetsGlobalLogger(t *testing.T) {
	prev, prevLevel := GetGlobalLogger(), zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetGlobalLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	Init(Config{Level: "warn", Format: "json", Output: "stderr"}, "demandflow")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %s, want warn", zerolog.GlobalLevel())
	}
	got := GetGlobalLogger()
	if got == prev {
		t.Fatal("expected Init to replace the global logger")
	}
	if got.service != "demandflow" {
		t.Errorf("expected service 'demandflow', got %q", got.service)
	}
	if WithComponent("x").service != "demandflow" {
		t.Error("component loggers should inherit the global service")
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestJSONTimestampOptional(t *testing.T) {
	if zerolog.GlobalLevel() > zerolog.InfoLevel {
		t.Fatalf("global level %s leaked from another test", zerolog.GlobalLevel())
	}
	var plain, stamped bytes.Buffer
	NewWithWriter(&Config{Level: "info", Format: "json"}, "svc", &plain).Info("a")
	NewWithWriter(&Config{Level: "info", Format: "json", Timestamp: true}, "svc", &stamped).Info("b")

	if _, ok := decodeLines(t, &plain)[0]["time"]; ok {
		t.Error("expected no timestamp when disabled")
	}
	if _, ok := decodeLines(t, &stamped)[0]["time"]; !ok {
		t.Error("expected a timestamp when enabled")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"invalid level", Config{Level: "bad", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"invalid output", Config{Level: "info", Format: "json", Output: "syslog"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "demandflow", &buf)
	l.Info("progress", Fields(FieldRead, 5))

	out := buf.String()
	if !strings.Contains(out, "[DEM][INF]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
	if !strings.Contains(out, "read:5") {
		t.Errorf("expected field rendering, got %q", out)
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		kvs  []interface{}
		want int
	}{
		{"pairs", []interface{}{"a", 1, "b", 2}, 2},
		{"odd drops last", []interface{}{"a", 1, "b"}, 1},
		{"non-string key skipped", []interface{}{1, "x", "b", 2}, 1},
		{"empty", nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fields(tc.kvs...); len(got) != tc.want {
				t.Errorf("len = %d, want %d", len(got), tc.want)
			}
		})
	}
}

func TestMergeWithError(t *testing.T) {
	m := MergeWithError(nil, errors.New("x"))
	if m[FieldError] != "x" {
		t.Errorf("unexpected merge %v", m)
	}
	fields := Fields(FieldStage, "sink")
	MergeWithError(fields, errors.New("denied"))
	if fields[FieldStage] != "sink" || fields[FieldError] != "denied" {
		t.Errorf("expected fields to be extended in place, got %v", fields)
	}
}

func TestConsoleLoggerWithoutServiceTag(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "", &buf).Warn("careful")
	out := buf.String()
	if !strings.Contains(out, "[WRN] careful") || strings.Contains(out, "][WRN]") {
		t.Errorf("unexpected console line %q", out)
	}
}
