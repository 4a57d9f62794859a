package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{env: "", want: slog.LevelInfo},
		{env: "DEBUG", want: slog.LevelDebug},
		{env: "debug", want: slog.LevelDebug},
		{env: "WARN", want: slog.LevelWarn},
		{env: "ERROR", want: slog.LevelError},
		{env: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			if got := LogLevel(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	t.Setenv("LOG_LEVEL", "INFO")

	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	NewLogger(&buf).Info("hello", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	t.Setenv("LOG_FORMAT", "text")
	buf.Reset()
	NewLogger(&buf).Info("hello", "k", 1)
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != slog.Default() {
		t.Error("expected default logger for empty context")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx = WithLogger(ctx, logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}

	g := graph.New()
	h, err := g.AddExec(graph.Command{Name: "copy"}, graph.Hint{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	WithExec(WithGraphID(logger, g), h, graph.Command{Name: "copy"}).Info("dispatch")

	out := buf.String()
	for _, want := range []string{"graph_id=" + g.ID().String(), "exec=0", "command=copy"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestMetrics_ObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ctx := context.Background()

	m.ObserveDispatch(ctx, graph.DispatchEvent{Command: graph.Command{Name: "add"}, Phase: graph.PhaseRun, Duration: time.Millisecond})
	m.ObserveDispatch(ctx, graph.DispatchEvent{Command: graph.Command{Name: "add"}, Phase: graph.PhaseRun, Err: errors.New("boom")})
	m.ObserveDispatch(ctx, graph.DispatchEvent{Phase: graph.PhaseAutotune, Subgraph: true})

	if got := testutil.ToFloat64(m.dispatches.WithLabelValues("run", "add")); got != 2 {
		t.Errorf("expected 2 run dispatches, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("run", "add")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.dispatches.WithLabelValues("autotune", "subgraph")); got != 1 {
		t.Errorf("expected subgraph dispatch, got %v", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 2 {
		t.Errorf("expected 2 histogram series, got %d", n)
	}
}

func TestMetrics_ObserveCache(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	if got := testutil.ToFloat64(m.cache.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.cache.WithLabelValues("miss")); got != 2 {
		t.Errorf("expected 2 misses, got %v", got)
	}
}

// Метрики подставляются в Runner как Observer.
func TestMetrics_WithRunner(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	var _ graph.Observer = m

	g := graph.New()
	if _, err := g.AddExec(graph.Command{Name: "noop"}, graph.Hint{}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := graph.NewRunner(graph.Config{Executor: nopExecutor{}, Observers: []graph.Observer{m}})
	if err := r.Run(context.Background(), g, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(m.dispatches.WithLabelValues("run", "noop")); got != 1 {
		t.Errorf("expected 1 dispatch, got %v", got)
	}
}

type nopExecutor struct{}

func (nopExecutor) Execute(context.Context, graph.Command, graph.Hint, []*tensor.Tensor, []*tensor.Tensor) error {
	return nil
}
