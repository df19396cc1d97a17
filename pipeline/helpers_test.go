package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/demandflow/logger"
)

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func (b *syncBuffer) count(t *testing.T, msg string) int {
	n := 0
	for _, l := range b.lines(t) {
		if l["message"] == msg {
			n++
		}
	}
	return n
}

func testLogger(w *syncBuffer) *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", w)
}

// funcIter adapts a function to Iterator.
type funcIter[T any] func(ctx context.Context) (T, bool, error)

func (f funcIter[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }
func (f funcIter[T]) Close() error                              { return nil }

func iterSource[T any](next func(ctx context.Context) (T, bool, error)) Source[T] {
	return SourceFunc[T](func(context.Context) (Iterator[T], error) {
		return funcIter[T](next), nil
	})
}

// endless yields 1, 2, 3, ... until ctx is cancelled.
func endless() Source[int] {
	n := 0
	return iterSource(func(ctx context.Context) (int, bool, error) {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		n++
		return n, true, nil
	})
}

func double(_ context.Context, x int) (int, error) { return x * 2, nil }

// fakeSettings is a push-style SettingsProvider driven by the test.
type fakeSettings struct {
	mu   sync.Mutex
	cur  Settings
	subs []func(Settings)
}

func (f *fakeSettings) Current() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

func (f *fakeSettings) Subscribe(fn func(Settings)) func() {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeSettings) set(s Settings) {
	f.mu.Lock()
	f.cur = s
	subs := slices.Clone(f.subs)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (f *fakeSettings) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs) > 0
}
