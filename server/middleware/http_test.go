package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/server/middleware"
)

func bufferedLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", buf)
}

func serve(h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	stack := middleware.Chain(middleware.RequestID(), middleware.Recovery(bufferedLogger(&logs)))

	ok := stack(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	if rr := serve(ok, "/progress", nil); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected passthrough response %d %q", rr.Code, rr.Body.String())
	}

	panicking := stack(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := serve(panicking, "/progress", http.Header{middleware.RequestIDHeader: {"req-7"}})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	var body struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" || body.Details["request_id"] != "req-7" {
		t.Fatalf("unexpected body %+v", body)
	}
	if !strings.Contains(logs.String(), "panic recovered") || !strings.Contains(logs.String(), "boom") {
		t.Fatalf("panic was not logged: %s", logs.String())
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(middleware.RequestIDHeader)
	}))

	rr := serve(h, "/", nil)
	if seen == "" || rr.Header().Get(middleware.RequestIDHeader) != seen {
		t.Fatalf("generated id not propagated: request %q response %q", seen, rr.Header().Get(middleware.RequestIDHeader))
	}

	rr = serve(h, "/", http.Header{middleware.RequestIDHeader: {"client-id"}})
	if seen != "client-id" || rr.Header().Get(middleware.RequestIDHeader) != "client-id" {
		t.Fatalf("client id not preserved: %q", seen)
	}
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		path    string
		status  int
		level   string
		skipped bool
	}{
		{"/progress", http.StatusOK, "debug", false},
		{"/missing", http.StatusNotFound, "warn", false},
		{"/version", http.StatusBadGateway, "error", false},
		{"/healthz", http.StatusOK, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var logs bytes.Buffer
			h := middleware.RequestLogger(bufferedLogger(&logs))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			serve(h, tt.path, nil)

			if tt.skipped {
				if logs.Len() != 0 {
					t.Fatalf("expected no log line, got %s", logs.String())
				}
				return
			}
			var entry map[string]any
			if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v (%s)", err, logs.String())
			}
			if entry["level"] != tt.level || entry["path"] != tt.path || entry["status"] != float64(tt.status) {
				t.Fatalf("unexpected log entry %v", entry)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+">")
				next.ServeHTTP(w, r)
				order = append(order, "<"+name)
			})
		}
	}
	h := middleware.Chain(mark("a"), mark("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	serve(h, "/", nil)

	if got := strings.Join(order, " "); got != "a> b> handler <b <a" {
		t.Fatalf("order = %s", got)
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRequestLogger_KeepsFlusher(t *testing.T) {
	h := middleware.RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer lost http.Flusher")
		}
		f.Flush()
	}))
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", http.NoBody))
	if !rec.flushed {
		t.Fatal("flush did not reach the underlying writer")
	}
}
