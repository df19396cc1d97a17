package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

// Recovery returns middleware that turns a handler panic into a 500 with an
// INTERNAL_ERROR body and logs the stack.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"method", r.Method,
				))

				body := struct {
					Code    errors.ErrorCode `json:"code"`
					Message string           `json:"message"`
					Details map[string]any   `json:"details,omitempty"`
				}{Code: errors.ErrCodeInternal, Message: "internal server error"}
				if id := r.Header.Get(RequestIDHeader); id != "" {
					body.Details = map[string]any{"request_id": id}
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
