package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/go-loyalty-redemption/internal/metrics"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/http/apierrors"
)

var errPanic = errors.New("panic")

// Recover перехватывает panic и отвечает 500/internal. Детали наружу не уходят.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					metrics.Panics.WithLabelValues("http").Inc()
					log.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic_recovered",
						slog.String("path", r.URL.Path),
						slog.String("request_id", r.Header.Get(HeaderRequestID)),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					)
					apierrors.WriteError(w, r, errPanic)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
