// Package http собирает HTTP-транспорт сервиса погашений на chi:
// мидлвары, маршруты протокола и служебные эндпойнты.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-loyalty-redemption/internal/interceptors"
	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/http/handlers"
	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	Verifier interceptors.TokenVerifier
	// Ready проверяет готовность зависимостей для /healthz; nil — всегда готов.
	Ready func(ctx context.Context) error
}

// NewRouter собирает http.Handler с подключёнными middleware и маршрутами.
func NewRouter(svc handlers.Redemption, opts Options) http.Handler {
	root := chi.NewRouter()

	// Внешний -> внутренний.
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	)

	root.Get("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Get("/healthz", readiness(opts.Ready))
	root.Handle("/metrics", promhttp.Handler())

	h := handlers.New(svc)

	root.Route("/v1", func(r chi.Router) {
		if opts.Verifier != nil {
			r.Use(middleware.Authenticate(opts.Verifier))
		}
		if opts.Timeout > 0 {
			r.Use(middleware.Timeout(opts.Timeout))
		}

		registerRoutes(r, h)
	})

	return root
}

// registerRoutes — единая точка регистрации эндпойнтов протокола.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Post("/redemption-tokens", h.Issue)
	r.Post("/redemption-tokens/verify-pin", h.VerifyPin)
	r.Post("/redemptions", h.Finalize)
}

func readiness(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				slog.Default().Warn("not_ready", slog.String("err", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
