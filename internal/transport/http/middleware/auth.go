package middleware

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-loyalty-redemption/internal/auth"
	"github.com/pribylovaa/go-loyalty-redemption/internal/interceptors"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
)

// Authenticate проверяет Bearer-токен из Authorization и при успехе кладёт
// id актора в контекст. Без валидного токена запрос идёт дальше анонимным,
// сервис отвечает Unauthenticated.
func Authenticate(v interceptors.TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := v.Verify(token)
			if err != nil {
				log.From(r.Context()).Warn("auth_rejected", slog.String("err", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithActor(r.Context(), actor)
			ctx = log.With(ctx, slog.String("actor_id", actor))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
