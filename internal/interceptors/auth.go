package interceptors

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pribylovaa/go-loyalty-redemption/internal/auth"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// TokenVerifier проверяет access-токен и возвращает id актора.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate читает "authorization: Bearer <jwt>" из metadata и при валидном
// токене кладёт id актора в контекст (auth.WithActor). Отсутствующий или
// невалидный токен запрос не обрывает: сервис сам отвечает Unauthenticated.
// Методы служебных сервисов (health, reflection) пропускаются.
func Authenticate(v TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.") {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}

		vals := md.Get("authorization")
		if len(vals) == 0 {
			return handler(ctx, req)
		}

		token, ok := auth.BearerToken(vals[0])
		if !ok {
			return handler(ctx, req)
		}

		actor, err := v.Verify(token)
		if err != nil {
			log.From(ctx).Warn("auth_rejected", slog.String("err", err.Error()))
			return handler(ctx, req)
		}

		ctx = auth.WithActor(ctx, actor)
		ctx = log.With(ctx, slog.String("actor_id", actor))

		return handler(ctx, req)
	}
}
