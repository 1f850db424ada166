package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/pribylovaa/go-loyalty-redemption/internal/metrics"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Recover превращает панику обработчика в codes.Internal. Запись panic_recovered
// несёт метод, request_id и стек; счётчик redemption_panics_total{transport="grpc"} растёт.
// Стоит первым в цепочке, поэтому логгер запроса может ещё отсутствовать: тогда base.
func Recover(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			metrics.Panics.WithLabelValues("grpc").Inc()

			l := log.From(ctx)
			if l == slog.Default() {
				l = base
			}
			l.Error("panic_recovered",
				slog.String("method", info.FullMethod),
				slog.String("request_id", RequestIDFrom(ctx)),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)

			resp, err = nil, status.Error(codes.Internal, "internal server error")
		}()

		return handler(ctx, req)
	}
}
