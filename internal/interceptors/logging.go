// interceptors содержит серверные unary-интерсепторы gRPC-транспорта:
// логирование с request-scoped логгером, перехват паник, таймаут и аутентификацию актора.
package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RequestIDKey — ключ metadata с идентификатором запроса.
const RequestIDKey = "x-request-id"

// UnaryLoggingInterceptor кладёт в контекст логгер с request_id, методом и peer
// и после выполнения пишет одну запись msg="grpc" с кодом ответа и длительностью.
// Если x-request-id не пришёл, генерируется UUID; он же возвращается в заголовке ответа.
func UnaryLoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		rid := RequestIDFrom(ctx)
		if rid == "" {
			rid = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, rid))

		peerStr := "-"
		if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
			peerStr = p.Addr.String()
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerStr),
		)
		ctx = log.Into(ctx, l)
		ctx = withRequestID(ctx, rid)

		resp, err := handler(ctx, req)

		l.Info("grpc",
			slog.String("code", status.Code(err).String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

type ridKey struct{}

func withRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ridKey{}, rid)
}

// RequestIDFrom возвращает request id: сначала выставленный интерсептором,
// затем из входящего metadata.
func RequestIDFrom(ctx context.Context) string {
	if rid, ok := ctx.Value(ridKey{}).(string); ok && rid != "" {
		return rid
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDKey); len(v) > 0 {
			return v[0]
		}
	}

	return ""
}
