// transport/grpc содержит gRPC-эндпоинты RedemptionService.
// Здесь выполняется только маппинг данных и ошибок сервисного слоя в gRPC:
//   - бизнес-ошибки -> код по классу ошибки, сообщение наружу как есть,
//     стабильный код в google.rpc.ErrorInfo (Reason), остаток попыток PIN
//     в ErrorInfo.Metadata["remainingAttempts"];
//   - истёкший/отменённый контекст -> DeadlineExceeded/Canceled;
//   - иные ошибки -> codes.Internal с единым безопасным сообщением.
//
// Актор берётся из контекста (interceptors.Authenticate).
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/pribylovaa/go-loyalty-redemption/internal/auth"
	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"github.com/pribylovaa/go-loyalty-redemption/internal/service"
	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/dto"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain — домен ErrorInfo бизнес-ошибок.
const ErrorDomain = "redemption.loyalty"

// Redemption — операции сервиса, которые обслуживает gRPC-слой.
type Redemption interface {
	Issue(ctx context.Context, in models.IssueRequest) (*models.IssueResult, error)
	VerifyPin(ctx context.Context, in models.VerifyPinRequest) (*models.VerifyPinResult, error)
	Finalize(ctx context.Context, in models.FinalizeRequest) (*models.FinalizeResult, error)
}

type RedemptionServer struct {
	svc Redemption
}

// NewRedemptionServer создаёт gRPC-сервер поверх сервисного слоя.
func NewRedemptionServer(svc Redemption) *RedemptionServer {
	return &RedemptionServer{svc: svc}
}

func (s *RedemptionServer) Issue(ctx context.Context, req *dto.IssueRequest) (*dto.IssueResponse, error) {
	const op = "transport/grpc/server/Issue"

	res, err := s.svc.Issue(ctx, req.ToModel(auth.ActorFrom(ctx)))
	if err != nil {
		return nil, toStatus(ctx, op, err)
	}

	out := dto.IssueResponseFrom(res)
	return &out, nil
}

func (s *RedemptionServer) VerifyPin(ctx context.Context, req *dto.VerifyPinRequest) (*dto.VerifyPinResponse, error) {
	const op = "transport/grpc/server/VerifyPin"

	res, err := s.svc.VerifyPin(ctx, req.ToModel(auth.ActorFrom(ctx)))
	if err != nil {
		return nil, toStatus(ctx, op, err)
	}

	out := dto.VerifyPinResponseFrom(res)
	return &out, nil
}

func (s *RedemptionServer) Finalize(ctx context.Context, req *dto.FinalizeRequest) (*dto.FinalizeResponse, error) {
	const op = "transport/grpc/server/Finalize"

	res, err := s.svc.Finalize(ctx, req.ToModel(auth.ActorFrom(ctx)))
	if err != nil {
		return nil, toStatus(ctx, op, err)
	}

	out := dto.FinalizeResponseFrom(res)
	return &out, nil
}

// CodeFor — gRPC-код для класса бизнес-ошибки.
func CodeFor(kind service.Kind) codes.Code {
	switch kind {
	case service.KindAuthentication, service.KindIntegrity:
		return codes.Unauthenticated
	case service.KindAuthorization:
		return codes.PermissionDenied
	case service.KindNotFound:
		return codes.NotFound
	case service.KindValidation:
		return codes.InvalidArgument
	case service.KindConflict:
		return codes.Aborted
	case service.KindExpired:
		return codes.FailedPrecondition
	case service.KindRateLimit:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

func toStatus(ctx context.Context, op string, err error) error {
	body, kind, ok := dto.BusinessError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return status.FromContextError(err).Err()
		}

		log.From(ctx).Error("internal_error", slog.String("op", op), slog.String("err", err.Error()))
		return status.Error(codes.Internal, "internal server error")
	}

	info := &errdetails.ErrorInfo{Reason: body.Code, Domain: ErrorDomain}
	if body.RemainingAttempts != nil {
		info.Metadata = map[string]string{"remainingAttempts": strconv.Itoa(*body.RemainingAttempts)}
	}

	st, detErr := status.New(CodeFor(kind), body.Error).WithDetails(info)
	if detErr != nil {
		return status.Error(CodeFor(kind), body.Error)
	}

	return st.Err()
}

// ErrorInfoFrom достаёт ErrorInfo бизнес-ошибки из gRPC-статуса.
func ErrorInfoFrom(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}

	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info, true
		}
	}

	return nil, false
}
