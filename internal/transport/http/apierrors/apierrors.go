// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервиса, на выход даёт HTTP-статус по классу
// ошибки (service.Kind) и тело {success:false, error, code}.
// Небизнесовые ошибки превращаются в 500/internal без деталей.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-loyalty-redemption/internal/service"
	"github.com/pribylovaa/go-loyalty-redemption/internal/transport/dto"
)

// Нестандартный код для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrInvalidBody — тело запроса не разбирается как JSON нужной формы.
var ErrInvalidBody = errors.New("invalid request body")

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
func ToHTTP(err error) (int, dto.ErrorBody) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, dto.Internal()
	case errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest, dto.ErrorBody{Error: "invalid request body", Code: "invalid_request"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, dto.ErrorBody{Error: "deadline exceeded", Code: "deadline_exceeded"}
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, dto.ErrorBody{Error: "request canceled", Code: "canceled"}
	}

	body, kind, ok := dto.BusinessError(err)
	if !ok {
		return http.StatusInternalServerError, dto.Internal()
	}

	return StatusFor(kind), body
}

// StatusFor — HTTP-статус для класса бизнес-ошибки.
func StatusFor(kind service.Kind) int {
	switch kind {
	case service.KindAuthentication, service.KindIntegrity:
		return http.StatusUnauthorized
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindExpired:
		return http.StatusGone
	case service.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError пишет статус и тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ToHTTP(err)

	if r != nil {
		if rid := r.Header.Get("X-Request-Id"); rid != "" {
			body.RequestID = rid
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
