package dto

import (
	"github.com/pribylovaa/go-loyalty-redemption/internal/service"
)

// ErrorBody — структурированный ответ об ошибке.
// Code — стабильный машиночитаемый код, Error — одно человекочитаемое сообщение.
type ErrorBody struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	Code              string `json:"code"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
	RequestID         string `json:"request_id,omitempty"`
}

// BusinessError строит тело для бизнес-ошибки сервиса.
// ok=false — ошибка не бизнесовая (сбой хранилища и т.п.), наружу она не описывается.
func BusinessError(err error) (ErrorBody, service.Kind, bool) {
	e, ok := service.AsError(err)
	if !ok {
		return ErrorBody{}, service.KindInternal, false
	}

	body := ErrorBody{Error: e.Message, Code: e.Code}

	if n, ok := service.RemainingAttempts(err); ok {
		body.RemainingAttempts = &n
		body.Error = (&service.PinError{Remaining: n}).Error()
	}

	return body, e.Kind, true
}

// Internal — тело для внутреннего сбоя без деталей.
func Internal() ErrorBody {
	return ErrorBody{Error: "internal error", Code: "internal"}
}
