package service

import (
	"errors"
	"fmt"

	"github.com/pribylovaa/go-loyalty-redemption/internal/metrics"
)

// Kind — класс бизнес-ошибки; транспорт выбирает по нему HTTP-статус / gRPC-код.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindExpired        Kind = "expired"
	KindRateLimit      Kind = "rate_limit"
	KindIntegrity      Kind = "integrity"
	// KindInternal — не бизнес-ошибка (сбой хранилища и т.п.).
	KindInternal Kind = "internal"
)

// Error — бизнес-ошибка протокола погашения: стабильный код, класс и
// одно человекочитаемое сообщение без внутренних деталей.
type Error struct {
	Code    string
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newErr(code string, kind Kind, msg string) *Error {
	return &Error{Code: code, Kind: kind, Message: msg}
}

var (
	// Общие.
	ErrUnauthenticated  = newErr("unauthenticated", KindAuthentication, "authentication required")
	ErrRateLimited      = newErr("rate_limited", KindRateLimit, "too many attempts, try again later")
	ErrMissingFields    = newErr("missing_fields", KindValidation, "required fields are missing")
	ErrOfferNotFound    = newErr("offer_not_found", KindNotFound, "offer not found")
	ErrCustomerNotFound = newErr("customer_not_found", KindNotFound, "customer not found")
	ErrMerchantNotFound = newErr("merchant_not_found", KindNotFound, "merchant not found")

	// Issue.
	ErrUserMismatch             = newErr("user_mismatch", KindAuthorization, "you can only request tokens for yourself")
	ErrSubscriptionRequired     = newErr("subscription_required", KindAuthorization, "an active subscription is required")
	ErrOfferInactive            = newErr("offer_inactive", KindValidation, "offer is not active")
	ErrInvalidOfferCost         = newErr("invalid_offer_cost", KindValidation, "offer has an invalid points cost")
	ErrAlreadyRedeemedThisMonth = newErr("already_redeemed_this_month", KindConflict, "offer already redeemed this month")

	// VerifyPin.
	ErrNotFoundOrUsed  = newErr("not_found_or_used", KindNotFound, "code not found or already used")
	ErrExpired         = newErr("expired", KindExpired, "code has expired, ask the customer to scan again")
	ErrTooManyAttempts = newErr("too_many_attempts", KindRateLimit, "too many wrong PIN attempts, ask the customer to scan again")
	ErrInvalidPin      = newErr("invalid_pin", KindValidation, "invalid PIN")

	// Finalize.
	ErrInvalidSignature             = newErr("invalid_signature", KindIntegrity, "invalid token signature")
	ErrTokenExpired                 = newErr("token_expired", KindExpired, "token has expired")
	ErrTokenNotFound                = newErr("token_not_found", KindNotFound, "token not found")
	ErrInvalidOrUsedCode            = newErr("invalid_or_used_code", KindNotFound, "invalid or already used code")
	ErrCodeExpired                  = newErr("code_expired", KindExpired, "code has expired")
	ErrTokenOrCodeRequired          = newErr("token_or_code_required", KindValidation, "either token or display code is required")
	ErrMerchantMismatch             = newErr("merchant_mismatch", KindConflict, "token was issued for another merchant")
	ErrTokenAlreadyUsed             = newErr("token_already_used", KindConflict, "token has already been used")
	ErrPinVerificationRequired      = newErr("pin_verification_required", KindAuthorization, "PIN verification is required before redemption")
	ErrPinVerificationExpired       = newErr("pin_verification_expired", KindExpired, "token expired after PIN verification, ask the customer to scan again")
	ErrMerchantSubscriptionInactive = newErr("merchant_subscription_inactive", KindAuthorization, "merchant subscription is inactive")
	ErrInsufficientPoints           = newErr("insufficient_points", KindConflict, "customer does not have enough points")
	ErrIdempotencyKeyReused         = newErr("idempotency_key_reused", KindConflict, "idempotency key was already used for another redemption")
)

// ErrTokenCollision — исчерпаны попытки подобрать свободный display-код.
var ErrTokenCollision = errors.New("display code collision")

// PinError — неверный PIN с остатком попыток. Unwrap даёт ErrInvalidPin.
type PinError struct {
	Remaining int
}

func (e *PinError) Error() string {
	return fmt.Sprintf("%s, %d attempt(s) remaining", ErrInvalidPin.Message, e.Remaining)
}

func (e *PinError) Unwrap() error { return ErrInvalidPin }

// AsError извлекает бизнес-ошибку из цепочки.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// KindOf возвращает класс ошибки (KindInternal для небизнесовых).
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}

	return KindInternal
}

// RemainingAttempts возвращает остаток попыток ввода PIN, если err — PinError.
func RemainingAttempts(err error) (int, bool) {
	var pe *PinError
	if errors.As(err, &pe) {
		return pe.Remaining, true
	}

	return 0, false
}

// resultLabel — значение метки result для метрик.
func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	if e, ok := AsError(err); ok {
		return e.Code
	}

	return string(KindInternal)
}
