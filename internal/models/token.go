package models

import (
	"errors"
	"fmt"
	"time"
)

// RedemptionToken — запись о выданном токене погашения (ключ — nonce).
//
// Жизненный цикл: выдаётся Issue -> PIN подтверждается VerifyPin ->
// один раз терминально помечается used в Finalize (или истекает).
// На диске состояние хранится флагами used/pinVerified/pinAttempts,
// явное состояние вычисляется через State.
type RedemptionToken struct {
	Nonce      string
	UserID     string
	OfferID    string
	MerchantID string
	DeviceHash string

	// DisplayCode — 6 цифр, показывается мерчанту, не секрет.
	DisplayCode string
	// OneTimePin — 6 цифр, секрет клиента, новый при каждой выдаче.
	OneTimePin string

	PinAttempts   int
	PinVerified   bool
	PinVerifiedAt *time.Time

	CreatedAt time.Time
	ExpiresAt time.Time

	Used   bool
	UsedAt *time.Time
}

// Expired сообщает, истёк ли токен на момент now (граница включительно действительна).
func (t *RedemptionToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenState — явное состояние токена.
type TokenState string

const (
	TokenIssued      TokenState = "issued"
	TokenPinVerified TokenState = "pin_verified"
	TokenRedeemed    TokenState = "redeemed"
	TokenExpired     TokenState = "expired"
	TokenLocked      TokenState = "locked"
)

// TokenEvent — событие, переводящее токен между состояниями.
type TokenEvent string

const (
	EventPinRejected TokenEvent = "pin_rejected"
	EventPinAccepted TokenEvent = "pin_accepted"
	EventRedeemed    TokenEvent = "redeemed"
)

// ErrIllegalTransition — событие недопустимо в текущем состоянии.
var ErrIllegalTransition = errors.New("illegal token transition")

// State вычисляет состояние токена на момент now.
// Погашение и блокировка по попыткам поглощают истечение срока.
func (t *RedemptionToken) State(now time.Time, maxPinAttempts int) TokenState {
	switch {
	case t.Used:
		return TokenRedeemed
	case t.PinAttempts >= maxPinAttempts:
		return TokenLocked
	case t.Expired(now):
		return TokenExpired
	case t.PinVerified:
		return TokenPinVerified
	default:
		return TokenIssued
	}
}

// Transition возвращает состояние после события или ErrIllegalTransition.
//
//	issued       --pin_rejected--> issued | locked (решает счётчик попыток)
//	issued       --pin_accepted--> pin_verified
//	pin_verified --pin_accepted--> pin_verified
//	pin_verified --redeemed------> redeemed
//
// redeemed, expired и locked — поглощающие состояния.
func Transition(from TokenState, ev TokenEvent) (TokenState, error) {
	switch from {
	case TokenIssued:
		switch ev {
		case EventPinRejected:
			return TokenIssued, nil
		case EventPinAccepted:
			return TokenPinVerified, nil
		}
	case TokenPinVerified:
		switch ev {
		case EventPinRejected:
			return TokenPinVerified, nil
		case EventPinAccepted:
			return TokenPinVerified, nil
		case EventRedeemed:
			return TokenRedeemed, nil
		}
	}

	return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
}
