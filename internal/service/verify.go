package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/redact"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
)

// VerifyPin проверяет PIN, который клиент лично называет сотруднику мерчанта.
//
// Токен ищется по (displayCode, merchantID, used=false). Далее по порядку:
// срок действия, потолок неверных попыток, совпадение PIN. Неверный PIN атомарно
// увеличивает счётчик и возвращает *PinError с остатком попыток.
// Верный PIN только разрешает Finalize: токен не гасится, баланс не меняется.
func (s *Service) VerifyPin(ctx context.Context, in models.VerifyPinRequest) (res *models.VerifyPinResult, err error) {
	const op = "service.VerifyPin"

	defer func() { observe("verify_pin", err) }()

	lg := log.From(ctx)
	now := s.clock.Now()
	maxAttempts := s.cfg.MaxPinAttempts

	if in.ActorID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if in.MerchantID == "" || in.DisplayCode == "" || in.Pin == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	tok, err := s.storage.UnusedTokenByDisplayCode(ctx, in.DisplayCode, in.MerchantID)
	if err != nil {
		return nil, notFoundAs(op, err, ErrNotFoundOrUsed)
	}

	if tok.Expired(now) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpired)
	}

	if tok.PinAttempts >= maxAttempts {
		return nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
	}

	if subtle.ConstantTimeCompare([]byte(in.Pin), []byte(tok.OneTimePin)) != 1 {
		return nil, s.rejectPin(ctx, op, tok)
	}

	if _, err := models.Transition(tok.State(now, maxAttempts), models.EventPinAccepted); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
	}

	if err := s.storage.MarkPinVerified(ctx, tok.Nonce, now, maxAttempts); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, s.resolveConflict(ctx, op, tok.Nonce)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res = &models.VerifyPinResult{TokenNonce: tok.Nonce}

	// Предложение и клиент нужны только для отображения.
	if offer, err := s.storage.OfferByID(ctx, tok.OfferID); err == nil {
		res.OfferTitle = offer.Title
		res.PointsCost = offer.PointsCost
	} else {
		lg.Warn("display_lookup_failed",
			slog.String("op", op),
			slog.String("offer_id", tok.OfferID),
			slog.String("err", err.Error()),
		)
	}

	if customer, err := s.storage.CustomerByID(ctx, tok.UserID); err == nil {
		res.CustomerName = customer.Name
	} else {
		lg.Warn("display_lookup_failed",
			slog.String("op", op),
			slog.String("user_id", tok.UserID),
			slog.String("err", err.Error()),
		)
	}

	lg.Info("pin_verified",
		slog.String("nonce", redact.Nonce(tok.Nonce)),
		slog.String("merchant_id", tok.MerchantID),
		slog.String("actor_id", in.ActorID),
	)

	return res, nil
}

// rejectPin фиксирует неверную попытку и возвращает остаток.
func (s *Service) rejectPin(ctx context.Context, op string, tok *models.RedemptionToken) error {
	maxAttempts := s.cfg.MaxPinAttempts

	attempts, err := s.storage.RecordPinFailure(ctx, tok.Nonce, maxAttempts)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return s.resolveConflict(ctx, op, tok.Nonce)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	remaining := maxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}

	log.From(ctx).Warn("pin_rejected",
		slog.String("nonce", redact.Nonce(tok.Nonce)),
		slog.String("pin", redact.Pin()),
		slog.Int("attempts", attempts),
		slog.Int("remaining", remaining),
	)

	return fmt.Errorf("%s: %w", op, &PinError{Remaining: remaining})
}

// resolveConflict перечитывает токен, когда условное обновление проиграло гонку:
// погашенный токен даёт NotFoundOrUsed, истёкший Expired, заблокированный TooManyAttempts.
func (s *Service) resolveConflict(ctx context.Context, op, nonce string) error {
	tok, err := s.storage.TokenByNonce(ctx, nonce)
	if err != nil {
		return notFoundAs(op, err, ErrNotFoundOrUsed)
	}

	switch {
	case tok.Used:
		return fmt.Errorf("%s: %w", op, ErrNotFoundOrUsed)
	case tok.Expired(s.clock.Now()):
		return fmt.Errorf("%s: %w", op, ErrExpired)
	default:
		return fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
	}
}
