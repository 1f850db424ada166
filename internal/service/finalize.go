package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-loyalty-redemption/internal/events"
	"github.com/pribylovaa/go-loyalty-redemption/internal/metrics"
	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/redact"
	"github.com/pribylovaa/go-loyalty-redemption/internal/ratelimit"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
	"github.com/pribylovaa/go-loyalty-redemption/internal/token"
)

// Finalize гасит токен и списывает баллы клиента.
//
// Порядок проверок: аутентификация, лимит validate:{actor}:{merchant}, разрешение
// токена (подписанный токен или display-код), мерчант совпадает, токен не погашен,
// PIN подтверждён и подтверждён до истечения токена, справочные сущности существуют,
// мерчант может проводить погашения. Запись погашения, used=false->true и списание
// выполняются хранилищем одной транзакцией.
//
// С непустым IdempotencyKey повтор уже выполненного запроса (тот же токен и мерчант)
// возвращает исходный результат с Replayed=true без повторного списания. Ключ,
// закреплённый за погашением другого токена, даёт ErrIdempotencyKeyReused.
func (s *Service) Finalize(ctx context.Context, in models.FinalizeRequest) (res *models.FinalizeResult, err error) {
	const op = "service.Finalize"

	defer func() { observe("finalize", err) }()

	lg := log.From(ctx)
	now := s.clock.Now()

	// 1. Аутентификация.
	if in.ActorID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	// 2. Лимит попыток.
	allowed, err := s.limiter.Allow(ctx, ratelimit.ValidateKey(in.ActorID, in.MerchantID), s.validateRule(), now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !allowed {
		lg.Warn("rate_limited",
			slog.String("operation", "finalize"),
			slog.String("actor_id", in.ActorID),
			slog.String("merchant_id", in.MerchantID),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	if in.IdempotencyKey != "" {
		replayed, err := s.replay(ctx, in, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if replayed != nil {
			return replayed, nil
		}
	}

	// 3. Разрешение токена.
	tok, err := s.resolveToken(ctx, in, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// 4. Токен выдан для этого мерчанта.
	if tok.MerchantID != in.MerchantID {
		return nil, fmt.Errorf("%s: %w", op, ErrMerchantMismatch)
	}

	// 5. Токен ещё не погашен.
	if tok.Used {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenAlreadyUsed)
	}

	// 6. PIN подтверждён: без этого шага списание невозможно.
	if !tok.PinVerified {
		return nil, fmt.Errorf("%s: %w", op, ErrPinVerificationRequired)
	}

	// 7. PIN подтверждён в пределах срока токена.
	if tok.PinVerifiedAt == nil || tok.PinVerifiedAt.After(tok.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", op, ErrPinVerificationExpired)
	}

	// Заблокированный по попыткам токен не гасится.
	if _, err := models.Transition(tok.State(now, s.cfg.MaxPinAttempts), models.EventRedeemed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
	}

	// 8. Справочные сущности; стоимость берётся из этого снимка предложения.
	offer, err := s.storage.OfferByID(ctx, tok.OfferID)
	if err != nil {
		return nil, notFoundAs(op, err, ErrOfferNotFound)
	}

	customer, err := s.storage.CustomerByID(ctx, tok.UserID)
	if err != nil {
		return nil, notFoundAs(op, err, ErrCustomerNotFound)
	}

	merchant, err := s.storage.MerchantByID(ctx, tok.MerchantID)
	if err != nil {
		return nil, notFoundAs(op, err, ErrMerchantNotFound)
	}

	// 9. Подписка мерчанта активна или в льготном периоде.
	if !merchant.CanTransact(now) {
		return nil, fmt.Errorf("%s: %w", op, ErrMerchantSubscriptionInactive)
	}

	redemption := &models.Redemption{
		ID:             uuid.NewString(),
		UserID:         tok.UserID,
		OfferID:        tok.OfferID,
		MerchantID:     tok.MerchantID,
		StaffID:        in.StaffID,
		TokenNonce:     tok.Nonce,
		PointsCost:     offer.PointsCost,
		Status:         models.RedemptionStatusCompleted,
		RedeemedAt:     now,
		ActorID:        in.ActorID,
		IdempotencyKey: in.IdempotencyKey,
	}

	err = s.storage.CompleteRedemption(ctx, storage.Settlement{
		Redemption:           redemption,
		AllowNegativeBalance: !s.cfg.ForbidNegativeBalance,
		MaxPinAttempts:       s.cfg.MaxPinAttempts,
	})
	if err != nil {
		lost := errors.Is(err, storage.ErrAlreadyUsed) || errors.Is(err, storage.ErrAlreadyExists)
		if lost && in.IdempotencyKey != "" {
			replayed, rerr := s.replay(ctx, in, tok.Nonce)
			if errors.Is(rerr, ErrIdempotencyKeyReused) {
				return nil, fmt.Errorf("%s: %w", op, rerr)
			}
			if rerr == nil && replayed != nil {
				return replayed, nil
			}
		}

		return nil, s.settlementError(ctx, op, err)
	}

	metrics.PointsSettled.Add(float64(offer.PointsCost))

	lg.Info("finalize_committed",
		slog.String("redemption_id", redemption.ID),
		slog.String("nonce", redact.Nonce(tok.Nonce)),
		slog.String("user_id", tok.UserID),
		slog.String("merchant_id", tok.MerchantID),
		slog.Int64("points_cost", offer.PointsCost),
	)

	if perr := s.publisher.RedemptionCompleted(ctx, events.RedemptionCompleted{
		RedemptionID: redemption.ID,
		UserID:       redemption.UserID,
		OfferID:      redemption.OfferID,
		MerchantID:   redemption.MerchantID,
		StaffID:      redemption.StaffID,
		PointsCost:   redemption.PointsCost,
		RedeemedAt:   redemption.RedeemedAt,
	}); perr != nil {
		metrics.EventPublishFailures.WithLabelValues(events.TypeRedemptionCompleted).Inc()
		lg.Warn("event_publish_failed",
			slog.String("type", events.TypeRedemptionCompleted),
			slog.String("redemption_id", redemption.ID),
			slog.String("err", perr.Error()),
		)
	}

	return &models.FinalizeResult{
		RedemptionID:  redemption.ID,
		OfferTitle:    offer.Title,
		CustomerName:  customer.Name,
		PointsAwarded: offer.PointsCost,
	}, nil
}

// resolveToken находит токен по подписанному токену либо по display-коду.
func (s *Service) resolveToken(ctx context.Context, in models.FinalizeRequest, now time.Time) (*models.RedemptionToken, error) {
	switch {
	case in.Token != "":
		payload, err := token.Verify(s.secret, in.Token)
		if err != nil {
			log.From(ctx).Warn("token_rejected",
				slog.String("token", redact.Token()),
				slog.String("err", err.Error()),
			)
			return nil, ErrInvalidSignature
		}

		if payload.Expired(now) {
			return nil, ErrTokenExpired
		}

		tok, err := s.storage.TokenByNonce(ctx, payload.Nonce)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrTokenNotFound
			}
			return nil, err
		}

		return tok, nil

	case in.DisplayCode != "":
		tok, err := s.storage.UnusedTokenByDisplayCode(ctx, in.DisplayCode, "")
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrInvalidOrUsedCode
			}
			return nil, err
		}

		if tok.Expired(now) {
			return nil, ErrCodeExpired
		}

		return tok, nil

	default:
		return nil, ErrTokenOrCodeRequired
	}
}

// settlementError переводит ошибку атомарного погашения в бизнес-ошибку.
// Проигранная гонка за used и занятый чужим запросом ключ идемпотентности
// означают, что токен уже погашен.
func (s *Service) settlementError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrAlreadyUsed), errors.Is(err, storage.ErrAlreadyExists):
		return fmt.Errorf("%s: %w", op, ErrTokenAlreadyUsed)
	case errors.Is(err, storage.ErrPinNotVerified):
		return fmt.Errorf("%s: %w", op, ErrPinVerificationRequired)
	case errors.Is(err, storage.ErrTokenLocked):
		return fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
	case errors.Is(err, storage.ErrCustomerNotFound):
		return fmt.Errorf("%s: %w", op, ErrCustomerNotFound)
	case errors.Is(err, storage.ErrInsufficientPoints):
		return fmt.Errorf("%s: %w", op, ErrInsufficientPoints)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrTokenNotFound)
	default:
		log.From(ctx).Error("finalize_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
}

// replay возвращает сохранённый результат по (actor, idempotencyKey) или nil.
// Повтор засчитывается, только если запрос относится к тому же токену (nonce) и
// мерчанту, что и сохранённое погашение. nonce пуст, пока токен запроса не разрешён.
func (s *Service) replay(ctx context.Context, in models.FinalizeRequest, nonce string) (*models.FinalizeResult, error) {
	r, err := s.storage.RedemptionByIdempotencyKey(ctx, in.ActorID, in.IdempotencyKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if nonce == "" {
		nonce, err = s.requestNonce(ctx, in, r)
		if err != nil {
			return nil, err
		}
		// Токен запроса не разрешается: ошибку вернёт обычный путь.
		if nonce == "" {
			return nil, nil
		}
	}

	if r.TokenNonce != nonce || r.MerchantID != in.MerchantID {
		log.From(ctx).Warn("idempotency_key_reused",
			slog.String("redemption_id", r.ID),
			slog.String("actor_id", in.ActorID),
			slog.String("merchant_id", in.MerchantID),
		)
		return nil, ErrIdempotencyKeyReused
	}

	res := &models.FinalizeResult{
		RedemptionID:  r.ID,
		PointsAwarded: r.PointsCost,
		Replayed:      true,
	}

	if offer, err := s.storage.OfferByID(ctx, r.OfferID); err == nil {
		res.OfferTitle = offer.Title
	}
	if customer, err := s.storage.CustomerByID(ctx, r.UserID); err == nil {
		res.CustomerName = customer.Name
	}

	log.From(ctx).Info("finalize_replayed",
		slog.String("redemption_id", r.ID),
		slog.String("actor_id", in.ActorID),
	)

	return res, nil
}

// requestNonce определяет nonce токена, на который ссылается запрос, до полной
// проверки. Пустая строка без ошибки: токен не разрешается.
func (s *Service) requestNonce(ctx context.Context, in models.FinalizeRequest, r *models.Redemption) (string, error) {
	switch {
	case in.Token != "":
		payload, err := token.Verify(s.secret, in.Token)
		if err != nil {
			return "", nil
		}
		return payload.Nonce, nil

	case in.DisplayCode != "":
		// Активный токен с этим кодом важнее погашенного: коды переиспользуются.
		active, err := s.storage.UnusedTokenByDisplayCode(ctx, in.DisplayCode, "")
		if err == nil {
			return active.Nonce, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return "", err
		}

		redeemed, err := s.storage.TokenByNonce(ctx, r.TokenNonce)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", nil
			}
			return "", err
		}
		if redeemed.DisplayCode != in.DisplayCode {
			return "", nil
		}
		return redeemed.Nonce, nil

	default:
		return "", nil
	}
}
