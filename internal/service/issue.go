package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/pribylovaa/go-loyalty-redemption/internal/events"
	"github.com/pribylovaa/go-loyalty-redemption/internal/metrics"
	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/redact"
	"github.com/pribylovaa/go-loyalty-redemption/internal/ratelimit"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
	"github.com/pribylovaa/go-loyalty-redemption/internal/token"
)

const (
	nonceBytes       = 16
	maxIssueAttempts = 5
	codeMin          = 100000
	codeSpan         = 900000
)

// Issue выдаёт клиенту подписанный токен погашения.
//
// Проверки по порядку: аутентификация, requester == user, клиент существует,
// подписка активна, поля заполнены, предложение (существует, активно, cost > 0),
// мерчант существует, лимит issue:{user}:{device}, нет погашения в текущем месяце.
// Счётчик лимита пишется и на успешном пути.
func (s *Service) Issue(ctx context.Context, in models.IssueRequest) (res *models.IssueResult, err error) {
	const op = "service.Issue"

	defer func() { observe("issue", err) }()

	lg := log.From(ctx)
	now := s.clock.Now()

	if in.RequesterID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	// 1. Клиент действует от своего имени.
	if in.RequesterID != in.UserID {
		return nil, fmt.Errorf("%s: %w", op, ErrUserMismatch)
	}

	// 2-3. Клиент и подписка.
	customer, err := s.storage.CustomerByID(ctx, in.UserID)
	if err != nil {
		return nil, notFoundAs(op, err, ErrCustomerNotFound)
	}

	if !customer.HasActiveSubscription(now) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionRequired)
	}

	// 4. Обязательные поля.
	if in.OfferID == "" || in.MerchantID == "" || in.DeviceHash == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	// 5. Предложение.
	offer, err := s.storage.OfferByID(ctx, in.OfferID)
	if err != nil {
		return nil, notFoundAs(op, err, ErrOfferNotFound)
	}

	if !offer.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrOfferInactive)
	}

	if offer.PointsCost <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidOfferCost)
	}

	// 6. Мерчант.
	if _, err := s.storage.MerchantByID(ctx, in.MerchantID); err != nil {
		return nil, notFoundAs(op, err, ErrMerchantNotFound)
	}

	// 7. Лимит выдачи.
	allowed, err := s.limiter.Allow(ctx, ratelimit.IssueKey(in.UserID, in.DeviceHash), s.issueRule(), now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !allowed {
		lg.Warn("rate_limited",
			slog.String("operation", "issue"),
			slog.String("user_id", in.UserID),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	// 8. Одно погашение предложения в календарный месяц.
	from, to := monthRange(now, s.loc)
	redeemed, err := s.storage.HasCompletedRedemption(ctx, in.UserID, in.OfferID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if redeemed {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyRedeemedThisMonth)
	}

	rec, signed, err := s.mintToken(ctx, in, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("token_issued",
		slog.String("nonce", redact.Nonce(rec.Nonce)),
		slog.String("user_id", rec.UserID),
		slog.String("offer_id", rec.OfferID),
		slog.String("merchant_id", rec.MerchantID),
		slog.String("display_code", redact.Code(rec.DisplayCode)),
	)

	if perr := s.publisher.TokenIssued(ctx, events.TokenIssued{
		Nonce:      rec.Nonce,
		UserID:     rec.UserID,
		OfferID:    rec.OfferID,
		MerchantID: rec.MerchantID,
		IssuedAt:   rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	}); perr != nil {
		metrics.EventPublishFailures.WithLabelValues(events.TypeTokenIssued).Inc()
		lg.Warn("event_publish_failed",
			slog.String("type", events.TypeTokenIssued),
			slog.String("err", perr.Error()),
		)
	}

	return &models.IssueResult{
		Token:       signed,
		DisplayCode: rec.DisplayCode,
		ExpiresAt:   rec.ExpiresAt,
		OneTimePin:  rec.OneTimePin,
	}, nil
}

// mintToken генерирует nonce, display-код и PIN, подписывает токен и сохраняет запись.
// Если display-код занят активным токеном, генерация повторяется.
func (s *Service) mintToken(ctx context.Context, in models.IssueRequest, now time.Time) (*models.RedemptionToken, string, error) {
	const op = "service.mintToken"

	lg := log.From(ctx)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		nonce, err := randomHex(s.random, nonceBytes)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		code, err := sixDigits(s.random)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		pin, err := sixDigits(s.random)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		expiresAt := now.Add(s.cfg.TokenTTL)

		signed, err := token.Encode(s.secret, token.Payload{
			UserID:     in.UserID,
			OfferID:    in.OfferID,
			MerchantID: in.MerchantID,
			DeviceHash: in.DeviceHash,
			GeoLat:     in.GeoLat,
			GeoLng:     in.GeoLng,
			PartySize:  in.PartySize,
			Timestamp:  now.UnixMilli(),
			ExpiresAt:  expiresAt.UnixMilli(),
			Nonce:      nonce,
		})
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		rec := &models.RedemptionToken{
			Nonce:       nonce,
			UserID:      in.UserID,
			OfferID:     in.OfferID,
			MerchantID:  in.MerchantID,
			DeviceHash:  in.DeviceHash,
			DisplayCode: code,
			OneTimePin:  pin,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
		}

		if err := s.storage.SaveToken(ctx, rec, now); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия nonce или занятый display-код.
				continue
			}

			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		return rec, signed, nil
	}

	lg.Error("display_code_collision_exceeded", slog.String("op", op))

	return nil, "", fmt.Errorf("%s: %w", op, ErrTokenCollision)
}

// monthRange возвращает [начало месяца, начало следующего) для now в часовом поясе loc.
func monthRange(now time.Time, loc *time.Location) (time.Time, time.Time) {
	t := now.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

func randomHex(r io.Reader, n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// sixDigits — равномерное число из [100000, 999999] строкой.
func sixDigits(r io.Reader) (string, error) {
	n, err := rand.Int(r, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// notFoundAs превращает storage.ErrNotFound в бизнес-ошибку notFound,
// прочие ошибки оборачивает как есть.
func notFoundAs(op string, err error, notFound *Error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, notFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}
