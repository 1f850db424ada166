// Package memory — потокобезопасное in-memory хранилище для локального запуска
// (storage.driver=memory) и поведенческих тестов сервиса.
//
// Все операции выполняются под одним мьютексом, поэтому CompleteRedemption
// атомарна так же, как транзакция в postgres.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
)

// Storage хранит все сущности в map'ах, записи отдаются копиями.
type Storage struct {
	mu sync.Mutex

	customers   map[string]models.Customer
	offers      map[string]models.Offer
	merchants   map[string]models.Merchant
	tokens      map[string]models.RedemptionToken
	redemptions []models.Redemption
	counters    map[string]models.RateLimitCounter
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		customers: make(map[string]models.Customer),
		offers:    make(map[string]models.Offer),
		merchants: make(map[string]models.Merchant),
		tokens:    make(map[string]models.RedemptionToken),
		counters:  make(map[string]models.RateLimitCounter),
	}
}

// Close — no-op.
func (s *Storage) Close() {}

// PutCustomer добавляет или заменяет клиента (сидинг и тесты).
func (s *Storage) PutCustomer(c models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// PutOffer добавляет или заменяет предложение.
func (s *Storage) PutOffer(o models.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.ID] = o
}

// PutMerchant добавляет или заменяет мерчанта.
func (s *Storage) PutMerchant(m models.Merchant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants[m.ID] = m
}

// PutToken кладёт токен как есть, без проверок SaveToken.
func (s *Storage) PutToken(t models.RedemptionToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Nonce] = t
}

// Redemptions возвращает копию журнала погашений.
func (s *Storage) Redemptions() []models.Redemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Redemption, len(s.redemptions))
	copy(out, s.redemptions)
	return out
}

// CustomerByID находит клиента по ID.
func (s *Storage) CustomerByID(_ context.Context, id string) (*models.Customer, error) {
	const op = "storage.memory.CustomerByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &c, nil
}

// OfferByID находит предложение по ID.
func (s *Storage) OfferByID(_ context.Context, id string) (*models.Offer, error) {
	const op = "storage.memory.OfferByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &o, nil
}

// MerchantByID находит мерчанта по ID.
func (s *Storage) MerchantByID(_ context.Context, id string) (*models.Merchant, error) {
	const op = "storage.memory.MerchantByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &m, nil
}

// SaveToken сохраняет новый токен.
func (s *Storage) SaveToken(_ context.Context, token *models.RedemptionToken, now time.Time) error {
	const op = "storage.memory.SaveToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.Nonce]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	for _, t := range s.tokens {
		if t.DisplayCode == token.DisplayCode && !t.Used && !t.ExpiresAt.Before(now) {
			return fmt.Errorf("%s: display code busy: %w", op, storage.ErrAlreadyExists)
		}
	}

	s.tokens[token.Nonce] = *token
	return nil
}

// TokenByNonce находит токен по nonce.
func (s *Storage) TokenByNonce(_ context.Context, nonce string) (*models.RedemptionToken, error) {
	const op = "storage.memory.TokenByNonce"

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[nonce]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &t, nil
}

// UnusedTokenByDisplayCode находит самый свежий непогашенный токен по display-коду.
func (s *Storage) UnusedTokenByDisplayCode(_ context.Context, displayCode, merchantID string) (*models.RedemptionToken, error) {
	const op = "storage.memory.UnusedTokenByDisplayCode"

	s.mu.Lock()
	defer s.mu.Unlock()

	var found *models.RedemptionToken
	for _, t := range s.tokens {
		if t.Used || t.DisplayCode != displayCode {
			continue
		}
		if merchantID != "" && t.MerchantID != merchantID {
			continue
		}
		if found == nil || t.CreatedAt.After(found.CreatedAt) {
			cp := t
			found = &cp
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return found, nil
}

// RecordPinFailure атомарно увеличивает счётчик неверных PIN.
func (s *Storage) RecordPinFailure(_ context.Context, nonce string, maxAttempts int) (int, error) {
	const op = "storage.memory.RecordPinFailure"

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[nonce]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if t.Used || t.PinAttempts >= maxAttempts {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	t.PinAttempts++
	s.tokens[nonce] = t
	return t.PinAttempts, nil
}

// MarkPinVerified атомарно подтверждает PIN.
func (s *Storage) MarkPinVerified(_ context.Context, nonce string, at time.Time, maxAttempts int) error {
	const op = "storage.memory.MarkPinVerified"

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[nonce]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if t.Used || t.PinAttempts >= maxAttempts || t.ExpiresAt.Before(at) {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	t.PinVerified = true
	t.PinVerifiedAt = &at
	t.PinAttempts = 0
	s.tokens[nonce] = t
	return nil
}

// DeleteExpiredTokens удаляет непогашенные токены, истёкшие до before.
func (s *Storage) DeleteExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for nonce, t := range s.tokens {
		if !t.Used && t.ExpiresAt.Before(before) {
			delete(s.tokens, nonce)
			n++
		}
	}

	return n, nil
}

// CompleteRedemption атомарно гасит токен, пишет журнал и списывает баланс.
// Все проверки выполняются до первой записи, поэтому откат не нужен.
func (s *Storage) CompleteRedemption(_ context.Context, st storage.Settlement) error {
	const op = "storage.memory.CompleteRedemption"

	r := st.Redemption

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[r.TokenNonce]
	switch {
	case !ok:
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case t.Used:
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyUsed)
	case !t.PinVerified:
		return fmt.Errorf("%s: %w", op, storage.ErrPinNotVerified)
	case st.MaxPinAttempts > 0 && t.PinAttempts >= st.MaxPinAttempts:
		return fmt.Errorf("%s: %w", op, storage.ErrTokenLocked)
	}

	if r.IdempotencyKey != "" {
		for _, existing := range s.redemptions {
			if existing.ActorID == r.ActorID && existing.IdempotencyKey == r.IdempotencyKey {
				return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
			}
		}
	}

	c, ok := s.customers[r.UserID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrCustomerNotFound)
	}

	if !st.AllowNegativeBalance && c.PointsBalance < r.PointsCost {
		return fmt.Errorf("%s: %w", op, storage.ErrInsufficientPoints)
	}

	usedAt := r.RedeemedAt
	t.Used = true
	t.UsedAt = &usedAt
	s.tokens[t.Nonce] = t

	s.redemptions = append(s.redemptions, *r)

	c.PointsBalance -= r.PointsCost
	s.customers[c.ID] = c

	return nil
}

// HasCompletedRedemption проверяет наличие завершённого погашения в [from, to).
func (s *Storage) HasCompletedRedemption(_ context.Context, userID, offerID string, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.redemptions {
		if r.UserID != userID || r.OfferID != offerID || r.Status != models.RedemptionStatusCompleted {
			continue
		}
		if !r.RedeemedAt.Before(from) && r.RedeemedAt.Before(to) {
			return true, nil
		}
	}

	return false, nil
}

// RedemptionByIdempotencyKey находит погашение по (actorID, key).
func (s *Storage) RedemptionByIdempotencyKey(_ context.Context, actorID, key string) (*models.Redemption, error) {
	const op = "storage.memory.RedemptionByIdempotencyKey"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.redemptions {
		if r.ActorID == actorID && r.IdempotencyKey == key {
			cp := r
			return &cp, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// HitRateLimit сбрасывает или увеличивает счётчик key.
func (s *Storage) HitRateLimit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.Sub(c.WindowStartedAt) > window {
		s.counters[key] = models.RateLimitCounter{
			Key:             key,
			AttemptCount:    1,
			WindowStartedAt: now,
			LastAttemptAt:   now,
		}
		return 1, true, nil
	}

	if c.AttemptCount >= limit {
		return c.AttemptCount, false, nil
	}

	c.AttemptCount++
	c.LastAttemptAt = now
	s.counters[key] = c
	return c.AttemptCount, true, nil
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
