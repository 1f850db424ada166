// service содержит бизнес-логику протокола погашения:
// выдачу подписанного токена (Issue), проверку PIN при личном визите (VerifyPin)
// и финальное погашение со списанием баллов (Finalize).
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования при потокобезопасном storage.Storage.
//   - Проверки каждой операции выполняются строго по порядку, первая неудача
//     возвращается как *Error до любых побочных эффектов следующих шагов.
//   - Погашение (used=false->true, запись журнала, списание баланса) выполняется
//     хранилищем атомарно; проверка pinVerified всегда предшествует списанию.
//   - Ошибки хранилища оборачиваются с op и не являются *Error: транспорт
//     отдаёт их как внутренний сбой.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-loyalty-redemption/internal/config"
	"github.com/pribylovaa/go-loyalty-redemption/internal/events"
	"github.com/pribylovaa/go-loyalty-redemption/internal/metrics"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/clock"
	"github.com/pribylovaa/go-loyalty-redemption/internal/pkg/log"
	"github.com/pribylovaa/go-loyalty-redemption/internal/ratelimit"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
)

// Service описывает бизнес-логику погашений.
type Service struct {
	storage   storage.Storage
	cfg       config.RedemptionConfig
	secret    []byte
	loc       *time.Location
	limiter   *ratelimit.Limiter
	publisher events.Publisher
	clock     clock.Clock
	random    io.Reader
}

// New создаёт новый экземпляр Service. По умолчанию счётчики лимитов живут
// в том же хранилище, события не публикуются.
func New(storage storage.Storage, cfg config.RedemptionConfig) *Service {
	return &Service{
		storage:   storage,
		cfg:       cfg,
		secret:    []byte(cfg.TokenSecret),
		loc:       cfg.Location(),
		limiter:   ratelimit.New(storage),
		publisher: events.NopPublisher{},
		clock:     clock.Real{},
		random:    rand.Reader,
	}
}

// SetLimiter заменяет источник счётчиков лимитов (например, Redis).
func (s *Service) SetLimiter(l *ratelimit.Limiter) {
	s.limiter = l
}

// SetPublisher устанавливает публикатор доменных событий.
func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// SetClock подменяет часы (тесты).
func (s *Service) SetClock(c clock.Clock) {
	s.clock = c
}

// SetRandom подменяет источник случайности для nonce, кода и PIN (тесты).
func (s *Service) SetRandom(r io.Reader) {
	s.random = r
}

func (s *Service) issueRule() ratelimit.Rule {
	return ratelimit.Rule{Limit: s.cfg.IssueLimit, Window: s.cfg.LimitWindow}
}

func (s *Service) validateRule() ratelimit.Rule {
	return ratelimit.Rule{Limit: s.cfg.ValidateLimit, Window: s.cfg.LimitWindow}
}

// observe учитывает исход операции в метриках.
func observe(operation string, err error) {
	metrics.Operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// PurgeExpiredTokens удаляет непогашенные токены, истёкшие раньше, чем now - retention.
func (s *Service) PurgeExpiredTokens(ctx context.Context, retention time.Duration) (int64, error) {
	const op = "service.PurgeExpiredTokens"

	n, err := s.storage.DeleteExpiredTokens(ctx, s.clock.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if n > 0 {
		metrics.TokensPurged.Add(float64(n))
		log.From(ctx).Info("tokens_purged", slog.Int64("count", n))
	}

	return n, nil
}
