// storage задаёт контракты хранилища ядра погашений и общие ошибки.
// Реализации: postgres (боевая) и memory (локальный запуск и тесты).
package storage

//go:generate mockgen -destination=../../mocks/storage.go -package=mocks github.com/pribylovaa/go-loyalty-redemption/internal/storage Storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
)

var (
	// ErrNotFound — запись не найдена (клиент/предложение/мерчант/токен/погашение).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (nonce, активный display-код, ключ идемпотентности).
	ErrAlreadyExists = errors.New("already exists")
	// ErrAlreadyUsed — токен уже погашен (проиграна гонка compare-and-set по used).
	ErrAlreadyUsed = errors.New("token already used")
	// ErrPinNotVerified — попытка погасить токен без подтверждённого PIN.
	ErrPinNotVerified = errors.New("pin not verified")
	// ErrInsufficientPoints — баланс клиента меньше стоимости (при запрете отрицательного баланса).
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrCustomerNotFound — при погашении не найдена строка клиента для списания.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrTokenLocked — токен заблокирован исчерпанными попытками PIN.
	ErrTokenLocked = errors.New("token locked")
	// ErrConflict — условное обновление не применилось (токен погашен или заблокирован параллельно).
	ErrConflict = errors.New("conflict")
)

// DirectoryStorage — чтение справочных сущностей, принадлежащих внешним сервисам.
type DirectoryStorage interface {
	// CustomerByID возвращает клиента по ID.
	CustomerByID(ctx context.Context, id string) (*models.Customer, error)
	// OfferByID возвращает предложение по ID.
	OfferByID(ctx context.Context, id string) (*models.Offer, error)
	// MerchantByID возвращает мерчанта по ID.
	MerchantByID(ctx context.Context, id string) (*models.Merchant, error)
}

// TokenStorage выполняет операции над токенами погашения.
type TokenStorage interface {
	// SaveToken сохраняет новый токен. ErrAlreadyExists, если nonce занят или
	// display-код принадлежит другому непогашенному и неистёкшему на момент now токену.
	SaveToken(ctx context.Context, token *models.RedemptionToken, now time.Time) error
	// TokenByNonce находит токен по nonce.
	TokenByNonce(ctx context.Context, nonce string) (*models.RedemptionToken, error)
	// UnusedTokenByDisplayCode находит самый свежий непогашенный токен по display-коду.
	// Пустой merchantID — поиск без фильтра по мерчанту.
	UnusedTokenByDisplayCode(ctx context.Context, displayCode, merchantID string) (*models.RedemptionToken, error)
	// RecordPinFailure атомарно увеличивает счётчик неверных PIN, пока он меньше maxAttempts.
	// Возвращает новое значение; ErrConflict, если токен погашен или уже заблокирован.
	RecordPinFailure(ctx context.Context, nonce string, maxAttempts int) (int, error)
	// MarkPinVerified атомарно выставляет pin_verified=true, pin_verified_at=at, pin_attempts=0
	// для непогашенного и незаблокированного токена; иначе ErrConflict.
	MarkPinVerified(ctx context.Context, nonce string, at time.Time, maxAttempts int) error
	// DeleteExpiredTokens удаляет непогашенные токены, истёкшие до before.
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// Settlement — параметры атомарного погашения.
type Settlement struct {
	Redemption *models.Redemption
	// AllowNegativeBalance разрешает уход баланса клиента в минус.
	AllowNegativeBalance bool
	// MaxPinAttempts — потолок неверных PIN; токен с pin_attempts >= MaxPinAttempts не гасится.
	MaxPinAttempts int
}

// RedemptionStorage выполняет операции над журналом погашений.
type RedemptionStorage interface {
	// CompleteRedemption одной транзакцией: переводит токен used=false->true (только при
	// pin_verified и pin_attempts < MaxPinAttempts), создаёт запись погашения и относительно
	// списывает баланс клиента. Ошибки: ErrAlreadyUsed, ErrPinNotVerified, ErrTokenLocked,
	// ErrInsufficientPoints, ErrNotFound (токен), ErrCustomerNotFound,
	// ErrAlreadyExists (ключ идемпотентности занят).
	CompleteRedemption(ctx context.Context, s Settlement) error
	// HasCompletedRedemption проверяет наличие завершённого погашения (userID, offerID)
	// в полуинтервале [from, to).
	HasCompletedRedemption(ctx context.Context, userID, offerID string, from, to time.Time) (bool, error)
	// RedemptionByIdempotencyKey находит погашение по (actorID, key).
	RedemptionByIdempotencyKey(ctx context.Context, actorID, key string) (*models.Redemption, error)
}

// RateLimitStorage — документные счётчики ограничения частоты.
type RateLimitStorage interface {
	// HitRateLimit атомарно сбрасывает (если now - windowStart > window) или увеличивает
	// счётчик key, пока он меньше limit. Возвращает итоговое значение и признак допуска;
	// отклонённая попытка счётчик не меняет.
	HitRateLimit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (int, bool, error)
}

// Storage задаёт полный контракт хранилища.
type Storage interface {
	DirectoryStorage
	TokenStorage
	RedemptionStorage
	RateLimitStorage
	Close()
}
