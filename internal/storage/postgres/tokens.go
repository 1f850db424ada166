package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
)

const tokenColumns = `
	nonce, user_id, offer_id, merchant_id, device_hash, display_code, one_time_pin,
	pin_attempts, pin_verified, pin_verified_at, created_at, expires_at, used, used_at
`

func scanToken(row pgx.Row) (*models.RedemptionToken, error) {
	var t models.RedemptionToken
	err := row.Scan(
		&t.Nonce,
		&t.UserID,
		&t.OfferID,
		&t.MerchantID,
		&t.DeviceHash,
		&t.DisplayCode,
		&t.OneTimePin,
		&t.PinAttempts,
		&t.PinVerified,
		&t.PinVerifiedAt,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.Used,
		&t.UsedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// SaveToken сохраняет новый токен погашения.
// Вставка не выполняется, если display-код уже занят активным (непогашенным и неистёкшим) токеном.
// Проверка и вставка идут под транзакционной advisory-блокировкой по коду, поэтому
// параллельные выдачи с одинаковым кодом не проходят обе.
func (s *Storage) SaveToken(ctx context.Context, token *models.RedemptionToken, now time.Time) (err error) {
	const op = "storage.postgres.SaveToken"

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.Background())
		}
	}()

	lockQuery := `SELECT pg_advisory_xact_lock(hashtext('redemption_tokens.display_code'), hashtext($1::text))`
	if _, err = tx.Exec(ctx, lockQuery, token.DisplayCode); err != nil {
		return fmt.Errorf("%s: lock display code: %w", op, err)
	}

	query := `
		INSERT INTO redemption_tokens(` + tokenColumns + `)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text,
		       $8::smallint, $9::boolean, $10::timestamptz, $11::timestamptz, $12::timestamptz,
		       $13::boolean, $14::timestamptz
		WHERE NOT EXISTS (
			SELECT 1
			FROM redemption_tokens
			WHERE display_code = $6::text AND used = FALSE AND expires_at >= $15::timestamptz
		)
	`

	cmdTag, err := tx.Exec(ctx, query,
		token.Nonce,
		token.UserID,
		token.OfferID,
		token.MerchantID,
		token.DeviceHash,
		token.DisplayCode,
		token.OneTimePin,
		token.PinAttempts,
		token.PinVerified,
		token.PinVerifiedAt,
		token.CreatedAt,
		token.ExpiresAt,
		token.Used,
		token.UsedAt,
		now,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			err = storage.ErrAlreadyExists
			return fmt.Errorf("%s: %w", op, err)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		err = storage.ErrAlreadyExists
		return fmt.Errorf("%s: display code busy: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// TokenByNonce находит токен по nonce.
func (s *Storage) TokenByNonce(ctx context.Context, nonce string) (*models.RedemptionToken, error) {
	const op = "storage.postgres.TokenByNonce"

	query := `SELECT ` + tokenColumns + ` FROM redemption_tokens WHERE nonce = $1`

	t, err := scanToken(s.db.QueryRow(ctx, query, nonce))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// UnusedTokenByDisplayCode находит самый свежий непогашенный токен по display-коду
// (и мерчанту, если merchantID не пуст).
func (s *Storage) UnusedTokenByDisplayCode(ctx context.Context, displayCode, merchantID string) (*models.RedemptionToken, error) {
	const op = "storage.postgres.UnusedTokenByDisplayCode"

	var row pgx.Row
	if merchantID == "" {
		query := `
			SELECT ` + tokenColumns + `
			FROM redemption_tokens
			WHERE display_code = $1 AND used = FALSE
			ORDER BY created_at DESC
			LIMIT 1
		`
		row = s.db.QueryRow(ctx, query, displayCode)
	} else {
		query := `
			SELECT ` + tokenColumns + `
			FROM redemption_tokens
			WHERE display_code = $1 AND merchant_id = $2 AND used = FALSE
			ORDER BY created_at DESC
			LIMIT 1
		`
		row = s.db.QueryRow(ctx, query, displayCode, merchantID)
	}

	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// RecordPinFailure атомарно увеличивает pin_attempts, пока он меньше maxAttempts.
func (s *Storage) RecordPinFailure(ctx context.Context, nonce string, maxAttempts int) (int, error) {
	const op = "storage.postgres.RecordPinFailure"

	query := `
		UPDATE redemption_tokens
		SET pin_attempts = pin_attempts + 1
		WHERE nonce = $1 AND used = FALSE AND pin_attempts < $2
		RETURNING pin_attempts
	`

	var attempts int
	err := s.db.QueryRow(ctx, query, nonce, maxAttempts).Scan(&attempts)
	if err == nil {
		return attempts, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokenExists(ctx, nonce); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return 0, fmt.Errorf("%s: %w", op, storage.ErrConflict)
}

// MarkPinVerified атомарно подтверждает PIN: pin_verified=TRUE, pin_verified_at=at, pin_attempts=0.
// Условие expires_at >= at сохраняет инвариант pin_verified_at <= expires_at.
func (s *Storage) MarkPinVerified(ctx context.Context, nonce string, at time.Time, maxAttempts int) error {
	const op = "storage.postgres.MarkPinVerified"

	query := `
		UPDATE redemption_tokens
		SET pin_verified = TRUE, pin_verified_at = $2, pin_attempts = 0
		WHERE nonce = $1 AND used = FALSE AND pin_attempts < $3 AND expires_at >= $2
	`

	cmdTag, err := s.db.Exec(ctx, query, nonce, at, maxAttempts)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		if err := s.tokenExists(ctx, nonce); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	return nil
}

// DeleteExpiredTokens удаляет непогашенные токены, истёкшие до before.
// Погашенные токены остаются: на них ссылаются записи погашений.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredTokens"

	query := `
		DELETE FROM redemption_tokens
		WHERE used = FALSE AND expires_at < $1
	`

	cmdTag, err := s.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

// tokenExists возвращает storage.ErrNotFound, если токена нет.
func (s *Storage) tokenExists(ctx context.Context, nonce string) error {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM redemption_tokens WHERE nonce = $1)`, nonce).Scan(&exists)
	if err != nil {
		return err
	}

	if !exists {
		return storage.ErrNotFound
	}

	return nil
}
