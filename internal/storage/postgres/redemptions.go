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

const idempotencyIndex = "ux_redemptions_actor_idempotency_key"

// CompleteRedemption выполняет погашение одной транзакцией:
//  1. compare-and-set used=FALSE->TRUE (только для токена с pin_verified=TRUE,
//     не заблокированного попытками PIN);
//  2. вставка записи в redemptions;
//  3. относительное списание баланса клиента.
//
// Конкурирующий UPDATE того же токена ждёт блокировку строки и после коммита
// победителя не находит строку с used=FALSE — ровно один вызов проходит шаг 1.
func (s *Storage) CompleteRedemption(ctx context.Context, st storage.Settlement) (err error) {
	const op = "storage.postgres.CompleteRedemption"

	r := st.Redemption

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.Background())
		}
	}()

	// 1. CAS по used.
	casQuery := `
		UPDATE redemption_tokens
		SET used = TRUE, used_at = $2
		WHERE nonce = $1 AND used = FALSE AND pin_verified = TRUE
		  AND ($3::int <= 0 OR pin_attempts < $3::int)
		RETURNING nonce
	`

	var nonce string
	if err = tx.QueryRow(ctx, casQuery, r.TokenNonce, r.RedeemedAt, st.MaxPinAttempts).Scan(&nonce); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: mark used: %w", op, err)
		}

		err = casFailure(ctx, tx, r.TokenNonce, st.MaxPinAttempts)
		return fmt.Errorf("%s: %w", op, err)
	}

	// 2. Запись погашения.
	insQuery := `
		INSERT INTO redemptions(id, user_id, offer_id, merchant_id, staff_id, token_nonce,
		                        points_cost, status, redeemed_at, actor_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.Exec(ctx, insQuery,
		r.ID,
		r.UserID,
		r.OfferID,
		r.MerchantID,
		nullIfEmpty(r.StaffID),
		r.TokenNonce,
		r.PointsCost,
		r.Status,
		r.RedeemedAt,
		r.ActorID,
		nullIfEmpty(r.IdempotencyKey),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == idempotencyIndex {
				err = storage.ErrAlreadyExists
				return fmt.Errorf("%s: %w", op, err)
			}

			err = storage.ErrAlreadyUsed
			return fmt.Errorf("%s: %w", op, err)
		}

		return fmt.Errorf("%s: insert redemption: %w", op, err)
	}

	// 3. Относительное списание баланса.
	balQuery := `
		UPDATE customers
		SET points_balance = points_balance - $2
		WHERE id = $1
	`
	if !st.AllowNegativeBalance {
		balQuery += ` AND points_balance >= $2`
	}

	cmdTag, err := tx.Exec(ctx, balQuery, r.UserID, r.PointsCost)
	if err != nil {
		return fmt.Errorf("%s: debit balance: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, r.UserID).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		err = storage.ErrInsufficientPoints
		if !exists {
			err = storage.ErrCustomerNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// casFailure определяет причину, по которой CAS по used не применился.
func casFailure(ctx context.Context, tx pgx.Tx, nonce string, maxAttempts int) error {
	var used, verified bool
	var attempts int
	err := tx.QueryRow(ctx,
		`SELECT used, pin_verified, pin_attempts FROM redemption_tokens WHERE nonce = $1`, nonce,
	).Scan(&used, &verified, &attempts)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return storage.ErrNotFound
	case err != nil:
		return err
	case used:
		return storage.ErrAlreadyUsed
	case !verified:
		return storage.ErrPinNotVerified
	case maxAttempts > 0 && attempts >= maxAttempts:
		return storage.ErrTokenLocked
	default:
		return storage.ErrConflict
	}
}

// HasCompletedRedemption проверяет наличие завершённого погашения (userID, offerID) в [from, to).
func (s *Storage) HasCompletedRedemption(ctx context.Context, userID, offerID string, from, to time.Time) (bool, error) {
	const op = "storage.postgres.HasCompletedRedemption"

	query := `
		SELECT EXISTS(
			SELECT 1
			FROM redemptions
			WHERE user_id = $1 AND offer_id = $2 AND status = $3
			  AND redeemed_at >= $4 AND redeemed_at < $5
		)
	`

	var exists bool
	if err := s.db.QueryRow(ctx, query, userID, offerID, models.RedemptionStatusCompleted, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// RedemptionByIdempotencyKey находит погашение по (actorID, key).
func (s *Storage) RedemptionByIdempotencyKey(ctx context.Context, actorID, key string) (*models.Redemption, error) {
	const op = "storage.postgres.RedemptionByIdempotencyKey"

	query := `
		SELECT id, user_id, offer_id, merchant_id, COALESCE(staff_id, ''), token_nonce,
		       points_cost, status, redeemed_at, actor_id, COALESCE(idempotency_key, '')
		FROM redemptions
		WHERE actor_id = $1 AND idempotency_key = $2
	`

	var r models.Redemption
	err := s.db.QueryRow(ctx, query, actorID, key).Scan(
		&r.ID,
		&r.UserID,
		&r.OfferID,
		&r.MerchantID,
		&r.StaffID,
		&r.TokenNonce,
		&r.PointsCost,
		&r.Status,
		&r.RedeemedAt,
		&r.ActorID,
		&r.IdempotencyKey,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &r, nil
}
