package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-loyalty-redemption/internal/models"
	"github.com/pribylovaa/go-loyalty-redemption/internal/storage"
)

// CustomerByID находит клиента по ID.
func (s *Storage) CustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	const op = "storage.postgres.CustomerByID"

	query := `
		SELECT id, name, points_balance, subscription_status, subscription_expiry
		FROM customers
		WHERE id = $1
	`

	var c models.Customer
	err := s.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.PointsBalance,
		&c.SubscriptionStatus,
		&c.SubscriptionExpiry,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &c, nil
}

// OfferByID находит предложение по ID.
func (s *Storage) OfferByID(ctx context.Context, id string) (*models.Offer, error) {
	const op = "storage.postgres.OfferByID"

	query := `
		SELECT id, merchant_id, title, points_cost, active
		FROM offers
		WHERE id = $1
	`

	var o models.Offer
	err := s.db.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.MerchantID,
		&o.Title,
		&o.PointsCost,
		&o.Active,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &o, nil
}

// MerchantByID находит мерчанта по ID.
func (s *Storage) MerchantByID(ctx context.Context, id string) (*models.Merchant, error) {
	const op = "storage.postgres.MerchantByID"

	query := `
		SELECT id, name, subscription_status, grace_period_end
		FROM merchants
		WHERE id = $1
	`

	var m models.Merchant
	err := s.db.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.SubscriptionStatus,
		&m.GracePeriodEnd,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &m, nil
}
