package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// HitRateLimit атомарно сбрасывает или увеличивает счётчик key одним выражением.
//
// Окно отсчитывается от window_started_at (последнего сброса): если с него прошло
// больше window, счётчик становится 1; иначе увеличивается, пока меньше limit.
// Если ON CONFLICT ... WHERE не выполнился, строка не возвращается — попытка отклонена,
// а счётчик не меняется.
func (s *Storage) HitRateLimit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (int, bool, error) {
	const op = "storage.postgres.HitRateLimit"

	query := `
		INSERT INTO rate_limits AS rl (key, attempt_count, window_started_at, last_attempt_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (key) DO UPDATE SET
			attempt_count = CASE
				WHEN rl.window_started_at < $3 THEN 1
				ELSE rl.attempt_count + 1
			END,
			window_started_at = CASE
				WHEN rl.window_started_at < $3 THEN EXCLUDED.window_started_at
				ELSE rl.window_started_at
			END,
			last_attempt_at = EXCLUDED.last_attempt_at
		WHERE rl.window_started_at < $3 OR rl.attempt_count < $4
		RETURNING attempt_count
	`

	var count int
	err := s.db.QueryRow(ctx, query, key, now, now.Add(-window), limit).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return limit, false, nil
		}

		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	return count, true, nil
}
