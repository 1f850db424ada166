package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты пакета postgres:
// - поднимают реальный PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют все миграции из ./migrations по порядку;
// - проверяют условные обновления токенов, транзакционное погашение и счётчики.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

var migrations = []string{
	"1_init_directory.up.sql",
	"2_init_redemption_tokens.up.sql",
	"3_init_redemptions.up.sql",
	"4_init_rate_limits.up.sql",
}

// repoRootFromThisFile — корень репозитория относительно текущего файла тестов.
func repoRootFromThisFile() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration читает SQL-миграцию из ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRootFromThisFile(), "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres поднимает временный PostgreSQL, применяет миграции и возвращает хранилище.
// Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	for _, m := range migrations {
		_, err = pool.Exec(ctx, readMigration(t, m))
		require.NoError(t, err, "apply %s", m)
	}

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

// seedDirectory создаёт клиента u1 (баланс balance), мерчанта m1 и предложение o1 (cost=50).
func seedDirectory(t *testing.T, st *Storage, balance int64) {
	t.Helper()
	ctx := context.Background()

	_, err := st.db.Exec(ctx, `
		INSERT INTO customers(id, name, points_balance, subscription_status, subscription_expiry)
		VALUES ('u1', 'Alice', $1, 'active', $2)
	`, balance, time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	_, err = st.db.Exec(ctx, `
		INSERT INTO merchants(id, name, subscription_status, grace_period_end)
		VALUES ('m1', 'Coffee', 'past_due', $1)
	`, time.Now().Add(72*time.Hour))
	require.NoError(t, err)

	_, err = st.db.Exec(ctx, `
		INSERT INTO offers(id, merchant_id, title, points_cost, active)
		VALUES ('o1', 'm1', 'Free latte', 50, TRUE)
	`)
	require.NoError(t, err)
}
