//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditline/platform/internal/app"
	"github.com/creditline/platform/internal/auth"
	"github.com/creditline/platform/internal/infra"
)

const (
	TestJWTSecret = "integration-test-secret-0123456789abcdef"
	TestDBHost    = "localhost"
	TestDBPort    = 5433
	TestDBUser    = "creditline"
	TestDBPass    = "creditline"
	TestDBName    = "creditline_test"
)

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server *httptest.Server
	Pool   *pgxpool.Pool
	Config *infra.Config
	JWTMgr *auth.JWTManager
	t      *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, "creditline")
}

func ensureTestDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bPool, err := pgxpool.New(ctx, bootstrapDSN())
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer bPool.Close()

	var exists bool
	err = bPool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", TestDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check db exists: %w", err)
	}

	if !exists {
		_, err = bPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", TestDBName))
		if err != nil {
			return fmt.Errorf("create test db: %w", err)
		}
	}

	return nil
}

func runMigrations() error {
	migratePath := fmt.Sprintf("file://%s/db/migrations", findProjectRoot())

	m, err := newMigrate(migratePath, testDSN())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err.Error() != "no change" {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, _ := os.Getwd()
	for dir != "" && dir != "/" {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		dir = filepath.Dir(dir)
	}
	return "."
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolCfg, err := pgxpool.ParseConfig(testDSN())
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
			return
		}

		if err := runMigrations(); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			sharedPool.Close()
			sharedPool = nil
			return
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

// testConfig returns a config wired for tests. The upstream and slip
// provider URLs point nowhere until a test overrides them with a stub
// server via a NewTestEnv option.
func testConfig() *infra.Config {
	return &infra.Config{
		JWTSecret:             TestJWTSecret,
		UpstreamBaseURL:       "http://127.0.0.1:1", // unreachable unless overridden
		UpstreamUsername:      "testuser",
		UpstreamPassword:      "testpass",
		UpstreamTimeout:       5 * time.Second,
		OpenSlipBaseURL:       "http://127.0.0.1:1",
		OpenSlipAPIKey:        "openslip-test-key",
		SlipSureBaseURL:       "http://127.0.0.1:1",
		SlipSureAPIKey:        "slipsure-test-key",
		SlipTimeout:           5 * time.Second,
		MerchantNames:         "CREDITLINE CO LTD,CREDITLINE CO",
		CompensateMaxAttempts: 2,
		CompensateBackoff:     10 * time.Millisecond,
		PendingSweepAge:       0, // stale immediately, so sweep tests see fresh rows
	}
}

// NewTestEnv creates a test environment with an httptest.Server backed by
// the real router and the shared test database. Options mutate the config
// before the router is built, typically to point provider URLs at stubs.
func NewTestEnv(t *testing.T, opts ...func(*infra.Config)) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	jwtMgr := auth.NewJWTManager(TestJWTSecret, 12*time.Hour, 24*time.Hour, 8*time.Hour)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	router := app.NewRouter(app.RouterDeps{
		Pool:   pool,
		Config: cfg,
		JWTMgr: jwtMgr,
		Logger: logger,
	})

	server := httptest.NewServer(router)

	env := &TestEnv{
		Server: server,
		Pool:   pool,
		Config: cfg,
		JWTMgr: jwtMgr,
		t:      t,
	}
	t.Cleanup(func() {
		server.Close()
		env.CleanAll()
	})
	env.CleanAll()
	return env
}
