//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjstillabower/movie-service/internal/cache"
	"github.com/kjstillabower/movie-service/internal/repository"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	DatabaseDSN   string
	CacheBackend  string // "none", "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if TEST_DATABASE_DSN is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping integration test")
	}

	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}

	return IntegrationTestConfig{
		DatabaseDSN:   dsn,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationRepository opens Postgres, applies the movies migration and
// empties the table. The repository is wrapped in the configured cache.
// The returned cleanup empties the table again and closes every connection.
func SetupIntegrationRepository(t *testing.T, cfg IntegrationTestConfig) (repository.Repository, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := repository.OpenPostgres(ctx, repository.PostgresConfig{DSN: cfg.DatabaseDSN, MaxOpenConns: 5})
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	schema, err := os.ReadFile(filepath.Join(projectRoot(t), "migrations", "000001_create_movies_table.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE movies`); err != nil {
		t.Fatalf("truncate movies: %v", err)
	}

	var repo repository.Repository = repository.NewPostgresRepository(db)
	closeCache := func() {}
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			repo = cache.NewCachedRepository(repo, mc, time.Minute)
			closeCache = func() { _ = mc.Close() }
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("Memcached not available (%v), using in-memory cache", err)
			repo = cache.NewCachedRepository(repo, cache.NewInMemoryCache(), time.Minute)
		}
	case "in_memory":
		repo = cache.NewCachedRepository(repo, cache.NewInMemoryCache(), time.Minute)
	}

	cleanup := func() {
		_, _ = db.ExecContext(context.Background(), `TRUNCATE movies`)
		closeCache()
		_ = db.Close()
	}
	return repo, cleanup
}

// projectRoot walks up from the working directory to the directory holding go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above working directory")
		}
		dir = parent
	}
}
