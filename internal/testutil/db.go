package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/adocstore/internal/config"
	"github.com/xxxsen/adocstore/internal/db"
	"github.com/xxxsen/adocstore/internal/model"
	"github.com/xxxsen/adocstore/internal/pkg/timeutil"
	"github.com/xxxsen/adocstore/internal/repo"
	"github.com/xxxsen/adocstore/internal/tenant"
)

// OpenTestDB opens a migrated sqlite database private to t.
func OpenTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: config.DriverSqlite,
		Path:   filepath.Join(t.TempDir(), "adocstore.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// OpenPostgresTestDB connects to the database named by TEST_DB_HOST and skips
// the test when it is unset.
func OpenPostgresTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     5432,
		User:     "adocstore",
		Password: "adocstore_pass",
		DBName:   "adocstore_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	for _, table := range []string{"translations", "documents", "tenants"} {
		if _, err := conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// SeedTenant registers a tenant owning apiKey and returns it.
func SeedTenant(t *testing.T, conn *sqlx.DB, email, apiKey string) *model.Tenant {
	t.Helper()
	tn := &model.Tenant{
		Email:      email,
		APIKeyHash: tenant.HashAPIKey(apiKey),
		Ctime:      timeutil.NowUnix(),
	}
	if err := repo.NewTenantRepo(conn).Create(context.Background(), tn); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tn
}
