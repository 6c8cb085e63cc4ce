package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dujiao-next/promo-engine/internal/config"
)

func TestInitDBCreatesSQLiteDirAndAppliesPool(t *testing.T) {
	previous := DB
	t.Cleanup(func() { DB = previous })

	dsn := filepath.Join(t.TempDir(), "nested", "promo.db")
	err := InitDB(config.DatabaseConfig{
		Driver: "SQLite",
		DSN:    dsn,
		Pool:   config.DatabasePoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	})
	if err != nil {
		t.Fatalf("init sqlite failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Fatalf("sqlite dir should be created: %v", err)
	}
	sqlDB, err := DB.DB()
	if err != nil {
		t.Fatalf("sql db failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("max open conns want 1 got %d", got)
	}
	if err := AutoMigrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
}

func TestOpenDialectorRejectsUnknownDriver(t *testing.T) {
	if _, err := openDialector("mysql", "root@/promo"); err == nil {
		t.Fatalf("mysql should be rejected")
	}
	if _, err := openDialector("postgresql", "host=localhost"); err != nil {
		t.Fatalf("postgres alias should be accepted: %v", err)
	}
}

func TestEnsureSQLiteDirSkipsMemoryDSN(t *testing.T) {
	for _, dsn := range []string{"", ":memory:", "file:promo?mode=memory&cache=shared", "promo.db"} {
		if err := ensureSQLiteDir(dsn); err != nil {
			t.Fatalf("dsn %q should need no dir, got %v", dsn, err)
		}
	}
}

func TestInitDefaultAdminOnlyOnEmptyTable(t *testing.T) {
	previous := DB
	t.Cleanup(func() { DB = previous })
	if err := InitDB(config.DatabaseConfig{DSN: "file:init_admin?mode=memory&cache=shared"}); err != nil {
		t.Fatalf("init sqlite failed: %v", err)
	}
	if err := AutoMigrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	if err := InitDefaultAdmin(" ", ""); err != nil {
		t.Fatalf("init default admin failed: %v", err)
	}
	var admin Admin
	if err := DB.First(&admin).Error; err != nil {
		t.Fatalf("load admin failed: %v", err)
	}
	if admin.Username != "admin" || admin.PasswordHash == "" {
		t.Fatalf("default admin mismatch: %+v", admin)
	}

	if err := InitDefaultAdmin("second", "second-pass"); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	var count int64
	DB.Model(&Admin{}).Count(&count)
	if count != 1 {
		t.Fatalf("existing admins should block creation, got %d", count)
	}
}
