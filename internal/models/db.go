package models

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/config"
	applogger "github.com/dujiao-next/promo-engine/internal/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// DB 全局数据库连接
var DB *gorm.DB

// InitDB 按配置打开 sqlite / postgres，SQL 日志写入 zap
func InitDB(cfg config.DatabaseConfig) error {
	dialector, err := openDialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg.SlowQueryMillis),
		TranslateError: true,
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	applyDBPool(sqlDB, cfg.Pool)
	DB = db
	return nil
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// ensureSQLiteDir 为文件型 DSN 创建父目录，内存库与 file: URI 跳过
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimSpace(dsn)
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir failed: %w", err)
	}
	return nil
}

func newGormLogger(slowQueryMillis int) gormlogger.Interface {
	slow := defaultSlowQuery
	if slowQueryMillis > 0 {
		slow = time.Duration(slowQueryMillis) * time.Millisecond
	}
	return gormlogger.New(applogger.StdLogger(), gormlogger.Config{
		SlowThreshold:             slow,
		IgnoreRecordNotFoundError: true,
		LogLevel:                  gormlogger.Warn,
	})
}

func applyDBPool(sqlDB *sql.DB, pool config.DatabasePoolConfig) {
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
}

// AutoMigrate 自动迁移所有数据库表
func AutoMigrate() error {
	return DB.AutoMigrate(
		&Admin{},
		&Channel{},
		&Category{},
		&Product{},
		&ProductVariant{},
		&Collection{},
		&CollectionProduct{},
		&PromoCode{},
		&Voucher{},
		&VoucherCode{},
		&VoucherCustomer{},
		&Order{},
		&OrderLine{},
		&Checkout{},
		&Promotion{},
		&PromotionRule{},
		&GiftCard{},
		&GiftCardTag{},
		&GiftCardEvent{},
	)
}
