package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/societyhub/society_backend/internal/config"
	"github.com/societyhub/society_backend/internal/database/migrations"
	"github.com/societyhub/society_backend/internal/models"
)

// Pool limits applied to server databases (postgres, mysql).
type Pool struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

var DefaultPool = Pool{
	MaxIdleConns:    10,
	MaxOpenConns:    50,
	ConnMaxLifetime: time.Hour,
	ConnMaxIdleTime: 30 * time.Minute,
}

// Connect opens the database selected by cfg.DBDriver and pings it.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	if cfg.DBDriver == "sqlite" {
		// one writer at a time; sqlite serialises anyway
		if err := ConfigurePool(ctx, db, Pool{MaxIdleConns: 1, MaxOpenConns: 1}); err != nil {
			return nil, err
		}
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
		return db, nil
	}
	if err := ConfigurePool(ctx, db, DefaultPool); err != nil {
		return nil, err
	}
	return db, nil
}

func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.Open(dsnOr(cfg.DBDSN, fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		))), nil
	case "mysql":
		return mysql.Open(dsnOr(cfg.DBDSN, fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		))), nil
	case "sqlite":
		return sqlite.Open(dsnOr(cfg.DBDSN, cfg.DBName+".db")), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

func dsnOr(dsn, fallback string) string {
	if dsn != "" {
		return dsn
	}
	return fallback
}

func ConfigurePool(ctx context.Context, db *gorm.DB, p Pool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(p.MaxIdleConns)
	sqlDB.SetMaxOpenConns(p.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(p.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(p.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&models.Society{},
		&models.Building{},
		&models.Person{},
		&models.Flat{},
		&models.JoinRequest{},
		&models.Visitor{},
		&models.EntryLog{},
		&models.Notice{},
		&models.EmergencyContact{},
		&models.Staff{},
		&models.Booking{},
		&models.PaymentLog{},
	}
}

// Migrate brings the schema up to date: goose SQL migrations on postgres,
// gorm AutoMigrate on mysql and sqlite.
func Migrate(ctx context.Context, db *gorm.DB, driver string) error {
	if driver != "postgres" {
		return db.WithContext(ctx).AutoMigrate(Models()...)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, sqlDB, ".")
}
