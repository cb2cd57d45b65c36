package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sparrow/config"
)

var DB *gorm.DB

// Open returns a gorm handle for the configured driver without touching the
// package-level DB.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func Connect(cfg *config.Config, log *zap.Logger) {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	DB = db
	log.Info("database connected", zap.String("driver", cfg.DBDriver))
}
