package db

import (
	"fmt"

	"yatube/internal/model"
	"yatube/pkg/config"
	"yatube/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the database described by config.GlobalConfig.Database,
// replacing (and closing) any previously opened handle, and migrates the schema.
func InitDB() error {
	cfg := config.GlobalConfig.Database

	dialector, err := openDialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := conn.AutoMigrate(&model.User{}, &model.Group{}, &model.Post{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	Close()
	DB = conn

	logger.L.Info("Database connected and migrated successfully", zap.String("driver", cfg.Driver))
	return nil
}

// Close releases the current handle, if any.
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	DB = nil
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql", "":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
