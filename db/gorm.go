package db

import (
	"fmt"
	"time"

	"trackanalyzer/config"
	applog "trackanalyzer/logger"
	"trackanalyzer/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDB exists alongside DB (*sql.DB) for schema management only: the
// repositories stay on database/sql, AutoMigrate owns the DDL.
var GormDB *gorm.DB

// ConnectGormDB establishes the GORM connection used for migration.
func ConnectGormDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	GormDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	applog.Info("Successfully connected to the database with GORM.")
	return nil
}

// Migrate creates or updates the users, tracks and readings tables.
func Migrate() error {
	if GormDB == nil {
		return fmt.Errorf("GORM connection not initialized")
	}

	if err := GormDB.AutoMigrate(
		&model.UserRow{},
		&model.TrackRow{},
		&model.ReadingRow{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	applog.Info("Database schema migration completed.")
	return nil
}

// CloseGormDB closes the migration connection.
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
