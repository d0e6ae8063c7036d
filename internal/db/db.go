/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/bragi_media/internal/catalog"
	"github.com/friendsincode/bragi_media/internal/config"
	"github.com/friendsincode/bragi_media/internal/models"
)

// Connect establishes a gorm DB connection for the configured backend.
// SQLite is the default embedded store; failure here is fatal to the engine.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DBBackend {
	case config.DatabaseSQLite:
		dialector = sqlite.Open(cfg.DBDSN)
	case config.DatabasePostgres:
		dialector = postgres.Open(cfg.DBDSN)
	case config.DatabaseMySQL:
		dialector = mysql.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates any missing tables and columns and backfills derived
// columns. Safe to run on every startup.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := backfillNormalizedNames(db); err != nil {
		return fmt.Errorf("backfill normalized names: %w", err)
	}
	return nil
}

// backfillNormalizedNames fills display_name_norm for rows created before
// the column existed. Idempotent: only touches rows where it is empty.
func backfillNormalizedNames(db *gorm.DB) error {
	var rows []models.MediaItem
	err := db.Select("id", "display_name").
		Where("display_name_norm IS NULL OR display_name_norm = ''").
		Find(&rows).Error
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			err := tx.Model(&models.MediaItem{}).
				Where("id = ?", row.ID).
				Update("display_name_norm", catalog.NormalizeSearchText(row.DisplayName)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases database resources.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
