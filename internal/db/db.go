package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"uav-fleet-backend/config"
	"uav-fleet-backend/internal/model"
)

// Init initializes the database connection, runs migrations, and applies
// the uniqueness constraints the docking invariants rely on.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := applyConstraintDDL(db); err != nil {
		return nil, fmt.Errorf("failed to apply constraint DDL: %w", err)
	}

	if cfg.EnableTimescale {
		log.Println("TimescaleDB is enabled, applying hypertable DDL for location history...")
		if err := applyTimescaleDDL(db); err != nil {
			log.Printf("Warning: failed to apply some TimescaleDB DDL: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate runs AutoMigrate for every persisted entity. Exposed so tests
// can build schemas on in-memory SQLite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Region{},
		&model.UAV{},
		&model.DockingStation{},
		&model.DockingRecord{},
		&model.Geofence{},
		&model.LocationHistory{},
		&model.AlertSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyConstraintDDL enforces "at most one active docking record per UAV"
// at the database level. The coordinator guards the same invariant with a
// per-UAV lock in process; the partial unique index catches races across
// processes. Supported by both Postgres and SQLite.
func applyConstraintDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_docking_records_one_active " +
			"ON docking_records (uav_id) WHERE undock_time IS NULL;",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",

		// location_histories is the high-churn table; make it a hypertable
		// on the ingestion timestamp.
		"SELECT create_hypertable('location_histories', 'timestamp', if_not_exists => TRUE);",

		// Latest-trail-first reads per UAV.
		"CREATE INDEX IF NOT EXISTS idx_location_history_uav_time_desc " +
			"ON location_histories (uav_id, timestamp DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
