package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/model"
)

// Models lists every table the service owns, in migration order.
var Models = []any{
	&model.Technician{},
	&model.TechnicianPosition{},
	&model.TechnicianTrack{},
	&model.WorkOrderAssignment{},
	&model.PollRun{},
	&model.PushSubscription{},
	&model.SubscribedTechnician{},
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	log := logging.Component("db")

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info().Str("driver", cfg.Driver).Msg("running database migrations")
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableTimescale && cfg.Driver == config.DriverPostgres {
		log.Info().Msg("TimescaleDB is enabled, applying TimescaleDB-specific DDL")
		if err := applyTimescaleDDL(db); err != nil {
			log.Warn().Err(err).Msg("failed to apply some TimescaleDB DDL; continuing without them")
		}
	}

	log.Info().Msg("database initialization complete")
	return db, nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// technician_tracks becomes a hypertable on period_start.
		"SELECT create_hypertable('technician_tracks', 'period_start', if_not_exists => TRUE, migrate_data => TRUE);",

		"ALTER TABLE technician_tracks DROP CONSTRAINT IF EXISTS technician_tracks_period_valid;",
		"ALTER TABLE technician_tracks " +
			"ADD CONSTRAINT technician_tracks_period_valid CHECK (period_start <= period_end);",

		// Range lookups: lower bound closed, upper bound open.
		"CREATE INDEX IF NOT EXISTS idx_technician_track_period_expr ON technician_tracks " +
			"USING GIST (technician_id, tstzrange(period_start, period_end, '[)'));",

		"CREATE INDEX IF NOT EXISTS idx_technician_track_technician_period_end ON technician_tracks (technician_id, period_end DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
