package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/config"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(zapWriter{log.Sugar()}, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"clinical", "auth", "audit"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&visit.Visit{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	createIndexes(db, log)

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createIndexes adds the indexes AutoMigrate cannot express. Failures are
// logged and skipped; the service works without them, only slower.
func createIndexes(db *gorm.DB, log *zap.Logger) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		log.Warn("pg_trgm unavailable", zap.Error(err))
	}

	indexes := []struct {
		name  string
		query string
	}{
		{
			name:  "idx_visits_patient_chronology",
			query: `CREATE INDEX IF NOT EXISTS idx_visits_patient_chronology ON clinical.visits (patient_id, visit_date, created_at) WHERE patient_id <> ''`,
		},
		// Profile lookup only considers rows with a name
		{
			name:  "idx_visits_named",
			query: `CREATE INDEX IF NOT EXISTS idx_visits_named ON clinical.visits (patient_id, visit_date DESC) WHERE full_name IS NOT NULL AND full_name <> ''`,
		},
		{
			name:  "idx_visits_name_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_visits_name_trgm ON clinical.visits USING gin (full_name gin_trgm_ops)`,
		},
		{
			name:  "idx_audit_resource",
			query: `CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit.logs (resource_type, resource_id, occurred_at)`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			log.Warn("index not created", zap.String("index", idx.name), zap.Error(err))
		}
	}
}

// ReportPoolStats samples the connection pool into set until ctx is done.
func ReportPoolStats(ctx context.Context, db *gorm.DB, interval time.Duration, set func(open int)) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		set(sqlDB.Stats().OpenConnections)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.log.Warnf(format, args...)
}
