package infra

import (
	"fmt"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported DB_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// DatabaseOptions selects the backend and its extras.
type DatabaseOptions struct {
	Driver  string
	DSN     string
	Tracing bool
	// Verbose logs every statement; used by tests when debugging.
	Verbose bool
}

// NewDatabase opens a GORM connection for the configured driver. Timestamps
// are stored in UTC and driver errors are translated into gorm sentinels
// (ErrDuplicatedKey, ErrForeignKeyViolated).
func NewDatabase(opts DatabaseOptions) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(opts.DSN)
	case DriverMySQL:
		dialector = mysql.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
	}

	logMode := logger.Silent
	if opts.Verbose {
		logMode = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.Driver == DriverSQLite {
		// One writer; also keeps in-memory databases alive across calls.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if opts.Tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			log.Warn().Err(err).Msg("db connected but failed to install otelgorm plugin")
		}
	}

	return db, nil
}

// RunMigrations creates or updates every table, then applies the statements
// AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that is specific to a dialect.
func applySchemaPatches(db *gorm.DB) error {
	var patches []string
	switch db.Dialector.Name() {
	case DriverPostgres, DriverSQLite:
		patches = []string{
			// low-stock listing only ever scans live variants
			`CREATE INDEX IF NOT EXISTS idx_variants_live_stock ON variants (stock) WHERE deleted_at IS NULL`,
			`CREATE INDEX IF NOT EXISTS idx_stock_movements_variant_created ON stock_movements (variant_id, created_at)`,
		}
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
