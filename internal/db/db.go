package db

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"occupancy/internal/config"
	"occupancy/internal/model"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		// Driver-specific duplicate key errors surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// NewPostgres returns a connected GORM DB instance backed by pgx.
func NewPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Open connects with the driver named in the configuration.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return NewMySQL(cfg.DatabaseDSN)
	case config.DriverPostgres:
		return NewPostgres(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Environment{},
		&model.AccessLog{},
	}
}

// partialIndexes back the soft-delete aware uniqueness rules and the
// one-open-session invariant. Only Postgres supports them.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email_active ON users (email) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_registration_active ON users (registration) WHERE deleted_at IS NULL AND registration <> ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_environments_name_active ON environments (name) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_access_logs_open_session ON access_logs (user_id) WHERE check_out IS NULL`,
}

// Migrate creates or updates the schema. When reset is set every table is
// dropped first.
func Migrate(gormDB *gorm.DB, driver string, reset bool) error {
	models := Models()

	if reset {
		slog.Warn("RESET_DB=true detected, dropping all tables")
		for i := len(models) - 1; i >= 0; i-- {
			if err := gormDB.Migrator().DropTable(models[i]); err != nil {
				slog.Warn("drop table failed (may not exist)", "error", err)
			}
		}
	}

	if err := gormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if driver == config.DriverPostgres {
		for _, stmt := range partialIndexes {
			if err := gormDB.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create partial index: %w", err)
			}
		}
	}
	return nil
}
