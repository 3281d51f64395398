package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"school-app-server/internal/models"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

// Migrator brings the schema up to date: gorm creates the tables, then goose
// applies the SQL-only constraints the ORM cannot express (currently only on
// Postgres).
type Migrator struct {
	gdb    *gorm.DB
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// NewMigrator creates a migrator for the given connection.
func NewMigrator(gdb *gorm.DB, driver string, logger *zap.Logger) (*Migrator, error) {
	db, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	return &Migrator{gdb: gdb, db: db, driver: driver, logger: logger}, nil
}

// Run applies all pending migrations.
func (m *Migrator) Run(ctx context.Context) error {
	m.logger.Info("applying database migrations", zap.String("driver", m.driver))

	if err := models.AutoMigrate(m.gdb.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if m.driver != models.DriverPostgres {
		m.logger.Info("no SQL constraint migrations for driver", zap.String("driver", m.driver))
		return nil
	}

	if err := m.setup(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, m.db, "postgres"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	m.logger.Info("migrations applied")
	return nil
}

// Version reports the current goose version; drivers without SQL migrations report 0.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	if m.driver != models.DriverPostgres {
		return 0, nil
	}
	if err := m.setup(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

func (m *Migrator) setup() error {
	goose.SetBaseFS(postgresFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
