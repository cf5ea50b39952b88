package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cliossg/intake/pkg/cl/config"
	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/migrate"
)

// Database manages the SQLite connections and lifecycle.
// It holds two handles on the same file: a read-write one for record
// creation and a read-only one for lookups.
type Database struct {
	DB            *sql.DB
	ReadDB        *sql.DB
	assetsFS      embed.FS
	migrationPath string
	cfg           *config.Config
	log           logger.Logger
}

// New creates a new Database instance.
func New(assetsFS embed.FS, cfg *config.Config, log logger.Logger) *Database {
	return &Database{
		assetsFS: assetsFS,
		cfg:      cfg,
		log:      log,
	}
}

// SetMigrationPath sets a custom migration path.
func (d *Database) SetMigrationPath(path string) {
	d.migrationPath = path
}

// Start opens both connections and runs migrations.
func (d *Database) Start(ctx context.Context) error {
	path := d.cfg.Store.DatabasePath

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := open(ctx, fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path))
	if err != nil {
		return err
	}
	d.DB = db
	d.log.Info("Database connection established")

	migrator := migrate.New(d.assetsFS, "sqlite", d.log)
	migrator.SetDB(d.DB)
	if d.migrationPath != "" {
		migrator.SetPath(d.migrationPath)
	}
	if err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("cannot run migrations: %w", err)
	}

	// Opened after migrations so the schema already exists.
	readDB, err := open(ctx, fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path))
	if err != nil {
		return err
	}
	d.ReadDB = readDB
	d.log.Info("Read-only database connection established")

	return nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot ping database: %w", err)
	}
	return db, nil
}

// Stop closes both connections.
func (d *Database) Stop(ctx context.Context) error {
	d.log.Info("Closing database connections")
	if d.ReadDB != nil {
		d.ReadDB.Close()
	}
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// GetDB returns the read-write handle.
func (d *Database) GetDB() *sql.DB {
	return d.DB
}

// GetReadDB returns the read-only handle.
func (d *Database) GetReadDB() *sql.DB {
	return d.ReadDB
}
