package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/google/uuid"
)

// Migration is one versioned schema change read from a
// "<datetime>-<name>.sql" file with "-- +migrate Up" / "Down" sections.
type Migration struct {
	Datetime string
	Name     string
	Up       string
	Down     string
}

func (m Migration) key() string {
	return m.Datetime + "-" + m.Name
}

// Migrator applies pending migrations and records them in a migrations table.
type Migrator struct {
	db       *sql.DB
	log      logger.Logger
	assetsFS fs.FS
	engine   string
	path     string
}

// New creates a new Migrator.
func New(assetsFS fs.FS, engine string, log logger.Logger) *Migrator {
	return &Migrator{
		assetsFS: assetsFS,
		engine:   engine,
		log:      log,
	}
}

// SetDB sets the database connection.
func (m *Migrator) SetDB(db *sql.DB) {
	m.db = db
}

// SetPath sets a custom migration path.
func (m *Migrator) SetPath(path string) {
	m.path = path
}

// Run executes pending migrations in datetime order, each in its own transaction.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("cannot create migrations table: %w", err)
	}

	fileMigrations, err := m.loadFileMigrations()
	if err != nil {
		return fmt.Errorf("cannot load file migrations: %w", err)
	}

	applied, err := m.loadApplied(ctx)
	if err != nil {
		return fmt.Errorf("cannot load applied migrations: %w", err)
	}

	var pending []Migration
	for _, mig := range fileMigrations {
		if !applied[mig.key()] {
			pending = append(pending, mig)
		}
	}

	if len(pending) == 0 {
		m.log.Debug("No pending migrations")
		return nil
	}

	m.log.Infof("Running %d pending migration(s)", len(pending))

	for _, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %s failed: %w", mig.key(), err)
		}
		m.log.Infof("Applied migration: %s", mig.key())
	}

	return nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS migrations (
		id TEXT PRIMARY KEY,
		datetime TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func (m *Migrator) dir() string {
	if m.path != "" {
		return m.path
	}
	return "assets/migrations/" + m.engine
}

func (m *Migrator) loadFileMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.assetsFS, m.dir())
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		datetime, name, ok := strings.Cut(strings.TrimSuffix(entry.Name(), ".sql"), "-")
		if !ok {
			return nil, fmt.Errorf("invalid migration filename: %s", entry.Name())
		}

		content, err := fs.ReadFile(m.assetsFS, path.Join(m.dir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("cannot read migration file %s: %w", entry.Name(), err)
		}

		up, down := Sections(string(content))
		migrations = append(migrations, Migration{Datetime: datetime, Name: name, Up: up, Down: down})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Datetime < migrations[j].Datetime
	})

	return migrations, nil
}

// Sections splits migration content into its Up and Down parts.
func Sections(content string) (up, down string) {
	for _, section := range strings.Split(content, "-- +migrate ") {
		switch {
		case strings.HasPrefix(section, "Up"):
			up = strings.TrimSpace(strings.TrimPrefix(section, "Up"))
		case strings.HasPrefix(section, "Down"):
			down = strings.TrimSpace(strings.TrimPrefix(section, "Down"))
		}
	}
	return up, down
}

func (m *Migrator) loadApplied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT datetime, name FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var mig Migration
		if err := rows.Scan(&mig.Datetime, &mig.Name); err != nil {
			return nil, err
		}
		applied[mig.key()] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	if mig.Up == "" {
		return fmt.Errorf("no Up section found")
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO migrations (id, datetime, name, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		uuid.NewString(), mig.Datetime, mig.Name); err != nil {
		return err
	}

	return tx.Commit()
}
