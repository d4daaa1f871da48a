// Package database opens the Postgres pool and applies schema
// migrations at startup.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres, sizes the pool and verifies the
// connection with a bounded ping.
func Open(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrator runs every *.up.sql file in lexical order, one transaction
// per file. The schema files are written to be re-runnable (CREATE
// TABLE IF NOT EXISTS, ADD COLUMN IF NOT EXISTS), so there is no
// version bookkeeping table.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{db: db, log: log}
}

// ApplyDir executes the up migrations found directly in dir.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		m.log.Info("no migrations to apply", slog.String("dir", dir))
		return nil
	}
	sort.Strings(files)

	for _, path := range files {
		if err := m.apply(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, path string) error {
	log := m.log.With(slog.String("migration", filepath.Base(path)))

	// #nosec G304: migration paths come from the deployment, not users
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", path, err)
	}

	stmt := strings.TrimSpace(string(raw))
	if stmt == "" {
		log.Warn("empty migration skipped")
		return nil
	}

	log.Info("applying migration")

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %q: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			log.Error("rollback failed", slog.Any("error", rbErr))
		}
		return fmt.Errorf("execute migration %q: %w", path, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %q: %w", path, err)
	}
	return nil
}
