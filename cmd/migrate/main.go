package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scrap-ledger/internal/config"
	"scrap-ledger/internal/db"
	"scrap-ledger/internal/logger"
)

const migratorLockID = 7462839

func main() {
	_ = godotenv.Load()

	var dir string
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply the SQL files in the migrations directory, in version order",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			pool, err := db.NewPool(cmd.Context(), cfg.PoolConfig())
			if err != nil {
				return err
			}
			defer pool.Close()

			m := &migrator{pool: pool, dir: dir, log: logger.WithComponent("migrate")}
			return m.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "Directory holding NNN_description.sql files")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type migrator struct {
	pool *pgxpool.Pool
	dir  string
	log  zerolog.Logger
}

func (m *migrator) run(ctx context.Context) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock connection: %w", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migratorLockID).Scan(&locked); err != nil {
		return fmt.Errorf("query advisory lock: %w", err)
	}
	if !locked {
		return errors.New("another migrator is currently running")
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migratorLockID)

	if _, err := m.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := discover(m.dir)
	if err != nil {
		return err
	}
	applied := 0
	for _, f := range files {
		ok, err := m.apply(ctx, f)
		if err != nil {
			return err
		}
		if ok {
			applied++
		}
	}
	m.log.Info().Int("applied", applied).Int("total", len(files)).Msg("migrations processed")
	return nil
}

// discover returns the .sql file names in dir sorted by name, rejecting
// duplicate versions.
func discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}
	seen := make(map[string]string)
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, err := versionOf(e.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s: %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func versionOf(filename string) (string, error) {
	version, _, ok := strings.Cut(filename, "_")
	if !ok || version == "" {
		return "", fmt.Errorf("invalid migration filename %s, expected NNN_description.sql", filename)
	}
	return version, nil
}

// apply runs one file unless it is already recorded. A recorded file whose
// checksum changed is an error.
func (m *migrator) apply(ctx context.Context, filename string) (bool, error) {
	version, err := versionOf(filename)
	if err != nil {
		return false, err
	}
	body, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filename, err)
	}
	sum := sha256.Sum256(body)
	checksum := hex.EncodeToString(sum[:])

	var existing string
	err = m.pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", version).Scan(&existing)
	switch {
	case err == nil:
		if existing != checksum {
			return false, fmt.Errorf("checksum mismatch for %s: recorded %s, file %s", filename, existing, checksum)
		}
		m.log.Debug().Str("file", filename).Msg("already applied")
		return false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, fmt.Errorf("query schema_migrations for %s: %w", filename, err)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin %s: %w", filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, fmt.Errorf("execute %s: %w", filename, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, checksum); err != nil {
		return false, fmt.Errorf("record %s: %w", filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit %s: %w", filename, err)
	}
	m.log.Info().Str("file", filename).Msg("applied")
	return true, nil
}
