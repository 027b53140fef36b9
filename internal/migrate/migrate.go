// Package migrate applies embedded SQL migrations on startup, tracked in a
// filename-keyed ledger table.
package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ledgerDDL creates the ledger. The filename primary key is what makes a
// migration apply at most once.
const ledgerDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    filename   text PRIMARY KEY,
    applied_at timestamptz NOT NULL DEFAULT now()
)`

// Querier is the slice of a pgx connection the runner needs. It is
// implemented by *pgxpool.Conn and by pgxmock for tests. Callers should
// hand in a dedicated connection, not the shared pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Up applies every pending .sql file from fsys in lexicographic filename
// order. Filenames therefore carry a zero-padded sequence prefix
// (001_users.sql, 002_sessions.sql, ...) that fixes the total order.
//
// Each file's statement batch and its ledger row are committed in a single
// transaction, so a crash mid-file leaves no half-applied migration behind
// a missing ledger entry. Any SQL error aborts the run; the caller must
// treat that as fatal and not start serving.
func Up(ctx context.Context, q Querier, fsys fs.FS) error {
	if _, err := q.Exec(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("migrate: ensure ledger: %w", err)
	}

	applied, err := appliedSet(ctx, q)
	if err != nil {
		return err
	}

	files, err := pendingFiles(fsys, applied)
	if err != nil {
		return err
	}

	for _, name := range files {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("migrate: read %s: %w", name, err)
		}
		if err := applyOne(ctx, q, name, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func appliedSet(ctx context.Context, q Querier) (map[string]struct{}, error) {
	rows, err := q.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrate: read ledger: %w", err)
	}
	defer rows.Close()

	applied := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("migrate: scan ledger: %w", err)
		}
		applied[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("migrate: read ledger: %w", err)
	}
	return applied, nil
}

// pendingFiles lists .sql entries of fsys not yet in the ledger, sorted
// lexicographically.
func pendingFiles(fsys fs.FS, applied map[string]struct{}) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: list migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if _, ok := applied[name]; ok {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

func applyOne(ctx context.Context, q Querier, name, body string) error {
	tx, err := q.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, body); err != nil {
		return fmt.Errorf("migrate: apply %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("migrate: record %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("migrate: commit %s: %w", name, err)
	}
	return nil
}
