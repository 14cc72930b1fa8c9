// Package relational executes chained-revision migrations against SQL stores
// (PostgreSQL via pgx, SQLite via modernc). The version ledger lives inside
// the target store: one table per logical store, holding the single current
// revision.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
)

var tableNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// LedgerTable derives the ledger table name deterministically from the
// logical store name, e.g. "relational:users" -> "weave_version_relational_users".
func LedgerTable(storeName string) string {
	folded := tableNameRe.ReplaceAllString(strings.ToLower(storeName), "_")
	return "weave_version_" + strings.Trim(folded, "_")
}

// Store is a relational store executor satisfying runner.RevisionStore.
type Store struct {
	name    string
	dialect Dialect
	db      *sql.DB
	log     *slog.Logger
}

// Open connects a store executor. kind selects the dialect ("postgres" or
// "sqlite"); dsn is the driver-specific connection string. The connection is
// scoped to the run: callers close the store when the batch finishes.
func Open(name, kind, dsn string, log *slog.Logger) (*Store, error) {
	d, err := DialectFor(kind)
	if err != nil {
		return nil, err
	}
	return OpenWith(name, dsn, d, log)
}

// OpenWith connects with an explicit dialect. Tests use it to substitute
// dialect behavior (e.g. a non-transactional variant).
func OpenWith(name, dsn string, d Dialect, log *slog.Logger) (*Store, error) {
	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("store %s: opening %s connection: %w", name, d.Name(), err)
	}
	if d.Name() == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{name: name, dialect: d, db: db, log: log}, nil
}

// Name returns the logical store name.
func (s *Store) Name() string { return s.name }

// Close releases the store connection.
func (s *Store) Close() error { return s.db.Close() }

// EnsureLedger creates the ledger table if absent. Idempotent.
func (s *Store) EnsureLedger(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.CreateLedgerSQL(LedgerTable(s.name)))
	return err
}

// CurrentRevision reads the recorded revision, or "" when the ledger is
// empty.
func (s *Store) CurrentRevision(ctx context.Context) (string, error) {
	var rev string
	query := fmt.Sprintf("SELECT version_num FROM %s LIMIT 1", LedgerTable(s.name))
	err := s.db.QueryRowContext(ctx, query).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rev, nil
}

// ApplyRevision executes the unit's steps and records revision as current
// ("" clears the ledger). With transactional DDL both happen in one
// transaction, with the ledger exclusively locked so concurrent orchestrator
// processes serialize. Without it, steps run first and the ledger is written
// after; a failure partway through is reported as a partial apply for manual
// remediation.
func (s *Store) ApplyRevision(ctx context.Context, unitID string, steps []string, revision string) error {
	if s.dialect.TransactionalDDL() {
		return s.applyTransactional(ctx, steps, revision)
	}
	return s.applyUnguarded(ctx, unitID, steps, revision)
}

func (s *Store) applyTransactional(ctx context.Context, steps []string, revision string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if lock := s.dialect.LockLedgerSQL(LedgerTable(s.name)); lock != "" {
		if _, err := tx.ExecContext(ctx, lock); err != nil {
			return fmt.Errorf("locking ledger: %w", err)
		}
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", abbreviate(stmt), err)
		}
	}
	if err := s.writeRevision(ctx, tx, revision); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) applyUnguarded(ctx context.Context, unitID string, steps []string, revision string) error {
	for i, stmt := range steps {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			err = fmt.Errorf("executing %q: %w", abbreviate(stmt), err)
			if i > 0 {
				return &migration.ApplyError{Store: s.name, UnitID: unitID, Partial: true, Err: err}
			}
			return err
		}
	}

	// Crash window: steps are live but the ledger still names the old
	// revision. The next run re-reports the unit as pending rather than
	// skipping it.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer tx.Rollback()
	if err := s.writeRevision(ctx, tx, revision); err != nil {
		return err
	}
	return tx.Commit()
}

// writeRevision replaces the ledger's single row. Delete-then-insert avoids
// upsert syntax differences between engines.
func (s *Store) writeRevision(ctx context.Context, tx *sql.Tx, revision string) error {
	table := LedgerTable(s.name)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}
	if revision == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, s.dialect.InsertLedgerSQL(table), revision, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording revision: %w", err)
	}
	return nil
}

func abbreviate(stmt string) string {
	stmt = strings.Join(strings.Fields(stmt), " ")
	if len(stmt) > 60 {
		return stmt[:57] + "..."
	}
	return stmt
}
