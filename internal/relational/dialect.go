package relational

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver
)

// Dialect captures the per-engine differences the store executor needs:
// driver registration name, ledger DDL, locking, transactional-DDL support,
// and introspection queries for autogeneration.
type Dialect interface {
	Name() string
	Driver() string

	// TransactionalDDL reports whether schema changes can run inside a
	// transaction together with the ledger update. When false the store
	// executes steps first and writes the ledger second, and a crash
	// between the two leaves the ledger lagging reality.
	TransactionalDDL() bool

	CreateLedgerSQL(table string) string

	// InsertLedgerSQL returns the parametrized insert for the ledger row
	// (version_num, applied_at), in the engine's placeholder style.
	InsertLedgerSQL(table string) string

	// LockLedgerSQL returns the statement acquiring an exclusive lock on
	// the ledger for the duration of the transaction, or "" when the
	// engine has no such lock (the race between two concurrent
	// orchestrator processes is then a documented operator risk).
	LockLedgerSQL(table string) string

	// ListTablesSQL selects all user table names, one column.
	ListTablesSQL() string

	// ListColumnsSQL selects (name, type) for one table, taking the
	// table name as its only query parameter.
	ListColumnsSQL() string
}

// DialectFor resolves a store kind to its dialect.
func DialectFor(kind string) (Dialect, error) {
	switch kind {
	case "sqlite":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("no relational dialect for store kind %q", kind)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) Driver() string         { return "sqlite" }
func (sqliteDialect) TransactionalDDL() bool { return true }

func (sqliteDialect) CreateLedgerSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version_num TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`, table)
}

func (sqliteDialect) InsertLedgerSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (version_num, applied_at) VALUES (?, ?)", table)
}

// SQLite admits a single writer per database; the write transaction itself
// is the serialization point.
func (sqliteDialect) LockLedgerSQL(string) string { return "" }

func (sqliteDialect) ListTablesSQL() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (sqliteDialect) ListColumnsSQL() string {
	return `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`
}

type postgresDialect struct{}

func (postgresDialect) Name() string           { return "postgres" }
func (postgresDialect) Driver() string         { return "pgx" }
func (postgresDialect) TransactionalDDL() bool { return true }

func (postgresDialect) CreateLedgerSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version_num TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL
	)`, table)
}

func (postgresDialect) InsertLedgerSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (version_num, applied_at) VALUES ($1, $2)", table)
}

func (postgresDialect) LockLedgerSQL(table string) string {
	return fmt.Sprintf("LOCK TABLE %s IN ACCESS EXCLUSIVE MODE", table)
}

func (postgresDialect) ListTablesSQL() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`
}

func (postgresDialect) ListColumnsSQL() string {
	return `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`
}
