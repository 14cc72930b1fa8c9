package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateStore is returned when a logical store name is
	// registered twice. The first registration is retained.
	ErrDuplicateStore = errors.New("store already registered")

	// ErrUnknownStore is returned when resolving an unregistered name.
	ErrUnknownStore = errors.New("unknown store")

	// ErrNoMigrationsApplied is returned by downgrade on a store whose
	// ledger is empty.
	ErrNoMigrationsApplied = errors.New("no migrations applied")

	// ErrIrreversibleMigration is returned by downgrade when a unit in
	// the requested range has no backward steps.
	ErrIrreversibleMigration = errors.New("migration is irreversible")
)

// ConfigurationError reports a malformed migration set: duplicate revisions,
// multiple chain roots, dangling predecessor references, cycles, or units
// that cannot be ordered. It is fatal for the store's operation and is always
// detected before any change is attempted.
type ConfigurationError struct {
	Store  string
	UnitID string
	Detail string
}

func (e *ConfigurationError) Error() string {
	if e.UnitID != "" {
		return fmt.Sprintf("store %s: invalid migration configuration: %s (unit %s)", e.Store, e.Detail, e.UnitID)
	}
	return fmt.Sprintf("store %s: invalid migration configuration: %s", e.Store, e.Detail)
}

// LedgerDriftError reports a ledger that references a unit not present in
// the discovered set. The core never repairs drift; it is surfaced to the
// operator for manual remediation.
type LedgerDriftError struct {
	Store  string
	UnitID string
	Detail string
}

func (e *LedgerDriftError) Error() string {
	return fmt.Sprintf("store %s: ledger drift: %s (recorded unit %q)", e.Store, e.Detail, e.UnitID)
}

// ApplyError wraps the underlying store error from executing a unit's
// forward or backward steps. The unit is not recorded as applied. Partial is
// set when the store lacks transactional DDL and one or more steps executed
// before the failure, leaving the store in a state that needs manual
// inspection.
type ApplyError struct {
	Store   string
	UnitID  string
	Partial bool
	Err     error
}

func (e *ApplyError) Error() string {
	if e.Partial {
		return fmt.Sprintf("store %s: unit %s partially applied, manual remediation required: %v", e.Store, e.UnitID, e.Err)
	}
	return fmt.Sprintf("store %s: applying unit %s: %v", e.Store, e.UnitID, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
