// Package runner implements the two migration runner strategies: the
// chained-revision runner used by relational stores and the applied-set
// runner used by graph and search stores. Both satisfy the Runner interface
// consumed by the orchestrator.
package runner

import (
	"context"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
)

// Target values accepted by Upgrade and Downgrade.
const (
	// TargetHead upgrades to the chain tip (the default).
	TargetHead = "head"
	// TargetBase downgrades every applied unit.
	TargetBase = "base"
	// TargetOneStep downgrades exactly one unit.
	TargetOneStep = "-1"
)

// Runner drives migrations for one logical store. Implementations execute
// units strictly sequentially; concurrent runs against the same store are
// serialized by the ledger where the store supports locking and are otherwise
// a documented operator risk.
type Runner interface {
	// Pending returns the units not yet applied, in execution order.
	Pending(ctx context.Context) ([]migration.Unit, error)

	// Upgrade applies pending units up to target and returns the IDs
	// applied, in order. On failure the returned slice holds the units
	// that did apply before the error.
	Upgrade(ctx context.Context, target string) ([]string, error)

	// Downgrade reverts applied units down to (but not including) target
	// and returns the IDs reverted, in order.
	Downgrade(ctx context.Context, target string) ([]string, error)

	// Current returns the most recently applied unit's identifier, or ""
	// when nothing is applied. Read-only.
	Current(ctx context.Context) (string, error)

	// History returns the applied units in application order. Read-only.
	History(ctx context.Context) ([]migration.AppliedEntry, error)

	// Create synthesizes a new migration unit skeleton and returns its
	// identifier and file path. The unit is not applied.
	Create(ctx context.Context, message string) (id, path string, err error)
}

// RevisionStore is the chained-revision runner's view of a relational store:
// a single current-revision pointer persisted inside the store itself.
type RevisionStore interface {
	Name() string

	// EnsureLedger creates the ledger storage if absent. Idempotent.
	EnsureLedger(ctx context.Context) error

	// CurrentRevision returns the recorded revision, or "" when the
	// ledger is empty.
	CurrentRevision(ctx context.Context) (string, error)

	// ApplyRevision executes the steps and records revision as current
	// ("" clears the ledger), atomically where the store supports
	// transactional DDL. Non-transactional stores execute steps first and
	// write the ledger second; errors after a partial execution are
	// reported as *migration.ApplyError with Partial set.
	ApplyRevision(ctx context.Context, unitID string, steps []string, revision string) error
}

// AppliedSetStore is the applied-set runner's view of a store: an ordered
// list of applied unit IDs persisted on an anchor record inside the store.
type AppliedSetStore interface {
	Name() string

	// EnsureLedger creates the ledger anchor if absent. Idempotent and
	// safe to call on every run.
	EnsureLedger(ctx context.Context) error

	// AppliedList returns applied entries in application order.
	AppliedList(ctx context.Context) ([]migration.AppliedEntry, error)

	// ApplyUnit executes the steps, then appends the unit ID to the
	// ledger list. The apply plus append is the atomic unit of work; no
	// transaction spans multiple units.
	ApplyUnit(ctx context.Context, unitID string, steps []string) error

	// RevertUnit executes the steps, then removes the unit ID from the
	// tail of the ledger list.
	RevertUnit(ctx context.Context, unitID string, steps []string) error
}
