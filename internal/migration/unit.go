// Package migration defines the schema-change unit model shared by every
// store family: the unit itself, chain ordering and validation, file-based
// discovery, and the error taxonomy surfaced to operators.
package migration

import "time"

// Unit is one immutable schema-change step. Forward and Backward hold opaque
// statements interpreted by the target store's executor (SQL for relational
// stores, Cypher for graph stores, "METHOD /path [body]" lines for search
// stores). A nil Backward makes the unit irreversible.
type Unit struct {
	// ID identifies the unit within its store's namespace. For file-based
	// units this is the filename stem.
	ID string

	// Revision and DownRevision form the predecessor chain for
	// chained-revision stores. An empty DownRevision marks a namespace
	// root. Applied-set stores ignore both and order by ID.
	Revision     string
	DownRevision string

	// Branch optionally names the sub-chain this unit belongs to.
	// Unlabeled units form the trunk.
	Branch string

	// Message is a human-readable description, never interpreted.
	Message string

	Forward  []string
	Backward []string

	// Source is the file the unit was loaded from, for error reporting.
	Source string
}

// Reversible reports whether the unit defines backward steps.
func (u Unit) Reversible() bool {
	return len(u.Backward) > 0
}

// AppliedEntry is one ledger record: a unit that has been applied to a store.
// AppliedAt is zero when the ledger strategy does not record per-unit
// timestamps (the chained-revision ledger keeps only a current pointer).
type AppliedEntry struct {
	UnitID    string    `json:"unit_id"`
	AppliedAt time.Time `json:"applied_at,omitzero"`
	Position  int       `json:"position"`
}
