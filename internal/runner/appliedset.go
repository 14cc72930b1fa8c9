package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
)

// AppliedSet runs migrations for stores without a predecessor chain: units
// are totally ordered by ID and the ledger is an ordered list of applied IDs
// stored on an anchor record inside the target store.
type AppliedSet struct {
	store       AppliedSetStore
	units       []migration.Unit
	dir         string
	skeletonExt string
	log         *slog.Logger
}

// AppliedSetOption configures an AppliedSet runner.
type AppliedSetOption func(*AppliedSet)

// WithAppliedSetLogger sets the runner's logger.
func WithAppliedSetLogger(log *slog.Logger) AppliedSetOption {
	return func(a *AppliedSet) { a.log = log }
}

// NewAppliedSet builds an applied-set runner over discovered units. dir and
// skeletonExt control where and as what file type Create writes templates.
func NewAppliedSet(store AppliedSetStore, units []migration.Unit, dir, skeletonExt string, opts ...AppliedSetOption) *AppliedSet {
	a := &AppliedSet{store: store, units: units, dir: dir, skeletonExt: skeletonExt}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	return a
}

func (a *AppliedSet) sorted() []migration.Unit {
	units := make([]migration.Unit, len(a.units))
	copy(units, a.units)
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units
}

// resolve bootstraps the ledger anchor, reads the applied list, and checks
// it against the discovered set.
func (a *AppliedSet) resolve(ctx context.Context) (units []migration.Unit, applied []migration.AppliedEntry, err error) {
	if err := a.store.EnsureLedger(ctx); err != nil {
		return nil, nil, fmt.Errorf("store %s: ensuring ledger: %w", a.store.Name(), err)
	}
	applied, err = a.store.AppliedList(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("store %s: reading ledger: %w", a.store.Name(), err)
	}

	units = a.sorted()
	known := make(map[string]struct{}, len(units))
	for _, u := range units {
		if _, dup := known[u.ID]; dup {
			return nil, nil, &migration.ConfigurationError{Store: a.store.Name(), UnitID: u.ID, Detail: "duplicate unit id"}
		}
		known[u.ID] = struct{}{}
	}
	for _, e := range applied {
		if _, ok := known[e.UnitID]; !ok {
			return nil, nil, &migration.LedgerDriftError{
				Store:  a.store.Name(),
				UnitID: e.UnitID,
				Detail: "applied entry does not match any known unit",
			}
		}
	}
	return units, applied, nil
}

// Pending returns unapplied units in ID order. A pending unit sorting before
// the last applied one means a unit was inserted into an already-applied
// range; that is rejected rather than silently reordered.
func (a *AppliedSet) Pending(ctx context.Context) ([]migration.Unit, error) {
	units, applied, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[string]struct{}, len(applied))
	var last string
	for _, e := range applied {
		appliedSet[e.UnitID] = struct{}{}
		if e.UnitID > last {
			last = e.UnitID
		}
	}

	var pending []migration.Unit
	for _, u := range units {
		if _, ok := appliedSet[u.ID]; ok {
			continue
		}
		if u.ID < last {
			return nil, &migration.ConfigurationError{
				Store:  a.store.Name(),
				UnitID: u.ID,
				Detail: fmt.Sprintf("unit sorts before already-applied unit %s; renumber it after the applied range", last),
			}
		}
		pending = append(pending, u)
	}
	return pending, nil
}

// Upgrade applies all pending units in sorted order. The target argument is
// accepted for interface symmetry; only TargetHead (or empty) is meaningful
// since there is no chain to stop inside.
func (a *AppliedSet) Upgrade(ctx context.Context, target string) ([]string, error) {
	if target != "" && target != TargetHead {
		return nil, &migration.ConfigurationError{
			Store:  a.store.Name(),
			Detail: fmt.Sprintf("applied-set stores only support upgrading to head, not %q", target),
		}
	}

	pending, err := a.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, u := range pending {
		if err := a.store.ApplyUnit(ctx, u.ID, u.Forward); err != nil {
			return applied, wrapApply(a.store.Name(), u.ID, err)
		}
		a.log.Info("migration applied", "store", a.store.Name(), "unit", u.ID)
		applied = append(applied, u.ID)
	}
	return applied, nil
}

// Downgrade reverts exactly the most recently applied unit. Multi-step
// rollback is the caller's loop; targets other than one step are rejected.
func (a *AppliedSet) Downgrade(ctx context.Context, target string) ([]string, error) {
	if target != "" && target != TargetOneStep {
		return nil, &migration.ConfigurationError{
			Store:  a.store.Name(),
			Detail: "applied-set stores only support single-step downgrade; invoke repeatedly for multi-step rollback",
		}
	}

	units, applied, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, fmt.Errorf("store %s: %w", a.store.Name(), migration.ErrNoMigrationsApplied)
	}

	lastID := applied[len(applied)-1].UnitID
	var last *migration.Unit
	for i := range units {
		if units[i].ID == lastID {
			last = &units[i]
			break
		}
	}
	// resolve already verified every applied entry maps to a known unit.
	if !last.Reversible() {
		return nil, fmt.Errorf("store %s: unit %s: %w", a.store.Name(), lastID, migration.ErrIrreversibleMigration)
	}

	if err := a.store.RevertUnit(ctx, lastID, last.Backward); err != nil {
		return nil, wrapApply(a.store.Name(), lastID, err)
	}
	a.log.Info("migration reverted", "store", a.store.Name(), "unit", lastID)
	return []string{lastID}, nil
}

// Current returns the last applied unit ID, or "" when nothing is applied.
func (a *AppliedSet) Current(ctx context.Context) (string, error) {
	_, applied, err := a.resolve(ctx)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", nil
	}
	return applied[len(applied)-1].UnitID, nil
}

// History returns the applied list in application order.
func (a *AppliedSet) History(ctx context.Context) ([]migration.AppliedEntry, error) {
	_, applied, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// Create materializes an empty unit template with the next numeric prefix.
func (a *AppliedSet) Create(ctx context.Context, message string) (string, string, error) {
	id, path, err := migration.WriteAppliedSetSkeleton(a.dir, a.store.Name(), message, a.skeletonExt, a.units)
	if err != nil {
		return "", "", fmt.Errorf("store %s: %w", a.store.Name(), err)
	}
	a.log.Info("migration created", "store", a.store.Name(), "unit", id, "path", path)
	return id, path, nil
}
