package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
)

// fakeAppliedSetStore keeps the applied list in memory, emulating the graph
// store's anchor record.
type fakeAppliedSetStore struct {
	name     string
	ledger   bool
	applied  []migration.AppliedEntry
	executed []string
	failOn   string
}

func (f *fakeAppliedSetStore) Name() string { return f.name }

func (f *fakeAppliedSetStore) EnsureLedger(ctx context.Context) error {
	f.ledger = true
	return nil
}

func (f *fakeAppliedSetStore) AppliedList(ctx context.Context) ([]migration.AppliedEntry, error) {
	if !f.ledger {
		return nil, errors.New("ledger not bootstrapped")
	}
	return f.applied, nil
}

func (f *fakeAppliedSetStore) ApplyUnit(ctx context.Context, unitID string, steps []string) error {
	if unitID == f.failOn {
		return fmt.Errorf("simulated failure")
	}
	f.executed = append(f.executed, steps...)
	f.applied = append(f.applied, migration.AppliedEntry{
		UnitID:    unitID,
		AppliedAt: time.Now().UTC(),
		Position:  len(f.applied),
	})
	return nil
}

func (f *fakeAppliedSetStore) RevertUnit(ctx context.Context, unitID string, steps []string) error {
	f.executed = append(f.executed, steps...)
	f.applied = f.applied[:len(f.applied)-1]
	return nil
}

func setUnits() []migration.Unit {
	return []migration.Unit{
		{ID: "a_002", Forward: []string{"CREATE INDEX two"}, Backward: []string{"DROP INDEX two"}},
		{ID: "a_001", Forward: []string{"CREATE INDEX one"}, Backward: []string{"DROP INDEX one"}},
	}
}

func TestAppliedSet_UpgradeAppliesInSortedOrder(t *testing.T) {
	ctx := context.Background()
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")

	applied, err := r.Upgrade(ctx, TargetHead)
	if err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if len(applied) != 2 || applied[0] != "a_001" || applied[1] != "a_002" {
		t.Errorf("applied = %v, want [a_001 a_002]", applied)
	}
	if !store.ledger {
		t.Error("Upgrade did not bootstrap the ledger anchor")
	}

	// Idempotent.
	applied, err = r.Upgrade(ctx, "")
	if err != nil {
		t.Fatalf("second Upgrade() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Upgrade applied %v", applied)
	}
}

func TestAppliedSet_DowngradeRemovesTailOnly(t *testing.T) {
	ctx := context.Background()
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")
	if _, err := r.Upgrade(ctx, TargetHead); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	reverted, err := r.Downgrade(ctx, TargetOneStep)
	if err != nil {
		t.Fatalf("Downgrade() error = %v", err)
	}
	if len(reverted) != 1 || reverted[0] != "a_002" {
		t.Errorf("reverted = %v, want [a_002]", reverted)
	}
	if len(store.applied) != 1 || store.applied[0].UnitID != "a_001" {
		t.Errorf("ledger = %+v, want [a_001]", store.applied)
	}

	cur, err := r.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cur != "a_001" {
		t.Errorf("Current() = %s, want a_001", cur)
	}
}

func TestAppliedSet_DowngradeEmptyLedger(t *testing.T) {
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")

	_, err := r.Downgrade(context.Background(), "")
	if !errors.Is(err, migration.ErrNoMigrationsApplied) {
		t.Errorf("Downgrade() error = %v, want ErrNoMigrationsApplied", err)
	}
	if len(store.executed) != 0 {
		t.Error("Downgrade on empty ledger executed statements")
	}
}

func TestAppliedSet_DowngradeRejectsArbitraryTarget(t *testing.T) {
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")

	_, err := r.Downgrade(context.Background(), "a_001")
	var cfgErr *migration.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Downgrade(target) error = %v, want *ConfigurationError", err)
	}
}

func TestAppliedSet_DowngradeIrreversible(t *testing.T) {
	ctx := context.Background()
	units := []migration.Unit{{ID: "a_001", Forward: []string{"CREATE X"}}}
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, units, t.TempDir(), ".cypher")
	if _, err := r.Upgrade(ctx, TargetHead); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	_, err := r.Downgrade(ctx, "")
	if !errors.Is(err, migration.ErrIrreversibleMigration) {
		t.Errorf("Downgrade() error = %v, want ErrIrreversibleMigration", err)
	}
}

func TestAppliedSet_RejectsUnitInsertedMidSequence(t *testing.T) {
	ctx := context.Background()
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")
	if _, err := r.Upgrade(ctx, TargetHead); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	// A hotfix numbered inside the already-applied range.
	withHotfix := append(setUnits(), migration.Unit{ID: "a_001a", Forward: []string{"CREATE HOTFIX"}})
	r = NewAppliedSet(store, withHotfix, t.TempDir(), ".cypher")

	_, err := r.Pending(ctx)
	var cfgErr *migration.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Pending() error = %v, want *ConfigurationError", err)
	}
	if cfgErr.UnitID != "a_001a" {
		t.Errorf("ConfigurationError.UnitID = %s", cfgErr.UnitID)
	}
}

func TestAppliedSet_LedgerDriftSurfaced(t *testing.T) {
	store := &fakeAppliedSetStore{
		name:    "neo4j",
		ledger:  true,
		applied: []migration.AppliedEntry{{UnitID: "ghost_001", Position: 0}},
	}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")

	_, err := r.Pending(context.Background())
	var drift *migration.LedgerDriftError
	if !errors.As(err, &drift) {
		t.Fatalf("Pending() error = %v, want *LedgerDriftError", err)
	}
	if drift.UnitID != "ghost_001" {
		t.Errorf("drift.UnitID = %s", drift.UnitID)
	}
}

func TestAppliedSet_ApplyFailureKeepsEarlierUnits(t *testing.T) {
	store := &fakeAppliedSetStore{name: "neo4j", failOn: "a_002"}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")

	applied, err := r.Upgrade(context.Background(), TargetHead)
	var applyErr *migration.ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("Upgrade() error = %v, want *ApplyError", err)
	}
	if len(applied) != 1 || applied[0] != "a_001" {
		t.Errorf("applied = %v, want [a_001]", applied)
	}
	if len(store.applied) != 1 {
		t.Errorf("ledger = %+v", store.applied)
	}
}

func TestAppliedSet_HistoryPreservesOrderAndTimestamps(t *testing.T) {
	ctx := context.Background()
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, setUnits(), t.TempDir(), ".cypher")
	if _, err := r.Upgrade(ctx, TargetHead); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	entries, err := r.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 || entries[0].UnitID != "a_001" {
		t.Errorf("entries = %+v", entries)
	}
	if entries[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}
}

func TestAppliedSet_CreateNumbersFromExisting(t *testing.T) {
	units := []migration.Unit{{ID: "neo4j_001_initial", Forward: []string{"X"}}}
	store := &fakeAppliedSetStore{name: "neo4j"}
	r := NewAppliedSet(store, units, t.TempDir(), ".cypher")

	id, path, err := r.Create(context.Background(), "add constraints")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "neo4j_002_add_constraints" {
		t.Errorf("id = %s", id)
	}
	if path == "" {
		t.Error("empty path")
	}
}
