// Package graph executes applied-set migrations against Neo4j. The ledger is
// an anchor node inside the graph itself: a MigrationHistory node keyed by
// store name, carrying the ordered list of applied unit IDs as a property.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
)

// AnchorID derives the ledger anchor's id property from the logical store
// name.
func AnchorID(storeName string) string {
	return storeName + "_migrations"
}

// Store is a Neo4j executor satisfying runner.AppliedSetStore.
type Store struct {
	name   string
	driver neo4j.DriverWithContext
	log    *slog.Logger
}

// Open connects to a Neo4j instance over bolt. The connection is verified
// lazily on first use; callers close the store when the batch finishes.
func Open(ctx context.Context, name, uri, user, password string, log *slog.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("store %s: opening neo4j driver: %w", name, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{name: name, driver: driver, log: log}, nil
}

// Name returns the logical store name.
func (s *Store) Name() string { return s.name }

// Close releases the driver and its connection pool.
func (s *Store) Close(ctx context.Context) error { return s.driver.Close(ctx) }

// EnsureLedger creates the MigrationHistory anchor node if absent. MERGE
// makes the bootstrap idempotent across concurrent runs.
func (s *Store) EnsureLedger(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (h:MigrationHistory {id: $anchor})
			ON CREATE SET h.applied_migrations = [], h.created_at = datetime()
		`, map[string]any{"anchor": AnchorID(s.name)})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("store %s: ensuring ledger anchor: %w", s.name, err)
	}
	return nil
}

// AppliedList reads the anchor's applied_migrations property. Only a
// genuinely absent anchor reads as an empty ledger; read and decode failures
// are surfaced, never mapped to empty (an empty-looking ledger would make the
// next upgrade re-apply everything). Per-unit timestamps are not stored on
// the anchor, so entries carry only ID and position.
func (s *Store) AppliedList(ctx context.Context) ([]migration.AppliedEntry, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	ids, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// OPTIONAL MATCH yields exactly one record whether or not the
		// anchor exists, so a Single failure is always a real error.
		result, err := tx.Run(ctx, `
			OPTIONAL MATCH (h:MigrationHistory {id: $anchor})
			RETURN h.applied_migrations AS applied
		`, map[string]any{"anchor": AnchorID(s.name)})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		raw, _ := record.Get("applied")
		return decodeAppliedProperty(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("store %s: reading ledger: %w", s.name, err)
	}

	list := ids.([]string)
	entries := make([]migration.AppliedEntry, len(list))
	for i, id := range list {
		entries[i] = migration.AppliedEntry{UnitID: id, Position: i}
	}
	return entries, nil
}

// decodeAppliedProperty converts the anchor's applied_migrations property
// value into unit IDs. A nil value (absent anchor, or anchor without the
// property) is an empty ledger; any other non-list shape is corruption and an
// error.
func decodeAppliedProperty(raw any) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("ledger anchor property applied_migrations is %T, want a list", raw)
	}
	ids := make([]string, 0, len(list))
	for _, v := range list {
		id, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("ledger anchor holds non-string entry %v", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ApplyUnit runs the unit's forward statements, then appends its ID to the
// anchor list. Schema statements (CREATE CONSTRAINT, CREATE INDEX) cannot
// share a transaction with data writes in Neo4j, so each step runs in its own
// auto-commit transaction and the ledger append follows in a managed write.
// A failure after the first step is reported as a partial apply.
func (s *Store) ApplyUnit(ctx context.Context, unitID string, steps []string) error {
	if err := s.runSteps(ctx, unitID, steps); err != nil {
		return err
	}
	return s.writeLedger(ctx, `
		MATCH (h:MigrationHistory {id: $anchor})
		SET h.applied_migrations = h.applied_migrations + $unit,
		    h.last_updated = datetime()
	`, unitID)
}

// RevertUnit runs the unit's backward statements, then removes its ID from
// the anchor list.
func (s *Store) RevertUnit(ctx context.Context, unitID string, steps []string) error {
	if err := s.runSteps(ctx, unitID, steps); err != nil {
		return err
	}
	return s.writeLedger(ctx, `
		MATCH (h:MigrationHistory {id: $anchor})
		SET h.applied_migrations = [x IN h.applied_migrations WHERE x <> $unit],
		    h.last_updated = datetime()
	`, unitID)
}

func (s *Store) runSteps(ctx context.Context, unitID string, steps []string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for i, stmt := range steps {
		result, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			err = fmt.Errorf("executing statement %d: %w", i+1, err)
			if i > 0 {
				return &migration.ApplyError{Store: s.name, UnitID: unitID, Partial: true, Err: err}
			}
			return &migration.ApplyError{Store: s.name, UnitID: unitID, Err: err}
		}
	}
	return nil
}

func (s *Store) writeLedger(ctx context.Context, query, unitID string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{
			"anchor": AnchorID(s.name),
			"unit":   unitID,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("store %s: updating ledger for unit %s: %w", s.name, unitID, err)
	}
	return nil
}
