package relational

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/config"
)

// liveTable is one table as introspected from the running store.
type liveTable struct {
	name    string
	columns map[string]string // name -> type
	order   []string
}

// liveSchema introspects the store's current tables and columns. The ledger
// table is excluded; it belongs to the orchestrator, not the domain schema.
func (s *Store) liveSchema(ctx context.Context) ([]liveTable, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.ListTablesSQL())
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name == LedgerTable(s.name) {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]liveTable, 0, len(names))
	for _, name := range names {
		t := liveTable{name: name, columns: make(map[string]string)}
		colRows, err := s.db.QueryContext(ctx, s.dialect.ListColumnsSQL(), name)
		if err != nil {
			return nil, fmt.Errorf("listing columns of %s: %w", name, err)
		}
		for colRows.Next() {
			var col, typ string
			if err := colRows.Scan(&col, &typ); err != nil {
				colRows.Close()
				return nil, err
			}
			t.columns[col] = typ
			t.order = append(t.order, col)
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, err
		}
		colRows.Close()
		tables = append(tables, t)
	}
	return tables, nil
}

// Autogen returns a function that diffs the live store against the target
// schema definition and renders the forward and backward statements for a
// new migration. Dropped tables are emitted forward-only: their definition
// is unknown, so the backward body cannot reconstruct them and the operator
// edits the skeleton by hand.
func (s *Store) Autogen(target []config.TableDef) func(ctx context.Context) (up, down []string, err error) {
	return func(ctx context.Context) ([]string, []string, error) {
		if err := s.EnsureLedger(ctx); err != nil {
			return nil, nil, err
		}
		live, err := s.liveSchema(ctx)
		if err != nil {
			return nil, nil, err
		}
		up, down := diffSchema(live, target)
		return up, down, nil
	}
}

// diffSchema computes statements bringing live to target, and their
// inverses. Down statements come out in reverse order of the ups they undo.
func diffSchema(live []liveTable, target []config.TableDef) (up, down []string) {
	liveByName := make(map[string]liveTable, len(live))
	for _, t := range live {
		liveByName[t.name] = t
	}
	targetNames := make(map[string]struct{}, len(target))

	for _, def := range target {
		targetNames[def.Name] = struct{}{}
		lt, exists := liveByName[def.Name]
		if !exists {
			up = append(up, createTableSQL(def))
			down = append(down, fmt.Sprintf("DROP TABLE %s", def.Name))
			continue
		}
		for _, col := range def.Columns {
			if _, ok := lt.columns[col.Name]; !ok {
				up = append(up, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", def.Name, columnSQL(col)))
				down = append(down, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", def.Name, col.Name))
			}
		}
		defCols := make(map[string]struct{}, len(def.Columns))
		for _, col := range def.Columns {
			defCols[col.Name] = struct{}{}
		}
		for _, col := range lt.order {
			if _, ok := defCols[col]; !ok {
				up = append(up, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", def.Name, col))
			}
		}
	}

	extras := make([]string, 0)
	for name := range liveByName {
		if _, ok := targetNames[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		up = append(up, fmt.Sprintf("DROP TABLE %s", name))
	}

	reverse(down)
	return up, down
}

func createTableSQL(def config.TableDef) string {
	cols := make([]string, 0, len(def.Columns))
	for _, col := range def.Columns {
		cols = append(cols, "    "+columnSQL(col))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", def.Name, strings.Join(cols, ",\n"))
}

func columnSQL(col config.ColumnDef) string {
	parts := []string{col.Name, col.Type}
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if col.NotNull {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
