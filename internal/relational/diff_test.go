package relational

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/config"
)

func TestDiffSchema(t *testing.T) {
	tests := []struct {
		name     string
		live     []liveTable
		target   []config.TableDef
		wantUp   []string
		wantDown []string
	}{
		{
			name: "missing table created with drop inverse",
			target: []config.TableDef{{
				Name: "contexts",
				Columns: []config.ColumnDef{
					{Name: "id", Type: "TEXT", PrimaryKey: true},
					{Name: "user_id", Type: "TEXT", NotNull: true},
				},
			}},
			wantUp:   []string{"CREATE TABLE contexts (\n    id TEXT PRIMARY KEY,\n    user_id TEXT NOT NULL\n)"},
			wantDown: []string{"DROP TABLE contexts"},
		},
		{
			name: "missing column added with drop inverse",
			live: []liveTable{{
				name:    "mcp_users",
				columns: map[string]string{"id": "TEXT"},
				order:   []string{"id"},
			}},
			target: []config.TableDef{{
				Name: "mcp_users",
				Columns: []config.ColumnDef{
					{Name: "id", Type: "TEXT"},
					{Name: "email", Type: "TEXT"},
				},
			}},
			wantUp:   []string{"ALTER TABLE mcp_users ADD COLUMN email TEXT"},
			wantDown: []string{"ALTER TABLE mcp_users DROP COLUMN email"},
		},
		{
			name: "extra live column dropped forward only",
			live: []liveTable{{
				name:    "mcp_users",
				columns: map[string]string{"id": "TEXT", "legacy": "TEXT"},
				order:   []string{"id", "legacy"},
			}},
			target: []config.TableDef{{
				Name:    "mcp_users",
				Columns: []config.ColumnDef{{Name: "id", Type: "TEXT"}},
			}},
			wantUp: []string{"ALTER TABLE mcp_users DROP COLUMN legacy"},
		},
		{
			name: "extra live table dropped forward only",
			live: []liveTable{
				{name: "zombie", columns: map[string]string{"id": "TEXT"}, order: []string{"id"}},
				{name: "abandoned", columns: map[string]string{"id": "TEXT"}, order: []string{"id"}},
			},
			wantUp: []string{"DROP TABLE abandoned", "DROP TABLE zombie"},
		},
		{
			name: "in sync yields nothing",
			live: []liveTable{{
				name:    "mcp_users",
				columns: map[string]string{"id": "TEXT"},
				order:   []string{"id"},
			}},
			target: []config.TableDef{{
				Name:    "mcp_users",
				Columns: []config.ColumnDef{{Name: "id", Type: "TEXT"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, down := diffSchema(tt.live, tt.target)
			if !reflect.DeepEqual(up, tt.wantUp) {
				t.Errorf("up = %q, want %q", up, tt.wantUp)
			}
			if !reflect.DeepEqual(down, tt.wantDown) {
				t.Errorf("down = %q, want %q", down, tt.wantDown)
			}
		})
	}
}

func TestDiffSchema_DownReversesUpOrder(t *testing.T) {
	target := []config.TableDef{
		{Name: "a", Columns: []config.ColumnDef{{Name: "id", Type: "TEXT"}}},
		{Name: "b", Columns: []config.ColumnDef{{Name: "id", Type: "TEXT"}}},
	}
	_, down := diffSchema(nil, target)
	want := []string{"DROP TABLE b", "DROP TABLE a"}
	if !reflect.DeepEqual(down, want) {
		t.Errorf("down = %q, want %q", down, want)
	}
}

func TestAutogen_AgainstLiveSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "mcp")

	if err := s.EnsureLedger(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyRevision(ctx, "seed", []string{
		"CREATE TABLE mcp_users (id TEXT PRIMARY KEY)",
	}, "seed"); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	target := []config.TableDef{
		{Name: "mcp_users", Columns: []config.ColumnDef{
			{Name: "id", Type: "TEXT", PrimaryKey: true},
			{Name: "email", Type: "TEXT"},
		}},
		{Name: "contexts", Columns: []config.ColumnDef{
			{Name: "id", Type: "TEXT", PrimaryKey: true},
		}},
	}

	up, down, err := s.Autogen(target)(ctx)
	if err != nil {
		t.Fatalf("Autogen() error = %v", err)
	}
	joined := strings.Join(up, "\n")
	if !strings.Contains(joined, "ADD COLUMN email") {
		t.Errorf("up missing column addition: %q", up)
	}
	if !strings.Contains(joined, "CREATE TABLE contexts") {
		t.Errorf("up missing table creation: %q", up)
	}
	if strings.Contains(joined, LedgerTable("mcp")) {
		t.Errorf("diff touched the ledger table: %q", up)
	}
	if len(down) == 0 {
		t.Error("down is empty, want inverses for reversible changes")
	}
}
