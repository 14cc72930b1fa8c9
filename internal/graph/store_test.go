package graph

import (
	"reflect"
	"testing"
)

func TestAnchorID(t *testing.T) {
	if got := AnchorID("neo4j"); got != "neo4j_migrations" {
		t.Errorf("AnchorID(neo4j) = %s", got)
	}
}

func TestDecodeAppliedProperty(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []string
		wantErr bool
	}{
		{"absent anchor reads empty", nil, []string{}, false},
		{"applied list decoded in order", []any{"neo4j_001_initial", "neo4j_002_labels"}, []string{"neo4j_001_initial", "neo4j_002_labels"}, false},
		{"empty list", []any{}, []string{}, false},
		{"non-list property is corruption", "neo4j_001_initial", nil, true},
		{"numeric property is corruption", int64(3), nil, true},
		{"non-string entry is corruption", []any{"neo4j_001_initial", int64(2)}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAppliedProperty(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeAppliedProperty(%v) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeAppliedProperty(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
