package migration

import (
	"regexp"
	"strings"
	"testing"
)

func TestWriteChainedSkeleton_RoundTrips(t *testing.T) {
	dir := t.TempDir()

	rev, path, err := WriteChainedSkeleton(dir, "", "add user table", "abc123def456",
		[]string{"CREATE TABLE users (id TEXT PRIMARY KEY)"},
		[]string{"DROP TABLE users"})
	if err != nil {
		t.Fatalf("WriteChainedSkeleton() error = %v", err)
	}
	if !regexp.MustCompile(`^[0-9a-f]{12}$`).MatchString(rev) {
		t.Errorf("revision = %q, want 12 hex chars", rev)
	}
	if !strings.Contains(path, "add_user_table") {
		t.Errorf("path = %q, want message slug", path)
	}

	u, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile(skeleton) error = %v", err)
	}
	if u.Revision != rev {
		t.Errorf("Revision = %s, want %s", u.Revision, rev)
	}
	if u.DownRevision != "abc123def456" {
		t.Errorf("DownRevision = %s", u.DownRevision)
	}
	if u.Message != "add user table" {
		t.Errorf("Message = %q", u.Message)
	}
	if len(u.Forward) != 1 || len(u.Backward) != 1 {
		t.Errorf("Forward/Backward = %d/%d statements, want 1/1", len(u.Forward), len(u.Backward))
	}
}

func TestWriteChainedSkeleton_RootAndBranch(t *testing.T) {
	dir := t.TempDir()

	_, path, err := WriteChainedSkeleton(dir, "slack", "initial slack tables", "",
		[]string{"CREATE TABLE slack_users (id TEXT PRIMARY KEY)"}, nil)
	if err != nil {
		t.Fatalf("WriteChainedSkeleton() error = %v", err)
	}

	u, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile(skeleton) error = %v", err)
	}
	if u.DownRevision != "" {
		t.Errorf("DownRevision = %q, want empty for root", u.DownRevision)
	}
	if u.Branch != "slack" {
		t.Errorf("Branch = %q, want slack", u.Branch)
	}
	if u.Reversible() {
		t.Error("skeleton with no down body reported reversible")
	}
}

func TestWriteAppliedSetSkeleton_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	existing := []Unit{
		{ID: "neo4j_001_initial"},
		{ID: "neo4j_002_fulltext"},
	}

	id, path, err := WriteAppliedSetSkeleton(dir, "neo4j", "add similarity index", ".cypher", existing)
	if err != nil {
		t.Fatalf("WriteAppliedSetSkeleton() error = %v", err)
	}
	if !strings.HasPrefix(id, "neo4j_003") {
		t.Errorf("id = %q, want neo4j_003 prefix", id)
	}
	if !strings.HasSuffix(path, ".cypher") {
		t.Errorf("path = %q", path)
	}
}

func TestWriteAppliedSetSkeleton_FirstUnit(t *testing.T) {
	id, _, err := WriteAppliedSetSkeleton(t.TempDir(), "search", "bootstrap", ".es", nil)
	if err != nil {
		t.Fatalf("WriteAppliedSetSkeleton() error = %v", err)
	}
	if !strings.HasPrefix(id, "search_001") {
		t.Errorf("id = %q, want search_001 prefix", id)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Add user table", "add_user_table"},
		{"rename mcp_users -> insightmesh_users!", "rename_mcp_users_insightmesh_users"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
