package migration

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a migration message into a filename-safe fragment.
func Slugify(message string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(message), "_")
	return strings.Trim(s, "_")
}

// NewRevisionID returns a random 12-character hex revision identifier.
func NewRevisionID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// WriteChainedSkeleton writes a new chained-revision migration file that
// chains onto head ("" for a namespace root). Up and down hold pre-rendered
// statement bodies (from autogeneration) and may be empty. It returns the new
// revision and the file path. The file is never applied.
func WriteChainedSkeleton(dir, branch, message, head string, up, down []string) (revision, path string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating migrations directory: %w", err)
	}

	revision = NewRevisionID()
	name := revision
	if slug := Slugify(message); slug != "" {
		name += "_" + slug
	}
	path = filepath.Join(dir, name+".sql")

	var b strings.Builder
	fmt.Fprintf(&b, "-- revision: %s\n", revision)
	if head == "" {
		b.WriteString("-- down_revision: (none)\n")
	} else {
		fmt.Fprintf(&b, "-- down_revision: %s\n", head)
	}
	if branch != "" {
		fmt.Fprintf(&b, "-- branch: %s\n", branch)
	}
	fmt.Fprintf(&b, "-- message: %s\n\n", message)

	b.WriteString("-- +migrate Up\n")
	writeStatements(&b, up)
	b.WriteString("\n-- +migrate Down\n")
	writeStatements(&b, down)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", "", fmt.Errorf("writing migration skeleton: %w", err)
	}
	return revision, path, nil
}

// WriteAppliedSetSkeleton writes an empty applied-set migration template with
// the next zero-padded numeric prefix, e.g. neo4j_003_add_labels.cypher. The
// ext argument selects the file type (".cypher" or ".es").
func WriteAppliedSetSkeleton(dir, store, message, ext string, existing []Unit) (id, path string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating migrations directory: %w", err)
	}

	next := 1
	numRe := regexp.MustCompile(`^` + regexp.QuoteMeta(store) + `_(\d+)`)
	for _, u := range existing {
		if m := numRe.FindStringSubmatch(u.ID); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
				next = n + 1
			}
		}
	}

	id = fmt.Sprintf("%s_%03d", store, next)
	if slug := Slugify(message); slug != "" {
		id += "_" + slug
	}
	path = filepath.Join(dir, id+ext)

	prefix := commentPrefix[ext]
	if prefix == "" {
		return "", "", fmt.Errorf("unsupported skeleton file type %q", ext)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s message: %s\n\n", prefix, message)
	fmt.Fprintf(&b, "%s %s\n\n", prefix, markerUp)
	fmt.Fprintf(&b, "%s %s\n", prefix, markerDown)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", "", fmt.Errorf("writing migration skeleton: %w", err)
	}
	return id, path, nil
}

func writeStatements(b *strings.Builder, stmts []string) {
	for _, s := range stmts {
		b.WriteString(s)
		if !strings.HasSuffix(strings.TrimSpace(s), ";") {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
}
