package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Recognized migration file extensions and the comment prefix each uses.
var commentPrefix = map[string]string{
	".sql":    "--",
	".cypher": "//",
	".es":     "#",
}

const (
	markerUp   = "+migrate Up"
	markerDown = "+migrate Down"
)

// LoadDir discovers migration units in a directory. Files are read in
// lexicographic order and returned as a plain ordered slice; nothing is
// executed or imported. Unrecognized extensions are skipped.
func LoadDir(dir string) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := commentPrefix[filepath.Ext(e.Name())]; ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	units := make([]Unit, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		u, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// ParseFile parses one migration file. The header is a run of comment lines
// carrying "key: value" metadata (revision, down_revision, branch, message).
// Statements between the "+migrate Up" and "+migrate Down" markers become the
// forward and backward steps. A missing Down section makes the unit
// irreversible.
func ParseFile(path string) (Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, fmt.Errorf("reading migration file: %w", err)
	}

	ext := filepath.Ext(path)
	prefix, ok := commentPrefix[ext]
	if !ok {
		return Unit{}, fmt.Errorf("unsupported migration file type: %s", path)
	}

	u := Unit{
		ID:     strings.TrimSuffix(filepath.Base(path), ext),
		Source: path,
	}

	const (
		inHeader = iota
		inUp
		inDown
	)
	section := inHeader
	var upLines, downLines []string

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)

		if rest, isComment := strings.CutPrefix(trimmed, prefix); isComment {
			rest = strings.TrimSpace(rest)
			switch {
			case rest == markerUp:
				section = inUp
			case rest == markerDown:
				section = inDown
			case section == inHeader:
				if key, val, found := strings.Cut(rest, ":"); found {
					applyHeader(&u, strings.TrimSpace(key), strings.TrimSpace(val))
				}
			}
			continue
		}
		if trimmed == "" {
			continue
		}
		switch section {
		case inUp:
			upLines = append(upLines, line)
		case inDown:
			downLines = append(downLines, line)
		case inHeader:
			return Unit{}, fmt.Errorf("%s: statement before %q marker", path, markerUp)
		}
	}

	if len(upLines) == 0 {
		return Unit{}, fmt.Errorf("%s: no forward statements", path)
	}

	split := splitStatements
	if ext == ".es" {
		// Search migrations are one HTTP operation per line.
		split = splitLines
	}
	u.Forward = split(upLines)
	u.Backward = split(downLines)
	if u.Revision == "" {
		u.Revision = u.ID
	}
	return u, nil
}

func applyHeader(u *Unit, key, val string) {
	switch key {
	case "revision":
		u.Revision = val
	case "down_revision":
		if val != "(none)" && val != "none" {
			u.DownRevision = val
		}
	case "branch":
		u.Branch = val
	case "message":
		u.Message = val
	}
}

// splitStatements groups lines into statements terminated by a trailing
// semicolon. Migration DDL is authored one statement at a time, so a
// line-level split is sufficient; semicolons inside string literals mid-line
// are not interpreted.
func splitStatements(lines []string) []string {
	var stmts []string
	var buf []string
	for _, line := range lines {
		buf = append(buf, line)
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			stmt := strings.TrimSpace(strings.Join(buf, "\n"))
			stmts = append(stmts, strings.TrimSuffix(stmt, ";"))
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if stmt := strings.TrimSpace(strings.Join(buf, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func splitLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
