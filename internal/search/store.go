// Package search executes applied-set migrations against Elasticsearch over
// its HTTP API. Each migration step is a request line, "METHOD /path" with an
// optional JSON body, and the ledger is a document in the .weave-migrations
// index keyed by store name.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
)

// LedgerIndex holds one ledger document per logical store.
const LedgerIndex = ".weave-migrations"

type ledgerDoc struct {
	Applied     []string  `json:"applied"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store is an Elasticsearch executor satisfying runner.AppliedSetStore.
type Store struct {
	name    string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// Open configures a store executor against the cluster at uri. No connection
// is established until the first request.
func Open(name, uri string, log *slog.Logger) (*Store, error) {
	uri = strings.TrimRight(uri, "/")
	if uri == "" {
		return nil, fmt.Errorf("store %s: elasticsearch uri is required", name)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		name:    name,
		baseURL: uri,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}, nil
}

// Name returns the logical store name.
func (s *Store) Name() string { return s.name }

func (s *Store) ledgerPath() string {
	return fmt.Sprintf("/%s/_doc/%s", LedgerIndex, s.name)
}

// EnsureLedger creates the ledger document if absent. Idempotent. Only a 404
// means absent; any other failure reading the ledger is surfaced rather than
// risking an empty-list overwrite of real applied history.
func (s *Store) EnsureLedger(ctx context.Context) error {
	body, status, err := s.do(ctx, http.MethodGet, s.ledgerPath(), nil)
	if err != nil {
		return fmt.Errorf("store %s: checking ledger: %w", s.name, err)
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return s.writeLedger(ctx, []string{})
	default:
		return fmt.Errorf("store %s: checking ledger: unexpected status %d: %s", s.name, status, abbreviate(body))
	}
}

// AppliedList reads the ledger document. A missing document or index reads as
// an empty ledger.
func (s *Store) AppliedList(ctx context.Context) ([]migration.AppliedEntry, error) {
	body, status, err := s.do(ctx, http.MethodGet, s.ledgerPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("store %s: reading ledger: %w", s.name, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("store %s: reading ledger: unexpected status %d", s.name, status)
	}

	var envelope struct {
		Source ledgerDoc `json:"_source"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("store %s: decoding ledger: %w", s.name, err)
	}
	entries := make([]migration.AppliedEntry, len(envelope.Source.Applied))
	for i, id := range envelope.Source.Applied {
		entries[i] = migration.AppliedEntry{UnitID: id, Position: i}
	}
	return entries, nil
}

// ApplyUnit executes the unit's request steps, then appends its ID to the
// ledger document. Elasticsearch has no multi-request transaction, so a
// failure after the first step is reported as a partial apply.
func (s *Store) ApplyUnit(ctx context.Context, unitID string, steps []string) error {
	if err := s.runSteps(ctx, unitID, steps); err != nil {
		return err
	}
	return s.mutateLedger(ctx, func(applied []string) ([]string, error) {
		return append(applied, unitID), nil
	})
}

// RevertUnit executes the unit's backward request steps, then pops the unit
// from the tail of the ledger list. Reverts only ever target the most recent
// entry; anything else means the caller and the ledger disagree.
func (s *Store) RevertUnit(ctx context.Context, unitID string, steps []string) error {
	if err := s.runSteps(ctx, unitID, steps); err != nil {
		return err
	}
	return s.mutateLedger(ctx, func(applied []string) ([]string, error) {
		if len(applied) == 0 || applied[len(applied)-1] != unitID {
			return nil, fmt.Errorf("store %s: unit %s is not the last applied entry", s.name, unitID)
		}
		return applied[:len(applied)-1], nil
	})
}

func (s *Store) runSteps(ctx context.Context, unitID string, steps []string) error {
	for i, step := range steps {
		method, path, body, err := parseStep(step)
		if err == nil {
			err = s.execStep(ctx, method, path, body)
		}
		if err != nil {
			err = fmt.Errorf("step %d: %w", i+1, err)
			if i > 0 {
				return &migration.ApplyError{Store: s.name, UnitID: unitID, Partial: true, Err: err}
			}
			return &migration.ApplyError{Store: s.name, UnitID: unitID, Err: err}
		}
	}
	return nil
}

func (s *Store) execStep(ctx context.Context, method, path string, body []byte) error {
	respBody, status, err := s.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, status, abbreviate(respBody))
	}
	return nil
}

func (s *Store) mutateLedger(ctx context.Context, mutate func([]string) ([]string, error)) error {
	entries, err := s.AppliedList(ctx)
	if err != nil {
		return err
	}
	applied := make([]string, len(entries))
	for i, e := range entries {
		applied[i] = e.UnitID
	}
	next, err := mutate(applied)
	if err != nil {
		return err
	}
	return s.writeLedger(ctx, next)
}

func (s *Store) writeLedger(ctx context.Context, applied []string) error {
	doc, err := json.Marshal(ledgerDoc{Applied: applied, LastUpdated: time.Now().UTC()})
	if err != nil {
		return err
	}
	body, status, err := s.do(ctx, http.MethodPut, s.ledgerPath()+"?refresh=true", doc)
	if err != nil {
		return fmt.Errorf("store %s: writing ledger: %w", s.name, err)
	}
	if status >= 300 {
		return fmt.Errorf("store %s: writing ledger: status %d: %s", s.name, status, abbreviate(body))
	}
	return nil
}

func (s *Store) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return respBody, resp.StatusCode, nil
}

// parseStep splits a request line into method, path, and optional JSON body.
// The path must be cluster-relative and start with "/".
func parseStep(step string) (method, path string, body []byte, err error) {
	step = strings.TrimSpace(step)
	parts := strings.SplitN(step, " ", 3)
	if len(parts) < 2 {
		return "", "", nil, fmt.Errorf("malformed request line %q, want \"METHOD /path [body]\"", step)
	}
	method = strings.ToUpper(parts[0])
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodHead:
	default:
		return "", "", nil, fmt.Errorf("unsupported method %q", parts[0])
	}
	path = parts[1]
	if !strings.HasPrefix(path, "/") {
		return "", "", nil, fmt.Errorf("path %q must start with /", path)
	}
	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		raw := strings.TrimSpace(parts[2])
		if !json.Valid([]byte(raw)) {
			return "", "", nil, fmt.Errorf("body is not valid JSON: %s", abbreviate([]byte(raw)))
		}
		body = []byte(raw)
	}
	return method, path, body, nil
}

func abbreviate(b []byte) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
