package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/orchestrator"
)

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateResponse is the response for the create command.
type CreateResponse struct {
	Store string `json:"store"`
	ID    string `json:"id"`
	Path  string `json:"path"`
}

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitCodeForErr maps an error to the CLI exit code contract. Drift outranks
// apply failures, which outrank configuration problems.
func exitCodeForErr(err error) int {
	var driftErr *migration.LedgerDriftError
	if errors.As(err, &driftErr) {
		return ExitDriftError
	}
	var applyErr *migration.ApplyError
	if errors.As(err, &applyErr) {
		return ExitApplyError
	}
	var confErr *migration.ConfigurationError
	if errors.As(err, &confErr) {
		return ExitConfigError
	}
	return ExitError
}

// exitCodeForReport returns the most severe exit code across a fan-out
// report, or ExitSuccess when every store succeeded.
func exitCodeForReport(report orchestrator.Report) int {
	code := ExitSuccess
	for _, r := range report {
		if r.Err == nil {
			continue
		}
		if c := exitCodeForErr(r.Err); c > code {
			code = c
		}
	}
	return code
}

// emitReport prints a fan-out report and exits non-zero if any store failed.
func emitReport(report orchestrator.Report, human func(orchestrator.Result)) {
	if humanOutput {
		for _, r := range report {
			if r.Err != nil {
				fmt.Printf("%-16s FAILED: %v\n", r.Store, r.Err)
				continue
			}
			human(r)
		}
	} else {
		outputJSON(report)
	}
	if code := exitCodeForReport(report); code != ExitSuccess {
		os.Exit(code)
	}
}
