package main

// Exit codes returned by the weave CLI.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, invalid migration set)
	ExitApplyError  = 3 // One or more units failed to apply or revert
	ExitDriftError  = 4 // Ledger references a unit not present on disk
)
