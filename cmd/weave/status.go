package main

import (
	"fmt"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/orchestrator"
	"github.com/spf13/cobra"
)

var statusStore string

func init() {
	statusCmd.Flags().StringVarP(&statusStore, "store", "s", orchestrator.All, "Store to inspect, or \"all\"")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each store's current revision",
	Long: `Show the current revision of one store or all. Read-only: the ledger is
consulted but never modified, and no migration steps run.

Examples:
  weave status
  weave status -s mcp --human`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	orch, cleanup := mustBuildOrchestrator(ctx, false)
	defer cleanup()

	report := orch.Current(ctx, statusStore)
	emitReport(report, func(r orchestrator.Result) {
		current := r.Current
		if current == "" {
			current = "(base)"
		}
		fmt.Printf("%-16s %s\n", r.Store, current)
	})
	return nil
}
