package main

import (
	"fmt"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/orchestrator"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <store>",
	Short: "Show a store's applied migrations in order",
	Long: `Show the ordered list of migrations applied to one store. Timestamps are
included where the store's ledger records them; applied-set ledgers track
order only.

Examples:
  weave history mcp
  weave history neo4j --human`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	orch, cleanup := mustBuildOrchestrator(ctx, false)
	defer cleanup()

	report := orch.History(ctx, args[0])
	emitReport(report, func(r orchestrator.Result) {
		if len(r.History) == 0 {
			fmt.Printf("%s: no migrations applied\n", r.Store)
			return
		}
		for _, e := range r.History {
			if e.AppliedAt.IsZero() {
				fmt.Printf("%3d  %s\n", e.Position+1, e.UnitID)
				continue
			}
			fmt.Printf("%3d  %-40s %s\n", e.Position+1, e.UnitID, e.AppliedAt.Format("2006-01-02 15:04:05"))
		}
	})
	return nil
}
