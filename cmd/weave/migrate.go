package main

import (
	"fmt"
	"strings"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/orchestrator"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/runner"
	"github.com/spf13/cobra"
)

var (
	migrateStore  string
	migrateAction string
	migrateTarget string
)

func init() {
	migrateCmd.Flags().StringVarP(&migrateStore, "store", "s", orchestrator.All, "Store to migrate, or \"all\"")
	migrateCmd.Flags().StringVar(&migrateAction, "action", "upgrade", "Migration direction: upgrade or downgrade")
	migrateCmd.Flags().StringVar(&migrateTarget, "target", "", "Target revision (default: head for upgrade, one step for downgrade)")
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or revert migrations",
	Long: `Apply pending migrations (or revert applied ones) for one store or all.

Upgrades run every pending unit up to the target, in order. Downgrades run
backward steps from the most recent unit down to (but not including) the
target. Stores migrate independently: when targeting "all", one store's
failure does not stop the others, and the command exits non-zero if any
store failed.

Examples:
  weave migrate
  weave migrate -s mcp
  weave migrate -s mcp --action downgrade
  weave migrate -s mcp --action downgrade --target base`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	orch, cleanup := mustBuildOrchestrator(ctx, false)
	defer cleanup()

	var report orchestrator.Report
	switch migrateAction {
	case "upgrade":
		target := migrateTarget
		if target == "" {
			target = runner.TargetHead
		}
		report = orch.Upgrade(ctx, migrateStore, target)
	case "downgrade":
		target := migrateTarget
		if target == "" {
			target = runner.TargetOneStep
		}
		report = orch.Downgrade(ctx, migrateStore, target)
	default:
		exitWithError(ExitError, "unknown action %q, want upgrade or downgrade", migrateAction)
	}

	verb := "applied"
	if migrateAction == "downgrade" {
		verb = "reverted"
	}
	emitReport(report, func(r orchestrator.Result) {
		if len(r.Applied) == 0 {
			fmt.Printf("%-16s up to date\n", r.Store)
			return
		}
		fmt.Printf("%-16s %s %d: %s\n", r.Store, verb, len(r.Applied), strings.Join(r.Applied, ", "))
	})
	return nil
}
