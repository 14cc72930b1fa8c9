package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var createAutogenerate bool

func init() {
	createCmd.Flags().BoolVar(&createAutogenerate, "autogenerate", false, "Prefill the skeleton by diffing the live store against the schema in stores.yml")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <store> <message>",
	Short: "Create a new migration skeleton",
	Long: `Create a new migration unit skeleton for one store. The file is written to
the store's migrations directory and never applied; edit it, then run
"weave migrate".

Chained stores get a fresh revision ID linked to the current chain head.
Applied-set stores get the next sequential number in the store's namespace.
With --autogenerate, relational skeletons are prefilled with the statements
bringing the live store to the schema defined in stores.yml.

Examples:
  weave create mcp "add contexts table"
  weave create mcp "sync schema" --autogenerate
  weave create neo4j "constrain user ids"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store := args[0]
	message := strings.Join(args[1:], " ")

	orch, cleanup := mustBuildOrchestrator(ctx, createAutogenerate)
	defer cleanup()

	id, path, err := orch.Create(ctx, store, message)
	if err != nil {
		exitWithError(exitCodeForErr(err), "creating migration: %v", err)
	}

	if humanOutput {
		fmt.Printf("created %s\n  %s\n", id, path)
	} else {
		outputJSON(CreateResponse{Store: store, ID: id, Path: path})
	}
	return nil
}
