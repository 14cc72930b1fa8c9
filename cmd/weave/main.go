// Package main provides the weave CLI entry point.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// configPath overrides the stores.yml location
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "Multi-store schema migration orchestrator",
	Long: `weave tracks, applies, and reverts ordered schema migrations across
heterogeneous stores: relational (PostgreSQL, SQLite), graph (Neo4j), and
search (Elasticsearch).

Each logical store keeps its own migration ledger inside the store itself.
Relational stores follow a chained-revision model with a single current
revision; graph and search stores record an ordered applied set. All commands
output JSON by default for easy integration with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to stores.yml (default .weave/stores.yml, or WEAVE_CONFIG)")
	rootCmd.Version = Version
}
