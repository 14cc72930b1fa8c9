package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/config"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/graph"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/orchestrator"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/registry"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/relational"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/runner"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/search"
)

// DefaultConfigPath is where weave looks for the store registry when neither
// --config nor WEAVE_CONFIG is set.
const DefaultConfigPath = ".weave/stores.yml"

// resolveConfigPath applies the --config flag, then WEAVE_CONFIG, then the
// default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("WEAVE_CONFIG"); env != "" {
		return env
	}
	return DefaultConfigPath
}

// mustBuildOrchestrator loads .env and stores.yml, opens every configured
// store, and returns the orchestrator plus a cleanup function closing the
// store connections. Exits with ExitConfigError on any wiring failure.
func mustBuildOrchestrator(ctx context.Context, autogen bool) (*orchestrator.Orchestrator, func()) {
	// Credentials referenced as ${VAR} in stores.yml may live in .env.
	godotenv.Load()

	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	reg := registry.New()
	var closers []func()
	cleanup := func() {
		for _, closeStore := range closers {
			closeStore()
		}
	}

	for _, sc := range cfg.Stores {
		units, err := migration.LoadDir(sc.Migrations)
		if err != nil {
			cleanup()
			exitWithError(ExitConfigError, "store %s: loading migrations: %v", sc.Name, err)
		}

		r, closeStore, err := buildRunner(ctx, sc, units, autogen, log)
		if err != nil {
			cleanup()
			exitWithError(ExitConfigError, "store %s: %v", sc.Name, err)
		}
		closers = append(closers, closeStore)

		if err := reg.Register(registry.Binding{Name: sc.Name, Kind: sc.Kind, Runner: r}); err != nil {
			cleanup()
			exitWithError(ExitConfigError, "registering store %s: %v", sc.Name, err)
		}
	}

	return orchestrator.New(reg, log), cleanup
}

func buildRunner(ctx context.Context, sc config.StoreConfig, units []migration.Unit, autogen bool, log *slog.Logger) (runner.Runner, func(), error) {
	switch sc.Kind {
	case config.KindPostgres, config.KindSQLite:
		st, err := relational.Open(sc.Name, sc.Kind, sc.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		opts := []runner.ChainedOption{runner.WithChainedLogger(log)}
		if sc.Branch != "" {
			opts = append(opts, runner.WithBranch(sc.Branch))
		}
		if autogen {
			if len(sc.Schema) == 0 {
				st.Close()
				return nil, nil, fmt.Errorf("autogenerate requires a schema definition in stores.yml")
			}
			opts = append(opts, runner.WithAutogen(st.Autogen(sc.Schema)))
		}
		return runner.NewChained(st, units, sc.Migrations, opts...), func() { st.Close() }, nil

	case config.KindNeo4j:
		st, err := graph.Open(ctx, sc.Name, sc.URI, sc.User, sc.Password, log)
		if err != nil {
			return nil, nil, err
		}
		r := runner.NewAppliedSet(st, units, sc.Migrations, ".cypher", runner.WithAppliedSetLogger(log))
		return r, func() { st.Close(ctx) }, nil

	case config.KindElasticsearch:
		st, err := search.Open(sc.Name, sc.URI, log)
		if err != nil {
			return nil, nil, err
		}
		r := runner.NewAppliedSet(st, units, sc.Migrations, ".es", runner.WithAppliedSetLogger(log))
		return r, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", sc.Kind)
}
