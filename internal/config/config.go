// Package config loads the store registry configuration (stores.yml): which
// logical stores exist, how to reach them, where their migration units live,
// and the target schema definition used for autogeneration. The config is an
// explicit value constructed at startup and passed down — nothing in the
// core reads ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store kinds understood by the CLI wiring.
const (
	KindPostgres      = "postgres"
	KindSQLite        = "sqlite"
	KindNeo4j         = "neo4j"
	KindElasticsearch = "elasticsearch"
)

// connectionDefaults are the fallback values for connection variables
// referenced from stores.yml. They apply only when the variable is unset in
// the process environment; set-but-empty stays empty.
var connectionDefaults = map[string]string{
	"POSTGRES_USER":      "postgres",
	"POSTGRES_PASSWORD":  "postgres",
	"POSTGRES_HOST":      "localhost",
	"POSTGRES_PORT":      "5432",
	"NEO4J_URI":          "bolt://localhost:7687",
	"NEO4J_USER":         "neo4j",
	"NEO4J_PASSWORD":     "password",
	"ELASTICSEARCH_HOST": "localhost",
	"ELASTICSEARCH_PORT": "9200",
	"ELASTICSEARCH_URL":  "http://localhost:9200",
}

// expandConnectionVar expands ${VAR} references against the environment,
// falling back to connectionDefaults for unset variables.
func expandConnectionVar(s string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return connectionDefaults[key]
	})
}

// Config is the parsed stores.yml.
type Config struct {
	Stores []StoreConfig `yaml:"stores"`
}

// StoreConfig describes one logical store. DSN, URI, user, and password
// support ${ENV_VAR} expansion so credentials stay out of the file.
type StoreConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	DSN        string `yaml:"dsn,omitempty"`      // relational stores
	URI        string `yaml:"uri,omitempty"`      // neo4j / elasticsearch endpoint
	User       string `yaml:"user,omitempty"`     // neo4j auth
	Password   string `yaml:"password,omitempty"` // neo4j auth
	Migrations string `yaml:"migrations"`         // directory of unit files
	Branch     string `yaml:"branch,omitempty"`   // chained stores only

	// Schema is the target-state definition, used only by create
	// --autogenerate on chained stores; apply and revert never read it.
	Schema []TableDef `yaml:"schema,omitempty"`
}

// TableDef is the target definition of one relational table.
type TableDef struct {
	Name    string      `yaml:"name"`
	Columns []ColumnDef `yaml:"columns"`
}

// ColumnDef is the target definition of one column.
type ColumnDef struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	PrimaryKey bool   `yaml:"primary_key,omitempty"`
	NotNull    bool   `yaml:"not_null,omitempty"`
}

// Load reads and validates stores.yml. Connection fields are expanded
// against the process environment (unset connection variables fall back to
// connectionDefaults); relative migration directories are resolved against
// the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(cfg.Stores) == 0 {
		return nil, fmt.Errorf("%s must define at least one store", path)
	}

	base := filepath.Dir(path)
	for i := range cfg.Stores {
		s := &cfg.Stores[i]
		if s.Name == "" {
			return nil, fmt.Errorf("store entry %d must have a name", i+1)
		}
		switch s.Kind {
		case KindPostgres, KindSQLite, KindNeo4j, KindElasticsearch:
		default:
			return nil, fmt.Errorf("store %s: unknown kind %q", s.Name, s.Kind)
		}
		if s.Migrations == "" {
			return nil, fmt.Errorf("store %s: migrations directory is required", s.Name)
		}
		if !filepath.IsAbs(s.Migrations) {
			s.Migrations = filepath.Join(base, s.Migrations)
		}

		s.DSN = expandConnectionVar(s.DSN)
		s.URI = expandConnectionVar(s.URI)
		s.User = expandConnectionVar(s.User)
		s.Password = expandConnectionVar(s.Password)

		switch s.Kind {
		case KindPostgres, KindSQLite:
			if s.DSN == "" {
				return nil, fmt.Errorf("store %s: dsn is required for %s stores", s.Name, s.Kind)
			}
		case KindNeo4j, KindElasticsearch:
			if s.URI == "" {
				return nil, fmt.Errorf("store %s: uri is required for %s stores", s.Name, s.Kind)
			}
		}
	}

	return &cfg, nil
}
