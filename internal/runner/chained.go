package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
)

// AutogenFunc produces forward and backward statement bodies for a new
// migration by diffing live store structure against the target schema
// definition. Nil means skeletons are created empty.
type AutogenFunc func(ctx context.Context) (up, down []string, err error)

// Chained runs migrations for a chained-revision store: units form a linear
// predecessor chain and the ledger records a single current revision.
type Chained struct {
	store   RevisionStore
	units   []migration.Unit
	branch  string
	dir     string
	autogen AutogenFunc
	log     *slog.Logger
}

// ChainedOption configures a Chained runner.
type ChainedOption func(*Chained)

// WithBranch constrains the runner to one branch label's sub-chain.
func WithBranch(branch string) ChainedOption {
	return func(c *Chained) { c.branch = branch }
}

// WithAutogen supplies the schema-diff used by Create.
func WithAutogen(fn AutogenFunc) ChainedOption {
	return func(c *Chained) { c.autogen = fn }
}

// WithChainedLogger sets the runner's logger.
func WithChainedLogger(log *slog.Logger) ChainedOption {
	return func(c *Chained) { c.log = log }
}

// NewChained builds a chained-revision runner over discovered units. dir is
// where Create writes new skeletons.
func NewChained(store RevisionStore, units []migration.Unit, dir string, opts ...ChainedOption) *Chained {
	c := &Chained{store: store, units: units, dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// resolve validates the chain, reads the ledger, and locates the current
// revision within the chain.
func (c *Chained) resolve(ctx context.Context) (*migration.Chain, int, error) {
	chain, err := migration.BuildChain(c.store.Name(), c.units, c.branch)
	if err != nil {
		return nil, 0, err
	}
	if err := c.store.EnsureLedger(ctx); err != nil {
		return nil, 0, fmt.Errorf("store %s: ensuring ledger: %w", c.store.Name(), err)
	}
	cur, err := c.store.CurrentRevision(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("store %s: reading ledger: %w", c.store.Name(), err)
	}
	idx, ok := chain.IndexOf(cur)
	if !ok {
		return nil, 0, &migration.LedgerDriftError{
			Store:  c.store.Name(),
			UnitID: cur,
			Detail: "recorded revision not found in migration chain",
		}
	}
	return chain, idx, nil
}

// Pending returns every unit after the recorded current revision, in chain
// order.
func (c *Chained) Pending(ctx context.Context) ([]migration.Unit, error) {
	chain, idx, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return chain.Units()[idx+1:], nil
}

// Upgrade applies pending units in chain order up to target (TargetHead or a
// revision in the chain). Each unit's forward steps and the revision advance
// are one atomic unit of work where the store supports transactions.
func (c *Chained) Upgrade(ctx context.Context, target string) ([]string, error) {
	chain, idx, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	stop := chain.Len() - 1
	if target != "" && target != TargetHead {
		i, ok := chain.IndexOf(target)
		if !ok {
			return nil, &migration.ConfigurationError{
				Store:  c.store.Name(),
				Detail: fmt.Sprintf("upgrade target %q not found in migration chain", target),
			}
		}
		stop = i
	}

	var applied []string
	for _, u := range chain.Units()[idx+1:] {
		i, _ := chain.IndexOf(u.Revision)
		if i > stop {
			break
		}
		if err := c.store.ApplyRevision(ctx, u.ID, u.Forward, u.Revision); err != nil {
			return applied, wrapApply(c.store.Name(), u.ID, err)
		}
		c.log.Info("migration applied", "store", c.store.Name(), "unit", u.ID, "revision", u.Revision)
		applied = append(applied, u.ID)
	}
	return applied, nil
}

// Downgrade reverts applied units in reverse chain order down to (but not
// including) target: TargetBase, TargetOneStep, or a revision in the chain.
// The whole reverse range is checked for reversibility before any unit runs.
func (c *Chained) Downgrade(ctx context.Context, target string) ([]string, error) {
	chain, idx, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, fmt.Errorf("store %s: %w", c.store.Name(), migration.ErrNoMigrationsApplied)
	}

	var stop int // revert units at positions (stop, idx], highest first
	switch target {
	case TargetBase:
		stop = -1
	case TargetOneStep, "":
		stop = idx - 1
	default:
		i, ok := chain.IndexOf(target)
		if !ok {
			return nil, &migration.ConfigurationError{
				Store:  c.store.Name(),
				Detail: fmt.Sprintf("downgrade target %q not found in migration chain", target),
			}
		}
		if i > idx {
			return nil, &migration.ConfigurationError{
				Store:  c.store.Name(),
				Detail: fmt.Sprintf("downgrade target %q has not been applied", target),
			}
		}
		stop = i
	}

	units := chain.Units()
	for i := idx; i > stop; i-- {
		if !units[i].Reversible() {
			return nil, fmt.Errorf("store %s: unit %s: %w", c.store.Name(), units[i].ID, migration.ErrIrreversibleMigration)
		}
	}

	var reverted []string
	for i := idx; i > stop; i-- {
		u := units[i]
		if err := c.store.ApplyRevision(ctx, u.ID, u.Backward, u.DownRevision); err != nil {
			return reverted, wrapApply(c.store.Name(), u.ID, err)
		}
		c.log.Info("migration reverted", "store", c.store.Name(), "unit", u.ID, "revision", u.DownRevision)
		reverted = append(reverted, u.ID)
	}
	return reverted, nil
}

// Current returns the recorded current revision, or "" when the ledger is
// empty.
func (c *Chained) Current(ctx context.Context) (string, error) {
	chain, idx, err := c.resolve(ctx)
	if err != nil {
		return "", err
	}
	if idx < 0 {
		return "", nil
	}
	return chain.Units()[idx].Revision, nil
}

// History returns the chain prefix up to the current revision. The
// chained-revision ledger records no per-unit timestamps, so AppliedAt is
// zero for every entry.
func (c *Chained) History(ctx context.Context) ([]migration.AppliedEntry, error) {
	chain, idx, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]migration.AppliedEntry, 0, idx+1)
	for i, u := range chain.Units() {
		if i > idx {
			break
		}
		entries = append(entries, migration.AppliedEntry{UnitID: u.ID, Position: i})
	}
	return entries, nil
}

// Create synthesizes a new migration chaining onto the current chain tip.
// With an autogen diff configured, the skeleton body holds the statements
// that would bring the live store to the target schema definition.
func (c *Chained) Create(ctx context.Context, message string) (string, string, error) {
	chain, err := migration.BuildChain(c.store.Name(), c.units, c.branch)
	if err != nil {
		return "", "", err
	}

	var up, down []string
	if c.autogen != nil {
		up, down, err = c.autogen(ctx)
		if err != nil {
			return "", "", fmt.Errorf("store %s: autogenerating migration: %w", c.store.Name(), err)
		}
	}

	rev, path, err := migration.WriteChainedSkeleton(c.dir, c.branch, message, chain.Head(), up, down)
	if err != nil {
		return "", "", fmt.Errorf("store %s: %w", c.store.Name(), err)
	}
	c.log.Info("migration created", "store", c.store.Name(), "revision", rev, "path", path)
	return rev, path, nil
}

// wrapApply preserves *migration.ApplyError classification (stores report
// partial application themselves) and wraps anything else.
func wrapApply(store, unitID string, err error) error {
	if ae, ok := err.(*migration.ApplyError); ok {
		return ae
	}
	return &migration.ApplyError{Store: store, UnitID: unitID, Err: err}
}
