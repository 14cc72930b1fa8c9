// Package orchestrator is the façade over the store registry: it resolves a
// logical store name (or "all"), drives the store's runner, and aggregates
// per-store results. Cross-store operations are best effort — stores are
// independent, so one store's failure never blocks another's rollout.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/registry"
)

// All is the store name that fans an operation out to every registered store.
const All = "all"

// Result is one store's outcome for a fan-out operation. Exactly the fields
// relevant to the invoked operation are populated.
type Result struct {
	Store   string                   `json:"store"`
	Applied []string                 `json:"applied,omitempty"`
	Current string                   `json:"current,omitempty"`
	History []migration.AppliedEntry `json:"history,omitempty"`
	Err     error                    `json:"-"`
	Error   string                   `json:"error,omitempty"`
}

// Report aggregates per-store results in registration order.
type Report []Result

// Ok reports whether no store returned an error.
func (r Report) Ok() bool {
	for _, res := range r {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// Orchestrator drives runners resolved through the registry.
type Orchestrator struct {
	reg *registry.Registry
	log *slog.Logger
}

// New builds an orchestrator over a populated registry.
func New(reg *registry.Registry, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{reg: reg, log: log}
}

// Upgrade migrates one store (or all) forward to target. Per-store failures
// are collected, not propagated; inspect Report.Ok.
func (o *Orchestrator) Upgrade(ctx context.Context, store, target string) Report {
	return o.fanOut(ctx, store, func(ctx context.Context, b registry.Binding) Result {
		applied, err := b.Runner.Upgrade(ctx, target)
		return Result{Store: b.Name, Applied: applied, Err: err}
	})
}

// Downgrade migrates one store (or all) backward to target.
func (o *Orchestrator) Downgrade(ctx context.Context, store, target string) Report {
	return o.fanOut(ctx, store, func(ctx context.Context, b registry.Binding) Result {
		applied, err := b.Runner.Downgrade(ctx, target)
		return Result{Store: b.Name, Applied: applied, Err: err}
	})
}

// Current reports each store's current revision. Read-only.
func (o *Orchestrator) Current(ctx context.Context, store string) Report {
	return o.fanOut(ctx, store, func(ctx context.Context, b registry.Binding) Result {
		cur, err := b.Runner.Current(ctx)
		return Result{Store: b.Name, Current: cur, Err: err}
	})
}

// History reports each store's applied units in order. Read-only.
func (o *Orchestrator) History(ctx context.Context, store string) Report {
	return o.fanOut(ctx, store, func(ctx context.Context, b registry.Binding) Result {
		entries, err := b.Runner.History(ctx)
		return Result{Store: b.Name, History: entries, Err: err}
	})
}

// Create synthesizes a new migration unit skeleton for one store. Fan-out to
// "all" is deliberately unsupported: a unit belongs to one namespace.
func (o *Orchestrator) Create(ctx context.Context, store, message string) (id, path string, err error) {
	b, err := o.reg.Resolve(store)
	if err != nil {
		return "", "", err
	}
	return b.Runner.Create(ctx, message)
}

// fanOut runs op against one store or, for All, against every registered
// store concurrently (migrating different stores shares no state). Results
// come back in registration order regardless of completion order.
func (o *Orchestrator) fanOut(ctx context.Context, store string, op func(context.Context, registry.Binding) Result) Report {
	if store != All {
		b, err := o.reg.Resolve(store)
		if err != nil {
			return Report{finish(Result{Store: store, Err: err})}
		}
		return Report{finish(op(ctx, b))}
	}

	bindings := o.reg.All()
	report := make(Report, len(bindings))
	var wg sync.WaitGroup
	for i, b := range bindings {
		wg.Add(1)
		go func(i int, b registry.Binding) {
			defer wg.Done()
			report[i] = finish(op(ctx, b))
		}(i, b)
	}
	wg.Wait()

	for _, res := range report {
		if res.Err != nil {
			o.log.Error("store operation failed", "store", res.Store, "error", res.Err)
		}
	}
	return report
}

// finish mirrors Err into the JSON-visible Error field.
func finish(r Result) Result {
	if r.Err != nil {
		r.Error = r.Err.Error()
	}
	return r
}
