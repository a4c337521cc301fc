// Package phase holds the shared BFS/scan runners behind each grounding
// factory. A runner is dialect-agnostic; it drives a small per-phase Hooks
// interface that concrete dialect adapters implement directly as methods,
// so phase imports grounding but grounding never imports phase.
package phase

import (
	"context"

	"go.uber.org/zap"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// TableHooks is the dialect-specific surface the tables grounding drives.
type TableHooks interface {
	AllTableNames(ctx context.Context) ([]string, error)
	GetTable(ctx context.Context, name string) (grounding.Table, error)
	// OutgoingRelations returns the FKs name declares, grouped by
	// constraint name with columns ordered by ordinal position.
	OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error)
	// IncomingRelations returns the FKs that reference name. SQLite cannot
	// enumerate these directly; its implementation scans every table's
	// outgoing FKs once, lazily, and reuses the cache across calls.
	IncomingRelations(ctx context.Context, name string) ([]grounding.Relationship, error)
}

// TablesConfig configures the tables grounding factory.
type TablesConfig struct {
	Filter   grounding.Filter
	Forward  grounding.Depth
	Backward grounding.Depth
}

// NewTables builds the tables grounding factory — the BFS core that seeds
// from cfg.Filter and walks the FK graph forward (to parents) and backward
// (from children) up to their respective depth bounds.
func NewTables(cfg TablesConfig) grounding.GroundingFactory {
	return func(a grounding.Adapter) grounding.Grounding {
		return &tablesGrounding{cfg: cfg, hooks: a.(TableHooks)}
	}
}

type tablesGrounding struct {
	cfg   TablesConfig
	hooks TableHooks
}

func (g *tablesGrounding) Name() string { return "tables" }

type bfsDirection int

const (
	dirForward bfsDirection = iota
	dirBackward
)

func (g *tablesGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	seeds, err := g.resolveSeeds(ctx)
	if err != nil {
		return err
	}

	fetched := map[string]bool{}
	fetchTable := func(name string) {
		if fetched[name] {
			return
		}
		fetched[name] = true
		t, err := g.hooks.GetTable(ctx, name)
		if err != nil {
			gctx.Logger().Warn("tables: fetch table failed", zap.String("table", name), zap.Error(err))
			return
		}
		gctx.AddTable(t)
	}

	for _, s := range seeds {
		fetchTable(s)
	}

	if g.cfg.Forward.Enabled {
		g.walk(ctx, gctx, seeds, dirForward, fetchTable)
	}
	if g.cfg.Backward.Enabled {
		g.walk(ctx, gctx, seeds, dirBackward, fetchTable)
	}

	return nil
}

func (g *tablesGrounding) resolveSeeds(ctx context.Context) ([]string, error) {
	if g.cfg.Filter.SkipEnumeration() {
		return g.cfg.Filter.Names, nil
	}
	names, err := g.hooks.AllTableNames(ctx)
	if err != nil {
		return nil, err
	}
	return g.cfg.Filter.Apply(names), nil
}

type bfsItem struct {
	name  string
	depth int
}

func (g *tablesGrounding) walk(ctx context.Context, gctx *grounding.Context, seeds []string, dir bfsDirection, fetchTable func(string)) {
	depth := g.cfg.Forward
	if dir == dirBackward {
		depth = g.cfg.Backward
	}

	visited := map[string]bool{}
	var queue []bfsItem
	for _, s := range seeds {
		if visited[s] {
			continue
		}
		visited[s] = true
		queue = append(queue, bfsItem{name: s, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if !depth.Allows(item.depth) {
			continue
		}

		var rels []grounding.Relationship
		var err error
		if dir == dirForward {
			rels, err = g.hooks.OutgoingRelations(ctx, item.name)
		} else {
			rels, err = g.hooks.IncomingRelations(ctx, item.name)
		}
		if err != nil {
			gctx.Logger().Warn("tables: relation lookup failed",
				zap.String("table", item.name), zap.Bool("backward", dir == dirBackward), zap.Error(err))
			continue
		}

		for _, r := range rels {
			gctx.AddRelationship(r)

			neighbor := r.ReferencedTable
			if dir == dirBackward {
				neighbor = r.Table
			}
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			fetchTable(neighbor)
			queue = append(queue, bfsItem{name: neighbor, depth: item.depth + 1})
		}
	}
}
