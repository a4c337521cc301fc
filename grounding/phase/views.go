package phase

import (
	"context"

	"go.uber.org/zap"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// ViewHooks is the dialect-specific surface the views grounding drives.
type ViewHooks interface {
	AllViewNames(ctx context.Context) ([]string, error)
	GetView(ctx context.Context, name string) (grounding.View, error)
}

// ViewsConfig configures the views grounding factory.
type ViewsConfig struct {
	Filter grounding.Filter
}

// NewViews builds the views grounding factory. It applies the same three
// filter shapes as NewTables but performs no traversal — views aren't FK
// graph nodes.
func NewViews(cfg ViewsConfig) grounding.GroundingFactory {
	return func(a grounding.Adapter) grounding.Grounding {
		return &viewsGrounding{cfg: cfg, hooks: a.(ViewHooks)}
	}
}

type viewsGrounding struct {
	cfg   ViewsConfig
	hooks ViewHooks
}

func (g *viewsGrounding) Name() string { return "views" }

func (g *viewsGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	var names []string
	if g.cfg.Filter.SkipEnumeration() {
		names = g.cfg.Filter.Names
	} else {
		all, err := g.hooks.AllViewNames(ctx)
		if err != nil {
			return err
		}
		names = g.cfg.Filter.Apply(all)
	}

	for _, name := range names {
		v, err := g.hooks.GetView(ctx, name)
		if err != nil {
			gctx.Logger().Warn("views: fetch view failed", zap.String("view", name), zap.Error(err))
			continue
		}
		gctx.AddView(v)
	}
	return nil
}
