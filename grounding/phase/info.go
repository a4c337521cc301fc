package phase

import (
	"context"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// InfoHooks is the dialect-specific surface the info grounding drives.
type InfoHooks interface {
	CollectInfo(ctx context.Context) (grounding.DialectInfo, error)
}

// NewInfo builds the info grounding factory. It populates ctx.Info exactly
// once and has no dependency on any other phase.
func NewInfo() grounding.GroundingFactory {
	return func(a grounding.Adapter) grounding.Grounding {
		return &infoGrounding{hooks: a.(InfoHooks)}
	}
}

type infoGrounding struct {
	hooks InfoHooks
}

func (g *infoGrounding) Name() string { return "info" }

func (g *infoGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	info, err := g.hooks.CollectInfo(ctx)
	if err != nil {
		return err
	}
	gctx.Info = &info
	return nil
}
