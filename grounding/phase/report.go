package phase

import (
	"context"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// ReportCache is the optional caching capability the report grounding
// consults before regenerating a narrative. The engine never owns cache
// storage — an absent cache means always regenerate.
type ReportCache interface {
	Get(ctx context.Context) (value string, ok bool, err error)
	Set(ctx context.Context, value string) error
}

// ReportHooks is the surface a report grounding drives to generate the
// business-context narrative. Implementations delegate to an external LLM
// agent with tool access limited to the adapter's Executor; the agent loop
// itself is an external collaborator referenced only by this contract.
type ReportHooks interface {
	GenerateReport(ctx context.Context, gctx *grounding.Context, model string) (string, error)
}

// ReportConfig configures the report grounding factory.
type ReportConfig struct {
	Model        string
	Cache        ReportCache
	ForceRefresh bool
}

// NewReport builds the report grounding factory: check cache, on miss (or
// ForceRefresh) drive the agent loop, write ctx.Report, then populate the
// cache.
func NewReport(cfg ReportConfig) grounding.GroundingFactory {
	return func(a grounding.Adapter) grounding.Grounding {
		return &reportGrounding{cfg: cfg, hooks: a.(ReportHooks)}
	}
}

type reportGrounding struct {
	cfg   ReportConfig
	hooks ReportHooks
}

func (g *reportGrounding) Name() string { return "report" }

func (g *reportGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	if !g.cfg.ForceRefresh && g.cfg.Cache != nil {
		if value, ok, err := g.cfg.Cache.Get(ctx); err == nil && ok {
			gctx.Report = value
			return nil
		}
	}

	report, err := g.hooks.GenerateReport(ctx, gctx, g.cfg.Model)
	if err != nil {
		return err
	}
	gctx.Report = report

	if g.cfg.Cache != nil {
		return g.cfg.Cache.Set(ctx, report)
	}
	return nil
}
