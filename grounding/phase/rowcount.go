package phase

import (
	"context"

	"go.uber.org/zap"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// RowCountHooks is the dialect-specific surface the row-count grounding
// drives.
type RowCountHooks interface {
	// EstimatedRowCount returns a metadata-backed estimate (pg_class.reltuples,
	// a BigQuery statistics view, …) when the dialect has one. ok is false
	// when no estimate is available or the estimate is non-positive, in
	// which case the runner falls back to CountRows.
	EstimatedRowCount(ctx context.Context, tableName string) (count int64, ok bool, err error)
	CountRows(ctx context.Context, tableName string) (int64, error)
}

// NewRowCount builds the row-count grounding factory.
func NewRowCount() grounding.GroundingFactory {
	return func(a grounding.Adapter) grounding.Grounding {
		return &rowCountGrounding{hooks: a.(RowCountHooks)}
	}
}

type rowCountGrounding struct {
	hooks RowCountHooks
}

func (g *rowCountGrounding) Name() string { return "rowCount" }

func (g *rowCountGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	names := make([]string, len(gctx.Tables))
	for i, t := range gctx.Tables {
		names[i] = t.Name
	}

	for _, name := range names {
		count, ok, err := g.hooks.EstimatedRowCount(ctx, name)
		if err != nil {
			gctx.Logger().Warn("rowCount: estimate failed", zap.String("table", name), zap.Error(err))
		}
		if !ok || count <= 0 {
			count, err = g.hooks.CountRows(ctx, name)
			if err != nil {
				gctx.Logger().Warn("rowCount: count failed", zap.String("table", name), zap.Error(err))
				continue
			}
		}

		c := count
		gctx.MutateTable(name, func(t *grounding.Table) {
			t.RowCount = &c
			t.SizeHint = grounding.ClassifySize(c)
		})
	}
	return nil
}
