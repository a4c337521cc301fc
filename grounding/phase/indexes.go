package phase

import (
	"context"

	"go.uber.org/zap"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// IndexHooks is the dialect-specific surface the indexes grounding drives.
// BigQuery synthesizes pseudo-indexes named "<table>_partition" and
// "<table>_clustering" from partition/clustering metadata; every other
// dialect returns its real B-tree/unique index definitions.
type IndexHooks interface {
	TableIndexes(ctx context.Context, tableName string) ([]grounding.TableIndex, error)
}

// NewIndexes builds the indexes grounding factory.
func NewIndexes() grounding.GroundingFactory {
	return func(a grounding.Adapter) grounding.Grounding {
		return &indexesGrounding{hooks: a.(IndexHooks)}
	}
}

type indexesGrounding struct {
	hooks IndexHooks
}

func (g *indexesGrounding) Name() string { return "indexes" }

func (g *indexesGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	names := make([]string, len(gctx.Tables))
	for i, t := range gctx.Tables {
		names[i] = t.Name
	}

	for _, name := range names {
		idx, err := g.hooks.TableIndexes(ctx, name)
		if err != nil {
			gctx.Logger().Warn("indexes: fetch failed", zap.String("table", name), zap.Error(err))
			continue
		}

		indexed := map[string]bool{}
		for _, i := range idx {
			for _, c := range i.Columns {
				indexed[c] = true
			}
		}

		gctx.MutateTable(name, func(t *grounding.Table) {
			t.Indexes = idx
			for i := range t.Columns {
				if indexed[t.Columns[i].Name] {
					t.Columns[i].IsIndexed = true
				}
			}
		})
	}
	return nil
}
