package phase

import (
	"context"

	"go.uber.org/zap"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// ConstraintHooks is the dialect-specific surface the constraints grounding
// drives. Implementations read information_schema plus whatever
// engine-specific sources the dialect offers (pg_constraint,
// sys.check_constraints, SQLite's PRAGMA output) and may emit a NOT_NULL
// constraint for every NOT NULL column, including primary-key columns —
// the runner suppresses the redundant ones per the PK-implies-NOT-NULL
// invariant so dialect hooks don't each have to special-case it.
type ConstraintHooks interface {
	TableConstraints(ctx context.Context, tableName string) ([]grounding.TableConstraint, error)
}

// NewConstraints builds the constraints grounding factory.
func NewConstraints() grounding.GroundingFactory {
	return func(a grounding.Adapter) grounding.Grounding {
		return &constraintsGrounding{hooks: a.(ConstraintHooks)}
	}
}

type constraintsGrounding struct {
	hooks ConstraintHooks
}

func (g *constraintsGrounding) Name() string { return "constraints" }

func (g *constraintsGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	names := make([]string, len(gctx.Tables))
	for i, t := range gctx.Tables {
		names[i] = t.Name
	}

	for _, name := range names {
		cons, err := g.hooks.TableConstraints(ctx, name)
		if err != nil {
			gctx.Logger().Warn("constraints: fetch failed", zap.String("table", name), zap.Error(err))
			continue
		}

		pkCols := map[string]bool{}
		for _, c := range cons {
			if c.Type == grounding.ConstraintPrimaryKey {
				for _, col := range c.Columns {
					pkCols[col] = true
				}
			}
		}

		filtered := cons[:0:0]
		for _, c := range cons {
			if c.Type == grounding.ConstraintNotNull && len(c.Columns) == 1 && pkCols[c.Columns[0]] {
				continue
			}
			filtered = append(filtered, c)
		}

		gctx.MutateTable(name, func(t *grounding.Table) {
			t.Constraints = filtered
		})
	}
	return nil
}
