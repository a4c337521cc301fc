package phase

import (
	"context"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// statableType matches numeric, temporal, and boolean dialect type strings
// across the supported engines (int/serial/numeric/decimal/float/double,
// date/time/timestamp, bool/boolean). Column-stats is only meaningful for
// these; text/blob/json columns are skipped.
var statableType = regexp.MustCompile(`(?i)(int|serial|numeric|decimal|float|double|real|money|date|time|bool)`)

// IsStatable reports whether a column's dialect type string is a candidate
// for min/max/null-fraction stats.
func IsStatable(typeStr string) bool {
	return statableType.MatchString(typeStr)
}

// ColumnStatsHooks is the dialect-specific surface the column-stats
// grounding drives. BulkTableStats lets PostgreSQL prefetch from pg_stats
// in one query per table; implementations that have no bulk source return
// (nil, nil) and every column falls through to ColumnStat.
type ColumnStatsHooks interface {
	BulkTableStats(ctx context.Context, tableName string) (map[string]grounding.ColumnStats, error)
	ColumnStat(ctx context.Context, tableName, columnName, columnType string) (grounding.ColumnStats, error)
}

// NewColumnStats builds the column-stats grounding factory. Per-table
// column scans are fanned out through a bounded worker pool per spec's
// concurrency allowance for bounded per-entity fan-out.
func NewColumnStats(concurrency int) grounding.GroundingFactory {
	if concurrency < 1 {
		concurrency = 1
	}
	return func(a grounding.Adapter) grounding.Grounding {
		return &columnStatsGrounding{hooks: a.(ColumnStatsHooks), concurrency: concurrency}
	}
}

type columnStatsGrounding struct {
	hooks       ColumnStatsHooks
	concurrency int
}

func (g *columnStatsGrounding) Name() string { return "columnStats" }

func (g *columnStatsGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	tables := append([]grounding.Table(nil), gctx.Tables...)

	for _, t := range tables {
		bulk, err := g.hooks.BulkTableStats(ctx, t.Name)
		if err != nil {
			gctx.Logger().Warn("columnStats: bulk prefetch failed", zap.String("table", t.Name), zap.Error(err))
			bulk = nil
		}

		type result struct {
			column string
			stats  grounding.ColumnStats
		}
		results := make([]*result, len(t.Columns))

		grp, gctx2 := errgroup.WithContext(ctx)
		grp.SetLimit(g.concurrency)
		for i, c := range t.Columns {
			i, c := i, c
			if !IsStatable(c.Type) {
				continue
			}
			if bulk != nil {
				if s, ok := bulk[c.Name]; ok {
					results[i] = &result{column: c.Name, stats: s}
					continue
				}
			}
			grp.Go(func() error {
				s, err := g.hooks.ColumnStat(gctx2, t.Name, c.Name, c.Type)
				if err != nil {
					gctx.Logger().Warn("columnStats: column scan failed",
						zap.String("table", t.Name), zap.String("column", c.Name), zap.Error(err))
					return nil
				}
				results[i] = &result{column: c.Name, stats: s}
				return nil
			})
		}
		_ = grp.Wait()

		gctx.MutateTable(t.Name, func(tbl *grounding.Table) {
			for i, r := range results {
				if r == nil {
					continue
				}
				s := r.stats
				tbl.Columns[i].Stats = &s
			}
		})
	}
	return nil
}
