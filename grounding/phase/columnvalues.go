package phase

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// ColumnValuesHooks is the dialect-specific surface the column-values
// grounding drives for the two I/O-bearing sources in the priority order:
// native enum types and a bounded DISTINCT scan. CHECK-constraint parsing
// is dialect-agnostic and lives in this file.
type ColumnValuesHooks interface {
	// NativeEnumValues resolves a column's values from the dialect's native
	// enum support (PostgreSQL enum types, MySQL ENUM(...) parsed from
	// COLUMN_TYPE). ok is false when the column isn't a native enum.
	NativeEnumValues(ctx context.Context, qualifiedName, column, columnType string) (values []string, ok bool, err error)
	// DistinctValues runs SELECT DISTINCT col WHERE col IS NOT NULL LIMIT
	// limit+1 and normalizes every value to a string (numeric stringified,
	// boolean -> "true"/"false", date -> ISO 8601, binary -> UTF-8 decode).
	// within is false when the result exceeds limit or any value could not
	// be normalized — either case abandons value annotation for the column.
	DistinctValues(ctx context.Context, qualifiedName, column string, limit int) (values []string, within bool, err error)
}

// CheckValueParser is an optional, dialect-specific refinement of CHECK
// constraint parsing, tried when the shared regex shapes find no match.
// Only PostgreSQL implements this, using pg_query_go to parse the CHECK
// expression's AST.
type CheckValueParser interface {
	ParseCheckValues(definition, column string) (values []string, ok bool)
}

// ColumnValuesConfig configures the column-values grounding factory.
type ColumnValuesConfig struct {
	// LowCardinalityLimit bounds the DISTINCT scan. Zero disables the
	// low-cardinality source entirely — no column ever gains
	// kind=LowCardinality.
	LowCardinalityLimit int
	// Concurrency bounds how many columns are scanned at once per table,
	// via a bounded errgroup fan-out.
	Concurrency int
}

// NewColumnValues builds the column-values grounding factory — the
// priority-ordered value-resolution core: native enum, then CHECK
// constraint parsing, then a bounded low-cardinality scan, stopping at the
// first hit.
func NewColumnValues(cfg ColumnValuesConfig) grounding.GroundingFactory {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return func(a grounding.Adapter) grounding.Grounding {
		parser, _ := a.(CheckValueParser)
		return &columnValuesGrounding{cfg: cfg, hooks: a.(ColumnValuesHooks), parser: parser}
	}
}

type columnValuesGrounding struct {
	cfg    ColumnValuesConfig
	hooks  ColumnValuesHooks
	parser CheckValueParser
}

func (g *columnValuesGrounding) Name() string { return "columnValues" }

func (g *columnValuesGrounding) Run(ctx context.Context, gctx *grounding.Context, a grounding.Adapter) error {
	tables := append([]grounding.Table(nil), gctx.Tables...)
	for _, t := range tables {
		checks := checkConstraintsByColumn(t.Constraints)
		resolved := g.resolveColumns(ctx, gctx, t.Name, t.Columns, checks)
		gctx.MutateTable(t.Name, func(tbl *grounding.Table) {
			applyResolved(tbl.Columns, resolved)
		})
	}

	views := append([]grounding.View(nil), gctx.Views...)
	for _, v := range views {
		resolved := g.resolveColumns(ctx, gctx, v.Name, v.Columns, nil)
		gctx.MutateView(v.Name, func(view *grounding.View) {
			applyResolved(view.Columns, resolved)
		})
	}
	return nil
}

type resolvedValue struct {
	kind   grounding.ColumnKind
	values []string
}

func applyResolved(cols []grounding.Column, resolved []*resolvedValue) {
	for i, r := range resolved {
		if r == nil {
			continue
		}
		cols[i].Kind = r.kind
		cols[i].Values = r.values
	}
}

func (g *columnValuesGrounding) resolveColumns(ctx context.Context, gctx *grounding.Context, qualifiedName string, cols []grounding.Column, checks map[string][]grounding.TableConstraint) []*resolvedValue {
	results := make([]*resolvedValue, len(cols))

	grp, gctx2 := errgroup.WithContext(ctx)
	grp.SetLimit(g.cfg.Concurrency)
	for i, c := range cols {
		i, c := i, c
		grp.Go(func() error {
			r := g.resolveColumn(gctx2, gctx, qualifiedName, c, checks[c.Name])
			results[i] = r
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

func (g *columnValuesGrounding) resolveColumn(ctx context.Context, gctx *grounding.Context, qualifiedName string, c grounding.Column, checks []grounding.TableConstraint) *resolvedValue {
	if values, ok, err := g.hooks.NativeEnumValues(ctx, qualifiedName, c.Name, c.Type); err != nil {
		gctx.Logger().Warn("columnValues: native enum lookup failed",
			zap.String("table", qualifiedName), zap.String("column", c.Name), zap.Error(err))
	} else if ok && len(values) > 0 {
		return &resolvedValue{kind: grounding.ColumnKindEnum, values: values}
	}

	for _, check := range checks {
		if values, ok := g.parseCheck(check.Definition, c.Name); ok && len(values) > 0 {
			return &resolvedValue{kind: grounding.ColumnKindEnum, values: values}
		}
	}

	if g.cfg.LowCardinalityLimit <= 0 {
		return nil
	}
	values, within, err := g.hooks.DistinctValues(ctx, qualifiedName, c.Name, g.cfg.LowCardinalityLimit)
	if err != nil {
		gctx.Logger().Warn("columnValues: distinct scan failed",
			zap.String("table", qualifiedName), zap.String("column", c.Name), zap.Error(err))
		return nil
	}
	if !within || len(values) == 0 {
		return nil
	}
	return &resolvedValue{kind: grounding.ColumnKindLowCardinality, values: values}
}

func (g *columnValuesGrounding) parseCheck(definition, column string) ([]string, bool) {
	if values, ok := parseCheckValues(definition, column); ok {
		return values, true
	}
	if g.parser != nil {
		return g.parser.ParseCheckValues(definition, column)
	}
	return nil, false
}

func checkConstraintsByColumn(constraints []grounding.TableConstraint) map[string][]grounding.TableConstraint {
	out := map[string][]grounding.TableConstraint{}
	for _, c := range constraints {
		if c.Type != grounding.ConstraintCheck {
			continue
		}
		for _, col := range c.Columns {
			out[col] = append(out[col], c)
		}
	}
	return out
}

// parseCheckValues tries the three regex shapes from the CHECK-constraint
// value-resolution source, in order, stopping at the first match:
//  1. IN ('v1', 'v2', …) tolerating optional parens around the column and
//     ::text/::varchar casts.
//  2. = ANY(ARRAY['v1'::text, …]) (PostgreSQL).
//  3. Two or more disjoined column = 'val' clauses.
func parseCheckValues(definition, column string) ([]string, bool) {
	col := regexp.QuoteMeta(column)

	inRe := regexp.MustCompile(`(?i)\(?\s*` + col + `\s*(?:::\s*\w+)?\s*\)?\s*IN\s*\(([^)]*)\)`)
	if m := inRe.FindStringSubmatch(definition); m != nil {
		if vals := extractQuoted(m[1]); len(vals) > 0 {
			return vals, true
		}
	}

	anyRe := regexp.MustCompile(`(?i)\(?\s*` + col + `\s*(?:::\s*\w+)?\s*\)?\s*=\s*ANY\s*\(\s*ARRAY\s*\[([^\]]*)\]`)
	if m := anyRe.FindStringSubmatch(definition); m != nil {
		if vals := extractQuoted(m[1]); len(vals) > 0 {
			return vals, true
		}
	}

	eqRe := regexp.MustCompile(`(?i)` + col + `\s*=\s*'((?:[^']|'')*)'`)
	matches := eqRe.FindAllStringSubmatch(definition, -1)
	if len(matches) >= 2 {
		vals := make([]string, 0, len(matches))
		for _, m := range matches {
			vals = append(vals, unescapeQuote(m[1]))
		}
		return vals, true
	}

	return nil, false
}

var quotedLiteral = regexp.MustCompile(`'((?:[^']|'')*)'`)

func extractQuoted(s string) []string {
	matches := quotedLiteral.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, unescapeQuote(m[1]))
	}
	return out
}

func unescapeQuote(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}
