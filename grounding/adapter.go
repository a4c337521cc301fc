package grounding

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Grounding is one phase of the pipeline: info, tables, views, row-count,
// indexes, constraints, column-stats, column-values, or report. Each reads
// prior groundings' output from gctx by name lookup, issues metadata
// queries through a, and mutates gctx.
type Grounding interface {
	Name() string
	Run(ctx context.Context, gctx *Context, a Adapter) error
}

// GroundingFactory builds a Grounding bound to the adapter that will run it,
// so a grounding can call back into dialect hooks without an import cycle.
type GroundingFactory func(a Adapter) Grounding

// Adapter is the per-dialect object every grounding issues its metadata
// queries through. Concrete dialects (postgres, mysql, sqlserver, sqlite,
// bigquery, sheet) implement this plus whichever grounding/phase Hooks
// interfaces their groundings need.
type Adapter interface {
	Dialect() Dialect
	DefaultSchema() string
	SystemSchemas() []string
	Executor() Executor

	// QuoteIdentifier renders name as a dialect-correct quoted identifier,
	// doubling internal quote characters. BigQuery and MySQL split on "."
	// and quote each segment independently.
	QuoteIdentifier(name string) string
	// EscapeString doubles single quotes for use inside a SQL string
	// literal.
	EscapeString(value string) string
	// ParseTableName splits name on the first "." into (schema, table),
	// falling back to (DefaultSchema(), name) when unqualified.
	ParseTableName(name string) (schema, table string)
	// BuildSampleRowsQuery renders a dialect-specific bounded row sample:
	// SELECT ... LIMIT n on most dialects, SELECT TOP n ... on SQL Server.
	BuildSampleRowsQuery(table string, columns []string, limit int) string

	// GroundingFactories returns the ordered list of phase factories this
	// adapter runs. The order is meaningful: Introspect runs them exactly
	// in this sequence.
	GroundingFactories() []GroundingFactory

	// Validate wraps the dialect's dry-run primitive (EXPLAIN, PARSEONLY,
	// or a BigQuery dry run). On success it returns "". On failure it
	// returns a Diagnostic JSON string — never a Go error.
	Validate(ctx context.Context, sql string) string
}

// ToNumber tolerantly coerces v into a float64: finite numeric kinds,
// big-integer-shaped values, and non-empty numeric-looking strings convert;
// anything else reports ok=false ("no number").
func ToNumber(v any) (f float64, ok bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case []byte:
		return ToNumber(string(n))
	default:
		return 0, false
	}
}

// BuildSchemaFilter is the shared, dialect-agnostic implementation of the
// adapter contract's buildSchemaFilter: an "AND <col> IN (...)" fragment
// for an explicit allow-list, or "AND <col> NOT IN (...)" against the
// adapter's system schemas when no allow-list is given, or "" when
// neither applies. Dialect adapters call this rather than reimplementing
// quoting/escaping per dialect.
func BuildSchemaFilter(a Adapter, column string, allowed []string) string {
	if len(allowed) > 0 {
		return fmt.Sprintf("AND %s IN (%s)", column, quotedList(a, allowed))
	}
	if sys := a.SystemSchemas(); len(sys) > 0 {
		return fmt.Sprintf("AND %s NOT IN (%s)", column, quotedList(a, sys))
	}
	return ""
}

func quotedList(a Adapter, vals []string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = "'" + a.EscapeString(v) + "'"
	}
	return strings.Join(parts, ", ")
}

// ParseQualifiedName implements the shared first-dot split every dialect's
// ParseTableName delegates to.
func ParseQualifiedName(name, defaultSchema string) (schema, table string) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}

// Introspect drives a's grounding factories sequentially against a fresh
// Context and returns the emitted fragment sequence. It is the sole entry
// point a caller invokes per introspection run.
func Introspect(ctx context.Context, a Adapter, opts ...ContextOption) ([]Fragment, error) {
	gctx := NewContext(opts...)
	for _, factory := range a.GroundingFactories() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g := factory(a)
		if err := g.Run(ctx, gctx, a); err != nil {
			return nil, fmt.Errorf("grounding %q: %w", g.Name(), err)
		}
	}
	return Emit(gctx), nil
}
