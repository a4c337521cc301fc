// Package postgres implements the PostgreSQL grounding adapter: identifier
// quoting, information_schema/pg_catalog-backed metadata hooks, and
// pg_query_go-assisted CHECK-constraint and dry-run parsing.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/phase"
)

// DefaultSchema is PostgreSQL's implicit schema when none is configured.
const DefaultSchema = "public"

// SystemSchemas are excluded from enumeration unless explicitly allowed.
var SystemSchemas = []string{"pg_catalog", "information_schema", "pg_toast"}

// Options configures a new Adapter.
type Options struct {
	Executor  grounding.Executor
	Validator grounding.Validator // optional; EXPLAIN-based validation synthesized when absent

	// Schemas restricts introspection to this allow-list; empty means all
	// non-system schemas.
	Schemas []string

	// Groundings, when non-nil, is used verbatim as the ordered grounding
	// list. When nil, a sensible default order is used instead.
	Groundings []grounding.GroundingFactory

	TableFilter grounding.Filter
	Forward     grounding.Depth
	Backward    grounding.Depth
	ViewFilter  grounding.Filter

	LowCardinalityLimit int
	Concurrency         int

	Report *phase.ReportConfig // nil disables the report grounding
	// ReportGenerator drives the external LLM agent loop Report delegates
	// to; required when Report is non-nil. The agent's tool access is
	// limited to the adapter's Executor, never a second connection.
	ReportGenerator func(ctx context.Context, gctx *grounding.Context, executor grounding.Executor, model string) (string, error)
}

// Adapter is the PostgreSQL grounding.Adapter.
type Adapter struct {
	opts Options
}

// New builds a PostgreSQL Adapter. It returns a *grounding.ConfigError if
// Executor is missing.
func New(opts Options) (*Adapter, error) {
	if opts.Executor == nil {
		return nil, &grounding.ConfigError{Dialect: "postgresql", Reason: "Executor is required"}
	}
	if opts.Report != nil && opts.ReportGenerator == nil {
		return nil, &grounding.ConfigError{Dialect: "postgresql", Reason: "ReportGenerator is required when Report is configured"}
	}
	if opts.LowCardinalityLimit == 0 {
		opts.LowCardinalityLimit = 20
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	return &Adapter{opts: opts}, nil
}

func (a *Adapter) Dialect() grounding.Dialect { return grounding.DialectPostgres }
func (a *Adapter) DefaultSchema() string      { return DefaultSchema }
func (a *Adapter) SystemSchemas() []string    { return SystemSchemas }
func (a *Adapter) Executor() grounding.Executor { return a.opts.Executor }

// QuoteIdentifier double-quotes name, splitting on "." and quoting each
// segment, doubling any embedded double quotes.
func (a *Adapter) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// EscapeString doubles single quotes.
func (a *Adapter) EscapeString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func (a *Adapter) ParseTableName(name string) (schema, table string) {
	return grounding.ParseQualifiedName(name, a.DefaultSchema())
}

func (a *Adapter) BuildSampleRowsQuery(table string, columns []string, limit int) string {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = a.QuoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", cols, a.QuoteIdentifier(table), limit)
}

func (a *Adapter) schemaFilter(column string) string {
	return grounding.BuildSchemaFilter(a, column, a.opts.Schemas)
}

// GroundingFactories returns opts.Groundings verbatim when the caller
// composed one explicitly — the contract says the caller owns this list —
// otherwise a sensible default: info, tables, views, rowCount, indexes,
// constraints, columnStats, columnValues, with report appended only when
// configured.
func (a *Adapter) GroundingFactories() []grounding.GroundingFactory {
	if a.opts.Groundings != nil {
		return a.opts.Groundings
	}
	factories := []grounding.GroundingFactory{
		phase.NewInfo(),
		phase.NewTables(phase.TablesConfig{Filter: a.opts.TableFilter, Forward: a.opts.Forward, Backward: a.opts.Backward}),
		phase.NewViews(phase.ViewsConfig{Filter: a.opts.ViewFilter}),
		phase.NewRowCount(),
		phase.NewIndexes(),
		phase.NewConstraints(),
		phase.NewColumnStats(a.opts.Concurrency),
		phase.NewColumnValues(phase.ColumnValuesConfig{LowCardinalityLimit: a.opts.LowCardinalityLimit, Concurrency: a.opts.Concurrency}),
	}
	if a.opts.Report != nil {
		factories = append(factories, phase.NewReport(*a.opts.Report))
	}
	return factories
}

func (a *Adapter) query(ctx context.Context, sql string) ([]grounding.Row, error) {
	return grounding.RunQuery(ctx, a.opts.Executor, sql)
}

