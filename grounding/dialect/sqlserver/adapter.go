// Package sqlserver implements the SQL Server grounding adapter: bracket
// identifier quoting, sys.*-catalog-backed metadata hooks, and TOP-based
// sample queries in place of LIMIT.
package sqlserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/phase"
)

// DefaultSchema is SQL Server's implicit schema when none is configured.
const DefaultSchema = "dbo"

// SystemSchemas are excluded from enumeration unless explicitly allowed.
var SystemSchemas = []string{"sys", "INFORMATION_SCHEMA", "guest", "db_owner", "db_accessadmin"}

// Options configures a new Adapter.
type Options struct {
	Executor  grounding.Executor
	Validator grounding.Validator

	Schemas []string

	TableFilter grounding.Filter
	Forward     grounding.Depth
	Backward    grounding.Depth
	ViewFilter  grounding.Filter

	LowCardinalityLimit int
	Concurrency         int
	Groundings          []grounding.GroundingFactory
}

// Adapter is the SQL Server grounding.Adapter.
type Adapter struct {
	opts Options
}

// New builds a SQL Server Adapter.
func New(opts Options) (*Adapter, error) {
	if opts.Executor == nil {
		return nil, &grounding.ConfigError{Dialect: "sqlserver", Reason: "Executor is required"}
	}
	if opts.LowCardinalityLimit == 0 {
		opts.LowCardinalityLimit = 20
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	return &Adapter{opts: opts}, nil
}

func (a *Adapter) Dialect() grounding.Dialect   { return grounding.DialectSQLServer }
func (a *Adapter) DefaultSchema() string        { return DefaultSchema }
func (a *Adapter) SystemSchemas() []string      { return SystemSchemas }
func (a *Adapter) Executor() grounding.Executor { return a.opts.Executor }

// QuoteIdentifier bracket-quotes name, splitting on "." and quoting each
// segment, doubling any embedded closing brackets.
func (a *Adapter) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

func (a *Adapter) EscapeString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func (a *Adapter) ParseTableName(name string) (schema, table string) {
	return grounding.ParseQualifiedName(name, a.DefaultSchema())
}

// BuildSampleRowsQuery uses TOP n, the engine's equivalent of LIMIT.
func (a *Adapter) BuildSampleRowsQuery(table string, columns []string, limit int) string {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = a.QuoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT TOP %d %s FROM %s", limit, cols, a.QuoteIdentifier(table))
}

func (a *Adapter) schemaFilter(column string) string {
	return grounding.BuildSchemaFilter(a, column, a.opts.Schemas)
}

func (a *Adapter) GroundingFactories() []grounding.GroundingFactory {
	if a.opts.Groundings != nil {
		return a.opts.Groundings
	}
	return []grounding.GroundingFactory{
		phase.NewInfo(),
		phase.NewTables(phase.TablesConfig{Filter: a.opts.TableFilter, Forward: a.opts.Forward, Backward: a.opts.Backward}),
		phase.NewViews(phase.ViewsConfig{Filter: a.opts.ViewFilter}),
		phase.NewRowCount(),
		phase.NewIndexes(),
		phase.NewConstraints(),
		phase.NewColumnStats(a.opts.Concurrency),
		phase.NewColumnValues(phase.ColumnValuesConfig{LowCardinalityLimit: a.opts.LowCardinalityLimit, Concurrency: a.opts.Concurrency}),
	}
}

func (a *Adapter) query(ctx context.Context, sql string) ([]grounding.Row, error) {
	return grounding.RunQuery(ctx, a.opts.Executor, sql)
}
