// Package mysql implements the MySQL/MariaDB grounding adapter:
// backtick identifier quoting and information_schema-backed metadata
// hooks, with ENUM('a','b',...) parsed directly from COLUMN_TYPE.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/phase"
)

// SystemSchemas are excluded from enumeration unless explicitly allowed.
var SystemSchemas = []string{"information_schema", "mysql", "performance_schema", "sys"}

// Options configures a new Adapter. MySQL has no separate schema concept:
// "database" doubles as the scoping unit, so Databases plays the role
// PostgreSQL's Schemas plays.
type Options struct {
	Executor  grounding.Executor
	Validator grounding.Validator

	Databases []string

	TableFilter grounding.Filter
	Forward     grounding.Depth
	Backward    grounding.Depth
	ViewFilter  grounding.Filter

	LowCardinalityLimit int
	Concurrency         int
	Groundings          []grounding.GroundingFactory
}

// Adapter is the MySQL/MariaDB grounding.Adapter.
type Adapter struct {
	opts          Options
	defaultSchema string
}

// New builds a MySQL Adapter. When exactly one database is configured it
// becomes the default schema for unqualified names.
func New(opts Options) (*Adapter, error) {
	if opts.Executor == nil {
		return nil, &grounding.ConfigError{Dialect: "mysql", Reason: "Executor is required"}
	}
	if opts.LowCardinalityLimit == 0 {
		opts.LowCardinalityLimit = 20
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	a := &Adapter{opts: opts}
	if len(opts.Databases) == 1 {
		a.defaultSchema = opts.Databases[0]
	}
	return a, nil
}

func (a *Adapter) Dialect() grounding.Dialect   { return grounding.DialectMySQL }
func (a *Adapter) DefaultSchema() string        { return a.defaultSchema }
func (a *Adapter) SystemSchemas() []string      { return SystemSchemas }
func (a *Adapter) Executor() grounding.Executor { return a.opts.Executor }

// QuoteIdentifier backtick-quotes name, splitting on "." and quoting each
// segment, doubling any embedded backticks.
func (a *Adapter) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

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
	return grounding.BuildSchemaFilter(a, column, a.opts.Databases)
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
