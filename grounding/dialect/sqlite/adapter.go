// Package sqlite implements the SQLite grounding adapter (also backing the
// spreadsheet-backed and libSQL-compatible dialects) using PRAGMA-based
// introspection.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/phase"
)

// Options configures a new Adapter.
type Options struct {
	Executor  grounding.Executor
	Validator grounding.Validator

	TableFilter grounding.Filter
	Forward     grounding.Depth
	Backward    grounding.Depth
	ViewFilter  grounding.Filter

	LowCardinalityLimit int
	Concurrency         int

	// Groundings, when non-nil, is used verbatim as the ordered grounding
	// list. When nil, a sensible default order is used instead.
	Groundings []grounding.GroundingFactory
}

// Adapter is the SQLite grounding.Adapter. SQLite has no schema/database
// concept beyond the single attached file, so DefaultSchema/SystemSchemas
// are empty and ParseTableName never splits on ".".
type Adapter struct {
	opts Options

	// incomingCache lazily holds every table's outgoing FKs, built once and
	// reused, since SQLite cannot enumerate reverse FKs directly.
	incomingCache map[string][]grounding.Relationship
}

// New builds a SQLite Adapter.
func New(opts Options) (*Adapter, error) {
	if opts.Executor == nil {
		return nil, &grounding.ConfigError{Dialect: "sqlite", Reason: "Executor is required"}
	}
	if opts.LowCardinalityLimit == 0 {
		opts.LowCardinalityLimit = 20
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	return &Adapter{opts: opts}, nil
}

func (a *Adapter) Dialect() grounding.Dialect   { return grounding.DialectSQLite }
func (a *Adapter) DefaultSchema() string        { return "" }
func (a *Adapter) SystemSchemas() []string      { return nil }
func (a *Adapter) Executor() grounding.Executor { return a.opts.Executor }

// QuoteIdentifier double-quotes name, doubling embedded double quotes.
// SQLite table names are never schema-qualified in this adapter, so no
// per-segment split is needed.
func (a *Adapter) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (a *Adapter) EscapeString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func (a *Adapter) ParseTableName(name string) (schema, table string) {
	return "", name
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
