// Package sheet implements the spreadsheet-backed dialect: a thin
// composition over dialect/sqlite that serves table/column shape from a
// caller-supplied synthetic table set (produced by an external spreadsheet
// parser, out of scope here) while still querying the live libSQL-compatible
// backend for everything data-dependent (row counts, stats, values).
package sheet

import (
	"context"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/sqlite"
	"github.com/sqlgrounder/sqlgrounder/grounding/phase"
)

// Options configures a new Adapter.
type Options struct {
	Executor  grounding.Executor
	Validator grounding.Validator

	// Tables is the synthetic table set the spreadsheet parser produced —
	// one per sheet/tab, with columns already inferred. This package never
	// parses a spreadsheet file itself.
	Tables []grounding.Table

	TableFilter grounding.Filter
	ViewFilter  grounding.Filter

	LowCardinalityLimit int
	Concurrency         int
	Groundings          []grounding.GroundingFactory
}

// Adapter is the spreadsheet-backed grounding.Adapter. It delegates
// quoting, escaping, and row-dependent queries to an embedded *sqlite.Adapter
// (a spreadsheet-backed libSQL endpoint speaks SQLite's dialect) while
// sourcing table/column shape from Options.Tables instead of PRAGMA calls.
type Adapter struct {
	*sqlite.Adapter
	opts Options
}

// New builds a spreadsheet-backed Adapter.
func New(opts Options) (*Adapter, error) {
	if opts.Executor == nil {
		return nil, &grounding.ConfigError{Dialect: "sheet", Reason: "Executor is required"}
	}
	if len(opts.Tables) == 0 {
		return nil, &grounding.ConfigError{Dialect: "sheet", Reason: "at least one synthetic table is required"}
	}
	if opts.LowCardinalityLimit == 0 {
		opts.LowCardinalityLimit = 20
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	inner, err := sqlite.New(sqlite.Options{
		Executor:            opts.Executor,
		Validator:           opts.Validator,
		LowCardinalityLimit: opts.LowCardinalityLimit,
		Concurrency:         opts.Concurrency,
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{Adapter: inner, opts: opts}, nil
}

func (a *Adapter) Dialect() grounding.Dialect { return grounding.DialectSQLite }

// AllTableNames returns the synthetic table set's names instead of querying
// sqlite_master — a spreadsheet-backed endpoint's tables are defined by the
// parser's output, not catalog enumeration.
func (a *Adapter) AllTableNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(a.opts.Tables))
	for _, t := range a.opts.Tables {
		names = append(names, t.Name)
	}
	return names, nil
}

// GetTable returns the matching synthetic table's column shape directly,
// never issuing a PRAGMA table_info call.
func (a *Adapter) GetTable(ctx context.Context, name string) (grounding.Table, error) {
	for _, t := range a.opts.Tables {
		if t.Name == name {
			return t, nil
		}
	}
	return grounding.Table{}, &grounding.ConfigError{Dialect: "sheet", Reason: "unknown synthetic table: " + name}
}

// AllViewNames is always empty — a spreadsheet source has no view concept.
func (a *Adapter) AllViewNames(ctx context.Context) ([]string, error) { return nil, nil }

// OutgoingRelations and IncomingRelations are always empty — synthetic
// sheet-backed tables carry no foreign key metadata; relationships between
// sheets, if any, aren't discoverable without a user-declared mapping this
// package doesn't accept.
func (a *Adapter) OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	return nil, nil
}

func (a *Adapter) IncomingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	return nil, nil
}

// TableIndexes is always empty — spreadsheet tabs carry no index metadata.
func (a *Adapter) TableIndexes(ctx context.Context, tableName string) ([]grounding.TableIndex, error) {
	return nil, nil
}

// TableConstraints is always empty for the same reason.
func (a *Adapter) TableConstraints(ctx context.Context, tableName string) ([]grounding.TableConstraint, error) {
	return nil, nil
}

func (a *Adapter) GroundingFactories() []grounding.GroundingFactory {
	if a.opts.Groundings != nil {
		return a.opts.Groundings
	}
	return []grounding.GroundingFactory{
		phase.NewInfo(),
		phase.NewTables(phase.TablesConfig{Filter: a.opts.TableFilter}),
		phase.NewRowCount(),
		phase.NewColumnStats(a.opts.Concurrency),
		phase.NewColumnValues(phase.ColumnValuesConfig{LowCardinalityLimit: a.opts.LowCardinalityLimit, Concurrency: a.opts.Concurrency}),
	}
}
