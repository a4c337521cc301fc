// Package bigquery implements the BigQuery grounding adapter: dataset-scoped
// INFORMATION_SCHEMA views, backtick identifier quoting, partition/clustering
// metadata synthesized into pseudo-indexes, and a mandatory dry-run Validate.
package bigquery

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
	Validator grounding.Validator // required — BigQuery has no implicit dry-run fallback

	// ProjectID qualifies INFORMATION_SCHEMA views; when empty the executor's
	// default project context applies.
	ProjectID string
	// Datasets is the scoping allow-list. At least one is required —
	// BigQuery has no "all datasets" default the way PostgreSQL has "all
	// non-system schemas".
	Datasets []string

	TableFilter grounding.Filter
	Forward     grounding.Depth
	Backward    grounding.Depth
	ViewFilter  grounding.Filter

	LowCardinalityLimit int
	Concurrency         int
	Groundings          []grounding.GroundingFactory
}

// Adapter is the BigQuery grounding.Adapter.
type Adapter struct {
	opts Options
}

// New builds a BigQuery Adapter. Returns a *grounding.ConfigError when
// Executor, Validator, or Datasets is missing — all three are mandatory
// per spec.
func New(opts Options) (*Adapter, error) {
	if opts.Executor == nil {
		return nil, &grounding.ConfigError{Dialect: "bigquery", Reason: "Executor is required"}
	}
	if opts.Validator == nil {
		return nil, &grounding.ConfigError{Dialect: "bigquery", Reason: "Validator is required (BigQuery has no implicit dry-run fallback)"}
	}
	if len(opts.Datasets) == 0 {
		return nil, &grounding.ConfigError{Dialect: "bigquery", Reason: "at least one dataset is required"}
	}
	if opts.LowCardinalityLimit == 0 {
		opts.LowCardinalityLimit = 20
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	return &Adapter{opts: opts}, nil
}

func (a *Adapter) Dialect() grounding.Dialect   { return grounding.DialectBigQuery }
func (a *Adapter) DefaultSchema() string        { return a.opts.Datasets[0] }
func (a *Adapter) SystemSchemas() []string      { return nil }
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

// isDatasetAllowed gates every candidate name through the dataset scope
// before traversal crosses the boundary, per spec §4.4.2.
func (a *Adapter) isDatasetAllowed(dataset string) bool {
	for _, d := range a.opts.Datasets {
		if d == dataset {
			return true
		}
	}
	return false
}

// infoSchemaView qualifies an INFORMATION_SCHEMA view with a dataset and,
// when configured, the project ID. Behavior when both ProjectID and the
// executor's ambient project context are unset is dialect-engine-dependent
// and left unreified here.
func (a *Adapter) infoSchemaView(dataset, view string) string {
	if a.opts.ProjectID != "" {
		return fmt.Sprintf("`%s`.`%s`.INFORMATION_SCHEMA.%s", a.opts.ProjectID, dataset, view)
	}
	return fmt.Sprintf("`%s`.INFORMATION_SCHEMA.%s", dataset, view)
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
