// Package grounding assembles a normalized, dialect-agnostic description of a
// relational database's schema — tables, views, columns, relationships,
// indexes, constraints, statistics, and low-cardinality value sets — for
// consumption by a downstream SQL-generation agent.
//
// The package never opens a database connection itself. Callers supply an
// Adapter (one per dialect) built around an Executor capability; Introspect
// drives the adapter's ordered Groundings against a fresh Context and
// projects the result into a stable Fragment sequence.
package grounding

// Dialect tags the SQL engine an Adapter targets.
type Dialect string

const (
	DialectPostgres  Dialect = "postgresql"
	DialectMySQL     Dialect = "mysql"
	DialectSQLServer Dialect = "sqlserver"
	DialectSQLite    Dialect = "sqlite"
	DialectBigQuery  Dialect = "bigquery"
)

// SizeHint buckets a table's row count into a coarse order of magnitude.
type SizeHint string

const (
	SizeTiny   SizeHint = "tiny"
	SizeSmall  SizeHint = "small"
	SizeMedium SizeHint = "medium"
	SizeLarge  SizeHint = "large"
	SizeHuge   SizeHint = "huge"
)

// ClassifySize buckets rowCount per the size-hint thresholds: <100 tiny,
// <1,000 small, <10,000 medium, <100,000 large, else huge.
func ClassifySize(rowCount int64) SizeHint {
	switch {
	case rowCount < 100:
		return SizeTiny
	case rowCount < 1_000:
		return SizeSmall
	case rowCount < 10_000:
		return SizeMedium
	case rowCount < 100_000:
		return SizeLarge
	default:
		return SizeHuge
	}
}

// ColumnKind classifies how a column's possible values were resolved.
type ColumnKind string

const (
	// ColumnKindNone means no value annotation was resolved for this column.
	ColumnKindNone ColumnKind = ""
	// ColumnKindEnum means values come from a native enum type or a CHECK
	// constraint; the set is exhaustive.
	ColumnKindEnum ColumnKind = "enum"
	// ColumnKindLowCardinality means values were observed via a bounded
	// DISTINCT scan; the set is only known to be small, not exhaustive.
	ColumnKindLowCardinality ColumnKind = "low_cardinality"
)

// ColumnStats carries optional numeric/temporal summary statistics for a
// column, gathered by ColumnStatsGrounding.
type ColumnStats struct {
	Min          *string
	Max          *string
	NullFraction *float64
}

// Column describes a single column of a Table or View.
type Column struct {
	Name      string
	Type      string
	Kind      ColumnKind
	Values    []string
	IsIndexed bool
	Stats     *ColumnStats
}

// TableIndex describes an index definition on a Table.
type TableIndex struct {
	Name    string
	Columns []string
	Unique  bool
	// Type is a dialect-specific tag such as BTREE, CLUSTERING, PARTITION,
	// or PARTIAL; empty when the dialect doesn't distinguish index kinds.
	Type string
}

// ConstraintType enumerates the constraint kinds the grounding pipeline
// recognizes.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "PRIMARY_KEY"
	ConstraintForeignKey ConstraintType = "FOREIGN_KEY"
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintCheck      ConstraintType = "CHECK"
	ConstraintNotNull    ConstraintType = "NOT_NULL"
	ConstraintDefault    ConstraintType = "DEFAULT"
)

// TableConstraint describes one constraint on a Table.
type TableConstraint struct {
	Name              string
	Type              ConstraintType
	Columns           []string
	Definition        string // raw DDL fragment, populated for CHECK
	DefaultValue      string // populated for DEFAULT
	ReferencedTable   string // populated for FOREIGN_KEY
	ReferencedColumns []string
}

// Table describes one base table, keyed by its fully qualified Name (e.g.
// "public.orders" or "dataset.orders").
type Table struct {
	Name        string
	Schema      string
	RawName     string
	Columns     []Column
	RowCount    *int64
	SizeHint    SizeHint
	Indexes     []TableIndex
	Constraints []TableConstraint
}

// View describes one view or materialized view.
type View struct {
	Name       string
	Schema     string
	RawName    string
	Definition string
	Columns    []Column
}

// Relationship records one foreign-key edge discovered during Table
// grounding. From and To have equal, non-zero length; position i in From
// maps to position i in To.
type Relationship struct {
	Table           string
	From            []string
	ReferencedTable string
	To              []string
}

// DialectInfo describes the engine being introspected.
type DialectInfo struct {
	Dialect  string
	Version  string
	Database string
	Details  map[string]any
}
