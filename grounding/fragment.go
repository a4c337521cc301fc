package grounding

import (
	"fmt"
	"sort"
)

// FragmentKind tags the shape of a Fragment's payload.
type FragmentKind string

const (
	FragmentDialectInfo     FragmentKind = "dialectInfo"
	FragmentTable           FragmentKind = "table"
	FragmentView            FragmentKind = "view"
	FragmentRelationship    FragmentKind = "relationship"
	FragmentBusinessContext FragmentKind = "businessContext"
)

// Cardinality classifies a relationship by the ratio of source to target
// row counts, when both are known.
type Cardinality string

const (
	CardinalityManyToOne  Cardinality = "many-to-one"
	CardinalityOneToOne   Cardinality = "one-to-one"
	CardinalityOneToMany  Cardinality = "one-to-many"
	CardinalityUnknown    Cardinality = ""
)

// ColumnFragment is the emitted view of a Column, with constraint-derived
// flags folded in so the emitter never duplicates PK/FK/single-column
// UNIQUE/NOT NULL/DEFAULT information as separate constraint fragments.
type ColumnFragment struct {
	Name      string
	Type      string
	PK        bool
	FK        string // "refTable.refCol", empty when not a foreign key
	Unique    bool
	NotNull   bool
	Default   string
	Indexed   bool
	Kind      ColumnKind
	Values    []string
	Stats     *ColumnStats
}

// IndexFragment is the emitted view of a TableIndex.
type IndexFragment struct {
	Name    string
	Columns []string
	Unique  bool
	Type    string
}

// ConstraintFragment is the emitted view of a multi-column UNIQUE or a CHECK
// constraint — the only constraint kinds not absorbed into column flags.
type ConstraintFragment struct {
	Name       string
	Type       ConstraintType
	Columns    []string
	Definition string
}

// TableFragment is the emitted view of a Table.
type TableFragment struct {
	Name        string
	Schema      string
	RowCount    *int64
	SizeHint    SizeHint
	Columns     []ColumnFragment
	Indexes     []IndexFragment     // nil when the table has no indexes
	Constraints []ConstraintFragment // nil when nothing survives column-flag absorption
}

// ViewFragment is the emitted view of a View.
type ViewFragment struct {
	Name       string
	Schema     string
	Definition string
	Columns    []ColumnFragment
}

// RelationshipEndpoint names one side of a RelationshipFragment.
type RelationshipEndpoint struct {
	Table   string
	Columns []string
}

// RelationshipFragment is the emitted view of a Relationship.
type RelationshipFragment struct {
	From        RelationshipEndpoint
	To          RelationshipEndpoint
	Cardinality Cardinality
}

// Fragment is one element of the stable, dialect-agnostic output sequence
// introspect() returns. Exactly one payload field is populated, selected by
// Kind.
type Fragment struct {
	Kind            FragmentKind
	DialectInfo     *DialectInfo
	Table           *TableFragment
	View            *ViewFragment
	Relationship    *RelationshipFragment
	BusinessContext string
}

// Emit projects ctx into the ordered fragment sequence described by the
// fragment-emitter contract. It is the only place Table/View/Relationship
// are translated into their emitted shapes.
func Emit(ctx *Context) []Fragment {
	var out []Fragment

	if ctx.Info != nil {
		out = append(out, Fragment{Kind: FragmentDialectInfo, DialectInfo: ctx.Info})
	}

	for _, t := range ctx.Tables {
		out = append(out, Fragment{Kind: FragmentTable, Table: emitTable(t)})
	}

	for _, v := range ctx.Views {
		out = append(out, Fragment{Kind: FragmentView, View: emitView(v)})
	}

	for _, r := range ctx.Relationships {
		out = append(out, Fragment{Kind: FragmentRelationship, Relationship: emitRelationship(ctx, r)})
	}

	if ctx.Report != "" {
		out = append(out, Fragment{Kind: FragmentBusinessContext, BusinessContext: ctx.Report})
	}

	return out
}

func emitTable(t Table) *TableFragment {
	pk := map[string]bool{}
	fk := map[string]string{}
	unique := map[string]bool{}
	notNull := map[string]bool{}
	defaults := map[string]string{}
	var extraConstraints []ConstraintFragment

	for _, c := range t.Constraints {
		switch c.Type {
		case ConstraintPrimaryKey:
			for _, col := range c.Columns {
				pk[col] = true
			}
		case ConstraintForeignKey:
			if len(c.Columns) == 1 && len(c.ReferencedColumns) == 1 {
				fk[c.Columns[0]] = fmt.Sprintf("%s.%s", c.ReferencedTable, c.ReferencedColumns[0])
			}
		case ConstraintUnique:
			if len(c.Columns) == 1 {
				unique[c.Columns[0]] = true
			} else {
				extraConstraints = append(extraConstraints, ConstraintFragment{
					Name: c.Name, Type: c.Type, Columns: c.Columns,
				})
			}
		case ConstraintCheck:
			extraConstraints = append(extraConstraints, ConstraintFragment{
				Name: c.Name, Type: c.Type, Columns: c.Columns, Definition: c.Definition,
			})
		case ConstraintNotNull:
			for _, col := range c.Columns {
				notNull[col] = true
			}
		case ConstraintDefault:
			if len(c.Columns) == 1 {
				defaults[c.Columns[0]] = c.DefaultValue
			}
		}
	}

	cols := make([]ColumnFragment, 0, len(t.Columns))
	for _, c := range t.Columns {
		isPK := pk[c.Name]
		cols = append(cols, ColumnFragment{
			Name:    c.Name,
			Type:    c.Type,
			PK:      isPK,
			FK:      fk[c.Name],
			Unique:  unique[c.Name],
			NotNull: notNull[c.Name] && !isPK,
			Default: defaults[c.Name],
			Indexed: c.IsIndexed,
			Kind:    c.Kind,
			Values:  c.Values,
			Stats:   c.Stats,
		})
	}

	var idx []IndexFragment
	for _, i := range t.Indexes {
		idx = append(idx, IndexFragment{Name: i.Name, Columns: i.Columns, Unique: i.Unique, Type: i.Type})
	}

	return &TableFragment{
		Name:        t.Name,
		Schema:      t.Schema,
		RowCount:    t.RowCount,
		SizeHint:    t.SizeHint,
		Columns:     cols,
		Indexes:     idx,
		Constraints: extraConstraints,
	}
}

func emitView(v View) *ViewFragment {
	cols := make([]ColumnFragment, 0, len(v.Columns))
	for _, c := range v.Columns {
		cols = append(cols, ColumnFragment{
			Name: c.Name, Type: c.Type, Kind: c.Kind, Values: c.Values, Stats: c.Stats,
		})
	}
	return &ViewFragment{Name: v.Name, Schema: v.Schema, Definition: v.Definition, Columns: cols}
}

func emitRelationship(ctx *Context, r Relationship) *RelationshipFragment {
	frag := &RelationshipFragment{
		From: RelationshipEndpoint{Table: r.Table, Columns: r.From},
		To:   RelationshipEndpoint{Table: r.ReferencedTable, Columns: r.To},
	}

	frag.Cardinality = CardinalityUnknown
	src, srcOK := ctx.tableRowCount(r.Table)
	tgt, tgtOK := ctx.tableRowCount(r.ReferencedTable)
	if srcOK && tgtOK && tgt > 0 {
		ratio := float64(src) / float64(tgt)
		switch {
		case ratio > 5:
			frag.Cardinality = CardinalityManyToOne
		case ratio >= 0.8 && ratio < 1.2:
			frag.Cardinality = CardinalityOneToOne
		case ratio < 0.2:
			frag.Cardinality = CardinalityOneToMany
		}
	}
	return frag
}

// relationshipKey is the dedup key from §4.4.2: table|sorted(from)|referenced_table|sorted(to).
func relationshipKey(r Relationship) string {
	from := append([]string(nil), r.From...)
	to := append([]string(nil), r.To...)
	sort.Strings(from)
	sort.Strings(to)
	return fmt.Sprintf("%s|%v|%s|%v", r.Table, from, r.ReferencedTable, to)
}
