package grounding

import (
	"reflect"
	"testing"
)

func TestClassifySizeThresholds(t *testing.T) {
	cases := []struct {
		rowCount int64
		want     SizeHint
	}{
		{0, SizeTiny},
		{99, SizeTiny},
		{100, SizeSmall},
		{999, SizeSmall},
		{1_000, SizeMedium},
		{9_999, SizeMedium},
		{10_000, SizeLarge},
		{99_999, SizeLarge},
		{100_000, SizeHuge},
		{5_000_000, SizeHuge},
	}
	for _, c := range cases {
		if got := ClassifySize(c.rowCount); got != c.want {
			t.Errorf("ClassifySize(%d) = %q, want %q", c.rowCount, got, c.want)
		}
	}
}

func rowCountPtr(n int64) *int64 { return &n }

func TestEmitRelationshipCardinalityInference(t *testing.T) {
	cases := []struct {
		name       string
		srcRows    int64
		tgtRows    int64
		want       Cardinality
	}{
		{"many orders per customer", 1000, 100, CardinalityManyToOne},
		{"roughly equal counts", 100, 95, CardinalityOneToOne},
		{"few rows referencing many", 10, 100, CardinalityOneToMany},
		{"ambiguous ratio", 100, 60, CardinalityUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := NewContext()
			ctx.AddTable(Table{Name: "child", RowCount: rowCountPtr(c.srcRows)})
			ctx.AddTable(Table{Name: "parent", RowCount: rowCountPtr(c.tgtRows)})
			ctx.AddRelationship(Relationship{Table: "child", From: []string{"parent_id"}, ReferencedTable: "parent", To: []string{"id"}})

			frags := Emit(ctx)
			var rel *RelationshipFragment
			for _, f := range frags {
				if f.Kind == FragmentRelationship {
					rel = f.Relationship
				}
			}
			if rel == nil {
				t.Fatal("expected a relationship fragment")
			}
			if rel.Cardinality != c.want {
				t.Errorf("cardinality = %q, want %q", rel.Cardinality, c.want)
			}
		})
	}
}

func TestEmitRelationshipUnknownWithoutRowCounts(t *testing.T) {
	ctx := NewContext()
	ctx.AddTable(Table{Name: "child"})
	ctx.AddTable(Table{Name: "parent"})
	ctx.AddRelationship(Relationship{Table: "child", From: []string{"parent_id"}, ReferencedTable: "parent", To: []string{"id"}})

	frags := Emit(ctx)
	for _, f := range frags {
		if f.Kind == FragmentRelationship && f.Relationship.Cardinality != CardinalityUnknown {
			t.Errorf("cardinality = %q, want unknown when row counts are absent", f.Relationship.Cardinality)
		}
	}
}

func TestEmitTableColumnFlagAbsorption(t *testing.T) {
	tbl := Table{
		Name: "orders",
		Columns: []Column{
			{Name: "id", Type: "int"},
			{Name: "customer_id", Type: "int"},
			{Name: "sku", Type: "text"},
			{Name: "email", Type: "text"},
		},
		Constraints: []TableConstraint{
			{Type: ConstraintPrimaryKey, Columns: []string{"id"}},
			{Type: ConstraintForeignKey, Columns: []string{"customer_id"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"}},
			{Type: ConstraintUnique, Columns: []string{"email"}},
			{Type: ConstraintNotNull, Columns: []string{"id", "sku"}},
			{Name: "sku_format", Type: ConstraintCheck, Columns: []string{"sku"}, Definition: "sku ~ '^[A-Z]'"},
			{Name: "uniq_sku_customer", Type: ConstraintUnique, Columns: []string{"customer_id", "sku"}},
		},
	}

	frag := emitTable(tbl)

	byName := map[string]ColumnFragment{}
	for _, c := range frag.Columns {
		byName[c.Name] = c
	}

	if !byName["id"].PK {
		t.Error("expected id to be flagged PK")
	}
	// PK implies NOT NULL; the redundant NOT_NULL constraint on id must not
	// surface as a separate flag fighting the PK's own implication.
	if byName["id"].NotNull {
		t.Error("expected PK column's NotNull flag suppressed (PK always wins)")
	}
	if byName["customer_id"].FK != "customers.id" {
		t.Errorf("FK = %q, want customers.id", byName["customer_id"].FK)
	}
	if !byName["email"].Unique {
		t.Error("expected email to be flagged Unique (single-column UNIQUE)")
	}
	if !byName["sku"].NotNull {
		t.Error("expected sku to be flagged NotNull (non-PK column)")
	}

	// Composite UNIQUE and CHECK constraints are not absorbed into column
	// flags — they must survive as separate constraint fragments.
	if len(frag.Constraints) != 2 {
		t.Fatalf("extra constraints = %d, want 2 (CHECK + composite UNIQUE), got %+v", len(frag.Constraints), frag.Constraints)
	}
}

func TestRelationshipKeyDedup(t *testing.T) {
	a := Relationship{Table: "t", From: []string{"b", "a"}, ReferencedTable: "u", To: []string{"y", "x"}}
	b := Relationship{Table: "t", From: []string{"a", "b"}, ReferencedTable: "u", To: []string{"x", "y"}}
	if relationshipKey(a) != relationshipKey(b) {
		t.Errorf("expected column-order-independent keys to match: %q vs %q", relationshipKey(a), relationshipKey(b))
	}
}

func TestContextAddRelationshipDedup(t *testing.T) {
	ctx := NewContext()
	r := Relationship{Table: "orders", From: []string{"customer_id"}, ReferencedTable: "customers", To: []string{"id"}}
	if added := ctx.AddRelationship(r); !added {
		t.Fatal("expected first AddRelationship to report added=true")
	}
	if added := ctx.AddRelationship(r); added {
		t.Fatal("expected duplicate AddRelationship to report added=false")
	}
	if len(ctx.Relationships) != 1 {
		t.Fatalf("Relationships = %d, want 1 after a duplicate add", len(ctx.Relationships))
	}
}

func TestEmitOrderMatchesFragmentKindSequence(t *testing.T) {
	ctx := NewContext()
	ctx.Info = &DialectInfo{Dialect: "postgresql"}
	ctx.AddTable(Table{Name: "orders"})
	ctx.AddView(View{Name: "order_summary"})
	ctx.AddRelationship(Relationship{Table: "x", From: []string{"a"}, ReferencedTable: "y", To: []string{"b"}})
	ctx.Report = "orders drive revenue"

	frags := Emit(ctx)
	kinds := make([]FragmentKind, len(frags))
	for i, f := range frags {
		kinds[i] = f.Kind
	}
	want := []FragmentKind{FragmentDialectInfo, FragmentTable, FragmentView, FragmentRelationship, FragmentBusinessContext}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("fragment kind order = %v, want %v", kinds, want)
	}
}
