package phase

import (
	"context"
	"reflect"
	"testing"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

func TestParseCheckValuesInClause(t *testing.T) {
	vals, ok := parseCheckValues(`status IN ('pending', 'active', 'done')`, "status")
	if !ok {
		t.Fatal("expected IN-clause shape to match")
	}
	want := []string{"pending", "active", "done"}
	if !reflect.DeepEqual(vals, want) {
		t.Fatalf("got %v, want %v", vals, want)
	}
}

func TestParseCheckValuesInClauseWithCast(t *testing.T) {
	vals, ok := parseCheckValues(`(status::text) IN ('a', 'b')`, "status")
	if !ok || !reflect.DeepEqual(vals, []string{"a", "b"}) {
		t.Fatalf("got %v, %v", vals, ok)
	}
}

func TestParseCheckValuesAnyArray(t *testing.T) {
	vals, ok := parseCheckValues(`status = ANY (ARRAY['a'::text, 'b'::text, 'c'::text])`, "status")
	if !ok {
		t.Fatal("expected ANY(ARRAY[...]) shape to match")
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(vals, want) {
		t.Fatalf("got %v, want %v", vals, want)
	}
}

func TestParseCheckValuesDisjoinedEquality(t *testing.T) {
	vals, ok := parseCheckValues(`status = 'a' OR status = 'b' OR status = 'c'`, "status")
	if !ok {
		t.Fatal("expected disjoined-equality shape to match")
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(vals, want) {
		t.Fatalf("got %v, want %v", vals, want)
	}
}

func TestParseCheckValuesSingleEqualityDoesNotMatch(t *testing.T) {
	// A single "col = 'x'" clause isn't a closed value set — it's an
	// arbitrary predicate, so this must not be mistaken for an enum.
	if _, ok := parseCheckValues(`status = 'a'`, "status"); ok {
		t.Fatal("expected a single equality clause not to be treated as a value set")
	}
}

func TestParseCheckValuesUnescapesDoubledQuotes(t *testing.T) {
	vals, ok := parseCheckValues(`status IN ('can''t', 'won''t')`, "status")
	if !ok {
		t.Fatal("expected IN-clause shape to match")
	}
	want := []string{"can't", "won't"}
	if !reflect.DeepEqual(vals, want) {
		t.Fatalf("got %v, want %v", vals, want)
	}
}

// fakeValuesAdapter is a minimal Adapter + ColumnValuesHooks double.
type fakeValuesAdapter struct {
	enumValues    map[string][]string // keyed by column name
	distinctVals  map[string][]string
	distinctWithin map[string]bool
	enumCalls     int
	distinctCalls int
}

func (a *fakeValuesAdapter) Dialect() grounding.Dialect                 { return grounding.DialectPostgres }
func (a *fakeValuesAdapter) DefaultSchema() string                      { return "public" }
func (a *fakeValuesAdapter) SystemSchemas() []string                    { return nil }
func (a *fakeValuesAdapter) Executor() grounding.Executor                { return nil }
func (a *fakeValuesAdapter) QuoteIdentifier(name string) string          { return name }
func (a *fakeValuesAdapter) EscapeString(value string) string            { return value }
func (a *fakeValuesAdapter) ParseTableName(name string) (string, string) { return "public", name }
func (a *fakeValuesAdapter) BuildSampleRowsQuery(table string, columns []string, limit int) string {
	return ""
}
func (a *fakeValuesAdapter) GroundingFactories() []grounding.GroundingFactory { return nil }
func (a *fakeValuesAdapter) Validate(ctx context.Context, sql string) string  { return "" }

func (a *fakeValuesAdapter) NativeEnumValues(ctx context.Context, qualifiedName, column, columnType string) ([]string, bool, error) {
	a.enumCalls++
	vals, ok := a.enumValues[column]
	return vals, ok, nil
}

func (a *fakeValuesAdapter) DistinctValues(ctx context.Context, qualifiedName, column string, limit int) ([]string, bool, error) {
	a.distinctCalls++
	return a.distinctVals[column], a.distinctWithin[column], nil
}

func TestColumnValuesNativeEnumBeatsCheckAndScan(t *testing.T) {
	a := &fakeValuesAdapter{
		enumValues:     map[string][]string{"status": {"x", "y"}},
		distinctVals:   map[string][]string{"status": {"should", "not", "be", "used"}},
		distinctWithin: map[string]bool{"status": true},
	}
	gctx := grounding.NewContext()
	gctx.AddTable(grounding.Table{
		Name: "orders",
		Columns: []grounding.Column{
			{Name: "status", Type: "status_enum"},
		},
		Constraints: []grounding.TableConstraint{
			{Type: grounding.ConstraintCheck, Columns: []string{"status"}, Definition: `status IN ('a', 'b')`},
		},
	})

	factory := NewColumnValues(ColumnValuesConfig{LowCardinalityLimit: 20, Concurrency: 2})
	g := factory(a)
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tbl, _ := gctx.Table("orders")
	col := tbl.Columns[0]
	if col.Kind != grounding.ColumnKindEnum {
		t.Fatalf("kind = %q, want enum", col.Kind)
	}
	if !reflect.DeepEqual(col.Values, []string{"x", "y"}) {
		t.Fatalf("values = %v, want native enum values", col.Values)
	}
	if a.distinctCalls != 0 {
		t.Fatalf("expected DistinctValues never called when native enum resolves, got %d calls", a.distinctCalls)
	}
}

func TestColumnValuesCheckBeatsScan(t *testing.T) {
	a := &fakeValuesAdapter{
		distinctVals:   map[string][]string{"status": {"should", "not", "be", "used"}},
		distinctWithin: map[string]bool{"status": true},
	}
	gctx := grounding.NewContext()
	gctx.AddTable(grounding.Table{
		Name: "orders",
		Columns: []grounding.Column{
			{Name: "status", Type: "text"},
		},
		Constraints: []grounding.TableConstraint{
			{Type: grounding.ConstraintCheck, Columns: []string{"status"}, Definition: `status IN ('pending', 'done')`},
		},
	})

	factory := NewColumnValues(ColumnValuesConfig{LowCardinalityLimit: 20, Concurrency: 2})
	g := factory(a)
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tbl, _ := gctx.Table("orders")
	col := tbl.Columns[0]
	if col.Kind != grounding.ColumnKindEnum || !reflect.DeepEqual(col.Values, []string{"pending", "done"}) {
		t.Fatalf("got kind=%q values=%v, want CHECK-derived enum", col.Kind, col.Values)
	}
	if a.distinctCalls != 0 {
		t.Fatalf("expected DistinctValues never called when CHECK resolves, got %d calls", a.distinctCalls)
	}
}

func TestColumnValuesFallsBackToDistinctScan(t *testing.T) {
	a := &fakeValuesAdapter{
		distinctVals:   map[string][]string{"country": {"US", "CA"}},
		distinctWithin: map[string]bool{"country": true},
	}
	gctx := grounding.NewContext()
	gctx.AddTable(grounding.Table{
		Name:    "customers",
		Columns: []grounding.Column{{Name: "country", Type: "text"}},
	})

	factory := NewColumnValues(ColumnValuesConfig{LowCardinalityLimit: 20, Concurrency: 2})
	g := factory(a)
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tbl, _ := gctx.Table("customers")
	col := tbl.Columns[0]
	if col.Kind != grounding.ColumnKindLowCardinality {
		t.Fatalf("kind = %q, want low_cardinality", col.Kind)
	}
	if !reflect.DeepEqual(col.Values, []string{"US", "CA"}) {
		t.Fatalf("values = %v, want distinct scan result", col.Values)
	}
}

func TestColumnValuesScanOutOfBoundsLeavesColumnUnannotated(t *testing.T) {
	a := &fakeValuesAdapter{
		distinctWithin: map[string]bool{"email": false},
	}
	gctx := grounding.NewContext()
	gctx.AddTable(grounding.Table{
		Name:    "customers",
		Columns: []grounding.Column{{Name: "email", Type: "text"}},
	})

	factory := NewColumnValues(ColumnValuesConfig{LowCardinalityLimit: 20, Concurrency: 2})
	g := factory(a)
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tbl, _ := gctx.Table("customers")
	col := tbl.Columns[0]
	if col.Kind != grounding.ColumnKindNone || col.Values != nil {
		t.Fatalf("expected unannotated column when scan exceeds the limit, got kind=%q values=%v", col.Kind, col.Values)
	}
}

func TestColumnValuesDisabledWhenLowCardinalityLimitIsZero(t *testing.T) {
	a := &fakeValuesAdapter{
		distinctVals:   map[string][]string{"country": {"US"}},
		distinctWithin: map[string]bool{"country": true},
	}
	gctx := grounding.NewContext()
	gctx.AddTable(grounding.Table{
		Name:    "customers",
		Columns: []grounding.Column{{Name: "country", Type: "text"}},
	})

	factory := NewColumnValues(ColumnValuesConfig{LowCardinalityLimit: 0, Concurrency: 2})
	g := factory(a)
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if a.distinctCalls != 0 {
		t.Fatalf("expected DistinctValues never called when LowCardinalityLimit=0, got %d calls", a.distinctCalls)
	}
}
