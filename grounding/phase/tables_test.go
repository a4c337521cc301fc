package phase

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// fakeAdapter is a minimal grounding.Adapter + TableHooks double driven by
// an in-memory table/edge graph, so the tests in this file can exercise the
// BFS core without a real database connection.
type fakeAdapter struct {
	tables map[string]grounding.Table
	// outgoing[table] is the set of FKs table declares.
	outgoing map[string][]grounding.Relationship
	// incoming[table] is the set of FKs that reference table.
	incoming map[string][]grounding.Relationship
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		tables:   map[string]grounding.Table{},
		outgoing: map[string][]grounding.Relationship{},
		incoming: map[string][]grounding.Relationship{},
	}
}

func (a *fakeAdapter) addTable(name string) {
	a.tables[name] = grounding.Table{Name: name}
}

// addFK records a -> b (a.from references b.to) and its reverse index.
func (a *fakeAdapter) addFK(from, fromCol, to, toCol string) {
	r := grounding.Relationship{Table: from, From: []string{fromCol}, ReferencedTable: to, To: []string{toCol}}
	a.outgoing[from] = append(a.outgoing[from], r)
	a.incoming[to] = append(a.incoming[to], r)
}

func (a *fakeAdapter) Dialect() grounding.Dialect                 { return grounding.DialectPostgres }
func (a *fakeAdapter) DefaultSchema() string                      { return "public" }
func (a *fakeAdapter) SystemSchemas() []string                    { return nil }
func (a *fakeAdapter) Executor() grounding.Executor                { return nil }
func (a *fakeAdapter) QuoteIdentifier(name string) string          { return name }
func (a *fakeAdapter) EscapeString(value string) string            { return value }
func (a *fakeAdapter) ParseTableName(name string) (string, string) { return "public", name }
func (a *fakeAdapter) BuildSampleRowsQuery(table string, columns []string, limit int) string {
	return ""
}
func (a *fakeAdapter) GroundingFactories() []grounding.GroundingFactory { return nil }
func (a *fakeAdapter) Validate(ctx context.Context, sql string) string  { return "" }

func (a *fakeAdapter) AllTableNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(a.tables))
	for n := range a.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (a *fakeAdapter) GetTable(ctx context.Context, name string) (grounding.Table, error) {
	return a.tables[name], nil
}

func (a *fakeAdapter) OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	return a.outgoing[name], nil
}

func (a *fakeAdapter) IncomingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	return a.incoming[name], nil
}

func tableNames(gctx *grounding.Context) []string {
	names := make([]string, len(gctx.Tables))
	for i, t := range gctx.Tables {
		names[i] = t.Name
	}
	sort.Strings(names)
	return names
}

func TestTablesBFSForwardChain(t *testing.T) {
	a := newFakeAdapter()
	a.addTable("orders")
	a.addTable("customers")
	a.addTable("regions")
	a.addFK("orders", "customer_id", "customers", "id")
	a.addFK("customers", "region_id", "regions", "id")

	factory := NewTables(TablesConfig{
		Filter:  grounding.NewListFilter("orders"),
		Forward: grounding.BoundedDepth(2),
	})
	g := factory(a)
	gctx := grounding.NewContext()
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := tableNames(gctx)
	want := []string{"customers", "orders", "regions"}
	if len(got) != len(want) {
		t.Fatalf("tables = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tables = %v, want %v", got, want)
		}
	}
	if len(gctx.Relationships) != 2 {
		t.Fatalf("relationships = %d, want 2", len(gctx.Relationships))
	}
}

func TestTablesBFSForwardDepthBound(t *testing.T) {
	a := newFakeAdapter()
	a.addTable("orders")
	a.addTable("customers")
	a.addTable("regions")
	a.addFK("orders", "customer_id", "customers", "id")
	a.addFK("customers", "region_id", "regions", "id")

	factory := NewTables(TablesConfig{
		Filter:  grounding.NewListFilter("orders"),
		Forward: grounding.BoundedDepth(1),
	})
	g := factory(a)
	gctx := grounding.NewContext()
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := tableNames(gctx)
	want := []string{"customers", "orders"}
	if len(got) != len(want) {
		t.Fatalf("tables = %v, want %v (regions should be excluded at depth 1)", got, want)
	}
}

func TestTablesBFSCompositeForeignKey(t *testing.T) {
	a := newFakeAdapter()
	a.addTable("shipments")
	a.addTable("order_items")
	r := grounding.Relationship{
		Table: "shipments", From: []string{"order_id", "item_id"},
		ReferencedTable: "order_items", To: []string{"order_id", "item_id"},
	}
	a.outgoing["shipments"] = []grounding.Relationship{r}
	a.incoming["order_items"] = []grounding.Relationship{r}

	factory := NewTables(TablesConfig{
		Filter:  grounding.NewListFilter("shipments"),
		Forward: grounding.BoundedDepth(1),
	})
	g := factory(a)
	gctx := grounding.NewContext()
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(gctx.Relationships) != 1 || len(gctx.Relationships[0].From) != 2 {
		t.Fatalf("expected one composite relationship with 2 columns, got %+v", gctx.Relationships)
	}
	if !gctx.HasTable("order_items") {
		t.Fatal("expected order_items to be discovered via the composite FK")
	}
}

func TestTablesBFSSelfReferencingForeignKey(t *testing.T) {
	a := newFakeAdapter()
	a.addTable("employees")
	a.addFK("employees", "manager_id", "employees", "id")

	factory := NewTables(TablesConfig{
		Filter:  grounding.NewListFilter("employees"),
		Forward: grounding.BoundedDepth(3),
	})
	g := factory(a)
	gctx := grounding.NewContext()
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(gctx.Tables) != 1 {
		t.Fatalf("expected exactly one table (self-FK must not duplicate), got %v", tableNames(gctx))
	}
	if len(gctx.Relationships) != 1 {
		t.Fatalf("expected exactly one relationship, got %d", len(gctx.Relationships))
	}
}

func TestTablesBFSCycleTerminates(t *testing.T) {
	a := newFakeAdapter()
	a.addTable("a")
	a.addTable("b")
	a.addTable("c")
	a.addFK("a", "b_id", "b", "id")
	a.addFK("b", "c_id", "c", "id")
	a.addFK("c", "a_id", "a", "id")

	factory := NewTables(TablesConfig{
		Filter:  grounding.NewListFilter("a"),
		Forward: grounding.UnboundedDepth(),
	})
	g := factory(a)
	gctx := grounding.NewContext()

	done := make(chan error, 1)
	go func() {
		done <- g.Run(context.Background(), gctx, a)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("BFS did not terminate on a relationship cycle")
	}

	if len(tableNames(gctx)) != 3 {
		t.Fatalf("expected all 3 tables visited exactly once, got %v", tableNames(gctx))
	}
	if len(gctx.Relationships) != 3 {
		t.Fatalf("expected exactly 3 relationships, got %d", len(gctx.Relationships))
	}
}

func TestTablesBackwardTraversal(t *testing.T) {
	a := newFakeAdapter()
	a.addTable("customers")
	a.addTable("orders")
	a.addFK("orders", "customer_id", "customers", "id")

	factory := NewTables(TablesConfig{
		Filter:   grounding.NewListFilter("customers"),
		Backward: grounding.BoundedDepth(1),
	})
	g := factory(a)
	gctx := grounding.NewContext()
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !gctx.HasTable("orders") {
		t.Fatal("expected orders to be discovered via backward traversal from customers")
	}
}

func TestTablesSkipEnumerationWithListFilter(t *testing.T) {
	a := newFakeAdapter()
	a.addTable("orders")
	a.addTable("unrelated")

	factory := NewTables(TablesConfig{Filter: grounding.NewListFilter("orders")})
	g := factory(a)
	gctx := grounding.NewContext()
	if err := g.Run(context.Background(), gctx, a); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if gctx.HasTable("unrelated") {
		t.Fatal("expected only the explicitly-listed table to be seeded")
	}
}
