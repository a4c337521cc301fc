package grounding

import "testing"

func TestContextAddTableIsIdempotent(t *testing.T) {
	ctx := NewContext()
	ctx.AddTable(Table{Name: "orders", Schema: "public"})
	ctx.AddTable(Table{Name: "orders", Schema: "should-not-replace"})

	tbl, ok := ctx.Table("orders")
	if !ok {
		t.Fatal("expected orders to be recorded")
	}
	if tbl.Schema != "public" {
		t.Errorf("Schema = %q, want the first-added value to win", tbl.Schema)
	}
	if len(ctx.Tables) != 1 {
		t.Fatalf("Tables = %d, want 1 (no duplicate entries)", len(ctx.Tables))
	}
}

func TestContextMutateTableNoopWhenAbsent(t *testing.T) {
	ctx := NewContext()
	called := false
	ctx.MutateTable("missing", func(tbl *Table) { called = true })
	if called {
		t.Error("expected MutateTable to be a no-op for a table that was never added")
	}
}

func TestContextMutateTableAnnotatesInPlace(t *testing.T) {
	ctx := NewContext()
	ctx.AddTable(Table{Name: "orders"})
	ctx.MutateTable("orders", func(tbl *Table) {
		n := int64(42)
		tbl.RowCount = &n
	})
	tbl, _ := ctx.Table("orders")
	if tbl.RowCount == nil || *tbl.RowCount != 42 {
		t.Fatalf("expected RowCount=42, got %v", tbl.RowCount)
	}
}

func TestAsCatalogProjectsColumnsAndPrimaryKeys(t *testing.T) {
	ctx := NewContext()
	ctx.AddTable(Table{
		Name:    "orders",
		Columns: []Column{{Name: "id"}, {Name: "customer_id"}},
		Constraints: []TableConstraint{
			{Type: ConstraintPrimaryKey, Columns: []string{"id"}},
		},
	})

	cat := ctx.AsCatalog()
	cols, ok := cat.Columns("orders")
	if !ok || len(cols) != 2 {
		t.Fatalf("Columns = %v, ok=%v, want 2 columns", cols, ok)
	}
	pk, ok := cat.PrimaryKeys("orders")
	if !ok || len(pk) != 1 || pk[0] != "id" {
		t.Fatalf("PrimaryKeys = %v, ok=%v, want [id]", pk, ok)
	}
	if _, ok := cat.Columns("missing"); ok {
		t.Error("expected Columns to report ok=false for an unknown table")
	}
}

func TestChecksumStableAcrossInsertionOrder(t *testing.T) {
	a := NewContext()
	a.AddTable(Table{Name: "orders"})
	a.AddTable(Table{Name: "customers"})
	a.AddRelationship(Relationship{Table: "orders", From: []string{"customer_id"}, ReferencedTable: "customers", To: []string{"id"}})

	b := NewContext()
	b.AddTable(Table{Name: "customers"})
	b.AddTable(Table{Name: "orders"})
	b.AddRelationship(Relationship{Table: "orders", From: []string{"customer_id"}, ReferencedTable: "customers", To: []string{"id"}})

	if a.Checksum() != b.Checksum() {
		t.Error("expected Checksum to be independent of table-insertion order")
	}
}

func TestChecksumChangesWithContent(t *testing.T) {
	a := NewContext()
	a.AddTable(Table{Name: "orders"})

	b := NewContext()
	b.AddTable(Table{Name: "orders"})
	b.AddTable(Table{Name: "customers"})

	if a.Checksum() == b.Checksum() {
		t.Error("expected Checksum to differ once a table is added")
	}
}

func TestChecksumNonEmpty(t *testing.T) {
	ctx := NewContext()
	if sum := ctx.Checksum(); sum == "" {
		t.Error("expected a non-empty checksum even for an empty context")
	}
}
