package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/sqlite"
	"github.com/sqlgrounder/sqlgrounder/grounding/executorsql"
)

// openSchema builds an in-memory SQLite database, and applies ddl against
// it, for an adapter test run over a real query engine instead of a
// dialect-agnostic fake.
func openSchema(t *testing.T, ddl ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func TestSQLiteIntrospectChainOfForeignKeys(t *testing.T) {
	db := openSchema(t,
		`CREATE TABLE regions (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, region_id INTEGER REFERENCES regions(id), name TEXT)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id), status TEXT CHECK(status IN ('pending', 'shipped', 'done')))`,
		`INSERT INTO regions (id, name) VALUES (1, 'west')`,
		`INSERT INTO customers (id, region_id, name) VALUES (1, 1, 'acme')`,
		`INSERT INTO orders (id, customer_id, status) VALUES (1, 1, 'pending'), (2, 1, 'done')`,
	)

	ex, val := executorsql.NewSQLite(db)
	a, err := sqlite.New(sqlite.Options{
		Executor:            ex,
		Validator:           val,
		TableFilter:         grounding.NewListFilter("orders"),
		Forward:             grounding.BoundedDepth(2),
		LowCardinalityLimit: 20,
	})
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}

	fragments, err := grounding.Introspect(context.Background(), a)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}

	tables := map[string]*grounding.TableFragment{}
	var relCount int
	for _, f := range fragments {
		switch f.Kind {
		case grounding.FragmentTable:
			tables[f.Table.Name] = f.Table
		case grounding.FragmentRelationship:
			relCount++
		}
	}

	for _, want := range []string{"orders", "customers", "regions"} {
		if _, ok := tables[want]; !ok {
			t.Errorf("expected %q to be discovered via forward FK traversal, got tables=%v", want, tables)
		}
	}
	if relCount != 2 {
		t.Errorf("relationships = %d, want 2 (orders->customers, customers->regions)", relCount)
	}

	orders := tables["orders"]
	var statusCol *grounding.ColumnFragment
	for i := range orders.Columns {
		if orders.Columns[i].Name == "status" {
			statusCol = &orders.Columns[i]
		}
	}
	if statusCol == nil {
		t.Fatal("expected a status column on orders")
	}
	// SQLite exposes no CHECK-constraint catalog, so this dialect can never
	// resolve values via CHECK parsing — it falls through to the bounded
	// DISTINCT scan instead, landing on low_cardinality rather than enum.
	if statusCol.Kind != grounding.ColumnKindLowCardinality {
		t.Errorf("status.Kind = %q, want low_cardinality (SQLite has no CHECK catalog)", statusCol.Kind)
	}
}

func TestSQLiteValidateRejectsBadSyntax(t *testing.T) {
	db := openSchema(t, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	ex, val := executorsql.NewSQLite(db)
	a, err := sqlite.New(sqlite.Options{Executor: ex, Validator: val})
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}

	if diag := a.Validate(context.Background(), "SELEKT * FROM t"); diag == "" {
		t.Error("expected Validate to report a diagnostic for invalid syntax")
	}
	if diag := a.Validate(context.Background(), "SELECT * FROM t"); diag != "" {
		t.Errorf("expected Validate to pass valid syntax, got %q", diag)
	}
}
