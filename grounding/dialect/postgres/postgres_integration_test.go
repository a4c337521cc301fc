package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/postgres"
	"github.com/sqlgrounder/sqlgrounder/grounding/executorsql"
)

// TestPostgresIntrospectAgainstRealServer runs the full grounding pipeline
// against an actual PostgreSQL server, exercising catalog queries
// (information_schema, pg_catalog) that a fake Hooks double can't stand in
// for: forward traversal across a single foreign key, schema-qualified
// table names, and a CHECK constraint resolved into an enum value set.
func TestPostgresIntrospectAgainstRealServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("grounding"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("PingContext: %v", err)
	}

	ddl := []string{
		`CREATE TABLE customers (id SERIAL PRIMARY KEY, name TEXT NOT NULL, tier TEXT CHECK (tier IN ('free', 'pro', 'enterprise')))`,
		`CREATE TABLE orders (id SERIAL PRIMARY KEY, customer_id INTEGER NOT NULL REFERENCES customers(id), status TEXT NOT NULL)`,
		`INSERT INTO customers (name, tier) VALUES ('acme', 'pro'), ('globex', 'free')`,
		`INSERT INTO orders (customer_id, status) VALUES (1, 'paid'), (1, 'paid'), (2, 'pending')`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	ex, val := executorsql.NewPostgres(db)
	a, err := postgres.New(postgres.Options{
		Executor:            ex,
		Validator:           val,
		TableFilter:         grounding.NewListFilter("public.orders"),
		Forward:             grounding.BoundedDepth(1),
		LowCardinalityLimit: 20,
	})
	if err != nil {
		t.Fatalf("postgres.New: %v", err)
	}

	fragments, err := grounding.Introspect(ctx, a)
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}

	var sawOrders, sawCustomers, sawRelationship bool
	var tierKind grounding.ColumnKind
	for _, f := range fragments {
		switch f.Kind {
		case grounding.FragmentTable:
			switch f.Table.Name {
			case "public.orders":
				sawOrders = true
			case "public.customers":
				sawCustomers = true
				for _, col := range f.Table.Columns {
					if col.Name == "tier" {
						tierKind = col.Kind
					}
				}
			}
		case grounding.FragmentRelationship:
			if f.Relationship.Table == "public.orders" && f.Relationship.ReferencedTable == "public.customers" {
				sawRelationship = true
			}
		}
	}

	if !sawOrders || !sawCustomers {
		t.Fatalf("expected both orders and customers to be introspected, got orders=%v customers=%v", sawOrders, sawCustomers)
	}
	if !sawRelationship {
		t.Error("expected orders->customers relationship to be discovered via forward FK traversal")
	}
	if tierKind != grounding.ColumnKindEnum {
		t.Errorf("tier.Kind = %q, want enum (resolved from the CHECK constraint)", tierKind)
	}
}
