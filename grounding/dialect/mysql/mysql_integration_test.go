package mysql_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/mysql"
	"github.com/sqlgrounder/sqlgrounder/grounding/executorsql"
)

// TestMySQLIntrospectAgainstRealServer exercises the information_schema
// catalog queries and native ENUM() parsing that a fake Hooks double
// can't faithfully stand in for.
func TestMySQLIntrospectAgainstRealServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("grounding"),
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("testpass"),
	)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		t.Fatalf("ConnectionString: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("PingContext: %v", err)
	}

	ddl := []string{
		`CREATE TABLE customers (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(255) NOT NULL, tier ENUM('free', 'pro', 'enterprise') NOT NULL)`,
		`CREATE TABLE orders (id INT AUTO_INCREMENT PRIMARY KEY, customer_id INT NOT NULL, status VARCHAR(32) NOT NULL, FOREIGN KEY (customer_id) REFERENCES customers(id))`,
		`INSERT INTO customers (name, tier) VALUES ('acme', 'pro'), ('globex', 'free')`,
		`INSERT INTO orders (customer_id, status) VALUES (1, 'paid'), (1, 'paid'), (2, 'pending')`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	ex, val := executorsql.NewMySQL(db)
	a, err := mysql.New(mysql.Options{
		Executor:            ex,
		Validator:           val,
		Databases:           []string{"grounding"},
		TableFilter:         grounding.NewListFilter("grounding.orders"),
		Forward:             grounding.BoundedDepth(1),
		LowCardinalityLimit: 20,
	})
	if err != nil {
		t.Fatalf("mysql.New: %v", err)
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
			case "grounding.orders":
				sawOrders = true
			case "grounding.customers":
				sawCustomers = true
				for _, col := range f.Table.Columns {
					if col.Name == "tier" {
						tierKind = col.Kind
					}
				}
			}
		case grounding.FragmentRelationship:
			if f.Relationship.Table == "grounding.orders" && f.Relationship.ReferencedTable == "grounding.customers" {
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
		t.Errorf("tier.Kind = %q, want enum (resolved from the native ENUM() type)", tierKind)
	}
}
