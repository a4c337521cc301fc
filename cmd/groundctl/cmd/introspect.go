package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	bqadapter "github.com/sqlgrounder/sqlgrounder/grounding/dialect/bigquery"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/mysql"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/postgres"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/sqlite"
	"github.com/sqlgrounder/sqlgrounder/grounding/dialect/sqlserver"
	"github.com/sqlgrounder/sqlgrounder/grounding/executorsql"
	"github.com/sqlgrounder/sqlgrounder/internal/config"
)

var introspectCmd = &cobra.Command{
	Use:   "introspect <dsn>",
	Short: "Run the grounding pipeline against a database and print its fragments",
	Long: `Introspect a database and print the grounding fragment sequence as JSON.

The connection can be specified via:
  1. The <dsn> argument (highest priority)
  2. --environment, or the "local" environment from grounding.toml`,
	Example: `  groundctl introspect postgresql://localhost:5432/myapp?sslmode=disable
  groundctl introspect --environment staging > fragments.json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runIntrospect,
}

var (
	introspectDialect      string
	introspectEnvironment  string
	introspectVerbose      bool
	introspectForwardDepth int
	introspectBackward     int
	introspectUnbounded    bool
	introspectLowCard      int
)

func init() {
	rootCmd.AddCommand(introspectCmd)

	introspectCmd.Flags().StringVar(&introspectDialect, "dialect", "", "postgresql, mysql, sqlserver, sqlite, or bigquery (defaults to the environment's configured dialect)")
	introspectCmd.Flags().StringVar(&introspectEnvironment, "environment", "", "named environment from grounding.toml (default: local)")
	introspectCmd.Flags().BoolVarP(&introspectVerbose, "verbose", "v", false, "log each phase as it runs")
	introspectCmd.Flags().IntVar(&introspectForwardDepth, "forward-depth", 2, "forward relationship traversal depth")
	introspectCmd.Flags().IntVar(&introspectBackward, "backward-depth", 1, "backward relationship traversal depth")
	introspectCmd.Flags().BoolVar(&introspectUnbounded, "unbounded", false, "traverse relationships with no depth cap")
	introspectCmd.Flags().IntVar(&introspectLowCard, "low-cardinality-limit", 20, "distinct-value threshold below which column-values samples a full value list")
	introspectCmd.Flags().BoolVar(&introspectProgress, "progress", false, "show a live per-phase progress view instead of plain log lines")
}

var introspectProgress bool

func runIntrospect(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load grounding.toml: %v", err)
	}

	envName := strings.TrimSpace(introspectEnvironment)
	if envName == "" {
		envName = "local"
	}
	env := cfg.Environments[envName]

	if len(args) == 1 {
		applyDSN(&env, args[0])
	}
	if introspectDialect != "" {
		env.Dialect = introspectDialect
	}
	if env.Dialect == "" {
		log.Fatalf("no dialect configured: pass a DSN, --dialect, or set dialect in grounding.toml's %q environment", envName)
	}

	if introspectVerbose {
		logPhase("resolved environment %q, dialect %s", envName, env.Dialect)
	}

	forward := grounding.BoundedDepth(introspectForwardDepth)
	backward := grounding.BoundedDepth(introspectBackward)
	if introspectUnbounded {
		forward = grounding.UnboundedDepth()
		backward = grounding.UnboundedDepth()
	}

	ctx := context.Background()
	adapter, closer, err := buildAdapter(ctx, env, forward, backward)
	if err != nil {
		log.Fatalf("failed to build %s adapter: %v", env.Dialect, err)
	}
	defer closer()

	var fragments []grounding.Fragment
	if introspectProgress {
		fragments, err = runIntrospectWithProgress(ctx, adapter)
	} else {
		if introspectVerbose {
			logPhase("running grounding pipeline")
		}
		fragments, err = grounding.Introspect(ctx, adapter)
	}
	if err != nil {
		log.Fatalf("introspection failed: %v", err)
	}

	if introspectVerbose {
		logDone("emitted %d fragments", len(fragments))
	}

	out, err := json.MarshalIndent(fragments, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal fragments: %v", err)
	}
	fmt.Println(string(out))
}

// applyDSN fills the connection field a dsn argument targets, inferring the
// dialect from its URL scheme or file suffix.
func applyDSN(env *config.EnvironmentConfig, dsn string) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		env.Dialect = "postgresql"
		env.PostgresURL = dsn
	case strings.HasPrefix(lower, "mysql://"):
		env.Dialect = "mysql"
		env.MySQLDSN = strings.TrimPrefix(dsn, "mysql://")
	case strings.HasPrefix(lower, "sqlserver://"):
		env.Dialect = "sqlserver"
		env.SQLServerDSN = dsn
	case strings.HasPrefix(lower, "libsql://"):
		env.Dialect = "sqlite"
		env.LibSQLURL = dsn
	case strings.HasPrefix(lower, "bigquery://"):
		env.Dialect = "bigquery"
		env.ProjectID = strings.TrimPrefix(dsn, "bigquery://")
	default:
		env.Dialect = "sqlite"
		env.SQLitePath = dsn
	}
}

func logPhase(format string, args ...any) {
	_, _ = color.New(color.FgCyan).Fprintf(os.Stderr, "  "+format+"\n", args...)
}

func logDone(format string, args ...any) {
	_, _ = color.New(color.FgGreen).Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

// buildAdapter opens the dialect-appropriate connection and wraps it in the
// matching grounding.Adapter. closer must be called once introspection
// finishes.
func buildAdapter(ctx context.Context, env config.EnvironmentConfig, forward, backward grounding.Depth) (grounding.Adapter, func(), error) {
	noop := func() {}

	switch env.Dialect {
	case "postgresql", "postgres":
		db, err := sql.Open("postgres", env.PostgresURL)
		if err != nil {
			return nil, noop, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		ex, val := executorsql.NewPostgres(db)
		a, err := postgres.New(postgres.Options{
			Executor: ex, Validator: val, Schemas: env.Schemas,
			Forward: forward, Backward: backward, LowCardinalityLimit: introspectLowCard,
		})
		return a, func() { _ = db.Close() }, err

	case "mysql":
		db, err := sql.Open("mysql", env.MySQLDSN)
		if err != nil {
			return nil, noop, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		ex, val := executorsql.NewMySQL(db)
		a, err := mysql.New(mysql.Options{
			Executor: ex, Validator: val, Databases: env.Databases,
			Forward: forward, Backward: backward, LowCardinalityLimit: introspectLowCard,
		})
		return a, func() { _ = db.Close() }, err

	case "sqlserver":
		db, err := sql.Open("sqlserver", env.SQLServerDSN)
		if err != nil {
			return nil, noop, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		ex, val := executorsql.NewSQLServer(db)
		a, err := sqlserver.New(sqlserver.Options{
			Executor: ex, Validator: val, Schemas: env.Schemas,
			Forward: forward, Backward: backward, LowCardinalityLimit: introspectLowCard,
		})
		return a, func() { _ = db.Close() }, err

	case "sqlite", "sqlite3":
		driverName, dsn := "sqlite", env.SQLitePath
		if env.LibSQLURL != "" {
			driverName, dsn = "libsql", env.LibSQLURL
		}
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, noop, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		ex, val := executorsql.NewSQLite(db)
		a, err := sqlite.New(sqlite.Options{
			Executor: ex, Validator: val,
			Forward: forward, Backward: backward, LowCardinalityLimit: introspectLowCard,
		})
		return a, func() { _ = db.Close() }, err

	case "bigquery":
		client, err := bigquery.NewClient(ctx, env.ProjectID)
		if err != nil {
			return nil, noop, err
		}
		ex, val := executorsql.NewBigQuery(client, env.ProjectID)
		a, err := bqadapter.New(bqadapter.Options{
			Executor: ex, Validator: val, ProjectID: env.ProjectID, Datasets: env.Datasets,
			Forward: forward, Backward: backward, LowCardinalityLimit: introspectLowCard,
		})
		return a, func() { _ = client.Close() }, err

	default:
		return nil, noop, fmt.Errorf("unsupported dialect %q", env.Dialect)
	}
}
