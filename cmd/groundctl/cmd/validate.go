package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlgrounder/sqlgrounder/grounding"
	"github.com/sqlgrounder/sqlgrounder/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <sql>",
	Short: "Run a candidate query through the dialect's dry-run validator",
	Long: `Validate runs sql through the configured environment's Validate hook
(EXPLAIN, SET PARSEONLY, or a BigQuery dry run, depending on dialect) without
executing it, and prints a Diagnostic if it fails.`,
	Example: `  groundctl validate --environment staging "SELECT id FROM users WHERE emial = 'x'"`,
	Args:    cobra.ExactArgs(1),
	Run:     runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&introspectDialect, "dialect", "", "postgresql, mysql, sqlserver, sqlite, or bigquery (defaults to the environment's configured dialect)")
	validateCmd.Flags().StringVar(&introspectEnvironment, "environment", "", "named environment from grounding.toml (default: local)")
}

func runValidate(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load grounding.toml: %v", err)
	}

	envName := strings.TrimSpace(introspectEnvironment)
	if envName == "" {
		envName = "local"
	}
	env := cfg.Environments[envName]
	if introspectDialect != "" {
		env.Dialect = introspectDialect
	}
	if env.Dialect == "" {
		log.Fatalf("no dialect configured: pass --dialect or set dialect in grounding.toml's %q environment", envName)
	}

	ctx := context.Background()
	adapter, closer, err := buildAdapter(ctx, env, grounding.NoDepth(), grounding.NoDepth())
	if err != nil {
		log.Fatalf("failed to build %s adapter: %v", env.Dialect, err)
	}
	defer closer()

	if diag := adapter.Validate(ctx, args[0]); diag != "" {
		fmt.Println(diag)
		return
	}
	fmt.Println("valid")
}
