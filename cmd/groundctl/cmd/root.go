package cmd

import (
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/spf13/cobra"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "groundctl",
	Short: "groundctl runs the grounding pipeline against a database connection.",
	Long:  `groundctl runs the grounding pipeline against a database connection and prints the resulting schema/relationship/value fragments an LLM would ground a text-to-SQL prompt on.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
