package postgres

import (
	"context"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// errorPatterns classifies PostgreSQL dry-run failures into the canonical
// error taxonomy. The table is immutable and built once; it is never
// assembled from runtime configuration.
var errorPatterns = []grounding.ErrorPattern{
	{
		Kind:    grounding.ErrorMissingTable,
		Match:   func(msg string) bool { return strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation") },
		Hint:    func(string) string { return "check the table name and schema prefix (e.g. public.table_name)" },
		Comment: "relation \"x\" does not exist",
	},
	{
		Kind:  grounding.ErrorInvalidColumn,
		Match: func(msg string) bool { return strings.Contains(msg, "column") && strings.Contains(msg, "does not exist") },
		Hint:  func(string) string { return "check the column name and table alias" },
	},
	{
		Kind:  grounding.ErrorInvalidColumn,
		Match: func(msg string) bool { return strings.Contains(msg, "ambiguous") },
		Hint:  func(string) string { return "qualify the column with its table alias" },
	},
	{
		Kind:  grounding.ErrorInvalidFunc,
		Match: func(msg string) bool { return strings.Contains(msg, "function") && strings.Contains(msg, "does not exist") },
		Hint:  func(string) string { return "check the function name and argument types" },
	},
	{
		Kind:  grounding.ErrorSyntax,
		Match: func(msg string) bool { return strings.Contains(msg, "syntax error") },
	},
	{
		Kind:  grounding.ErrorConstraint,
		Match: func(msg string) bool { return strings.Contains(msg, "violates") && strings.Contains(msg, "constraint") },
	},
}

// Validate implements grounding.Adapter. It attempts an AST parse first —
// a parse failure is reported without needing a live connection — then
// falls back to the configured Validator, or an EXPLAIN round trip when
// none was supplied.
func (a *Adapter) Validate(ctx context.Context, sql string) string {
	if _, err := pgquery.Parse(sql); err != nil {
		return grounding.Diagnostic{
			Error:        err.Error(),
			ErrorType:    string(grounding.ErrorSyntax),
			SQLAttempted: sql,
		}.Encode()
	}

	if a.opts.Validator != nil {
		if err := a.opts.Validator.Validate(ctx, sql); err != nil {
			return grounding.Classify(errorPatterns, err.Error(), sql).Encode()
		}
		return ""
	}

	if _, err := a.query(ctx, "EXPLAIN "+sql); err != nil {
		return grounding.Classify(errorPatterns, err.Error(), sql).Encode()
	}
	return ""
}
