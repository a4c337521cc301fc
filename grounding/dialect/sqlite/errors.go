package sqlite

import (
	"context"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

var errorPatterns = []grounding.ErrorPattern{
	{
		Kind:  grounding.ErrorMissingTable,
		Match: func(msg string) bool { return strings.Contains(msg, "no such table") },
		Hint:  func(string) string { return "check the table name; SQLite table names are case-sensitive by default" },
	},
	{
		Kind:  grounding.ErrorInvalidColumn,
		Match: func(msg string) bool { return strings.Contains(msg, "no such column") },
	},
	{
		Kind:  grounding.ErrorSyntax,
		Match: func(msg string) bool { return strings.Contains(msg, "syntax error") },
	},
	{
		Kind:  grounding.ErrorInvalidFunc,
		Match: func(msg string) bool { return strings.Contains(msg, "no such function") },
	},
	{
		Kind:  grounding.ErrorConstraint,
		Match: func(msg string) bool { return strings.Contains(msg, "constraint failed") },
	},
}

// Validate implements grounding.Adapter, wrapping the configured Validator
// or an EXPLAIN round trip when none was supplied.
func (a *Adapter) Validate(ctx context.Context, sql string) string {
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
