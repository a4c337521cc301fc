package mysql

import (
	"context"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

var errorPatterns = []grounding.ErrorPattern{
	{
		Kind:  grounding.ErrorMissingTable,
		Match: func(msg string) bool { return strings.Contains(msg, "doesn't exist") && strings.Contains(msg, "Table") },
	},
	{
		Kind:  grounding.ErrorInvalidColumn,
		Match: func(msg string) bool { return strings.Contains(msg, "Unknown column") },
	},
	{
		Kind:  grounding.ErrorInvalidFunc,
		Match: func(msg string) bool { return strings.Contains(msg, "FUNCTION") && strings.Contains(msg, "does not exist") },
	},
	{
		Kind:  grounding.ErrorSyntax,
		Match: func(msg string) bool { return strings.Contains(msg, "SQL syntax") },
	},
	{
		Kind: grounding.ErrorConstraint,
		Match: func(msg string) bool {
			return strings.Contains(msg, "foreign key constraint") || strings.Contains(msg, "Duplicate entry") ||
				strings.Contains(msg, "cannot be null")
		},
	},
}

// Validate implements grounding.Adapter. MySQL has no PREPARE-only dry run
// comparable to PostgreSQL's EXPLAIN-as-syntax-check, so an explicit
// Validator is preferred; EXPLAIN is used as a fallback and still executes
// the planner (not the statement body) for most DML.
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
