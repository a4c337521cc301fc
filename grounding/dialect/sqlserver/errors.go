package sqlserver

import (
	"context"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

var errorPatterns = []grounding.ErrorPattern{
	{
		Kind:  grounding.ErrorMissingTable,
		Match: func(msg string) bool { return strings.Contains(msg, "Invalid object name") },
	},
	{
		Kind:  grounding.ErrorInvalidColumn,
		Match: func(msg string) bool { return strings.Contains(msg, "Invalid column name") },
	},
	{
		Kind:  grounding.ErrorInvalidFunc,
		Match: func(msg string) bool { return strings.Contains(msg, "is not a recognized") && strings.Contains(msg, "function") },
	},
	{
		Kind:  grounding.ErrorSyntax,
		Match: func(msg string) bool { return strings.Contains(msg, "Incorrect syntax near") },
	},
	{
		Kind: grounding.ErrorConstraint,
		Match: func(msg string) bool {
			return strings.Contains(msg, "conflicted with the") || strings.Contains(msg, "Violation of")
		},
	},
}

// Validate implements grounding.Adapter. It defers to the configured
// Validator when present; otherwise a SET PARSEONLY ON probe
// checks syntax only, without touching the query plan.
func (a *Adapter) Validate(ctx context.Context, sql string) string {
	if a.opts.Validator != nil {
		if err := a.opts.Validator.Validate(ctx, sql); err != nil {
			return grounding.Classify(errorPatterns, err.Error(), sql).Encode()
		}
		return ""
	}
	if _, err := a.query(ctx, "SET PARSEONLY ON; "+sql+"; SET PARSEONLY OFF;"); err != nil {
		return grounding.Classify(errorPatterns, err.Error(), sql).Encode()
	}
	return ""
}
