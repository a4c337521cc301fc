package bigquery

import (
	"context"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

var errorPatterns = []grounding.ErrorPattern{
	{
		Kind:  grounding.ErrorMissingTable,
		Match: func(msg string) bool { return strings.Contains(msg, "Not found: Table") },
	},
	{
		Kind:  grounding.ErrorInvalidColumn,
		Match: func(msg string) bool { return strings.Contains(msg, "Unrecognized name") },
	},
	{
		Kind:  grounding.ErrorInvalidFunc,
		Match: func(msg string) bool { return strings.Contains(msg, "Function not found") },
	},
	{
		Kind:  grounding.ErrorSyntax,
		Match: func(msg string) bool { return strings.Contains(msg, "Syntax error") },
	},
	{
		Kind:  grounding.ErrorConstraint,
		Match: func(msg string) bool { return strings.Contains(msg, "violates") },
	},
}

// Validate implements grounding.Adapter by delegating to the mandatory
// Validator — New refuses to construct an Adapter without one, since
// BigQuery's dry-run (jobs.query with dryRun=true) isn't expressible as a
// plain SQL statement this package could synthesize itself.
func (a *Adapter) Validate(ctx context.Context, sql string) string {
	if err := a.opts.Validator.Validate(ctx, sql); err != nil {
		return grounding.Classify(errorPatterns, err.Error(), sql).Encode()
	}
	return ""
}
