package grounding

import (
	"encoding/json"
	"fmt"
)

// ErrorKind is the canonical classification of a dry-run validation failure.
type ErrorKind string

const (
	ErrorMissingTable  ErrorKind = "MISSING_TABLE"
	ErrorInvalidColumn ErrorKind = "INVALID_COLUMN"
	ErrorSyntax        ErrorKind = "SYNTAX_ERROR"
	ErrorInvalidFunc   ErrorKind = "INVALID_FUNCTION"
	ErrorConstraint    ErrorKind = "CONSTRAINT_ERROR"
	ErrorUnknown       ErrorKind = "UNKNOWN_ERROR"
)

// Diagnostic is the JSON-serializable shape validate(sql) returns on
// failure. It is never wrapped in a Go error — a dry-run failure is reported
// data, not a fault of this library.
type Diagnostic struct {
	Error        string `json:"error"`
	ErrorType    string `json:"error_type"`
	Suggestion   string `json:"suggestion,omitempty"`
	SQLAttempted string `json:"sql_attempted"`
}

// Encode renders the diagnostic as the JSON string validate(sql) returns.
func (d Diagnostic) Encode() string {
	b, err := json.Marshal(d)
	if err != nil {
		// Diagnostic has no field that can fail to marshal; this would be a
		// programming error, not a runtime condition.
		return fmt.Sprintf(`{"error":%q,"error_type":"UNKNOWN_ERROR"}`, err.Error())
	}
	return string(b)
}

// ErrorPattern maps one engine error signature to a canonical kind and an
// optional hint. Pattern tables are per-dialect, immutable, and built once
// at adapter-construction time — never assembled at runtime from
// caller-supplied configuration.
type ErrorPattern struct {
	Kind    ErrorKind
	Match   func(message string) bool
	Hint    func(message string) string
	Comment string
}

// Classify runs message through patterns in order and returns the first
// match's Diagnostic, falling back to ErrorUnknown.
func Classify(patterns []ErrorPattern, message, sqlAttempted string) Diagnostic {
	for _, p := range patterns {
		if p.Match == nil || !p.Match(message) {
			continue
		}
		hint := ""
		if p.Hint != nil {
			hint = p.Hint(message)
		}
		return Diagnostic{
			Error:        message,
			ErrorType:    string(p.Kind),
			Suggestion:   hint,
			SQLAttempted: sqlAttempted,
		}
	}
	return Diagnostic{
		Error:        message,
		ErrorType:    string(ErrorUnknown),
		SQLAttempted: sqlAttempted,
	}
}

// ConfigError is returned synchronously from adapter constructors when a
// required capability is missing — a fatal, caller-facing mistake rather
// than a runtime condition.
type ConfigError struct {
	Dialect string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("grounding: %s adapter misconfigured: %s", e.Dialect, e.Reason)
}

// ExecutorShapeError is returned when Execute returns a value that is
// neither a row slice nor a {rows: ...}-shaped wrapper.
type ExecutorShapeError struct {
	SQL string
	Got any
}

func (e *ExecutorShapeError) Error() string {
	return fmt.Sprintf("grounding: executor returned unrecognized shape %T for query %q; expected a row slice or a struct with a Rows field", e.Got, e.SQL)
}
