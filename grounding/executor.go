package grounding

import (
	"context"
	"reflect"
)

// Row is one result row as a column-name-keyed map. Dialect hooks decode
// the columns they expect out of it.
type Row map[string]any

// Executor is the caller-supplied capability the engine never substitutes
// for a real connection: run SQL, get rows back. The engine opens no
// connections of its own.
type Executor interface {
	Execute(ctx context.Context, sql string) (any, error)
}

// Validator is the optional dry-run capability, supplied through an
// adapter's Options. When none is supplied, the SQL adapters fall back to
// the dialect's natural dry-run primitive (EXPLAIN or SET PARSEONLY ON);
// the BigQuery adapter refuses construction without one.
type Validator interface {
	Validate(ctx context.Context, sql string) error
}

// RowsWrapper lets an Executor return a non-slice result that still exposes
// its rows, mirroring the `{rows: [...]}` / `{recordset: [...]}` wrapper
// idiom some drivers use instead of returning a bare slice.
type RowsWrapper interface {
	GroundingRows() []Row
}

// NormalizeRows accepts whatever Execute returned and coerces it into a
// []Row, accepting a bare []Row, a []map[string]any, anything implementing
// RowsWrapper, or a struct exposing an exported Rows or Recordset field.
// Anything else fails with ExecutorShapeError describing the required
// shape.
func NormalizeRows(sql string, v any) ([]Row, error) {
	switch rows := v.(type) {
	case []Row:
		return rows, nil
	case []map[string]any:
		out := make([]Row, len(rows))
		for i, r := range rows {
			out[i] = Row(r)
		}
		return out, nil
	case RowsWrapper:
		return rows.GroundingRows(), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, &ExecutorShapeError{SQL: sql, Got: v}
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		for _, field := range []string{"Rows", "Recordset"} {
			f := rv.FieldByName(field)
			if !f.IsValid() {
				continue
			}
			if rows, ok := f.Interface().([]Row); ok {
				return rows, nil
			}
			if rows, ok := f.Interface().([]map[string]any); ok {
				out := make([]Row, len(rows))
				for i, r := range rows {
					out[i] = Row(r)
				}
				return out, nil
			}
		}
	}

	return nil, &ExecutorShapeError{SQL: sql, Got: v}
}

// RunQuery executes sql through ex and normalizes the result into []Row.
func RunQuery(ctx context.Context, ex Executor, sql string) ([]Row, error) {
	v, err := ex.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	return NormalizeRows(sql, v)
}

// ExecuteFunc adapts a plain function to the Executor interface.
type ExecuteFunc func(ctx context.Context, sql string) (any, error)

// Execute implements Executor.
func (f ExecuteFunc) Execute(ctx context.Context, sql string) (any, error) { return f(ctx, sql) }

// funcExecutor composes an ExecuteFunc with an optional validate function
// into a single value satisfying both Executor and Validator.
type funcExecutor struct {
	ExecuteFunc
	validate func(ctx context.Context, sql string) error
}

func (f *funcExecutor) Validate(ctx context.Context, sql string) error {
	if f.validate == nil {
		return nil
	}
	return f.validate(ctx, sql)
}

// NewExecutor builds an Executor (and, when validate is non-nil, a
// Validator) from plain functions, so a caller need not declare a type of
// its own to satisfy either interface.
func NewExecutor(execute func(ctx context.Context, sql string) (any, error), validate func(ctx context.Context, sql string) error) Executor {
	return &funcExecutor{ExecuteFunc: execute, validate: validate}
}
