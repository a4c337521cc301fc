// Package executorsql provides convenience grounding.Executor/Validator
// wrappers around database/sql and the BigQuery client library, for callers
// who want a real connection instead of authoring their own executor. None
// of these are required — every dialect adapter accepts any Executor that
// satisfies the interface.
package executorsql

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// sqlExecutor wraps a *sql.DB into a grounding.Executor/grounding.Validator
// pair, scanning every row into a grounding.Row via column names.
type sqlExecutor struct {
	db *sql.DB
}

func (e *sqlExecutor) Execute(ctx context.Context, query string) (any, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

func (e *sqlExecutor) Validate(ctx context.Context, query string) error {
	rows, err := e.db.QueryContext(ctx, "EXPLAIN "+query)
	if err != nil {
		return err
	}
	return rows.Close()
}

func scanRows(rows *sql.Rows) ([]grounding.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []grounding.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(grounding.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// NewPostgres wraps db (opened against "github.com/lib/pq" or any
// database/sql-compatible PostgreSQL driver) as a grounding.Executor and
// grounding.Validator.
func NewPostgres(db *sql.DB) (grounding.Executor, grounding.Validator) {
	e := &sqlExecutor{db: db}
	return e, e
}

// NewSQLite wraps db (opened against "modernc.org/sqlite") as a
// grounding.Executor and grounding.Validator.
func NewSQLite(db *sql.DB) (grounding.Executor, grounding.Validator) {
	e := &sqlExecutor{db: db}
	return e, e
}

// NewLibSQL wraps db (opened against
// "github.com/tursodatabase/libsql-client-go/libsql") as a
// grounding.Executor and grounding.Validator, for the spreadsheet-backed
// dialect's libSQL endpoint.
func NewLibSQL(db *sql.DB) (grounding.Executor, grounding.Validator) {
	e := &sqlExecutor{db: db}
	return e, e
}

// NewMySQL wraps db (opened against "github.com/go-sql-driver/mysql") as a
// grounding.Executor and grounding.Validator.
func NewMySQL(db *sql.DB) (grounding.Executor, grounding.Validator) {
	e := &sqlExecutor{db: db}
	return e, e
}

// sqlServerExecutor overrides Validate: SQL Server rejects a bare "EXPLAIN"
// prefix, so the dry run instead wraps the statement in SET PARSEONLY ON/OFF.
type sqlServerExecutor struct {
	*sqlExecutor
}

func (e *sqlServerExecutor) Validate(ctx context.Context, query string) error {
	_, err := e.db.ExecContext(ctx, "SET PARSEONLY ON; "+query+"; SET PARSEONLY OFF;")
	return err
}

// NewSQLServer wraps db (opened against "github.com/microsoft/go-mssqldb")
// as a grounding.Executor and grounding.Validator.
func NewSQLServer(db *sql.DB) (grounding.Executor, grounding.Validator) {
	e := &sqlServerExecutor{sqlExecutor: &sqlExecutor{db: db}}
	return e, e
}

type bigQueryExecutor struct {
	client    *bigquery.Client
	projectID string
}

// Execute runs query via bigquery.Query.Read and flattens the resulting
// iterator into []grounding.Row, keyed by the result schema's field names.
func (e *bigQueryExecutor) Execute(ctx context.Context, query string) (any, error) {
	it, err := e.client.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery query (project %s): %w", e.projectID, err)
	}
	var out []grounding.Row
	for {
		var values []bigquery.Value
		err := it.Next(&values)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery row scan: %w", err)
		}
		row := make(grounding.Row, len(it.Schema))
		for i, field := range it.Schema {
			if i < len(values) {
				row[field.Name] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// Validate runs query as a dry run (Query.DryRun = true), BigQuery's native
// "plan without executing" primitive.
func (e *bigQueryExecutor) Validate(ctx context.Context, query string) error {
	q := e.client.Query(query)
	q.DryRun = true
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("bigquery dry run (project %s): %w", e.projectID, err)
	}
	if status := job.LastStatus(); status != nil {
		if err := status.Err(); err != nil {
			return fmt.Errorf("bigquery dry run (project %s): %w", e.projectID, err)
		}
	}
	return nil
}

// NewBigQuery wraps client into the grounding.Executor/grounding.Validator
// pair BigQuery mandates, backing Query.Read and a Query.DryRun probe.
func NewBigQuery(client *bigquery.Client, projectID string) (grounding.Executor, grounding.Validator) {
	e := &bigQueryExecutor{client: client, projectID: projectID}
	return e, e
}
