package bigquery

import (
	"context"
	"fmt"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func (a *Adapter) CollectInfo(ctx context.Context) (grounding.DialectInfo, error) {
	return grounding.DialectInfo{
		Dialect:  string(grounding.DialectBigQuery),
		Database: a.opts.ProjectID,
		Details:  map[string]any{"datasets": a.opts.Datasets},
	}, nil
}

func (a *Adapter) AllTableNames(ctx context.Context) ([]string, error) {
	var out []string
	for _, dataset := range a.opts.Datasets {
		q := fmt.Sprintf(`SELECT table_name FROM %s WHERE table_type = 'BASE TABLE' ORDER BY table_name`,
			a.infoSchemaView(dataset, "TABLES"))
		rows, err := a.query(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, dataset+"."+str(r["table_name"]))
		}
	}
	return out, nil
}

func (a *Adapter) GetTable(ctx context.Context, name string) (grounding.Table, error) {
	dataset, table := a.ParseTableName(name)
	q := fmt.Sprintf(`SELECT column_name, data_type FROM %s WHERE table_name = '%s' ORDER BY ordinal_position`,
		a.infoSchemaView(dataset, "COLUMNS"), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return grounding.Table{}, err
	}
	cols := make([]grounding.Column, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, grounding.Column{Name: str(r["column_name"]), Type: str(r["data_type"])})
	}
	return grounding.Table{Name: name, Schema: dataset, RawName: table, Columns: cols}, nil
}

// OutgoingRelations and IncomingRelations read BigQuery's
// REFERENTIAL_CONSTRAINTS/KEY_COLUMN_USAGE views, available for tables
// declaring (enforced or unenforced) primary/foreign keys. Any relationship
// whose endpoint lies outside the configured dataset scope is dropped per
// invariant 7 before it ever reaches the caller.
func (a *Adapter) OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	dataset, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT rc.constraint_name, kcu.column_name AS from_column, kcu2.column_name AS to_column,
		       kcu2.table_schema AS ref_dataset, kcu2.table_name AS ref_table
		FROM %s rc
		JOIN %s kcu ON rc.constraint_name = kcu.constraint_name AND rc.table_name = kcu.table_name
		JOIN %s kcu2 ON rc.unique_constraint_name = kcu2.constraint_name
		WHERE kcu.table_name = '%s'
		ORDER BY rc.constraint_name, kcu.ordinal_position`,
		a.infoSchemaView(dataset, "REFERENTIAL_CONSTRAINTS"),
		a.infoSchemaView(dataset, "KEY_COLUMN_USAGE"),
		a.infoSchemaView(dataset, "KEY_COLUMN_USAGE"),
		a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return a.groupRelationships(rows, func(r grounding.Row) grounding.Relationship {
		return grounding.Relationship{Table: name, ReferencedTable: str(r["ref_dataset"]) + "." + str(r["ref_table"])}
	}, func(r grounding.Row) string { return str(r["ref_dataset"]) }), nil
}

func (a *Adapter) IncomingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	dataset, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT rc.constraint_name, kcu.column_name AS from_column, kcu2.column_name AS to_column,
		       kcu.table_schema AS src_dataset, kcu.table_name AS src_table
		FROM %s rc
		JOIN %s kcu2 ON rc.unique_constraint_name = kcu2.constraint_name AND rc.table_name = kcu2.table_name
		JOIN %s kcu ON rc.constraint_name = kcu.constraint_name
		WHERE kcu2.table_name = '%s'
		ORDER BY rc.constraint_name, kcu.ordinal_position`,
		a.infoSchemaView(dataset, "REFERENTIAL_CONSTRAINTS"),
		a.infoSchemaView(dataset, "KEY_COLUMN_USAGE"),
		a.infoSchemaView(dataset, "KEY_COLUMN_USAGE"),
		a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return a.groupRelationships(rows, func(r grounding.Row) grounding.Relationship {
		return grounding.Relationship{Table: str(r["src_dataset"]) + "." + str(r["src_table"]), ReferencedTable: name}
	}, func(r grounding.Row) string { return str(r["src_dataset"]) }), nil
}

func (a *Adapter) groupRelationships(rows []grounding.Row, seed func(grounding.Row) grounding.Relationship, scopeDataset func(grounding.Row) string) []grounding.Relationship {
	order := make([]string, 0)
	byConstraint := map[string]*grounding.Relationship{}
	for _, r := range rows {
		if !a.isDatasetAllowed(scopeDataset(r)) {
			continue
		}
		cname := str(r["constraint_name"])
		rel, ok := byConstraint[cname]
		if !ok {
			v := seed(r)
			rel = &v
			byConstraint[cname] = rel
			order = append(order, cname)
		}
		rel.From = append(rel.From, str(r["from_column"]))
		rel.To = append(rel.To, str(r["to_column"]))
	}
	out := make([]grounding.Relationship, 0, len(order))
	for _, cname := range order {
		out = append(out, *byConstraint[cname])
	}
	return out
}

func (a *Adapter) AllViewNames(ctx context.Context) ([]string, error) {
	var out []string
	for _, dataset := range a.opts.Datasets {
		q := fmt.Sprintf(`SELECT table_name FROM %s ORDER BY table_name`, a.infoSchemaView(dataset, "VIEWS"))
		rows, err := a.query(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, dataset+"."+str(r["table_name"]))
		}
	}
	return out, nil
}

func (a *Adapter) GetView(ctx context.Context, name string) (grounding.View, error) {
	dataset, table := a.ParseTableName(name)
	defRows, err := a.query(ctx, fmt.Sprintf(`SELECT view_definition FROM %s WHERE table_name = '%s'`,
		a.infoSchemaView(dataset, "VIEWS"), a.EscapeString(table)))
	if err != nil {
		return grounding.View{}, err
	}
	def := ""
	if len(defRows) > 0 {
		def = str(defRows[0]["view_definition"])
	}
	colRows, err := a.query(ctx, fmt.Sprintf(`SELECT column_name, data_type FROM %s WHERE table_name = '%s' ORDER BY ordinal_position`,
		a.infoSchemaView(dataset, "COLUMNS"), a.EscapeString(table)))
	if err != nil {
		return grounding.View{}, err
	}
	cols := make([]grounding.Column, 0, len(colRows))
	for _, r := range colRows {
		cols = append(cols, grounding.Column{Name: str(r["column_name"]), Type: str(r["data_type"])})
	}
	return grounding.View{Name: name, Schema: dataset, RawName: table, Definition: def, Columns: cols}, nil
}

func (a *Adapter) EstimatedRowCount(ctx context.Context, tableName string) (int64, bool, error) {
	dataset, table := a.ParseTableName(tableName)
	q := fmt.Sprintf(`SELECT total_rows FROM %s WHERE table_name = '%s'`,
		a.infoSchemaView(dataset, "TABLE_STORAGE"), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	n, ok := grounding.ToNumber(rows[0]["total_rows"])
	if !ok || n <= 0 {
		return 0, false, nil
	}
	return int64(n), true, nil
}

func (a *Adapter) CountRows(ctx context.Context, tableName string) (int64, error) {
	rows, err := a.query(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", a.QuoteIdentifier(tableName)))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := grounding.ToNumber(rows[0]["n"])
	return int64(n), nil
}

// TableIndexes synthesizes partition and clustering metadata into
// pseudo-indexes named "<table>_partition" and "<table>_clustering", per
// spec §4.4.5 — BigQuery has no traditional B-tree index concept.
func (a *Adapter) TableIndexes(ctx context.Context, tableName string) ([]grounding.TableIndex, error) {
	dataset, table := a.ParseTableName(tableName)
	var out []grounding.TableIndex

	partRows, err := a.query(ctx, fmt.Sprintf(
		`SELECT column_name FROM %s WHERE table_name = '%s' AND is_partitioning_column = 'YES'`,
		a.infoSchemaView(dataset, "COLUMNS"), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	if len(partRows) > 0 {
		idx := grounding.TableIndex{Name: table + "_partition", Type: "PARTITION"}
		for _, r := range partRows {
			idx.Columns = append(idx.Columns, str(r["column_name"]))
		}
		out = append(out, idx)
	}

	clusterRows, err := a.query(ctx, fmt.Sprintf(
		`SELECT column_name FROM %s WHERE table_name = '%s' AND clustering_ordinal_position IS NOT NULL ORDER BY clustering_ordinal_position`,
		a.infoSchemaView(dataset, "COLUMNS"), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	if len(clusterRows) > 0 {
		idx := grounding.TableIndex{Name: table + "_clustering", Type: "CLUSTERING"}
		for _, r := range clusterRows {
			idx.Columns = append(idx.Columns, str(r["column_name"]))
		}
		out = append(out, idx)
	}

	return out, nil
}

func (a *Adapter) TableConstraints(ctx context.Context, tableName string) ([]grounding.TableConstraint, error) {
	dataset, table := a.ParseTableName(tableName)
	var out []grounding.TableConstraint

	pkRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT tc.constraint_name, kcu.column_name
		FROM %s tc
		JOIN %s kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_name = kcu.table_name
		WHERE tc.table_name = '%s' AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`,
		a.infoSchemaView(dataset, "TABLE_CONSTRAINTS"), a.infoSchemaView(dataset, "KEY_COLUMN_USAGE"), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	if len(pkRows) > 0 {
		pk := grounding.TableConstraint{Name: str(pkRows[0]["constraint_name"]), Type: grounding.ConstraintPrimaryKey}
		for _, r := range pkRows {
			pk.Columns = append(pk.Columns, str(r["column_name"]))
		}
		out = append(out, pk)
	}

	colRows, err := a.query(ctx, fmt.Sprintf(`SELECT column_name, is_nullable FROM %s WHERE table_name = '%s'`,
		a.infoSchemaView(dataset, "COLUMNS"), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	for _, r := range colRows {
		if str(r["is_nullable"]) == "NO" {
			out = append(out, grounding.TableConstraint{Type: grounding.ConstraintNotNull, Columns: []string{str(r["column_name"])}})
		}
	}

	return out, nil
}

// BulkTableStats is unsupported — BigQuery has no pg_stats/sys.dm_db_stats
// equivalent view; every column falls through to the per-column
// ColumnStat path.
func (a *Adapter) BulkTableStats(ctx context.Context, tableName string) (map[string]grounding.ColumnStats, error) {
	return nil, nil
}

func (a *Adapter) ColumnStat(ctx context.Context, tableName, columnName, columnType string) (grounding.ColumnStats, error) {
	col := a.QuoteIdentifier(columnName)
	q := fmt.Sprintf(`
		SELECT CAST(MIN(%s) AS STRING) AS min_v, CAST(MAX(%s) AS STRING) AS max_v,
		       AVG(CASE WHEN %s IS NULL THEN 1.0 ELSE 0.0 END) AS null_frac
		FROM %s`, col, col, col, a.QuoteIdentifier(tableName))
	rows, err := a.query(ctx, q)
	if err != nil {
		return grounding.ColumnStats{}, err
	}
	if len(rows) == 0 {
		return grounding.ColumnStats{}, nil
	}
	stats := grounding.ColumnStats{}
	if min := str(rows[0]["min_v"]); min != "" {
		stats.Min = &min
	}
	if max := str(rows[0]["max_v"]); max != "" {
		stats.Max = &max
	}
	if nf, ok := grounding.ToNumber(rows[0]["null_frac"]); ok {
		stats.NullFraction = &nf
	}
	return stats, nil
}

// NativeEnumValues is always false — BigQuery has no native enum type.
func (a *Adapter) NativeEnumValues(ctx context.Context, qualifiedName, column, columnType string) ([]string, bool, error) {
	return nil, false, nil
}

func (a *Adapter) DistinctValues(ctx context.Context, qualifiedName, column string, limit int) ([]string, bool, error) {
	col := a.QuoteIdentifier(column)
	q := fmt.Sprintf(`SELECT DISTINCT CAST(%s AS STRING) AS v FROM %s WHERE %s IS NOT NULL LIMIT %d`,
		col, a.QuoteIdentifier(qualifiedName), col, limit+1)
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(rows) > limit {
		return nil, false, nil
	}
	values := make([]string, 0, len(rows))
	for _, r := range rows {
		values = append(values, str(r["v"]))
	}
	return values, true, nil
}
