package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

// CollectInfo implements phase.InfoHooks.
func (a *Adapter) CollectInfo(ctx context.Context) (grounding.DialectInfo, error) {
	rows, err := a.query(ctx, "SELECT version() AS version, current_database() AS database")
	if err != nil {
		return grounding.DialectInfo{}, err
	}
	info := grounding.DialectInfo{Dialect: string(grounding.DialectPostgres)}
	if len(rows) > 0 {
		info.Version = str(rows[0]["version"])
		info.Database = str(rows[0]["database"])
	}
	return info, nil
}

// AllTableNames implements phase.TableHooks.
func (a *Adapter) AllTableNames(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE' %s
		ORDER BY table_schema, table_name`, a.schemaFilter("table_schema"))

	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, str(r["table_schema"])+"."+str(r["table_name"]))
	}
	return out, nil
}

// GetTable implements phase.TableHooks.
func (a *Adapter) GetTable(ctx context.Context, name string) (grounding.Table, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT column_name, data_type, column_default
		FROM information_schema.columns
		WHERE table_schema = '%s' AND table_name = '%s'
		ORDER BY ordinal_position`, a.EscapeString(schema), a.EscapeString(table))

	rows, err := a.query(ctx, q)
	if err != nil {
		return grounding.Table{}, err
	}

	cols := make([]grounding.Column, 0, len(rows))
	for _, r := range rows {
		colType := strings.TrimSpace(str(r["data_type"]))
		colDefault := str(r["column_default"])
		// SERIAL/BIGSERIAL are pseudo-types: Postgres stores them as
		// integer/bigint with a nextval(...) default.
		if strings.HasPrefix(colDefault, "nextval(") {
			switch colType {
			case "integer":
				colType = "serial"
			case "bigint":
				colType = "bigserial"
			case "smallint":
				colType = "smallserial"
			}
		}
		cols = append(cols, grounding.Column{Name: str(r["column_name"]), Type: colType})
	}

	return grounding.Table{Name: name, Schema: schema, RawName: table, Columns: cols}, nil
}

const fkColumnsSelect = `tc.constraint_name, kcu.column_name AS from_column, kcu.ordinal_position, ccu.column_name AS to_column`

// OutgoingRelations implements phase.TableHooks.
func (a *Adapter) OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT %s, ccu.table_schema AS ref_schema, ccu.table_name AS ref_table
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = '%s' AND tc.table_name = '%s'
		ORDER BY tc.constraint_name, kcu.ordinal_position`, fkColumnsSelect, a.EscapeString(schema), a.EscapeString(table))

	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}

	type acc struct {
		rel grounding.Relationship
	}
	order := make([]string, 0)
	byConstraint := map[string]*acc{}
	for _, r := range rows {
		cname := str(r["constraint_name"])
		entry, ok := byConstraint[cname]
		if !ok {
			entry = &acc{rel: grounding.Relationship{
				Table:           name,
				ReferencedTable: str(r["ref_schema"]) + "." + str(r["ref_table"]),
			}}
			byConstraint[cname] = entry
			order = append(order, cname)
		}
		entry.rel.From = append(entry.rel.From, str(r["from_column"]))
		entry.rel.To = append(entry.rel.To, str(r["to_column"]))
	}

	out := make([]grounding.Relationship, 0, len(order))
	for _, cname := range order {
		out = append(out, byConstraint[cname].rel)
	}
	return out, nil
}

// IncomingRelations implements phase.TableHooks.
func (a *Adapter) IncomingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT %s, tc.table_schema AS src_schema, tc.table_name AS src_table
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND ccu.table_schema = '%s' AND ccu.table_name = '%s'
		ORDER BY tc.constraint_name, kcu.ordinal_position`, fkColumnsSelect, a.EscapeString(schema), a.EscapeString(table))

	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}

	type acc struct {
		rel grounding.Relationship
	}
	order := make([]string, 0)
	byConstraint := map[string]*acc{}
	for _, r := range rows {
		cname := str(r["constraint_name"])
		entry, ok := byConstraint[cname]
		if !ok {
			entry = &acc{rel: grounding.Relationship{
				Table:           str(r["src_schema"]) + "." + str(r["src_table"]),
				ReferencedTable: name,
			}}
			byConstraint[cname] = entry
			order = append(order, cname)
		}
		entry.rel.From = append(entry.rel.From, str(r["from_column"]))
		entry.rel.To = append(entry.rel.To, str(r["to_column"]))
	}

	out := make([]grounding.Relationship, 0, len(order))
	for _, cname := range order {
		out = append(out, byConstraint[cname].rel)
	}
	return out, nil
}

// GenerateReport implements phase.ReportHooks by delegating to the
// caller-supplied ReportGenerator — the business-report LLM agent loop
// itself is an external collaborator, referenced only by this contract.
func (a *Adapter) GenerateReport(ctx context.Context, gctx *grounding.Context, model string) (string, error) {
	return a.opts.ReportGenerator(ctx, gctx, a.opts.Executor, model)
}

// AllViewNames implements phase.ViewHooks.
func (a *Adapter) AllViewNames(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type IN ('VIEW', 'MATERIALIZED VIEW') %s
		ORDER BY table_schema, table_name`, a.schemaFilter("table_schema"))

	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, str(r["table_schema"])+"."+str(r["table_name"]))
	}
	return out, nil
}

// GetView implements phase.ViewHooks.
func (a *Adapter) GetView(ctx context.Context, name string) (grounding.View, error) {
	schema, table := a.ParseTableName(name)

	defRows, err := a.query(ctx, fmt.Sprintf(
		`SELECT view_definition FROM information_schema.views WHERE table_schema = '%s' AND table_name = '%s'`,
		a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return grounding.View{}, err
	}
	def := ""
	if len(defRows) > 0 {
		def = str(defRows[0]["view_definition"])
	}

	colRows, err := a.query(ctx, fmt.Sprintf(
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = '%s' AND table_name = '%s' ORDER BY ordinal_position`,
		a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return grounding.View{}, err
	}
	cols := make([]grounding.Column, 0, len(colRows))
	for _, r := range colRows {
		cols = append(cols, grounding.Column{Name: str(r["column_name"]), Type: str(r["data_type"])})
	}

	return grounding.View{Name: name, Schema: schema, RawName: table, Definition: def, Columns: cols}, nil
}

// EstimatedRowCount implements phase.RowCountHooks using pg_class.reltuples.
func (a *Adapter) EstimatedRowCount(ctx context.Context, tableName string) (int64, bool, error) {
	schema, table := a.ParseTableName(tableName)
	q := fmt.Sprintf(`
		SELECT c.reltuples AS estimate
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = '%s' AND c.relname = '%s'`, a.EscapeString(schema), a.EscapeString(table))

	rows, err := a.query(ctx, q)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	n, ok := grounding.ToNumber(rows[0]["estimate"])
	if !ok || n <= 0 {
		return 0, false, nil
	}
	return int64(n), true, nil
}

// CountRows implements phase.RowCountHooks.
func (a *Adapter) CountRows(ctx context.Context, tableName string) (int64, error) {
	rows, err := a.query(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", a.QuoteIdentifier(tableName)))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := int64Val(rows[0]["n"])
	return n, nil
}

// TableIndexes implements phase.IndexHooks using pg_indexes + pg_index for
// the uniqueness flag.
func (a *Adapter) TableIndexes(ctx context.Context, tableName string) ([]grounding.TableIndex, error) {
	schema, table := a.ParseTableName(tableName)
	q := fmt.Sprintf(`
		SELECT
			ix.relname AS index_name,
			a.attname AS column_name,
			array_position(i.indkey, a.attnum) AS position,
			i.indisunique AS is_unique
		FROM pg_index i
		JOIN pg_class t ON t.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class ix ON ix.oid = i.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
		WHERE n.nspname = '%s' AND t.relname = '%s'
		ORDER BY ix.relname, position`, a.EscapeString(schema), a.EscapeString(table))

	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	byName := map[string]*grounding.TableIndex{}
	unique := map[string]bool{}
	for _, r := range rows {
		iname := str(r["index_name"])
		idx, ok := byName[iname]
		if !ok {
			idx = &grounding.TableIndex{Name: iname}
			byName[iname] = idx
			order = append(order, iname)
			unique[iname] = boolVal(r["is_unique"])
		}
		idx.Columns = append(idx.Columns, str(r["column_name"]))
	}

	out := make([]grounding.TableIndex, 0, len(order))
	for _, iname := range order {
		idx := *byName[iname]
		idx.Unique = unique[iname]
		out = append(out, idx)
	}
	return out, nil
}

// TableConstraints implements phase.ConstraintHooks.
func (a *Adapter) TableConstraints(ctx context.Context, tableName string) ([]grounding.TableConstraint, error) {
	schema, table := a.ParseTableName(tableName)

	var out []grounding.TableConstraint

	pkUniqueRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT tc.constraint_name, tc.constraint_type, kcu.column_name, kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = '%s' AND tc.table_name = '%s'
		  AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
		ORDER BY tc.constraint_name, kcu.ordinal_position`, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	order := make([]string, 0)
	byName := map[string]*grounding.TableConstraint{}
	for _, r := range pkUniqueRows {
		cname := str(r["constraint_name"])
		c, ok := byName[cname]
		if !ok {
			ctype := grounding.ConstraintUnique
			if str(r["constraint_type"]) == "PRIMARY KEY" {
				ctype = grounding.ConstraintPrimaryKey
			}
			c = &grounding.TableConstraint{Name: cname, Type: ctype}
			byName[cname] = c
			order = append(order, cname)
		}
		c.Columns = append(c.Columns, str(r["column_name"]))
	}
	for _, cname := range order {
		out = append(out, *byName[cname])
	}

	checkRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT con.conname AS constraint_name, pg_get_constraintdef(con.oid) AS definition,
		       array_agg(a.attname ORDER BY a.attnum) AS columns
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(con.conkey)
		WHERE con.contype = 'c' AND n.nspname = '%s' AND t.relname = '%s'
		GROUP BY con.conname, con.oid`, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	for _, r := range checkRows {
		out = append(out, grounding.TableConstraint{
			Name:       str(r["constraint_name"]),
			Type:       grounding.ConstraintCheck,
			Columns:    parsePgArray(str(r["columns"])),
			Definition: str(r["definition"]),
		})
	}

	fkRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT %s, ccu.table_schema AS ref_schema, ccu.table_name AS ref_table
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = '%s' AND tc.table_name = '%s'
		ORDER BY tc.constraint_name, kcu.ordinal_position`, fkColumnsSelect, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	fkOrder := make([]string, 0)
	fkByName := map[string]*grounding.TableConstraint{}
	for _, r := range fkRows {
		cname := str(r["constraint_name"])
		c, ok := fkByName[cname]
		if !ok {
			c = &grounding.TableConstraint{
				Name:            cname,
				Type:            grounding.ConstraintForeignKey,
				ReferencedTable: str(r["ref_schema"]) + "." + str(r["ref_table"]),
			}
			fkByName[cname] = c
			fkOrder = append(fkOrder, cname)
		}
		c.Columns = append(c.Columns, str(r["from_column"]))
		c.ReferencedColumns = append(c.ReferencedColumns, str(r["to_column"]))
	}
	for _, cname := range fkOrder {
		out = append(out, *fkByName[cname])
	}

	columnRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT column_name, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = '%s' AND table_name = '%s'`,
		a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	for _, r := range columnRows {
		if str(r["is_nullable"]) == "NO" {
			out = append(out, grounding.TableConstraint{
				Type:    grounding.ConstraintNotNull,
				Columns: []string{str(r["column_name"])},
			})
		}
		if def := str(r["column_default"]); def != "" && !strings.HasPrefix(def, "nextval(") {
			out = append(out, grounding.TableConstraint{
				Type:         grounding.ConstraintDefault,
				Columns:      []string{str(r["column_name"])},
				DefaultValue: def,
			})
		}
	}

	return out, nil
}

func parsePgArray(s string) []string {
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// BulkTableStats implements phase.ColumnStatsHooks, prefetching from
// pg_stats.
func (a *Adapter) BulkTableStats(ctx context.Context, tableName string) (map[string]grounding.ColumnStats, error) {
	schema, table := a.ParseTableName(tableName)
	q := fmt.Sprintf(`
		SELECT attname, null_frac
		FROM pg_stats
		WHERE schemaname = '%s' AND tablename = '%s'`, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := map[string]grounding.ColumnStats{}
	for _, r := range rows {
		nf, ok := grounding.ToNumber(r["null_frac"])
		if !ok {
			continue
		}
		out[str(r["attname"])] = grounding.ColumnStats{NullFraction: &nf}
	}
	return out, nil
}

// ColumnStat implements phase.ColumnStatsHooks as a single-column live
// fallback when pg_stats has no row for this column.
func (a *Adapter) ColumnStat(ctx context.Context, tableName, columnName, columnType string) (grounding.ColumnStats, error) {
	col := a.QuoteIdentifier(columnName)
	q := fmt.Sprintf(`
		SELECT MIN(%s)::text AS min_v, MAX(%s)::text AS max_v,
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

// NativeEnumValues implements phase.ColumnValuesHooks using PostgreSQL's
// enum catalog.
func (a *Adapter) NativeEnumValues(ctx context.Context, qualifiedName, column, columnType string) ([]string, bool, error) {
	schema, table := a.ParseTableName(qualifiedName)
	q := fmt.Sprintf(`
		SELECT e.enumlabel
		FROM pg_attribute a
		JOIN pg_class t ON t.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_type ty ON ty.oid = a.atttypid
		JOIN pg_enum e ON e.enumtypid = ty.oid
		WHERE n.nspname = '%s' AND t.relname = '%s' AND a.attname = '%s'
		ORDER BY e.enumsortorder`, a.EscapeString(schema), a.EscapeString(table), a.EscapeString(column))

	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	values := make([]string, 0, len(rows))
	for _, r := range rows {
		values = append(values, str(r["enumlabel"]))
	}
	return values, true, nil
}

// DistinctValues implements phase.ColumnValuesHooks.
func (a *Adapter) DistinctValues(ctx context.Context, qualifiedName, column string, limit int) ([]string, bool, error) {
	col := a.QuoteIdentifier(column)
	q := fmt.Sprintf(`SELECT DISTINCT %s::text AS v FROM %s WHERE %s IS NOT NULL LIMIT %d`,
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
