package mysql

import (
	"context"
	"fmt"
	"regexp"
	"strings"

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

// enumType matches MySQL's ENUM('a','b',...) COLUMN_TYPE rendering.
var enumType = regexp.MustCompile(`(?i)^enum\((.*)\)$`)

var quotedLiteral = regexp.MustCompile(`'((?:[^']|'')*)'`)

func parseEnumColumnType(columnType string) ([]string, bool) {
	m := enumType.FindStringSubmatch(strings.TrimSpace(columnType))
	if m == nil {
		return nil, false
	}
	matches := quotedLiteral.FindAllStringSubmatch(m[1], -1)
	if len(matches) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(matches))
	for _, mm := range matches {
		out = append(out, strings.ReplaceAll(mm[1], "''", "'"))
	}
	return out, true
}

func (a *Adapter) CollectInfo(ctx context.Context) (grounding.DialectInfo, error) {
	rows, err := a.query(ctx, "SELECT VERSION() AS version, DATABASE() AS database_name")
	if err != nil {
		return grounding.DialectInfo{}, err
	}
	info := grounding.DialectInfo{Dialect: string(grounding.DialectMySQL)}
	if len(rows) > 0 {
		info.Version = str(rows[0]["version"])
		info.Database = str(rows[0]["database_name"])
	}
	return info, nil
}

func (a *Adapter) AllTableNames(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`
		SELECT table_schema, table_name FROM information_schema.tables
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

func (a *Adapter) GetTable(ctx context.Context, name string) (grounding.Table, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT column_name, column_type FROM information_schema.columns
		WHERE table_schema = '%s' AND table_name = '%s'
		ORDER BY ordinal_position`, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return grounding.Table{}, err
	}
	cols := make([]grounding.Column, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, grounding.Column{Name: str(r["column_name"]), Type: str(r["column_type"])})
	}
	return grounding.Table{Name: name, Schema: schema, RawName: table, Columns: cols}, nil
}

const fkSelect = `kcu.constraint_name, kcu.column_name AS from_column, kcu.ordinal_position, kcu.referenced_column_name AS to_column`

func (a *Adapter) OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT %s, kcu.referenced_table_schema AS ref_schema, kcu.referenced_table_name AS ref_table
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = '%s' AND kcu.table_name = '%s' AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`, fkSelect, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return groupRelationships(rows, func(r grounding.Row) grounding.Relationship {
		return grounding.Relationship{Table: name, ReferencedTable: str(r["ref_schema"]) + "." + str(r["ref_table"])}
	}), nil
}

func (a *Adapter) IncomingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT %s, kcu.table_schema AS src_schema, kcu.table_name AS src_table
		FROM information_schema.key_column_usage kcu
		WHERE kcu.referenced_table_schema = '%s' AND kcu.referenced_table_name = '%s'
		ORDER BY kcu.constraint_name, kcu.ordinal_position`, fkSelect, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return groupRelationships(rows, func(r grounding.Row) grounding.Relationship {
		return grounding.Relationship{Table: str(r["src_schema"]) + "." + str(r["src_table"]), ReferencedTable: name}
	}), nil
}

func groupRelationships(rows []grounding.Row, seed func(grounding.Row) grounding.Relationship) []grounding.Relationship {
	order := make([]string, 0)
	byConstraint := map[string]*grounding.Relationship{}
	for _, r := range rows {
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
	q := fmt.Sprintf(`
		SELECT table_schema, table_name FROM information_schema.views %s
		ORDER BY table_schema, table_name`, strings.Replace(a.schemaFilter("table_schema"), "AND", "WHERE", 1))
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
		`SELECT column_name, column_type FROM information_schema.columns WHERE table_schema = '%s' AND table_name = '%s' ORDER BY ordinal_position`,
		a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return grounding.View{}, err
	}
	cols := make([]grounding.Column, 0, len(colRows))
	for _, r := range colRows {
		cols = append(cols, grounding.Column{Name: str(r["column_name"]), Type: str(r["column_type"])})
	}
	return grounding.View{Name: name, Schema: schema, RawName: table, Definition: def, Columns: cols}, nil
}

func (a *Adapter) EstimatedRowCount(ctx context.Context, tableName string) (int64, bool, error) {
	schema, table := a.ParseTableName(tableName)
	q := fmt.Sprintf(`
		SELECT table_rows FROM information_schema.tables
		WHERE table_schema = '%s' AND table_name = '%s'`, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	n, ok := grounding.ToNumber(rows[0]["table_rows"])
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

func (a *Adapter) TableIndexes(ctx context.Context, tableName string) ([]grounding.TableIndex, error) {
	schema, table := a.ParseTableName(tableName)
	q := fmt.Sprintf(`
		SELECT index_name, column_name, seq_in_index, non_unique
		FROM information_schema.statistics
		WHERE table_schema = '%s' AND table_name = '%s'
		ORDER BY index_name, seq_in_index`, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0)
	byName := map[string]*grounding.TableIndex{}
	nonUnique := map[string]bool{}
	for _, r := range rows {
		iname := str(r["index_name"])
		idx, ok := byName[iname]
		if !ok {
			idx = &grounding.TableIndex{Name: iname}
			byName[iname] = idx
			order = append(order, iname)
			n, _ := grounding.ToNumber(r["non_unique"])
			nonUnique[iname] = n != 0
		}
		idx.Columns = append(idx.Columns, str(r["column_name"]))
	}
	out := make([]grounding.TableIndex, 0, len(order))
	for _, iname := range order {
		idx := *byName[iname]
		idx.Unique = !nonUnique[iname]
		out = append(out, idx)
	}
	return out, nil
}

func (a *Adapter) TableConstraints(ctx context.Context, tableName string) ([]grounding.TableConstraint, error) {
	schema, table := a.ParseTableName(tableName)
	var out []grounding.TableConstraint

	pkUniqueRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT tc.constraint_name, tc.constraint_type, kcu.column_name, kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = '%s' AND tc.table_name = '%s' AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
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

	fkRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT %s, kcu.referenced_table_schema AS ref_schema, kcu.referenced_table_name AS ref_table
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = '%s' AND kcu.table_name = '%s' AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`, fkSelect, a.EscapeString(schema), a.EscapeString(table)))
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
				Name: cname, Type: grounding.ConstraintForeignKey,
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

	colRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT column_name, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = '%s' AND table_name = '%s'`, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	for _, r := range colRows {
		if str(r["is_nullable"]) == "NO" {
			out = append(out, grounding.TableConstraint{Type: grounding.ConstraintNotNull, Columns: []string{str(r["column_name"])}})
		}
		if def := str(r["column_default"]); def != "" {
			out = append(out, grounding.TableConstraint{
				Type: grounding.ConstraintDefault, Columns: []string{str(r["column_name"])}, DefaultValue: def,
			})
		}
	}

	return out, nil
}

func (a *Adapter) BulkTableStats(ctx context.Context, tableName string) (map[string]grounding.ColumnStats, error) {
	return nil, nil
}

func (a *Adapter) ColumnStat(ctx context.Context, tableName, columnName, columnType string) (grounding.ColumnStats, error) {
	col := a.QuoteIdentifier(columnName)
	q := fmt.Sprintf(`
		SELECT CAST(MIN(%s) AS CHAR) AS min_v, CAST(MAX(%s) AS CHAR) AS max_v,
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

// NativeEnumValues implements phase.ColumnValuesHooks by parsing
// COLUMN_TYPE's ENUM('a','b',...) rendering directly — no separate catalog
// query is needed.
func (a *Adapter) NativeEnumValues(ctx context.Context, qualifiedName, column, columnType string) ([]string, bool, error) {
	values, ok := parseEnumColumnType(columnType)
	return values, ok, nil
}

func (a *Adapter) DistinctValues(ctx context.Context, qualifiedName, column string, limit int) ([]string, bool, error) {
	col := a.QuoteIdentifier(column)
	q := fmt.Sprintf(`SELECT DISTINCT CAST(%s AS CHAR) AS v FROM %s WHERE %s IS NOT NULL LIMIT %d`,
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
