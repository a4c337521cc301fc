package sqlserver

import (
	"context"
	"fmt"
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

func boolVal(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func (a *Adapter) CollectInfo(ctx context.Context) (grounding.DialectInfo, error) {
	rows, err := a.query(ctx, "SELECT @@VERSION AS version, DB_NAME() AS database_name")
	if err != nil {
		return grounding.DialectInfo{}, err
	}
	info := grounding.DialectInfo{Dialect: string(grounding.DialectSQLServer)}
	if len(rows) > 0 {
		info.Version = str(rows[0]["version"])
		info.Database = str(rows[0]["database_name"])
	}
	return info, nil
}

func (a *Adapter) AllTableNames(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`
		SELECT s.name AS schema_name, t.name AS table_name
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE 1=1 %s
		ORDER BY s.name, t.name`, a.schemaFilter("s.name"))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, str(r["schema_name"])+"."+str(r["table_name"]))
	}
	return out, nil
}

func (a *Adapter) GetTable(ctx context.Context, name string) (grounding.Table, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT c.name AS column_name,
		       ty.name + CASE WHEN ty.name IN ('varchar','nvarchar','char','nchar') THEN '(' + CAST(c.max_length AS VARCHAR) + ')' ELSE '' END AS column_type,
		       c.is_identity AS is_identity
		FROM sys.columns c
		JOIN sys.tables t ON c.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.types ty ON c.user_type_id = ty.user_type_id
		WHERE s.name = '%s' AND t.name = '%s'
		ORDER BY c.column_id`, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return grounding.Table{}, err
	}
	cols := make([]grounding.Column, 0, len(rows))
	for _, r := range rows {
		t := str(r["column_type"])
		if boolVal(r["is_identity"]) {
			t = "identity(" + t + ")"
		}
		cols = append(cols, grounding.Column{Name: str(r["column_name"]), Type: t})
	}
	return grounding.Table{Name: name, Schema: schema, RawName: table, Columns: cols}, nil
}

const fkSelect = `
		fk.name AS constraint_name, pc.name AS from_column, rc.name AS to_column, fkc.constraint_column_id AS ordinal`

func (a *Adapter) OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	schema, table := a.ParseTableName(name)
	q := fmt.Sprintf(`
		SELECT %s, rs.name AS ref_schema, rt.name AS ref_table
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		JOIN sys.tables pt ON fk.parent_object_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id
		JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
		JOIN sys.schemas rs ON rt.schema_id = rs.schema_id
		JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
		WHERE ps.name = '%s' AND pt.name = '%s'
		ORDER BY fk.name, fkc.constraint_column_id`, fkSelect, a.EscapeString(schema), a.EscapeString(table))
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
		SELECT %s, ps.name AS src_schema, pt.name AS src_table
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		JOIN sys.tables pt ON fk.parent_object_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id
		JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
		JOIN sys.schemas rs ON rt.schema_id = rs.schema_id
		JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
		WHERE rs.name = '%s' AND rt.name = '%s'
		ORDER BY fk.name, fkc.constraint_column_id`, fkSelect, a.EscapeString(schema), a.EscapeString(table))
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
		SELECT s.name AS schema_name, v.name AS view_name
		FROM sys.views v
		JOIN sys.schemas s ON v.schema_id = s.schema_id
		WHERE 1=1 %s
		ORDER BY s.name, v.name`, a.schemaFilter("s.name"))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, str(r["schema_name"])+"."+str(r["view_name"]))
	}
	return out, nil
}

func (a *Adapter) GetView(ctx context.Context, name string) (grounding.View, error) {
	schema, table := a.ParseTableName(name)
	defRows, err := a.query(ctx, fmt.Sprintf(
		`SELECT OBJECT_DEFINITION(OBJECT_ID('%s.%s')) AS definition`, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return grounding.View{}, err
	}
	def := ""
	if len(defRows) > 0 {
		def = str(defRows[0]["definition"])
	}
	colRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT c.name AS column_name, ty.name AS column_type
		FROM sys.columns c
		JOIN sys.views v ON c.object_id = v.object_id
		JOIN sys.schemas s ON v.schema_id = s.schema_id
		JOIN sys.types ty ON c.user_type_id = ty.user_type_id
		WHERE s.name = '%s' AND v.name = '%s'
		ORDER BY c.column_id`, a.EscapeString(schema), a.EscapeString(table)))
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
		SELECT SUM(p.rows) AS row_count
		FROM sys.partitions p
		JOIN sys.tables t ON p.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = '%s' AND t.name = '%s' AND p.index_id IN (0, 1)`,
		a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	n, ok := grounding.ToNumber(rows[0]["row_count"])
	if !ok || n <= 0 {
		return 0, false, nil
	}
	return int64(n), true, nil
}

func (a *Adapter) CountRows(ctx context.Context, tableName string) (int64, error) {
	rows, err := a.query(ctx, fmt.Sprintf("SELECT COUNT_BIG(*) AS n FROM %s", a.QuoteIdentifier(tableName)))
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
		SELECT i.name AS index_name, i.is_unique, i.type_desc, c.name AS column_name, ic.key_ordinal
		FROM sys.indexes i
		JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = '%s' AND t.name = '%s' AND i.name IS NOT NULL
		ORDER BY i.name, ic.key_ordinal`, a.EscapeString(schema), a.EscapeString(table))
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0)
	byName := map[string]*grounding.TableIndex{}
	for _, r := range rows {
		iname := str(r["index_name"])
		idx, ok := byName[iname]
		if !ok {
			idx = &grounding.TableIndex{Name: iname, Unique: boolVal(r["is_unique"]), Type: strings.ToLower(str(r["type_desc"]))}
			byName[iname] = idx
			order = append(order, iname)
		}
		idx.Columns = append(idx.Columns, str(r["column_name"]))
	}
	out := make([]grounding.TableIndex, 0, len(order))
	for _, iname := range order {
		out = append(out, *byName[iname])
	}
	return out, nil
}

func (a *Adapter) TableConstraints(ctx context.Context, tableName string) ([]grounding.TableConstraint, error) {
	schema, table := a.ParseTableName(tableName)
	var out []grounding.TableConstraint

	keyRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT kc.name AS constraint_name, kc.type AS ctype, c.name AS column_name, ic.key_ordinal
		FROM sys.key_constraints kc
		JOIN sys.index_columns ic ON kc.parent_object_id = ic.object_id AND kc.unique_index_id = ic.index_id
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		JOIN sys.tables t ON kc.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = '%s' AND t.name = '%s'
		ORDER BY kc.name, ic.key_ordinal`, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	order := make([]string, 0)
	byName := map[string]*grounding.TableConstraint{}
	for _, r := range keyRows {
		cname := str(r["constraint_name"])
		c, ok := byName[cname]
		if !ok {
			ctype := grounding.ConstraintUnique
			if strings.TrimSpace(str(r["ctype"])) == "PK" {
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
		SELECT %s, rs.name AS ref_schema, rt.name AS ref_table
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		JOIN sys.tables pt ON fk.parent_object_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id
		JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
		JOIN sys.schemas rs ON rt.schema_id = rs.schema_id
		JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
		WHERE ps.name = '%s' AND pt.name = '%s'
		ORDER BY fk.name, fkc.constraint_column_id`, fkSelect, a.EscapeString(schema), a.EscapeString(table)))
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

	checkRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT cc.name AS constraint_name, cc.definition, c.name AS column_name
		FROM sys.check_constraints cc
		JOIN sys.tables t ON cc.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		LEFT JOIN sys.columns c ON cc.parent_object_id = c.object_id AND cc.parent_column_id = c.column_id
		WHERE s.name = '%s' AND t.name = '%s'`, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	for _, r := range checkRows {
		cols := []string{}
		if col := str(r["column_name"]); col != "" {
			cols = []string{col}
		}
		out = append(out, grounding.TableConstraint{
			Name: str(r["constraint_name"]), Type: grounding.ConstraintCheck,
			Columns: cols, Definition: str(r["definition"]),
		})
	}

	colRows, err := a.query(ctx, fmt.Sprintf(`
		SELECT c.name AS column_name, c.is_nullable, dc.definition AS default_value
		FROM sys.columns c
		JOIN sys.tables t ON c.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		LEFT JOIN sys.default_constraints dc ON dc.parent_object_id = c.object_id AND dc.parent_column_id = c.column_id
		WHERE s.name = '%s' AND t.name = '%s'`, a.EscapeString(schema), a.EscapeString(table)))
	if err != nil {
		return nil, err
	}
	for _, r := range colRows {
		if !boolVal(r["is_nullable"]) {
			out = append(out, grounding.TableConstraint{Type: grounding.ConstraintNotNull, Columns: []string{str(r["column_name"])}})
		}
		if def := str(r["default_value"]); def != "" {
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
		SELECT CAST(MIN(%s) AS NVARCHAR(4000)) AS min_v, CAST(MAX(%s) AS NVARCHAR(4000)) AS max_v,
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

// NativeEnumValues is always false — SQL Server has no native enum type;
// caller-declared CHECK constraints are the only source of closed value
// sets, handled by the dialect-agnostic CHECK-parsing layer.
func (a *Adapter) NativeEnumValues(ctx context.Context, qualifiedName, column, columnType string) ([]string, bool, error) {
	return nil, false, nil
}

func (a *Adapter) DistinctValues(ctx context.Context, qualifiedName, column string, limit int) ([]string, bool, error) {
	col := a.QuoteIdentifier(column)
	q := fmt.Sprintf(`SELECT DISTINCT TOP %d CAST(%s AS NVARCHAR(4000)) AS v FROM %s WHERE %s IS NOT NULL`,
		limit+1, col, a.QuoteIdentifier(qualifiedName), col)
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
