package sqlite

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
	n, ok := grounding.ToNumber(v)
	return ok && n != 0
}

// CollectInfo implements phase.InfoHooks.
func (a *Adapter) CollectInfo(ctx context.Context) (grounding.DialectInfo, error) {
	rows, err := a.query(ctx, "SELECT sqlite_version() AS version")
	if err != nil {
		return grounding.DialectInfo{}, err
	}
	info := grounding.DialectInfo{Dialect: string(grounding.DialectSQLite)}
	if len(rows) > 0 {
		info.Version = str(rows[0]["version"])
	}
	return info, nil
}

// AllTableNames implements phase.TableHooks.
func (a *Adapter) AllTableNames(ctx context.Context) ([]string, error) {
	rows, err := a.query(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, str(r["name"]))
	}
	return out, nil
}

// GetTable implements phase.TableHooks.
func (a *Adapter) GetTable(ctx context.Context, name string) (grounding.Table, error) {
	rows, err := a.query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", a.QuoteIdentifier(name)))
	if err != nil {
		return grounding.Table{}, err
	}
	cols := make([]grounding.Column, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, grounding.Column{Name: str(r["name"]), Type: strings.ToUpper(str(r["type"]))})
	}
	return grounding.Table{Name: name, RawName: name, Columns: cols}, nil
}

// OutgoingRelations implements phase.TableHooks via PRAGMA foreign_key_list,
// which already groups composite FKs under a shared "id" column.
func (a *Adapter) OutgoingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	rows, err := a.query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", a.QuoteIdentifier(name)))
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	byID := map[string]*grounding.Relationship{}
	for _, r := range rows {
		id := str(r["id"])
		rel, ok := byID[id]
		if !ok {
			rel = &grounding.Relationship{Table: name, ReferencedTable: str(r["table"])}
			byID[id] = rel
			order = append(order, id)
		}
		rel.From = append(rel.From, str(r["from"]))
		rel.To = append(rel.To, str(r["to"]))
	}

	out := make([]grounding.Relationship, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// IncomingRelations implements phase.TableHooks. SQLite has no reverse-FK
// catalog, so the first call scans every table's outgoing FKs once and
// caches the result; subsequent calls filter the cache.
func (a *Adapter) IncomingRelations(ctx context.Context, name string) ([]grounding.Relationship, error) {
	if a.incomingCache == nil {
		if err := a.buildIncomingCache(ctx); err != nil {
			return nil, err
		}
	}
	return a.incomingCache[name], nil
}

func (a *Adapter) buildIncomingCache(ctx context.Context) error {
	a.incomingCache = map[string][]grounding.Relationship{}
	names, err := a.AllTableNames(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		rels, err := a.OutgoingRelations(ctx, n)
		if err != nil {
			return err
		}
		for _, r := range rels {
			a.incomingCache[r.ReferencedTable] = append(a.incomingCache[r.ReferencedTable], r)
		}
	}
	return nil
}

// AllViewNames implements phase.ViewHooks.
func (a *Adapter) AllViewNames(ctx context.Context) ([]string, error) {
	rows, err := a.query(ctx, `SELECT name FROM sqlite_master WHERE type = 'view' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, str(r["name"]))
	}
	return out, nil
}

// GetView implements phase.ViewHooks.
func (a *Adapter) GetView(ctx context.Context, name string) (grounding.View, error) {
	defRows, err := a.query(ctx, fmt.Sprintf(
		"SELECT sql FROM sqlite_master WHERE type = 'view' AND name = '%s'", a.EscapeString(name)))
	if err != nil {
		return grounding.View{}, err
	}
	def := ""
	if len(defRows) > 0 {
		def = str(defRows[0]["sql"])
	}

	colRows, err := a.query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", a.QuoteIdentifier(name)))
	if err != nil {
		return grounding.View{}, err
	}
	cols := make([]grounding.Column, 0, len(colRows))
	for _, r := range colRows {
		cols = append(cols, grounding.Column{Name: str(r["name"]), Type: strings.ToUpper(str(r["type"]))})
	}

	return grounding.View{Name: name, RawName: name, Definition: def, Columns: cols}, nil
}

// EstimatedRowCount implements phase.RowCountHooks. SQLite has no cheap
// estimate source, so this always falls through to CountRows.
func (a *Adapter) EstimatedRowCount(ctx context.Context, tableName string) (int64, bool, error) {
	return 0, false, nil
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
	n, _ := grounding.ToNumber(rows[0]["n"])
	return int64(n), nil
}

// TableIndexes implements phase.IndexHooks via PRAGMA index_list/index_info.
func (a *Adapter) TableIndexes(ctx context.Context, tableName string) ([]grounding.TableIndex, error) {
	listRows, err := a.query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", a.QuoteIdentifier(tableName)))
	if err != nil {
		return nil, err
	}
	var out []grounding.TableIndex
	for _, lr := range listRows {
		iname := str(lr["name"])
		infoRows, err := a.query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", a.QuoteIdentifier(iname)))
		if err != nil {
			return nil, err
		}
		idx := grounding.TableIndex{Name: iname, Unique: boolVal(lr["unique"])}
		for _, ir := range infoRows {
			idx.Columns = append(idx.Columns, str(ir["name"]))
		}
		out = append(out, idx)
	}
	return out, nil
}

// TableConstraints implements phase.ConstraintHooks from PRAGMA table_info
// (PK, NOT NULL, DEFAULT) and PRAGMA foreign_key_list (FK). SQLite has no
// catalog for CHECK constraints; they are not emitted for this dialect.
func (a *Adapter) TableConstraints(ctx context.Context, tableName string) ([]grounding.TableConstraint, error) {
	var out []grounding.TableConstraint

	infoRows, err := a.query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", a.QuoteIdentifier(tableName)))
	if err != nil {
		return nil, err
	}
	var pkCols []string
	for _, r := range infoRows {
		if pk, _ := grounding.ToNumber(r["pk"]); pk > 0 {
			pkCols = append(pkCols, str(r["name"]))
		}
	}
	if len(pkCols) > 0 {
		out = append(out, grounding.TableConstraint{Type: grounding.ConstraintPrimaryKey, Columns: pkCols})
	}
	for _, r := range infoRows {
		if boolVal(r["notnull"]) {
			out = append(out, grounding.TableConstraint{Type: grounding.ConstraintNotNull, Columns: []string{str(r["name"])}})
		}
		if def := str(r["dflt_value"]); def != "" {
			out = append(out, grounding.TableConstraint{
				Type: grounding.ConstraintDefault, Columns: []string{str(r["name"])}, DefaultValue: def,
			})
		}
	}

	fkRows, err := a.query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", a.QuoteIdentifier(tableName)))
	if err != nil {
		return nil, err
	}
	order := make([]string, 0)
	byID := map[string]*grounding.TableConstraint{}
	for _, r := range fkRows {
		id := str(r["id"])
		c, ok := byID[id]
		if !ok {
			c = &grounding.TableConstraint{Type: grounding.ConstraintForeignKey, ReferencedTable: str(r["table"])}
			byID[id] = c
			order = append(order, id)
		}
		c.Columns = append(c.Columns, str(r["from"]))
		c.ReferencedColumns = append(c.ReferencedColumns, str(r["to"]))
	}
	for _, id := range order {
		out = append(out, *byID[id])
	}

	return out, nil
}

// BulkTableStats implements phase.ColumnStatsHooks. SQLite has no
// equivalent of pg_stats, so every column falls through to ColumnStat.
func (a *Adapter) BulkTableStats(ctx context.Context, tableName string) (map[string]grounding.ColumnStats, error) {
	return nil, nil
}

// ColumnStat implements phase.ColumnStatsHooks.
func (a *Adapter) ColumnStat(ctx context.Context, tableName, columnName, columnType string) (grounding.ColumnStats, error) {
	col := a.QuoteIdentifier(columnName)
	q := fmt.Sprintf(`
		SELECT CAST(MIN(%s) AS TEXT) AS min_v, CAST(MAX(%s) AS TEXT) AS max_v,
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

// NativeEnumValues implements phase.ColumnValuesHooks. SQLite has no native
// enum type, so this source is never a hit.
func (a *Adapter) NativeEnumValues(ctx context.Context, qualifiedName, column, columnType string) ([]string, bool, error) {
	return nil, false, nil
}

// DistinctValues implements phase.ColumnValuesHooks.
func (a *Adapter) DistinctValues(ctx context.Context, qualifiedName, column string, limit int) ([]string, bool, error) {
	col := a.QuoteIdentifier(column)
	q := fmt.Sprintf(`SELECT DISTINCT CAST(%s AS TEXT) AS v FROM %s WHERE %s IS NOT NULL LIMIT %d`,
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
