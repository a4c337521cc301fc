package postgres

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"
)

// ParseCheckValues implements phase.CheckValueParser. It parses the CHECK
// expression's AST via pg_query_go rather than regex, which is more robust
// against parenthesization and whitespace variance than the shared regex
// shapes. A leading CHECK keyword (as pg_get_constraintdef emits it) is
// stripped, and the remaining expression is wrapped in a throwaway WHERE
// clause since pg_query_go parses full statements, not bare expressions.
//
// Only the two membership shapes regex can't reliably cover are handled
// here: "column IN (...)" and "column = ANY(ARRAY[...])". Both raw-parse to
// an A_Expr with operator "=" whose right-hand side is a literal list
// (List for IN, A_ArrayExpr for ANY) — a plain equality's right-hand side
// is always a single node, never a list, so that shape alone rules out
// non-membership tests like "status <> 'banned'" without needing to
// classify the A_Expr's Kind. Every list element must be a bare string
// constant, or the whole match is rejected, so a ColumnRef (e.g. the
// column's own name appearing as an identifier elsewhere in the
// expression) can never be mistaken for an enum value.
func (a *Adapter) ParseCheckValues(definition, column string) ([]string, bool) {
	expr := strings.TrimSpace(definition)
	if len(expr) >= len("CHECK") && strings.EqualFold(expr[:len("CHECK")], "CHECK") {
		expr = expr[len("CHECK"):]
	}
	wrapped := fmt.Sprintf("SELECT 1 WHERE %s", expr)
	tree, err := pgquery.Parse(wrapped)
	if err != nil || len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return nil, false
	}
	sel, ok := tree.Stmts[0].Stmt.Node.(*pgquery.Node_SelectStmt)
	if !ok || sel.SelectStmt.WhereClause == nil {
		return nil, false
	}
	return membershipValues(sel.SelectStmt.WhereClause, column)
}

// membershipValues returns the literal string values of a "column IN (...)"
// or "column = ANY(ARRAY[...])" expression, or ok=false if node isn't one
// of those two shapes against column.
func membershipValues(node *pgquery.Node, column string) ([]string, bool) {
	aexpr, ok := node.Node.(*pgquery.Node_AExpr)
	if !ok {
		return nil, false
	}
	expr := aexpr.AExpr
	if !isEqualityOperator(expr.Name) {
		return nil, false
	}
	if !refersToColumn(expr.Lexpr, column) {
		return nil, false
	}
	return constList(expr.Rexpr)
}

func isEqualityOperator(name []*pgquery.Node) bool {
	if len(name) != 1 {
		return false
	}
	s, ok := name[0].Node.(*pgquery.Node_String_)
	return ok && s.String_.Sval == "="
}

// refersToColumn reports whether node is a (possibly cast) ColumnRef naming
// column.
func refersToColumn(node *pgquery.Node, column string) bool {
	if node == nil {
		return false
	}
	if cast, ok := node.Node.(*pgquery.Node_TypeCast); ok {
		return refersToColumn(cast.TypeCast.Arg, column)
	}
	ref, ok := node.Node.(*pgquery.Node_ColumnRef)
	if !ok || len(ref.ColumnRef.Fields) == 0 {
		return false
	}
	last := ref.ColumnRef.Fields[len(ref.ColumnRef.Fields)-1]
	s, ok := last.Node.(*pgquery.Node_String_)
	return ok && s.String_.Sval == column
}

// constList returns the literal string values of node when it is a List
// (IN's right-hand side) or an A_ArrayExpr (ANY(ARRAY[...])'s right-hand
// side) whose every element is a bare string constant.
func constList(node *pgquery.Node) ([]string, bool) {
	if node == nil {
		return nil, false
	}
	var items []*pgquery.Node
	switch n := node.Node.(type) {
	case *pgquery.Node_List:
		items = n.List.Items
	case *pgquery.Node_AArrayExpr:
		items = n.AArrayExpr.Elements
	default:
		return nil, false
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		aconst, ok := item.Node.(*pgquery.Node_AConst)
		if !ok {
			return nil, false
		}
		sval := aconst.AConst.GetSval()
		if sval == nil {
			return nil, false
		}
		values = append(values, sval.Sval)
	}
	if len(values) == 0 {
		return nil, false
	}
	return values, true
}
