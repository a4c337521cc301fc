package postgres

import "github.com/sqlgrounder/sqlgrounder/grounding"

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
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
	case string:
		return t == "t" || t == "true" || t == "YES" || t == "1"
	case []byte:
		s := string(t)
		return s == "t" || s == "true" || s == "YES" || s == "1"
	default:
		return false
	}
}

func int64Val(v any) (int64, bool) {
	n, ok := grounding.ToNumber(v)
	if !ok {
		return 0, false
	}
	return int64(n), true
}
