package domain

import "strings"

// reservedKeywords is the fixed set of SQL syntax words that must never be
// mistaken for column or table identifiers. Matching is case-insensitive.
// The `*` sentinel is deliberately not in this set.
var reservedKeywords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "join": {}, "inner": {},
	"left": {}, "right": {}, "full": {}, "outer": {}, "cross": {},
	"on": {}, "and": {}, "or": {}, "not": {}, "in": {}, "is": {},
	"null": {}, "like": {}, "ilike": {}, "between": {}, "exists": {},
	"case": {}, "when": {}, "then": {}, "else": {}, "end": {},
	"as": {}, "distinct": {}, "all": {}, "group": {}, "by": {},
	"order": {}, "having": {}, "limit": {}, "offset": {},
	"union": {}, "intersect": {}, "except": {},
	"insert": {}, "into": {}, "values": {}, "update": {}, "set": {},
	"delete": {}, "create": {}, "drop": {}, "alter": {},
	"table": {}, "view": {}, "index": {}, "with": {},
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {},
	"coalesce": {}, "cast": {}, "asc": {}, "desc": {},
	"true": {}, "false": {}, "using": {}, "returning": {},
}

// isReservedKeyword reports whether word is SQL syntax rather than an
// identifier.
func isReservedKeyword(word string) bool {
	_, ok := reservedKeywords[strings.ToLower(word)]
	return ok
}
