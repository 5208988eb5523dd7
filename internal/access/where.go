package access

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Op is a field-level comparison in a Where tree.
type Op string

const (
	OpEquals    Op = "equals"
	OpNotEquals Op = "not_equals"
	OpIn        Op = "in"
	OpNotIn     Op = "not_in"
	OpContains  Op = "contains"
	OpExists    Op = "exists"
)

// Where is the declarative filter the predicate engine hands to the store: a
// conjunction, a disjunction, or a single field comparison. It serializes to
// the wire shape {"and":[...]} | {"or":[...]} | {"field":{"op":value}} and
// translates to SQL via Apply.
type Where struct {
	Conj  []Where
	Disj  []Where
	Field string
	Op    Op
	Value interface{}
}

func And(ws ...Where) Where {
	if len(ws) == 1 {
		return ws[0]
	}
	return Where{Conj: ws}
}

func Or(ws ...Where) Where {
	if len(ws) == 1 {
		return ws[0]
	}
	return Where{Disj: ws}
}

func Eq(field string, v interface{}) Where {
	return Where{Field: field, Op: OpEquals, Value: v}
}

func NotEq(field string, v interface{}) Where {
	return Where{Field: field, Op: OpNotEquals, Value: v}
}

func In(field string, vs interface{}) Where {
	return Where{Field: field, Op: OpIn, Value: vs}
}

func NotIn(field string, vs interface{}) Where {
	return Where{Field: field, Op: OpNotIn, Value: vs}
}

// Contains matches rows whose JSON-array column includes the value.
func Contains(field string, v interface{}) Where {
	return Where{Field: field, Op: OpContains, Value: v}
}

// Exists matches on column presence: true = NOT NULL, false = NULL.
func Exists(field string, present bool) Where {
	return Where{Field: field, Op: OpExists, Value: present}
}

// Nothing is the always-empty filter. Disallowed collections degrade to it so
// list views return no rows instead of failing the request.
func Nothing() Where {
	return In("id", []uint{})
}

// NotDeleted excludes soft-deleted rows.
func NotDeleted() Where {
	return Exists("deleted_at", false)
}

func (w Where) MarshalJSON() ([]byte, error) {
	switch {
	case len(w.Conj) > 0:
		return json.Marshal(map[string]interface{}{"and": w.Conj})
	case len(w.Disj) > 0:
		return json.Marshal(map[string]interface{}{"or": w.Disj})
	default:
		if w.Value == nil && w.Op != OpEquals && w.Op != OpNotEquals {
			// "in"/"not_in" with a nil list still needs an array on the wire.
			w.Value = []interface{}{}
		}
		return json.Marshal(map[string]interface{}{
			w.Field: map[string]interface{}{string(w.Op): w.Value},
		})
	}
}

// Apply pushes the filter down into a gorm query.
func (w Where) Apply(tx *gorm.DB) *gorm.DB {
	sql, args := w.build()
	return tx.Where(sql, args...)
}

func (w Where) build() (string, []interface{}) {
	switch {
	case len(w.Conj) > 0:
		return joinClauses(w.Conj, " AND ")
	case len(w.Disj) > 0:
		return joinClauses(w.Disj, " OR ")
	}

	field := quoteIdent(w.Field)
	switch w.Op {
	case OpEquals:
		if w.Value == nil {
			return field + " IS NULL", nil
		}
		return field + " = ?", []interface{}{w.Value}
	case OpNotEquals:
		if w.Value == nil {
			return field + " IS NOT NULL", nil
		}
		return field + " <> ?", []interface{}{w.Value}
	case OpIn:
		if emptyList(w.Value) {
			return "1 = 0", nil
		}
		return field + " IN ?", []interface{}{w.Value}
	case OpNotIn:
		if emptyList(w.Value) {
			return "1 = 1", nil
		}
		return field + " NOT IN ?", []interface{}{w.Value}
	case OpContains:
		// JSON-array membership on a text/json column. Values are stored
		// JSON-encoded, so a quoted needle is exact for string members.
		return field + " LIKE ?", []interface{}{"%" + jsonNeedle(w.Value) + "%"}
	case OpExists:
		if present, _ := w.Value.(bool); present {
			return field + " IS NOT NULL", nil
		}
		return field + " IS NULL", nil
	default:
		return "1 = 0", nil
	}
}

func joinClauses(ws []Where, sep string) (string, []interface{}) {
	parts := make([]string, 0, len(ws))
	var args []interface{}
	for _, w := range ws {
		sql, a := w.build()
		parts = append(parts, "("+sql+")")
		args = append(args, a...)
	}
	return strings.Join(parts, sep), args
}

func quoteIdent(field string) string {
	// Field names come from the predicate engine itself, never from request
	// input; the strip is a belt against future misuse.
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, field)
}

func emptyList(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []uint:
		return len(t) == 0
	case []int:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	default:
		return false
	}
}

func jsonNeedle(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
