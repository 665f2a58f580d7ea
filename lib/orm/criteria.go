package orm

import (
	"reflect"
	"sort"
)

// --------------------------------------------------------------------------
// Criteria
// --------------------------------------------------------------------------

// Op is a comparison operator of a condition.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpIn:
		return "in"
	default:
		return "unknown"
	}
}

// Condition is a single predicate applied to one attribute.
type Condition struct {
	Op    Op
	Value interface{}
}

// Condition constructors.
func Eq(v interface{}) Condition  { return Condition{Op: OpEq, Value: v} }
func Ne(v interface{}) Condition  { return Condition{Op: OpNe, Value: v} }
func Lt(v interface{}) Condition  { return Condition{Op: OpLt, Value: v} }
func Lte(v interface{}) Condition { return Condition{Op: OpLte, Value: v} }
func Gt(v interface{}) Condition  { return Condition{Op: OpGt, Value: v} }
func Gte(v interface{}) Condition { return Condition{Op: OpGte, Value: v} }
func In(vs ...interface{}) Condition {
	return Condition{Op: OpIn, Value: vs}
}

// SortField names an attribute to order results by.
type SortField struct {
	Attr string
	Desc bool
}

// Criteria is a structured filter over a collection: per-attribute
// conditions combined with AND, plus optional pagination and ordering.
// The zero value matches every record in insertion order.
type Criteria struct {
	Where map[string][]Condition
	Limit int // 0 = no limit
	Skip  int
	Sort  []SortField
}

// validate checks every referenced attribute against the definition.
func (c *Criteria) validate(def *CollectionDefinition) error {
	for attr := range c.Where {
		if _, ok := def.Attribute(attr); !ok {
			return newError(KindValidation, "unknown attribute %q in criteria for collection %q", attr, def.Name)
		}
	}
	for _, s := range c.Sort {
		if _, ok := def.Attribute(s.Attr); !ok {
			return newError(KindValidation, "unknown sort attribute %q for collection %q", s.Attr, def.Name)
		}
	}
	if c.Limit < 0 || c.Skip < 0 {
		return newError(KindValidation, "limit and skip must be non-negative")
	}
	return nil
}

// eqCondition returns the value of a plain equality condition on attr, if the
// criteria contains exactly one condition for it. Used for point-lookup fast
// paths.
func (c *Criteria) eqCondition(attr string) (interface{}, bool) {
	conds := c.Where[attr]
	if len(conds) == 1 && conds[0].Op == OpEq {
		return conds[0].Value, true
	}
	return nil, false
}

// matches evaluates all conditions against a record.
func (c *Criteria) matches(rec Record) bool {
	for attr, conds := range c.Where {
		val, present := rec[attr]
		for _, cond := range conds {
			if !evalCondition(val, present, cond) {
				return false
			}
		}
	}
	return true
}

func evalCondition(val interface{}, present bool, cond Condition) bool {
	switch cond.Op {
	case OpEq:
		return present && equalValues(val, cond.Value)
	case OpNe:
		return !present || !equalValues(val, cond.Value)
	case OpIn:
		if !present {
			return false
		}
		candidates, ok := cond.Value.([]interface{})
		if !ok {
			return false
		}
		for _, cand := range candidates {
			if equalValues(val, cand) {
				return true
			}
		}
		return false
	case OpLt, OpLte, OpGt, OpGte:
		if !present {
			return false
		}
		cmp, ok := compareValues(val, cond.Value)
		if !ok {
			return false
		}
		switch cond.Op {
		case OpLt:
			return cmp < 0
		case OpLte:
			return cmp <= 0
		case OpGt:
			return cmp > 0
		default:
			return cmp >= 0
		}
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Value comparison
// --------------------------------------------------------------------------

// asFloat widens any numeric Go value to float64. Records decoded from
// msgpack may carry different integer widths than the caller supplied, so
// comparisons go through a common numeric domain.
func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// compareValues orders two values of a comparable domain (numbers, strings,
// bools). The second return value is false when the values are not mutually
// comparable.
func compareValues(a, b interface{}) (int, bool) {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		default:
			return 0, true
		}
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// equalValues compares two values, widening numbers to a common domain first.
func equalValues(a, b interface{}) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// --------------------------------------------------------------------------
// Result shaping
// --------------------------------------------------------------------------

// shapeResults applies sort, skip and limit to a matched record set.
// Without a sort order the scan order (insertion order) is preserved.
func (c *Criteria) shapeResults(records []Record) []Record {
	if len(c.Sort) > 0 {
		sort.SliceStable(records, func(i, j int) bool {
			for _, s := range c.Sort {
				cmp, ok := compareValues(records[i][s.Attr], records[j][s.Attr])
				if !ok || cmp == 0 {
					continue
				}
				if s.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if c.Skip > 0 {
		if c.Skip >= len(records) {
			return []Record{}
		}
		records = records[c.Skip:]
	}
	if c.Limit > 0 && c.Limit < len(records) {
		records = records[:c.Limit]
	}
	return records
}
