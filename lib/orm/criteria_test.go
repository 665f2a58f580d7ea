package orm

import (
	"testing"
)

func TestEvalConditions(t *testing.T) {
	rec := Record{"name": "ada", "age": int64(36), "active": true}

	tests := []struct {
		name     string
		criteria Criteria
		expected bool
	}{
		{"eq match", Criteria{Where: map[string][]Condition{"name": {Eq("ada")}}}, true},
		{"eq mismatch", Criteria{Where: map[string][]Condition{"name": {Eq("bob")}}}, false},
		{"eq numeric widening", Criteria{Where: map[string][]Condition{"age": {Eq(36)}}}, true},
		{"ne", Criteria{Where: map[string][]Condition{"name": {Ne("bob")}}}, true},
		{"ne on absent attribute", Criteria{Where: map[string][]Condition{"email": {Ne("x")}}}, true},
		{"lt", Criteria{Where: map[string][]Condition{"age": {Lt(40)}}}, true},
		{"lte boundary", Criteria{Where: map[string][]Condition{"age": {Lte(36)}}}, true},
		{"gt", Criteria{Where: map[string][]Condition{"age": {Gt(36)}}}, false},
		{"gte boundary", Criteria{Where: map[string][]Condition{"age": {Gte(36)}}}, true},
		{"in match", Criteria{Where: map[string][]Condition{"name": {In("bob", "ada")}}}, true},
		{"in mismatch", Criteria{Where: map[string][]Condition{"name": {In("bob", "eve")}}}, false},
		{"range conjunction", Criteria{Where: map[string][]Condition{"age": {Gt(30), Lt(40)}}}, true},
		{"bool eq", Criteria{Where: map[string][]Condition{"active": {Eq(true)}}}, true},
		{"comparison on absent attribute", Criteria{Where: map[string][]Condition{"email": {Lt("z")}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.matches(rec); got != tt.expected {
				t.Errorf("matches() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestShapeResults(t *testing.T) {
	records := []Record{
		{"id": int64(1), "age": int64(30)},
		{"id": int64(2), "age": int64(20)},
		{"id": int64(3), "age": int64(40)},
		{"id": int64(4), "age": int64(20)},
	}

	// sort ascending, stable for equal keys
	c := Criteria{Sort: []SortField{{Attr: "age"}}}
	shaped := c.shapeResults(append([]Record{}, records...))
	gotIDs := []int64{}
	for _, r := range shaped {
		gotIDs = append(gotIDs, r["id"].(int64))
	}
	wantIDs := []int64{2, 4, 1, 3}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("sort order mismatch: got %v, want %v", gotIDs, wantIDs)
		}
	}

	// sort descending
	c = Criteria{Sort: []SortField{{Attr: "age", Desc: true}}}
	shaped = c.shapeResults(append([]Record{}, records...))
	if shaped[0]["id"].(int64) != 3 {
		t.Errorf("descending sort did not put highest age first")
	}

	// skip and limit
	c = Criteria{Skip: 1, Limit: 2}
	shaped = c.shapeResults(append([]Record{}, records...))
	if len(shaped) != 2 || shaped[0]["id"].(int64) != 2 {
		t.Errorf("skip/limit shaping wrong: %v", shaped)
	}

	// skip beyond the set yields empty, not an error
	c = Criteria{Skip: 10}
	if shaped = c.shapeResults(append([]Record{}, records...)); len(shaped) != 0 {
		t.Errorf("expected empty result for skip beyond set, got %v", shaped)
	}
}

func TestCriteriaValidate(t *testing.T) {
	def, err := normalizeDefinition("user", CollectionDefinition{Attributes: []Attribute{
		{Name: "name", Type: TypeString},
	}})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	c := Criteria{Where: map[string][]Condition{"nope": {Eq(1)}}}
	if err := c.validate(&def); !IsValidation(err) {
		t.Errorf("expected ValidationError for unknown attribute, got %v", err)
	}

	c = Criteria{Sort: []SortField{{Attr: "nope"}}}
	if err := c.validate(&def); !IsValidation(err) {
		t.Errorf("expected ValidationError for unknown sort attribute, got %v", err)
	}

	c = Criteria{Limit: -1}
	if err := c.validate(&def); !IsValidation(err) {
		t.Errorf("expected ValidationError for negative limit, got %v", err)
	}

	c = Criteria{Where: map[string][]Condition{"name": {Eq("x")}, "id": {Gt(0)}}}
	if err := c.validate(&def); err != nil {
		t.Errorf("valid criteria rejected: %v", err)
	}
}
