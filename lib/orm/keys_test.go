package orm

import (
	"testing"
)

func TestKeyNamespaces(t *testing.T) {
	// the reserved namespaces of one collection must never collide
	keys := []string{
		recordKey("user", "1"),
		indexKey("user", "email", "1"),
		ephemeralKey("user", "1"),
		metaKey("user"),
		counterKey("user"),
		lockKey("user", "counter"),
	}
	seen := make(map[string]bool)
	for _, key := range keys {
		if seen[key] {
			t.Fatalf("namespace collision on key %q", key)
		}
		seen[key] = true
	}

	// record keys of different collections must not collide either
	if recordKey("a", "1") == recordKey("b", "1") {
		t.Error("record keys of different collections collide")
	}
}

func TestParseRecordKey(t *testing.T) {
	pk, ok := parseRecordKey("user", recordKey("user", "42"))
	if !ok || pk != "42" {
		t.Errorf("parseRecordKey round-trip failed: got %q, %v", pk, ok)
	}

	// keys of foreign namespaces do not parse
	if _, ok := parseRecordKey("user", metaKey("user")); ok {
		t.Error("metadata key parsed as record key")
	}
	if _, ok := parseRecordKey("user", recordKey("other", "42")); ok {
		t.Error("record key of another collection parsed")
	}

	// primary keys containing '/' survive the round-trip
	pk, ok = parseRecordKey("user", recordKey("user", "a/b"))
	if !ok || pk != "a/b" {
		t.Errorf("slash in primary key broke round-trip: got %q, %v", pk, ok)
	}
}

func TestCanonicalValue(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"uint64", uint64(42), "42"},
		{"string", "hello", "hello"},
		{"bool", true, "true"},
		{"float", 1.5, "1.5"},
		{"float32", float32(2), "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canon, err := canonicalValue(tt.value)
			if err != nil {
				t.Fatalf("canonicalValue(%v) failed: %v", tt.value, err)
			}
			if canon != tt.expected {
				t.Errorf("canonicalValue(%v) = %q, want %q", tt.value, canon, tt.expected)
			}
		})
	}

	// int and int64 of the same value render identically so lookups work
	// across decode width changes
	a, _ := canonicalValue(42)
	b, _ := canonicalValue(int64(42))
	if a != b {
		t.Errorf("int and int64 render differently: %q vs %q", a, b)
	}

	// unindexable types are a validation error
	if _, err := canonicalValue(map[string]interface{}{}); !IsValidation(err) {
		t.Errorf("expected ValidationError for map value, got %v", err)
	}
	if _, err := canonicalValue(nil); !IsValidation(err) {
		t.Errorf("expected ValidationError for nil value, got %v", err)
	}
}

func TestCodecSafe(t *testing.T) {
	if codecSafe("") {
		t.Error("empty name must not be codec-safe")
	}
	if codecSafe("a/b") {
		t.Error("name with slash must not be codec-safe")
	}
	if !codecSafe("users") {
		t.Error("plain name must be codec-safe")
	}
}
