package orm

import (
	"github.com/vmihailenco/msgpack/v5"
)

// --------------------------------------------------------------------------
// Attribute and Collection Definitions
// --------------------------------------------------------------------------

// AttributeType is the type tag of an attribute.
type AttributeType string

const (
	TypeString AttributeType = "string"
	TypeInt    AttributeType = "int"
	TypeFloat  AttributeType = "float"
	TypeBool   AttributeType = "bool"
	TypeJSON   AttributeType = "json" // arbitrary nested value, never indexable
)

// Attribute describes a single attribute of a collection. The flags are
// validated once at Define time instead of being inspected ad hoc per
// operation.
type Attribute struct {
	Name          string        `msgpack:"name"`
	Type          AttributeType `msgpack:"type"`
	Unique        bool          `msgpack:"unique"`
	PrimaryKey    bool          `msgpack:"primaryKey"`
	AutoIncrement bool          `msgpack:"autoIncrement"`
}

// CollectionDefinition is the schema of a collection: a name plus an ordered
// set of attribute definitions.
type CollectionDefinition struct {
	Name       string      `msgpack:"name"`
	Attributes []Attribute `msgpack:"attributes"`
}

// PrimaryKey returns the primary-key attribute of a normalized definition.
func (def *CollectionDefinition) PrimaryKey() Attribute {
	for _, attr := range def.Attributes {
		if attr.PrimaryKey {
			return attr
		}
	}
	// normalize guarantees a primary key exists
	panic("orm: definition has no primary key, was it normalized?")
}

// Attribute returns the attribute with the given name.
func (def *CollectionDefinition) Attribute(name string) (Attribute, bool) {
	for _, attr := range def.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// UniqueAttributes returns all unique non-primary-key attributes.
func (def *CollectionDefinition) UniqueAttributes() []Attribute {
	var unique []Attribute
	for _, attr := range def.Attributes {
		if attr.Unique && !attr.PrimaryKey {
			unique = append(unique, attr)
		}
	}
	return unique
}

// equalShape reports whether two normalized definitions describe the same
// schema. Attribute order is significant.
func (def *CollectionDefinition) equalShape(other *CollectionDefinition) bool {
	if def.Name != other.Name || len(def.Attributes) != len(other.Attributes) {
		return false
	}
	for i := range def.Attributes {
		if def.Attributes[i] != other.Attributes[i] {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Validation and Normalization
// --------------------------------------------------------------------------

var validTypes = map[AttributeType]bool{
	TypeString: true,
	TypeInt:    true,
	TypeFloat:  true,
	TypeBool:   true,
	TypeJSON:   true,
}

// normalizeDefinition validates a caller-supplied definition and returns the
// canonical form stored by the engine:
//   - collection and attribute names must be codec-safe (non-empty, no '/')
//   - no duplicate attribute names
//   - at most one primary-key attribute; if none is declared a synthetic
//     int auto-increment attribute named "id" is prepended
//   - AutoIncrement is only valid on int primary keys
//   - unique attributes must have an indexable type (not json)
func normalizeDefinition(collection string, def CollectionDefinition) (CollectionDefinition, error) {
	if !codecSafe(collection) {
		return CollectionDefinition{}, newError(KindSchema, "invalid collection name %q", collection)
	}

	normalized := CollectionDefinition{
		Name:       collection,
		Attributes: make([]Attribute, len(def.Attributes)),
	}
	copy(normalized.Attributes, def.Attributes)

	seen := make(map[string]bool, len(normalized.Attributes))
	pkCount := 0
	for _, attr := range normalized.Attributes {
		if !codecSafe(attr.Name) {
			return CollectionDefinition{}, newError(KindSchema, "invalid attribute name %q in collection %q", attr.Name, collection)
		}
		if seen[attr.Name] {
			return CollectionDefinition{}, newError(KindSchema, "duplicate attribute %q in collection %q", attr.Name, collection)
		}
		seen[attr.Name] = true

		if !validTypes[attr.Type] {
			return CollectionDefinition{}, newError(KindSchema, "unknown type %q for attribute %q", attr.Type, attr.Name)
		}
		if attr.PrimaryKey {
			pkCount++
		}
		if attr.AutoIncrement && (!attr.PrimaryKey || attr.Type != TypeInt) {
			return CollectionDefinition{}, newError(KindSchema, "autoIncrement is only valid on int primary keys (attribute %q)", attr.Name)
		}
		if attr.Unique && attr.Type == TypeJSON {
			return CollectionDefinition{}, newError(KindSchema, "json attribute %q cannot be unique", attr.Name)
		}
	}

	if pkCount > 1 {
		return CollectionDefinition{}, newError(KindSchema, "collection %q declares %d primary keys, at most one allowed", collection, pkCount)
	}
	if pkCount == 0 {
		if seen["id"] {
			return CollectionDefinition{}, newError(KindSchema, "collection %q has no primary key but attribute \"id\" is taken", collection)
		}
		synthetic := Attribute{Name: "id", Type: TypeInt, PrimaryKey: true, AutoIncrement: true}
		normalized.Attributes = append([]Attribute{synthetic}, normalized.Attributes...)
	}

	return normalized, nil
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

func encodeDefinition(def *CollectionDefinition) ([]byte, error) {
	data, err := msgpack.Marshal(def)
	if err != nil {
		return nil, newError(KindSchema, "failed to encode definition of %q: %v", def.Name, err)
	}
	return data, nil
}

func decodeDefinition(data []byte) (CollectionDefinition, error) {
	var def CollectionDefinition
	if err := msgpack.Unmarshal(data, &def); err != nil {
		return CollectionDefinition{}, newError(KindSchema, "failed to decode stored definition: %v", err)
	}
	return def, nil
}
