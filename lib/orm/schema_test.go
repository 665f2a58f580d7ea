package orm

import (
	"testing"
)

func TestNormalizeDefinition(t *testing.T) {
	tests := []struct {
		name    string
		def     CollectionDefinition
		wantErr bool
	}{
		{
			name: "explicit primary key",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "uuid", Type: TypeString, PrimaryKey: true},
				{Name: "name", Type: TypeString},
			}},
		},
		{
			name: "two primary keys",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "a", Type: TypeInt, PrimaryKey: true},
				{Name: "b", Type: TypeInt, PrimaryKey: true},
			}},
			wantErr: true,
		},
		{
			name: "duplicate attribute names",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "x", Type: TypeInt},
				{Name: "x", Type: TypeString},
			}},
			wantErr: true,
		},
		{
			name: "autoIncrement on string key",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "k", Type: TypeString, PrimaryKey: true, AutoIncrement: true},
			}},
			wantErr: true,
		},
		{
			name: "autoIncrement on non-key attribute",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "k", Type: TypeInt, PrimaryKey: true},
				{Name: "n", Type: TypeInt, AutoIncrement: true},
			}},
			wantErr: true,
		},
		{
			name: "unique json attribute",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "blob", Type: TypeJSON, Unique: true},
			}},
			wantErr: true,
		},
		{
			name: "attribute name with slash",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "a/b", Type: TypeString},
			}},
			wantErr: true,
		},
		{
			name: "unknown type",
			def: CollectionDefinition{Attributes: []Attribute{
				{Name: "x", Type: "decimal"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeDefinition("things", tt.def)
			if tt.wantErr {
				if !IsSchema(err) {
					t.Errorf("expected SchemaError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeSyntheticKey(t *testing.T) {
	def := CollectionDefinition{Attributes: []Attribute{
		{Name: "name", Type: TypeString},
	}}
	normalized, err := normalizeDefinition("things", def)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	pk := normalized.PrimaryKey()
	if pk.Name != "id" || pk.Type != TypeInt || !pk.AutoIncrement {
		t.Errorf("expected synthetic int auto-increment id key, got %+v", pk)
	}
	if len(normalized.Attributes) != 2 {
		t.Errorf("expected 2 attributes after normalization, got %d", len(normalized.Attributes))
	}

	// a collection without a primary key but with a taken "id" attribute
	// cannot be normalized
	_, err = normalizeDefinition("things", CollectionDefinition{Attributes: []Attribute{
		{Name: "id", Type: TypeString},
	}})
	if !IsSchema(err) {
		t.Errorf("expected SchemaError for taken id attribute, got %v", err)
	}
}

func TestNormalizeInvalidCollectionName(t *testing.T) {
	_, err := normalizeDefinition("a/b", CollectionDefinition{})
	if !IsSchema(err) {
		t.Errorf("expected SchemaError for collection name with slash, got %v", err)
	}
	_, err = normalizeDefinition("", CollectionDefinition{})
	if !IsSchema(err) {
		t.Errorf("expected SchemaError for empty collection name, got %v", err)
	}
}

func TestDefinitionEncodeDecode(t *testing.T) {
	def, err := normalizeDefinition("user", CollectionDefinition{Attributes: []Attribute{
		{Name: "email", Type: TypeString, Unique: true},
		{Name: "age", Type: TypeInt},
	}})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	data, err := encodeDefinition(&def)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := decodeDefinition(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !def.equalShape(&decoded) {
		t.Errorf("decoded definition differs: %+v vs %+v", def, decoded)
	}
}
