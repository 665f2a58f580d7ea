package orm

import (
	"testing"

	"github.com/ValentinKolb/dORM/lib/db"
	"github.com/ValentinKolb/dORM/lib/db/engines/birch"
	"github.com/ValentinKolb/dORM/lib/store"
	"github.com/ValentinKolb/dORM/lib/store/lstore"
)

func newTestStore() store.IStore {
	return lstore.NewLocalStore(func() db.KVDB {
		return birch.NewBirchDB(nil)
	})
}

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()

	engine, err := registry.Register("primary", newTestStore(), []CollectionDefinition{
		{Name: "user", Attributes: []Attribute{
			{Name: "email", Type: TypeString, Unique: true},
		}},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// the supplied definitions were installed
	if _, err := engine.Describe("user"); err != nil {
		t.Errorf("registered definition not installed: %v", err)
	}

	// Get returns the same connection
	got, err := registry.Get("primary")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != engine {
		t.Error("Get returned a different engine")
	}

	// duplicate registration is a SchemaError
	if _, err := registry.Register("primary", newTestStore(), nil); !IsSchema(err) {
		t.Errorf("expected SchemaError for duplicate name, got %v", err)
	}

	// teardown removes the connection
	if err := registry.Teardown("primary"); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}
	if _, err := registry.Get("primary"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError after teardown, got %v", err)
	}
	if err := registry.Teardown("primary"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError for double teardown, got %v", err)
	}

	// the name can be reused after teardown
	if _, err := registry.Register("primary", newTestStore(), nil); err != nil {
		t.Errorf("re-registration after teardown failed: %v", err)
	}
}

func TestRegisterInvalidDefinition(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Register("broken", newTestStore(), []CollectionDefinition{
		{Name: "bad", Attributes: []Attribute{
			{Name: "a", Type: TypeInt, PrimaryKey: true},
			{Name: "b", Type: TypeInt, PrimaryKey: true},
		}},
	})
	if !IsSchema(err) {
		t.Fatalf("expected SchemaError, got %v", err)
	}

	// the failed registration did not leak the name
	if _, err := registry.Get("broken"); !IsNotFound(err) {
		t.Errorf("failed registration left connection behind: %v", err)
	}
}
