package orm

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dORM/lib/db"
	"github.com/ValentinKolb/dORM/lib/db/engines/birch"
	"github.com/ValentinKolb/dORM/lib/store"
	"github.com/ValentinKolb/dORM/lib/store/lstore"
)

func newTestEngine(t *testing.T) IEngine {
	t.Helper()
	return NewEngine(lstore.NewLocalStore(func() db.KVDB {
		return birch.NewBirchDB(nil)
	}))
}

func userDefinition() CollectionDefinition {
	return CollectionDefinition{Attributes: []Attribute{
		{Name: "email", Type: TypeString, Unique: true},
		{Name: "name", Type: TypeString},
		{Name: "age", Type: TypeInt},
	}}
}

// --------------------------------------------------------------------------
// Schema
// --------------------------------------------------------------------------

func TestDefineDescribe(t *testing.T) {
	engine := newTestEngine(t)

	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	def, err := engine.Describe("user")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if def.Name != "user" {
		t.Errorf("expected name user, got %q", def.Name)
	}
	if pk := def.PrimaryKey(); pk.Name != "id" || !pk.AutoIncrement {
		t.Errorf("expected synthetic auto-increment id key, got %+v", pk)
	}
	if attr, ok := def.Attribute("email"); !ok || !attr.Unique {
		t.Errorf("email attribute lost its unique flag: %+v", attr)
	}

	// identical re-definition is idempotent
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Errorf("idempotent re-definition failed: %v", err)
	}

	// conflicting re-definition is a SchemaError
	conflicting := CollectionDefinition{Attributes: []Attribute{
		{Name: "email", Type: TypeString},
	}}
	if err := engine.Define("user", conflicting); !IsSchema(err) {
		t.Errorf("expected SchemaError for conflicting shape, got %v", err)
	}

	// undefined collection
	if _, err := engine.Describe("ghost"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestDefinitionSurvivesCacheLoss(t *testing.T) {
	// two engines over the same store simulate a process restart
	store := lstore.NewLocalStore(func() db.KVDB { return birch.NewBirchDB(nil) })
	first := NewEngine(store)
	if err := first.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	second := NewEngine(store)
	def, err := second.Describe("user")
	if err != nil {
		t.Fatalf("Describe on fresh engine failed: %v", err)
	}
	if _, ok := def.Attribute("email"); !ok {
		t.Error("persisted definition incomplete")
	}
}

// --------------------------------------------------------------------------
// Create / Find
// --------------------------------------------------------------------------

func TestCreateFindRoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	created, err := engine.Create("user", Record{"email": "ada@x.io", "name": "ada", "age": 36})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created["id"] == nil {
		t.Fatal("Create did not resolve the primary key")
	}

	// find by primary key returns an equal record
	found, err := engine.Find("user", Criteria{Where: map[string][]Condition{"id": {Eq(created["id"])}}})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 record, got %d", len(found))
	}
	for _, attr := range []string{"email", "name", "age"} {
		if !equalValues(found[0][attr], created[attr]) {
			t.Errorf("round-trip mismatch on %q: %v vs %v", attr, found[0][attr], created[attr])
		}
	}

	// find by unique attribute goes through the index
	found, err = engine.Find("user", Criteria{Where: map[string][]Condition{"email": {Eq("ada@x.io")}}})
	if err != nil {
		t.Fatalf("Find by unique attribute failed: %v", err)
	}
	if len(found) != 1 || !equalValues(found[0]["name"], "ada") {
		t.Errorf("unique-attribute lookup wrong: %v", found)
	}

	// criteria on unknown attributes are a ValidationError
	if _, err := engine.Find("user", Criteria{Where: map[string][]Condition{"nope": {Eq(1)}}}); !IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}

	// creating with unknown attributes is a ValidationError
	if _, err := engine.Create("user", Record{"nope": 1}); !IsValidation(err) {
		t.Errorf("expected ValidationError for unknown attribute, got %v", err)
	}
}

func TestCreateRequiresPrimaryKey(t *testing.T) {
	engine := newTestEngine(t)
	def := CollectionDefinition{Attributes: []Attribute{
		{Name: "code", Type: TypeString, PrimaryKey: true},
		{Name: "label", Type: TypeString},
	}}
	if err := engine.Define("tag", def); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	if _, err := engine.Create("tag", Record{"label": "no key"}); !IsValidation(err) {
		t.Errorf("expected ValidationError for missing non-auto key, got %v", err)
	}

	if _, err := engine.Create("tag", Record{"code": "go", "label": "golang"}); err != nil {
		t.Errorf("Create with supplied key failed: %v", err)
	}

	// duplicate primary key is a ConstraintError
	if _, err := engine.Create("tag", Record{"code": "go", "label": "again"}); !IsConstraint(err) {
		t.Errorf("expected ConstraintError for duplicate key, got %v", err)
	}
}

func TestUniqueConstraint(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	r1, err := engine.Create("user", Record{"email": "dup@x.io", "name": "first"})
	if err != nil {
		t.Fatalf("Create r1 failed: %v", err)
	}

	// r2 collides on the unique attribute
	_, err = engine.Create("user", Record{"email": "dup@x.io", "name": "second"})
	if !IsConstraint(err) {
		t.Fatalf("expected ConstraintError, got %v", err)
	}

	// the collection contains only r1
	all, err := engine.Find("user", Criteria{})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(all) != 1 || !equalValues(all[0]["id"], r1["id"]) {
		t.Errorf("expected only r1 to survive, got %v", all)
	}

	// the index still resolves to r1
	byEmail, err := engine.Find("user", Criteria{Where: map[string][]Condition{"email": {Eq("dup@x.io")}}})
	if err != nil {
		t.Fatalf("Find by email failed: %v", err)
	}
	if len(byEmail) != 1 || !equalValues(byEmail[0]["name"], "first") {
		t.Errorf("index does not point at r1: %v", byEmail)
	}
}

func TestFindScanAndShaping(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		_, err := engine.Create("user", Record{
			"email": fmt.Sprintf("u%d@x.io", i),
			"name":  fmt.Sprintf("user-%d", i),
			"age":   20 + i,
		})
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	// empty criteria matches all, in insertion order
	all, err := engine.Find("user", Criteria{})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(all) != 10 {
		t.Fatalf("expected 10 records, got %d", len(all))
	}
	for i, rec := range all {
		if !equalValues(rec["age"], 20+i) {
			t.Fatalf("insertion order violated at position %d: %v", i, rec)
		}
	}

	// range predicates with sort and limit
	found, err := engine.Find("user", Criteria{
		Where: map[string][]Condition{"age": {Gte(25)}},
		Sort:  []SortField{{Attr: "age", Desc: true}},
		Limit: 3,
	})
	if err != nil {
		t.Fatalf("Find with criteria failed: %v", err)
	}
	if len(found) != 3 || !equalValues(found[0]["age"], 29) {
		t.Errorf("shaped scan result wrong: %v", found)
	}

	// no match is an empty sequence, not an error
	none, err := engine.Find("user", Criteria{Where: map[string][]Condition{"age": {Gt(1000)}}})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected empty result, got %v", none)
	}
}

// --------------------------------------------------------------------------
// Update
// --------------------------------------------------------------------------

func TestUpdate(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	created, err := engine.Create("user", Record{"email": "old@x.io", "name": "ada", "age": 36})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// plain attribute update
	updated, err := engine.Update("user",
		Criteria{Where: map[string][]Condition{"id": {Eq(created["id"])}}},
		Record{"name": "lovelace"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(updated) != 1 || !equalValues(updated[0]["name"], "lovelace") {
		t.Errorf("update result wrong: %v", updated)
	}

	// unique attribute change: new value findable, old value freed
	if _, err := engine.Update("user",
		Criteria{Where: map[string][]Condition{"id": {Eq(created["id"])}}},
		Record{"email": "new@x.io"}); err != nil {
		t.Fatalf("unique update failed: %v", err)
	}
	byNew, err := engine.Find("user", Criteria{Where: map[string][]Condition{"email": {Eq("new@x.io")}}})
	if err != nil || len(byNew) != 1 {
		t.Fatalf("lookup by new unique value failed: %v / %v", byNew, err)
	}
	if _, err := engine.Create("user", Record{"email": "old@x.io", "name": "second"}); err != nil {
		t.Errorf("old unique value not freed after update: %v", err)
	}

	// changing the primary key is rejected
	if _, err := engine.Update("user",
		Criteria{Where: map[string][]Condition{"id": {Eq(created["id"])}}},
		Record{"id": 99999}); !IsValidation(err) {
		t.Errorf("expected ValidationError for pk change, got %v", err)
	}

	// a unique collision during update is a ConstraintError
	if _, err := engine.Update("user",
		Criteria{Where: map[string][]Condition{"id": {Eq(created["id"])}}},
		Record{"email": "old@x.io"}); !IsConstraint(err) {
		t.Errorf("expected ConstraintError for unique collision, got %v", err)
	}

	// updating zero matches succeeds with an empty result
	res, err := engine.Update("user",
		Criteria{Where: map[string][]Condition{"age": {Gt(1000)}}},
		Record{"name": "nobody"})
	if err != nil || len(res) != 0 {
		t.Errorf("update of empty match set: %v / %v", res, err)
	}
}

// --------------------------------------------------------------------------
// Destroy
// --------------------------------------------------------------------------

func TestDestroy(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	created, err := engine.Create("user", Record{"email": "gone@x.io", "name": "ada"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	destroyed, err := engine.Destroy("user", Criteria{Where: map[string][]Condition{"id": {Eq(created["id"])}}})
	if err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if len(destroyed) != 1 {
		t.Fatalf("expected 1 destroyed record, got %d", len(destroyed))
	}

	// destroy then find returns an empty sequence, never an error
	found, err := engine.Find("user", Criteria{Where: map[string][]Condition{"id": {Eq(created["id"])}}})
	if err != nil {
		t.Fatalf("Find after destroy failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected empty result after destroy, got %v", found)
	}

	// the unique value is free again
	if _, err := engine.Create("user", Record{"email": "gone@x.io", "name": "next"}); err != nil {
		t.Errorf("unique value not freed by destroy: %v", err)
	}

	// destroying zero matches is fine
	res, err := engine.Destroy("user", Criteria{Where: map[string][]Condition{"age": {Gt(1000)}}})
	if err != nil || len(res) != 0 {
		t.Errorf("destroy of empty match set: %v / %v", res, err)
	}
}

// --------------------------------------------------------------------------
// Auto-increment
// --------------------------------------------------------------------------

func TestAutoIncrementNeverRepeats(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	seen := make(map[string]bool)
	var last int64

	createOne := func(i int) {
		rec, err := engine.Create("user", Record{"email": fmt.Sprintf("u%d@x.io", i)})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		canon, err := canonicalValue(rec["id"])
		if err != nil {
			t.Fatalf("id not canonicalizable: %v", err)
		}
		if seen[canon] {
			t.Fatalf("auto-increment value %s repeated", canon)
		}
		seen[canon] = true
		id, _ := asFloat(rec["id"])
		if int64(id) <= last {
			t.Fatalf("auto-increment not monotonic: %d after %d", int64(id), last)
		}
		last = int64(id)
	}

	for i := 0; i < 5; i++ {
		createOne(i)
	}

	// interleave destroys: freed keys must never be handed out again
	if _, err := engine.Destroy("user", Criteria{}); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	for i := 5; i < 10; i++ {
		createOne(i)
	}
}

// --------------------------------------------------------------------------
// Concurrency
// --------------------------------------------------------------------------

func TestConcurrentCreateSamePK(t *testing.T) {
	engine := newTestEngine(t)
	def := CollectionDefinition{Attributes: []Attribute{
		{Name: "code", Type: TypeString, PrimaryKey: true},
		{Name: "owner", Type: TypeString},
	}}
	if err := engine.Define("claim", def); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var mu sync.Mutex
	successes, constraints := 0, 0

	for i := 0; i < numWorkers; i++ {
		go func(worker int) {
			defer wg.Done()
			_, err := engine.Create("claim", Record{"code": "the-one", "owner": fmt.Sprintf("w%d", worker)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case IsConstraint(err):
				constraints++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || constraints != numWorkers-1 {
		t.Fatalf("expected exactly one winner, got %d successes / %d constraint errors", successes, constraints)
	}

	// exactly one record, no index double-entry
	all, err := engine.Find("claim", Criteria{})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one record for the contested key, got %d", len(all))
	}
}

func TestConcurrentUniqueClaim(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var mu sync.Mutex
	successes := 0

	for i := 0; i < numWorkers; i++ {
		go func(worker int) {
			defer wg.Done()
			_, err := engine.Create("user", Record{"email": "contested@x.io", "name": fmt.Sprintf("w%d", worker)})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !IsConstraint(err) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one winner on the unique value, got %d", successes)
	}
}

// --------------------------------------------------------------------------
// Ephemeral entries
// --------------------------------------------------------------------------

func TestEphemeralEntries(t *testing.T) {
	engine := newTestEngine(t)

	// no Define required for the ephemeral namespace
	if err := engine.SetEntry("cache", "token", []byte("v1"), 0); err != nil {
		t.Fatalf("SetEntry failed: %v", err)
	}
	val, err := engine.GetEntry("cache", "token")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if string(val) != "v1" {
		t.Errorf("expected v1, got %s", val)
	}

	// unconditional overwrite
	if err := engine.SetEntry("cache", "token", []byte("v2"), 0); err != nil {
		t.Fatalf("SetEntry overwrite failed: %v", err)
	}
	if val, _ := engine.GetEntry("cache", "token"); string(val) != "v2" {
		t.Errorf("overwrite not visible, got %s", val)
	}

	// missing keys are NotFound
	if _, err := engine.GetEntry("cache", "missing"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}

	// remove is idempotent
	if err := engine.RemoveEntry("cache", "token"); err != nil {
		t.Fatalf("RemoveEntry failed: %v", err)
	}
	if err := engine.RemoveEntry("cache", "token"); err != nil {
		t.Errorf("second RemoveEntry failed: %v", err)
	}
	if _, err := engine.GetEntry("cache", "token"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError after remove, got %v", err)
	}
}

func TestEphemeralExpiry(t *testing.T) {
	engine := newTestEngine(t)

	if err := engine.SetEntry("cache", "short", []byte("v"), 1); err != nil {
		t.Fatalf("SetEntry failed: %v", err)
	}
	if _, err := engine.GetEntry("cache", "short"); err != nil {
		t.Fatalf("entry should be readable before expiry: %v", err)
	}

	time.Sleep(1200 * time.Millisecond)

	if _, err := engine.GetEntry("cache", "short"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError after expiry, got %v", err)
	}
}

func TestUpdateEntryTTL(t *testing.T) {
	engine := newTestEngine(t)

	// missing key: NotFound, and the key must not be created
	if err := engine.UpdateEntryTTL("cache", "ghost", 10); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := engine.GetEntry("cache", "ghost"); !IsNotFound(err) {
		t.Errorf("UpdateEntryTTL created the key")
	}

	// extending a short ttl keeps the entry alive past the old deadline
	if err := engine.SetEntry("cache", "extend", []byte("v"), 1); err != nil {
		t.Fatalf("SetEntry failed: %v", err)
	}
	if err := engine.UpdateEntryTTL("cache", "extend", 30); err != nil {
		t.Fatalf("UpdateEntryTTL failed: %v", err)
	}

	time.Sleep(1200 * time.Millisecond)

	val, err := engine.GetEntry("cache", "extend")
	if err != nil {
		t.Fatalf("entry expired despite extended ttl: %v", err)
	}
	if string(val) != "v" {
		t.Errorf("UpdateEntryTTL touched the value: %s", val)
	}
}

// --------------------------------------------------------------------------
// Drop
// --------------------------------------------------------------------------

func TestDrop(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if _, err := engine.Create("user", Record{"email": "a@x.io"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := engine.SetEntry("user", "session", []byte("v"), 0); err != nil {
		t.Fatalf("SetEntry failed: %v", err)
	}

	// relations that do not exist are non-fatal
	if err := engine.Drop("user", []string{"no-such-relation"}); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}

	if _, err := engine.Describe("user"); !IsNotFound(err) {
		t.Errorf("definition survived drop: %v", err)
	}
	if _, err := engine.GetEntry("user", "session"); !IsNotFound(err) {
		t.Errorf("ephemeral entry survived drop")
	}

	// a re-defined collection starts empty and with a fresh key space
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("re-Define after drop failed: %v", err)
	}
	all, err := engine.Find("user", Criteria{})
	if err != nil {
		t.Fatalf("Find after re-define failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("records survived drop: %v", all)
	}
	if _, err := engine.Create("user", Record{"email": "a@x.io"}); err != nil {
		t.Errorf("unique value not freed by drop: %v", err)
	}
}

func TestDropWithRelations(t *testing.T) {
	engine := newTestEngine(t)
	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	join := CollectionDefinition{Attributes: []Attribute{
		{Name: "user_id", Type: TypeInt},
		{Name: "group_id", Type: TypeInt},
	}}
	if err := engine.Define("user_groups", join); err != nil {
		t.Fatalf("Define join failed: %v", err)
	}
	if _, err := engine.Create("user_groups", Record{"user_id": 1, "group_id": 2}); err != nil {
		t.Fatalf("Create join record failed: %v", err)
	}

	if err := engine.Drop("user", []string{"user_groups"}); err != nil {
		t.Fatalf("Drop with relations failed: %v", err)
	}

	// the dependent collection was cleaned as well
	if _, err := engine.Describe("user_groups"); !IsNotFound(err) {
		t.Errorf("relation survived drop: %v", err)
	}
}

// --------------------------------------------------------------------------
// Store failure handling
// --------------------------------------------------------------------------

// faultStore wraps an IStore and fails Delete calls on keys containing the
// configured fragment, simulating a store channel dropping out mid-operation.
type faultStore struct {
	store.IStore
	failDeleteOn string
}

func (s *faultStore) Delete(key string) error {
	if s.failDeleteOn != "" && strings.Contains(key, s.failDeleteOn) {
		return store.NewError(store.RetCInternalError, "injected delete failure")
	}
	return s.IStore.Delete(key)
}

func TestUpdateSurfacesFailedIndexCleanup(t *testing.T) {
	faulty := &faultStore{IStore: lstore.NewLocalStore(func() db.KVDB { return birch.NewBirchDB(nil) })}
	engine := NewEngine(faulty)

	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if _, err := engine.Create("user", Record{"email": "a@x.io", "name": "ada"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// the removal of the old index entry fails after the record rewrite
	faulty.failDeleteOn = "/u/"
	updated, err := engine.Update("user",
		Criteria{Where: map[string][]Condition{"email": {Eq("a@x.io")}}},
		Record{"email": "b@x.io"})
	if err == nil {
		t.Fatal("expected error when stale index cleanup fails")
	}
	if !IsConnection(err) {
		t.Errorf("expected ConnectionError, got %v", err)
	}
	if !HasCompensationFailed(err) {
		t.Errorf("expected the compensation-failed flag on %v", err)
	}
	// the rewrite itself is committed and reported as such
	if len(updated) != 1 || !equalValues(updated[0]["email"], "b@x.io") {
		t.Errorf("expected the committed record in the result, got %v", updated)
	}
	faulty.failDeleteOn = ""

	// the stale entry really is drift: the old value stays blocked until an
	// operator repairs it, which is exactly why the flag must be surfaced
	if _, err := engine.Create("user", Record{"email": "a@x.io", "name": "second"}); !IsConstraint(err) {
		t.Errorf("expected ConstraintError from the stale index entry, got %v", err)
	}
}

func TestFindSkipsCorruptRecords(t *testing.T) {
	st := lstore.NewLocalStore(func() db.KVDB { return birch.NewBirchDB(nil) })
	engine := NewEngine(st)

	if err := engine.Define("user", userDefinition()); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	first, err := engine.Create("user", Record{"email": "a@x.io", "name": "ada"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := engine.Create("user", Record{"email": "b@x.io", "name": "grace"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// corrupt the first record body behind the engine's back (0xc1 is never
	// valid msgpack)
	pk, perr := canonicalValue(first["id"])
	if perr != nil {
		t.Fatalf("canonicalValue failed: %v", perr)
	}
	if err := st.Set(recordKey("user", pk), []byte{0xc1}); err != nil {
		t.Fatalf("corrupting record failed: %v", err)
	}

	// the scan skips the corrupt record instead of failing the whole find
	all, err := engine.Find("user", Criteria{})
	if err != nil {
		t.Fatalf("Find over corrupt record failed: %v", err)
	}
	if len(all) != 1 || !equalValues(all[0]["id"], second["id"]) {
		t.Errorf("expected only the intact record, got %v", all)
	}
}
