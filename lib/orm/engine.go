package orm

import (
	"time"

	"github.com/ValentinKolb/dORM/lib/lockmgr"
	"github.com/ValentinKolb/dORM/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("orm")

const (
	lockTimeoutSecs = 10 // dormant locks expire so a crashed holder cannot wedge the collection
	lockRetries     = 50
	lockRetryDelay  = 20 * time.Millisecond
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IEngine is the collection engine: schema management, record CRUD with
// unique-index maintenance, and ephemeral TTL entries, all running on top of
// an opaque store channel (store.IStore).
type IEngine interface {
	// Define validates and installs a collection definition. Re-defining a
	// collection with an identical shape is idempotent; a conflicting shape
	// is a SchemaError. The definition is persisted and survives restarts.
	Define(collection string, def CollectionDefinition) error
	// Describe returns the stored definition or a NotFoundError.
	Describe(collection string) (CollectionDefinition, error)
	// Drop removes the definition, all records, all index entries, all
	// ephemeral entries and the counter of a collection. The listed
	// relations are cleaned best-effort: a missing relation is non-fatal,
	// a failure removing the primary collection is fatal.
	Drop(collection string, relations []string) error

	// Create stores a new record. The primary key is taken from data or, for
	// auto-increment keys, generated. A primary-key or unique-attribute
	// collision is a ConstraintError. Returns the stored record including
	// the resolved primary key.
	Create(collection string, data Record) (Record, error)
	// Find returns all records matching the criteria, in the requested sort
	// order or insertion order. An empty result is not an error.
	Find(collection string, criteria Criteria) ([]Record, error)
	// Update applies values to every record matching the criteria and
	// returns the updated records. Changing the primary key is a
	// ValidationError. A unique collision fails the remaining records with
	// a ConstraintError while earlier records stay committed: update over
	// multiple matches is not transactional across the set.
	Update(collection string, criteria Criteria, values Record) ([]Record, error)
	// Destroy removes every record matching the criteria together with its
	// index entries and returns the destroyed records.
	Destroy(collection string, criteria Criteria) ([]Record, error)

	// SetEntry writes an ephemeral entry, overwriting any prior value. A
	// positive seconds value schedules expiry, 0 means no expiry.
	SetEntry(collection, key string, value []byte, seconds uint64) error
	// GetEntry returns the stored value or a NotFoundError when the entry is
	// absent or expired.
	GetEntry(collection, key string) ([]byte, error)
	// UpdateEntryTTL changes only the expiry of an existing entry. A missing
	// key is a NotFoundError; the entry is never created.
	UpdateEntryTTL(collection, key string, seconds uint64) error
	// RemoveEntry deletes an entry. Removing a non-existent key is not an
	// error.
	RemoveEntry(collection, key string) error
}

// --------------------------------------------------------------------------
// Engine Implementation
// --------------------------------------------------------------------------

type engine struct {
	store store.IStore
	locks lockmgr.ILockManager
	defs  *xsync.MapOf[string, CollectionDefinition] // read-mostly definition cache
}

// NewEngine creates a collection engine on top of the given store channel.
// The channel may be local (lstore) or distributed (dstore); the engine
// itself spawns no goroutines and keeps no state outside the store except
// the definition cache.
func NewEngine(s store.IStore) IEngine {
	return &engine{
		store: s,
		locks: lockmgr.NewLockManager(s),
		defs:  xsync.NewMapOf[string, CollectionDefinition](),
	}
}

// withLock runs fn under a store-backed collection lock. Acquisition is
// retried since SetEIfUnset-based locks fail fast under contention.
func (e *engine) withLock(key string, fn func() error) error {
	for i := 0; i < lockRetries; i++ {
		ok, ownerID, err := e.locks.AcquireLock(key, lockTimeoutSecs)
		if err != nil {
			return wrapConnErr(err, "failed to acquire lock %q", key)
		}
		if !ok {
			time.Sleep(lockRetryDelay)
			continue
		}

		fnErr := fn()

		if released, err := e.locks.ReleaseLock(key, ownerID); err != nil {
			log.Errorf("failed to release lock %q: %v", key, err)
		} else if !released {
			log.Warningf("lock %q expired before release", key)
		}
		return fnErr
	}
	return newError(KindConnection, "could not acquire lock %q", key)
}

// --------------------------------------------------------------------------
// Schema Registry
// --------------------------------------------------------------------------

func (e *engine) Define(collection string, def CollectionDefinition) error {
	normalized, err := normalizeDefinition(collection, def)
	if err != nil {
		return err
	}

	// serialize concurrent defines of the same collection
	return e.withLock(lockKey(collection, "define"), func() error {
		existing, err := e.loadDefinition(collection)
		if err == nil {
			if existing.equalShape(&normalized) {
				return nil // idempotent re-definition
			}
			return newError(KindSchema, "collection %q already defined with a conflicting shape", collection)
		}
		if !IsNotFound(err) {
			return err
		}

		data, err := encodeDefinition(&normalized)
		if err != nil {
			return err
		}
		if err := e.store.Set(metaKey(collection), data); err != nil {
			return wrapConnErr(err, "failed to persist definition of %q", collection)
		}

		// install before returning so no later operation observes the old state
		e.defs.Store(collection, normalized)
		log.Infof("defined collection %q (%d attributes)", collection, len(normalized.Attributes))
		return nil
	})
}

func (e *engine) Describe(collection string) (CollectionDefinition, error) {
	return e.loadDefinition(collection)
}

// loadDefinition resolves a definition from the cache, falling back to the
// persisted metadata key so a restarted process resumes where it left off.
func (e *engine) loadDefinition(collection string) (CollectionDefinition, error) {
	if def, ok := e.defs.Load(collection); ok {
		return def, nil
	}

	data, found, err := e.store.Get(metaKey(collection))
	if err != nil {
		return CollectionDefinition{}, wrapConnErr(err, "failed to read definition of %q", collection)
	}
	if !found {
		return CollectionDefinition{}, newError(KindNotFound, "collection %q is not defined", collection)
	}

	def, err := decodeDefinition(data)
	if err != nil {
		return CollectionDefinition{}, err
	}
	e.defs.Store(collection, def)
	return def, nil
}

func (e *engine) Drop(collection string, relations []string) error {
	// dependent collections first, best-effort
	for _, relation := range relations {
		found, err := e.store.Has(metaKey(relation))
		if err != nil {
			log.Warningf("drop %q: could not check relation %q: %v", collection, relation, err)
			continue
		}
		if !found {
			log.Infof("drop %q: relation %q does not exist, skipping", collection, relation)
			continue
		}
		if err := e.purgeCollection(relation); err != nil {
			log.Warningf("drop %q: cleanup of relation %q failed: %v", collection, relation, err)
		}
	}

	// primary removal failure is fatal
	if err := e.purgeCollection(collection); err != nil {
		return err
	}
	return nil
}

// purgeCollection removes every key belonging to a collection: records,
// index entries, ephemeral entries, counter and finally the definition.
func (e *engine) purgeCollection(collection string) error {
	prefixes := []string{
		recordPrefix(collection),
		indexPrefix(collection),
		ephemeralPrefix(collection),
	}
	for _, prefix := range prefixes {
		entries, err := e.store.Scan(prefix)
		if err != nil {
			return wrapConnErr(err, "failed to scan %q while dropping %q", prefix, collection)
		}
		for _, entry := range entries {
			if err := e.store.Delete(entry.Key); err != nil {
				return wrapConnErr(err, "failed to delete %q while dropping %q", entry.Key, collection)
			}
		}
	}

	if err := e.store.Delete(counterKey(collection)); err != nil {
		return wrapConnErr(err, "failed to delete counter of %q", collection)
	}
	if err := e.store.Delete(metaKey(collection)); err != nil {
		return wrapConnErr(err, "failed to delete definition of %q", collection)
	}

	e.defs.Delete(collection)
	log.Infof("dropped collection %q", collection)
	return nil
}
