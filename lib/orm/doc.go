// Package orm implements a schema-light collection engine on top of an
// opaque key-value store channel (store.IStore). It provides named
// collections of records with unique-index maintenance, auto-increment
// primary keys, criteria-based querying and an independent ephemeral entry
// store with TTL support.
//
// Architecture:
//
// The engine is a pure translation layer: every operation resolves the
// collection's definition and is then expressed as one or more commands on
// the store channel. The engine spawns no goroutines and keeps no state of
// its own except a read-mostly cache of collection definitions; everything
// else lives in the store, so engines on a distributed store (dstore) share
// all state through the raft log.
//
// Key Space:
//
// Each collection owns reserved key namespaces for records, unique-index
// entries, ephemeral entries, schema metadata, the auto-increment counter
// and internal locks (see keys.go). The codec is injective per collection,
// so no two primary-key values and no two namespaces can collide.
//
// Uniqueness Without Compare-And-Set:
//
// The store channel offers an atomic set-if-absent (SetEIfUnset) but no
// compare-and-set. Uniqueness of primary keys and unique attributes is
// therefore enforced with a claim-and-verify idiom: every stored record and
// index entry carries a random revision token; a writer claims a key with
// SetEIfUnset and reads it back, and the claim succeeded iff the stored
// token is its own. This is the same ownership pattern the lockmgr package
// uses for distributed locks. On a partial create failure the engine
// performs compensating deletion of already-claimed entries; if that cleanup
// itself fails, the returned error carries a compensation-failed flag so
// operators can detect index drift.
//
// Concurrency Model:
//
// Operations on different collections or different primary keys are
// independent. Two concurrent updates of the same record are not serialized
// by the engine; the store's per-key atomicity is the only protection.
// Update over a multi-record match set is not transactional across the set:
// a unique collision fails the remaining records while earlier ones stay
// committed. Both behaviors are deliberate and documented rather than
// papered over with locks.
//
// Errors:
//
// All operations return *Error values classified by Kind (Connection,
// Schema, Constraint, NotFound, Validation) with helpers like IsNotFound.
// Store channel errors are wrapped as Connection errors and never retried
// by the engine; retry policy belongs to the caller or the channel.
package orm
