// Package db provides a standardized interface for key-value database implementations.
// It defines a comprehensive KVDB interface that allows for consistent interaction
// with various database backends while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Standardized persistence operations
//   - Comprehensive metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, Get, Has, Delete),
//     time-based operations (SetE, UpdateTTL, Expire, GarbageCollect),
//     specialized operations (SetEIfUnset, Scan), metadata retrieval (GetDBInfo),
//     and persistence operations (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. This allows clients to
//     discover supported operations at runtime.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for different database backends (currently "birch").
//
//   - Database Information: The DatabaseInfo structure provides standardized
//     reporting on database state, including size statistics, implementation type,
//     and implementation-specific metadata. Note: For most implementations all
//     size statistics will be estimated since a precise calculation can be
//     expensive.
//
// This interface-driven approach allows applications to:
//   - Swap database implementations without code changes
//   - Gracefully handle operations not supported by specific implementations
//   - Maintain consistent behavior across different storage backends
//   - Collect standardized metrics for monitoring and management
//
// Note on Time-Based Operations:
//   - Write Ordering: All write operations require a write-index parameter that serves
//     as a logical timestamp. It records when an entry was created or modified, orders
//     concurrent writes (a write with an index lower than the entry's current index is
//     ignored), and drives the ordering of Scan results.
//   - Lifetimes: Expiration and deletion deadlines are absolute wall-clock timestamps
//     in unix milliseconds, with 0 meaning "never". Deadlines are computed by the
//     caller before the write is issued, so replicated backends apply identical
//     deadlines on every replica regardless of when the write is replayed.
//   - Monotonicity Guarantee: All implementations must ensure that the write-index only
//     increases monotonically. Attempts to set a write-index lower than the current one
//     must be ignored to maintain temporal consistency.
//
// Note on Garbage Collection:
//   - All implementations must support garbage collection and ensure that deleted entries
//     are eventually removed from the database to prevent memory leaks.
//   - External Consistency: Implementations must maintain strong external consistency
//     regardless of their internal garbage collection state:
//   - Get() must never return an entry that has logically expired, even if the entry
//     still exists internally pending collection.
//   - Has() must never return true for an entry that has been logically deleted, even if
//     the entry still exists internally pending collection.
//   - Scan() must never include entries that have logically expired or been deleted.
//   - This separation between logical state (expired/deleted) and physical state (still present
//     in memory) allows implementations to use efficient background collection strategies
//     without compromising the consistency guarantees of the interface.
//
// Related Packages:
//
// The engines/birch package (github.com/ValentinKolb/dORM/lib/db/engines/birch) provides a
// high-performance implementation of the KVDB interface using a sharded in-memory architecture.
// It features advanced concurrency support through lock-free data structures, wall-clock
// lifetimes for key expiration and deletion, ordered prefix scans, efficient background
// garbage collection, and binary persistence capabilities. The implementation is optimized
// for scenarios requiring high throughput with concurrent operations while maintaining
// strong consistency guarantees.
//
// The util package (github.com/ValentinKolb/dORM/lib/db/util) provides complementary
// tools for working with db.KVDB implementations:
//   - SizeHistogram: Utilities for analyzing data size distributions
//   - MapHeap: A priority queue implementation for memory management and garbage collection
//   - LockFreeMPSC: A lock-free multi-producer single-consumer queue for concurrent operations
//   - ... and more
//
// The testing package (github.com/ValentinKolb/dORM/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
