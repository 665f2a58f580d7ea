package birch

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dORM/lib/db"
	"github.com/ValentinKolb/dORM/lib/db/engines/birch/internal"
	"github.com/ValentinKolb/dORM/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for database behavior and structure
const (
	magicNum          = "BIRCHDB\x00"          // File format identifier
	birchVersion      = 1                      // Database version
	defaultGCInterval = 100 * time.Millisecond // Default interval between GC runs
)

// --------------------------------------------------------------------------
// Core Birch database structure
// --------------------------------------------------------------------------

// birchImpl implements a sharded in-memory database that keeps full string
// keys (so prefix scans are possible) and tracks TTL deadlines as absolute
// unix-millisecond timestamps
type birchImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for the shard-selection hash
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Current logical write index

	// garbage collection
	gcInterval  time.Duration
	gcIsRunning atomic.Bool
}

// DBOptions configures the birchImpl behavior during initialization
type DBOptions struct {
	NumShards  int           // Number of shards (nil = auto)
	GCInterval time.Duration // Time between GC runs (0 = use default)
}

// DefaultOptions returns the default birchImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards:  runtime.NumCPU(), // Auto-determine based on CPU count
		GCInterval: defaultGCInterval,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewBirchDB creates a new BirchDB instance with the specified options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewBirchDB(opts *DBOptions) db.KVDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.GCInterval <= 0 {
		opts.GCInterval = defaultGCInterval
	}

	// Create shards
	shards := make([]*internal.Shard, opts.NumShards)
	for i := 0; i < opts.NumShards; i++ {
		shards[i] = internal.NewShard()
	}

	newDB := &birchImpl{
		numShards:  opts.NumShards,
		seed:       util.GenerateSeed(),
		shards:     shards,
		gcInterval: opts.GCInterval,
	}

	// Initialize atomic values
	newDB.currIndex.Store(0)
	newDB.gcIsRunning.Store(false)

	// start garbage collection
	newDB.startGC()

	return newDB
}

// nowMillis returns the current wall-clock time as unix milliseconds.
// All TTL deadlines are compared against this value.
func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// shardFor returns the shard responsible for the given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) shardFor(key string) *internal.Shard {
	return internal.GetShard(key, b.seed, b.shards)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry with the given key and value.
// If the key already exists, the old value is overwritten.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) Set(key string, value []byte, writeIdx uint64) {
	b.compute(key, value, writeIdx, 0, 0, func(new, _ internal.Entry, _ bool) (internal.Entry, bool) {
		return new, false
	})
}

// SetE stores a value for a key with expiration and deletion deadlines.
// If the key already exists, the old value and old deadlines are overwritten.
//
//   - expireAt: when the value expires (unix ms, 0 = never; the key stays findable with Has())
//   - deleteAt: when the key and value are removed entirely (unix ms, 0 = never)
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) SetE(key string, value []byte, writeIndex uint64, expireAt, deleteAt uint64) {
	b.compute(key, value, writeIndex, expireAt, deleteAt, func(new, _ internal.Entry, _ bool) (internal.Entry, bool) {
		return new, false
	})
}

// SetEIfUnset inserts an entry only if the key does not exist (or is deleted).
// If a live entry exists, it is kept untouched no matter the deadlines.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) SetEIfUnset(key string, value []byte, writeIndex uint64, expireAt, deleteAt uint64) {
	b.compute(key, value, writeIndex, expireAt, deleteAt, func(new, old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded {
			return old, false
		}
		return new, false
	})
}

// UpdateTTL rewrites only the deadlines of an existing entry, leaving the
// stored value untouched. If the key does not exist (or is deleted), nothing
// happens.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) UpdateTTL(key string, writeIndex uint64, expireAt, deleteAt uint64) {
	b.compute(key, nil, writeIndex, expireAt, deleteAt, func(new, old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true // set delete to true because else the value would be created
		}

		// keep the stored value, swap the deadlines
		old.ExpireAt = new.ExpireAt
		old.DeleteAt = new.DeleteAt
		old.Index = new.Index
		return old, false
	})
}

// Expire marks the entry with the specified key as expired. This change is immediate.
// The key is still findable with the Has() method.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) Expire(key string, writeIndex uint64) {
	b.compute(key, nil, writeIndex, 0, 0, func(_, old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true // set delete to true because else the value would be created
		}

		// case expire
		old.ExpireAt = nowMillis()
		old.Value = nil

		return old, false
	})
}

// Delete removes an entry with the specified key.
// The key and value are removed from the database. This change is immediate.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) Delete(key string, writeIndex uint64) {
	b.compute(key, nil, writeIndex, 0, 0, func(_, old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true // set delete to true because else the value would be created
		}
		old.DeleteAt = nowMillis()
		old.Value = nil

		return old, false
	})
}

// compute is the shared implementation behind all write operations.
// It handles the actual storage of the key-value pair, GC registration and
// ignoring stale writes.
//
// The provided fn receives the prospective new entry, the old entry and
// whether a live old entry existed; it returns the entry to store and whether
// the slot should be deleted instead.
//
// Thread-safety: This function uses the shard map's atomic Compute for thread-safety.
func (b *birchImpl) compute(key string, value []byte, writeIndex uint64, expireAt, deleteAt uint64, fn func(new, old internal.Entry, loaded bool) (entry internal.Entry, delete bool)) {

	// update the current index
	b.SetWriteIdx(writeIndex)

	shard := b.shardFor(key)

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	// add entry to gc after the entry is created
	var event *internal.Event

	now := nowMillis()

	// Use Compute for atomic conditional update
	shard.Data.Compute(key, func(oldEntry internal.Entry, oldEntryExists bool) (internal.Entry, bool) {
		// If the key doesn't exist or the current index is newer or equal, update
		if !oldEntryExists || writeIndex >= oldEntry.Index {

			// test if entry is logically deleted or expired
			// we do this so that the fn only ever sees a consistent view of the entry
			var loaded = oldEntryExists
			if oldEntryExists {
				isExpired, isDeleted := oldEntry.TTLInfo(now)

				// if the entry is logically deleted, we need to set the loaded flag to false
				loaded = !isDeleted

				// if the entry is expired, we need to clear the value
				if isExpired {
					oldEntry.Value = nil
				}
			}

			// compute the new entry
			entry, del := fn(internal.Entry{
				Value:    valueCopy,
				ExpireAt: expireAt,
				DeleteAt: deleteAt,
				Index:    writeIndex,
			}, oldEntry, loaded)

			// CASE DELETE

			if del {
				// an old entry existed -> gc event
				if oldEntryExists {
					event = &internal.Event{
						Type: internal.EventTDelete,
						Key:  key,
					}
				}
				return oldEntry, true
			}

			// CASE WRITE

			// add item to gc if a deadline is set
			if entry.ExpireAt > 0 || entry.DeleteAt > 0 {
				event = &internal.Event{
					Type: internal.EventTWrite,
					Key:  key,
				}
			}

			return entry, false // false means don't delete
		}

		// Otherwise, keep the old entry (stale writes are ignored)
		return oldEntry, false
	})

	// add event to gc events queue
	if event != nil {
		shard.Events.Push(event)
	}
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key.
// The boolean indicates whether a (not expired) value for the key was found.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) Get(key string) ([]byte, bool) {
	shard := b.shardFor(key)

	// Init variables
	var (
		data []byte
		ok   bool
	)

	now := nowMillis()

	// Atomic lookup
	shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		// case the key doesn't exist
		if !loaded {
			ok = false
			return e, true // set delete to true because else the value would be created
		}

		// case deleted or expired
		if isExpired, isDeleted := e.TTLInfo(now); isDeleted || isExpired {
			return e, false
		}

		// case valid data -> copy data
		ok = true
		data = make([]byte, len(e.Value))
		copy(data, e.Value)

		return e, false
	})

	return data, ok
}

// Has checks if a key exists in the database.
// This method does not check if the value for the key is expired. Use Get() for that.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) Has(key string) bool {
	shard := b.shardFor(key)

	var ok bool
	now := nowMillis()

	shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		// case the key doesn't exist
		if !loaded {
			return e, true // set delete to true because else the value would be created
		}

		// case deleted (we don't check for expired keys because they are still findable)
		if _, isDeleted := e.TTLInfo(now); !isDeleted {
			ok = true
		}

		return e, false
	})

	return ok
}

// Scan returns all live entries whose key starts with the given prefix,
// ordered by ascending write index (i.e. insertion/last-write order).
// The returned values are copies and safe to modify.
//
// The result is a snapshot: entries written concurrently with the scan may or
// may not be included.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) Scan(prefix string) []db.ScanItem {
	var items []db.ScanItem
	now := nowMillis()

	// Collect matching entries from all shards
	for _, shard := range b.shards {
		shard.Data.Range(func(key string, e internal.Entry) bool {
			if len(key) < len(prefix) || key[:len(prefix)] != prefix {
				return true
			}
			if isExpired, isDeleted := e.TTLInfo(now); isExpired || isDeleted {
				return true
			}

			value := make([]byte, len(e.Value))
			copy(value, e.Value)

			items = append(items, db.ScanItem{
				Key:   key,
				Value: value,
				Index: e.Index,
			})
			return true
		})
	}

	// Order by write index; ties (e.g. entries restored from a snapshot)
	// fall back to key order so the result is deterministic
	sort.Slice(items, func(i, j int) bool {
		if items[i].Index != items[j].Index {
			return items[i].Index < items[j].Index
		}
		return items[i].Key < items[j].Key
	})

	return items
}

// --------------------------------------------------------------------------
// Garbage Collection
// --------------------------------------------------------------------------

// startGC starts the garbage collector
// if the GC is already running, this function does nothing
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) startGC() {
	if b.gcIsRunning.CompareAndSwap(false, true) {
		go b.garbageCollector()
	}
}

// stopGC stops the garbage collector.
// if the GC is not running, this function does nothing.
// the gc can't be started again after it has been stopped!
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *birchImpl) stopGC() {
	if b.gcIsRunning.CompareAndSwap(true, false) {
		for _, shard := range b.shards {
			shard.Events.Close()
		}
	}
}

// garbageCollector is the main garbage collection loop
// WARNING: this method should never be called directly! use startGC() and stopGC()
//
// Thread-safety: This function is not thread-safe!
func (b *birchImpl) garbageCollector() {

	// wait group for all shards
	var wg sync.WaitGroup
	wg.Add(len(b.shards))

	// run gc for each shard in parallel
	for i := range b.shards {
		go func(shardIndex int) { // start goroutine for each shard
			defer wg.Done()

			// the shard this goroutine is responsible for
			shard := b.shards[shardIndex]

			// timeouts
			gcTimer := time.NewTimer(b.gcInterval)
			defer gcTimer.Stop()

			for {
				// reset timeout
				gcTimer.Reset(b.gcInterval)

				endLoop := false
				for !endLoop {
					select {
					// case add new entry to gc
					case event, ok := <-shard.Events.Recv():

						if !ok {
							return
						}
						key := event.Key
						eventShard := b.shardFor(key)

						switch event.Type {
						case internal.EventTWrite:
							// get entry
							if entry, ok := eventShard.Data.Load(key); ok {
								// add entry to gc for expiration
								if entry.ExpireAt != 0 {
									eventShard.ExpireHeap.AddItem(key, entry.ExpireAt)
								}

								// add entry to gc for deletion
								if entry.DeleteAt != 0 {
									eventShard.DeleteHeap.AddItem(key, entry.DeleteAt)
								}
							}
						case internal.EventTDelete:
							eventShard.ExpireHeap.RemoveByKey(key)
							eventShard.DeleteHeap.RemoveByKey(key)
						default:
							panic(fmt.Sprintf("unknown event %s", event))
						}

					case <-gcTimer.C:
						endLoop = true
					}
				}

				// ACTUAL GC LOGIC BELOW

				/*
					Note: We take the clock reading once per gc cycle so that a cycle
					always works against a fixed point in time.
				*/
				now := nowMillis()

				// check if the expiry heap has expired entries
				for {

					item, exists := shard.ExpireHeap.Peek()
					if !exists || item.Priority > now {
						break
					}

					// expire entry
					shard.Data.Compute(item.Key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
						if !loaded {
							return e, true
						}

						// double-check the entry is expired (see explanation in Note-1 below)
						if isExpired, _ := e.TTLInfo(now); !isExpired {
							return e, false
						}

						// help the go gc
						e.Value = nil

						// keep the entry but drop the value
						return internal.Entry{
							Value:    nil,
							ExpireAt: e.ExpireAt,
							DeleteAt: e.DeleteAt,
							Index:    e.Index,
						}, false
					})

					// remove entry from expire gc (see explanation in Note-2 below)
					shard.ExpireHeap.RemoveByKey(item.Key)
				}

				// check if the delete heap has deleted entries
				for {
					item, exists := shard.DeleteHeap.Peek()
					if !exists || item.Priority > now {
						break
					}

					// delete entry
					shard.Data.Compute(item.Key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
						if !loaded {
							return e, true
						}

						/*
							Note-1: We double-check this because the entry could have been updated in the meantime
						*/

						// double-check the entry is deleted
						if _, isDeleted := e.TTLInfo(now); !isDeleted {
							return e, false
						}

						// help the go gc
						e.Value = nil

						// delete value
						return internal.Entry{}, true
					})

					/*
						Note-2: why do we remove the item from the heaps even if the entry is not deleted?

						If we don't remove the item from the heap, the item will be reprocessed in the next iteration -> endless loop

						Ok but don't we then loose track of the item and never delete it? No! If the item was updated in the meantime
						and thus the deletion time was changed, the item was also added to the event queue and will be reprocessed in
						the next iteration of the most outer loop (in the select statement).
					*/

					// remove entry from delete and expire heap
					shard.ExpireHeap.RemoveByKey(item.Key)
					shard.DeleteHeap.RemoveByKey(item.Key)
				}
			}
		}(i)
	}

	// wait until gc is done for all shards
	wg.Wait()
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the database to the writer
// Concurrent reading and writing is allowed during Save operation
//
// Thread-safety: This function allows concurrent operations with all other functions
// except Load. It takes snapshots of the data without blocking modifications.
func (b *birchImpl) Save(w io.Writer) error {
	// Use a buffered writer for better performance
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	// Create snapshots of all entries
	type entryToSave struct {
		key   string
		entry internal.Entry
	}

	var dataEntries []entryToSave
	now := nowMillis()

	// Collect snapshots of all shards
	for _, shard := range b.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {

			// test if the entry is deleted and skip if yes
			if _, isDeleted := entry.TTLInfo(now); isDeleted {
				return true
			}

			// Create deep copy
			entryCopy := internal.Entry{
				ExpireAt: entry.ExpireAt,
				DeleteAt: entry.DeleteAt,
				Index:    entry.Index,
				Value:    make([]byte, len(entry.Value)),
			}
			copy(entryCopy.Value, entry.Value)

			dataEntries = append(dataEntries, entryToSave{key, entryCopy})
			return true
		})
	}

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write birch version
	if err := binary.Write(bw, binary.LittleEndian, uint8(birchVersion)); err != nil {
		return err
	}

	// Write total data entries count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(dataEntries))); err != nil {
		return err
	}

	// Write data entries
	for _, item := range dataEntries {

		// Write key length and key bytes
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}

		// Write expiration deadline
		if err := binary.Write(bw, binary.LittleEndian, item.entry.ExpireAt); err != nil {
			return err
		}

		// Write deletion deadline
		if err := binary.Write(bw, binary.LittleEndian, item.entry.DeleteAt); err != nil {
			return err
		}

		// Write write index
		if err := binary.Write(bw, binary.LittleEndian, item.entry.Index); err != nil {
			return err
		}

		// Write value length and value bytes
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.entry.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.entry.Value); err != nil {
			return err
		}
	}

	// Flush buffer to ensure all data is written
	return bw.Flush()
}

// Load restores a database from the reader
//
// Thread-safety: This function is not thread-safe and should not be called concurrently
func (b *birchImpl) Load(r io.Reader) error {

	// stop gc during load
	b.stopGC()
	defer b.startGC() // we only can re-enable the gc because all shards are recreated

	// Use a buffered reader for better performance
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}

	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}

	if int(version) != birchVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, birchVersion)
	}

	// Recreate empty shards
	shards := make([]*internal.Shard, b.numShards)
	for i := 0; i < b.numShards; i++ {
		shards[i] = internal.NewShard()
	}
	b.shards = shards

	// Initialize atomic values
	b.currIndex.Store(0)

	// Read data entries count
	var dataCount uint64
	if err := binary.Read(br, binary.LittleEndian, &dataCount); err != nil {
		return err
	}

	// Track the highest index seen during load
	var maxIndex uint64 = 0

	// Read data entries
	for i := uint64(0); i < dataCount; i++ {
		// Read key
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBytes); err != nil {
			return err
		}
		key := string(keyBytes)

		// Read expiration deadline
		var expireAt uint64
		if err := binary.Read(br, binary.LittleEndian, &expireAt); err != nil {
			return err
		}

		// Read deletion deadline
		var deleteAt uint64
		if err := binary.Read(br, binary.LittleEndian, &deleteAt); err != nil {
			return err
		}

		// Read write index
		var writeIndex uint64
		if err := binary.Read(br, binary.LittleEndian, &writeIndex); err != nil {
			return err
		}

		// Track the highest index
		if writeIndex > maxIndex {
			maxIndex = writeIndex
		}

		// Read value length and bytes
		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		// Find the appropriate shard and store entry
		shard := b.shardFor(key)
		shard.Data.Store(key, internal.Entry{
			Value:    value,
			ExpireAt: expireAt,
			DeleteAt: deleteAt,
			Index:    writeIndex,
		})

		// add entry directly to gc, we can do this here because this method is single threaded
		if expireAt != 0 {
			shard.ExpireHeap.AddItem(key, expireAt)
		}
		if deleteAt != 0 {
			shard.DeleteHeap.AddItem(key, deleteAt)
		}
	}

	// Update current index to the highest seen during load
	b.SetWriteIdx(maxIndex)

	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (b *birchImpl) GetInfo() db.DatabaseInfo {

	// get the clock reading only once
	now := nowMillis()

	// create a size histogram for the info
	histogram := util.NewSizeHistogram()
	samplesPerShard := 100
	wg := sync.WaitGroup{}
	wg.Add(len(b.shards))

	// more stats
	mu := sync.Mutex{}
	samplesCount := 0
	expiredBacklog := 0
	deletedBacklog := 0
	shardSizes := make([]float64, len(b.shards))

	// concurrently collect samples from all shards
	for shardIndex, shard := range b.shards {
		go func(i int, s *internal.Shard) {
			defer wg.Done()
			count := 0
			expiredCount := 0
			deletedCount := 0
			s.Data.Range(func(key string, entry internal.Entry) bool {
				// track size in histogram
				histogram.AddSample(len(entry.Value))

				// check if entry is expired or deleted but not yet processed by the gc
				isExpired, isDeleted := entry.TTLInfo(now)
				if isExpired && entry.Value != nil {
					expiredCount++
				}
				if isDeleted {
					deletedCount++
				}

				// only sample a few entries per shard
				count++
				return count < samplesPerShard
			})

			mu.Lock()
			defer mu.Unlock()

			// track stats
			samplesCount += count
			expiredBacklog += expiredCount
			deletedBacklog += deletedCount
			shardSizes[i] = float64(s.Data.Size())
		}(shardIndex, shard)
	}

	// wait for all shards to finish
	wg.Wait()

	// calculate size
	entryOverhead := 32 // 8 bytes each for expireAt, deleteAt, index + key header
	medianSize := histogram.MedianEstimate() + entryOverhead
	avgSize := histogram.AverageSize() + entryOverhead

	// weighted estimate (60% median, 40% average)
	sizeBytes := (medianSize*60 + avgSize*40) / 100

	// Metadata for this specific database implementation
	meta := &struct {
		CurrentWriteIndex uint64                 `json:"current_write_index"`
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		ExpiredBacklog    float64                `json:"expired_backlog"`
		DeletedBacklog    float64                `json:"deleted_backlog"`
		Info              string                 `json:"info"`
	}{
		CurrentWriteIndex: b.currIndex.Load(),
		ShardCount:        len(b.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		ExpiredBacklog:    float64(expiredBacklog) / float64(max(samplesCount, 1)),
		DeletedBacklog:    float64(deletedBacklog) / float64(max(samplesCount, 1)),
		Info:              "All values (including SizeBytes) are estimates and may vary depending on the database state.",
	}

	// features
	supportedFeatures := []db.Feature{
		db.FeatureSet, db.FeatureSetE, db.FeatureSetEIfUnset, db.FeatureUpdateTTL,
		db.FeatureExpire | db.FeatureDelete,
		db.FeatureGet, db.FeatureHas, db.FeatureScan,
		db.FeatureSave, db.FeatureLoad,
		db.FeatureGarbageCollect,
	}

	return db.DatabaseInfo{
		SizeBytes:         sizeBytes,
		DbType:            db.ImplBirch,
		SupportedFeatures: supportedFeatures,
		Metadata:          meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (b *birchImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetE |
		db.FeatureSetEIfUnset |
		db.FeatureUpdateTTL |
		db.FeatureGet |
		db.FeatureExpire |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureScan |
		db.FeatureSave |
		db.FeatureLoad |
		db.FeatureGarbageCollect
	return supportedFeatures&feature == feature
}

// Close stops the garbage collector
func (b *birchImpl) Close() error {
	b.stopGC()
	return nil
}

// --------------------------------------------------------------------------
// Index and Timestamp Management
// --------------------------------------------------------------------------

// SetWriteIdx safely updates the current index
// It only updates if the new index is greater than the current one
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// It uses atomic operations to ensure that the index only increases.
func (b *birchImpl) SetWriteIdx(newIdx uint64) {
	// Only update if the new index is greater
	for {
		currIdx := b.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if b.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (b *birchImpl) WriteIdx() uint64 {
	return b.currIndex.Load()
}
