package internal

import (
	"fmt"

	"github.com/ValentinKolb/dORM/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Event Types are used to signal changes in the database state
// --------------------------------------------------------------------------

type EventType int

const (
	EventTWrite EventType = iota
	EventTDelete
)

func (e EventType) String() string {
	switch e {
	case EventTWrite:
		return "Write"
	case EventTDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

type Event struct {
	Type EventType
	Key  string
}

func (e Event) String() string {
	return fmt.Sprintf("Event{Type: %s, Key: %q}", e.Type, e.Key)
}

// --------------------------------------------------------------------------
// Entry Type (key-value pair with metadata)
// --------------------------------------------------------------------------

// Entry stores a value with its TTL metadata.
// ExpireAt and DeleteAt are absolute unix-millisecond deadlines (0 = never),
// Index is the logical write index of the last write to this entry.
type Entry struct {
	Value    []byte // Stored data
	ExpireAt uint64 // Expiration deadline (unix ms)
	DeleteAt uint64 // Deletion deadline (unix ms)
	Index    uint64 // Write index when this entry was created/updated
}

// TTLInfo returns whether the entry is expired and whether it is deleted,
// evaluated against the given wall-clock time in unix milliseconds.
func (e Entry) TTLInfo(nowMillis uint64) (isExpired, isDeleted bool) {
	isExpired = e.ExpireAt != 0 && nowMillis >= e.ExpireAt
	isDeleted = e.DeleteAt != 0 && nowMillis >= e.DeleteAt
	return isExpired, isDeleted
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database.
// Keys are kept as full strings so that prefix scans stay possible; only the
// shard selection hashes the key.
type Shard struct {
	Data       *xsync.MapOf[string, Entry] // Map of active key-value entries
	ExpireHeap *util.MapHeap
	DeleteHeap *util.MapHeap
	Events     *util.LockFreeMPSC[Event]
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data:       xsync.NewMapOf[string, Entry](),
		ExpireHeap: util.NewMapHeap(),
		DeleteHeap: util.NewMapHeap(),
		Events:     util.NewLockFreeMPSC[Event](), // this channel is closed to stop the gc per shard
	}
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key string, seed uint64, shards []*T) *T {
	hashed := uint64(util.HashString(key, seed))
	// Shift right by 7 bits to use higher-quality bits for distribution
	shardPos := (hashed >> 7) % uint64(len(shards))
	return shards[shardPos]
}
