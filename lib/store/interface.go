package store

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dORM/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// ScanEntry is a single result of a prefix scan. Entries are returned in
// insertion order (ascending write index).
type ScanEntry struct {
	Key   string
	Value []byte
}

// IStore is the generic interface for interacting with a key–value store.
// All write operations return only a *Error (nil on success),
// while read operations return the requested data along with a *Error (nil on success).
//
// All lifetimes (ttl, expireIn, deleteIn) are given in seconds relative to the
// moment the call is issued. Store implementations convert them to absolute
// wall-clock deadlines before the write is applied, so replicated stores apply
// identical deadlines on every replica.
type IStore interface {
	// Set inserts or updates a key–value pair.
	Set(key string, value []byte) (err error)
	// SetE inserts or updates a key–value pair with expiration and or deletion lifetimes in seconds.
	// A zero value for expireIn and deleteIn means no expiration or deletion.
	SetE(key string, value []byte, expireIn, deleteIn uint64) (err error)
	// SetEIfUnset inserts a key–value pair if the key does not exist.
	// If the key already exists, the old value is not updated, no matter the value of expireIn and deleteIn.
	// No error is returned if the key already exists.
	SetEIfUnset(key string, value []byte, expireIn, deleteIn uint64) (err error)
	// UpdateTTL replaces the lifetimes of an existing key without touching its value.
	// If the key does not exist, the call is a no-op.
	UpdateTTL(key string, expireIn, deleteIn uint64) (err error)
	// Expire expired the value for a key. The key should still be findable with the Has() method.
	Expire(key string) (err error)
	// Delete deletes a key–value pair. The key should be removed from the store.
	Delete(key string) (err error)
	// Get return the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a key exists in the store. The method should return true even if the value for the key is expired.
	Has(key string) (loaded bool, err error)
	// Scan returns all live entries whose key starts with prefix, in insertion order.
	Scan(prefix string) (entries []ScanEntry, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "RetCInternalError"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("KVStoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
)

// --------------------------------------------------------------------------
// Lifetime helpers
// --------------------------------------------------------------------------

// DeadlineAt converts a relative lifetime in seconds to an absolute
// unix-millisecond deadline. A lifetime of 0 maps to 0 ("never").
func DeadlineAt(now time.Time, seconds uint64) uint64 {
	if seconds == 0 {
		return 0
	}
	return uint64(now.UnixMilli()) + seconds*1000
}
