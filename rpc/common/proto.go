package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key      string `json:"key,omitempty"`      // Used for: Set, Get, Has, Expire, Delete, UpdateTTL, Scan (prefix), Acquire, Release, ephemeral ops
	ExpireIn uint64 `json:"expireIn,omitempty"` // Used for: Set, UpdateTTL and ephemeral operations (seconds)
	DeleteIn uint64 `json:"deleteIn,omitempty"` // Used for: Set, UpdateTTL, Acquire operations (seconds)
	Value    []byte `json:"value,omitempty"`    // Used for: Set (request), Get (response), Acquire (response), Update (values)

	// Collection fields
	Collection string   `json:"collection,omitempty"` // Target collection for Col* and Eph* operations
	Payload    []byte   `json:"payload,omitempty"`    // Msgpack-encoded definition, criteria or record
	Records    [][]byte `json:"records,omitempty"`    // Msgpack-encoded records (Find, Update, Destroy responses)
	Entries    []Entry  `json:"entries,omitempty"`    // Key-value pairs (Scan response)

	// Response only fields
	Ok      bool   `json:"ok,omitempty"`      // Used for: Get, Has, Acquire, Release responses
	Err     string `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message
	ErrKind uint8  `json:"errKind,omitempty"` // Error classification for Col* and Eph* responses

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// Entry is a single key-value pair returned by Scan responses.
type Entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// ErrKindCompensationFailed marks the high bit of ErrKind. It is set when an
// engine operation failed and its cleanup failed too, the low bits still
// carry the error kind.
const ErrKindCompensationFailed uint8 = 1 << 7

// --------------------------------------------------------------------------
// Message Factory Functions (IStore)
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTKVSet,
		Key:     key,
		Value:   value,
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVSet,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewSetERequest creates a new SetE request
func NewSetERequest(key string, value []byte, expireIn, deleteIn uint64) *Message {
	return &Message{
		MsgType:  MsgTKVSetE,
		Key:      key,
		Value:    value,
		ExpireIn: expireIn,
		DeleteIn: deleteIn,
	}
}

// NewSetEResponse creates a new SetE response
func NewSetEResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVSetE,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewSetEIfUnsetRequest creates a new SetEIfUnset request
func NewSetEIfUnsetRequest(key string, value []byte, expireIn, deleteIn uint64) *Message {
	return &Message{
		MsgType:  MsgTKVSetEIfUnset,
		Key:      key,
		Value:    value,
		ExpireIn: expireIn,
		DeleteIn: deleteIn,
	}
}

// NewSetEIfUnsetResponse creates a new SetEIfUnset response
func NewSetEIfUnsetResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVSetEIfUnset,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewUpdateTTLRequest creates a new UpdateTTL request
func NewUpdateTTLRequest(key string, expireIn, deleteIn uint64) *Message {
	return &Message{
		MsgType:  MsgTKVUpdateTTL,
		Key:      key,
		ExpireIn: expireIn,
		DeleteIn: deleteIn,
	}
}

// NewUpdateTTLResponse creates a new UpdateTTL response
func NewUpdateTTLResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVUpdateTTL,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewExpireRequest creates a new Expire request
func NewExpireRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVExpire,
		Key:     key,
	}
}

// NewExpireResponse creates a new Expire response
func NewExpireResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVExpire,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVDelete,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVDelete,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVGet,
		Ok:      ok,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVHas,
		Key:     key,
	}
}

// NewHasResponse creates a new Has response
func NewHasResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVHas,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewScanRequest creates a new Scan request. The key field carries the prefix.
func NewScanRequest(prefix string) *Message {
	return &Message{
		MsgType: MsgTKVScan,
		Key:     prefix,
	}
}

// NewScanResponse creates a new Scan response
func NewScanResponse(entries []Entry, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVScan,
		Entries: entries,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions (ILockManager)
// --------------------------------------------------------------------------

// NewAcquireRequest creates a new Acquire request
func NewAcquireRequest(key string, deleteIn uint64) *Message {
	return &Message{
		MsgType:  MsgTLCKAcquire,
		Key:      key,
		DeleteIn: deleteIn,
	}
}

// NewAcquireResponse creates a new Acquire response
func NewAcquireResponse(ok bool, value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTLCKAcquire,
		Ok:      ok,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(key string, ownerId []byte) *Message {
	return &Message{
		MsgType: MsgTLCKRelease,
		Key:     key,
		Value:   ownerId,
	}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTLCKRelease,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions (IEngine collections)
// --------------------------------------------------------------------------

// NewColDefineRequest creates a new Define request. The payload holds the
// msgpack-encoded collection definition.
func NewColDefineRequest(collection string, definition []byte) *Message {
	return &Message{
		MsgType:    MsgTColDefine,
		Collection: collection,
		Payload:    definition,
	}
}

// NewColDefineResponse creates a new Define response
func NewColDefineResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTColDefine,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewColDescribeRequest creates a new Describe request
func NewColDescribeRequest(collection string) *Message {
	return &Message{
		MsgType:    MsgTColDescribe,
		Collection: collection,
	}
}

// NewColDescribeResponse creates a new Describe response. The payload holds
// the msgpack-encoded collection definition.
func NewColDescribeResponse(definition []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTColDescribe,
		Payload: definition,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewColDropRequest creates a new Drop request. The payload holds the
// msgpack-encoded list of dependent collection names.
func NewColDropRequest(collection string, relations []byte) *Message {
	return &Message{
		MsgType:    MsgTColDrop,
		Collection: collection,
		Payload:    relations,
	}
}

// NewColDropResponse creates a new Drop response
func NewColDropResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTColDrop,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewColCreateRequest creates a new Create request. The payload holds the
// msgpack-encoded record.
func NewColCreateRequest(collection string, record []byte) *Message {
	return &Message{
		MsgType:    MsgTColCreate,
		Collection: collection,
		Payload:    record,
	}
}

// NewColCreateResponse creates a new Create response. The payload holds the
// msgpack-encoded stored record (including generated keys).
func NewColCreateResponse(record []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTColCreate,
		Payload: record,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewColFindRequest creates a new Find request. The payload holds the
// msgpack-encoded criteria.
func NewColFindRequest(collection string, criteria []byte) *Message {
	return &Message{
		MsgType:    MsgTColFind,
		Collection: collection,
		Payload:    criteria,
	}
}

// NewColFindResponse creates a new Find response
func NewColFindResponse(records [][]byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTColFind,
		Records: records,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewColUpdateRequest creates a new Update request. The payload holds the
// msgpack-encoded criteria, the value field the msgpack-encoded new values.
func NewColUpdateRequest(collection string, criteria, values []byte) *Message {
	return &Message{
		MsgType:    MsgTColUpdate,
		Collection: collection,
		Payload:    criteria,
		Value:      values,
	}
}

// NewColUpdateResponse creates a new Update response
func NewColUpdateResponse(records [][]byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTColUpdate,
		Records: records,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewColDestroyRequest creates a new Destroy request. The payload holds the
// msgpack-encoded criteria.
func NewColDestroyRequest(collection string, criteria []byte) *Message {
	return &Message{
		MsgType:    MsgTColDestroy,
		Collection: collection,
		Payload:    criteria,
	}
}

// NewColDestroyResponse creates a new Destroy response
func NewColDestroyResponse(records [][]byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTColDestroy,
		Records: records,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions (IEngine ephemeral entries)
// --------------------------------------------------------------------------

// NewEphSetRequest creates a new ephemeral Set request. Lifetime is in
// seconds, 0 means the entry never expires.
func NewEphSetRequest(collection, key string, value []byte, lifetime uint64) *Message {
	return &Message{
		MsgType:    MsgTEphSet,
		Collection: collection,
		Key:        key,
		Value:      value,
		ExpireIn:   lifetime,
	}
}

// NewEphSetResponse creates a new ephemeral Set response
func NewEphSetResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTEphSet,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewEphGetRequest creates a new ephemeral Get request
func NewEphGetRequest(collection, key string) *Message {
	return &Message{
		MsgType:    MsgTEphGet,
		Collection: collection,
		Key:        key,
	}
}

// NewEphGetResponse creates a new ephemeral Get response
func NewEphGetResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTEphGet,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewEphUpdateTTLRequest creates a new ephemeral UpdateTTL request
func NewEphUpdateTTLRequest(collection, key string, lifetime uint64) *Message {
	return &Message{
		MsgType:    MsgTEphUpdateTTL,
		Collection: collection,
		Key:        key,
		ExpireIn:   lifetime,
	}
}

// NewEphUpdateTTLResponse creates a new ephemeral UpdateTTL response
func NewEphUpdateTTLResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTEphUpdateTTL,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewEphRemoveRequest creates a new ephemeral Remove request
func NewEphRemoveRequest(collection, key string) *Message {
	return &Message{
		MsgType:    MsgTEphRemove,
		Collection: collection,
		Key:        key,
	}
}

// NewEphRemoveResponse creates a new ephemeral Remove response
func NewEphRemoveResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTEphRemove,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// --------------------------------------------------------------------------
// Message Factory Functions (misc)
// --------------------------------------------------------------------------

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTKVSet:
		return "set"
	case MsgTKVSetE:
		return "setE"
	case MsgTKVSetEIfUnset:
		return "setEIfUnset"
	case MsgTKVUpdateTTL:
		return "updateTTL"
	case MsgTKVExpire:
		return "expire"
	case MsgTKVDelete:
		return "delete"
	case MsgTKVGet:
		return "get"
	case MsgTKVHas:
		return "has"
	case MsgTKVScan:
		return "scan"
	case MsgTLCKAcquire:
		return "acquire"
	case MsgTLCKRelease:
		return "release"
	case MsgTColDefine:
		return "colDefine"
	case MsgTColDescribe:
		return "colDescribe"
	case MsgTColDrop:
		return "colDrop"
	case MsgTColCreate:
		return "colCreate"
	case MsgTColFind:
		return "colFind"
	case MsgTColUpdate:
		return "colUpdate"
	case MsgTColDestroy:
		return "colDestroy"
	case MsgTEphSet:
		return "ephSet"
	case MsgTEphGet:
		return "ephGet"
	case MsgTEphUpdateTTL:
		return "ephUpdateTTL"
	case MsgTEphRemove:
		return "ephRemove"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "set":
		*t = MsgTKVSet
	case "setE":
		*t = MsgTKVSetE
	case "setEIfUnset":
		*t = MsgTKVSetEIfUnset
	case "updateTTL":
		*t = MsgTKVUpdateTTL
	case "expire":
		*t = MsgTKVExpire
	case "delete":
		*t = MsgTKVDelete
	case "get":
		*t = MsgTKVGet
	case "has":
		*t = MsgTKVHas
	case "scan":
		*t = MsgTKVScan
	case "acquire":
		*t = MsgTLCKAcquire
	case "release":
		*t = MsgTLCKRelease
	case "colDefine":
		*t = MsgTColDefine
	case "colDescribe":
		*t = MsgTColDescribe
	case "colDrop":
		*t = MsgTColDrop
	case "colCreate":
		*t = MsgTColCreate
	case "colFind":
		*t = MsgTColFind
	case "colUpdate":
		*t = MsgTColUpdate
	case "colDestroy":
		*t = MsgTColDestroy
	case "ephSet":
		*t = MsgTEphSet
	case "ephGet":
		*t = MsgTEphGet
	case "ephUpdateTTL":
		*t = MsgTEphUpdateTTL
	case "ephRemove":
		*t = MsgTEphRemove
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVSet         // Set a key-value pair
	MsgTKVSetE        // Set a key-value pair with expiration
	MsgTKVSetEIfUnset // Set a key-value pair if not already set
	MsgTKVUpdateTTL   // Update the lifetime of an existing key
	MsgTKVExpire      // Expire a key
	MsgTKVDelete      // Delete a key-value pair
	MsgTKVGet         // Get a value by key
	MsgTKVHas         // Check if a key exists
	MsgTKVScan        // List all entries under a key prefix

	// ILockManager operations

	MsgTLCKAcquire // Acquire a lock
	MsgTLCKRelease // Release a lock

	// IEngine collection operations

	MsgTColDefine   // Register a collection definition
	MsgTColDescribe // Fetch a collection definition
	MsgTColDrop     // Drop a collection and its data
	MsgTColCreate   // Create a record
	MsgTColFind     // Query records by criteria
	MsgTColUpdate   // Update records matching criteria
	MsgTColDestroy  // Delete records matching criteria

	// IEngine ephemeral operations

	MsgTEphSet       // Store an ephemeral entry
	MsgTEphGet       // Fetch an ephemeral entry
	MsgTEphUpdateTTL // Refresh the lifetime of an ephemeral entry
	MsgTEphRemove    // Remove an ephemeral entry

	// Custom operations

	MsgTCustom // Custom operation type
)
