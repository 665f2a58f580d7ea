package orm

import (
	"crypto/rand"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is a mapping from attribute name to value, addressable by one
// primary-key value.
type Record map[string]interface{}

// clone returns a shallow copy so stored state never aliases caller maps.
func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// --------------------------------------------------------------------------
// Stored envelopes
// --------------------------------------------------------------------------

// The store channel offers set-if-absent but no compare-and-set, so every
// claimable value carries a random revision token. A writer claims a key with
// SetEIfUnset and then reads it back: the claim succeeded iff the stored
// token is its own. This is the same ownership idiom the lock manager uses.

const revBytes = 16

func newRev() ([]byte, error) {
	rev := make([]byte, revBytes)
	if _, err := rand.Read(rev); err != nil {
		return nil, newError(KindConnection, "failed to generate revision token: %v", err)
	}
	return rev, nil
}

// recordEnvelope is the stored form of a record.
type recordEnvelope struct {
	Rev    []byte                 `msgpack:"rev"`
	Fields map[string]interface{} `msgpack:"fields"`
}

func encodeRecord(rev []byte, rec Record) ([]byte, error) {
	data, err := msgpack.Marshal(&recordEnvelope{Rev: rev, Fields: rec})
	if err != nil {
		return nil, newError(KindValidation, "failed to encode record: %v", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*recordEnvelope, error) {
	var env recordEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, newError(KindConnection, "failed to decode stored record: %v", err)
	}
	if env.Fields == nil {
		env.Fields = map[string]interface{}{}
	}
	return &env, nil
}

// indexEnvelope is the stored form of a unique-index entry: the claim token
// plus the canonical primary key the entry points at.
type indexEnvelope struct {
	Rev []byte `msgpack:"rev"`
	PK  string `msgpack:"pk"`
}

func encodeIndexEntry(rev []byte, pk string) ([]byte, error) {
	data, err := msgpack.Marshal(&indexEnvelope{Rev: rev, PK: pk})
	if err != nil {
		return nil, newError(KindConnection, "failed to encode index entry: %v", err)
	}
	return data, nil
}

func decodeIndexEntry(data []byte) (*indexEnvelope, error) {
	var env indexEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, newError(KindConnection, "failed to decode stored index entry: %v", err)
	}
	return &env, nil
}
