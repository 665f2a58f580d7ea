package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dORM/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey        uint16 = 1 << 0
	hasExpireIn   uint16 = 1 << 1
	hasDeleteIn   uint16 = 1 << 2
	hasValue      uint16 = 1 << 3
	hasOk         uint16 = 1 << 4
	hasErr        uint16 = 1 << 5
	hasMeta       uint16 = 1 << 6
	hasCollection uint16 = 1 << 7
	hasPayload    uint16 = 1 << 8
	hasRecords    uint16 = 1 << 9
	hasEntries    uint16 = 1 << 10
	hasErrKind    uint16 = 1 << 11
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint16 = 0

	// Set position for writing (start after MsgType and flags)
	pos := 3

	// Handle Key
	if msg.Key != "" {
		flags |= hasKey
		pos += putString(result[pos:], msg.Key)
	}

	// Handle ExpireIn
	if msg.ExpireIn > 0 {
		flags |= hasExpireIn
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.ExpireIn)
		pos += 8
	}

	// Handle DeleteIn
	if msg.DeleteIn > 0 {
		flags |= hasDeleteIn
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.DeleteIn)
		pos += 8
	}

	// Handle Value
	if msg.Value != nil {
		flags |= hasValue
		pos += putBytes(result[pos:], msg.Value)
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		pos += putString(result[pos:], msg.Err)
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		pos += putBytes(result[pos:], msg.Meta)
	}

	// Handle Collection
	if msg.Collection != "" {
		flags |= hasCollection
		pos += putString(result[pos:], msg.Collection)
	}

	// Handle Payload
	if msg.Payload != nil {
		flags |= hasPayload
		pos += putBytes(result[pos:], msg.Payload)
	}

	// Handle Records (count followed by length-prefixed items)
	if msg.Records != nil {
		flags |= hasRecords
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Records)))
		pos += 4
		for _, rec := range msg.Records {
			pos += putBytes(result[pos:], rec)
		}
	}

	// Handle Entries (count followed by key and value per entry)
	if msg.Entries != nil {
		flags |= hasEntries
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Entries)))
		pos += 4
		for _, entry := range msg.Entries {
			pos += putString(result[pos:], entry.Key)
			pos += putBytes(result[pos:], entry.Value)
		}
	}

	// Handle ErrKind
	if msg.ErrKind > 0 {
		flags |= hasErrKind
		result[pos] = msg.ErrKind
		pos += 1
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 3 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := binary.BigEndian.Uint16(data[1:3])

	// Initialize read position
	pos := 3

	// Read Key if present
	if flags&hasKey != 0 {
		s, n, err := readString(data[pos:], "key")
		if err != nil {
			return err
		}
		msg.Key = s
		pos += n
	} else {
		msg.Key = ""
	}

	// Read ExpireIn if present
	if flags&hasExpireIn != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for ExpireIn")
		}

		msg.ExpireIn = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.ExpireIn = 0
	}

	// Read DeleteIn if present
	if flags&hasDeleteIn != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for DeleteIn")
		}

		msg.DeleteIn = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.DeleteIn = 0
	}

	// Read Value if present
	if flags&hasValue != 0 {
		v, n, err := readBytes(data[pos:], "value")
		if err != nil {
			return err
		}
		msg.Value = v
		pos += n
	} else {
		msg.Value = nil
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}

		msg.Ok = data[pos] != 0
		pos += 1
	} else {
		msg.Ok = false
	}

	// Read Err if present
	if flags&hasErr != 0 {
		s, n, err := readString(data[pos:], "error")
		if err != nil {
			return err
		}
		msg.Err = s
		pos += n
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		v, n, err := readBytes(data[pos:], "meta")
		if err != nil {
			return err
		}
		msg.Meta = v
		pos += n
	} else {
		msg.Meta = nil
	}

	// Read Collection if present
	if flags&hasCollection != 0 {
		s, n, err := readString(data[pos:], "collection")
		if err != nil {
			return err
		}
		msg.Collection = s
		pos += n
	} else {
		msg.Collection = ""
	}

	// Read Payload if present
	if flags&hasPayload != 0 {
		v, n, err := readBytes(data[pos:], "payload")
		if err != nil {
			return err
		}
		msg.Payload = v
		pos += n
	} else {
		msg.Payload = nil
	}

	// Read Records if present
	if flags&hasRecords != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for record count")
		}

		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		msg.Records = make([][]byte, 0, count)
		for i := uint32(0); i < count; i++ {
			v, n, err := readBytes(data[pos:], "record")
			if err != nil {
				return err
			}
			msg.Records = append(msg.Records, v)
			pos += n
		}
	} else {
		msg.Records = nil
	}

	// Read Entries if present
	if flags&hasEntries != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for entry count")
		}

		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		msg.Entries = make([]common.Entry, 0, count)
		for i := uint32(0); i < count; i++ {
			key, n, err := readString(data[pos:], "entry key")
			if err != nil {
				return err
			}
			pos += n

			value, m, err := readBytes(data[pos:], "entry value")
			if err != nil {
				return err
			}
			pos += m

			msg.Entries = append(msg.Entries, common.Entry{Key: key, Value: value})
		}
	} else {
		msg.Entries = nil
	}

	// Read ErrKind if present
	if flags&hasErrKind != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for error kind")
		}

		msg.ErrKind = data[pos]
		pos += 1
	} else {
		msg.ErrKind = 0
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// putString writes a length-prefixed string and returns the bytes written
func putString(dst []byte, s string) int {
	binary.BigEndian.PutUint32(dst[0:4], uint32(len(s)))
	copy(dst[4:4+len(s)], s)
	return 4 + len(s)
}

// putBytes writes a length-prefixed byte slice and returns the bytes written
func putBytes(dst, v []byte) int {
	binary.BigEndian.PutUint32(dst[0:4], uint32(len(v)))
	copy(dst[4:4+len(v)], v)
	return 4 + len(v)
}

// readString reads a length-prefixed string and returns it together with the
// number of bytes consumed
func readString(data []byte, field string) (string, int, error) {
	if len(data) < 4 {
		return "", 0, fmt.Errorf("data too short for %s length", field)
	}

	l := int(binary.BigEndian.Uint32(data[0:4]))
	if 4+l > len(data) {
		return "", 0, fmt.Errorf("data too short for %s data", field)
	}

	return string(data[4 : 4+l]), 4 + l, nil
}

// readBytes reads a length-prefixed byte slice and returns it together with
// the number of bytes consumed
func readBytes(data []byte, field string) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("data too short for %s length", field)
	}

	l := int(binary.BigEndian.Uint32(data[0:4]))
	if 4+l > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s data", field)
	}

	v := make([]byte, l)
	copy(v, data[4:4+l])
	return v, 4 + l, nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 2 bytes for flags
	size := 3

	// Add sizes for fields that require length encoding
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.ExpireIn > 0 {
		size += 8
	}
	if msg.DeleteIn > 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Ok {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}
	if msg.Collection != "" {
		size += 4 + len(msg.Collection)
	}
	if msg.Payload != nil {
		size += 4 + len(msg.Payload)
	}
	if msg.Records != nil {
		size += 4
		for _, rec := range msg.Records {
			size += 4 + len(rec)
		}
	}
	if msg.Entries != nil {
		size += 4
		for _, entry := range msg.Entries {
			size += 4 + len(entry.Key) + 4 + len(entry.Value)
		}
	}
	if msg.ErrKind > 0 {
		size += 1
	}

	return size
}
