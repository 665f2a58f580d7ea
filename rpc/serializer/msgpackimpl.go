package serializer

import (
	"github.com/ValentinKolb/dORM/rpc/common"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpackSerializer creates a new serializer using msgpack encoding.
// Record payloads are already msgpack encoded, so this keeps the whole
// wire format in a single encoding.
func NewMsgpackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{}
}

// msgpackSerializerImpl implements the IRPCSerializer interface using msgpack encoding
type msgpackSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (m msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return msgpack.Unmarshal(b, msg)
}
