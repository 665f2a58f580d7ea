package client

import (
	"fmt"

	"github.com/ValentinKolb/dORM/lib/orm"
	"github.com/ValentinKolb/dORM/rpc/common"
	"github.com/ValentinKolb/dORM/rpc/serializer"
	"github.com/ValentinKolb/dORM/rpc/transport"
	"github.com/vmihailenco/msgpack/v5"
)

// NewRPCEngine creates a new RPC collection engine
// The function takes a shard ID, a config, a transport and a serializer as
// parameters. It returns an orm.IEngine and an error
func NewRPCEngine(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (orm.IEngine, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC engine
	e := rpcEngine{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC engine
	return &e, nil
}

type rpcEngine struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the orm package in engine.go)
// --------------------------------------------------------------------------

func (i *rpcEngine) Define(collection string, def orm.CollectionDefinition) error {
	payload, err := msgpack.Marshal(def)
	if err != nil {
		return &orm.Error{Kind: orm.KindValidation, Msg: fmt.Sprintf("failed to encode definition: %s", err)}
	}
	_, err = i.invoke(common.NewColDefineRequest(collection, payload))
	return err
}

func (i *rpcEngine) Describe(collection string) (orm.CollectionDefinition, error) {
	var def orm.CollectionDefinition

	resp, err := i.invoke(common.NewColDescribeRequest(collection))
	if err != nil {
		return def, err
	}

	if err := msgpack.Unmarshal(resp.Payload, &def); err != nil {
		return def, &orm.Error{Kind: orm.KindConnection, Msg: fmt.Sprintf("failed to decode definition: %s", err)}
	}
	return def, nil
}

func (i *rpcEngine) Drop(collection string, relations []string) error {
	var payload []byte
	if len(relations) > 0 {
		var err error
		payload, err = msgpack.Marshal(relations)
		if err != nil {
			return &orm.Error{Kind: orm.KindValidation, Msg: fmt.Sprintf("failed to encode relations: %s", err)}
		}
	}
	_, err := i.invoke(common.NewColDropRequest(collection, payload))
	return err
}

func (i *rpcEngine) Create(collection string, data orm.Record) (orm.Record, error) {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return nil, &orm.Error{Kind: orm.KindValidation, Msg: fmt.Sprintf("failed to encode record: %s", err)}
	}

	resp, err := i.invoke(common.NewColCreateRequest(collection, payload))
	if err != nil {
		return nil, err
	}

	var created orm.Record
	if err := msgpack.Unmarshal(resp.Payload, &created); err != nil {
		return nil, &orm.Error{Kind: orm.KindConnection, Msg: fmt.Sprintf("failed to decode record: %s", err)}
	}
	return created, nil
}

func (i *rpcEngine) Find(collection string, criteria orm.Criteria) ([]orm.Record, error) {
	payload, err := msgpack.Marshal(criteria)
	if err != nil {
		return nil, &orm.Error{Kind: orm.KindValidation, Msg: fmt.Sprintf("failed to encode criteria: %s", err)}
	}

	resp, err := i.invoke(common.NewColFindRequest(collection, payload))
	if err != nil {
		return nil, err
	}
	return decodeRecords(resp.Records)
}

func (i *rpcEngine) Update(collection string, criteria orm.Criteria, values orm.Record) ([]orm.Record, error) {
	criteriaPayload, err := msgpack.Marshal(criteria)
	if err != nil {
		return nil, &orm.Error{Kind: orm.KindValidation, Msg: fmt.Sprintf("failed to encode criteria: %s", err)}
	}
	valuesPayload, err := msgpack.Marshal(values)
	if err != nil {
		return nil, &orm.Error{Kind: orm.KindValidation, Msg: fmt.Sprintf("failed to encode values: %s", err)}
	}

	resp, err := i.invoke(common.NewColUpdateRequest(collection, criteriaPayload, valuesPayload))
	if err != nil {
		return nil, err
	}
	return decodeRecords(resp.Records)
}

func (i *rpcEngine) Destroy(collection string, criteria orm.Criteria) ([]orm.Record, error) {
	payload, err := msgpack.Marshal(criteria)
	if err != nil {
		return nil, &orm.Error{Kind: orm.KindValidation, Msg: fmt.Sprintf("failed to encode criteria: %s", err)}
	}

	resp, err := i.invoke(common.NewColDestroyRequest(collection, payload))
	if err != nil {
		return nil, err
	}
	return decodeRecords(resp.Records)
}

func (i *rpcEngine) SetEntry(collection, key string, value []byte, seconds uint64) error {
	_, err := i.invoke(common.NewEphSetRequest(collection, key, value, seconds))
	return err
}

func (i *rpcEngine) GetEntry(collection, key string) ([]byte, error) {
	resp, err := i.invoke(common.NewEphGetRequest(collection, key))
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (i *rpcEngine) UpdateEntryTTL(collection, key string, seconds uint64) error {
	_, err := i.invoke(common.NewEphUpdateTTLRequest(collection, key, seconds))
	return err
}

func (i *rpcEngine) RemoveEntry(collection, key string) error {
	_, err := i.invoke(common.NewEphRemoveRequest(collection, key))
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// invoke sends a request and rebuilds typed engine errors from the response.
// Transport and serialization failures are reported as connection errors so
// callers see the same error surface as with a local engine.
func (i *rpcEngine) invoke(req *common.Message) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := i.serializer.Serialize(*req)
	if err != nil {
		return nil, &orm.Error{Kind: orm.KindConnection, Msg: fmt.Sprintf("failed to serialize request: %s", err)}
	}

	// Send the request
	respBytes, err := i.transport.Send(i.shardId, reqBytes)
	if err != nil {
		return nil, &orm.Error{Kind: orm.KindConnection, Msg: fmt.Sprintf("transport error: %s", err)}
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := i.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, &orm.Error{Kind: orm.KindConnection, Msg: fmt.Sprintf("failed to deserialize response: %s", err)}
	}

	// Rebuild the engine error if the server reported one
	if resp.Err != "" {
		engineErr := &orm.Error{Kind: orm.KindConnection, Msg: resp.Err}
		if kind := resp.ErrKind &^ common.ErrKindCompensationFailed; kind > 0 {
			engineErr.Kind = orm.Kind(kind)
		}
		engineErr.CompensationFailed = resp.ErrKind&common.ErrKindCompensationFailed != 0
		return nil, engineErr
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, &orm.Error{Kind: orm.KindConnection, Msg: fmt.Sprintf("unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)}
	}

	return resp, nil
}

// decodeRecords decodes a batch of msgpack encoded records
func decodeRecords(encoded [][]byte) ([]orm.Record, error) {
	records := make([]orm.Record, 0, len(encoded))
	for _, data := range encoded {
		var record orm.Record
		if err := msgpack.Unmarshal(data, &record); err != nil {
			return nil, &orm.Error{Kind: orm.KindConnection, Msg: fmt.Sprintf("failed to decode record: %s", err)}
		}
		records = append(records, record)
	}
	return records, nil
}
