package server

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dORM/lib/orm"
	"github.com/ValentinKolb/dORM/lib/store"
	"github.com/ValentinKolb/dORM/rpc/common"
	"github.com/vmihailenco/msgpack/v5"
)

// NewEngineServerAdapter creates an adapter that serves collection and
// ephemeral-entry operations against the given engine. The engine is bound
// at creation, the store passed to Handle is ignored.
func NewEngineServerAdapter(engine orm.IEngine) IRPCServerAdapter {
	return &engineServerAdapterImpl{engine: engine}
}

type engineServerAdapterImpl struct {
	engine orm.IEngine
}

func (adapter *engineServerAdapterImpl) Handle(req *common.Message, _ store.IStore) *common.Message {
	// Check for nil engine
	if adapter.engine == nil {
		return common.NewErrorResponse("handler: engine is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTColDefine:
		var def orm.CollectionDefinition
		if err := msgpack.Unmarshal(req.Payload, &def); err != nil {
			return common.NewErrorResponse(fmt.Sprintf("failed to decode definition: %s", err))
		}
		err := adapter.engine.Define(req.Collection, def)
		return classify(common.NewColDefineResponse(err), err)

	case common.MsgTColDescribe:
		def, err := adapter.engine.Describe(req.Collection)
		if err != nil {
			return classify(common.NewColDescribeResponse(nil, err), err)
		}
		payload, err := msgpack.Marshal(def)
		return classify(common.NewColDescribeResponse(payload, err), err)

	case common.MsgTColDrop:
		var relations []string
		if req.Payload != nil {
			if err := msgpack.Unmarshal(req.Payload, &relations); err != nil {
				return common.NewErrorResponse(fmt.Sprintf("failed to decode relations: %s", err))
			}
		}
		err := adapter.engine.Drop(req.Collection, relations)
		return classify(common.NewColDropResponse(err), err)

	case common.MsgTColCreate:
		var record orm.Record
		if err := msgpack.Unmarshal(req.Payload, &record); err != nil {
			return common.NewErrorResponse(fmt.Sprintf("failed to decode record: %s", err))
		}
		created, err := adapter.engine.Create(req.Collection, record)
		if err != nil {
			return classify(common.NewColCreateResponse(nil, err), err)
		}
		payload, err := msgpack.Marshal(created)
		return classify(common.NewColCreateResponse(payload, err), err)

	case common.MsgTColFind:
		criteria, err := decodeCriteria(req.Payload)
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		records, err := adapter.engine.Find(req.Collection, criteria)
		return recordsResponse(common.NewColFindResponse, records, err)

	case common.MsgTColUpdate:
		criteria, err := decodeCriteria(req.Payload)
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		var values orm.Record
		if err := msgpack.Unmarshal(req.Value, &values); err != nil {
			return common.NewErrorResponse(fmt.Sprintf("failed to decode values: %s", err))
		}
		records, err := adapter.engine.Update(req.Collection, criteria, values)
		return recordsResponse(common.NewColUpdateResponse, records, err)

	case common.MsgTColDestroy:
		criteria, err := decodeCriteria(req.Payload)
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		records, err := adapter.engine.Destroy(req.Collection, criteria)
		return recordsResponse(common.NewColDestroyResponse, records, err)

	case common.MsgTEphSet:
		err := adapter.engine.SetEntry(req.Collection, req.Key, req.Value, req.ExpireIn)
		return classify(common.NewEphSetResponse(err), err)

	case common.MsgTEphGet:
		value, err := adapter.engine.GetEntry(req.Collection, req.Key)
		return classify(common.NewEphGetResponse(value, err), err)

	case common.MsgTEphUpdateTTL:
		err := adapter.engine.UpdateEntryTTL(req.Collection, req.Key, req.ExpireIn)
		return classify(common.NewEphUpdateTTLResponse(err), err)

	case common.MsgTEphRemove:
		err := adapter.engine.RemoveEntry(req.Collection, req.Key)
		return classify(common.NewEphRemoveResponse(err), err)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC EngineAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}

// decodeCriteria decodes msgpack criteria, an empty payload matches everything
func decodeCriteria(payload []byte) (orm.Criteria, error) {
	var criteria orm.Criteria
	if payload == nil {
		return criteria, nil
	}
	if err := msgpack.Unmarshal(payload, &criteria); err != nil {
		return criteria, fmt.Errorf("failed to decode criteria: %w", err)
	}
	return criteria, nil
}

// recordsResponse encodes the records and builds the response via the
// given factory
func recordsResponse(factory func([][]byte, error) *common.Message, records []orm.Record, err error) *common.Message {
	if err != nil {
		return classify(factory(nil, err), err)
	}

	encoded := make([][]byte, 0, len(records))
	for _, record := range records {
		data, err := msgpack.Marshal(record)
		if err != nil {
			return factory(nil, err)
		}
		encoded = append(encoded, data)
	}
	return factory(encoded, nil)
}

// classify copies the engine error kind into the response so clients can
// rebuild typed errors. The high bit of ErrKind carries the
// compensation-failed flag.
func classify(resp *common.Message, err error) *common.Message {
	var engineErr *orm.Error
	if errors.As(err, &engineErr) {
		resp.Err = engineErr.Msg
		resp.ErrKind = uint8(engineErr.Kind)
		if engineErr.CompensationFailed {
			resp.ErrKind |= common.ErrKindCompensationFailed
		}
	}
	return resp
}
