package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/dORM/lib/db"
	"github.com/ValentinKolb/dORM/lib/db/engines/birch"
	"github.com/ValentinKolb/dORM/lib/orm"
	"github.com/ValentinKolb/dORM/lib/store"
	"github.com/ValentinKolb/dORM/lib/store/dstore"
	"github.com/ValentinKolb/dORM/lib/store/lstore"
	"github.com/ValentinKolb/dORM/rpc/common"
	"github.com/ValentinKolb/dORM/rpc/serializer"
	"github.com/ValentinKolb/dORM/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	_ "net/http/pprof"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the store the shard encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := rpc.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				metrics.GetOrCreateCounter(fmt.Sprintf(`rpc_requests_total{type=%q,shard="%d"}`, msg.MsgType.String(), shardId)).Inc()
				respMsg = *shard.Adapter.Handle(&msg, shard.Store)
			}
		}

		// Count failed requests
		if respMsg.Err != "" {
			metrics.GetOrCreateCounter(fmt.Sprintf(`rpc_request_errors_total{type=%q,shard="%d"}`, respMsg.MsgType.String(), shardId)).Inc()
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// Function to create a new database instance
	dbFactory := func() db.KVDB { return birch.NewBirchDB(nil) }

	// Create the Dragonboat NodeHost
	var nodeHost *dragonboat.NodeHost
	var err error
	if s.config.HasRemoteShard() {
		// Only create the NodeHost if we have remote shards
		nodeHost, err = dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
	}

	// Configure the timeout for the distributed store
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	// CREATE SHARDS

	/*
		Note: A single RPC Server can have any number of remote and or local shards.
		Each shard can be a store, a lock manager or a collection engine. The
		following loop creates all the shards and stores them for the RPC server.
	*/

	for _, shardConfig := range s.config.Shards {
		switch shardConfig.Type {

		// Case local store
		case common.ShardTypeLocalIStore:
			s.shards.Store(shardConfig.ShardID, serverShard{
				Store:   lstore.NewLocalStore(dbFactory),
				Adapter: NewIStoreServerAdapter(),
			})
			Logger.Infof("created local store for shard %d", shardConfig.ShardID)

		// Case local lock
		case common.ShardTypeLocalILockManager:
			s.shards.Store(shardConfig.ShardID, serverShard{
				Store:   lstore.NewLocalStore(dbFactory),
				Adapter: NewLockManagerServerAdapter(),
			})
			Logger.Infof("created local lock manager for shard %d", shardConfig.ShardID)

		// Case local engine
		case common.ShardTypeLocalIEngine:
			st := lstore.NewLocalStore(dbFactory)
			s.shards.Store(shardConfig.ShardID, serverShard{
				Store:   st,
				Adapter: NewEngineServerAdapter(orm.NewEngine(st)),
			})
			Logger.Infof("created local engine for shard %d", shardConfig.ShardID)

		// Case remote store, lock manager or engine
		case common.ShardTypeRemoteIStore, common.ShardTypeRemoteILockManager, common.ShardTypeRemoteIEngine:
			if nodeHost == nil {
				return fmt.Errorf("node host is nil, cannot create remote store")
			}

			// Start Raft for the shard
			if err := nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false, dstore.CreateStateMaschineFactory(dbFactory), s.config.ToDragonboatConfig(shardConfig.ShardID)); err != nil {
				Logger.Errorf("failed to start shard %v: %v", shardConfig.ShardID, err)
			}

			st := dstore.NewDistributedStore(nodeHost, shardConfig.ShardID, timeout)

			// Choose the appropriate adapter based on the shard type
			var adapter IRPCServerAdapter
			switch shardConfig.Type {
			case common.ShardTypeRemoteILockManager:
				adapter = NewLockManagerServerAdapter()
			case common.ShardTypeRemoteIEngine:
				adapter = NewEngineServerAdapter(orm.NewEngine(st))
			default:
				adapter = NewIStoreServerAdapter()
			}

			s.shards.Store(shardConfig.ShardID, serverShard{
				Store:   st,
				Adapter: adapter,
			})

		default:
			return fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}
	}

	Logger.Infof("dORM setup completed successfully")

	// Start the metrics listener if configured
	if s.config.MetricsEndpoint != "" {
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
				metrics.WritePrometheus(w, true)
			})
			Logger.Infof("serving metrics on %s", s.config.MetricsEndpoint)
			if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
				Logger.Errorf("metrics listener failed: %v", err)
			}
		}()
	}

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}
