package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/mkv/lib/middleware/autoensure"
	"github.com/ValentinKolb/mkv/lib/middleware/cache"
	"github.com/ValentinKolb/mkv/lib/pipeline"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/ValentinKolb/mkv/lib/provider/memory"
	"github.com/ValentinKolb/mkv/lib/provider/replicated"
	"github.com/ValentinKolb/mkv/lib/provider/sqlite"
	"github.com/ValentinKolb/mkv/lib/store"
	"github.com/ValentinKolb/mkv/rpc/common"
	"github.com/ValentinKolb/mkv/rpc/serializer"
	"github.com/ValentinKolb/mkv/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("rpc")

// Positions of the middleware in the pipeline of every collection.
// Auto ensure has to run before the cache populates from the provider.
const (
	autoEnsurePosition = 0
	cachePosition      = 10
)

// defaultRaftTimeout bounds raft requests if no timeout is configured
const defaultRaftTimeout = 5 * time.Second

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:      config,
		transport:   transport,
		serializer:  serializer,
		adapter:     NewStoreServerAdapter(),
		collections: xsync.NewMapOf[string, *store.Store](),
		registry:    gometrics.NewRegistry(),
		metrics:     metrics.NewSet(),
	}
}

// RPCServer hosts named collections and answers requests for them
type RPCServer struct {
	config      common.ServerConfig
	transport   transport.IRPCServerTransport
	serializer  serializer.IRPCSerializer
	adapter     IRPCServerAdapter
	collections *xsync.MapOf[string, *store.Store]
	nodeHost    *dragonboat.NodeHost
	registry    gometrics.Registry
	metrics     *metrics.Set
}

// Init creates all configured collections and registers the transport handler.
// Replicated collections block until their shard is ready or ctx is done.
func (s *RPCServer) Init(ctx context.Context) (err error) {
	// collections created so far are closed again if a later one fails
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	// Only create the NodeHost if we have replicated collections
	if s.config.HasReplicated() {
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	for _, col := range s.config.Collections {
		if _, exists := s.collections.Load(col.Name); exists {
			return fmt.Errorf("collection %s is configured twice", col.Name)
		}

		prov, err := s.newProvider(col)
		if err != nil {
			return fmt.Errorf("collection %s: %w", col.Name, err)
		}

		mw, err := s.newMiddleware()
		if err != nil {
			return fmt.Errorf("collection %s: %w", col.Name, err)
		}

		st, err := store.New(ctx, store.Options{
			Name:       col.Name,
			Provider:   prov,
			Middleware: mw,
			Registry:   s.registry,
		})
		if err != nil {
			return fmt.Errorf("collection %s: %w", col.Name, err)
		}

		s.collections.Store(col.Name, st)
		Logger.Infof("created %s collection %s", col.Provider, col.Name)
	}

	Logger.Infof("mkv setup completed successfully")

	s.transport.RegisterHandler(s.Handle)
	if mt, ok := s.transport.(transport.IMetricsTransport); ok {
		mt.RegisterMetrics(s.WriteMetrics)
	}

	return nil
}

// Serve initializes the server and starts the transport layer.
// It blocks until the transport is closed.
func (s *RPCServer) Serve() error {
	if err := s.Init(context.Background()); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport and closes all collections
func (s *RPCServer) Close() error {
	errs := []error{s.transport.Close()}

	s.collections.Range(func(name string, st *store.Store) bool {
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", name, err))
		}
		s.collections.Delete(name)
		return true
	})

	if s.nodeHost != nil {
		s.nodeHost.Close()
		s.nodeHost = nil
	}
	return errors.Join(errs...)
}

// Collection returns the store of a collection
func (s *RPCServer) Collection(name string) (*store.Store, bool) {
	return s.collections.Load(name)
}

// Handle decodes a request for a collection, executes it and returns the encoded response.
// It is registered as the handler of the transport.
func (s *RPCServer) Handle(collection string, req []byte) []byte {
	var msg common.Message
	var resp *common.Message

	s.metrics.GetOrCreateCounter(fmt.Sprintf(`mkv_rpc_requests_total{collection=%q}`, collection)).Inc()

	// Decode the request and find the collection
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		resp = common.NewErrorResponse("", "failed to deserialize request: %s", err)
	} else if st, ok := s.collections.Load(collection); !ok {
		resp = common.NewErrorResponse(msg.Method, "collection %s not found", collection)
	} else {
		ctx, cancel := s.requestContext()
		resp = s.adapter.Handle(ctx, &msg, st)
		cancel()
	}

	if resp.IsError() {
		s.metrics.GetOrCreateCounter(fmt.Sprintf(`mkv_rpc_errors_total{collection=%q}`, collection)).Inc()
		Logger.Debugf("request for %s failed: %s", collection, resp.Err)
	}

	val, err := s.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(resp.Method, "failed to serialize response: %s", err))
	}
	return val
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// requestContext bounds a single request by the configured timeout
func (s *RPCServer) requestContext() (context.Context, context.CancelFunc) {
	if s.config.TimeoutSecond <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(s.config.TimeoutSecond)*time.Second)
}

// newProvider creates the backend of a collection
func (s *RPCServer) newProvider(col common.CollectionConfig) (provider.Provider, error) {
	switch col.Provider {
	case common.ProviderMemory:
		return memory.New(), nil

	case common.ProviderSQLite:
		if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return sqlite.New(s.config.SQLitePath(col.Name))

	case common.ProviderReplicated:
		if s.nodeHost == nil {
			return nil, fmt.Errorf("node host is nil, cannot create replicated collection")
		}

		// Start Raft for the shard
		if err := s.nodeHost.StartConcurrentReplica(
			s.config.ClusterMembers,
			false,
			replicated.NewStateMachineFactory(col.Name),
			s.config.ToDragonboatConfig(col.ShardID),
		); err != nil {
			return nil, fmt.Errorf("failed to start shard %d: %w", col.ShardID, err)
		}

		timeout := time.Duration(s.config.TimeoutSecond) * time.Second
		if timeout <= 0 {
			timeout = defaultRaftTimeout
		}
		return replicated.New(s.nodeHost, col.ShardID, timeout), nil

	default:
		return nil, fmt.Errorf("invalid provider type: %s", col.Provider)
	}
}

// newMiddleware creates fresh middleware instances for one collection
func (s *RPCServer) newMiddleware() ([]pipeline.Registration, error) {
	var regs []pipeline.Registration

	if s.config.AutoEnsure != nil {
		mw, err := autoensure.New(s.config.AutoEnsure.DefaultValue)
		if err != nil {
			return nil, err
		}
		regs = append(regs, pipeline.Registration{Position: autoEnsurePosition, Middleware: mw})
	}

	if s.config.Cache != nil {
		mw, err := cache.New(*s.config.Cache)
		if err != nil {
			return nil, err
		}
		regs = append(regs, pipeline.Registration{Position: cachePosition, Middleware: mw})
	}

	return regs, nil
}
