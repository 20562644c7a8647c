// Package server implements the RPC server of mkv.
// A server hosts several named collections. Each collection is a store.Store
// with its own provider and middleware, and requests are routed to it by name.
//
// The package focuses on:
//   - Server-side request handling for all payload methods
//   - Adapter pattern to decouple the store from the RPC mechanisms
//   - Creation of collections based on configuration (memory, sqlite, replicated)
//   - Prometheus style metrics for requests, stores and caches
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that executes a request against a store.Store.
//
//   - NewStoreServerAdapter: Factory function creating the adapter that decodes the
//     payload of a request, runs it through the store and wraps the result.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	config := common.ServerConfig{
//		Collections: []common.CollectionConfig{
//			{Name: "users", Provider: common.ProviderMemory},
//			{Name: "log", Provider: common.ProviderSQLite},
//		},
//		Cache:         &cache.Config{MaxSize: 1000},
//		DataDir:       "/var/lib/mkv",
//		TimeoutSecond: 5,
//		Transport: common.ServerTransportConfig{
//			Endpoint: "0.0.0.0:8080",
//		},
//	}
//
//	s := server.NewRPCServer(
//		config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		log.Fatalf("Server error: %v", err)
//	}
//
// The server supports three types of collections, which can be mixed within a single server:
//
//   - ProviderMemory: The entries live in process memory and are lost on restart.
//
//   - ProviderSQLite: The entries are stored in DataDir/<name>.db.
//
//   - ProviderReplicated: The entries are replicated with Raft. When using this type,
//     the Raft configuration (RTTMillisecond, SnapshotEntries, CompactionOverhead,
//     DataDir, ReplicaID, and ClusterMembers) must be properly configured, and every
//     replicated collection needs its own shard id.
//
// Errors of a payload (for example MissingData) are part of the response body.
// Error responses are only used if the request could not be executed at all,
// e.g. for an unknown collection.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Serve should be called only once.
package server
