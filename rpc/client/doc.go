// Package client implements a remote provider for the mkv store.
// The provider satisfies provider.Provider and forwards every payload to a
// collection hosted by a server (see package server) via RPC.
//
// The package focuses on:
//   - Transparent access to a remote collection through the provider interface
//   - Integration with the transport and serialization layers
//   - Conversion of transport failures into payload errors
//
// Key Components:
//
//   - NewRPCProvider: Factory function that connects the transport and returns a
//     provider for one collection. Wrap it with store.New to get the facade and
//     local middleware.
//
// Payload errors reported by the remote provider (MissingData, InvalidPath, ...)
// arrive unchanged. Failures between client and server are reported with the
// kind RPCError. Payloads carrying hooks (update, map, each, predicate
// matchers) cannot be sent and fail with InvalidValueType.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		TimeoutSecond: 5,
//		Transport: common.ClientTransportConfig{
//			Endpoints:  []string{"localhost:8080"},
//			RetryCount: 3,
//		},
//	}
//
//	prov, _ := client.NewRPCProvider("users", config, http.NewHttpClientTransport(), serializer.NewJSONSerializer())
//	st, _ := store.New(ctx, store.Options{Name: "users", Provider: prov})
//	defer st.Close()
//
//	_ = st.Set(ctx, "ada.name", "Ada")
//	name, ok, _ := st.Get(ctx, "ada.name")
//
// Mutating requests are retried by the transport like every other request.
// A request that reached the server but whose response got lost may therefore
// be applied twice.
//
// Thread Safety:
//
//	The provider is thread-safe and can be used concurrently from multiple
//	goroutines without additional synchronization.
package client
