// Package provider defines the storage backend contract of the store.
//
// A Provider implements every operation of the payload protocol. Each
// operation receives its payload, fills in the result (or sets the payload
// error) and returns it. Providers must never panic on domain failures; a
// missing key, a wrong data type or an unsatisfiable count is reported through
// payload.Error with the matching kind.
//
// Providers in this repository:
//   - engine: the operation semantics over a minimal Table abstraction
//   - memory: the reference provider, an ordered in-memory Table
//   - sqlite: a durable Table on top of modernc.org/sqlite
//   - replicated: a raft replicated provider on top of dragonboat
//   - rpc/client: a provider forwarding payloads to a remote server
//
// The conformance suite in package provider/testing checks the contract for
// any provider and should be run by every implementation:
//
//	func TestMyProvider(t *testing.T) {
//	    testing.RunProviderTests(t, "MyProvider", func() provider.Provider {
//	        return NewMyProvider()
//	    })
//	}
//
// Dispatch maps a payload to the provider method of its type. The middleware
// pipeline uses it to call the provider with whatever payload reaches it.
package provider
