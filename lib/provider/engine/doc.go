// Package engine implements the semantics of every provider operation on top
// of a minimal key/value Table.
//
// A backend only has to provide ordered storage of normalized values (see
// Table); the Engine turns it into a complete provider.Provider. The memory
// and sqlite providers are both an Engine over their own Table.
//
// Thread-safety:
//
// The Engine serializes all operations with a single mutex, so Tables do not
// need to be safe for concurrent use and read-modify-write operations (inc,
// push, setMany, ...) are atomic with respect to each other. Collection
// queries with hooks (every, filter, map, each, ...) take a snapshot under the
// lock and call the hook outside of it; hooks may therefore call back into
// the provider. The update hook and the remove predicate run under the lock
// and must not call back into the same provider.
//
// Error handling:
//
// Domain failures are reported with the kinds of package payload. Errors
// returned by the Table are passed through if they already are a
// *payload.Error and are reported with the engine's error kind otherwise
// (payload.KindProviderError unless configured with WithErrorKind).
package engine
