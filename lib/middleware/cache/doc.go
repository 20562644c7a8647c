// Package cache provides a read-through, write-through caching middleware.
//
// Entries are copied from the backing provider into a private in-memory
// provider (the cache store) the first time a point operation touches a key
// that exists in the backing provider. Point reads (get, and getMany when all
// keys are cached) are then served from the cache store without calling the
// backing provider. Point writes still go to the backing provider; once it
// succeeded the same change is applied to the cached copy.
//
// Lifecycle of an entry:
//   - every entry expires maxAge after it was cached. Expiry only removes the
//     cached copy, never data in the backing provider
//   - when a new entry pushes the number of cached entries above maxSize, the
//     oldest entries are evicted until maxSize-1 entries remain (maxSize when
//     maxSize is 1), leaving room for the next insert
//   - delete, deleteMany and clear evict the affected entries before and
//     after the provider call
//
// Collection queries (every, filter, keys, size, ...) always bypass the cache.
//
// Thread-safety:
//
// The entry index is a lock-free xsync map, so checking whether a key is
// cached never blocks. Any change to the set of cached entries and every read
// of the cache store happens under a single mutex, which is also taken by the
// expiry timers. A timer that fires for an entry that was replaced or evicted
// in the meantime finds a different (or no) entry under its key and does
// nothing.
//
// Options (see FromOptions):
//
//	maxSize  int    maximum number of cached entries (default 1000)
//	maxAge   number entry lifetime in milliseconds, or a duration string (default 5m)
package cache
