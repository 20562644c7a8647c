package engine

import "context"

// Table is the storage abstraction an Engine runs on.
//
// Values passed to Store are normalized (see package jsonval) and owned by
// the table afterwards. Values returned by Load and Range must be owned by the
// caller, i.e. the table returns copies or freshly decoded values.
//
// Range and Len see entries in insertion order. Overwriting an existing key
// keeps its position, deleting and re-inserting moves it to the end.
type Table interface {
	// Init prepares the table for the store called name
	Init(ctx context.Context, name string) error
	// Load returns the value of key
	Load(ctx context.Context, key string) (value any, loaded bool, err error)
	// Store inserts or overwrites key
	Store(ctx context.Context, key string, value any) error
	// Delete removes key and reports whether it existed
	Delete(ctx context.Context, key string) (bool, error)
	// Range calls fn for every entry in insertion order until fn returns false
	Range(ctx context.Context, fn func(key string, value any) bool) error
	// Len returns the number of entries
	Len(ctx context.Context) (int, error)
	// Clear removes all entries and resets the sequence to zero
	Clear(ctx context.Context) error
	// Sequence returns the last sequence number handed out by autoKey
	Sequence(ctx context.Context) (uint64, error)
	// SetSequence stores the last sequence number
	SetSequence(ctx context.Context, seq uint64) error
	// Close releases the table
	Close() error
}

// Batcher is implemented by tables that can apply a group of writes
// atomically. Batch calls fn with a table bound to the batch: if fn returns
// an error none of its writes are kept. The table passed to fn is only valid
// during the call and must not be closed or cleared.
type Batcher interface {
	Batch(ctx context.Context, fn func(t Table) error) error
}
