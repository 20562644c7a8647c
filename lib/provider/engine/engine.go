package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/ValentinKolb/mkv/lib/jsonval"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("provider")

// Engine implements provider.Provider on top of a Table
type Engine struct {
	table   Table
	name    string
	errKind payload.ErrorKind
	mu      sync.Mutex
	rnd     *rand.Rand
}

// Option configures an Engine
type Option func(*Engine)

// WithErrorKind sets the error kind used for failures of the table
func WithErrorKind(kind payload.ErrorKind) Option {
	return func(e *Engine) { e.errKind = kind }
}

// WithSeed makes the random sampling of the engine deterministic
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// New creates an Engine running on table
func New(table Table, opts ...Option) *Engine {
	seed := util.GenerateSeed()
	e := &Engine{
		table:   table,
		errKind: payload.KindProviderError,
		rnd:     rand.New(rand.NewPCG(seed, util.GenerateSeed())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (e *Engine) Init(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.name = name
	return e.table.Init(ctx, name)
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Close()
}

// Snapshot returns all entries in insertion order together with the autoKey
// sequence. It is used to transfer the full state, e.g. for raft snapshots.
func (e *Engine) Snapshot(ctx context.Context) ([]payload.Entry, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.entries(ctx)
	if err != nil {
		return nil, 0, err
	}
	seq, err := e.table.Sequence(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entries, seq, nil
}

// Restore replaces the full state with the given entries and sequence
func (e *Engine) Restore(ctx context.Context, entries []payload.Entry, seq uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.table.Clear(ctx); err != nil {
		return err
	}
	for _, entry := range entries {
		v, err := jsonval.Normalize(entry.Value)
		if err != nil {
			return err
		}
		if err := e.table.Store(ctx, entry.Key, v); err != nil {
			return err
		}
	}
	return e.table.SetSequence(ctx, seq)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// fail reports a table error on the payload
func (e *Engine) fail(m *payload.Metadata, err error) {
	var pErr *payload.Error
	if errors.As(err, &pErr) {
		cp := *pErr
		if cp.Method == "" {
			cp.Method = m.Method
		}
		m.Error = &cp
		return
	}
	log.Warningf("%s: %s failed: %v", e.name, m.Method, err)
	m.Error = payload.NewError(e.errKind, m.Method, "%v", err)
}

// normalize converts a caller supplied value into the value model
func normalize(m *payload.Metadata, v any) (any, bool) {
	n, err := jsonval.Normalize(v)
	if err != nil {
		m.Fail(payload.KindInvalidValueType, "value is not representable: %v", err)
		return nil, false
	}
	return n, true
}

// entries collects all entries, the caller must hold the lock
func (e *Engine) entries(ctx context.Context) ([]payload.Entry, error) {
	var out []payload.Entry
	err := e.table.Range(ctx, func(key string, value any) bool {
		out = append(out, payload.Entry{Key: key, Value: value})
		return true
	})
	return out, err
}

// snapshot collects all entries under the lock
func (e *Engine) snapshot(ctx context.Context) ([]payload.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entries(ctx)
}
