package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/mkv/lib/export"
	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/pipeline"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("store")

// Options configure a store
type Options struct {
	// Name of the store, passed to the provider and the middleware
	Name string
	// Provider holding the data, it is initialized by New
	Provider provider.Provider
	// Middleware registrations of the pipeline
	Middleware []pipeline.Registration
	// Registry receives the call metrics, a private registry is used if nil
	Registry gometrics.Registry
}

// Store is the typed facade over a provider. All methods are safe for concurrent use.
type Store struct {
	name     string
	prov     provider.Provider
	chain    *pipeline.Pipeline
	registry gometrics.Registry
	timers   map[payload.Method]gometrics.Timer
	errors   gometrics.Meter
	closed   atomic.Bool
}

// New validates the options, builds the pipeline and initializes the provider
// and the middleware
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Name == "" {
		return nil, payload.NewError(payload.KindMissingName, "", "store requires a name")
	}
	if opts.Provider == nil {
		return nil, payload.NewError(payload.KindInvalidProvider, "", "store %s requires a provider", opts.Name)
	}

	chain, err := pipeline.New(opts.Middleware...)
	if err != nil {
		return nil, err
	}

	if err := opts.Provider.Init(ctx, opts.Name); err != nil {
		return nil, payload.NewError(payload.KindInvalidProvider, "", "store %s: provider init failed: %v", opts.Name, err)
	}
	if err := chain.Init(ctx, pipeline.Host{Name: opts.Name, Provider: opts.Provider}); err != nil {
		_ = opts.Provider.Close()
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = gometrics.NewRegistry()
	}
	s := &Store{
		name:     opts.Name,
		prov:     opts.Provider,
		chain:    chain,
		registry: registry,
		timers:   make(map[payload.Method]gometrics.Timer, len(payload.Methods)),
		errors:   gometrics.GetOrRegisterMeter("store."+opts.Name+".errors", registry),
	}
	for _, m := range payload.Methods {
		s.timers[m] = gometrics.GetOrRegisterTimer("store."+opts.Name+"."+string(m), registry)
	}

	log.Infof("store %s ready (middleware %v)", opts.Name, chain.Names())
	return s, nil
}

// Name returns the name of the store
func (s *Store) Name() string { return s.name }

// Provider returns the provider of the store. Calls on it bypass the pipeline.
func (s *Store) Provider() provider.Provider { return s.prov }

// Registry returns the metrics registry of the store
func (s *Store) Registry() gometrics.Registry { return s.registry }

// Middleware returns the registered middleware with the given name
func (s *Store) Middleware(name string) (pipeline.Middleware, error) {
	return s.chain.Middleware(name)
}

// Close closes the middleware and the provider
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return errors.Join(s.chain.Close(), s.prov.Close())
}

// Execute runs a payload through the pipeline and the provider. The payload
// error is set on failure, Execute itself never fails.
func (s *Store) Execute(ctx context.Context, p payload.Payload) payload.Payload {
	m := p.Meta()
	if s.closed.Load() {
		m.Fail(payload.KindInvalidProvider, "store %s is closed", s.name)
		return p
	}
	if err := ctx.Err(); err != nil {
		m.Fail(payload.KindInternalError, "%v", err)
		return p
	}

	start := time.Now()
	res := s.chain.Execute(ctx, s.prov, p)
	if t, ok := s.timers[m.Method]; ok {
		t.UpdateSince(start)
	}
	if err := res.Meta().Error; err != nil {
		s.errors.Mark(1)
		if err.Method == "" {
			err.Method = m.Method
		}
	}
	return res
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// run executes p and returns the typed result payload or its error
func run[P payload.Payload](ctx context.Context, s *Store, p P) (P, error) {
	res := s.Execute(ctx, p)
	if err := res.Meta().Error; err != nil {
		return p, err
	}
	out, ok := res.(P)
	if !ok {
		return p, payload.NewError(payload.KindInternalError, p.Meta().Method, "middleware replaced %T with %T", p, res)
	}
	return out, nil
}

// Entry builds a setMany entry from a key path
func Entry(keyPath string, value any) payload.SetEntry {
	key, p := path.ParseKeyPath(keyPath)
	return payload.SetEntry{Key: key, Path: p, Value: value}
}

// --------------------------------------------------------------------------
// Export
// --------------------------------------------------------------------------

// Export returns the content of the store in insertion order.
// It only uses hook free payloads, so it also works for remote providers.
// Keys deleted between the two reads are skipped.
func (s *Store) Export(ctx context.Context) (*export.Document, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return export.New(s.name, nil), nil
	}

	values, err := s.GetMany(ctx, keys...)
	if err != nil {
		return nil, err
	}

	entries := make([]payload.Entry, 0, len(keys))
	for _, key := range keys {
		if value, ok := values[key]; ok {
			entries = append(entries, payload.Entry{Key: key, Value: value})
		}
	}
	return export.New(s.name, entries), nil
}

// Import writes all entries of doc. With replace the store is cleared first,
// otherwise existing keys are overwritten and other keys are kept.
// It returns the number of written entries.
func (s *Store) Import(ctx context.Context, doc *export.Document, replace bool) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	if doc.Name != s.name {
		log.Warningf("importing export of %s into store %s", doc.Name, s.name)
	}
	if replace {
		if err := s.Clear(ctx); err != nil {
			return 0, err
		}
	}
	if len(doc.Entries) == 0 {
		return 0, nil
	}

	entries := make([]payload.SetEntry, len(doc.Entries))
	for i, e := range doc.Entries {
		entries[i] = payload.SetEntry{Key: e.Key, Value: e.Value}
	}
	return s.SetMany(ctx, entries, true)
}
