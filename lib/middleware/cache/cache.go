package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/pipeline"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
	"github.com/ValentinKolb/mkv/lib/provider/memory"
	"github.com/ValentinKolb/mkv/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("cache")

// Name is the default registration name
const Name = "cache"

// entry is the bookkeeping of one cached key
type entry struct {
	key   string
	seq   uint64 // population order, lower is older
	added time.Time
	timer *time.Timer
}

// Middleware implements pipeline.Middleware
type Middleware struct {
	cfg     Config
	store   string
	backing provider.Provider
	cache   *engine.Engine

	entries *xsync.MapOf[string, *entry]
	mu      sync.Mutex // guards ages, seq, epoch, closed and every change to entries and cache
	ages    *util.MapHeap[string]
	seq     uint64
	epoch   uint64 // bumped by every invalidation, a populate spanning one is dropped
	closed  bool

	metrics *cacheMetrics
}

// New creates the middleware with the given configuration
func New(cfg Config) (*Middleware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Middleware{
		cfg:     cfg,
		cache:   memory.New(),
		entries: xsync.NewMapOf[string, *entry](),
		ages:    util.NewMapHeap[string](),
	}, nil
}

// FromOptions creates the middleware from an option map (see ParseOptions)
func FromOptions(opts map[string]any) (*Middleware, error) {
	cfg, err := ParseOptions(opts)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// Config returns the configuration of the middleware
func (m *Middleware) Config() Config { return m.cfg }

// Len returns the number of cached entries
func (m *Middleware) Len() int { return m.entries.Size() }

// Cached reports whether key is currently cached
func (m *Middleware) Cached(key string) bool {
	_, ok := m.entries.Load(key)
	return ok
}

// Metrics returns the metric set of the middleware. It is nil before Init.
func (m *Middleware) Metrics() *metrics.Set {
	if m.metrics == nil {
		return nil
	}
	return m.metrics.set
}

// Stats returns the current counters
func (m *Middleware) Stats() Stats {
	s := Stats{Size: m.Len(), Evictions: make(map[string]uint64)}
	if m.metrics == nil {
		return s
	}
	s.Hits = m.metrics.hits.Get()
	s.Misses = m.metrics.misses.Get()
	for reason, c := range m.metrics.evictions {
		s.Evictions[reason] = c.Get()
	}
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see pipeline.Middleware)
// --------------------------------------------------------------------------

func (m *Middleware) Name() string { return Name }

// populating methods pull untouched keys into the cache
var populating = []payload.Method{
	payload.MethodGet, payload.MethodSet, payload.MethodInc, payload.MethodDec,
	payload.MethodMath, payload.MethodPush, payload.MethodRemove, payload.MethodUpdate,
	payload.MethodGetMany, payload.MethodSetMany,
}

// invalidating methods evict keys
var invalidating = []payload.Method{
	payload.MethodDelete, payload.MethodDeleteMany, payload.MethodClear,
}

func (m *Middleware) Conditions() []pipeline.Condition {
	return []pipeline.Condition{
		pipeline.On(payload.TriggerPreProvider, append(append([]payload.Method{}, populating...), invalidating...)...),
		pipeline.On(payload.TriggerPostProvider, append(append([]payload.Method{}, populating...), invalidating...)...),
	}
}

func (m *Middleware) Init(ctx context.Context, host pipeline.Host) error {
	m.store = host.Name
	m.backing = host.Provider
	m.metrics = newMetrics(host.Name, func() float64 { return float64(m.Len()) })
	return m.cache.Init(ctx, "cache:"+host.Name)
}

// Close stops all expiry timers and drops the cached entries
func (m *Middleware) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.clearLocked(context.Background(), "")
	return m.cache.Close()
}

func (m *Middleware) Run(ctx context.Context, p payload.Payload) payload.Payload {
	if p.Meta().Trigger == payload.TriggerPreProvider {
		m.before(ctx, p)
	} else {
		m.after(ctx, p)
	}
	return p
}

// --------------------------------------------------------------------------
// Stages
// --------------------------------------------------------------------------

func (m *Middleware) before(ctx context.Context, p payload.Payload) {
	switch t := p.(type) {
	case *payload.GetPayload:
		hit := m.Cached(t.Key)
		if !m.populate(ctx, t.Key) {
			m.metrics.misses.Inc()
			return
		}
		if data, loaded, ok := m.read(ctx, t.Key, t.Path); ok {
			t.Data, t.Loaded, t.Fulfilled = data, loaded, true
		} else {
			hit = false
		}
		m.count(hit)

	case *payload.GetManyPayload:
		hit := true
		for _, key := range t.Keys {
			hit = hit && m.Cached(key)
			if !m.populate(ctx, key) {
				m.metrics.misses.Inc()
				return
			}
		}
		if data, ok := m.readMany(ctx, t.Keys); ok {
			t.Data, t.Fulfilled = data, true
		} else {
			hit = false
		}
		m.count(hit)

	case *payload.SetManyPayload:
		for _, entry := range t.Entries {
			m.populate(ctx, entry.Key)
		}

	case *payload.DeletePayload:
		m.evict(ctx, t.Key)
	case *payload.DeleteManyPayload:
		for _, key := range t.Keys {
			m.evict(ctx, key)
		}
	case *payload.ClearPayload:
		m.evictAll(ctx)

	default:
		if key, ok := keyOf(p); ok {
			m.populate(ctx, key)
		}
	}
}

func (m *Middleware) after(ctx context.Context, p payload.Payload) {
	switch t := p.(type) {
	case *payload.GetPayload:
		// a fulfilled get was served by the cache, otherwise the key was absent
		if !t.Fulfilled && t.Loaded {
			m.populate(ctx, t.Key)
		}
	case *payload.GetManyPayload:
		if !t.Fulfilled {
			for key := range t.Data {
				m.populate(ctx, key)
			}
		}

	case *payload.SetPayload:
		m.mirror(ctx, t.Key, t.Path, t.Value)
	case *payload.SetManyPayload:
		for _, entry := range t.Entries {
			if !t.Overwrite && m.Cached(entry.Key) {
				// existed before the call, so the provider skipped it
				continue
			}
			m.mirror(ctx, entry.Key, entry.Path, entry.Value)
		}
	case *payload.IncPayload:
		m.mirror(ctx, t.Key, t.Path, t.Data)
	case *payload.DecPayload:
		m.mirror(ctx, t.Key, t.Path, t.Data)
	case *payload.MathPayload:
		m.mirror(ctx, t.Key, t.Path, t.Data)
	case *payload.PushPayload:
		m.mirror(ctx, t.Key, t.Path, t.Data)
	case *payload.RemovePayload:
		m.mirror(ctx, t.Key, t.Path, t.Data)
	case *payload.UpdatePayload:
		m.refresh(ctx, t.Key)

	case *payload.DeletePayload:
		m.evict(ctx, t.Key)
	case *payload.DeleteManyPayload:
		for _, key := range t.Keys {
			m.evict(ctx, key)
		}
	case *payload.ClearPayload:
		m.evictAll(ctx)
	}
}

// --------------------------------------------------------------------------
// Entry lifecycle
// --------------------------------------------------------------------------

// populate copies key from the backing provider into the cache if it is not
// cached yet. It reports whether key is cached afterwards.
func (m *Middleware) populate(ctx context.Context, key string) bool {
	if m.Cached(key) {
		return true
	}

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	res := m.backing.Get(ctx, payload.NewGet(key, nil))
	if res.Error != nil {
		log.Warningf("%s: populating %q failed: %v", m.store, key, res.Error)
		return false
	}
	if !res.Loaded {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// double check, another call may have populated the key in the meantime
	if m.closed {
		return false
	}
	if m.Cached(key) {
		return true
	}
	if m.epoch != epoch {
		// the value read may already be deleted in the backing provider
		return false
	}
	m.insertLocked(ctx, key, res.Data)
	return m.Cached(key)
}

// refresh replaces the cached copy of key with the current backing value
func (m *Middleware) refresh(ctx context.Context, key string) {
	m.evict(ctx, key)
	m.populate(ctx, key)
}

// mirror writes the stored result value at p into the cached copy of key,
// or populates key if it is not cached
func (m *Middleware) mirror(ctx context.Context, key string, p path.Path, value any) {
	m.mu.Lock()
	if _, ok := m.entries.Load(key); ok {
		if res := m.cache.Set(ctx, payload.NewSet(key, p, value)); res.Error != nil {
			log.Debugf("%s: mirroring %q failed, evicting: %v", m.store, key, res.Error)
			m.removeLocked(ctx, key, reasonInvalid)
		}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.populate(ctx, key)
}

// insertLocked caches value under key, the caller must hold the lock
func (m *Middleware) insertLocked(ctx context.Context, key string, value any) {
	if res := m.cache.Set(ctx, payload.NewSet(key, nil, value)); res.Error != nil {
		log.Warningf("%s: caching %q failed: %v", m.store, key, res.Error)
		return
	}

	m.seq++
	e := &entry{key: key, seq: m.seq, added: time.Now()}
	// the callback blocks on the lock held here until the entry is registered
	e.timer = time.AfterFunc(m.cfg.MaxAge, func() { m.expire(e) })
	m.entries.Store(key, e)
	m.ages.AddItem(key, e.seq)

	m.overflowLocked(ctx)
}

// overflowLocked evicts the oldest entries once the cache grew beyond maxSize
func (m *Middleware) overflowLocked(ctx context.Context) {
	if m.ages.Len() <= m.cfg.MaxSize {
		return
	}
	target := m.cfg.MaxSize - 1
	if m.cfg.MaxSize == 1 {
		target = 1
	}
	for m.ages.Len() > target {
		oldest, ok := m.ages.Peek()
		if !ok {
			return
		}
		m.removeLocked(ctx, oldest.Key, reasonOverflow)
	}
}

// expire is called by the timer of e
func (m *Middleware) expire(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.entries.Load(e.key); !ok || cur != e {
		return
	}
	m.removeLocked(context.Background(), e.key, reasonExpired)
}

// evict removes key from the cache
func (m *Middleware) evict(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.removeLocked(ctx, key, reasonDeleted)
}

// evictAll removes every entry from the cache
func (m *Middleware) evictAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.clearLocked(ctx, reasonDeleted)
}

// removeLocked drops key and stops its timer, the caller must hold the lock
func (m *Middleware) removeLocked(ctx context.Context, key string, reason string) bool {
	e, ok := m.entries.LoadAndDelete(key)
	if !ok {
		return false
	}
	e.timer.Stop()
	m.ages.RemoveByKey(key)
	m.cache.Delete(ctx, payload.NewDelete(key, nil))
	if m.metrics != nil && reason != "" {
		m.metrics.evicted(reason)
	}
	return true
}

// clearLocked drops every entry, the caller must hold the lock
func (m *Middleware) clearLocked(ctx context.Context, reason string) {
	m.entries.Range(func(key string, e *entry) bool {
		e.timer.Stop()
		if m.metrics != nil && reason != "" {
			m.metrics.evicted(reason)
		}
		return true
	})
	m.entries.Clear()
	m.ages.Reset()
	m.cache.Clear(ctx, payload.NewClear())
}

// --------------------------------------------------------------------------
// Cache reads
// --------------------------------------------------------------------------

// read returns the cached value at p inside key. ok is false if key is not cached.
func (m *Middleware) read(ctx context.Context, key string, p path.Path) (data any, loaded bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Cached(key) {
		return nil, false, false
	}
	res := m.cache.Get(ctx, payload.NewGet(key, p))
	if res.Error != nil {
		return nil, false, false
	}
	return res.Data, res.Loaded, true
}

// readMany returns the cached values of all keys. ok is false unless every key is cached.
func (m *Middleware) readMany(ctx context.Context, keys []string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if !m.Cached(key) {
			return nil, false
		}
	}
	res := m.cache.GetMany(ctx, payload.NewGetMany(keys))
	if res.Error != nil {
		return nil, false
	}
	return res.Data, true
}

// count records a lookup. A hit is a read served from an entry that was
// cached before the call.
func (m *Middleware) count(hit bool) {
	if hit {
		m.metrics.hits.Inc()
	} else {
		m.metrics.misses.Inc()
	}
}

// keyOf returns the key of single key mutations
func keyOf(p payload.Payload) (string, bool) {
	switch t := p.(type) {
	case *payload.SetPayload:
		return t.Key, true
	case *payload.IncPayload:
		return t.Key, true
	case *payload.DecPayload:
		return t.Key, true
	case *payload.MathPayload:
		return t.Key, true
	case *payload.PushPayload:
		return t.Key, true
	case *payload.RemovePayload:
		return t.Key, true
	case *payload.UpdatePayload:
		return t.Key, true
	}
	return "", false
}
