package cache_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/mkv/lib/middleware/cache"
	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/pipeline"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
	"github.com/ValentinKolb/mkv/lib/provider/memory"
)

var ctx = context.Background()

// countingProvider counts the get calls reaching the backing provider.
// afterGet, if set, runs once after the first get has read the value.
type countingProvider struct {
	*engine.Engine
	gets     atomic.Int64
	afterGet func()
	once     sync.Once
}

func (c *countingProvider) Get(ctx context.Context, p *payload.GetPayload) *payload.GetPayload {
	c.gets.Add(1)
	res := c.Engine.Get(ctx, p)
	if c.afterGet != nil {
		c.once.Do(c.afterGet)
	}
	return res
}

type fixture struct {
	t     *testing.T
	prov  *countingProvider
	mw    *cache.Middleware
	chain *pipeline.Pipeline
}

func setup(t *testing.T, cfg cache.Config) *fixture {
	t.Helper()
	prov := &countingProvider{Engine: memory.New()}
	if err := prov.Init(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	mw, err := cache.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	chain, err := pipeline.New(pipeline.Use(mw, 0))
	if err != nil {
		t.Fatalf("pipeline.New failed: %v", err)
	}
	if err := chain.Init(ctx, pipeline.Host{Name: "users", Provider: prov}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { _ = chain.Close() })
	return &fixture{t: t, prov: prov, mw: mw, chain: chain}
}

func (f *fixture) exec(p payload.Payload) payload.Payload {
	f.t.Helper()
	res := f.chain.Execute(ctx, f.prov, p)
	if err := res.Meta().Error; err != nil {
		f.t.Fatalf("%s failed: %v", p.Meta().Method, err)
	}
	return res
}

func (f *fixture) get(keyPath string) (any, bool) {
	f.t.Helper()
	key, p := path.ParseKeyPath(keyPath)
	res := f.exec(payload.NewGet(key, p)).(*payload.GetPayload)
	return res.Data, res.Loaded
}

func (f *fixture) set(keyPath string, v any) {
	f.t.Helper()
	key, p := path.ParseKeyPath(keyPath)
	f.exec(payload.NewSet(key, p, v))
}

func config(maxSize int, maxAge time.Duration) cache.Config {
	return cache.Config{MaxSize: maxSize, MaxAge: maxAge}
}

func TestReadThrough(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	f.prov.Engine.Set(ctx, payload.NewSet("a", nil, 1))

	if v, ok := f.get("a"); !ok || v != 1.0 {
		t.Fatalf("Expected 1, got %v (loaded %v)", v, ok)
	}
	if !f.mw.Cached("a") {
		t.Fatal("Expected a to be cached after the first read")
	}
	calls := f.prov.gets.Load()

	// changes behind the cache stay invisible until the entry is gone
	f.prov.Engine.Set(ctx, payload.NewSet("a", nil, 2))
	if v, _ := f.get("a"); v != 1.0 {
		t.Errorf("Expected cached value 1, got %v", v)
	}
	if got := f.prov.gets.Load(); got != calls {
		t.Errorf("Expected the cached read to skip the provider, got %d calls instead of %d", got, calls)
	}

	if _, ok := f.get("missing"); ok {
		t.Error("Expected missing key to stay absent")
	}
	if f.mw.Cached("missing") {
		t.Error("Expected absent keys to never be cached")
	}

	stats := f.mw.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("Expected 1 hit and 2 misses, got %+v", stats)
	}
	if rate := stats.HitRate(); rate < 0.33 || rate > 0.34 {
		t.Errorf("Expected hit rate of 1/3, got %v", rate)
	}
}

func TestGetManyServedWhenAllCached(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	f.set("a", 1)
	f.set("b", 2)

	calls := f.prov.gets.Load()
	res := f.exec(payload.NewGetMany([]string{"a", "b"})).(*payload.GetManyPayload)
	if !res.Fulfilled || len(res.Data) != 2 || res.Data["b"] != 2.0 {
		t.Errorf("Expected getMany to be served from the cache, got %+v", res)
	}
	if got := f.prov.gets.Load(); got != calls {
		t.Errorf("Expected no provider reads, got %d", got-calls)
	}

	res = f.exec(payload.NewGetMany([]string{"a", "nope"})).(*payload.GetManyPayload)
	if res.Fulfilled || len(res.Data) != 1 {
		t.Errorf("Expected a partial getMany to reach the provider, got %+v", res)
	}
}

func TestWriteThrough(t *testing.T) {
	f := setup(t, config(10, time.Minute))

	f.set("a", map[string]any{"n": 1, "list": []any{"x"}})
	if !f.mw.Cached("a") {
		t.Fatal("Expected a new entry to be cached after set")
	}

	f.exec(payload.NewInc("a", path.Path{"n"}))
	f.exec(payload.NewMath("a", path.Path{"n"}, payload.OpMultiply, 10))
	f.exec(payload.NewPush("a", path.Path{"list"}, "y", false))
	f.exec(payload.NewRemove("a", path.Path{"list"}, payload.MatchValue("x")))
	f.set("a.extra", true)

	want := f.prov.Engine.Get(ctx, payload.NewGet("a", nil)).Data
	calls := f.prov.gets.Load()
	got, _ := f.get("a")
	if f.prov.gets.Load() != calls {
		t.Fatal("Expected the read to be served from the cache")
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected cached copy %v to match provider %v", got, want)
	}
	if n, _ := f.get("a.n"); n != 20.0 {
		t.Errorf("Expected n to be 20, got %v", n)
	}

	f.exec(payload.NewUpdate("a", path.Path{"n"}, func(current any) any {
		return current.(float64) + 1
	}))
	if n, _ := f.get("a.n"); n != 21.0 {
		t.Errorf("Expected updated n to be 21, got %v", n)
	}

	f.exec(payload.NewRemove("a", path.Path{"list"}, payload.MatchFunc(func(v any, _ string) bool {
		return v == "y"
	})))
	if list, _ := f.get("a.list"); len(list.([]any)) != 0 {
		t.Errorf("Expected empty list, got %v", list)
	}
}

func TestFailedWriteLeavesCacheAlone(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	f.set("a", "text")

	res := f.chain.Execute(ctx, f.prov, payload.NewInc("a", nil))
	if !errors.Is(res.Meta().Error, payload.ErrInvalidDataType) {
		t.Fatalf("Expected InvalidDataType, got %v", res.Meta().Error)
	}
	if v, _ := f.get("a"); v != "text" {
		t.Errorf("Expected cached value to stay 'text', got %v", v)
	}
}

func TestExpiry(t *testing.T) {
	f := setup(t, config(10, 20*time.Millisecond))
	f.set("a", 1)
	if !f.mw.Cached("a") {
		t.Fatal("Expected a to be cached")
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.mw.Cached("a") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.mw.Cached("a") {
		t.Fatal("Expected a to expire")
	}
	if got := f.mw.Stats().Evictions["expired"]; got != 1 {
		t.Errorf("Expected 1 expiry, got %d", got)
	}

	// expiry only drops the cached copy
	if v, ok := f.get("a"); !ok || v != 1.0 {
		t.Errorf("Expected provider to still hold a=1, got %v", v)
	}
}

func TestOverflow(t *testing.T) {
	t.Run("EvictsOldest", func(t *testing.T) {
		f := setup(t, config(3, time.Minute))
		for _, key := range []string{"a", "b", "c", "d"} {
			f.set(key, key)
		}

		if f.mw.Len() != 2 {
			t.Errorf("Expected 2 entries after overflow, got %d", f.mw.Len())
		}
		for key, want := range map[string]bool{"a": false, "b": false, "c": true, "d": true} {
			if f.mw.Cached(key) != want {
				t.Errorf("Expected Cached(%s) to be %v", key, want)
			}
		}
		if got := f.mw.Stats().Evictions["overflow"]; got != 2 {
			t.Errorf("Expected 2 overflow evictions, got %d", got)
		}
	})

	t.Run("SizeOne", func(t *testing.T) {
		f := setup(t, config(1, time.Minute))
		f.set("a", 1)
		f.set("b", 2)
		if f.mw.Len() != 1 || !f.mw.Cached("b") {
			t.Errorf("Expected only b to be cached, got %d entries", f.mw.Len())
		}
	})

	t.Run("NeverAboveMaxSize", func(t *testing.T) {
		f := setup(t, config(5, time.Minute))
		for i := 0; i < 50; i++ {
			f.set(fmt.Sprintf("k%d", i), i)
			if f.mw.Len() > 5 {
				t.Fatalf("Cache grew to %d entries", f.mw.Len())
			}
		}
	})
}

func TestInvalidation(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	for _, key := range []string{"a", "b", "c", "d"} {
		f.set(key, key)
	}

	f.exec(payload.NewDelete("a", nil))
	if f.mw.Cached("a") {
		t.Error("Expected a to be evicted by delete")
	}
	if _, ok := f.get("a"); ok {
		t.Error("Expected a to be gone")
	}

	f.exec(payload.NewDelete("b", path.Path{"nothing"}))
	if f.mw.Cached("b") {
		t.Error("Expected a path delete to evict the entry")
	}
	if v, _ := f.get("b"); v != "b" {
		t.Errorf("Expected b to be repopulated, got %v", v)
	}

	f.exec(payload.NewDeleteMany([]string{"b", "c"}))
	if f.mw.Cached("b") || f.mw.Cached("c") {
		t.Error("Expected deleteMany to evict b and c")
	}

	f.exec(payload.NewClear())
	if f.mw.Len() != 0 {
		t.Errorf("Expected empty cache after clear, got %d entries", f.mw.Len())
	}
}

func TestDeleteDuringPopulate(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	f.prov.Engine.Set(ctx, payload.NewSet("k", nil, "v1"))

	read := make(chan struct{})
	deleted := make(chan struct{})
	f.prov.afterGet = func() {
		close(read)
		<-deleted
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.chain.Execute(ctx, f.prov, payload.NewGet("k", nil))
	}()

	// the delete runs after the populating read and before its insert
	<-read
	f.exec(payload.NewDelete("k", nil))
	close(deleted)
	<-done

	if f.mw.Cached("k") {
		t.Error("Expected a value read before a delete to not be cached")
	}
	if v, ok := f.get("k"); ok {
		t.Errorf("Expected k to stay deleted, got %v", v)
	}
}

func TestSetManyWithoutOverwrite(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	f.prov.Engine.Set(ctx, payload.NewSet("a", nil, 1))

	res := f.exec(payload.NewSetMany([]payload.SetEntry{
		{Key: "a", Value: 2},
		{Key: "b", Value: 3},
	}, false)).(*payload.SetManyPayload)
	if res.Data != 1 {
		t.Errorf("Expected 1 written entry, got %d", res.Data)
	}

	if v, _ := f.get("a"); v != 1.0 {
		t.Errorf("Expected a to keep 1, got %v", v)
	}
	if v, _ := f.get("b"); v != 3.0 {
		t.Errorf("Expected b to be 3, got %v", v)
	}
}

func TestQueriesBypass(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	for _, m := range []payload.Method{
		payload.MethodKeys, payload.MethodValues, payload.MethodGetAll, payload.MethodSize,
		payload.MethodHas, payload.MethodEvery, payload.MethodFilter, payload.MethodRandom,
	} {
		for _, trigger := range []payload.Trigger{payload.TriggerPreProvider, payload.TriggerPostProvider} {
			if stage := f.chain.Stage(m, trigger); len(stage) != 0 {
				t.Errorf("Expected %s to bypass the cache at %s, got %v", m, trigger, stage)
			}
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	f := setup(t, config(8, 10*time.Millisecond))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (w+i)%16)
				switch i % 4 {
				case 0:
					f.chain.Execute(ctx, f.prov, payload.NewSet(key, nil, i))
				case 1:
					f.chain.Execute(ctx, f.prov, payload.NewGet(key, nil))
				case 2:
					f.chain.Execute(ctx, f.prov, payload.NewDelete(key, nil))
				default:
					f.chain.Execute(ctx, f.prov, payload.NewGetMany([]string{key, "k0"}))
				}
			}
		}(w)
	}
	wg.Wait()

	if f.mw.Len() > 8 {
		t.Errorf("Expected at most 8 entries, got %d", f.mw.Len())
	}
}

func TestMetrics(t *testing.T) {
	f := setup(t, config(10, time.Minute))
	f.set("a", 1)
	f.get("a")

	var buf bytes.Buffer
	f.mw.Metrics().WritePrometheus(&buf)
	out := buf.String()
	for _, want := range []string{
		`mkv_cache_hits_total{store="users"} 1`,
		`mkv_cache_entries{store="users"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected metrics to contain %q, got:\n%s", want, out)
		}
	}
}

func TestOptions(t *testing.T) {
	cfg, err := cache.ParseOptions(map[string]any{"maxSize": 10, "maxAge": "1s"})
	if err != nil {
		t.Fatalf("ParseOptions failed: %v", err)
	}
	if cfg.MaxSize != 10 || cfg.MaxAge != time.Second {
		t.Errorf("Unexpected config %+v", cfg)
	}

	cfg, err = cache.ParseOptions(map[string]any{"maxAge": 500})
	if err != nil || cfg.MaxAge != 500*time.Millisecond || cfg.MaxSize != cache.DefaultConfig().MaxSize {
		t.Errorf("Expected 500ms and default size, got %+v (%v)", cfg, err)
	}

	for name, opts := range map[string]map[string]any{
		"unknown":  {"maxEntries": 1},
		"zeroSize": {"maxSize": 0},
		"negAge":   {"maxAge": -1},
		"badAge":   {"maxAge": "soon"},
		"typeAge":  {"maxAge": true},
	} {
		if _, err := cache.FromOptions(opts); !errors.Is(err, payload.ErrInvalidOption) {
			t.Errorf("%s: expected InvalidOption, got %v", name, err)
		}
	}
}
