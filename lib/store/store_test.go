package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/mkv/lib/middleware/autoensure"
	"github.com/ValentinKolb/mkv/lib/middleware/cache"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/pipeline"
	"github.com/ValentinKolb/mkv/lib/provider/memory"
	"github.com/ValentinKolb/mkv/lib/store"
	gometrics "github.com/rcrowley/go-metrics"
)

var ctx = context.Background()

func newStore(t *testing.T, regs ...pipeline.Registration) *store.Store {
	t.Helper()
	s, err := store.New(ctx, store.Options{Name: "test", Provider: memory.New(), Middleware: regs})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConstruction(t *testing.T) {
	if _, err := store.New(ctx, store.Options{Provider: memory.New()}); !errors.Is(err, payload.ErrMissingName) {
		t.Errorf("Expected MissingName, got %v", err)
	}
	if _, err := store.New(ctx, store.Options{Name: "x"}); !errors.Is(err, payload.ErrInvalidProvider) {
		t.Errorf("Expected InvalidProvider, got %v", err)
	}
	_, err := store.New(ctx, store.Options{
		Name:       "x",
		Provider:   memory.New(),
		Middleware: []pipeline.Registration{{Name: "broken"}},
	})
	if !errors.Is(err, payload.ErrMissingValue) {
		t.Errorf("Expected MissingValue for a registration without middleware, got %v", err)
	}

	s := newStore(t)
	if _, err := s.Middleware("cache"); !errors.Is(err, payload.ErrMiddlewareNotFound) {
		t.Errorf("Expected MiddlewareNotFound, got %v", err)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newStore(t)

	values := []any{nil, true, 1.5, "text", []any{1.0, "a"}, map[string]any{"x": nil}}
	for _, keyPath := range []string{"k", "k.a", "k.a.b[0]", "other[2]"} {
		for _, v := range values {
			if err := s.Set(ctx, keyPath, v); err != nil {
				t.Fatalf("Set(%s) failed: %v", keyPath, err)
			}
			got, loaded, err := s.Get(ctx, keyPath)
			if err != nil || !loaded || !reflect.DeepEqual(got, v) {
				t.Errorf("Expected %s to hold %v, got %v (loaded %v, err %v)", keyPath, v, got, loaded, err)
			}
			if ok, _ := s.Has(ctx, keyPath); !ok {
				t.Errorf("Expected Has(%s) after Set", keyPath)
			}
		}
	}

	if removed, err := s.Delete(ctx, "k.a"); err != nil || !removed {
		t.Errorf("Expected Delete to remove k.a, got %v (%v)", removed, err)
	}
	if ok, _ := s.Has(ctx, "k.a"); ok {
		t.Error("Expected Has(k.a) to be false after Delete")
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	s := newStore(t)
	first, err := s.Ensure(ctx, "cfg", "first")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := s.Ensure(ctx, "cfg", "second")
	if first != "first" || second != "first" {
		t.Errorf("Expected both calls to return 'first', got %v and %v", first, second)
	}
}

func TestErrorsCarryKindAndMethod(t *testing.T) {
	s := newStore(t)

	_, err := s.Inc(ctx, "missing")
	var perr *payload.Error
	if !errors.As(err, &perr) || perr.Kind != payload.KindMissingData || perr.Method != payload.MethodInc {
		t.Errorf("Expected MissingData(inc), got %v", err)
	}

	_ = s.Set(ctx, "name", "x")
	if _, err := s.Math(ctx, "name", payload.OpAdd, 1); !errors.Is(err, payload.ErrInvalidDataType) {
		t.Errorf("Expected InvalidDataType, got %v", err)
	}
	if _, err := s.Random(ctx, 5, false); !errors.Is(err, payload.ErrInvalidCount) {
		t.Errorf("Expected InvalidCount, got %v", err)
	}
	if _, err := s.Remove(ctx, "name", payload.MatchValue([]any{1})); !errors.Is(err, payload.ErrInvalidValueType) {
		t.Errorf("Expected InvalidValueType, got %v", err)
	}

	// errors are not sticky
	if n, err := s.Size(ctx); err != nil || n != 1 {
		t.Errorf("Expected size 1 after failed calls, got %d (%v)", n, err)
	}
}

func TestCollectionOperations(t *testing.T) {
	s := newStore(t)
	n, err := s.SetMany(ctx, []payload.SetEntry{
		store.Entry("alice.age", 31),
		store.Entry("bob.age", 17),
		store.Entry("carol", map[string]any{"age": 45}),
	}, true)
	if err != nil || n != 3 {
		t.Fatalf("SetMany wrote %d entries (%v)", n, err)
	}

	adult := payload.MatchFunc(func(v any, _ string) bool { return v.(float64) >= 18 }).At([]string{"age"})
	if ok, _ := s.Every(ctx, adult); ok {
		t.Error("Expected not everyone to be adult")
	}
	if ok, _ := s.Some(ctx, adult); !ok {
		t.Error("Expected someone to be adult")
	}
	if found, _ := s.Find(ctx, adult); found == nil || found.Key != "alice" {
		t.Errorf("Expected alice to be found first, got %v", found)
	}
	part, _ := s.Partition(ctx, adult)
	if len(part.Truthy) != 2 || len(part.Falsy) != 1 {
		t.Errorf("Unexpected partition %+v", part)
	}
	ages, _ := s.Pluck(ctx, "age")
	if !reflect.DeepEqual(ages, []any{31.0, 17.0, 45.0}) {
		t.Errorf("Unexpected ages %v", ages)
	}
	keys, _ := s.Map(ctx, func(_ any, key string) any { return key })
	if !reflect.DeepEqual(keys, []any{"alice", "bob", "carol"}) {
		t.Errorf("Unexpected keys %v", keys)
	}

	many, _ := s.GetMany(ctx, "alice", "nobody")
	if len(many) != 1 {
		t.Errorf("Expected only existing keys, got %v", many)
	}
	if n, _ := s.DeleteMany(ctx, "alice", "nobody"); n != 1 {
		t.Errorf("Expected 1 removed entry, got %d", n)
	}

	first, _ := s.AutoKey(ctx)
	second, _ := s.AutoKey(ctx)
	if first == second {
		t.Errorf("Expected distinct auto keys, got %s twice", first)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Size(ctx); n != 0 {
		t.Errorf("Expected empty store after Clear, got %d", n)
	}
}

func TestMiddlewareComposition(t *testing.T) {
	ensure, err := autoensure.New(0)
	if err != nil {
		t.Fatal(err)
	}
	c, err := cache.New(cache.Config{MaxSize: 10, MaxAge: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	s := newStore(t, pipeline.Use(ensure, 0), pipeline.Use(c, 10))

	for i := 0; i < 3; i++ {
		if _, err := s.Inc(ctx, "visits"); err != nil {
			t.Fatalf("Inc failed: %v", err)
		}
	}
	if v, _, _ := s.Get(ctx, "visits"); v != 3.0 {
		t.Errorf("Expected 3 visits, got %v", v)
	}
	if !c.Cached("visits") || c.Stats().Hits == 0 {
		t.Errorf("Expected visits to be served from the cache, stats %+v", c.Stats())
	}

	if v, loaded, _ := s.Get(ctx, "never"); !loaded || v != 0.0 {
		t.Errorf("Expected default 0 for absent key, got %v", v)
	}

	mw, err := s.Middleware(cache.Name)
	if err != nil || mw != c {
		t.Errorf("Expected cache middleware lookup to succeed, got %v (%v)", mw, err)
	}
}

func TestExportImport(t *testing.T) {
	src := newStore(t)
	_ = src.Set(ctx, "b", map[string]any{"n": 1})
	_ = src.Set(ctx, "a", "x")

	doc, err := src.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if doc.Name != "test" || len(doc.Entries) != 2 || doc.Entries[0].Key != "b" {
		t.Fatalf("Unexpected export %v", doc.Entries)
	}

	dst := newStore(t)
	_ = dst.Set(ctx, "stale", true)
	n, err := dst.Import(ctx, doc, true)
	if err != nil || n != 2 {
		t.Fatalf("Import wrote %d entries (%v)", n, err)
	}
	keys, _ := dst.Keys(ctx)
	if !reflect.DeepEqual(keys, []string{"b", "a"}) {
		t.Errorf("Expected keys [b a], got %v", keys)
	}
}

func TestMetricsAndClose(t *testing.T) {
	registry := gometrics.NewRegistry()
	s, err := store.New(ctx, store.Options{Name: "m", Provider: memory.New(), Registry: registry})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Set(ctx, "a", 1)
	_, _ = s.Inc(ctx, "nope")

	timer, ok := registry.Get("store.m.set").(gometrics.Timer)
	if !ok || timer.Count() != 1 {
		t.Errorf("Expected one timed set call, got %v", registry.Get("store.m.set"))
	}
	if meter, ok := registry.Get("store.m.errors").(gometrics.Meter); !ok || meter.Count() != 1 {
		t.Errorf("Expected one error to be counted")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if err := s.Set(ctx, "a", 2); !errors.Is(err, payload.ErrInvalidProvider) {
		t.Errorf("Expected closed store to reject calls, got %v", err)
	}
}
