package memory

import (
	"context"
	"testing"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
	provtesting "github.com/ValentinKolb/mkv/lib/provider/testing"
)

// TestMemoryProvider runs the conformance suite against the memory provider
func TestMemoryProvider(t *testing.T) {
	provtesting.RunProviderTests(t, "Memory", func() provider.Provider {
		return New()
	})
}

// BenchmarkMemoryProvider runs the provider benchmarks against the memory provider
func BenchmarkMemoryProvider(b *testing.B) {
	provtesting.RunProviderBenchmarks(b, "Memory", func() provider.Provider {
		return New()
	})
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	src := New()
	if err := src.Init(ctx, "src"); err != nil {
		t.Fatal(err)
	}
	src.Set(ctx, payload.NewSet("b", nil, 1))
	src.Set(ctx, payload.NewSet("a", nil, map[string]any{"x": "y"}))
	src.AutoKey(ctx, payload.NewAutoKey())
	src.AutoKey(ctx, payload.NewAutoKey())

	entries, seq, err := src.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if seq != 2 || len(entries) != 2 || entries[0].Key != "b" {
		t.Fatalf("Unexpected snapshot: %v, seq %d", entries, seq)
	}

	dst := New()
	dst.Set(ctx, payload.NewSet("stale", nil, true))
	if err := dst.Restore(ctx, entries, seq); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	keys := dst.Keys(ctx, payload.NewKeys())
	if len(keys.Data) != 2 || keys.Data[0] != "b" || keys.Data[1] != "a" {
		t.Errorf("Expected restored keys [b a], got %v", keys.Data)
	}
	if res := dst.AutoKey(ctx, payload.NewAutoKey()); res.Data != "3" {
		t.Errorf("Expected sequence to continue at 3, got %s", res.Data)
	}
}

func TestDeterministicSeed(t *testing.T) {
	ctx := context.Background()
	draw := func() []string {
		prov := New(engine.WithSeed(42))
		for _, k := range []string{"a", "b", "c", "d", "e"} {
			prov.Set(ctx, payload.NewSet(k, nil, k))
		}
		return prov.RandomKey(ctx, payload.NewRandomKey(3, false)).Data
	}

	first, second := draw(), draw()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Expected equal draws with the same seed, got %v and %v", first, second)
		}
	}
}
