package testing

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider"
)

// RunProviderBenchmarks runs all benchmarks for a provider implementation
func RunProviderBenchmarks(b *testing.B, name string, factory provider.Factory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, open(b, factory))
		})

		b.Run("SetPath", func(b *testing.B) {
			benchmarkSetPath(b, open(b, factory))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, open(b, factory))
		})

		b.Run("Inc", func(b *testing.B) {
			benchmarkInc(b, open(b, factory))
		})

		b.Run("Filter", func(b *testing.B) {
			benchmarkFilter(b, open(b, factory))
		})
	})
}

func benchmarkSet(b *testing.B, prov provider.Provider) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prov.Set(ctx, payload.NewSet(fmt.Sprintf("key-%d", i%1000), nil, i))
	}
}

func benchmarkSetPath(b *testing.B, prov provider.Provider) {
	p := path.Resolve("profile.stats.visits")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prov.Set(ctx, payload.NewSet(fmt.Sprintf("user-%d", i%1000), p, i))
	}
}

func benchmarkGet(b *testing.B, prov provider.Provider) {
	for i := 0; i < 1000; i++ {
		prov.Set(ctx, payload.NewSet(fmt.Sprintf("key-%d", i), nil, map[string]any{"n": i}))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prov.Get(ctx, payload.NewGet(fmt.Sprintf("key-%d", i%1000), nil))
	}
}

func benchmarkInc(b *testing.B, prov provider.Provider) {
	prov.Set(ctx, payload.NewSet("counter", nil, 0))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prov.Inc(ctx, payload.NewInc("counter", nil))
	}
}

func benchmarkFilter(b *testing.B, prov provider.Provider) {
	for i := 0; i < 1000; i++ {
		prov.Set(ctx, payload.NewSet(fmt.Sprintf("key-%d", i), nil, map[string]any{"even": i%2 == 0}))
	}
	m := payload.MatchValue(true).At(path.Resolve("even"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prov.Filter(ctx, payload.NewFilter(m))
	}
}
