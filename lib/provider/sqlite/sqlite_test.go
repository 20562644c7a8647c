package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
	provtesting "github.com/ValentinKolb/mkv/lib/provider/testing"
)

func newMemoryProvider(t testing.TB) provider.Provider {
	prov, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	return prov
}

// TestSQLiteProvider runs the conformance suite against the sqlite provider
func TestSQLiteProvider(t *testing.T) {
	provtesting.RunProviderTests(t, "SQLite", func() provider.Provider {
		return newMemoryProvider(t)
	})
}

// BenchmarkSQLiteProvider runs the provider benchmarks against the sqlite provider
func BenchmarkSQLiteProvider(b *testing.B) {
	provtesting.RunProviderBenchmarks(b, "SQLite", func() provider.Provider {
		return newMemoryProvider(b)
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mkv.db")

	first, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Init(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	first.Set(ctx, payload.NewSet("b", nil, map[string]any{"name": "bob"}))
	first.Set(ctx, payload.NewSet("a", nil, []any{1, 2}))
	first.AutoKey(ctx, payload.NewAutoKey())
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if err := second.Init(ctx, "users"); err != nil {
		t.Fatal(err)
	}

	keys := second.Keys(ctx, payload.NewKeys())
	if len(keys.Data) != 2 || keys.Data[0] != "b" || keys.Data[1] != "a" {
		t.Errorf("Expected keys [b a] after reopening, got %v", keys.Data)
	}
	if res := second.Get(ctx, payload.NewGet("b", []string{"name"})); res.Data != "bob" {
		t.Errorf("Expected bob, got %v", res.Data)
	}
	if res := second.AutoKey(ctx, payload.NewAutoKey()); res.Data != "2" {
		t.Errorf("Expected autoKey to continue at 2, got %s", res.Data)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mkv.db")

	users, _ := New(dbPath)
	defer users.Close()
	users.Init(ctx, "users")
	orders, _ := New(dbPath)
	defer orders.Close()
	orders.Init(ctx, "orders")

	users.Set(ctx, payload.NewSet("k", nil, "user"))
	users.AutoKey(ctx, payload.NewAutoKey())

	if res := orders.Has(ctx, payload.NewHas("k", nil)); res.Data {
		t.Error("Stores sharing a database must not see each other's keys")
	}
	if res := orders.AutoKey(ctx, payload.NewAutoKey()); res.Data != "1" {
		t.Errorf("Stores must have separate sequences, got %s", res.Data)
	}
}

func TestInitRequiresName(t *testing.T) {
	prov, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer prov.Close()

	if err := prov.Init(context.Background(), ""); !errors.Is(err, payload.ErrMissingName) {
		t.Errorf("Expected MissingName, got %v", err)
	}
}

func TestBatchRollsBack(t *testing.T) {
	ctx := context.Background()
	table, err := NewTable(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer table.Close()
	if err := table.Init(ctx, "batch"); err != nil {
		t.Fatal(err)
	}

	failed := errors.New("entry rejected")
	err = table.Batch(ctx, func(tbl engine.Table) error {
		if err := tbl.Store(ctx, "a", "x"); err != nil {
			return err
		}
		return failed
	})
	if !errors.Is(err, failed) {
		t.Fatalf("Expected the batch error, got %v", err)
	}
	if _, ok, _ := table.Load(ctx, "a"); ok {
		t.Error("Expected writes of a failed batch to be rolled back")
	}

	err = table.Batch(ctx, func(tbl engine.Table) error {
		if err := tbl.Store(ctx, "a", "x"); err != nil {
			return err
		}
		return tbl.Store(ctx, "b", "y")
	})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if n, _ := table.Len(ctx); n != 2 {
		t.Errorf("Expected 2 entries after a committed batch, got %d", n)
	}

	err = table.Batch(ctx, func(tbl engine.Table) error { return tbl.Clear(ctx) })
	if err == nil {
		t.Error("Expected clear inside a batch to fail")
	}
}
