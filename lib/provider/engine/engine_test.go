package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
	"github.com/ValentinKolb/mkv/lib/provider/memory"
)

var _ provider.Provider = (*engine.Engine)(nil)

// failingTable wraps a memory table and fails every write once broken is set
type failingTable struct {
	*memory.Table
	broken error
}

func (f *failingTable) Store(ctx context.Context, key string, value any) error {
	if f.broken != nil {
		return f.broken
	}
	return f.Table.Store(ctx, key, value)
}

func TestTableErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("PlainErrorsUseEngineKind", func(t *testing.T) {
		table := &failingTable{Table: memory.NewTable()}
		e := engine.New(table, engine.WithErrorKind("DiskError"))

		table.broken = errors.New("disk full")
		res := e.Set(ctx, payload.NewSet("a", nil, 1))
		if res.Error == nil || res.Error.Kind != "DiskError" || res.Error.Method != payload.MethodSet {
			t.Errorf("Expected DiskError on set, got %v", res.Error)
		}
	})

	t.Run("PayloadErrorsPassThrough", func(t *testing.T) {
		table := &failingTable{Table: memory.NewTable()}
		e := engine.New(table)

		table.broken = payload.NewError(payload.KindInvalidValueType, payload.MethodSet, "too large")
		res := e.Set(ctx, payload.NewSet("a", nil, 1))
		if !errors.Is(res.Error, payload.ErrInvalidValueType) {
			t.Errorf("Expected InvalidValueType to pass through, got %v", res.Error)
		}
	})

	t.Run("FailedMutationKeepsData", func(t *testing.T) {
		table := &failingTable{Table: memory.NewTable()}
		e := engine.New(table)
		e.Set(ctx, payload.NewSet("n", nil, 1))

		table.broken = errors.New("read only")
		if res := e.Inc(ctx, payload.NewInc("n", nil)); !errors.Is(res.Error, payload.ErrProviderError) {
			t.Errorf("Expected ProviderError, got %v", res.Error)
		}

		table.broken = nil
		if res := e.Get(ctx, payload.NewGet("n", nil)); res.Data != 1.0 {
			t.Errorf("Expected value to stay 1, got %v", res.Data)
		}
	})
}

// batchingTable restores its entries if a batch fails. The store of failKey fails.
type batchingTable struct {
	*memory.Table
	failKey string
	batches int
}

func (b *batchingTable) Store(ctx context.Context, key string, value any) error {
	if key == b.failKey {
		return errors.New("write failed")
	}
	return b.Table.Store(ctx, key, value)
}

func (b *batchingTable) Batch(ctx context.Context, fn func(t engine.Table) error) error {
	b.batches++
	var saved []payload.Entry
	_ = b.Table.Range(ctx, func(key string, value any) bool {
		saved = append(saved, payload.Entry{Key: key, Value: value})
		return true
	})

	err := fn(b)
	if err != nil {
		_ = b.Table.Clear(ctx)
		for _, entry := range saved {
			_ = b.Table.Store(ctx, entry.Key, entry.Value)
		}
	}
	return err
}

func TestBatchedWrites(t *testing.T) {
	ctx := context.Background()
	table := &batchingTable{Table: memory.NewTable(), failKey: "bad"}
	e := engine.New(table)

	res := e.SetMany(ctx, payload.NewSetMany([]payload.SetEntry{
		{Key: "a", Value: 1},
		{Key: "bad", Value: 2},
	}, true))
	if !errors.Is(res.Error, payload.ErrProviderError) {
		t.Fatalf("Expected ProviderError, got %v", res.Error)
	}
	if res.Data != 0 {
		t.Errorf("Expected 0 written entries after a failed batch, got %d", res.Data)
	}
	if got := e.Has(ctx, payload.NewHas("a", nil)); got.Data {
		t.Error("Expected no entry of a failed batch to be written")
	}

	res = e.SetMany(ctx, payload.NewSetMany([]payload.SetEntry{{Key: "a", Value: 1}, {Key: "b", Value: 2}}, true))
	if res.Error != nil || res.Data != 2 {
		t.Errorf("Expected 2 written entries, got %d (%v)", res.Data, res.Error)
	}
	del := e.DeleteMany(ctx, payload.NewDeleteMany([]string{"a", "missing"}))
	if del.Error != nil || del.Data != 1 {
		t.Errorf("Expected 1 deleted entry, got %d (%v)", del.Data, del.Error)
	}
	if table.batches != 3 {
		t.Errorf("Expected 3 batches, got %d", table.batches)
	}
}

func TestHooksMayReenter(t *testing.T) {
	ctx := context.Background()
	e := memory.New()
	e.Set(ctx, payload.NewSet("a", nil, 1))
	e.Set(ctx, payload.NewSet("b", nil, 2))

	// each runs outside the engine lock, so the hook may write
	res := e.Each(ctx, payload.NewEach(func(value any, key string) {
		e.Set(ctx, payload.NewSet(key+"-copy", nil, value))
	}))
	if res.Error != nil {
		t.Fatalf("Each failed: %v", res.Error)
	}
	if size := e.Size(ctx, payload.NewSize()); size.Data != 4 {
		t.Errorf("Expected 4 entries after copying, got %d", size.Data)
	}
}
