// Package memory implements the reference provider. Entries are held in
// process memory in insertion order; nothing survives a restart.
//
// The provider is an engine.Engine over an ordered table. Values are deep
// copied on the way out, so callers can never modify stored data through a
// returned value.
package memory

import (
	"container/list"
	"context"

	"github.com/ValentinKolb/mkv/lib/jsonval"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
)

// New creates a new in-memory provider
func New(opts ...engine.Option) *engine.Engine {
	return engine.New(NewTable(), opts...)
}

// Table is an insertion ordered in-memory engine.Table.
// It is not thread-safe, the Engine serializes access.
type Table struct {
	order *list.List // of *element
	index map[string]*list.Element
	seq   uint64
}

type element struct {
	key   string
	value any
}

// NewTable creates an empty Table
func NewTable() *Table {
	return &Table{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see engine.Table)
// --------------------------------------------------------------------------

func (t *Table) Init(_ context.Context, _ string) error { return nil }

func (t *Table) Load(_ context.Context, key string) (any, bool, error) {
	el, ok := t.index[key]
	if !ok {
		return nil, false, nil
	}
	return jsonval.Clone(el.Value.(*element).value), true, nil
}

func (t *Table) Store(_ context.Context, key string, value any) error {
	if el, ok := t.index[key]; ok {
		el.Value.(*element).value = value
		return nil
	}
	t.index[key] = t.order.PushBack(&element{key: key, value: value})
	return nil
}

func (t *Table) Delete(_ context.Context, key string) (bool, error) {
	el, ok := t.index[key]
	if !ok {
		return false, nil
	}
	t.order.Remove(el)
	delete(t.index, key)
	return true, nil
}

func (t *Table) Range(_ context.Context, fn func(key string, value any) bool) error {
	for el := t.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*element)
		if !fn(e.key, jsonval.Clone(e.value)) {
			break
		}
	}
	return nil
}

func (t *Table) Len(_ context.Context) (int, error) { return len(t.index), nil }

func (t *Table) Clear(_ context.Context) error {
	t.order.Init()
	t.index = make(map[string]*list.Element)
	t.seq = 0
	return nil
}

func (t *Table) Sequence(_ context.Context) (uint64, error) { return t.seq, nil }

func (t *Table) SetSequence(_ context.Context, seq uint64) error {
	t.seq = seq
	return nil
}

func (t *Table) Close() error { return nil }
