package engine

import (
	"context"
	"strconv"

	"github.com/ValentinKolb/mkv/lib/payload"
)

// --------------------------------------------------------------------------
// Bulk operations (docu see provider.Provider)
// --------------------------------------------------------------------------

func (e *Engine) GetMany(ctx context.Context, p *payload.GetManyPayload) *payload.GetManyPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	p.Data = make(map[string]any, len(p.Keys))
	for _, key := range p.Keys {
		v, ok, err := e.table.Load(ctx, key)
		if err != nil {
			e.fail(&p.Metadata, err)
			return p
		}
		if ok {
			p.Data[key] = v
		}
	}
	return p
}

// SetMany writes all entries in one batch if the table is a Batcher, so a
// failure leaves nothing written. Other tables keep the entries written
// before the failing one.
func (e *Engine) SetMany(ctx context.Context, p *payload.SetManyPayload) *payload.SetManyPayload {
	// normalize everything first, nothing is written if one value is invalid
	values := make([]any, len(p.Entries))
	for i, entry := range p.Entries {
		v, ok := normalize(&p.Metadata, entry.Value)
		if !ok {
			return p
		}
		values[i] = v
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p.Data = 0
	atomic, err := e.batch(ctx, func(t Table) error {
		for i, entry := range p.Entries {
			if !p.Overwrite {
				_, exists, err := t.Load(ctx, entry.Key)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
			}
			if err := write(ctx, t, entry.Key, entry.Path, values[i]); err != nil {
				return err
			}
			p.Data++
		}
		return nil
	})
	if err != nil {
		if atomic {
			p.Data = 0
		}
		e.fail(&p.Metadata, err)
	}
	return p
}

func (e *Engine) DeleteMany(ctx context.Context, p *payload.DeleteManyPayload) *payload.DeleteManyPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	p.Data = 0
	atomic, err := e.batch(ctx, func(t Table) error {
		for _, key := range p.Keys {
			removed, err := t.Delete(ctx, key)
			if err != nil {
				return err
			}
			if removed {
				p.Data++
			}
		}
		return nil
	})
	if err != nil {
		if atomic {
			p.Data = 0
		}
		e.fail(&p.Metadata, err)
	}
	return p
}

// batch runs fn in a batch of the table if it supports one and reports
// whether it did. The caller must hold the lock.
func (e *Engine) batch(ctx context.Context, fn func(t Table) error) (bool, error) {
	if b, ok := e.table.(Batcher); ok {
		return true, b.Batch(ctx, fn)
	}
	return false, fn(e.table)
}

func (e *Engine) Keys(ctx context.Context, p *payload.KeysPayload) *payload.KeysPayload {
	entries, err := e.snapshot(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = make([]string, len(entries))
	for i, entry := range entries {
		p.Data[i] = entry.Key
	}
	return p
}

func (e *Engine) Values(ctx context.Context, p *payload.ValuesPayload) *payload.ValuesPayload {
	entries, err := e.snapshot(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = make([]any, len(entries))
	for i, entry := range entries {
		p.Data[i] = entry.Value
	}
	return p
}

func (e *Engine) GetAll(ctx context.Context, p *payload.GetAllPayload) *payload.GetAllPayload {
	entries, err := e.snapshot(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = make(map[string]any, len(entries))
	for _, entry := range entries {
		p.Data[entry.Key] = entry.Value
	}
	return p
}

func (e *Engine) Size(ctx context.Context, p *payload.SizePayload) *payload.SizePayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.table.Len(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = n
	return p
}

func (e *Engine) Clear(ctx context.Context, p *payload.ClearPayload) *payload.ClearPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.table.Clear(ctx); err != nil {
		e.fail(&p.Metadata, err)
	}
	return p
}

func (e *Engine) AutoKey(ctx context.Context, p *payload.AutoKeyPayload) *payload.AutoKeyPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	seq, err := e.table.Sequence(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	seq++
	if err := e.table.SetSequence(ctx, seq); err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = strconv.FormatUint(seq, 10)
	return p
}
