package engine

import (
	"context"

	"github.com/ValentinKolb/mkv/lib/jsonval"
	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
)

// --------------------------------------------------------------------------
// Collection queries (docu see provider.Provider)
// --------------------------------------------------------------------------

func (e *Engine) Every(ctx context.Context, p *payload.EveryPayload) *payload.EveryPayload {
	entries, ok := e.matchable(ctx, &p.Metadata, p.Matcher)
	if !ok {
		return p
	}
	if len(entries) == 0 {
		p.Data = false
		return p
	}
	for _, entry := range entries {
		if !p.Matcher.Match(entry.Value, entry.Key) {
			p.Data = false
			return p
		}
	}
	p.Data = true
	return p
}

func (e *Engine) Some(ctx context.Context, p *payload.SomePayload) *payload.SomePayload {
	entries, ok := e.matchable(ctx, &p.Metadata, p.Matcher)
	if !ok {
		return p
	}
	p.Data = false
	for _, entry := range entries {
		if p.Matcher.Match(entry.Value, entry.Key) {
			p.Data = true
			break
		}
	}
	return p
}

func (e *Engine) Filter(ctx context.Context, p *payload.FilterPayload) *payload.FilterPayload {
	entries, ok := e.matchable(ctx, &p.Metadata, p.Matcher)
	if !ok {
		return p
	}
	p.Data = make(map[string]any)
	for _, entry := range entries {
		if p.Matcher.Match(entry.Value, entry.Key) {
			p.Data[entry.Key] = entry.Value
		}
	}
	return p
}

func (e *Engine) Find(ctx context.Context, p *payload.FindPayload) *payload.FindPayload {
	entries, ok := e.matchable(ctx, &p.Metadata, p.Matcher)
	if !ok {
		return p
	}
	p.Data = nil
	for _, entry := range entries {
		if p.Matcher.Match(entry.Value, entry.Key) {
			found := entry
			p.Data = &found
			break
		}
	}
	return p
}

func (e *Engine) Partition(ctx context.Context, p *payload.PartitionPayload) *payload.PartitionPayload {
	entries, ok := e.matchable(ctx, &p.Metadata, p.Matcher)
	if !ok {
		return p
	}
	p.Data = payload.Partition{Truthy: make(map[string]any), Falsy: make(map[string]any)}
	for _, entry := range entries {
		if p.Matcher.Match(entry.Value, entry.Key) {
			p.Data.Truthy[entry.Key] = entry.Value
		} else {
			p.Data.Falsy[entry.Key] = entry.Value
		}
	}
	return p
}

func (e *Engine) Map(ctx context.Context, p *payload.MapPayload) *payload.MapPayload {
	entries, err := e.snapshot(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = make([]any, 0, len(entries))
	for _, entry := range entries {
		if p.Hook != nil {
			p.Data = append(p.Data, p.Hook(entry.Value, entry.Key))
			continue
		}
		v, _ := path.Get(entry.Value, p.Path)
		p.Data = append(p.Data, v)
	}
	return p
}

func (e *Engine) Each(ctx context.Context, p *payload.EachPayload) *payload.EachPayload {
	if p.Hook == nil {
		p.Fail(payload.KindMissingValue, "each requires a hook")
		return p
	}
	entries, err := e.snapshot(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	for _, entry := range entries {
		p.Hook(entry.Value, entry.Key)
	}
	return p
}

// --------------------------------------------------------------------------
// Random sampling
// --------------------------------------------------------------------------

func (e *Engine) Random(ctx context.Context, p *payload.RandomPayload) *payload.RandomPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.entries(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	idx, ok := e.sample(&p.Metadata, len(entries), p.Count, p.Duplicates)
	if !ok {
		return p
	}
	p.Data = make([]any, len(idx))
	for i, j := range idx {
		// the same entry may be drawn more than once
		p.Data[i] = jsonval.Clone(entries[j].Value)
	}
	return p
}

func (e *Engine) RandomKey(ctx context.Context, p *payload.RandomKeyPayload) *payload.RandomKeyPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.entries(ctx)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	idx, ok := e.sample(&p.Metadata, len(entries), p.Count, p.Duplicates)
	if !ok {
		return p
	}
	p.Data = make([]string, len(idx))
	for i, j := range idx {
		p.Data[i] = entries[j].Key
	}
	return p
}

// sample draws count indices out of n, the caller must hold the lock
func (e *Engine) sample(m *payload.Metadata, n, count int, duplicates bool) ([]int, bool) {
	if count < 0 {
		m.Fail(payload.KindInvalidCount, "count must not be negative, got %d", count)
		return nil, false
	}
	if count == 0 {
		return []int{}, true
	}
	if n == 0 || (!duplicates && count > n) {
		m.Fail(payload.KindInvalidCount, "cannot draw %d entries out of %d", count, n)
		return nil, false
	}

	if duplicates {
		idx := make([]int, count)
		for i := range idx {
			idx[i] = e.rnd.IntN(n)
		}
		return idx, true
	}

	// partial Fisher-Yates
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < count; i++ {
		j := i + e.rnd.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:count], true
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// matchable validates the matcher and takes a snapshot
func (e *Engine) matchable(ctx context.Context, m *payload.Metadata, matcher payload.Matcher) ([]payload.Entry, bool) {
	if err := matcher.Validate(m.Method); err != nil {
		m.Error = err
		return nil, false
	}
	entries, err := e.snapshot(ctx)
	if err != nil {
		e.fail(m, err)
		return nil, false
	}
	return entries, true
}
