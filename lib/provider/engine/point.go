package engine

import (
	"context"
	"math"
	"strconv"

	"github.com/ValentinKolb/mkv/lib/jsonval"
	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
)

// --------------------------------------------------------------------------
// Point operations (docu see provider.Provider)
// --------------------------------------------------------------------------

func (e *Engine) Get(ctx context.Context, p *payload.GetPayload) *payload.GetPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	root, ok, err := e.table.Load(ctx, p.Key)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	if !ok {
		p.Data, p.Loaded = nil, false
		return p
	}
	p.Data, p.Loaded = path.Get(root, p.Path)
	return p
}

func (e *Engine) Set(ctx context.Context, p *payload.SetPayload) *payload.SetPayload {
	v, ok := normalize(&p.Metadata, p.Value)
	if !ok {
		return p
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := write(ctx, e.table, p.Key, p.Path, v); err != nil {
		e.fail(&p.Metadata, err)
	}
	return p
}

func (e *Engine) Has(ctx context.Context, p *payload.HasPayload) *payload.HasPayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	root, ok, err := e.table.Load(ctx, p.Key)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = ok && path.Has(root, p.Path)
	return p
}

func (e *Engine) Delete(ctx context.Context, p *payload.DeletePayload) *payload.DeletePayload {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(p.Path) == 0 {
		removed, err := e.table.Delete(ctx, p.Key)
		if err != nil {
			e.fail(&p.Metadata, err)
		}
		p.Data = removed
		return p
	}

	root, ok, err := e.table.Load(ctx, p.Key)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	if !ok {
		return p
	}
	root, removed := path.Delete(root, p.Path)
	if removed {
		if err := e.table.Store(ctx, p.Key, root); err != nil {
			e.fail(&p.Metadata, err)
			return p
		}
	}
	p.Data = removed
	return p
}

func (e *Engine) Ensure(ctx context.Context, p *payload.EnsurePayload) *payload.EnsurePayload {
	def, ok := normalize(&p.Metadata, p.DefaultValue)
	if !ok {
		return p
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur, exists, err := e.table.Load(ctx, p.Key)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	if exists {
		p.Data = cur
		return p
	}
	if err := e.table.Store(ctx, p.Key, def); err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = jsonval.Clone(def)
	return p
}

func (e *Engine) Inc(ctx context.Context, p *payload.IncPayload) *payload.IncPayload {
	p.Data, _ = e.numeric(ctx, &p.Metadata, p.Key, p.Path, func(f float64) float64 { return f + 1 })
	return p
}

func (e *Engine) Dec(ctx context.Context, p *payload.DecPayload) *payload.DecPayload {
	p.Data, _ = e.numeric(ctx, &p.Metadata, p.Key, p.Path, func(f float64) float64 { return f - 1 })
	return p
}

func (e *Engine) Math(ctx context.Context, p *payload.MathPayload) *payload.MathPayload {
	apply, err := mathOperator(p.Operator, p.Operand)
	if err != nil {
		p.Fail(payload.KindInvalidValueType, "%s", err.Message)
		return p
	}
	p.Data, _ = e.numeric(ctx, &p.Metadata, p.Key, p.Path, apply)
	return p
}

func (e *Engine) Push(ctx context.Context, p *payload.PushPayload) *payload.PushPayload {
	v, ok := normalize(&p.Metadata, p.Value)
	if !ok {
		return p
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	root, arr, ok := e.loadArray(ctx, &p.Metadata, p.Key, p.Path)
	if !ok {
		return p
	}

	if !p.AllowDuplicates && jsonval.IsPrimitive(v) {
		for _, el := range arr {
			if jsonval.Equal(el, v) {
				p.Data = arr
				return p
			}
		}
	}

	arr = append(arr, v)
	if err := e.table.Store(ctx, p.Key, path.Set(root, p.Path, arr)); err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = jsonval.Clone(arr).([]any)
	return p
}

func (e *Engine) Remove(ctx context.Context, p *payload.RemovePayload) *payload.RemovePayload {
	if err := p.Matcher.Validate(p.Method); err != nil {
		p.Error = err
		return p
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	root, arr, ok := e.loadArray(ctx, &p.Metadata, p.Key, p.Path)
	if !ok {
		return p
	}

	kept := make([]any, 0, len(arr))
	for i, el := range arr {
		if !p.Matcher.Match(el, strconv.Itoa(i)) {
			kept = append(kept, el)
		}
	}

	if len(kept) != len(arr) {
		if err := e.table.Store(ctx, p.Key, path.Set(root, p.Path, kept)); err != nil {
			e.fail(&p.Metadata, err)
			return p
		}
	}
	p.Data = jsonval.Clone(kept).([]any)
	return p
}

func (e *Engine) Update(ctx context.Context, p *payload.UpdatePayload) *payload.UpdatePayload {
	if p.Hook == nil {
		p.Fail(payload.KindMissingValue, "update requires a hook")
		return p
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	root, _, err := e.table.Load(ctx, p.Key)
	if err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	cur, _ := path.Get(root, p.Path)

	v, ok := normalize(&p.Metadata, p.Hook(jsonval.Clone(cur)))
	if !ok {
		return p
	}
	if err := e.table.Store(ctx, p.Key, path.Set(root, p.Path, v)); err != nil {
		e.fail(&p.Metadata, err)
		return p
	}
	p.Data = jsonval.Clone(v)
	return p
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// write stores v at p inside key, the caller must hold the lock
func write(ctx context.Context, t Table, key string, p path.Path, v any) error {
	if len(p) == 0 {
		return t.Store(ctx, key, v)
	}
	root, _, err := t.Load(ctx, key)
	if err != nil {
		return err
	}
	return t.Store(ctx, key, path.Set(root, p, v))
}

// numeric applies fn to the number at p inside key
func (e *Engine) numeric(ctx context.Context, m *payload.Metadata, key string, p path.Path,
	fn func(float64) float64) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	root, exists, err := e.table.Load(ctx, key)
	if err != nil {
		e.fail(m, err)
		return 0, false
	}
	if !exists {
		m.Fail(payload.KindMissingData, "key %q does not exist", key)
		return 0, false
	}
	cur, ok := path.Get(root, p)
	if !ok {
		m.Fail(payload.KindMissingData, "key %q has no value at %q", key, p.String())
		return 0, false
	}
	f, ok := cur.(float64)
	if !ok {
		m.Fail(payload.KindInvalidDataType, "expected a number at %q, got %s", p.String(), jsonval.TypeName(cur))
		return 0, false
	}

	res := fn(f)
	if math.IsNaN(res) || math.IsInf(res, 0) {
		m.Fail(payload.KindInvalidValueType, "result %v is not a finite number", res)
		return 0, false
	}

	if err := e.table.Store(ctx, key, path.Set(root, p, res)); err != nil {
		e.fail(m, err)
		return 0, false
	}
	return res, true
}

// loadArray loads key and returns the array at p, the caller must hold the lock
func (e *Engine) loadArray(ctx context.Context, m *payload.Metadata, key string, p path.Path) (any, []any, bool) {
	root, exists, err := e.table.Load(ctx, key)
	if err != nil {
		e.fail(m, err)
		return nil, nil, false
	}
	if !exists {
		m.Fail(payload.KindMissingData, "key %q does not exist", key)
		return nil, nil, false
	}
	cur, ok := path.Get(root, p)
	if !ok {
		m.Fail(payload.KindMissingData, "key %q has no value at %q", key, p.String())
		return nil, nil, false
	}
	arr, ok := cur.([]any)
	if !ok {
		m.Fail(payload.KindInvalidDataType, "expected an array at %q, got %s", p.String(), jsonval.TypeName(cur))
		return nil, nil, false
	}
	return root, arr, true
}

// mathOperator returns the function applying op with operand
func mathOperator(op payload.MathOperator, operand float64) (func(float64) float64, *payload.Error) {
	divByZero := func() *payload.Error {
		return payload.NewError(payload.KindInvalidValueType, payload.MethodMath, "%s by zero", op)
	}

	switch op {
	case payload.OpAdd:
		return func(f float64) float64 { return f + operand }, nil
	case payload.OpSubtract:
		return func(f float64) float64 { return f - operand }, nil
	case payload.OpMultiply:
		return func(f float64) float64 { return f * operand }, nil
	case payload.OpDivide:
		if operand == 0 {
			return nil, divByZero()
		}
		return func(f float64) float64 { return f / operand }, nil
	case payload.OpRemainder:
		if operand == 0 {
			return nil, divByZero()
		}
		return func(f float64) float64 { return math.Mod(f, operand) }, nil
	case payload.OpExponent:
		return func(f float64) float64 { return math.Pow(f, operand) }, nil
	}
	return nil, payload.NewError(payload.KindInvalidValueType, payload.MethodMath, "unknown operator %q", op)
}
