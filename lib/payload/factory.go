package payload

import "github.com/ValentinKolb/mkv/lib/path"

// --------------------------------------------------------------------------
// Factory Functions
// --------------------------------------------------------------------------

func meta(m Method) Metadata { return Metadata{Method: m} }

// New creates an empty payload for the given method. It is used to decode
// payloads received over the wire.
func New(m Method) (Payload, error) {
	switch m {
	case MethodAutoKey:
		return &AutoKeyPayload{Metadata: meta(m)}, nil
	case MethodClear:
		return &ClearPayload{Metadata: meta(m)}, nil
	case MethodDec:
		return &DecPayload{Metadata: meta(m)}, nil
	case MethodDelete:
		return &DeletePayload{Metadata: meta(m)}, nil
	case MethodDeleteMany:
		return &DeleteManyPayload{Metadata: meta(m)}, nil
	case MethodEach:
		return &EachPayload{Metadata: meta(m)}, nil
	case MethodEnsure:
		return &EnsurePayload{Metadata: meta(m)}, nil
	case MethodEvery:
		return &EveryPayload{Metadata: meta(m)}, nil
	case MethodFilter:
		return &FilterPayload{Metadata: meta(m)}, nil
	case MethodFind:
		return &FindPayload{Metadata: meta(m)}, nil
	case MethodGet:
		return &GetPayload{Metadata: meta(m)}, nil
	case MethodGetAll:
		return &GetAllPayload{Metadata: meta(m)}, nil
	case MethodGetMany:
		return &GetManyPayload{Metadata: meta(m)}, nil
	case MethodHas:
		return &HasPayload{Metadata: meta(m)}, nil
	case MethodInc:
		return &IncPayload{Metadata: meta(m)}, nil
	case MethodKeys:
		return &KeysPayload{Metadata: meta(m)}, nil
	case MethodMap:
		return &MapPayload{Metadata: meta(m)}, nil
	case MethodMath:
		return &MathPayload{Metadata: meta(m)}, nil
	case MethodPartition:
		return &PartitionPayload{Metadata: meta(m)}, nil
	case MethodPush:
		return &PushPayload{Metadata: meta(m)}, nil
	case MethodRandom:
		return &RandomPayload{Metadata: meta(m)}, nil
	case MethodRandomKey:
		return &RandomKeyPayload{Metadata: meta(m)}, nil
	case MethodRemove:
		return &RemovePayload{Metadata: meta(m)}, nil
	case MethodSet:
		return &SetPayload{Metadata: meta(m)}, nil
	case MethodSetMany:
		return &SetManyPayload{Metadata: meta(m)}, nil
	case MethodSize:
		return &SizePayload{Metadata: meta(m)}, nil
	case MethodSome:
		return &SomePayload{Metadata: meta(m)}, nil
	case MethodUpdate:
		return &UpdatePayload{Metadata: meta(m)}, nil
	case MethodValues:
		return &ValuesPayload{Metadata: meta(m)}, nil
	}
	return nil, NewError(KindInternalError, m, "unknown method %q", m)
}

// Hooked reports whether the payload depends on a Go function. Such payloads
// cannot be encoded without losing their meaning.
func Hooked(p Payload) bool {
	switch t := p.(type) {
	case *EachPayload:
		return t.Hook != nil
	case *MapPayload:
		return t.Hook != nil
	case *UpdatePayload:
		return t.Hook != nil
	case *RemovePayload:
		return t.Matcher.Hook != nil
	case *EveryPayload:
		return t.Matcher.Hook != nil
	case *SomePayload:
		return t.Matcher.Hook != nil
	case *FilterPayload:
		return t.Matcher.Hook != nil
	case *FindPayload:
		return t.Matcher.Hook != nil
	case *PartitionPayload:
		return t.Matcher.Hook != nil
	}
	return false
}

func NewGet(key string, p path.Path) *GetPayload {
	return &GetPayload{Metadata: meta(MethodGet), Key: key, Path: p}
}

func NewSet(key string, p path.Path, value any) *SetPayload {
	return &SetPayload{Metadata: meta(MethodSet), Key: key, Path: p, Value: value}
}

func NewHas(key string, p path.Path) *HasPayload {
	return &HasPayload{Metadata: meta(MethodHas), Key: key, Path: p}
}

func NewDelete(key string, p path.Path) *DeletePayload {
	return &DeletePayload{Metadata: meta(MethodDelete), Key: key, Path: p}
}

func NewEnsure(key string, defaultValue any) *EnsurePayload {
	return &EnsurePayload{Metadata: meta(MethodEnsure), Key: key, DefaultValue: defaultValue}
}

func NewInc(key string, p path.Path) *IncPayload {
	return &IncPayload{Metadata: meta(MethodInc), Key: key, Path: p}
}

func NewDec(key string, p path.Path) *DecPayload {
	return &DecPayload{Metadata: meta(MethodDec), Key: key, Path: p}
}

func NewMath(key string, p path.Path, op MathOperator, operand float64) *MathPayload {
	return &MathPayload{Metadata: meta(MethodMath), Key: key, Path: p, Operator: op, Operand: operand}
}

func NewPush(key string, p path.Path, value any, allowDuplicates bool) *PushPayload {
	return &PushPayload{Metadata: meta(MethodPush), Key: key, Path: p, Value: value, AllowDuplicates: allowDuplicates}
}

func NewRemove(key string, p path.Path, m Matcher) *RemovePayload {
	return &RemovePayload{Metadata: meta(MethodRemove), Key: key, Path: p, Matcher: m}
}

func NewUpdate(key string, p path.Path, hook UpdateFunc) *UpdatePayload {
	return &UpdatePayload{Metadata: meta(MethodUpdate), Key: key, Path: p, Hook: hook}
}

func NewEvery(m Matcher) *EveryPayload {
	return &EveryPayload{Metadata: meta(MethodEvery), Matcher: m}
}

func NewSome(m Matcher) *SomePayload {
	return &SomePayload{Metadata: meta(MethodSome), Matcher: m}
}

func NewFilter(m Matcher) *FilterPayload {
	return &FilterPayload{Metadata: meta(MethodFilter), Matcher: m}
}

func NewFind(m Matcher) *FindPayload {
	return &FindPayload{Metadata: meta(MethodFind), Matcher: m}
}

func NewPartition(m Matcher) *PartitionPayload {
	return &PartitionPayload{Metadata: meta(MethodPartition), Matcher: m}
}

// NewMap creates a map payload. If hook is nil the value at p is collected instead.
func NewMap(hook MapFunc, p path.Path) *MapPayload {
	return &MapPayload{Metadata: meta(MethodMap), Hook: hook, Path: p}
}

func NewEach(hook EachFunc) *EachPayload {
	return &EachPayload{Metadata: meta(MethodEach), Hook: hook}
}

func NewRandom(count int, duplicates bool) *RandomPayload {
	return &RandomPayload{Metadata: meta(MethodRandom), Count: count, Duplicates: duplicates}
}

func NewRandomKey(count int, duplicates bool) *RandomKeyPayload {
	return &RandomKeyPayload{Metadata: meta(MethodRandomKey), Count: count, Duplicates: duplicates}
}

func NewGetMany(keys []string) *GetManyPayload {
	return &GetManyPayload{Metadata: meta(MethodGetMany), Keys: keys}
}

func NewSetMany(entries []SetEntry, overwrite bool) *SetManyPayload {
	return &SetManyPayload{Metadata: meta(MethodSetMany), Entries: entries, Overwrite: overwrite}
}

func NewDeleteMany(keys []string) *DeleteManyPayload {
	return &DeleteManyPayload{Metadata: meta(MethodDeleteMany), Keys: keys}
}

func NewKeys() *KeysPayload { return &KeysPayload{Metadata: meta(MethodKeys)} }

func NewValues() *ValuesPayload { return &ValuesPayload{Metadata: meta(MethodValues)} }

func NewGetAll() *GetAllPayload { return &GetAllPayload{Metadata: meta(MethodGetAll)} }

func NewSize() *SizePayload { return &SizePayload{Metadata: meta(MethodSize)} }

func NewClear() *ClearPayload { return &ClearPayload{Metadata: meta(MethodClear)} }

func NewAutoKey() *AutoKeyPayload { return &AutoKeyPayload{Metadata: meta(MethodAutoKey)} }
