package payload

import (
	"github.com/ValentinKolb/mkv/lib/jsonval"
	"github.com/ValentinKolb/mkv/lib/path"
)

// --------------------------------------------------------------------------
// Payload
// --------------------------------------------------------------------------

// Payload is implemented by every operation payload through the embedded Metadata
type Payload interface {
	Meta() *Metadata
}

// Metadata is embedded in every payload
type Metadata struct {
	// Method is the operation the payload belongs to
	Method Method `json:"method"`
	// Trigger is the current pipeline stage, set by the pipeline only
	Trigger Trigger `json:"trigger,omitempty"`
	// Error is set when the operation failed. It halts the pipeline.
	Error *Error `json:"error,omitempty"`
	// Fulfilled is set by pre-provider middleware that already produced the
	// result. The pipeline does not call the provider for a fulfilled payload.
	Fulfilled bool `json:"-"`
}

// Meta returns the metadata of the payload
func (m *Metadata) Meta() *Metadata { return m }

// Fail sets the error of the payload
func (m *Metadata) Fail(kind ErrorKind, format string, args ...any) {
	m.Error = NewError(kind, m.Method, format, args...)
}

// Failed reports whether an error is set
func (m *Metadata) Failed() bool { return m.Error != nil }

// --------------------------------------------------------------------------
// Entries and hooks
// --------------------------------------------------------------------------

// Entry is a single key/value pair
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Predicate decides whether a value matches. key is the entry key for
// collection queries and the decimal index for array removal.
type Predicate func(value any, key string) bool

// UpdateFunc computes the new value from the current value (nil if absent)
type UpdateFunc func(current any) any

// MapFunc derives a value from an entry
type MapFunc func(value any, key string) any

// EachFunc visits an entry
type EachFunc func(value any, key string)

// --------------------------------------------------------------------------
// Matcher
// --------------------------------------------------------------------------

// Matcher selects values either by a predicate hook or by strict equality
// with a primitive literal. If Path is set the match applies to the value at
// that path inside each candidate; candidates without that path never match.
type Matcher struct {
	Hook  Predicate `json:"-"`
	Path  path.Path `json:"path,omitempty"`
	Value any       `json:"value,omitempty"`
}

// MatchFunc creates a matcher from a predicate
func MatchFunc(fn Predicate) Matcher {
	return Matcher{Hook: fn}
}

// MatchValue creates a matcher testing strict equality with a primitive
func MatchValue(v any) Matcher {
	return Matcher{Value: v}
}

// At returns a copy of the matcher scoped to the given path
func (m Matcher) At(p path.Path) Matcher {
	m.Path = p
	return m
}

// Validate checks that a literal matcher holds a primitive value
func (m Matcher) Validate(method Method) *Error {
	if m.Hook == nil && !jsonval.IsPrimitive(m.Value) {
		return NewError(KindInvalidValueType, method,
			"matcher value must be a primitive, got %s", jsonval.TypeName(m.Value))
	}
	return nil
}

// Match applies the matcher to a candidate value
func (m Matcher) Match(value any, key string) bool {
	if len(m.Path) > 0 {
		v, ok := path.Get(value, m.Path)
		if !ok {
			return false
		}
		value = v
	}
	if m.Hook != nil {
		return m.Hook(value, key)
	}
	return jsonval.Equal(value, m.Value)
}
