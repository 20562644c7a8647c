package payload

import "github.com/ValentinKolb/mkv/lib/path"

// --------------------------------------------------------------------------
// Point operations
// --------------------------------------------------------------------------

// GetPayload reads the value at Path of the entry Key
type GetPayload struct {
	Metadata
	Key    string    `json:"key"`
	Path   path.Path `json:"path,omitempty"`
	Data   any       `json:"data,omitempty"`
	Loaded bool      `json:"loaded,omitempty"` // false if the key or path does not exist
}

// SetPayload writes Value at Path of the entry Key, creating the entry if needed
type SetPayload struct {
	Metadata
	Key   string    `json:"key"`
	Path  path.Path `json:"path,omitempty"`
	Value any       `json:"value"`
}

// HasPayload checks whether a value exists at Path of the entry Key
type HasPayload struct {
	Metadata
	Key  string    `json:"key"`
	Path path.Path `json:"path,omitempty"`
	Data bool      `json:"data,omitempty"`
}

// DeletePayload removes the entry Key, or only the value at Path
type DeletePayload struct {
	Metadata
	Key  string    `json:"key"`
	Path path.Path `json:"path,omitempty"`
	Data bool      `json:"data,omitempty"` // whether something was removed
}

// EnsurePayload returns the entry Key, storing DefaultValue first if it is absent
type EnsurePayload struct {
	Metadata
	Key          string `json:"key"`
	DefaultValue any    `json:"defaultValue"`
	Data         any    `json:"data,omitempty"`
}

// IncPayload adds one to the number at Path of the entry Key
type IncPayload struct {
	Metadata
	Key  string    `json:"key"`
	Path path.Path `json:"path,omitempty"`
	Data float64   `json:"data,omitempty"`
}

// DecPayload subtracts one from the number at Path of the entry Key
type DecPayload struct {
	Metadata
	Key  string    `json:"key"`
	Path path.Path `json:"path,omitempty"`
	Data float64   `json:"data,omitempty"`
}

// MathOperator is an arithmetic operator of the math operation
type MathOperator string

const (
	OpAdd       MathOperator = "add"
	OpSubtract  MathOperator = "subtract"
	OpMultiply  MathOperator = "multiply"
	OpDivide    MathOperator = "divide"
	OpRemainder MathOperator = "remainder"
	OpExponent  MathOperator = "exponent"
)

// MathPayload applies Operator with Operand to the number at Path of the entry Key
type MathPayload struct {
	Metadata
	Key      string       `json:"key"`
	Path     path.Path    `json:"path,omitempty"`
	Operator MathOperator `json:"operator"`
	Operand  float64      `json:"operand"`
	Data     float64      `json:"data,omitempty"`
}

// PushPayload appends Value to the array at Path of the entry Key
type PushPayload struct {
	Metadata
	Key             string    `json:"key"`
	Path            path.Path `json:"path,omitempty"`
	Value           any       `json:"value"`
	AllowDuplicates bool      `json:"allowDuplicates,omitempty"`
	Data            []any     `json:"data,omitempty"` // the array after the push
}

// RemovePayload removes all elements matching Matcher from the array at Path of the entry Key
type RemovePayload struct {
	Metadata
	Key     string    `json:"key"`
	Path    path.Path `json:"path,omitempty"`
	Matcher Matcher   `json:"matcher"`
	Data    []any     `json:"data,omitempty"` // the array after the removal
}

// UpdatePayload replaces the value at Path of the entry Key with the result of Hook
type UpdatePayload struct {
	Metadata
	Key  string     `json:"key"`
	Path path.Path  `json:"path,omitempty"`
	Hook UpdateFunc `json:"-"`
	Data any        `json:"data,omitempty"` // the stored result
}

// --------------------------------------------------------------------------
// Collection queries
// --------------------------------------------------------------------------

// EveryPayload checks whether all entries match
type EveryPayload struct {
	Metadata
	Matcher Matcher `json:"matcher"`
	Data    bool    `json:"data,omitempty"`
}

// SomePayload checks whether at least one entry matches
type SomePayload struct {
	Metadata
	Matcher Matcher `json:"matcher"`
	Data    bool    `json:"data,omitempty"`
}

// FilterPayload collects all matching entries
type FilterPayload struct {
	Metadata
	Matcher Matcher        `json:"matcher"`
	Data    map[string]any `json:"data,omitempty"`
}

// FindPayload returns the first matching entry in insertion order
type FindPayload struct {
	Metadata
	Matcher Matcher `json:"matcher"`
	Data    *Entry  `json:"data,omitempty"`
}

// Partition is the result of the partition operation
type Partition struct {
	Truthy map[string]any `json:"truthy"`
	Falsy  map[string]any `json:"falsy"`
}

// PartitionPayload splits all entries into matching and non-matching ones
type PartitionPayload struct {
	Metadata
	Matcher Matcher   `json:"matcher"`
	Data    Partition `json:"data"`
}

// MapPayload derives one value per entry, either by Hook or by reading Path
type MapPayload struct {
	Metadata
	Hook MapFunc   `json:"-"`
	Path path.Path `json:"path,omitempty"`
	Data []any     `json:"data,omitempty"`
}

// EachPayload calls Hook for every entry
type EachPayload struct {
	Metadata
	Hook EachFunc `json:"-"`
}

// RandomPayload samples Count values
type RandomPayload struct {
	Metadata
	Count      int   `json:"count"`
	Duplicates bool  `json:"duplicates,omitempty"`
	Data       []any `json:"data,omitempty"`
}

// RandomKeyPayload samples Count keys
type RandomKeyPayload struct {
	Metadata
	Count      int      `json:"count"`
	Duplicates bool     `json:"duplicates,omitempty"`
	Data       []string `json:"data,omitempty"`
}

// --------------------------------------------------------------------------
// Bulk operations
// --------------------------------------------------------------------------

// GetManyPayload reads several entries. Data only contains keys that exist.
type GetManyPayload struct {
	Metadata
	Keys []string       `json:"keys"`
	Data map[string]any `json:"data,omitempty"`
}

// SetEntry is a single write of a setMany operation
type SetEntry struct {
	Key   string    `json:"key"`
	Path  path.Path `json:"path,omitempty"`
	Value any       `json:"value"`
}

// SetManyPayload writes several entries. Without Overwrite, existing keys are skipped.
type SetManyPayload struct {
	Metadata
	Entries   []SetEntry `json:"entries"`
	Overwrite bool       `json:"overwrite,omitempty"`
	Data      int        `json:"data,omitempty"` // number of entries written
}

// DeleteManyPayload removes several entries
type DeleteManyPayload struct {
	Metadata
	Keys []string `json:"keys"`
	Data int      `json:"data,omitempty"` // number of entries removed
}

// KeysPayload lists all keys in insertion order
type KeysPayload struct {
	Metadata
	Data []string `json:"data,omitempty"`
}

// ValuesPayload lists all values in insertion order
type ValuesPayload struct {
	Metadata
	Data []any `json:"data,omitempty"`
}

// GetAllPayload returns all entries
type GetAllPayload struct {
	Metadata
	Data map[string]any `json:"data,omitempty"`
}

// SizePayload counts the entries
type SizePayload struct {
	Metadata
	Data int `json:"data,omitempty"`
}

// ClearPayload removes all entries and resets the autoKey counter
type ClearPayload struct {
	Metadata
}

// AutoKeyPayload returns the next generated key
type AutoKeyPayload struct {
	Metadata
	Data string `json:"data,omitempty"`
}
