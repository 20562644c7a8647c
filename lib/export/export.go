// Package export implements the document format used to dump and restore a
// store.
//
// A document looks like this:
//
//	{
//	  "name": "users",
//	  "version": "1",
//	  "exportedTimestamp": 1712345678901,
//	  "entries": [["alice", {"age": 30}], ["bob", null]]
//	}
//
// Entries are [key, value] pairs in insertion order. Parse also accepts the
// legacy layout, which names the timestamp "exportDate" and stores entries as
// {"key": ..., "value": ...} objects under "keys". Legacy documents are
// converted on the fly; Encode always writes the current layout.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/mkv/lib/jsonval"
	"github.com/ValentinKolb/mkv/lib/payload"
)

// Version is written into new documents
const Version = "1"

// Document is a point in time copy of a store
type Document struct {
	Name              string
	Version           string
	ExportedTimestamp int64 // unix milliseconds
	Entries           []payload.Entry
	// Legacy is set by Parse if the document used the legacy layout
	Legacy bool
}

// New creates a document for the given store content
func New(name string, entries []payload.Entry) *Document {
	return &Document{
		Name:              name,
		Version:           Version,
		ExportedTimestamp: time.Now().UnixMilli(),
		Entries:           entries,
	}
}

// wire is the current layout
type wire struct {
	Name              string            `json:"name"`
	Version           json.RawMessage   `json:"version,omitempty"`
	ExportedTimestamp json.RawMessage   `json:"exportedTimestamp,omitempty"`
	Entries           []json.RawMessage `json:"entries"`
}

// legacyWire is the legacy layout
type legacyWire struct {
	Name       string          `json:"name"`
	Version    json.RawMessage `json:"version,omitempty"`
	ExportDate json.RawMessage `json:"exportDate,omitempty"`
	Keys       []struct {
		Key   *string `json:"key"`
		Value any     `json:"value"`
	} `json:"keys"`
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode writes the document in the current layout
func Encode(doc *Document) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// MarshalJSON implements json.Marshaler
func (d *Document) MarshalJSON() ([]byte, error) {
	entries := make([][2]any, len(d.Entries))
	for i, e := range d.Entries {
		entries[i] = [2]any{e.Key, e.Value}
	}
	return json.Marshal(struct {
		Name              string   `json:"name"`
		Version           string   `json:"version"`
		ExportedTimestamp int64    `json:"exportedTimestamp"`
		Entries           [][2]any `json:"entries"`
	}{d.Name, d.Version, d.ExportedTimestamp, entries})
}

// UnmarshalJSON implements json.Unmarshaler, it accepts both layouts
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Parse decodes a document in the current or the legacy layout
func Parse(data []byte) (*Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, invalid("not a JSON object: %v", err)
	}

	_, hasEntries := probe["entries"]
	_, hasKeys := probe["keys"]
	switch {
	case hasEntries:
		return parseCurrent(data)
	case hasKeys:
		return parseLegacy(data)
	}
	return nil, invalid("document has neither entries nor keys")
}

func parseCurrent(data []byte) (*Document, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, invalid("%v", err)
	}
	ts, err := timestamp(w.ExportedTimestamp)
	if err != nil {
		return nil, err
	}

	doc := &Document{Name: w.Name, Version: version(w.Version), ExportedTimestamp: ts}
	doc.Entries = make([]payload.Entry, 0, len(w.Entries))
	for i, raw := range w.Entries {
		var pair []any
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
			return nil, invalid("entry %d is not a [key, value] pair", i)
		}
		key, ok := pair[0].(string)
		if !ok {
			return nil, invalid("entry %d has a non string key", i)
		}
		doc.Entries = append(doc.Entries, payload.Entry{Key: key, Value: pair[1]})
	}
	return doc, doc.Validate()
}

func parseLegacy(data []byte) (*Document, error) {
	var w legacyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, invalid("%v", err)
	}
	ts, err := timestamp(w.ExportDate)
	if err != nil {
		return nil, err
	}

	doc := &Document{Name: w.Name, Version: version(w.Version), ExportedTimestamp: ts, Legacy: true}
	doc.Entries = make([]payload.Entry, 0, len(w.Keys))
	for i, k := range w.Keys {
		if k.Key == nil {
			return nil, invalid("legacy entry %d has no key", i)
		}
		doc.Entries = append(doc.Entries, payload.Entry{Key: *k.Key, Value: k.Value})
	}
	return doc, doc.Validate()
}

// Validate checks that the document can be imported and normalizes its values
func (d *Document) Validate() error {
	if d.Name == "" {
		return payload.NewError(payload.KindMissingName, "", "export: document has no name")
	}
	seen := make(map[string]struct{}, len(d.Entries))
	for i, e := range d.Entries {
		if e.Key == "" {
			return invalid("entry %d has an empty key", i)
		}
		if _, dup := seen[e.Key]; dup {
			return invalid("duplicate key %q", e.Key)
		}
		seen[e.Key] = struct{}{}

		v, err := jsonval.Normalize(e.Value)
		if err != nil {
			return invalid("value of %q: %v", e.Key, err)
		}
		d.Entries[i].Value = v
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func invalid(format string, args ...any) error {
	return payload.NewError(payload.KindInvalidValueType, "", "export: "+format, args...)
}

// version accepts a string or a number
func version(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// timestamp accepts unix milliseconds or an RFC 3339 string
func timestamp(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, invalid("unsupported timestamp %q", s)
		}
		return t.UnixMilli(), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, invalid("unsupported timestamp %s", raw)
	}
	return int64(f), nil
}

// String implements fmt.Stringer
func (d *Document) String() string {
	return fmt.Sprintf("export(%s, v%s, %d entries)", d.Name, d.Version, len(d.Entries))
}
