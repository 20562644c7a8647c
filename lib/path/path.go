package path

import (
	"strconv"
	"strings"
)

// Path is an ordered list of segments. A nil or empty Path addresses the whole value.
type Path []string

// Resolve splits a path string into its segments
func Resolve(s string) Path {
	p := Path{}
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			p = append(p, buf.String())
			buf.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '.':
			flush()
		case '[':
			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				// unterminated group, keep it literally
				buf.WriteString(s[i:])
				i = len(s)
				continue
			}
			flush()
			if tok := s[i+1 : i+1+end]; tok != "" {
				p = append(p, tok)
			}
			i += end + 1
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return p
}

// ParseKeyPath splits a key path into the entry key (the first segment) and
// the path inside the entry value
func ParseKeyPath(s string) (key string, p Path) {
	segments := Resolve(s)
	if len(segments) == 0 {
		return "", nil
	}
	return segments[0], segments[1:]
}

// String joins the segments with dots. Index segments are written in brackets.
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		if _, ok := index(seg); ok {
			sb.WriteString("[" + seg + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}
	return sb.String()
}

// IsEmpty reports whether p addresses the whole value
func (p Path) IsEmpty() bool { return len(p) == 0 }

// --------------------------------------------------------------------------
// Value access
// --------------------------------------------------------------------------

// Get returns the value at p. The second return value is false if any
// segment along the way does not exist.
func Get(root any, p Path) (any, bool) {
	cur := root
	for _, seg := range p {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, ok := index(seg)
			if !ok || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether a value exists at p
func Has(root any, p Path) bool {
	_, ok := Get(root, p)
	return ok
}

// MaxArrayGap is the number of nil elements Set pads an array with before
// the index. An index further past the end converts the array to a map.
const MaxArrayGap = 1024

// Set writes v at p and returns the new root
func Set(root any, p Path, v any) any {
	if len(p) == 0 {
		return v
	}

	seg := p[0]
	switch node := root.(type) {
	case map[string]any:
		node[seg] = Set(node[seg], p[1:], v)
		return node
	case []any:
		i, ok := index(seg)
		if !ok || i-len(node) > MaxArrayGap {
			m := toMap(node)
			m[seg] = Set(m[seg], p[1:], v)
			return m
		}
		for len(node) <= i {
			node = append(node, nil)
		}
		node[i] = Set(node[i], p[1:], v)
		return node
	default:
		return map[string]any{seg: Set(nil, p[1:], v)}
	}
}

// Delete removes the value at p and returns the new root. The second return
// value is false if nothing was removed. Deleting an array element shifts the
// following elements down.
func Delete(root any, p Path) (any, bool) {
	if len(p) == 0 {
		return root, false
	}

	parent, ok := Get(root, p[:len(p)-1])
	if !ok {
		return root, false
	}

	last := p[len(p)-1]
	switch node := parent.(type) {
	case map[string]any:
		if _, exists := node[last]; !exists {
			return root, false
		}
		delete(node, last)
		return root, true
	case []any:
		i, ok := index(last)
		if !ok || i >= len(node) {
			return root, false
		}
		spliced := append(node[:i:i], node[i+1:]...)
		if len(p) == 1 {
			return spliced, true
		}
		return Set(root, p[:len(p)-1], spliced), true
	}
	return root, false
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// index parses an array index segment
func index(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}

// toMap converts an array into a map keyed by element index
func toMap(a []any) map[string]any {
	m := make(map[string]any, len(a)+1)
	for i, e := range a {
		m[strconv.Itoa(i)] = e
	}
	return m
}
