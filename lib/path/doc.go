// Package path resolves textual paths into segments and reads and writes
// values addressed by those segments inside JSON-like values.
//
// A path string such as
//
//	profile.addresses[0].city
//
// resolves into the segments [profile addresses 0 city]. Dots separate
// segments and every bracket group forms its own segment, so "a[x][y]"
// resolves into [a x y]. Empty segments are dropped, hence "a..b" and ".a."
// resolve to [a b] and [a]. Resolve never fails; the empty string resolves to
// the empty path, which addresses the whole value.
//
// The store uses the first segment of a key path as the entry key and the
// rest as the path inside the entry value (see ParseKeyPath).
//
// Get, Has, Set and Delete operate on the value model of package jsonval:
// maps are map[string]any and arrays are []any. Array segments must be
// non-negative decimal integers.
//
// Set mutates containers in place and returns the (possibly new) root. It
// creates missing intermediate containers along the way:
//   - a missing intermediate becomes a map, unless the node is already an
//     array and the segment is an index, in which case the array is extended
//     with nil elements
//   - a scalar intermediate is replaced by a fresh map, its value is lost
//   - a non-index segment applied to an array converts the array into a map
//     keyed by the decimal indices of its elements
package path
