// Package util provides small utility components shared by the store, its
// providers and its middleware.
//
// The package contains:
//   - mapheap: A priority queue that also supports key-based access. The cache
//     middleware uses it to find the oldest entry on overflow.
//   - functions: Seed generation and string hashing
//
// None of the types in this package are thread-safe. Callers apply their own
// synchronization.
package util
