// Package testing provides a conformance test suite and benchmarks for
// implementations of the provider.Provider interface.
//
// The suite checks the full operation contract: point reads and writes with
// paths, the numeric and array mutations with their error kinds, collection
// queries, random sampling, bulk operations, insertion order and the autoKey
// counter. Every provider in this repository runs it:
//
//	func TestMemoryProvider(t *testing.T) {
//	    provtesting.RunProviderTests(t, "Memory", func() provider.Provider {
//	        return memory.New()
//	    })
//	}
//
// The factory must return a fresh, empty and uninitialized provider on every
// call; the suite initializes and closes it.
package testing
