// Package store provides the typed facade over a provider and its middleware
// pipeline.
//
// A Store is created from Options naming the store, the provider and the
// middleware registrations:
//
//	s, err := store.New(ctx, store.Options{
//	    Name:     "users",
//	    Provider: memory.New(),
//	    Middleware: []pipeline.Registration{
//	        pipeline.Use(cacheMiddleware, 0),
//	    },
//	})
//
// Every method takes a key path. The first segment is the key, the rest
// addresses a value inside the stored value ("user.address.city",
// "list[0]"). The facade builds the payload for the operation, runs it
// through the pipeline (pre-provider middleware, provider, post-provider
// middleware) and returns the payload's Data, or the payload's error as a
// *payload.Error. Use errors.Is with the payload sentinels to match kinds:
//
//	if _, err := s.Inc(ctx, "visits"); errors.Is(err, payload.ErrMissingData) {
//	    ...
//	}
//
// Every call is timed per method in a go-metrics registry (see
// Options.Registry), failed calls are counted in an error meter.
//
// Export and Import move the whole content of a store in the format of the
// export package.
package store
