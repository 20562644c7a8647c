// Package pipeline runs middleware around provider calls.
//
// A Pipeline is built once from a list of registrations and is immutable
// afterwards. Every registration names a middleware, a position and the
// conditions under which it runs. A condition is a set of methods together
// with a trigger, the stage before (payload.TriggerPreProvider) or after
// (payload.TriggerPostProvider) the provider call.
//
// Executing a payload walks through these stages:
//
//	Idle -> RunPre -> Provider -> RunPost -> Done
//	          \          \          \
//	           `----------`----------`----> Errored
//
// Within a stage the selected middleware run in ascending position, ties are
// broken by registration order. Each middleware receives the payload returned
// by the previous one. As soon as a payload carries an error no further
// middleware runs and the provider is not called. A pre-provider middleware
// may mark the payload as fulfilled (Metadata.Fulfilled), in which case the
// provider call is skipped and the post-provider stage runs directly.
//
// Selection lists are computed in New for every method and trigger, so
// Execute does no sorting or filtering.
package pipeline
