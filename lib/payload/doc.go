// Package payload defines the request/response protocol shared by the store
// facade, the middleware pipeline and the providers.
//
// Every operation has its own payload struct (GetPayload, SetPayload, ...).
// A payload carries the operation's inputs and, once processed, its result in
// the Data field. All payloads embed Metadata, which holds the operation name
// (Method), the pipeline stage the payload is currently in (Trigger) and an
// optional Error. A payload whose Error is set short-circuits the pipeline.
//
// Payloads travel by pointer. Middleware and providers fill in the result
// fields of the payload they receive and return it, so a single payload value
// flows through the whole call:
//
//	p := payload.NewGet("user", path.Resolve("name"))
//	p = provider.Get(ctx, p)
//	if p.Error != nil {
//	    // handle p.Error
//	}
//	fmt.Println(p.Data, p.Loaded)
//
// Hook fields (predicates, update and map functions) are Go functions. They
// are excluded from the JSON encoding of a payload, so payloads that rely on
// hooks cannot be proposed to a replicated provider or sent to a remote one
// (see Hooked).
//
// Errors use a closed set of kinds (see ErrorKind). Sentinel errors such as
// ErrMissingData match any *Error of the same kind with errors.Is.
package payload
