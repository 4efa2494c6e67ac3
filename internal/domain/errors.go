package domain

import "errors"

// Protocol error kinds. Nothing here is fatal to the process: malformed
// events are dropped individually, the rest are returned to the immediate
// caller.
var (
	// ErrMalformedEvent marks a payload with a missing or mis-typed required
	// field. The single event is dropped; the stream continues.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrDuplicateRequest marks a fetch_data reusing an id that is still
	// pending. Caller logic error; the stream continues.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrUnknownRequest marks a delivery (or resolve) for an id never seen or
	// already resolved. Non-fatal; expected when a delivery races a disposal.
	ErrUnknownRequest = errors.New("unknown request")

	// ErrUnknownSession marks an operation against a disposed or never
	// created session id.
	ErrUnknownSession = errors.New("unknown session")
)
