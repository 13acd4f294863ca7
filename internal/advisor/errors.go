package advisor

import "errors"

// Collaborator error classes. The engine never retries these itself; a
// failed lookup is skipped (resync) or aborts the cycle (scheduler), and the
// next sweep starts from scratch.
var (
	// ErrUnavailable indicates a transport-level or HTTP-status failure
	// from a collaborator service.
	ErrUnavailable = errors.New("advisor: collaborator unavailable")

	// ErrMalformedResponse indicates the collaborator answered with an
	// unexpected shape.
	ErrMalformedResponse = errors.New("advisor: malformed response")
)
