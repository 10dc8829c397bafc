package translate

import "errors"

var (
	// ErrNotConfigured means the capability is unreachable or misconfigured.
	ErrNotConfigured = errors.New("translation capability is not configured")
	// ErrNoAudio means the caller submitted no audio payload.
	ErrNoAudio = errors.New("no audio payload to submit")
	// ErrUpstream means the capability call failed or returned unparsable
	// content. Not retried here; the user may simply retry the recording.
	ErrUpstream = errors.New("translation capability call failed")
)
