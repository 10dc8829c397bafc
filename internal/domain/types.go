package domain

import (
	"errors"
	"time"
)

// SessionState models the recording session lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateAcquiring  SessionState = "acquiring"
	SessionStateRecording  SessionState = "recording"
	SessionStateFinalizing SessionState = "finalizing"
	SessionStateReleased   SessionState = "released"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonMicIdle            SessionStateReason = "mic_idle"
	SessionReasonAcquiringDevice    SessionStateReason = "acquiring_device"
	SessionReasonAcquireFailed      SessionStateReason = "acquire_failed"
	SessionReasonRecordingStarted   SessionStateReason = "recording_started"
	SessionReasonFinalizing         SessionStateReason = "finalizing"
	SessionReasonDeviceFault        SessionStateReason = "device_fault"
	SessionReasonEmptyCapture       SessionStateReason = "empty_capture"
	SessionReasonPayloadReady       SessionStateReason = "payload_ready"
	SessionReasonRecordingDiscarded SessionStateReason = "recording_discarded"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodePermissionDenied  ErrorCode = "permission_denied"
	ErrorCodeDeviceUnavailable ErrorCode = "device_unavailable"
	ErrorCodeAudioStop         ErrorCode = "audio_stop"
	ErrorCodeAudioStream       ErrorCode = "audio_stream"
	ErrorCodeUpstream          ErrorCode = "upstream"
	ErrorCodeConfiguration     ErrorCode = "configuration"
	ErrorCodeChannel           ErrorCode = "channel"
	ErrorCodePlayback          ErrorCode = "playback"
)

// Classified microphone acquisition failures. Anything else a device adapter
// reports is wrapped in one of these two.
var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// Chunk is one unit of captured audio emitted periodically during recording.
// Chunks of a session are ordered by capture time and never reordered.
type Chunk struct {
	Data      []byte
	MediaType string
}

// Payload is the finalized concatenation of a session's non-empty chunks.
// Immutable once produced; consumed exactly once by the translation client.
type Payload struct {
	Data      []byte
	MediaType string
}

// Empty reports whether the session captured no audio at all. An empty
// payload is a valid "nothing to send" result, not an error.
func (p Payload) Empty() bool {
	return len(p.Data) == 0
}

// Utterance is one finalized transcribed-and-translated conversational turn.
// Identity is ID; a room transcript never holds the same ID twice.
type Utterance struct {
	ID             string    `json:"id"`
	SourceLanguage string    `json:"sourceLanguage"`
	OriginalText   string    `json:"originalText"`
	TranslatedText string    `json:"translatedText"`
	ProducedAt     time.Time `json:"producedAt"`
}

// Status summarizes the current session status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
}
