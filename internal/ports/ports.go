package ports

import (
	"context"
	"time"

	"tolk/internal/domain"
)

// CaptureProfile describes how the microphone should be captured.
// The profile is fixed for the lifetime of one acquisition.
type CaptureProfile struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	InputFormat      string
	InputDevice      string
	// FlushInterval forces the device to emit a chunk on this cadence even if
	// the platform would otherwise buffer indefinitely.
	FlushInterval time.Duration
}

// CaptureDevice is an acquired microphone handle. The chunk stream closes when
// the device stops, is released, or fails mid-capture.
type CaptureDevice interface {
	// Chunks delivers captured audio in emission order. Consumers must drain
	// it until close.
	Chunks() <-chan domain.Chunk
	MediaType() string
	// Stop signals capture shutdown and waits a bounded time for the device
	// to acknowledge. A missed acknowledgment returns an error; it never
	// blocks forever.
	Stop() error
	// Release tears down the hardware handle. Idempotent, safe after Stop,
	// and forces the chunk stream closed if it is still open.
	Release()
	// Err reports a mid-capture device fault, if any, once Chunks is closed.
	Err() error
}

// FrameTap receives raw frames as the device reads them, ahead of chunk
// flushing. Taps must not block; the device calls them on its read loop.
type FrameTap func(frame []byte)

// DeviceAdapter wraps platform microphone access.
type DeviceAdapter interface {
	// Acquire requests exclusive access to the microphone. The tap, when
	// non-nil, sees every raw frame at read cadence so level metering tracks
	// the input faster than the flush interval. Failures are classified as
	// domain.ErrPermissionDenied or domain.ErrDeviceUnavailable.
	Acquire(ctx context.Context, profile CaptureProfile, tap FrameTap) (CaptureDevice, error)
}

// Analyzer derives a 0-100 loudness reading from live audio frames.
type Analyzer interface {
	// Observe feeds the latest captured frame into the analyzer.
	Observe(frame []byte)
	// Level returns the most recent reading. Only the latest value is
	// observable.
	Level() int
	// Stop halts the tick loop and resets the reading to 0. Idempotent and
	// safe even if analysis never started.
	Stop()
}

// AnalyzerFactory creates one analyzer per recording session.
type AnalyzerFactory interface {
	New() Analyzer
}

// Subscription is a live binding from a room to its utterance stream.
type Subscription interface {
	Room() string
	// Close releases the underlying connection. Idempotent.
	Close() error
}

// Channel is the per-room publish/subscribe client boundary.
type Channel interface {
	// Subscribe opens exactly one live binding per room. Subscribing to an
	// already-bound room returns the existing subscription.
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
}

// TranslationClient submits a finalized payload to the transcription and
// translation capability. Room-mode callers never apply the response locally;
// the result reaches them through the channel echo.
type TranslationClient interface {
	Submit(ctx context.Context, payload domain.Payload, sourceLang, targetLang, roomID string) error
}

// TranslationEngine is the capability itself, as seen by the hub.
type TranslationEngine interface {
	Translate(ctx context.Context, payload domain.Payload, sourceLang, targetLang string) (original string, translated string, err error)
}

// Speaker plays an utterance aloud. Fire-and-forget; starting a new utterance
// cancels any in-flight playback.
type Speaker interface {
	Speak(text string, languageTag string)
}

// EventSink surfaces backend state and events to the surrounding UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	EnergyLevel(level int)
	UtteranceReceived(u domain.Utterance, played bool)
	SessionError(code domain.ErrorCode, detail string)
}
