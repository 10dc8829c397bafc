package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"tolk/internal/domain"
	"tolk/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrSessionActive   = errors.New("a recording session is already active")
	ErrStopTimeout     = errors.New("device did not acknowledge stop in time")
)

// Config controls recording session behavior.
type Config struct {
	Profile ports.CaptureProfile
	// StopAckTimeout bounds the wait for the device's stop acknowledgment.
	// Exceeding it finalizes unilaterally with whatever chunks are buffered.
	StopAckTimeout time.Duration
}

// RecordingController drives a capture session through
// acquire, record, finalize and release. At most one session may be
// recording at a time; a finished session leaves the controller ready to
// accept the next start.
type RecordingController struct {
	adapter   ports.DeviceAdapter
	analyzers ports.AnalyzerFactory
	events    ports.EventSink
	cfg       Config

	mu      sync.Mutex
	state   domain.SessionState
	current *activeSession
}

func NewRecordingController(
	adapter ports.DeviceAdapter,
	analyzers ports.AnalyzerFactory,
	events ports.EventSink,
	cfg Config,
) *RecordingController {
	if cfg.StopAckTimeout <= 0 {
		cfg.StopAckTimeout = 2 * time.Second
	}
	if cfg.Profile.FlushInterval <= 0 {
		cfg.Profile.FlushInterval = time.Second
	}
	return &RecordingController{
		adapter:   adapter,
		analyzers: analyzers,
		events:    events,
		cfg:       cfg,
		state:     domain.SessionStateIdle,
	}
}

// Start acquires the microphone and begins chunk capture. A start while a
// session is anywhere between acquiring and finalizing is rejected; it never
// results in a second device acquisition.
func (c *RecordingController) Start(ctx context.Context) error {
	// Claiming the acquiring state inside the critical section is what keeps
	// two racing starts, or a start issued mid-stop, from both reaching the
	// adapter.
	c.mu.Lock()
	if c.state != domain.SessionStateIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.state = domain.SessionStateAcquiring
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateAcquiring, domain.SessionReasonAcquiringDevice)

	// The analyzer taps the device's raw frame stream so the reading moves at
	// read cadence, not at the flush interval.
	analyzer := c.analyzers.New()
	device, err := c.adapter.Acquire(ctx, c.cfg.Profile, analyzer.Observe)
	if err != nil {
		analyzer.Stop()
		c.mu.Lock()
		c.state = domain.SessionStateIdle
		c.mu.Unlock()
		c.events.SessionError(classifyAcquireError(err), err.Error())
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonAcquireFailed)
		return err
	}

	active := &activeSession{
		device:      device,
		analyzer:    analyzer,
		collectDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.current = active
	c.state = domain.SessionStateRecording
	c.mu.Unlock()

	go c.collectChunks(active)

	c.events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
	return nil
}

// Stop finalizes the active session and returns its payload. A session that
// captured no non-empty chunks yields an empty payload and a nil error.
func (c *RecordingController) Stop(ctx context.Context) (domain.Payload, error) {
	active, err := c.takeCurrent()
	if err != nil {
		return domain.Payload{}, err
	}

	c.setState(domain.SessionStateFinalizing)
	c.events.SessionStateChanged(domain.SessionStateFinalizing, domain.SessionReasonFinalizing)

	if err := c.stopDevice(active.device); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, err.Error())
	}

	// The analyzer is torn down independently of the stop acknowledgment
	// outcome; a wedged device must not leak the meter's tick loop.
	active.analyzer.Stop()

	active.device.Release()
	<-active.collectDone

	if streamErr := active.device.Err(); streamErr != nil {
		c.events.SessionError(domain.ErrorCodeAudioStream, streamErr.Error())
	}

	payload := active.payload()
	c.finishSession(payloadReason(payload))
	return payload, nil
}

// Abort discards the active session without producing a payload.
func (c *RecordingController) Abort() error {
	active, err := c.takeCurrent()
	if err != nil {
		return err
	}

	if err := c.stopDevice(active.device); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, err.Error())
	}
	active.analyzer.Stop()
	active.device.Release()
	<-active.collectDone

	c.finishSession(domain.SessionReasonRecordingDiscarded)
	return nil
}

// Status returns the current session status.
func (c *RecordingController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:  c.state,
		Active: c.state == domain.SessionStateRecording || c.state == domain.SessionStateFinalizing,
	}
}

// Level returns the latest energy reading, or 0 when no session is active.
func (c *RecordingController) Level() int {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()
	if active == nil {
		return 0
	}
	return active.analyzer.Level()
}

func (c *RecordingController) collectChunks(active *activeSession) {
	defer close(active.collectDone)

	for chunk := range active.device.Chunks() {
		if len(chunk.Data) == 0 {
			continue
		}
		active.append(chunk)
	}

	// The stream closing while we still believe we are recording is a
	// mid-capture device fault: abort to finalizing with what is buffered
	// instead of losing the session.
	if err := active.device.Err(); err != nil {
		c.mu.Lock()
		faulted := c.current == active && c.state == domain.SessionStateRecording
		if faulted {
			c.state = domain.SessionStateFinalizing
		}
		c.mu.Unlock()
		if faulted {
			c.events.SessionError(domain.ErrorCodeAudioStream, err.Error())
			c.events.SessionStateChanged(domain.SessionStateFinalizing, domain.SessionReasonDeviceFault)
		}
	}
}

// stopDevice waits for the device's stop acknowledgment up to the configured
// timeout. A missed acknowledgment must never hang the session.
func (c *RecordingController) stopDevice(device ports.CaptureDevice) error {
	done := make(chan error, 1)
	go func() {
		done <- device.Stop()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(c.cfg.StopAckTimeout):
		return ErrStopTimeout
	}
}

func (c *RecordingController) takeCurrent() (*activeSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	active := c.current
	c.current = nil
	return active, nil
}

func (c *RecordingController) setState(state domain.SessionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// finishSession releases the slot so a new start is always accepted after
// release.
func (c *RecordingController) finishSession(reason domain.SessionStateReason) {
	c.mu.Lock()
	c.state = domain.SessionStateIdle
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateReleased, reason)
}

func payloadReason(payload domain.Payload) domain.SessionStateReason {
	if payload.Empty() {
		return domain.SessionReasonEmptyCapture
	}
	return domain.SessionReasonPayloadReady
}

func classifyAcquireError(err error) domain.ErrorCode {
	if errors.Is(err, domain.ErrPermissionDenied) {
		return domain.ErrorCodePermissionDenied
	}
	return domain.ErrorCodeDeviceUnavailable
}
