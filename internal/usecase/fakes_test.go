package usecase

import (
	"context"
	"sync"

	"tolk/internal/domain"
	"tolk/internal/ports"
)

type fakeDevice struct {
	mediaType string
	chunks    chan domain.Chunk
	stopErr   error
	faultErr  error
	// ackOnRelease makes Stop block until Release, simulating a device that
	// never acknowledges within the stop timeout.
	ackOnRelease bool

	mu       sync.Mutex
	stopped  bool
	released bool

	releaseCh chan struct{}
	closeOnce sync.Once
	relOnce   sync.Once
}

func newFakeDevice(chunks ...domain.Chunk) *fakeDevice {
	d := &fakeDevice{
		mediaType: "audio/L16;rate=16000;channels=1",
		chunks:    make(chan domain.Chunk, len(chunks)+8),
		releaseCh: make(chan struct{}),
	}
	for _, chunk := range chunks {
		d.chunks <- chunk
	}
	return d
}

func (d *fakeDevice) Chunks() <-chan domain.Chunk { return d.chunks }
func (d *fakeDevice) MediaType() string           { return d.mediaType }

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	d.stopped = true
	block := d.ackOnRelease
	d.mu.Unlock()

	if block {
		<-d.releaseCh
	}
	d.endStream()
	return d.stopErr
}

func (d *fakeDevice) Release() {
	d.mu.Lock()
	d.released = true
	d.mu.Unlock()
	d.relOnce.Do(func() { close(d.releaseCh) })
	d.endStream()
}

func (d *fakeDevice) Err() error { return d.faultErr }

func (d *fakeDevice) endStream() {
	d.closeOnce.Do(func() { close(d.chunks) })
}

func (d *fakeDevice) wasReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

type fakeAdapter struct {
	mu       sync.Mutex
	devices  []ports.CaptureDevice
	err      error
	acquired int
	taps     []ports.FrameTap
}

func (a *fakeAdapter) Acquire(_ context.Context, _ ports.CaptureProfile, tap ports.FrameTap) (ports.CaptureDevice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	if len(a.devices) == 0 {
		return nil, domain.ErrDeviceUnavailable
	}
	device := a.devices[0]
	a.devices = a.devices[1:]
	a.acquired++
	a.taps = append(a.taps, tap)
	return device, nil
}

func (a *fakeAdapter) acquireCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired
}

func (a *fakeAdapter) lastTap() ports.FrameTap {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.taps) == 0 {
		return nil
	}
	return a.taps[len(a.taps)-1]
}

// rendezvousAdapter holds every acquisition open until released, recording how
// many were ever in flight at once.
type rendezvousAdapter struct {
	proceed chan struct{}

	mu          sync.Mutex
	devices     []ports.CaptureDevice
	inFlight    int
	maxInFlight int
	acquired    int
}

func newRendezvousAdapter(devices ...ports.CaptureDevice) *rendezvousAdapter {
	return &rendezvousAdapter{proceed: make(chan struct{}), devices: devices}
}

func (a *rendezvousAdapter) Acquire(_ context.Context, _ ports.CaptureProfile, _ ports.FrameTap) (ports.CaptureDevice, error) {
	a.mu.Lock()
	a.inFlight++
	if a.inFlight > a.maxInFlight {
		a.maxInFlight = a.inFlight
	}
	a.mu.Unlock()

	<-a.proceed

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight--
	if len(a.devices) == 0 {
		return nil, domain.ErrDeviceUnavailable
	}
	device := a.devices[0]
	a.devices = a.devices[1:]
	a.acquired++
	return device, nil
}

func (a *rendezvousAdapter) release() { close(a.proceed) }

func (a *rendezvousAdapter) stats() (acquired, maxInFlight int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired, a.maxInFlight
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	frames  [][]byte
	level   int
	stopped int
}

func (a *fakeAnalyzer) Observe(frame []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = append(a.frames, append([]byte(nil), frame...))
}

func (a *fakeAnalyzer) Level() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.level
}

func (a *fakeAnalyzer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped++
	a.level = 0
}

func (a *fakeAnalyzer) stopCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

func (a *fakeAnalyzer) frameCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.frames)
}

type fakeAnalyzerFactory struct {
	mu        sync.Mutex
	analyzers []*fakeAnalyzer
}

func (f *fakeAnalyzerFactory) New() ports.Analyzer {
	f.mu.Lock()
	defer f.mu.Unlock()
	analyzer := &fakeAnalyzer{}
	f.analyzers = append(f.analyzers, analyzer)
	return analyzer
}

func (f *fakeAnalyzerFactory) last() *fakeAnalyzer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.analyzers) == 0 {
		return nil
	}
	return f.analyzers[len(f.analyzers)-1]
}

type stateChange struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errorEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu         sync.Mutex
	states     []stateChange
	errors     []errorEvent
	levels     []int
	utterances []domain.Utterance
}

func (s *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, stateChange{state: state, reason: reason})
}

func (s *fakeEventSink) EnergyLevel(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, level)
}

func (s *fakeEventSink) UtteranceReceived(u domain.Utterance, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utterances = append(s.utterances, u)
}

func (s *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, errorEvent{code: code, detail: detail})
}

func (s *fakeEventSink) snapshotStates() []stateChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stateChange(nil), s.states...)
}

func (s *fakeEventSink) snapshotErrors() []errorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]errorEvent(nil), s.errors...)
}
