package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tolk/internal/domain"
)

type blockingSynth struct {
	mu      sync.Mutex
	started []context.Context
	release chan struct{}
	err     error
}

func newBlockingSynth() *blockingSynth {
	return &blockingSynth{release: make(chan struct{})}
}

func (s *blockingSynth) Synthesize(ctx context.Context, _ string, _ string) ([]byte, error) {
	s.mu.Lock()
	s.started = append(s.started, ctx)
	s.mu.Unlock()

	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return []byte("audio"), nil
}

func (s *blockingSynth) contexts() []context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]context.Context(nil), s.started...)
}

type recordingPlayer struct {
	mu     sync.Mutex
	played [][]byte
	err    error
}

func (p *recordingPlayer) Play(_ context.Context, audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, append([]byte(nil), audio...))
	return nil
}

func (p *recordingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type errorSink struct {
	mu     sync.Mutex
	errors []domain.ErrorCode
}

func (s *errorSink) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (s *errorSink) EnergyLevel(int)                                                   {}
func (s *errorSink) UtteranceReceived(domain.Utterance, bool)                          {}

func (s *errorSink) SessionError(code domain.ErrorCode, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, code)
}

func (s *errorSink) codes() []domain.ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ErrorCode(nil), s.errors...)
}

func TestSpeakerPlaysSynthesizedAudio(t *testing.T) {
	t.Parallel()

	synth := newBlockingSynth()
	player := &recordingPlayer{}
	speaker := NewSpeaker(synth, player, &errorSink{})

	speaker.Speak("Xin chào", "vi")
	close(synth.release)

	deadline := time.After(time.Second)
	for player.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected playback to run")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSpeakerNewUtteranceCancelsInFlight(t *testing.T) {
	t.Parallel()

	synth := newBlockingSynth()
	speaker := NewSpeaker(synth, &recordingPlayer{}, &errorSink{})

	speaker.Speak("first", "vi")

	deadline := time.After(time.Second)
	for len(synth.contexts()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("first synthesis never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	speaker.Speak("second", "vi")
	defer speaker.Stop()

	first := synth.contexts()[0]
	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected the first playback to be canceled")
	}
}

func TestSpeakerStopCancelsPlayback(t *testing.T) {
	t.Parallel()

	synth := newBlockingSynth()
	speaker := NewSpeaker(synth, &recordingPlayer{}, &errorSink{})

	speaker.Speak("text", "vi")
	deadline := time.After(time.Second)
	for len(synth.contexts()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("synthesis never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	speaker.Stop()
	select {
	case <-synth.contexts()[0].Done():
	case <-time.After(time.Second):
		t.Fatalf("expected stop to cancel playback")
	}
}

func TestSpeakerReportsSynthesisErrors(t *testing.T) {
	t.Parallel()

	synth := newBlockingSynth()
	synth.err = errors.New("voice service down")
	sink := &errorSink{}
	speaker := NewSpeaker(synth, &recordingPlayer{}, sink)

	speaker.Speak("text", "vi")
	close(synth.release)

	deadline := time.After(time.Second)
	for len(sink.codes()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected a playback error event")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if sink.codes()[0] != domain.ErrorCodePlayback {
		t.Fatalf("unexpected error code: %s", sink.codes()[0])
	}
}

func TestSpeakerIgnoresEmptyText(t *testing.T) {
	t.Parallel()

	synth := newBlockingSynth()
	speaker := NewSpeaker(synth, &recordingPlayer{}, &errorSink{})

	speaker.Speak("", "vi")
	time.Sleep(20 * time.Millisecond)
	if len(synth.contexts()) != 0 {
		t.Fatalf("expected no synthesis for empty text")
	}
}
