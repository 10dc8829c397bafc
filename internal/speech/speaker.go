package speech

import (
	"context"
	"sync"

	"tolk/internal/domain"
	"tolk/internal/ports"
)

// Synthesizer turns text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, languageTag string) ([]byte, error)
}

// Player plays synthesized audio until done or the context is canceled.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Speaker is the playback boundary: Speak is fire-and-forget and starting a
// new utterance cancels whatever is still playing, so at most one utterance
// is audible at a time.
type Speaker struct {
	synth  Synthesizer
	player Player
	events ports.EventSink

	mu      sync.Mutex
	current *playback
}

type playback struct {
	cancel context.CancelFunc
}

func NewSpeaker(synth Synthesizer, player Player, events ports.EventSink) *Speaker {
	return &Speaker{synth: synth, player: player, events: events}
}

func (s *Speaker) Speak(text string, languageTag string) {
	if text == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	next := &playback{cancel: cancel}

	s.mu.Lock()
	if s.current != nil {
		s.current.cancel()
	}
	s.current = next
	s.mu.Unlock()

	go func() {
		defer s.finish(next)

		audio, err := s.synth.Synthesize(ctx, text, languageTag)
		if err != nil {
			s.report(ctx, err)
			return
		}
		if err := s.player.Play(ctx, audio); err != nil {
			s.report(ctx, err)
		}
	}()
}

// Stop cancels any in-flight playback.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
}

func (s *Speaker) finish(p *playback) {
	p.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	// A newer utterance may already have taken the slot.
	if s.current == p {
		s.current = nil
	}
}

func (s *Speaker) report(ctx context.Context, err error) {
	// Cancellation is the expected outcome of being superseded.
	if ctx.Err() != nil || s.events == nil {
		return
	}
	s.events.SessionError(domain.ErrorCodePlayback, err.Error())
}
