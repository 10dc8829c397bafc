package energy

import (
	"sync"
	"time"

	"tolk/internal/ports"
)

// Fixed analysis parameters tuned for speech input.
const (
	// DefaultCadence approximates one animation frame.
	DefaultCadence = 50 * time.Millisecond
	// DefaultBins is the fixed-size sample taken from the latest frame.
	DefaultBins = 32
	// DefaultSensitivity rescales mean 16-bit magnitude into 0-100.
	DefaultSensitivity = 80.0
)

// Meter derives a smoothed 0-100 loudness reading from live PCM frames. It is
// bound to one recording session: Observe feeds it frames, a tick loop
// recomputes the reading on a fixed cadence, and Stop tears the loop down.
type Meter struct {
	cadence     time.Duration
	bins        int
	sensitivity float64
	sink        ports.EventSink

	mu     sync.Mutex
	frame  []byte
	level  int
	closed bool

	stopOnce sync.Once
	done     chan struct{}
	loopDone chan struct{}
}

func newMeter(cadence time.Duration, bins int, sensitivity float64, sink ports.EventSink) *Meter {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	if sensitivity <= 0 {
		sensitivity = DefaultSensitivity
	}
	m := &Meter{
		cadence:     cadence,
		bins:        bins,
		sensitivity: sensitivity,
		sink:        sink,
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	go m.tickLoop()
	return m
}

// Observe records the latest captured frame. Only the most recent frame
// contributes to the next reading.
func (m *Meter) Observe(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.frame = append(m.frame[:0], frame...)
}

// Level returns the latest reading in [0,100].
func (m *Meter) Level() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Stop halts the tick loop and resets the reading to 0. Idempotent; no tick
// fires after Stop returns.
func (m *Meter) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.level = 0
		m.frame = nil
		m.mu.Unlock()

		close(m.done)
		<-m.loopDone

		if m.sink != nil {
			m.sink.EnergyLevel(0)
		}
	})
}

func (m *Meter) tickLoop() {
	defer close(m.loopDone)

	ticker := time.NewTicker(m.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			// Liveness check each iteration: once the session is gone,
			// stop scheduling further ticks instead of leaking a timer.
			level, ok := m.compute()
			if !ok {
				return
			}
			if m.sink != nil {
				m.sink.EnergyLevel(level)
			}
		}
	}
}

func (m *Meter) compute() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, false
	}
	m.level = levelOf(m.frame, m.bins, m.sensitivity)
	return m.level, true
}

// levelOf takes a fixed-size sample of 16-bit magnitudes spread across the
// frame, averages them, and rescales by the sensitivity divisor.
func levelOf(frame []byte, bins int, sensitivity float64) int {
	samples := len(frame) / 2
	if samples == 0 {
		return 0
	}
	if bins > samples {
		bins = samples
	}

	step := samples / bins
	if step == 0 {
		step = 1
	}

	var sum float64
	for i := 0; i < bins; i++ {
		offset := i * step * 2
		sample := int16(uint16(frame[offset]) | uint16(frame[offset+1])<<8)
		if sample < 0 {
			sum += float64(-int32(sample))
		} else {
			sum += float64(sample)
		}
	}

	level := int(sum / float64(bins) / sensitivity)
	if level > 100 {
		level = 100
	}
	if level < 0 {
		level = 0
	}
	return level
}

// Factory builds one meter per recording session, publishing readings to the
// shared event sink.
type Factory struct {
	Cadence     time.Duration
	Bins        int
	Sensitivity float64
	Sink        ports.EventSink
}

func (f *Factory) New() ports.Analyzer {
	return newMeter(f.Cadence, f.Bins, f.Sensitivity, f.Sink)
}
