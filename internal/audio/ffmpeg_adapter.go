package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"tolk/internal/domain"
	"tolk/internal/ports"
)

const (
	startupGrace = 250 * time.Millisecond
	stopAckWait  = 1200 * time.Millisecond
	readSize     = 4096
)

// FFMPEGAdapter acquires the microphone through an ffmpeg subprocess emitting
// raw s16le PCM. ffmpeg carries no acoustic echo canceller, so echo
// cancellation is requested from the platform capture stack instead; noise
// suppression maps to an ffmpeg audio filter.
type FFMPEGAdapter struct {
	command string
}

func NewFFMPEGAdapter(command string) *FFMPEGAdapter {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGAdapter{command: command}
}

func (a *FFMPEGAdapter) Acquire(ctx context.Context, profile ports.CaptureProfile, tap ports.FrameTap) (ports.CaptureDevice, error) {
	profile = normalizeProfile(profile)

	cmd := exec.CommandContext(ctx, a.command, captureArgs(profile)...)
	if extra := captureEnv(profile); len(extra) > 0 {
		cmd.Env = append(os.Environ(), extra...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create recorder stdout pipe: %v", domain.ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start recorder: %v", domain.ErrDeviceUnavailable, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// A recorder that exits within the grace window never acquired the
	// microphone; classify the failure from its stderr.
	select {
	case err := <-waitErr:
		return nil, classifyAcquireFailure(err, stderr.String())
	case <-time.After(startupGrace):
	}

	device := &ffmpegDevice{
		stdout:    stdout,
		stderr:    &stderr,
		process:   cmd.Process,
		waitErr:   waitErr,
		tap:       tap,
		mediaType: mediaTypeFor(profile),
		chunks:    make(chan domain.Chunk, 16),
		segments:  make(chan []byte, 16),
		readDone:  make(chan struct{}),
		chunkDone: make(chan struct{}),
	}

	go device.readLoop()
	go device.chunkLoop(profile.FlushInterval)

	return device, nil
}

func normalizeProfile(profile ports.CaptureProfile) ports.CaptureProfile {
	if profile.SampleRate <= 0 {
		profile.SampleRate = 16000
	}
	if profile.Channels <= 0 {
		profile.Channels = 1
	}
	if profile.InputFormat == "" {
		profile.InputFormat = "pulse"
	}
	if profile.InputDevice == "" {
		profile.InputDevice = "default"
	}
	if profile.FlushInterval <= 0 {
		profile.FlushInterval = time.Second
	}
	return profile
}

func captureArgs(profile ports.CaptureProfile) []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", profile.InputFormat,
		"-i", profile.InputDevice,
		"-ac", strconv.Itoa(profile.Channels),
		"-ar", strconv.Itoa(profile.SampleRate),
	}
	if profile.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	return append(args, "-f", "s16le", "-")
}

// captureEnv asks the platform for an echo-cancelled stream. On PulseAudio the
// filter.want stream property routes the capture through module-echo-cancel.
func captureEnv(profile ports.CaptureProfile) []string {
	if profile.EchoCancellation && profile.InputFormat == "pulse" {
		return []string{"PULSE_PROP=filter.want=echo-cancel"}
	}
	return nil
}

func mediaTypeFor(profile ports.CaptureProfile) string {
	return fmt.Sprintf("audio/L16;rate=%d;channels=%d", profile.SampleRate, profile.Channels)
}

func classifyAcquireFailure(waitErr error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" && waitErr != nil {
		detail = waitErr.Error()
	}
	if detail == "" {
		detail = "recorder exited before capture started"
	}

	lowered := strings.ToLower(detail)
	if strings.Contains(lowered, "permission denied") || strings.Contains(lowered, "access denied") {
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, detail)
	}
	return fmt.Errorf("%w: %s", domain.ErrDeviceUnavailable, detail)
}

type ffmpegDevice struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	tap       ports.FrameTap
	mediaType string
	chunks    chan domain.Chunk
	segments  chan []byte
	readDone  chan struct{}
	chunkDone chan struct{}

	errMu   sync.Mutex
	readErr error

	stopOnce    sync.Once
	stopErr     error
	releaseOnce sync.Once
}

func (d *ffmpegDevice) Chunks() <-chan domain.Chunk { return d.chunks }
func (d *ffmpegDevice) MediaType() string           { return d.mediaType }

// readLoop pulls raw PCM from the recorder into segments. Each read is handed
// to the tap before flushing so level metering moves at read cadence. It owns
// the segments channel.
func (d *ffmpegDevice) readLoop() {
	defer close(d.segments)
	defer close(d.readDone)

	buf := make([]byte, readSize)
	for {
		n, err := d.stdout.Read(buf)
		if n > 0 {
			segment := append([]byte(nil), buf[:n]...)
			if d.tap != nil {
				d.tap(segment)
			}
			select {
			case d.segments <- segment:
			case <-d.chunkDone:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				d.setReadErr(err)
			}
			return
		}
	}
}

// chunkLoop slices the segment stream into chunks on the flush cadence. The
// periodic flush is what guarantees data keeps arriving even on platforms
// that buffer until explicitly asked. It owns the chunks channel.
func (d *ffmpegDevice) chunkLoop(flushInterval time.Duration) {
	defer close(d.chunks)
	defer close(d.chunkDone)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var pending []byte
	flush := func() {
		if len(pending) == 0 {
			return
		}
		d.chunks <- domain.Chunk{Data: pending, MediaType: d.mediaType}
		pending = nil
	}

	for {
		select {
		case segment, ok := <-d.segments:
			if !ok {
				flush()
				return
			}
			pending = append(pending, segment...)
		case <-ticker.C:
			flush()
		}
	}
}

// Stop signals the recorder and waits a bounded time for it to exit. The
// chunk stream is fully closed by the time Stop returns successfully.
func (d *ffmpegDevice) Stop() error {
	d.stopOnce.Do(func() {
		if d.process != nil {
			_ = d.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-d.waitErr:
			if ok {
				d.stopErr = normalizeStopErr(err)
			}
		case <-time.After(stopAckWait):
			if d.process != nil {
				_ = d.process.Kill()
			}
			err, ok := <-d.waitErr
			if ok {
				d.stopErr = normalizeStopErr(err)
			}
		}

		_ = d.stdout.Close()
		<-d.chunkDone

		if d.stopErr != nil && d.stderr.Len() > 0 {
			d.stopErr = fmt.Errorf("%w: %s", d.stopErr, strings.TrimSpace(d.stderr.String()))
		}
	})

	return d.stopErr
}

// Release tears the hardware down without waiting for a clean exit, so the
// microphone indicator goes dark even when the recorder is wedged.
func (d *ffmpegDevice) Release() {
	d.releaseOnce.Do(func() {
		if d.process != nil {
			_ = d.process.Kill()
		}
		_ = d.stdout.Close()
		<-d.readDone
		<-d.chunkDone
	})
}

func (d *ffmpegDevice) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.readErr
}

func (d *ffmpegDevice) setReadErr(err error) {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	if d.readErr == nil {
		d.readErr = err
	}
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
