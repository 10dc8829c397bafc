package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FFPlayPlayer plays synthesized audio through an ffplay subprocess. Canceling
// the context kills the process, which is how an in-flight utterance is cut
// off when a newer one arrives.
type FFPlayPlayer struct {
	command string
}

func NewFFPlayPlayer(command string) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayPlayer{command: command}
}

func (p *FFPlayPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, p.command, "-nodisp", "-autoexit", "-loglevel", "error", "-")
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("playback failed: %w: %s", err, detail)
		}
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}
