package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tolk/internal/bootstrap"
	"tolk/internal/domain"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "tolk",
	Short: "Tolk voice translation client",
	Long:  `Tolk client - push-to-talk voice translation inside a shared room`,
}

var joinCmd = &cobra.Command{
	Use:   "join [room-id]",
	Short: "Join a room and start a push-to-talk session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		joinRoom(args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tolk v%s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func joinRoom(roomID string) {
	_ = godotenv.Load()

	sink := &terminalSink{language: ""}
	services, err := bootstrap.Build(sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	cfg := services.Config
	sink.language = cfg.Client.Language

	targetLang := cfg.Client.TargetLanguage
	if targetLang == "" {
		fmt.Fprintln(os.Stderr, "TOLK_TARGET_LANGUAGE is not set")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sub, err := services.Rooms.Subscribe(ctx, roomID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to join room %q: %v\n", roomID, err)
		os.Exit(1)
	}
	defer sub.Close()

	fmt.Printf("joined room %s as %s -> %s\n", roomID, cfg.Client.Language, targetLang)
	fmt.Println("press Enter to start recording, Enter again to send, type q to quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	recording := false
	for {
		select {
		case <-ctx.Done():
			if recording {
				_ = services.Controller.Abort()
			}
			fmt.Println("\nleaving room")
			return
		case line, ok := <-lines:
			if !ok || line == "q" || line == "quit" {
				if recording {
					_ = services.Controller.Abort()
				}
				fmt.Println("leaving room")
				return
			}
			if !recording {
				if err := services.Controller.Start(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
					continue
				}
				recording = true
				continue
			}
			recording = false
			payload, err := services.Controller.Stop(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "stop failed: %v\n", err)
				continue
			}
			if payload.Empty() {
				fmt.Println("nothing captured")
				continue
			}
			if err := services.Translator.Submit(ctx, payload, cfg.Client.Language, targetLang, roomID); err != nil {
				fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
			}
		}
	}
}

// terminalSink renders session state and room traffic on the terminal. The
// speaker's own utterance is printed when its room echo arrives, so the
// transcript the speaker sees is the one everyone received.
type terminalSink struct {
	language string
}

func (s *terminalSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	switch state {
	case domain.SessionStateRecording:
		fmt.Println("recording... press Enter to send")
	case domain.SessionStateReleased:
		if reason == domain.SessionReasonEmptyCapture {
			fmt.Println("mic idle (nothing captured)")
		}
	}
}

func (s *terminalSink) EnergyLevel(_ int) {}

func (s *terminalSink) UtteranceReceived(u domain.Utterance, played bool) {
	marker := ""
	if u.SourceLanguage == s.language {
		marker = " (you)"
	} else if played {
		marker = " *"
	}
	fmt.Printf("[%s]%s %s\n  -> %s\n", u.SourceLanguage, marker, u.OriginalText, u.TranslatedText)
}

func (s *terminalSink) SessionError(code domain.ErrorCode, detail string) {
	fmt.Fprintf(os.Stderr, "error (%s): %s\n", code, detail)
}
