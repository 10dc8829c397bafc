package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tolk/internal/config"
	"tolk/internal/domain"
	"tolk/internal/hub"
	"tolk/internal/ports"
	"tolk/internal/translate"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "tolkd",
	Short: "Tolk translation hub",
	Long:  `Tolk hub - relays translated utterances between the members of a room`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hub",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tolkd v%s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	engine, err := newEngine(cfg, log)
	if err != nil {
		log.Fatal("failed to build translation engine", zap.Error(err))
	}

	server := hub.NewServer(hub.New(log), engine, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Hub.ListenAddr)
	}()
	log.Info("hub listening", zap.String("addr", cfg.Hub.ListenAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("hub stopped", zap.Error(err))
		}
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}
}

// newEngine keeps the hub serving without an API key; submissions are refused
// with a configuration error until one is provided.
func newEngine(cfg config.Config, log *zap.Logger) (ports.TranslationEngine, error) {
	engine, err := translate.NewEngine(translate.EngineConfig{
		APIKey:             cfg.OpenAI.APIKey,
		APIBaseURL:         cfg.OpenAI.APIBaseURL,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		TranslationModel:   cfg.OpenAI.TranslationModel,
	})
	if errors.Is(err, translate.ErrNotConfigured) {
		log.Warn("no OpenAI API key configured, utterance submissions will be refused")
		return unconfiguredEngine{}, nil
	}
	if err != nil {
		return nil, err
	}
	return engine, nil
}

type unconfiguredEngine struct{}

func (unconfiguredEngine) Translate(_ context.Context, _ domain.Payload, _ string, _ string) (string, string, error) {
	return "", "", translate.ErrNotConfigured
}
