package translate

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"tolk/internal/domain"
)

// EngineConfig controls the OpenAI-backed capability.
type EngineConfig struct {
	APIKey             string
	APIBaseURL         string
	TranscriptionModel string
	TranslationModel   string
}

// Engine implements ports.TranslationEngine on the OpenAI API: audio is
// transcribed with Whisper, then the transcript is translated with a chat
// completion.
type Engine struct {
	client *openai.Client
	cfg    EngineConfig
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", ErrNotConfigured)
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = openai.Whisper1
	}
	if cfg.TranslationModel == "" {
		cfg.TranslationModel = openai.GPT4oMini
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBaseURL != "" {
		clientCfg.BaseURL = cfg.APIBaseURL
	}

	return &Engine{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

func (e *Engine) Translate(ctx context.Context, payload domain.Payload, sourceLang, targetLang string) (string, string, error) {
	if payload.Empty() {
		return "", "", ErrNoAudio
	}

	original, err := e.transcribe(ctx, payload, sourceLang)
	if err != nil {
		return "", "", err
	}
	if original == "" {
		return "", "", fmt.Errorf("%w: transcription returned no text", ErrUpstream)
	}

	translated, err := e.translateText(ctx, original, sourceLang, targetLang)
	if err != nil {
		return "", "", err
	}
	return original, translated, nil
}

func (e *Engine) transcribe(ctx context.Context, payload domain.Payload, sourceLang string) (string, error) {
	data := payload.Data
	base, sampleRate, channels := parseMediaType(payload.MediaType)
	if isRawPCM(base) {
		data = EncodeWAV(data, sampleRate, channels)
	}

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.cfg.TranscriptionModel,
		FilePath: "capture.wav",
		Reader:   bytes.NewReader(data),
		Language: sourceLang,
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %v", ErrUpstream, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (e *Engine) translateText(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.TranslationModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translationPrompt(sourceLang, targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: translation: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: translation returned no choices", ErrUpstream)
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("%w: translation returned empty text", ErrUpstream)
	}
	return translated, nil
}

func translationPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"You are a translator for a spoken conversation. Translate the user's message from %s to %s. Reply with the translation only, no explanations.",
		sourceLang, targetLang,
	)
}
