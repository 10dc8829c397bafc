package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ElevenLabsConfig controls the text-to-speech synthesizer.
type ElevenLabsConfig struct {
	APIKey     string
	APIBaseURL string
	VoiceID    string
	ModelID    string
}

// ElevenLabsSynthesizer fetches spoken audio for a translated utterance.
type ElevenLabsSynthesizer struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

func NewElevenLabsSynthesizer(cfg ElevenLabsConfig) (*ElevenLabsSynthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("elevenlabs API key is not configured")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = "JBFqnCBsd6RMkjVDRZzb"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	return &ElevenLabsSynthesizer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string, languageTag string) ([]byte, error) {
	endpoint, err := url.Parse(strings.TrimRight(s.cfg.APIBaseURL, "/") + "/text-to-speech/" + url.PathEscape(s.cfg.VoiceID))
	if err != nil {
		return nil, fmt.Errorf("invalid elevenlabs URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("output_format", "mp3_22050_32")
	endpoint.RawQuery = query.Encode()

	payload := map[string]any{
		"text":     text,
		"model_id": s.cfg.ModelID,
		"voice_settings": map[string]float64{
			"stability":        0.75,
			"similarity_boost": 0.7,
		},
	}
	if languageTag != "" {
		payload["language_code"] = languageTag
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}
