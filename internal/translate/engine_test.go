package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tolk/internal/domain"
)

func TestNewEngineRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(EngineConfig{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestEngineTranslateEmptyPayload(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(EngineConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}

	_, _, err = engine.Translate(context.Background(), domain.Payload{}, "ko", "vi")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestEngineTranslateRoundTrip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
			json.NewEncoder(w).Encode(map[string]string{"text": "안녕"})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"role": "assistant", "content": "Xin chào"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	engine, err := NewEngine(EngineConfig{APIKey: "test-key", APIBaseURL: server.URL})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}

	payload := domain.Payload{Data: []byte{0, 0, 0, 0}, MediaType: "audio/L16;rate=16000;channels=1"}
	original, translated, err := engine.Translate(context.Background(), payload, "ko", "vi")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if original != "안녕" || translated != "Xin chào" {
		t.Fatalf("unexpected result: %q -> %q", original, translated)
	}
}

func TestEngineTranslateUpstreamFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	engine, err := NewEngine(EngineConfig{APIKey: "test-key", APIBaseURL: server.URL})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}

	payload := domain.Payload{Data: []byte{0, 0}, MediaType: "audio/L16;rate=16000;channels=1"}
	_, _, err = engine.Translate(context.Background(), payload, "ko", "vi")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestTranslationPromptNamesLanguages(t *testing.T) {
	t.Parallel()

	prompt := translationPrompt("ko", "vi")
	if !strings.Contains(prompt, "from ko to vi") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
}
