package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the hub and the client.
type Config struct {
	Hub     HubConfig
	OpenAI  OpenAIConfig
	Audio   AudioConfig
	Session SessionConfig
	Client  ClientConfig
	TTS     TTSConfig
}

type HubConfig struct {
	ListenAddr string
	BaseURL    string
}

type OpenAIConfig struct {
	APIKey             string
	APIBaseURL         string
	TranscriptionModel string
	TranslationModel   string
}

type AudioConfig struct {
	RecorderCommand  string
	InputFormat      string
	InputDevice      string
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	FlushInterval    time.Duration
}

type SessionConfig struct {
	StopAckTimeout time.Duration
}

type ClientConfig struct {
	Language       string
	TargetLanguage string
}

type TTSConfig struct {
	APIKey        string
	APIBaseURL    string
	VoiceID       string
	ModelID       string
	PlayerCommand string
}

// Load resolves configuration from environment variables and sensible
// defaults.
func Load() (Config, error) {
	cfg := Config{
		Hub: HubConfig{
			ListenAddr: envOrDefault("TOLK_HUB_ADDR", ":7300"),
			BaseURL:    envOrDefault("TOLK_HUB_URL", "http://localhost:7300"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL:         strings.TrimSpace(os.Getenv("OPENAI_API_BASE")),
			TranscriptionModel: envOrDefault("TOLK_TRANSCRIPTION_MODEL", "whisper-1"),
			TranslationModel:   envOrDefault("TOLK_TRANSLATION_MODEL", "gpt-4o-mini"),
		},
		Audio: AudioConfig{
			RecorderCommand:  envOrDefault("TOLK_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:      envOrDefault("TOLK_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:      envOrDefault("TOLK_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:       envOrDefaultInt("TOLK_SAMPLE_RATE", 16000),
			Channels:         envOrDefaultInt("TOLK_CHANNELS", 1),
			EchoCancellation: envOrDefaultBool("TOLK_ECHO_CANCELLATION", true),
			NoiseSuppression: envOrDefaultBool("TOLK_NOISE_SUPPRESSION", true),
			FlushInterval:    envOrDefaultDuration("TOLK_FLUSH_INTERVAL_MS", time.Second),
		},
		Session: SessionConfig{
			StopAckTimeout: envOrDefaultDuration("TOLK_STOP_ACK_TIMEOUT_MS", 2*time.Second),
		},
		Client: ClientConfig{
			Language:       envOrDefault("TOLK_LANGUAGE", "en"),
			TargetLanguage: strings.TrimSpace(os.Getenv("TOLK_TARGET_LANGUAGE")),
		},
		TTS: TTSConfig{
			APIKey:        strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
			APIBaseURL:    envOrDefault("ELEVENLABS_API_BASE", "https://api.elevenlabs.io/v1"),
			VoiceID:       strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID")),
			ModelID:       envOrDefault("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
			PlayerCommand: envOrDefault("TOLK_FFPLAY_COMMAND", "ffplay"),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.FlushInterval <= 0 {
		cfg.Audio.FlushInterval = time.Second
	}
	if cfg.Session.StopAckTimeout <= 0 {
		cfg.Session.StopAckTimeout = 2 * time.Second
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
