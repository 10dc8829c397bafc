package bootstrap

import (
	"tolk/internal/audio"
	"tolk/internal/config"
	"tolk/internal/energy"
	"tolk/internal/ports"
	"tolk/internal/room"
	"tolk/internal/speech"
	"tolk/internal/translate"
	"tolk/internal/usecase"
)

// Services is the assembled client runtime graph.
type Services struct {
	Controller  *usecase.RecordingController
	Rooms       *room.Client
	Transcripts *room.TranscriptStore
	Translator  *translate.Client
	Speaker     ports.Speaker
	Config      config.Config
}

// Build wires all client-side dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	controller := usecase.NewRecordingController(
		audio.NewFFMPEGAdapter(cfg.Audio.RecorderCommand),
		&energy.Factory{Sink: eventSink},
		eventSink,
		usecase.Config{
			Profile: ports.CaptureProfile{
				SampleRate:       cfg.Audio.SampleRate,
				Channels:         cfg.Audio.Channels,
				EchoCancellation: cfg.Audio.EchoCancellation,
				NoiseSuppression: cfg.Audio.NoiseSuppression,
				InputFormat:      cfg.Audio.InputFormat,
				InputDevice:      cfg.Audio.InputDevice,
				FlushInterval:    cfg.Audio.FlushInterval,
			},
			StopAckTimeout: cfg.Session.StopAckTimeout,
		},
	)

	speaker := buildSpeaker(cfg, eventSink)
	store := room.NewTranscriptStore()
	rooms := room.NewClient(room.Config{
		BaseURL:  cfg.Hub.BaseURL,
		Language: cfg.Client.Language,
	}, store, speaker, eventSink)

	return Services{
		Controller:  controller,
		Rooms:       rooms,
		Transcripts: store,
		Translator:  translate.NewClient(cfg.Hub.BaseURL),
		Speaker:     speaker,
		Config:      cfg,
	}, nil
}

// buildSpeaker degrades to silent playback when speech synthesis is not
// configured; transcripts still flow.
func buildSpeaker(cfg config.Config, eventSink ports.EventSink) ports.Speaker {
	synth, err := speech.NewElevenLabsSynthesizer(speech.ElevenLabsConfig{
		APIKey:     cfg.TTS.APIKey,
		APIBaseURL: cfg.TTS.APIBaseURL,
		VoiceID:    cfg.TTS.VoiceID,
		ModelID:    cfg.TTS.ModelID,
	})
	if err != nil {
		return silentSpeaker{}
	}
	return speech.NewSpeaker(synth, speech.NewFFPlayPlayer(cfg.TTS.PlayerCommand), eventSink)
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(_ string, _ string) {}
