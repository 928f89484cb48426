// Package bootstrap assembles the application graph from configuration.
package bootstrap

import (
	"fmt"

	"kothanote/internal/audio"
	"kothanote/internal/config"
	"kothanote/internal/ports"
	"kothanote/internal/providers/deepgram"
	openaiprov "kothanote/internal/providers/openai"
	"kothanote/internal/rules"
	"kothanote/internal/usecase"
)

// Services holds the wired application services handed to the UI shell.
type Services struct {
	Controller *usecase.NotesController
	Config     config.Config
}

// Build loads configuration and wires every adapter into the session
// controller. The event sink and clipboard come from the caller because they
// belong to the UI runtime.
func Build(events ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	subs, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, fmt.Errorf("failed to load substitution rules: %w", err)
	}

	capture := audio.NewMicCapture(cfg.Audio.RecorderCommand)
	engine := deepgram.NewEngine(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
	})
	completer := openaiprov.NewCompleter(openaiprov.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.APIBaseURL,
		Model:   cfg.OpenAI.Model,
	})

	controller := usecase.NewNotesController(
		capture,
		engine,
		completer,
		subs,
		clipboard,
		events,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Recognition: ports.RecognitionConfig{
				Language:       cfg.Deepgram.Language,
				Encoding:       "linear16",
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				InterimResults: true,
			},
			ChunkSize:       cfg.Session.ChunkSize,
			SurfaceNoSpeech: cfg.Session.SurfaceNoSpeech,
		},
	)

	return Services{Controller: controller, Config: cfg}, nil
}
