package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the voice-note app.
type Config struct {
	Deepgram DeepgramConfig
	OpenAI   OpenAIConfig
	Audio    AudioConfig
	Rules    RulesConfig
	Session  SessionConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type OpenAIConfig struct {
	APIKey     string
	APIBaseURL string
	Model      string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	ChunkSize       int
	SurfaceNoSpeech bool
}

// Load resolves configuration from the environment and sensible defaults.
// A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	rulesPath := strings.TrimSpace(os.Getenv("KOTHANOTE_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = filepath.Join(home, ".config", "kothanote", "substitutions.rules")
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    envOrDefault("DEEPGRAM_LANGUAGE", "bn"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		OpenAI: OpenAIConfig{
			APIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_API_BASE")),
			Model:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("KOTHANOTE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("KOTHANOTE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("KOTHANOTE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("KOTHANOTE_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("KOTHANOTE_CHANNELS", 1),
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("KOTHANOTE_RULE_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			ChunkSize:       envOrDefaultInt("KOTHANOTE_AUDIO_CHUNK_SIZE", 4096),
			SurfaceNoSpeech: envOrDefaultBool("KOTHANOTE_SURFACE_NO_SPEECH", false),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
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
