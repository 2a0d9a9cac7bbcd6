package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env       string
	Port      string
	LogLevel  string
	LogFormat string

	DatabaseURL string
	RedisURL    string

	// Scheduling
	PostSchedule      string
	ScheduleTimezone  string
	WorkerConcurrency int
	AudioTimeout      time.Duration
	PostTimeout       time.Duration

	// Content model
	GeneratorProvider string
	OpenAIAPIKey      string
	AnthropicAPIKey   string

	// Speech synthesis
	ElevenLabsAPIKey string
	ElevenLabsAPIURL string

	// Media store
	MediaBucket        string
	MediaRegion        string
	MediaEndpoint      string
	MediaPublicBaseURL string
	MediaKeyPrefix     string

	// Publishing API
	PublishingAPIURL   string
	PublishingAPIToken string

	// On-demand triggers
	TriggerAPIToken  string
	PostEventsStream string
	AudioOnCreate    bool

	Settings *Settings
}

// Settings holds tunables that are awkward to express as environment variables.
// Loaded from SETTINGS_FILE when set; defaults apply otherwise.
type Settings struct {
	Generator struct {
		Prompt      string  `yaml:"prompt"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"generator"`
	Narration struct {
		VoiceID      string `yaml:"voice_id"`
		ModelID      string `yaml:"model_id"`
		OutputFormat string `yaml:"output_format"`
	} `yaml:"narration"`
}

// DefaultSettings returns the settings used when no settings file is configured.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.Generator.Prompt = "Generate a post title and content in markdown with original data about something of technology in the current year and month."
	s.Generator.MaxTokens = 4096
	s.Generator.Temperature = 0.7
	s.Narration.VoiceID = "JBFqnCBsd6RMkjVDRZzb"
	s.Narration.ModelID = "eleven_multilingual_v2"
	s.Narration.OutputFormat = "mp3_44100_128"
	return s
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: failed to read .env file: %v", err)
	}

	cfg := &Config{
		Env:       getEnvWithDefault("ENV", "development"),
		Port:      getEnvWithDefault("PORT", "8080"),
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		// every day at 00:00
		PostSchedule:     getEnvWithDefault("POST_SCHEDULE", "0 0 * * *"),
		ScheduleTimezone: getEnvWithDefault("SCHEDULE_TIMEZONE", "UTC"),

		GeneratorProvider: getEnvWithDefault("GENERATOR_PROVIDER", "openai"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),

		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsAPIURL: getEnvWithDefault("ELEVENLABS_API_URL", "https://api.elevenlabs.io"),

		MediaBucket:        os.Getenv("MEDIA_BUCKET"),
		MediaRegion:        getEnvWithDefault("MEDIA_REGION", "us-east-1"),
		MediaEndpoint:      os.Getenv("MEDIA_ENDPOINT"),
		MediaPublicBaseURL: os.Getenv("MEDIA_PUBLIC_BASE_URL"),
		MediaKeyPrefix:     getEnvWithDefault("MEDIA_KEY_PREFIX", "audio"),

		PublishingAPIURL:   getEnvWithDefault("PUBLISHING_API_URL", "https://blog0-backend.vercel.app"),
		PublishingAPIToken: os.Getenv("PROCESSOR_TOKEN"),

		TriggerAPIToken:  os.Getenv("TRIGGER_API_TOKEN"),
		PostEventsStream: getEnvWithDefault("POST_EVENTS_STREAM", "post:events"),
	}

	var err error
	if cfg.WorkerConcurrency, err = getIntWithDefault("WORKER_CONCURRENCY", 5); err != nil {
		return nil, err
	}
	if cfg.AudioTimeout, err = getDurationWithDefault("AUDIO_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PostTimeout, err = getDurationWithDefault("POST_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AudioOnCreate, err = getBoolWithDefault("AUDIO_ON_CREATE", false); err != nil {
		return nil, err
	}

	cfg.Settings = DefaultSettings()
	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		if cfg.Settings, err = LoadSettings(path); err != nil {
			return nil, err
		}
	}

	if cfg.TriggerAPIToken == "" && cfg.Env == "production" {
		log.Println("WARNING: TRIGGER_API_TOKEN not set. The trigger API will reject every request.")
	}

	return cfg, nil
}

// LoadSettings reads a YAML settings file. Unknown keys are rejected and
// missing values fall back to DefaultSettings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	settings := DefaultSettings()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if settings.Generator.Prompt == "" {
		return nil, fmt.Errorf("settings file %s: generator.prompt must not be empty", path)
	}

	return settings, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getBoolWithDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
