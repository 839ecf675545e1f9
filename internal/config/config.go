// Package config loads settings from ~/.meeting-assistant/config.toml, MA_* environment variables
// and .env files, in increasing order of precedence for the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	EnvPrefix    = "MA"
	AssistantDir = ".meeting-assistant"
	configName   = "config"
	configType   = "toml"

	BackendMemory = "memory"
	BackendTOML   = "toml"
	BackendNATS   = "nats"

	ProviderOpenAI    = "openai"
	ProviderHeuristic = "heuristic"

	SecretsChain = "chain"
	SecretsFile  = "file"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Home is the assistant directory holding config, sessions, calendar and secrets.
	Home     string
	File     string
	Sessions Sessions
	NATS     NATS
	LLM      LLM
	Calendar Calendar
	HTTP     HTTP
	Log      Log
	Speech   Speech
	Sweeper  Sweeper
	Secrets  Secrets
}

type Sessions struct {
	Backend string
	Dir     string
}

type NATS struct {
	// URL of an existing server; empty starts an embedded one storing data in StoreDir.
	URL      string
	Bucket   string
	StoreDir string
}

type LLM struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	APIKeyRef  string
	RateLimit  float64
	Burst      int
	Timeout    time.Duration
	MaxRetries int
}

type Calendar struct {
	Path          string
	Subscriptions []string
	Timezone      string
	Location      *time.Location
	WorkStart     string
	WorkEnd       string
	CacheDir      string
}

type HTTP struct {
	Host           string
	Port           int
	TurnTimeout    time.Duration
	AllowedOrigins []string
}

type Log struct {
	Level  string
	Format string
}

type Speech struct {
	STTModel string
	TTSModel string
	Voice    string
}

type Secrets struct {
	// Backend is "chain" (pass, then files) or "file".
	Backend string
	Dir     string
}

type Sweeper struct {
	// Schedule is a cron spec; empty disables the idle session sweeper.
	Schedule  string
	IdleAfter time.Duration
}

// Load reads the configuration for the user whose home directory is home. A missing config file is
// not an error.
func Load(home string) (*viper.Viper, Config, error) {
	if err := LoadDotEnv(".env.local", ".env"); err != nil {
		return nil, Config{}, err
	}

	dir := filepath.Join(home, AssistantDir)
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, Config{}, err
	}
	cfg.Home = dir

	return v, cfg, nil
}

// LoadDotEnv loads the given files in order. Variables already set are kept, so earlier files
// and the real environment win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("sessions.backend", BackendTOML)
	v.SetDefault("sessions.dir", filepath.Join(dir, "sessions"))
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.bucket", "meeting_sessions")
	v.SetDefault("nats.store_dir", filepath.Join(dir, "nats"))
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_ref", "meeting-assistant://openai/api_key")
	v.SetDefault("llm.rate_limit", 1.0)
	v.SetDefault("llm.burst", 2)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("calendar.path", filepath.Join(dir, "calendar.ics"))
	v.SetDefault("calendar.subscriptions", []string{})
	v.SetDefault("calendar.timezone", "Local")
	v.SetDefault("calendar.work_start", "09:00")
	v.SetDefault("calendar.work_end", "18:00")
	v.SetDefault("calendar.cache_dir", filepath.Join(dir, "cache"))
	v.SetDefault("http.host", "localhost")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.turn_timeout", "60s")
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("speech.stt_model", "whisper-1")
	v.SetDefault("speech.tts_model", "tts-1")
	v.SetDefault("speech.voice", "alloy")
	v.SetDefault("sweeper.schedule", "")
	v.SetDefault("sweeper.idle_after", "24h")
	v.SetDefault("secrets.backend", SecretsChain)
	v.SetDefault("secrets.dir", filepath.Join(dir, "secrets"))
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		File: v.ConfigFileUsed(),
		Sessions: Sessions{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("sessions.backend"))),
			Dir:     expandHome(v.GetString("sessions.dir")),
		},
		NATS: NATS{
			URL:      strings.TrimSpace(v.GetString("nats.url")),
			Bucket:   v.GetString("nats.bucket"),
			StoreDir: expandHome(v.GetString("nats.store_dir")),
		},
		LLM: LLM{
			Provider:   strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
			Model:      v.GetString("llm.model"),
			BaseURL:    v.GetString("llm.base_url"),
			APIKey:     strings.TrimSpace(v.GetString("llm.api_key")),
			APIKeyRef:  v.GetString("llm.api_key_ref"),
			RateLimit:  v.GetFloat64("llm.rate_limit"),
			Burst:      v.GetInt("llm.burst"),
			Timeout:    v.GetDuration("llm.timeout"),
			MaxRetries: v.GetInt("llm.max_retries"),
		},
		Calendar: Calendar{
			Path:          expandHome(v.GetString("calendar.path")),
			Subscriptions: v.GetStringSlice("calendar.subscriptions"),
			Timezone:      v.GetString("calendar.timezone"),
			WorkStart:     v.GetString("calendar.work_start"),
			WorkEnd:       v.GetString("calendar.work_end"),
			CacheDir:      expandHome(v.GetString("calendar.cache_dir")),
		},
		HTTP: HTTP{
			Host:           v.GetString("http.host"),
			Port:           v.GetInt("http.port"),
			TurnTimeout:    v.GetDuration("http.turn_timeout"),
			AllowedOrigins: v.GetStringSlice("http.allowed_origins"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Speech: Speech{
			STTModel: v.GetString("speech.stt_model"),
			TTSModel: v.GetString("speech.tts_model"),
			Voice:    v.GetString("speech.voice"),
		},
		Sweeper: Sweeper{
			Schedule:  strings.TrimSpace(v.GetString("sweeper.schedule")),
			IdleAfter: v.GetDuration("sweeper.idle_after"),
		},
		Secrets: Secrets{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("secrets.backend"))),
			Dir:     expandHome(v.GetString("secrets.dir")),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Sessions.Backend {
	case BackendMemory, BackendTOML, BackendNATS:
	default:
		return fmt.Errorf("%w: sessions.backend must be memory, toml or nats, got %q", ErrInvalidConfig, c.Sessions.Backend)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderHeuristic:
	default:
		return fmt.Errorf("%w: llm.provider must be openai or heuristic, got %q", ErrInvalidConfig, c.LLM.Provider)
	}
	if c.Secrets.Backend != SecretsChain && c.Secrets.Backend != SecretsFile {
		return fmt.Errorf("%w: secrets.backend must be chain or file, got %q", ErrInvalidConfig, c.Secrets.Backend)
	}
	if c.LLM.RateLimit < 0 {
		return fmt.Errorf("%w: llm.rate_limit must not be negative", ErrInvalidConfig)
	}

	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return fmt.Errorf("%w: calendar.timezone: %w", ErrInvalidConfig, err)
	}
	c.Calendar.Location = loc

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port %d is out of range", ErrInvalidConfig, c.HTTP.Port)
	}

	if c.Sweeper.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sweeper.Schedule); err != nil {
			return fmt.Errorf("%w: sweeper.schedule: %w", ErrInvalidConfig, err)
		}
		if c.Sweeper.IdleAfter <= 0 {
			return fmt.Errorf("%w: sweeper.idle_after must be positive", ErrInvalidConfig)
		}
	}

	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
