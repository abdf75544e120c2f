// Package config loads service settings from defaults, an optional YAML file,
// a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a YAML config file.
const EnvConfigPath = "EASYWATCH_CONFIG"

// Config holds all service settings.
type Config struct {
	ProjectName string          `yaml:"project_name"`
	Port        int             `yaml:"port"`
	LogLevel    string          `yaml:"log_level"`
	LLM         LLMConfig       `yaml:"llm"`
	YouTube     YouTubeConfig   `yaml:"youtube"`
	Storage     StorageConfig   `yaml:"storage"`
	Turn        TurnConfig      `yaml:"turn"`
	Summarize   SummarizeConfig `yaml:"summarize"`
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"` // groq, openai, anthropic, gemini, mock
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"` // API endpoint override (openai, groq, anthropic)
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Temperature     float32       `yaml:"temperature"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
}

type YouTubeConfig struct {
	APIKey            string        `yaml:"api_key"`
	TranscriptToken   string        `yaml:"transcript_token"`
	TranscriptBaseURL string        `yaml:"transcript_base_url"`
	Timeout           time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"` // firestore, sqlite, memory
	ProjectID  string `yaml:"project_id"`
	SQLitePath string `yaml:"sqlite_path"`
}

type TurnConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

type SummarizeConfig struct {
	Threshold     int `yaml:"threshold"`
	ChunkTokens   int `yaml:"chunk_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ProjectName: "EasyWatch",
		Port:        8080,
		LogLevel:    "info",
		LLM: LLMConfig{
			Provider:        "groq",
			Model:           "llama-3.3-70b-versatile",
			MaxOutputTokens: 4096,
			Temperature:     0.7,
			CallTimeout:     60 * time.Second,
			MaxRetries:      2,
		},
		YouTube: YouTubeConfig{
			TranscriptBaseURL: "https://www.youtube-transcript.io",
			Timeout:           30 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    "firestore",
			SQLitePath: "easywatch.db",
		},
		Turn: TurnConfig{HistoryLimit: 10},
		Summarize: SummarizeConfig{
			Threshold:     6000,
			ChunkTokens:   7000,
			OverlapTokens: 100,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// EASYWATCH_CONFIG is consulted; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PROJECT_NAME", &c.ProjectName)
	num("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("LLM_MODEL", &c.LLM.Model)
	str("LLM_BASE_URL", &c.LLM.BaseURL)
	num("LLM_MAX_OUTPUT_TOKENS", &c.LLM.MaxOutputTokens)
	dur("LLM_CALL_TIMEOUT", &c.LLM.CallTimeout)
	num("LLM_MAX_RETRIES", &c.LLM.MaxRetries)
	if v, ok := lookup("LLM_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			c.LLM.Temperature = float32(f)
		}
	}
	// provider-specific key names, then the generic one
	if key := providerKeyEnv(c.LLM.Provider); key != "" {
		str(key, &c.LLM.APIKey)
	}
	str("LLM_API_KEY", &c.LLM.APIKey)

	str("YOUTUBE_API_KEY", &c.YouTube.APIKey)
	str("TRANSCRIPT_API_TOKEN", &c.YouTube.TranscriptToken)
	str("TRANSCRIPT_BASE_URL", &c.YouTube.TranscriptBaseURL)
	dur("YOUTUBE_TIMEOUT", &c.YouTube.Timeout)

	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("PROJECT_ID", &c.Storage.ProjectID)
	str("SQLITE_PATH", &c.Storage.SQLitePath)

	num("TURN_HISTORY_LIMIT", &c.Turn.HistoryLimit)
	num("SUMMARIZE_THRESHOLD", &c.Summarize.Threshold)
	num("SUMMARIZE_CHUNK_TOKENS", &c.Summarize.ChunkTokens)
	num("SUMMARIZE_OVERLAP_TOKENS", &c.Summarize.OverlapTokens)

	return errors.Join(errs...)
}

func providerKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "groq":
		return "GROQ_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	}
	return ""
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case "groq", "openai", "anthropic", "gemini":
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q (supported: groq, openai, anthropic, gemini, mock)", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.CallTimeout <= 0 {
		errs = append(errs, errors.New("llm.call_timeout must be positive"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries must not be negative"))
	}

	switch c.Storage.Backend {
	case "firestore":
		if c.Storage.ProjectID == "" {
			errs = append(errs, errors.New("storage.project_id is required for the firestore backend"))
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q (supported: firestore, sqlite, memory)", c.Storage.Backend))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.YouTube.Timeout <= 0 {
		errs = append(errs, errors.New("youtube.timeout must be positive"))
	}
	if c.Turn.HistoryLimit < 0 {
		errs = append(errs, errors.New("turn.history_limit must not be negative"))
	}
	if c.Summarize.Threshold <= 0 || c.Summarize.ChunkTokens <= 0 {
		errs = append(errs, errors.New("summarize.threshold and summarize.chunk_tokens must be positive"))
	}
	if c.Summarize.OverlapTokens < 0 || c.Summarize.OverlapTokens >= c.Summarize.ChunkTokens {
		errs = append(errs, errors.New("summarize.overlap_tokens must be in [0, chunk_tokens)"))
	}

	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
