// Package config loads and validates librarian configuration.
//
// Sources, highest priority first:
//  1. Environment variables (LIBRARIAN_* overrides, DATABASE_URL)
//  2. Config file (~/.librarian/config.yaml, or ./config.yaml)
//  3. Defaults set in setDefaults
//
// API keys (OPENAI_API_KEY, GEMINI_API_KEY, YOUTUBE_API_KEY) are read
// from the environment by the components that need them, never stored
// in the config file. The Postgres password is the one secret carried
// here; it is masked in MarshalJSON and String.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidThreshold indicates a similarity threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidTopK indicates the search result count is out of range.
	ErrInvalidTopK = errors.New("invalid search top k")

	// ErrInvalidChunking indicates chunk size/overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking values")

	// ErrInvalidMaxResults indicates the video search result count is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

const (
	// DefaultMaxHistoryMessages is the default number of stored messages
	// loaded into the model context per turn.
	DefaultMaxHistoryMessages int32 = 100

	// MaxAllowedHistoryMessages caps history loading to bound memory use.
	MaxAllowedHistoryMessages int32 = 10000
)

// Config stores application configuration.
// SENSITIVE: PostgresPassword is masked in MarshalJSON; keep that method
// in sync when adding secret fields.
type Config struct {
	// Model selection
	Provider        string  `mapstructure:"provider" json:"provider"`                 // "openai" (default), "gemini", "ollama"
	ModelName       string  `mapstructure:"model_name" json:"model_name"`             // chat model, e.g. "gpt-4o"
	SummarizerModel string  `mapstructure:"summarizer_model" json:"summarizer_model"` // extraction model, e.g. "gpt-4o-mini"
	EmbedderModel   string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature     float32 `mapstructure:"temperature" json:"temperature"`
	MaxTurns        int     `mapstructure:"max_turns" json:"max_turns"`
	Language        string  `mapstructure:"language" json:"language"`
	PromptDir       string  `mapstructure:"prompt_dir" json:"prompt_dir"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Library (vector store) tuning
	AddSimilarityThreshold    float64 `mapstructure:"add_similarity_threshold" json:"add_similarity_threshold"`       // cosine similarity gate for persisting fetched knowledge
	SearchSimilarityThreshold float64 `mapstructure:"search_similarity_threshold" json:"search_similarity_threshold"` // cosine distance cutoff on search
	SearchTopK                int     `mapstructure:"search_top_k" json:"search_top_k"`
	ChunkSize                 int     `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap              int     `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Video tool tuning
	MaxTranscriptChars int `mapstructure:"max_transcript_chars" json:"max_transcript_chars"` // transcripts longer than this get summarized
	YouTubeMaxResults  int `mapstructure:"youtube_max_results" json:"youtube_max_results"`

	// Terminal persona
	UserName       string `mapstructure:"user_name" json:"user_name"`
	LibrarianName  string `mapstructure:"librarian_name" json:"librarian_name"`
	UserColor      string `mapstructure:"user_color" json:"user_color"`           // lipgloss color (ANSI number or hex)
	LibrarianColor string `mapstructure:"librarian_color" json:"librarian_color"` // lipgloss color (ANSI number or hex)

	// Conversation history
	MaxHistoryMessages int32  `mapstructure:"max_history_messages" json:"max_history_messages"`
	HistoryDir         string `mapstructure:"history_dir" json:"history_dir"` // CSV transcript directory
	AddTimestamp       bool   `mapstructure:"add_timestamp" json:"add_timestamp"`
	ClearHistory       bool   `mapstructure:"clear_history" json:"clear_history"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging
	LogLevel  string `mapstructure:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" json:"log_format"` // "text" (default) or "json"

	// Tracing (optional; empty endpoint disables the exporter)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".librarian")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; defaults carry a fresh install.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* values.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the default value for every key.
func setDefaults(configDir string) {
	// Model defaults
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4o")
	viper.SetDefault("summarizer_model", "gpt-4o-mini")
	viper.SetDefault("embedder_model", "text-embedding-3-small")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_turns", 5)
	viper.SetDefault("language", "auto")
	viper.SetDefault("prompt_dir", "prompts")
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Library defaults
	viper.SetDefault("add_similarity_threshold", 0.3)
	viper.SetDefault("search_similarity_threshold", 1.2)
	viper.SetDefault("search_top_k", 3)
	viper.SetDefault("chunk_size", 500)
	viper.SetDefault("chunk_overlap", 50)

	// Video tool defaults
	viper.SetDefault("max_transcript_chars", 500)
	viper.SetDefault("youtube_max_results", 3)

	// Persona defaults
	viper.SetDefault("user_name", "You")
	viper.SetDefault("librarian_name", "Alice")
	viper.SetDefault("user_color", "10")
	viper.SetDefault("librarian_color", "12")

	// History defaults
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)
	viper.SetDefault("history_dir", filepath.Join(configDir, "history"))
	viper.SetDefault("add_timestamp", true)
	viper.SetDefault("clear_history", false)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "librarian")
	viper.SetDefault("postgres_password", "librarian_dev_password")
	viper.SetDefault("postgres_db_name", "librarian")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")

	// Tracing defaults (disabled until an endpoint is set)
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("service_name", "librarian")
}

// bindEnvVariables binds the LIBRARIAN_* runtime overrides explicitly.
// API keys are not bound: OPENAI_API_KEY and GEMINI_API_KEY are read by
// the Genkit plugins, YOUTUBE_API_KEY by the YouTube client. Validate
// only checks their presence.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a code bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "LIBRARIAN_PROVIDER")
	mustBind("model_name", "LIBRARIAN_MODEL_NAME")
	mustBind("summarizer_model", "LIBRARIAN_SUMMARIZER_MODEL")
	mustBind("embedder_model", "LIBRARIAN_EMBEDDER_MODEL")
	mustBind("ollama_host", "LIBRARIAN_OLLAMA_HOST")
	mustBind("prompt_dir", "LIBRARIAN_PROMPT_DIR")
	mustBind("history_dir", "LIBRARIAN_HISTORY_DIR")
	mustBind("postgres_password", "LIBRARIAN_POSTGRES_PASSWORD")
	mustBind("log_level", "LIBRARIAN_LOG_LEVEL")
	mustBind("log_format", "LIBRARIAN_LOG_FORMAT")
	mustBind("otlp_endpoint", "LIBRARIAN_OTLP_ENDPOINT")
	mustBind("service_name", "LIBRARIAN_SERVICE_NAME")
}

// maskedValue replaces secret content in logs. Full-width blocks avoid
// accidental substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 characters or
// fewer are fully masked; longer ones keep the first and last two
// characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified chat model name for
// Genkit, e.g. "openai/gpt-4o". Names already containing "/" pass
// through unchanged.
func (c *Config) FullModelName() string {
	return c.qualifyModel(c.ModelName)
}

// FullSummarizerName returns the provider-qualified summarizer model
// name, e.g. "openai/gpt-4o-mini".
func (c *Config) FullSummarizerName() string {
	return c.qualifyModel(c.SummarizerModel)
}

func (c *Config) qualifyModel(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + name
	case ProviderGemini, ProviderGoogleAI:
		return ProviderGoogleAI + "/" + name
	default:
		return ProviderOpenAI + "/" + name
	}
}
