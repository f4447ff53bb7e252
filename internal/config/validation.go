package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate checks configuration values and the presence of the API key
// the selected provider needs. Returns sentinel errors usable with
// errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Provider and its credentials
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for provider %q\n"+
				"Get your API key at: https://platform.openai.com/api-keys",
				ErrMissingAPIKey, c.Provider)
		}
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for provider %q\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey, c.Provider)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty for provider %q", ErrInvalidOllamaHost, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q is not one of: %v", ErrInvalidProvider, c.Provider,
			[]string{ProviderOpenAI, ProviderGemini, ProviderGoogleAI, ProviderOllama})
	}

	// The video tools need YOUTUBE_API_KEY; chat and library work without
	// it, so warn rather than fail.
	if os.Getenv("YOUTUBE_API_KEY") == "" {
		slog.Warn("YOUTUBE_API_KEY not set; video search tools will be unavailable")
	}

	// Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.SummarizerModel == "" {
		return fmt.Errorf("%w: summarizer_model cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// Library tuning. The add gate is a cosine similarity in [0, 1]; the
	// search cutoff is a cosine distance in (0, 2].
	if c.AddSimilarityThreshold < 0.0 || c.AddSimilarityThreshold > 1.0 {
		return fmt.Errorf("%w: add_similarity_threshold must be between 0.0 and 1.0, got %.2f",
			ErrInvalidThreshold, c.AddSimilarityThreshold)
	}
	if c.SearchSimilarityThreshold <= 0.0 || c.SearchSimilarityThreshold > 2.0 {
		return fmt.Errorf("%w: search_similarity_threshold must be in (0.0, 2.0], got %.2f",
			ErrInvalidThreshold, c.SearchSimilarityThreshold)
	}
	if c.SearchTopK < 1 || c.SearchTopK > 10 {
		return fmt.Errorf("%w: search_top_k must be between 1 and 10, got %d", ErrInvalidTopK, c.SearchTopK)
	}
	if c.ChunkSize < 1 || c.ChunkSize > 10000 {
		return fmt.Errorf("%w: chunk_size must be between 1 and 10000, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be non-negative and smaller than chunk_size, got %d",
			ErrInvalidChunking, c.ChunkOverlap)
	}

	// Video tool tuning
	if c.MaxTranscriptChars < 1 {
		return fmt.Errorf("%w: max_transcript_chars must be positive, got %d", ErrInvalidMaxResults, c.MaxTranscriptChars)
	}
	if c.YouTubeMaxResults < 1 || c.YouTubeMaxResults > 10 {
		return fmt.Errorf("%w: youtube_max_results must be between 1 and 10, got %d",
			ErrInvalidMaxResults, c.YouTubeMaxResults)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "librarian_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}
	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// Deprecated allow/prefer modes are excluded (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// NormalizeMaxHistoryMessages clamps the history load limit to a usable
// range; non-positive values fall back to the default.
func NormalizeMaxHistoryMessages(limit int32) int32 {
	if limit <= 0 {
		return DefaultMaxHistoryMessages
	}
	if limit > MaxAllowedHistoryMessages {
		return MaxAllowedHistoryMessages
	}
	return limit
}
