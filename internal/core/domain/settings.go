package domain

import (
	"math"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any compatible gateway.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// SemanticBackend selects where semantic ranking runs.
type SemanticBackend string

// Semantic backends.
const (
	// SemanticBackendFlat scores pool embeddings in process.
	SemanticBackendFlat SemanticBackend = "flat"

	// SemanticBackendPostgres delegates ranking to pgvector.
	SemanticBackendPostgres SemanticBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b SemanticBackend) IsValid() bool {
	return b == SemanticBackendFlat || b == SemanticBackendPostgres
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// RequestsPerSecond throttles generation calls. Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the number of calls allowed above the steady rate.
	Burst int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds hybrid retrieval configuration.
type RetrievalSettings struct {
	// K is the number of passages retrieved per sub-question.
	K int

	// WeightLexical is the fusion weight of the lexical ranker.
	WeightLexical float64

	// WeightSemantic is the fusion weight of the semantic ranker.
	WeightSemantic float64

	// Backend selects the semantic ranker implementation.
	Backend SemanticBackend
}

// Validate checks the fusion weights and k.
func (r RetrievalSettings) Validate() error {
	if r.K < 1 {
		return ErrConfig
	}
	if r.WeightLexical < 0 || r.WeightSemantic < 0 {
		return ErrConfig
	}
	if math.Abs(r.WeightLexical+r.WeightSemantic-1) > 1e-9 {
		return ErrConfig
	}
	return nil
}

// PoolSettings locates the passage pool.
type PoolSettings struct {
	// Path is the SQLite pool file.
	Path string

	// DatabaseURL is the Postgres connection string for the pgvector backend.
	DatabaseURL string
}

// EngineSettings bounds workflow execution.
type EngineSettings struct {
	// MaxSteps is the maximum number of node executions per run.
	MaxSteps int

	// CallTimeout bounds each external call made by a node.
	CallTimeout time.Duration
}

// ServerSettings configures the HTTP driving adapter.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// CacheSettings configures the optional answer cache.
type CacheSettings struct {
	// RedisURL enables the cache when non-empty.
	RedisURL string

	// TTL is how long cached answers live.
	TTL time.Duration
}

// Enabled reports whether an answer cache is configured.
func (c CacheSettings) Enabled() bool {
	return c.RedisURL != ""
}

// AppSettings holds all application settings.
type AppSettings struct {
	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Retrieval holds fusion settings.
	Retrieval RetrievalSettings

	// Pool locates the passage pool.
	Pool PoolSettings

	// PromptsPath is an optional YAML prompt catalog. Empty means built-in.
	PromptsPath string

	// Engine bounds workflow execution.
	Engine EngineSettings

	// Server configures the HTTP adapter.
	Server ServerSettings

	// Cache configures the answer cache.
	Cache CacheSettings
}

// Defaults used by DefaultAppSettings.
const (
	DefaultRetrievalK       = 3
	DefaultWeightLexical    = 0.3
	DefaultWeightSemantic   = 0.7
	DefaultMaxSteps         = 15
	DefaultCallTimeout      = 60 * time.Second
	DefaultServerAddr       = ":8000"
	DefaultCacheTTL         = 24 * time.Hour
	DefaultPoolFilename     = "passages.db"
	DefaultConfigDirName    = ".htp"
	DefaultLLMProvider      = AIProviderOpenAI
	DefaultEmbeddingBackend = SemanticBackendFlat
)

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and are normally supplied by the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider: DefaultLLMProvider,
			Model:    DefaultLLMModels()[DefaultLLMProvider],
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		Retrieval: RetrievalSettings{
			K:              DefaultRetrievalK,
			WeightLexical:  DefaultWeightLexical,
			WeightSemantic: DefaultWeightSemantic,
			Backend:        DefaultEmbeddingBackend,
		},
		Engine: EngineSettings{
			MaxSteps:    DefaultMaxSteps,
			CallTimeout: DefaultCallTimeout,
		},
		Server: ServerSettings{
			Addr: DefaultServerAddr,
		},
		Cache: CacheSettings{
			TTL: DefaultCacheTTL,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}
