package services

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMRPS            = "llm.requests_per_second"
	keyLLMBurst          = "llm.burst"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyRetrievalK        = "retrieval.k"
	keyWeightLexical     = "retrieval.weight_lexical"
	keyWeightSemantic    = "retrieval.weight_semantic"
	keyRetrievalBackend  = "retrieval.backend"
	keyPoolPath          = "pool.path"
	keyPoolDatabaseURL   = "pool.database_url"
	keyPromptsPath       = "prompts.path"
	keyEngineMaxSteps    = "engine.max_steps"
	keyEngineCallTimeout = "engine.call_timeout_seconds"
	keyServerAddr        = "server.addr"
	keyCacheRedisURL     = "cache.redis_url"
	keyCacheTTL          = "cache.ttl_seconds"
)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIAPIBase = "OPENAI_API_BASE"
	EnvPoolPath      = "HTP_POOL_PATH"
	EnvPromptsPath   = "HTP_PROMPTS_PATH"
	EnvRedisURL      = "HTP_REDIS_URL"
	EnvDatabaseURL   = "HTP_DATABASE_URL"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment lookup. Useful for testing.
func (s *SettingsService) SetEnvLookup(fn func(string) (string, bool)) {
	s.lookupEnv = fn
}

// Get retrieves current application settings.
// Stored values override defaults; environment variables override both.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRPS),
			Burst:             s.getInt(keyLLMBurst, 1),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Retrieval: domain.RetrievalSettings{
			K:              s.getInt(keyRetrievalK, defaults.Retrieval.K),
			WeightLexical:  s.getFloat(keyWeightLexical, defaults.Retrieval.WeightLexical),
			WeightSemantic: s.getFloat(keyWeightSemantic, defaults.Retrieval.WeightSemantic),
			Backend:        s.getBackend(defaults.Retrieval.Backend),
		},
		Pool: domain.PoolSettings{
			Path:        s.configStore.GetString(keyPoolPath),
			DatabaseURL: s.configStore.GetString(keyPoolDatabaseURL),
		},
		PromptsPath: s.configStore.GetString(keyPromptsPath),
		Engine: domain.EngineSettings{
			MaxSteps:    s.getInt(keyEngineMaxSteps, defaults.Engine.MaxSteps),
			CallTimeout: s.getSeconds(keyEngineCallTimeout, defaults.Engine.CallTimeout),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
		Cache: domain.CacheSettings{
			RedisURL: s.configStore.GetString(keyCacheRedisURL),
			TTL:      s.getSeconds(keyCacheTTL, defaults.Cache.TTL),
		},
	}
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv overlays environment variables. The OpenAI variables apply to
// whichever of LLM and embedding uses the OpenAI provider.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v, ok := s.env(EnvOpenAIAPIKey); ok {
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = v
		}
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.APIKey = v
		}
	}
	if v, ok := s.env(EnvOpenAIAPIBase); ok {
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.BaseURL = v
		}
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.BaseURL = v
		}
	}
	if v, ok := s.env(EnvPoolPath); ok {
		settings.Pool.Path = v
	}
	if v, ok := s.env(EnvPromptsPath); ok {
		settings.PromptsPath = v
	}
	if v, ok := s.env(EnvRedisURL); ok {
		settings.Cache.RedisURL = v
	}
	if v, ok := s.env(EnvDatabaseURL); ok {
		settings.Pool.DatabaseURL = v
	}
}

func (s *SettingsService) env(name string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Save persists application settings. Secrets supplied by the environment
// are written only when set explicitly on settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMRPS, settings.LLM.RequestsPerSecond},
		{keyLLMBurst, settings.LLM.Burst},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyRetrievalK, settings.Retrieval.K},
		{keyWeightLexical, settings.Retrieval.WeightLexical},
		{keyWeightSemantic, settings.Retrieval.WeightSemantic},
		{keyRetrievalBackend, string(settings.Retrieval.Backend)},
		{keyPoolPath, settings.Pool.Path},
		{keyPoolDatabaseURL, settings.Pool.DatabaseURL},
		{keyPromptsPath, settings.PromptsPath},
		{keyEngineMaxSteps, settings.Engine.MaxSteps},
		{keyEngineCallTimeout, int(settings.Engine.CallTimeout / time.Second)},
		{keyServerAddr, settings.Server.Addr},
		{keyCacheRedisURL, settings.Cache.RedisURL},
		{keyCacheTTL, int(settings.Cache.TTL / time.Second)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	if err := s.configStore.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = ""
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = ""
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings can serve requests.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: LLM provider %q is not configured", domain.ErrConfig, settings.LLM.Provider))
	}
	if err := settings.Retrieval.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: retrieval k=%d weights=%.3f/%.3f", err,
			settings.Retrieval.K, settings.Retrieval.WeightLexical, settings.Retrieval.WeightSemantic))
	}
	if settings.Retrieval.WeightSemantic > 0 {
		switch settings.Retrieval.Backend {
		case domain.SemanticBackendFlat:
			if !settings.Embedding.IsConfigured() {
				errs = append(errs, fmt.Errorf("%w: semantic retrieval requires an embedding provider", domain.ErrConfig))
			}
		case domain.SemanticBackendPostgres:
			if settings.Pool.DatabaseURL == "" {
				errs = append(errs, fmt.Errorf("%w: postgres backend requires pool.database_url", domain.ErrConfig))
			}
		default:
			errs = append(errs, fmt.Errorf("%w: unknown retrieval backend %q", domain.ErrConfig, settings.Retrieval.Backend))
		}
	}
	if settings.Engine.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("%w: engine.max_steps must be positive", domain.ErrConfig))
	}

	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func modelOrDefault(model, defaultModel string) string {
	if model != "" {
		return model
	}
	return defaultModel
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat distinguishes an explicit 0 from an absent key, since a zero
// fusion weight is a valid setting.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if str := s.configStore.GetString(key); str != "" {
		if n, err := strconv.Atoi(str); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(str); err == nil && d > 0 {
			return d
		}
		return defaultVal
	}
	if n := s.configStore.GetInt(key); n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.SemanticBackend) domain.SemanticBackend {
	backend := domain.SemanticBackend(s.configStore.GetString(keyRetrievalBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
