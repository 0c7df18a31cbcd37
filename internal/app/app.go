// Package app assembles the interpretation engine from settings.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/custodia-labs/htp-rag/internal/adapters/driven/ai"
	rediscache "github.com/custodia-labs/htp-rag/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/htp-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/htp-rag/internal/adapters/driven/metrics"
	"github.com/custodia-labs/htp-rag/internal/adapters/driven/search/bm25"
	"github.com/custodia-labs/htp-rag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/htp-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/htp-rag/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
	"github.com/custodia-labs/htp-rag/internal/core/services"
	"github.com/custodia-labs/htp-rag/internal/logger"
)

// Runtime holds the assembled services and the resources they own.
type Runtime struct {
	// Analysis is the caller-facing service.
	Analysis *services.AnalysisService

	// Engine runs the interpretation graph.
	Engine *services.Engine

	// Prompts is the loaded prompt catalog.
	Prompts *file.PromptCatalog

	// Registry gathers the engine and process metrics.
	Registry *prometheus.Registry

	closers []func() error
}

// Options tunes Build.
type Options struct {
	// ConfigDir resolves the default pool path when settings leave it empty.
	ConfigDir string
}

// Build wires every component named by settings. Resources acquired before a
// failure are released before Build returns.
func Build(ctx context.Context, settings *domain.AppSettings, opts Options) (*Runtime, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are required", domain.ErrConfig)
	}
	if err := settings.Retrieval.Validate(); err != nil {
		return nil, fmt.Errorf("retrieval settings: %w", err)
	}
	if !settings.Retrieval.Backend.IsValid() {
		return nil, fmt.Errorf("%w: unknown retrieval backend %q", domain.ErrConfig, settings.Retrieval.Backend)
	}

	rt := &Runtime{}
	built := false
	defer func() {
		if !built {
			_ = rt.Close()
		}
	}()

	var err error

	logger.Section("Startup")

	rt.Prompts, err = file.LoadPromptCatalog(settings.PromptsPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Prompts: %s", rt.Prompts.Source())

	llm, err := ai.CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, llm.Close)
	logger.Debug("LLM: %s (%s)", settings.LLM.Provider.Description(), llm.ModelName())

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, embedder.Close)
	logger.Debug("Embedding: %s (%s)", settings.Embedding.Provider.Description(), embedder.ModelName())

	pool, semantic, err := rt.openPool(ctx, settings, opts, embedder)
	if err != nil {
		return nil, err
	}

	lexical, err := bm25.New(ctx, pool)
	if err != nil {
		return nil, err
	}
	logger.Debug("Lexical index: %d passages", lexical.Len())

	retriever, err := services.NewHybridRetriever(lexical, semantic,
		settings.Retrieval.WeightLexical, settings.Retrieval.WeightSemantic)
	if err != nil {
		return nil, err
	}

	nodes, err := services.NewInterpretationNodes(llm, rt.Prompts, retriever, services.NodesConfig{
		K:           settings.Retrieval.K,
		CallTimeout: settings.Engine.CallTimeout,
	})
	if err != nil {
		return nil, err
	}
	graph, err := services.NewInterpretationGraph(nodes)
	if err != nil {
		return nil, err
	}

	rt.Registry = prometheus.NewRegistry()
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(rt.Registry)
	if err != nil {
		return nil, err
	}

	rt.Engine = services.NewEngine(graph,
		services.WithMaxSteps(settings.Engine.MaxSteps),
		services.WithObserver(services.MultiObserver{services.LogObserver{}, m}),
	)
	rt.Analysis = services.NewAnalysisService(rt.Engine)
	rt.Analysis.SetRecorder(m)

	if settings.Cache.Enabled() {
		cache, cacheErr := rediscache.New(ctx, settings.Cache.RedisURL)
		if cacheErr != nil {
			logger.Warn("Answer cache disabled: %v", cacheErr)
		} else {
			rt.closers = append(rt.closers, cache.Close)
			rt.Analysis.SetCache(cache, settings.Cache.TTL)
			logger.Debug("Answer cache: redis (ttl %s)", settings.Cache.TTL)
		}
	}

	built = true
	return rt, nil
}

// openPool opens the configured passage pool and its semantic ranker.
func (rt *Runtime) openPool(
	ctx context.Context,
	settings *domain.AppSettings,
	opts Options,
	embedder driven.EmbeddingService,
) (driven.PassageStore, driven.Ranker, error) {
	switch settings.Retrieval.Backend {
	case domain.SemanticBackendPostgres:
		if settings.Pool.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("%w: pool.database_url is required for the postgres backend", domain.ErrConfig)
		}
		store, err := postgres.Open(ctx, settings.Pool.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		logger.Debug("Pool: postgres")
		return store, store.SemanticRanker(embedder), nil

	default:
		path := PoolPath(settings, opts.ConfigDir)
		store, err := sqlite.OpenPassageStore(path)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		logger.Debug("Pool: %s", path)

		semantic, err := flat.New(ctx, store, embedder)
		if err != nil {
			return nil, nil, err
		}
		return store, semantic, nil
	}
}

// PoolPath returns the SQLite pool location: the configured path, or the
// default file inside configDir.
func PoolPath(settings *domain.AppSettings, configDir string) string {
	if settings.Pool.Path != "" {
		return settings.Pool.Path
	}
	return filepath.Join(configDir, domain.DefaultPoolFilename)
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
