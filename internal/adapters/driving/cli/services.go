package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/htp-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/htp-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/htp-rag/internal/app"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driving"
	"github.com/custodia-labs/htp-rag/internal/core/services"
	"github.com/custodia-labs/htp-rag/internal/logger"
)

// Services used by commands. Tests inject mocks; otherwise they are built
// on first use from the config directory.
var (
	settingsService driving.SettingsService
	analysisService driving.AnalysisService
	promptCatalog   driven.PromptCatalog
	metricsGatherer prometheus.Gatherer

	appRuntime *app.Runtime
)

func resolveConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, domain.DefaultConfigDirName), nil
}

func requireSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	dir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, err
	}
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	return settingsService, nil
}

func requireAnalysis(ctx context.Context) (driving.AnalysisService, error) {
	if analysisService != nil {
		return analysisService, nil
	}
	svc, err := requireSettings()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, err
	}
	dir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}

	rt, err := app.Build(ctx, settings, app.Options{ConfigDir: dir})
	if err != nil {
		return nil, withHint(err)
	}
	appRuntime = rt
	analysisService = rt.Analysis
	promptCatalog = rt.Prompts
	metricsGatherer = rt.Registry
	return analysisService, nil
}

func requirePrompts() (driven.PromptCatalog, error) {
	if promptCatalog != nil {
		return promptCatalog, nil
	}
	svc, err := requireSettings()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, err
	}
	catalog, err := file.LoadPromptCatalog(settings.PromptsPath)
	if err != nil {
		return nil, err
	}
	promptCatalog = catalog
	return promptCatalog, nil
}

func closeServices() {
	if appRuntime == nil {
		return
	}
	if err := appRuntime.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
	appRuntime = nil
}

// withHint appends a remedy to startup errors a user can fix.
func withHint(err error) error {
	switch {
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return hintError{err, "set pool.path in config.toml or HTP_POOL_PATH to an existing passage pool"}
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return hintError{err, "run 'htp settings show' to check the AI providers"}
	default:
		return err
	}
}

type hintError struct {
	err  error
	hint string
}

func (e hintError) Error() string { return e.err.Error() + "\n" + e.hint }
func (e hintError) Unwrap() error { return e.err }
