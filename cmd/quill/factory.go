package main

import (
	"fmt"

	"github.com/quillworks/quill/internal/config"
	"github.com/quillworks/quill/internal/document"
	"github.com/quillworks/quill/internal/orchestrator"
	"github.com/quillworks/quill/internal/papers"
	"github.com/quillworks/quill/internal/provider"
	"github.com/quillworks/quill/internal/review"
	"github.com/quillworks/quill/internal/store"
)

// buildProvider creates the configured text-generation backend, wrapped
// with retry on transient failures.
func buildProvider(cfg *config.Config, tracker *provider.TokenTracker) (provider.Provider, error) {
	var (
		p   provider.Provider
		err error
	)

	switch cfg.Provider.Name {
	case config.ProviderAnthropic:
		p, err = provider.NewAnthropic(provider.AnthropicConfig{
			Model:  cfg.Provider.Model,
			APIKey: cfg.Provider.APIKey,
		}, tracker)
	case config.ProviderBedrock:
		p, err = provider.NewAnthropic(provider.AnthropicConfig{
			Model:      cfg.Provider.Model,
			UseBedrock: true,
			AWSRegion:  cfg.Provider.AWSRegion,
			AWSProfile: cfg.Provider.AWSProfile,
		}, tracker)
	case config.ProviderOpenAI:
		p, err = provider.NewOpenAI(provider.OpenAIConfig{
			Model:  cfg.Provider.Model,
			APIKey: cfg.Provider.APIKey,
		}, tracker)
	default:
		return nil, fmt.Errorf("unknown provider %q: want anthropic, openai, or bedrock", cfg.Provider.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider.Name, err)
	}

	return provider.WithRetry(p, provider.RetryConfig{
		Attempts:  cfg.Retry.Attempts,
		BaseDelay: cfg.Retry.BaseDelay,
	}), nil
}

// workspace bundles everything a workflow run needs.
type workspace struct {
	cfg     *config.Config
	tracker *provider.TokenTracker
	orch    *orchestrator.Orchestrator
	store   *store.Store
	papers  *papers.Store
}

// openWorkspace loads config, builds the provider and stores, and wires
// an orchestrator with the literature review domain installed.
// eventBuffer > 0 enables the orchestrator event channel for TUI runs.
func openWorkspace(eventBuffer int) (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tracker := provider.NewTokenTracker()
	prov, err := buildProvider(cfg, tracker)
	if err != nil {
		return nil, err
	}

	wfStore := store.New(cfg.WorkflowsDir())

	paperStore, err := papers.Open(papers.DBPath(cfg.PapersDir()))
	if err != nil {
		return nil, fmt.Errorf("open paper store: %w", err)
	}

	docs, err := document.NewGenerator(cfg.OutputDir(), cfg.Output.Formats)
	if err != nil {
		paperStore.Close()
		return nil, fmt.Errorf("create document generator: %w", err)
	}

	orch := orchestrator.New(orchestrator.Config{
		Provider:    prov,
		Store:       wfStore,
		Tokens:      tracker,
		EventBuffer: eventBuffer,
	})

	pol, err := review.New(review.Config{
		Provider:  prov,
		Papers:    paperStore,
		Documents: docs,
		PapersDir: cfg.PapersDir(),
	})
	if err != nil {
		paperStore.Close()
		return nil, fmt.Errorf("install literature review domain: %w", err)
	}
	pol.Install(orch)

	return &workspace{
		cfg:     cfg,
		tracker: tracker,
		orch:    orch,
		store:   wfStore,
		papers:  paperStore,
	}, nil
}

// Close releases the workspace resources.
func (w *workspace) Close() {
	if w.papers != nil {
		w.papers.Close()
	}
}

// openPapers opens just the paper store, for the papers subcommands.
func openPapers() (*papers.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	ps, err := papers.Open(papers.DBPath(cfg.PapersDir()))
	if err != nil {
		return nil, nil, fmt.Errorf("open paper store: %w", err)
	}
	return ps, cfg, nil
}
