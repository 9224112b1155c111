package app

import (
	"context"
	"fmt"
	"os"

	"stockdash/internal/apiclient"
	"stockdash/internal/config"
	"stockdash/internal/journal"
	"stockdash/internal/store"
	"stockdash/internal/strategyparams"
	viewhttp "stockdash/internal/transport/http/view"
)

// AppBuilder assembles an App. Factories can be replaced in tests.
type AppBuilder struct {
	cfg *config.Config

	clientFn  func(config.APIConfig) (*apiclient.Client, error)
	journalFn func(config.JournalConfig) (*journal.Journal, error)
	paramsFn  func(config.StrategyConfig) (*strategyparams.Validator, error)
	serverFn  func(viewhttp.ServerConfig) (*viewhttp.Server, error)

	extraHooks []store.Hook
}

type AppBuilderOption func(*AppBuilder)

// WithClientFactory replaces the backend client constructor.
func WithClientFactory(fn func(config.APIConfig) (*apiclient.Client, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.clientFn = fn
		}
	}
}

// WithStoreHooks adds hooks on top of logging and journaling.
func WithStoreHooks(hooks ...store.Hook) AppBuilderOption {
	return func(b *AppBuilder) {
		b.extraHooks = append(b.extraHooks, hooks...)
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		clientFn:  apiclient.New,
		journalFn: openJournal,
		paramsFn:  loadParams,
		serverFn:  viewhttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("app builder requires config")
	}
	cfg := b.cfg
	client, err := b.clientFn(cfg.API)
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}
	jr, err := b.journalFn(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	hooks := []store.Hook{store.LogHook}
	if jr != nil {
		hooks = append(hooks, jr.Hook())
	}
	hooks = append(hooks, b.extraHooks...)
	registry := store.NewRegistry(client, store.WithHooks(hooks...))

	params, err := b.paramsFn(cfg.Strategy)
	if err != nil {
		registry.Close()
		_ = jr.Close()
		return nil, fmt.Errorf("load strategy params schema: %w", err)
	}

	serverCfg := viewhttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Registry: registry,
		Health:   client,
		Params:   params,
	}
	if jr != nil {
		serverCfg.Journal = jr
	}
	server, err := b.serverFn(serverCfg)
	if err != nil {
		registry.Close()
		_ = jr.Close()
		return nil, fmt.Errorf("build view server: %w", err)
	}

	_, source := cfg.API.ResolveBaseURL(os.Getenv)
	return &App{
		cfg:      cfg,
		client:   client,
		registry: registry,
		journal:  jr,
		params:   params,
		server:   server,
		Summary:  newStartupSummary(cfg, client.BaseURL(), source, params.Types()),
	}, nil
}

func openJournal(cfg config.JournalConfig) (*journal.Journal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return journal.Open(cfg.Path)
}

func loadParams(cfg config.StrategyConfig) (*strategyparams.Validator, error) {
	return strategyparams.New(cfg.SchemaPath)
}
