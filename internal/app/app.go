package app

import (
	"context"
	"errors"
	"fmt"

	"stockdash/internal/apiclient"
	"stockdash/internal/config"
	"stockdash/internal/journal"
	"stockdash/internal/logger"
	"stockdash/internal/store"
	"stockdash/internal/strategyparams"
	viewhttp "stockdash/internal/transport/http/view"

	"golang.org/x/sync/errgroup"
)

// App wires config, backend client, stores, journal and the view server.
type App struct {
	cfg      *config.Config
	client   *apiclient.Client
	registry *store.Registry
	journal  *journal.Journal
	params   *strategyparams.Validator
	server   *viewhttp.Server
	Summary  *StartupSummary
}

// NewApp builds the application without starting anything.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return NewAppBuilder(cfg).Build(ctx)
}

// Run loads the initial stock and strategy lists and serves the view server
// until ctx is cancelled. A failed initial load is logged, not fatal.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.server == nil {
		return fmt.Errorf("view server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("view server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := a.registry.Refresh(ctx); err != nil {
			logger.Warnf("initial refresh failed: %v", err)
		}
		return nil
	})
	return group.Wait()
}

// Close ends store subscriptions and flushes the journal.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.registry != nil {
		a.registry.Close()
	}
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	return errors.Join(errs...)
}

func (a *App) Client() *apiclient.Client { return a.client }

func (a *App) Registry() *store.Registry { return a.registry }

// Journal is nil when journaling is disabled.
func (a *App) Journal() *journal.Journal { return a.journal }

func (a *App) Params() *strategyparams.Validator { return a.params }

func (a *App) Server() *viewhttp.Server { return a.server }
