package store

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Registry groups the stores of one dashboard session. Build it once per
// process and pass it to consumers.
type Registry struct {
	Stocks     *StockStore
	Strategies *StrategyStore
	Backtest   *BacktestStore
	Screen     *ScreenStore
}

func NewRegistry(client Requester, opts ...Option) *Registry {
	return &Registry{
		Stocks:     NewStockStore(client, opts...),
		Strategies: NewStrategyStore(client, opts...),
		Backtest:   NewBacktestStore(client, opts...),
		Screen:     NewScreenStore(client, opts...),
	}
}

// Refresh loads the stock list and the strategies concurrently. They belong
// to different stores, so the two actions never race on the same state. A
// failure of one does not cancel the other; the first error is returned.
func (r *Registry) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return r.Stocks.FetchStocks(ctx) })
	g.Go(func() error { return r.Strategies.FetchStrategies(ctx) })
	return g.Wait()
}

// Close ends every subscription of every store.
func (r *Registry) Close() {
	r.Stocks.close()
	r.Strategies.close()
	r.Backtest.close()
	r.Screen.close()
}
