package store

import (
	"context"
	"slices"

	"stockdash/internal/model"
	"stockdash/internal/observe"
)

// BacktestState is the snapshot of the last successful run. Summary, Points
// and Trades always come from the same response.
type BacktestState struct {
	Summary *model.BacktestSummary
	Points  []model.EquityPoint
	Trades  []model.Trade
	Busy    bool
}

func (s BacktestState) clone() BacktestState {
	if s.Summary != nil {
		sum := *s.Summary
		sum.Raw = slices.Clone(sum.Raw)
		s.Summary = &sum
	}
	s.Points = slices.Clone(s.Points)
	s.Trades = slices.Clone(s.Trades)
	return s
}

type BacktestStore struct {
	b      *base[BacktestState]
	client Requester
}

func NewBacktestStore(client Requester, opts ...Option) *BacktestStore {
	initial := BacktestState{Points: []model.EquityPoint{}, Trades: []model.Trade{}}
	return &BacktestStore{
		b:      newBase("backtest", initial, func(s *BacktestState) *bool { return &s.Busy }, BacktestState.clone, opts),
		client: client,
	}
}

func (s *BacktestStore) State() BacktestState { return s.b.snapshot() }

func (s *BacktestStore) Busy() bool { return s.b.isBusy() }

func (s *BacktestStore) Version() uint64 { return s.b.currentVersion() }

func (s *BacktestStore) Subscribe() (<-chan observe.Signal[BacktestState], observe.CancelFunc) {
	return s.b.subscribe()
}

// RunBacktest posts req and stores summary, points and trades of the
// response together. The whole response is returned.
func (s *BacktestStore) RunBacktest(ctx context.Context, req model.BacktestRequest) (model.BacktestResult, error) {
	return runAction(ctx, s.b,
		actionSpec{
			name:   "run_backtest",
			params: map[string]any{"strategy_id": req.StrategyID, "stock_code": req.StockCode},
			fields: []string{"Summary", "Points", "Trades"},
		},
		func(ctx context.Context) (model.BacktestResult, error) {
			var res model.BacktestResult
			err := s.client.Post(ctx, "/backtest", req, &res)
			return res, err
		},
		func(st *BacktestState, res model.BacktestResult) {
			st.Summary = res.Summary
			st.Points = nonNil(res.Points)
			st.Trades = nonNil(res.Trades)
		},
	)
}

func (s *BacktestStore) close() { s.b.close() }
