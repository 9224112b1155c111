package store

import (
	"context"
	"slices"

	"stockdash/internal/model"
	"stockdash/internal/observe"
)

type ScreenState struct {
	StrategyID uint
	Results    []model.ScreeningResult
	Busy       bool
}

func (s ScreenState) clone() ScreenState {
	s.Results = slices.Clone(s.Results)
	return s
}

// ScreenStore holds the stocks selected by the last screening run.
type ScreenStore struct {
	b      *base[ScreenState]
	client Requester
}

func NewScreenStore(client Requester, opts ...Option) *ScreenStore {
	initial := ScreenState{Results: []model.ScreeningResult{}}
	return &ScreenStore{
		b:      newBase("screen", initial, func(s *ScreenState) *bool { return &s.Busy }, ScreenState.clone, opts),
		client: client,
	}
}

func (s *ScreenStore) State() ScreenState { return s.b.snapshot() }

func (s *ScreenStore) Busy() bool { return s.b.isBusy() }

func (s *ScreenStore) Version() uint64 { return s.b.currentVersion() }

func (s *ScreenStore) Subscribe() (<-chan observe.Signal[ScreenState], observe.CancelFunc) {
	return s.b.subscribe()
}

func (s *ScreenStore) RunScreen(ctx context.Context, strategyID uint) ([]model.ScreeningResult, error) {
	if strategyID == 0 {
		return nil, ErrInvalidID
	}
	return runAction(ctx, s.b,
		actionSpec{name: "run_screen", params: map[string]any{"strategy_id": strategyID}, fields: []string{"StrategyID", "Results"}},
		func(ctx context.Context) ([]model.ScreeningResult, error) {
			var out []model.ScreeningResult
			if err := s.client.Post(ctx, "/screen", model.ScreenRequest{StrategyID: strategyID}, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
		func(st *ScreenState, out []model.ScreeningResult) {
			st.StrategyID = strategyID
			st.Results = nonNil(out)
		},
	)
}

func (s *ScreenStore) close() { s.b.close() }
