package store

import (
	"context"
	"fmt"
	"slices"

	"stockdash/internal/model"
	"stockdash/internal/observe"
)

type StrategyState struct {
	// Strategies is most-recent-first for entries created in this session.
	Strategies []model.Strategy
	Busy       bool
}

func (s StrategyState) clone() StrategyState {
	s.Strategies = slices.Clone(s.Strategies)
	return s
}

type StrategyStore struct {
	b      *base[StrategyState]
	client Requester
}

func NewStrategyStore(client Requester, opts ...Option) *StrategyStore {
	initial := StrategyState{Strategies: []model.Strategy{}}
	return &StrategyStore{
		b:      newBase("strategy", initial, func(s *StrategyState) *bool { return &s.Busy }, StrategyState.clone, opts),
		client: client,
	}
}

func (s *StrategyStore) State() StrategyState { return s.b.snapshot() }

func (s *StrategyStore) Busy() bool { return s.b.isBusy() }

func (s *StrategyStore) Version() uint64 { return s.b.currentVersion() }

func (s *StrategyStore) Subscribe() (<-chan observe.Signal[StrategyState], observe.CancelFunc) {
	return s.b.subscribe()
}

func (s *StrategyStore) FetchStrategies(ctx context.Context) error {
	_, err := runAction(ctx, s.b,
		actionSpec{name: "fetch_strategies", fields: []string{"Strategies"}},
		func(ctx context.Context) ([]model.Strategy, error) {
			var out []model.Strategy
			if err := s.client.Get(ctx, "/strategies", nil, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
		func(st *StrategyState, out []model.Strategy) {
			st.Strategies = nonNil(out)
		},
	)
	return err
}

// CreateStrategy posts payload and puts the created record in front of the
// existing ones. The record is returned as the backend sent it.
func (s *StrategyStore) CreateStrategy(ctx context.Context, payload model.StrategyPayload) (model.Strategy, error) {
	return runAction(ctx, s.b,
		actionSpec{name: "create_strategy", params: map[string]any{"name": payload.Name, "type": payload.Type}, fields: []string{"Strategies"}},
		func(ctx context.Context) (model.Strategy, error) {
			var created model.Strategy
			err := s.client.Post(ctx, "/strategies", payload, &created)
			return created, err
		},
		func(st *StrategyState, created model.Strategy) {
			next := make([]model.Strategy, 0, len(st.Strategies)+1)
			next = append(next, created)
			st.Strategies = append(next, st.Strategies...)
		},
	)
}

// UpdateStrategy replaces the entry with the same id in place. When no such
// entry is loaded the collection is left as is.
func (s *StrategyStore) UpdateStrategy(ctx context.Context, id uint, payload model.StrategyPayload) (model.Strategy, error) {
	if id == 0 {
		return model.Strategy{}, ErrInvalidID
	}
	return runAction(ctx, s.b,
		actionSpec{name: "update_strategy", params: map[string]any{"id": id}, fields: []string{"Strategies"}},
		func(ctx context.Context) (model.Strategy, error) {
			var updated model.Strategy
			err := s.client.Put(ctx, fmt.Sprintf("/strategies/%d", id), payload, &updated)
			return updated, err
		},
		func(st *StrategyState, updated model.Strategy) { st.replace(id, updated) },
	)
}

// FetchStrategy reloads one strategy and replaces the loaded entry with the
// same id. Like UpdateStrategy it never adds an entry.
func (s *StrategyStore) FetchStrategy(ctx context.Context, id uint) (model.Strategy, error) {
	if id == 0 {
		return model.Strategy{}, ErrInvalidID
	}
	return runAction(ctx, s.b,
		actionSpec{name: "fetch_strategy", params: map[string]any{"id": id}, fields: []string{"Strategies"}},
		func(ctx context.Context) (model.Strategy, error) {
			var out model.Strategy
			err := s.client.Get(ctx, fmt.Sprintf("/strategies/%d", id), nil, &out)
			return out, err
		},
		func(st *StrategyState, out model.Strategy) { st.replace(id, out) },
	)
}

func (s *StrategyState) replace(id uint, rec model.Strategy) {
	if rec.ID == 0 {
		rec.ID = id
	}
	idx := slices.IndexFunc(s.Strategies, func(x model.Strategy) bool { return x.ID == id })
	if idx < 0 {
		return
	}
	next := slices.Clone(s.Strategies)
	next[idx] = rec
	s.Strategies = next
}

func (s *StrategyStore) DeleteStrategy(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidID
	}
	_, err := runAction(ctx, s.b,
		actionSpec{name: "delete_strategy", params: map[string]any{"id": id}, fields: []string{"Strategies"}},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.client.Delete(ctx, fmt.Sprintf("/strategies/%d", id), nil)
		},
		func(st *StrategyState, _ struct{}) {
			st.Strategies = slices.DeleteFunc(slices.Clone(st.Strategies), func(x model.Strategy) bool { return x.ID == id })
		},
	)
	return err
}

func (s *StrategyStore) close() { s.b.close() }
