package store

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"stockdash/internal/model"
	"stockdash/internal/observe"
)

// Kline query parameters sent with every FetchKlines call.
const (
	KlineInterval = "1d"
	KlineLimit    = 200
)

type StockState struct {
	Stocks []model.Stock
	Klines []model.Kline
	// KlineCode is the code whose series Klines currently holds.
	KlineCode string
	Busy      bool
}

func (s StockState) clone() StockState {
	s.Stocks = slices.Clone(s.Stocks)
	s.Klines = slices.Clone(s.Klines)
	return s
}

// StockStore holds the stock list and the kline series of one stock.
type StockStore struct {
	b      *base[StockState]
	client Requester
}

func NewStockStore(client Requester, opts ...Option) *StockStore {
	initial := StockState{Stocks: []model.Stock{}, Klines: []model.Kline{}}
	return &StockStore{
		b:      newBase("stock", initial, func(s *StockState) *bool { return &s.Busy }, StockState.clone, opts),
		client: client,
	}
}

// State returns a copy of the current state.
func (s *StockStore) State() StockState { return s.b.snapshot() }

func (s *StockStore) Busy() bool { return s.b.isBusy() }

func (s *StockStore) Version() uint64 { return s.b.currentVersion() }

func (s *StockStore) Subscribe() (<-chan observe.Signal[StockState], observe.CancelFunc) {
	return s.b.subscribe()
}

// FetchStocks replaces Stocks with the backend's list, in response order.
func (s *StockStore) FetchStocks(ctx context.Context) error {
	_, err := runAction(ctx, s.b,
		actionSpec{name: "fetch_stocks", fields: []string{"Stocks"}},
		func(ctx context.Context) ([]model.Stock, error) {
			var out []model.Stock
			if err := s.client.Get(ctx, "/stocks", nil, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
		func(st *StockState, out []model.Stock) {
			st.Stocks = nonNil(out)
		},
	)
	return err
}

// FetchKlines replaces Klines with the daily series of code. A blank code is
// a no-op: no call, no busy toggle, no state change.
func (s *StockStore) FetchKlines(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	_, err := runAction(ctx, s.b,
		actionSpec{name: "fetch_klines", params: map[string]any{"code": code}, fields: []string{"Klines", "KlineCode"}},
		func(ctx context.Context) ([]model.Kline, error) {
			query := url.Values{
				"interval": {KlineInterval},
				"limit":    {strconv.Itoa(KlineLimit)},
			}
			var out []model.Kline
			if err := s.client.Get(ctx, "/stocks/"+url.PathEscape(code)+"/klines", query, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
		func(st *StockState, out []model.Kline) {
			st.Klines = nonNil(out)
			st.KlineCode = code
		},
	)
	return err
}

func (s *StockStore) close() { s.b.close() }

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
