package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockdash/internal/apiclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Refresh(t *testing.T) {
	ctx := context.Background()
	req := new(MockRequester)
	r := NewRegistry(req)
	defer r.Close()

	req.On("Get", ctx, "/stocks", mock.Anything, mock.Anything).Run(respond(t, `[{"code":"AAPL","name":"Apple"}]`)).Return(nil).Once()
	req.On("Get", ctx, "/strategies", mock.Anything, mock.Anything).Run(respond(t, `[{"id":1,"name":"a"}]`)).Return(nil).Once()
	require.NoError(t, r.Refresh(ctx))
	assert.Len(t, r.Stocks.State().Stocks, 1)
	assert.Len(t, r.Strategies.State().Strategies, 1)
	req.AssertExpectations(t)
}

func TestRegistry_RefreshPartialFailure(t *testing.T) {
	ctx := context.Background()
	req := new(MockRequester)
	r := NewRegistry(req)
	defer r.Close()

	failure := serverError()
	req.On("Get", ctx, "/stocks", mock.Anything, mock.Anything).Return(failure).Once()
	req.On("Get", ctx, "/strategies", mock.Anything, mock.Anything).Run(respond(t, `[{"id":1,"name":"a"}]`)).Return(nil).Once()

	err := r.Refresh(ctx)
	assert.Same(t, failure, err)
	assert.Len(t, r.Strategies.State().Strategies, 1, "the other store still commits")
	assert.False(t, r.Stocks.Busy())
	assert.False(t, r.Strategies.Busy())
}

func TestRegistry_CloseEndsSubscriptions(t *testing.T) {
	r := NewRegistry(new(MockRequester))
	ch, _ := r.Backtest.Subscribe()
	r.Close()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestHooksReceiveSettledActions(t *testing.T) {
	ctx := context.Background()
	req := new(MockRequester)
	var events []ActionEvent
	var s *StockStore
	s = NewStockStore(req, WithHooks(func(ev ActionEvent) {
		assert.False(t, s.Busy(), "hooks run after busy is cleared")
		events = append(events, ev)
	}, nil))

	req.On("Get", ctx, "/stocks", mock.Anything, mock.Anything).Run(respond(t, `[]`)).Return(nil).Once()
	req.On("Get", ctx, "/stocks/AAPL/klines", mock.Anything, mock.Anything).Return(serverError()).Once()
	require.NoError(t, s.FetchStocks(ctx))
	require.Error(t, s.FetchKlines(ctx, "AAPL"))

	require.Len(t, events, 2)
	assert.Equal(t, "stock", events[0].Store)
	assert.Equal(t, "fetch_stocks", events[0].Action)
	assert.NotEmpty(t, events[0].ID)
	assert.NoError(t, events[0].Err)
	assert.Equal(t, "fetch_klines", events[1].Action)
	assert.Equal(t, "AAPL", events[1].Params["code"])
	assert.True(t, apiclient.IsStatus(events[1].Err, 500))
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestActionEventDuration(t *testing.T) {
	ctx := context.Background()
	req := new(MockRequester)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var got ActionEvent
	s := NewScreenStore(req, WithHooks(func(ev ActionEvent) { got = ev }), func(o *options) {
		o.now = func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}
	})
	req.On("Post", ctx, "/screen", mock.Anything, mock.Anything).Return(context.DeadlineExceeded).Once()
	_, err := s.RunScreen(ctx, 1)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, time.Second, got.Duration)
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestLogHookHandlesBothOutcomes(t *testing.T) {
	assert.NotPanics(t, func() {
		LogHook(ActionEvent{Store: "stock", Action: "fetch_stocks"})
		LogHook(ActionEvent{Store: "stock", Action: "fetch_stocks", Err: serverError()})
		LogHook(ActionEvent{Store: "stock", Action: "fetch_stocks", Err: errors.New("plain")})
	})
}

func TestPanickingCallIsReportedAsFailure(t *testing.T) {
	ctx := context.Background()
	req := new(MockRequester)
	var events []ActionEvent
	s := NewStockStore(req, WithHooks(func(ev ActionEvent) { events = append(events, ev) }))
	before := s.State()

	req.On("Get", ctx, "/stocks", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("decoder exploded") }).Return(nil).Once()
	assert.PanicsWithValue(t, "decoder exploded", func() { _ = s.FetchStocks(ctx) })

	assert.False(t, s.Busy())
	assert.Equal(t, before.Stocks, s.State().Stocks)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrActionPanicked)
	assert.Contains(t, events[0].Err.Error(), "decoder exploded")
}
