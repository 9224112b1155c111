package store

import (
	"context"
	"testing"

	"stockdash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScreenStore_RunScreen(t *testing.T) {
	ctx := context.Background()
	req := new(MockRequester)
	s := NewScreenStore(req)

	_, err := s.RunScreen(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.Zero(t, s.Version())

	req.On("Post", ctx, "/screen", model.ScreenRequest{StrategyID: 4}, mock.Anything).
		Run(respond(t, `[{"stock":{"code":"600519","name":"Moutai"},"reason":"golden cross","metrics":{"short":10.2,"long":9.8}}]`)).
		Return(nil).Once()
	out, err := s.RunScreen(ctx, 4)
	require.NoError(t, err)
	require.Len(t, out, 1)

	st := s.State()
	assert.Equal(t, uint(4), st.StrategyID)
	assert.Equal(t, out, st.Results)
	assert.Equal(t, "golden cross", st.Results[0].Reason)
	assert.False(t, st.Busy)

	req.On("Post", ctx, "/screen", model.ScreenRequest{StrategyID: 5}, mock.Anything).Return(serverError()).Once()
	_, err = s.RunScreen(ctx, 5)
	require.Error(t, err)
	assert.Equal(t, st, s.State())
	req.AssertExpectations(t)
}
