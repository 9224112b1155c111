package store

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"

	"stockdash/internal/apiclient"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Get(ctx context.Context, path string, query url.Values, out any) error {
	return m.Called(ctx, path, query, out).Error(0)
}

func (m *MockRequester) Post(ctx context.Context, path string, body, out any) error {
	return m.Called(ctx, path, body, out).Error(0)
}

func (m *MockRequester) Put(ctx context.Context, path string, body, out any) error {
	return m.Called(ctx, path, body, out).Error(0)
}

func (m *MockRequester) Delete(ctx context.Context, path string, out any) error {
	return m.Called(ctx, path, out).Error(0)
}

// respond decodes body into the call's out argument, which is always last.
func respond(t *testing.T, body string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		out := args.Get(len(args) - 1)
		if out == nil {
			return
		}
		require.NoError(t, json.Unmarshal([]byte(body), out))
	}
}

func serverError() error {
	return &apiclient.NetworkError{Kind: apiclient.KindStatus, Method: "GET", URL: "http://backend/api", StatusCode: 500, Message: "boom"}
}

// gatedRequester blocks every GET until the test releases its path.
type gatedRequester struct {
	mu      sync.Mutex
	gates   map[string]chan string
	started chan string
}

func newGatedRequester() *gatedRequester {
	return &gatedRequester{gates: make(map[string]chan string), started: make(chan string, 8)}
}

func (g *gatedRequester) gate(path string) chan string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[path]
	if !ok {
		ch = make(chan string, 1)
		g.gates[path] = ch
	}
	return ch
}

func (g *gatedRequester) release(path, body string) {
	g.gate(path) <- body
}

func (g *gatedRequester) Get(ctx context.Context, path string, _ url.Values, out any) error {
	g.started <- path
	select {
	case body := <-g.gate(path):
		return json.Unmarshal([]byte(body), out)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedRequester) Post(context.Context, string, any, any) error { return nil }
func (g *gatedRequester) Put(context.Context, string, any, any) error { return nil }
func (g *gatedRequester) Delete(context.Context, string, any) error { return nil }
