package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"stockdash/internal/apiclient"
	"stockdash/internal/config"
	"stockdash/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.GET("/stocks", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"Code": "600519", "Name": "Moutai"}})
	})
	api.GET("/strategies", func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db down"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	t.Setenv(config.EnvAPIBase, "")
	cfg := config.Default()
	cfg.API.BaseURL = backend + "/api"
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	return cfg
}

func TestBuildWiresStoresJournalAndHooks(t *testing.T) {
	backend := newBackend(t)
	cfg := testConfig(t, backend.URL)

	var events []store.ActionEvent
	a, err := NewAppBuilder(cfg, WithStoreHooks(func(ev store.ActionEvent) { events = append(events, ev) })).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, backend.URL+"/api", a.Client().BaseURL())
	assert.Equal(t, config.BaseURLFromConfig, a.Summary.BaseURLSource)
	require.NotNil(t, a.Journal())
	require.NotNil(t, a.Server())

	ctx := context.Background()
	require.NoError(t, a.Registry().Stocks.FetchStocks(ctx))
	require.Error(t, a.Registry().Strategies.FetchStrategies(ctx))
	require.Len(t, events, 2)
	assert.Equal(t, "fetch_stocks", events[0].Action)

	assert.Eventually(t, func() bool {
		recs, err := a.Journal().Recent(ctx, 10)
		return err == nil && len(recs) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBuildWithoutJournal(t *testing.T) {
	backend := newBackend(t)
	cfg := testConfig(t, backend.URL)
	cfg.Journal.Enabled = false

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, a.Journal())
	assert.Empty(t, a.Summary.JournalPath)
	require.NoError(t, a.Close())
}

func TestBuildFailsOnClientError(t *testing.T) {
	cfg := config.Default()
	_, err := NewAppBuilder(cfg, WithClientFactory(func(config.APIConfig) (*apiclient.Client, error) {
		return nil, assert.AnError
	})).Build(context.Background())
	require.ErrorIs(t, err, assert.AnError)

	_, err = NewApp(context.Background(), nil)
	assert.Error(t, err)
}

func TestBuildFailsOnBadSchemaFile(t *testing.T) {
	backend := newBackend(t)
	cfg := testConfig(t, backend.URL)
	cfg.Strategy.SchemaPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunServesUntilCancelled(t *testing.T) {
	backend := newBackend(t)
	cfg := testConfig(t, backend.URL)
	cfg.App.HTTPAddr = "127.0.0.1:0"
	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	var out bytes.Buffer
	a.Summary.out = &out

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return len(a.Registry().Stocks.State().Stocks) == 1
	}, 2*time.Second, 10*time.Millisecond, "initial refresh loads stocks even though strategies fail")
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.Contains(t, out.String(), "STOCKDASH STARTUP SUMMARY")
	assert.Contains(t, out.String(), backend.URL)
}
