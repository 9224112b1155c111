package viewhttp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stockdash/internal/apiclient"
	"stockdash/internal/config"
	"stockdash/internal/journal"
	"stockdash/internal/store"
	"stockdash/internal/strategyparams"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend mimics the dashboard backend, including its untagged
// PascalCase record fields.
type fakeBackend struct {
	srv          *httptest.Server
	createCalls  atomic.Int32
	backtestFail atomic.Bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fb := &fakeBackend{}
	r := gin.New()
	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	api.GET("/stocks", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"ID": 1, "Code": "AAPL", "Name": "Apple"}})
	})
	api.GET("/stocks/:code/klines", func(c *gin.Context) {
		assert.Equal(t, "1d", c.Query("interval"))
		assert.Equal(t, "200", c.Query("limit"))
		c.JSON(http.StatusOK, []gin.H{
			{"StockCode": c.Param("code"), "Close": 10.0},
			{"StockCode": c.Param("code"), "Close": 12.0},
			{"StockCode": c.Param("code"), "Close": 14.0},
		})
	})
	api.GET("/strategies", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"ID": 1, "Name": "old", "Type": "ma_crossover"}})
	})
	api.POST("/strategies", func(c *gin.Context) {
		fb.createCalls.Add(1)
		var body map[string]any
		assert.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"ID": 2, "Name": body["name"], "Type": body["type"], "ParamsJSON": body["params_json"]})
	})
	api.GET("/strategies/:id", func(c *gin.Context) {
		if c.Param("id") != "1" {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ID": 1, "Name": "old-reloaded", "Type": "ma_crossover"})
	})
	api.PUT("/strategies/:id", func(c *gin.Context) {
		var body map[string]any
		assert.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"ID": 1, "Name": body["name"]})
	})
	api.DELETE("/strategies/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	api.POST("/backtest", func(c *gin.Context) {
		if fb.backtestFail.Load() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no klines for stock"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"summary": gin.H{"StrategyID": 1, "StockCode": "AAPL", "InitialCapital": 100000, "FinalCapital": 101000, "ReturnPct": 0.01},
			"points":  []gin.H{{"time": "2024-01-02T00:00:00Z", "equity": 101000}},
			"trades":  []gin.H{{"time": "2024-01-02T00:00:00Z", "side": "buy", "price": 10.5, "shares": 100}},
		})
	})
	api.POST("/screen", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"stock": gin.H{"Code": "AAPL", "Name": "Apple"}, "reason": "golden cross"}})
	})
	api.GET("/slow", func(c *gin.Context) {
		time.Sleep(200 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

type fakeJournal struct{}

func (fakeJournal) Recent(_ context.Context, limit int) ([]journal.ActionRecord, error) {
	return []journal.ActionRecord{{ID: "x", Store: "stock", Action: "fetch_stocks", OK: true, DurationMS: int64(limit)}}, nil
}

func newTestServer(t *testing.T) (*Server, *store.Registry, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend(t)
	client, err := apiclient.NewWithBaseURL(fb.srv.URL+"/api", config.APIConfig{})
	require.NoError(t, err)
	reg := store.NewRegistry(client)
	t.Cleanup(reg.Close)
	params, err := strategyparams.New("")
	require.NoError(t, err)
	srv, err := NewServer(ServerConfig{Registry: reg, Health: client, Params: params, Journal: fakeJournal{}})
	require.NoError(t, err)
	return srv, reg, fb
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestNewServerRequiresRegistry(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestStocksAndKlines(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/api/state/stocks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["stocks"])

	w = do(t, h, http.MethodPost, "/api/actions/stocks", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["busy"])
	stocks := body["stocks"].([]any)
	require.Len(t, stocks, 1)
	assert.Equal(t, "AAPL", stocks[0].(map[string]any)["code"])

	w = do(t, h, http.MethodPost, "/api/actions/klines/AAPL?ma=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "AAPL", body["code"])
	assert.Len(t, body["klines"], 3)
	ma := body["ma"].(map[string]any)["2"].([]any)
	assert.InDelta(t, 13.0, ma[2].(float64), 1e-9)

	w = do(t, h, http.MethodGet, "/api/state/klines?ma=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStrategyActions(t *testing.T) {
	srv, reg, fb := newTestServer(t)
	h := srv.Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/actions/strategies/fetch", "").Code)

	w := do(t, h, http.MethodPost, "/api/actions/strategies", `{"name":"MA-cross","type":"ma_crossover","params_json":"{\"short_window\":0}"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, fb.createCalls.Load(), "invalid params never reach the backend")

	w = do(t, h, http.MethodPost, "/api/actions/strategies", `{"name":"MA-cross","type":"ma_crossover","params_json":"{\"short_window\":5,\"long_window\":20}"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["id"])

	list := reg.Strategies.State().Strategies
	require.Len(t, list, 2)
	assert.Equal(t, "MA-cross", list[0].Name)
	assert.Equal(t, "old", list[1].Name)

	w = do(t, h, http.MethodPost, "/api/actions/strategies", `{"name":"slow","type":"ma_crossover","params_json":"{\"short_window\":30}"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"short_window":30,"long_window":35}`, decode(t, w)["paramsJson"].(string))

	w = do(t, h, http.MethodPost, "/api/actions/strategies/1/fetch", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "old-reloaded", reg.Strategies.State().Strategies[2].Name)

	w = do(t, h, http.MethodPost, "/api/actions/strategies/42/fetch", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "record not found", decode(t, w)["error"])

	w = do(t, h, http.MethodPut, "/api/actions/strategies/1", `{"name":"renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "renamed", reg.Strategies.State().Strategies[2].Name)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/actions/strategies/0", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/actions/strategies/1", "").Code)
	assert.Len(t, reg.Strategies.State().Strategies, 2)
}

func TestBacktestAndScreen(t *testing.T) {
	srv, reg, fb := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/actions/backtest", `{"strategy_id":1,"stock_code":"AAPL","initial_capital":100000}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["points"], 1)
	assert.Equal(t, "0.01", body["summary"].(map[string]any)["returnPct"])
	assert.Equal(t, "1000", body["profit"])
	assert.Equal(t, "AAPL", body["summaryRaw"].(map[string]any)["StockCode"])
	trades := body["trades"].([]any)
	require.Len(t, trades, 1)
	assert.Equal(t, "1050", trades[0].(map[string]any)["notional"])
	assert.Equal(t, "buy", trades[0].(map[string]any)["side"])

	fb.backtestFail.Store(true)
	before := reg.Backtest.State()
	w = do(t, h, http.MethodPost, "/api/actions/backtest", `{"strategy_id":1,"stock_code":"AAPL","initial_capital":100000}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body = decode(t, w)
	assert.Equal(t, "status", body["kind"])
	assert.EqualValues(t, 500, body["status"])
	assert.Equal(t, "no klines for stock", body["error"])
	assert.Equal(t, before, reg.Backtest.State())

	w = do(t, h, http.MethodPost, "/api/actions/screen", `{"strategy_id":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/actions/screen", `{"strategy_id":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 3, body["strategyId"])
	assert.Len(t, body["results"], 1)
}

func TestHealthAndJournal(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["backend"])

	w = do(t, h, http.MethodGet, "/api/journal?limit=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	recs := decode(t, w)["records"].([]any)
	require.Len(t, recs, 1)
	assert.EqualValues(t, 7, recs[0].(map[string]any)["DurationMS"])
}

func TestTimeoutMapsToGatewayTimeout(t *testing.T) {
	fb := newFakeBackend(t)
	client, err := apiclient.NewWithBaseURL(fb.srv.URL+"/api", config.APIConfig{})
	require.NoError(t, err)
	client.SetHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", func(c *gin.Context) {
		writeActionError(c, client.Get(c.Request.Context(), "/slow", nil, nil))
	})
	w := do(t, r, http.MethodGet, "/probe", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "timeout", decode(t, w)["kind"])
}

func TestEventsStreamSignals(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	waitFor := func(match func(string) bool) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed")
				if match(line) {
					return
				}
			case <-deadline:
				t.Fatal("event not received")
			}
		}
	}

	waitFor(func(l string) bool { return l == "event:screen" })
	require.NoError(t, reg.Stocks.FetchStocks(context.Background()))
	waitFor(func(l string) bool { return strings.HasPrefix(l, "data:") && strings.Contains(l, "AAPL") })
}

func TestShutdownEndsEventStreams(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	drained := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		close(drained)
	}()

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("shutdown waited on the open event stream")
	}
	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("event stream still open after shutdown")
	}
}
