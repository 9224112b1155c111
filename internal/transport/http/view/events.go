package viewhttp

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// event is the SSE payload; the SSE event name is the store name.
type event struct {
	Version uint64   `json:"version"`
	Fields  []string `json:"fields,omitempty"`
	State   any      `json:"state"`
}

// handleEvents streams every store change. Each store's current state is sent
// first so a client can render without a separate state request.
func (r *Router) handleEvents(c *gin.Context) {
	stocks, cancelStocks := r.reg.Stocks.Subscribe()
	defer cancelStocks()
	strategies, cancelStrategies := r.reg.Strategies.Subscribe()
	defer cancelStrategies()
	backtest, cancelBacktest := r.reg.Backtest.Subscribe()
	defer cancelBacktest()
	screen, cancelScreen := r.reg.Screen.Subscribe()
	defer cancelScreen()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	sv, tv, bv, cv := r.reg.Stocks.Version(), r.reg.Strategies.Version(), r.reg.Backtest.Version(), r.reg.Screen.Version()
	c.SSEvent("stock", event{Version: sv, State: newStockStoreView(sv, r.reg.Stocks.State())})
	c.SSEvent("strategy", event{Version: tv, State: newStrategiesView(tv, r.reg.Strategies.State())})
	c.SSEvent("backtest", event{Version: bv, State: newBacktestView(bv, r.reg.Backtest.State())})
	c.SSEvent("screen", event{Version: cv, State: newScreenView(cv, r.reg.Screen.State())})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-r.stop:
			return false
		case sig, ok := <-stocks:
			if !ok {
				return false
			}
			c.SSEvent("stock", event{Version: sig.Version, Fields: sig.Fields, State: newStockStoreView(sig.Version, sig.State)})
		case sig, ok := <-strategies:
			if !ok {
				return false
			}
			c.SSEvent("strategy", event{Version: sig.Version, Fields: sig.Fields, State: newStrategiesView(sig.Version, sig.State)})
		case sig, ok := <-backtest:
			if !ok {
				return false
			}
			c.SSEvent("backtest", event{Version: sig.Version, Fields: sig.Fields, State: newBacktestView(sig.Version, sig.State)})
		case sig, ok := <-screen:
			if !ok {
				return false
			}
			c.SSEvent("screen", event{Version: sig.Version, Fields: sig.Fields, State: newScreenView(sig.Version, sig.State)})
		}
		return true
	})
}
