package viewhttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"stockdash/internal/indicator"
	"stockdash/internal/logger"
	"stockdash/internal/model"
	"stockdash/internal/store"
	"stockdash/internal/strategyparams"

	"github.com/gin-gonic/gin"
)

const (
	defaultJournalLimit = 50
	maxOverlayPeriods   = 5
)

// Router binds the store registry to HTTP routes.
type Router struct {
	reg     *store.Registry
	health  HealthChecker
	params  *strategyparams.Validator
	journal JournalReader
	// stop ends open event streams when closed. Nil never fires.
	stop <-chan struct{}
}

func NewRouter(cfg ServerConfig) *Router {
	return &Router{reg: cfg.Registry, health: cfg.Health, params: cfg.Params, journal: cfg.Journal}
}

// Register mounts the state, action and event routes on group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	state := group.Group("/state")
	state.GET("/stocks", r.handleStocksState)
	state.GET("/klines", r.handleKlinesState)
	state.GET("/strategies", r.handleStrategiesState)
	state.GET("/backtest", r.handleBacktestState)
	state.GET("/screen", r.handleScreenState)

	actions := group.Group("/actions")
	actions.POST("/stocks", r.handleFetchStocks)
	actions.POST("/klines/:code", r.handleFetchKlines)
	actions.POST("/strategies/fetch", r.handleFetchStrategies)
	actions.POST("/strategies", r.handleCreateStrategy)
	actions.POST("/strategies/:id/fetch", r.handleFetchStrategy)
	actions.PUT("/strategies/:id", r.handleUpdateStrategy)
	actions.DELETE("/strategies/:id", r.handleDeleteStrategy)
	actions.POST("/backtest", r.handleRunBacktest)
	actions.POST("/screen", r.handleRunScreen)

	group.GET("/events", r.handleEvents)
	group.GET("/health", r.handleHealth)
	if r.journal != nil {
		group.GET("/journal", r.handleJournal)
	}
}

func (r *Router) handleStocksState(c *gin.Context) {
	s := r.reg.Stocks
	c.JSON(http.StatusOK, newStocksView(s.Version(), s.State()))
}

func (r *Router) handleKlinesState(c *gin.Context) {
	periods, err := parsePeriods(c.Query("ma"))
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	s := r.reg.Stocks
	view := newKlinesView(s.Version(), s.State())
	if len(periods) > 0 {
		view.MA = indicator.Overlay(view.Klines, periods)
	}
	c.JSON(http.StatusOK, view)
}

func (r *Router) handleStrategiesState(c *gin.Context) {
	s := r.reg.Strategies
	c.JSON(http.StatusOK, newStrategiesView(s.Version(), s.State()))
}

func (r *Router) handleBacktestState(c *gin.Context) {
	s := r.reg.Backtest
	c.JSON(http.StatusOK, newBacktestView(s.Version(), s.State()))
}

func (r *Router) handleScreenState(c *gin.Context) {
	s := r.reg.Screen
	c.JSON(http.StatusOK, newScreenView(s.Version(), s.State()))
}

func (r *Router) handleFetchStocks(c *gin.Context) {
	if err := r.reg.Stocks.FetchStocks(c.Request.Context()); err != nil {
		writeActionError(c, err)
		return
	}
	r.handleStocksState(c)
}

func (r *Router) handleFetchKlines(c *gin.Context) {
	if err := r.reg.Stocks.FetchKlines(c.Request.Context(), c.Param("code")); err != nil {
		writeActionError(c, err)
		return
	}
	r.handleKlinesState(c)
}

func (r *Router) handleFetchStrategies(c *gin.Context) {
	if err := r.reg.Strategies.FetchStrategies(c.Request.Context()); err != nil {
		writeActionError(c, err)
		return
	}
	r.handleStrategiesState(c)
}

func (r *Router) handleCreateStrategy(c *gin.Context) {
	var payload model.StrategyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeBadRequest(c, err)
		return
	}
	payload, err := r.checkPayload(payload)
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	created, err := r.reg.Strategies.CreateStrategy(c.Request.Context(), payload)
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (r *Router) handleFetchStrategy(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	got, err := r.reg.Strategies.FetchStrategy(c.Request.Context(), id)
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, got)
}

func (r *Router) handleUpdateStrategy(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	var payload model.StrategyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeBadRequest(c, err)
		return
	}
	payload, err = r.checkPayload(payload)
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	updated, err := r.reg.Strategies.UpdateStrategy(c.Request.Context(), id, payload)
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (r *Router) handleDeleteStrategy(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	if err := r.reg.Strategies.DeleteStrategy(c.Request.Context(), id); err != nil {
		writeActionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) handleRunBacktest(c *gin.Context) {
	var req model.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	if _, err := r.reg.Backtest.RunBacktest(c.Request.Context(), req); err != nil {
		writeActionError(c, err)
		return
	}
	r.handleBacktestState(c)
}

func (r *Router) handleRunScreen(c *gin.Context) {
	var req model.ScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	if _, err := r.reg.Screen.RunScreen(c.Request.Context(), req.StrategyID); err != nil {
		writeActionError(c, err)
		return
	}
	r.handleScreenState(c)
}

func (r *Router) handleHealth(c *gin.Context) {
	if r.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": "unknown"})
		return
	}
	if err := r.health.Health(c.Request.Context()); err != nil {
		logger.Warnf("[api] backend health failed: %v", err)
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": "ok"})
}

func (r *Router) handleJournal(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultJournalLimit)))
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	recs, err := r.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] journal query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

// checkPayload validates p and returns it with the type's default params
// filled in.
func (r *Router) checkPayload(p model.StrategyPayload) (model.StrategyPayload, error) {
	if strings.TrimSpace(p.Name) == "" {
		return p, errors.New("name is required")
	}
	if r.params != nil {
		if err := r.params.Validate(p.Type, p.ParamsJSON); err != nil {
			return p, err
		}
	}
	params, err := strategyparams.Normalize(p.Type, p.ParamsJSON)
	if err != nil {
		return p, err
	}
	p.ParamsJSON = params
	return p, nil
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

// parsePeriods reads "5,20" into [5 20].
func parsePeriods(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxOverlayPeriods {
		return nil, fmt.Errorf("at most %d ma periods", maxOverlayPeriods)
	}
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || p <= 0 {
			return nil, fmt.Errorf("invalid ma period %q", part)
		}
		out = append(out, p)
	}
	return out, nil
}
