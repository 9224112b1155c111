package viewhttp

import (
	"encoding/json"

	"stockdash/internal/model"
	"stockdash/internal/store"

	"github.com/shopspring/decimal"
)

type stocksView struct {
	Version uint64        `json:"version"`
	Busy    bool          `json:"busy"`
	Stocks  []model.Stock `json:"stocks"`
}

type klinesView struct {
	Version uint64            `json:"version"`
	Busy    bool              `json:"busy"`
	Code    string            `json:"code"`
	Klines  []model.Kline     `json:"klines"`
	MA      map[int][]float64 `json:"ma,omitempty"`
}

// stockStoreView is the whole stock store, used by the event stream.
type stockStoreView struct {
	Version uint64        `json:"version"`
	Busy    bool          `json:"busy"`
	Stocks  []model.Stock `json:"stocks"`
	Code    string        `json:"code"`
	Klines  []model.Kline `json:"klines"`
}

type strategiesView struct {
	Version    uint64           `json:"version"`
	Busy       bool             `json:"busy"`
	Strategies []model.Strategy `json:"strategies"`
}

type backtestView struct {
	Version    uint64                 `json:"version"`
	Busy       bool                   `json:"busy"`
	Summary    *model.BacktestSummary `json:"summary"`
	SummaryRaw json.RawMessage        `json:"summaryRaw,omitempty"`
	Profit     *decimal.Decimal       `json:"profit,omitempty"`
	Points     []model.EquityPoint    `json:"points"`
	Trades     []tradeView            `json:"trades"`
}

type tradeView struct {
	model.Trade
	Notional decimal.Decimal `json:"notional"`
}

type screenView struct {
	Version    uint64                  `json:"version"`
	Busy       bool                    `json:"busy"`
	StrategyID uint                    `json:"strategyId"`
	Results    []model.ScreeningResult `json:"results"`
}

func newStocksView(v uint64, st store.StockState) stocksView {
	return stocksView{Version: v, Busy: st.Busy, Stocks: st.Stocks}
}

func newKlinesView(v uint64, st store.StockState) klinesView {
	return klinesView{Version: v, Busy: st.Busy, Code: st.KlineCode, Klines: st.Klines}
}

func newStockStoreView(v uint64, st store.StockState) stockStoreView {
	return stockStoreView{Version: v, Busy: st.Busy, Stocks: st.Stocks, Code: st.KlineCode, Klines: st.Klines}
}

func newStrategiesView(v uint64, st store.StrategyState) strategiesView {
	return strategiesView{Version: v, Busy: st.Busy, Strategies: st.Strategies}
}

func newBacktestView(v uint64, st store.BacktestState) backtestView {
	view := backtestView{Version: v, Busy: st.Busy, Summary: st.Summary, Points: st.Points, Trades: newTradeViews(st.Trades)}
	if st.Summary != nil {
		profit := st.Summary.Profit()
		view.Profit = &profit
		view.SummaryRaw = st.Summary.Raw
	}
	return view
}

func newTradeViews(trades []model.Trade) []tradeView {
	out := make([]tradeView, 0, len(trades))
	for _, tr := range trades {
		out = append(out, tradeView{Trade: tr, Notional: tr.Notional()})
	}
	return out
}

func newScreenView(v uint64, st store.ScreenState) screenView {
	return screenView{Version: v, Busy: st.Busy, StrategyID: st.StrategyID, Results: st.Results}
}
