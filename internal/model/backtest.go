package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BacktestRequest is the config posted to /backtest.
type BacktestRequest struct {
	StrategyID     uint    `json:"strategy_id"`
	StockCode      string  `json:"stock_code"`
	InitialCapital float64 `json:"initial_capital"`
}

// BacktestSummary is the aggregate record of one backtest run. Raw keeps the
// summary object exactly as the backend sent it, including keys the typed
// fields do not model.
type BacktestSummary struct {
	ID             uint            `json:"id,omitempty"`
	StrategyID     uint            `json:"strategyId"`
	StockCode      string          `json:"stockCode"`
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	InitialCapital decimal.Decimal `json:"initialCapital"`
	FinalCapital   decimal.Decimal `json:"finalCapital"`
	ReturnPct      decimal.Decimal `json:"returnPct"`
	CreatedAt      time.Time       `json:"createdAt"`

	Raw json.RawMessage `json:"-"`
}

func (s *BacktestSummary) UnmarshalJSON(data []byte) error {
	type alias BacktestSummary
	if err := json.Unmarshal(data, (*alias)(s)); err != nil {
		return err
	}
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Profit is FinalCapital minus InitialCapital.
func (s BacktestSummary) Profit() decimal.Decimal {
	return s.FinalCapital.Sub(s.InitialCapital)
}

// EquityPoint is one point on the equity curve.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Trade is one simulated execution.
type Trade struct {
	Time   time.Time       `json:"time"`
	Side   string          `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Shares float64         `json:"shares"`
}

// Notional is Price * Shares.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromFloat(t.Shares))
}

// BacktestResult is the full /backtest response.
type BacktestResult struct {
	Summary *BacktestSummary `json:"summary"`
	Points  []EquityPoint    `json:"points"`
	Trades  []Trade          `json:"trades"`
}
