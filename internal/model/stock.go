package model

import "time"

// Stock is one entry of the backend's stock list. Code is its identity.
type Stock struct {
	ID       uint   `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
}

// Kline is one OHLCV bar of a stock series.
type Kline struct {
	StockCode string    `json:"stockCode,omitempty"`
	Interval  string    `json:"interval,omitempty"`
	Time      time.Time `json:"time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Closes extracts the close prices in series order.
func Closes(ks []Kline) []float64 {
	out := make([]float64, len(ks))
	for i, k := range ks {
		out[i] = k.Close
	}
	return out
}

// ScreeningResult is a stock selected by running a strategy over all stocks.
type ScreeningResult struct {
	Stock   Stock              `json:"stock"`
	Reason  string             `json:"reason"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// ScreenRequest asks the backend to screen all stocks with one strategy.
type ScreenRequest struct {
	StrategyID uint `json:"strategy_id"`
}
