package model

import (
	"encoding/json"
	"time"
)

// Strategy is a user-defined screening rule. ID is assigned by the backend.
type Strategy struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	ParamsJSON  string    `json:"paramsJson,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts both the backend's untagged field names and the
// snake_case request names for ParamsJSON.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	type alias Strategy
	aux := struct {
		*alias
		SnakeParams *string `json:"params_json"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.SnakeParams != nil && s.ParamsJSON == "" {
		s.ParamsJSON = *aux.SnakeParams
	}
	return nil
}

// StrategyPayload is the body of create and update requests.
type StrategyPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	ParamsJSON  string `json:"params_json"`
}

// MACrossoverParams configures the moving average crossover strategy.
type MACrossoverParams struct {
	ShortWindow int `json:"short_window" yaml:"short_window"`
	LongWindow  int `json:"long_window" yaml:"long_window"`
}

// Normalize fills in the backend's defaults: 5/20, and long > short.
func (p MACrossoverParams) Normalize() MACrossoverParams {
	if p.ShortWindow <= 0 {
		p.ShortWindow = 5
	}
	if p.LongWindow <= 0 {
		p.LongWindow = 20
	}
	if p.ShortWindow >= p.LongWindow {
		p.LongWindow = p.ShortWindow + 5
	}
	return p
}
