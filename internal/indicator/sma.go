// Package indicator derives chart overlays from kline series.
package indicator

import (
	"sort"

	"stockdash/internal/model"

	talib "github.com/markcheno/go-talib"
)

// SMA returns the simple moving average of the close prices, aligned with
// klines. The first period-1 entries are warm-up and hold zero. Series
// shorter than period yield nil.
func SMA(klines []model.Kline, period int) []float64 {
	if period < 1 || len(klines) < period {
		return nil
	}
	return talib.Sma(model.Closes(klines), period)
}

// Overlay computes SMA for every distinct positive period. Periods the
// series is too short for are omitted.
func Overlay(klines []model.Kline, periods []int) map[int][]float64 {
	out := make(map[int][]float64, len(periods))
	for _, p := range periods {
		if _, ok := out[p]; ok {
			continue
		}
		if series := SMA(klines, p); series != nil {
			out[p] = series
		}
	}
	return out
}

// Periods returns the keys of an overlay in ascending order.
func Periods(overlay map[int][]float64) []int {
	out := make([]int, 0, len(overlay))
	for p := range overlay {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
