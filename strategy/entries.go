package strategy

import (
	"math"

	"github.com/web3guy0/deploybot/types"
)

// Built-in entry strategies. Custom deployments register their own via
// Register before constructing the deployer.

func init() {
	Register("pattern_rsi_trend", PatternRSITrend)
	Register("bb_trend", BBTrend)
}

// PatternRSITrend pairs the bar-over-bar percent change with an RSI
// confirmation: a positive change with RSI above rsi_high goes long, a
// negative change with RSI below rsi_low goes short.
//
// Params: length_rsi, rsi_low, rsi_high, allowed_hours (optional).
func PatternRSITrend(bars []types.Bar, p Params) ([]types.Target, error) {
	length := p.Int("length_rsi", 9)
	rsiLow := p.Float("rsi_low", 30)
	rsiHigh := p.Float("rsi_high", 70)

	closes := closeSeries(bars)
	rsi := RSISeries(closes, length)

	targets := make([]types.Target, len(bars))
	for i := 1; i < len(bars); i++ {
		if rsi[i] == 0 {
			continue // warm-up
		}
		change := closes[i] - closes[i-1]
		switch {
		case change > 0 && rsi[i] > rsiHigh:
			targets[i] = types.TargetLong
		case change < 0 && rsi[i] < rsiLow:
			targets[i] = types.TargetShort
		}
	}

	restrictHours(targets, bars, p.Ints("allowed_hours"))
	return targets, nil
}

// BBTrend is a Bollinger band reversal: a close crossing below the
// lower band goes long, a close crossing above the upper band goes
// short.
//
// Params: bb_length, std, allowed_hours (optional).
func BBTrend(bars []types.Bar, p Params) ([]types.Target, error) {
	length := p.Int("bb_length", 20)
	width := p.Float("std", 2)

	closes := closeSeries(bars)
	lower, _, upper := Bollinger(closes, length, width)

	targets := make([]types.Target, len(bars))
	for i := 1; i < len(bars); i++ {
		if math.IsNaN(lower[i]) || math.IsNaN(lower[i-1]) {
			continue
		}
		crossedBelow := closes[i] < lower[i] && closes[i-1] >= lower[i-1]
		crossedAbove := closes[i] > upper[i] && closes[i-1] <= upper[i-1]
		switch {
		case crossedBelow:
			targets[i] = types.TargetLong
		case crossedAbove:
			targets[i] = types.TargetShort
		}
	}

	restrictHours(targets, bars, p.Ints("allowed_hours"))
	return targets, nil
}

func closeSeries(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i], _ = b.Close.Float64()
	}
	return out
}

// restrictHours zeroes targets on bars outside the allowed hours.
// A nil hour list means no restriction.
func restrictHours(targets []types.Target, bars []types.Bar, hours []int) {
	if hours == nil {
		return
	}
	allowed := make(map[int]bool, len(hours))
	for _, h := range hours {
		allowed[h] = true
	}
	for i, b := range bars {
		if !allowed[b.Time.Hour()] {
			targets[i] = types.TargetFlat
		}
	}
}
