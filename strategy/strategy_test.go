package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/deploybot/types"
)

func barsFromCloses(closes []float64, start time.Time, step time.Duration) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Time:  start.Add(time.Duration(i) * step),
			Close: decimal.NewFromFloat(c),
		}
	}
	return bars
}

func TestRegistryLookup(t *testing.T) {
	fn, err := Lookup("pattern_rsi_trend")
	require.NoError(t, err)
	require.NotNil(t, fn)

	_, err = Lookup("no_such_strategy")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not registered")
	require.Contains(t, err.Error(), "pattern_rsi_trend", "error lists the available names")
}

func TestRegisterShadowsBuiltin(t *testing.T) {
	stub := func(bars []types.Bar, p Params) ([]types.Target, error) {
		return make([]types.Target, len(bars)), nil
	}
	Register("shadow_test", stub)
	fn, err := Lookup("shadow_test")
	require.NoError(t, err)

	targets, err := fn(barsFromCloses([]float64{1, 2}, time.Now(), time.Minute), nil)
	require.NoError(t, err)
	require.Len(t, targets, 2)
}

func TestParamsAccessors(t *testing.T) {
	p := Params{
		"length_rsi":    float64(8),
		"std":           2.5,
		"allowed_hours": []any{float64(9), float64(14)},
	}

	require.Equal(t, 8, p.Int("length_rsi", 14))
	require.Equal(t, 14, p.Int("missing", 14))
	require.Equal(t, 2.5, p.Float("std", 2))
	require.Equal(t, []int{9, 14}, p.Ints("allowed_hours"))
	require.Nil(t, p.Ints("missing"))
}

func TestRSISeries(t *testing.T) {
	// Monotonic rally: once warmed up the RSI pins at 100.
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rsi := RSISeries(closes, 3)

	for i := 0; i < 3; i++ {
		require.Zero(t, rsi[i], "warm-up must be zero at %d", i)
	}
	for i := 3; i < len(rsi); i++ {
		require.Equal(t, float64(100), rsi[i])
	}

	// Monotonic selloff pins at 0 after warm-up.
	closes = []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	rsi = RSISeries(closes, 3)
	for i := 3; i < len(rsi); i++ {
		require.Zero(t, rsi[i])
	}

	// Short series stays all-zero.
	require.Equal(t, []float64{0, 0}, RSISeries([]float64{1, 2}, 14))
}

func TestSMAAndStdDev(t *testing.T) {
	values := []float64{2, 4, 6}

	require.True(t, math.IsNaN(SMA(values, 1, 3)), "warm-up is NaN")
	require.Equal(t, float64(4), SMA(values, 2, 3))

	sd := StdDev(values, 2, 3)
	require.InDelta(t, 1.63299, sd, 1e-4)
}

func TestBollingerBounds(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10}
	lower, mid, upper := Bollinger(closes, 3, 2)

	require.True(t, math.IsNaN(mid[1]))
	// Flat series: zero deviation, all bands at the mean.
	require.Equal(t, float64(10), lower[4])
	require.Equal(t, float64(10), mid[4])
	require.Equal(t, float64(10), upper[4])
}

func TestPatternRSITrendSignals(t *testing.T) {
	// Rally long enough to warm up the RSI and keep it pinned high;
	// every post-warm-up up-bar is a long.
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107}
	bars := barsFromCloses(closes, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), 5*time.Minute)

	targets, err := PatternRSITrend(bars, Params{
		"length_rsi": float64(3),
		"rsi_low":    float64(30),
		"rsi_high":   float64(70),
	})
	require.NoError(t, err)
	require.Len(t, targets, len(bars))

	require.Equal(t, types.TargetFlat, targets[2], "warm-up stays flat")
	require.Equal(t, types.TargetLong, targets[len(targets)-1])

	// Selloff with one up-bar keeps the RSI above zero but deep in
	// oversold; every later down-bar is a short.
	closes = []float64{107, 106, 105, 106, 104, 103, 102, 100}
	bars = barsFromCloses(closes, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), 5*time.Minute)
	targets, err = PatternRSITrend(bars, Params{
		"length_rsi": float64(3),
		"rsi_low":    float64(30),
		"rsi_high":   float64(70),
	})
	require.NoError(t, err)
	require.Equal(t, types.TargetShort, targets[len(targets)-1])
}

func TestPatternRSITrendAllowedHours(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107}
	// One bar per hour starting 06:00, so the last bar lands at 13:00.
	bars := barsFromCloses(closes, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), time.Hour)

	targets, err := PatternRSITrend(bars, Params{
		"length_rsi":    float64(3),
		"allowed_hours": []any{float64(9)},
	})
	require.NoError(t, err)

	for i, b := range bars {
		if b.Time.Hour() != 9 {
			require.Equal(t, types.TargetFlat, targets[i], "bar %d at hour %d", i, b.Time.Hour())
		}
	}
}

func TestBBTrendReversalSignals(t *testing.T) {
	// Flat base then a sharp drop through the lower band.
	closes := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 90}
	bars := barsFromCloses(closes, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), 5*time.Minute)

	targets, err := BBTrend(bars, Params{"bb_length": float64(5), "std": float64(1.5)})
	require.NoError(t, err)
	require.Equal(t, types.TargetLong, targets[len(targets)-1])

	// Sharp spike through the upper band goes short.
	closes = []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 110}
	bars = barsFromCloses(closes, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), 5*time.Minute)
	targets, err = BBTrend(bars, Params{"bb_length": float64(5), "std": float64(1.5)})
	require.NoError(t, err)
	require.Equal(t, types.TargetShort, targets[len(targets)-1])
}
