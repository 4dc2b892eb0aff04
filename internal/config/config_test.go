package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/deploybot/types"
)

const validDoc = `{
	"symbol": "WINM25",
	"timeframe": "t5",
	"strategy": "pattern_rsi_trend",
	"hours": [14, 9],
	"hour_params": {
		"9":  {"length_rsi": 8, "rsi_low": 30, "rsi_high": 70, "position_type": "short", "tp": 1445, "sl": 200},
		"14": {"length_rsi": 14, "rsi_low": 25, "rsi_high": 75, "position_type": "both", "tp": 500, "sl": 300}
	},
	"lote": 2.0,
	"magic_number": 7
}`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	require.Equal(t, "WINM25", cfg.Symbol)
	require.Equal(t, types.TimeframeM5, cfg.Timeframe)
	require.Equal(t, "pattern_rsi_trend", cfg.Strategy)
	require.Equal(t, []int{9, 14}, cfg.Hours, "hours come out sorted")
	require.True(t, cfg.Lot.Equal(decimal.NewFromInt(2)))
	require.Equal(t, 7, cfg.Magic)

	hp := cfg.HourParams[9]
	require.Equal(t, 1445, hp.TP)
	require.Equal(t, 200, hp.SL)
	require.Equal(t, types.PositionShort, hp.PositionType)

	// Risk fields are stripped from the strategy kwargs.
	_, hasTP := hp.Strategy["tp"]
	require.False(t, hasTP)
	require.Equal(t, float64(8), hp.Strategy["length_rsi"])
}

func TestParseDefaultsLot(t *testing.T) {
	doc := `{
		"symbol": "X", "timeframe": "h1", "strategy": "s",
		"hours": [10],
		"hour_params": {"10": {"position_type": "both", "tp": 1, "sl": 1}}
	}`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.True(t, cfg.Lot.Equal(decimal.NewFromInt(1)))
}

func TestParseRejections(t *testing.T) {
	testCases := []struct {
		desc string
		doc  string
		want string
	}{
		{
			"not json",
			`{`,
			"invalid JSON",
		},
		{
			"missing symbol",
			`{"timeframe": "t5", "strategy": "s", "hours": [9],
			  "hour_params": {"9": {"position_type": "both", "tp": 1, "sl": 1}}}`,
			"symbol",
		},
		{
			"bad timeframe",
			`{"symbol": "X", "timeframe": "m7", "strategy": "s", "hours": [9],
			  "hour_params": {"9": {"position_type": "both", "tp": 1, "sl": 1}}}`,
			"timeframe",
		},
		{
			"empty hours",
			`{"symbol": "X", "timeframe": "t5", "strategy": "s", "hours": [],
			  "hour_params": {}}`,
			"hours",
		},
		{
			"hour out of range",
			`{"symbol": "X", "timeframe": "t5", "strategy": "s", "hours": [24],
			  "hour_params": {"24": {"position_type": "both", "tp": 1, "sl": 1}}}`,
			"out of range",
		},
		{
			"hour without params",
			`{"symbol": "X", "timeframe": "t5", "strategy": "s", "hours": [9, 14],
			  "hour_params": {"9": {"position_type": "both", "tp": 1, "sl": 1}}}`,
			"hour 14",
		},
		{
			"missing tp",
			`{"symbol": "X", "timeframe": "t5", "strategy": "s", "hours": [9],
			  "hour_params": {"9": {"position_type": "both", "sl": 1}}}`,
			"tp",
		},
		{
			"zero tp",
			`{"symbol": "X", "timeframe": "t5", "strategy": "s", "hours": [9],
			  "hour_params": {"9": {"position_type": "both", "tp": 0, "sl": 1}}}`,
			"tp must be positive",
		},
		{
			"negative sl",
			`{"symbol": "X", "timeframe": "t5", "strategy": "s", "hours": [9],
			  "hour_params": {"9": {"position_type": "both", "tp": 1, "sl": -5}}}`,
			"sl must be positive",
		},
		{
			"bad position_type",
			`{"symbol": "X", "timeframe": "t5", "strategy": "s", "hours": [9],
			  "hour_params": {"9": {"position_type": "hedge", "tp": 1, "sl": 1}}}`,
			"position_type",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestResolve(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	hp, err := cfg.Resolve(9)
	require.NoError(t, err)
	require.Equal(t, types.PositionShort, hp.PositionType)

	_, err = cfg.Resolve(11)
	require.Error(t, err)

	require.True(t, cfg.IsTradingHour(14))
	require.False(t, cfg.IsTradingHour(11))
	require.Equal(t, 14, cfg.LastHour())
}
