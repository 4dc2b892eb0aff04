package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/deploybot/strategy"
	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY CONFIG - Hour-indexed deployment file
// ═══════════════════════════════════════════════════════════════════════════════
//
// The config file is a JSON document keyed the way the terminal-side
// tooling writes it:
//
//   {
//     "symbol": "WINM25",
//     "timeframe": "t5",
//     "strategy": "pattern_rsi_trend",
//     "hours": [9, 14],
//     "hour_params": {
//       "9":  {"length_rsi": 8, "rsi_low": 30, "rsi_high": 70,
//              "position_type": "short", "tp": 1445, "sl": 200},
//       "14": {...}
//     },
//     "lote": 1.0,
//     "magic_number": 2
//   }
//
// Every hour listed in "hours" must have an entry in "hour_params".
// Mismatches are rejected at load time, never defaulted.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Error is a configuration fault. It is always fatal and surfaced
// before any trading begins.
type Error struct {
	msg string
}

func (e *Error) Error() string { return "config: " + e.msg }

func errf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// HourParams is the parameter tuple for one trading hour. Resolved once
// per hour transition and immutable for that hour's sub-session.
type HourParams struct {
	Strategy     strategy.Params
	PositionType types.PositionType
	TP           int // take-profit distance in points
	SL           int // stop-loss distance in points
}

// TradingConfig is the immutable per-deployment configuration.
type TradingConfig struct {
	Symbol     string
	Timeframe  types.Timeframe
	Strategy   string
	Hours      []int // sorted
	HourParams map[int]HourParams
	Lot        decimal.Decimal
	Magic      int
}

// rawConfig mirrors the JSON document.
type rawConfig struct {
	Symbol     string                    `json:"symbol"`
	Timeframe  string                    `json:"timeframe"`
	Strategy   string                    `json:"strategy"`
	Hours      []int                     `json:"hours"`
	HourParams map[string]map[string]any `json:"hour_params"`
	Lote       *float64                  `json:"lote"`
	Magic      int                       `json:"magic_number"`
}

// Load reads and validates a strategy config file.
func Load(path string) (*TradingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errf("read %s: %v", path, err)
	}
	return Parse(data)
}

// Parse validates a strategy config document.
func Parse(data []byte) (*TradingConfig, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errf("invalid JSON: %v", err)
	}

	if raw.Symbol == "" {
		return nil, errf("missing required field: symbol")
	}
	if raw.Strategy == "" {
		return nil, errf("missing required field: strategy")
	}
	tf, err := types.ParseTimeframe(raw.Timeframe)
	if err != nil {
		return nil, errf("%v", err)
	}
	if len(raw.Hours) == 0 {
		return nil, errf("hours must be a non-empty list")
	}

	cfg := &TradingConfig{
		Symbol:     raw.Symbol,
		Timeframe:  tf,
		Strategy:   raw.Strategy,
		Hours:      append([]int(nil), raw.Hours...),
		HourParams: make(map[int]HourParams, len(raw.Hours)),
		Lot:        decimal.NewFromFloat(1),
		Magic:      raw.Magic,
	}
	sort.Ints(cfg.Hours)
	if raw.Lote != nil {
		cfg.Lot = decimal.NewFromFloat(*raw.Lote)
	}

	for _, hour := range cfg.Hours {
		if hour < 0 || hour > 23 {
			return nil, errf("hour %d out of range 0-23", hour)
		}
		rawParams, ok := raw.HourParams[fmt.Sprintf("%d", hour)]
		if !ok {
			return nil, errf("missing hour_params entry for hour %d", hour)
		}
		hp, err := parseHourParams(hour, rawParams)
		if err != nil {
			return nil, err
		}
		cfg.HourParams[hour] = hp
	}

	return cfg, nil
}

// parseHourParams splits the risk fields from the strategy kwargs.
func parseHourParams(hour int, raw map[string]any) (HourParams, error) {
	var hp HourParams

	tp, ok := intField(raw, "tp")
	if !ok {
		return hp, errf("hour %d: missing required param tp", hour)
	}
	sl, ok := intField(raw, "sl")
	if !ok {
		return hp, errf("hour %d: missing required param sl", hour)
	}
	if tp <= 0 {
		return hp, errf("hour %d: tp must be positive, got %d", hour, tp)
	}
	if sl <= 0 {
		return hp, errf("hour %d: sl must be positive, got %d", hour, sl)
	}

	pt, ok := raw["position_type"].(string)
	if !ok {
		return hp, errf("hour %d: missing required param position_type", hour)
	}
	posType := types.PositionType(pt)
	if !posType.Valid() {
		return hp, errf("hour %d: invalid position_type %q (want long, short or both)", hour, pt)
	}

	// Everything else belongs to the strategy function.
	kwargs := make(strategy.Params, len(raw))
	for k, v := range raw {
		switch k {
		case "tp", "sl", "position_type":
		default:
			kwargs[k] = v
		}
	}

	hp.Strategy = kwargs
	hp.PositionType = posType
	hp.TP = tp
	hp.SL = sl
	return hp, nil
}

func intField(raw map[string]any, key string) (int, bool) {
	f, ok := raw[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Resolve returns the parameter tuple for an hour. Pure lookup; the
// scheduler must not call it for hours outside the configured set.
func (c *TradingConfig) Resolve(hour int) (HourParams, error) {
	hp, ok := c.HourParams[hour]
	if !ok {
		return HourParams{}, errf("no params configured for hour %d (hours: %v)", hour, c.Hours)
	}
	return hp, nil
}

// IsTradingHour reports whether the hour is in the configured set.
func (c *TradingConfig) IsTradingHour(hour int) bool {
	_, ok := c.HourParams[hour]
	return ok
}

// LastHour returns the latest configured trading hour.
func (c *TradingConfig) LastHour() int {
	return c.Hours[len(c.Hours)-1]
}
