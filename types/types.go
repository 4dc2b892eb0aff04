package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Timeframe is the bar granularity understood by the terminal.
type Timeframe string

const (
	TimeframeM1  Timeframe = "t1"
	TimeframeM5  Timeframe = "t5"
	TimeframeM15 Timeframe = "t15"
	TimeframeM30 Timeframe = "t30"
	TimeframeH1  Timeframe = "h1"
	TimeframeH4  Timeframe = "h4"
	TimeframeD1  Timeframe = "d1"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TimeframeM1:  time.Minute,
	TimeframeM5:  5 * time.Minute,
	TimeframeM15: 15 * time.Minute,
	TimeframeM30: 30 * time.Minute,
	TimeframeH1:  time.Hour,
	TimeframeH4:  4 * time.Hour,
	TimeframeD1:  24 * time.Hour,
}

// ParseTimeframe validates a config timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("invalid timeframe %q", s)
	}
	return tf, nil
}

// Duration returns the bar interval of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Side is the direction of an open order.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// PositionType restricts which sides an hour is allowed to hold.
type PositionType string

const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
	PositionBoth  PositionType = "both"
)

// Valid reports whether pt is one of long/short/both.
func (pt PositionType) Valid() bool {
	return pt == PositionLong || pt == PositionShort || pt == PositionBoth
}

// Allows reports whether orders on the given side may stay open.
func (pt PositionType) Allows(side Side) bool {
	switch pt {
	case PositionBoth:
		return true
	case PositionLong:
		return side == SideLong
	case PositionShort:
		return side == SideShort
	}
	return false
}

// Target is the strategy's desired net exposure for the latest bar.
type Target int

const (
	TargetShort Target = -1
	TargetFlat  Target = 0
	TargetLong  Target = 1
)

// Side maps a non-flat target to an order side.
func (t Target) Side() (Side, bool) {
	switch t {
	case TargetLong:
		return SideLong, true
	case TargetShort:
		return SideShort, true
	}
	return "", false
}

// Filter coerces a target the position type forbids to flat.
func (t Target) Filter(pt PositionType) Target {
	if side, ok := t.Side(); ok && !pt.Allows(side) {
		return TargetFlat
	}
	return t
}

// Bar is one closed OHLC candle.
type Bar struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Quote is the current bid/ask for a symbol.
type Quote struct {
	Bid  decimal.Decimal `json:"bid"`
	Ask  decimal.Decimal `json:"ask"`
	Time time.Time       `json:"time"`
}

// EntryPrice returns the price a new order on the given side fills at.
func (q Quote) EntryPrice(side Side) decimal.Decimal {
	if side == SideLong {
		return q.Ask
	}
	return q.Bid
}

// OpenOrder is the terminal's view of a live order. The ticket is
// broker-assigned and opaque; the magic number partitions ownership
// among strategies sharing one account.
type OpenOrder struct {
	Ticket     int64           `json:"ticket"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Volume     decimal.Decimal `json:"volume"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Magic      int             `json:"magic"`
	TP         decimal.Decimal `json:"tp"`
	SL         decimal.Decimal `json:"sl"`
	Comment    string          `json:"comment"`
	OpenedAt   time.Time       `json:"opened_at"`
}
