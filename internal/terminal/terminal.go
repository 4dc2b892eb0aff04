package terminal

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TERMINAL - Broker execution + market data gate
// ═══════════════════════════════════════════════════════════════════════════════
//
// The trading core owns exactly one Terminal handle per session and
// releases it (Disconnect) on every exit path. Broker state is the
// source of truth: OpenOrders is re-fetched at the start of every
// evaluation tick, never cached across ticks.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	// ErrDataUnavailable means the terminal returned no data for a
	// request. Transient: the tick is skipped, the session continues.
	ErrDataUnavailable = errors.New("terminal: no data available")

	// ErrConnectionLost means the terminal connection itself is gone.
	// Always fatal to the running session.
	ErrConnectionLost = errors.New("terminal: connection lost")
)

// OpenRequest describes a new market order with attached TP/SL levels.
type OpenRequest struct {
	Symbol  string          `json:"symbol"`
	Side    types.Side      `json:"side"`
	Volume  decimal.Decimal `json:"volume"`
	TP      decimal.Decimal `json:"tp"`
	SL      decimal.Decimal `json:"sl"`
	Magic   int             `json:"magic"`
	Comment string          `json:"comment"`
}

// Terminal is the contract with the brokerage terminal.
type Terminal interface {
	// Bars returns the most recent closed bars, oldest first.
	Bars(ctx context.Context, symbol string, tf types.Timeframe, count int) ([]types.Bar, error)

	// Quote returns the current bid/ask.
	Quote(ctx context.Context, symbol string) (types.Quote, error)

	// Open places a market order and returns the broker ticket.
	Open(ctx context.Context, req OpenRequest) (int64, error)

	// Close closes one open order by ticket.
	Close(ctx context.Context, ticket int64) error

	// OpenOrders lists live orders scoped to symbol and magic number.
	OpenOrders(ctx context.Context, symbol string, magic int) ([]types.OpenOrder, error)

	IsConnected() bool
	Disconnect() error
}
