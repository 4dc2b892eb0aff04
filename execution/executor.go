package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deploybot/internal/terminal"
	"github.com/web3guy0/deploybot/storage"
	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXECUTOR - Runs reconciler actions against the terminal
// ═══════════════════════════════════════════════════════════════════════════════
//
// Actions execute strictly in reconciler order and stop at the first
// failure: executing an open after a failed close would create exactly
// the double exposure the ordering exists to prevent. There is no
// per-action retry either; in hedge mode a duplicate open is worse than
// a missed entry. Retry policy, if any, belongs to the session loop.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ExecutionError reports a terminal-rejected order action.
type ExecutionError struct {
	Action Action
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution: %s failed: %v", e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Notifier receives trade events for out-of-band alerting.
type Notifier interface {
	NotifyOrderOpened(symbol string, side types.Side, volume, price, tp, sl decimal.Decimal, ticket int64)
	NotifyOrderClosed(symbol string, side types.Side, ticket int64)
}

// Executor executes order actions for one instrument/magic pair and
// journals every outcome.
type Executor struct {
	term     terminal.Terminal
	db       *storage.Database // nil-safe
	notifier Notifier          // optional

	symbol   string
	magic    int
	strategy string

	mu     sync.Mutex
	opened int64
	closed int64
	failed int64
}

// NewExecutor creates an executor bound to a symbol and magic number.
func NewExecutor(term terminal.Terminal, db *storage.Database, symbol string, magic int, strategyName string) *Executor {
	return &Executor{
		term:     term,
		db:       db,
		symbol:   symbol,
		magic:    magic,
		strategy: strategyName,
	}
}

// SetNotifier attaches an optional trade notifier.
func (e *Executor) SetNotifier(n Notifier) {
	e.notifier = n
}

// Execute runs actions in order. The first failure aborts the rest of
// the batch and is returned as *ExecutionError.
func (e *Executor) Execute(ctx context.Context, actions []Action) error {
	for _, action := range actions {
		var err error
		switch action.Kind {
		case ActionOpen:
			err = e.open(ctx, action)
		case ActionClose:
			err = e.close(ctx, action)
		default:
			err = fmt.Errorf("unknown action kind %q", action.Kind)
		}
		if err != nil {
			e.mu.Lock()
			e.failed++
			e.mu.Unlock()

			execErr := &ExecutionError{Action: action, Err: err}
			log.Error().
				Err(err).
				Str("event", "execution_error").
				Str("symbol", e.symbol).
				Int("magic", e.magic).
				Str("action", action.String()).
				Msg("❌ Order action rejected")
			e.journal(action, decimal.Zero, decimal.Zero, decimal.Zero, 0, err)
			return execErr
		}
	}
	return nil
}

// open places a market order, translating TP/SL point distances into
// price levels at the current quote (long fills at ask, short at bid;
// short TP sits below entry, short SL above).
func (e *Executor) open(ctx context.Context, action Action) error {
	quote, err := e.term.Quote(ctx, e.symbol)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	entry := quote.EntryPrice(action.Side)
	tpDist := decimal.NewFromInt(int64(action.TPPoints))
	slDist := decimal.NewFromInt(int64(action.SLPoints))

	var tp, sl decimal.Decimal
	if action.Side == types.SideLong {
		tp = entry.Add(tpDist)
		sl = entry.Sub(slDist)
	} else {
		tp = entry.Sub(tpDist)
		sl = entry.Add(slDist)
	}

	ticket, err := e.term.Open(ctx, terminal.OpenRequest{
		Symbol:  e.symbol,
		Side:    action.Side,
		Volume:  action.Volume,
		TP:      tp,
		SL:      sl,
		Magic:   e.magic,
		Comment: e.strategy,
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.opened++
	e.mu.Unlock()

	log.Info().
		Str("event", "order_opened").
		Str("symbol", e.symbol).
		Str("side", string(action.Side)).
		Str("entry", entry.String()).
		Str("volume", action.Volume.String()).
		Str("tp", tp.String()).
		Str("sl", sl.String()).
		Int64("ticket", ticket).
		Int("magic", e.magic).
		Msg("📤 Order opened")

	e.journal(action, entry, tp, sl, ticket, nil)
	if e.notifier != nil {
		e.notifier.NotifyOrderOpened(e.symbol, action.Side, action.Volume, entry, tp, sl, ticket)
	}
	return nil
}

func (e *Executor) close(ctx context.Context, action Action) error {
	if err := e.term.Close(ctx, action.Ticket); err != nil {
		return err
	}

	e.mu.Lock()
	e.closed++
	e.mu.Unlock()

	log.Info().
		Str("event", "order_closed").
		Str("symbol", e.symbol).
		Str("side", string(action.Side)).
		Int64("ticket", action.Ticket).
		Int("magic", e.magic).
		Msg("📥 Order closed")

	e.journal(action, decimal.Zero, decimal.Zero, decimal.Zero, action.Ticket, nil)
	if e.notifier != nil {
		e.notifier.NotifyOrderClosed(e.symbol, action.Side, action.Ticket)
	}
	return nil
}

func (e *Executor) journal(action Action, price, tp, sl decimal.Decimal, ticket int64, execErr error) {
	if e.db == nil {
		return
	}
	rec := &storage.TradeRecord{
		Symbol:   e.symbol,
		Side:     string(action.Side),
		Action:   string(action.Kind),
		Price:    price,
		Volume:   action.Volume,
		TP:       tp,
		SL:       sl,
		Ticket:   ticket,
		Magic:    e.magic,
		Strategy: e.strategy,
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}
	if err := e.db.SaveTrade(rec); err != nil {
		log.Warn().Err(err).Msg("⚠️ Trade journal write failed")
	}
}

// Stats returns the lifetime action counters.
func (e *Executor) Stats() (opened, closed, failed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened, e.closed, e.failed
}
