package terminal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PAPER TERMINAL - In-memory simulated terminal
// ═══════════════════════════════════════════════════════════════════════════════
//
// Hedge-mode book: any number of simultaneous orders per symbol,
// opposite directions included, partitioned by magic number exactly
// like the real terminal. Used for dry runs and tests.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Paper is an in-memory Terminal.
type Paper struct {
	mu         sync.Mutex
	connected  bool
	quote      types.Quote
	bars       []types.Bar
	orders     map[int64]types.OpenOrder
	nextTicket int64

	// Fault injection for tests.
	openErr  error
	closeErr error
	barsErr  error
}

// NewPaper creates an empty connected paper terminal.
func NewPaper() *Paper {
	return &Paper{
		connected:  true,
		orders:     make(map[int64]types.OpenOrder),
		nextTicket: 1000,
	}
}

// SetQuote sets the current bid/ask.
func (p *Paper) SetQuote(q types.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quote = q
}

// SetBars replaces the bar history.
func (p *Paper) SetBars(bars []types.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars = append([]types.Bar(nil), bars...)
}

// AppendBar appends one closed bar, as if a bar boundary just passed.
func (p *Paper) AppendBar(bar types.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars = append(p.bars, bar)
}

// SetConnected toggles the connection state.
func (p *Paper) SetConnected(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = ok
}

// FailNextOpen makes the next Open call return err.
func (p *Paper) FailNextOpen(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
}

// FailNextClose makes the next Close call return err.
func (p *Paper) FailNextClose(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
}

// FailBars makes Bars return err until cleared with nil.
func (p *Paper) FailBars(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.barsErr = err
}

func (p *Paper) Bars(_ context.Context, _ string, _ types.Timeframe, count int) ([]types.Bar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, ErrConnectionLost
	}
	if p.barsErr != nil {
		return nil, p.barsErr
	}
	if len(p.bars) == 0 {
		return nil, ErrDataUnavailable
	}
	if count > len(p.bars) {
		count = len(p.bars)
	}
	out := make([]types.Bar, count)
	copy(out, p.bars[len(p.bars)-count:])
	return out, nil
}

func (p *Paper) Quote(_ context.Context, _ string) (types.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return types.Quote{}, ErrConnectionLost
	}
	if p.quote.Bid.IsZero() && p.quote.Ask.IsZero() {
		return types.Quote{}, ErrDataUnavailable
	}
	return p.quote, nil
}

func (p *Paper) Open(_ context.Context, req OpenRequest) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return 0, ErrConnectionLost
	}
	if p.openErr != nil {
		err := p.openErr
		p.openErr = nil
		return 0, err
	}

	p.nextTicket++
	order := types.OpenOrder{
		Ticket:     p.nextTicket,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		EntryPrice: p.quote.EntryPrice(req.Side),
		Magic:      req.Magic,
		TP:         req.TP,
		SL:         req.SL,
		Comment:    req.Comment,
		OpenedAt:   time.Now(),
	}
	p.orders[order.Ticket] = order

	log.Debug().
		Int64("ticket", order.Ticket).
		Str("side", string(order.Side)).
		Str("entry", order.EntryPrice.String()).
		Msg("Paper order opened")
	return order.Ticket, nil
}

func (p *Paper) Close(_ context.Context, ticket int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ErrConnectionLost
	}
	if p.closeErr != nil {
		err := p.closeErr
		p.closeErr = nil
		return err
	}
	if _, ok := p.orders[ticket]; !ok {
		return fmt.Errorf("paper: unknown ticket %d", ticket)
	}
	delete(p.orders, ticket)
	return nil
}

func (p *Paper) OpenOrders(_ context.Context, symbol string, magic int) ([]types.OpenOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, ErrConnectionLost
	}
	var out []types.OpenOrder
	for _, o := range p.orders {
		if o.Symbol == symbol && o.Magic == magic {
			out = append(out, o)
		}
	}
	return out, nil
}

func (p *Paper) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Paper) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// TriggerStops simulates broker-side TP/SL fills at the given price and
// returns the tickets that were closed.
func (p *Paper) TriggerStops(price types.Quote) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var hit []int64
	for ticket, o := range p.orders {
		var closed bool
		if o.Side == types.SideLong {
			closed = (!o.TP.IsZero() && price.Bid.GreaterThanOrEqual(o.TP)) ||
				(!o.SL.IsZero() && price.Bid.LessThanOrEqual(o.SL))
		} else {
			closed = (!o.TP.IsZero() && price.Ask.LessThanOrEqual(o.TP)) ||
				(!o.SL.IsZero() && price.Ask.GreaterThanOrEqual(o.SL))
		}
		if closed {
			hit = append(hit, ticket)
			delete(p.orders, ticket)
		}
	}
	return hit
}
