package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deploybot/execution"
	"github.com/web3guy0/deploybot/internal/config"
	"github.com/web3guy0/deploybot/internal/terminal"
	"github.com/web3guy0/deploybot/strategy"
	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SESSION SCHEDULER - One cooperative loop per instrument/magic pair
// ═══════════════════════════════════════════════════════════════════════════════
//
// The loop wakes on the bar-close boundary, evaluates the strategy on
// the latest closed bar, reconciles against a fresh broker snapshot and
// executes the resulting actions, all synchronously within the tick.
// The only blocking wait is between bars. Session end time is the only
// cancellation signal besides the caller's context; a tick that has
// started executing broker actions runs to completion.
//
// Failure policy per tick:
//   • bar fetch / strategy failure → tick skipped, loop continues
//   • execution failure            → logged; fatal only in strict mode
//   • connection loss              → always fatal, flatten attempted
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	defaultWarmupBars   = 280
	defaultPollInterval = 750 * time.Millisecond
)

// Config assembles one trading session.
type Config struct {
	Symbol       string
	Timeframe    types.Timeframe
	StrategyName string
	Strategy     strategy.Func
	Params       config.HourParams
	Lot          decimal.Decimal
	Magic        int

	Strict       bool // execution errors terminate the session
	FlattenOnEnd bool // close all exposure when the session exits
	WarmupBars   int
	PollInterval time.Duration
}

// Trader drives one trading session.
type Trader struct {
	cfg        Config
	term       terminal.Terminal
	rec        *execution.Reconciler
	exec       *execution.Executor
	feed       *terminal.BarStream
	feedHandle *terminal.BarStream // retained for Stop even after fallback

	data []types.Bar

	// Injectable clock for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New assembles a session trader. It does not touch the terminal; use
// Run to enter the loop (deploy_only constructs without running).
func New(cfg Config, term terminal.Terminal, exec *execution.Executor) *Trader {
	if cfg.WarmupBars <= 0 {
		cfg.WarmupBars = defaultWarmupBars
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Trader{
		cfg:  cfg,
		term: term,
		rec:  execution.NewReconciler(cfg.Lot),
		exec: exec,
		now:  time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// Params returns the hour parameters the session trades under.
func (t *Trader) Params() config.HourParams { return t.cfg.Params }

// Symbol returns the traded instrument.
func (t *Trader) Symbol() string { return t.cfg.Symbol }

// AttachFeed wires an optional bar-close push feed. Without one the
// loop polls the terminal for the latest bar.
func (t *Trader) AttachFeed(feed *terminal.BarStream) {
	t.feed = feed
	t.feedHandle = feed
}

// Stats returns the session's executed action counters.
func (t *Trader) Stats() (opened, closed, failed int64) {
	return t.exec.Stats()
}

// Run drives the session until the wall clock reaches end, then
// flattens (when configured) regardless of the live signal.
func (t *Trader) Run(ctx context.Context, end time.Time) error {
	log.Info().
		Str("symbol", t.cfg.Symbol).
		Str("strategy", t.cfg.StrategyName).
		Str("position_type", string(t.cfg.Params.PositionType)).
		Int("tp", t.cfg.Params.TP).
		Int("sl", t.cfg.Params.SL).
		Int("magic", t.cfg.Magic).
		Time("end", end).
		Msg("▶️ Session started")

	if t.feedHandle != nil {
		defer t.feedHandle.Stop()
	}

	if err := t.loadHistory(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	runErr := t.loop(ctx, end)

	if t.cfg.FlattenOnEnd || runErr != nil {
		if ferr := t.Flatten(); ferr != nil {
			// Exposure may remain on the broker. Loudest severity we
			// have short of exiting; the caller decides the exit code.
			log.Error().
				Err(ferr).
				Str("event", "session_end_flatten").
				Str("symbol", t.cfg.Symbol).
				Int("magic", t.cfg.Magic).
				Msg("🚨 Session-end flatten FAILED, exposure may remain")
			if runErr == nil {
				runErr = ferr
			}
		}
	}

	opened, closed, failed := t.exec.Stats()
	log.Info().
		Str("symbol", t.cfg.Symbol).
		Int64("opened", opened).
		Int64("closed", closed).
		Int64("failed", failed).
		Msg("⏹️ Session finished")
	return runErr
}

func (t *Trader) loop(ctx context.Context, end time.Time) error {
	for t.now().Before(end) && ctx.Err() == nil {
		if !t.term.IsConnected() {
			log.Error().Str("symbol", t.cfg.Symbol).Msg("🚨 Terminal connection lost")
			return terminal.ErrConnectionLost
		}

		bar, ok := t.nextBar(ctx)
		if !ok {
			continue
		}

		if err := t.tick(ctx, bar); err != nil {
			return err
		}
	}
	return nil
}

// loadHistory pulls the warm-up bar series. Strategies need the
// preceding bars for their indicators.
func (t *Trader) loadHistory(ctx context.Context) error {
	bars, err := t.term.Bars(ctx, t.cfg.Symbol, t.cfg.Timeframe, t.cfg.WarmupBars)
	if err != nil {
		return err
	}
	t.data = bars
	log.Info().Int("bars", len(bars)).Str("symbol", t.cfg.Symbol).Msg("Historical data loaded")
	return nil
}

// nextBar blocks until a new closed bar is available or one poll
// interval elapses. Returns false when there is nothing new yet.
func (t *Trader) nextBar(ctx context.Context) (types.Bar, bool) {
	if t.feed != nil {
		select {
		case bar, open := <-t.feed.Events():
			if !open {
				t.feed = nil // feed died, poll from now on
				return types.Bar{}, false
			}
			if t.isNewBar(bar) {
				return bar, true
			}
			return types.Bar{}, false
		case <-ctx.Done():
			return types.Bar{}, false
		case <-time.After(t.cfg.PollInterval):
			// fall through to the poll below; the push feed may lag
		}
	} else {
		t.sleep(ctx, t.cfg.PollInterval)
		if ctx.Err() != nil {
			return types.Bar{}, false
		}
	}

	bars, err := t.term.Bars(ctx, t.cfg.Symbol, t.cfg.Timeframe, 1)
	if err != nil {
		if !errors.Is(err, terminal.ErrDataUnavailable) {
			log.Warn().Err(err).Str("symbol", t.cfg.Symbol).Msg("⚠️ Bar fetch failed, tick skipped")
		}
		return types.Bar{}, false
	}

	bar := bars[len(bars)-1]
	if !t.isNewBar(bar) {
		return types.Bar{}, false
	}
	return bar, true
}

func (t *Trader) isNewBar(bar types.Bar) bool {
	return len(t.data) == 0 || bar.Time.After(t.data[len(t.data)-1].Time)
}

// tick evaluates the strategy on the new bar and reconciles exposure.
// Transient failures skip the tick; the returned error is fatal to the
// session.
func (t *Trader) tick(ctx context.Context, bar types.Bar) error {
	t.data = append(t.data, bar)

	targets, err := t.cfg.Strategy(t.data, t.cfg.Params.Strategy)
	if err != nil {
		log.Warn().Err(err).Str("strategy", t.cfg.StrategyName).Msg("⚠️ Strategy evaluation failed, tick skipped")
		return nil
	}
	if len(targets) != len(t.data) {
		log.Warn().
			Int("targets", len(targets)).
			Int("bars", len(t.data)).
			Str("strategy", t.cfg.StrategyName).
			Msg("⚠️ Strategy output misaligned, tick skipped")
		return nil
	}
	target := targets[len(targets)-1]

	// Fresh broker snapshot every tick; never cached across ticks.
	open, err := t.term.OpenOrders(ctx, t.cfg.Symbol, t.cfg.Magic)
	if err != nil {
		if errors.Is(err, terminal.ErrConnectionLost) {
			return err
		}
		log.Warn().Err(err).Msg("⚠️ Open order snapshot failed, tick skipped")
		return nil
	}

	actions := t.rec.Reconcile(target, open, t.cfg.Params)
	if len(actions) == 0 {
		return nil
	}

	log.Debug().
		Int("target", int(target)).
		Int("open_orders", len(open)).
		Int("actions", len(actions)).
		Time("bar", bar.Time).
		Msg("Reconciled tick")

	if err := t.exec.Execute(ctx, actions); err != nil {
		if t.cfg.Strict {
			return err
		}
		// Lenient mode: recorded and logged by the executor, session
		// continues on the next bar.
		return nil
	}
	return nil
}

// Flatten closes every open order for this instrument/magic pair,
// regardless of the live strategy signal.
func (t *Trader) Flatten() error {
	// The session context may already be cancelled; de-risking still
	// has to reach the broker.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	open, err := t.term.OpenOrders(ctx, t.cfg.Symbol, t.cfg.Magic)
	if err != nil {
		return fmt.Errorf("flatten snapshot: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	log.Info().
		Str("event", "session_end_flatten").
		Str("symbol", t.cfg.Symbol).
		Int("magic", t.cfg.Magic).
		Int("orders", len(open)).
		Msg("🧹 Flattening all exposure")

	actions := t.rec.Reconcile(types.TargetFlat, open, t.cfg.Params)
	return t.exec.Execute(ctx, actions)
}
