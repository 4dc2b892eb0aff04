package deploy

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
	"github.com/web3guy0/deploybot/storage"
	"github.com/web3guy0/deploybot/strategy"
	"github.com/web3guy0/deploybot/trader"
	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DEPLOYER - Sequences hour-scoped sessions across a trading day
// ═══════════════════════════════════════════════════════════════════════════════
//
// One deployer owns one config, one terminal handle and one magic
// number. Running several instruments concurrently means several
// deployers with disjoint magic numbers; they share nothing.
//
// The strategy function is resolved once at construction and never
// re-resolved mid-session.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ErrOutsideHours is returned when deployment is requested for an hour
// that has no configured parameters.
var ErrOutsideHours = errors.New("deploy: hour not configured for trading")

// Default day cutoff, minutes before the exchange close.
const (
	DefaultEndHour   = 17
	DefaultEndMinute = 54
)

// waitChunk caps how long the hour wait sleeps between clock checks.
const waitChunk = 5 * time.Minute

// Deployer builds and sequences session traders from one config.
type Deployer struct {
	cfg      *config.TradingConfig
	settings *config.Settings
	term     terminal.Terminal
	db       *storage.Database
	notifier execution.Notifier
	fn       strategy.Func

	// Injectable clock for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// Summary is the read-only introspection view of a deployment.
type Summary struct {
	Strategy     string
	Symbol       string
	Timeframe    types.Timeframe
	Lot          decimal.Decimal
	Magic        int
	TradingHours []int
	HourConfigs  map[int]HourSummary
}

// HourSummary is the risk tuple of one configured hour.
type HourSummary struct {
	TP           int
	SL           int
	PositionType types.PositionType
}

// New builds a deployer, resolving the strategy function up front so a
// bad name fails before any trading begins.
func New(cfg *config.TradingConfig, settings *config.Settings, term terminal.Terminal, db *storage.Database) (*Deployer, error) {
	fn, err := strategy.Lookup(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("strategy", cfg.Strategy).
		Str("symbol", cfg.Symbol).
		Ints("hours", cfg.Hours).
		Int("magic", cfg.Magic).
		Msg("🚀 Deployer ready")

	return &Deployer{
		cfg:      cfg,
		settings: settings,
		term:     term,
		db:       db,
		fn:       fn,
		now:      time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}, nil
}

// SetNotifier attaches an optional trade notifier passed through to
// every session's executor.
func (d *Deployer) SetNotifier(n Notifier) {
	d.notifier = n
}

// Notifier mirrors execution.Notifier so callers don't import both.
type Notifier = execution.Notifier

// DeployForHour builds a session trader for a specific hour.
// flattenOnEnd controls whether the session de-risks when it exits.
func (d *Deployer) DeployForHour(hour int, flattenOnEnd bool) (*trader.Trader, error) {
	params, err := d.cfg.Resolve(hour)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutsideHours, err)
	}

	exec := execution.NewExecutor(d.term, d.db, d.cfg.Symbol, d.cfg.Magic, d.cfg.Strategy)
	if d.notifier != nil {
		exec.SetNotifier(d.notifier)
	}

	t := trader.New(trader.Config{
		Symbol:       d.cfg.Symbol,
		Timeframe:    d.cfg.Timeframe,
		StrategyName: d.cfg.Strategy,
		Strategy:     d.fn,
		Params:       params,
		Lot:          d.cfg.Lot,
		Magic:        d.cfg.Magic,
		Strict:       d.settings.Strict,
		FlattenOnEnd: flattenOnEnd,
		WarmupBars:   d.settings.WarmupBars,
		PollInterval: time.Duration(d.settings.PollIntervalMs) * time.Millisecond,
	}, d.term, exec)

	log.Info().
		Int("hour", hour).
		Int("tp", params.TP).
		Int("sl", params.SL).
		Str("position_type", string(params.PositionType)).
		Bool("flatten_on_end", flattenOnEnd).
		Msg("✅ Deployed for hour")

	return t, nil
}

// DeployCurrentHour builds a session trader for the wall-clock hour, or
// ErrOutsideHours when no params are configured for it.
func (d *Deployer) DeployCurrentHour() (*trader.Trader, error) {
	return d.DeployForHour(d.now().Hour(), true)
}

// RunCurrentSession trades the current hour's entry until the cutoff.
func (d *Deployer) RunCurrentSession(ctx context.Context, endHour, endMinute int) error {
	hour := d.now().Hour()
	t, err := d.DeployForHour(hour, true)
	if err != nil {
		if errors.Is(err, ErrOutsideHours) {
			log.Info().Int("hour", hour).Msg("No trading configured for the current hour")
			return nil
		}
		return err
	}

	d.attachFeed(t)

	started := d.now()
	runErr := t.Run(ctx, d.clockAt(endHour, endMinute))
	d.recordSession(t, hour, started, runErr)
	return runErr
}

// attachFeed wires the bar-close push feed when one is configured. A
// dial failure is not fatal: the session falls back to polling.
func (d *Deployer) attachFeed(t *trader.Trader) {
	if d.settings.BridgeWSURL == "" {
		return
	}
	feed, err := terminal.NewBarStream(d.settings.BridgeWSURL, d.cfg.Symbol, d.cfg.Timeframe)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Bar stream unavailable, polling instead")
		return
	}
	t.AttachFeed(feed)
}

// RunFullDay sequences a session for every configured hour. Exposure is
// carried across adjacent hours on purpose: only the last session (or a
// position_type change, handled by the reconciler's containment rule on
// the next session's first tick) flattens.
func (d *Deployer) RunFullDay(ctx context.Context, endHour, endMinute int) error {
	log.Info().
		Ints("hours", d.cfg.Hours).
		Int("magic", d.cfg.Magic).
		Msg("📅 Starting full-day trading")

	for i, hour := range d.cfg.Hours {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := d.waitUntilHour(ctx, hour); err != nil {
			return err
		}

		last := i == len(d.cfg.Hours)-1

		// Flatten when the day ends or the next hour's position type no
		// longer allows what this hour could hold.
		flatten := last
		if !last {
			next := d.cfg.HourParams[d.cfg.Hours[i+1]]
			cur := d.cfg.HourParams[hour]
			flatten = next.PositionType != cur.PositionType
		}

		t, err := d.DeployForHour(hour, flatten)
		if err != nil {
			return err
		}
		d.attachFeed(t)

		sessionEnd := d.clockAt(hour+1, 0)
		if last {
			sessionEnd = d.clockAt(endHour, endMinute)
		}

		started := d.now()
		runErr := t.Run(ctx, sessionEnd)
		d.recordSession(t, hour, started, runErr)
		if runErr != nil {
			if errors.Is(runErr, terminal.ErrConnectionLost) {
				return runErr // fatal for the whole day
			}
			log.Error().Err(runErr).Int("hour", hour).Msg("❌ Session failed, continuing with next hour")
		}
	}

	log.Info().Msg("📅 Full-day trading finished")
	return nil
}

// Summary returns the read-only deployment overview.
func (d *Deployer) Summary() Summary {
	s := Summary{
		Strategy:     d.cfg.Strategy,
		Symbol:       d.cfg.Symbol,
		Timeframe:    d.cfg.Timeframe,
		Lot:          d.cfg.Lot,
		Magic:        d.cfg.Magic,
		TradingHours: append([]int(nil), d.cfg.Hours...),
		HourConfigs:  make(map[int]HourSummary, len(d.cfg.Hours)),
	}
	for hour, hp := range d.cfg.HourParams {
		s.HourConfigs[hour] = HourSummary{
			TP:           hp.TP,
			SL:           hp.SL,
			PositionType: hp.PositionType,
		}
	}
	return s
}

// waitUntilHour sleeps in bounded chunks until the wall clock reaches
// the target hour.
func (d *Deployer) waitUntilHour(ctx context.Context, hour int) error {
	for d.now().Hour() < hour {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		remaining := d.clockAt(hour, 0).Sub(d.now())
		if remaining <= 0 {
			break
		}
		if remaining > waitChunk {
			remaining = waitChunk
		}
		log.Info().
			Int("hour", hour).
			Str("wait", remaining.Round(time.Second).String()).
			Msg("⏳ Waiting for session start")
		d.sleep(ctx, remaining)
	}
	return ctx.Err()
}

// clockAt returns today's wall-clock time at hour:minute.
func (d *Deployer) clockAt(hour, minute int) time.Time {
	now := d.now()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
}

func (d *Deployer) recordSession(t *trader.Trader, hour int, started time.Time, runErr error) {
	opened, closed, failed := t.Stats()
	rec := &storage.SessionRecord{
		Symbol:    d.cfg.Symbol,
		Strategy:  d.cfg.Strategy,
		Hour:      hour,
		Magic:     d.cfg.Magic,
		StartedAt: started,
		EndedAt:   d.now(),
		Opened:    opened,
		Closed:    closed,
		Failed:    failed,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := d.db.SaveSession(rec); err != nil {
		log.Warn().Err(err).Msg("⚠️ Session journal write failed")
	}

	if n, ok := d.notifier.(interface {
		NotifySessionEnd(symbol string, hour int, opened, closed, failed int64)
	}); ok {
		n.NotifySessionEnd(d.cfg.Symbol, hour, opened, closed, failed)
	}
}
