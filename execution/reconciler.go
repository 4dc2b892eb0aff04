package execution

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/deploybot/internal/config"
	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RECONCILER - Target position → order actions
// ═══════════════════════════════════════════════════════════════════════════════
//
// Hedge-mode semantics: multiple simultaneous orders on one instrument,
// opposite directions included, are allowed and tracked per ticket.
// Each tick the reconciler compares the strategy's target against the
// fresh broker snapshot and emits an ordered action list. Ordering is
// part of the contract: closures always precede opens, so a tick never
// creates double exposure beyond the intentional hedge case.
//
// Per side the order lifecycle is FLAT → OPEN → FLAT, closed by TP, SL,
// an explicit close or the session-end flatten. Only reconciler
// decisions and broker-side fills drive transitions.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ActionKind discriminates order actions.
type ActionKind string

const (
	ActionOpen  ActionKind = "open"
	ActionClose ActionKind = "close"
)

// Action is one order operation to execute against the terminal.
type Action struct {
	Kind ActionKind
	Side types.Side

	// Close
	Ticket int64

	// Open
	Volume   decimal.Decimal
	TPPoints int
	SLPoints int
}

func (a Action) String() string {
	if a.Kind == ActionClose {
		return fmt.Sprintf("close(%s #%d)", a.Side, a.Ticket)
	}
	return fmt.Sprintf("open(%s vol=%s tp=%d sl=%d)", a.Side, a.Volume, a.TPPoints, a.SLPoints)
}

// Reconciler turns target positions into order actions for one
// instrument/magic pair. It holds no order state of its own: the open
// order snapshot is passed in fresh every tick.
type Reconciler struct {
	lot decimal.Decimal
}

// NewReconciler creates a reconciler opening orders of the given lot size.
func NewReconciler(lot decimal.Decimal) *Reconciler {
	return &Reconciler{lot: lot}
}

// Reconcile computes the ordered actions that move the open-order set
// toward the target under the hour's parameters. Deterministic and
// idempotent: an unchanged satisfied target yields no actions.
func (r *Reconciler) Reconcile(target types.Target, open []types.OpenOrder, params config.HourParams) []Action {
	var longs, shorts []types.OpenOrder
	for _, o := range open {
		if o.Side == types.SideLong {
			longs = append(longs, o)
		} else {
			shorts = append(shorts, o)
		}
	}

	var actions []Action

	// A side the position type forbids is closed before anything else:
	// a position_type change must not leave stale exposure.
	if !params.PositionType.Allows(types.SideLong) {
		actions = append(actions, closeAll(longs)...)
		longs = nil
	}
	if !params.PositionType.Allows(types.SideShort) {
		actions = append(actions, closeAll(shorts)...)
		shorts = nil
	}

	// A target on a forbidden side is treated as flat.
	target = target.Filter(params.PositionType)

	switch target {
	case types.TargetFlat:
		actions = append(actions, closeAll(longs)...)
		actions = append(actions, closeAll(shorts)...)

	case types.TargetLong:
		// An existing short is left alone: hedge mode allows opposite
		// exposure until an explicit flatten or position_type change.
		if len(longs) == 0 {
			actions = append(actions, Action{
				Kind:     ActionOpen,
				Side:     types.SideLong,
				Volume:   r.lot,
				TPPoints: params.TP,
				SLPoints: params.SL,
			})
		}

	case types.TargetShort:
		if len(shorts) == 0 {
			actions = append(actions, Action{
				Kind:     ActionOpen,
				Side:     types.SideShort,
				Volume:   r.lot,
				TPPoints: params.TP,
				SLPoints: params.SL,
			})
		}
	}

	return actions
}

func closeAll(orders []types.OpenOrder) []Action {
	actions := make([]Action, 0, len(orders))
	for _, o := range orders {
		actions = append(actions, Action{
			Kind:   ActionClose,
			Side:   o.Side,
			Ticket: o.Ticket,
		})
	}
	return actions
}
