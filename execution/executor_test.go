package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/deploybot/internal/terminal"
	"github.com/web3guy0/deploybot/types"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestExecutor(t *testing.T) (*Executor, *terminal.Paper) {
	t.Helper()
	paper := terminal.NewPaper()
	paper.SetQuote(types.Quote{Bid: dec(130000), Ask: dec(130005)})
	return NewExecutor(paper, nil, "WINM25", 2, "pattern_rsi_trend"), paper
}

func TestExecuteOpenLongPricesFromAsk(t *testing.T) {
	exec, paper := newTestExecutor(t)
	ctx := context.Background()

	err := exec.Execute(ctx, []Action{
		{Kind: ActionOpen, Side: types.SideLong, Volume: dec(1), TPPoints: 1445, SLPoints: 200},
	})
	require.NoError(t, err)

	orders, err := paper.OpenOrders(ctx, "WINM25", 2)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	require.Equal(t, types.SideLong, o.Side)
	require.True(t, o.EntryPrice.Equal(dec(130005)), "long fills at ask")
	require.True(t, o.TP.Equal(dec(130005+1445)), "tp above entry, got %s", o.TP)
	require.True(t, o.SL.Equal(dec(130005-200)), "sl below entry, got %s", o.SL)
}

func TestExecuteOpenShortPricesFromBid(t *testing.T) {
	exec, paper := newTestExecutor(t)
	ctx := context.Background()

	err := exec.Execute(ctx, []Action{
		{Kind: ActionOpen, Side: types.SideShort, Volume: dec(1), TPPoints: 1445, SLPoints: 200},
	})
	require.NoError(t, err)

	orders, _ := paper.OpenOrders(ctx, "WINM25", 2)
	require.Len(t, orders, 1)

	o := orders[0]
	require.True(t, o.EntryPrice.Equal(dec(130000)), "short fills at bid")
	require.True(t, o.TP.Equal(dec(130000-1445)), "tp below entry, got %s", o.TP)
	require.True(t, o.SL.Equal(dec(130000+200)), "sl above entry, got %s", o.SL)
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	exec, paper := newTestExecutor(t)
	ctx := context.Background()

	// Seed one long to close.
	ticket, err := paper.Open(ctx, terminal.OpenRequest{
		Symbol: "WINM25", Side: types.SideLong, Volume: dec(1), Magic: 2,
	})
	require.NoError(t, err)

	rejected := errors.New("requote")
	paper.FailNextClose(rejected)

	err = exec.Execute(ctx, []Action{
		{Kind: ActionClose, Side: types.SideLong, Ticket: ticket},
		{Kind: ActionOpen, Side: types.SideShort, Volume: dec(1), TPPoints: 100, SLPoints: 50},
	})

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, ActionClose, execErr.Action.Kind)
	require.ErrorIs(t, err, rejected)

	// The open after the failed close must not have run.
	orders, _ := paper.OpenOrders(ctx, "WINM25", 2)
	require.Len(t, orders, 1)
	require.Equal(t, types.SideLong, orders[0].Side)

	opened, closed, failed := exec.Stats()
	require.Equal(t, int64(0), opened)
	require.Equal(t, int64(0), closed)
	require.Equal(t, int64(1), failed)
}

func TestExecuteMagicIsolation(t *testing.T) {
	paper := terminal.NewPaper()
	paper.SetQuote(types.Quote{Bid: dec(5000), Ask: dec(5001)})
	ctx := context.Background()

	execA := NewExecutor(paper, nil, "WDOM25", 2, "bb_trend")
	execB := NewExecutor(paper, nil, "WDOM25", 9, "bb_trend")

	require.NoError(t, execA.Execute(ctx, []Action{
		{Kind: ActionOpen, Side: types.SideLong, Volume: dec(1), TPPoints: 10, SLPoints: 5},
	}))
	require.NoError(t, execB.Execute(ctx, []Action{
		{Kind: ActionOpen, Side: types.SideShort, Volume: dec(1), TPPoints: 10, SLPoints: 5},
	}))

	a, _ := paper.OpenOrders(ctx, "WDOM25", 2)
	b, _ := paper.OpenOrders(ctx, "WDOM25", 9)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Equal(t, types.SideLong, a[0].Side)
	require.Equal(t, types.SideShort, b[0].Side)
}

func TestExecuteCountsStats(t *testing.T) {
	exec, paper := newTestExecutor(t)
	ctx := context.Background()

	require.NoError(t, exec.Execute(ctx, []Action{
		{Kind: ActionOpen, Side: types.SideLong, Volume: dec(1), TPPoints: 100, SLPoints: 50},
	}))
	orders, _ := paper.OpenOrders(ctx, "WINM25", 2)
	require.NoError(t, exec.Execute(ctx, []Action{
		{Kind: ActionClose, Side: types.SideLong, Ticket: orders[0].Ticket},
	}))

	opened, closed, failed := exec.Stats()
	require.Equal(t, int64(1), opened)
	require.Equal(t, int64(1), closed)
	require.Equal(t, int64(0), failed)
}
