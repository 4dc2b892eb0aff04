package terminal

import (
	"context"

	"github.com/web3guy0/deploybot/types"
)

// DryRun composes live market data from the bridge with paper
// execution: bars and quotes come from the real terminal, orders stay
// in memory. Quotes are mirrored into the paper book so simulated fills
// price correctly.
type DryRun struct {
	data  Terminal
	paper *Paper
}

// NewDryRun wraps a live data source with paper execution.
func NewDryRun(data Terminal) *DryRun {
	return &DryRun{data: data, paper: NewPaper()}
}

func (d *DryRun) Bars(ctx context.Context, symbol string, tf types.Timeframe, count int) ([]types.Bar, error) {
	return d.data.Bars(ctx, symbol, tf, count)
}

func (d *DryRun) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	q, err := d.data.Quote(ctx, symbol)
	if err != nil {
		return q, err
	}
	d.paper.SetQuote(q)
	d.paper.TriggerStops(q)
	return q, nil
}

func (d *DryRun) Open(ctx context.Context, req OpenRequest) (int64, error) {
	return d.paper.Open(ctx, req)
}

func (d *DryRun) Close(ctx context.Context, ticket int64) error {
	return d.paper.Close(ctx, ticket)
}

func (d *DryRun) OpenOrders(ctx context.Context, symbol string, magic int) ([]types.OpenOrder, error) {
	return d.paper.OpenOrders(ctx, symbol, magic)
}

func (d *DryRun) IsConnected() bool {
	return d.data.IsConnected()
}

func (d *DryRun) Disconnect() error {
	d.paper.Disconnect()
	return d.data.Disconnect()
}
