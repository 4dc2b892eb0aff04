package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BRIDGE - HTTP client for the terminal sidecar
// ═══════════════════════════════════════════════════════════════════════════════
//
// The trading terminal runs behind a small HTTP sidecar that fronts its
// native API. The bridge implements Terminal against it:
//   • Bars:       GET  /bars?symbol=...&timeframe=...&count=...
//   • Quote:      GET  /quote?symbol=...
//   • Open:       POST /order/open   {symbol, side, volume, tp, sl, magic, comment}
//   • Close:      POST /order/close  {ticket}
//   • OpenOrders: GET  /orders?symbol=...&magic=...
//   • health:     GET  /health
//
// A request that fails at the transport level marks the handle
// disconnected; the session loop treats that as fatal.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Bridge talks to the terminal sidecar over HTTP.
type Bridge struct {
	base      string
	hc        *http.Client
	connected atomic.Bool
}

// NewBridge creates a bridge client for the given base URL.
func NewBridge(base string) *Bridge {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "http://127.0.0.1:8787"
	}
	b := &Bridge{
		base: base,
		hc:   &http.Client{Timeout: 15 * time.Second},
	}
	b.connected.Store(true)
	return b
}

// Connect verifies the sidecar is reachable and the terminal session is
// live before any trading begins.
func (b *Bridge) Connect(ctx context.Context) error {
	var out struct {
		Connected bool `json:"connected"`
	}
	if err := b.getJSON(ctx, "/health", nil, &out); err != nil {
		b.connected.Store(false)
		return fmt.Errorf("bridge health check: %w", err)
	}
	b.connected.Store(out.Connected)
	if !out.Connected {
		return ErrConnectionLost
	}
	log.Info().Str("bridge", b.base).Msg("🔌 Terminal bridge connected")
	return nil
}

func (b *Bridge) Bars(ctx context.Context, symbol string, tf types.Timeframe, count int) ([]types.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	q.Set("count", fmt.Sprintf("%d", count))

	var bars []types.Bar
	if err := b.getJSON(ctx, "/bars", q, &bars); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrDataUnavailable
	}
	return bars, nil
}

func (b *Bridge) Quote(ctx context.Context, symbol string) (types.Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var out types.Quote
	if err := b.getJSON(ctx, "/quote", q, &out); err != nil {
		return types.Quote{}, err
	}
	if out.Bid.IsZero() && out.Ask.IsZero() {
		return types.Quote{}, ErrDataUnavailable
	}
	return out, nil
}

func (b *Bridge) Open(ctx context.Context, req OpenRequest) (int64, error) {
	var out struct {
		Ticket int64  `json:"ticket"`
		Error  string `json:"error"`
	}
	if err := b.postJSON(ctx, "/order/open", req, &out); err != nil {
		return 0, err
	}
	if out.Error != "" {
		return 0, fmt.Errorf("terminal rejected open: %s", out.Error)
	}
	return out.Ticket, nil
}

func (b *Bridge) Close(ctx context.Context, ticket int64) error {
	body := map[string]int64{"ticket": ticket}
	var out struct {
		Error string `json:"error"`
	}
	if err := b.postJSON(ctx, "/order/close", body, &out); err != nil {
		return err
	}
	if out.Error != "" {
		return fmt.Errorf("terminal rejected close of %d: %s", ticket, out.Error)
	}
	return nil
}

func (b *Bridge) OpenOrders(ctx context.Context, symbol string, magic int) ([]types.OpenOrder, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("magic", fmt.Sprintf("%d", magic))

	var orders []types.OpenOrder
	if err := b.getJSON(ctx, "/orders", q, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (b *Bridge) IsConnected() bool {
	return b.connected.Load()
}

// Disconnect releases the terminal session on the sidecar side.
func (b *Bridge) Disconnect() error {
	if !b.connected.Swap(false) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.postJSON(ctx, "/disconnect", struct{}{}, nil); err != nil {
		log.Warn().Err(err).Msg("⚠️ Bridge disconnect failed")
		return err
	}
	log.Info().Msg("🔌 Terminal bridge disconnected")
	return nil
}

// --- transport helpers ---

func (b *Bridge) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := b.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return b.do(req, out)
}

func (b *Bridge) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func (b *Bridge) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", "deploybot/bridge")

	res, err := b.hc.Do(req)
	if err != nil {
		// Transport failure: the terminal session is gone.
		b.connected.Store(false)
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrDataUnavailable
	}
	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bridge %s: status %d: %s", req.URL.Path, res.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
