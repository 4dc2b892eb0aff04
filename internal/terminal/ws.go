package terminal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BAR STREAM - Bar-close push feed from the sidecar
// ═══════════════════════════════════════════════════════════════════════════════
//
// The sidecar can push bar-close events over WebSocket so the session
// loop wakes on the bar boundary instead of polling. The feed is an
// optimization only: when the socket dies the channel is closed and the
// session falls back to polling the REST endpoint.
//
// ═══════════════════════════════════════════════════════════════════════════════

// BarStream subscribes to bar-close events for one symbol/timeframe.
type BarStream struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	events    chan types.Bar
	connected bool
	stopCh    chan struct{}
}

// wsBarEvent is the push message shape.
type wsBarEvent struct {
	Event string    `json:"event"` // "bar_close"
	Bar   types.Bar `json:"bar"`
}

// NewBarStream dials the sidecar WebSocket and subscribes.
func NewBarStream(wsURL, symbol string, tf types.Timeframe) (*BarStream, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bar stream dial: %w", err)
	}

	sub := map[string]string{
		"action":    "subscribe",
		"symbol":    symbol,
		"timeframe": string(tf),
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bar stream subscribe: %w", err)
	}

	s := &BarStream{
		conn:      conn,
		events:    make(chan types.Bar, 8),
		connected: true,
		stopCh:    make(chan struct{}),
	}
	go s.readLoop()

	log.Info().Str("symbol", symbol).Str("timeframe", string(tf)).Msg("📡 Bar stream subscribed")
	return s, nil
}

// Events yields bar-close events. The channel is closed when the feed
// dies; callers must fall back to polling.
func (s *BarStream) Events() <-chan types.Bar {
	return s.events
}

func (s *BarStream) readLoop() {
	defer func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		close(s.events)
	}()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Bar stream read failed, falling back to polling")
			return
		}

		var ev wsBarEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Debug().Err(err).Msg("Bar stream: unparseable message")
			continue
		}
		if ev.Event != "bar_close" {
			continue
		}

		select {
		case s.events <- ev.Bar:
		default:
			// Slow consumer: drop, the poller will catch up.
		}
	}
}

// Stop closes the subscription.
func (s *BarStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return
	}
	close(s.stopCh)
	s.conn.Close()
}
