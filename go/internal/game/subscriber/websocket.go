package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tebaklive/admin/go/internal/game/events"
)

// Source is a persistent channel of backend push events. One source is
// opened per session and torn down with the session context; consumers read
// events in arrival order.
type Source interface {
	Events() <-chan events.Push
	Run(ctx context.Context) error
}

const (
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = 30 * time.Second
	reconnectWait = 2 * time.Second
)

// WebsocketSource subscribes to the backend event channel over a websocket
// and decodes push envelopes into a FIFO channel. Malformed frames are
// dropped rather than tearing the session down.
type WebsocketSource struct {
	url    string
	dialer *websocket.Dialer
	events chan events.Push
}

func NewWebsocketSource(url string) *WebsocketSource {
	return &WebsocketSource{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		events: make(chan events.Push, 256),
	}
}

func (s *WebsocketSource) Events() <-chan events.Push {
	return s.events
}

// Run keeps one connection alive until ctx is cancelled, reconnecting with
// a fixed wait after a drop.
func (s *WebsocketSource) Run(ctx context.Context) error {
	for {
		if err := s.consume(ctx); err != nil {
			log.Warn().Err(err).Str("url", s.url).Msg("event channel dropped, reconnecting")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectWait):
		}
	}
}

func (s *WebsocketSource) consume(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial event channel: %w", err)
	}
	defer conn.Close()
	log.Info().Str("url", s.url).Msg("event channel connected")

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	// pings keep the connection alive; closing the conn on ctx cancel
	// unblocks the read loop below
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read event channel: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		var push events.Push
		if err := json.Unmarshal(message, &push); err != nil || push.Name == "" {
			log.Debug().Err(err).Msg("dropping malformed event frame")
			continue
		}

		select {
		case s.events <- push:
		case <-ctx.Done():
			return nil
		}
	}
}
