package subscriber

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/tebaklive/admin/go/internal/game/events"
)

// SubjectPrefix is the NATS subject namespace for backend pushes. The
// subject suffix is the push name, the message body is its JSON payload,
// e.g. game.events.correct carrying {"username":...,"answer":...,"scores":...}.
const SubjectPrefix = "game.events."

// NATSSource is the alternative event channel for deployments where the
// backend publishes pushes to a NATS broker instead of exposing a
// websocket.
type NATSSource struct {
	url    string
	events chan events.Push
}

func NewNATSSource(url string) *NATSSource {
	return &NATSSource{
		url:    url,
		events: make(chan events.Push, 256),
	}
}

func (s *NATSSource) Events() <-chan events.Push {
	return s.events
}

// Run subscribes to the push subjects and blocks until ctx is cancelled.
// The nats client handles reconnects on its own.
func (s *NATSSource) Run(ctx context.Context) error {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(s.url, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		push, ok := pushFromSubject(msg.Subject, msg.Data)
		if !ok {
			log.Debug().Str("subject", msg.Subject).Msg("dropping push with unusable subject")
			return
		}
		select {
		case s.events <- push:
		default:
			// the callback must not block the nats client
			log.Warn().Str("subject", msg.Subject).Msg("event buffer full, dropping push")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s>: %w", SubjectPrefix, err)
	}
	defer sub.Unsubscribe()

	log.Info().Str("url", s.url).Str("subject", SubjectPrefix+">").Msg("event channel connected")
	<-ctx.Done()
	return nil
}

// pushFromSubject maps game.events.<name> onto a push envelope. Subjects
// with empty or nested suffixes are rejected.
func pushFromSubject(subject string, data []byte) (events.Push, bool) {
	name, ok := strings.CutPrefix(subject, SubjectPrefix)
	if !ok || name == "" || strings.Contains(name, ".") {
		return events.Push{}, false
	}
	return events.Push{Name: events.Name(name), Payload: data}, true
}
