package main

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the operator console configuration, read from the environment.
type Config struct {
	// Base URL of the game backend that owns rounds, words and scores
	BackendURL string `envconfig:"TEBAK_BACKEND_URL" default:"http://localhost:4000"`

	// Address the admin HTTP surface listens on
	ListenAddr string `envconfig:"TEBAK_LISTEN_ADDR" default:":8090"`

	// Countdown seconds per round, clamped to [5,120]
	RoundSeconds int `envconfig:"TEBAK_ROUND_SECONDS" default:"15"`

	// Chain an expired round into the next question automatically
	AutoAdvance bool `envconfig:"TEBAK_AUTO_ADVANCE" default:"true"`

	// Path to the YAML question bank
	QuestionsPath string `envconfig:"TEBAK_QUESTIONS_PATH" default:"questions.yaml"`

	// Event channel transport: websocket or nats
	EventSource string `envconfig:"TEBAK_EVENT_SOURCE" default:"websocket"`

	// Websocket URL of the backend event channel; derived from BackendURL
	// when empty
	EventsURL string `envconfig:"TEBAK_EVENTS_URL"`

	NATSURL string `envconfig:"TEBAK_NATS_URL" default:"nats://127.0.0.1:4222"`

	DialTimeout time.Duration `envconfig:"TEBAK_DIAL_TIMEOUT" default:"10s"`

	// Human-readable console logging instead of JSON
	PrettyLog bool `envconfig:"TEBAK_PRETTY_LOG" default:"false"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// eventsURL returns the websocket endpoint of the event channel,
// defaulting to the backend host with the scheme swapped.
func (c Config) eventsURL() string {
	if c.EventsURL != "" {
		return c.EventsURL
	}
	u := c.BackendURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + "/events"
}
