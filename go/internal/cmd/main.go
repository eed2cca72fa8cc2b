package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tebaklive/admin/go/clients"
	"github.com/tebaklive/admin/go/internal/game/questions"
	"github.com/tebaklive/admin/go/internal/game/round"
	"github.com/tebaklive/admin/go/internal/game/session"
	"github.com/tebaklive/admin/go/internal/game/subscriber"
	"github.com/tebaklive/admin/go/internal/proxy"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to process configuration")
	}

	if cfg.PrettyLog {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := realMain(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("admin console failed")
	}
}

func realMain(ctx context.Context, cfg Config) error {
	bank, err := questions.Load(cfg.QuestionsPath)
	if err != nil {
		return fmt.Errorf("load question bank: %w", err)
	}
	seq, err := questions.NewSequencer(bank)
	if err != nil {
		return err
	}

	log.Info().
		Int("questions", len(bank)).
		Str("backend", cfg.BackendURL).
		Str("event_source", cfg.EventSource).
		Msg("starting admin console")

	admin := clients.NewAdminClient(cfg.BackendURL, cfg.DialTimeout)
	store := session.NewStore()

	var src subscriber.Source
	switch cfg.EventSource {
	case "nats":
		src = subscriber.NewNATSSource(cfg.NATSURL)
	case "websocket":
		src = subscriber.NewWebsocketSource(cfg.eventsURL())
	default:
		return fmt.Errorf("unknown event source %q", cfg.EventSource)
	}

	ctrl := round.New(round.Config{
		RoundSeconds: cfg.RoundSeconds,
		AutoAdvance:  cfg.AutoAdvance,
	}, admin, store, seq, src.Events())

	go func() {
		if err := src.Run(ctx); err != nil {
			log.Error().Err(err).Msg("event subscriber failed")
		}
	}()
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			log.Error().Err(err).Msg("round controller failed")
		}
	}()

	srv := setupServer(cfg, proxy.New(admin, ctrl).Handler())
	log.Info().Str("addr", cfg.ListenAddr).Msg("admin surface listening")
	return serveHTTP(ctx, srv)
}
