package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ltprelay/internal/application/port"
	"ltprelay/internal/application/usecase/relay"
	"ltprelay/internal/infrastructure/config"
	"ltprelay/internal/infrastructure/feed"
	"ltprelay/internal/infrastructure/feed/dhan"
	"ltprelay/internal/infrastructure/logger"
	"ltprelay/internal/infrastructure/securities"
	"ltprelay/internal/infrastructure/storage"
	"ltprelay/internal/interfaces/console"
	"ltprelay/internal/interfaces/telegram"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	specs := make([]securities.Spec, 0, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		specs = append(specs, securities.Spec{
			Symbol:     inst.Symbol,
			Kind:       inst.Kind,
			SecurityID: inst.SecurityID,
			Segment:    inst.Segment,
		})
	}
	instruments := securities.ResolveAll(specs)
	if len(instruments) == 0 {
		log.Fatal().Msg("no instrument could be resolved")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// outbound channel
	var sink port.MessageSink
	if cfg.Telegram.Enabled {
		sink, err = telegram.NewSink(cfg.Credentials.TelegramToken, cfg.Telegram.Chat)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram sink init failed")
		}
	} else {
		log.Warn().Msg("telegram disabled, printing updates to console")
		sink = console.NewSink()
	}

	// optional persistence
	repo, err := storage.Build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	if repo == nil {
		repo = relay.NewNoopRepo()
	}
	defer repo.Close()

	// supervised feed
	client := dhan.NewClient(dhan.Config{
		WSURL:          cfg.Feed.WsURL,
		ClientID:       cfg.Credentials.DhanClientID,
		AccessToken:    cfg.Credentials.DhanAccessToken,
		SilenceTimeout: cfg.SilenceTimeout(),
		PingInterval:   cfg.PingInterval(),
		SubscribeBatch: cfg.Feed.SubscribeBatch,
	})
	sup := feed.NewSupervisor("dhan",
		func(ctx context.Context) (feed.Conn, error) { return client.Dial(ctx) },
		feed.Options{
			Backoff:     feed.NewBackoff(cfg.BackoffBase(), cfg.BackoffMax(), cfg.BackoffJitter()),
			MaxFailures: cfg.Feed.MaxFailures,
		})

	svc := relay.NewService(relay.ServiceDeps{
		Feed:          sup,
		Instruments:   instruments,
		Sink:          sink,
		Repo:          repo,
		FlushInterval: cfg.FlushInterval(),
		ShutdownGrace: cfg.ShutdownGrace(),
		Dispatch: relay.DispatcherConfig{
			MaxAttempts: cfg.Channel.MaxAttempts,
			RetryBase:   cfg.RetryBase(),
		},
	})

	log.Info().
		Str("config", *configPath).
		Int("instruments", len(instruments)).
		Str("sink", sink.Name()).
		Msg("ltprelay started")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("relay exited")
	}
	log.Info().Msg("ltprelay stopped")
}
