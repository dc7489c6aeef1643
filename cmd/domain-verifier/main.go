package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/config"
	"github.com/eventreg/eventreg-server/internal/storage"
	"github.com/eventreg/eventreg-server/internal/verifier"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/platform-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// The verifier is driven entirely by NATS, so the connection is not
	// optional here.
	if cfg.NATS.URL == "" {
		log.Fatal().Msg("NATS URL is required for the domain verifier")
	}

	// Connect to database
	store, err := storage.NewPostgresStore(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	// Connect to NATS
	log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("eventreg-domain-verifier"),
		nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
		nats.ReconnectWait(cfg.NATS.ReconnectInterval),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer nc.Close()

	log.Info().Msg("Connected to NATS")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := verifier.NewWorker(nc, store, &cfg.Verifier)

	done := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting domain verifier")
		done <- worker.Start(ctx)
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			log.Fatal().Err(err).Msg("Domain verifier failed")
		}
	}

	log.Info().Msg("Domain verifier stopped")
}
