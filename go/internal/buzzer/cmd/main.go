package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizhub/go/internal/buzzer/board"
	"github.com/mcdev12/quizhub/go/internal/buzzer/config"
	"github.com/mcdev12/quizhub/go/internal/buzzer/console"
	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
	"github.com/mcdev12/quizhub/go/internal/buzzer/gateway"
	"github.com/mcdev12/quizhub/go/internal/buzzer/hub"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	flags := pflag.NewFlagSet("quizhub", pflag.ContinueOnError)
	flags.StringVar(&cfg.GameFile, "game", cfg.GameFile, "path to YAML game file")
	flags.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")
	flags.StringVar(&cfg.BoardAddr, "board-addr", cfg.BoardAddr, "spectator board listen address")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	noConsole := flags.Bool("no-console", false, "do not read quizmaster presses from stdin")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("invalid flags")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if err := run(cfg, !*noConsole); err != nil {
		log.Fatal().Err(err).Msg("hub failed")
	}
}

func run(cfg config.Config, withConsole bool) error {
	game, err := config.LoadGame(cfg.GameFile)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	coordCfg, err := game.CoordinatorConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subjects := events.NewSubjects(cfg.SubjectPrefix)

	natsCfg := gateway.DefaultNATSConfig()
	natsCfg.URL = cfg.NATSURL
	natsCfg.StreamName = cfg.StreamName
	natsCfg.InboundBuffer = cfg.InboundBuffer

	transport, err := gateway.NewNATSTransport(ctx, natsCfg, subjects)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	defer transport.Close()

	metrics := coordinator.NewCounterMetrics()
	coord := coordinator.New(coordCfg, metrics)
	gw := gateway.New(subjects, coord, transport)

	clock := clockwork.NewRealClock()
	hubCfg := hub.DefaultConfig()
	hubCfg.TickInterval = cfg.TickInterval
	hubCfg.MaxBatch = cfg.MaxBatch
	h := hub.New(clock, coord, gw, transport.Inbound(), hubCfg)

	boardCfg := board.DefaultConfig()
	boardCfg.Addr = cfg.BoardAddr
	boardCfg.MaxConnections = cfg.BoardMaxConnections
	boardCfg.AllowedOrigins = cfg.BoardOrigins
	health := hub.NewLoopHealthChecker(h, transport, clock, 10*cfg.TickInterval+time.Second)
	b := board.New(boardCfg, h, metrics, health)
	h.Observe(b.OnSnapshot)

	if err := transport.Subscribe(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	log.Info().
		Str("nats_url", cfg.NATSURL).
		Str("subject_prefix", subjects.Prefix).
		Int("capacity", coordCfg.Capacity).
		Int("min_participants", coordCfg.MinParticipants).
		Str("board_addr", cfg.BoardAddr).
		Msg("starting quiz hub")

	errCh := make(chan error, 2)
	go func() { errCh <- h.Run(ctx) }()
	go func() { errCh <- b.Serve(ctx) }()

	if withConsole {
		go func() {
			if err := console.Run(ctx, os.Stdin, h); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("console stopped")
			}
		}()
		log.Info().Msg("reading presses from stdin: s=short l=long v=very long, or a hold like 1.5s")
	}

	pending := 2
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		pending--
		stop()
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	shutdown := time.NewTimer(5 * time.Second)
	defer shutdown.Stop()
	for ; pending > 0; pending-- {
		select {
		case <-errCh:
		case <-shutdown.C:
			log.Warn().Msg("shutdown timed out")
			return nil
		}
	}
	return nil
}
