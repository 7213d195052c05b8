package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("unitsim failed")
	}
}

func run() error {
	var (
		natsURL  = getEnv("QUIZ_NATS_URL", nats.DefaultURL)
		prefix   = getEnv("QUIZ_SUBJECT_PREFIX", events.DefaultPrefix)
		stream   = getEnv("QUIZ_STREAM_NAME", "QUIZ_RETAINED")
		count    int
		autoBuzz time.Duration
		ping     time.Duration
		ids      []string
	)

	flags := pflag.NewFlagSet("unitsim", pflag.ContinueOnError)
	flags.StringVar(&natsURL, "nats-url", natsURL, "NATS server URL")
	flags.StringVar(&prefix, "prefix", prefix, "subject prefix")
	flags.StringVar(&stream, "stream", stream, "retained stream name")
	flags.IntVarP(&count, "units", "n", 2, "number of simulated units")
	flags.StringSliceVar(&ids, "id", nil, "explicit unit ids (repeatable); overrides --units")
	flags.DurationVar(&autoBuzz, "auto-buzz", 2*time.Second, "buzz at a random delay up to this after a round opens (0 disables)")
	flags.DurationVar(&ping, "ping", 5*time.Second, "heartbeat interval")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if len(ids) == 0 {
		for i := 0; i < count; i++ {
			ids = append(ids, "unit-"+uuid.NewString()[:8])
		}
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("quiz-unitsim"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Drain()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subjects := events.NewSubjects(prefix)
	lastState := fetchRetained(ctx, nc, stream, subjects.Topic(events.TopicState))

	for _, id := range ids {
		u := newUnit(id, nc, subjects, autoBuzz)
		if _, err := u.subscribe(); err != nil {
			return err
		}
		if lastState != nil {
			u.onState(&nats.Msg{Data: lastState})
		}
		go u.run(ctx, ping)
		log.Info().Str("unit", id).Msg("unit started")
	}

	<-ctx.Done()
	log.Info().Msg("stopping units")
	return nil
}

// fetchRetained returns the last retained message on subject, or nil.
func fetchRetained(ctx context.Context, nc *nats.Conn, streamName, subject string) []byte {
	js, err := jetstream.New(nc)
	if err != nil {
		log.Warn().Err(err).Msg("JetStream unavailable")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	s, err := js.Stream(ctx, streamName)
	if err != nil {
		log.Warn().Err(err).Str("stream", streamName).Msg("retained stream not found")
		return nil
	}
	msg, err := s.GetLastMsgForSubject(ctx, subject)
	if err != nil {
		log.Debug().Err(err).Str("subject", subject).Msg("no retained message")
		return nil
	}
	log.Info().Str("subject", subject).RawJSON("payload", msg.Data).Msg("retained hub state")
	return msg.Data
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
