package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type NATSConfig struct {
	URL           string
	Name          string
	StreamName    string
	MaxReconnects int
	ReconnectWait time.Duration
	InboundBuffer int
	AckTimeout    time.Duration
	MaxAsyncAcks  int
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "quizhub",
		StreamName:    "QUIZ_RETAINED",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		InboundBuffer: 256,
		AckTimeout:    2 * time.Second,
		MaxAsyncAcks:  256,
	}
}

// NATSTransport carries unit traffic over NATS core subjects and keeps the
// retained subjects in a memory JetStream stream holding one message per subject.
type NATSTransport struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	config   NATSConfig
	subjects events.Subjects
	hubID    string

	inbound chan Message
	dropped atomic.Uint64

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNATSTransport(ctx context.Context, cfg NATSConfig, subjects events.Subjects) (*NATSTransport, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
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

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc, jetstream.WithPublishAsyncMaxPending(cfg.MaxAsyncAcks))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	t := &NATSTransport{
		nc:       nc,
		js:       js,
		config:   cfg,
		subjects: subjects,
		hubID:    uuid.NewString(),
		inbound:  make(chan Message, cfg.InboundBuffer),
	}

	if err := t.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("stream", cfg.StreamName).
		Str("hub_id", t.hubID).
		Msg("connected to NATS")

	return t, nil
}

func (t *NATSTransport) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:              t.config.StreamName,
		Description:       "Last value of retained quiz subjects",
		Subjects:          t.subjects.Retained(),
		Retention:         jetstream.LimitsPolicy,
		MaxMsgsPerSubject: 1,
		Discard:           jetstream.DiscardOld,
		Storage:           jetstream.MemoryStorage,
		Replicas:          1,
	}
}

func (t *NATSTransport) ensureStream(ctx context.Context) error {
	sc := t.streamConfig()

	stream, err := t.js.Stream(ctx, t.config.StreamName)
	if err != nil {
		if _, err = t.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", sc.Name).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = t.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", sc.Name).Msg("updated JetStream stream")
	}
	return nil
}

// Subscribe starts delivering unit traffic to Inbound. Callbacks never block:
// when the buffer is full the message is dropped.
func (t *NATSTransport) Subscribe() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, subject := range t.subjects.Inbound() {
		sub, err := t.nc.Subscribe(subject, t.enqueue)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		t.subs = append(t.subs, sub)
		log.Info().Str("subject", subject).Msg("subscribed")
	}
	return nil
}

func (t *NATSTransport) enqueue(m *nats.Msg) {
	msg := Message{Subject: m.Subject, Data: m.Data}
	select {
	case t.inbound <- msg:
	default:
		n := t.dropped.Add(1)
		log.Warn().Str("subject", m.Subject).Uint64("dropped_total", n).Msg("inbound buffer full, message dropped")
	}
}

// Inbound is drained by the hub loop.
func (t *NATSTransport) Inbound() <-chan Message {
	return t.inbound
}

// Dropped counts inbound messages lost to a full buffer.
func (t *NATSTransport) Dropped() uint64 {
	return t.dropped.Load()
}

// Publish sends data on subject. Retained messages go through JetStream
// asynchronously; ordering on the connection is preserved either way.
func (t *NATSTransport) Publish(ctx context.Context, subject string, data []byte, retained bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !retained {
		if err := t.nc.Publish(subject, data); err != nil {
			return fmt.Errorf("publish to NATS: %w", err)
		}
		return nil
	}

	msgID := uuid.NewString()
	fut, err := t.js.PublishMsgAsync(&nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Hub-ID": []string{t.hubID},
			"Msg-ID": []string{msgID},
		},
	},
		jetstream.WithMsgID(msgID),
		jetstream.WithExpectStream(t.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	go t.awaitAck(subject, msgID, fut)
	return nil
}

func (t *NATSTransport) awaitAck(subject, msgID string, fut jetstream.PubAckFuture) {
	timer := time.NewTimer(t.config.AckTimeout)
	defer timer.Stop()

	select {
	case ack := <-fut.Ok():
		log.Debug().
			Str("subject", subject).
			Str("msg_id", msgID).
			Uint64("sequence", ack.Sequence).
			Msg("retained message stored")
	case err := <-fut.Err():
		log.Error().Err(err).Str("subject", subject).Str("msg_id", msgID).Msg("retained publish failed")
	case <-timer.C:
		log.Warn().Str("subject", subject).Str("msg_id", msgID).Msg("retained publish ack timed out")
	}
}

// LastRetained fetches the last retained message on subject.
func (t *NATSTransport) LastRetained(ctx context.Context, subject string) ([]byte, error) {
	stream, err := t.js.Stream(ctx, t.config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	msg, err := stream.GetLastMsgForSubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("last message for %s: %w", subject, err)
	}
	return msg.Data, nil
}

func (t *NATSTransport) IsConnected() bool {
	return t.nc != nil && t.nc.IsConnected()
}

func (t *NATSTransport) Close() error {
	t.mu.Lock()
	for _, sub := range t.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("subject", sub.Subject).Msg("unsubscribe")
		}
	}
	t.subs = nil
	t.mu.Unlock()

	if t.nc != nil {
		if err := t.nc.Drain(); err != nil {
			t.nc.Close()
			return fmt.Errorf("drain NATS connection: %w", err)
		}
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	if len(a.Subjects) != len(b.Subjects) {
		return false
	}
	for i := range a.Subjects {
		if a.Subjects[i] != b.Subjects[i] {
			return false
		}
	}
	return a.Name == b.Name &&
		a.MaxMsgsPerSubject == b.MaxMsgsPerSubject &&
		a.Storage == b.Storage &&
		a.Replicas == b.Replicas
}
