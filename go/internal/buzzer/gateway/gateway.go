package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/quizhub/go/internal/buzzer/arbiter"
	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
	"github.com/mcdev12/quizhub/go/internal/buzzer/registry"
	"github.com/mcdev12/quizhub/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownSubject   = errors.New("unknown subject")
)

// Message is one inbound transport message.
type Message struct {
	Subject string
	Data    []byte
}

// Publisher delivers encoded messages. Retained messages must be kept as the
// last value of their subject for late subscribers.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, retained bool) error
}

// Session is the coordinator surface the gateway drives.
type Session interface {
	Join(id string, capability int, firmware string, now time.Time) (registry.Assignment, []coordinator.Directive, error)
	Signal(id string, now time.Time) ([]coordinator.Directive, error)
	Heartbeat(id string, now time.Time) bool
	Phase() models.Phase
	QueuePosition(id string) (index int, active bool, ok bool)
}

// Gateway binds the session to the pub/sub protocol.
type Gateway struct {
	subjects events.Subjects
	session  Session
	pub      Publisher
}

func New(subjects events.Subjects, session Session, pub Publisher) *Gateway {
	return &Gateway{
		subjects: subjects,
		session:  session,
		pub:      pub,
	}
}

// HandleMessage applies one inbound message and publishes whatever it produces.
// Every returned error has already been logged; the caller only needs it for accounting.
func (g *Gateway) HandleMessage(ctx context.Context, msg Message, now time.Time) error {
	switch msg.Subject {
	case g.subjects.Topic(events.TopicJoin):
		return g.handleJoin(ctx, msg, now)
	case g.subjects.Topic(events.TopicBuzz):
		return g.handleBuzz(ctx, msg, now)
	case g.subjects.Topic(events.TopicPing):
		return g.handlePing(msg, now)
	default:
		log.Warn().Str("subject", msg.Subject).Msg("message on unexpected subject dropped")
		return fmt.Errorf("%s: %w", msg.Subject, ErrUnknownSubject)
	}
}

func (g *Gateway) handleJoin(ctx context.Context, msg Message, now time.Time) error {
	var p events.JoinPayload
	if err := decode(msg, &p, &p.ID); err != nil {
		return err
	}
	if p.Capability == 0 {
		p.Capability = models.DefaultCapability
	}
	if p.Firmware == "" {
		p.Firmware = models.DefaultFirmware
	}

	a, out, err := g.session.Join(p.ID, p.Capability, p.Firmware, now)
	if err != nil {
		log.Info().Err(err).Str("participant_id", p.ID).Msg("join rejected")
		return fmt.Errorf("join %s: %w", p.ID, err)
	}

	if a.Reconnected {
		out = append(out, g.replay(a.ID)...)
	}

	log.Debug().
		Str("participant_id", a.ID).
		Bool("reconnected", a.Reconnected).
		Int("directives", len(out)).
		Msg("join handled")

	return g.Dispatch(ctx, out)
}

// replay returns the command that puts a reconnecting unit's lights back in
// line with its place in the round.
func (g *Gateway) replay(id string) []coordinator.Directive {
	_, active, queued := g.session.QueuePosition(id)
	switch {
	case queued && active:
		return []coordinator.Directive{coordinator.Command{Kind: coordinator.CommandActiveTurn, Target: id}}
	case queued:
		return []coordinator.Directive{coordinator.Command{Kind: coordinator.CommandLockedWhite, Target: id}}
	}
	switch g.session.Phase() {
	case models.PhaseReady, models.PhaseOpen:
		return []coordinator.Directive{coordinator.Command{Kind: coordinator.CommandIdleColor, Target: id}}
	}
	return nil
}

func (g *Gateway) handleBuzz(ctx context.Context, msg Message, now time.Time) error {
	var p events.BuzzPayload
	if err := decode(msg, &p, &p.ID); err != nil {
		return err
	}

	out, err := g.session.Signal(p.ID, now)
	if err != nil {
		ev := log.Debug()
		if errors.Is(err, arbiter.ErrUnknownParticipant) {
			ev = log.Warn()
		}
		ev.Err(err).Str("participant_id", p.ID).Int64("client_t", p.T).Msg("signal ignored")
		return fmt.Errorf("buzz %s: %w", p.ID, err)
	}

	return g.Dispatch(ctx, out)
}

func (g *Gateway) handlePing(msg Message, now time.Time) error {
	var p events.PingPayload
	if err := decode(msg, &p, &p.ID); err != nil {
		return err
	}
	if !g.session.Heartbeat(p.ID, now) {
		log.Debug().Str("participant_id", p.ID).Msg("heartbeat from unknown participant")
	}
	return nil
}

// Dispatch encodes and publishes directives in order. A failed publish does
// not stop the rest; all failures are returned joined.
func (g *Gateway) Dispatch(ctx context.Context, directives []coordinator.Directive) error {
	var errs []error
	for _, d := range directives {
		subject, data, retained, err := g.encode(d)
		if err != nil {
			log.Error().Err(err).Msg("encode directive")
			errs = append(errs, err)
			continue
		}
		if err := g.pub.Publish(ctx, subject, data, retained); err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("publish directive")
			errs = append(errs, fmt.Errorf("publish %s: %w", subject, err))
			continue
		}
		log.Debug().Str("subject", subject).Bool("retained", retained).RawJSON("payload", data).Msg("published")
	}
	return errors.Join(errs...)
}

// decode unmarshals a unit payload and requires a non-empty id.
func decode(msg Message, v any, id *string) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed payload dropped")
		return fmt.Errorf("%s: %w: %v", msg.Subject, ErrMalformedPayload, err)
	}
	if *id == "" {
		log.Warn().Str("subject", msg.Subject).Msg("payload without id dropped")
		return fmt.Errorf("%s: %w: missing id", msg.Subject, ErrMalformedPayload)
	}
	return nil
}
