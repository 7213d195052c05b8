package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Light is what a unit's ring would show.
type Light string

const (
	LightOff        Light = "off"
	LightIdle       Light = "idle"
	LightWhite      Light = "white"
	LightActive     Light = "active"
	LightCelebrate  Light = "celebrate"
	LightWrongFlash Light = "wrong_flash"
)

// unit simulates one buzzer on the unit side of the protocol.
type unit struct {
	id       string
	nc       *nats.Conn
	subjects events.Subjects
	autoBuzz time.Duration

	mu     sync.Mutex
	slot   int
	color  string
	phase  string
	light  Light
	buzzed bool
}

func newUnit(id string, nc *nats.Conn, subjects events.Subjects, autoBuzz time.Duration) *unit {
	return &unit{
		id:       id,
		nc:       nc,
		subjects: subjects,
		autoBuzz: autoBuzz,
		light:    LightOff,
	}
}

func (u *unit) subscribe() ([]*nats.Subscription, error) {
	handlers := map[string]nats.MsgHandler{
		u.subjects.Assign(u.id):                   u.onAssign,
		u.subjects.Topic(events.TopicState):       u.onState,
		u.subjects.Topic(events.TopicCommand):     u.onCommand,
		u.subjects.Topic(events.TopicPingRequest): func(*nats.Msg) { u.ping() },
		u.subjects.Topic(events.TopicAnnounce):    u.onAnnounce,
	}

	var subs []*nats.Subscription
	for subject, h := range handlers {
		sub, err := u.nc.Subscribe(subject, h)
		if err != nil {
			return subs, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (u *unit) publish(topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("unit", u.id).Msg("marshal")
		return
	}
	if err := u.nc.Publish(u.subjects.Topic(topic), data); err != nil {
		log.Error().Err(err).Str("unit", u.id).Str("topic", topic).Msg("publish")
	}
}

func (u *unit) join() {
	u.publish(events.TopicJoin, events.JoinPayload{ID: u.id, Capability: 8, Firmware: events.ProtocolVersion})
}

func (u *unit) ping() {
	u.publish(events.TopicPing, events.PingPayload{ID: u.id})
}

func (u *unit) buzz() {
	u.publish(events.TopicBuzz, events.BuzzPayload{ID: u.id, T: time.Now().UnixMilli()})
	log.Info().Str("unit", u.id).Msg("buzz")
}

func (u *unit) onAnnounce(m *nats.Msg) {
	var a events.AnnouncePayload
	if err := json.Unmarshal(m.Data, &a); err != nil {
		return
	}
	u.mu.Lock()
	joined := u.slot != 0
	u.mu.Unlock()
	if !joined && !a.Locked {
		u.join()
	}
}

func (u *unit) onAssign(m *nats.Msg) {
	var a events.AssignPayload
	if err := json.Unmarshal(m.Data, &a); err != nil {
		log.Warn().Err(err).Str("unit", u.id).Msg("bad assignment")
		return
	}
	u.mu.Lock()
	u.slot, u.color = a.Slot, a.Color
	u.mu.Unlock()
	log.Info().Str("unit", u.id).Int("slot", a.Slot).Str("color", a.Color).Msg("assigned")
}

func (u *unit) onState(m *nats.Msg) {
	var s events.StatePayload
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return
	}

	u.mu.Lock()
	prev := u.phase
	u.phase = s.Phase
	if s.Phase == "READY" || s.Phase == "LOBBY" {
		u.buzzed = false
		if u.light != LightCelebrate {
			u.light = LightIdle
		}
	}
	joined := u.slot != 0
	shouldBuzz := joined && s.Phase == "OPEN" && prev != "OPEN" && !u.buzzed && u.autoBuzz > 0
	u.mu.Unlock()

	if shouldBuzz {
		delay := time.Duration(rand.Int64N(int64(u.autoBuzz)))
		time.AfterFunc(delay, func() {
			u.mu.Lock()
			open := u.phase == "OPEN" || u.phase == "ANSWER"
			already := u.buzzed
			u.buzzed = true
			u.mu.Unlock()
			if open && !already {
				u.buzz()
			}
		})
	}
}

func (u *unit) onCommand(m *nats.Msg) {
	var c events.CommandPayload
	if err := json.Unmarshal(m.Data, &c); err != nil || c.Target != u.id {
		return
	}

	u.mu.Lock()
	switch c.Cmd {
	case events.CmdAnimActive:
		u.light = LightActive
	case events.CmdLightWhite:
		u.light = LightWhite
	case events.CmdIdleColor:
		u.light = LightIdle
	case events.CmdCelebrate:
		u.light = LightCelebrate
	case events.CmdWrongFlash:
		u.light = LightWrongFlash
	case events.CmdReset:
		u.light = LightIdle
		u.buzzed = false
	}
	light := u.light
	u.mu.Unlock()

	log.Info().Str("unit", u.id).Str("cmd", c.Cmd).Str("light", string(light)).Msg("command")
}

// run joins and keeps the unit alive until ctx is cancelled.
func (u *unit) run(ctx context.Context, pingEvery time.Duration) {
	u.join()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.mu.Lock()
			joined := u.slot != 0
			u.mu.Unlock()
			if joined {
				u.ping()
			} else {
				u.join()
			}
		}
	}
}
