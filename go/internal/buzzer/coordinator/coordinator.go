package coordinator

import (
	"errors"
	"time"

	"github.com/mcdev12/quizhub/go/internal/buzzer/arbiter"
	"github.com/mcdev12/quizhub/go/internal/buzzer/registry"
	"github.com/mcdev12/quizhub/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Config holds the session rules and timings.
type Config struct {
	Capacity            int
	MinParticipants     int
	Palette             []models.Color
	BootDuration        time.Duration
	CelebrationDuration time.Duration
	ClientTimeout       time.Duration
	HeartbeatInterval   time.Duration
}

// DefaultConfig returns the rules the buzzer firmware was built around.
func DefaultConfig() Config {
	return Config{
		Capacity:            10,
		MinParticipants:     1,
		Palette:             models.DefaultPalette,
		BootDuration:        15 * time.Second,
		CelebrationDuration: 5 * time.Second,
		ClientTimeout:       10 * time.Second,
		HeartbeatInterval:   5 * time.Second,
	}
}

// Coordinator is the session state machine. It exclusively owns the registry
// and the arbiter and must only be driven from one goroutine.
type Coordinator struct {
	cfg      Config
	registry *registry.Registry
	arbiter  *arbiter.Arbiter
	metrics  MetricsCollector

	session              models.Session
	lastHeartbeatRequest time.Time
}

// New creates a coordinator in BOOT. Call Start before the first tick.
func New(cfg Config, metrics MetricsCollector) *Coordinator {
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	reg := registry.NewRegistry(cfg.Capacity, cfg.Palette)
	cfg.Capacity = reg.Capacity()
	return &Coordinator{
		cfg:      cfg,
		registry: reg,
		arbiter:  arbiter.NewArbiter(reg, reg.Capacity()),
		metrics:  metrics,
		session:  models.Session{Phase: models.PhaseBoot},
	}
}

// Start records the boot time and returns the initial announce and state broadcasts.
func (c *Coordinator) Start(now time.Time) []Directive {
	c.session.BootedAt = now
	c.lastHeartbeatRequest = now
	log.Info().
		Int("capacity", c.cfg.Capacity).
		Int("min_participants", c.cfg.MinParticipants).
		Dur("boot_duration", c.cfg.BootDuration).
		Msg("session coordinator started")
	return []Directive{c.announce(), c.stateIn(c.session.Phase)}
}

// Press feeds a quizmaster button press into the state machine.
func (c *Coordinator) Press(p models.Press, now time.Time) []Directive {
	trigger, ok := triggerFor(p)
	if !ok {
		return nil
	}
	log.Debug().Str("press", p.String()).Str("phase", c.session.Phase.String()).Msg("button press")
	return c.fire(trigger, now)
}

// Tick evaluates every level-triggered timer against now.
func (c *Coordinator) Tick(now time.Time) []Directive {
	var out []Directive

	switch c.session.Phase {
	case models.PhaseBoot:
		if now.Sub(c.session.BootedAt) >= c.cfg.BootDuration {
			out = append(out, c.fire(TriggerBootElapsed, now)...)
		}
	case models.PhaseResolving:
		if d := c.session.ResolvingDeadline; d != nil && !now.Before(*d) {
			out = append(out, c.fire(TriggerDeadlineElapsed, now)...)
		}
	}

	if timedOut := c.registry.SweepTimeouts(now, c.cfg.ClientTimeout); len(timedOut) > 0 {
		c.metrics.RecordTimeouts(len(timedOut))
	}

	if now.Sub(c.lastHeartbeatRequest) >= c.cfg.HeartbeatInterval {
		c.lastHeartbeatRequest = now
		out = append(out, HeartbeatRequest{At: now})
	}

	return out
}

// Join admits or reactivates a unit. A rejected join returns no directives.
func (c *Coordinator) Join(id string, capability int, firmware string, now time.Time) (registry.Assignment, []Directive, error) {
	adm := registry.Admission{Phase: c.session.Phase, Locked: c.session.Locked}
	a, err := c.registry.Join(id, capability, firmware, adm, now)
	c.metrics.RecordJoin(a.Reconnected, err)
	if err != nil {
		return registry.Assignment{}, nil, err
	}

	out := []Directive{Assignment{Target: a.ID, Slot: a.Slot, Color: a.Color}}
	if !a.Reconnected {
		out = append(out, c.stateIn(c.session.Phase))
	}
	return a, out, nil
}

// Signal arbitrates a buzz. Ignored signals return an arbiter error and no directives.
func (c *Coordinator) Signal(id string, now time.Time) ([]Directive, error) {
	res, err := c.arbiter.RecordSignal(id, c.session.Phase, now)
	if err != nil {
		c.metrics.RecordSignal(false, signalReason(err))
		return nil, err
	}
	c.metrics.RecordSignal(true, "")

	var out []Directive
	if res.First {
		out = append(out, c.fire(TriggerFirstSignal, now)...)
	}
	return append(out, c.queue()), nil
}

// Heartbeat refreshes a unit's liveness.
func (c *Coordinator) Heartbeat(id string, now time.Time) bool {
	return c.registry.Heartbeat(id, now)
}

// Phase returns the current phase.
func (c *Coordinator) Phase() models.Phase {
	return c.session.Phase
}

// Locked reports whether new joins are refused in READY.
func (c *Coordinator) Locked() bool {
	return c.session.Locked
}

// QueuePosition reports where id sits in the buzz queue.
func (c *Coordinator) QueuePosition(id string) (index int, active bool, ok bool) {
	return c.arbiter.Position(id)
}

// Participant returns a copy of one participant record.
func (c *Coordinator) Participant(id string) (models.Participant, bool) {
	return c.registry.Get(id)
}

func (c *Coordinator) fire(trigger Trigger, now time.Time) []Directive {
	from := c.session.Phase
	st, ok := lookup(from, trigger)
	if !ok {
		c.metrics.RecordIgnoredTrigger(from, trigger)
		log.Debug().Str("phase", from.String()).Str("trigger", trigger.String()).Msg("no transition for trigger")
		return nil
	}

	next, out, applied := st(c, now)
	if !applied {
		c.metrics.RecordIgnoredTrigger(from, trigger)
		log.Debug().Str("phase", from.String()).Str("trigger", trigger.String()).Msg("transition guard failed")
		return nil
	}

	c.session.Phase = next
	c.metrics.RecordTransition(from, next, trigger)
	log.Info().
		Str("from", from.String()).
		Str("to", next.String()).
		Str("trigger", trigger.String()).
		Bool("locked", c.session.Locked).
		Msg("phase transition")

	return out
}

func (c *Coordinator) stateIn(phase models.Phase) SessionState {
	return SessionState{Phase: phase, Locked: c.session.Locked, ParticipantCount: c.registry.Count()}
}

func (c *Coordinator) announce() Announce {
	return Announce{Capacity: c.registry.Capacity(), Locked: c.session.Locked}
}

func (c *Coordinator) queue() QueueSnapshot {
	s := c.arbiter.Snapshot()
	return QueueSnapshot{Order: s.Order, Active: s.Active}
}

func signalReason(err error) string {
	switch {
	case errors.Is(err, arbiter.ErrNotOpen):
		return "not_open"
	case errors.Is(err, arbiter.ErrUnknownParticipant):
		return "unknown_participant"
	case errors.Is(err, arbiter.ErrAlreadyBuzzed):
		return "already_buzzed"
	case errors.Is(err, arbiter.ErrQueueFull):
		return "queue_full"
	default:
		return "other"
	}
}
