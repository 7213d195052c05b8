package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/buzzer/gateway"
	"github.com/mcdev12/quizhub/go/internal/buzzer/lighting"
	"github.com/mcdev12/quizhub/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

type Config struct {
	TickInterval time.Duration
	MaxBatch     int
	PressBuffer  int
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 20 * time.Millisecond,
		MaxBatch:     32,
		PressBuffer:  8,
	}
}

// Snapshot is what the hub looked like at the end of a tick.
type Snapshot struct {
	Tick  uint64
	At    time.Time
	View  coordinator.View
	Frame lighting.Frame
}

// Observer is called from the hub loop after every tick and must not block.
type Observer func(Snapshot)

// Stats counts loop activity.
type Stats struct {
	Ticks            uint64
	MessagesHandled  uint64
	MessagesRejected uint64
	PressesHandled   uint64
	PressesDropped   uint64
	PublishFailures  uint64
	LastTickAt       time.Time
}

// Hub is the single execution context that owns the coordinator. Every
// coordinator call happens on the Run goroutine.
type Hub struct {
	clock      Clock
	coord      *coordinator.Coordinator
	gw         *gateway.Gateway
	inbound    <-chan gateway.Message
	config     Config
	instanceID string

	presses chan models.Press

	snapshot atomic.Pointer[Snapshot]

	observersMu sync.Mutex
	observers   []Observer

	statsMu sync.Mutex
	stats   Stats

	running atomic.Bool
	tick    uint64
}

func New(clock Clock, coord *coordinator.Coordinator, gw *gateway.Gateway, inbound <-chan gateway.Message, cfg Config) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Hub{
		clock:      clock,
		coord:      coord,
		gw:         gw,
		inbound:    inbound,
		config:     cfg,
		instanceID: uuid.New().String()[:8], // short ID for logging
		presses:    make(chan models.Press, cfg.PressBuffer),
	}
}

// Observe registers fn to receive every snapshot.
func (h *Hub) Observe(fn Observer) {
	h.observersMu.Lock()
	h.observers = append(h.observers, fn)
	h.observersMu.Unlock()
}

// SubmitPress queues a quizmaster press for the next tick. It never blocks and
// reports false when the press was dropped.
func (h *Hub) SubmitPress(p models.Press) bool {
	select {
	case h.presses <- p:
		return true
	default:
		h.statsMu.Lock()
		h.stats.PressesDropped++
		h.statsMu.Unlock()
		log.Warn().Str("press", p.String()).Msg("press buffer full, press dropped")
		return false
	}
}

// Snapshot returns the latest snapshot, or nil before the first tick.
func (h *Hub) Snapshot() *Snapshot {
	return h.snapshot.Load()
}

func (h *Hub) Stats() Stats {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	return h.stats
}

// Running reports whether Run is active.
func (h *Hub) Running() bool {
	return h.running.Load()
}

// Run starts the session and ticks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	if !h.running.CompareAndSwap(false, true) {
		return fmt.Errorf("hub %s already running", h.instanceID)
	}
	defer h.running.Store(false)

	now := h.clock.Now()
	h.publish(ctx, h.coord.Start(now))
	h.render(now)

	ticker := h.clock.NewTicker(h.config.TickInterval)
	defer ticker.Stop()

	log.Info().
		Str("instance_id", h.instanceID).
		Dur("tick_interval", h.config.TickInterval).
		Int("max_batch", h.config.MaxBatch).
		Msg("hub loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance_id", h.instanceID).Msg("hub loop stopped")
			return ctx.Err()
		case <-ticker.Chan():
			h.Step(ctx)
		}
	}
}

// Step runs one tick: one inbound batch, pending presses, timers, render.
func (h *Hub) Step(ctx context.Context) {
	now := h.clock.Now()

	handled, rejected := h.drainInbound(ctx, now)
	presses := h.drainPresses(ctx, now)
	h.publish(ctx, h.coord.Tick(now))
	h.render(now)

	h.statsMu.Lock()
	h.stats.Ticks++
	h.stats.MessagesHandled += uint64(handled)
	h.stats.MessagesRejected += uint64(rejected)
	h.stats.PressesHandled += uint64(presses)
	h.stats.LastTickAt = now
	h.statsMu.Unlock()
}

func (h *Hub) drainInbound(ctx context.Context, now time.Time) (handled, rejected int) {
	for handled+rejected < h.config.MaxBatch {
		select {
		case msg, ok := <-h.inbound:
			if !ok {
				return handled, rejected
			}
			if err := h.gw.HandleMessage(ctx, msg, now); err != nil {
				rejected++
				continue
			}
			handled++
		default:
			return handled, rejected
		}
	}
	return handled, rejected
}

func (h *Hub) drainPresses(ctx context.Context, now time.Time) int {
	n := 0
	for {
		select {
		case p := <-h.presses:
			h.publish(ctx, h.coord.Press(p, now))
			n++
		default:
			return n
		}
	}
}

func (h *Hub) publish(ctx context.Context, out []coordinator.Directive) {
	if len(out) == 0 {
		return
	}
	if err := h.gw.Dispatch(ctx, out); err != nil {
		h.statsMu.Lock()
		h.stats.PublishFailures++
		h.statsMu.Unlock()
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("instance_id", h.instanceID).Msg("dispatch directives")
		}
	}
}

func (h *Hub) render(now time.Time) {
	h.tick++
	view := h.coord.View()
	snap := &Snapshot{
		Tick:  h.tick,
		At:    now,
		View:  view,
		Frame: lighting.Render(view, lighting.Pulse(now)),
	}
	h.snapshot.Store(snap)

	h.observersMu.Lock()
	observers := h.observers
	h.observersMu.Unlock()
	for _, fn := range observers {
		fn(*snap)
	}
}
