package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
	"github.com/mcdev12/quizhub/go/internal/buzzer/gateway"
	"github.com/mcdev12/quizhub/go/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type memPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *memPublisher) Publish(_ context.Context, subject string, _ []byte, _ bool) error {
	p.mu.Lock()
	p.subjects = append(p.subjects, subject)
	p.mu.Unlock()
	return nil
}

func (p *memPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type fakeBroker struct {
	connected bool
}

func (b fakeBroker) IsConnected() bool { return b.connected }
func (b fakeBroker) Dropped() uint64   { return 0 }

type harness struct {
	hub     *Hub
	clock   *clockwork.FakeClock
	inbound chan gateway.Message
	pub     *memPublisher
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC))
	coord := coordinator.New(coordinator.DefaultConfig(), nil)
	pub := &memPublisher{}
	gw := gateway.New(events.NewSubjects(""), coord, pub)
	inbound := make(chan gateway.Message, 64)

	h := New(clock, coord, gw, inbound, cfg)
	h.publish(context.Background(), coord.Start(clock.Now()))
	return &harness{hub: h, clock: clock, inbound: inbound, pub: pub}
}

func (hs *harness) send(t *testing.T, topic string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	hs.inbound <- gateway.Message{Subject: "quiz." + topic, Data: data}
}

func (hs *harness) step(d time.Duration) *Snapshot {
	hs.clock.Advance(d)
	hs.hub.Step(context.Background())
	return hs.hub.Snapshot()
}

func TestStepBootsIntoLobbyAndJoins(t *testing.T) {
	hs := newHarness(t, DefaultConfig())

	snap := hs.step(15 * time.Second)
	if snap.View.Phase != models.PhaseLobby {
		t.Fatalf("phase = %v, want LOBBY", snap.View.Phase)
	}

	hs.send(t, events.TopicJoin, events.JoinPayload{ID: "a"})
	hs.send(t, events.TopicJoin, events.JoinPayload{ID: "b"})
	snap = hs.step(20 * time.Millisecond)

	if n := len(snap.View.Participants); n != 2 {
		t.Fatalf("participants = %d, want 2", n)
	}
	if hs.pub.count("quiz.assign.a") != 1 || hs.pub.count("quiz.assign.b") != 1 {
		t.Fatalf("assignments not published: %v", hs.pub.subjects)
	}
	if snap.Frame[8] != models.DefaultPalette[0] || snap.Frame[9] != models.DefaultPalette[1] {
		t.Fatalf("lobby frame = %v, want roster colours", snap.Frame.Hex())
	}
}

func TestStepDrainsAtMostOneBatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBatch = 2
	hs := newHarness(t, cfg)
	hs.step(15 * time.Second)

	for _, id := range []string{"a", "b", "c"} {
		hs.send(t, events.TopicJoin, events.JoinPayload{ID: id})
	}

	snap := hs.step(20 * time.Millisecond)
	if n := len(snap.View.Participants); n != 2 {
		t.Fatalf("participants after first tick = %d, want 2", n)
	}
	snap = hs.step(20 * time.Millisecond)
	if n := len(snap.View.Participants); n != 3 {
		t.Fatalf("participants after second tick = %d, want 3", n)
	}
	if got := hs.hub.Stats().MessagesHandled; got != 3 {
		t.Fatalf("MessagesHandled = %d, want 3", got)
	}
}

func TestPressesDriveRound(t *testing.T) {
	hs := newHarness(t, DefaultConfig())
	hs.step(15 * time.Second)
	hs.send(t, events.TopicJoin, events.JoinPayload{ID: "a"})
	hs.step(20 * time.Millisecond)

	hs.hub.SubmitPress(models.PressShort)
	hs.hub.SubmitPress(models.PressShort)
	snap := hs.step(20 * time.Millisecond)
	if snap.View.Phase != models.PhaseOpen {
		t.Fatalf("phase = %v, want OPEN", snap.View.Phase)
	}

	hs.send(t, events.TopicBuzz, events.BuzzPayload{ID: "a"})
	snap = hs.step(20 * time.Millisecond)
	if snap.View.Phase != models.PhaseAnswer || snap.View.Active != "a" {
		t.Fatalf("view = %+v, want ANSWER with a active", snap.View)
	}
	if snap.Frame[0] != models.DefaultPalette[0] {
		t.Fatalf("active pixel = %s, want %s", snap.Frame[0].Hex(), models.DefaultPalette[0].Hex())
	}

	hs.hub.SubmitPress(models.PressLong)
	snap = hs.step(20 * time.Millisecond)
	if snap.View.Phase != models.PhaseResolving {
		t.Fatalf("phase = %v, want RESOLVING", snap.View.Phase)
	}

	snap = hs.step(5 * time.Second)
	if snap.View.Phase != models.PhaseReady {
		t.Fatalf("phase after celebration = %v, want READY", snap.View.Phase)
	}
	if hs.pub.count("quiz.cmd") != 2 {
		t.Fatalf("commands published = %d, want 2 (active, celebrate)", hs.pub.count("quiz.cmd"))
	}
}

func TestSubmitPressDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PressBuffer = 1
	hs := newHarness(t, cfg)

	if !hs.hub.SubmitPress(models.PressShort) {
		t.Fatalf("first press dropped")
	}
	if hs.hub.SubmitPress(models.PressShort) {
		t.Fatalf("second press accepted with full buffer")
	}
	if got := hs.hub.Stats().PressesDropped; got != 1 {
		t.Fatalf("PressesDropped = %d, want 1", got)
	}
}

func TestObserversSeeEverySnapshot(t *testing.T) {
	hs := newHarness(t, DefaultConfig())
	var ticks []uint64
	hs.hub.Observe(func(s Snapshot) { ticks = append(ticks, s.Tick) })

	hs.step(time.Second)
	hs.step(time.Second)

	if len(ticks) != 2 || ticks[1] != ticks[0]+1 {
		t.Fatalf("observed ticks = %v, want two consecutive", ticks)
	}
}

func TestTimedOutUnitsDisconnect(t *testing.T) {
	hs := newHarness(t, DefaultConfig())
	hs.step(15 * time.Second)
	hs.send(t, events.TopicJoin, events.JoinPayload{ID: "a"})
	hs.step(20 * time.Millisecond)

	snap := hs.step(11 * time.Second)
	p, _ := snap.View.Participant("a")
	if p.Connected {
		t.Fatalf("participant still connected after timeout")
	}

	hs.send(t, events.TopicJoin, events.JoinPayload{ID: "a"})
	snap = hs.step(20 * time.Millisecond)
	p, _ = snap.View.Participant("a")
	if !p.Connected || p.Slot != 1 {
		t.Fatalf("rejoined participant = %+v, want connected slot 1", p)
	}
}

func TestHealthHandler(t *testing.T) {
	hs := newHarness(t, DefaultConfig())
	hs.step(time.Second)

	checker := NewLoopHealthChecker(hs.hub, fakeBroker{connected: true}, hs.clock, time.Second)

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 while loop not running", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["phase"] != "BOOT" || body["broker_connected"] != true {
		t.Fatalf("body = %v", body)
	}

	hs.hub.running.Store(true)
	if st := checker.Check(context.Background()); !st.Healthy {
		t.Fatalf("Check = %+v, want healthy", st)
	}

	hs.clock.Advance(2 * time.Second)
	if st := checker.Check(context.Background()); st.Healthy {
		t.Fatalf("Check healthy after stalled loop")
	}
}

func TestHealthLogsOnlyTransitions(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	hs := newHarness(t, DefaultConfig())
	hs.step(time.Second)
	checker := NewLoopHealthChecker(hs.hub, fakeBroker{connected: true}, hs.clock, time.Second)

	checker.Check(context.Background())
	checker.Check(context.Background())
	if n := strings.Count(buf.String(), "health check failed"); n != 1 {
		t.Fatalf("failure logs = %d, want 1:\n%s", n, buf.String())
	}

	hs.hub.running.Store(true)
	checker.Check(context.Background())
	checker.Check(context.Background())
	if n := strings.Count(buf.String(), "health check recovered"); n != 1 {
		t.Fatalf("recovery logs = %d, want 1:\n%s", n, buf.String())
	}
}
