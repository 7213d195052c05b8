package arbiter

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/quizhub/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotOpen            = errors.New("signals not accepted in current phase")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrAlreadyBuzzed      = errors.New("participant already buzzed this round")
	ErrQueueFull          = errors.New("buzz queue full")
	ErrNoActive           = errors.New("no active entrant")
)

// Roster is the part of the participant registry the arbiter needs.
// The arbiter owns the per-round buzz flag jointly with the registry.
type Roster interface {
	HasBuzzed(id string) (buzzed bool, known bool)
	SetBuzzed(id string, buzzed bool)
	ResetRoundFlags()
}

// Entry is one accepted signal.
type Entry struct {
	ID         string
	ReceivedAt time.Time
}

// Accepted describes an accepted signal.
type Accepted struct {
	Position int
	// First is set for the first entry of a round, which becomes active.
	First bool
}

// WrongOutcome is the result of discarding the active entrant after a wrong answer.
type WrongOutcome struct {
	Removed string
	Next    string
	Empty   bool
}

// Snapshot is the broadcast form of the queue.
type Snapshot struct {
	Order  []string
	Active string
}

// Arbiter decides who buzzed first. Arrival order is the order of RecordSignal
// calls; client timestamps are never consulted.
type Arbiter struct {
	roster   Roster
	capacity int

	queue  []Entry
	active int // index into queue, -1 when none
}

// NewArbiter creates an arbiter with a queue bounded by capacity.
func NewArbiter(roster Roster, capacity int) *Arbiter {
	return &Arbiter{
		roster:   roster,
		capacity: capacity,
		active:   -1,
	}
}

// RecordSignal appends id to the queue if the phase, participant and round flag allow it.
func (a *Arbiter) RecordSignal(id string, phase models.Phase, now time.Time) (Accepted, error) {
	if !phase.AcceptsSignals() {
		return Accepted{}, fmt.Errorf("signal from %s in %s: %w", id, phase, ErrNotOpen)
	}
	buzzed, known := a.roster.HasBuzzed(id)
	if !known {
		return Accepted{}, fmt.Errorf("signal from %s: %w", id, ErrUnknownParticipant)
	}
	if buzzed {
		return Accepted{}, fmt.Errorf("signal from %s: %w", id, ErrAlreadyBuzzed)
	}
	if len(a.queue) >= a.capacity {
		return Accepted{}, fmt.Errorf("signal from %s: %w", id, ErrQueueFull)
	}

	a.queue = append(a.queue, Entry{ID: id, ReceivedAt: now})
	a.roster.SetBuzzed(id, true)

	res := Accepted{Position: len(a.queue) - 1}
	if a.active < 0 {
		a.active = res.Position
		res.First = true
	}

	ev := log.Info().
		Str("participant_id", id).
		Int("position", res.Position).
		Int("queue_length", len(a.queue))
	if len(a.queue) > 1 {
		ev = ev.Dur("behind_first", now.Sub(a.queue[0].ReceivedAt))
	}
	ev.Bool("first", res.First).Msg("signal accepted")

	return res, nil
}

// AdvanceAfterWrong drops the active entrant and hands the turn to the next in line.
// The removed participant may signal again in the same round.
func (a *Arbiter) AdvanceAfterWrong() (WrongOutcome, error) {
	if a.active < 0 || a.active >= len(a.queue) {
		return WrongOutcome{}, ErrNoActive
	}

	removed := a.queue[a.active].ID
	idx := a.active
	a.queue = append(a.queue[:idx], a.queue[idx+1:]...)
	a.roster.SetBuzzed(removed, false)

	out := WrongOutcome{Removed: removed}
	switch {
	case len(a.queue) == 0:
		a.active = -1
		a.queue = nil
		out.Empty = true
	case idx < len(a.queue):
		a.active = idx
	default:
		a.active = 0
	}
	if !out.Empty {
		out.Next = a.queue[a.active].ID
	}

	log.Info().
		Str("removed", removed).
		Str("next", out.Next).
		Int("queue_length", len(a.queue)).
		Msg("advanced after wrong answer")

	return out, nil
}

// AdvanceAfterCorrect returns the active entrant without consuming it.
func (a *Arbiter) AdvanceAfterCorrect() (string, bool) {
	if a.active < 0 || a.active >= len(a.queue) {
		return "", false
	}
	return a.queue[a.active].ID, true
}

// ResetRound empties the queue and clears every buzz flag.
func (a *Arbiter) ResetRound() {
	a.queue = nil
	a.active = -1
	a.roster.ResetRoundFlags()
}

// Snapshot returns the queue order and the active id.
func (a *Arbiter) Snapshot() Snapshot {
	s := Snapshot{Order: make([]string, len(a.queue))}
	for i, e := range a.queue {
		s.Order[i] = e.ID
	}
	if id, ok := a.AdvanceAfterCorrect(); ok {
		s.Active = id
	}
	return s
}

// Position returns the queue index of id and whether it is the active entrant.
func (a *Arbiter) Position(id string) (index int, active bool, ok bool) {
	for i, e := range a.queue {
		if e.ID == id {
			return i, i == a.active, true
		}
	}
	return -1, false, false
}

// Len returns the number of queued entrants.
func (a *Arbiter) Len() int {
	return len(a.queue)
}
