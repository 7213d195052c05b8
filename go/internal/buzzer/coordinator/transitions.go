package coordinator

import (
	"time"

	"github.com/mcdev12/quizhub/go/internal/models"
)

// Trigger is an input that may move the session to another phase.
type Trigger int

const (
	TriggerBootElapsed Trigger = iota + 1
	TriggerShortPress
	TriggerLongPress
	TriggerVeryLongPress
	TriggerFirstSignal
	TriggerDeadlineElapsed
)

func (t Trigger) String() string {
	switch t {
	case TriggerBootElapsed:
		return "boot_elapsed"
	case TriggerShortPress:
		return "short_press"
	case TriggerLongPress:
		return "long_press"
	case TriggerVeryLongPress:
		return "very_long_press"
	case TriggerFirstSignal:
		return "first_signal"
	case TriggerDeadlineElapsed:
		return "deadline_elapsed"
	default:
		return "unknown"
	}
}

// triggerFor maps a classified press onto its trigger.
func triggerFor(p models.Press) (Trigger, bool) {
	switch p {
	case models.PressShort:
		return TriggerShortPress, true
	case models.PressLong:
		return TriggerLongPress, true
	case models.PressVeryLong:
		return TriggerVeryLongPress, true
	default:
		return 0, false
	}
}

// anyPhase keys rows that apply in every phase lacking a more specific row.
const anyPhase models.Phase = -1

type transitionKey struct {
	from    models.Phase
	trigger Trigger
}

// step applies one row of the table. ok=false means the guard failed and
// nothing was mutated.
type step func(c *Coordinator, now time.Time) (next models.Phase, out []Directive, ok bool)

var transitions = map[transitionKey]step{
	{models.PhaseBoot, TriggerBootElapsed}:          enterLobby,
	{models.PhaseLobby, TriggerShortPress}:          lockForReady,
	{models.PhaseReady, TriggerShortPress}:          openRound,
	{models.PhaseOpen, TriggerFirstSignal}:          handFirstTurn,
	{models.PhaseAnswer, TriggerShortPress}:         judgeWrong,
	{models.PhaseAnswer, TriggerLongPress}:          judgeCorrect,
	{models.PhaseResolving, TriggerDeadlineElapsed}: finishCelebration,
	{anyPhase, TriggerLongPress}:                    resetToLobby,
	{anyPhase, TriggerVeryLongPress}:                unlock,
}

func lookup(from models.Phase, trigger Trigger) (step, bool) {
	if st, ok := transitions[transitionKey{from, trigger}]; ok {
		return st, true
	}
	st, ok := transitions[transitionKey{anyPhase, trigger}]
	return st, ok
}

func enterLobby(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	return models.PhaseLobby, []Directive{c.stateIn(models.PhaseLobby)}, true
}

func lockForReady(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	if c.registry.Count() < c.cfg.MinParticipants {
		return 0, nil, false
	}
	c.session.Locked = true
	return models.PhaseReady, []Directive{c.stateIn(models.PhaseReady), c.announce()}, true
}

func openRound(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	c.arbiter.ResetRound()
	return models.PhaseOpen, []Directive{c.stateIn(models.PhaseOpen)}, true
}

func handFirstTurn(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	active, ok := c.arbiter.AdvanceAfterCorrect()
	if !ok {
		return 0, nil, false
	}
	return models.PhaseAnswer, []Directive{
		c.stateIn(models.PhaseAnswer),
		Command{Kind: CommandActiveTurn, Target: active},
	}, true
}

func judgeWrong(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	res, err := c.arbiter.AdvanceAfterWrong()
	if err != nil {
		return 0, nil, false
	}
	// wrong-flash must reach the unit before reset; both go out in order on one connection
	out := []Directive{
		Command{Kind: CommandWrongFlash, Target: res.Removed},
		Command{Kind: CommandReset, Target: res.Removed},
	}
	if res.Empty {
		return models.PhaseOpen, append(out, c.stateIn(models.PhaseOpen), c.queue()), true
	}
	return models.PhaseAnswer, append(out,
		Command{Kind: CommandActiveTurn, Target: res.Next},
		c.queue(),
	), true
}

func judgeCorrect(c *Coordinator, now time.Time) (models.Phase, []Directive, bool) {
	active, ok := c.arbiter.AdvanceAfterCorrect()
	if !ok {
		c.arbiter.ResetRound()
		c.session.ResolvingDeadline = nil
		return models.PhaseReady, []Directive{c.stateIn(models.PhaseReady), c.queue()}, true
	}
	deadline := now.Add(c.cfg.CelebrationDuration)
	c.session.ResolvingDeadline = &deadline
	return models.PhaseResolving, []Directive{Command{Kind: CommandCelebrate, Target: active}}, true
}

func finishCelebration(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	c.arbiter.ResetRound()
	c.session.ResolvingDeadline = nil
	return models.PhaseReady, []Directive{c.stateIn(models.PhaseReady), c.queue()}, true
}

func resetToLobby(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	c.arbiter.ResetRound()
	c.session.Locked = false
	c.session.ResolvingDeadline = nil
	return models.PhaseLobby, []Directive{c.stateIn(models.PhaseLobby), c.announce(), c.queue()}, true
}

func unlock(c *Coordinator, _ time.Time) (models.Phase, []Directive, bool) {
	c.session.Locked = false
	return c.session.Phase, []Directive{c.stateIn(c.session.Phase), c.announce()}, true
}
