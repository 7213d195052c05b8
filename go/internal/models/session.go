package models

import "time"

// Phase defines the phase of a quiz session.
type Phase int

const (
	PhaseBoot Phase = iota
	PhaseLobby
	PhaseReady
	PhaseOpen
	PhaseAnswer
	PhaseResolving
)

// String returns the name used in logs.
func (p Phase) String() string {
	switch p {
	case PhaseBoot:
		return "BOOT"
	case PhaseLobby:
		return "LOBBY"
	case PhaseReady:
		return "READY"
	case PhaseOpen:
		return "OPEN"
	case PhaseAnswer:
		return "ANSWER"
	case PhaseResolving:
		return "RESOLVING"
	default:
		return "UNKNOWN"
	}
}

// AcceptsSignals reports whether buzz signals are arbitrated in this phase.
func (p Phase) AcceptsSignals() bool {
	return p == PhaseOpen || p == PhaseAnswer
}

// AcceptsNewParticipants reports whether first-time joins may be admitted in this phase.
// The lock flag is checked separately.
func (p Phase) AcceptsNewParticipants() bool {
	return p == PhaseLobby || p == PhaseReady
}

// Press is a classified quizmaster button press.
type Press int

const (
	PressNone Press = iota
	PressShort
	PressLong
	PressVeryLong
)

func (p Press) String() string {
	switch p {
	case PressShort:
		return "short"
	case PressLong:
		return "long"
	case PressVeryLong:
		return "very_long"
	default:
		return "none"
	}
}

// Session holds the coordinator's phase bookkeeping.
type Session struct {
	Phase             Phase
	Locked            bool
	ResolvingDeadline *time.Time
	BootedAt          time.Time
}
