package coordinator

import (
	"time"

	"github.com/mcdev12/quizhub/go/internal/models"
)

// Directive is an outbound instruction produced by a transition or an inbound event.
// The coordinator never publishes; the gateway encodes directives into messages.
type Directive interface {
	isDirective()
}

// CommandKind is the lighting command sent to a single unit.
type CommandKind int

const (
	CommandCelebrate CommandKind = iota + 1
	CommandWrongFlash
	CommandIdleColor
	CommandLockedWhite
	CommandActiveTurn
	CommandReset
)

func (k CommandKind) String() string {
	switch k {
	case CommandCelebrate:
		return "celebrate"
	case CommandWrongFlash:
		return "wrong_flash"
	case CommandIdleColor:
		return "idle_color"
	case CommandLockedWhite:
		return "locked_white"
	case CommandActiveTurn:
		return "active_turn"
	case CommandReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Command targets one participant.
type Command struct {
	Kind   CommandKind
	Target string
}

// SessionState is the retained session broadcast.
type SessionState struct {
	Phase            models.Phase
	Locked           bool
	ParticipantCount int
}

// QueueSnapshot is the buzz queue broadcast.
type QueueSnapshot struct {
	Order  []string
	Active string
}

// Assignment tells one unit its permanent slot and colour.
type Assignment struct {
	Target string
	Slot   int
	Color  models.Color
}

// Announce advertises the hub to units that have not joined yet.
type Announce struct {
	Capacity int
	Locked   bool
}

// HeartbeatRequest asks every unit to ping.
type HeartbeatRequest struct {
	At time.Time
}

func (Command) isDirective()          {}
func (SessionState) isDirective()     {}
func (QueueSnapshot) isDirective()    {}
func (Assignment) isDirective()       {}
func (Announce) isDirective()         {}
func (HeartbeatRequest) isDirective() {}
