package events

import (
	"fmt"
	"strings"

	"github.com/mcdev12/quizhub/go/internal/models"
)

// DefaultPrefix is the subject root shared by hub and units.
const DefaultPrefix = "quiz"

// Subject suffixes under the prefix.
const (
	TopicAnnounce    = "announce"
	TopicJoin        = "join"
	TopicAssign      = "assign"
	TopicState       = "state"
	TopicBuzz        = "buzz"
	TopicQueue       = "queue"
	TopicCommand     = "cmd"
	TopicPing        = "ping"
	TopicPingRequest = "pingreq"
)

// Command wire names.
const (
	CmdCelebrate  = "CELEBRATE"
	CmdWrongFlash = "WRONG_FLASH"
	CmdIdleColor  = "IDLE_COLOR"
	CmdLightWhite = "LIGHT_WHITE"
	CmdAnimActive = "ANIM_ACTIVE"
	CmdReset      = "RESET"
)

// Subjects builds subject names for one prefix.
type Subjects struct {
	Prefix string
}

func NewSubjects(prefix string) Subjects {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Subjects{Prefix: prefix}
}

func (s Subjects) Topic(topic string) string {
	return s.Prefix + "." + topic
}

// Assign returns the per-unit assignment subject.
func (s Subjects) Assign(id string) string {
	return fmt.Sprintf("%s.%s.%s", s.Prefix, TopicAssign, id)
}

// AssignWildcard matches every unit's assignment subject.
func (s Subjects) AssignWildcard() string {
	return fmt.Sprintf("%s.%s.*", s.Prefix, TopicAssign)
}

// Retained lists the subjects whose last message late subscribers must see.
func (s Subjects) Retained() []string {
	return []string{s.Topic(TopicAnnounce), s.Topic(TopicState), s.AssignWildcard()}
}

// Inbound lists the subjects the hub subscribes to.
func (s Subjects) Inbound() []string {
	return []string{s.Topic(TopicJoin), s.Topic(TopicBuzz), s.Topic(TopicPing)}
}

// PhaseWireName is the phase name units understand.
func PhaseWireName(p models.Phase) string {
	if p == models.PhaseResolving {
		return "RESET"
	}
	return p.String()
}

// ParsePhase maps a wire name back to a phase.
func ParsePhase(name string) (models.Phase, error) {
	switch name {
	case "BOOT":
		return models.PhaseBoot, nil
	case "LOBBY":
		return models.PhaseLobby, nil
	case "READY":
		return models.PhaseReady, nil
	case "OPEN":
		return models.PhaseOpen, nil
	case "ANSWER":
		return models.PhaseAnswer, nil
	case "RESET", "RESOLVING":
		return models.PhaseResolving, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", name)
	}
}
