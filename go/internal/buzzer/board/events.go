package board

import (
	"time"

	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/buzzer/hub"
)

// EventType represents the type of board event
type EventType string

const (
	EventTypeSessionUpdated EventType = "session.updated"
	EventTypeHello          EventType = "board.hello"
)

// BoardEvent is the envelope sent to spectators.
type BoardEvent struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// SessionData is the payload of a session.updated event.
type SessionData struct {
	Tick    uint64           `json:"tick"`
	Session coordinator.View `json:"session"`
	Strip   []string         `json:"strip"`
}

// HelloData greets a new spectator.
type HelloData struct {
	ConnectionID string `json:"connection_id"`
}

func sessionData(s hub.Snapshot) SessionData {
	return SessionData{
		Tick:    s.Tick,
		Session: s.View,
		Strip:   s.Frame.Hex(),
	}
}

// content is the part of the payload spectators see change.
func (d SessionData) content() any {
	return struct {
		Session coordinator.View `json:"session"`
		Strip   []string         `json:"strip"`
	}{d.Session, d.Strip}
}
