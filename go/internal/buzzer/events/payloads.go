package events

// Payload types exchanged between the hub and the buzzer units.
// Key names match the unit firmware and must not change.

// ProtocolVersion is advertised in every announce.
const ProtocolVersion = "1.0"

// AnnouncePayload is retained on the announce subject.
type AnnouncePayload struct {
	Version    string `json:"version"`
	MaxClients int    `json:"maxClients"`
	Locked     bool   `json:"locked"`
}

// JoinPayload is sent by a unit when it (re)connects.
type JoinPayload struct {
	ID         string `json:"id"`
	Capability int    `json:"cap,omitempty"`
	Firmware   string `json:"fw,omitempty"`
}

// AssignPayload is retained on the unit's assign subject.
type AssignPayload struct {
	Slot  int    `json:"slot"`
	Color string `json:"color"`
}

// StatePayload is retained on the state subject.
type StatePayload struct {
	Phase   string `json:"phase"`
	Locked  bool   `json:"locked"`
	Clients int    `json:"clients"`
}

// BuzzPayload is a unit's signal. T is the unit's clock and is informational only.
type BuzzPayload struct {
	ID string `json:"id"`
	T  int64  `json:"t,omitempty"`
}

// QueuePayload is the buzz queue broadcast.
type QueuePayload struct {
	Order  []string `json:"order"`
	Active string   `json:"active"`
}

// CommandPayload is a lighting command. Units act only on commands whose
// target matches their id.
type CommandPayload struct {
	Cmd    string `json:"cmd"`
	Target string `json:"target"`
}

// PingPayload is a unit heartbeat.
type PingPayload struct {
	ID string `json:"id"`
}

// PingRequestPayload asks every unit to send a heartbeat.
type PingRequestPayload struct {
	T int64 `json:"t"`
}
