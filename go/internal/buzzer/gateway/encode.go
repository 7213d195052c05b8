package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
)

var commandNames = map[coordinator.CommandKind]string{
	coordinator.CommandCelebrate:   events.CmdCelebrate,
	coordinator.CommandWrongFlash:  events.CmdWrongFlash,
	coordinator.CommandIdleColor:   events.CmdIdleColor,
	coordinator.CommandLockedWhite: events.CmdLightWhite,
	coordinator.CommandActiveTurn:  events.CmdAnimActive,
	coordinator.CommandReset:       events.CmdReset,
}

// encode maps a directive onto its subject and JSON payload.
func (g *Gateway) encode(d coordinator.Directive) (subject string, data []byte, retained bool, err error) {
	var payload any

	switch d := d.(type) {
	case coordinator.Command:
		name, ok := commandNames[d.Kind]
		if !ok {
			return "", nil, false, fmt.Errorf("unknown command kind %d", d.Kind)
		}
		subject = g.subjects.Topic(events.TopicCommand)
		payload = events.CommandPayload{Cmd: name, Target: d.Target}
	case coordinator.SessionState:
		subject, retained = g.subjects.Topic(events.TopicState), true
		payload = events.StatePayload{
			Phase:   events.PhaseWireName(d.Phase),
			Locked:  d.Locked,
			Clients: d.ParticipantCount,
		}
	case coordinator.QueueSnapshot:
		order := d.Order
		if order == nil {
			order = []string{}
		}
		subject = g.subjects.Topic(events.TopicQueue)
		payload = events.QueuePayload{Order: order, Active: d.Active}
	case coordinator.Assignment:
		subject, retained = g.subjects.Assign(d.Target), true
		payload = events.AssignPayload{Slot: d.Slot, Color: d.Color.Hex()}
	case coordinator.Announce:
		subject, retained = g.subjects.Topic(events.TopicAnnounce), true
		payload = events.AnnouncePayload{
			Version:    events.ProtocolVersion,
			MaxClients: d.Capacity,
			Locked:     d.Locked,
		}
	case coordinator.HeartbeatRequest:
		subject = g.subjects.Topic(events.TopicPingRequest)
		payload = events.PingRequestPayload{T: d.At.UnixMilli()}
	default:
		return "", nil, false, fmt.Errorf("unsupported directive %T", d)
	}

	data, err = json.Marshal(payload)
	if err != nil {
		return "", nil, false, fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	return subject, data, retained, nil
}
