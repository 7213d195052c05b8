package main

import (
	"encoding/json"
	"testing"

	"github.com/mcdev12/quizhub/go/internal/buzzer/events"
	"github.com/nats-io/nats.go"
)

func msg(t *testing.T, v any) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &nats.Msg{Data: data}
}

func TestUnitFollowsCommands(t *testing.T) {
	u := newUnit("u1", nil, events.NewSubjects(""), 0)

	u.onAssign(msg(t, events.AssignPayload{Slot: 2, Color: "#0000FF"}))
	if u.slot != 2 || u.color != "#0000FF" {
		t.Fatalf("assignment = %d %s", u.slot, u.color)
	}

	tests := []struct {
		cmd  events.CommandPayload
		want Light
	}{
		{events.CommandPayload{Cmd: events.CmdAnimActive, Target: "u1"}, LightActive},
		{events.CommandPayload{Cmd: events.CmdCelebrate, Target: "other"}, LightActive},
		{events.CommandPayload{Cmd: events.CmdWrongFlash, Target: "u1"}, LightWrongFlash},
		{events.CommandPayload{Cmd: events.CmdReset, Target: "u1"}, LightIdle},
		{events.CommandPayload{Cmd: events.CmdLightWhite, Target: "u1"}, LightWhite},
		{events.CommandPayload{Cmd: events.CmdCelebrate, Target: "u1"}, LightCelebrate},
	}
	for _, tt := range tests {
		u.onCommand(msg(t, tt.cmd))
		if u.light != tt.want {
			t.Fatalf("after %+v light = %s, want %s", tt.cmd, u.light, tt.want)
		}
	}
}

func TestUnitStateResetsBuzz(t *testing.T) {
	u := newUnit("u1", nil, events.NewSubjects(""), 0)
	u.buzzed = true

	u.onState(msg(t, events.StatePayload{Phase: "READY"}))
	if u.buzzed || u.light != LightIdle || u.phase != "READY" {
		t.Fatalf("unit = buzzed %v light %s phase %s", u.buzzed, u.light, u.phase)
	}
}
