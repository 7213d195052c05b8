package models

import "testing"

func TestColorHex(t *testing.T) {
	tests := []struct {
		color Color
		want  string
	}{
		{Color{R: 255}, "#FF0000"},
		{Color{R: 255, G: 192, B: 203}, "#FFC0CB"},
		{ColorBlack, "#000000"},
	}
	for _, tt := range tests {
		if got := tt.color.Hex(); got != tt.want {
			t.Fatalf("Hex() = %s, want %s", got, tt.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#8000FF")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if c != (Color{R: 128, G: 0, B: 255}) {
		t.Fatalf("ParseColor = %+v, want violet", c)
	}
	if _, err := ParseColor("00FF00"); err != nil {
		t.Fatalf("ParseColor without #: %v", err)
	}
	for _, bad := range []string{"", "#FFF", "#GG0000", "#1234567"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("ParseColor(%q) succeeded, want error", bad)
		}
	}
}

func TestColorScale(t *testing.T) {
	if got := ColorWhite.Scale(0); got != ColorBlack {
		t.Fatalf("Scale(0) = %+v, want black", got)
	}
	if got := ColorWhite.Scale(255); got != ColorWhite {
		t.Fatalf("Scale(255) = %+v, want white", got)
	}
}

func TestPhaseGates(t *testing.T) {
	for _, p := range []Phase{PhaseBoot, PhaseLobby, PhaseReady, PhaseResolving} {
		if p.AcceptsSignals() {
			t.Fatalf("%s accepts signals", p)
		}
	}
	if !PhaseOpen.AcceptsSignals() || !PhaseAnswer.AcceptsSignals() {
		t.Fatal("OPEN and ANSWER must accept signals")
	}
	if !PhaseLobby.AcceptsNewParticipants() || !PhaseReady.AcceptsNewParticipants() {
		t.Fatal("LOBBY and READY must accept new participants")
	}
	if PhaseOpen.AcceptsNewParticipants() {
		t.Fatal("OPEN must not accept new participants")
	}
}
