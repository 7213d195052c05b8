package events

import (
	"testing"

	"github.com/mcdev12/quizhub/go/internal/models"
)

func TestSubjects(t *testing.T) {
	s := NewSubjects("")
	if got := s.Topic(TopicState); got != "quiz.state" {
		t.Fatalf("Topic(state) = %q, want quiz.state", got)
	}
	if got := s.Assign("unit-7"); got != "quiz.assign.unit-7" {
		t.Fatalf("Assign = %q, want quiz.assign.unit-7", got)
	}

	s = NewSubjects(".studio.")
	if got := s.AssignWildcard(); got != "studio.assign.*" {
		t.Fatalf("AssignWildcard = %q, want studio.assign.*", got)
	}
}

func TestPhaseWireNames(t *testing.T) {
	phases := []models.Phase{
		models.PhaseBoot, models.PhaseLobby, models.PhaseReady,
		models.PhaseOpen, models.PhaseAnswer, models.PhaseResolving,
	}
	for _, p := range phases {
		got, err := ParsePhase(PhaseWireName(p))
		if err != nil {
			t.Fatalf("ParsePhase(%s) error = %v", PhaseWireName(p), err)
		}
		if got != p {
			t.Fatalf("ParsePhase(PhaseWireName(%v)) = %v", p, got)
		}
	}
	if PhaseWireName(models.PhaseResolving) != "RESET" {
		t.Fatalf("resolving wire name = %q, want RESET", PhaseWireName(models.PhaseResolving))
	}
	if _, err := ParsePhase("LIMBO"); err == nil {
		t.Fatalf("ParsePhase(LIMBO) error = nil")
	}
}
