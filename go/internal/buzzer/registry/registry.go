package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/quizhub/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Admission is the session state a first-time join is checked against.
type Admission struct {
	Phase  models.Phase
	Locked bool
}

// Assignment is the permanent identity handed to a joining unit.
type Assignment struct {
	ID          string
	Slot        int
	Color       models.Color
	Reconnected bool
}

// Registry owns every participant the hub has ever admitted.
// Records are never removed; a timed-out participant is only marked disconnected
// so a later join with the same id restores its slot and colour.
type Registry struct {
	capacity int
	palette  []models.Color

	// participants is in join order, so index i holds slot i+1
	participants []*models.Participant
	byID         map[string]*models.Participant
}

// NewRegistry creates a registry. Capacity is clamped to the palette size.
func NewRegistry(capacity int, palette []models.Color) *Registry {
	if len(palette) == 0 {
		palette = models.DefaultPalette
	}
	if capacity <= 0 || capacity > len(palette) {
		capacity = len(palette)
	}
	return &Registry{
		capacity: capacity,
		palette:  append([]models.Color(nil), palette...),
		byID:     make(map[string]*models.Participant),
	}
}

// Capacity returns the maximum number of participants.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Join admits or reactivates a participant.
// A known id is always reactivated, whatever the phase or lock state.
func (r *Registry) Join(id string, capability int, firmware string, adm Admission, now time.Time) (Assignment, error) {
	if err := ValidateID(id); err != nil {
		return Assignment{}, err
	}
	if capability <= 0 {
		capability = models.DefaultCapability
	}
	if firmware == "" {
		firmware = models.DefaultFirmware
	}

	if p, ok := r.byID[id]; ok {
		p.Connected = true
		p.LastSeenAt = now
		p.Capability = capability
		p.Firmware = firmware
		log.Info().
			Str("participant_id", id).
			Int("slot", p.Slot).
			Str("phase", adm.Phase.String()).
			Msg("participant reconnected")
		return Assignment{ID: id, Slot: p.Slot, Color: p.Color, Reconnected: true}, nil
	}

	if !adm.Phase.AcceptsNewParticipants() {
		return Assignment{}, fmt.Errorf("join %s in %s: %w", id, adm.Phase, ErrJoinClosed)
	}
	if adm.Locked && adm.Phase == models.PhaseReady {
		return Assignment{}, fmt.Errorf("join %s: %w", id, ErrSessionLocked)
	}
	if len(r.participants) >= r.capacity {
		return Assignment{}, fmt.Errorf("join %s (%d/%d): %w", id, len(r.participants), r.capacity, ErrCapacityReached)
	}

	idx := len(r.participants)
	p := &models.Participant{
		ID:         id,
		Slot:       idx + 1,
		Color:      r.palette[idx],
		Connected:  true,
		LastSeenAt: now,
		Capability: capability,
		Firmware:   firmware,
	}
	r.participants = append(r.participants, p)
	r.byID[id] = p

	log.Info().
		Str("participant_id", id).
		Int("slot", p.Slot).
		Str("color", p.Color.Hex()).
		Int("capability", capability).
		Str("firmware", firmware).
		Msg("participant joined")

	return Assignment{ID: id, Slot: p.Slot, Color: p.Color}, nil
}

// Heartbeat refreshes lastSeenAt. Unknown ids are ignored.
func (r *Registry) Heartbeat(id string, now time.Time) bool {
	p, ok := r.byID[id]
	if !ok {
		return false
	}
	p.LastSeenAt = now
	if !p.Connected {
		p.Connected = true
		log.Info().Str("participant_id", id).Msg("participant heartbeat resumed")
	}
	return true
}

// SweepTimeouts marks participants silent for longer than threshold as disconnected
// and returns their ids.
func (r *Registry) SweepTimeouts(now time.Time, threshold time.Duration) []string {
	var timedOut []string
	for _, p := range r.participants {
		if p.Connected && now.Sub(p.LastSeenAt) > threshold {
			p.Connected = false
			timedOut = append(timedOut, p.ID)
			log.Warn().
				Str("participant_id", p.ID).
				Int("slot", p.Slot).
				Dur("silent_for", now.Sub(p.LastSeenAt)).
				Msg("participant timed out")
		}
	}
	return timedOut
}

// ResetRoundFlags clears hasBuzzedThisRound for everyone.
func (r *Registry) ResetRoundFlags() {
	for _, p := range r.participants {
		p.HasBuzzedThisRound = false
	}
}

// HasBuzzed reports the participant's round flag and whether the id is known.
func (r *Registry) HasBuzzed(id string) (buzzed bool, known bool) {
	p, ok := r.byID[id]
	if !ok {
		return false, false
	}
	return p.HasBuzzedThisRound, true
}

// SetBuzzed sets the round flag of a known participant.
func (r *Registry) SetBuzzed(id string, buzzed bool) {
	if p, ok := r.byID[id]; ok {
		p.HasBuzzedThisRound = buzzed
	}
}

// Get returns a copy of the participant record.
func (r *Registry) Get(id string) (models.Participant, bool) {
	p, ok := r.byID[id]
	if !ok {
		return models.Participant{}, false
	}
	return *p, true
}

// Count returns the number of participants ever admitted.
func (r *Registry) Count() int {
	return len(r.participants)
}

// ConnectedCount returns the number of participants currently considered live.
func (r *Registry) ConnectedCount() int {
	n := 0
	for _, p := range r.participants {
		if p.Connected {
			n++
		}
	}
	return n
}

// Participants returns copies of all records in slot order.
func (r *Registry) Participants() []models.Participant {
	out := make([]models.Participant, len(r.participants))
	for i, p := range r.participants {
		out[i] = *p
	}
	return out
}

// ValidateID checks that id can be used as a single subject token.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty id: %w", ErrInvalidID)
	}
	if strings.ContainsAny(id, ".*> \t\r\n") {
		return fmt.Errorf("id %q: %w", id, ErrInvalidID)
	}
	return nil
}
