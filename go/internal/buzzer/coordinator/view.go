package coordinator

import (
	"time"

	"github.com/mcdev12/quizhub/go/internal/models"
)

// View is an immutable copy of the session, safe to hand to other goroutines.
type View struct {
	Phase             models.Phase         `json:"-"`
	PhaseName         string               `json:"phase"`
	Locked            bool                 `json:"locked"`
	Capacity          int                  `json:"capacity"`
	Participants      []models.Participant `json:"participants"`
	Queue             []string             `json:"queue"`
	Active            string               `json:"active,omitempty"`
	ResolvingDeadline *time.Time           `json:"resolving_deadline,omitempty"`
}

// View snapshots the session.
func (c *Coordinator) View() View {
	q := c.arbiter.Snapshot()
	v := View{
		Phase:        c.session.Phase,
		PhaseName:    c.session.Phase.String(),
		Locked:       c.session.Locked,
		Capacity:     c.registry.Capacity(),
		Participants: c.registry.Participants(),
		Queue:        q.Order,
		Active:       q.Active,
	}
	if d := c.session.ResolvingDeadline; d != nil {
		deadline := *d
		v.ResolvingDeadline = &deadline
	}
	return v
}

// Participant looks up a participant in the view.
func (v View) Participant(id string) (models.Participant, bool) {
	for _, p := range v.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}
