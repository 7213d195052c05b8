package lighting

import (
	"math"
	"time"

	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/models"
)

// Hub strip layout: the first ActiveLEDs pixels show the entrant on the clock,
// the following QueueLEDs pixels show the queue or the roster.
const (
	ActiveLEDs = 8
	QueueLEDs  = 10
	StripLEDs  = ActiveLEDs + QueueLEDs
)

// Frame is one rendered state of the hub strip.
type Frame [StripLEDs]models.Color

// Pulse is the breathing brightness at now.
func Pulse(now time.Time) uint8 {
	breath := (math.Sin(float64(now.UnixMilli())*0.003) + 1) / 2
	return uint8(breath * 255)
}

// Render draws the strip for a session view. level dims the pulsing parts
// (open-round green and the ready roster).
func Render(v coordinator.View, level uint8) Frame {
	var f Frame

	switch v.Phase {
	case models.PhaseLobby:
		for i, p := range v.Participants {
			if i >= QueueLEDs {
				break
			}
			f[ActiveLEDs+i] = p.Color
		}
	case models.PhaseReady:
		for i, p := range v.Participants {
			if i >= QueueLEDs {
				break
			}
			if p.Connected {
				f[ActiveLEDs+i] = p.Color.Scale(level)
			}
		}
	case models.PhaseOpen:
		f.fillActive(models.ColorGreen.Scale(level))
		f.drawQueue(v)
	case models.PhaseAnswer, models.PhaseResolving:
		if p, ok := v.Participant(v.Active); ok && v.Active != "" {
			f.fillActive(p.Color)
		}
		f.drawQueue(v)
	}

	return f
}

func (f *Frame) fillActive(c models.Color) {
	for i := 0; i < ActiveLEDs; i++ {
		f[i] = c
	}
}

func (f *Frame) drawQueue(v coordinator.View) {
	for i, id := range v.Queue {
		if i >= QueueLEDs {
			break
		}
		if p, ok := v.Participant(id); ok {
			f[ActiveLEDs+i] = p.Color
		}
	}
}

// Hex returns the frame as #RRGGBB strings.
func (f Frame) Hex() []string {
	out := make([]string, len(f))
	for i, c := range f {
		out[i] = c.Hex()
	}
	return out
}
