package coordinator

import (
	"fmt"
	"sync"

	"github.com/mcdev12/quizhub/go/internal/models"
)

// MetricsCollector defines the interface for collecting session metrics
type MetricsCollector interface {
	RecordTransition(from, to models.Phase, trigger Trigger)
	RecordIgnoredTrigger(phase models.Phase, trigger Trigger)
	RecordSignal(accepted bool, reason string)
	RecordJoin(reconnect bool, err error)
	RecordTimeouts(n int)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordTransition(from, to models.Phase, trigger Trigger)  {}
func (n *NoOpMetricsCollector) RecordIgnoredTrigger(phase models.Phase, trigger Trigger) {}
func (n *NoOpMetricsCollector) RecordSignal(accepted bool, reason string)                {}
func (n *NoOpMetricsCollector) RecordJoin(reconnect bool, err error)                     {}
func (n *NoOpMetricsCollector) RecordTimeouts(count int)                                 {}

// CounterMetrics keeps named counters in memory. It is safe for concurrent use
// so the board can read it while the hub loop records.
type CounterMetrics struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counts: make(map[string]uint64)}
}

func (m *CounterMetrics) inc(key string, n uint64) {
	m.mu.Lock()
	m.counts[key] += n
	m.mu.Unlock()
}

func (m *CounterMetrics) RecordTransition(from, to models.Phase, trigger Trigger) {
	m.inc(fmt.Sprintf("transition.%s.%s", from, to), 1)
}

func (m *CounterMetrics) RecordIgnoredTrigger(phase models.Phase, trigger Trigger) {
	m.inc(fmt.Sprintf("ignored.%s.%s", phase, trigger), 1)
}

func (m *CounterMetrics) RecordSignal(accepted bool, reason string) {
	if accepted {
		m.inc("signal.accepted", 1)
		return
	}
	m.inc("signal.ignored."+reason, 1)
}

func (m *CounterMetrics) RecordJoin(reconnect bool, err error) {
	switch {
	case err != nil:
		m.inc("join.rejected", 1)
	case reconnect:
		m.inc("join.reconnect", 1)
	default:
		m.inc("join.new", 1)
	}
}

func (m *CounterMetrics) RecordTimeouts(n int) {
	m.inc("participant.timeout", uint64(n))
}

// Snapshot copies the current counters.
func (m *CounterMetrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}
