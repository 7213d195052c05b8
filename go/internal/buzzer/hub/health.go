package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Healthy         bool
	LoopRunning     bool
	LastTickAt      time.Time
	Ticks           uint64
	Phase           string
	Participants    int
	Connected       int
	BrokerConnected bool
	InboundDropped  uint64
	Errors          []string
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// BrokerStatus is the part of the transport the health check reads.
type BrokerStatus interface {
	IsConnected() bool
	Dropped() uint64
}

type LoopHealthChecker struct {
	hub       *Hub
	broker    BrokerStatus
	clock     Clock
	threshold time.Duration // How long without a tick before unhealthy

	unhealthy atomic.Bool
}

func NewLoopHealthChecker(hub *Hub, broker BrokerStatus, clock Clock, threshold time.Duration) *LoopHealthChecker {
	return &LoopHealthChecker{
		hub:       hub,
		broker:    broker,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *LoopHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	stats := h.hub.Stats()
	status.Ticks = stats.Ticks
	status.LastTickAt = stats.LastTickAt
	status.LoopRunning = h.hub.Running()

	if !status.LoopRunning {
		status.Healthy = false
		status.Errors = append(status.Errors, "hub loop not running")
	}

	if !status.LastTickAt.IsZero() {
		if since := h.clock.Now().Sub(status.LastTickAt); since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no tick for %s", since))
		}
	}

	if snap := h.hub.Snapshot(); snap != nil {
		status.Phase = snap.View.PhaseName
		status.Participants = len(snap.View.Participants)
		for _, p := range snap.View.Participants {
			if p.Connected {
				status.Connected++
			}
		}
	}

	if h.broker != nil {
		status.BrokerConnected = h.broker.IsConnected()
		status.InboundDropped = h.broker.Dropped()
		if !status.BrokerConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	h.logTransition(status)
	return status
}

// logTransition logs only when health flips, not on every probe.
func (h *LoopHealthChecker) logTransition(status HealthStatus) {
	if h.unhealthy.Swap(!status.Healthy) == !status.Healthy {
		return
	}
	if !status.Healthy {
		log.Warn().
			Strs("errors", status.Errors).
			Bool("loop_running", status.LoopRunning).
			Bool("broker_connected", status.BrokerConnected).
			Msg("health check failed")
		return
	}
	log.Info().Uint64("ticks", status.Ticks).Msg("health check recovered")
}

// HTTP handler helper
func (h *LoopHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]interface{}{
		"healthy":          status.Healthy,
		"loop_running":     status.LoopRunning,
		"last_tick_at":     status.LastTickAt,
		"ticks":            status.Ticks,
		"phase":            status.Phase,
		"participants":     status.Participants,
		"connected":        status.Connected,
		"broker_connected": status.BrokerConnected,
		"inbound_dropped":  status.InboundDropped,
		"errors":           status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")

	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("encode health response")
	}
}
