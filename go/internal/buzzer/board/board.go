package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mcdev12/quizhub/go/internal/buzzer/hub"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/net/netutil"
)

// SnapshotSource is the read side of the hub.
type SnapshotSource interface {
	Snapshot() *hub.Snapshot
	Stats() hub.Stats
}

// CounterSource exposes session counters.
type CounterSource interface {
	Snapshot() map[string]uint64
}

type Config struct {
	Addr           string
	MaxConnections int
	AllowedOrigins []string
	Connection     ConnectionConfig
}

func DefaultConfig() Config {
	return Config{
		Addr:           ":8090",
		MaxConnections: 64,
		AllowedOrigins: []string{"*"},
		Connection:     DefaultConnectionConfig(),
	}
}

// Board is the read-only spectator surface of the hub.
type Board struct {
	config   Config
	manager  *ConnectionManager
	source   SnapshotSource
	counters CounterSource
	health   http.Handler

	mu       sync.Mutex
	lastContent []byte
}

func New(cfg Config, source SnapshotSource, counters CounterSource, health http.Handler) *Board {
	return &Board{
		config:   cfg,
		manager:  NewConnectionManager(cfg.Connection),
		source:   source,
		counters: counters,
		health:   health,
	}
}

// OnSnapshot is registered as a hub observer. A snapshot whose session and
// strip match the last broadcast one is skipped; the tick number alone is not
// a change.
func (b *Board) OnSnapshot(s hub.Snapshot) {
	sd := sessionData(s)
	key, err := json.Marshal(sd.content())
	if err != nil {
		log.Error().Err(err).Msg("marshal board snapshot")
		return
	}

	b.mu.Lock()
	if bytes.Equal(key, b.lastContent) {
		b.mu.Unlock()
		return
	}
	b.lastContent = key
	b.mu.Unlock()

	data, err := json.Marshal(sd)
	if err != nil {
		log.Error().Err(err).Msg("marshal board snapshot")
		return
	}

	msg, err := json.Marshal(BoardEvent{
		Type:      EventTypeSessionUpdated,
		Timestamp: s.At.UTC(),
		Data:      json.RawMessage(data),
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal board event")
		return
	}
	b.manager.Broadcast(msg)
}

// Handler returns the board routes wrapped in CORS.
func (b *Board) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/board", b.handleWebSocket)
	mux.HandleFunc("GET /api/session", b.handleSession)
	mux.HandleFunc("GET /api/stats", b.handleStats)
	if b.health != nil {
		mux.Handle("GET /health", b.health)
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: b.config.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// Serve runs the connection manager and the HTTP server until ctx is cancelled.
func (b *Board) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", b.config.Addr, err)
	}
	if b.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, b.config.MaxConnections)
	}

	server := &http.Server{
		Handler:           h2c.NewHandler(b.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go b.manager.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Int("max_connections", b.config.MaxConnections).Msg("board server starting")
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown board server: %w", err)
		}
		log.Info().Msg("board server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("board server: %w", err)
	}
}

func (b *Board) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "spectator"
	}

	var initial []byte
	if s := b.source.Snapshot(); s != nil {
		data, err := encodeEvent(EventTypeSessionUpdated, sessionData(*s))
		if err == nil {
			initial = data
		}
	}

	if _, err := b.manager.UpgradeConnection(w, r, name, initial); err != nil {
		// The upgrader has already replied to the client.
		log.Error().Err(err).Str("name", name).Msg("failed to upgrade board connection")
	}
}

func (b *Board) handleSession(w http.ResponseWriter, r *http.Request) {
	s := b.source.Snapshot()
	if s == nil {
		http.Error(w, "session not started", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, sessionData(*s))
}

func (b *Board) handleStats(w http.ResponseWriter, r *http.Request) {
	st := b.source.Stats()
	resp := map[string]interface{}{
		"ticks":             st.Ticks,
		"messages_handled":  st.MessagesHandled,
		"messages_rejected": st.MessagesRejected,
		"presses_handled":   st.PressesHandled,
		"presses_dropped":   st.PressesDropped,
		"publish_failures":  st.PublishFailures,
		"last_tick_at":      st.LastTickAt,
		"board_connections": b.manager.ConnectionCount(),
	}
	if b.counters != nil {
		resp["counters"] = b.counters.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}
