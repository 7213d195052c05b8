package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mcdev12/quizhub/go/internal/buzzer/coordinator"
	"github.com/mcdev12/quizhub/go/internal/models"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the hub process configuration, read from the environment.
type Config struct {
	NATSURL             string        `env:"QUIZ_NATS_URL" envDefault:"nats://localhost:4222"`
	SubjectPrefix       string        `env:"QUIZ_SUBJECT_PREFIX" envDefault:"quiz"`
	StreamName          string        `env:"QUIZ_STREAM_NAME" envDefault:"QUIZ_RETAINED"`
	InboundBuffer       int           `env:"QUIZ_INBOUND_BUFFER" envDefault:"256"`
	TickInterval        time.Duration `env:"QUIZ_TICK_INTERVAL" envDefault:"20ms"`
	MaxBatch            int           `env:"QUIZ_MAX_BATCH" envDefault:"32"`
	BoardAddr           string        `env:"QUIZ_BOARD_ADDR" envDefault:":8090"`
	BoardMaxConnections int           `env:"QUIZ_BOARD_MAX_CONNECTIONS" envDefault:"64"`
	BoardOrigins        []string      `env:"QUIZ_BOARD_ORIGINS" envDefault:"*" envSeparator:","`
	LogLevel            string        `env:"QUIZ_LOG_LEVEL" envDefault:"info"`
	GameFile            string        `env:"QUIZ_GAME_FILE"`
}

// Game holds the session rules, optionally loaded from a YAML file.
type Game struct {
	Capacity            int           `yaml:"capacity"`
	MinParticipants     int           `yaml:"min_participants"`
	Palette             []string      `yaml:"palette"`
	BootDuration        time.Duration `yaml:"boot_duration"`
	CelebrationDuration time.Duration `yaml:"celebration_duration"`
	ClientTimeout       time.Duration `yaml:"client_timeout"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.NATSURL == "" {
		return fmt.Errorf("%w: QUIZ_NATS_URL is empty", ErrInvalidConfig)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrInvalidConfig, c.TickInterval)
	}
	if c.MaxBatch < 1 {
		return fmt.Errorf("%w: max batch must be at least 1, got %d", ErrInvalidConfig, c.MaxBatch)
	}
	if c.InboundBuffer < 1 {
		return fmt.Errorf("%w: inbound buffer must be at least 1, got %d", ErrInvalidConfig, c.InboundBuffer)
	}
	return nil
}

// DefaultGame mirrors coordinator.DefaultConfig.
func DefaultGame() Game {
	d := coordinator.DefaultConfig()
	palette := make([]string, len(d.Palette))
	for i, c := range d.Palette {
		palette[i] = c.Hex()
	}
	return Game{
		Capacity:            d.Capacity,
		MinParticipants:     d.MinParticipants,
		Palette:             palette,
		BootDuration:        d.BootDuration,
		CelebrationDuration: d.CelebrationDuration,
		ClientTimeout:       d.ClientTimeout,
		HeartbeatInterval:   d.HeartbeatInterval,
	}
}

// LoadGame reads a game file over the defaults. An empty path returns the defaults.
func LoadGame(path string) (Game, error) {
	game := DefaultGame()
	if path == "" {
		return game, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Game{}, fmt.Errorf("failed to read game file: %w", err)
	}
	if err := yaml.Unmarshal(data, &game); err != nil {
		return Game{}, fmt.Errorf("failed to parse game file: %w", err)
	}
	if _, err := game.CoordinatorConfig(); err != nil {
		return Game{}, err
	}
	return game, nil
}

// CoordinatorConfig validates the game and converts it.
func (g Game) CoordinatorConfig() (coordinator.Config, error) {
	palette := make([]models.Color, 0, len(g.Palette))
	for i, s := range g.Palette {
		c, err := models.ParseColor(s)
		if err != nil {
			return coordinator.Config{}, fmt.Errorf("%w: palette[%d]: %v", ErrInvalidConfig, i, err)
		}
		palette = append(palette, c)
	}

	switch {
	case len(palette) == 0:
		return coordinator.Config{}, fmt.Errorf("%w: palette is empty", ErrInvalidConfig)
	case g.Capacity < 1 || g.Capacity > len(palette):
		return coordinator.Config{}, fmt.Errorf("%w: capacity %d outside 1..%d", ErrInvalidConfig, g.Capacity, len(palette))
	case g.MinParticipants < 1 || g.MinParticipants > g.Capacity:
		return coordinator.Config{}, fmt.Errorf("%w: min_participants %d outside 1..%d", ErrInvalidConfig, g.MinParticipants, g.Capacity)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"boot_duration", g.BootDuration},
		{"celebration_duration", g.CelebrationDuration},
		{"client_timeout", g.ClientTimeout},
		{"heartbeat_interval", g.HeartbeatInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return coordinator.Config{}, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, d.name, d.d)
		}
	}

	return coordinator.Config{
		Capacity:            g.Capacity,
		MinParticipants:     g.MinParticipants,
		Palette:             palette,
		BootDuration:        g.BootDuration,
		CelebrationDuration: g.CelebrationDuration,
		ClientTimeout:       g.ClientTimeout,
		HeartbeatInterval:   g.HeartbeatInterval,
	}, nil
}
