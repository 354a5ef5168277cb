package session

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/clash/internal/config"
	"github.com/vovakirdan/clash/internal/sim"
)

// Config holds session settings.
type Config struct {
	Physics sim.Physics

	// ClientPrediction steps the local simulation every tick. When off, the
	// world only moves on authoritative updates.
	ClientPrediction bool

	// ReceiveTimeout is how long live play may go without an authoritative
	// update before the session degrades. Zero disables the check.
	ReceiveTimeout time.Duration

	// WaitToStart is the server's delay between GameInfo and GameStart.
	WaitToStart time.Duration

	// PoolSize is the initial event pool capacity.
	PoolSize int

	Logger *log.Logger
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	return Config{
		Physics:          sim.DefaultPhysics(),
		ClientPrediction: true,
		ReceiveTimeout:   4 * time.Second,
		WaitToStart:      3 * time.Second,
		PoolSize:         64,
	}
}

// ConfigFrom builds session settings from the loaded configuration.
func ConfigFrom(c config.SessionConfig, logger *log.Logger) Config {
	cfg := DefaultConfig()
	cfg.Physics = c.Physics.Sim()
	cfg.ClientPrediction = c.Timing.ClientPrediction
	cfg.ReceiveTimeout = c.Timing.ReceiveTimeout
	cfg.WaitToStart = c.Timing.WaitToStart
	cfg.Logger = logger
	return cfg
}
