package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/clash/internal/sim"
)

// Load loads the session configuration.
// Search order: customPath -> ~/.clash/configs/session.yaml -> ./configs/session.yaml -> embedded default
func Load(customPath string) (SessionConfig, error) {
	cfg := DefaultSessionConfig()

	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", customPath, err)
		}
		if err := cfg.Validate(); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try user config directory, then the local configs directory
	for _, path := range []string{userConfigPath("session.yaml"), filepath.Join("configs", "session.yaml")} {
		if path == "" {
			continue
		}
		if c, ok := tryLoad(path); ok {
			return c, nil
		}
	}

	// Use embedded default YAML
	var embedded SessionConfig
	if err := yaml.Unmarshal(defaultSessionYAML, &embedded); err != nil || embedded.Validate() != nil {
		return DefaultSessionConfig(), nil // Fallback to hardcoded if embed fails
	}
	return embedded, nil
}

// tryLoad reads an optional config file. Missing or broken files are skipped.
func tryLoad(path string) (SessionConfig, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionConfig{}, false
	}
	cfg := DefaultSessionConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SessionConfig{}, false
	}
	if cfg.Validate() != nil {
		return SessionConfig{}, false
	}
	return cfg, true
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".clash", "configs", filename)
}

// Validate reports settings that cannot produce a working session.
func (c SessionConfig) Validate() error {
	var errs []error
	if c.Timing.TickRate <= 0 {
		errs = append(errs, errors.New("timing.tick_rate must be positive"))
	}
	if c.Timing.ReceiveTimeout < 0 {
		errs = append(errs, errors.New("timing.receive_timeout must not be negative"))
	}
	if c.Timing.WaitToStart < time.Second {
		errs = append(errs, errors.New("timing.wait_to_start must be at least 1s"))
	}
	if c.Server.UpdateRate <= 0 {
		errs = append(errs, errors.New("server.update_rate must be positive"))
	}
	if c.Server.MinPlayers < 2 || c.Server.MaxPlayers < c.Server.MinPlayers {
		errs = append(errs, errors.New("server: need 2 <= min_players <= max_players"))
	}
	if c.Server.ArenaWidth <= 0 || c.Server.ArenaHeight <= 0 {
		errs = append(errs, errors.New("server: arena size must be positive"))
	}
	if c.Physics.BallRadius <= 0 {
		errs = append(errs, errors.New("physics.ball_radius must be positive"))
	}
	return errors.Join(errs...)
}

// ApplyPreset modifies the bot difficulty based on a preset.
func ApplyPreset(cfg *SessionConfig, preset DifficultyPreset) {
	if preset == DifficultyFixed {
		cfg.Bots.Difficulty.Enabled = false
	} else {
		cfg.Bots.Difficulty.Enabled = true
		cfg.Bots.Difficulty.InitialLevel = InitialLevelForPreset(preset)
	}
}

// Sim converts the physics section to integrator constants.
func (p PhysicsConfig) Sim() sim.Physics {
	return sim.Physics{
		Accel:      p.Accel,
		Friction:   p.Friction,
		MaxSpeed:   p.MaxSpeed,
		BallRadius: p.BallRadius,
		Elasticity: p.Elasticity,
	}
}

// TickInterval returns the client tick period.
func (t TimingConfig) TickInterval() time.Duration {
	if t.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(t.TickRate)
}

// UpdateInterval returns the authoritative update period.
func (s ServerConfig) UpdateInterval() time.Duration {
	if s.UpdateRate <= 0 {
		return time.Second / 10
	}
	return time.Second / time.Duration(s.UpdateRate)
}
