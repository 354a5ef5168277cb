// Package config provides YAML-based session configuration loading and
// bot difficulty management.
package config

import "time"

// SessionConfig contains all configuration for a client session and the
// authoritative server it plays against.
type SessionConfig struct {
	Timing  TimingConfig  `yaml:"timing"`
	Physics PhysicsConfig `yaml:"physics"`
	Server  ServerConfig  `yaml:"server"`
	Bots    BotConfig     `yaml:"bots"`
}

// TimingConfig defines tick cadence and the network timing limits.
type TimingConfig struct {
	TickRate         int           `yaml:"tick_rate"`         // Client ticks per second
	ReceiveTimeout   time.Duration `yaml:"receive_timeout"`   // Degrade after this long without updates
	WaitToStart      time.Duration `yaml:"wait_to_start"`     // Delay between GameInfo and GameStart
	ClientPrediction bool          `yaml:"client_prediction"` // Step the local simulation every tick
}

// PhysicsConfig defines the integrator constants. Client and server must
// agree on them.
type PhysicsConfig struct {
	Accel      float64 `yaml:"accel"`
	Friction   float64 `yaml:"friction"`
	MaxSpeed   float64 `yaml:"max_speed"`
	BallRadius float64 `yaml:"ball_radius"`
	Elasticity float64 `yaml:"elasticity"`
}

// ServerConfig defines the authoritative match loop.
type ServerConfig struct {
	Addr        string  `yaml:"addr"`
	UpdateRate  int     `yaml:"update_rate"` // Authoritative updates per second
	MinPlayers  int     `yaml:"min_players"` // Bots fill the match up to this count
	MaxPlayers  int     `yaml:"max_players"`
	ArenaWidth  float64 `yaml:"arena_width"`
	ArenaHeight float64 `yaml:"arena_height"`
	SendBuffer  int     `yaml:"send_buffer"` // Per-connection outbound queue

	LobbyWait time.Duration `yaml:"lobby_wait"` // How long the first player waits for others
}

// BotConfig defines computer-controlled players.
type BotConfig struct {
	Difficulty DifficultyConfig `yaml:"difficulty"`
}

// DifficultyConfig defines the difficulty progression system.
type DifficultyConfig struct {
	Enabled      bool              `yaml:"enabled"`
	InitialLevel float64           `yaml:"initial_level"` // 0.0 = easy, 1.0 = hard
	Progression  ProgressionConfig `yaml:"progression"`
	Scaling      ScalingConfig     `yaml:"scaling"`
}

// ProgressionConfig defines how difficulty increases during a round.
type ProgressionConfig struct {
	Type  string `yaml:"type"`   // "eliminations", "time", or "none"
	MaxAt int    `yaml:"max_at"` // Eliminations/ticks at which max difficulty is reached
}

// ScalingConfig defines the magnitude of difficulty changes.
type ScalingConfig struct {
	AggressionMultiplier float64 `yaml:"aggression_multiplier"` // Added to bot tilt at max difficulty
	ReactionTicks        int     `yaml:"reaction_ticks"`        // Decision interval at level 0
}

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
	DifficultyFixed  DifficultyPreset = "fixed"
)

// InitialLevelForPreset returns the initial_level for a difficulty preset.
func InitialLevelForPreset(preset DifficultyPreset) float64 {
	switch preset {
	case DifficultyEasy:
		return 0.0
	case DifficultyNormal:
		return 0.3
	case DifficultyHard:
		return 0.7
	default:
		return 0.0
	}
}

// IsFixedPreset returns true if the preset disables progression.
func IsFixedPreset(preset DifficultyPreset) bool {
	return preset == DifficultyFixed
}
