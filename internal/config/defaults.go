package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/session.yaml
var defaultSessionYAML []byte

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Timing: TimingConfig{
			TickRate:         30,
			ReceiveTimeout:   4 * time.Second,
			WaitToStart:      3 * time.Second,
			ClientPrediction: true,
		},
		Physics: PhysicsConfig{
			Accel:      12,
			Friction:   0.8,
			MaxSpeed:   10,
			BallRadius: 0.5,
			Elasticity: 0.9,
		},
		Server: ServerConfig{
			Addr:        ":7777",
			UpdateRate:  10,
			MinPlayers:  2,
			MaxPlayers:  6,
			ArenaWidth:  40,
			ArenaHeight: 20,
			SendBuffer:  64,
			LobbyWait:   2 * time.Second,
		},
		Bots: BotConfig{
			Difficulty: DifficultyConfig{
				Enabled:      true,
				InitialLevel: 0.3,
				Progression: ProgressionConfig{
					Type:  "time",
					MaxAt: 900,
				},
				Scaling: ScalingConfig{
					AggressionMultiplier: 1.0,
					ReactionTicks:        10,
				},
			},
		},
	}
}
