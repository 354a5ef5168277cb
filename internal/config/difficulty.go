package config

import "math"

// DifficultyManager calculates bot behaviour parameters from round progress.
type DifficultyManager struct {
	cfg          DifficultyConfig
	initialLevel float64
}

// NewDifficultyManager creates a new difficulty manager.
func NewDifficultyManager(cfg DifficultyConfig) *DifficultyManager {
	return &DifficultyManager{
		cfg:          cfg,
		initialLevel: cfg.InitialLevel,
	}
}

// SetInitialLevel overrides the initial difficulty level (0.0 to 1.0).
func (d *DifficultyManager) SetInitialLevel(level float64) {
	d.initialLevel = clampF(level, 0.0, 1.0)
}

// SetEnabled enables or disables difficulty progression.
func (d *DifficultyManager) SetEnabled(enabled bool) {
	d.cfg.Enabled = enabled
}

// IsEnabled returns whether difficulty progression is active.
func (d *DifficultyManager) IsEnabled() bool {
	return d.cfg.Enabled && d.cfg.Progression.Type != "none"
}

// Level returns the current difficulty level (0.0 to 1.0) based on
// eliminations or elapsed server ticks.
func (d *DifficultyManager) Level(eliminations int, ticks int) float64 {
	if !d.IsEnabled() {
		return d.initialLevel
	}

	var progress float64
	maxAt := float64(d.cfg.Progression.MaxAt)
	if maxAt <= 0 {
		maxAt = 1 // Prevent division by zero
	}

	switch d.cfg.Progression.Type {
	case "eliminations":
		progress = float64(eliminations) / maxAt
	case "time":
		progress = float64(ticks) / maxAt
	default:
		return d.initialLevel
	}

	progress = clampF(progress, 0.0, 1.0)

	// Interpolate from initial level to 1.0
	return d.initialLevel + progress*(1.0-d.initialLevel)
}

// Aggression returns the bot tilt magnitude for the current level. It is
// capped at 1, the largest input a player can send.
func (d *DifficultyManager) Aggression(base float64, eliminations int, ticks int) float64 {
	level := d.Level(eliminations, ticks)
	return math.Min(1, base*(1.0+level*d.cfg.Scaling.AggressionMultiplier))
}

// ReactionTicks returns how many server ticks a bot waits between
// decisions. Harder bots react faster.
func (d *DifficultyManager) ReactionTicks(eliminations int, ticks int) int {
	level := d.Level(eliminations, ticks)
	base := d.cfg.Scaling.ReactionTicks
	if base < 1 {
		base = 1
	}
	result := base - int(level*float64(base-1))
	if result < 1 {
		result = 1
	}
	return result
}

// clampF restricts a float64 to [min, max].
func clampF(val, min, max float64) float64 {
	return math.Max(min, math.Min(max, val))
}
