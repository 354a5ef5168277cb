// clash is a terminal multiplayer ball arena. Players tilt their ball to
// knock opponents off the arena; the server is authoritative and clients
// predict locally between updates.
//
// Usage:
//
//	clash play [url]     - Join a game server (or --local for a game against bots)
//	clash serve          - Run the game server (websocket, optional SSH)
//	clash history        - Show recorded sessions and matches
//
// Global flags:
//
//	--fps <rate>      - Client tick rate (default: from config)
//	--db <path>       - History database (default: ~/.clash/history.db)
//	--config <path>   - Session config YAML
//	--log <path>      - Write logs to a file
//	--debug           - Log at debug level
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/clash/internal/config"
)

var (
	// Global flags
	flagFPS     int
	flagDBPath  string
	flagConfig  string
	flagLogPath string
	flagDebug   bool

	// Shared by play --local and serve
	flagLatency    time.Duration
	flagDifficulty string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clash",
	Short: "Clash - a multiplayer ball arena in your terminal",
	Long: `Clash is a real-time multiplayer arena played in the terminal.
Tilt your ball with the arrow keys and knock everyone else off the edge.

Available commands:
  play     - Join a server, or play locally against bots
  serve    - Host a game server for websocket and SSH players
  history  - View recorded sessions and matches

Examples:
  clash play --local
  clash play ws://example.com:7777/ws --name alice
  clash serve --ssh :23234
  clash history`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 0, "Client tick rate (0 = timing.tick_rate from config)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.clash/history.db", "Path to history database")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to custom session config YAML")
	rootCmd.PersistentFlags().StringVar(&flagLogPath, "log", "", "Write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log at debug level")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig loads and validates the session configuration and applies
// global overrides.
func loadConfig() config.SessionConfig {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if flagFPS > 0 {
		cfg.Timing.TickRate = flagFPS
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config:\n%v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger creates the process logger. Interactive commands pass
// io.Discard as fallback so logs never draw over the terminal UI.
func newLogger(prefix string, fallback io.Writer) (*log.Logger, func()) {
	w, closeFn := fallback, func() {}
	if flagLogPath != "" {
		f, err := os.OpenFile(flagLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file: %v\n", err)
		} else {
			w, closeFn = f, func() { f.Close() }
		}
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	if flagDebug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger, closeFn
}

// applyDifficulty applies the --difficulty preset, if any.
func applyDifficulty(cfg *config.SessionConfig) {
	switch preset := config.DifficultyPreset(flagDifficulty); preset {
	case "":
	case config.DifficultyEasy, config.DifficultyNormal, config.DifficultyHard, config.DifficultyFixed:
		config.ApplyPreset(cfg, preset)
	default:
		fmt.Fprintf(os.Stderr, "Unknown difficulty: %s (use easy, normal, hard, fixed)\n", flagDifficulty)
		os.Exit(1)
	}
}
