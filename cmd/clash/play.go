package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/clash/internal/config"
	"github.com/vovakirdan/clash/internal/health"
	"github.com/vovakirdan/clash/internal/input"
	"github.com/vovakirdan/clash/internal/network"
	"github.com/vovakirdan/clash/internal/platform/tui"
	"github.com/vovakirdan/clash/internal/session"
	"github.com/vovakirdan/clash/internal/storage"
)

var (
	flagName  string
	flagLocal bool
)

var playCmd = &cobra.Command{
	Use:   "play [url]",
	Short: "Join a game",
	Long: `Join a game server, or start one in-process with --local.

Controls:
  Arrows/WASD  - Tilt your ball
  Enter        - Dismiss a popup, play again after a round
  Esc          - Leave the session
  Q/Ctrl+C     - Quit

Difficulty options (--local only):
  easy   - Bots start calm and get bolder
  normal - Bots start at 30% difficulty
  hard   - Bots start at 70% difficulty
  fixed  - No progression, stays at config's initial level

Examples:
  clash play --local
  clash play --local --latency 120ms --difficulty hard
  clash play ws://localhost:7777/ws --name alice`,
	Args: cobra.MaximumNArgs(1),
	Run:  runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagName, "name", "", "Player name (default: current user)")
	playCmd.Flags().BoolVar(&flagLocal, "local", false, "Play against bots on an in-process server")
	playCmd.Flags().DurationVar(&flagLatency, "latency", 0, "Simulated one-way latency for --local")
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Bot difficulty for --local: easy, normal, hard, fixed")
}

func runPlay(_ *cobra.Command, args []string) {
	if !flagLocal && len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: give a server URL or use --local")
		os.Exit(1)
	}

	cfg := loadConfig()
	logger, closeLog := newLogger("clash", io.Discard)
	defer closeLog()

	name := flagName
	if name == "" {
		name = "player"
		if u, err := user.Current(); err == nil && u.Username != "" {
			name = u.Username
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var client *network.Client
	var err error
	if flagLocal {
		client, err = joinLocal(ctx, cfg, name, logger)
	} else {
		client, err = network.Dial(ctx, args[0], name, network.ClientConfig{Logger: logger})
	}
	if err != nil {
		reportConnectError(err)
		os.Exit(1)
	}
	defer client.Close()

	store, err := storage.Open(flagDBPath)
	if err != nil {
		logger.Warn("could not open history database", "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	summary, err := tui.Run(tui.Options{
		Net:          client,
		Session:      session.ConfigFrom(cfg, logger),
		Sensor:       input.Config{Logger: logger},
		Store:        store,
		TickInterval: cfg.Timing.TickInterval(),
		Width:        width,
		Height:       height,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", err)
		os.Exit(1)
	}

	if summary.Error != nil {
		fmt.Printf("%s\n", summary.Error.Message())
	}
	if summary.Ticks > 0 {
		fmt.Printf("%s: %s after %d ticks (rtt %s mean, %d predictions discarded)\n",
			summary.Player, summary.Outcome, summary.Ticks, summary.RTT.Mean.Round(time.Millisecond), summary.Discarded)
	}
}

// joinLocal starts an in-process server and joins it over a memory pipe.
func joinLocal(ctx context.Context, cfg config.SessionConfig, name string, logger *log.Logger) (*network.Client, error) {
	applyDifficulty(&cfg)
	srvCfg := network.ServerConfigFrom(cfg)
	srvCfg.LobbyWait = 0
	srvCfg.Logger = logger.WithPrefix("server")

	srv := network.NewServer(srvCfg)
	go srv.Run(ctx)

	clientEnd, serverEnd := network.MemPipe(flagLatency)
	go srv.Serve(serverEnd)

	return network.Join(ctx, clientEnd, name, network.ClientConfig{Logger: logger})
}

func reportConnectError(err error) {
	var sig *health.Signal
	if errors.As(err, &sig) {
		fmt.Fprintf(os.Stderr, "%s\n(%s)\n", sig.Message(), sig.Detail)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
