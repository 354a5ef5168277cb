package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/clash/internal/network"
	"github.com/vovakirdan/clash/internal/platform/tui"
	"github.com/vovakirdan/clash/internal/session"
	"github.com/vovakirdan/clash/internal/storage"
)

var (
	flagAddr        string
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the game server",
	Long: `Start the authoritative game server.

Websocket clients connect to ws://<addr>/ws with 'clash play'.
With --ssh, players can also connect over SSH and play in their terminal.
Everyone shares the same lobby; bots fill matches up to server.min_players.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.clash/host_key

Examples:
  clash serve                          # Websocket on the configured address
  clash serve --addr :9000             # Websocket on port 9000
  clash serve --ssh :23234             # Also accept SSH players
  clash serve --ssh :23234 --latency 80ms

Users can connect with:
  clash play ws://localhost:7777/ws
  ssh localhost -p 23234`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Websocket listen address (default: server.addr from config)")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address, empty to disable")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting SSH users")
	serveCmd.Flags().DurationVar(&flagLatency, "latency", 0, "Simulated one-way latency for SSH players")
	serveCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Bot difficulty: easy, normal, hard, fixed")
}

func runServe(_ *cobra.Command, _ []string) {
	cfg := loadConfig()
	applyDifficulty(&cfg)
	logger, closeLog := newLogger("clash-server", os.Stderr)
	defer closeLog()

	addr := flagAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCfg := network.ServerConfigFrom(cfg)
	srvCfg.Logger = logger
	game := network.NewServer(srvCfg)
	game.SetResultSaver(store)

	gameDone := make(chan struct{})
	go func() {
		defer close(gameDone)
		if err := game.Run(ctx); err != nil {
			logger.Error("game loop", "error", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", game.Handler())
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("listening for websocket players", "address", addr, "path", "/ws")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("websocket server: %w", err)
		}
	}()

	if flagSSHAddr != "" {
		sshCfg := tui.SSHServerConfig{
			Address:      flagSSHAddr,
			HostKeyPath:  flagHostKey,
			IdleTimeout:  time.Duration(flagIdleTimeout) * time.Minute,
			Latency:      flagLatency,
			Session:      session.ConfigFrom(cfg, logger),
			TickInterval: cfg.Timing.TickInterval(),
		}
		sshSrv, err := tui.NewSSHServer(sshCfg, game, store, logger.WithPrefix("clash-ssh"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating SSH server: %v\n", err)
			os.Exit(1)
		}
		go func() {
			if err := sshSrv.ListenAndServe(ctx); err != nil {
				errc <- err
			}
		}()
	}

	fmt.Printf("Clash server on %s\n", addr)
	if flagSSHAddr != "" {
		fmt.Printf("SSH players: ssh localhost -p %s\n", portOf(flagSSHAddr))
	}
	fmt.Println("Press Ctrl+C to stop")

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-errc:
		logger.Error("server failed", "error", err)
		exitCode = 1
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("websocket shutdown", "error", err)
	}
	select {
	case <-gameDone:
	case <-shutdownCtx.Done():
		logger.Warn("game loop did not stop in time")
	}

	if exitCode != 0 {
		closeLog()
		store.Close()
		os.Exit(exitCode)
	}
}

// portOf returns the port part of a host:port address.
func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}
