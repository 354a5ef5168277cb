package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/clash/internal/input"
	"github.com/vovakirdan/clash/internal/network"
	"github.com/vovakirdan/clash/internal/session"
	"github.com/vovakirdan/clash/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.clash/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Latency is added to every message between a player and the
	// in-process game server, to exercise prediction.
	Latency time.Duration

	Session      session.Config
	TickInterval time.Duration
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:      ":23234",
		IdleTimeout:  30 * time.Minute,
		Session:      session.DefaultConfig(),
		TickInterval: time.Second / 30,
	}
}

// SSHServer lets SSH users play against an in-process game server.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	game   *network.Server
	store  *storage.Store // Optional, can be nil
	logger *log.Logger
}

// NewSSHServer creates a new SSH server. Each SSH session joins game over
// an in-memory connection.
func NewSSHServer(cfg SSHServerConfig, game *network.Server, store *storage.Store, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "clash-ssh",
		})
	}

	srv := &SSHServer{
		config: cfg,
		game:   game,
		store:  store,
		logger: logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".clash", "host_key")
	}

	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler joins the game server and creates a game model for each SSH
// session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	clientEnd, serverEnd := network.MemPipe(s.config.Latency)
	go func() {
		if err := s.game.Serve(serverEnd); err != nil {
			s.logger.Debug("game connection ended", "user", sshSession.User(), "error", err)
		}
	}()

	logger := s.logger.With("user", sshSession.User())
	client, err := network.Join(sshSession.Context(), clientEnd, sshSession.User(), network.ClientConfig{Logger: logger})
	if err != nil {
		s.logger.Warn("join failed", "user", sshSession.User(), "error", err)
		wish.Fatalln(sshSession, "could not join the game:", err)
		return nil, nil
	}
	go func() {
		<-sshSession.Context().Done()
		client.Close()
	}()

	sessCfg := s.config.Session
	sessCfg.Logger = logger
	model, err := NewModel(Options{
		Net:          client,
		Session:      sessCfg,
		Sensor:       input.Config{Logger: logger},
		Store:        s.store,
		TickInterval: s.config.TickInterval,
		Width:        pty.Window.Width,
		Height:       pty.Window.Height,
		Logger:       logger,
	})
	if err != nil {
		client.Close()
		s.logger.Error("creating session", "user", sshSession.User(), "error", err)
		return nil, nil
	}

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until ctx is done.
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errc := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("ssh server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
