package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/clash/internal/config"
	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/sim"
)

var (
	// ErrServerClosed is returned by Serve once Run has returned.
	ErrServerClosed = errors.New("network: server closed")
	// ErrProtocol is returned when a peer does not follow the handshake.
	ErrProtocol = errors.New("network: protocol violation")
)

// ServerConfig holds configuration for the authoritative server.
type ServerConfig struct {
	UpdateInterval time.Duration // Period of the authoritative update
	WaitToStart    time.Duration // Delay between GameInfo and GameStart
	LobbyWait      time.Duration // How long the first human waits for others
	MinPlayers     int           // Bots fill the match up to this count
	MaxPlayers     int
	Arena          core.Vector
	Physics        sim.Physics
	Difficulty     config.DifficultyConfig
	SendBuffer     int           // Per-peer outbound queue
	JoinTimeout    time.Duration // Limit for the Join message after connect
	Seed           uint64        // Bot randomness; 0 picks one from the clock
	Logger         *log.Logger
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfigFrom(config.DefaultSessionConfig())
}

// ServerConfigFrom builds a server configuration from the loaded session
// configuration.
func ServerConfigFrom(c config.SessionConfig) ServerConfig {
	return ServerConfig{
		UpdateInterval: c.Server.UpdateInterval(),
		WaitToStart:    c.Timing.WaitToStart,
		LobbyWait:      c.Server.LobbyWait,
		MinPlayers:     c.Server.MinPlayers,
		MaxPlayers:     c.Server.MaxPlayers,
		Arena:          core.Vec(c.Server.ArenaWidth, c.Server.ArenaHeight),
		Physics:        c.Physics.Sim(),
		Difficulty:     c.Bots.Difficulty,
		SendBuffer:     c.Server.SendBuffer,
		JoinTimeout:    5 * time.Second,
	}
}

// Server runs matches between connected clients and bots. All match state
// is owned by the Run goroutine; connections talk to it over channels.
type Server struct {
	cfg      ServerConfig
	logger   *log.Logger
	saver    MatchResultSaver // Optional, can be nil
	upgrader websocket.Upgrader

	joins  chan *peer
	leaves chan *peer
	inputs chan playerInput
	done   chan struct{}

	namesMu sync.Mutex
	names   map[string]struct{}

	// Owned by Run.
	tick       uint64
	lobby      []*peer
	lobbySince uint64
	match      *match
	seed       uint64
	difficulty *config.DifficultyManager
}

// NewServer creates a server. Call Run to start matchmaking.
func NewServer(cfg ServerConfig) *Server {
	def := DefaultServerConfig()
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = def.UpdateInterval
	}
	if cfg.MinPlayers < 2 {
		cfg.MinPlayers = 2
	}
	if cfg.MaxPlayers < cfg.MinPlayers {
		cfg.MaxPlayers = cfg.MinPlayers
	}
	if cfg.Arena.IsZero() {
		cfg.Arena = def.Arena
	}
	if cfg.Physics == (sim.Physics{}) {
		cfg.Physics = def.Physics
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = def.JoinTimeout
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}

	return &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			// Terminal clients send no Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		joins:      make(chan *peer),
		leaves:     make(chan *peer, 16),
		inputs:     make(chan playerInput, 256),
		done:       make(chan struct{}),
		names:      make(map[string]struct{}),
		seed:       cfg.Seed,
		difficulty: config.NewDifficultyManager(cfg.Difficulty),
	}
}

// SetResultSaver sets the optional match result saver.
func (s *Server) SetResultSaver(saver MatchResultSaver) {
	s.saver = saver
}

// Handler returns an HTTP handler that upgrades to a websocket and serves
// the connection until the client leaves.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		if err := s.Serve(NewWSConn(ws)); err != nil {
			s.logger.Debug("connection ended", "remote", r.RemoteAddr, "error", err)
		}
	})
}

// Serve runs the handshake on conn and then forwards its input to the
// match loop until the peer leaves. It blocks for the lifetime of the
// connection.
func (s *Server) Serve(conn Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JoinTimeout)
	msg, err := readContext(ctx, conn)
	cancel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("network: join: %w", err)
	}
	if msg.Type != MsgJoin {
		_ = conn.WriteMessage(Message{Type: MsgBye, Reason: "expected join"})
		conn.Close()
		return fmt.Errorf("%w: first message was %s", ErrProtocol, msg.Type)
	}

	name := s.claimName(msg.Name)
	defer s.releaseName(name)

	if err := conn.WriteMessage(Message{Type: MsgWelcome, Identity: name}); err != nil {
		conn.Close()
		return fmt.Errorf("network: welcome: %w", err)
	}

	p := newPeer(name, conn, s.cfg.SendBuffer)
	go p.writeLoop(s.logger)
	defer p.close()

	select {
	case s.joins <- p:
	case <-s.done:
		p.bye("server shutting down")
		return ErrServerClosed
	}

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msg.Type == MsgBye {
			break
		}
		if msg.Type != MsgInput {
			continue
		}
		select {
		case s.inputs <- playerInput{peer: p, input: msg.Input}:
		default:
			// Input queue full; a newer sample follows shortly.
		}
	}

	select {
	case s.leaves <- p:
	case <-s.done:
	}
	return nil
}

// claimName returns a unique variant of the requested name.
func (s *Server) claimName(requested string) string {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = "player"
	}

	s.namesMu.Lock()
	defer s.namesMu.Unlock()

	name := base
	for i := 2; ; i++ {
		if _, taken := s.names[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
	s.names[name] = struct{}{}
	return name
}

func (s *Server) releaseName(name string) {
	s.namesMu.Lock()
	defer s.namesMu.Unlock()
	delete(s.names, name)
}

// Run is the authoritative loop. It returns when ctx is done, after saying
// goodbye to every connected peer.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()

	s.logger.Info("server running", "update", s.cfg.UpdateInterval, "min_players", s.cfg.MinPlayers)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil

		case p := <-s.joins:
			s.lobby = append(s.lobby, p)
			if len(s.lobby) == 1 {
				s.lobbySince = s.tick
			}
			s.logger.Info("player joined", "name", p.name, "waiting", len(s.lobby))

		case p := <-s.leaves:
			s.removePeer(p)

		case in := <-s.inputs:
			if s.match != nil {
				if err := s.match.setInput(in.peer, in.input); err != nil {
					s.logger.Warn("dropped input", "name", in.peer.name, "error", err)
				}
			}

		case <-ticker.C:
			s.step()
		}
	}
}

func (s *Server) step() {
	s.tick++
	if s.match == nil {
		s.maybeStartMatch()
		return
	}
	if res, done := s.match.step(s); done {
		s.finishMatch(res)
	}
}

func (s *Server) maybeStartMatch() {
	humans := len(s.lobby)
	if humans == 0 {
		return
	}
	waited := time.Duration(s.tick-s.lobbySince) * s.cfg.UpdateInterval
	if humans < s.cfg.MaxPlayers && waited < s.cfg.LobbyWait {
		return
	}

	take := min(humans, s.cfg.MaxPlayers)
	peers := s.lobby[:take]
	s.lobby = append([]*peer(nil), s.lobby[take:]...)
	s.lobbySince = s.tick

	s.seed++
	s.match = newMatch(s, peers, s.seed)
	s.logger.Info("match starting", "match", s.match.id, "humans", len(peers), "players", len(s.match.players))
}

func (s *Server) finishMatch(res MatchResult) {
	m := s.match
	s.match = nil
	s.logger.Info("match ended",
		"match", res.MatchID,
		"reason", res.Reason,
		"winner", res.Winner,
		"ticks", res.Ticks,
	)

	if s.saver != nil {
		if err := s.saver.SaveMatchResult(res); err != nil {
			s.logger.Warn("saving match result", "match", res.MatchID, "error", err)
		}
	}

	// Humans still connected queue up for the next round.
	for _, mp := range m.players {
		if mp.peer != nil {
			s.lobby = append(s.lobby, mp.peer)
		}
	}
	s.lobbySince = s.tick
}

func (s *Server) removePeer(p *peer) {
	for i, lp := range s.lobby {
		if lp == p {
			s.lobby = append(s.lobby[:i], s.lobby[i+1:]...)
			s.logger.Info("player left lobby", "name", p.name)
			return
		}
	}
	if s.match != nil {
		s.match.leave(p)
	}
}

func (s *Server) shutdown() {
	if s.match != nil {
		res := s.match.result(MatchEndShutdown, "")
		for _, mp := range s.match.players {
			if mp.peer != nil {
				mp.peer.bye("server shutting down")
			}
		}
		s.match = nil
		if s.saver != nil {
			if err := s.saver.SaveMatchResult(res); err != nil {
				s.logger.Warn("saving match result", "match", res.MatchID, "error", err)
			}
		}
	}
	for _, p := range s.lobby {
		p.bye("server shutting down")
	}
	s.lobby = nil
	s.logger.Info("server stopped")
}

// broadcast queues m to p and drops peers that cannot keep up.
func (s *Server) broadcast(p *peer, m Message) {
	if !p.send(m) {
		s.logger.Warn("peer too slow, disconnecting", "name", p.name)
		p.close()
	}
}
