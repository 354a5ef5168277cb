package network

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/health"
)

type recordingSaver struct {
	mu      sync.Mutex
	results []MatchResult
}

func (r *recordingSaver) SaveMatchResult(res MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *recordingSaver) snapshot() []MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MatchResult(nil), r.results...)
}

// runServer starts srv and stops it when the test ends.
func runServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	srv := NewServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv
}

func fastConfig() ServerConfig {
	cfg := DefaultServerConfig()
	cfg.UpdateInterval = 5 * time.Millisecond
	cfg.WaitToStart = 20 * time.Millisecond
	cfg.LobbyWait = 0
	cfg.MinPlayers = 2
	cfg.MaxPlayers = 2
	cfg.Seed = 1
	return cfg
}

func connect(t *testing.T, srv *Server, name string) *Client {
	t.Helper()
	clientEnd, serverEnd := MemPipe(0)
	go srv.Serve(serverEnd)

	c, err := Join(context.Background(), clientEnd, name, ClientConfig{InboundBuffer: 1024})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// collect drains c until stop returns true for an event.
func collect(t *testing.T, c *Client, stop func(event.Event) bool) []event.Event {
	t.Helper()
	pool := event.NewPool(64)
	var got []event.Event
	waitFor(t, "events", func() bool {
		c.PollReceive()
		for {
			h, ok := c.NextEvent(pool)
			if !ok {
				return false
			}
			e, err := pool.Get(h)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			ev := *e
			ev.Players = append([]event.PlayerInfo(nil), e.Players...)
			got = append(got, ev)
			_ = pool.Recycle(h)
			if stop(ev) {
				return true
			}
		}
	})
	return got
}

func TestServerPlaysAgainstBot(t *testing.T) {
	srv := runServer(t, fastConfig())
	c := connect(t, srv, "alice")

	events := collect(t, c, func(e event.Event) bool { return e.Kind == event.KindMove })

	if events[0].Kind != event.KindGameInfo {
		t.Fatalf("first event = %s, want game_info", events[0].Kind)
	}
	players := events[0].Players
	if len(players) != 2 || players[0].UniqueName != "alice" || players[1].UniqueName != "bot-1" {
		t.Errorf("players = %+v", players)
	}
	if events[1].Kind != event.KindGameStart {
		t.Errorf("second event = %s, want game_start", events[1].Kind)
	}

	peers := c.ConnectedPeers()
	if len(peers) != 2 || peers[0].ID != 1 {
		t.Errorf("peers = %+v", peers)
	}
}

func TestServerUniqueNames(t *testing.T) {
	srv := NewServer(fastConfig())

	if got := srv.claimName("alice"); got != "alice" {
		t.Errorf("first = %q", got)
	}
	if got := srv.claimName(" alice "); got != "alice-2" {
		t.Errorf("second = %q", got)
	}
	if got := srv.claimName(""); got != "player" {
		t.Errorf("empty = %q", got)
	}
	srv.releaseName("alice")
	if got := srv.claimName("alice"); got != "alice" {
		t.Errorf("after release = %q", got)
	}
}

func TestServerRejectsMissingJoin(t *testing.T) {
	srv := NewServer(fastConfig())
	clientEnd, serverEnd := MemPipe(0)
	defer clientEnd.Close()

	if err := clientEnd.WriteMessage(Message{Type: MsgInput}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := srv.Serve(serverEnd); !errors.Is(err, ErrProtocol) {
		t.Fatalf("Serve = %v, want ErrProtocol", err)
	}
	m, err := clientEnd.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Type != MsgBye {
		t.Errorf("reply = %s, want bye", m.Type)
	}
}

func TestServerSavesAbandonedMatch(t *testing.T) {
	cfg := fastConfig()
	cfg.WaitToStart = time.Hour
	srv := NewServer(cfg)
	saver := &recordingSaver{}
	srv.SetResultSaver(saver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	c := connect(t, srv, "alice")
	collect(t, c, func(e event.Event) bool { return e.Kind == event.KindGameInfo })
	c.Close()

	waitFor(t, "saved result", func() bool { return len(saver.snapshot()) > 0 })
	res := saver.snapshot()[0]
	if res.Reason != MatchEndAbandoned || res.Players != 2 || res.MatchID == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestServerShutdownSaysBye(t *testing.T) {
	cfg := fastConfig()
	cfg.LobbyWait = time.Hour
	srv := NewServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx)
	}()

	c := connect(t, srv, "alice")
	// Give Run a moment to take the peer into the lobby.
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	waitFor(t, "bye", func() bool { return c.LastError() != nil })
	if !errors.Is(c.LastError(), health.ErrTransport) {
		t.Errorf("LastError = %v", c.LastError())
	}
}

func TestServerOverWebsocket(t *testing.T) {
	srv := runServer(t, fastConfig())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	c, err := Dial(context.Background(), url, "alice", ClientConfig{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if name, _ := c.OwnIdentity(); name != "alice" {
		t.Errorf("identity = %q", name)
	}
	collect(t, c, func(e event.Event) bool { return e.Kind == event.KindGameStart })
}

func TestDialFailure(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ts.Close()

	_, err := Dial(context.Background(), url, "alice", ClientConfig{})
	if !errors.Is(err, health.ErrConnect) {
		t.Fatalf("err = %v, want connect failure", err)
	}
}
