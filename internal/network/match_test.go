package network

import (
	"math"
	"testing"
	"time"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
)

func testServer(t *testing.T, minPlayers int) *Server {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.UpdateInterval = 10 * time.Millisecond
	cfg.WaitToStart = 30 * time.Millisecond
	cfg.MinPlayers = minPlayers
	cfg.MaxPlayers = 4
	cfg.Seed = 1
	return NewServer(cfg)
}

func testPeer(t *testing.T, name string) *peer {
	t.Helper()
	a, b := MemPipe(0)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return newPeer(name, a, 64)
}

// drain returns every message queued for p.
func drain(p *peer) []Message {
	var out []Message
	for {
		select {
		case m := <-p.out:
			out = append(out, m)
		default:
			return out
		}
	}
}

func kinds(msgs []Message) []event.Kind {
	var out []event.Kind
	for _, m := range msgs {
		for _, e := range m.Events {
			out = append(out, e.Kind)
		}
	}
	return out
}

func hasKind(msgs []Message, k event.Kind) bool {
	for _, got := range kinds(msgs) {
		if got == k {
			return true
		}
	}
	return false
}

// startMatch runs the countdown until live play begins.
func startMatch(t *testing.T, s *Server, m *match) {
	t.Helper()
	for i := 0; i < 10 && !m.running; i++ {
		if _, done := m.step(s); done {
			t.Fatal("match ended during countdown")
		}
	}
	if !m.running {
		t.Fatal("match never started")
	}
}

func TestMatchFillsWithBots(t *testing.T) {
	s := testServer(t, 3)
	p := testPeer(t, "bot-1")

	m := newMatch(s, []*peer{p}, 7)

	if len(m.players) != 3 {
		t.Fatalf("players = %d, want 3", len(m.players))
	}
	names := []string{m.players[0].name, m.players[1].name, m.players[2].name}
	want := []string{"bot-1", "bot-2", "bot-3"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("player %d = %q, want %q", i, names[i], want[i])
		}
	}
	if m.players[0].bot != nil || m.players[1].bot == nil {
		t.Error("human and bot roles mixed up")
	}

	msgs := drain(p)
	if len(msgs) != 1 || len(msgs[0].Events) != 1 {
		t.Fatalf("messages = %+v", msgs)
	}
	info := msgs[0].Events[0]
	if info.Kind != event.KindGameInfo || len(info.Players) != 3 {
		t.Fatalf("game info = %+v", info)
	}
	if len(msgs[0].Peers) != 3 || msgs[0].Peers[0].ID != 1 {
		t.Errorf("peers = %+v", msgs[0].Peers)
	}
	for _, pl := range info.Players {
		if pl.Pos.X <= 0 || pl.Pos.Y <= 0 || pl.Pos.X >= info.Arena.X || pl.Pos.Y >= info.Arena.Y {
			t.Errorf("player %d spawned outside the arena at %+v", pl.ID, pl.Pos)
		}
	}
}

func TestMatchCountdown(t *testing.T) {
	s := testServer(t, 2)
	p := testPeer(t, "alice")
	m := newMatch(s, []*peer{p}, 1)
	drain(p)

	// 30ms at 10ms per update.
	for i := 0; i < 2; i++ {
		m.step(s)
		if msgs := drain(p); len(msgs) != 0 {
			t.Fatalf("update %d sent %+v during countdown", i+1, msgs)
		}
	}
	m.step(s)
	msgs := drain(p)
	if got := kinds(msgs); len(got) != 1 || got[0] != event.KindGameStart {
		t.Fatalf("kinds = %v, want [game_start]", got)
	}

	m.step(s)
	msgs = drain(p)
	if !hasKind(msgs, event.KindMove) {
		t.Errorf("first live update has no moves: %v", kinds(msgs))
	}
}

func TestMatchLastStandingWins(t *testing.T) {
	s := testServer(t, 2)
	p := testPeer(t, "alice")
	m := newMatch(s, []*peer{p}, 1)
	startMatch(t, s, m)
	drain(p)

	bot, ok := m.world.Object(2)
	if !ok {
		t.Fatal("bot object missing")
	}
	bot.Pos = core.Vec(-5, -5)

	res, done := m.step(s)
	if !done {
		t.Fatal("match did not end")
	}
	if res.Reason != MatchEndCompleted || res.Winner != "alice" || res.Players != 2 {
		t.Errorf("result = %+v", res)
	}

	msgs := drain(p)
	got := kinds(msgs)
	if len(got) == 0 || got[0] != event.KindRemove || got[len(got)-1] != event.KindGameEnd {
		t.Fatalf("kinds = %v", got)
	}
	end := msgs[len(msgs)-1].Events
	if end[len(end)-1].Object != 1 {
		t.Errorf("winner = %d, want 1", end[len(end)-1].Object)
	}
}

func TestMatchLeaverIsRemoved(t *testing.T) {
	s := testServer(t, 2)
	alice := testPeer(t, "alice")
	bob := testPeer(t, "bob")
	m := newMatch(s, []*peer{alice, bob}, 1)
	startMatch(t, s, m)
	drain(alice)
	drain(bob)

	m.leave(bob)
	res, done := m.step(s)
	if !done {
		t.Fatal("match did not end with one player left")
	}
	if res.Winner != "alice" {
		t.Errorf("winner = %q", res.Winner)
	}

	var removed bool
	for _, msg := range drain(alice) {
		for _, e := range msg.Events {
			if e.Kind == event.KindRemove && e.Object == 2 {
				removed = true
			}
		}
	}
	if !removed {
		t.Error("leaver's ball was not removed")
	}
	if len(drain(bob)) != 0 {
		t.Error("leaver still receives updates")
	}
}

func TestMatchAbandoned(t *testing.T) {
	s := testServer(t, 2)
	p := testPeer(t, "alice")
	m := newMatch(s, []*peer{p}, 1)

	m.leave(p)
	res, done := m.step(s)
	if !done || res.Reason != MatchEndAbandoned {
		t.Errorf("result = %+v, done = %v", res, done)
	}
}

func TestMatchInputPersists(t *testing.T) {
	s := testServer(t, 2)
	p := testPeer(t, "alice")
	m := newMatch(s, []*peer{p}, 1)
	startMatch(t, s, m)

	if err := m.setInput(p, core.Vec(0, -1)); err != nil {
		t.Fatalf("setInput: %v", err)
	}
	o, _ := m.world.Object(1)
	startY := o.Pos.Y
	for i := 0; i < 3; i++ {
		m.step(s)
	}
	if o.Pos.Y >= startY {
		t.Errorf("y = %f, want below %f after three updates", o.Pos.Y, startY)
	}
}

func TestMatchIgnoresNonFiniteInput(t *testing.T) {
	s := testServer(t, 2)
	p := testPeer(t, "alice")
	m := newMatch(s, []*peer{p}, 1)
	startMatch(t, s, m)

	if err := m.setInput(p, core.Vec(math.NaN(), 0)); err == nil {
		t.Fatal("setInput accepted NaN")
	}
	for i := 0; i < 3; i++ {
		if _, done := m.step(s); done {
			break
		}
	}
	for _, o := range m.world.Objects() {
		if math.IsNaN(o.Pos.X) || math.IsNaN(o.Pos.Y) || math.IsNaN(o.Vel.X) || math.IsNaN(o.Vel.Y) {
			t.Errorf("object %d went non-finite: pos=%v vel=%v", o.ID, o.Pos, o.Vel)
		}
	}
}

func TestGenerateMatchID(t *testing.T) {
	a, b := generateMatchID(), generateMatchID()
	if len(a) != 8 || a == b {
		t.Errorf("ids %q and %q", a, b)
	}
}
