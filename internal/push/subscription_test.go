package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chessarena/pkg/arenadto"
)

// pushServer accepts one connection at a time and exposes the frames the
// client announced with.
type pushServer struct {
	t *testing.T

	mu     sync.Mutex
	joins  []arenadto.JoinPayload
	leaves []arenadto.JoinPayload

	conns chan *websocket.Conn
	srv   *httptest.Server
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{t: t, conns: make(chan *websocket.Conn, 4)}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ps.conns <- conn
		go ps.serve(conn)
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) serve(conn *websocket.Conn) {
	for {
		var env arenadto.EventEnvelope
		if err := wsjson.Read(context.Background(), conn, &env); err != nil {
			return
		}
		var p arenadto.JoinPayload
		_ = json.Unmarshal(env.Data, &p)
		ps.mu.Lock()
		switch env.Event {
		case arenadto.EventJoinGame:
			ps.joins = append(ps.joins, p)
		case arenadto.EventLeaveGame:
			ps.leaves = append(ps.leaves, p)
		}
		ps.mu.Unlock()
	}
}

func (ps *pushServer) awaitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ps.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatalf("no connection arrived")
		return nil
	}
}

func (ps *pushServer) push(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, &arenadto.EventEnvelope{Event: event, Data: data}); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func (ps *pushServer) joinCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.joins)
}

func (ps *pushServer) leaveCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.leaves)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestJoinAnnouncesAndDispatchesEvents(t *testing.T) {
	ps := newPushServer(t)
	sub := NewSubscription(ps.srv.URL, 0, 100*time.Millisecond)

	received := make(chan *arenadto.EventEnvelope, 4)
	sub.OnEvent(func(ev *arenadto.EventEnvelope) { received <- ev })

	if err := sub.Join(context.Background(), "g1", "w1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer sub.Leave(context.Background())

	conn := ps.awaitConn(t)
	waitFor(t, "join frame", func() bool { return ps.joinCount() == 1 })
	ps.mu.Lock()
	join := ps.joins[0]
	ps.mu.Unlock()
	if join.GameID != "g1" || join.PlayerID != "w1" {
		t.Fatalf("announce frame: %+v", join)
	}

	ps.push(t, conn, arenadto.EventMoveMade, arenadto.MoveMadePayload{Game: &arenadto.GameDTO{GameID: "g1"}})
	select {
	case ev := <-received:
		if ev.Event != arenadto.EventMoveMade {
			t.Fatalf("event: %q", ev.Event)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("event never dispatched")
	}
}

func TestSecondJoinRefused(t *testing.T) {
	ps := newPushServer(t)
	sub := NewSubscription(ps.srv.URL, 0, 100*time.Millisecond)
	if err := sub.Join(context.Background(), "g1", "w1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer sub.Leave(context.Background())
	ps.awaitConn(t)

	if err := sub.Join(context.Background(), "g1", "w1"); err == nil {
		t.Fatalf("second join accepted")
	}
}

func TestLeaveSendsFrameAndIsIdempotent(t *testing.T) {
	ps := newPushServer(t)
	sub := NewSubscription(ps.srv.URL, 0, 100*time.Millisecond)
	if err := sub.Join(context.Background(), "g1", "w1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	ps.awaitConn(t)
	waitFor(t, "join frame", func() bool { return ps.joinCount() == 1 })

	if err := sub.Leave(context.Background()); err != nil {
		t.Fatalf("leave: %v", err)
	}
	waitFor(t, "leave frame", func() bool { return ps.leaveCount() == 1 })

	if err := sub.Leave(context.Background()); err != nil {
		t.Fatalf("repeated leave: %v", err)
	}
}

func TestRemovedCallbackStopsReceiving(t *testing.T) {
	ps := newPushServer(t)
	sub := NewSubscription(ps.srv.URL, 0, 100*time.Millisecond)

	var count int
	var mu sync.Mutex
	kept := make(chan struct{}, 4)
	id := sub.OnEvent(func(*arenadto.EventEnvelope) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	sub.OnEvent(func(*arenadto.EventEnvelope) { kept <- struct{}{} })

	if err := sub.Join(context.Background(), "g1", "w1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer sub.Leave(context.Background())
	conn := ps.awaitConn(t)

	sub.RemoveEventCallback(id)
	ps.push(t, conn, arenadto.EventMoveMade, arenadto.MoveMadePayload{Game: &arenadto.GameDTO{GameID: "g1"}})

	select {
	case <-kept:
	case <-time.After(5 * time.Second):
		t.Fatalf("surviving callback never fired")
	}
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("removed callback still fired %d times", count)
	}
}

func TestReconnectReplaysAnnounce(t *testing.T) {
	ps := newPushServer(t)
	sub := NewSubscription(ps.srv.URL, 3, 20*time.Millisecond)

	states := make(chan State, 16)
	sub.OnStateChange(func(st State) { states <- st })

	if err := sub.Join(context.Background(), "g1", "w1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer sub.Leave(context.Background())

	first := ps.awaitConn(t)
	waitFor(t, "first join frame", func() bool { return ps.joinCount() == 1 })

	// server-side drop forces the client to reconnect and rejoin
	_ = first.Close(websocket.StatusGoingAway, "drop")
	ps.awaitConn(t)
	waitFor(t, "rejoin frame", func() bool { return ps.joinCount() == 2 })

	sawReconnecting := false
	deadline := time.After(5 * time.Second)
	for !sawReconnecting {
		select {
		case st := <-states:
			if st == StateReconnecting {
				sawReconnecting = true
			}
		case <-deadline:
			t.Fatalf("reconnecting state never observed")
		}
	}
}
