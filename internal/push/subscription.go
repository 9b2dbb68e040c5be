package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chessarena/internal/obslog"
	"chessarena/pkg/arenadto"
)

type eventCallbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Subscription is one long-lived push channel bound to a single game.
// Join dials, announces (gameID, playerID) to the server and starts the
// listen and ping loops; the same announce frame is replayed after every
// reconnect. Leave tells the server the participant left and releases the
// connection; it is idempotent and safe on every exit path.
type Subscription struct {
	wsURL string

	conn   *websocket.Conn
	state  State
	stateM sync.RWMutex

	eventCbs []eventCallbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	joined  bool
	joinMsg arenadto.JoinPayload

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

func NewSubscription(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration) *Subscription {
	return &Subscription{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

// SetHeaderProvider injects handshake headers (identity, auth).
func (s *Subscription) SetHeaderProvider(h HeaderProvider) {
	s.headerProvider = h
}

// Join opens the channel for one game. A second Join on a live subscription
// is a programming error and is refused.
func (s *Subscription) Join(ctx context.Context, gameID, playerID string) error {
	s.stateM.Lock()
	if s.joined {
		s.stateM.Unlock()
		return errors.New("push: subscription already joined")
	}
	s.joined = true
	s.joinMsg = arenadto.JoinPayload{GameID: gameID, PlayerID: playerID}
	s.stateM.Unlock()

	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())
	s.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := s.dial(dialCtx)
	if err != nil {
		s.setState(StateFailed)
		return err
	}
	if err := s.announce(ctx, conn); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "join failed")
		s.setState(StateFailed)
		return err
	}

	s.conn = conn
	s.setState(StateConnected)

	s.wg.Add(2)
	go s.listen()
	go s.pingLoop()
	return nil
}

func (s *Subscription) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, s.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      s.buildHeaders(),
	})
	return conn, err
}

// announce writes the join frame that subscribes this participant.
func (s *Subscription) announce(ctx context.Context, conn *websocket.Conn) error {
	data, err := json.Marshal(s.joinMsg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(wctx, conn, &arenadto.EventEnvelope{Event: arenadto.EventJoinGame, Data: data})
}

func (s *Subscription) listen() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if s.conn == nil {
			return
		}
		var ev arenadto.EventEnvelope
		if err := wsjson.Read(s.rootCtx, s.conn, &ev); err != nil {
			if s.isStopping() {
				return
			}
			s.setState(StateDisconnected)
			_ = s.closeConn(websocket.StatusGoingAway, "reconnect")
			s.scheduleReconnect()
			return
		}

		s.cbM.RLock()
		callbacks := make([]eventCallbackEntry, len(s.eventCbs))
		copy(callbacks, s.eventCbs)
		s.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&ev)
			}
		}
	}
}

func (s *Subscription) pingLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			if s.conn == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(s.rootCtx, 3*time.Second)
			err := s.conn.Ping(ctx)
			cancel()
			if err != nil {
				failures++
				if failures >= 2 {
					if s.isStopping() {
						return
					}
					s.setState(StateDisconnected)
					_ = s.closeConn(websocket.StatusGoingAway, "ping failure")
					s.scheduleReconnect()
					failures = 0
				}
				continue
			}
			failures = 0
		}
	}
}

func (s *Subscription) scheduleReconnect() {
	if s.maxReconnectAttempts <= 0 {
		return
	}
	s.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
			select {
			case <-s.stopCh:
				return
			case <-time.After(backoffDuration(attempt, s.reconnectDelay)):
			}

			dialCtx, cancel := context.WithTimeout(s.rootCtx, 10*time.Second)
			conn, err := s.dial(dialCtx)
			if err != nil {
				cancel()
				continue
			}
			// rejoin the game room before resuming delivery
			if err := s.announce(dialCtx, conn); err != nil {
				cancel()
				_ = conn.Close(websocket.StatusInternalError, "rejoin failed")
				continue
			}
			cancel()

			s.conn = conn
			s.setState(StateConnected)
			obslog.L().Info("push_reconnected", zap.String("game_id", s.joinMsg.GameID), zap.Int("attempt", attempt))

			s.wg.Add(2)
			go s.listen()
			go s.pingLoop()
			return
		}
		s.setState(StateFailed)
	}()
}

func (s *Subscription) OnEvent(cb EventCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextCbID++
	s.eventCbs = append(s.eventCbs, eventCallbackEntry{id: s.nextCbID, callback: cb})
	return s.nextCbID
}

func (s *Subscription) RemoveEventCallback(id int) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	for i, cb := range s.eventCbs {
		if cb.id == id {
			s.eventCbs = append(s.eventCbs[:i], s.eventCbs[i+1:]...)
			break
		}
	}
}

func (s *Subscription) OnStateChange(cb StateCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextCbID++
	s.stateCbs = append(s.stateCbs, stateCallbackEntry{id: s.nextCbID, callback: cb})
	return s.nextCbID
}

func (s *Subscription) RemoveStateCallback(id int) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	for i, cb := range s.stateCbs {
		if cb.id == id {
			s.stateCbs = append(s.stateCbs[:i], s.stateCbs[i+1:]...)
			break
		}
	}
}

func (s *Subscription) setState(state State) {
	s.stateM.Lock()
	s.state = state
	s.stateM.Unlock()

	s.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(s.stateCbs))
	copy(callbacks, s.stateCbs)
	s.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Leave notifies the server the participant left the game, then closes the
// channel and waits for the loops to drain. Idempotent.
func (s *Subscription) Leave(ctx context.Context) error {
	if s.conn != nil {
		if data, err := json.Marshal(s.joinMsg); err == nil {
			wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			_ = wsjson.Write(wctx, s.conn, &arenadto.EventEnvelope{Event: arenadto.EventLeaveGame, Data: data})
			cancel()
		}
	}

	s.stopOnce.Do(func() { close(s.stopCh) })
	_ = s.closeConn(websocket.StatusNormalClosure, "leave")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if s.rootCancel != nil {
			s.rootCancel()
		}
		s.setState(StateDisconnected)
		return nil
	}
}

func (s *Subscription) closeConn(code websocket.StatusCode, reason string) error {
	if s.conn == nil {
		return nil
	}
	defer func() { s.conn = nil }()
	return s.conn.Close(code, reason)
}

func (s *Subscription) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Subscription) buildHeaders() http.Header {
	hdr := http.Header{}
	if s.headerProvider == nil {
		return hdr
	}
	for k, v := range s.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

func backoffDuration(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * base
}
