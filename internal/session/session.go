package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chessarena/internal/msgcat"
	"chessarena/internal/obslog"
	"chessarena/internal/push"
	"chessarena/internal/rules"
	"chessarena/pkg/arenadto"
)

// Authority performs the request/response calls against the game server.
type Authority interface {
	FetchSnapshot(ctx context.Context, gameID string) (*arenadto.GameDTO, error)
	SubmitMove(ctx context.Context, gameID, from, to, promotion string) (*arenadto.GameDTO, error)
	SubmitResign(ctx context.Context, gameID, playerID string) (*arenadto.GameDTO, error)
	SubmitDrawOffer(ctx context.Context, gameID, playerID string) (*arenadto.GameDTO, error)
	SubmitDrawResponse(ctx context.Context, gameID, playerID string, accept bool) (*arenadto.GameDTO, error)
}

// Subscription is the push channel for one session.
type Subscription interface {
	Join(ctx context.Context, gameID, playerID string) error
	OnEvent(cb push.EventCallback) int
	RemoveEventCallback(id int)
	Leave(ctx context.Context) error
}

// Notifier surfaces a user-facing message (the toast analog).
type Notifier func(text string)

// ResultRecorder receives exactly one record when the session completes.
type ResultRecorder interface {
	RecordResult(ctx context.Context, rec ResultRecord) error
}

// Params wires a Session. Authority and Subscription are required; the local
// participant id is resolved once here and never read ambiently inside.
type Params struct {
	GameID        string
	ParticipantID string
	Authority     Authority
	Subscription  Subscription
	Catalog       *msgcat.Catalog
	Notifier      Notifier
	Recorders     []ResultRecorder
}

// Session keeps one client's view of a shared game consistent with the
// remote authority across the request/response and push channels.
type Session struct {
	gameID    string
	store     *Store
	authority Authority
	sub       Subscription
	cat       *msgcat.Catalog
	notifier  Notifier
	recorders []ResultRecorder

	done      chan struct{}
	closeOnce sync.Once
	cbID      int

	recMu    sync.Mutex
	recorded bool
}

func New(p Params) (*Session, error) {
	if strings.TrimSpace(p.GameID) == "" {
		return nil, fmt.Errorf("session: game id required")
	}
	if strings.TrimSpace(p.ParticipantID) == "" {
		return nil, fmt.Errorf("session: participant id required")
	}
	if p.Authority == nil || p.Subscription == nil {
		return nil, fmt.Errorf("session: authority and subscription required")
	}
	return &Session{
		gameID:    p.GameID,
		store:     NewStore(p.ParticipantID),
		authority: p.Authority,
		sub:       p.Subscription,
		cat:       p.Catalog,
		notifier:  p.Notifier,
		recorders: p.Recorders,
		done:      make(chan struct{}),
	}, nil
}

// Open fetches the initial snapshot and joins the push channel. On fetch
// failure the session stays unloaded and the subscription is never opened.
func (s *Session) Open(ctx context.Context) error {
	dto, err := s.authority.FetchSnapshot(ctx, s.gameID)
	if err != nil {
		return err
	}
	s.apply(dto, causeFetch)
	s.cbID = s.sub.OnEvent(s.handleEvent)
	if err := s.sub.Join(ctx, s.gameID, s.store.LocalID()); err != nil {
		s.sub.RemoveEventCallback(s.cbID)
		return err
	}
	obslog.L().Info("session_open",
		zap.String("game_id", s.gameID),
		zap.String("participant_id", s.store.LocalID()),
	)
	return nil
}

// Close tears the session down: the store stops accepting writes first, so a
// late response or event can never mutate it, then the push channel is left.
// Idempotent; runs on every exit path.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		close(s.done)
		s.store.Close()
		s.sub.RemoveEventCallback(s.cbID)
		if err := s.sub.Leave(ctx); err != nil {
			obslog.L().Warn("session_leave_error", zap.String("game_id", s.gameID), zap.Error(err))
		}
		obslog.L().Info("session_close", zap.String("game_id", s.gameID))
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// GameID returns the immutable session identifier.
func (s *Session) GameID() string { return s.gameID }

// LocalID returns the local participant identity.
func (s *Session) LocalID() string { return s.store.LocalID() }

// Loaded reports whether the first snapshot has arrived.
func (s *Session) Loaded() bool { return s.store.Loaded() }

// Snapshot returns a copy of the current state, or nil when unloaded.
func (s *Session) Snapshot() *Snapshot { return s.store.Get() }

// SeatsFilled reports whether both seats are bound.
func (s *Session) SeatsFilled() bool { return s.store.Get().SeatsFilled() }

// MyTurn reports whether the local participant is to act.
func (s *Session) MyTurn() bool { return s.store.DeriveTurn() }

// FEN returns the current position encoding, empty when unloaded.
func (s *Session) FEN() string {
	if snap := s.store.Get(); snap != nil {
		return snap.FEN
	}
	return ""
}

// GameActive reports whether gameplay is permitted.
func (s *Session) GameActive() bool {
	snap := s.store.Get()
	return snap != nil && snap.Status == arenadto.StatusActive
}

// OutstandingDrawOffer returns the offerer of the pending draw offer, if any.
func (s *Session) OutstandingDrawOffer() (string, bool) {
	snap := s.store.Get()
	if snap == nil || snap.DrawOffer == nil {
		return "", false
	}
	return snap.DrawOffer.OfferedBy, true
}

// SubmitMove sends a move intent. On success the returned snapshot is folded
// into the store; on rejection the store is left unchanged.
func (s *Session) SubmitMove(ctx context.Context, from, to, promotion string) error {
	dto, err := s.authority.SubmitMove(ctx, s.gameID, from, to, promotion)
	if err != nil {
		return err
	}
	s.apply(dto, causeMove)
	return nil
}

// Resign forfeits the game for the local participant.
func (s *Session) Resign(ctx context.Context) error {
	dto, err := s.authority.SubmitResign(ctx, s.gameID, s.store.LocalID())
	if err != nil {
		return err
	}
	s.apply(dto, causeResign)
	return nil
}

// OfferDraw places a draw offer.
func (s *Session) OfferDraw(ctx context.Context) error {
	dto, err := s.authority.SubmitDrawOffer(ctx, s.gameID, s.store.LocalID())
	if err != nil {
		return err
	}
	s.apply(dto, causeDrawOffer)
	return nil
}

// RespondDraw answers the outstanding draw offer.
func (s *Session) RespondDraw(ctx context.Context, accept bool) error {
	dto, err := s.authority.SubmitDrawResponse(ctx, s.gameID, s.store.LocalID(), accept)
	if err != nil {
		return err
	}
	s.apply(dto, causeDrawResponse)
	return nil
}

type foldCause int

const (
	causeFetch foldCause = iota
	causeMove
	causeResign
	causeDrawOffer
	causeDrawResponse
)

// apply folds an authority response or event snapshot into the store.
// Responses arriving after teardown are dropped silently.
func (s *Session) apply(dto *arenadto.GameDTO, cause foldCause) {
	if s.closed() {
		obslog.L().Debug("stale_payload_discarded", zap.String("game_id", s.gameID))
		return
	}
	if !s.store.Replace(SnapshotFromDTO(dto)) {
		return
	}
	s.recordIfFinal(cause)
}

// handleEvent folds one inbound push event. Unknown kinds are ignored.
func (s *Session) handleEvent(ev *arenadto.EventEnvelope) {
	if ev == nil || s.closed() {
		return
	}
	me := s.store.LocalID()
	switch ev.Event {
	case arenadto.EventGameStarted:
		var p arenadto.GameStartedPayload
		if json.Unmarshal(ev.Data, &p) != nil {
			return
		}
		s.apply(p.Game, causeFetch)
		if p.JoinedPlayer != nil && p.JoinedPlayer.ID != me {
			s.say("join.opponent", map[string]string{"Color": p.JoinedPlayer.Color},
				"Opponent joined the game")
		}
	case arenadto.EventPlayerJoined:
		var p arenadto.PlayerJoinedPayload
		if json.Unmarshal(ev.Data, &p) != nil {
			return
		}
		color := rules.White
		if p.AssignedColor == string(rules.Black) {
			color = rules.Black
		}
		s.store.BindSeat(color, Player{ID: p.PlayerID})
		if p.PlayerID != me {
			s.say("join.opponent", map[string]string{"Color": p.AssignedColor},
				"Opponent joined the game")
		}
	case arenadto.EventMoveMade:
		var p arenadto.MoveMadePayload
		if json.Unmarshal(ev.Data, &p) != nil {
			return
		}
		s.apply(p.Game, causeMove)
	case arenadto.EventDrawOffered:
		var p arenadto.DrawOfferedPayload
		if json.Unmarshal(ev.Data, &p) != nil {
			return
		}
		s.apply(p.Game, causeDrawOffer)
		if p.OfferedBy != me {
			s.say("draw.offered_by_opponent", nil, "Your opponent has offered a draw")
		}
	case arenadto.EventDrawResponse:
		var p arenadto.DrawResponsePayload
		if json.Unmarshal(ev.Data, &p) != nil {
			return
		}
		s.apply(p.Game, causeDrawResponse)
		if p.RespondedBy != me {
			if p.Accepted {
				s.say("draw.accepted_by_opponent", nil, "Opponent accepted the draw - game over")
			} else {
				s.say("draw.declined_by_opponent", nil, "Opponent declined the draw")
			}
		}
	case arenadto.EventGameResigned:
		var p arenadto.GameResignedPayload
		if json.Unmarshal(ev.Data, &p) != nil {
			return
		}
		s.apply(p.Game, causeResign)
		if p.ResignedBy == me {
			s.say("resign.you", nil, "You resigned the game")
		} else {
			s.say("resign.opponent", nil, "Opponent resigned - you win")
		}
	default:
		obslog.L().Debug("unknown_event_ignored", zap.String("event", ev.Event))
	}
}

func (s *Session) say(key string, data any, fallback string) {
	if s.notifier == nil {
		return
	}
	text := fallback
	if s.cat != nil {
		text = s.cat.Text(key, data, fallback)
	}
	s.notifier(text)
}

// recordIfFinal hands the completed game to attached recorders exactly once.
func (s *Session) recordIfFinal(cause foldCause) {
	snap := s.store.Get()
	if snap == nil || snap.Status != arenadto.StatusCompleted {
		return
	}
	s.recMu.Lock()
	if s.recorded {
		s.recMu.Unlock()
		return
	}
	s.recorded = true
	s.recMu.Unlock()

	rec := ResultRecord{
		GameID:   snap.GameID,
		Result:   string(snap.Result),
		Method:   methodFor(cause, snap.Result),
		MovesSAN: append([]string(nil), snap.MoveHistory...),
		EndedAt:  time.Now(),
	}
	if rec.GameID == "" {
		rec.GameID = s.gameID
	}
	if snap.White != nil {
		rec.WhiteID, rec.WhiteName = snap.White.ID, snap.White.Name
	}
	if snap.Black != nil {
		rec.BlackID, rec.BlackName = snap.Black.ID, snap.Black.Name
	}
	for _, r := range s.recorders {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.RecordResult(ctx, rec); err != nil {
			obslog.L().Error("result_record_error", zap.String("game_id", rec.GameID), zap.Error(err))
		}
		cancel()
	}
	obslog.L().Info("session_final",
		zap.String("game_id", rec.GameID),
		zap.String("result", rec.Result),
		zap.String("method", rec.Method),
	)
}

func methodFor(cause foldCause, result arenadto.GameResult) string {
	switch cause {
	case causeResign:
		return "resignation"
	case causeDrawResponse:
		return "agreement"
	case causeMove:
		if result == arenadto.ResultDraw {
			return "draw"
		}
		return "checkmate"
	default:
		if result == arenadto.ResultDraw {
			return "draw"
		}
		return "completed"
	}
}
