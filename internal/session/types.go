package session

import (
	"time"

	"chessarena/internal/rules"
	"chessarena/pkg/arenadto"
)

// Player is one seated participant.
type Player struct {
	ID   string
	Name string
}

// DrawOffer is the single outstanding draw offer.
type DrawOffer struct {
	OfferedBy string
}

// Snapshot is the authoritative game state as last observed by this client.
// Zero fields on an incoming snapshot mean "not carried by this payload" and
// are preserved by the store's merge.
type Snapshot struct {
	GameID      string
	FEN         string
	Status      arenadto.GameStatus
	Result      arenadto.GameResult
	White       *Player
	Black       *Player
	DrawOffer   *DrawOffer
	MoveHistory []string
	Version     int64
}

// SnapshotFromDTO converts a wire payload into a Snapshot.
func SnapshotFromDTO(g *arenadto.GameDTO) *Snapshot {
	if g == nil {
		return nil
	}
	s := &Snapshot{
		GameID:  g.GameID,
		FEN:     g.FEN,
		Status:  g.Status,
		Result:  g.Result,
		Version: g.Version,
	}
	if g.WhitePlayer != nil {
		s.White = &Player{ID: g.WhitePlayer.ID, Name: g.WhitePlayer.Name}
	}
	if g.BlackPlayer != nil {
		s.Black = &Player{ID: g.BlackPlayer.ID, Name: g.BlackPlayer.Name}
	}
	if g.DrawOffer != nil {
		s.DrawOffer = &DrawOffer{OfferedBy: g.DrawOffer.OfferedBy}
	}
	if g.MoveHistory != nil {
		s.MoveHistory = append([]string(nil), g.MoveHistory...)
	}
	return s
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.White != nil {
		w := *s.White
		out.White = &w
	}
	if s.Black != nil {
		b := *s.Black
		out.Black = &b
	}
	if s.DrawOffer != nil {
		d := *s.DrawOffer
		out.DrawOffer = &d
	}
	if s.MoveHistory != nil {
		out.MoveHistory = append([]string(nil), s.MoveHistory...)
	}
	return &out
}

// SeatsFilled reports whether both seats are bound.
func (s *Snapshot) SeatsFilled() bool {
	return s != nil && s.White != nil && s.Black != nil
}

// Seat returns the participant bound to the given color, if any.
func (s *Snapshot) Seat(c rules.Color) *Player {
	if s == nil {
		return nil
	}
	if c == rules.White {
		return s.White
	}
	return s.Black
}

// ColorOf returns the color the given participant is seated as.
func (s *Snapshot) ColorOf(participantID string) (rules.Color, bool) {
	if s == nil || participantID == "" {
		return "", false
	}
	if s.White != nil && s.White.ID == participantID {
		return rules.White, true
	}
	if s.Black != nil && s.Black.ID == participantID {
		return rules.Black, true
	}
	return "", false
}

// SideToMove extracts the color to act from the position encoding.
func (s *Snapshot) SideToMove() (rules.Color, error) {
	return rules.SideToMove(s.FEN)
}

// ResultRecord is handed to attached recorders when a session completes.
type ResultRecord struct {
	GameID    string
	WhiteID   string
	WhiteName string
	BlackID   string
	BlackName string
	Result    string // "white", "black" or "draw"
	Method    string // "checkmate", "resignation", "agreement", ...
	MovesSAN  []string
	EndedAt   time.Time
}
