package arenadto

// GameStatus mirrors the server's lifecycle states for a game.
type GameStatus string

const (
	StatusPending   GameStatus = "pending"
	StatusActive    GameStatus = "active"
	StatusCompleted GameStatus = "completed"
)

// GameResult is present only on completed games.
type GameResult string

const (
	ResultWhite GameResult = "white"
	ResultBlack GameResult = "black"
	ResultDraw  GameResult = "draw"
)

// PlayerDTO identifies one seated participant.
type PlayerDTO struct {
	ID   string `json:"_id"`
	Name string `json:"username,omitempty"`
}

// DrawOfferDTO is the single outstanding draw offer, if any.
type DrawOfferDTO struct {
	OfferedBy string `json:"offeredBy"`
}

// GameDTO is the full authoritative game state as the server sends it.
// Partial payloads are allowed on push events; absent fields are zero.
type GameDTO struct {
	GameID      string        `json:"gameId"`
	FEN         string        `json:"fen"`
	Status      GameStatus    `json:"status"`
	Result      GameResult    `json:"result,omitempty"`
	WhitePlayer *PlayerDTO    `json:"whitePlayer,omitempty"`
	BlackPlayer *PlayerDTO    `json:"blackPlayer,omitempty"`
	DrawOffer   *DrawOfferDTO `json:"drawOffer,omitempty"`
	MoveHistory []string      `json:"moveHistory,omitempty"`
	// Version is a server-side monotonic stamp used to reject stale writes.
	// Zero means the server did not stamp this payload.
	Version int64 `json:"version,omitempty"`
}
