package arenadto

import "encoding/json"

// Event kinds delivered on the push channel.
const (
	EventGameStarted  = "gameStarted"
	EventPlayerJoined = "playerJoined"
	EventMoveMade     = "moveMade"
	EventDrawOffered  = "drawOffered"
	EventDrawResponse = "drawResponse"
	EventGameResigned = "gameResigned"
)

// Outbound frames written by the client.
const (
	EventJoinGame  = "joinGame"
	EventLeaveGame = "leaveGame"
)

// EventEnvelope is the frame shape on the push channel, both directions.
type EventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload joins or leaves a game room on the push channel.
type JoinPayload struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// GameStartedPayload announces the second participant completed the pairing.
type GameStartedPayload struct {
	Game         *GameDTO      `json:"game"`
	JoinedPlayer *JoinedPlayer `json:"joinedPlayer,omitempty"`
}

type JoinedPlayer struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// PlayerJoinedPayload binds a seat without carrying a full game.
type PlayerJoinedPayload struct {
	PlayerID      string `json:"playerId"`
	AssignedColor string `json:"assignedColor"`
}

type MoveMadePayload struct {
	Game *GameDTO `json:"game"`
}

type DrawOfferedPayload struct {
	Game      *GameDTO `json:"game"`
	OfferedBy string   `json:"offeredBy"`
}

type DrawResponsePayload struct {
	Game        *GameDTO `json:"game"`
	Accepted    bool     `json:"accepted"`
	RespondedBy string   `json:"respondedBy"`
}

type GameResignedPayload struct {
	Game       *GameDTO `json:"game"`
	ResignedBy string   `json:"resignedBy"`
	Winner     string   `json:"winner,omitempty"`
}
