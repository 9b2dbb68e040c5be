package arenadto

// MoveRequest submits a move intent. Promotion is set only when the move
// advances a pawn to its last rank ("q", "r", "b" or "n").
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// PlayerRequest carries the acting participant for create/join/resign/offer-draw.
type PlayerRequest struct {
	PlayerID string `json:"playerId"`
}

// DrawResponseRequest answers an outstanding draw offer.
type DrawResponseRequest struct {
	PlayerID string `json:"playerId"`
	Accept   bool   `json:"accept"`
}

// GameResponse is the success payload of every game endpoint.
type GameResponse struct {
	Message string   `json:"message,omitempty"`
	Game    *GameDTO `json:"game"`
}

// ErrorResponse is the failure payload; Message is shown to the user verbatim.
type ErrorResponse struct {
	Message string `json:"message"`
}
