package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Piece describes one occupant of a square, as the coordinators need it.
type Piece struct {
	Kind  string // "p", "n", "b", "r", "q", "k"
	Color Color
}

// IsPawn reports whether the piece is a pawn.
func (p Piece) IsPawn() bool { return p.Kind == "p" }

// PromotionKinds are the accepted promotion piece letters.
var PromotionKinds = []string{"q", "r", "b", "n"}

// ValidPromotion reports whether s names a legal promotion piece.
func ValidPromotion(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range PromotionKinds {
		if s == k {
			return true
		}
	}
	return false
}

// SideToMove extracts the color to act from a FEN position.
func SideToMove(fen string) (Color, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return "", err
	}
	if pos.Turn() == nchess.White {
		return White, nil
	}
	return Black, nil
}

// PieceAt returns the piece occupying square in the given position.
// The second return is false when the square is empty.
func PieceAt(fen, square string) (Piece, bool, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return Piece{}, false, err
	}
	sq, err := parseSquare(square)
	if err != nil {
		return Piece{}, false, err
	}
	pc := pos.Board().Piece(sq)
	if pc == nchess.NoPiece {
		return Piece{}, false, nil
	}
	out := Piece{Kind: kindLetter(pc.Type()), Color: White}
	if pc.Color() == nchess.Black {
		out.Color = Black
	}
	return out, true, nil
}

// IsPromotionAdvance reports whether moving p to target completes a pawn's
// advance to the farthest rank for its color.
func IsPromotionAdvance(p Piece, target string) bool {
	if !p.IsPawn() || len(target) != 2 {
		return false
	}
	switch p.Color {
	case White:
		return target[1] == '8'
	case Black:
		return target[1] == '1'
	}
	return false
}

func positionFromFEN(fen string) (*nchess.Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, fmt.Errorf("empty position")
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	game := nchess.NewGame(opt)
	pos := game.Position()
	if pos == nil {
		return nil, fmt.Errorf("parse fen: no position")
	}
	return pos, nil
}

func parseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

func kindLetter(t nchess.PieceType) string {
	switch t {
	case nchess.Pawn:
		return "p"
	case nchess.Knight:
		return "n"
	case nchess.Bishop:
		return "b"
	case nchess.Rook:
		return "r"
	case nchess.Queen:
		return "q"
	case nchess.King:
		return "k"
	}
	return ""
}
