package rules

import "testing"

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestSideToMove(t *testing.T) {
	if c, err := SideToMove(startFEN); err != nil || c != White {
		t.Fatalf("got (%v, %v)", c, err)
	}
	black := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	if c, err := SideToMove(black); err != nil || c != Black {
		t.Fatalf("got (%v, %v)", c, err)
	}
	if _, err := SideToMove(""); err == nil {
		t.Fatalf("empty position accepted")
	}
	if _, err := SideToMove("not a position"); err == nil {
		t.Fatalf("garbage accepted")
	}
}

func TestPieceAt(t *testing.T) {
	p, occupied, err := PieceAt(startFEN, "e2")
	if err != nil || !occupied {
		t.Fatalf("e2: occupied=%v err=%v", occupied, err)
	}
	if !p.IsPawn() || p.Color != White {
		t.Fatalf("e2: %+v", p)
	}

	p, occupied, err = PieceAt(startFEN, "d8")
	if err != nil || !occupied || p.Kind != "q" || p.Color != Black {
		t.Fatalf("d8: %+v occupied=%v err=%v", p, occupied, err)
	}

	if _, occupied, err := PieceAt(startFEN, "e4"); err != nil || occupied {
		t.Fatalf("e4 should be empty: occupied=%v err=%v", occupied, err)
	}

	for _, sq := range []string{"", "e", "e9", "i1", "22"} {
		if _, _, err := PieceAt(startFEN, sq); err == nil {
			t.Fatalf("square %q accepted", sq)
		}
	}
}

func TestIsPromotionAdvance(t *testing.T) {
	whitePawn := Piece{Kind: "p", Color: White}
	blackPawn := Piece{Kind: "p", Color: Black}
	rook := Piece{Kind: "r", Color: White}

	cases := []struct {
		p      Piece
		target string
		want   bool
	}{
		{whitePawn, "a8", true},
		{whitePawn, "h8", true},
		{whitePawn, "a7", false},
		{whitePawn, "a1", false},
		{blackPawn, "c1", true},
		{blackPawn, "c8", false},
		{rook, "a8", false},
		{whitePawn, "a88", false},
	}
	for _, tc := range cases {
		if got := IsPromotionAdvance(tc.p, tc.target); got != tc.want {
			t.Fatalf("%+v to %s: got %v", tc.p, tc.target, got)
		}
	}
}

func TestValidPromotion(t *testing.T) {
	for _, s := range []string{"q", "r", "b", "n", " Q "} {
		if !ValidPromotion(s) {
			t.Fatalf("%q rejected", s)
		}
	}
	for _, s := range []string{"k", "p", "", "queen"} {
		if ValidPromotion(s) {
			t.Fatalf("%q accepted", s)
		}
	}
}

func TestOpponent(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatalf("opponent mapping broken")
	}
}
