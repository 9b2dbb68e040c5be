package drawflow

import (
	"context"
	"errors"
	"testing"
)

type fakeGame struct {
	active    bool
	offeredBy string
	hasOffer  bool
	localID   string

	offers    int
	responses []bool
}

func (g *fakeGame) GameActive() bool { return g.active }

func (g *fakeGame) OutstandingDrawOffer() (string, bool) { return g.offeredBy, g.hasOffer }

func (g *fakeGame) LocalID() string { return g.localID }

func (g *fakeGame) OfferDraw(ctx context.Context) error {
	g.offers++
	return nil
}

func (g *fakeGame) RespondDraw(ctx context.Context, accept bool) error {
	g.responses = append(g.responses, accept)
	return nil
}

func TestCanOffer(t *testing.T) {
	cases := []struct {
		name string
		game *fakeGame
		want bool
	}{
		{"active no offer", &fakeGame{active: true, localID: "me"}, true},
		{"inactive", &fakeGame{localID: "me"}, false},
		{"offer outstanding", &fakeGame{active: true, hasOffer: true, offeredBy: "them", localID: "me"}, false},
		{"own offer outstanding", &fakeGame{active: true, hasOffer: true, offeredBy: "me", localID: "me"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewCoordinator(tc.game).CanOffer(); got != tc.want {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestCanRespond(t *testing.T) {
	cases := []struct {
		name string
		game *fakeGame
		want bool
	}{
		{"opponent offer", &fakeGame{active: true, hasOffer: true, offeredBy: "them", localID: "me"}, true},
		{"own offer", &fakeGame{active: true, hasOffer: true, offeredBy: "me", localID: "me"}, false},
		{"no offer", &fakeGame{active: true, localID: "me"}, false},
		{"inactive", &fakeGame{hasOffer: true, offeredBy: "them", localID: "me"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewCoordinator(tc.game).CanRespond(); got != tc.want {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestOfferGuards(t *testing.T) {
	game := &fakeGame{localID: "me"}
	c := NewCoordinator(game)
	if err := c.Offer(context.Background()); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("inactive: %v", err)
	}
	game.active = true
	game.hasOffer = true
	game.offeredBy = "them"
	if err := c.Offer(context.Background()); !errors.Is(err, ErrOfferOutstanding) {
		t.Fatalf("outstanding: %v", err)
	}
	game.hasOffer = false
	if err := c.Offer(context.Background()); err != nil {
		t.Fatalf("valid offer: %v", err)
	}
	if game.offers != 1 {
		t.Fatalf("offers submitted: %d", game.offers)
	}
}

func TestRespondGuards(t *testing.T) {
	game := &fakeGame{localID: "me"}
	c := NewCoordinator(game)
	if err := c.Respond(context.Background(), true); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("inactive: %v", err)
	}
	game.active = true
	if err := c.Respond(context.Background(), true); !errors.Is(err, ErrNoOffer) {
		t.Fatalf("no offer: %v", err)
	}
	game.hasOffer = true
	game.offeredBy = "me"
	if err := c.Respond(context.Background(), true); !errors.Is(err, ErrOwnOffer) {
		t.Fatalf("own offer: %v", err)
	}
	game.offeredBy = "them"
	if err := c.Respond(context.Background(), false); err != nil {
		t.Fatalf("valid decline: %v", err)
	}
	if len(game.responses) != 1 || game.responses[0] {
		t.Fatalf("responses: %v", game.responses)
	}
}
