package drawflow

import (
	"context"
	"errors"
)

// Game is the slice of the session the coordinator consults.
type Game interface {
	GameActive() bool
	OutstandingDrawOffer() (offeredBy string, ok bool)
	LocalID() string
	OfferDraw(ctx context.Context) error
	RespondDraw(ctx context.Context, accept bool) error
}

var (
	ErrGameNotActive    = errors.New("game is not active")
	ErrOfferOutstanding = errors.New("a draw offer is already outstanding")
	ErrNoOffer          = errors.New("no draw offer is outstanding")
	ErrOwnOffer         = errors.New("cannot respond to your own draw offer")
)

// Coordinator is a derived-permission view over the outstanding draw offer
// plus two call sites. It keeps no state of its own; every check re-reads
// the session.
type Coordinator struct {
	game Game
}

func NewCoordinator(game Game) *Coordinator {
	return &Coordinator{game: game}
}

// CanOffer reports whether placing a draw offer is currently permitted.
func (c *Coordinator) CanOffer() bool {
	if !c.game.GameActive() {
		return false
	}
	_, outstanding := c.game.OutstandingDrawOffer()
	return !outstanding
}

// CanRespond reports whether the local participant may answer the
// outstanding offer. A participant never answers their own offer.
func (c *Coordinator) CanRespond() bool {
	if !c.game.GameActive() {
		return false
	}
	offeredBy, ok := c.game.OutstandingDrawOffer()
	return ok && offeredBy != c.game.LocalID()
}

// Offer places a draw offer after the local guard passes.
func (c *Coordinator) Offer(ctx context.Context) error {
	if !c.game.GameActive() {
		return ErrGameNotActive
	}
	if _, outstanding := c.game.OutstandingDrawOffer(); outstanding {
		return ErrOfferOutstanding
	}
	return c.game.OfferDraw(ctx)
}

// Respond accepts or declines the outstanding offer after the local guard
// passes.
func (c *Coordinator) Respond(ctx context.Context, accept bool) error {
	if !c.game.GameActive() {
		return ErrGameNotActive
	}
	offeredBy, ok := c.game.OutstandingDrawOffer()
	if !ok {
		return ErrNoOffer
	}
	if offeredBy == c.game.LocalID() {
		return ErrOwnOffer
	}
	return c.game.RespondDraw(ctx, accept)
}
