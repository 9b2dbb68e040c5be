package moveflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chessarena/internal/obslog"
	"chessarena/internal/rules"
)

// Game is the slice of the session the coordinator reads and writes through.
// Reads happen at decision time, never from a cached copy.
type Game interface {
	Loaded() bool
	SeatsFilled() bool
	MyTurn() bool
	FEN() string
	SubmitMove(ctx context.Context, from, to, promotion string) error
}

// Guard and protocol rejections.
var (
	ErrWaitingForPlayers  = errors.New("waiting for both players to join")
	ErrNotLoaded          = errors.New("game state not loaded yet")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidSquare      = errors.New("invalid board coordinate")
	ErrPromotionPending   = errors.New("a promotion choice is pending")
	ErrNoPromotionPending = errors.New("no promotion choice is pending")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
)

// DropResult is the synchronous verdict on a drop intent, decided before any
// network round trip completes. The visual layer accepts the drag only on
// Completed.
type DropResult int

const (
	// DropRejected: the piece reverts; the error says why.
	DropRejected DropResult = iota
	// DropCompleted: the move was submitted and accepted by the authority.
	DropCompleted
	// DropAwaitingPromotion: the drop is held until a piece is chosen.
	DropAwaitingPromotion
)

type state int

const (
	stateIdle state = iota
	stateAwaitingPromotion
)

type heldMove struct {
	from string
	to   string
}

// Coordinator intercepts drop intents and drives the two-step promotion
// protocol: a plain move submits immediately, a promotion advance suspends
// until ChoosePromotion supplies the piece, then exactly one submission is
// made.
type Coordinator struct {
	game Game

	mu    sync.Mutex
	state state
	held  heldMove
}

func NewCoordinator(game Game) *Coordinator {
	return &Coordinator{game: game}
}

// AwaitingPromotion reports whether a drop is suspended on a piece choice.
func (c *Coordinator) AwaitingPromotion() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateAwaitingPromotion
}

// HandleDrop processes a drag/drop intent from `from` to `to`.
func (c *Coordinator) HandleDrop(ctx context.Context, from, to string) (DropResult, error) {
	c.mu.Lock()
	if c.state == stateAwaitingPromotion {
		c.mu.Unlock()
		return DropRejected, ErrPromotionPending
	}
	c.mu.Unlock()

	if err := c.guard(); err != nil {
		return DropRejected, err
	}

	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))

	piece, occupied, err := rules.PieceAt(c.game.FEN(), from)
	if err != nil {
		return DropRejected, ErrInvalidSquare
	}
	if _, _, err := rules.PieceAt(c.game.FEN(), to); err != nil {
		return DropRejected, ErrInvalidSquare
	}

	// Promotion detection suspends before any network call. An empty source
	// square is not a promotion; the authority rejects it on submission.
	if occupied && rules.IsPromotionAdvance(piece, to) {
		c.mu.Lock()
		c.state = stateAwaitingPromotion
		c.held = heldMove{from: from, to: to}
		c.mu.Unlock()
		obslog.L().Debug("promotion_suspended", zap.String("from", from), zap.String("to", to))
		return DropAwaitingPromotion, nil
	}

	if err := c.game.SubmitMove(ctx, from, to, ""); err != nil {
		return DropRejected, err
	}
	return DropCompleted, nil
}

// ChoosePromotion finishes a suspended promotion with the chosen piece
// ("q", "r", "b" or "n"). The coordinator returns to idle whatever the
// submission outcome; there is no cancel path.
func (c *Coordinator) ChoosePromotion(ctx context.Context, piece string) error {
	piece = strings.ToLower(strings.TrimSpace(piece))

	c.mu.Lock()
	if c.state != stateAwaitingPromotion {
		c.mu.Unlock()
		return ErrNoPromotionPending
	}
	if !rules.ValidPromotion(piece) {
		// an invalid letter is not a choice; the suspension stands
		c.mu.Unlock()
		return ErrInvalidPromotion
	}
	held := c.held
	c.state = stateIdle
	c.held = heldMove{}
	c.mu.Unlock()

	return c.game.SubmitMove(ctx, held.from, held.to, piece)
}

// guard re-reads the session right before acting: both seats filled, the
// snapshot loaded, and the local participant to move. A failed guard never
// reaches the authority.
func (c *Coordinator) guard() error {
	if !c.game.Loaded() {
		return ErrNotLoaded
	}
	if !c.game.SeatsFilled() {
		return ErrWaitingForPlayers
	}
	if !c.game.MyTurn() {
		return ErrNotYourTurn
	}
	return nil
}
