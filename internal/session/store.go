package session

import (
	"sync"

	"chessarena/internal/rules"
	"chessarena/pkg/arenadto"
)

// Store holds the authoritative-as-known Snapshot for one session.
// It is the only writer of the Snapshot; the authority client and the push
// subscription hand it candidate replacements and it performs the merge.
type Store struct {
	mu      sync.RWMutex
	localID string
	snap    *Snapshot
	closed  bool
}

func NewStore(localParticipantID string) *Store {
	return &Store{localID: localParticipantID}
}

// LocalID returns the participant operating this client.
func (st *Store) LocalID() string { return st.localID }

// Loaded reports whether the first snapshot has arrived.
func (st *Store) Loaded() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap != nil
}

// Get returns a copy of the current Snapshot, or nil when unloaded.
func (st *Store) Get() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.Clone()
}

// Replace merges a candidate snapshot into the store. Fields absent from the
// candidate are preserved. Returns false when the write was not applied:
// store torn down, nil candidate, or a version-stamped candidate older than
// what the store already holds.
func (st *Store) Replace(in *Snapshot) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed || in == nil {
		return false
	}
	if st.snap == nil {
		first := in.Clone()
		if first.Status == "" {
			first.Status = arenadto.StatusPending
		}
		st.snap = first
		return true
	}
	cur := st.snap
	if in.Version > 0 && cur.Version > 0 && in.Version < cur.Version {
		return false
	}
	merged := cur.Clone()
	if in.GameID != "" {
		merged.GameID = in.GameID
	}
	if in.FEN != "" {
		merged.FEN = in.FEN
	}
	// status only moves forward: pending -> active -> completed
	if in.Status != "" && statusRank(in.Status) >= statusRank(cur.Status) {
		merged.Status = in.Status
	}
	if in.Result != "" {
		merged.Result = in.Result
	}
	if in.White != nil {
		w := *in.White
		merged.White = &w
	}
	if in.Black != nil {
		b := *in.Black
		merged.Black = &b
	}
	// A payload carrying a position is a full snapshot: its draw-offer field
	// is authoritative, including its absence (a declined offer is cleared).
	if in.FEN != "" {
		merged.DrawOffer = nil
	}
	if in.DrawOffer != nil {
		d := *in.DrawOffer
		merged.DrawOffer = &d
	}
	if in.MoveHistory != nil {
		merged.MoveHistory = append([]string(nil), in.MoveHistory...)
	}
	if in.Version > 0 {
		merged.Version = in.Version
	}
	st.snap = merged
	return true
}

// BindSeat binds a participant to a color if that seat is still free.
// Duplicate deliveries are no-ops.
func (st *Store) BindSeat(c rules.Color, p Player) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed || st.snap == nil || p.ID == "" {
		return false
	}
	if st.snap.Seat(c) != nil {
		return false
	}
	merged := st.snap.Clone()
	bound := p
	if c == rules.White {
		merged.White = &bound
	} else {
		merged.Black = &bound
	}
	st.snap = merged
	return true
}

// DeriveTurn reports whether it is currently the local participant's turn:
// the game is active and the side-to-move color's seat is bound to them.
// Pure read; recomputed from the latest snapshot on every call.
func (st *Store) DeriveTurn() bool {
	st.mu.RLock()
	snap := st.snap
	st.mu.RUnlock()
	if snap == nil || snap.Status != arenadto.StatusActive {
		return false
	}
	side, err := snap.SideToMove()
	if err != nil {
		return false
	}
	seat := snap.Seat(side)
	return seat != nil && seat.ID == st.localID
}

// Close tears the store down. Any later Replace or BindSeat is discarded.
func (st *Store) Close() {
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
}

func statusRank(s arenadto.GameStatus) int {
	switch s {
	case arenadto.StatusActive:
		return 1
	case arenadto.StatusCompleted:
		return 2
	default:
		return 0
	}
}
