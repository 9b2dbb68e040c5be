package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"chessarena/internal/session"
)

func testRecent(t *testing.T) *Recent {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	r, err := NewRecent("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRecent: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func record(gameID, whiteID, blackID, result string) session.ResultRecord {
	return session.ResultRecord{
		GameID:   gameID,
		WhiteID:  whiteID,
		BlackID:  blackID,
		Result:   result,
		Method:   "resignation",
		MovesSAN: []string{"e4", "e5"},
		EndedAt:  time.Now(),
	}
}

func TestRecordAndListNewestFirst(t *testing.T) {
	r := testRecent(t)
	ctx := context.Background()

	if err := r.RecordResult(ctx, record("g1", "w1", "b1", "white")); err != nil {
		t.Fatalf("record g1: %v", err)
	}
	if err := r.RecordResult(ctx, record("g2", "w1", "b2", "black")); err != nil {
		t.Fatalf("record g2: %v", err)
	}

	got, err := r.List(ctx, "w1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].GameID != "g2" || got[1].GameID != "g1" {
		t.Fatalf("unexpected listing: %+v", got)
	}

	// indexed for both seats
	if got, err = r.List(ctx, "b2", 10); err != nil || len(got) != 1 || got[0].GameID != "g2" {
		t.Fatalf("black index: %+v err=%v", got, err)
	}
}

func TestRecordIsIdempotentPerGame(t *testing.T) {
	r := testRecent(t)
	ctx := context.Background()

	rec := record("g1", "w1", "b1", "draw")
	for i := 0; i < 3; i++ {
		if err := r.RecordResult(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	got, err := r.List(ctx, "w1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("duplicate index entries: %+v", got)
	}
}

func TestListSkipsExpiredGames(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	r, err := NewRecent("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRecent: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	ctx := context.Background()

	if err := r.RecordResult(ctx, record("g1", "w1", "b1", "white")); err != nil {
		t.Fatalf("record: %v", err)
	}
	mr.Del(gameKey("g1"))

	got, err := r.List(ctx, "w1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expired game listed: %+v", got)
	}
}

func TestRecordRequiresGameID(t *testing.T) {
	r := testRecent(t)
	if err := r.RecordResult(context.Background(), session.ResultRecord{}); err == nil {
		t.Fatalf("empty game id accepted")
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("options: %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("bad scheme accepted")
	}
}
