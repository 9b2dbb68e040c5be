package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"chessarena/internal/session"
)

// Archive persists finished games to Postgres, including a rendered PGN.
// Optional; attached to a session as a ResultRecorder when DATABASE_URL is set.
type Archive struct {
	db *sql.DB
}

func NewArchive(databaseURL string) (*Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// RecordResult upserts a finished game.
func (a *Archive) RecordResult(ctx context.Context, rec session.ResultRecord) error {
	if a == nil || a.db == nil {
		return nil
	}
	movesRaw, _ := json.Marshal(rec.MovesSAN)
	endedAt := rec.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	q := `INSERT INTO arena_games (
	    game_id, white_id, white_name, black_id, black_name,
	    result, result_method, moves_san, pgn, ended_at
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	  ON CONFLICT (game_id) DO UPDATE SET
	    white_id=EXCLUDED.white_id,
	    white_name=EXCLUDED.white_name,
	    black_id=EXCLUDED.black_id,
	    black_name=EXCLUDED.black_name,
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    moves_san=EXCLUDED.moves_san,
	    pgn=EXCLUDED.pgn,
	    ended_at=EXCLUDED.ended_at`

	_, err := a.db.ExecContext(ctx, q,
		rec.GameID,
		rec.WhiteID, rec.WhiteName,
		rec.BlackID, rec.BlackName,
		rec.Result, strings.TrimSpace(rec.Method),
		string(movesRaw), BuildPGN(rec), endedAt,
	)
	return err
}

// BuildPGN renders a minimal PGN for the finished game.
func BuildPGN(rec session.ResultRecord) string {
	var b strings.Builder
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Chess Arena\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(orID(rec.WhiteName, rec.WhiteID))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(orID(rec.BlackName, rec.BlackID))))
	if strings.TrimSpace(rec.Method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(rec.Method))))
	}
	pgnResult := mapResultToPGN(rec.Result)
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", (i/2)+1, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

func orID(name, id string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return id
}
