package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chessarena/internal/session"
)

const (
	ttlRecent   = 30 * 24 * time.Hour
	defaultKeep = 50
)

// Recent keeps finished games in Redis so the client can list what the
// local player recently played. Attached to a session as a ResultRecorder.
type Recent struct {
	rdb  *redis.Client
	keep int
}

func NewRecent(redisURL string) (*Recent, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for history store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Recent{rdb: rdb, keep: defaultKeep}, nil
}

func (r *Recent) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

// RecordResult stores the finished game and indexes it for both players.
func (r *Recent) RecordResult(ctx context.Context, rec session.ResultRecord) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	if strings.TrimSpace(rec.GameID) == "" {
		return fmt.Errorf("record without game id")
	}
	raw, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, gameKey(rec.GameID), raw, ttlRecent).Err(); err != nil {
		return err
	}
	for _, id := range []string{rec.WhiteID, rec.BlackID} {
		if strings.TrimSpace(id) == "" {
			continue
		}
		key := userKey(id)
		pipe := r.rdb.TxPipeline()
		pipe.LRem(ctx, key, 0, rec.GameID)
		pipe.LPush(ctx, key, rec.GameID)
		pipe.LTrim(ctx, key, 0, int64(r.keep-1))
		pipe.Expire(ctx, key, ttlRecent)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// List returns the player's most recent finished games, newest first.
func (r *Recent) List(ctx context.Context, playerID string, limit int) ([]session.ResultRecord, error) {
	if r == nil || r.rdb == nil || strings.TrimSpace(playerID) == "" {
		return nil, nil
	}
	if limit <= 0 || limit > r.keep {
		limit = r.keep
	}
	ids, err := r.rdb.LRange(ctx, userKey(playerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]session.ResultRecord, 0, len(ids))
	for _, id := range ids {
		raw, err := r.rdb.Get(ctx, gameKey(id)).Bytes()
		if err == redis.Nil {
			continue // expired entry still in the index
		}
		if err != nil {
			return nil, err
		}
		var rec session.ResultRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func gameKey(id string) string   { return "arena:history:game:" + strings.TrimSpace(id) }
func userKey(user string) string { return "arena:history:user:" + strings.TrimSpace(user) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
