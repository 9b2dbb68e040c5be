package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"chessarena/pkg/arenadto"
)

// HeaderProvider injects per-request headers (auth, identity).
type HeaderProvider func() map[string]string

// Client performs the request/response calls against the game server.
// Every call either returns a fresh snapshot or an error carrying the
// server's human-readable message.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateGame opens a fresh game seated by the creating player.
func (c *Client) CreateGame(ctx context.Context, playerID string) (*arenadto.GameDTO, error) {
	return c.gameCall(ctx, fasthttp.MethodPost, "/api/game/create",
		arenadto.PlayerRequest{PlayerID: playerID}, false)
}

// JoinGame seats the player in an existing game.
func (c *Client) JoinGame(ctx context.Context, gameID, playerID string) (*arenadto.GameDTO, error) {
	return c.gameCall(ctx, fasthttp.MethodPost, "/api/game/join/"+url.PathEscape(gameID),
		arenadto.PlayerRequest{PlayerID: playerID}, false)
}

// FetchSnapshot loads the canonical game state. Idempotent, so transient
// failures are retried.
func (c *Client) FetchSnapshot(ctx context.Context, gameID string) (*arenadto.GameDTO, error) {
	return c.gameCall(ctx, fasthttp.MethodGet, "/api/game/"+url.PathEscape(gameID), nil, true)
}

// SubmitMove sends a move intent. Promotion is empty for plain moves.
func (c *Client) SubmitMove(ctx context.Context, gameID, from, to, promotion string) (*arenadto.GameDTO, error) {
	return c.gameCall(ctx, fasthttp.MethodPost, "/api/game/"+url.PathEscape(gameID)+"/move",
		arenadto.MoveRequest{From: from, To: to, Promotion: promotion}, false)
}

// SubmitResign forfeits the game for the given player.
func (c *Client) SubmitResign(ctx context.Context, gameID, playerID string) (*arenadto.GameDTO, error) {
	return c.gameCall(ctx, fasthttp.MethodPost, "/api/game/"+url.PathEscape(gameID)+"/resign",
		arenadto.PlayerRequest{PlayerID: playerID}, false)
}

// SubmitDrawOffer places a draw offer.
func (c *Client) SubmitDrawOffer(ctx context.Context, gameID, playerID string) (*arenadto.GameDTO, error) {
	return c.gameCall(ctx, fasthttp.MethodPost, "/api/game/"+url.PathEscape(gameID)+"/offer-draw",
		arenadto.PlayerRequest{PlayerID: playerID}, false)
}

// SubmitDrawResponse answers the outstanding draw offer.
func (c *Client) SubmitDrawResponse(ctx context.Context, gameID, playerID string, accept bool) (*arenadto.GameDTO, error) {
	return c.gameCall(ctx, fasthttp.MethodPost, "/api/game/"+url.PathEscape(gameID)+"/respond-draw",
		arenadto.DrawResponseRequest{PlayerID: playerID, Accept: accept}, false)
}

func (c *Client) gameCall(ctx context.Context, method, path string, in any, retry bool) (*arenadto.GameDTO, error) {
	var out arenadto.GameResponse
	if err := c.doJSON(ctx, method, path, in, &out, retry); err != nil {
		return nil, err
	}
	if out.Game == nil {
		return nil, arenadto.DomainError{Code: "empty_response", Message: "server returned no game state"}
	}
	return out.Game, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			derr := rejectionError(status, resp.Body())
			if attempt == attempts || !derr.Retryable {
				return derr
			}
			lastErr = derr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// rejectionError extracts the server's message from an error body when
// present, else falls back to a generic one.
func rejectionError(status int, body []byte) arenadto.DomainError {
	msg := ""
	var er arenadto.ErrorResponse
	if json.Unmarshal(body, &er) == nil {
		msg = strings.TrimSpace(er.Message)
	}
	if msg == "" {
		msg = fmt.Sprintf("request rejected (status %d)", status)
	}
	return arenadto.DomainError{
		Code:      fmt.Sprintf("http_%d", status),
		Message:   msg,
		Retryable: shouldRetryStatus(status),
	}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
