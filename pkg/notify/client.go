package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ykarpenko/solvebot-backend/pkg/config"
	"golang.org/x/time/rate"
)

// Notifier pushes a short text to a user through the messaging transport.
// Delivery is best effort; callers decide whether a failure matters.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends messages through the bot API. Calls are paced so a burst of
// referral bonuses cannot trip the transport's flood limits.
type Client struct {
	baseURL string
	token   string
	http    httpDoer
	limiter *rate.Limiter
}

// New builds a notify client from configuration.
func New(cfg config.NotifyConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("notify base url is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("notify token is required")
	}
	limit := rate.Limit(cfg.RatePerS)
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Notify posts a sendMessage call for the user. The request is bounded by the
// configured HTTP timeout and by ctx; a non-2xx status is returned as an error
// for the caller to swallow or surface.
func (c *Client) Notify(ctx context.Context, userID int64, text string) error {
	if userID == 0 {
		return errors.New("user id is required")
	}
	if text == "" {
		return errors.New("text is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify rate wait: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: userID, Text: text})
	if err != nil {
		return fmt.Errorf("encode notify payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send notify request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify rejected with status %d", resp.StatusCode)
	}
	return nil
}
