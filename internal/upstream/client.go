package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"resty.dev/v3"

	"pulsewire.app/ingest/core/config"
)

const postsPath = "/v1/accounts/posts"

// Client fetches posts for one account from the upstream provider.
// Transient failures (5xx, 429, timeouts, network errors) are retried
// with exponential backoff inside FetchPosts; everything else fails
// the call immediately.
type Client struct {
	client *resty.Client
	cfg    config.UpstreamConfig
}

func NewClient(cfg config.UpstreamConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{
		client: client,
		cfg:    cfg,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// FetchPosts retrieves up to limit posts for the account, newest first,
// normalized into a single envelope regardless of which response shape
// the provider used.
func (c *Client) FetchPosts(ctx context.Context, account string, limit int) (*Envelope, error) {
	if account == "" {
		return nil, &FetchError{Kind: ErrorPermanent, Err: fmt.Errorf("account is required")}
	}
	if limit < 1 {
		return nil, &FetchError{Kind: ErrorPermanent, Err: fmt.Errorf("limit must be >= 1, got %d", limit)}
	}

	backoff := c.cfg.InitialBackoff
	var lastErr *FetchError

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		envelope, fetchErr := c.fetchOnce(ctx, account, limit)
		if fetchErr == nil {
			return envelope, nil
		}

		if fetchErr.Kind != ErrorTransient {
			return nil, fetchErr
		}

		lastErr = fetchErr
		if attempt == c.cfg.MaxRetries {
			break
		}

		slog.WarnContext(ctx, "fetch retry",
			"account", account,
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", fetchErr)

		select {
		case <-ctx.Done():
			return nil, &FetchError{Kind: ErrorTransient, Err: ctx.Err()}
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}

	return nil, fmt.Errorf("fetch exhausted %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, account string, limit int) (*Envelope, *FetchError) {
	res, err := c.client.R().
		WithContext(ctx).
		SetQueryParam("handle", account).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(postsPath)
	if err != nil {
		// Timeouts and connection failures land here.
		return nil, &FetchError{Kind: ErrorTransient, Err: err}
	}

	status := res.StatusCode()
	switch {
	case status == 200:
		// fall through to decoding
	case status >= 500 || status == 429:
		return nil, &FetchError{Kind: ErrorTransient, StatusCode: status, Err: fmt.Errorf("upstream error")}
	default:
		// 401/403/404/422 and anything else unexpected: not worth retrying.
		return nil, &FetchError{Kind: ErrorPermanent, StatusCode: status, Err: fmt.Errorf("upstream rejected request")}
	}

	var body apiResponse
	if err := json.Unmarshal(res.Bytes(), &body); err != nil {
		return nil, &FetchError{Kind: ErrorMalformed, StatusCode: status, Err: fmt.Errorf("decoding response: %w", err)}
	}

	envelope := normalize(account, &body)
	if envelope == nil {
		return nil, &FetchError{Kind: ErrorMalformed, StatusCode: status, Err: fmt.Errorf("response carries no posts field")}
	}

	return envelope, nil
}

// normalize collapses the two provider response shapes into one
// envelope and rewrites parseable dates to RFC3339 UTC.
func normalize(account string, body *apiResponse) *Envelope {
	var (
		posts []RawPost
		users []RawUser
		media []RawMedia
	)

	switch {
	case body.Data != nil:
		posts = body.Data.Posts
		if body.Data.Includes != nil {
			users = body.Data.Includes.Users
			media = body.Data.Includes.Media
		}
	case body.Posts != nil:
		posts = body.Posts
		users = body.Users
		media = body.Media
	default:
		return nil
	}

	envelope := &Envelope{
		Account: account,
		Posts:   make([]RawPost, len(posts)),
		Users:   make(map[string]RawUser, len(users)),
		Media:   make(map[string]RawMedia, len(media)),
	}

	for i, p := range posts {
		p.CreatedAt = NormalizeDate(p.CreatedAt)
		envelope.Posts[i] = p
	}
	for _, u := range users {
		envelope.Users[u.ID] = u
	}
	for _, m := range media {
		envelope.Media[m.MediaKey] = m
	}

	return envelope
}
