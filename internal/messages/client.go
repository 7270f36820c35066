package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public message API.
	DefaultBaseURL = "https://november7-730026606190.europe-west1.run.app/messages"

	// DefaultPageSize is the largest page the API serves.
	DefaultPageSize = 100

	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
	maxResponseBytes   = 32 << 20
)

// ErrFetch wraps failures talking to the message API.
var ErrFetch = errors.New("fetching messages")

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey   string
	PageSize int
	// MaxPages stops pagination after this many pages; 0 is unlimited.
	MaxPages int
	// RateLimit is the request rate in requests per second; 0 disables it.
	RateLimit float64
	Timeout   time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client pages through the message API.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// page is one API response.
type page struct {
	Total int      `json:"total"`
	Items []Record `json:"items"`
}

// NewClient creates a message API client. A nil logger disables logging.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid message API URL %q: %w", baseURL, err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		pageSize:   pageSize,
		maxPages:   cfg.MaxPages,
		httpClient: httpClient,
		limiter:    limiter,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBaseBackoff,
		logger:     logger,
	}, nil
}

// FetchAll pages through the API with skip/limit until a short page.
//
// A 403 ends pagination early and returns what was fetched so far; the API
// uses it to cap how deep a caller may page.
func (c *Client) FetchAll(ctx context.Context) ([]Record, error) {
	var all []Record
	for pageNum, skip := 0, 0; ; pageNum, skip = pageNum+1, skip+c.pageSize {
		if c.maxPages > 0 && pageNum >= c.maxPages {
			c.logger.Info("page limit reached", zap.Int("pages", pageNum))
			break
		}

		items, err := c.fetchPageWithRetry(ctx, skip)
		if errors.Is(err, errForbidden) {
			c.logger.Warn("message API refused further pages, stopping early",
				zap.Int("skip", skip),
				zap.Int("fetched", len(all)),
			)
			break
		}
		if err != nil {
			return nil, err
		}

		all = append(all, items...)
		c.logger.Debug("fetched page",
			zap.Int("skip", skip),
			zap.Int("items", len(items)),
			zap.Int("total", len(all)),
		)
		if len(items) < c.pageSize {
			break
		}
	}

	fetchedTotal.Add(float64(len(all)))
	c.logger.Info("fetched messages", zap.Int("count", len(all)))
	return all, nil
}

var errForbidden = errors.New("forbidden")

func (c *Client) fetchPageWithRetry(ctx context.Context, skip int) ([]Record, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrFetch, ctx.Err())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrFetch, err)
		}

		items, err := c.fetchPage(ctx, skip)
		if err == nil {
			pageRequests.WithLabelValues("success").Inc()
			return items, nil
		}
		if errors.Is(err, errForbidden) {
			pageRequests.WithLabelValues("forbidden").Inc()
			return nil, err
		}
		pageRequests.WithLabelValues("error").Inc()

		lastErr = err
		var re *retryableError
		if !errors.As(err, &re) {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		c.logger.Debug("retrying page", zap.Int("skip", skip), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("%w: max retries exceeded: %w", ErrFetch, lastErr)
}

func (c *Client) fetchPage(ctx context.Context, skip int) ([]Record, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("reading response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, errForbidden
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryableError{err: errors.New("rate limited (429)")}
	case resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, truncate(body, 200))}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}
	return p.Items, nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
