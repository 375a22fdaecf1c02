// Package shortener wraps the is.gd URL shortening API.
package shortener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://is.gd/create.php"

	// MaxURLLength is the longest URL is.gd accepts.
	MaxURLLength = 8000
	// MinURLLength is the length below which shortening is pointless.
	MinURLLength = 100

	DefaultBatchDelay = time.Second
	defaultTimeout    = 30 * time.Second
)

// knownShorteners are hosts whose links are already short.
var knownShorteners = []string{"is.gd", "bit.ly", "tinyurl.com", "goo.gl", "t.co"}

// Check is the local eligibility decision made before any network call.
type Check struct {
	CanShorten bool   `json:"canShorten"`
	Reason     string `json:"reason"`
}

// Result is the outcome of one shortening attempt. Remote failures are reported
// here rather than as Go errors.
type Result struct {
	Success     bool   `json:"success"`
	ShortURL    string `json:"shortUrl,omitempty"`
	OriginalURL string `json:"originalUrl,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorCode   int    `json:"errorCode,omitempty"`
	TooLong     bool   `json:"tooLong,omitempty"`
}

// Client talks to a single shortening endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

type Option func(*Client)

// WithEndpoint overrides the create.php endpoint, mainly for tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client; its Timeout bounds every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CanShorten decides locally whether raw is worth sending to the shortener.
func CanShorten(raw string) Check {
	if raw == "" {
		return Check{Reason: "Invalid URL"}
	}
	if len(raw) >= MaxURLLength {
		return Check{Reason: fmt.Sprintf("URL too long (%d chars, max %d)", len(raw), MaxURLLength)}
	}
	if len(raw) < MinURLLength {
		return Check{Reason: "URL already short enough"}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return Check{Reason: "Invalid URL format"}
	}
	if isShortenerHost(u.Hostname()) {
		return Check{Reason: "URL already shortened"}
	}
	return Check{CanShorten: true, Reason: "OK"}
}

func isShortenerHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range knownShorteners {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

type createResponse struct {
	ShortURL     string `json:"shorturl"`
	ErrorCode    int    `json:"errorcode"`
	ErrorMessage string `json:"errormessage"`
}

// Shorten issues exactly one request for longURL. customCode is optional.
// It never retries.
func (c *Client) Shorten(ctx context.Context, longURL, customCode string) Result {
	if len(longURL) >= MaxURLLength {
		return Result{
			Error:   fmt.Sprintf("URL too long (%d chars, max %d)", len(longURL), MaxURLLength),
			TooLong: true,
		}
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("url", longURL)
	if customCode != "" {
		params.Set("shorturl", customCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("shorten request failed", "error", err)
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	var body createResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Error: fmt.Sprintf("decode response: %v", err)}
	}

	switch {
	case body.ShortURL != "":
		c.logger.Debug("url shortened", "from", len(longURL), "to", len(body.ShortURL))
		return Result{Success: true, ShortURL: body.ShortURL, OriginalURL: longURL}
	case body.ErrorCode != 0:
		msg := body.ErrorMessage
		if msg == "" {
			msg = "Unknown error"
		}
		return Result{Error: msg, ErrorCode: body.ErrorCode}
	default:
		return Result{Error: "Unexpected response format"}
	}
}

// ShortenWithFallback returns the short URL, or rawURL itself when it is ineligible
// or shortening fails.
func (c *Client) ShortenWithFallback(ctx context.Context, rawURL string) string {
	if check := CanShorten(rawURL); !check.CanShorten {
		c.logger.Debug("url shortening skipped", "reason", check.Reason)
		return rawURL
	}
	res := c.Shorten(ctx, rawURL, "")
	if !res.Success {
		c.logger.Warn("url shortening failed, using original", "error", res.Error)
		return rawURL
	}
	return res.ShortURL
}

// ShortenBatch shortens urls one at a time, waiting delay between requests.
// If ctx is cancelled the remaining URLs are reported as failed.
func (c *Client) ShortenBatch(ctx context.Context, urls []string, delay time.Duration) []Result {
	results := make([]Result, 0, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{OriginalURL: u, Error: err.Error()})
			continue
		}

		res := c.Shorten(ctx, u, "")
		res.OriginalURL = u
		results = append(results, res)

		if delay > 0 && i < len(urls)-1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
	return results
}
