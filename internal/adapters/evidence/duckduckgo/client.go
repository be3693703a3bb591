package duckduckgo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/beright/internal/domain"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://html.duckduckgo.com/html/"
	DefaultMaxChars = 2000
	// DefaultBurst lets the two searches of the conflict stage start together.
	DefaultBurst = 2

	maxBodyBytes = 1 << 20
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client searches DuckDuckGo's HTML endpoint and extracts readable text
// from result pages. Searches are paced to one per second on average,
// with a burst of DefaultBurst.
type Client struct {
	httpClient *http.Client
	endpoint   string
	maxChars   int
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if strings.TrimSpace(endpoint) != "" {
			c.endpoint = endpoint
		}
	}
}

func WithMaxChars(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithRateLimit replaces the search rate limit. rate.Inf disables it.
// burst is the number of searches that may start at once.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if burst <= 0 {
			burst = DefaultBurst
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   DefaultEndpoint,
		maxChars:   DefaultMaxChars,
		limiter:    rate.NewLimiter(rate.Every(time.Second), DefaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if maxResults <= 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for search slot: %w", err)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse search endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	body, _, err := c.get(ctx, endpoint.String(), "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}

	return parseResults(body, maxResults)
}

// FetchText downloads url and returns its visible text, truncated to the
// configured number of characters.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", fmt.Errorf("unsupported page url scheme %q", target.Scheme)
	}

	body, contentType, err := c.get(ctx, target.String(), "text/html,text/plain;q=0.9")
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target.Host, err)
	}

	var text string
	if strings.HasPrefix(contentType, "text/plain") {
		text = collapseSpace(string(body))
	} else {
		text, err = visibleText(body)
		if err != nil {
			return "", fmt.Errorf("extract text from %s: %w", target.Host, err)
		}
	}

	return truncate(text, c.maxChars), nil
}

func (c *Client) get(ctx context.Context, target, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, "", fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	return body, strings.ToLower(resp.Header.Get("Content-Type")), nil
}

func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	return strings.TrimSpace(string(runes[:maxChars]))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
