// Package wikipedia is a small MediaWiki Action API client. It covers
// the two calls the librarian needs: full-text search and plain-text
// page extracts. No API key is required; the Wikimedia etiquette asks
// for a descriptive User-Agent, which every request carries.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the English Wikipedia Action API endpoint.
	DefaultBaseURL = "https://en.wikipedia.org/w/api.php"

	userAgent = "librarian/1.0 (https://github.com/alexdjulin/librarian; book research)"

	requestTimeout = 15 * time.Second

	maxSearchLimit = 10
)

// ErrNoArticle indicates the search or extract found nothing usable.
var ErrNoArticle = errors.New("no matching article")

// Client calls the MediaWiki Action API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another Action API endpoint. Tests
// use it to target an httptest server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Wikipedia client.
func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchResult is one search hit.
type SearchResult struct {
	Title  string `json:"title"`
	PageID int    `json:"pageid"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mediawiki: %s: %s", e.Code, e.Info)
}

type searchResponse struct {
	Query struct {
		Search []SearchResult `json:"search"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type extractResponse struct {
	Query struct {
		Pages []struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

// Search returns up to limit articles matching the query, best match
// first. limit is clamped to 1..10.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, errors.New("query is required")
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var resp searchResponse
	if err := c.makeRequest(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("searching %q: %w", query, resp.Error)
	}

	c.logger.Debug("wikipedia search", "query", query, "hits", len(resp.Query.Search))
	return resp.Query.Search, nil
}

// PageContent returns the full plain-text extract of a page, following
// redirects. Returns ErrNoArticle when the page does not exist or has
// no text.
func (c *Client) PageContent(ctx context.Context, title string) (string, error) {
	if title == "" {
		return "", errors.New("title is required")
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", title)
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var resp extractResponse
	if err := c.makeRequest(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("fetching page %q: %w", title, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("fetching page %q: %w", title, resp.Error)
	}

	pages := resp.Query.Pages
	if len(pages) == 0 || pages[0].Missing || pages[0].Extract == "" {
		return "", fmt.Errorf("page %q: %w", title, ErrNoArticle)
	}
	return pages[0].Extract, nil
}

// TopArticle searches for the best-matching article and returns its
// canonical title and full plain-text content.
func (c *Client) TopArticle(ctx context.Context, query string) (title, content string, err error) {
	hits, err := c.Search(ctx, query, 1)
	if err != nil {
		return "", "", err
	}
	if len(hits) == 0 {
		return "", "", fmt.Errorf("query %q: %w", query, ErrNoArticle)
	}

	content, err = c.PageContent(ctx, hits[0].Title)
	if err != nil {
		return "", "", err
	}
	return hits[0].Title, content, nil
}

// makeRequest performs one GET against the Action API and decodes the
// JSON response into result.
func (c *Client) makeRequest(ctx context.Context, params url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mediawiki API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}
