// Package youtube is a hand-written client for the YouTube Data API v3
// search endpoint and the public timedtext transcript endpoint.
//
// Search needs an API key; transcripts do not. The timedtext endpoint
// serves the same unauthenticated caption track the watch page player
// loads, which is the only way to read captions without OAuth.
package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIBaseURL is the YouTube Data API v3 root.
	DefaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

	// DefaultTranscriptBaseURL is the public timedtext caption endpoint.
	DefaultTranscriptBaseURL = "https://video.google.com/timedtext"

	// DefaultMaxResults is the search result count when the caller
	// passes none.
	DefaultMaxResults = 3

	maxSearchResults = 10

	requestTimeout = 20 * time.Second
)

var (
	// ErrMissingAPIKey indicates the client was built without a key.
	ErrMissingAPIKey = errors.New("youtube api key is required")

	// ErrNoTranscript indicates the video has no English caption track.
	ErrNoTranscript = errors.New("transcript not available")

	// ErrVideoNotFound indicates no video matched the lookup.
	ErrVideoNotFound = errors.New("video not found")
)

// watchParam extracts the v= parameter of a watch URL.
var watchParam = regexp.MustCompile(`v=([^&]+)`)

// Video is the metadata the librarian keeps for one video.
type Video struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	Thumbnail   string `json:"thumbnail"`
	VideoLink   string `json:"video_link"`
}

// Client calls the YouTube Data API and the timedtext endpoint.
type Client struct {
	apiKey        string
	apiBaseURL    string
	transcriptURL string
	httpClient    *http.Client
	logger        *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIBaseURL points search calls at another endpoint (tests).
func WithAPIBaseURL(base string) Option {
	return func(c *Client) { c.apiBaseURL = base }
}

// WithTranscriptBaseURL points transcript calls at another endpoint
// (tests).
func WithTranscriptBaseURL(base string) Option {
	return func(c *Client) { c.transcriptURL = base }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a YouTube client.
func New(apiKey string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		apiKey:        apiKey,
		apiBaseURL:    DefaultAPIBaseURL,
		transcriptURL: DefaultTranscriptBaseURL,
		httpClient:    &http.Client{Timeout: requestTimeout},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("youtube api: %d: %s", e.Code, e.Message)
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
	Error *apiError `json:"error"`
}

// Search returns up to maxResults videos for the query, most relevant
// first. maxResults <= 0 uses DefaultMaxResults; values above 10 are
// clamped.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Video, error) {
	if query == "" {
		return nil, errors.New("query is required")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	params := url.Values{}
	params.Set("part", "id,snippet")
	params.Set("order", "relevance")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("q", query)
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, c.apiBaseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("searching videos for %q: %w", query, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling search response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("searching videos for %q: %w", query, resp.Error)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{
			VideoID:     item.ID.VideoID,
			Title:       html.UnescapeString(item.Snippet.Title),
			Description: html.UnescapeString(item.Snippet.Description),
			Channel:     html.UnescapeString(item.Snippet.ChannelTitle),
			Thumbnail:   item.Snippet.Thumbnails.High.URL,
			VideoLink:   WatchURL(item.ID.VideoID),
		})
	}

	c.logger.Debug("youtube search", "query", query, "hits", len(videos))
	return videos, nil
}

// VideoByID returns the best search match for a video id.
func (c *Client) VideoByID(ctx context.Context, videoID string) (*Video, error) {
	if videoID == "" {
		return nil, errors.New("video id is required")
	}

	videos, err := c.Search(ctx, videoID, 1)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("video %q: %w", videoID, ErrVideoNotFound)
	}
	return &videos[0], nil
}

type transcriptXML struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// Transcript returns the English caption track of a video as one line
// of plain text. Returns ErrNoTranscript when the video has no English
// captions; the timedtext endpoint signals that with an empty 200
// response.
func (c *Client) Transcript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("video id is required")
	}

	params := url.Values{}
	params.Set("lang", "en")
	params.Set("v", videoID)

	body, err := c.get(ctx, c.transcriptURL+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("fetching transcript for %s: %w", videoID, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}

	var tx transcriptXML
	if err := xml.Unmarshal(body, &tx); err != nil {
		return "", fmt.Errorf("parsing transcript for %s: %w", videoID, err)
	}
	if len(tx.Texts) == 0 {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}

	// Caption cues carry stale HTML entities even after XML decoding
	// and arbitrary internal line breaks; flatten to single-spaced text.
	parts := make([]string, 0, len(tx.Texts))
	for _, t := range tx.Texts {
		parts = append(parts, html.UnescapeString(t.Text))
	}
	transcript := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if transcript == "" {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}

	c.logger.Debug("youtube transcript fetched", "video_id", videoID, "chars", len(transcript))
	return transcript, nil
}

// VideoIDFromURL extracts the video id from a watch URL, a short URL,
// or a bare id:
//
//	https://www.youtube.com/watch?v=abc123  -> abc123
//	https://youtu.be/abc123                 -> abc123
//	abc123                                  -> abc123
func VideoIDFromURL(rawURL string) string {
	last := rawURL
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		last = rawURL[i+1:]
	}
	if strings.HasPrefix(last, "watch?v=") {
		if m := watchParam.FindStringSubmatch(last); m != nil {
			return m[1]
		}
	}
	return last
}

// WatchURL returns the canonical watch link for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// get performs one GET and returns the response body.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("youtube API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
