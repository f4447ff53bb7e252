package tools

// youtube.go defines the two video tools. search_youtube_reviews
// annotates search hits with transcript summaries and files fresh
// summaries under book reviews; get_video_transcript returns one full
// transcript, gated by a literature relevance check.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/alexdjulin/librarian/internal/library"
	"github.com/alexdjulin/librarian/internal/youtube"
)

// Tool name constants for video operations.
const (
	// SearchYouTubeReviewsName is the Genkit tool name for video review research.
	SearchYouTubeReviewsName = "search_youtube_reviews"
	// GetVideoTranscriptName is the Genkit tool name for full transcript retrieval.
	GetVideoTranscriptName = "get_video_transcript"
)

// DefaultMaxTranscriptChars is the transcript length above which the
// tool summarizes instead of passing the raw text to the model.
const DefaultMaxTranscriptChars = 500

// Model-facing messages for the degraded video paths. The model reads
// these verbatim and relays them to the user.
const (
	msgTranscriptUnavailable     = "Transcript not available"
	msgNotRelevant               = "This video is not relevant to literature."
	msgMetadataUnavailable       = "I can't access the video title and/or description to grade its relevance."
	msgFullTranscriptUnavailable = "The transcript is not available for this youtube video."
)

// SearchYouTubeReviewsInput defines input for search_youtube_reviews.
type SearchYouTubeReviewsInput struct {
	Query      string `json:"query" jsonschema_description:"The search term to look for on YouTube, e.g. 'Moby Dick book review'"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema_description:"Maximum videos to inspect (1-10, default: 3)"`
}

// GetVideoTranscriptInput defines input for get_video_transcript.
type GetVideoTranscriptInput struct {
	URL string `json:"url" jsonschema_description:"The YouTube video URL (watch or short form) or a bare video id"`
}

// VideoReview is one annotated search hit: the video metadata plus the
// query it answered and the transcript summary.
type VideoReview struct {
	youtube.Video
	Query   string `json:"query"`
	Summary string `json:"summary"`
}

// YouTubeConfig tunes the video tools. Zero values fall back to the
// defaults (3 results, 500 transcript chars).
type YouTubeConfig struct {
	// MaxResults is the default number of videos per search.
	MaxResults int
	// MaxTranscriptChars is the length above which transcripts get
	// summarized instead of returned whole.
	MaxTranscriptChars int
}

// YouTube holds dependencies for the video tool handlers.
type YouTube struct {
	videos     VideoSource
	store      BookStore
	summarizer Summarizer
	grader     Grader
	cfg        YouTubeConfig
	logger     *slog.Logger
}

// NewYouTube creates a YouTube toolset.
func NewYouTube(videos VideoSource, store BookStore, summarizer Summarizer, grader Grader, cfg YouTubeConfig, logger *slog.Logger) (*YouTube, error) {
	if videos == nil {
		return nil, fmt.Errorf("video source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("book store is required")
	}
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if grader == nil {
		return nil, fmt.Errorf("grader is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = youtube.DefaultMaxResults
	}
	if cfg.MaxTranscriptChars <= 0 {
		cfg.MaxTranscriptChars = DefaultMaxTranscriptChars
	}
	return &YouTube{
		videos:     videos,
		store:      store,
		summarizer: summarizer,
		grader:     grader,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// RegisterYouTube registers both video tools with Genkit.
func RegisterYouTube(g *genkit.Genkit, yt *YouTube) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if yt == nil {
		return nil, fmt.Errorf("YouTube is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchYouTubeReviewsName,
			"Search YouTube for book review videos and summarize their transcripts. "+
				"Returns: a list of videos with title, description, channel, link, "+
				"and a transcript summary relevant to the query. "+
				"Use this to gather reader opinions and impressions about a book. "+
				"Default maxResults: 3. Maximum maxResults: 10.",
			WithEvents(SearchYouTubeReviewsName, yt.SearchReviews)),
		genkit.DefineTool(g, GetVideoTranscriptName,
			"Retrieve the full transcript of a YouTube video given its URL or video id. "+
				"Only works for videos about literature or books; other videos are refused. "+
				"Also caches a transcript summary in the library for later searches. "+
				"Returns: the complete transcript text.",
			WithEvents(GetVideoTranscriptName, yt.GetTranscript)),
	}, nil
}

// SearchReviews searches for review videos and annotates each hit with
// a transcript summary. Per-video failures degrade to a placeholder
// summary so one broken video never sinks the whole search.
func (y *YouTube) SearchReviews(ctx *ai.ToolContext, input SearchYouTubeReviewsInput) (Result, error) {
	y.logger.Info("SearchReviews called", "query", input.Query, "max_results", input.MaxResults)

	if input.Query == "" {
		return errorResult(ErrCodeValidation, "query is required"), nil
	}

	maxResults := clampTopK(input.MaxResults, y.cfg.MaxResults)

	videos, err := y.videos.Search(ctx, input.Query, maxResults)
	if err != nil {
		y.logger.Warn("SearchReviews failed", "query", input.Query, "error", err)
		return errorResult(ErrCodeNetwork, fmt.Sprintf("searching videos: %v", err)), nil
	}

	reviews := make([]VideoReview, 0, len(videos))
	for _, video := range videos {
		reviews = append(reviews, VideoReview{
			Video:   video,
			Query:   input.Query,
			Summary: y.reviewSummary(ctx, video, input.Query),
		})
	}

	y.logger.Info("SearchReviews succeeded", "query", input.Query, "result_count", len(reviews))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":        input.Query,
			"result_count": len(reviews),
			"videos":       reviews,
		},
	}, nil
}

// reviewSummary produces the summary for one search hit. Transcripts
// short enough pass through whole; longer ones reuse the cached
// summary for the video or get summarized and filed under book
// reviews.
func (y *YouTube) reviewSummary(ctx context.Context, video youtube.Video, query string) string {
	transcript, err := y.videos.Transcript(ctx, video.VideoID)
	if err != nil {
		y.logger.Warn("transcript unavailable", "video_id", video.VideoID, "error", err)
		return msgTranscriptUnavailable
	}

	if len(transcript) <= y.cfg.MaxTranscriptChars {
		return transcript
	}

	if summary, ok, err := y.store.CachedVideoSummary(ctx, video.VideoID); err != nil {
		y.logger.Warn("summary cache lookup failed", "video_id", video.VideoID, "error", err)
	} else if ok {
		y.logger.Debug("summary fetched from the library", "video_id", video.VideoID)
		return summary
	}

	summary, err := y.summarizer.Summarize(ctx, transcript, query)
	if err != nil {
		y.logger.Warn("transcript summarization failed", "video_id", video.VideoID, "error", err)
		return msgTranscriptUnavailable
	}

	metadata := videoMetadata(video)
	metadata["query"] = query
	metadata["summary"] = summary
	if _, err := y.store.Add(ctx, summary, library.SourceBookReviews, metadata); err != nil {
		y.logger.Warn("could not store review summary", "video_id", video.VideoID, "error", err)
	}

	return summary
}

// GetTranscript returns the full transcript of one video. The grader
// gates processing: videos not about literature are refused before any
// transcript is fetched.
func (y *YouTube) GetTranscript(ctx *ai.ToolContext, input GetVideoTranscriptInput) (Result, error) {
	y.logger.Info("GetTranscript called", "url", input.URL)

	if input.URL == "" {
		return errorResult(ErrCodeValidation, "url is required"), nil
	}

	videoID := youtube.VideoIDFromURL(input.URL)

	video, err := y.videos.VideoByID(ctx, videoID)
	if err != nil {
		y.logger.Warn("video metadata unavailable", "video_id", videoID, "error", err)
		return errorResult(ErrCodeNotFound, msgMetadataUnavailable), nil
	}
	if video.Title == "" && video.Description == "" {
		y.logger.Info("video has no title or description", "video_id", videoID)
		return errorResult(ErrCodeNotFound, msgMetadataUnavailable), nil
	}

	relevant, err := y.grader.IsLiterature(ctx, video.Title, video.Description)
	if err != nil {
		y.logger.Warn("relevance grading failed", "video_id", videoID, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("grading video relevance: %v", err)), nil
	}
	if !relevant {
		y.logger.Info("video not relevant to literature", "video_id", videoID, "title", video.Title)
		return Result{
			Status:  StatusSuccess,
			Message: msgNotRelevant,
			Data: map[string]any{
				"video_id": video.VideoID,
				"title":    video.Title,
				"relevant": false,
			},
		}, nil
	}

	transcript, err := y.videos.Transcript(ctx, videoID)
	if err != nil {
		y.logger.Warn("full transcript unavailable", "video_id", videoID, "error", err)
		return errorResult(ErrCodeNotFound, msgFullTranscriptUnavailable), nil
	}

	cached := y.ensureSummary(ctx, video, transcript)

	y.logger.Info("GetTranscript succeeded", "video_id", videoID, "chars", len(transcript), "cached_summary", cached)
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"video_id":   video.VideoID,
			"title":      video.Title,
			"relevant":   true,
			"transcript": transcript,
		},
	}, nil
}

// ensureSummary files a transcript summary under book reviews unless
// one is already cached for the video. The summary here is plain (no
// query focus) and carries no query metadata, so the store's relevance
// gate never skips it. Reports whether a cached summary already
// existed.
func (y *YouTube) ensureSummary(ctx context.Context, video *youtube.Video, transcript string) bool {
	if _, ok, err := y.store.CachedVideoSummary(ctx, video.VideoID); err != nil {
		y.logger.Warn("summary cache lookup failed", "video_id", video.VideoID, "error", err)
	} else if ok {
		y.logger.Debug("summary fetched from the library", "video_id", video.VideoID)
		return true
	}

	summary, err := y.summarizer.Summarize(ctx, transcript, "")
	if err != nil {
		y.logger.Warn("transcript summarization failed", "video_id", video.VideoID, "error", err)
		return false
	}

	metadata := videoMetadata(*video)
	metadata["summary"] = summary
	if _, err := y.store.Add(ctx, summary, library.SourceBookReviews, metadata); err != nil {
		y.logger.Warn("could not store transcript summary", "video_id", video.VideoID, "error", err)
	}

	return false
}

// videoMetadata flattens a video into the metadata stored with its
// summary.
func videoMetadata(v youtube.Video) map[string]any {
	return map[string]any{
		"video_id":    v.VideoID,
		"title":       v.Title,
		"description": v.Description,
		"channel":     v.Channel,
		"thumbnail":   v.Thumbnail,
		"video_link":  v.VideoLink,
	}
}
