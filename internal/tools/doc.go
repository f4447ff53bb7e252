// Package tools provides the librarian's Genkit tools.
//
// # Overview
//
// Six tools cover the librarian's research loop:
//
//   - search_book_info / search_book_reviews: semantic search over the
//     two library collections (encyclopedia summaries and video review
//     summaries).
//   - search_wikipedia: fetch the top article for a query, summarize
//     the passages relevant to it, and file the summary under book
//     info.
//   - search_youtube_reviews: find review videos, summarize their
//     transcripts, and file the summaries under book reviews.
//   - get_video_transcript: return the full transcript of one video,
//     gated by a literature relevance check.
//   - librarian_profile: the persona facts for self-description turns.
//
// # Results
//
// Handlers return an in-band Result with a nil Go error so the model
// sees failures and can correct course:
//   - System failures (network, summarizer, store) become
//     Status=error with a coded message.
//   - Policy outcomes (irrelevant video, missing article) are regular
//     results carrying the refusal text.
//
// # Events
//
// Every registration wraps its handler in WithEvents so a
// ToolEventEmitter placed in the context (the chat REPL installs one)
// observes start/complete/error per call. Without an emitter the
// wrapper is a pass-through.
package tools
