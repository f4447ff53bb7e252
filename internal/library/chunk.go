package library

import "strings"

// chunkSeparator is the boundary SplitText prefers: paragraph breaks.
const chunkSeparator = "\n\n"

// SplitText splits text on paragraph breaks, then greedily merges the
// pieces into chunks of at most chunkSize characters, carrying up to
// chunkOverlap trailing characters from one chunk into the next. A
// single piece longer than chunkSize is emitted whole rather than cut
// mid-word.
func SplitText(text string, chunkSize, chunkOverlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	pieces := strings.Split(text, chunkSeparator)

	var chunks []string
	var window []string
	windowLen := 0

	// added returns how much appending piece would grow the window,
	// separator included.
	added := func(piece string) int {
		if windowLen == 0 {
			return len(piece)
		}
		return len(chunkSeparator) + len(piece)
	}

	emit := func() {
		if chunk := strings.TrimSpace(strings.Join(window, chunkSeparator)); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		if windowLen > 0 && windowLen+added(piece) > chunkSize {
			emit()
			// Shrink the window to an overlap tail that leaves room for
			// the incoming piece.
			for len(window) > 0 && (windowLen > chunkOverlap || windowLen+added(piece) > chunkSize) {
				drop := len(window[0])
				if len(window) > 1 {
					drop += len(chunkSeparator)
				}
				window = window[1:]
				windowLen -= drop
			}
		}
		windowLen += added(piece)
		window = append(window, piece)
	}
	emit()

	return chunks
}
