package edgetts

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// websocketMaxSize is the largest message the service accepts on one
	// connection. Segment budgets are derived from it minus the SSML request
	// envelope overhead.
	websocketMaxSize = 1 << 16

	// messageMargin is slack left for header fields whose length varies
	// between requests (timestamps, request ids).
	messageMargin = 50

	// webmMaxSegmentBytes is the budget used for WebM output formats. A WebM
	// stream cannot be stitched together from several independently closed
	// sub-streams, so the budget is raised to keep typical inputs in a single
	// segment.
	webmMaxSegmentBytes = 1 << 20
)

var ssmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeSSML escapes text for embedding into an SSML element body.
func escapeSSML(text string) string {
	return ssmlEscaper.Replace(text)
}

var ssmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")

// unescapeSSML reverses escapeSSML for text echoed back in metadata frames.
func unescapeSSML(text string) string {
	return ssmlUnescaper.Replace(text)
}

// sanitizeText replaces control characters the service rejects with spaces.
// Tab, newline, and carriage return are kept.
func sanitizeText(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return ' '
		}
		return r
	}, text)
}

// segmentText splits escaped text into chunks of at most budget bytes,
// preferring to split at the last newline inside the window, then at the last
// space. Chunks are trimmed before being returned; chunks that trim to empty
// are dropped. budget must be positive.
func segmentText(text string, budget int) ([]string, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: segment byte budget must be positive, got %d", ErrInvalidConfig, budget)
	}

	var chunks []string
	data := []byte(text)
	for len(data) > 0 {
		if len(data) <= budget {
			if s := strings.TrimSpace(string(data)); s != "" {
				chunks = append(chunks, s)
			}
			break
		}

		window := data[:budget]
		cut := bytes.LastIndexByte(window, '\n')
		if cut <= 0 {
			cut = bytes.LastIndexByte(window, ' ')
		}
		if cut <= 0 {
			// No usable whitespace: split at the budget, backed off to a rune
			// boundary so no chunk carries a torn UTF-8 sequence.
			cut = budget
			for cut > 1 && !utf8.RuneStart(data[cut]) {
				cut--
			}
		}

		if s := strings.TrimSpace(string(data[:cut])); s != "" {
			chunks = append(chunks, s)
		}
		data = data[cut:]
	}
	return chunks, nil
}
