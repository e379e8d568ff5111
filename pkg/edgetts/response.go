package edgetts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Inbound Path header values.
const (
	pathTurnStart     = "turn.start"
	pathTurnEnd       = "turn.end"
	pathResponse      = "response"
	pathAudioMetadata = "audio.metadata"
	pathAudio         = "audio"
)

// Accepted audio content types. The service is not believed to guarantee the
// Content-Type header on audio frames, so its absence is tolerated.
const (
	contentTypeMP3        = "audio/mpeg"
	contentTypeWebMPrefix = "audio/webm"
)

// metadataPayload mirrors the JSON body of audio.metadata frames.
type metadataPayload struct {
	Metadata []metadataEntry `json:"Metadata"`
}

type metadataEntry struct {
	Type string `json:"Type"`
	Data struct {
		Offset   int64 `json:"Offset"`
		Duration int64 `json:"Duration"`
		Text     struct {
			Text string `json:"Text"`
		} `json:"text"`
	} `json:"Data"`
}

// ticksToDuration converts the service's 100-nanosecond ticks.
func ticksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100 * time.Nanosecond
}

// parseMetadata decodes an audio.metadata payload. It returns the first word
// boundary with compensation applied to its offset, together with the raw
// (uncompensated) end offset of that word. ok is false when the payload holds
// no word boundary (e.g., only a SessionEnd entry).
func parseMetadata(payload []byte, compensation time.Duration) (wb WordBoundary, rawEnd time.Duration, ok bool, err error) {
	var meta metadataPayload
	if err := json.Unmarshal(payload, &meta); err != nil {
		return WordBoundary{}, 0, false, fmt.Errorf("%w: metadata payload: %v", ErrMalformedFrame, err)
	}
	for _, entry := range meta.Metadata {
		switch entry.Type {
		case "WordBoundary":
			offset := ticksToDuration(entry.Data.Offset)
			duration := ticksToDuration(entry.Data.Duration)
			wb := WordBoundary{
				Offset:   offset + compensation,
				Duration: duration,
				Text:     unescapeSSML(entry.Data.Text.Text),
			}
			return wb, offset + duration, true, nil
		case "SessionEnd":
			continue
		default:
			return WordBoundary{}, 0, false, fmt.Errorf("%w: metadata type %q", ErrUnknownResponse, entry.Type)
		}
	}
	return WordBoundary{}, 0, false, nil
}

// validateAudioFrame checks a binary frame carrying audio and returns its
// payload. An empty payload marks the end of a segment's audio and yields
// (nil, nil). A present Content-Type must be the MP3 codec or a WebM container
// variant; anything else with a non-empty payload is an unexpected response.
func validateAudioFrame(f frame) ([]byte, error) {
	if f.path() != pathAudio {
		return nil, fmt.Errorf("%w: binary frame path %q", ErrUnexpectedResponse, f.path())
	}
	if len(f.payload) == 0 {
		return nil, nil
	}
	ct := f.headers["Content-Type"]
	if ct == "" || ct == contentTypeMP3 || strings.HasPrefix(ct, contentTypeWebMPrefix) {
		return f.payload, nil
	}
	return nil, fmt.Errorf("%w: audio content type %q", ErrUnexpectedResponse, ct)
}
