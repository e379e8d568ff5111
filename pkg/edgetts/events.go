package edgetts

import "time"

// EventKind tags the variant carried by an [Event].
type EventKind int

const (
	// KindAudio carries a chunk of encoded audio in Event.Audio.
	KindAudio EventKind = iota

	// KindWordBoundary carries word timing metadata in Event.WordBoundary.
	KindWordBoundary

	// KindError is the terminal event of a failed stream; Event.Err holds the
	// cause. No further events follow it.
	KindError
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindWordBoundary:
		return "wordBoundary"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// WordBoundary is the timing metadata emitted by the service for a single
// spoken word. Offset is relative to the start of the whole synthesis, with
// cross-segment compensation already applied.
type WordBoundary struct {
	// Offset is the time at which the word begins in the rendered audio.
	Offset time.Duration

	// Duration is how long the word is spoken for.
	Duration time.Duration

	// Text is the word itself, with markup escaping undone.
	Text string
}

// Event is one element of the ordered sequence produced by [Client.Stream].
//
// Audio events own their byte slice exclusively: the client never retains or
// reuses the buffer after delivery, so consumers may hold it without copying.
type Event struct {
	Kind         EventKind
	Audio        []byte
	WordBoundary WordBoundary
	Err          error
}
