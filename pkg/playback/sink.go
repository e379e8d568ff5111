// Package playback drives an incremental audio sink from an edgetts event
// stream, buffering audio chunks so that the sink's consumption rate is
// decoupled from network arrival rate.
package playback

// Sink is the host-provided incremental audio renderer.
//
// A Sink accepts sequential encoded-audio chunks via Append and renders them
// as continuous playback. Append must only be called while Busy reports
// false; a [Manager] enforces this. A Sink instance must not be shared
// between managers.
type Sink interface {
	// Append hands one chunk to the sink. The sink takes ownership of the
	// slice. An error from Append drops that chunk only; playback continues.
	Append(chunk []byte) error

	// Busy reports whether the sink is still consuming a previous Append.
	Busy() bool

	// Done yields a signal after each append finishes. Managers use it to
	// schedule the next append without polling.
	Done() <-chan struct{}

	// Play starts rendering. Called once, after the first successful Append.
	Play() error

	// Pause suspends rendering; Resume continues it.
	Pause() error
	Resume() error

	// EndOfStream tells the sink no further chunks will arrive. It may block
	// until buffered audio has finished rendering.
	EndOfStream() error

	// Close releases the sink immediately, discarding unplayed audio.
	Close() error
}

// State is the externally visible playback lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateStopped
	StateError
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
