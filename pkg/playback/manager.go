package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edgevox/edgevox/pkg/edgetts"
)

// fallbackInterval bounds how long the manager waits for a sink Done signal
// before re-checking progress. It is a liveness safety net only; the normal
// path is event-driven.
const fallbackInterval = 100 * time.Millisecond

var (
	// ErrManagerConsumed is returned when Run is invoked more than once on
	// the same Manager. Playback sessions are single-use.
	ErrManagerConsumed = errors.New("playback: manager already ran")

	// ErrSink wraps fatal sink failures (Play, EndOfStream).
	ErrSink = errors.New("playback: sink failure")

	// ErrInvalidState is returned by Pause/Resume outside PLAYING/PAUSED.
	ErrInvalidState = errors.New("playback: invalid state transition")
)

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithWordBoundaryHandler registers a callback invoked for each word-boundary
// event in the stream. The callback runs on the manager's goroutine and must
// not block.
func WithWordBoundaryHandler(fn func(edgetts.WordBoundary)) ManagerOption {
	return func(m *Manager) {
		m.onWord = fn
	}
}

// WithProducerCancel registers the cancel function of the event producer.
// Stop invokes it so that tearing down playback also tears down the upstream
// connection.
func WithProducerCancel(cancel context.CancelFunc) ManagerOption {
	return func(m *Manager) {
		m.producerCancel = cancel
	}
}

// Manager consumes an edgetts event sequence and feeds the audio chunks into
// a [Sink] under a busy/idle flow-control discipline.
//
// A Manager owns its Sink exclusively for the lifetime of one Run call and is
// single-use. Pause, Resume, and Stop are safe to call from other goroutines
// while Run is in flight.
type Manager struct {
	sink           Sink
	onWord         func(edgetts.WordBoundary)
	producerCancel context.CancelFunc

	mu      sync.Mutex
	state   State
	ran     bool
	stopped bool
	cancel  context.CancelFunc

	states chan State
}

// NewManager creates a Manager around sink.
func NewManager(sink Sink, opts ...ManagerOption) *Manager {
	m := &Manager{
		sink:   sink,
		state:  StateIdle,
		states: make(chan State, 16),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// States yields state-change notifications. The channel is buffered; if the
// consumer falls behind, intermediate notifications are dropped.
func (m *Manager) States() <-chan State { return m.states }

// State returns the current playback state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	select {
	case m.states <- s:
	default:
	}
}

// Pause suspends rendering. Valid only while playing.
func (m *Manager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePlaying {
		return fmt.Errorf("%w: pause from %s", ErrInvalidState, m.state)
	}
	if err := m.sink.Pause(); err != nil {
		return fmt.Errorf("%w: pause: %v", ErrSink, err)
	}
	m.state = StatePaused
	select {
	case m.states <- StatePaused:
	default:
	}
	return nil
}

// Resume continues rendering after Pause.
func (m *Manager) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidState, m.state)
	}
	if err := m.sink.Resume(); err != nil {
		return fmt.Errorf("%w: resume: %v", ErrSink, err)
	}
	m.state = StatePlaying
	select {
	case m.states <- StatePlaying:
	default:
	}
	return nil
}

// Stop aborts the session: it cancels the upstream producer (when wired via
// [WithProducerCancel]), stops the run loop, and releases the sink. Audio
// already handed to the sink is not rolled back.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	cancel := m.cancel
	producerCancel := m.producerCancel
	m.mu.Unlock()

	if producerCancel != nil {
		producerCancel()
	}
	if cancel != nil {
		cancel()
	}
}

// Run consumes events until the producer completes, a terminal error occurs,
// or the session is stopped. It returns nil on natural end of stream and
// after Stop; a producer error or fatal sink error otherwise.
//
// Run may be called once per Manager.
func (m *Manager) Run(ctx context.Context, events <-chan edgetts.Event) error {
	m.mu.Lock()
	if m.ran {
		m.mu.Unlock()
		return ErrManagerConsumed
	}
	m.ran = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()
	defer m.cancel()
	defer m.sink.Close()

	m.setState(StateLoading)

	ticker := time.NewTicker(fallbackInterval)
	defer ticker.Stop()

	var (
		queue        [][]byte
		producerDone bool
		firstSent    bool
	)
	for {
		// Feed the sink while it is idle and audio is pending.
		for len(queue) > 0 && !m.sink.Busy() {
			chunk := queue[0]
			queue = queue[1:]
			if err := m.sink.Append(chunk); err != nil {
				// A dropped chunk leaves a gap in playback; the stream
				// itself continues.
				slog.Warn("playback: dropping audio chunk", "bytes", len(chunk), "err", err)
				continue
			}
			if !firstSent {
				firstSent = true
				if err := m.sink.Play(); err != nil {
					m.setState(StateError)
					return fmt.Errorf("%w: play: %v", ErrSink, err)
				}
				m.setState(StatePlaying)
			}
		}

		if producerDone && len(queue) == 0 && !m.sink.Busy() {
			if err := m.sink.EndOfStream(); err != nil {
				m.setState(StateError)
				return fmt.Errorf("%w: end of stream: %v", ErrSink, err)
			}
			m.setState(StateStopped)
			return nil
		}

		select {
		case ev, ok := <-events:
			if !ok {
				producerDone = true
				events = nil
				continue
			}
			switch ev.Kind {
			case edgetts.KindAudio:
				queue = append(queue, ev.Audio)
			case edgetts.KindWordBoundary:
				if m.onWord != nil {
					m.onWord(ev.WordBoundary)
				}
			case edgetts.KindError:
				m.setState(StateError)
				return ev.Err
			}
		case <-m.sink.Done():
			// Re-check queue and completion.
		case <-ticker.C:
			// Liveness fallback in case a Done signal was missed.
		case <-ctx.Done():
			m.setState(StateStopped)
			m.mu.Lock()
			stopped := m.stopped
			m.mu.Unlock()
			if stopped {
				return nil
			}
			return ctx.Err()
		}
	}
}
