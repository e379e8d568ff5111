// Package mock provides a test double for the playback.Sink interface.
//
// Use Sink to verify the chunks and lifecycle calls a manager issues, and to
// inject append/play failures:
//
//	s := mock.NewSink()
//	s.AppendErrs = []error{nil, errors.New("boom")}
//	mgr := playback.NewManager(s)
package mock

import (
	"sync"

	"github.com/edgevox/edgevox/pkg/playback"
)

// Sink records every call made by a playback.Manager. All fields guarded by
// the internal mutex are safe for concurrent use.
type Sink struct {
	mu sync.Mutex

	// Appended collects the chunks passed to Append, in order, including
	// chunks whose Append returned an error.
	Appended [][]byte

	// AppendErrs is consumed one entry per Append call; a nil entry means
	// success. When exhausted, Append succeeds.
	AppendErrs []error

	// PlayErr, EndErr are returned by Play and EndOfStream respectively.
	PlayErr error
	EndErr  error

	// BusyAfterAppend makes the sink report busy after each Append until
	// SignalDone is called.
	BusyAfterAppend bool

	busy        bool
	done        chan struct{}
	PlayCalls   int
	PauseCalls  int
	ResumeCalls int
	EndCalls    int
	CloseCalls  int
}

// NewSink creates a mock sink ready for use.
func NewSink() *Sink {
	return &Sink{done: make(chan struct{}, 16)}
}

// SignalDone marks the in-flight append as consumed and emits a Done signal.
func (s *Sink) SignalDone() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	select {
	case s.done <- struct{}{}:
	default:
	}
}

// AppendCount reports how many Append calls were recorded. Unlike reading
// Appended directly, it is safe while a manager is still running.
func (s *Sink) AppendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Appended)
}

func (s *Sink) Append(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Appended = append(s.Appended, chunk)
	var err error
	if len(s.AppendErrs) > 0 {
		err = s.AppendErrs[0]
		s.AppendErrs = s.AppendErrs[1:]
	}
	if err == nil && s.BusyAfterAppend {
		s.busy = true
	}
	return err
}

func (s *Sink) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Sink) Done() <-chan struct{} { return s.done }

func (s *Sink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PlayCalls++
	return s.PlayErr
}

func (s *Sink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PauseCalls++
	return nil
}

func (s *Sink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResumeCalls++
	return nil
}

func (s *Sink) EndOfStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndCalls++
	return s.EndErr
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	return nil
}

var _ playback.Sink = (*Sink)(nil)
