package player

import (
	"errors"
	"io"
	"sync"

	"github.com/edgevox/edgevox/pkg/playback"
)

// File writes audio chunks sequentially to an io.WriteCloser (typically a
// file). It renders nothing; Play, Pause, and Resume are no-ops.
type File struct {
	mu     sync.Mutex
	w      io.WriteCloser
	closed bool
	done   chan struct{}
}

// NewFile creates a sink writing to w. The sink takes ownership of w and
// closes it on EndOfStream or Close.
func NewFile(w io.WriteCloser) *File {
	return &File{w: w, done: make(chan struct{}, 16)}
}

// Append writes the chunk synchronously.
func (f *File) Append(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("player: sink is closed")
	}
	if _, err := f.w.Write(chunk); err != nil {
		return err
	}
	select {
	case f.done <- struct{}{}:
	default:
	}
	return nil
}

// Busy always reports false: writes complete within Append.
func (f *File) Busy() bool { return false }

// Done yields a signal after each successful append.
func (f *File) Done() <-chan struct{} { return f.done }

func (f *File) Play() error   { return nil }
func (f *File) Pause() error  { return nil }
func (f *File) Resume() error { return nil }

// EndOfStream closes the underlying writer.
func (f *File) EndOfStream() error { return f.Close() }

// Close closes the underlying writer. Safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.w.Close()
}

var _ playback.Sink = (*File)(nil)
