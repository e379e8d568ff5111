// Package player provides playback.Sink implementations for local rendering:
// a speaker-backed MP3 sink built on beep, and a file sink for saving audio.
package player

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"

	"github.com/edgevox/edgevox/pkg/playback"
)

// Beep renders streamed MP3 chunks through the system speaker.
//
// Chunks append into an internal pipe that the MP3 decoder consumes; the pipe
// applies backpressure, so Busy reflects how fast the decoder drains audio.
type Beep struct {
	volumeDB float64

	pr *io.PipeReader
	pw *io.PipeWriter

	mu      sync.Mutex
	busy    bool
	closed  bool
	started bool
	playErr error
	ctrl    *beep.Ctrl

	done     chan struct{}
	finished chan struct{}
}

// NewBeep creates a speaker sink with the given gain in decibels (0 leaves
// the volume unchanged, negative is quieter).
func NewBeep(volumeDB float64) *Beep {
	pr, pw := io.Pipe()
	return &Beep{
		volumeDB: volumeDB,
		pr:       pr,
		pw:       pw,
		done:     make(chan struct{}, 16),
		finished: make(chan struct{}),
	}
}

// Append hands one MP3 chunk to the decoder pipe. The write completes
// asynchronously; the sink reports busy until the decoder has consumed it.
func (b *Beep) Append(chunk []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("player: sink is closed")
	}
	if b.busy {
		return errors.New("player: append while busy")
	}
	b.busy = true
	go func() {
		_, err := b.pw.Write(chunk)
		b.mu.Lock()
		b.busy = false
		if err != nil && b.playErr == nil {
			b.playErr = err
		}
		b.mu.Unlock()
		select {
		case b.done <- struct{}{}:
		default:
		}
	}()
	return nil
}

// Busy reports whether a previous append is still being consumed.
func (b *Beep) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

// Done yields a signal after each append has been consumed by the decoder.
func (b *Beep) Done() <-chan struct{} { return b.done }

// Play starts the decoder and speaker. It returns immediately; decode
// failures surface from EndOfStream.
func (b *Beep) Play() error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("player: playback already started")
	}
	b.started = true
	b.mu.Unlock()
	go func() {
		streamer, format, err := mp3.Decode(b.pr)
		if err != nil {
			b.mu.Lock()
			if b.playErr == nil {
				b.playErr = err
			}
			b.mu.Unlock()
			close(b.finished)
			return
		}
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			b.mu.Lock()
			if b.playErr == nil {
				b.playErr = err
			}
			b.mu.Unlock()
			close(b.finished)
			return
		}
		vol := &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   b.volumeDB,
		}
		ctrl := &beep.Ctrl{Streamer: vol}
		b.mu.Lock()
		b.ctrl = ctrl
		b.mu.Unlock()
		speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
			close(b.finished)
		})))
	}()
	return nil
}

// Pause suspends rendering.
func (b *Beep) Pause() error { return b.setPaused(true) }

// Resume continues rendering after Pause.
func (b *Beep) Resume() error { return b.setPaused(false) }

func (b *Beep) setPaused(paused bool) error {
	b.mu.Lock()
	ctrl := b.ctrl
	b.mu.Unlock()
	if ctrl == nil {
		return errors.New("player: playback has not started")
	}
	speaker.Lock()
	ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

// EndOfStream closes the decoder pipe and blocks until the remaining audio
// has finished rendering. It returns any decode or playback error recorded
// during the session.
func (b *Beep) EndOfStream() error {
	b.pw.Close()
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if started {
		<-b.finished
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playErr
}

// Close releases the sink immediately, discarding unplayed audio.
func (b *Beep) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.ctrl != nil
	b.mu.Unlock()

	b.pw.CloseWithError(io.ErrClosedPipe)
	b.pr.CloseWithError(io.ErrClosedPipe)
	if started {
		speaker.Clear()
	}
	return nil
}

var _ playback.Sink = (*Beep)(nil)
