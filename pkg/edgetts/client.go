// Package edgetts is a streaming client for the Microsoft Edge read-aloud
// text-to-speech service.
//
// A [Client] opens one websocket connection per text segment, negotiates the
// output format, sends the synthesis request, and demultiplexes the service's
// mixed text/binary frame stream into an ordered sequence of [Event] values:
// encoded audio chunks interleaved with word-boundary timing metadata. Word
// offsets are compensated across segments so they remain correct for the
// whole input, regardless of how it was split.
//
// A Client is single-use: Stream may be called exactly once.
package edgetts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// readLimit caps inbound websocket messages. Audio frames are comfortably
// below this; the default library limit of 32 KiB is too small for them.
const readLimit = 1 << 20

// Client streams synthesised speech for one text input.
type Client struct {
	voice          string
	rate           string
	volume         string
	pitch          string
	outputFormat   string
	baseURL        string
	connectTimeout time.Duration
	onDialAttempt  func(error)

	mu            sync.Mutex
	streamStarted bool

	// Cross-segment timing state. Touched only by the run goroutine.
	offsetCompensation time.Duration
	lastDurationOffset time.Duration
}

// New creates a Client with the default voice and prosody settings, adjusted
// by opts.
func New(opts ...Option) *Client {
	c := &Client{
		voice:          defaultVoice,
		rate:           defaultRate,
		volume:         defaultVolume,
		pitch:          defaultPitch,
		outputFormat:   defaultOutputFormat,
		baseURL:        DefaultBaseURL,
		connectTimeout: defaultConnectTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// segmentBudget returns the byte budget for one text segment under the
// configured output format.
func (c *Client) segmentBudget() int {
	if strings.HasPrefix(c.outputFormat, "webm") {
		return webmMaxSegmentBytes
	}
	envelope := ssmlRequestMessage(generateID(), buildSSML(c.voice, c.rate, c.volume, c.pitch, ""), time.Now())
	return websocketMaxSize - len(envelope) - messageMargin
}

// Stream starts synthesis of text and returns the ordered event sequence.
//
// The returned channel yields audio chunks and word boundaries in service
// order and is closed when synthesis completes. A failed stream delivers a
// single KindError event immediately before the channel closes. Cancelling
// ctx stops the stream promptly without a trailing error event.
//
// Stream may be called exactly once per Client; further calls return
// [ErrProtocolMisuse] without touching the network.
func (c *Client) Stream(ctx context.Context, text string) (<-chan Event, error) {
	c.mu.Lock()
	if c.streamStarted {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: Stream called more than once", ErrProtocolMisuse)
	}
	c.streamStarted = true
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: input text is empty", ErrProtocolMisuse)
	}

	escaped := escapeSSML(sanitizeText(text))
	segments, err := segmentText(escaped, c.segmentBudget())
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 64)
	go c.run(ctx, segments, events)
	return events, nil
}

// run synthesises each segment in order, delivering events until completion,
// terminal error, or cancellation.
func (c *Client) run(ctx context.Context, segments []string, events chan<- Event) {
	defer close(events)
	for _, segment := range segments {
		if err := c.synthesizeSegment(ctx, segment, events); err != nil {
			if ctx.Err() != nil {
				return
			}
			emit(ctx, events, Event{Kind: KindError, Err: err})
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// emit delivers ev unless ctx is cancelled first. Reports whether the event
// was delivered.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// synthesizeSegment runs one full exchange: a fresh connection, the config
// and request messages, and the inbound frame loop until turn.end or a
// terminal condition.
func (c *Client) synthesizeSegment(ctx context.Context, segment string, events chan<- Event) error {
	wsURL, err := endpointURL(c.baseURL, time.Now())
	if err != nil {
		return err
	}
	conn, err := dial(ctx, wsURL, c.connectTimeout, c.onDialAttempt)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "segment abandoned")
	conn.SetReadLimit(readLimit)

	now := time.Now()
	if err := conn.Write(ctx, websocket.MessageText, speechConfigMessage(c.outputFormat, now)); err != nil {
		return fmt.Errorf("%w: send speech.config: %v", ErrConnection, err)
	}
	ssml := buildSSML(c.voice, c.rate, c.volume, c.pitch, segment)
	if err := conn.Write(ctx, websocket.MessageText, ssmlRequestMessage(generateID(), ssml, now)); err != nil {
		return fmt.Errorf("%w: send ssml request: %v", ErrConnection, err)
	}

	audioSeen := false
	firstRead := true
	for {
		// The no-data guard applies to the first inbound message only;
		// silence mid-stream is tolerated.
		readCtx, cancel := ctx, context.CancelFunc(func() {})
		if firstRead && c.connectTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		}
		typ, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if firstRead && errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w within %s", ErrTimeout, c.connectTimeout)
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, io.EOF) {
				if !audioSeen {
					return fmt.Errorf("%w: connection closed before any audio frame", ErrNoAudioReceived)
				}
				return nil
			}
			return fmt.Errorf("%w: read: %v", ErrConnection, err)
		}
		firstRead = false

		switch typ {
		case websocket.MessageText:
			f, err := decodeTextFrame(data)
			if err != nil {
				return err
			}
			switch f.path() {
			case pathTurnEnd:
				c.offsetCompensation += c.lastDurationOffset
				c.lastDurationOffset = 0
				conn.Close(websocket.StatusNormalClosure, "turn complete")
				if !audioSeen {
					return fmt.Errorf("%w: turn ended before any audio frame", ErrNoAudioReceived)
				}
				return nil
			case pathAudioMetadata:
				wb, rawEnd, ok, err := parseMetadata(f.payload, c.offsetCompensation)
				if err != nil {
					return err
				}
				if ok {
					c.lastDurationOffset = rawEnd
					if !emit(ctx, events, Event{Kind: KindWordBoundary, WordBoundary: wb}) {
						return ctx.Err()
					}
				}
			case pathTurnStart, pathResponse:
				// Informational frames; nothing to surface.
			default:
				// Unknown text paths are tolerated for forward compatibility.
			}

		case websocket.MessageBinary:
			f, err := decodeBinaryFrame(data)
			if err != nil {
				return err
			}
			payload, err := validateAudioFrame(f)
			if err != nil {
				return err
			}
			if len(payload) == 0 {
				continue
			}
			audioSeen = true
			if !emit(ctx, events, Event{Kind: KindAudio, Audio: payload}) {
				return ctx.Err()
			}
		}
	}
}
