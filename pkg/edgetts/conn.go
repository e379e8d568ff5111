package edgetts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const maxDialAttempts = 3

// dialBackoffBase is the delay before the second dial attempt; it doubles for
// each further attempt. Overridable in tests.
var dialBackoffBase = time.Second

// dial opens a websocket connection to the service, retrying up to
// maxDialAttempts times with doubling backoff between attempts. Each attempt
// is bounded by connectTimeout when it is positive. onAttempt, when non-nil,
// is invoked once per attempt with its outcome.
func dial(ctx context.Context, url string, connectTimeout time.Duration, onAttempt func(error)) (*websocket.Conn, error) {
	headers := http.Header{}
	headers.Set("Origin", handshakeOrigin)
	headers.Set("User-Agent", handshakeUserAgent)

	backoff := dialBackoffBase
	var lastErr error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if connectTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		}
		conn, _, err := websocket.Dial(attemptCtx, url, &websocket.DialOptions{HTTPHeader: headers})
		cancel()
		if onAttempt != nil {
			onAttempt(err)
		}
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConnection, maxDialAttempts, lastErr)
}
