package edgetts

import "time"

const (
	defaultVoice          = "en-US-AriaNeural"
	defaultRate           = "+0%"
	defaultVolume         = "+0%"
	defaultPitch          = "+0Hz"
	defaultOutputFormat   = "audio-24khz-48kbitrate-mono-mp3"
	defaultConnectTimeout = 10 * time.Second
)

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithVoice sets the voice short name (e.g., "en-GB-SoniaNeural").
func WithVoice(voice string) Option {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithRate sets the speaking rate as a signed percentage (e.g., "+10%").
func WithRate(rate string) Option {
	return func(c *Client) {
		if rate != "" {
			c.rate = rate
		}
	}
}

// WithVolume sets the output volume as a signed percentage (e.g., "-20%").
func WithVolume(volume string) Option {
	return func(c *Client) {
		if volume != "" {
			c.volume = volume
		}
	}
}

// WithPitch sets the pitch shift in Hz (e.g., "+5Hz").
func WithPitch(pitch string) Option {
	return func(c *Client) {
		if pitch != "" {
			c.pitch = pitch
		}
	}
}

// WithOutputFormat selects the encoded audio container/codec (e.g.,
// "audio-24khz-48kbitrate-mono-mp3" or "webm-24khz-16bit-mono-opus").
// WebM formats raise the segment byte budget, because a WebM stream cannot be
// assembled from several independently closed connections.
func WithOutputFormat(format string) Option {
	return func(c *Client) {
		if format != "" {
			c.outputFormat = format
		}
	}
}

// WithConnectTimeout bounds each individual connection attempt and doubles as
// the no-data window after a connection opens. Zero disables both timeouts.
// Default: 10s.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = d
	}
}

// WithDialHook registers a callback invoked once per connection attempt with
// its outcome (nil on success). Useful for counting attempts in metrics.
func WithDialHook(fn func(error)) Option {
	return func(c *Client) {
		c.onDialAttempt = fn
	}
}

// WithBaseURL overrides the service endpoint. Intended for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}
