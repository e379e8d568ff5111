package edgetts

import "errors"

// Sentinel errors returned (wrapped) by the edgetts client. Callers should
// match them with [errors.Is]; the wrapped message carries the detail.
var (
	// ErrConnection indicates the speech service could not be reached after
	// all connection attempts were exhausted.
	ErrConnection = errors.New("edgetts: speech service unavailable")

	// ErrTimeout indicates the service accepted the connection but sent no
	// data within the no-data window.
	ErrTimeout = errors.New("edgetts: no data received from service")

	// ErrNoAudioReceived indicates a connection closed before a single audio
	// frame was received for its text segment.
	ErrNoAudioReceived = errors.New("edgetts: no audio received")

	// ErrMalformedFrame indicates an inbound frame that could not be decoded
	// (e.g., a binary frame shorter than its own header-length prefix).
	ErrMalformedFrame = errors.New("edgetts: malformed frame")

	// ErrUnexpectedResponse indicates a frame with a valid encoding but an
	// unexpected path or content type.
	ErrUnexpectedResponse = errors.New("edgetts: unexpected response")

	// ErrUnknownResponse indicates a metadata entry of a type the client does
	// not recognise.
	ErrUnknownResponse = errors.New("edgetts: unknown metadata response")

	// ErrProtocolMisuse is returned when Stream is invoked more than once on
	// the same Client, or with unusable input.
	ErrProtocolMisuse = errors.New("edgetts: protocol misuse")

	// ErrInvalidConfig indicates an unusable client configuration, such as a
	// non-positive segment byte budget.
	ErrInvalidConfig = errors.New("edgetts: invalid configuration")
)
