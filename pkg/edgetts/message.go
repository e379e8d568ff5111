package edgetts

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the production endpoint of the Edge read-aloud service.
// Override it per client with [WithBaseURL].
const DefaultBaseURL = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"

const (
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	secGECVersion      = "1-130.0.2849.68"

	// The service expects a browser-shaped handshake.
	handshakeOrigin    = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	handshakeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0"

	// windowsEpochOffsetSeconds is the offset between the Unix epoch and the
	// Windows file-time epoch (1601-01-01), in seconds.
	windowsEpochOffsetSeconds = 11644473600
)

// generateID returns a fresh request/connection id in the dashless hex form
// the service expects.
func generateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// timestamp renders the wall clock in the header format the service expects.
func timestamp(now time.Time) string {
	return now.UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (Coordinated Universal Time)"
}

// securityToken derives the Sec-MS-GEC query value: the uppercase SHA-256 of
// the current Windows file time, quantised down to 5 minutes, concatenated
// with the trusted client token.
func securityToken(now time.Time) string {
	seconds := now.UTC().Unix() + windowsEpochOffsetSeconds
	seconds -= seconds % 300
	ticks := seconds * 10_000_000 // 100ns Windows ticks
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s", ticks, trustedClientToken)))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// endpointURL builds the full websocket URL for one connection, including the
// trusted client token, the derived security token, and a fresh connection id.
func endpointURL(baseURL string, now time.Time) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: parse base URL: %v", ErrInvalidConfig, err)
	}
	q := u.Query()
	q.Set("TrustedClientToken", trustedClientToken)
	q.Set("ConnectionId", generateID())
	q.Set("Sec-MS-GEC", securityToken(now))
	q.Set("Sec-MS-GEC-Version", secGECVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// speechConfig is the JSON envelope sent as the first message on every
// connection. It selects the output audio format and enables word-boundary
// metadata.
type speechConfig struct {
	Context struct {
		Synthesis struct {
			Audio struct {
				MetadataOptions struct {
					SentenceBoundaryEnabled string `json:"sentenceBoundaryEnabled"`
					WordBoundaryEnabled     string `json:"wordBoundaryEnabled"`
				} `json:"metadataoptions"`
				OutputFormat string `json:"outputFormat"`
			} `json:"audio"`
		} `json:"synthesis"`
	} `json:"context"`
}

// speechConfigMessage builds the speech.config text message for the given
// output format.
func speechConfigMessage(outputFormat string, now time.Time) []byte {
	var cfg speechConfig
	cfg.Context.Synthesis.Audio.MetadataOptions.SentenceBoundaryEnabled = "false"
	cfg.Context.Synthesis.Audio.MetadataOptions.WordBoundaryEnabled = "true"
	cfg.Context.Synthesis.Audio.OutputFormat = outputFormat
	body, _ := json.Marshal(cfg)

	var b strings.Builder
	b.WriteString("X-Timestamp:" + timestamp(now) + "\r\n")
	b.WriteString("Content-Type:application/json; charset=utf-8\r\n")
	b.WriteString("Path:speech.config\r\n")
	b.WriteString("\r\n")
	b.Write(body)
	return []byte(b.String())
}

// buildSSML wraps one escaped text segment in the synthesis markup carrying
// voice, rate, volume, and pitch.
func buildSSML(voice, rate, volume, pitch, text string) string {
	return fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>"+
			"<voice name='%s'><prosody pitch='%s' rate='%s' volume='%s'>%s</prosody></voice></speak>",
		voice, pitch, rate, volume, text)
}

// ssmlRequestMessage builds the synthesis request text message for one segment.
func ssmlRequestMessage(requestID, ssml string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("X-RequestId:" + requestID + "\r\n")
	b.WriteString("X-Timestamp:" + timestamp(now) + "\r\n")
	b.WriteString("Content-Type:application/ssml+xml\r\n")
	b.WriteString("Path:ssml\r\n")
	b.WriteString("\r\n")
	b.WriteString(ssml)
	return []byte(b.String())
}
