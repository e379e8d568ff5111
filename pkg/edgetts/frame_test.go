package edgetts

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// ---- text framing ----

func TestDecodeTextFrame(t *testing.T) {
	t.Parallel()
	raw := []byte("Path:turn.end\r\nX-RequestId:abc123\r\n\r\n")
	f, err := decodeTextFrame(raw)
	if err != nil {
		t.Fatalf("decodeTextFrame: %v", err)
	}
	if f.path() != "turn.end" {
		t.Errorf("path = %q; want turn.end", f.path())
	}
	if f.headers["X-RequestId"] != "abc123" {
		t.Errorf("X-RequestId = %q; want abc123", f.headers["X-RequestId"])
	}
	if len(f.payload) != 0 {
		t.Errorf("payload = %q; want empty", f.payload)
	}
}

func TestDecodeTextFrame_PayloadKeepsColonsAndCRLF(t *testing.T) {
	t.Parallel()
	raw := []byte("Path:audio.metadata\r\nContent-Type:application/json; charset=utf-8\r\n\r\n{\"a\": \"b:c\"}\r\nrest")
	f, err := decodeTextFrame(raw)
	if err != nil {
		t.Fatalf("decodeTextFrame: %v", err)
	}
	if f.headers["Content-Type"] != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", f.headers["Content-Type"])
	}
	if string(f.payload) != "{\"a\": \"b:c\"}\r\nrest" {
		t.Errorf("payload = %q", f.payload)
	}
}

func TestDecodeTextFrame_MissingTerminator(t *testing.T) {
	t.Parallel()
	_, err := decodeTextFrame([]byte("Path:response\r\n"))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

// ---- binary framing ----

func TestBinaryFrame_RoundTrip(t *testing.T) {
	t.Parallel()
	headers := map[string]string{
		"Path":         "audio",
		"Content-Type": "audio/mpeg",
		"X-RequestId":  "deadbeef",
	}
	payload := []byte{0x00, 0x01, 0xff, 0xfe, 0x7f}

	f, err := decodeBinaryFrame(encodeBinaryFrame(headers, payload))
	if err != nil {
		t.Fatalf("decodeBinaryFrame: %v", err)
	}
	if !reflect.DeepEqual(f.headers, headers) {
		t.Errorf("headers = %v; want %v", f.headers, headers)
	}
	if !bytes.Equal(f.payload, payload) {
		t.Errorf("payload = %v; want %v", f.payload, payload)
	}
}

func TestDecodeBinaryFrame_TooShort(t *testing.T) {
	t.Parallel()
	for _, data := range [][]byte{nil, {0x01}} {
		if _, err := decodeBinaryFrame(data); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("decodeBinaryFrame(%v): expected ErrMalformedFrame, got %v", data, err)
		}
	}
}

func TestDecodeBinaryFrame_HeaderLengthExceedsMessage(t *testing.T) {
	t.Parallel()
	// Length prefix claims 100 header bytes but only 3 follow.
	data := []byte{0x00, 0x64, 'P', 'a', 't'}
	if _, err := decodeBinaryFrame(data); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeBinaryFrame_ZeroHeaderLength(t *testing.T) {
	t.Parallel()
	f, err := decodeBinaryFrame([]byte{0x00, 0x00, 0xab, 0xcd})
	if err != nil {
		t.Fatalf("decodeBinaryFrame: %v", err)
	}
	if len(f.headers) != 0 {
		t.Errorf("headers = %v; want empty", f.headers)
	}
	if !bytes.Equal(f.payload, []byte{0xab, 0xcd}) {
		t.Errorf("payload = %v", f.payload)
	}
}

// ---- outbound messages ----

func TestSpeechConfigMessage(t *testing.T) {
	t.Parallel()
	msg := speechConfigMessage("audio-24khz-48kbitrate-mono-mp3", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	f, err := decodeTextFrame(msg)
	if err != nil {
		t.Fatalf("decodeTextFrame: %v", err)
	}
	if f.path() != "speech.config" {
		t.Errorf("Path = %q; want speech.config", f.path())
	}
	if ct := f.headers["Content-Type"]; ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if f.headers["X-Timestamp"] == "" {
		t.Error("missing X-Timestamp header")
	}

	var cfg speechConfig
	if err := json.Unmarshal(f.payload, &cfg); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	audio := cfg.Context.Synthesis.Audio
	if audio.OutputFormat != "audio-24khz-48kbitrate-mono-mp3" {
		t.Errorf("outputFormat = %q", audio.OutputFormat)
	}
	if audio.MetadataOptions.WordBoundaryEnabled != "true" {
		t.Errorf("wordBoundaryEnabled = %q; want true", audio.MetadataOptions.WordBoundaryEnabled)
	}
}

func TestSSMLRequestMessage(t *testing.T) {
	t.Parallel()
	ssml := buildSSML("en-US-AriaNeural", "+10%", "-5%", "+2Hz", "hello")
	msg := ssmlRequestMessage("cafebabe", ssml, time.Now())
	f, err := decodeTextFrame(msg)
	if err != nil {
		t.Fatalf("decodeTextFrame: %v", err)
	}
	if f.path() != "ssml" {
		t.Errorf("Path = %q; want ssml", f.path())
	}
	if f.headers["X-RequestId"] != "cafebabe" {
		t.Errorf("X-RequestId = %q", f.headers["X-RequestId"])
	}
	body := string(f.payload)
	for _, want := range []string{"en-US-AriaNeural", "rate='+10%'", "volume='-5%'", "pitch='+2Hz'", ">hello<"} {
		if !strings.Contains(body, want) {
			t.Errorf("ssml body missing %q: %s", want, body)
		}
	}
}

func TestEndpointURL_QueryParameters(t *testing.T) {
	t.Parallel()
	u1, err := endpointURL(DefaultBaseURL, time.Unix(1_700_000_000, 0))
	if err != nil {
		t.Fatalf("endpointURL: %v", err)
	}
	for _, param := range []string{"TrustedClientToken=", "ConnectionId=", "Sec-MS-GEC=", "Sec-MS-GEC-Version="} {
		if !strings.Contains(u1, param) {
			t.Errorf("URL missing %q: %s", param, u1)
		}
	}
	// Connection ids must be fresh per connection.
	u2, _ := endpointURL(DefaultBaseURL, time.Unix(1_700_000_000, 0))
	if u1 == u2 {
		t.Error("two endpoint URLs share the same connection id")
	}
}

func TestSecurityToken_StableWithinWindow(t *testing.T) {
	t.Parallel()
	base := time.Unix(1_700_000_000, 0)
	tok1 := securityToken(base)
	tok2 := securityToken(base.Add(30 * time.Second))
	if len(tok1) != 64 {
		t.Errorf("token length = %d; want 64 hex chars", len(tok1))
	}
	if tok1 != strings.ToUpper(tok1) {
		t.Error("token is not uppercase")
	}
	// Quantised to 5 minutes: nearby times share a token.
	if tok1 != tok2 {
		t.Error("tokens differ inside the same 5-minute window")
	}
	if tok1 == securityToken(base.Add(10*time.Minute)) {
		t.Error("tokens match across different windows")
	}
}

// ---- metadata decoding ----

func TestParseMetadata_WordBoundary(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"Metadata":[{"Type":"WordBoundary","Data":{"Offset":10000000,"Duration":5000000,"text":{"Text":"hello"}}}]}`)
	wb, rawEnd, ok, err := parseMetadata(payload, 2*time.Second)
	if err != nil {
		t.Fatalf("parseMetadata: %v", err)
	}
	if !ok {
		t.Fatal("expected a word boundary")
	}
	if wb.Offset != 3*time.Second {
		t.Errorf("offset = %s; want 3s (1s raw + 2s compensation)", wb.Offset)
	}
	if wb.Duration != 500*time.Millisecond {
		t.Errorf("duration = %s; want 500ms", wb.Duration)
	}
	if wb.Text != "hello" {
		t.Errorf("text = %q; want hello", wb.Text)
	}
	if rawEnd != 1500*time.Millisecond {
		t.Errorf("rawEnd = %s; want 1.5s", rawEnd)
	}
}

func TestParseMetadata_StopsAtFirstWordBoundary(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"Metadata":[
		{"Type":"WordBoundary","Data":{"Offset":0,"Duration":1,"text":{"Text":"first"}}},
		{"Type":"WordBoundary","Data":{"Offset":99,"Duration":1,"text":{"Text":"second"}}}]}`)
	wb, _, ok, err := parseMetadata(payload, 0)
	if err != nil || !ok {
		t.Fatalf("parseMetadata: ok=%v err=%v", ok, err)
	}
	if wb.Text != "first" {
		t.Errorf("text = %q; want first", wb.Text)
	}
}

func TestParseMetadata_SessionEndSkipped(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"Metadata":[{"Type":"SessionEnd","Data":{}}]}`)
	_, _, ok, err := parseMetadata(payload, 0)
	if err != nil {
		t.Fatalf("parseMetadata: %v", err)
	}
	if ok {
		t.Error("SessionEnd must not produce a word boundary")
	}
}

func TestParseMetadata_UnknownType(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"Metadata":[{"Type":"ParagraphBoundary","Data":{}}]}`)
	_, _, _, err := parseMetadata(payload, 0)
	if !errors.Is(err, ErrUnknownResponse) {
		t.Errorf("expected ErrUnknownResponse, got %v", err)
	}
}

func TestParseMetadata_UnescapesText(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"Metadata":[{"Type":"WordBoundary","Data":{"Offset":0,"Duration":0,"text":{"Text":"a&amp;b"}}}]}`)
	wb, _, _, err := parseMetadata(payload, 0)
	if err != nil {
		t.Fatalf("parseMetadata: %v", err)
	}
	if wb.Text != "a&b" {
		t.Errorf("text = %q; want a&b", wb.Text)
	}
}

// ---- audio frame validation ----

func TestValidateAudioFrame(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		headers map[string]string
		payload []byte
		wantErr error
		wantNil bool
	}{
		{
			name:    "mp3 content type accepted",
			headers: map[string]string{"Path": "audio", "Content-Type": "audio/mpeg"},
			payload: []byte{1, 2, 3},
		},
		{
			name:    "webm prefix accepted",
			headers: map[string]string{"Path": "audio", "Content-Type": "audio/webm; codecs=opus"},
			payload: []byte{1, 2, 3},
		},
		{
			name:    "missing content type accepted",
			headers: map[string]string{"Path": "audio"},
			payload: []byte{1, 2, 3},
		},
		{
			name:    "empty payload dropped silently",
			headers: map[string]string{"Path": "audio", "Content-Type": "text/plain"},
			payload: nil,
			wantNil: true,
		},
		{
			name:    "wrong content type with payload rejected",
			headers: map[string]string{"Path": "audio", "Content-Type": "text/plain"},
			payload: []byte{1},
			wantErr: ErrUnexpectedResponse,
		},
		{
			name:    "wrong path rejected",
			headers: map[string]string{"Path": "video"},
			payload: []byte{1},
			wantErr: ErrUnexpectedResponse,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validateAudioFrame(frame{headers: tc.headers, payload: tc.payload})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v; want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validateAudioFrame: %v", err)
			}
			if tc.wantNil {
				if got != nil {
					t.Errorf("payload = %v; want nil", got)
				}
				return
			}
			if !bytes.Equal(got, tc.payload) {
				t.Errorf("payload = %v; want %v", got, tc.payload)
			}
		})
	}
}
