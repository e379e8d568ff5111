package edgetts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// frame is one decoded protocol unit: a header block plus a payload, shared by
// both the text and the binary wire encodings.
type frame struct {
	headers map[string]string
	payload []byte
}

// path returns the frame's Path header, or "" when absent.
func (f frame) path() string { return f.headers["Path"] }

// parseHeaders parses CRLF-separated "Key:Value" lines. Lines without a colon
// are skipped; values keep any embedded colons.
func parseHeaders(block []byte) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(string(block), "\r\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers
}

// headerBlock renders headers as CRLF-terminated "Key:Value" lines in a
// deterministic (sorted) order.
func headerBlock(headers map[string]string) []byte {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(headers[k])
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

// decodeTextFrame splits a text message into its header block and payload at
// the first blank line.
func decodeTextFrame(data []byte) (frame, error) {
	head, payload, ok := bytes.Cut(data, []byte("\r\n\r\n"))
	if !ok {
		return frame{}, fmt.Errorf("%w: text frame missing header terminator", ErrMalformedFrame)
	}
	return frame{headers: parseHeaders(head), payload: payload}, nil
}

// decodeBinaryFrame decodes a binary message: a big-endian 16-bit header block
// length, the header block itself, then the raw payload.
func decodeBinaryFrame(data []byte) (frame, error) {
	if len(data) < 2 {
		return frame{}, fmt.Errorf("%w: binary frame shorter than length prefix", ErrMalformedFrame)
	}
	headerLen := int(binary.BigEndian.Uint16(data))
	if 2+headerLen > len(data) {
		return frame{}, fmt.Errorf("%w: binary frame header length %d exceeds message size %d", ErrMalformedFrame, headerLen, len(data))
	}
	f := frame{headers: make(map[string]string), payload: data[2+headerLen:]}
	if headerLen > 0 {
		f.headers = parseHeaders(data[2 : 2+headerLen])
	}
	return f, nil
}

// encodeTextFrame renders headers, a blank line, and the payload as one text
// message.
func encodeTextFrame(headers map[string]string, payload []byte) []byte {
	var b bytes.Buffer
	b.Write(headerBlock(headers))
	b.WriteString("\r\n")
	b.Write(payload)
	return b.Bytes()
}

// encodeBinaryFrame renders the binary encoding of headers and payload.
func encodeBinaryFrame(headers map[string]string, payload []byte) []byte {
	block := headerBlock(headers)
	out := make([]byte, 2, 2+len(block)+len(payload))
	binary.BigEndian.PutUint16(out, uint16(len(block)))
	out = append(out, block...)
	out = append(out, payload...)
	return out
}
