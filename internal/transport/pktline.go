package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Pkt-line markers: the four payload-less lengths with special meaning.
const (
	flushPkt = "0000"
	delimPkt = "0001"
	// 0002/0003 are "response-end" markers in some v2 responses; treated
	// the same as flush by this client since it never pipelines requests.
)

// Side-band channel tags, used once side-band-64k is negotiated: the
// first payload byte of each non-marker pkt-line in the packfile section
// says which channel the remaining bytes belong to.
const (
	sideBandPackData = 1
	sideBandProgress = 2
	sideBandFatal    = 3
)

// ErrFlush and ErrDelim are returned by Scanner.Scan to signal a marker
// pkt-line rather than a data line; callers branch on errors.Is.
var (
	ErrFlush = errors.New("pktline: flush marker")
	ErrDelim = errors.New("pktline: delimiter marker")
)

// encodeLine returns data framed as a single pkt-line (4-hex length
// prefix, inclusive of the 4 header bytes, followed by data verbatim).
func encodeLine(data []byte) []byte {
	n := len(data) + 4
	out := []byte(fmt.Sprintf("%04x", n))
	return append(out, data...)
}

func encodeString(s string) []byte {
	return encodeLine([]byte(s))
}

func flushLine() []byte { return []byte(flushPkt) }
func delimLine() []byte { return []byte(delimPkt) }

// Scanner decodes a sequential stream of pkt-lines from an io.Reader.
type Scanner struct {
	r *bufio.Reader
}

// NewScanner wraps r for pkt-line decoding.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Scan reads the next pkt-line. On a flush or delimiter marker it returns
// ErrFlush / ErrDelim (wrap-checkable via errors.Is) and nil data.
func (s *Scanner) Scan() ([]byte, error) {
	var lenHex [4]byte
	if _, err := io.ReadFull(s.r, lenHex[:]); err != nil {
		return nil, fmt.Errorf("pktline: read length: %w", err)
	}

	length, err := parseHexLen(lenHex[:])
	if err != nil {
		return nil, err
	}

	switch length {
	case 0:
		return nil, ErrFlush
	case 1:
		return nil, ErrDelim
	case 2, 3:
		// response-end / reserved markers: treat as flush for this
		// client's purposes.
		return nil, ErrFlush
	}

	payload := make([]byte, length-4)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return nil, fmt.Errorf("pktline: read payload: %w", err)
	}
	return payload, nil
}

func parseHexLen(b []byte) (int, error) {
	var n int
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'a' && c <= 'f':
			n |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		default:
			return 0, fmt.Errorf("pktline: invalid length byte %q", c)
		}
	}
	return n, nil
}

// sideBand splits a packfile-section pkt-line payload into its channel tag
// and remaining bytes.
func sideBand(payload []byte) (byte, []byte) {
	if len(payload) == 0 {
		return 0, nil
	}
	return payload[0], payload[1:]
}
