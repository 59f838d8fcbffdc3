package transport

import (
	"bytes"
	"testing"
)

func TestEncodeLineRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"short", "hello\n"},
		{"empty", ""},
		{"command", "command=fetch\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeString(tt.data)
			sc := NewScanner(bytes.NewReader(encoded))
			got, err := sc.Scan()
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("Scan() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestScannerFlushAndDelim(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(encodeString("want abc\n"))
	buf.Write(delimLine())
	buf.Write(encodeString("have def\n"))
	buf.Write(flushLine())

	sc := NewScanner(&buf)

	line, err := sc.Scan()
	if err != nil || string(line) != "want abc\n" {
		t.Fatalf("first line = %q, err = %v", line, err)
	}

	if _, err := sc.Scan(); err != ErrDelim {
		t.Fatalf("expected ErrDelim, got %v", err)
	}

	line, err = sc.Scan()
	if err != nil || string(line) != "have def\n" {
		t.Fatalf("second line = %q, err = %v", line, err)
	}

	if _, err := sc.Scan(); err != ErrFlush {
		t.Fatalf("expected ErrFlush, got %v", err)
	}
}

func TestSideBand(t *testing.T) {
	band, payload := sideBand([]byte{0x01, 'P', 'A', 'C', 'K'})
	if band != sideBandPackData {
		t.Errorf("band = %d, want %d", band, sideBandPackData)
	}
	if string(payload) != "PACK" {
		t.Errorf("payload = %q, want PACK", payload)
	}

	band, payload = sideBand(nil)
	if band != 0 || payload != nil {
		t.Errorf("empty payload should yield zero band and nil payload, got %d %q", band, payload)
	}
}

func TestParseHexLen(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0000", 0, false},
		{"0001", 1, false},
		{"001e", 30, false},
		{"ffff", 65535, false},
		{"xyz!", 0, true},
	}
	for _, tt := range tests {
		got, err := parseHexLen([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHexLen(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("parseHexLen(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
