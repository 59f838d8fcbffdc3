package pack

import "testing"

func TestReadEntryHeader(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantType objType
		wantSize uint64
		wantN    int
	}{
		{"blob small", []byte{0x33}, objBlob, 3, 1}, // type=3, size=3, no continuation
		{"commit with continuation", []byte{0x91, 0x01}, objCommit, 0x11, 2},
		{"truncated", []byte{}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ty, size, n, err := readEntryHeader(tt.data)
			if tt.name == "truncated" {
				if err == nil {
					t.Fatal("expected error for empty input")
				}
				return
			}
			if err != nil {
				t.Fatalf("readEntryHeader() error = %v", err)
			}
			if ty != tt.wantType || size != tt.wantSize || n != tt.wantN {
				t.Errorf("got (%v, %d, %d), want (%v, %d, %d)", ty, size, n, tt.wantType, tt.wantSize, tt.wantN)
			}
		})
	}
}

func TestReadEntryHeaderRejectsInvalidType(t *testing.T) {
	// type code 0 is never valid.
	_, _, _, err := readEntryHeader([]byte{0x00})
	if err == nil {
		t.Fatal("expected error for invalid type code")
	}
}

func TestReadOfsDistance(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int64
	}{
		{"single byte", []byte{0x05}, 5},
		{"two bytes", []byte{0x81, 0x00}, (1+1)<<7 | 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := readOfsDistance(tt.data)
			if err != nil {
				t.Fatalf("readOfsDistance() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("readOfsDistance() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReadDeltaVarint(t *testing.T) {
	// 300 = 0b100101100 -> low 7 bits 0101100 (0x2c) with continuation, then 0b10 (0x02)
	data := []byte{0xac, 0x02}
	got, n, err := readDeltaVarint(data)
	if err != nil {
		t.Fatalf("readDeltaVarint() error = %v", err)
	}
	if got != 300 || n != 2 {
		t.Errorf("readDeltaVarint() = (%d, %d), want (300, 2)", got, n)
	}
}

func TestReadPackedInt(t *testing.T) {
	// mask 0b0101 selects byte 0 and byte 2.
	data := []byte{0x10, 0x20}
	got, n, err := readPackedInt(data, 0b0101)
	if err != nil {
		t.Fatalf("readPackedInt() error = %v", err)
	}
	want := uint32(0x10) | uint32(0x20)<<16
	if got != want || n != 2 {
		t.Errorf("readPackedInt() = (%#x, %d), want (%#x, 2)", got, n, want)
	}
}

func TestReadPackedIntZeroMaskConsumesNothing(t *testing.T) {
	got, n, err := readPackedInt([]byte{0xff}, 0)
	if err != nil {
		t.Fatalf("readPackedInt() error = %v", err)
	}
	if got != 0 || n != 0 {
		t.Errorf("readPackedInt() = (%d, %d), want (0, 0)", got, n)
	}
}
