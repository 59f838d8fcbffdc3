package pack

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

// packEntry deflates payload and prepends a pack-format type+size header.
func packEntry(t objType, payload []byte) []byte {
	var buf bytes.Buffer

	size := uint64(len(payload))
	first := byte(t) << 4
	first |= byte(size & 0x0f)
	size >>= 4
	if size > 0 {
		first |= 0x80
	}
	buf.WriteByte(first)
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
	}

	zw := zlib.NewWriter(&buf)
	zw.Write(payload)
	zw.Close()

	return buf.Bytes()
}

func buildPack(entries [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("PACK")
	binary.Write(&buf, binary.BigEndian, uint32(2))
	binary.Write(&buf, binary.BigEndian, uint32(len(entries)))
	for _, e := range entries {
		buf.Write(e)
	}
	sum := sha1.Sum(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes()
}

func TestReadSimplePack(t *testing.T) {
	blobPayload := []byte("hello pack\n")
	data := buildPack([][]byte{packEntry(objBlob, blobPayload)})

	store := objects.NewStore()
	if err := Read(data, store); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", store.Len())
	}
	rec, ok := store.ByHash(objects.ComputeHash(objects.TypeBlob, blobPayload))
	if !ok {
		t.Fatal("blob not found by hash")
	}
	if string(rec.Payload) != string(blobPayload) {
		t.Errorf("payload = %q, want %q", rec.Payload, blobPayload)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	data := buildPack([][]byte{packEntry(objBlob, []byte("x"))})
	data[0] = 'X'
	// corrupting the magic also invalidates the trailing checksum, but the
	// magic check runs first.
	if err := Read(data, objects.NewStore()); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestReadRejectsChecksumMismatch(t *testing.T) {
	data := buildPack([][]byte{packEntry(objBlob, []byte("x"))})
	data[len(data)-1] ^= 0xff
	err := Read(data, objects.NewStore())
	if err == nil {
		t.Fatal("expected checksum error")
	}
}

func TestReadMultipleEntriesPreservesOrder(t *testing.T) {
	payloads := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	var entries [][]byte
	for _, p := range payloads {
		entries = append(entries, packEntry(objBlob, p))
	}
	data := buildPack(entries)

	store := objects.NewStore()
	if err := Read(data, store); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	got := store.InInsertionOrder()
	if len(got) != len(payloads) {
		t.Fatalf("got %d records, want %d", len(got), len(payloads))
	}
	for i, p := range payloads {
		if string(got[i].Payload) != string(p) {
			t.Errorf("record %d payload = %q, want %q", i, got[i].Payload, p)
		}
	}
}
