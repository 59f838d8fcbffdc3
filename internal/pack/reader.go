package pack

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

const (
	magic         = "PACK"
	supportedVers = 2
	headerSize    = 12 // "PACK" + version(4) + count(4)
	checksumSize  = 20 // trailing SHA-1
)

// Read parses a complete pack stream — header, every entry, and the
// trailing checksum — and inserts each entry (concrete or still a delta)
// into store. It does not resolve deltas; see package pack's Resolve.
func Read(data []byte, store *objects.Store) error {
	if len(data) < headerSize+checksumSize {
		return fmt.Errorf("pack: stream too short (%d bytes)", len(data))
	}

	if string(data[:4]) != magic {
		return fmt.Errorf("pack: bad magic %q", data[:4])
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != supportedVers {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	trailer := data[len(data)-checksumSize:]
	sum := sha1.Sum(data[:len(data)-checksumSize])
	if !bytes.Equal(sum[:], trailer) {
		return fmt.Errorf("%w", ErrChecksumMismatch)
	}

	offset := headerSize
	for i := uint32(0); i < count; i++ {
		entryOffset := int64(offset)

		t, size, n, err := readEntryHeader(data[offset:])
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		offset += n

		rec := &objects.Record{PackOffset: entryOffset}

		switch t {
		case objOfsDelta:
			dist, dn, err := readOfsDistance(data[offset:])
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			offset += dn
			rec.Type = objects.TypeOfsDelta
			rec.BaseOffset = dist
			rec.HasBase = true
		case objRefDelta:
			if offset+20 > len(data) {
				return fmt.Errorf("entry %d: %w: ref-delta base hash", i, ErrTruncated)
			}
			copy(rec.BaseHash[:], data[offset:offset+20])
			offset += 20
			rec.Type = objects.TypeRefDelta
			rec.HasBase = true
		default:
			rec.Type = packTypeToObjectType(t)
		}

		payload, consumed, err := inflate(data[offset:], size)
		if err != nil {
			return fmt.Errorf("entry %d: %w: %v", i, ErrInflateFailure, err)
		}
		if uint64(len(payload)) != size {
			return fmt.Errorf("entry %d: %w: declared %d, got %d", i, ErrInflateSizeMismatch, size, len(payload))
		}
		offset += consumed
		rec.Payload = payload

		if !rec.IsDelta() {
			rec.Hash = objects.ComputeHash(rec.Type, payload)
		}

		if err := store.Insert(rec); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	return nil
}

func inflate(data []byte, _ uint64) ([]byte, int, error) {
	sub := bytes.NewReader(data)
	zr, err := zlib.NewReader(sub)
	if err != nil {
		return nil, 0, err
	}
	payload, err := io.ReadAll(zr)
	closeErr := zr.Close()
	if err != nil {
		return nil, 0, err
	}
	if closeErr != nil {
		return nil, 0, closeErr
	}
	consumed := len(data) - sub.Len()
	return payload, consumed, nil
}

func packTypeToObjectType(t objType) objects.ObjectType {
	switch t {
	case objCommit:
		return objects.TypeCommit
	case objTree:
		return objects.TypeTree
	case objBlob:
		return objects.TypeBlob
	case objTag:
		return objects.TypeTag
	default:
		return ""
	}
}
