package pack

import (
	"testing"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

func encodeDeltaSize(n uint64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

func buildDelta(sourceSize, targetSize uint64, instructions ...[]byte) []byte {
	delta := append([]byte{}, encodeDeltaSize(sourceSize)...)
	delta = append(delta, encodeDeltaSize(targetSize)...)
	for _, instr := range instructions {
		delta = append(delta, instr...)
	}
	return delta
}

func insertInstr(data []byte) []byte {
	return append([]byte{byte(len(data))}, data...)
}

func copyInstr(offset, length uint32) []byte {
	instr := []byte{0x80}
	var offBytes, lenBytes []byte
	for i := 0; i < 4; i++ {
		if b := byte(offset >> (8 * i)); b != 0 || offset == 0 && i == 0 {
			offBytes = append(offBytes, b)
			instr[0] |= 1 << uint(i)
		}
	}
	for i := 0; i < 3; i++ {
		if b := byte(length >> (8 * i)); b != 0 {
			lenBytes = append(lenBytes, b)
			instr[0] |= 1 << uint(4+i)
		}
	}
	instr = append(instr, offBytes...)
	instr = append(instr, lenBytes...)
	return instr
}

func TestApplyDeltaInsertOnly(t *testing.T) {
	base := []byte("")
	target := []byte("hello world")
	delta := buildDelta(uint64(len(base)), uint64(len(target)), insertInstr(target))

	got, err := applyDelta(base, delta)
	if err != nil {
		t.Fatalf("applyDelta() error = %v", err)
	}
	if string(got) != string(target) {
		t.Errorf("applyDelta() = %q, want %q", got, target)
	}
}

func TestApplyDeltaCopyAndInsert(t *testing.T) {
	base := []byte("the quick brown fox")
	// target: "the quick CAT" -> copy "the quick " (offset 0, len 10), insert "CAT"
	delta := buildDelta(uint64(len(base)), 13, copyInstr(0, 10), insertInstr([]byte("CAT")))

	got, err := applyDelta(base, delta)
	if err != nil {
		t.Fatalf("applyDelta() error = %v", err)
	}
	want := "the quick CAT"
	if string(got) != want {
		t.Errorf("applyDelta() = %q, want %q", got, want)
	}
}

func TestApplyDeltaRejectsSourceSizeMismatch(t *testing.T) {
	base := []byte("short")
	delta := buildDelta(100, 5, insertInstr([]byte("hello")))
	if _, err := applyDelta(base, delta); err == nil {
		t.Fatal("expected error on source size mismatch")
	}
}

func TestApplyDeltaRejectsOutOfRangeCopy(t *testing.T) {
	base := []byte("short")
	delta := buildDelta(uint64(len(base)), 100, copyInstr(0, 100))
	if _, err := applyDelta(base, delta); err == nil {
		t.Fatal("expected error on out-of-range copy")
	}
}

func TestApplyDeltaRejectsZeroOpcode(t *testing.T) {
	delta := buildDelta(0, 0, []byte{0x00})
	if _, err := applyDelta(nil, delta); err == nil {
		t.Fatal("expected error on zero opcode")
	}
}

func record(off int64, typ objects.ObjectType, payload []byte) *objects.Record {
	r := &objects.Record{Type: typ, PackOffset: off, Payload: payload}
	if !r.IsDelta() {
		r.Hash = objects.ComputeHash(typ, payload)
	}
	return r
}

func TestResolveChainOfsDelta(t *testing.T) {
	store := objects.NewStore()

	base := []byte("the quick brown fox")
	baseRec := record(0, objects.TypeBlob, base)
	_ = store.Insert(baseRec)

	deltaPayload := buildDelta(uint64(len(base)), 13, copyInstr(0, 10), insertInstr([]byte("CAT")))
	deltaRec := &objects.Record{
		Type:       objects.TypeOfsDelta,
		PackOffset: 50,
		BaseOffset: 50, // distance back to offset 0
		Payload:    deltaPayload,
		HasBase:    true,
	}
	if err := store.Insert(deltaRec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := Resolve(store, nil); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	resolved, ok := store.ByHash(objects.ComputeHash(objects.TypeBlob, []byte("the quick CAT")))
	if !ok {
		t.Fatal("resolved object not found by hash")
	}
	if string(resolved.Payload) != "the quick CAT" {
		t.Errorf("resolved payload = %q", resolved.Payload)
	}
}

func TestResolveMissingBaseUsesLocator(t *testing.T) {
	store := objects.NewStore()

	base := []byte("local blob contents")
	baseHash := objects.ComputeHash(objects.TypeBlob, base)

	deltaPayload := buildDelta(uint64(len(base)), uint64(len(base)), copyInstr(0, uint32(len(base))))
	deltaRec := &objects.Record{
		Type:       objects.TypeRefDelta,
		PackOffset: 0,
		BaseHash:   baseHash,
		Payload:    deltaPayload,
		HasBase:    true,
	}
	if err := store.Insert(deltaRec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	locator := func(hash objects.ObjectID) (*objects.Record, bool) {
		if hash == baseHash {
			return &objects.Record{Type: objects.TypeBlob, Hash: baseHash, Payload: base}, true
		}
		return nil, false
	}

	if err := Resolve(store, locator); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	resolved, ok := store.ByHash(baseHash)
	if !ok || string(resolved.Payload) != string(base) {
		t.Fatalf("expected resolved record matching local base, got %+v ok=%v", resolved, ok)
	}
}

func TestResolveMissingBaseWithNoLocatorFails(t *testing.T) {
	store := objects.NewStore()
	deltaRec := &objects.Record{
		Type:       objects.TypeRefDelta,
		PackOffset: 0,
		BaseHash:   objects.ComputeHash(objects.TypeBlob, []byte("nope")),
		Payload:    buildDelta(0, 0),
		HasBase:    true,
	}
	_ = store.Insert(deltaRec)

	err := Resolve(store, nil)
	if err == nil {
		t.Fatal("expected error for unresolvable base")
	}
}
