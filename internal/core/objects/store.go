package objects

import (
	"errors"
	"fmt"
)

// ErrDuplicatePackOffset is returned by Store.Insert when a pack entry's
// starting offset collides with one already recorded — never legitimate,
// since every entry in a well-formed pack starts at a distinct offset.
var ErrDuplicatePackOffset = errors.New("objects: duplicate pack offset")

// Record is a single decoded pack entry, concrete or still transient. It is
// the store's unit of storage: objects.Object plus the pack-level metadata
// (PackOffset, BaseOffset, BaseHash) the delta resolver needs to find a
// delta's base before the object has a content hash of its own.
type Record struct {
	Type       ObjectType
	Hash       ObjectID // zero until the record is concrete
	Payload    []byte
	PackOffset int64
	BaseOffset int64 // set for ofs_delta: positive distance back from PackOffset
	BaseHash   ObjectID
	HasBase    bool // true once BaseOffset/BaseHash has been populated
}

// IsDelta reports whether the record is still a transient ofs_delta or
// ref_delta awaiting resolution.
func (r *Record) IsDelta() bool {
	return r.Type == TypeOfsDelta || r.Type == TypeRefDelta
}

// Store is the in-memory object table for a single session: every object
// decoded from a pack (or recovered from the local worktree to satisfy a
// thin pack) lives here exactly once, addressable either by its pack
// position or, once concrete, by its content hash.
//
// Store is deliberately not safe for concurrent use — the pipeline that
// drives it is single-threaded end to end.
type Store struct {
	records    []*Record
	byHash     map[ObjectID]*Record
	byPackOff  map[int64]*Record
}

// NewStore creates an empty object store.
func NewStore() *Store {
	return &Store{
		byHash:    make(map[ObjectID]*Record),
		byPackOff: make(map[int64]*Record),
	}
}

// Insert records a freshly decoded pack entry. Re-inserting a hash that is
// already present adds no second record: the new pack offset is indexed to
// the existing one (the pack may legitimately reference an object the
// client already has thin-pack style); a duplicate pack offset is always a
// corrupt pack.
func (s *Store) Insert(r *Record) error {
	if _, exists := s.byPackOff[r.PackOffset]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicatePackOffset, r.PackOffset)
	}
	if !r.IsDelta() {
		if existing, ok := s.byHash[r.Hash]; ok {
			s.byPackOff[r.PackOffset] = existing
			return nil
		}
	}
	s.records = append(s.records, r)
	s.byPackOff[r.PackOffset] = r
	if !r.IsDelta() {
		s.byHash[r.Hash] = r
	}
	return nil
}

// ByHash looks up a concrete object by content hash.
func (s *Store) ByHash(h ObjectID) (*Record, bool) {
	r, ok := s.byHash[h]
	return r, ok
}

// ByPackOffset looks up any record (concrete or still a delta) by its
// entry's starting offset in the pack.
func (s *Store) ByPackOffset(off int64) (*Record, bool) {
	r, ok := s.byPackOff[off]
	return r, ok
}

// InInsertionOrder returns every record in the order it was inserted,
// which is also pack order — the ordering the delta resolver's
// topological pass uses to break ties.
func (s *Store) InInsertionOrder() []*Record {
	return s.records
}

// Promote replaces a transient delta record's content in place with its
// resolved bytes and type, then indexes it by the newly computed hash.
// The pack-offset index is left untouched: a later ofs-delta may still
// point at this same slot.
func (s *Store) Promote(r *Record, resolvedType ObjectType, payload []byte) {
	r.Type = resolvedType
	r.Payload = payload
	r.Hash = ComputeHash(resolvedType, payload)
	s.byHash[r.Hash] = r
}

// InjectBlob registers a blob recovered from the local worktree (thin-pack
// base recovery) so the delta resolver can find it by hash as if it had
// arrived in the pack. Its pack offset is synthetic and negative so it can
// never collide with a real entry.
func (s *Store) InjectBlob(hash ObjectID, payload []byte) *Record {
	if r, ok := s.byHash[hash]; ok {
		return r
	}
	r := &Record{
		Type:       TypeBlob,
		Hash:       hash,
		Payload:    payload,
		PackOffset: -int64(len(s.records)) - 1,
	}
	s.records = append(s.records, r)
	s.byPackOff[r.PackOffset] = r
	s.byHash[hash] = r
	return r
}

// Len returns the number of records held, concrete or not.
func (s *Store) Len() int {
	return len(s.records)
}
