package pack

import (
	"fmt"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

// BaseLocator recovers a delta base that isn't present in the pack itself.
// Thin packs (used by an incremental pull) reference bases the client
// already has on disk; the session wires a local-worktree scan in here as
// a last resort before giving up with ErrMissingDeltaBase.
type BaseLocator func(hash objects.ObjectID) (*objects.Record, bool)

// Resolve walks every record in store and materializes ofs_delta/ref_delta
// entries into concrete objects, in topological order (bases before the
// deltas that reference them). It repeats full passes over the unresolved
// set, consulting locator for any ref-delta base not found in store, until
// a pass makes no progress, at which point either a base is genuinely
// missing or the chain contains a cycle.
func Resolve(store *objects.Store, locator BaseLocator) error {
	records := store.InInsertionOrder()

	pending := make([]*objects.Record, 0, len(records))
	for _, r := range records {
		if r.IsDelta() {
			pending = append(pending, r)
		}
	}

	for len(pending) > 0 {
		progressed := false
		next := pending[:0]

		for _, r := range pending {
			base, ok := resolveBase(store, r)
			if !ok && locator != nil {
				if r.Type == objects.TypeRefDelta {
					base, ok = locator(r.BaseHash)
				}
			}
			if !ok {
				next = append(next, r)
				continue
			}
			if base.IsDelta() {
				// Base itself hasn't resolved yet this pass; try again
				// next round.
				next = append(next, r)
				continue
			}

			resolved, err := applyDelta(base.Payload, r.Payload)
			if err != nil {
				return err
			}
			store.Promote(r, base.Type, resolved)
			progressed = true
		}

		if !progressed {
			return classifyStall(store, next, locator)
		}
		pending = next
	}

	return nil
}

// classifyStall runs once a pass makes no progress: every remaining entry's
// base either genuinely doesn't exist anywhere in the store (missing base)
// or exists but is itself stuck unresolved (a cycle among deltas).
func classifyStall(store *objects.Store, stuck []*objects.Record, locator BaseLocator) error {
	for _, r := range stuck {
		if _, ok := resolveBaseAnywhere(store, r, locator); !ok {
			return fmt.Errorf("%w: %d entries unresolved", ErrMissingDeltaBase, len(stuck))
		}
	}
	return fmt.Errorf("%w", ErrDeltaCycle)
}

func resolveBaseAnywhere(store *objects.Store, r *objects.Record, locator BaseLocator) (*objects.Record, bool) {
	if base, ok := resolveBase(store, r); ok {
		return base, true
	}
	if locator != nil && r.Type == objects.TypeRefDelta {
		return locator(r.BaseHash)
	}
	return nil, false
}

func resolveBase(store *objects.Store, r *objects.Record) (*objects.Record, bool) {
	switch r.Type {
	case objects.TypeOfsDelta:
		return store.ByPackOffset(r.PackOffset - r.BaseOffset)
	case objects.TypeRefDelta:
		return store.ByHash(r.BaseHash)
	default:
		return nil, false
	}
}

// applyDelta replays a git delta instruction stream against base and
// returns the reconstructed target bytes.
func applyDelta(base, delta []byte) ([]byte, error) {
	sourceSize, n, err := readDeltaVarint(delta)
	if err != nil {
		return nil, fmt.Errorf("delta source size: %w", err)
	}
	delta = delta[n:]

	if uint64(len(base)) != sourceSize {
		return nil, fmt.Errorf("%w: source_size=%d base=%d", ErrDeltaBaseMismatch, sourceSize, len(base))
	}

	targetSize, n, err := readDeltaVarint(delta)
	if err != nil {
		return nil, fmt.Errorf("delta target size: %w", err)
	}
	delta = delta[n:]

	result := make([]byte, 0, targetSize)

	for len(delta) > 0 {
		cmd := delta[0]
		delta = delta[1:]

		if cmd == 0 {
			return nil, fmt.Errorf("%w: zero opcode", ErrInvalidDeltaInstr)
		}

		if cmd&0x80 != 0 {
			offset, on, err := readPackedInt(delta, cmd&0x0f)
			if err != nil {
				return nil, err
			}
			delta = delta[on:]

			length, ln, err := readPackedInt(delta, (cmd>>4)&0x07)
			if err != nil {
				return nil, err
			}
			delta = delta[ln:]

			if length == 0 {
				length = 0x10000
			}

			end := uint64(offset) + uint64(length)
			if end > uint64(len(base)) {
				return nil, fmt.Errorf("%w: offset=%d length=%d base=%d", ErrDeltaOutOfRange, offset, length, len(base))
			}
			result = append(result, base[offset:end]...)
		} else {
			count := int(cmd & 0x7f)
			if count == 0 {
				return nil, fmt.Errorf("%w: zero-length insert", ErrInvalidDeltaInstr)
			}
			if count > len(delta) {
				return nil, fmt.Errorf("%w: insert", ErrTruncated)
			}
			result = append(result, delta[:count]...)
			delta = delta[count:]
		}
	}

	if uint64(len(result)) != targetSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDeltaSizeMismatch, len(result), targetSize)
	}

	return result, nil
}
