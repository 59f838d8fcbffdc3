package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

// MalformedCommit and MalformedTree mirror the distilled error kinds: the
// commit's "tree" header or a tree's entry stream didn't parse.
var (
	ErrMalformedCommit = fmt.Errorf("workdir: malformed commit object")
	ErrMalformedTree   = fmt.Errorf("workdir: malformed tree object")
)

// creationMode is used for the initial file create; the final mode is
// applied via a follow-up chmod. Creating directly at the target mode
// with O_CREAT would, for a brief window between create and content
// write, leave the file at whatever mode umask produced — using a
// conservative mode first avoids handing out a false sense of exclusivity
// or a window where a world-readable executable looks written before it
// is.
const creationMode = 0o600

// Writer materializes a commit's tree onto disk and produces the
// manifest describing what it wrote.
type Writer struct {
	store  *objects.Store
	target string
	prior  *Manifest
}

// NewWriter builds a worktree writer targeting dir. prior may be nil (a
// full clone with no file to compare against).
func NewWriter(store *objects.Store, dir string, prior *Manifest) *Writer {
	return &Writer{store: store, target: dir, prior: prior}
}

// Write resolves tipCommit's root tree and recursively emits its
// contents under the target directory, skipping any file whose path and
// hash already match the prior manifest. It returns the new manifest.
func (w *Writer) Write(tipCommit objects.ObjectID) (*Manifest, error) {
	commitRec, ok := w.store.ByHash(tipCommit)
	if !ok || commitRec.Type != objects.TypeCommit {
		return nil, fmt.Errorf("%w: tip commit %s not in pack", ErrMalformedCommit, tipCommit)
	}
	commit, err := objects.ParseCommit(tipCommit, commitRec.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommit, err)
	}

	if err := os.MkdirAll(w.target, 0o755); err != nil {
		return nil, fmt.Errorf("create target directory: %w", err)
	}

	var entries []Entry
	if err := w.walkTree(commit.Tree(), "", &entries); err != nil {
		return nil, err
	}

	return NewManifest(tipCommit, entries), nil
}

func (w *Writer) walkTree(treeHash objects.ObjectID, prefix string, out *[]Entry) error {
	rec, ok := w.store.ByHash(treeHash)
	if !ok || rec.Type != objects.TypeTree {
		return fmt.Errorf("%w: tree %s not in pack", ErrMalformedTree, treeHash)
	}
	tree, err := objects.ParseTree(treeHash, rec.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}

	for _, entry := range tree.Entries() {
		relPath := entry.Name
		if prefix != "" {
			relPath = prefix + "/" + entry.Name
		}
		fullPath := filepath.Join(w.target, filepath.FromSlash(relPath))

		switch entry.Mode {
		case objects.ModeTree:
			if err := os.MkdirAll(fullPath, 0o755); err != nil {
				return fmt.Errorf("mkdir %s: %w", relPath, err)
			}
			if err := w.walkTree(entry.ID, relPath, out); err != nil {
				return err
			}

		case objects.ModeCommit:
			// gitlink: submodules are out of scope, skip entirely.
			continue

		case objects.ModeSymlink:
			blobRec, ok := w.store.ByHash(entry.ID)
			if !ok || blobRec.Type != objects.TypeBlob {
				return fmt.Errorf("%w: symlink target blob %s missing", ErrMalformedTree, entry.ID)
			}
			if err := writeSymlink(fullPath, string(blobRec.Payload)); err != nil {
				return fmt.Errorf("symlink %s: %w", relPath, err)
			}
			*out = append(*out, Entry{Mode: entry.Mode, Hash: entry.ID, Path: relPath})

		default: // ModeBlob, ModeExec
			if prior, ok := w.prior.Lookup(relPath); ok && prior.Hash == entry.ID {
				*out = append(*out, Entry{Mode: entry.Mode, Hash: entry.ID, Path: relPath})
				continue
			}
			blobRec, ok := w.store.ByHash(entry.ID)
			if !ok || blobRec.Type != objects.TypeBlob {
				return fmt.Errorf("%w: blob %s missing", ErrMalformedTree, entry.ID)
			}
			if err := writeFile(fullPath, blobRec.Payload, entry.Mode == objects.ModeExec); err != nil {
				return fmt.Errorf("write %s: %w", relPath, err)
			}
			*out = append(*out, Entry{Mode: entry.Mode, Hash: entry.ID, Path: relPath})
		}
	}

	return nil
}

func writeFile(path string, data []byte, exec bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, creationMode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if exec {
		mode = 0o755
	}
	return os.Chmod(path, mode)
}

func writeSymlink(path, target string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	os.Remove(path)
	return os.Symlink(target, path)
}
