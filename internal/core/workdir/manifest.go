package workdir

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

// ManifestFile is the conventional name for the persisted manifest,
// stored beside the worktree rather than inside it (the worktree may
// contain nothing this tool recognizes as its own besides this file's
// directory).
const ManifestFile = "manifest"

// Entry is one tracked file's last-known identity.
type Entry struct {
	Mode objects.FileMode
	Hash objects.ObjectID
	Path string
}

// Manifest is the tip commit this worktree was last synced to, plus the
// mode/hash/path of every file that tip's tree produced. Its absence
// means the next run must clone from scratch.
type Manifest struct {
	Tip     objects.ObjectID
	Entries []Entry

	byPath map[string]Entry
}

// NewManifest builds a manifest from a tip and a set of entries, sorted by
// path for deterministic serialization.
func NewManifest(tip objects.ObjectID, entries []Entry) *Manifest {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	m := &Manifest{Tip: tip, Entries: entries}
	m.index()
	return m
}

func (m *Manifest) index() {
	m.byPath = make(map[string]Entry, len(m.Entries))
	for _, e := range m.Entries {
		m.byPath[e.Path] = e
	}
}

// Lookup returns the recorded entry for path, if any. A nil Manifest
// (no prior state) never matches, so the writer's full-clone path can
// call Lookup unconditionally.
func (m *Manifest) Lookup(path string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	e, ok := m.byPath[path]
	return e, ok
}

// Load reads a manifest from workDir/ManifestFile. A missing file is not
// an error: it returns (nil, nil), the signal for "no prior state, do a
// full clone."
func Load(workDir string) (*Manifest, error) {
	path := filepath.Join(workDir, ManifestFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("manifest %s: empty file", path)
	}
	tip, err := objects.NewObjectID(strings.TrimSpace(sc.Text()))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: invalid tip hash: %w", path, err)
	}

	var entries []Entry
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("manifest %s: malformed row %q", path, line)
		}
		modeVal, err := strconv.ParseUint(fields[0], 8, 32)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: bad mode %q: %w", path, fields[0], err)
		}
		hash, err := objects.NewObjectID(fields[1])
		if err != nil {
			return nil, fmt.Errorf("manifest %s: bad hash %q: %w", path, fields[1], err)
		}
		entries = append(entries, Entry{
			Mode: objects.FileMode(modeVal),
			Hash: hash,
			Path: fields[2],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	m := &Manifest{Tip: tip, Entries: entries}
	m.index()
	return m, nil
}

// Save writes the manifest to workDir/ManifestFile atomically (temp file
// plus rename), mirroring the teacher's object-storage write idiom.
func (m *Manifest) Save(workDir string) error {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	path := filepath.Join(workDir, ManifestFile)

	tmp, err := os.CreateTemp(workDir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	fmt.Fprintf(w, "%s\n", m.Tip)
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Path < m.Entries[j].Path })
	for _, e := range m.Entries {
		fmt.Fprintf(w, "%o\t%s\t%s\n", e.Mode, e.Hash, e.Path)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename manifest into place: %w", err)
	}
	return nil
}
