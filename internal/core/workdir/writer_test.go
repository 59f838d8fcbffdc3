package workdir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

func insertConcrete(store *objects.Store, typ objects.ObjectType, payload []byte) objects.ObjectID {
	hash := objects.ComputeHash(typ, payload)
	store.Insert(&objects.Record{Type: typ, Hash: hash, Payload: payload, PackOffset: int64(store.Len())})
	return hash
}

func buildFixtureCommit(t *testing.T) (*objects.Store, objects.ObjectID) {
	t.Helper()
	store := objects.NewStore()

	readmeHash := insertConcrete(store, objects.TypeBlob, []byte("# hello\n"))
	scriptHash := insertConcrete(store, objects.TypeBlob, []byte("#!/bin/sh\necho hi\n"))

	subTree := objects.NewTree()
	subTree.AddEntry(objects.ModeExec, "run.sh", scriptHash)
	subTreeData, _ := subTree.Serialize()
	subTreeHash := insertConcrete(store, objects.TypeTree, subTreeData)

	rootTree := objects.NewTree()
	rootTree.AddEntry(objects.ModeBlob, "README.md", readmeHash)
	rootTree.AddEntry(objects.ModeTree, "bin", subTreeHash)
	rootTreeData, _ := rootTree.Serialize()
	rootTreeHash := insertConcrete(store, objects.TypeTree, rootTreeData)

	sig := objects.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(0, 0).UTC()}
	commit := objects.NewCommit(rootTreeHash, nil, sig, sig, "initial\n")
	commitData, _ := commit.Serialize()
	commitHash := objects.ComputeHash(objects.TypeCommit, commitData)
	store.Insert(&objects.Record{Type: objects.TypeCommit, Hash: commitHash, Payload: commitData, PackOffset: int64(store.Len())})

	return store, commitHash
}

func TestWriterMaterializesTree(t *testing.T) {
	store, tip := buildFixtureCommit(t)
	dir := t.TempDir()

	w := NewWriter(store, dir, nil)
	manifest, err := w.Write(tip)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil || string(readme) != "# hello\n" {
		t.Fatalf("README.md content = %q, err = %v", readme, err)
	}

	info, err := os.Stat(filepath.Join(dir, "bin", "run.sh"))
	if err != nil {
		t.Fatalf("stat run.sh: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("run.sh should be executable, mode = %v", info.Mode())
	}

	if manifest.Tip != tip {
		t.Errorf("manifest.Tip = %v, want %v", manifest.Tip, tip)
	}
	if len(manifest.Entries) != 2 {
		t.Errorf("expected 2 manifest entries, got %d", len(manifest.Entries))
	}
}

func TestWriterSkipsUnchangedFilesAgainstPriorManifest(t *testing.T) {
	store, tip := buildFixtureCommit(t)
	dir := t.TempDir()

	first, err := NewWriter(store, dir, nil).Write(tip)
	if err != nil {
		t.Fatalf("first Write() error = %v", err)
	}

	// Mutate the on-disk file so we can tell whether the second write
	// actually touches it again.
	readmePath := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readmePath, []byte("locally edited"), 0o644); err != nil {
		t.Fatalf("mutate file: %v", err)
	}

	second, err := NewWriter(store, dir, first).Write(tip)
	if err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	if second.Tip != tip {
		t.Errorf("second.Tip = %v, want %v", second.Tip, tip)
	}

	// The writer trusts the prior manifest's recorded hash for an
	// unchanged tree entry and never rewrites the file.
	content, err := os.ReadFile(readmePath)
	if err != nil {
		t.Fatalf("read readme: %v", err)
	}
	if string(content) != "locally edited" {
		t.Errorf("README.md should have been left untouched, got %q", content)
	}
}

func TestWriterRejectsUnknownCommit(t *testing.T) {
	store := objects.NewStore()
	bogus, _ := objects.NewObjectID("ffffffffffffffffffffffffffffffffffffffff")

	_, err := NewWriter(store, t.TempDir(), nil).Write(bogus)
	if err == nil {
		t.Fatal("expected error for commit not in store")
	}
}
