package workdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fenilsonani/vcs/internal/core/objects"
)

// ErrDotGitPresent is returned by Scan when a .git directory is found
// anywhere under the target tree. This tool never creates one itself and
// refuses to share a worktree with a client that does.
var ErrDotGitPresent = errors.New("workdir: .git directory present in target tree")

// Scanned is one file's on-disk identity as of the scan.
type Scanned struct {
	Mode objects.FileMode
	Hash objects.ObjectID // blob hash; zero for symlinks (contents hashing deferred)
}

// Scan walks root and returns every regular file and symlink's identity,
// keyed by slash-separated path relative to root. Encountering a .git
// directory anywhere in the tree aborts with ErrDotGitPresent.
func Scan(root string) (map[string]Scanned, error) {
	result := make(map[string]Scanned)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return ErrDotGitPresent
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if info.Mode()&os.ModeSymlink != 0 {
			result[rel] = Scanned{Mode: objects.ModeSymlink}
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		mode := objects.ModeBlob
		if info.Mode()&0111 != 0 {
			mode = objects.ModeExec
		}

		result[rel] = Scanned{
			Mode: mode,
			Hash: objects.ComputeHash(objects.TypeBlob, data),
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrDotGitPresent) {
			return nil, ErrDotGitPresent
		}
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	return result, nil
}

// ReadBlob recovers a blob's current content from disk at root/relPath,
// for thin-pack base recovery: the pack references a base the client
// already has locally rather than re-sending it.
func ReadBlob(root, relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
}
