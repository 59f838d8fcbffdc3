// Package session choreographs one invocation of clone, pull, or verify:
// discovery, fetch, pack decode, delta resolution, worktree materialization,
// and the manifest flip, run strictly sequentially with no concurrent I/O.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fenilsonani/vcs/internal/core/objects"
	"github.com/fenilsonani/vcs/internal/core/workdir"
	"github.com/fenilsonani/vcs/internal/pack"
	"github.com/fenilsonani/vcs/internal/transport"
)

const packCacheFile = "fetch.pack"

// Clone performs a full shallow fetch with no prior manifest: discover the
// branch tip, request it with depth 1, decode the pack, and materialize
// the whole tree.
func Clone(ctx context.Context, opts Options) error {
	opts.logf(1, "cloning %s (branch %s) into %s", opts.RemoteURL(), opts.Branch, opts.TargetDirectory)

	if _, err := workdir.Scan(opts.TargetDirectory); err != nil {
		return classifyScan(err)
	}

	tip, err := resolveTip(ctx, opts)
	if err != nil {
		return err
	}

	store := objects.NewStore()
	if err := fetchAndDecode(ctx, opts, store, transport.FetchRequest{
		Want:    tip,
		Have:    opts.Have,
		Deepen:  1,
		Shallow: []string{tip},
	}, nil); err != nil {
		return err
	}

	tipID, err := objects.NewObjectID(tip)
	if err != nil {
		return wrap(KindProtocolFraming, fmt.Errorf("tip %q: %w", tip, err))
	}

	manifest, err := workdir.NewWriter(store, opts.TargetDirectory, nil).Write(tipID)
	if err != nil {
		return classifyWrite(err)
	}

	if err := manifest.Save(opts.WorkDirectory); err != nil {
		return wrap(KindIO, err)
	}

	opts.logf(1, "cloned %s at %s", opts.Branch, tip)
	return nil
}

// Pull brings an existing worktree up to date. A missing manifest (or
// ForceClone) falls back to Clone's full-fetch path. An unchanged tip is a
// pure no-op: no network round trip for the pack, no writes.
func Pull(ctx context.Context, opts Options) error {
	if opts.ForceClone {
		return Clone(ctx, opts)
	}

	prior, err := workdir.Load(opts.WorkDirectory)
	if err != nil {
		return wrap(KindIO, err)
	}
	if prior == nil {
		opts.logf(1, "no prior manifest, falling back to clone")
		return Clone(ctx, opts)
	}

	scanned, err := workdir.Scan(opts.TargetDirectory)
	if err != nil {
		return classifyScan(err)
	}
	reportDivergence(opts, prior, scanned)

	tip, err := resolveTip(ctx, opts)
	if err != nil {
		return err
	}

	if tip == prior.Tip.String() {
		opts.logf(1, "already up to date at %s", tip)
		return nil
	}

	store := objects.NewStore()
	locator := localBaseLocator(store, opts.TargetDirectory, scanned)

	have := opts.Have
	if have == "" {
		have = prior.Tip.String()
	}

	if err := fetchAndDecode(ctx, opts, store, transport.FetchRequest{
		Want:     tip,
		Have:     have,
		ThinPack: true,
		Deepen:   1,
		Shallow:  []string{have, tip},
	}, locator); err != nil {
		return err
	}

	tipID, err := objects.NewObjectID(tip)
	if err != nil {
		return wrap(KindProtocolFraming, fmt.Errorf("tip %q: %w", tip, err))
	}

	manifest, err := workdir.NewWriter(store, opts.TargetDirectory, prior).Write(tipID)
	if err != nil {
		return classifyWrite(err)
	}

	if err := manifest.Save(opts.WorkDirectory); err != nil {
		return wrap(KindIO, err)
	}

	opts.logf(1, "updated %s -> %s", prior.Tip.Short(), tip[:7])
	return nil
}

// Verify performs no network activity: it rescans the worktree and checks
// every manifest entry still matches what's on disk, failing hard on any
// divergence.
func Verify(ctx context.Context, opts Options) error {
	scanned, err := workdir.Scan(opts.TargetDirectory)
	if err != nil {
		return classifyScan(err)
	}

	manifest, err := workdir.Load(opts.WorkDirectory)
	if err != nil {
		return wrap(KindIO, err)
	}
	if manifest == nil {
		return wrap(KindModifiedLocalFile, fmt.Errorf("no manifest in %s: nothing to verify against", opts.WorkDirectory))
	}

	var bad []string
	for _, e := range manifest.Entries {
		got, ok := scanned[e.Path]
		switch {
		case !ok:
			bad = append(bad, fmt.Sprintf("%s: missing", e.Path))
		case e.Mode != objects.ModeSymlink && got.Hash != e.Hash:
			bad = append(bad, fmt.Sprintf("%s: modified", e.Path))
		}
	}

	if len(bad) > 0 {
		return wrap(KindModifiedLocalFile, fmt.Errorf("%d file(s) diverged from manifest: %v", len(bad), bad))
	}

	opts.logf(1, "verified %d files against tip %s", len(manifest.Entries), manifest.Tip)
	return nil
}

func resolveTip(ctx context.Context, opts Options) (string, error) {
	if opts.Want != "" {
		return opts.Want, nil
	}

	t := transport.NewHTTPTransport(opts.RemoteURL(), opts.Timeout)
	if _, err := t.Discover(ctx); err != nil {
		return "", classifyTransport(err)
	}
	tip, err := t.LsRefs(ctx, opts.Branch)
	if err != nil {
		return "", classifyTransport(err)
	}
	return tip, nil
}

func fetchAndDecode(ctx context.Context, opts Options, store *objects.Store, req transport.FetchRequest, locator pack.BaseLocator) error {
	var packBytes []byte

	if opts.UsePack != "" {
		data, err := os.ReadFile(opts.UsePack)
		if err != nil {
			return wrap(KindIO, fmt.Errorf("read cached pack: %w", err))
		}
		packBytes = data
	} else {
		t := transport.NewHTTPTransport(opts.RemoteURL(), opts.Timeout)
		result, err := t.Fetch(ctx, req)
		if err != nil {
			return classifyTransport(err)
		}
		packBytes = result.Pack
	}

	if opts.KeepPack {
		cachePath := filepath.Join(opts.WorkDirectory, packCacheFile)
		if err := os.MkdirAll(opts.WorkDirectory, 0o755); err != nil {
			return wrap(KindIO, err)
		}
		if err := os.WriteFile(cachePath, packBytes, 0o644); err != nil {
			return wrap(KindIO, fmt.Errorf("persist pack cache: %w", err))
		}
	}

	if err := pack.Read(packBytes, store); err != nil {
		return classifyPack(err)
	}
	if err := pack.Resolve(store, locator); err != nil {
		return classifyDelta(err)
	}

	return nil
}

// localBaseLocator satisfies thin-pack ref-delta bases against the local
// worktree: a blob the scan already hashed is reconstructed from disk
// instead of requiring the remote to resend it, then indexed into store via
// InjectBlob so it's addressable by hash exactly like a pack-native object.
func localBaseLocator(store *objects.Store, targetDir string, scanned map[string]workdir.Scanned) pack.BaseLocator {
	byHash := make(map[objects.ObjectID]string, len(scanned))
	for path, s := range scanned {
		if s.Mode != objects.ModeSymlink {
			byHash[s.Hash] = path
		}
	}

	return func(hash objects.ObjectID) (*objects.Record, bool) {
		path, ok := byHash[hash]
		if !ok {
			return nil, false
		}
		data, err := workdir.ReadBlob(targetDir, path)
		if err != nil {
			return nil, false
		}
		return store.InjectBlob(hash, data), true
	}
}

func reportDivergence(opts Options, prior *workdir.Manifest, scanned map[string]workdir.Scanned) {
	if opts.Verbosity < 1 {
		return
	}
	for _, e := range prior.Entries {
		got, ok := scanned[e.Path]
		if !ok {
			opts.logf(1, "warning: %s missing locally", e.Path)
		} else if e.Mode != objects.ModeSymlink && got.Hash != e.Hash {
			opts.logf(1, "warning: %s modified locally", e.Path)
		}
	}
}

func classifyScan(err error) error {
	if err == workdir.ErrDotGitPresent {
		return wrap(KindDotGitPresent, err)
	}
	return wrap(KindIO, err)
}

func classifyWrite(err error) error {
	if isErr(err, workdir.ErrMalformedCommit) || isErr(err, workdir.ErrMalformedTree) {
		return wrap(KindMalformedObject, err)
	}
	return wrap(KindIO, err)
}

func classifyTransport(err error) error {
	switch {
	case isErr(err, transport.ErrBranchNotFound):
		return wrap(KindBranchNotFound, err)
	case isErr(err, transport.ErrProtocolFraming):
		return wrap(KindProtocolFraming, err)
	default:
		return wrap(KindNetwork, err)
	}
}

func classifyPack(err error) error {
	return wrap(KindPackCorrupt, err)
}

func classifyDelta(err error) error {
	return wrap(KindDeltaCorrupt, err)
}

func isErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
