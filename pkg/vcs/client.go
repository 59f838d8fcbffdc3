// Package vcs is the public facade over the session orchestrator: three
// verbs, Clone, Pull, and Verify, each taking the same Options shape.
package vcs

import (
	"context"

	"github.com/fenilsonani/vcs/internal/core/session"
)

// Options re-exports session.Options so callers outside internal/ never
// need to import the internal package directly.
type Options = session.Options

// Clone performs a fresh shallow, single-branch fetch into opts.TargetDirectory.
func Clone(ctx context.Context, opts Options) error {
	return session.Clone(ctx, opts)
}

// Pull brings an already-cloned worktree up to date, falling back to a
// full Clone when no prior manifest exists.
func Pull(ctx context.Context, opts Options) error {
	return session.Pull(ctx, opts)
}

// Verify checks the worktree against its last-known manifest without
// contacting the remote.
func Verify(ctx context.Context, opts Options) error {
	return session.Verify(ctx, opts)
}

// ExitCode maps an error returned by Clone, Pull, or Verify to the
// process exit code the CLI front-end surfaces.
func ExitCode(err error) int {
	return session.ExitCode(err)
}
