package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/vcs/internal/core/session"
	"github.com/fenilsonani/vcs/internal/transport"
	"github.com/fenilsonani/vcs/pkg/vcs"
)

func newCloneCommand() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "clone <url> <dir>",
		Short: "Clone a single branch at depth 1 into dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(args[0], args[1], flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := vcs.Clone(ctx, opts); err != nil {
				return exitError(err)
			}
			return nil
		},
	}

	bindSyncFlags(cmd, &flags)
	return cmd
}

func newPullCommand() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "pull <url> <dir>",
		Short: "Bring an existing worktree up to date with the branch tip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(args[0], args[1], flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := vcs.Pull(ctx, opts); err != nil {
				return exitError(err)
			}
			return nil
		},
	}

	bindSyncFlags(cmd, &flags)
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "verify <url> <dir>",
		Short: "Check a worktree against its last-known manifest without touching the remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(args[0], args[1], flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := vcs.Verify(ctx, opts); err != nil {
				return exitError(err)
			}
			return nil
		},
	}

	bindSyncFlags(cmd, &flags)
	return cmd
}

type syncFlags struct {
	branch     string
	workDir    string
	insecure   bool
	keepPack   bool
	usePack    string
	forceClone bool
	verbosity  int
	timeout    time.Duration
	have       string
	want       string
}

func bindSyncFlags(cmd *cobra.Command, f *syncFlags) {
	cmd.Flags().StringVar(&f.branch, "branch", "main", "branch to track")
	cmd.Flags().StringVar(&f.workDir, "work-dir", "", "directory to hold the manifest (defaults to a sibling of the target directory)")
	cmd.Flags().BoolVar(&f.insecure, "insecure-http", false, "speak plain HTTP instead of HTTPS to the remote")
	cmd.Flags().BoolVar(&f.keepPack, "keep-pack", false, "persist the fetched pack alongside the manifest")
	cmd.Flags().StringVar(&f.usePack, "use-pack", "", "decode this pack file instead of fetching one")
	cmd.Flags().BoolVar(&f.forceClone, "force-clone", false, "ignore any existing manifest and clone fresh")
	cmd.Flags().CountVarP(&f.verbosity, "verbose", "v", "increase log verbosity")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "HTTP request timeout")
	cmd.Flags().StringVar(&f.want, "want", "", "fetch this commit hash instead of resolving the branch tip via ls-refs")
	cmd.Flags().StringVar(&f.have, "have", "", "override the commit hash sent as the fetch negotiation base")
}

func buildOptions(url, dir string, f syncFlags) (session.Options, error) {
	base, err := transport.ParseGitURL(url, f.insecure)
	if err != nil {
		return session.Options{}, fmt.Errorf("%s: %w", url, err)
	}
	host, path, err := splitRemoteURL(base)
	if err != nil {
		return session.Options{}, err
	}

	workDir := f.workDir
	if workDir == "" {
		workDir = defaultWorkDir(dir)
	}

	return session.Options{
		Host:            host,
		RepositoryPath:  path,
		Branch:          f.branch,
		TargetDirectory: dir,
		WorkDirectory:   workDir,
		Have:            f.have,
		Want:            f.want,
		ForceClone:      f.forceClone,
		KeepPack:        f.keepPack,
		UsePack:         f.usePack,
		Verbosity:       f.verbosity,
		InsecureHTTP:    f.insecure,
		Timeout:         f.timeout,
		Logger:          newCLILogger(),
	}, nil
}

func exitError(err error) error {
	return &exitCodeError{err: err, code: session.ExitCode(err)}
}
