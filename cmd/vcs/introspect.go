package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/vcs/internal/core/objects"
	"github.com/fenilsonani/vcs/internal/pack"
)

// newCatCommitCommand and newLsTreeCommand read a pack kept with
// --keep-pack (or built once and reused via --use-pack) without touching
// the network, for inspecting exactly what a fetch brought down.
func newCatCommitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-commit <pack-file> <hash>",
		Short: "Print a commit object decoded from a pack file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadPack(args[0])
			if err != nil {
				return err
			}
			id, err := objects.NewObjectID(args[1])
			if err != nil {
				return fmt.Errorf("invalid hash %q: %w", args[1], err)
			}
			rec, ok := store.ByHash(id)
			if !ok || rec.Type != objects.TypeCommit {
				return fmt.Errorf("%s: not a commit in %s", args[1], args[0])
			}
			commit, err := objects.ParseCommit(id, rec.Payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tree %s\n", commit.Tree())
			for _, p := range commit.Parents() {
				fmt.Fprintf(cmd.OutOrStdout(), "parent %s\n", p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "author %s\n", commit.Author())
			fmt.Fprintf(cmd.OutOrStdout(), "committer %s\n\n", commit.Committer())
			fmt.Fprint(cmd.OutOrStdout(), commit.Message())
			return nil
		},
	}
	return cmd
}

func newLsTreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree <pack-file> <hash>",
		Short: "List a tree object's entries decoded from a pack file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadPack(args[0])
			if err != nil {
				return err
			}
			id, err := objects.NewObjectID(args[1])
			if err != nil {
				return fmt.Errorf("invalid hash %q: %w", args[1], err)
			}
			rec, ok := store.ByHash(id)
			if !ok || rec.Type != objects.TypeTree {
				return fmt.Errorf("%s: not a tree in %s", args[1], args[0])
			}
			tree, err := objects.ParseTree(id, rec.Payload)
			if err != nil {
				return err
			}
			for _, e := range tree.Entries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%06o %s\t%s\n", e.Mode, e.ID, e.Name)
			}
			return nil
		},
	}
	return cmd
}

func loadPack(path string) (*objects.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	store := objects.NewStore()
	if err := pack.Read(data, store); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := pack.Resolve(store, nil); err != nil {
		return nil, fmt.Errorf("resolve deltas in %s: %w", path, err)
	}
	return store, nil
}
