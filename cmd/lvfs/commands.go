package main

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lowes/lvfs/pkg/vfs"
)

func newLsCmd(a *app) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "ls <url>",
		Short: "List the children of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kids, err := a.fs.List(cmd.Context(), vfs.To(args[0]), recursive)
			if err != nil {
				return err
			}
			vfs.Sort(kids)
			for _, kid := range kids {
				fmt.Fprintln(cmd.OutOrStdout(), kid)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list the whole subtree")
	return cmd
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <url>",
		Short: "Print a file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.fs.ReadAll(cmd.Context(), vfs.To(args[0]))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newWriteCmd(a *app) *cobra.Command {
	var noOverwrite bool
	cmd := &cobra.Command{
		Use:   "write <url>",
		Short: "Write stdin to a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.fs.WriteAll(cmd.Context(), vfs.To(args[0]), data, !noOverwrite)
		},
	}
	cmd.Flags().BoolVar(&noOverwrite, "no-overwrite", false, "fail if the target already exists")
	return cmd
}

func newCpCmd(a *app) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "cp <src-url> <dst-url>",
		Short: "Copy between any two backends",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fs.Copy(cmd.Context(), vfs.To(args[0]), vfs.To(args[1]), recursive)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "copy directories recursively")
	return cmd
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src-url> <dst-url>",
		Short: "Move between any two backends (copy, then delete)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fs.Move(cmd.Context(), vfs.To(args[0]), vfs.To(args[1]))
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	var recursive, force bool
	cmd := &cobra.Command{
		Use:   "rm <url>",
		Short: "Delete a file or subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fs.Remove(cmd.Context(), vfs.To(args[0]), recursive, force)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete directories recursively")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore missing targets")
	return cmd
}

func newMkdirCmd(a *app) *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "mkdir <url>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fs.MakeDirectory(cmd.Context(), vfs.To(args[0]), parents)
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "tolerate an existing directory")
	return cmd
}

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <url>",
		Short: "Print file metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.fs.Stat(cmd.Context(), vfs.To(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:   %s\n", st.URL)
			fmt.Fprintf(out, "kind:  %s\n", st.Kind)
			fmt.Fprintf(out, "size:  %d\n", st.Size)
			fmt.Fprintf(out, "mode:  %04o\n", st.Mode)
			fmt.Fprintf(out, "mtime: %s\n", st.MTime)
			return nil
		},
	}
}

func newDuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "du <url>",
		Short: "Sum the size of a subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := a.fs.DiskUsage(cmd.Context(), vfs.To(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), size)
			return nil
		},
	}
}

func newWalkCmd(a *app) *cobra.Command {
	var bottomUp bool
	cmd := &cobra.Command{
		Use:   "walk <url>",
		Short: "Walk a subtree directory by directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.fs.Walk(cmd.Context(), vfs.To(args[0]), !bottomUp)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range groups {
				fmt.Fprintf(out, "%s\n", g.Dir)
				for _, d := range g.Dirs {
					fmt.Fprintf(out, "  d %s\n", d.Basename())
				}
				for _, f := range g.Files {
					fmt.Fprintf(out, "  f %s\n", f.Basename())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&bottomUp, "bottom-up", false, "visit leaves before their parents")
	return cmd
}

func newChmodCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chmod <octal-mode> <url>",
		Short: "Change permission bits where the backend supports them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := strconv.ParseUint(args[0], 8, 32)
			if err != nil {
				return fmt.Errorf("bad mode %q: %w", args[0], err)
			}
			return a.fs.Chmod(cmd.Context(), vfs.To(args[1]), fs.FileMode(mode))
		},
	}
}

