// Package local implements the backend contract for the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/lowes/lvfs/pkg/vfs"
)

// Backend serves file:// URLs and scheme-less paths. It holds no state; all
// operations go straight to the OS.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) SupportsDirectories() bool { return true }
func (b *Backend) SupportsPermissions() bool { return true }
func (b *Backend) SupportsProperties() bool  { return false }

// fsPath extracts the OS path from the URL. Scheme-less raw strings are used
// as-is so relative paths keep working against the process's working
// directory.
func fsPath(u vfs.URL) string {
	if p := u.Path(); p != "" {
		return p
	}
	return u.Raw()
}

func (b *Backend) ReadAll(ctx context.Context, u vfs.URL) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fsPath(u))
	if err != nil {
		return nil, wrapErr(u, err)
	}
	return data, nil
}

// WriteAll replaces the file content. The overwrite=false case is checked
// with a separate stat, so it is not atomic.
func (b *Backend) WriteAll(ctx context.Context, u vfs.URL, data []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := fsPath(u)
	if !overwrite {
		if _, err := os.Lstat(p); err == nil {
			return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
		}
	}
	return wrapErr(u, os.WriteFile(p, data, 0o644))
}

// List returns the direct children of a directory, or the URL itself when it
// names a plain file. Recursive listings include every descendant, not the
// root itself.
func (b *Backend) List(ctx context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := fsPath(u)
	info, err := os.Lstat(p)
	if err != nil {
		return nil, wrapErr(u, err)
	}
	if !info.IsDir() {
		return []vfs.URL{u}, nil
	}

	if !recursive {
		dirents, err := os.ReadDir(p)
		if err != nil {
			return nil, wrapErr(u, err)
		}
		kids := make([]vfs.URL, 0, len(dirents))
		for _, d := range dirents {
			kids = append(kids, u.Join(d.Name()))
		}
		return kids, nil
	}

	var kids []vfs.URL
	err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == p {
			return nil
		}
		rel, err := filepath.Rel(p, path)
		if err != nil {
			return err
		}
		kids = append(kids, u.Join(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, wrapErr(u, err)
	}
	return kids, nil
}

func (b *Backend) Stat(ctx context.Context, u vfs.URL) (vfs.Stat, error) {
	if err := ctx.Err(); err != nil {
		return vfs.Stat{}, err
	}
	info, err := os.Lstat(fsPath(u))
	if err != nil {
		return vfs.Stat{}, wrapErr(u, err)
	}

	kind := vfs.KindFile
	switch {
	case info.IsDir():
		kind = vfs.KindDirectory
	case info.Mode()&fs.ModeSymlink != 0:
		kind = vfs.KindSymlink
	case info.Mode()&fs.ModeDevice != 0:
		kind = vfs.KindDevice
	}

	return vfs.NewStat(vfs.Stat{
		URL:   u,
		Kind:  kind,
		Size:  info.Size(),
		MTime: info.ModTime(),
		Mode:  info.Mode() & fs.ModePerm,
	}), nil
}

func (b *Backend) MakeDirectory(ctx context.Context, u vfs.URL, ignoreIfExists bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// MkdirAll already tolerates existing directories.
	return wrapErr(u, os.MkdirAll(fsPath(u), 0o755))
}

// DeleteOne removes a single file or directory. A non-empty directory falls
// back to removing the whole subtree, matching the facade's expectation that
// a directory whose children were already visited still disappears even when
// hidden entries remain.
func (b *Backend) DeleteOne(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := fsPath(u)
	err := os.Remove(p)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		if ignoreIfMissing {
			return nil
		}
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}
	if errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) {
		return wrapErr(u, os.RemoveAll(p))
	}
	return wrapErr(u, err)
}

// DeleteTree removes a whole subtree in one call. RemoveAll is silent about
// missing paths, so a strict delete probes existence first.
func (b *Backend) DeleteTree(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := fsPath(u)
	if !ignoreIfMissing {
		if _, err := os.Lstat(p); err != nil {
			return wrapErr(u, err)
		}
	}
	return wrapErr(u, os.RemoveAll(p))
}

func (b *Backend) Chmod(ctx context.Context, u vfs.URL, mode fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapErr(u, os.Chmod(fsPath(u), mode))
}

// wrapErr maps OS errors onto the facade taxonomy, attaching the failing URL.
func wrapErr(u vfs.URL, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
	case errors.Is(err, syscall.EISDIR):
		return fmt.Errorf("%s: %w", u, vfs.ErrIsADirectory)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%s: %w", u, vfs.ErrNotADirectory)
	default:
		return fmt.Errorf("%s: %v: %w", u, err, vfs.ErrIO)
	}
}
