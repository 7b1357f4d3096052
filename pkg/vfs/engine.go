package vfs

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"time"

	"github.com/lowes/lvfs/internal/logger"
)

// FS is the generic algorithm engine: backend-agnostic implementations of
// copy, move, delete, walk, exists, disk-usage and friends, expressed purely
// against the Backend contract and its capability flags. Every URL is
// resolved through the injected Registry per call, so high-level operations
// work across backends (copying from an object store to local disk is the
// same code path as local-to-local).
//
// Recursive operations visit children sequentially, in list order; the
// facade adds no parallelism and no cross-call locking. Callers needing
// mutual exclusion on a remote path must provide it themselves.
type FS struct {
	registry *Registry
}

func New(registry *Registry) *FS {
	return &FS{registry: registry}
}

// Registry exposes the scheme registry, mainly so callers can register
// additional backends at startup.
func (f *FS) Registry() *Registry {
	return f.registry
}

//
// Primitive pass-throughs
//

func (f *FS) ReadAll(ctx context.Context, u URL) ([]byte, error) {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return nil, err
	}
	return be.ReadAll(ctx, u)
}

func (f *FS) WriteAll(ctx context.Context, u URL, data []byte, overwrite bool) error {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return err
	}
	return be.WriteAll(ctx, u, data, overwrite)
}

func (f *FS) List(ctx context.Context, u URL, recursive bool) ([]URL, error) {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return nil, err
	}
	return be.List(ctx, u, recursive)
}

func (f *FS) Stat(ctx context.Context, u URL) (Stat, error) {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return Stat{}, err
	}
	return be.Stat(ctx, u)
}

func (f *FS) MakeDirectory(ctx context.Context, u URL, ignoreIfExists bool) error {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return err
	}
	return be.MakeDirectory(ctx, u, ignoreIfExists)
}

func (f *FS) Chmod(ctx context.Context, u URL, mode fs.FileMode) error {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return err
	}
	return be.Chmod(ctx, u, mode)
}

//
// Generic algorithms
//

// Exists reports whether the URL resolves to an existing entry. Every
// failure, including transport errors, is coerced to false; this is one of
// the three documented coercion points.
func (f *FS) Exists(ctx context.Context, u URL) bool {
	_, err := f.Stat(ctx, u)
	return err == nil
}

// IsDir reports whether the URL is a directory. Failures are coerced to
// false. On backends without real directories this degrades to best-effort:
// an "empty directory" may not exist in any meaningful sense.
func (f *FS) IsDir(ctx context.Context, u URL) bool {
	st, err := f.Stat(ctx, u)
	return err == nil && st.Kind == KindDirectory
}

// Copy copies src onto dst, across backends if their schemes differ.
// Content is buffered whole in memory; very large files are out of scope for
// this primitive.
//
// A recursive copy of a directory does not create an extra subdirectory
// level: copying /a/b onto /d/e populates /d/e/x for every descendant x of
// /a/b, never /d/e/b/x.
func (f *FS) Copy(ctx context.Context, src, dst URL, recursive bool) error {
	if recursive && f.IsDir(ctx, src) {
		if err := f.MakeDirectory(ctx, dst, true); err != nil {
			return err
		}
		kids, err := f.List(ctx, src, false)
		if err != nil {
			return err
		}
		for _, kid := range kids {
			if kid == src {
				continue
			}
			if err := f.Copy(ctx, kid, dst.Join(kid.Basename()), true); err != nil {
				return err
			}
		}
		return nil
	}

	data, err := f.ReadAll(ctx, src)
	if err != nil {
		return err
	}
	return f.WriteAll(ctx, dst, data, true)
}

// Remove deletes the URL, and all its descendants first when recursive.
// Children are removed before self, depth first, in list order. Missing
// targets are swallowed only when ignoreIfMissing is set.
//
// Backends implementing RecursiveDeleter get the whole recursive case in one
// native call.
func (f *FS) Remove(ctx context.Context, u URL, recursive, ignoreIfMissing bool) error {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return err
	}

	if recursive {
		if rd, ok := be.(RecursiveDeleter); ok {
			return rd.DeleteTree(ctx, u, ignoreIfMissing)
		}
		if f.IsDir(ctx, u) {
			kids, err := be.List(ctx, u, false)
			if err != nil {
				return err
			}
			for _, kid := range kids {
				if kid == u {
					continue
				}
				if err := f.Remove(ctx, kid, true, ignoreIfMissing); err != nil {
					return err
				}
			}
		}
	}
	// In all cases, delete self afterward.
	return be.DeleteOne(ctx, u, ignoreIfMissing)
}

// Move relocates src to dst. It is always fully recursive and is implemented
// strictly as copy-then-delete, never a native rename: it is not atomic, and
// a crash mid-operation can leave both the source and a partial destination.
func (f *FS) Move(ctx context.Context, src, dst URL) error {
	if err := f.Copy(ctx, src, dst, true); err != nil {
		return err
	}
	return f.Remove(ctx, src, true, false)
}

// WalkGroup is one (parent, subdirectories, files) triple yielded by Walk.
// All URLs are absolute.
type WalkGroup struct {
	Dir   URL
	Dirs  []URL
	Files []URL
}

// Walk lists all descendants of u in one shot (not lazily per directory),
// buckets them by parent path, and returns the groups ordered
// lexicographically by parent path, reversed when topdown is false. Memory
// use is bounded by the size of the tree, not by a streaming window.
func (f *FS) Walk(ctx context.Context, u URL, topdown bool) ([]WalkGroup, error) {
	kids, err := f.List(ctx, u, true)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		dirs, files []URL
	}
	groups := make(map[string]*bucket)
	for _, kid := range kids {
		parent := kid.Dirname()
		b := groups[parent]
		if b == nil {
			b = &bucket{}
			groups[parent] = b
		}
		if f.IsDir(ctx, kid) {
			b.dirs = append(b.dirs, kid)
		} else {
			b.files = append(b.files, kid)
		}
	}

	parents := make([]string, 0, len(groups))
	for parent := range groups {
		parents = append(parents, parent)
	}
	sort.Strings(parents)
	if !topdown {
		for i, j := 0, len(parents)-1; i < j; i, j = i+1, j-1 {
			parents[i], parents[j] = parents[j], parents[i]
		}
	}

	out := make([]WalkGroup, 0, len(parents))
	for _, parent := range parents {
		b := groups[parent]
		out = append(out, WalkGroup{Dir: u.WithPath(parent), Dirs: b.dirs, Files: b.files})
	}
	return out, nil
}

// DiskUsage returns the total size of a file or directory tree. A file's
// usage is its own size; a directory's is the sum of its children's usage
// plus its own reported size. A child comparing equal to self is skipped,
// guarding against backends that list an entry as its own child.
func (f *FS) DiskUsage(ctx context.Context, u URL) (int64, error) {
	st, err := f.Stat(ctx, u)
	if err != nil {
		return 0, err
	}
	kids, err := f.List(ctx, u, false)
	if err != nil {
		if errors.Is(err, ErrNotADirectory) {
			return st.Size, nil
		}
		return 0, err
	}
	total := st.Size
	for _, kid := range kids {
		if kid == u {
			continue
		}
		n, err := f.DiskUsage(ctx, kid)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// DeepMTime returns the (oldest, newest) modification time across all listed
// entries. It never fails: any error during the scan is logged and coerced to
// two zero times, which callers must treat as "unknown", not as a valid
// epoch. This is one of the three documented coercion points.
func (f *FS) DeepMTime(ctx context.Context, u URL, recursive bool) (oldest, newest time.Time) {
	kids, err := f.List(ctx, u, recursive)
	if err != nil {
		logger.Warn("could not get modification times for %s: %v", u, err)
		return time.Time{}, time.Time{}
	}
	for _, kid := range kids {
		st, err := f.Stat(ctx, kid)
		if err != nil {
			logger.Warn("could not get modification times for %s: %v", u, err)
			return time.Time{}, time.Time{}
		}
		if oldest.IsZero() || st.MTime.Before(oldest) {
			oldest = st.MTime
		}
		if newest.IsZero() || st.MTime.After(newest) {
			newest = st.MTime
		}
	}
	return oldest, newest
}

//
// Optional capability dispatch
//

// Properties returns the key-value properties of u, or ErrNotSupported for
// backends without a property model.
func (f *FS) Properties(ctx context.Context, u URL) (map[string][]string, error) {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return nil, err
	}
	ps, ok := be.(PropertyStore)
	if !ok {
		return nil, notSupported(u, "properties")
	}
	return ps.Properties(ctx, u)
}

// AddProperties sets key-value properties on u.
func (f *FS) AddProperties(ctx context.Context, u URL, props map[string]string) error {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return err
	}
	ps, ok := be.(PropertyStore)
	if !ok {
		return notSupported(u, "properties")
	}
	return ps.AddProperties(ctx, u, props)
}

// DeleteProperties removes key-value properties from u.
func (f *FS) DeleteProperties(ctx context.Context, u URL, names []string) error {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return err
	}
	ps, ok := be.(PropertyStore)
	if !ok {
		return notSupported(u, "properties")
	}
	return ps.DeleteProperties(ctx, u, names)
}

// MakeBucket creates the bucket named by u on object stores; other backends
// treat it as a no-op.
func (f *FS) MakeBucket(ctx context.Context, u URL) error {
	be, err := f.registry.Resolve(u)
	if err != nil {
		return err
	}
	if bm, ok := be.(BucketMaker); ok {
		return bm.MakeBucket(ctx, u)
	}
	return nil
}
