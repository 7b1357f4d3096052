package vfstest

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lowes/lvfs/pkg/vfs"
)

// BlobBackend is an in-memory object store: flat keys, no directories,
// prefix listings that return empty rather than failing, and deletes that
// never report a missing key.
type BlobBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	mtimes  map[string]time.Time
}

func NewBlobBackend() *BlobBackend {
	return &BlobBackend{
		objects: make(map[string][]byte),
		mtimes:  make(map[string]time.Time),
	}
}

func (b *BlobBackend) SupportsDirectories() bool { return false }
func (b *BlobBackend) SupportsPermissions() bool { return false }
func (b *BlobBackend) SupportsProperties() bool  { return false }

func blobKey(u vfs.URL) string {
	return strings.TrimPrefix(u.Path(), "/")
}

func (b *BlobBackend) ReadAll(_ context.Context, u vfs.URL) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[blobKey(u)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *BlobBackend) WriteAll(_ context.Context, u vfs.URL, data []byte, overwrite bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := blobKey(u)
	if _, exists := b.objects[key]; exists && !overwrite {
		return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	b.objects[key] = stored
	b.mtimes[key] = time.Now()
	return nil
}

// List enumerates keys under the prefix. A nonexistent prefix is an empty
// listing, never an error. Non-recursive listings collapse deeper keys into
// their first path segment, imitating a delimiter query.
func (b *BlobBackend) List(_ context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := blobKey(u)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	seen := make(map[string]bool)
	for key := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if recursive {
			seen[key] = true
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[prefix+rest[:i]] = true
		} else {
			seen[key] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	kids := make([]vfs.URL, 0, len(paths))
	for _, p := range paths {
		kids = append(kids, u.WithPath("/"+p))
	}
	return kids, nil
}

func (b *BlobBackend) Stat(_ context.Context, u vfs.URL) (vfs.Stat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := blobKey(u)
	if data, ok := b.objects[key]; ok {
		return vfs.NewStat(vfs.Stat{
			URL:   u,
			Kind:  vfs.KindFile,
			Size:  int64(len(data)),
			MTime: b.mtimes[key],
			Mode:  0o777,
		}), nil
	}
	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for other := range b.objects {
		if strings.HasPrefix(other, prefix) {
			return vfs.NewStat(vfs.Stat{URL: u, Kind: vfs.KindDirectory, Mode: 0o777}), nil
		}
	}
	return vfs.Stat{}, fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
}

func (b *BlobBackend) MakeDirectory(_ context.Context, u vfs.URL, ignoreIfExists bool) error {
	return nil
}

func (b *BlobBackend) DeleteOne(_ context.Context, u vfs.URL, ignoreIfMissing bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := blobKey(u)
	delete(b.objects, key)
	delete(b.mtimes, key)
	return nil
}

func (b *BlobBackend) Chmod(_ context.Context, u vfs.URL, mode fs.FileMode) error {
	return fmt.Errorf("%s: chmod on object store: %w", u, vfs.ErrNotSupported)
}
