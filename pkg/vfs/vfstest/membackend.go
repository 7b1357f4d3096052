// Package vfstest provides in-memory backends and a reusable contract suite
// for exercising backend implementations and the generic algorithms above
// them without touching real storage.
//
// MapBackend models a filesystem-shaped backend (directories, permissions,
// properties). BlobBackend models an object store: no directories, prefix
// listings, idempotent deletes. Together they cover both capability shapes
// the generic layer has to tolerate.
package vfstest

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lowes/lvfs/pkg/vfs"
)

// MapBackend is a directory-capable in-memory backend.
type MapBackend struct {
	mu     sync.Mutex
	files  map[string][]byte
	dirs   map[string]bool
	modes  map[string]fs.FileMode
	mtimes map[string]time.Time
	props  map[string]map[string]string
}

func NewMapBackend() *MapBackend {
	return &MapBackend{
		files:  make(map[string][]byte),
		dirs:   map[string]bool{"/": true},
		modes:  make(map[string]fs.FileMode),
		mtimes: make(map[string]time.Time),
		props:  make(map[string]map[string]string),
	}
}

func (m *MapBackend) SupportsDirectories() bool { return true }
func (m *MapBackend) SupportsPermissions() bool { return true }
func (m *MapBackend) SupportsProperties() bool  { return true }

func cleanPath(u vfs.URL) string {
	p := u.Path()
	if p == "" {
		p = "/"
	}
	return path.Clean(p)
}

func (m *MapBackend) ReadAll(_ context.Context, u vfs.URL) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if m.dirs[p] {
		return nil, fmt.Errorf("%s: %w", u, vfs.ErrIsADirectory)
	}
	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MapBackend) WriteAll(_ context.Context, u vfs.URL, data []byte, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if m.dirs[p] {
		return fmt.Errorf("%s: %w", u, vfs.ErrIsADirectory)
	}
	if !m.dirs[path.Dir(p)] {
		return fmt.Errorf("%s: parent directory missing: %w", u, vfs.ErrNotFound)
	}
	if _, exists := m.files[p]; exists && !overwrite {
		return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[p] = stored
	m.mtimes[p] = time.Now()
	if _, ok := m.modes[p]; !ok {
		m.modes[p] = 0o644
	}
	return nil
}

// childOf reports whether candidate is a descendant of dir, and whether it is
// a direct child.
func childOf(dir, candidate string) (descendant, direct bool) {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	if !strings.HasPrefix(candidate, prefix) || candidate == dir {
		return false, false
	}
	rest := candidate[len(prefix):]
	return true, !strings.Contains(rest, "/")
}

func (m *MapBackend) List(_ context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if _, ok := m.files[p]; ok {
		return []vfs.URL{u}, nil
	}
	if !m.dirs[p] {
		return nil, fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}

	var paths []string
	for fp := range m.files {
		if desc, direct := childOf(p, fp); desc && (recursive || direct) {
			paths = append(paths, fp)
		}
	}
	for dp := range m.dirs {
		if desc, direct := childOf(p, dp); desc && (recursive || direct) {
			paths = append(paths, dp)
		}
	}
	sort.Strings(paths)
	kids := make([]vfs.URL, 0, len(paths))
	for _, kp := range paths {
		kids = append(kids, u.WithPath(kp))
	}
	return kids, nil
}

func (m *MapBackend) Stat(_ context.Context, u vfs.URL) (vfs.Stat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if m.dirs[p] {
		return vfs.NewStat(vfs.Stat{
			URL:   u,
			Kind:  vfs.KindDirectory,
			MTime: m.mtimes[p],
			Mode:  m.modes[p],
		}), nil
	}
	data, ok := m.files[p]
	if !ok {
		return vfs.Stat{}, fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}
	return vfs.NewStat(vfs.Stat{
		URL:   u,
		Kind:  vfs.KindFile,
		Size:  int64(len(data)),
		MTime: m.mtimes[p],
		Mode:  m.modes[p],
	}), nil
}

func (m *MapBackend) MakeDirectory(_ context.Context, u vfs.URL, ignoreIfExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if _, ok := m.files[p]; ok {
		return fmt.Errorf("%s: %w", u, vfs.ErrNotADirectory)
	}
	if m.dirs[p] {
		if ignoreIfExists {
			return nil
		}
		return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
	}
	for cur := p; cur != "/"; cur = path.Dir(cur) {
		m.dirs[cur] = true
		if _, ok := m.mtimes[cur]; !ok {
			m.mtimes[cur] = time.Now()
		}
		if _, ok := m.modes[cur]; !ok {
			m.modes[cur] = 0o755
		}
	}
	return nil
}

func (m *MapBackend) DeleteOne(_ context.Context, u vfs.URL, ignoreIfMissing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		delete(m.mtimes, p)
		delete(m.modes, p)
		delete(m.props, p)
		return nil
	}
	if m.dirs[p] {
		for fp := range m.files {
			if desc, _ := childOf(p, fp); desc {
				delete(m.files, fp)
			}
		}
		for dp := range m.dirs {
			if desc, _ := childOf(p, dp); desc {
				delete(m.dirs, dp)
			}
		}
		delete(m.dirs, p)
		delete(m.mtimes, p)
		delete(m.modes, p)
		return nil
	}
	if ignoreIfMissing {
		return nil
	}
	return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
}

func (m *MapBackend) Chmod(_ context.Context, u vfs.URL, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if _, ok := m.files[p]; !ok && !m.dirs[p] {
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}
	m.modes[p] = mode & fs.ModePerm
	return nil
}

func (m *MapBackend) Properties(_ context.Context, u vfs.URL) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if _, ok := m.files[p]; !ok && !m.dirs[p] {
		return nil, fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}
	out := make(map[string][]string, len(m.props[p]))
	for k, v := range m.props[p] {
		out[k] = []string{v}
	}
	return out, nil
}

func (m *MapBackend) AddProperties(_ context.Context, u vfs.URL, props map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	if _, ok := m.files[p]; !ok && !m.dirs[p] {
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	}
	if m.props[p] == nil {
		m.props[p] = make(map[string]string)
	}
	for k, v := range props {
		m.props[p][k] = v
	}
	return nil
}

func (m *MapBackend) DeleteProperties(_ context.Context, u vfs.URL, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(u)
	for _, k := range keys {
		delete(m.props[p], k)
	}
	return nil
}
