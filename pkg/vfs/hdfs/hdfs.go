// Package hdfs serves hdfs:// URLs over the native HDFS wire protocol. The
// URL host is the namenode; the path is the HDFS path.
package hdfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path"
	"sync"

	gohdfs "github.com/colinmarc/hdfs/v2"

	"github.com/lowes/lvfs/pkg/credentials"
	"github.com/lowes/lvfs/pkg/vfs"
)

const defaultNamenodePort = "8020"

// Backend keeps one protocol client per namenode. Clients multiplex; they
// are created on first use and reused for the life of the process.
type Backend struct {
	creds *credentials.Registry

	mu      sync.Mutex
	clients map[string]*gohdfs.Client
}

func New(creds *credentials.Registry) *Backend {
	if creds == nil {
		creds = credentials.Default()
	}
	return &Backend{creds: creds, clients: make(map[string]*gohdfs.Client)}
}

func (b *Backend) SupportsDirectories() bool { return true }
func (b *Backend) SupportsPermissions() bool { return true }
func (b *Backend) SupportsProperties() bool  { return false }

func (b *Backend) client(u vfs.URL) (*gohdfs.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clients[u.Host()]; ok {
		return c, nil
	}

	addr := u.Host()
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultNamenodePort)
	}
	opts := gohdfs.ClientOptions{Addresses: []string{addr}}

	payload, ok, err := b.creds.Lookup("hdfs", u.Host(), "", u.Path())
	if err != nil {
		return nil, err
	}
	if ok {
		if user, found := payload.String("user"); found {
			opts.User = user
		}
	}
	if opts.User == "" {
		if user := u.User(); user != "" {
			opts.User = user
		}
	}

	client, err := gohdfs.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: connecting to namenode %s: %v: %w", u, addr, err, vfs.ErrIO)
	}
	b.clients[u.Host()] = client
	return client, nil
}

func (b *Backend) ReadAll(ctx context.Context, u vfs.URL) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := b.client(u)
	if err != nil {
		return nil, err
	}
	data, err := client.ReadFile(u.Path())
	if err != nil {
		return nil, classify(u, err)
	}
	return data, nil
}

func (b *Backend) WriteAll(ctx context.Context, u vfs.URL, data []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := b.client(u)
	if err != nil {
		return err
	}
	// Creates never overwrite in HDFS; an overwriting write removes first.
	if overwrite {
		if err := client.Remove(u.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return classify(u, err)
		}
	}
	w, err := client.Create(u.Path())
	if err != nil {
		return classify(u, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return classify(u, err)
	}
	if err := w.Close(); err != nil {
		return classify(u, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := b.client(u)
	if err != nil {
		return nil, err
	}

	info, err := client.Stat(u.Path())
	if err != nil {
		return nil, classify(u, err)
	}
	if !info.IsDir() {
		return []vfs.URL{u}, nil
	}

	if !recursive {
		infos, err := client.ReadDir(u.Path())
		if err != nil {
			return nil, classify(u, err)
		}
		kids := make([]vfs.URL, 0, len(infos))
		for _, fi := range infos {
			kids = append(kids, u.Join(fi.Name()))
		}
		return kids, nil
	}

	var kids []vfs.URL
	root := u.Path()
	err = client.Walk(root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		kids = append(kids, u.WithPath(p))
		return nil
	})
	if err != nil {
		return nil, classify(u, err)
	}
	return kids, nil
}

func (b *Backend) Stat(ctx context.Context, u vfs.URL) (vfs.Stat, error) {
	if err := ctx.Err(); err != nil {
		return vfs.Stat{}, err
	}
	client, err := b.client(u)
	if err != nil {
		return vfs.Stat{}, err
	}
	info, err := client.Stat(u.Path())
	if err != nil {
		return vfs.Stat{}, classify(u, err)
	}
	kind := vfs.KindFile
	if info.IsDir() {
		kind = vfs.KindDirectory
	}
	st := vfs.Stat{
		URL:   u,
		Kind:  kind,
		Size:  info.Size(),
		MTime: info.ModTime(),
		Mode:  info.Mode() & fs.ModePerm,
	}
	if fi, ok := info.(*gohdfs.FileInfo); ok {
		st.ATime = fi.AccessTime()
	}
	return vfs.NewStat(st), nil
}

func (b *Backend) MakeDirectory(ctx context.Context, u vfs.URL, ignoreIfExists bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := b.client(u)
	if err != nil {
		return err
	}
	if ignoreIfExists {
		return classify(u, client.MkdirAll(u.Path(), 0o755))
	}
	err = client.Mkdir(u.Path(), 0o755)
	if errors.Is(err, os.ErrNotExist) {
		// The parent is missing; build it, then retry so a preexisting leaf
		// still reports as a conflict.
		if err := client.MkdirAll(path.Dir(u.Path()), 0o755); err != nil {
			return classify(u, err)
		}
		err = client.Mkdir(u.Path(), 0o755)
	}
	return classify(u, err)
}

func (b *Backend) DeleteOne(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := b.client(u)
	if err != nil {
		return err
	}
	err = client.Remove(u.Path())
	if ignoreIfMissing && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return classify(u, err)
}

// DeleteTree removes the whole subtree in one namenode call. RemoveAll is
// silent about missing paths, so a strict delete probes existence first.
func (b *Backend) DeleteTree(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := b.client(u)
	if err != nil {
		return err
	}
	if !ignoreIfMissing {
		if _, err := client.Stat(u.Path()); err != nil {
			return classify(u, err)
		}
	}
	return classify(u, client.RemoveAll(u.Path()))
}

func (b *Backend) Chmod(ctx context.Context, u vfs.URL, mode fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := b.client(u)
	if err != nil {
		return err
	}
	return classify(u, client.Chmod(u.Path(), mode))
}

func classify(u vfs.URL, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%s: %w", u, vfs.ErrAuthFailed)
	default:
		return fmt.Errorf("%s: %v: %w", u, err, vfs.ErrIO)
	}
}
