// Package hdfscli reaches HDFS through the `hdfs dfs` command line run over
// SSH, for clusters where the native RPC ports are firewalled but an edge
// node with the Hadoop client installed is reachable. Every operation is one
// remote command; semantics are whatever the CLI tool provides.
package hdfscli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/lowes/lvfs/pkg/credentials"
	"github.com/lowes/lvfs/pkg/execchan"
	"github.com/lowes/lvfs/pkg/vfs"
)

// Backend serves hdfscli:// URLs. The URL host is the SSH edge node; the
// path is the HDFS path the remote `hdfs dfs` resolves.
type Backend struct {
	creds  *credentials.Registry
	dialer dialer
}

func New(creds *credentials.Registry) *Backend {
	if creds == nil {
		creds = credentials.Default()
	}
	return &Backend{creds: creds}
}

func (b *Backend) SupportsDirectories() bool { return true }
func (b *Backend) SupportsPermissions() bool { return true }
func (b *Backend) SupportsProperties() bool  { return false }

func (b *Backend) params(u vfs.URL) (sshParams, error) {
	payload, err := b.creds.Match("hdfscli", u.Host(), "", u.Path())
	if err != nil {
		return sshParams{}, fmt.Errorf("%s: %v: %w", u, err, vfs.ErrAuthFailed)
	}
	username, ok := payload.String("ssh_username")
	if !ok {
		return sshParams{}, fmt.Errorf("%s: realm has no ssh_username: %w", u, vfs.ErrInvalidConfiguration)
	}
	keyPath, ok := payload.String("ssh_private_key")
	if !ok {
		return sshParams{}, fmt.Errorf("%s: realm has no ssh_private_key: %w", u, vfs.ErrInvalidConfiguration)
	}
	jumpHost, _ := payload.String("ssh_jump_host")
	knownHosts, _ := payload.String("ssh_known_hosts")
	return sshParams{
		host:       u.Host(),
		username:   username,
		jumpHost:   jumpHost,
		keyPath:    keyPath,
		knownHosts: knownHosts,
	}, nil
}

// run executes one remote command, redialing once if the cached connection
// turned out to be dead when the session was opened.
func (b *Backend) run(ctx context.Context, u vfs.URL, cmd string, body []byte) (execchan.Result, error) {
	p, err := b.params(u)
	if err != nil {
		return execchan.Result{}, err
	}
	client, err := b.dialer.get(ctx, p)
	if err != nil {
		return execchan.Result{}, err
	}
	sess, err := client.NewSession()
	if err != nil {
		b.dialer.invalidate(client)
		client, err = b.dialer.get(ctx, p)
		if err != nil {
			return execchan.Result{}, err
		}
		sess, err = client.NewSession()
		if err != nil {
			return execchan.Result{}, fmt.Errorf("%s: opening ssh session: %v: %w", u, err, vfs.ErrIO)
		}
	}
	return execchan.Run(ctx, sess, cmd, body, u.String())
}

// shellQuote single-quotes s for a POSIX shell, closing and reopening the
// quote around embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (b *Backend) ReadAll(ctx context.Context, u vfs.URL) ([]byte, error) {
	res, err := b.run(ctx, u, "hdfs dfs -cat "+shellQuote(u.Path()), nil)
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}

func (b *Backend) WriteAll(ctx context.Context, u vfs.URL, data []byte, overwrite bool) error {
	cmd := "hdfs dfs -put - " + shellQuote(u.Path())
	if overwrite {
		cmd = "hdfs dfs -put -f - " + shellQuote(u.Path())
	}
	_, err := b.run(ctx, u, cmd, data)
	return err
}

func (b *Backend) List(ctx context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	cmd := "hdfs dfs -ls "
	if recursive {
		cmd = "hdfs dfs -ls -R "
	}
	res, err := b.run(ctx, u, cmd+shellQuote(u.Path()), nil)
	if err != nil {
		return nil, err
	}
	paths := parseLS(res.Stdout)
	urls := make([]vfs.URL, 0, len(paths))
	for _, p := range paths {
		urls = append(urls, u.WithPath(p))
	}
	return urls, nil
}

func (b *Backend) Stat(ctx context.Context, u vfs.URL) (vfs.Stat, error) {
	// %b size, %y mtime, %F kind. Permissions do not have a -stat verb; a
	// second -ls -d call yields the symbolic mode string.
	res, err := b.run(ctx, u, "hdfs dfs -stat '%b|%y|%F' "+shellQuote(u.Path()), nil)
	if err != nil {
		return vfs.Stat{}, err
	}
	st, err := parseStat(strings.TrimSpace(string(res.Stdout)), u)
	if err != nil {
		return vfs.Stat{}, err
	}

	lsRes, err := b.run(ctx, u, "hdfs dfs -ls -d "+shellQuote(u.Path()), nil)
	if err == nil {
		if mode, ok := parseModeLine(string(lsRes.Stdout)); ok {
			st.Mode = mode
		}
	}
	return vfs.NewStat(st), nil
}

func (b *Backend) MakeDirectory(ctx context.Context, u vfs.URL, ignoreIfExists bool) error {
	cmd := "hdfs dfs -mkdir "
	if ignoreIfExists {
		cmd = "hdfs dfs -mkdir -p "
	}
	_, err := b.run(ctx, u, cmd+shellQuote(u.Path()), nil)
	return err
}

func (b *Backend) DeleteOne(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	_, err := b.run(ctx, u, "hdfs dfs -rm -skipTrash "+shellQuote(u.Path()), nil)
	if errors.Is(err, vfs.ErrIsADirectory) {
		_, err = b.run(ctx, u, "hdfs dfs -rmdir "+shellQuote(u.Path()), nil)
	}
	if ignoreIfMissing && errors.Is(err, vfs.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteTree removes a whole subtree in one remote call instead of one call
// per entry.
func (b *Backend) DeleteTree(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	_, err := b.run(ctx, u, "hdfs dfs -rm -r -skipTrash "+shellQuote(u.Path()), nil)
	if ignoreIfMissing && errors.Is(err, vfs.ErrNotFound) {
		return nil
	}
	return err
}

func (b *Backend) Chmod(ctx context.Context, u vfs.URL, mode fs.FileMode) error {
	cmd := fmt.Sprintf("hdfs dfs -chmod %o %s", mode&fs.ModePerm, shellQuote(u.Path()))
	_, err := b.run(ctx, u, cmd, nil)
	return err
}
