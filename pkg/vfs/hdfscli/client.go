package hdfscli

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/lowes/lvfs/internal/logger"
	"github.com/lowes/lvfs/pkg/vfs"
)

const (
	sshPort           = "22"
	keepaliveInterval = 30 * time.Second
)

// dialer owns one lazily-established SSH client per backend. Sessions are
// cheap; connections are not, so every operation multiplexes sessions over
// the same TCP connection. A dead connection is detected either by the
// keepalive loop or by a failed session open, and the next operation redials.
type dialer struct {
	mu     sync.Mutex
	client *ssh.Client
}

type sshParams struct {
	host       string
	username   string
	jumpHost   string
	keyPath    string
	knownHosts string
}

// get returns a live client, dialing on first use or after the previous
// connection died.
func (d *dialer) get(ctx context.Context, p sshParams) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}
	client, err := dial(ctx, p)
	if err != nil {
		return nil, err
	}
	d.client = client
	go d.keepalive(client)
	return client, nil
}

// invalidate drops the cached client so the next get redials. Only the
// client that failed is dropped; a concurrent redial's fresh client stays.
func (d *dialer) invalidate(dead *ssh.Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == dead {
		d.client.Close()
		d.client = nil
	}
}

// keepalive pings the server until the connection errors, then discards it.
func (d *dialer) keepalive(client *ssh.Client) {
	for {
		time.Sleep(keepaliveInterval)
		if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
			logger.Debug("ssh keepalive failed, dropping connection: %v", err)
			d.invalidate(client)
			return
		}
	}
}

func dial(ctx context.Context, p sshParams) (*ssh.Client, error) {
	cfg, err := clientConfig(p)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(p.host, sshPort)

	if p.jumpHost == "" {
		client, err := ssh.Dial("tcp", addr, cfg)
		if err != nil {
			return nil, fmt.Errorf("ssh dial %s: %v: %w", addr, err, vfs.ErrAuthFailed)
		}
		return client, nil
	}

	jumpAddr := net.JoinHostPort(p.jumpHost, sshPort)
	jump, err := ssh.Dial("tcp", jumpAddr, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial jump host %s: %v: %w", jumpAddr, err, vfs.ErrAuthFailed)
	}
	conn, err := jump.DialContext(ctx, "tcp", addr)
	if err != nil {
		jump.Close()
		return nil, fmt.Errorf("ssh dial %s via %s: %v: %w", addr, jumpAddr, err, vfs.ErrIO)
	}
	nconn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		jump.Close()
		return nil, fmt.Errorf("ssh handshake %s via %s: %v: %w", addr, jumpAddr, err, vfs.ErrAuthFailed)
	}
	return ssh.NewClient(nconn, chans, reqs), nil
}

func clientConfig(p sshParams) (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading ssh key %s: %v: %w", p.keyPath, err, vfs.ErrInvalidConfiguration)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh key %s: %v: %w", p.keyPath, err, vfs.ErrInvalidConfiguration)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if p.knownHosts != "" {
		hostKeyCallback, err = knownhosts.New(p.knownHosts)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts %s: %v: %w", p.knownHosts, err, vfs.ErrInvalidConfiguration)
		}
	}

	return &ssh.ClientConfig{
		User:            p.username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}, nil
}
