// Package execchan runs one remote command over one bidirectional exec
// session: a request body is streamed to the remote's stdin in fixed-size
// chunks while the primary and diagnostic output streams are drained
// independently.
//
// The invariant the whole package exists to uphold: neither output stream is
// ever blocked on the other. A remote process that refuses to read its stdin
// until its own output buffer drains, or that fills one stream's kernel
// buffer while the caller is blocked reading the other, must not deadlock.
// Each direction therefore runs in its own goroutine and each stream is read
// to an explicit end-of-stream; "no data right now" is never confused with
// end-of-stream, because reads block until the remote half-closes. Only after
// both output streams have ended is the exit status collected.
package execchan

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/lowes/lvfs/pkg/vfs"
)

// ChunkSize is how much request body is written per send. Sends are allowed
// to accept fewer bytes; the writer keeps a cursor rather than assuming whole
// chunks went through.
const ChunkSize = 1 << 16

// Session is one remote-command invocation: a write side, two read sides,
// and an exit status. golang.org/x/crypto/ssh's Session satisfies it
// directly.
type Session interface {
	StdinPipe() (io.WriteCloser, error)
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	Start(cmd string) error
	Wait() error
	Close() error
}

// Result carries the two fully-drained output streams.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Run executes cmd over the session, feeding it body on stdin and draining
// stdout and stderr to completion.
//
// The stdin writer half-closes the stream once the body is fully sent; some
// remote tools (tee, cat, `hdfs dfs -put -`) will not terminate otherwise.
// Wait is only called after both output streams report end-of-stream.
//
// There is no deadline of its own: a hung remote process hangs the caller
// until ctx is cancelled, at which point the session is torn down and
// ctx.Err() returned. Callers wanting a timeout put one on ctx.
//
// A non-zero exit status is classified via ClassifyExit; subject names the
// path involved so surfaced failures identify what they were operating on.
func Run(ctx context.Context, sess Session, cmd string, body []byte, subject string) (Result, error) {
	stdin, err := sess.StdinPipe()
	if err != nil {
		return Result{}, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		return Result{}, err
	}

	if err := sess.Start(cmd); err != nil {
		return Result{}, err
	}

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- sendBody(stdin, body)
	}()

	type drained struct {
		data []byte
		err  error
	}
	outDone := make(chan drained, 1)
	errDone := make(chan drained, 1)
	go func() {
		data, err := io.ReadAll(stdout)
		outDone <- drained{data, err}
	}()
	go func() {
		data, err := io.ReadAll(stderr)
		errDone <- drained{data, err}
	}()

	var res Result
	var writeErr, readErr error
	for pending := 3; pending > 0; pending-- {
		select {
		case err := <-writeDone:
			writeErr = err
		case d := <-outDone:
			res.Stdout = d.data
			if d.err != nil && readErr == nil {
				readErr = d.err
			}
		case d := <-errDone:
			res.Stderr = d.data
			if d.err != nil && readErr == nil {
				readErr = d.err
			}
		case <-ctx.Done():
			sess.Close()
			return Result{}, ctx.Err()
		}
	}

	exitErr := sess.Wait()
	if err := ClassifyExit(exitErr, res.Stderr, subject); err != nil {
		return res, err
	}
	if readErr != nil {
		return res, fmt.Errorf("%s: draining remote output: %w", subject, readErr)
	}
	// A send failure only matters if the command did not otherwise succeed
	// in consuming what it needed; a remote tool that exits 0 after closing
	// its stdin early is fine.
	_ = writeErr
	return res, nil
}

// sendBody writes the body in ChunkSize pieces, tracking a cursor across
// short writes, then half-closes the stream.
func sendBody(stdin io.WriteCloser, body []byte) error {
	defer stdin.Close()
	for cursor := 0; cursor < len(body); {
		end := cursor + ChunkSize
		if end > len(body) {
			end = len(body)
		}
		n, err := stdin.Write(body[cursor:end])
		cursor += n
		if err != nil {
			return err
		}
	}
	return nil
}

// ClassifyExit maps a non-zero exit status to an error kind by inspecting the
// diagnostic stream for known substrings of the remote tool's human-readable
// messages. This is best-effort string matching and inherently fragile
// against tool-version changes; it is isolated here so it can be swapped
// without touching the channel logic. Unrecognized diagnostics become a
// generic I/O failure carrying the remote text.
func ClassifyExit(exitErr error, stderr []byte, subject string) error {
	if exitErr == nil {
		return nil
	}
	switch {
	case bytes.Contains(stderr, []byte("File exists")):
		return fmt.Errorf("%s: %w", subject, vfs.ErrAlreadyExists)
	case bytes.Contains(stderr, []byte("No such file or directory")):
		return fmt.Errorf("%s: %w", subject, vfs.ErrNotFound)
	case bytes.Contains(stderr, []byte("Is a directory")):
		return fmt.Errorf("%s: %w", subject, vfs.ErrIsADirectory)
	default:
		return fmt.Errorf("%s: remote command failed: %v: %s: %w",
			subject, exitErr, bytes.TrimSpace(stderr), vfs.ErrIO)
	}
}
