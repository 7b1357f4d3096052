package execchan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowes/lvfs/pkg/vfs"
)

// fakeSession wires the three streams to an in-process "remote" function, so
// channel behavior can be tested against remotes with hostile buffering
// habits.
type fakeSession struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	remote func(stdin io.Reader, stdout, stderr io.Writer) error
	done   chan error

	recorder *writeRecorder
}

func newFakeSession(remote func(stdin io.Reader, stdout, stderr io.Writer) error) *fakeSession {
	s := &fakeSession{remote: remote, done: make(chan error, 1)}
	s.stdinR, s.stdinW = io.Pipe()
	s.stdoutR, s.stdoutW = io.Pipe()
	s.stderrR, s.stderrW = io.Pipe()
	s.recorder = &writeRecorder{w: s.stdinW}
	return s
}

func (s *fakeSession) StdinPipe() (io.WriteCloser, error) { return s.recorder, nil }
func (s *fakeSession) StdoutPipe() (io.Reader, error)     { return s.stdoutR, nil }
func (s *fakeSession) StderrPipe() (io.Reader, error)     { return s.stderrR, nil }

func (s *fakeSession) Start(cmd string) error {
	go func() {
		err := s.remote(s.stdinR, s.stdoutW, s.stderrW)
		s.stdoutW.Close()
		s.stderrW.Close()
		s.done <- err
	}()
	return nil
}

func (s *fakeSession) Wait() error { return <-s.done }

func (s *fakeSession) Close() error {
	s.stdinR.Close()
	s.stdoutW.Close()
	s.stderrW.Close()
	return nil
}

// writeRecorder wraps the stdin pipe and records each write size.
type writeRecorder struct {
	w io.WriteCloser

	mu    sync.Mutex
	sizes []int
}

func (r *writeRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	r.sizes = append(r.sizes, len(p))
	r.mu.Unlock()
	return r.w.Write(p)
}

func (r *writeRecorder) Close() error { return r.w.Close() }

func TestRunStreamsBothDirectionsWithoutDeadlock(t *testing.T) {
	// Three full chunks plus a tail.
	body := bytes.Repeat([]byte("z"), 3*ChunkSize+10)
	bigOutput := bytes.Repeat([]byte("o"), 2*ChunkSize)

	// This remote floods stdout before reading a single byte of stdin. A
	// channel that writes all of stdin before draining output would
	// deadlock here.
	sess := newFakeSession(func(stdin io.Reader, stdout, stderr io.Writer) error {
		if _, err := stdout.Write(bigOutput); err != nil {
			return err
		}
		got, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		if len(got) != len(body) {
			stderr.Write([]byte("short body"))
			return errors.New("exit 1")
		}
		stderr.Write([]byte("all received"))
		return nil
	})

	res, err := Run(context.Background(), sess, "remote-tool", body, "blob:///x")
	require.NoError(t, err)
	assert.Equal(t, bigOutput, res.Stdout)
	assert.Equal(t, []byte("all received"), res.Stderr)

	// The body went out in bounded pieces, never one giant write.
	sess.recorder.mu.Lock()
	defer sess.recorder.mu.Unlock()
	require.GreaterOrEqual(t, len(sess.recorder.sizes), 4)
	for _, n := range sess.recorder.sizes {
		assert.LessOrEqual(t, n, ChunkSize)
	}
}

func TestRunHalfClosesStdin(t *testing.T) {
	// The remote only terminates on stdin end-of-stream, like `hdfs dfs
	// -put -`. Run must half-close after the body or this never returns.
	sess := newFakeSession(func(stdin io.Reader, stdout, stderr io.Writer) error {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		stdout.Write(data)
		return nil
	})

	res, err := Run(context.Background(), sess, "tee", []byte("echo me"), "blob:///x")
	require.NoError(t, err)
	assert.Equal(t, []byte("echo me"), res.Stdout)
}

func TestRunEmptyBody(t *testing.T) {
	sess := newFakeSession(func(stdin io.Reader, stdout, stderr io.Writer) error {
		data, _ := io.ReadAll(stdin)
		if len(data) != 0 {
			return errors.New("unexpected body")
		}
		stdout.Write([]byte("listing"))
		return nil
	})

	res, err := Run(context.Background(), sess, "ls", nil, "blob:///x")
	require.NoError(t, err)
	assert.Equal(t, []byte("listing"), res.Stdout)
}

func TestRunContextCancellationTearsDownSession(t *testing.T) {
	block := make(chan struct{})
	sess := newFakeSession(func(stdin io.Reader, stdout, stderr io.Writer) error {
		// Hang until torn down.
		io.ReadAll(stdin)
		<-block
		return nil
	})
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, sess, "sleep forever", nil, "blob:///x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunClassifiesRemoteFailures(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   error
	}{
		{"missing path", "cat: `/x': No such file or directory", vfs.ErrNotFound},
		{"existing target", "mkdir: `/x': File exists", vfs.ErrAlreadyExists},
		{"directory target", "rm: `/x': Is a directory", vfs.ErrIsADirectory},
		{"anything else", "something burned down", vfs.ErrIO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.stderr
			sess := newFakeSession(func(stdin io.Reader, stdout, stderr io.Writer) error {
				io.ReadAll(stdin)
				stderr.Write([]byte(msg))
				return errors.New("exit 1")
			})
			_, err := Run(context.Background(), sess, "hdfs dfs", nil, "hdfscli://edge/x")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClassifyExit(t *testing.T) {
	assert.NoError(t, ClassifyExit(nil, []byte("ignored"), "u"))

	err := ClassifyExit(errors.New("exit 1"), []byte("ls: `/a': No such file or directory"), "hdfscli://e/a")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
	assert.Contains(t, err.Error(), "hdfscli://e/a")

	err = ClassifyExit(errors.New("exit 1"), []byte("unrecognized"), "u")
	assert.ErrorIs(t, err, vfs.ErrIO)
	assert.Contains(t, err.Error(), "unrecognized")
}
