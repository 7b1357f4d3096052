package vfstest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowes/lvfs/pkg/vfs"
)

// Suite is a reusable contract test for backend implementations. It tests
// the interface contract, not implementation details, so the same suite runs
// against in-memory, local-disk and (in integration builds) remote backends.
//
// Usage:
//
//	func TestLocalBackend(t *testing.T) {
//	    suite := &vfstest.Suite{
//	        NewBackend: func(t *testing.T) (vfs.Backend, vfs.URL) {
//	            return local.New(), vfs.To("file://" + t.TempDir())
//	        },
//	    }
//	    suite.Run(t)
//	}
//
// NewBackend must return a fresh backend and a root URL the suite may write
// under. Capability-dependent checks branch on the backend's own
// SupportsDirectories answer.
type Suite struct {
	NewBackend func(t *testing.T) (vfs.Backend, vfs.URL)
}

// Run executes all contract tests.
func (s *Suite) Run(t *testing.T) {
	t.Run("WriteReadRoundTrip", s.TestWriteReadRoundTrip)
	t.Run("OverwriteGuard", s.TestOverwriteGuard)
	t.Run("ReadMissing", s.TestReadMissing)
	t.Run("StatFile", s.TestStatFile)
	t.Run("ListChildren", s.TestListChildren)
	t.Run("DeleteOne", s.TestDeleteOne)
	t.Run("DeleteMissing", s.TestDeleteMissing)
}

func testContext() context.Context {
	return context.Background()
}

func (s *Suite) prepare(t *testing.T, b vfs.Backend, root vfs.URL) vfs.URL {
	t.Helper()
	dir := root.Join("suite")
	require.NoError(t, b.MakeDirectory(testContext(), dir, true))
	return dir
}

func (s *Suite) TestWriteReadRoundTrip(t *testing.T) {
	b, root := s.NewBackend(t)
	dir := s.prepare(t, b, root)

	target := dir.Join("hello.txt")
	payload := []byte("hello backend")
	require.NoError(t, b.WriteAll(testContext(), target, payload, true))

	got, err := b.ReadAll(testContext(), target)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func (s *Suite) TestOverwriteGuard(t *testing.T) {
	b, root := s.NewBackend(t)
	dir := s.prepare(t, b, root)

	target := dir.Join("guarded.txt")
	require.NoError(t, b.WriteAll(testContext(), target, []byte("first"), true))

	err := b.WriteAll(testContext(), target, []byte("second"), false)
	assert.ErrorIs(t, err, vfs.ErrAlreadyExists)

	got, err := b.ReadAll(testContext(), target)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got, "failed write must not clobber the original")
}

func (s *Suite) TestReadMissing(t *testing.T) {
	b, root := s.NewBackend(t)
	dir := s.prepare(t, b, root)

	_, err := b.ReadAll(testContext(), dir.Join("never-written"))
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func (s *Suite) TestStatFile(t *testing.T) {
	b, root := s.NewBackend(t)
	dir := s.prepare(t, b, root)

	target := dir.Join("stat-me")
	payload := []byte("0123456789")
	require.NoError(t, b.WriteAll(testContext(), target, payload, true))

	st, err := b.Stat(testContext(), target)
	require.NoError(t, err)
	assert.Equal(t, vfs.KindFile, st.Kind)
	assert.Equal(t, int64(len(payload)), st.Size)
}

func (s *Suite) TestListChildren(t *testing.T) {
	b, root := s.NewBackend(t)
	dir := s.prepare(t, b, root)

	require.NoError(t, b.WriteAll(testContext(), dir.Join("a.txt"), []byte("a"), true))
	require.NoError(t, b.WriteAll(testContext(), dir.Join("b.txt"), []byte("b"), true))

	kids, err := b.List(testContext(), dir, false)
	require.NoError(t, err)

	names := make(map[string]bool, len(kids))
	for _, kid := range kids {
		names[kid.Basename()] = true
	}
	assert.True(t, names["a.txt"])
	assert.True(t, names["b.txt"])

	if !b.SupportsDirectories() {
		// Directoryless backends list unknown prefixes as empty, never as
		// an error.
		empty, err := b.List(testContext(), dir.Join("no-such-prefix"), false)
		require.NoError(t, err)
		assert.Empty(t, empty)
	}
}

func (s *Suite) TestDeleteOne(t *testing.T) {
	b, root := s.NewBackend(t)
	dir := s.prepare(t, b, root)

	target := dir.Join("doomed")
	require.NoError(t, b.WriteAll(testContext(), target, []byte("x"), true))
	require.NoError(t, b.DeleteOne(testContext(), target, false))

	_, err := b.ReadAll(testContext(), target)
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func (s *Suite) TestDeleteMissing(t *testing.T) {
	b, root := s.NewBackend(t)
	dir := s.prepare(t, b, root)

	missing := dir.Join("not-there")
	assert.NoError(t, b.DeleteOne(testContext(), missing, true))

	err := b.DeleteOne(testContext(), missing, false)
	if b.SupportsDirectories() {
		assert.ErrorIs(t, err, vfs.ErrNotFound)
	} else if err != nil {
		// Object stores may treat deletes as idempotent.
		assert.True(t, errors.Is(err, vfs.ErrNotFound))
	}
}
