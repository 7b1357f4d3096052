package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowes/lvfs/pkg/vfs"
	"github.com/lowes/lvfs/pkg/vfs/vfstest"
)

func TestLocalBackendContract(t *testing.T) {
	suite := &vfstest.Suite{
		NewBackend: func(t *testing.T) (vfs.Backend, vfs.URL) {
			return New(), vfs.To("file://" + t.TempDir())
		},
	}
	suite.Run(t)
}

func TestListOfFileReturnsSelf(t *testing.T) {
	b := New()
	ctx := context.Background()

	dir := t.TempDir()
	target := vfs.To("file://" + dir + "/solo.txt")
	require.NoError(t, b.WriteAll(ctx, target, []byte("x"), true))

	kids, err := b.List(ctx, target, false)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, target, kids[0])
}

func TestRecursiveListExcludesRoot(t *testing.T) {
	b := New()
	ctx := context.Background()

	dir := t.TempDir()
	root := vfs.To("file://" + dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "leaf"), []byte("x"), 0o644))

	kids, err := b.List(ctx, root, true)
	require.NoError(t, err)

	paths := make(map[string]bool, len(kids))
	for _, kid := range kids {
		paths[kid.Raw()] = true
	}
	assert.True(t, paths[root.Join("sub").Raw()])
	assert.True(t, paths[root.Join("sub/leaf").Raw()])
	assert.False(t, paths[root.Raw()], "the listed root must not appear as its own child")
}

func TestDeleteOneFallsBackToSubtreeForNonEmptyDir(t *testing.T) {
	b := New()
	ctx := context.Background()

	dir := t.TempDir()
	nested := filepath.Join(dir, "full")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "hidden"), []byte("x"), 0o644))

	require.NoError(t, b.DeleteOne(ctx, vfs.To("file://"+nested), false))
	_, err := os.Lstat(nested)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteTree(t *testing.T) {
	b := New()
	ctx := context.Background()

	dir := t.TempDir()
	root := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "c"), []byte("x"), 0o644))

	require.NoError(t, b.DeleteTree(ctx, vfs.To("file://"+root), false))
	_, err := os.Lstat(root)
	assert.True(t, os.IsNotExist(err))

	// A strict delete of something already gone reports it.
	err = b.DeleteTree(ctx, vfs.To("file://"+root), false)
	assert.ErrorIs(t, err, vfs.ErrNotFound)
	assert.NoError(t, b.DeleteTree(ctx, vfs.To("file://"+root), true))
}

func TestStatKindsAndMode(t *testing.T) {
	b := New()
	ctx := context.Background()

	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, []byte("0123"), 0o640))

	st, err := b.Stat(ctx, vfs.To("file://"+file))
	require.NoError(t, err)
	assert.Equal(t, vfs.KindFile, st.Kind)
	assert.Equal(t, int64(4), st.Size)
	assert.Equal(t, os.FileMode(0o640), st.Mode)
	assert.False(t, st.MTime.IsZero())

	st, err = b.Stat(ctx, vfs.To("file://"+dir))
	require.NoError(t, err)
	assert.Equal(t, vfs.KindDirectory, st.Kind)
}

func TestChmod(t *testing.T) {
	b := New()
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "mode-me")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	u := vfs.To("file://" + file)
	require.NoError(t, b.Chmod(ctx, u, 0o600))

	st, err := b.Stat(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode)
}

func TestSchemelessPathResolves(t *testing.T) {
	b := New()
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "bare")
	require.NoError(t, os.WriteFile(file, []byte("bare"), 0o644))

	data, err := b.ReadAll(ctx, vfs.To(file))
	require.NoError(t, err)
	assert.Equal(t, []byte("bare"), data)
}
