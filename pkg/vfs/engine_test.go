package vfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowes/lvfs/pkg/vfs"
	"github.com/lowes/lvfs/pkg/vfs/vfstest"
)

// newTestFS builds a facade over one directory-capable backend (mem://) and
// one object-store-shaped backend (blob://), so every generic algorithm can
// be exercised against both capability shapes and across them.
func newTestFS() *vfs.FS {
	registry := vfs.NewRegistry()
	registry.Register("mem", func() (vfs.Backend, error) {
		return vfstest.NewMapBackend(), nil
	})
	registry.Register("blob", func() (vfs.Backend, error) {
		return vfstest.NewBlobBackend(), nil
	})
	return vfs.New(registry)
}

func mustWrite(t *testing.T, f *vfs.FS, u vfs.URL, data string) {
	t.Helper()
	require.NoError(t, f.MakeDirectory(context.Background(), u.Parent(), true))
	require.NoError(t, f.WriteAll(context.Background(), u, []byte(data), true))
}

func TestCopyFileAcrossBackends(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	src := vfs.To("mem:///data/report.csv")
	dst := vfs.To("blob:///archive/report.csv")
	mustWrite(t, f, src, "a,b,c")

	require.NoError(t, f.Copy(ctx, src, dst, false))

	got, err := f.ReadAll(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("a,b,c"), got)
}

func TestCopyDirectoryAddsNoExtraLevel(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	mustWrite(t, f, vfs.To("mem:///a/b/x"), "x")
	mustWrite(t, f, vfs.To("mem:///a/b/sub/y"), "y")

	require.NoError(t, f.Copy(ctx, vfs.To("mem:///a/b"), vfs.To("mem:///d/e"), true))

	// Descendants of /a/b land directly under /d/e, never under /d/e/b.
	assert.True(t, f.Exists(ctx, vfs.To("mem:///d/e/x")))
	assert.True(t, f.Exists(ctx, vfs.To("mem:///d/e/sub/y")))
	assert.False(t, f.Exists(ctx, vfs.To("mem:///d/e/b/x")))
}

func TestCopyThenRemoveRoundTrip(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	mustWrite(t, f, vfs.To("mem:///tree/one"), "1")
	mustWrite(t, f, vfs.To("mem:///tree/deep/two"), "2")

	require.NoError(t, f.Copy(ctx, vfs.To("mem:///tree"), vfs.To("blob:///copy"), true))
	got, err := f.ReadAll(ctx, vfs.To("blob:///copy/deep/two"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	require.NoError(t, f.Remove(ctx, vfs.To("blob:///copy"), true, false))
	assert.False(t, f.Exists(ctx, vfs.To("blob:///copy/one")))
	assert.False(t, f.Exists(ctx, vfs.To("blob:///copy/deep/two")))
}

func TestMoveIsCopyThenDelete(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	mustWrite(t, f, vfs.To("mem:///stage/part-0"), "payload")

	require.NoError(t, f.Move(ctx, vfs.To("mem:///stage"), vfs.To("mem:///final")))

	got, err := f.ReadAll(ctx, vfs.To("mem:///final/part-0"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
	assert.False(t, f.Exists(ctx, vfs.To("mem:///stage")))
}

func TestRemoveMissingRespectsIgnoreFlag(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	missing := vfs.To("mem:///never/was")
	assert.NoError(t, f.Remove(ctx, missing, false, true))
	assert.ErrorIs(t, f.Remove(ctx, missing, false, false), vfs.ErrNotFound)
}

func TestDirectorylessBackendListsEmptyNotError(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	kids, err := f.List(ctx, vfs.To("blob:///no/such/prefix"), false)
	require.NoError(t, err)
	assert.Empty(t, kids)

	// And the coercion points answer false rather than failing.
	assert.False(t, f.Exists(ctx, vfs.To("blob:///no/such/prefix")))
	assert.False(t, f.IsDir(ctx, vfs.To("blob:///no/such/prefix")))
}

func TestExistsCoercesAllErrors(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	// Unknown scheme is a resolution error, still coerced to false.
	assert.False(t, f.Exists(ctx, vfs.To("nope:///x")))
	assert.False(t, f.IsDir(ctx, vfs.To("nope:///x")))
}

func TestWalkOrdering(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	mustWrite(t, f, vfs.To("mem:///w/a.txt"), "a")
	mustWrite(t, f, vfs.To("mem:///w/sub/b.txt"), "b")

	groups, err := f.Walk(ctx, vfs.To("mem:///w"), true)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "/w", groups[0].Dir.Path())
	require.Len(t, groups[0].Files, 1)
	assert.Equal(t, "a.txt", groups[0].Files[0].Basename())
	require.Len(t, groups[0].Dirs, 1)
	assert.Equal(t, "sub", groups[0].Dirs[0].Basename())

	assert.Equal(t, "/w/sub", groups[1].Dir.Path())

	// Bottom-up yields the same groups in reverse parent order.
	up, err := f.Walk(ctx, vfs.To("mem:///w"), false)
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, "/w/sub", up[0].Dir.Path())
	assert.Equal(t, "/w", up[1].Dir.Path())
}

func TestDiskUsage(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	mustWrite(t, f, vfs.To("mem:///du/a"), "12345")
	mustWrite(t, f, vfs.To("mem:///du/deep/b"), "123")

	total, err := f.DiskUsage(ctx, vfs.To("mem:///du"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)

	// A plain file reports its own size.
	own, err := f.DiskUsage(ctx, vfs.To("mem:///du/a"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), own)
}

func TestDeepMTimeNeverFails(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	oldest, newest := f.DeepMTime(ctx, vfs.To("mem:///ghost"), true)
	assert.True(t, oldest.IsZero())
	assert.True(t, newest.IsZero())

	mustWrite(t, f, vfs.To("mem:///times/x"), "x")
	oldest, newest = f.DeepMTime(ctx, vfs.To("mem:///times"), true)
	assert.False(t, oldest.IsZero())
	assert.False(t, newest.IsZero())
	assert.False(t, newest.Before(oldest))
}

func TestPropertiesDispatch(t *testing.T) {
	f := newTestFS()
	ctx := context.Background()

	target := vfs.To("mem:///props/item")
	mustWrite(t, f, target, "x")

	require.NoError(t, f.AddProperties(ctx, target, map[string]string{"team": "data"}))
	props, err := f.Properties(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, props["team"])

	require.NoError(t, f.DeleteProperties(ctx, target, []string{"team"}))
	props, err = f.Properties(ctx, target)
	require.NoError(t, err)
	assert.Empty(t, props["team"])

	// Backends without a property model answer ErrNotSupported.
	_, err = f.Properties(ctx, vfs.To("blob:///anything"))
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
}

func TestMakeBucketIsNoOpWithoutCapability(t *testing.T) {
	f := newTestFS()
	assert.NoError(t, f.MakeBucket(context.Background(), vfs.To("mem:///bucket")))
}

func TestUnknownSchemeFailsResolution(t *testing.T) {
	f := newTestFS()
	_, err := f.ReadAll(context.Background(), vfs.To("nope:///x"))
	assert.ErrorIs(t, err, vfs.ErrInvalidConfiguration)
}
