package vfs

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLEqualityByRawString(t *testing.T) {
	a := To("hdfs://namenode/data/file.csv")
	b := To("hdfs://namenode/data/file.csv")
	c := To("hdfs://namenode/data/other.csv")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// URLs are usable as map keys; equal raw strings collide.
	seen := map[URL]int{}
	seen[a]++
	seen[b]++
	seen[c]++
	assert.Equal(t, 2, seen[a])
	assert.Equal(t, 1, seen[c])
}

func TestURLComponents(t *testing.T) {
	u := To("hdfs://alice@namenode:8020/data/set/part-0001.parquet")

	assert.Equal(t, "hdfs", u.Scheme())
	assert.Equal(t, "namenode:8020", u.Host())
	assert.Equal(t, "alice", u.User())
	assert.Equal(t, "/data/set/part-0001.parquet", u.Path())
	assert.Equal(t, "part-0001.parquet", u.Basename())
	assert.Equal(t, "/data/set", u.Dirname())
}

func TestURLSchemeDefaultsToFile(t *testing.T) {
	assert.Equal(t, "file", To("/tmp/plain/path").Scheme())
	assert.Equal(t, "file", To("relative/path").Scheme())
	assert.Equal(t, "s3", To("s3://endpoint/bucket/key").Scheme())
}

func TestURLJoin(t *testing.T) {
	base := To("s3://endpoint/bucket/dir")

	assert.Equal(t, "s3://endpoint/bucket/dir/kid", base.Join("kid").Raw())

	// A trailing slash does not produce a double separator.
	assert.Equal(t, "s3://endpoint/bucket/dir/kid", To("s3://endpoint/bucket/dir/").Join("kid").Raw())
}

func TestURLParentKeepsAuthority(t *testing.T) {
	u := To("hdfs://alice@namenode/data/set/file")
	p := u.Parent()

	assert.Equal(t, "/data/set", p.Path())
	assert.Equal(t, "namenode", p.Host())
	assert.Equal(t, "alice", p.User())
}

func TestURLWithUser(t *testing.T) {
	u := To("hdfs://namenode/data/file")

	withUser := u.WithUser("bob")
	assert.Equal(t, "bob", withUser.User())
	assert.Equal(t, u.Path(), withUser.Path())

	// Replacing and removing are both supported.
	assert.Equal(t, "", withUser.WithUser("").User())
	// The original is untouched.
	assert.Equal(t, "", u.User())
}

func TestURLWithPath(t *testing.T) {
	u := To("s3://endpoint/bucket/old/path")
	moved := u.WithPath("/bucket/new/path")

	assert.Equal(t, "/bucket/new/path", moved.Path())
	assert.Equal(t, "endpoint", moved.Host())
	assert.Equal(t, "s3", moved.Scheme())
}

func TestURLSortIsLexicographic(t *testing.T) {
	urls := []URL{
		To("s3://e/b/part-0010"),
		To("s3://e/b/part-0002"),
		To("file:///z"),
		To("file:///a"),
	}
	Sort(urls)

	raws := make([]string, len(urls))
	for i, u := range urls {
		raws[i] = u.Raw()
	}
	require.True(t, sort.StringsAreSorted(raws))
	assert.Equal(t, "file:///a", raws[0])
}

func TestURLUnparseableFallsBackToOpaquePath(t *testing.T) {
	// Control characters make net/url reject the string; it must still
	// behave as a plain path rather than failing.
	u := To("/tmp/odd\x7fname")
	assert.Equal(t, "file", u.Scheme())
	assert.Equal(t, "/tmp/odd\x7fname", u.Path())
}

func TestURLIsZero(t *testing.T) {
	assert.True(t, URL{}.IsZero())
	assert.False(t, To("/x").IsZero())
}
