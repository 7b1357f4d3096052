package hdfscli

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowes/lvfs/pkg/vfs"
)

func TestParseLS(t *testing.T) {
	out := []byte(`Found 3 items
-rw-r--r--   3 svc-etl hadoop    1048576 2024-03-01 12:00 /data/part-0000
drwxr-xr-x   - svc-etl hadoop          0 2024-03-01 12:01 /data/staging
-rw-r--r--   3 svc-etl hadoop        512 2024-03-01 12:02 /data/with space.csv
`)
	paths := parseLS(out)
	require.Len(t, paths, 3)
	assert.Equal(t, "/data/part-0000", paths[0])
	assert.Equal(t, "/data/staging", paths[1])
	assert.Equal(t, "/data/with space.csv", paths[2], "paths keep interior spaces")
}

func TestParseLSOwnerEchoesTimeColumn(t *testing.T) {
	// The owner column can contain the same text as the time column; the
	// path must still be recovered from its own column position.
	out := []byte("-rw-r--r--   3 job12:00 hadoop        512 2024-03-01 12:00 /data/out.csv\n")
	paths := parseLS(out)
	require.Len(t, paths, 1)
	assert.Equal(t, "/data/out.csv", paths[0])
}

func TestParseLSEmptyDirectory(t *testing.T) {
	assert.Empty(t, parseLS([]byte("Found 0 items\n")))
	assert.Empty(t, parseLS(nil))
}

func TestParseStat(t *testing.T) {
	u := vfs.To("hdfscli://edge/data/part-0000")

	st, err := parseStat("1048576|2024-03-01 12:00:05|regular file", u)
	require.NoError(t, err)
	assert.Equal(t, vfs.KindFile, st.Kind)
	assert.Equal(t, int64(1048576), st.Size)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC), st.MTime)

	st, err = parseStat("0|2024-03-01 12:00:05|directory", u)
	require.NoError(t, err)
	assert.Equal(t, vfs.KindDirectory, st.Kind)
}

func TestParseStatRejectsGarbage(t *testing.T) {
	u := vfs.To("hdfscli://edge/x")

	_, err := parseStat("not stat output", u)
	assert.ErrorIs(t, err, vfs.ErrIO)

	_, err = parseStat("huge|2024-03-01 12:00:05|regular file", u)
	assert.ErrorIs(t, err, vfs.ErrIO)
}

func TestParseSymbolicMode(t *testing.T) {
	cases := []struct {
		in   string
		want fs.FileMode
	}{
		{"-rw-r--r--", 0o644},
		{"drwxr-x--x", 0o751},
		{"drwxrwxrwx", 0o777},
		{"----------", 0o000},
		// ACL marker is ignored; type char is never counted as a bit.
		{"-rw-rw-r--+", 0o664},
		// Lowercase setuid/setgid/sticky include the execute bit,
		// uppercase means the special bit without execute.
		{"-rwsr-xr-x", 0o755 | fs.ModeSetuid},
		{"-rwSr--r--", 0o644 | fs.ModeSetuid},
		{"-rwxr-sr--", 0o754 | fs.ModeSetgid},
		{"drwxrwxrwt", 0o777 | fs.ModeSticky},
		{"drwxrwxrwT", 0o776 | fs.ModeSticky},
	}
	for _, tc := range cases {
		mode, ok := parseSymbolicMode(tc.in)
		require.True(t, ok, tc.in)
		assert.Equal(t, tc.want, mode, tc.in)
	}

	_, ok := parseSymbolicMode("rw-")
	assert.False(t, ok)
}

func TestParseModeLine(t *testing.T) {
	out := "drwxr-xr-x   - svc-etl hadoop          0 2024-03-01 12:01 /data/staging\n"
	mode, ok := parseModeLine(out)
	require.True(t, ok)
	assert.Equal(t, fs.FileMode(0o755), mode)

	_, ok = parseModeLine("Found 0 items\n")
	assert.False(t, ok)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'/plain/path'", shellQuote("/plain/path"))
	assert.Equal(t, `'/it'\''s here'`, shellQuote("/it's here"))
	assert.Equal(t, "'/with space'", shellQuote("/with space"))
}
