package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowes/lvfs/pkg/vfs"
)

func TestRegistrationOrderIsSpecificity(t *testing.T) {
	r := NewRegistry(emptySource{})

	r.Register(Payload{"who": "specific"}, Realm{Backend: "s3", Host: "minio.internal", Bucket: "raw"})
	r.Register(Payload{"who": "general"}, Realm{Backend: "s3"})

	p, err := r.Match("s3", "minio.internal", "raw", "/raw/key")
	require.NoError(t, err)
	who, _ := p.String("who")
	assert.Equal(t, "specific", who)

	// Anything the specific realm does not cover falls through to the
	// general one.
	p, err = r.Match("s3", "other.host", "other", "/other/key")
	require.NoError(t, err)
	who, _ = p.String("who")
	assert.Equal(t, "general", who)
}

func TestGeneralRegisteredFirstShadowsSpecific(t *testing.T) {
	r := NewRegistry(emptySource{})

	// The registry does no specificity scoring: whoever registers first
	// wins, even against a more precise realm registered later.
	r.Register(Payload{"who": "general"}, Realm{Backend: "s3"})
	r.Register(Payload{"who": "specific"}, Realm{Backend: "s3", Host: "minio.internal"})

	p, err := r.Match("s3", "minio.internal", "raw", "/raw/key")
	require.NoError(t, err)
	who, _ := p.String("who")
	assert.Equal(t, "general", who)
}

func TestRealmMatchingRules(t *testing.T) {
	r := NewRegistry(emptySource{})
	r.Register(Payload{"ok": "yes"}, Realm{
		Backend: "artifactory",
		Host:    "ARTIFACTORY.Example.COM",
		Path:    "/repo/team-a",
	})

	// Host comparison is case-insensitive in both directions.
	_, err := r.Match("artifactory", "artifactory.example.com", "", "/repo/team-a/dir/file")
	assert.NoError(t, err)

	// Backend kind is case-sensitive.
	_, err = r.Match("Artifactory", "artifactory.example.com", "", "/repo/team-a/x")
	assert.ErrorIs(t, err, ErrNoRealm)

	// Path is a literal prefix.
	_, err = r.Match("artifactory", "artifactory.example.com", "", "/repo/team-b/x")
	assert.ErrorIs(t, err, ErrNoRealm)
}

func TestLookupDoesNotFailOnNoMatch(t *testing.T) {
	r := NewRegistry(emptySource{})

	p, ok, err := r.Lookup("hdfs", "namenode", "", "/")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestFirstReadableSourceWinsExclusively(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yml")
	second := filepath.Join(dir, "second.yml")
	writeCreds(t, first, "hdfscli", "edge-1", "from-first")
	writeCreds(t, second, "hdfscli", "edge-2", "from-second")

	r := NewRegistry(
		FileSource{Path: filepath.Join(dir, "missing.yml")},
		FileSource{Path: first},
		FileSource{Path: second},
	)

	// The first source's realm loads.
	p, err := r.Match("hdfscli", "edge-1", "", "/")
	require.NoError(t, err)
	user, _ := p.String("ssh_username")
	assert.Equal(t, "from-first", user)

	// The second source never loads, even though it would have matched.
	_, ok, err := r.Lookup("hdfscli", "edge-2", "", "/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInitRunsOnce(t *testing.T) {
	src := &countingSource{}
	r := NewRegistry(src)

	for i := 0; i < 3; i++ {
		_, _, err := r.Lookup("s3", "h", "b", "/p")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.loads, "sources are scanned exactly once")
}

func TestMalformedSourceFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	// A credential with no realm is structural, not skippable.
	require.NoError(t, os.WriteFile(path, []byte("credentials:\n  - username: bob\n"), 0o600))

	r := NewRegistry(FileSource{Path: path})
	_, _, err := r.Lookup("s3", "h", "b", "/p")
	assert.ErrorIs(t, err, vfs.ErrInvalidConfiguration)
}

func TestRegisterWorksWithoutAnySource(t *testing.T) {
	r := NewRegistry(emptySource{})
	r.Register(Payload{"token": "t"}, Realm{Backend: "artifactory"})

	p, err := r.Match("artifactory", "any.host", "", "/any")
	require.NoError(t, err)
	token, _ := p.String("token")
	assert.Equal(t, "t", token)
}

func TestParseConfig(t *testing.T) {
	doc := []byte(`
credentials:
  - realm:
      backend: s3
      host: minio.internal
      bucket: Raw
    access_key: AK
    secret_key: SK
    secure: false
  - realm:
      backend: hdfscli
      host: edge001
    ssh_username: svc-etl
`)
	entries, err := ParseConfig(doc)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "s3", entries[0].Realm.Backend)
	assert.Equal(t, "minio.internal", entries[0].Realm.Host)
	ak, _ := entries[0].Payload.String("access_key")
	assert.Equal(t, "AK", ak)
	assert.False(t, entries[0].Payload.Bool("secure"))

	assert.Equal(t, "hdfscli", entries[1].Realm.Backend)
	user, _ := entries[1].Payload.String("ssh_username")
	assert.Equal(t, "svc-etl", user)
}

func TestParseConfigRejectsRealmWithoutBackend(t *testing.T) {
	doc := []byte("credentials:\n  - realm:\n      host: somewhere\n    key: v\n")
	_, err := ParseConfig(doc)
	assert.ErrorIs(t, err, vfs.ErrInvalidConfiguration)
}

// emptySource loads successfully with zero realms, pinning tests to
// explicitly registered entries only.
type emptySource struct{}

func (emptySource) Name() string           { return "empty" }
func (emptySource) Load() ([]Entry, error) { return nil, nil }

type countingSource struct {
	loads int
}

func (c *countingSource) Name() string { return "counting" }
func (c *countingSource) Load() ([]Entry, error) {
	c.loads++
	return nil, nil
}

func writeCreds(t *testing.T, path, backend, host, user string) {
	t.Helper()
	doc := fmt.Sprintf("credentials:\n  - realm:\n      backend: %s\n      host: %s\n    ssh_username: %s\n",
		backend, host, user)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}
