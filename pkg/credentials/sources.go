package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lowes/lvfs/pkg/vfs"
)

// ErrSourceUnavailable marks a source that could not be read at all (file
// missing, secret store unreachable). The registry skips these and tries the
// next source; any other load error is treated as a malformed source and
// fails fast.
var ErrSourceUnavailable = errors.New("credential source unavailable")

// Source yields zero or more credential entries from one configuration
// location.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Load reads and parses the source. It fails with ErrSourceUnavailable
	// when the location cannot be read, and with ErrInvalidConfiguration when
	// it can be read but is structurally malformed.
	Load() ([]Entry, error)
}

// DefaultSources is the fixed search order: conventional local files first,
// then the Vault secret store.
func DefaultSources() []Source {
	return []Source{
		FileSource{Path: "./lvfs.yml"},
		FileSource{Path: "~/.config/lvfs.yml"},
		FileSource{Path: "/etc/creds/lvfs.yml"},
		FileSource{Path: "/etc/secret/lvfs.yml"},
		VaultSource{},
	}
}

// FileSource reads realms from one local YAML file. The format:
//
//	credentials:
//	  - realm:
//	      backend: hdfscli
//	      host: seattlehighmem001
//	    ssh_username: ltorvalds
//	  - realm:
//	      backend: artifactory
//	      host: artifactory.example.com
//	    username: ltorvalds
//	    password: hunter2
//
// Every credential needs a realm and every realm needs a backend kind; host,
// bucket and path narrow where it applies. All payload keys are
// backend-specific and passed through opaquely.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return s.Path
}

func (s FileSource) Load() ([]Entry, error) {
	p := s.Path
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.Path, err)
		}
		p = filepath.Join(home, p[2:])
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.Path, err)
	}
	entries, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return entries, nil
}

// ParseConfig parses the YAML credential document shared by the file and
// secret-store sources. Structural problems (credentials not a list, a
// credential without a realm, a realm without a backend) fail with
// ErrInvalidConfiguration rather than being skipped.
func ParseConfig(data []byte) ([]Entry, error) {
	var doc struct {
		Credentials []map[string]any `yaml:"credentials"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", vfs.ErrInvalidConfiguration, err)
	}

	entries := make([]Entry, 0, len(doc.Credentials))
	for _, cred := range doc.Credentials {
		rawRealm, ok := cred["realm"]
		if !ok {
			return nil, fmt.Errorf("%w: credential missing realm: %v",
				vfs.ErrInvalidConfiguration, cred)
		}
		realm, err := decodeRealm(rawRealm)
		if err != nil {
			return nil, err
		}
		payload := make(Payload, len(cred))
		for k, v := range cred {
			if k == "realm" {
				continue
			}
			payload[k] = v
		}
		entries = append(entries, Entry{Realm: realm, Payload: payload})
	}
	return entries, nil
}

func decodeRealm(raw any) (Realm, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Realm{}, fmt.Errorf("%w: realm must be a mapping, got %T",
			vfs.ErrInvalidConfiguration, raw)
	}
	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}
	realm := Realm{
		Backend: str("backend"),
		Host:    str("host"),
		Bucket:  str("bucket"),
		Path:    str("path"),
	}
	if realm.Backend == "" {
		return Realm{}, fmt.Errorf("%w: every realm must have a backend kind: %v",
			vfs.ErrInvalidConfiguration, m)
	}
	return realm, nil
}
