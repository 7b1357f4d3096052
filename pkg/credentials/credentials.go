// Package credentials resolves which credential bundle applies to a given
// backend kind, host, bucket and path prefix.
//
// Realms are kept in one ordered registry: registration order IS the
// specificity ranking. Match returns the payload of the first realm that
// matches, so callers wanting specific-before-general behavior must register
// the specific realms first. This is a deliberate simplification trading
// automatic specificity scoring for predictability, and it is part of the
// documented contract, not an accident.
package credentials

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lowes/lvfs/internal/logger"
)

// ErrNoRealm indicates no registered realm matched the query.
var ErrNoRealm = errors.New("no matching credential realm")

// Realm selects which queries a credential payload applies to. An empty
// field matches any value. Backend is case-sensitive; Host and Bucket are
// case-insensitive (folded to lower case on registration and query); Path is
// a case-sensitive literal prefix of the queried path.
type Realm struct {
	Backend string `yaml:"backend"`
	Host    string `yaml:"host,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

func (r Realm) String() string {
	return fmt.Sprintf("realm{backend=%q host=%q bucket=%q path=%q}",
		r.Backend, r.Host, r.Bucket, r.Path)
}

// Payload is the opaque credential bundle associated with a realm. Keys are
// backend-specific (access_key, ssh_username, password, ...).
type Payload map[string]any

// String fetches a string-valued key.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool fetches a bool-valued key, false when absent or mistyped.
func (p Payload) Bool(key string) bool {
	v, ok := p[key].(bool)
	return ok && v
}

// Entry is one realm with its payload, as produced by a Source.
type Entry struct {
	Realm   Realm
	Payload Payload
}

// Registry is the ordered realm store. It initializes lazily on the first
// query by scanning its sources in order; the first source that can be read
// is used exclusively, even if it yields zero realms. If none are readable
// the registry stays empty and a warning is the only side effect; later
// queries do not re-attempt initialization.
//
// Register may be called before or after lazy init and never clears
// previously loaded realms.
type Registry struct {
	mu            sync.Mutex
	entries       []Entry
	sources       []Source
	initAttempted bool
}

// NewRegistry builds a registry over the given configuration sources. With no
// sources it uses DefaultSources.
func NewRegistry(sources ...Source) *Registry {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	return &Registry{sources: sources}
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry, created once on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register appends a realm with its payload. Duplicates are legal and are
// simply shadowed by whatever was registered before them.
func (r *Registry) Register(payload Payload, realm Realm) {
	realm.Host = strings.ToLower(realm.Host)
	realm.Bucket = strings.ToLower(realm.Bucket)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Realm: realm, Payload: payload})
}

// Match returns the payload of the first realm matching the query, scanning
// in registration order. It fails with ErrNoRealm when nothing matches.
func (r *Registry) Match(backend, host, bucket, path string) (Payload, error) {
	p, ok, err := r.lookup(backend, host, bucket, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w for backend=%q host=%q bucket=%q path=%q",
			ErrNoRealm, backend, host, bucket, path)
	}
	return p, nil
}

// Lookup is the non-failing variant of Match: the second return is false when
// no realm matched. Initialization errors (a malformed source) still fail.
func (r *Registry) Lookup(backend, host, bucket, path string) (Payload, bool, error) {
	return r.lookup(backend, host, bucket, path)
}

func (r *Registry) lookup(backend, host, bucket, path string) (Payload, bool, error) {
	host = strings.ToLower(host)
	bucket = strings.ToLower(bucket)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 && !r.initAttempted {
		if err := r.initLocked(); err != nil {
			return nil, false, err
		}
	}
	for _, e := range r.entries {
		if e.Realm.Backend != backend {
			continue
		}
		if e.Realm.Host != "" && e.Realm.Host != host {
			continue
		}
		if e.Realm.Bucket != "" && e.Realm.Bucket != bucket {
			continue
		}
		if e.Realm.Path != "" && !strings.HasPrefix(path, e.Realm.Path) {
			continue
		}
		return e.Payload, true, nil
	}
	return nil, false, nil
}

// initLocked scans sources in priority order. Unavailable sources are skipped
// with a debug log; a structurally malformed source fails fast rather than
// being silently skipped. Runs at most once per registry.
func (r *Registry) initLocked() error {
	r.initAttempted = true
	for _, src := range r.sources {
		entries, err := src.Load()
		if err != nil {
			if errors.Is(err, ErrSourceUnavailable) {
				logger.Debug("credential source %s not readable: %v", src.Name(), err)
				continue
			}
			return err
		}
		for _, e := range entries {
			e.Realm.Host = strings.ToLower(e.Realm.Host)
			e.Realm.Bucket = strings.ToLower(e.Realm.Bucket)
			r.entries = append(r.entries, e)
		}
		logger.Debug("loaded %d credential realm(s) from %s", len(entries), src.Name())
		return nil
	}
	logger.Warn("no credentials found in any configured source; remote backends will not authenticate")
	return nil
}
