package vfs

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// URL is the string-backed identifier naming a file or directory on any
// backend. It is an immutable value type: every transformation returns a new
// URL, and equality, ordering and map-key behavior are defined solely by the
// raw string. Two URLs with the same raw string are indistinguishable no
// matter which backend they resolve to.
//
// None of its methods perform I/O. Resolution to a backend happens in
// Registry; all the parsing here is lazy and derived from the raw string on
// every call.
//
// URLs are always absolute, so there is deliberately no way to join two URLs:
// Join accepts only a plain string segment, making "join a URL onto a URL" a
// compile-time type error.
type URL struct {
	raw string
}

// To wraps a raw string as a URL. It never fails: scheme-less strings are
// treated as local paths at resolution time.
func To(raw string) URL {
	return URL{raw: raw}
}

// Raw returns the exact string the URL was built from.
func (u URL) Raw() string {
	return u.raw
}

func (u URL) String() string {
	return u.raw
}

// IsZero reports whether the URL is the zero value (empty raw string).
func (u URL) IsZero() bool {
	return u.raw == ""
}

// parse splits the raw string into URI components. Parse failures degrade to
// an empty result rather than an error: a raw string that net/url rejects is
// still a usable opaque local path.
func (u URL) parse() *url.URL {
	p, err := url.Parse(u.raw)
	if err != nil {
		return &url.URL{Path: u.raw}
	}
	return p
}

// Scheme returns the URL scheme, or "file" if none.
func (u URL) Scheme() string {
	if s := u.parse().Scheme; s != "" {
		return s
	}
	return "file"
}

// Host returns the host (with port if present), or the bucket name for
// object-store URLs that put the bucket in the authority.
func (u URL) Host() string {
	return u.parse().Host
}

// User returns the username from the authority, or "" if none.
func (u URL) User() string {
	if ui := u.parse().User; ui != nil {
		return ui.Username()
	}
	return ""
}

// Path returns just the path component.
func (u URL) Path() string {
	return u.parse().Path
}

// Basename returns the terminal path segment.
func (u URL) Basename() string {
	return path.Base(u.Path())
}

// Dirname returns the path of the parent, as a string. See Parent for the
// URL-valued equivalent.
func (u URL) Dirname() string {
	return path.Dir(u.Path())
}

// Parent strips the last path segment, keeping scheme, authority and
// everything else intact.
func (u URL) Parent() URL {
	p := u.parse()
	p.Path = path.Dir(p.Path)
	return URL{raw: p.String()}
}

// Join appends one path segment. Only plain strings are accepted: URLs are
// always absolute, so joining two URLs is not a meaningful operation and the
// signature rejects it at compile time.
func (u URL) Join(segment string) URL {
	return URL{raw: strings.TrimRight(u.raw, "/") + "/" + segment}
}

// WithUser replaces only the user part of the authority. An empty name
// removes the user.
func (u URL) WithUser(name string) URL {
	p := u.parse()
	if name == "" {
		p.User = nil
	} else {
		p.User = url.User(name)
	}
	return URL{raw: p.String()}
}

// WithPath replaces only the path component, preserving scheme and authority.
// Used by Walk to rebuild parent-group URLs from listed children.
func (u URL) WithPath(newPath string) URL {
	p := u.parse()
	p.Path = newPath
	return URL{raw: p.String()}
}

// Sort orders URLs lexicographically by raw string, in place. This is the
// ordering relied on by consumers that visit dataset shards in a stable
// sequence.
func Sort(urls []URL) {
	sort.Slice(urls, func(i, j int) bool { return urls[i].raw < urls[j].raw })
}
