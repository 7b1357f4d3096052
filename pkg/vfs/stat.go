package vfs

import (
	"io/fs"
	"time"
)

// Kind classifies a filesystem entry.
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindDirectory
	KindSymlink
	KindDevice
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindDevice:
		return "device"
	default:
		return "unknown"
	}
}

// ParseKind maps a backend's textual kind ("file", "directory", ...) to a
// Kind, case-insensitively. Unrecognized values become KindUnknown.
func ParseKind(s string) Kind {
	switch s {
	case "file", "FILE", "regular file":
		return KindFile
	case "directory", "DIRECTORY":
		return KindDirectory
	case "symlink", "SYMLINK":
		return KindSymlink
	case "device", "DEVICE":
		return KindDevice
	default:
		return KindUnknown
	}
}

// Stat is the result of a stat call on any backend.
//
// Timestamps a backend could not supply are backfilled from whichever other
// timestamp is available, in a fixed priority order, so a caller never
// observes a zero timestamp as long as the backend reported at least one.
// Backends without a permission model report a best-effort dummy Mode
// (typically 0o777) rather than leaving it empty.
//
// Stats are constructed fresh on every call and never cached by this package.
type Stat struct {
	URL       URL
	Kind      Kind
	Size      int64
	ATime     time.Time
	MTime     time.Time
	CTime     time.Time
	BirthTime time.Time
	Mode      fs.FileMode
}

// NewStat applies the timestamp fallback chain to a raw stat:
// atime <- mtime <- ctime <- birthtime, and symmetrically for the others.
func NewStat(s Stat) Stat {
	s.ATime = firstTime(s.ATime, s.MTime, s.CTime, s.BirthTime)
	s.MTime = firstTime(s.MTime, s.CTime, s.BirthTime, s.ATime)
	s.CTime = firstTime(s.CTime, s.BirthTime, s.MTime, s.ATime)
	s.BirthTime = firstTime(s.BirthTime, s.CTime, s.MTime, s.ATime)
	return s
}

func firstTime(candidates ...time.Time) time.Time {
	for _, t := range candidates {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
