package hdfscli

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/lowes/lvfs/pkg/vfs"
)

// `hdfs dfs -stat '%y'` prints mtimes in this layout, always UTC.
const statTimeLayout = "2006-01-02 15:04:05"

// parseLS extracts paths from `hdfs dfs -ls` output. Each entry line has
// eight whitespace-separated columns (mode, replication, owner, group, size,
// date, time, path); the path is everything from the eighth column on, since
// HDFS paths may contain spaces. The "Found N items" header and blank lines
// are skipped.
func parseLS(out []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Found ") {
			continue
		}
		if len(strings.Fields(line)) < 8 {
			continue
		}
		// Skip the seven metadata columns positionally so a path with
		// interior runs of spaces survives, and so column values that
		// happen to recur later in the line cannot mislead the split.
		if p := pathColumn(line, 7); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// pathColumn returns the remainder of line after its first skip
// whitespace-separated columns, trimmed of leading whitespace.
func pathColumn(line string, skip int) string {
	rest := line
	for i := 0; i < skip; i++ {
		rest = strings.TrimLeft(rest, " \t")
		j := strings.IndexAny(rest, " \t")
		if j < 0 {
			return ""
		}
		rest = rest[j:]
	}
	return strings.TrimLeft(rest, " \t")
}

// parseStat converts one `hdfs dfs -stat '%b|%y|%F'` line into a Stat.
func parseStat(line string, u vfs.URL) (vfs.Stat, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 3 {
		return vfs.Stat{}, fmt.Errorf("%s: unexpected stat output %q: %w", u, line, vfs.ErrIO)
	}
	size, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return vfs.Stat{}, fmt.Errorf("%s: bad size in stat output %q: %w", u, line, vfs.ErrIO)
	}
	mtime, err := time.ParseInLocation(statTimeLayout, parts[1], time.UTC)
	if err != nil {
		return vfs.Stat{}, fmt.Errorf("%s: bad mtime in stat output %q: %w", u, line, vfs.ErrIO)
	}
	kind := vfs.KindFile
	if strings.Contains(parts[2], "directory") {
		kind = vfs.KindDirectory
	}
	return vfs.Stat{URL: u, Kind: kind, Size: size, MTime: mtime}, nil
}

// parseModeLine reads the symbolic mode column from an `hdfs dfs -ls -d`
// entry and converts it to permission bits. Only the last nine characters
// are permission flags; the leading character is the entry type and must not
// be counted.
func parseModeLine(out string) (fs.FileMode, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Found ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}
		return parseSymbolicMode(fields[0])
	}
	return 0, false
}

// parseSymbolicMode converts e.g. "drwxr-x--x" or "-rw-r--r--" to 0o751 or
// 0o644. HDFS may append a '+' ACL marker, which is ignored. The setuid,
// setgid and sticky forms carry two facts in one character: lowercase
// ('s'/'t') means the execute bit is also set, uppercase ('S'/'T') means it
// is not.
func parseSymbolicMode(s string) (fs.FileMode, bool) {
	s = strings.TrimSuffix(s, "+")
	if len(s) < 9 {
		return 0, false
	}
	perms := s[len(s)-9:]
	var mode fs.FileMode
	for i, c := range perms {
		switch c {
		case '-', 'S', 'T':
		default:
			mode |= 1 << (8 - i)
		}
		switch {
		case i == 2 && (c == 's' || c == 'S'):
			mode |= fs.ModeSetuid
		case i == 5 && (c == 's' || c == 'S'):
			mode |= fs.ModeSetgid
		case i == 8 && (c == 't' || c == 'T'):
			mode |= fs.ModeSticky
		}
	}
	return mode, true
}
