package vfs

import (
	"context"
	"io/fs"
)

// Backend is the minimal capability contract one storage system must expose.
//
// The generic algorithms in this package (Copy, Remove, Move, Walk,
// DiskUsage, ...) are built exclusively from these primitives plus the three
// capability predicates, so they behave identically for every backend, even
// ones with no real directories, no atomic overwrite and no permission model.
//
// Semantics the engine depends on:
//
//   - ReadAll / WriteAll move whole files through memory. This is an explicit
//     scalability limit of the facade, not an oversight.
//   - List of a plain file returns the file itself; List of a prefix with no
//     descendants on a directory-less backend returns an empty slice, never
//     an error.
//   - WriteAll with overwrite=false fails with ErrAlreadyExists if the target
//     exists. Backends without atomic create emulate this with an existence
//     probe and document the race.
//   - DeleteOne removes exactly one entry. Missing targets fail with
//     ErrNotFound unless ignoreIfMissing is set.
//
// Capability degradations:
//
//   - SupportsDirectories() == false: MakeDirectory is a no-op and a stat of
//     a bare prefix reports nothing, so IsDir degrades to "has at least one
//     descendant". MakeDirectory followed by IsDir is NOT guaranteed true.
//   - SupportsPermissions() == false: Chmod either no-ops or fails (each
//     backend documents which) and Stat carries a dummy permissive Mode.
//   - SupportsProperties() == false: the PropertyStore interface is absent or
//     its methods fail with ErrNotSupported.
//
// Implementations must be safe for concurrent use; the facade itself performs
// no cross-call coordination on a given URL.
type Backend interface {
	ReadAll(ctx context.Context, u URL) ([]byte, error)
	WriteAll(ctx context.Context, u URL, data []byte, overwrite bool) error
	List(ctx context.Context, u URL, recursive bool) ([]URL, error)
	Stat(ctx context.Context, u URL) (Stat, error)
	MakeDirectory(ctx context.Context, u URL, ignoreIfExists bool) error
	DeleteOne(ctx context.Context, u URL, ignoreIfMissing bool) error
	Chmod(ctx context.Context, u URL, mode fs.FileMode) error

	SupportsDirectories() bool
	SupportsPermissions() bool
	SupportsProperties() bool
}

// RecursiveDeleter is an optional fast path for backends whose native
// transport can delete a whole subtree in one call (e.g. `hdfs dfs -rm -r`).
// The engine discovers it by type assertion and prefers it over the generic
// child-by-child removal.
type RecursiveDeleter interface {
	DeleteTree(ctx context.Context, u URL, ignoreIfMissing bool) error
}

// PropertyStore is the optional key-value property surface of version-control
// style backends (artifact repositories). Values are multi-valued.
type PropertyStore interface {
	Properties(ctx context.Context, u URL) (map[string][]string, error)
	AddProperties(ctx context.Context, u URL, props map[string]string) error
	DeleteProperties(ctx context.Context, u URL, names []string) error
}

// BucketMaker is the optional bucket-creation surface of object stores. The
// URL's path is not used; only the bucket is created. Creating a bucket that
// already exists fails if the backend can detect it.
type BucketMaker interface {
	MakeBucket(ctx context.Context, u URL) error
}
