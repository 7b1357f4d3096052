// Package gcs serves gs:// URLs against Google Cloud Storage. The URL host
// is the bucket; the path is the object name.
//
// Like any object store it has no directories: MakeDirectory is a no-op,
// missing prefixes list as empty, deletes of missing objects are tolerated
// when asked.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/lowes/lvfs/pkg/credentials"
	"github.com/lowes/lvfs/pkg/vfs"
)

// Backend holds one lazily-created storage client. Credentials come from a
// "gcs" realm when one matches (inline service-account JSON or a key file
// path), otherwise the ambient application-default chain is used.
type Backend struct {
	creds *credentials.Registry

	mu     sync.Mutex
	client *storage.Client
}

func New(creds *credentials.Registry) *Backend {
	if creds == nil {
		creds = credentials.Default()
	}
	return &Backend{creds: creds}
}

func (b *Backend) SupportsDirectories() bool { return false }
func (b *Backend) SupportsPermissions() bool { return false }
func (b *Backend) SupportsProperties() bool  { return false }

func objectName(u vfs.URL) string {
	return strings.TrimPrefix(u.Path(), "/")
}

func (b *Backend) get(ctx context.Context, u vfs.URL) (*storage.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}

	var opts []option.ClientOption
	payload, ok, err := b.creds.Lookup("gcs", u.Host(), u.Host(), u.Path())
	if err != nil {
		return nil, err
	}
	if ok {
		if inline, found := payload.String("service_account_json"); found {
			opts = append(opts, option.WithCredentialsJSON([]byte(inline)))
		} else if file, found := payload.String("service_account_file"); found {
			key, err := os.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("%s: reading service account key %s: %v: %w",
					u, file, err, vfs.ErrInvalidConfiguration)
			}
			opts = append(opts, option.WithCredentialsJSON(key))
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: creating storage client: %v: %w", u, err, vfs.ErrAuthFailed)
	}
	b.client = client
	return client, nil
}

func (b *Backend) ReadAll(ctx context.Context, u vfs.URL) ([]byte, error) {
	client, err := b.get(ctx, u)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(u.Host()).Object(objectName(u)).NewReader(ctx)
	if err != nil {
		return nil, classify(u, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: reading object: %v: %w", u, err, vfs.ErrIO)
	}
	return data, nil
}

func (b *Backend) WriteAll(ctx context.Context, u vfs.URL, data []byte, overwrite bool) error {
	client, err := b.get(ctx, u)
	if err != nil {
		return err
	}
	obj := client.Bucket(u.Host()).Object(objectName(u))
	if !overwrite {
		// DoesNotExist makes the precondition atomic server-side.
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return classify(u, err)
	}
	if err := w.Close(); err != nil {
		return classify(u, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	client, err := b.get(ctx, u)
	if err != nil {
		return nil, err
	}
	prefix := objectName(u)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	query := &storage.Query{Prefix: prefix}
	if !recursive {
		query.Delimiter = "/"
	}

	kids := []vfs.URL{}
	it := client.Bucket(u.Host()).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(u, err)
		}
		if attrs.Prefix != "" {
			kids = append(kids, u.WithPath("/"+strings.TrimSuffix(attrs.Prefix, "/")))
			continue
		}
		kids = append(kids, u.WithPath("/"+attrs.Name))
	}
	return kids, nil
}

func (b *Backend) Stat(ctx context.Context, u vfs.URL) (vfs.Stat, error) {
	client, err := b.get(ctx, u)
	if err != nil {
		return vfs.Stat{}, err
	}
	attrs, err := client.Bucket(u.Host()).Object(objectName(u)).Attrs(ctx)
	if err == nil {
		return vfs.NewStat(vfs.Stat{
			URL:       u,
			Kind:      vfs.KindFile,
			Size:      attrs.Size,
			MTime:     attrs.Updated,
			BirthTime: attrs.Created,
			Mode:      0o777, // no permission model; report world-accessible
		}), nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		// A prefix with objects beneath it reports as a directory.
		prefix := objectName(u)
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		it := client.Bucket(u.Host()).Objects(ctx, &storage.Query{Prefix: prefix})
		if _, nerr := it.Next(); nerr == nil {
			return vfs.NewStat(vfs.Stat{URL: u, Kind: vfs.KindDirectory, Mode: 0o777}), nil
		}
	}
	return vfs.Stat{}, classify(u, err)
}

func (b *Backend) MakeDirectory(ctx context.Context, u vfs.URL, ignoreIfExists bool) error {
	return ctx.Err()
}

func (b *Backend) DeleteOne(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	client, err := b.get(ctx, u)
	if err != nil {
		return err
	}
	err = client.Bucket(u.Host()).Object(objectName(u)).Delete(ctx)
	if err != nil {
		if ignoreIfMissing && errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return classify(u, err)
	}
	return nil
}

func (b *Backend) Chmod(ctx context.Context, u vfs.URL, mode fs.FileMode) error {
	return fmt.Errorf("%s: chmod on object store: %w", u, vfs.ErrNotSupported)
}

// MakeBucket creates the URL's bucket. The project must be named in the
// realm payload since GCS buckets live under a project, not an endpoint.
func (b *Backend) MakeBucket(ctx context.Context, u vfs.URL) error {
	client, err := b.get(ctx, u)
	if err != nil {
		return err
	}
	payload, ok, err := b.creds.Lookup("gcs", u.Host(), u.Host(), u.Path())
	if err != nil {
		return err
	}
	project := ""
	if ok {
		project, _ = payload.String("project")
	}
	if project == "" {
		return fmt.Errorf("%s: bucket creation needs a project in the credential realm: %w",
			u, vfs.ErrInvalidConfiguration)
	}
	err = client.Bucket(u.Host()).Create(ctx, project, nil)
	if err != nil {
		return classify(u, err)
	}
	return nil
}

func classify(u vfs.URL, err error) error {
	// A failed DoesNotExist precondition comes back from the API as a 412,
	// not as a sentinel of the storage package.
	var gerr *googleapi.Error
	switch {
	case errors.Is(err, storage.ErrObjectNotExist), errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	case errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed:
		return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %v: %w", u, err, vfs.ErrIO)
	}
}
