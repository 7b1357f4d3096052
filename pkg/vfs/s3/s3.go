// Package s3 serves s3:// and minio:// URLs against Amazon S3 and
// S3-compatible object stores.
//
// URL form: s3://endpoint[:port]/bucket/key. An empty endpoint means real
// AWS; anything else is taken as a custom endpoint (MinIO, Localstack) and
// forces path-style addressing.
//
// Object stores have no directories. MakeDirectory succeeds without doing
// anything, listing a nonexistent prefix yields an empty slice, and deleting
// a missing object is not an error. The generic layer above is written to
// tolerate exactly these degradations.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lowes/lvfs/pkg/credentials"
	"github.com/lowes/lvfs/pkg/vfs"
)

// deleteBatchSize is the S3 DeleteObjects limit per request.
const deleteBatchSize = 1000

// Backend implements the backend contract over the AWS SDK. Clients are
// created lazily and cached per endpoint, since every client construction
// walks the full AWS credential chain.
type Backend struct {
	creds *credentials.Registry

	// Region is the fallback AWS region for realms that do not name one.
	// Set it before the first operation; client construction reads it once.
	Region string

	mu      sync.Mutex
	clients map[string]*s3.Client
}

func New(creds *credentials.Registry) *Backend {
	if creds == nil {
		creds = credentials.Default()
	}
	return &Backend{creds: creds, clients: make(map[string]*s3.Client)}
}

func (b *Backend) SupportsDirectories() bool { return false }
func (b *Backend) SupportsPermissions() bool { return false }
func (b *Backend) SupportsProperties() bool  { return false }

// splitBucketKey takes the first path segment as the bucket and the rest as
// the object key.
func splitBucketKey(u vfs.URL) (bucket, key string, err error) {
	p := strings.TrimPrefix(u.Path(), "/")
	if p == "" {
		return "", "", fmt.Errorf("%s: no bucket in URL: %w", u, vfs.ErrInvalidConfiguration)
	}
	bucket, key, _ = strings.Cut(p, "/")
	return bucket, key, nil
}

// client returns the cached client for the URL's endpoint, building it the
// first time from the matching credential realm.
func (b *Backend) client(ctx context.Context, u vfs.URL, bucket string) (*s3.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clients[u.Host()]; ok {
		return c, nil
	}

	payload, err := b.creds.Match("s3", u.Host(), bucket, u.Path())
	if err != nil && !errors.Is(err, credentials.ErrNoRealm) {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	region, _ := payload.String("region")
	if region == "" {
		region = b.Region
	}
	if region == "" {
		region = "us-east-1"
	}
	opts = append(opts, awsconfig.WithRegion(region))

	if accessKey, ok := payload.String("access_key"); ok {
		secretKey, _ := payload.String("secret_key")
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: loading AWS config: %v: %w", u, err, vfs.ErrInvalidConfiguration)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if u.Host() != "" {
			scheme := "https"
			if v, ok := payload["secure"].(bool); ok && !v {
				scheme = "http"
			}
			o.BaseEndpoint = aws.String(scheme + "://" + u.Host())
			o.UsePathStyle = true
		}
	})
	b.clients[u.Host()] = client
	return client, nil
}

func (b *Backend) ReadAll(ctx context.Context, u vfs.URL) ([]byte, error) {
	bucket, key, err := splitBucketKey(u)
	if err != nil {
		return nil, err
	}
	client, err := b.client(ctx, u, bucket)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(u, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading object body: %v: %w", u, err, vfs.ErrIO)
	}
	return data, nil
}

// WriteAll uploads the object. With overwrite=false an existence probe runs
// first; the probe and the put are not atomic, so a concurrent writer can
// still win the race.
func (b *Backend) WriteAll(ctx context.Context, u vfs.URL, data []byte, overwrite bool) error {
	bucket, key, err := splitBucketKey(u)
	if err != nil {
		return err
	}
	client, err := b.client(ctx, u, bucket)
	if err != nil {
		return err
	}
	if !overwrite {
		_, err := client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
		}
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return classify(u, err)
	}
	return nil
}

// List enumerates keys under the URL's prefix. Non-recursive listings use a
// "/" delimiter, so synthetic directory entries show up as their common
// prefixes with the trailing slash removed.
func (b *Backend) List(ctx context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	bucket, key, err := splitBucketKey(u)
	if err != nil {
		return nil, err
	}
	client, err := b.client(ctx, u, bucket)
	if err != nil {
		return nil, err
	}

	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var kids []vfs.URL
	paginator := s3.NewListObjectsV2Paginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(u, err)
		}
		for _, obj := range page.Contents {
			kids = append(kids, u.WithPath("/"+bucket+"/"+aws.ToString(obj.Key)))
		}
		for _, cp := range page.CommonPrefixes {
			dir := strings.TrimSuffix(aws.ToString(cp.Prefix), "/")
			kids = append(kids, u.WithPath("/"+bucket+"/"+dir))
		}
	}
	if kids == nil {
		kids = []vfs.URL{}
	}
	return kids, nil
}

// Stat heads the object. A key with no object but with keys beneath it
// reports as a directory, so prefix-shaped URLs behave sensibly in the
// generic algorithms.
func (b *Backend) Stat(ctx context.Context, u vfs.URL) (vfs.Stat, error) {
	bucket, key, err := splitBucketKey(u)
	if err != nil {
		return vfs.Stat{}, err
	}
	client, err := b.client(ctx, u, bucket)
	if err != nil {
		return vfs.Stat{}, err
	}

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return vfs.NewStat(vfs.Stat{
			URL:   u,
			Kind:  vfs.KindFile,
			Size:  aws.ToInt64(head.ContentLength),
			MTime: aws.ToTime(head.LastModified),
			Mode:  0o777, // no permission model; report world-accessible
		}), nil
	}

	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	list, lerr := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if lerr == nil && aws.ToInt32(list.KeyCount) > 0 {
		return vfs.NewStat(vfs.Stat{URL: u, Kind: vfs.KindDirectory, Mode: 0o777}), nil
	}
	return vfs.Stat{}, classify(u, err)
}

// MakeDirectory is a no-op: prefixes spring into existence with the first
// object written under them.
func (b *Backend) MakeDirectory(ctx context.Context, u vfs.URL, ignoreIfExists bool) error {
	return ctx.Err()
}

// DeleteOne removes a single object. S3 deletes are idempotent and never
// report a missing key, so ignoreIfMissing has nothing to do here.
func (b *Backend) DeleteOne(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	bucket, key, err := splitBucketKey(u)
	if err != nil {
		return err
	}
	client, err := b.client(ctx, u, bucket)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify(u, err)
	}
	return nil
}

// DeleteTree removes every key under the prefix in batched DeleteObjects
// calls instead of one round trip per object. Deleting a prefix with no keys
// is a no-op either way; ignoreIfMissing has no extra work to do.
func (b *Backend) DeleteTree(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	bucket, key, err := splitBucketKey(u)
	if err != nil {
		return err
	}
	client, err := b.client(ctx, u, bucket)
	if err != nil {
		return err
	}

	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	var batch []types.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		batch = batch[:0]
		if err != nil {
			return classify(u, err)
		}
		return nil
	}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classify(u, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	// The prefix root may be a real zero-byte object too.
	return b.DeleteOne(ctx, u, true)
}

func (b *Backend) Chmod(ctx context.Context, u vfs.URL, mode fs.FileMode) error {
	return fmt.Errorf("%s: chmod on object store: %w", u, vfs.ErrNotSupported)
}

// MakeBucket creates the URL's bucket, tolerating one we already own.
func (b *Backend) MakeBucket(ctx context.Context, u vfs.URL) error {
	bucket, _, err := splitBucketKey(u)
	if err != nil {
		return err
	}
	client, err := b.client(ctx, u, bucket)
	if err != nil {
		return err
	}
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return nil
	}
	if err != nil {
		return classify(u, err)
	}
	return nil
}

// classify maps SDK error types onto the facade taxonomy.
func classify(u vfs.URL, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound), errors.As(err, &noBucket):
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	default:
		return fmt.Errorf("%s: %v: %w", u, err, vfs.ErrIO)
	}
}
