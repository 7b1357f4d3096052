// Package artifactory serves artifactory:// URLs against a JFrog Artifactory
// instance over its REST API.
//
// URL form: artifactory://host/repo/path. Content moves through
// https://host/artifactory{path}; metadata, listings and properties go
// through https://host/artifactory/api/storage{path}.
package artifactory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lowes/lvfs/pkg/credentials"
	"github.com/lowes/lvfs/pkg/vfs"
)

// Backend talks to one or more Artifactory hosts with a shared HTTP client.
// Credentials come from "artifactory" realms: username/password for basic
// auth, or token for a bearer header.
type Backend struct {
	creds  *credentials.Registry
	client *http.Client
}

func New(creds *credentials.Registry) *Backend {
	return NewWithClient(creds, &http.Client{Timeout: 5 * time.Minute})
}

// NewWithClient builds a backend over a caller-supplied HTTP client, for
// custom timeouts or TLS settings.
func NewWithClient(creds *credentials.Registry, client *http.Client) *Backend {
	if creds == nil {
		creds = credentials.Default()
	}
	return &Backend{creds: creds, client: client}
}

func (b *Backend) SupportsDirectories() bool { return true }
func (b *Backend) SupportsPermissions() bool { return false }
func (b *Backend) SupportsProperties() bool  { return true }

// scheme is https unless the matching realm opts into plain HTTP, which is
// only sensible for instances on loopback or an isolated network.
func (b *Backend) scheme(u vfs.URL) string {
	payload, ok, err := b.creds.Lookup("artifactory", u.Host(), "", u.Path())
	if err == nil && ok && payload.Bool("plain_http") {
		return "http"
	}
	return "https"
}

func (b *Backend) contentURL(u vfs.URL) string {
	return b.scheme(u) + "://" + u.Host() + "/artifactory" + u.Path()
}

func (b *Backend) storageURL(u vfs.URL) string {
	return b.scheme(u) + "://" + u.Host() + "/artifactory/api/storage" + u.Path()
}

// storageInfo is the api/storage response shape. Size arrives as a JSON
// string, and only files carry it, which is also how files and folders are
// told apart.
type storageInfo struct {
	Created      string `json:"created"`
	LastModified string `json:"lastModified"`
	LastUpdated  string `json:"lastUpdated"`
	Size         string `json:"size"`
	Children     []struct {
		URI    string `json:"uri"`
		Folder bool   `json:"folder"`
	} `json:"children"`
	Properties map[string][]string `json:"properties"`
}

func (b *Backend) do(ctx context.Context, u vfs.URL, method, rawURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", u, err, vfs.ErrIO)
	}

	payload, ok, err := b.creds.Lookup("artifactory", u.Host(), "", u.Path())
	if err != nil {
		return nil, err
	}
	if ok {
		if token, found := payload.String("token"); found {
			req.Header.Set("Authorization", "Bearer "+token)
		} else if user, found := payload.String("username"); found {
			password, _ := payload.String("password")
			req.SetBasicAuth(user, password)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", u, err, vfs.ErrIO)
	}
	if err := classifyStatus(u, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func classifyStatus(u vfs.URL, resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: HTTP %d: %w", u, resp.StatusCode, vfs.ErrAuthFailed)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: HTTP %d: %w", u, resp.StatusCode, vfs.ErrAlreadyExists)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: HTTP %d: %s: %w", u, resp.StatusCode, bytes.TrimSpace(msg), vfs.ErrIO)
	}
}

func (b *Backend) storage(ctx context.Context, u vfs.URL, query string) (storageInfo, error) {
	resp, err := b.do(ctx, u, http.MethodGet, b.storageURL(u)+query, nil)
	if err != nil {
		return storageInfo{}, err
	}
	defer resp.Body.Close()
	var info storageInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return storageInfo{}, fmt.Errorf("%s: decoding storage response: %v: %w", u, err, vfs.ErrIO)
	}
	return info, nil
}

func (b *Backend) ReadAll(ctx context.Context, u vfs.URL) ([]byte, error) {
	resp, err := b.do(ctx, u, http.MethodGet, b.contentURL(u), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %v: %w", u, err, vfs.ErrIO)
	}
	return data, nil
}

func (b *Backend) WriteAll(ctx context.Context, u vfs.URL, data []byte, overwrite bool) error {
	if !overwrite {
		if _, err := b.storage(ctx, u, ""); err == nil {
			return fmt.Errorf("%s: %w", u, vfs.ErrAlreadyExists)
		}
	}
	resp, err := b.do(ctx, u, http.MethodPut, b.contentURL(u), bytes.NewReader(data))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (b *Backend) List(ctx context.Context, u vfs.URL, recursive bool) ([]vfs.URL, error) {
	info, err := b.storage(ctx, u, "")
	if err != nil {
		return nil, err
	}
	if info.Size != "" {
		// A file lists as itself.
		return []vfs.URL{u}, nil
	}

	kids := []vfs.URL{}
	for _, child := range info.Children {
		kid := u.WithPath(u.Path() + child.URI)
		kids = append(kids, kid)
		if recursive && child.Folder {
			sub, err := b.List(ctx, kid, true)
			if err != nil {
				return nil, err
			}
			kids = append(kids, sub...)
		}
	}
	return kids, nil
}

func (b *Backend) Stat(ctx context.Context, u vfs.URL) (vfs.Stat, error) {
	info, err := b.storage(ctx, u, "")
	if err != nil {
		return vfs.Stat{}, err
	}

	// No permission model; report world-accessible so mode checks pass.
	st := vfs.Stat{URL: u, Kind: vfs.KindDirectory, Mode: 0o777}
	if info.Size != "" {
		st.Kind = vfs.KindFile
		st.Size, err = strconv.ParseInt(info.Size, 10, 64)
		if err != nil {
			return vfs.Stat{}, fmt.Errorf("%s: bad size %q in storage response: %w", u, info.Size, vfs.ErrIO)
		}
	}
	if t, err := time.Parse(time.RFC3339, info.LastModified); err == nil {
		st.MTime = t
	}
	if t, err := time.Parse(time.RFC3339, info.Created); err == nil {
		st.BirthTime = t
	}
	return vfs.NewStat(st), nil
}

// MakeDirectory creates a folder by deploying to the path with a trailing
// slash. Artifactory treats re-creating an existing folder as success.
func (b *Backend) MakeDirectory(ctx context.Context, u vfs.URL, ignoreIfExists bool) error {
	resp, err := b.do(ctx, u, http.MethodPut, b.contentURL(u)+"/", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (b *Backend) DeleteOne(ctx context.Context, u vfs.URL, ignoreIfMissing bool) error {
	resp, err := b.do(ctx, u, http.MethodDelete, b.contentURL(u), nil)
	if err != nil {
		if ignoreIfMissing && errors.Is(err, vfs.ErrNotFound) {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

// Chmod does nothing: artifact repositories have no permission bits, but
// deployment scripts chmod unconditionally after uploads, so failing here
// would make every such script branch on the backend.
func (b *Backend) Chmod(ctx context.Context, u vfs.URL, mode fs.FileMode) error {
	return ctx.Err()
}

// Properties returns the item's property map. An item with no properties at
// all comes back from the API as a 404, which here is just an empty map as
// long as the item itself exists.
func (b *Backend) Properties(ctx context.Context, u vfs.URL) (map[string][]string, error) {
	info, err := b.storage(ctx, u, "?properties")
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			if _, statErr := b.storage(ctx, u, ""); statErr == nil {
				return map[string][]string{}, nil
			}
		}
		return nil, err
	}
	return info.Properties, nil
}

// escapeProperty backslash-escapes the characters the property matrix
// parameter syntax reserves.
func escapeProperty(s string) string {
	r := strings.NewReplacer(`\`, `\\`, ",", `\,`, "|", `\|`, "=", `\=`)
	return r.Replace(s)
}

func (b *Backend) AddProperties(ctx context.Context, u vfs.URL, props map[string]string) error {
	if len(props) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(props))
	for k, v := range props {
		pairs = append(pairs, escapeProperty(k)+"="+escapeProperty(v))
	}
	resp, err := b.do(ctx, u, http.MethodPut,
		b.storageURL(u)+"?properties="+strings.Join(pairs, "|"), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (b *Backend) DeleteProperties(ctx context.Context, u vfs.URL, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	escaped := make([]string, 0, len(keys))
	for _, k := range keys {
		escaped = append(escaped, escapeProperty(k))
	}
	resp, err := b.do(ctx, u, http.MethodDelete,
		b.storageURL(u)+"?properties="+strings.Join(escaped, ","), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
