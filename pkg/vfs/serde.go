package vfs

import (
	"context"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"
)

// Convenience codecs built strictly on ReadAll/WriteAll. Columnar and tabular
// formats are deliberately not handled here; those readers and writers live
// outside the facade and touch it only through the byte-buffer primitives.

// ReadJSON reads and unmarshals one JSON file into v.
func (f *FS) ReadJSON(ctx context.Context, u URL, v any) error {
	data, err := f.ReadAll(ctx, u)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteJSON marshals v and writes it as one JSON file, overwriting.
func (f *FS) WriteJSON(ctx context.Context, u URL, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.WriteAll(ctx, u, data, true)
}

// ReadYAML reads and unmarshals one YAML file into v.
func (f *FS) ReadYAML(ctx context.Context, u URL, v any) error {
	data, err := f.ReadAll(ctx, u)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// WriteYAML marshals v and writes it as one YAML file, overwriting.
func (f *FS) WriteYAML(ctx context.Context, u URL, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return f.WriteAll(ctx, u, data, true)
}

// ReadText decodes the file content as UTF-8 text.
func (f *FS) ReadText(ctx context.Context, u URL) (string, error) {
	data, err := f.ReadAll(ctx, u)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteText encodes text as UTF-8 and writes it, overwriting.
func (f *FS) WriteText(ctx context.Context, u URL, text string) error {
	return f.WriteAll(ctx, u, []byte(text), true)
}

// ForceLocal copies the file (non-recursively) to a fresh local temp file and
// returns its URL, for libraries that only accept local filenames. Deleting
// the temp file afterward is the caller's responsibility.
func (f *FS) ForceLocal(ctx context.Context, u URL) (URL, error) {
	tmp, err := os.CreateTemp("", "lvfs-*")
	if err != nil {
		return URL{}, err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		return URL{}, err
	}
	local := To(name)
	if err := f.Copy(ctx, u, local, false); err != nil {
		return URL{}, err
	}
	return local, nil
}
