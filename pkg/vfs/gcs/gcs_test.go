package gcs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/lowes/lvfs/pkg/vfs"
)

func TestClassify(t *testing.T) {
	u := vfs.To("gs://bucket/key")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"object missing", storage.ErrObjectNotExist, vfs.ErrNotFound},
		{"bucket missing", storage.ErrBucketNotExist, vfs.ErrNotFound},
		{
			"wrapped object missing",
			fmt.Errorf("closing writer: %w", storage.ErrObjectNotExist),
			vfs.ErrNotFound,
		},
		{
			// The conditional writer (overwrite guard) surfaces an existing
			// object as a failed precondition, not a storage sentinel.
			"failed precondition",
			&googleapi.Error{Code: http.StatusPreconditionFailed, Message: "conditionNotMet"},
			vfs.ErrAlreadyExists,
		},
		{
			"wrapped failed precondition",
			fmt.Errorf("closing writer: %w", &googleapi.Error{Code: http.StatusPreconditionFailed}),
			vfs.ErrAlreadyExists,
		},
		{
			"other api failure",
			&googleapi.Error{Code: http.StatusServiceUnavailable},
			vfs.ErrIO,
		},
		{"unknown failure", errors.New("connection reset"), vfs.ErrIO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(u, tc.err)
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "models/v3/weights.bin", objectName(vfs.To("gs://ml-artifacts/models/v3/weights.bin")))
	assert.Equal(t, "", objectName(vfs.To("gs://ml-artifacts")))
}

func TestCapabilities(t *testing.T) {
	b := New(nil)
	assert.False(t, b.SupportsDirectories())
	assert.False(t, b.SupportsPermissions())
	assert.False(t, b.SupportsProperties())
}
