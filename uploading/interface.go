package uploading

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// ManifestNotFound defines the error that is raised when a target does not
// have a manifest yet.
type ManifestNotFound struct{}

func (ManifestNotFound) Error() string {
	return "the manifest was not found in the upload target"
}

// ErrExists is returned by Upload when the target blob already exists and
// overwriting is disabled.
var ErrExists = errors.New("the blob already exists in the upload target")

// StorageProvider is the destination of uploads. Blob paths are
// slash-separated and relative to the container (or target directory).
type StorageProvider interface {
	// EnsureContainer creates the container when it doesn't exist yet.
	EnsureContainer(ctx context.Context) error
	Exists(ctx context.Context, blobPath string) (bool, error)
	Upload(ctx context.Context, blobPath string, r io.Reader) error

	// When the target does not have a manifest at blobPath, the error must be
	// uploading.ManifestNotFound{}.
	ReadManifest(ctx context.Context, blobPath string) (io.ReadCloser, error)
	NewManifestWriter(ctx context.Context, blobPath string) (io.WriteCloser, error)
}
