package uploading

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rokeller/hashup/domain"
	"github.com/rokeller/hashup/partition"
	"github.com/rokeller/hashup/prefix"
	"github.com/spf13/afero"
)

// Options controls how an Uploader treats existing blobs and the manifest.
type Options struct {
	// Overwrite replaces blobs that already exist. When unset, existing blobs
	// are left alone and Upload returns ErrExists.
	Overwrite bool
	// Manifest records every upload in the partition's manifest blob, which
	// is merged and rewritten by Close.
	Manifest bool
}

// Uploader uploads local files to a storage provider under hash-derived
// prefixes.
type Uploader struct {
	fs        afero.Fs
	root      string
	generator *prefix.Generator
	partition partition.Partition
	provider  StorageProvider
	opts      Options

	manifest *Manifest
	mutex    sync.Mutex
	uploaded []domain.ManifestEntry
	claimed  map[string]string
	now      func() time.Time
}

// PathConflictError is returned by Claim when a second file maps to a blob
// path that another file of the same run already holds. This happens with
// equal names in different sub directories.
type PathConflictError struct {
	BlobPath string
	Source   string
	Holder   string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("'%s' maps to blob '%s', which is already taken by '%s'", e.Source, e.BlobPath, e.Holder)
}

// NewUploader creates an uploader for files below root on fsys.
func NewUploader(
	fsys afero.Fs,
	root string,
	generator *prefix.Generator,
	p partition.Partition,
	provider StorageProvider,
	opts Options,
) *Uploader {
	return &Uploader{
		fs:        fsys,
		root:      root,
		generator: generator,
		partition: p,
		provider:  provider,
		opts:      opts,
		manifest:  NewManifest(),
		claimed:   make(map[string]string),
		now:       time.Now,
	}
}

// Prepare ensures the target container exists.
func (u *Uploader) Prepare(ctx context.Context) error {
	return u.provider.EnsureContainer(ctx)
}

// BlobPath returns the blob path for a local entry. The error is a
// *prefix.InvalidFilenameError when the entry's name cannot be prefixed.
func (u *Uploader) BlobPath(entry domain.Entry) (string, error) {
	res, err := u.generator.Generate(entry.Name())
	if nil != err {
		return "", err
	}

	return u.partition.Join(res.Path()), nil
}

// Claim reserves the blob path of entry for this run. It fails with a
// *prefix.InvalidFilenameError for unusable names and a *PathConflictError
// when a different file already holds the blob path.
func (u *Uploader) Claim(entry domain.Entry) (string, error) {
	blobPath, err := u.BlobPath(entry)
	if nil != err {
		return "", err
	}

	u.mutex.Lock()
	defer u.mutex.Unlock()

	if holder, found := u.claimed[blobPath]; found && holder != entry.RelPath {
		return blobPath, &PathConflictError{BlobPath: blobPath, Source: entry.RelPath, Holder: holder}
	}
	u.claimed[blobPath] = entry.RelPath

	return blobPath, nil
}

// IsPathConflict reports whether err marks a file whose blob path is taken.
func IsPathConflict(err error) bool {
	var conflictErr *PathConflictError
	return errors.As(err, &conflictErr)
}

// Upload uploads a single entry and returns the blob path it was uploaded to.
func (u *Uploader) Upload(ctx context.Context, entry domain.Entry) (string, error) {
	blobPath, err := u.BlobPath(entry)
	if nil != err {
		return "", err
	}

	if !u.opts.Overwrite {
		exists, err := u.provider.Exists(ctx, blobPath)
		if nil != err {
			return blobPath, errors.Wrapf(err, "checking for blob '%s'", blobPath)
		} else if exists {
			return blobPath, ErrExists
		}
	}

	f, err := u.fs.Open(filepath.Join(u.root, filepath.FromSlash(entry.RelPath)))
	if nil != err {
		return blobPath, err
	}
	defer f.Close()

	if err := u.provider.Upload(ctx, blobPath, f); nil != err {
		return blobPath, errors.Wrapf(err, "uploading '%s' to '%s'", entry.RelPath, blobPath)
	}

	record := domain.ManifestEntry{
		Source:   entry.RelPath,
		BlobPath: blobPath,
		Size:     entry.Size,
		Uploaded: u.now().Unix(),
	}
	u.manifest.Add(record)

	u.mutex.Lock()
	u.uploaded = append(u.uploaded, record)
	u.mutex.Unlock()

	return blobPath, nil
}

// Uploaded returns the files uploaded so far, ordered by source path.
func (u *Uploader) Uploaded() []domain.ManifestEntry {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	uploaded := make([]domain.ManifestEntry, len(u.uploaded))
	copy(uploaded, u.uploaded)
	sort.Slice(uploaded, func(i, j int) bool { return uploaded[i].Source < uploaded[j].Source })

	return uploaded
}

// Close writes the manifest when enabled and anything was uploaded.
func (u *Uploader) Close(ctx context.Context) error {
	if !u.opts.Manifest || 0 == u.manifest.Len() {
		return nil
	}

	manifestPath := ManifestPath(u.partition)
	existing, err := LoadManifest(ctx, u.provider, manifestPath)
	if nil != err {
		return err
	}

	existing.Merge(u.manifest)

	return StoreManifest(ctx, u.provider, manifestPath, existing)
}

// IsInvalidFilename reports whether err marks a file that cannot be prefixed.
func IsInvalidFilename(err error) bool {
	var nameErr *prefix.InvalidFilenameError
	return errors.As(err, &nameErr)
}
