package files

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/rokeller/hashup/uploading"
	"github.com/spf13/afero"
)

type fileStorageProvider struct {
	fs         afero.Fs
	targetRoot string
}

// NewFileStorageProvider creates a provider that mirrors the blob layout in a
// local directory. Useful for dry runs and for staging uploads.
func NewFileStorageProvider(fsys afero.Fs, targetRoot string) uploading.StorageProvider {
	return fileStorageProvider{fs: fsys, targetRoot: targetRoot}
}

// EnsureContainer implements uploading.StorageProvider.
func (p fileStorageProvider) EnsureContainer(ctx context.Context) error {
	if err := p.fs.MkdirAll(p.targetRoot, 0700); nil != err {
		return err
	}

	glog.V(1).Infof("Upload target directory is '%s'.", p.targetRoot)

	return nil
}

// Exists implements uploading.StorageProvider.
func (p fileStorageProvider) Exists(ctx context.Context, blobPath string) (bool, error) {
	return afero.Exists(p.fs, p.fullPath(blobPath))
}

// Upload implements uploading.StorageProvider.
func (p fileStorageProvider) Upload(ctx context.Context, blobPath string, r io.Reader) error {
	targetFile, err := p.create(blobPath)
	if nil != err {
		return err
	}
	defer targetFile.Close()

	if _, err = io.Copy(targetFile, r); nil != err {
		return err
	}

	return targetFile.Close()
}

// ReadManifest implements uploading.StorageProvider.
func (p fileStorageProvider) ReadManifest(ctx context.Context, blobPath string) (io.ReadCloser, error) {
	file, err := p.fs.Open(p.fullPath(blobPath))
	if os.IsNotExist(err) {
		return nil, uploading.ManifestNotFound{}
	} else if nil != err {
		return nil, err
	}

	return file, nil
}

// NewManifestWriter implements uploading.StorageProvider.
func (p fileStorageProvider) NewManifestWriter(ctx context.Context, blobPath string) (io.WriteCloser, error) {
	return p.create(blobPath)
}

func (p fileStorageProvider) create(blobPath string) (afero.File, error) {
	fullPath := p.fullPath(blobPath)
	if err := p.fs.MkdirAll(filepath.Dir(fullPath), 0700); nil != err {
		return nil, err
	}

	return p.fs.Create(fullPath)
}

func (p fileStorageProvider) fullPath(blobPath string) string {
	return filepath.Join(p.targetRoot, filepath.FromSlash(blobPath))
}
