package domain

import "path"

// Entry represents a local file found for upload.
type Entry struct {
	// RelPath is the slash-separated path relative to the source directory.
	RelPath string
	EntryMetadata
}

// EntryMetadata holds the metadata for a local file.
type EntryMetadata struct {
	Size      int64
	Timestamp int64
}

// Name returns the base name of the entry, which is what the blob prefix is
// derived from.
func (e Entry) Name() string {
	return path.Base(e.RelPath)
}

// ManifestEntry records where a local file was uploaded to.
type ManifestEntry struct {
	Source   string
	BlobPath string
	Size     int64
	Uploaded int64
}
