package uploading

import (
	"compress/gzip"
	"context"
	"encoding/binary"
	"io"
	"sort"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/rokeller/hashup/domain"
	"github.com/rokeller/hashup/partition"
	"google.golang.org/protobuf/encoding/protowire"
)

// ManifestName is the name of the manifest blob inside a partition.
const ManifestName = "_manifest.gz"

const (
	fieldSource   protowire.Number = 1
	fieldBlobPath protowire.Number = 2
	fieldSize     protowire.Number = 3
	fieldUploaded protowire.Number = 4
)

// Manifest maps blob paths to the local files uploaded there. It is safe for
// concurrent use.
type Manifest struct {
	mutex   sync.Mutex
	entries map[string]domain.ManifestEntry
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]domain.ManifestEntry)}
}

// ManifestPath returns the blob path of the manifest for a partition.
func ManifestPath(p partition.Partition) string {
	return p.Join(ManifestName)
}

// Add records an entry, replacing any previous entry for the same blob path.
func (m *Manifest) Add(e domain.ManifestEntry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.entries[e.BlobPath] = e
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.entries)
}

// Entries returns all entries ordered by blob path.
func (m *Manifest) Entries() []domain.ManifestEntry {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entries := make([]domain.ManifestEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BlobPath < entries[j].BlobPath })

	return entries
}

// Merge adds all entries of other to m.
func (m *Manifest) Merge(other *Manifest) {
	for _, e := range other.Entries() {
		m.Add(e)
	}
}

// LoadManifest reads the manifest at blobPath. A missing manifest yields an
// empty one.
func LoadManifest(ctx context.Context, provider StorageProvider, blobPath string) (*Manifest, error) {
	r, err := provider.ReadManifest(ctx, blobPath)
	if nil != err {
		if _, ok := errors.Cause(err).(ManifestNotFound); ok {
			glog.V(1).Infof("No manifest at '%s' yet.", blobPath)
			return NewManifest(), nil
		}

		return nil, errors.Wrapf(err, "reading manifest '%s'", blobPath)
	}
	defer r.Close()

	m, err := ReadManifest(r)
	if nil != err {
		return nil, errors.Wrapf(err, "decoding manifest '%s'", blobPath)
	}

	return m, nil
}

// StoreManifest writes m to blobPath.
func StoreManifest(ctx context.Context, provider StorageProvider, blobPath string, m *Manifest) error {
	w, err := provider.NewManifestWriter(ctx, blobPath)
	if nil != err {
		return errors.Wrapf(err, "creating manifest '%s'", blobPath)
	}

	if err := m.WriteTo(w); nil != err {
		w.Close()
		return errors.Wrapf(err, "writing manifest '%s'", blobPath)
	}

	if err := w.Close(); nil != err {
		return errors.Wrapf(err, "uploading manifest '%s'", blobPath)
	}

	glog.Infof("Manifest '%s' with %d file(s) uploaded.", blobPath, m.Len())

	return nil
}

// ReadManifest decodes a gzip compressed stream of manifest records.
func ReadManifest(r io.Reader) (*Manifest, error) {
	gr, err := gzip.NewReader(r)
	if nil != err {
		return nil, err
	}
	defer gr.Close()

	m := NewManifest()
	for {
		entry, err := readManifestEntry(gr)
		if nil != err {
			return nil, err
		} else if nil == entry {
			break
		}

		m.entries[entry.BlobPath] = *entry
	}

	return m, nil
}

// WriteTo encodes the manifest as a gzip compressed stream of records.
func (m *Manifest) WriteTo(w io.Writer) error {
	gw := gzip.NewWriter(w)

	for _, e := range m.Entries() {
		if err := writeManifestEntry(e, gw); nil != err {
			gw.Close()
			return err
		}
	}

	return gw.Close()
}

func readManifestEntry(r io.Reader) (*domain.ManifestEntry, error) {
	entrySize := make([]byte, 4)

	if _, err := io.ReadFull(r, entrySize); io.EOF == err {
		return nil, nil
	} else if nil != err {
		return nil, err
	}

	dataSize := binary.LittleEndian.Uint32(entrySize)
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); nil != err {
		return nil, err
	}

	return unmarshalEntry(data)
}

func writeManifestEntry(e domain.ManifestEntry, w io.Writer) error {
	buffer := marshalEntry(e)

	entrySize := make([]byte, 4)
	binary.LittleEndian.PutUint32(entrySize, uint32(len(buffer)))

	if _, err := w.Write(entrySize); nil != err {
		return err
	}

	if _, err := w.Write(buffer); nil != err {
		return err
	}

	return nil
}

func marshalEntry(e domain.ManifestEntry) []byte {
	var b []byte

	b = protowire.AppendTag(b, fieldSource, protowire.BytesType)
	b = protowire.AppendString(b, e.Source)
	b = protowire.AppendTag(b, fieldBlobPath, protowire.BytesType)
	b = protowire.AppendString(b, e.BlobPath)
	b = protowire.AppendTag(b, fieldSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Size))
	b = protowire.AppendTag(b, fieldUploaded, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Uploaded))

	return b
}

func unmarshalEntry(b []byte) (*domain.ManifestEntry, error) {
	e := &domain.ManifestEntry{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case fieldSource == num && protowire.BytesType == typ:
			e.Source, n = protowire.ConsumeString(b)
		case fieldBlobPath == num && protowire.BytesType == typ:
			e.BlobPath, n = protowire.ConsumeString(b)
		case fieldSize == num && protowire.VarintType == typ:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			e.Size = int64(v)
		case fieldUploaded == num && protowire.VarintType == typ:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			e.Uploaded = int64(v)
		default:
			// Unknown fields are skipped so newer manifests stay readable.
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
	}

	if "" == e.BlobPath {
		return nil, errors.New("manifest entry without blob path")
	}

	return e, nil
}
