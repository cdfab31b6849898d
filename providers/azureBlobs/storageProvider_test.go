package azureBlobs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/rokeller/hashup/domain"
	"github.com/rokeller/hashup/uploading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobService stores staged blocks by blob path and serves them back on
// download. It is just enough of the blob REST API for the provider.
type fakeBlobService struct {
	mutex          sync.Mutex
	blobs          map[string]*bytes.Buffer
	committed      []string
	containerState int
}

func newFakeBlobService(containerState int) *fakeBlobService {
	return &fakeBlobService{
		blobs:          map[string]*bytes.Buffer{},
		containerState: containerState,
	}
}

func (s *fakeBlobService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := r.URL.Query()
	blobPath := strings.TrimPrefix(r.URL.Path, "/test-container/")

	switch {
	case http.MethodPut == r.Method && "container" == query.Get("restype"):
		if http.StatusConflict == s.containerState {
			w.Header().Set("x-ms-error-code", "ContainerAlreadyExists")
		} else if http.StatusForbidden == s.containerState {
			w.Header().Set("x-ms-error-code", "AuthorizationFailure")
		}
		w.WriteHeader(s.containerState)

	case http.MethodPut == r.Method && "block" == query.Get("comp"):
		if nil == s.blobs[blobPath] {
			s.blobs[blobPath] = &bytes.Buffer{}
		}
		io.Copy(s.blobs[blobPath], r.Body)
		w.WriteHeader(http.StatusCreated)

	case http.MethodPut == r.Method && "blocklist" == query.Get("comp"):
		s.committed = append(s.committed, blobPath)
		w.WriteHeader(http.StatusCreated)

	case http.MethodPut == r.Method && "" == query.Get("comp"):
		data := &bytes.Buffer{}
		io.Copy(data, r.Body)
		s.blobs[blobPath] = data
		s.committed = append(s.committed, blobPath)
		w.WriteHeader(http.StatusCreated)

	case http.MethodHead == r.Method, http.MethodGet == r.Method:
		data, ok := s.blobs[blobPath]
		if !ok {
			w.Header().Set("x-ms-error-code", "BlobNotFound")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if http.MethodGet == r.Method {
			w.Write(data.Bytes())
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestProvider(t *testing.T, svc *fakeBlobService) uploading.StorageProvider {
	server := httptest.NewServer(svc)
	t.Cleanup(server.Close)

	client, err := container.NewClientWithNoCredential(server.URL+"/test-container", nil)
	require.NoError(t, err)

	return newAzureStorageProvider(client)
}

func TestEnsureContainer(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, newTestProvider(t, newFakeBlobService(http.StatusCreated)).EnsureContainer(ctx))
	assert.NoError(t, newTestProvider(t, newFakeBlobService(http.StatusConflict)).EnsureContainer(ctx))
	assert.Error(t, newTestProvider(t, newFakeBlobService(http.StatusForbidden)).EnsureContainer(ctx))
}

func TestUploadAndExists(t *testing.T) {
	ctx := context.Background()
	svc := newFakeBlobService(http.StatusCreated)
	p := newTestProvider(t, svc)

	exists, err := p.Exists(ctx, "f9/50/report.parquet")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, p.Upload(ctx, "f9/50/report.parquet", strings.NewReader("parquet")))
	assert.Equal(t, []string{"f9/50/report.parquet"}, svc.committed)
	assert.Equal(t, "parquet", svc.blobs["f9/50/report.parquet"].String())

	exists, err = p.Exists(ctx, "f9/50/report.parquet")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReadManifest_NotFound(t *testing.T) {
	p := newTestProvider(t, newFakeBlobService(http.StatusCreated))

	_, err := p.ReadManifest(context.Background(), "_manifest.gz")
	assert.ErrorIs(t, err, uploading.ManifestNotFound{})
}

func TestManifestRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, newFakeBlobService(http.StatusCreated))

	m := uploading.NewManifest()
	m.Add(domain.ManifestEntry{Source: "report.parquet", BlobPath: "f9/50/report.parquet", Size: 7})
	require.NoError(t, uploading.StoreManifest(ctx, p, "_manifest.gz", m))

	loaded, err := uploading.LoadManifest(ctx, p, "_manifest.gz")
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), loaded.Entries())
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Options{AccountName: "testaccount", AccountKey: "dGVzdGtleQ=="})
	require.NoError(t, err)
	assert.Equal(t, "https://testaccount.blob.core.windows.net/", client.URL())

	client, err = NewClient(Options{ConnectionString: AzuriteConnectionString})
	require.NoError(t, err)
	assert.Contains(t, client.URL(), "127.0.0.1:10000/devstoreaccount1")

	_, err = NewClient(Options{AccountKey: "dGVzdGtleQ=="})
	assert.Error(t, err)
}

func TestNewAzureStorageProvider_RequiresContainer(t *testing.T) {
	_, err := NewAzureStorageProvider(Options{ConnectionString: AzuriteConnectionString})
	assert.Error(t, err)
}
