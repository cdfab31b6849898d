package azureBlobs

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/rokeller/hashup/uploading"
)

const (
	// AzuriteConnectionString is the well-known connection string of the local
	// Azurite storage emulator.
	AzuriteConnectionString = "AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;DefaultEndpointsProtocol=http;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;QueueEndpoint=http://127.0.0.1:10001/devstoreaccount1;TableEndpoint=http://127.0.0.1:10002/devstoreaccount1;"

	defaultTryTimeout = 5 * time.Minute
)

// Options selects the blob service and the credentials used for it. A
// ConnectionString wins over an AccountKey; with neither set,
// DefaultAzureCredential is used.
type Options struct {
	ServiceURL       string
	AccountName      string
	AccountKey       string
	ConnectionString string
	Container        string

	// TryTimeout bounds a single attempt of a request; the SDK retries
	// attempts that time out.
	TryTimeout time.Duration
}

// BlobServiceURL returns the default blob endpoint for a storage account.
func BlobServiceURL(accountName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
}

type azureStorageProvider struct {
	client *container.Client
}

// NewAzuriteStorageProvider creates a provider for a container in the local
// Azurite emulator.
func NewAzuriteStorageProvider(containerName string) (uploading.StorageProvider, error) {
	return NewAzureStorageProvider(Options{
		ConnectionString: AzuriteConnectionString,
		Container:        containerName,
	})
}

// NewAzureStorageProvider creates a provider for a container in Azure Blob
// Storage.
func NewAzureStorageProvider(opts Options) (uploading.StorageProvider, error) {
	if "" == opts.Container {
		return nil, errors.New("the container name must not be empty")
	}

	blobClient, err := NewClient(opts)
	if nil != err {
		return nil, err
	}

	return newAzureStorageProvider(blobClient.ServiceClient().NewContainerClient(opts.Container)), nil
}

// NewClient creates a blob service client from the options.
func NewClient(opts Options) (*azblob.Client, error) {
	tryTimeout := opts.TryTimeout
	if 0 == tryTimeout {
		tryTimeout = defaultTryTimeout
	}

	clientOptions := &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Retry: policy.RetryOptions{
				TryTimeout: tryTimeout,
			},
		},
	}

	if "" != opts.ConnectionString {
		client, err := azblob.NewClientFromConnectionString(opts.ConnectionString, clientOptions)
		return client, errors.Wrap(err, "failed to create blob client from connection string")
	}

	serviceURL := opts.ServiceURL
	if "" == serviceURL {
		if "" == opts.AccountName {
			return nil, errors.New("either the blob service URL or the storage account name is needed")
		}
		serviceURL = BlobServiceURL(opts.AccountName)
	}

	if "" != opts.AccountKey {
		cred, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
		if nil != err {
			return nil, errors.Wrap(err, "invalid shared key credential")
		}

		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, clientOptions)
		return client, errors.Wrap(err, "failed to create blob client")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if nil != err {
		return nil, errors.Wrap(err, "credentials for Azure could not be found")
	}

	client, err := azblob.NewClient(serviceURL, cred, clientOptions)
	return client, errors.Wrap(err, "failed to create blob client")
}

func newAzureStorageProvider(containerClient *container.Client) uploading.StorageProvider {
	return azureStorageProvider{
		client: containerClient,
	}
}

// EnsureContainer implements uploading.StorageProvider.
func (p azureStorageProvider) EnsureContainer(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	_, err := p.client.Create(ctx, nil)
	if nil != err {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			glog.V(1).Info("The container already exists.")
			return nil
		}

		return errors.Wrap(err, "failed to create target container")
	}

	glog.Info("The container was created.")

	return nil
}

// Exists implements uploading.StorageProvider.
func (p azureStorageProvider) Exists(ctx context.Context, blobPath string) (bool, error) {
	_, err := p.client.NewBlobClient(blobPath).GetProperties(ctx, nil)
	if nil != err {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// Upload implements uploading.StorageProvider.
func (p azureStorageProvider) Upload(ctx context.Context, blobPath string, r io.Reader) error {
	blobClient := p.client.NewBlockBlobClient(blobPath)
	_, err := blobClient.UploadStream(ctx, r, nil)

	return err
}

// ReadManifest implements uploading.StorageProvider.
func (p azureStorageProvider) ReadManifest(ctx context.Context, blobPath string) (io.ReadCloser, error) {
	// Not using a context with a timeout, since the manifest can be quite big
	// and take a while to read.
	r, err := p.readBlob(ctx, blobPath)
	if nil != err {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, uploading.ManifestNotFound{}
		}

		return nil, err
	}

	return r, nil
}

// NewManifestWriter implements uploading.StorageProvider.
func (p azureStorageProvider) NewManifestWriter(ctx context.Context, blobPath string) (io.WriteCloser, error) {
	return p.newBlobWriter(ctx, blobPath), nil
}

func (p azureStorageProvider) readBlob(ctx context.Context, blobName string) (io.ReadCloser, error) {
	blobClient := p.client.NewBlobClient(blobName)
	res, err := blobClient.DownloadStream(ctx, nil)
	if nil != err {
		return nil, err
	}

	return res.Body, nil
}

func (p azureStorageProvider) newBlobWriter(ctx context.Context, blobName string) io.WriteCloser {
	r, w := io.Pipe()

	bw := &blobWriteCloser{w: w, wg: &sync.WaitGroup{}}
	bw.wg.Add(1)

	go func() {
		defer bw.wg.Done()
		blobClient := p.client.NewBlockBlobClient(blobName)
		_, err := blobClient.UploadStream(ctx, r, nil)

		if nil != err {
			glog.Errorf("Failed to upload '%s': %v", blobName, err)
			// Unblock the writer side in case it is still writing.
			r.CloseWithError(err)
		} else {
			glog.V(1).Infof("Finished uploading '%s'.", blobName)
		}
		bw.err = err
	}()

	return bw
}
