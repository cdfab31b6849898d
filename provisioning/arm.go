package provisioning

import (
	"context"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/pkg/errors"
)

const accountResourceType = "Microsoft.Storage/storageAccounts"

// accountAPI is the part of the storage resource provider used for accounts.
type accountAPI interface {
	nameAvailable(ctx context.Context, name string) (bool, string, error)
	get(ctx context.Context, resourceGroup, name string) (*armstorage.Account, error)
	create(ctx context.Context, resourceGroup, name string, params armstorage.AccountCreateParameters) (*armstorage.Account, error)
	listKeys(ctx context.Context, resourceGroup, name string) ([]*armstorage.AccountKey, error)
}

// containerAPI is the part of the storage resource provider used for
// containers.
type containerAPI interface {
	create(ctx context.Context, resourceGroup, account, name string) (bool, error)
}

type armAccounts struct {
	client *armstorage.AccountsClient
}

func (a armAccounts) nameAvailable(ctx context.Context, name string) (bool, string, error) {
	res, err := a.client.CheckNameAvailability(ctx, armstorage.AccountCheckNameAvailabilityParameters{
		Name: to.Ptr(name),
		Type: to.Ptr(accountResourceType),
	}, nil)
	if nil != err {
		return false, "", err
	}

	reason := ""
	if nil != res.Message {
		reason = *res.Message
	}

	return nil != res.NameAvailable && *res.NameAvailable, reason, nil
}

// get returns nil without an error when the account doesn't exist.
func (a armAccounts) get(ctx context.Context, resourceGroup, name string) (*armstorage.Account, error) {
	res, err := a.client.GetProperties(ctx, resourceGroup, name, nil)
	if nil != err {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && http.StatusNotFound == respErr.StatusCode {
			return nil, nil
		}

		return nil, err
	}

	return &res.Account, nil
}

func (a armAccounts) create(
	ctx context.Context,
	resourceGroup, name string,
	params armstorage.AccountCreateParameters,
) (*armstorage.Account, error) {
	poller, err := a.client.BeginCreate(ctx, resourceGroup, name, params, nil)
	if nil != err {
		return nil, err
	}

	res, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: 5 * time.Second})
	if nil != err {
		return nil, err
	}

	return &res.Account, nil
}

func (a armAccounts) listKeys(ctx context.Context, resourceGroup, name string) ([]*armstorage.AccountKey, error) {
	res, err := a.client.ListKeys(ctx, resourceGroup, name, nil)
	if nil != err {
		return nil, err
	}

	return res.Keys, nil
}

type armContainers struct {
	client *armstorage.BlobContainersClient
}

// create reports false when the container already existed.
func (c armContainers) create(ctx context.Context, resourceGroup, account, name string) (bool, error) {
	_, err := c.client.Get(ctx, resourceGroup, account, name, nil)
	if nil == err {
		return false, nil
	}

	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) || http.StatusNotFound != respErr.StatusCode {
		return false, err
	}

	_, err = c.client.Create(ctx, resourceGroup, account, name, armstorage.BlobContainer{
		ContainerProperties: &armstorage.ContainerProperties{
			PublicAccess: to.Ptr(armstorage.PublicAccessNone),
		},
	}, nil)
	if nil != err {
		return false, err
	}

	return true, nil
}
