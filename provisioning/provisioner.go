// Package provisioning creates the storage account and container that files
// are uploaded to, through the Azure resource manager.
package provisioning

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	accountNamePattern   = regexp.MustCompile(`^[a-z0-9]{3,24}$`)
	containerNamePattern = regexp.MustCompile(`^[a-z0-9](?:-?[a-z0-9])+$`)
)

// Request describes the resources to provision.
type Request struct {
	SubscriptionID        string
	ResourceGroup         string
	Location              string
	AccountName           string
	Container             string
	SKU                   string
	HierarchicalNamespace bool
}

// Validate checks the request against the Azure naming rules.
func (r Request) Validate() error {
	if "" == r.SubscriptionID {
		return errors.New("the subscription ID must not be empty")
	}
	if "" == r.ResourceGroup {
		return errors.New("the resource group must not be empty")
	}
	if "" == r.Location {
		return errors.New("the location must not be empty")
	}
	if !accountNamePattern.MatchString(r.AccountName) {
		return errors.Errorf("storage account name %q must be 3 to 24 lowercase letters and digits", r.AccountName)
	}
	if len(r.Container) < 3 || len(r.Container) > 63 || !containerNamePattern.MatchString(r.Container) {
		return errors.Errorf("container name %q must be 3 to 63 lowercase letters, digits and single dashes", r.Container)
	}
	if !IsSupportedSKU(r.SKU) {
		return errors.Errorf("unsupported SKU %q", r.SKU)
	}

	return nil
}

// SKUs lists the storage account SKUs that can be requested.
func SKUs() []string {
	values := armstorage.PossibleSKUNameValues()
	skus := make([]string, len(values))
	for i, v := range values {
		skus[i] = string(v)
	}

	return skus
}

// IsSupportedSKU reports whether sku names a storage account SKU.
func IsSupportedSKU(sku string) bool {
	for _, v := range armstorage.PossibleSKUNameValues() {
		if string(v) == sku {
			return true
		}
	}

	return false
}

// Result describes what Provision did.
type Result struct {
	AccountCreated   bool
	ContainerCreated bool
	BlobEndpoint     string
	PrimaryKey       string
}

// Provisioner creates storage accounts and containers.
type Provisioner struct {
	accounts   accountAPI
	containers containerAPI
}

// NewProvisioner creates a Provisioner for a subscription.
func NewProvisioner(subscriptionID string, cred azcore.TokenCredential) (*Provisioner, error) {
	factory, err := armstorage.NewClientFactory(subscriptionID, cred, nil)
	if nil != err {
		return nil, errors.Wrap(err, "failed to create storage management client")
	}

	return &Provisioner{
		accounts:   armAccounts{client: factory.NewAccountsClient()},
		containers: armContainers{client: factory.NewBlobContainersClient()},
	}, nil
}

// Provision makes sure the account and container of req exist. Existing
// resources are reused. With withKey set, the account's primary key is
// returned as well.
func (p *Provisioner) Provision(ctx context.Context, req Request, withKey bool) (Result, error) {
	if err := req.Validate(); nil != err {
		return Result{}, err
	}

	res := Result{}

	account, err := p.accounts.get(ctx, req.ResourceGroup, req.AccountName)
	if nil != err {
		return res, errors.Wrapf(err, "looking up storage account '%s'", req.AccountName)
	}

	if nil == account {
		available, reason, err := p.accounts.nameAvailable(ctx, req.AccountName)
		if nil != err {
			return res, errors.Wrapf(err, "checking name of storage account '%s'", req.AccountName)
		} else if !available {
			return res, errors.Errorf("storage account name '%s' is not available: %s", req.AccountName, reason)
		}

		glog.Infof("Creating storage account '%s' in '%s' (%s) ...", req.AccountName, req.ResourceGroup, req.Location)
		account, err = p.accounts.create(ctx, req.ResourceGroup, req.AccountName, accountParameters(req))
		if nil != err {
			return res, errors.Wrapf(err, "creating storage account '%s'", req.AccountName)
		}
		res.AccountCreated = true
	} else {
		glog.Infof("Storage account '%s' already exists.", req.AccountName)
	}

	res.BlobEndpoint = blobEndpoint(account, req.AccountName)

	res.ContainerCreated, err = p.containers.create(ctx, req.ResourceGroup, req.AccountName, req.Container)
	if nil != err {
		return res, errors.Wrapf(err, "creating container '%s'", req.Container)
	}
	if res.ContainerCreated {
		glog.Infof("Container '%s' created.", req.Container)
	} else {
		glog.Infof("Container '%s' already exists.", req.Container)
	}

	if withKey {
		keys, err := p.accounts.listKeys(ctx, req.ResourceGroup, req.AccountName)
		if nil != err {
			return res, errors.Wrapf(err, "listing keys of storage account '%s'", req.AccountName)
		}

		for _, key := range keys {
			if nil != key && nil != key.Value {
				res.PrimaryKey = *key.Value
				break
			}
		}
	}

	return res, nil
}

func accountParameters(req Request) armstorage.AccountCreateParameters {
	return armstorage.AccountCreateParameters{
		Kind:     to.Ptr(armstorage.KindStorageV2),
		Location: to.Ptr(req.Location),
		SKU: &armstorage.SKU{
			Name: to.Ptr(armstorage.SKUName(req.SKU)),
		},
		Properties: &armstorage.AccountPropertiesCreateParameters{
			AccessTier:             to.Ptr(armstorage.AccessTierHot),
			AllowBlobPublicAccess:  to.Ptr(false),
			EnableHTTPSTrafficOnly: to.Ptr(true),
			IsHnsEnabled:           to.Ptr(req.HierarchicalNamespace),
			MinimumTLSVersion:      to.Ptr(armstorage.MinimumTLSVersionTLS12),
		},
	}
}

func blobEndpoint(account *armstorage.Account, name string) string {
	if nil != account && nil != account.Properties && nil != account.Properties.PrimaryEndpoints &&
		nil != account.Properties.PrimaryEndpoints.Blob {
		return *account.Properties.PrimaryEndpoints.Blob
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/", name)
}
