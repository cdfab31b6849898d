package provisioning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	existing  *armstorage.Account
	available bool
	created   *armstorage.AccountCreateParameters
	createErr error
	keys      []*armstorage.AccountKey
}

func (f *fakeAccounts) nameAvailable(ctx context.Context, name string) (bool, string, error) {
	return f.available, "The storage account named " + name + " is already taken.", nil
}

func (f *fakeAccounts) get(ctx context.Context, resourceGroup, name string) (*armstorage.Account, error) {
	return f.existing, nil
}

func (f *fakeAccounts) create(ctx context.Context, resourceGroup, name string, params armstorage.AccountCreateParameters) (*armstorage.Account, error) {
	if nil != f.createErr {
		return nil, f.createErr
	}
	f.created = &params

	return &armstorage.Account{
		Name: to.Ptr(name),
		Properties: &armstorage.AccountProperties{
			PrimaryEndpoints: &armstorage.Endpoints{
				Blob: to.Ptr("https://" + name + ".blob.core.windows.net/"),
			},
		},
	}, nil
}

func (f *fakeAccounts) listKeys(ctx context.Context, resourceGroup, name string) ([]*armstorage.AccountKey, error) {
	return f.keys, nil
}

type fakeContainers struct {
	exists  bool
	created []string
}

func (f *fakeContainers) create(ctx context.Context, resourceGroup, account, name string) (bool, error) {
	if f.exists {
		return false, nil
	}
	f.created = append(f.created, account+"/"+name)

	return true, nil
}

func validRequest() Request {
	return Request{
		SubscriptionID: "00000000-0000-0000-0000-000000000000",
		ResourceGroup:  "rg-data",
		Location:       "westeurope",
		AccountName:    "mystorageacct",
		Container:      "datalake",
		SKU:            "Standard_LRS",
	}
}

func TestProvision_CreatesAccountAndContainer(t *testing.T) {
	accounts := &fakeAccounts{
		available: true,
		keys:      []*armstorage.AccountKey{{KeyName: to.Ptr("key1"), Value: to.Ptr("a2V5MQ==")}},
	}
	containers := &fakeContainers{}
	p := &Provisioner{accounts: accounts, containers: containers}

	req := validRequest()
	req.HierarchicalNamespace = true
	res, err := p.Provision(context.Background(), req, true)
	require.NoError(t, err)

	assert.True(t, res.AccountCreated)
	assert.True(t, res.ContainerCreated)
	assert.Equal(t, "https://mystorageacct.blob.core.windows.net/", res.BlobEndpoint)
	assert.Equal(t, "a2V5MQ==", res.PrimaryKey)
	assert.Equal(t, []string{"mystorageacct/datalake"}, containers.created)

	require.NotNil(t, accounts.created)
	assert.Equal(t, armstorage.KindStorageV2, *accounts.created.Kind)
	assert.Equal(t, "westeurope", *accounts.created.Location)
	assert.Equal(t, armstorage.SKUNameStandardLRS, *accounts.created.SKU.Name)
	assert.True(t, *accounts.created.Properties.IsHnsEnabled)
	assert.True(t, *accounts.created.Properties.EnableHTTPSTrafficOnly)
}

func TestProvision_ReusesExisting(t *testing.T) {
	accounts := &fakeAccounts{existing: &armstorage.Account{Name: to.Ptr("mystorageacct")}}
	p := &Provisioner{accounts: accounts, containers: &fakeContainers{exists: true}}

	res, err := p.Provision(context.Background(), validRequest(), false)
	require.NoError(t, err)

	assert.False(t, res.AccountCreated)
	assert.False(t, res.ContainerCreated)
	assert.Nil(t, accounts.created)
	assert.Equal(t, "https://mystorageacct.blob.core.windows.net/", res.BlobEndpoint)
	assert.Empty(t, res.PrimaryKey)
}

func TestProvision_NameTaken(t *testing.T) {
	p := &Provisioner{accounts: &fakeAccounts{available: false}, containers: &fakeContainers{}}

	_, err := p.Provision(context.Background(), validRequest(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already taken")
}

func TestProvision_CreateFails(t *testing.T) {
	containers := &fakeContainers{}
	p := &Provisioner{
		accounts:   &fakeAccounts{available: true, createErr: errors.New("quota exceeded")},
		containers: containers,
	}

	_, err := p.Provision(context.Background(), validRequest(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, containers.created)
}

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, validRequest().Validate())

	tests := map[string]func(r *Request){
		"no subscription":   func(r *Request) { r.SubscriptionID = "" },
		"no resource group": func(r *Request) { r.ResourceGroup = "" },
		"no location":       func(r *Request) { r.Location = "" },
		"uppercase account": func(r *Request) { r.AccountName = "MyStorage" },
		"short account":     func(r *Request) { r.AccountName = "ab" },
		"long account":      func(r *Request) { r.AccountName = strings.Repeat("a", 25) },
		"double dash":       func(r *Request) { r.Container = "data--lake" },
		"trailing dash":     func(r *Request) { r.Container = "datalake-" },
		"long container":    func(r *Request) { r.Container = strings.Repeat("a", 64) },
		"short container":   func(r *Request) { r.Container = "ab" },
		"leading dash":      func(r *Request) { r.Container = "-ab" },
		"unknown sku":       func(r *Request) { r.SKU = "Cheap_LRS" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := validRequest()
			mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestRequest_ValidateContainerNames(t *testing.T) {
	for _, name := range []string{"a-b", "abc", "data-lake-01", strings.Repeat("a", 63)} {
		r := validRequest()
		r.Container = name
		assert.NoError(t, r.Validate(), "container: %s", name)
	}
}

func TestSKUs(t *testing.T) {
	assert.Contains(t, SKUs(), "Standard_LRS")
	assert.True(t, IsSupportedSKU("Premium_LRS"))
	assert.False(t, IsSupportedSKU("standard_lrs"))
}
