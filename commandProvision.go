package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/golang/glog"
	"github.com/rokeller/hashup/prompt"
	"github.com/rokeller/hashup/provisioning"
	"github.com/rokeller/hashup/settings"
)

type provisioner interface {
	Provision(ctx context.Context, req provisioning.Request, withKey bool) (provisioning.Result, error)
}

type cmdProvision struct {
	cmdBase

	provisioner provisioner
	request     provisioning.Request
	showKey     bool
	out         io.Writer
}

// Run implements Command.
func (c *cmdProvision) Run(ctx context.Context) {
	defer c.signalFinished()

	res, err := c.provisioner.Provision(ctx, c.request, c.showKey)
	if nil != err {
		glog.Errorf("Provisioning failed: %v", err)
		c.exitCode = 1
		return
	}

	fmt.Fprintf(c.out, "Storage account:  %s (created: %t)\n", c.request.AccountName, res.AccountCreated)
	fmt.Fprintf(c.out, "Container:        %s (created: %t)\n", c.request.Container, res.ContainerCreated)
	fmt.Fprintf(c.out, "Blob endpoint:    %s\n", res.BlobEndpoint)
	if c.showKey && "" != res.PrimaryKey {
		fmt.Fprintf(c.out, "Primary key:      %s\n", res.PrimaryKey)
	}
}

// requestFromPrompts asks for every provisioning parameter, offering the
// configured values as defaults.
func requestFromPrompts(s *settings.Settings, p *prompt.Prompter) (provisioning.Request, error) {
	var err error
	req := provisioning.Request{}

	if req.SubscriptionID, err = p.Required("Subscription ID", s.Provision.SubscriptionID); nil != err {
		return req, err
	}
	if req.ResourceGroup, err = p.Required("Resource group", s.Provision.ResourceGroup); nil != err {
		return req, err
	}
	if req.Location, err = p.Required("Location", s.Provision.Location); nil != err {
		return req, err
	}
	if req.AccountName, err = p.Required("Storage account name", s.Storage.AccountName); nil != err {
		return req, err
	}
	if req.Container, err = p.Required("Container name", s.Storage.Container); nil != err {
		return req, err
	}
	if req.SKU, err = p.Choice("SKU", provisioning.SKUs(), s.Provision.SKU); nil != err {
		return req, err
	}
	if req.HierarchicalNamespace, err = p.Confirm("Enable hierarchical namespace (Data Lake Gen2)", s.Provision.HierarchicalNamespace); nil != err {
		return req, err
	}

	return req, req.Validate()
}

func newProvisionCommand(args []string) Command {
	s := loadSettings(args)

	provisionFlags := flag.NewFlagSet("provision", flag.ExitOnError)
	commonArgs := addCommonArgs(provisionFlags)
	provisionFlags.StringVar(&s.Provision.SubscriptionID,
		"subscription", s.Provision.SubscriptionID, "The Azure subscription ID.")
	provisionFlags.StringVar(&s.Provision.ResourceGroup,
		"group", s.Provision.ResourceGroup, "The existing resource group for the storage account.")
	provisionFlags.StringVar(&s.Provision.Location,
		"location", s.Provision.Location, "The Azure region of the storage account.")
	provisionFlags.StringVar(&s.Provision.SKU,
		"sku", s.Provision.SKU, "The storage account SKU.")
	provisionFlags.BoolVar(&s.Provision.HierarchicalNamespace,
		"hns", s.Provision.HierarchicalNamespace, "Enable the hierarchical namespace (Data Lake Gen2).")
	provisionFlags.StringVar(&s.Storage.AccountName,
		"acct", s.Storage.AccountName, "The storage account name.")
	provisionFlags.StringVar(&s.Storage.Container,
		"container", s.Storage.Container, "The blob container.")
	showKey := provisionFlags.Bool("show-key", false, "Print the primary account key.")
	provisionFlags.Parse(args)

	p := newPrompter(commonArgs)
	req, err := requestFromPrompts(s, p)
	if nil != err {
		glog.Exitf("Invalid provisioning request: %v", err)
	}

	if p.Interactive() {
		question := fmt.Sprintf("Provision '%s/%s' in '%s'?", req.AccountName, req.Container, req.ResourceGroup)
		if ok, err := p.Confirm(question, true); nil != err || !ok {
			glog.Exit("Provisioning cancelled.")
		}
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if nil != err {
		glog.Exitf("Credentials for Azure could not be found; error: %v", err)
	}

	prov, err := provisioning.NewProvisioner(req.SubscriptionID, cred)
	if nil != err {
		glog.Exitf("%v", err)
	}

	return &cmdProvision{
		cmdBase: cmdBase{
			settings: s,
			finished: make(chan bool),
		},
		provisioner: prov,
		request:     req,
		showKey:     *showKey,
		out:         os.Stdout,
	}
}
