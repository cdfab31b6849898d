package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/rokeller/hashup/uploading"
	"github.com/spf13/afero"
)

type cmdList struct {
	cmdBase

	provider     uploading.StorageProvider
	manifestPath string
	out          io.Writer
}

// Run implements Command.
func (c *cmdList) Run(ctx context.Context) {
	defer c.signalFinished()

	m, err := uploading.LoadManifest(ctx, c.provider, c.manifestPath)
	if nil != err {
		glog.Errorf("Failed to load manifest: %v", err)
		c.exitCode = 1
		return
	}

	entries := m.Entries()
	if 0 == len(entries) {
		glog.Infof("The manifest '%s' has no entries.", c.manifestPath)
		return
	}

	for _, e := range entries {
		uploaded := time.Unix(e.Uploaded, 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(c.out, "%s\t%s\t%d\t%s\n", e.BlobPath, e.Source, e.Size, uploaded)
	}
}

func newListCommand(args []string) Command {
	s := loadSettings(args)

	listFlags := flag.NewFlagSet("list", flag.ExitOnError)
	commonArgs := addCommonArgs(listFlags)
	addPartitionFlags(listFlags, &s.Partition)
	addStorageFlags(listFlags, &s.Storage)
	askKey := listFlags.Bool("ask-key", false, "Prompt for the storage account key instead of using Azure AD credentials.")
	listFlags.Parse(args)

	completeStorage(&s.Storage, newPrompter(commonArgs), *askKey)

	p, err := newPartition(s)
	if nil != err {
		glog.Exitf("Invalid partition: %v", err)
	}

	provider, err := newStorageProvider(s.Storage, afero.NewOsFs())
	if nil != err {
		glog.Exitf("%v", err)
	}

	return &cmdList{
		cmdBase: cmdBase{
			settings: s,
			finished: make(chan bool),
		},
		provider:     provider,
		manifestPath: uploading.ManifestPath(p),
		out:          os.Stdout,
	}
}
