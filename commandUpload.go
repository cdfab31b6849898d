package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/rokeller/hashup/inspection"
	"github.com/rokeller/hashup/prefix"
	"github.com/rokeller/hashup/settings"
	"github.com/rokeller/hashup/uploading"
	"github.com/spf13/afero"
)

type cmdUpload struct {
	cmdBase

	fs       afero.Fs
	rootDir  string
	uploader *uploading.Uploader
	out      io.Writer
}

// Run implements Command.
func (c *cmdUpload) Run(ctx context.Context) {
	defer c.signalFinished()

	c.exitCode = c.upload(ctx)
}

func (c *cmdUpload) upload(ctx context.Context) int {
	if err := c.uploader.Prepare(ctx); nil != err {
		glog.Errorf("Failed to prepare upload target: %v", err)
		return 1
	}

	u := c.settings.Upload
	visitor := NewUploadingVisitor(ctx, c.uploader, u.DegreeOfParallelism, settings.OnInvalidAbort == u.OnInvalid)
	err := inspection.Discover(c.fs, c.rootDir, inspection.Options{Recursive: u.Recursive}, visitor)
	visitor.Complete()

	if nil != err {
		glog.Errorf("Discovery failed: %v", err)
		return 1
	}

	exitCode := 0
	if err := c.uploader.Close(ctx); nil != err {
		glog.Errorf("Failed to update the manifest: %v", err)
		exitCode = 1
	}

	uploaded := c.uploader.Uploaded()
	stats := visitor.stats
	glog.Infof("Uploaded %d file(s); %d already existed, %d failed, %d had invalid names, %d had a taken blob path.",
		stats.uploaded.Load(), stats.existing.Load(), stats.failed.Load(), stats.invalid.Load(), stats.conflicts.Load())

	if visitor.Aborted() {
		glog.Errorf("Upload aborted because of an unusable file name.")
		exitCode = 1
	} else if nil != ctx.Err() {
		exitCode = 1
	}
	if stats.failed.Load() > 0 {
		exitCode = 1
	}

	if 0 == len(uploaded) {
		fmt.Fprintln(c.out, "No files uploaded.")
		return exitCode
	}

	fmt.Fprintln(c.out, "Summary:")
	for _, e := range uploaded {
		fmt.Fprintf(c.out, "  - %s -> %s\n", e.Source, e.BlobPath)
	}

	return exitCode
}

func newUploadCommand(args []string) Command {
	s := loadSettings(args)

	uploadFlags := flag.NewFlagSet("upload", flag.ExitOnError)
	commonArgs := addCommonArgs(uploadFlags)
	addPrefixFlags(uploadFlags, &s.Prefix)
	addPartitionFlags(uploadFlags, &s.Partition)
	addStorageFlags(uploadFlags, &s.Storage)
	askKey := uploadFlags.Bool("ask-key", false, "Prompt for the storage account key instead of using Azure AD credentials.")
	uploadFlags.StringVar(&s.Upload.SourceDir,
		"path", s.Upload.SourceDir, "The directory with the files to upload.")
	uploadFlags.BoolVar(&s.Upload.Recursive,
		"r", s.Upload.Recursive, "Upload files in sub directories too.")
	uploadFlags.BoolVar(&s.Upload.Overwrite,
		"overwrite", s.Upload.Overwrite, "Overwrite blobs that already exist.")
	uploadFlags.StringVar(&s.Upload.OnInvalid,
		"on-invalid", s.Upload.OnInvalid, "What to do with unusable file names and taken blob paths: 'skip' or 'abort'.")
	uploadFlags.IntVar(&s.Upload.DegreeOfParallelism,
		"p", s.Upload.DegreeOfParallelism, "The degree of parallelism to use.")
	uploadFlags.BoolVar(&s.Upload.Manifest,
		"manifest", s.Upload.Manifest, "Record uploads in the partition's manifest.")
	uploadFlags.Parse(args)

	completeStorage(&s.Storage, newPrompter(commonArgs), *askKey)

	cmd, err := newUploadCmd(s, afero.NewOsFs(), os.Stdout)
	if nil != err {
		glog.Exitf("%v", err)
	}

	return cmd
}

// newUploadCmd checks the settings, including the prefix configuration, before
// any file is looked at.
func newUploadCmd(s *settings.Settings, fsys afero.Fs, out io.Writer) (*cmdUpload, error) {
	if err := s.Validate(); nil != err {
		return nil, err
	}

	generator, err := prefix.NewGenerator(s.Prefix)
	if nil != err {
		return nil, err
	}

	rootDir, err := filepath.Abs(os.ExpandEnv(s.Upload.SourceDir))
	if nil != err {
		return nil, err
	}
	if info, err := fsys.Stat(rootDir); nil != err || !info.IsDir() {
		return nil, errors.Errorf("source directory not found: %s", rootDir)
	}

	provider, err := newStorageProvider(s.Storage, fsys)
	if nil != err {
		return nil, err
	}

	p, err := newPartition(s)
	if nil != err {
		return nil, err
	}
	glog.Infof("Uploading '%s' to '%s' (%s) under '%s'.", rootDir, s.Storage.Container, s.Storage.Target, p.Dir())

	uploader := uploading.NewUploader(fsys, rootDir, generator, p, provider, uploading.Options{
		Overwrite: s.Upload.Overwrite,
		Manifest:  s.Upload.Manifest,
	})

	return &cmdUpload{
		cmdBase: cmdBase{
			settings: s,
			finished: make(chan bool),
		},
		fs:       fsys,
		rootDir:  rootDir,
		uploader: uploader,
		out:      out,
	}, nil
}
