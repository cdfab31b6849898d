package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/rokeller/hashup/partition"
	"github.com/rokeller/hashup/prefix"
	"github.com/rokeller/hashup/prompt"
	"github.com/rokeller/hashup/providers/azureBlobs"
	"github.com/rokeller/hashup/providers/files"
	"github.com/rokeller/hashup/settings"
	"github.com/rokeller/hashup/uploading"
	"github.com/spf13/afero"
)

type Command interface {
	Run(ctx context.Context)
	Stop()
	Finished() <-chan bool
	ExitCode() int
}

type commandFactory func([]string) Command

type cmdBase struct {
	settings *settings.Settings
	finished chan bool
	exitCode int
}

type commonArguments struct {
	configPath     string
	nonInteractive bool
}

func parseCommand() Command {
	// The following is needed for glog, which puts its flags on the "shared" set.
	flag.Parse()
	allArgs := flag.Args()
	if len(allArgs) < 1 {
		flag.Usage()
		glog.Exitln("Expected command 'upload', 'resolve', 'list', or 'provision'.")
	}

	var cmdFactory commandFactory
	switch strings.ToLower(allArgs[0]) {
	case "upload":
		cmdFactory = newUploadCommand
	case "resolve":
		cmdFactory = newResolveCommand
	case "list":
		cmdFactory = newListCommand
	case "provision":
		cmdFactory = newProvisionCommand

	default:
		flag.Usage()
		glog.Exitln("Expected command 'upload', 'resolve', 'list', or 'provision'.")
	}

	return cmdFactory(allArgs[1:])
}

// loadSettings layers the config file and the environment over the defaults.
// Flags are bound afterwards, with these values as their defaults.
func loadSettings(args []string) *settings.Settings {
	path := configPathFromArgs(args)
	if "" == path {
		path = os.Getenv(settings.ConfigEnv)
	}

	s, err := settings.Load(path)
	if nil != err {
		glog.Exitf("Failed to load settings: %v", err)
	}

	if err := s.ApplyEnv(os.LookupEnv); nil != err {
		glog.Exitf("Failed to apply environment: %v", err)
	}

	return &s
}

// configPathFromArgs finds the -config flag before the flag set is parsed, so
// that the file can provide the defaults of all other flags.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		} else if "config" == name && i+1 < len(args) {
			return args[i+1]
		} else if strings.HasPrefix(name, "config=") {
			return strings.TrimPrefix(name, "config=")
		}
	}

	return ""
}

func addCommonArgs(flagset *flag.FlagSet) *commonArguments {
	commonArgs := commonArguments{}
	flagset.StringVar(&commonArgs.configPath,
		"config", "", "A YAML file with settings (default $"+settings.ConfigEnv+").")
	flagset.BoolVar(&commonArgs.nonInteractive,
		"y", false, "Never prompt; use defaults and fail on missing values.")

	return &commonArgs
}

func addPrefixFlags(flagset *flag.FlagSet, cfg *prefix.Config) {
	flagset.IntVar(&cfg.Depth,
		"depth", cfg.Depth, "The number of prefix directory levels.")
	flagset.IntVar(&cfg.CharsPerLevel,
		"chars", cfg.CharsPerLevel, "The number of hex characters per prefix level.")
	flagset.StringVar((*string)(&cfg.Algorithm),
		"hash", string(cfg.Algorithm), "The digest for prefixes: md5, sha1, sha256, blake2b, or xxhash.")
	flagset.StringVar((*string)(&cfg.Style),
		"style", string(cfg.Style), "'nested' for one directory per level, 'dashed' for a '<prefix>-<name>' file name.")
}

func addPartitionFlags(flagset *flag.FlagSet, p *settings.Partition) {
	flagset.StringVar(&p.Zone,
		"zone", p.Zone, "The data lake zone, e.g. raw or curated. Empty disables partitioning.")
	flagset.StringVar(&p.Domain,
		"domain", p.Domain, "The data lake domain, e.g. sales.")
	flagset.StringVar(&p.Date,
		"date", p.Date, "The partition date as YYYY-MM-DD (default today).")
}

func addStorageFlags(flagset *flag.FlagSet, s *settings.Storage) {
	flagset.StringVar(&s.Target,
		"target", s.Target, "Where to upload to: 'azure', 'azurite', or 'files'.")
	flagset.StringVar(&s.AccountName,
		"acct", s.AccountName, "The Azure Storage Account name.")
	flagset.StringVar(&s.ServiceURL,
		"azep", s.ServiceURL, "The blob service endpoint URL (default derived from the account name).")
	flagset.StringVar(&s.Container,
		"container", s.Container, "The blob container.")
	flagset.StringVar(&s.OutDir,
		"out", s.OutDir, "The target directory for the 'files' target.")
}

func newPartition(s *settings.Settings) (partition.Partition, error) {
	return partition.New(s.Partition.Zone, s.Partition.Domain, s.Partition.Date)
}

func newPrompter(args *commonArguments) *prompt.Prompter {
	return prompt.NewTerminal(!args.nonInteractive)
}

// completeStorage asks for storage settings that are still missing.
func completeStorage(s *settings.Storage, p *prompt.Prompter, askKey bool) {
	if settings.TargetAzure != s.Target || "" != s.ConnectionString {
		return
	}

	var err error
	if "" == s.ServiceURL && "" == s.AccountName {
		if s.AccountName, err = p.Required("Storage account name", ""); nil != err {
			glog.Exitf("The Azure Storage Account name (acct) must not be empty: %v", err)
		}
	}

	if askKey && "" == s.AccountKey {
		if s.AccountKey, err = p.Secret("Storage account key", ""); nil != err {
			glog.Exitf("Failed to read the account key: %v", err)
		}
	}
}

func newStorageProvider(s settings.Storage, fsys afero.Fs) (uploading.StorageProvider, error) {
	switch s.Target {
	case settings.TargetAzurite:
		return azureBlobs.NewAzuriteStorageProvider(s.Container)
	case settings.TargetFiles:
		return files.NewFileStorageProvider(fsys, s.OutDir), nil
	}

	return azureBlobs.NewAzureStorageProvider(azureBlobs.Options{
		ServiceURL:       s.ServiceURL,
		AccountName:      s.AccountName,
		AccountKey:       s.AccountKey,
		ConnectionString: s.ConnectionString,
		Container:        s.Container,
	})
}

func (c *cmdBase) Finished() <-chan bool {
	return c.finished
}

func (c *cmdBase) ExitCode() int {
	return c.exitCode
}

func (c *cmdBase) Stop() {
}

func (c *cmdBase) signalFinished() {
	close(c.finished)
}
