// Package settings holds the configuration of hashup. Values are layered:
// built-in defaults, then an optional YAML file, then environment variables,
// then command line flags.
package settings

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rokeller/hashup/prefix"
	"sigs.k8s.io/yaml"
)

// Upload targets.
const (
	TargetAzure   = "azure"
	TargetAzurite = "azurite"
	TargetFiles   = "files"
)

// Policies for files whose names cannot be prefixed.
const (
	OnInvalidSkip  = "skip"
	OnInvalidAbort = "abort"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "HASHUP_CONFIG"

// Settings is the complete configuration.
type Settings struct {
	Prefix    prefix.Config `json:"prefix"`
	Storage   Storage       `json:"storage"`
	Partition Partition     `json:"partition"`
	Upload    Upload        `json:"upload"`
	Provision Provision     `json:"provision"`
}

// Storage selects where files are uploaded to.
type Storage struct {
	Target           string `json:"target"`
	ServiceURL       string `json:"serviceURL,omitempty"`
	AccountName      string `json:"accountName,omitempty"`
	AccountKey       string `json:"accountKey,omitempty"`
	ConnectionString string `json:"connectionString,omitempty"`
	Container        string `json:"container"`
	// OutDir is the target directory for the files target.
	OutDir string `json:"outDir,omitempty"`
}

// Partition configures the optional data-lake partition directory.
type Partition struct {
	Zone   string `json:"zone,omitempty"`
	Domain string `json:"domain,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Upload controls discovery and upload behavior.
type Upload struct {
	SourceDir           string `json:"sourceDir"`
	Recursive           bool   `json:"recursive"`
	Overwrite           bool   `json:"overwrite"`
	OnInvalid           string `json:"onInvalid"`
	DegreeOfParallelism int    `json:"parallelism"`
	Manifest            bool   `json:"manifest"`
}

// Provision holds the resource-manager parameters for creating a storage
// account.
type Provision struct {
	SubscriptionID        string `json:"subscriptionID,omitempty"`
	ResourceGroup         string `json:"resourceGroup,omitempty"`
	Location              string `json:"location,omitempty"`
	SKU                   string `json:"sku,omitempty"`
	HierarchicalNamespace bool   `json:"hierarchicalNamespace"`
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	return Settings{
		Prefix: prefix.DefaultConfig(),
		Storage: Storage{
			Target:    TargetAzure,
			Container: "uploads",
			OutDir:    "./hashup-out",
		},
		Upload: Upload{
			SourceDir:           ".",
			Overwrite:           true,
			OnInvalid:           OnInvalidSkip,
			DegreeOfParallelism: runtime.NumCPU(),
			Manifest:            true,
		},
		Provision: Provision{
			Location: "westeurope",
			SKU:      "Standard_LRS",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty path
// yields just the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	if "" == path {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if nil != err {
		return s, errors.Wrapf(err, "reading config file '%s'", path)
	}

	if err := Parse(data, &s); nil != err {
		return s, errors.Wrapf(err, "parsing config file '%s'", path)
	}

	return s, nil
}

// Parse overlays s with the YAML (or JSON) document in data. Unknown keys are
// rejected.
func Parse(data []byte, s *Settings) error {
	return yaml.UnmarshalStrict(data, s)
}

// ApplyEnv overlays s with the environment variables found through lookup,
// usually os.LookupEnv.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	// Ordered, so that later names win when several map to the same field.
	strs := []struct {
		name   string
		target *string
	}{
		{"AZURE_STORAGE_ACCOUNT", &s.Storage.AccountName},
		{"AZURE_STORAGE_KEY", &s.Storage.AccountKey},
		{"AZURE_STORAGE_CONNECTION_STRING", &s.Storage.ConnectionString},
		{"AZURE_STORAGE_FILESYSTEM", &s.Storage.Container},
		{"AZURE_STORAGE_CONTAINER", &s.Storage.Container},
		{"AZURE_STORAGE_SERVICE_URL", &s.Storage.ServiceURL},
		{"AZURE_SUBSCRIPTION_ID", &s.Provision.SubscriptionID},
		{"AZURE_RESOURCE_GROUP", &s.Provision.ResourceGroup},
		{"AZURE_LOCATION", &s.Provision.Location},
		{"DATA_LAKE_ZONE", &s.Partition.Zone},
		{"DATA_LAKE_DOMAIN", &s.Partition.Domain},
		{"PARTITION_DATE", &s.Partition.Date},
		{"SOURCE_DIR", &s.Upload.SourceDir},
	}
	for _, env := range strs {
		if v, ok := lookup(env.name); ok && "" != v {
			*env.target = v
		}
	}

	if v, ok := lookup("HASH_PREFIX_ALGORITHM"); ok && "" != v {
		s.Prefix.Algorithm = prefix.Algorithm(strings.ToLower(v))
	}

	ints := []struct {
		name   string
		target *int
	}{
		// HASH_PREFIX_LEN is the single-level prefix length of older setups.
		{"HASH_PREFIX_LEN", &s.Prefix.CharsPerLevel},
		{"HASH_PREFIX_CHARS", &s.Prefix.CharsPerLevel},
		{"HASH_PREFIX_DEPTH", &s.Prefix.Depth},
	}
	for _, env := range ints {
		v, ok := lookup(env.name)
		if !ok || "" == v {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if nil != err {
			return errors.Wrapf(err, "environment variable %s", env.name)
		}
		*env.target = n
	}

	// HASH_PREFIX_LEN alone describes a single-level prefix.
	if isSet(lookup, "HASH_PREFIX_LEN") && !isSet(lookup, "HASH_PREFIX_DEPTH") {
		s.Prefix.Depth = 1
	}

	return nil
}

func isSet(lookup func(string) (string, bool), name string) bool {
	v, ok := lookup(name)
	return ok && "" != v
}

// Validate checks the settings needed for uploads. A prefix configuration
// problem is returned as the *prefix.ConfigurationError itself.
func (s Settings) Validate() error {
	if err := s.Prefix.Validate(); nil != err {
		return err
	}

	switch s.Storage.Target {
	case TargetAzure:
		if "" == s.Storage.ConnectionString && "" == s.Storage.ServiceURL && "" == s.Storage.AccountName {
			return errors.New("the Azure storage account name must not be empty")
		}
	case TargetAzurite:
	case TargetFiles:
		if "" == strings.TrimSpace(s.Storage.OutDir) {
			return errors.New("the output directory must not be empty")
		}
	default:
		return errors.Errorf("unknown upload target %q", s.Storage.Target)
	}

	if TargetFiles != s.Storage.Target && "" == strings.TrimSpace(s.Storage.Container) {
		return errors.New("the container name must not be empty")
	}

	switch s.Upload.OnInvalid {
	case OnInvalidSkip, OnInvalidAbort:
	default:
		return errors.Errorf("unknown invalid file name policy %q", s.Upload.OnInvalid)
	}

	if s.Upload.DegreeOfParallelism <= 0 {
		return errors.Errorf("the degree of parallelism must be positive, got %d", s.Upload.DegreeOfParallelism)
	}

	return nil
}
