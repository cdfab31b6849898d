package prefix

import "fmt"

// ConfigurationError is returned when a prefix configuration cannot produce
// valid paths for any file. It is raised before any file is hashed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid prefix configuration: %s %s", e.Field, e.Reason)
}

// InvalidFilenameError is returned for a single file name that cannot be
// placed under a prefix. Callers decide whether to skip the file or abort.
type InvalidFilenameError struct {
	Filename string
	Reason   string
}

func (e *InvalidFilenameError) Error() string {
	return fmt.Sprintf("invalid file name %q: %s", e.Filename, e.Reason)
}
