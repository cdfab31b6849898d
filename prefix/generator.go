// Package prefix derives deterministic, hash-based directory prefixes for file
// names so that names sharing a common pattern spread evenly across storage
// partitions.
//
// The same file name and configuration always yield the same path:
//
//	Generate("report.parquet", Config{Depth: 2, CharsPerLevel: 2}) // f9/50/report.parquet
package prefix

import (
	"strings"
)

// Result is a generated prefix: the hash segments in order, followed by the
// original file name.
type Result struct {
	Segments []string
	Filename string

	style Style
}

// Path renders the result as a blob path.
func (r Result) Path() string {
	if StyleDashed == r.style {
		return strings.Join(r.Segments, "") + "-" + r.Filename
	}

	parts := make([]string, 0, len(r.Segments)+1)
	parts = append(parts, r.Segments...)
	parts = append(parts, r.Filename)

	return strings.Join(parts, "/")
}

// Prefix renders only the hash part, without the file name.
func (r Result) Prefix() string {
	if StyleDashed == r.style {
		return strings.Join(r.Segments, "")
	}

	return strings.Join(r.Segments, "/")
}

func (r Result) String() string {
	return r.Path()
}

// Generator derives prefixed paths for a configuration validated up front.
// A Generator holds no mutable state and may be shared between goroutines.
type Generator struct {
	config Config
}

// NewGenerator validates cfg and returns a Generator for it.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); nil != err {
		return nil, err
	}

	cfg.Algorithm = cfg.algorithm()
	cfg.Style = cfg.style()

	return &Generator{config: cfg}, nil
}

// Config returns the effective configuration, with defaults filled in.
func (g *Generator) Config() Config {
	return g.config
}

// Generate derives the prefixed path for filename.
func (g *Generator) Generate(filename string) (Result, error) {
	if err := ValidateFilename(filename); nil != err {
		return Result{}, err
	}

	digest := g.config.Algorithm.HexDigest(filename)
	n := g.config.CharsPerLevel
	segments := make([]string, g.config.Depth)
	for i := range segments {
		segments[i] = digest[i*n : (i+1)*n]
	}

	return Result{
		Segments: segments,
		Filename: filename,
		style:    g.config.Style,
	}, nil
}

// Generate validates cfg and derives the prefixed path for filename. Prefer
// NewGenerator when handling many files with the same configuration.
func Generate(filename string, cfg Config) (Result, error) {
	g, err := NewGenerator(cfg)
	if nil != err {
		return Result{}, err
	}

	return g.Generate(filename)
}

// ValidateFilename rejects names that would corrupt the structure of a blob
// path: empty names, "." and "..", and names containing path separators.
func ValidateFilename(filename string) error {
	switch filename {
	case "":
		return &InvalidFilenameError{Filename: filename, Reason: "must not be empty"}
	case ".", "..":
		return &InvalidFilenameError{Filename: filename, Reason: "must not be a relative directory reference"}
	}

	if strings.ContainsAny(filename, `/\`) {
		return &InvalidFilenameError{Filename: filename, Reason: "must not contain path separators"}
	}

	return nil
}
