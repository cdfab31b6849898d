package prefix

import "fmt"

// Style selects how the prefix segments and the file name are rendered.
type Style string

const (
	// StyleNested renders every segment as its own directory level, e.g.
	// "f9/50/report.parquet".
	StyleNested Style = "nested"
	// StyleDashed renders the concatenated segments as a flat file name
	// prefix, e.g. "f950-report.parquet".
	StyleDashed Style = "dashed"
)

// Config holds the options for deriving a prefix from a file name.
type Config struct {
	Depth         int       `json:"depth"`
	CharsPerLevel int       `json:"charsPerLevel"`
	Algorithm     Algorithm `json:"algorithm,omitempty"`
	Style         Style     `json:"style,omitempty"`
}

// DefaultConfig returns two levels of two md5 hex characters each, nested.
func DefaultConfig() Config {
	return Config{
		Depth:         2,
		CharsPerLevel: 2,
		Algorithm:     MD5,
		Style:         StyleNested,
	}
}

// Validate checks the configuration without hashing anything. An empty
// algorithm or style means the default.
func (c Config) Validate() error {
	if c.Depth <= 0 {
		return &ConfigurationError{Field: "depth", Reason: fmt.Sprintf("must be positive, got %d", c.Depth)}
	}
	if c.CharsPerLevel <= 0 {
		return &ConfigurationError{Field: "chars per level", Reason: fmt.Sprintf("must be positive, got %d", c.CharsPerLevel)}
	}

	switch c.style() {
	case StyleNested, StyleDashed:
	default:
		return &ConfigurationError{Field: "style", Reason: fmt.Sprintf("%q is not supported", c.Style)}
	}

	hexLen := c.algorithm().HexLen()
	if 0 == hexLen {
		return &ConfigurationError{Field: "algorithm", Reason: fmt.Sprintf("%q is not supported", c.Algorithm)}
	}

	// Compare without multiplying first; huge values must not overflow into
	// something that looks valid.
	if c.Depth > hexLen || c.CharsPerLevel > hexLen || c.Depth*c.CharsPerLevel > hexLen {
		return &ConfigurationError{
			Field: "depth * chars per level",
			Reason: fmt.Sprintf("%d * %d exceeds the %d hex characters of a %s digest",
				c.Depth, c.CharsPerLevel, hexLen, c.algorithm()),
		}
	}

	return nil
}

func (c Config) algorithm() Algorithm {
	if "" == c.Algorithm {
		return MD5
	}

	return c.Algorithm
}

func (c Config) style() Style {
	if "" == c.Style {
		return StyleNested
	}

	return c.Style
}
