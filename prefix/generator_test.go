package prefix

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexSegment = regexp.MustCompile(`^[0-9a-f]+$`)

func TestGenerate_ReferenceValue(t *testing.T) {
	// md5("report.parquet") = f95068d7caa3c21ba52d0e70f3a146cb
	res, err := Generate("report.parquet", Config{Depth: 2, CharsPerLevel: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"f9", "50"}, res.Segments)
	assert.Equal(t, "report.parquet", res.Filename)
	assert.Equal(t, "f9/50/report.parquet", res.Path())
	assert.Equal(t, "f9/50", res.Prefix())
}

func TestGenerate_Boundary(t *testing.T) {
	// md5("file.json") = 691b7f51a2a042ae60bbc467eedf8882
	res, err := Generate("file.json", Config{Depth: 1, CharsPerLevel: 4})
	require.NoError(t, err)
	assert.Equal(t, "691b/file.json", res.Path())
}

func TestGenerate_FullDigestIsAccepted(t *testing.T) {
	res, err := Generate("report.parquet", Config{Depth: 16, CharsPerLevel: 2})
	require.NoError(t, err)
	assert.Equal(t, "f95068d7caa3c21ba52d0e70f3a146cb", strings.Join(res.Segments, ""))
}

func TestGenerate_Algorithms(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		depth     int
		chars     int
		want      string
	}{
		{MD5, 3, 1, "f/9/5/report.parquet"},
		{SHA1, 1, 3, "e26/report.parquet"},
		{SHA256, 3, 2, "9c/a3/ae/report.parquet"},
		{BLAKE2b, 2, 3, "21b/960/report.parquet"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			res, err := Generate("report.parquet", Config{
				Depth:         tt.depth,
				CharsPerLevel: tt.chars,
				Algorithm:     tt.algorithm,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Path())
		})
	}
}

func TestGenerate_DashedStyle(t *testing.T) {
	res, err := Generate("report.parquet", Config{Depth: 2, CharsPerLevel: 2, Style: StyleDashed})
	require.NoError(t, err)
	assert.Equal(t, "f950-report.parquet", res.Path())
	assert.Equal(t, "f950", res.Prefix())
}

func TestGenerate_Determinism(t *testing.T) {
	for _, algorithm := range Algorithms() {
		cfg := Config{Depth: 3, CharsPerLevel: 2, Algorithm: algorithm}
		for i := 0; i < 50; i++ {
			name := fmt.Sprintf("part-%05d.csv", i)
			first, err := Generate(name, cfg)
			require.NoError(t, err)
			second, err := Generate(name, cfg)
			require.NoError(t, err)
			assert.Equal(t, first, second, "%s: %s", algorithm, name)
		}
	}
}

func TestGenerate_SegmentShape(t *testing.T) {
	for _, algorithm := range Algorithms() {
		hexLen := algorithm.HexLen()
		for depth := 1; depth <= 8; depth++ {
			for chars := 1; depth*chars <= hexLen && chars <= 4; chars++ {
				g, err := NewGenerator(Config{Depth: depth, CharsPerLevel: chars, Algorithm: algorithm})
				require.NoError(t, err)

				res, err := g.Generate("data.bin")
				require.NoError(t, err)

				parts := strings.Split(res.Path(), "/")
				require.Len(t, parts, depth+1)
				assert.Equal(t, "data.bin", parts[depth])
				for _, seg := range parts[:depth] {
					assert.Len(t, seg, chars)
					assert.Regexp(t, hexSegment, seg)
				}
			}
		}
	}
}

func TestGenerate_Distribution(t *testing.T) {
	names := make([]string, 1000)
	for i := range names {
		names[i] = fmt.Sprintf("file_%04d.txt", i+1)
	}

	tests := []struct {
		chars    int
		maxShare float64
	}{
		{chars: 1, maxShare: 2},
		{chars: 2, maxShare: 4},
	}

	for _, tt := range tests {
		g, err := NewGenerator(Config{Depth: 1, CharsPerLevel: tt.chars})
		require.NoError(t, err)

		counts := map[string]int{}
		for _, name := range names {
			res, err := g.Generate(name)
			require.NoError(t, err)
			counts[res.Segments[0]]++
		}

		buckets := math.Pow(16, float64(tt.chars))
		average := float64(len(names)) / buckets
		for seg, n := range counts {
			assert.LessOrEqual(t, float64(n), tt.maxShare*average, "segment %q is a hotspot", seg)
		}
		assert.Greater(t, float64(len(counts)), buckets*0.9)
	}
}

func TestGenerate_ConcurrentUse(t *testing.T) {
	g, err := NewGenerator(DefaultConfig())
	require.NoError(t, err)

	want, err := g.Generate("report.parquet")
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := g.Generate("report.parquet")
				assert.NoError(t, err)
				assert.Equal(t, want.Path(), got.Path())
			}
		}()
	}
	wg.Wait()
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"zero depth", Config{Depth: 0, CharsPerLevel: 2}, "depth"},
		{"negative chars", Config{Depth: 2, CharsPerLevel: -1}, "chars per level"},
		{"exceeds md5", Config{Depth: 17, CharsPerLevel: 2}, "depth * chars per level"},
		{"exceeds xxhash", Config{Depth: 3, CharsPerLevel: 6, Algorithm: XXHash}, "depth * chars per level"},
		{"overflow", Config{Depth: math.MaxInt, CharsPerLevel: math.MaxInt}, "depth * chars per level"},
		{"unknown algorithm", Config{Depth: 1, CharsPerLevel: 1, Algorithm: "crc32"}, "algorithm"},
		{"unknown style", Config{Depth: 1, CharsPerLevel: 1, Style: "flat"}, "style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)

			_, err = NewGenerator(tt.cfg)
			assert.True(t, errors.As(err, &cfgErr))

			_, err = Generate("file.json", tt.cfg)
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestGenerate_ConfigurationCheckedBeforeFilename(t *testing.T) {
	_, err := Generate("", Config{Depth: 17, CharsPerLevel: 2})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestGenerate_InvalidFilenames(t *testing.T) {
	g, err := NewGenerator(DefaultConfig())
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "a/b.txt", `a\b.txt`, "/abs.txt", "dir/"} {
		_, err := g.Generate(name)
		var nameErr *InvalidFilenameError
		require.True(t, errors.As(err, &nameErr), "%q: got %v", name, err)
		assert.Equal(t, name, nameErr.Filename)
	}
}

func TestGenerator_ConfigDefaults(t *testing.T) {
	g, err := NewGenerator(Config{Depth: 1, CharsPerLevel: 1})
	require.NoError(t, err)
	assert.Equal(t, MD5, g.Config().Algorithm)
	assert.Equal(t, StyleNested, g.Config().Style)
}
