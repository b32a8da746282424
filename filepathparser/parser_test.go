package filepathparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath_AbsolutePath(t *testing.T) {
	absPath, _ := os.Getwd()
	result, err := ParsePath(absPath)

	require.NoError(t, err)
	assert.Equal(t, absPath, result)
}

func TestParsePath_HomeDir(t *testing.T) {
	home, _ := os.UserHomeDir()
	result, err := ParsePath("~/integrations/orders.json")

	require.NoError(t, err)
	expected, _ := filepath.Abs(filepath.Join(home, "integrations", "orders.json"))
	assert.Equal(t, expected, result)
}

func TestParsePath_RelativePath(t *testing.T) {
	result, err := ParsePath("samples/source.json")

	require.NoError(t, err)
	expected, _ := filepath.Abs("samples/source.json")
	assert.Equal(t, expected, result)
}

func TestDetectFormat(t *testing.T) {
	testCases := map[string]Format{
		"orders.json":       FormatJSON,
		"orders.YAML":       FormatYAML,
		"orders.yml":        FormatYAML,
		"mappings.hcl":      FormatHCL,
		"orders":            FormatJSON,
		"/tmp/orders.v2.js": FormatJSON,
	}

	for path, expected := range testCases {
		assert.Equal(t, expected, DetectFormat(path), path)
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("", "orders.yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, format)

	format, err = ParseFormat("HCL", "orders.json")
	require.NoError(t, err)
	assert.Equal(t, FormatHCL, format)

	_, err = ParseFormat("toml", "orders.json")
	assert.Error(t, err)
}
