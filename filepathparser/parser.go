package filepathparser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

func (format Format) IsValidFormat() bool {
	switch format {
	case FormatJSON,
		FormatYAML,
		FormatHCL:
		return true
	default:
		return false
	}
}

func ParsePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		dirname, _ := os.UserHomeDir()
		path = filepath.Join(dirname, path[2:])
	}

	return filepath.Abs(path)
}

// DetectFormat picks the definition format from the file extension.
// Files without a known extension are read as JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".hcl":
		return FormatHCL
	default:
		return FormatJSON
	}
}

// ParseFormat resolves an explicit --format value, falling back to the
// extension of path when value is empty.
func ParseFormat(value string, path string) (Format, error) {
	if value == "" {
		return DetectFormat(path), nil
	}
	format := Format(strings.ToLower(value))
	if !format.IsValidFormat() {
		return "", errors.Errorf("unknown format %q, expected json, yaml or hcl", value)
	}
	return format, nil
}
