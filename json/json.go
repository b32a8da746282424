package json

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jsonmapper/integration-mapper/fieldpath"
	"github.com/jsonmapper/integration-mapper/types"
)

type IJsonClient interface {
	ReadDocument(fileName string, role types.DocumentRole) (any, error)
	Export(value any, fileName string) error
	Import(fileName string, target any) error
}

type JsonClient struct {
	WorkingFolderPath string
	Logger            *logrus.Logger
}

func NewJsonClient(workingFolderPath string, logger *logrus.Logger) *JsonClient {
	return &JsonClient{
		WorkingFolderPath: workingFolderPath,
		Logger:            logger,
	}
}

// ReadDocument reads a sample document. Malformed content is reported as a
// *types.ParseError for role.
func (jsonClient *JsonClient) ReadDocument(fileName string, role types.DocumentRole) (any, error) {
	content, err := os.ReadFile(jsonClient.path(fileName))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s document", role)
	}

	document, err := fieldpath.Parse(content, role)
	if err != nil {
		return nil, err
	}
	jsonClient.Logger.Debugf("Read %s document from %s", role, jsonClient.path(fileName))
	return document, nil
}

// Export writes value as indented JSON. NaN and infinite numbers are written
// as null.
func (jsonClient *JsonClient) Export(value any, fileName string) error {
	content, err := Marshal(value)
	if err != nil {
		return err
	}

	jsonFilePath := jsonClient.path(fileName)
	if err := os.MkdirAll(filepath.Dir(jsonFilePath), 0755); err != nil {
		return errors.Wrap(err, "creating output folder")
	}
	if err := os.WriteFile(jsonFilePath, content, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}

	jsonClient.Logger.Debugf("JSON written to %s", jsonFilePath)
	return nil
}

func (jsonClient *JsonClient) Import(fileName string, target any) error {
	content, err := os.ReadFile(jsonClient.path(fileName))
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	if err := json.Unmarshal(content, target); err != nil {
		return errors.Wrapf(err, "decoding %s", fileName)
	}
	return nil
}

func (jsonClient *JsonClient) path(fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(jsonClient.WorkingFolderPath, fileName)
}

// Marshal encodes value as indented JSON without escaping HTML characters.
// Numbers that JSON cannot represent become null.
func Marshal(value any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Sanitize(value)); err != nil {
		return nil, errors.Wrap(err, "encoding JSON")
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// Sanitize returns a copy of a decoded JSON value in which NaN and infinite
// numbers are replaced by nil. Other values are returned unchanged.
func Sanitize(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case map[string]any:
		sanitized := make(map[string]any, len(v))
		for key, element := range v {
			sanitized[key] = Sanitize(element)
		}
		return sanitized
	case []any:
		sanitized := make([]any, len(v))
		for i, element := range v {
			sanitized[i] = Sanitize(element)
		}
		return sanitized
	default:
		return v
	}
}
