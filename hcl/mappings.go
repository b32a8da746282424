package hcl

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"

	"github.com/jsonmapper/integration-mapper/types"
)

type IHclClient interface {
	WriteMappings(definition *types.IntegrationDefinition, fileName string) error
	ReadMappings(fileName string) (*MappingsFile, error)
}

type HclClient struct {
	WorkingFolderPath string
	Logger            *logrus.Logger
}

// MappingsFile is the content of an HCL mappings file: an optional
// condition followed by one mapping block per mapping, in order.
type MappingsFile struct {
	Condition string
	Mappings  []types.Mapping
}

type hclMappingsFile struct {
	Condition *string      `hcl:"condition,optional"`
	Mappings  []hclMapping `hcl:"mapping,block"`
}

type hclMapping struct {
	ID           string   `hcl:"id,label"`
	Source       string   `hcl:"source,optional"`
	Target       string   `hcl:"target"`
	Transform    string   `hcl:"transform,optional"`
	Params       []string `hcl:"params,optional"`
	Code         string   `hcl:"code,optional"`
	SourceFields []string `hcl:"source_fields,optional"`
}

func NewHclClient(workingFolderPath string, logger *logrus.Logger) *HclClient {
	return &HclClient{
		WorkingFolderPath: workingFolderPath,
		Logger:            logger,
	}
}

func (hclClient *HclClient) WriteMappings(definition *types.IntegrationDefinition, fileName string) error {
	hclFilePath := hclClient.path(fileName)
	content := Render(definition)

	if err := os.MkdirAll(filepath.Dir(hclFilePath), 0755); err != nil {
		return errors.Wrap(err, "creating output folder")
	}
	if err := os.WriteFile(hclFilePath, content, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}

	hclClient.Logger.Infof("HCL mappings file %s written to: %s", fileName, hclFilePath)
	return nil
}

// Render writes the condition and mappings of definition as HCL.
func Render(definition *types.IntegrationDefinition) []byte {
	hclFile := hclwrite.NewEmptyFile()
	body := hclFile.Body()

	if definition.Condition != "" {
		body.SetAttributeValue("condition", cty.StringVal(definition.Condition))
		body.AppendNewline()
	}

	for _, mapping := range definition.Mappings {
		mappingBlock := body.AppendNewBlock("mapping", []string{mapping.ID})
		mappingBody := mappingBlock.Body()
		if mapping.Source != "" {
			mappingBody.SetAttributeValue("source", cty.StringVal(string(mapping.Source)))
		}
		mappingBody.SetAttributeValue("target", cty.StringVal(string(mapping.Target)))
		if mapping.Transform.ID != "" && mapping.Transform.ID != types.TransformNone {
			mappingBody.SetAttributeValue("transform", cty.StringVal(string(mapping.Transform.ID)))
		}
		if len(mapping.Transform.Params) > 0 {
			mappingBody.SetAttributeValue("params", stringList(mapping.Transform.Params))
		}
		if mapping.Code != "" {
			mappingBody.SetAttributeValue("code", cty.StringVal(mapping.Code))
		}
		if len(mapping.SourceFields) > 0 {
			sourceFields := make([]string, len(mapping.SourceFields))
			for i, field := range mapping.SourceFields {
				sourceFields[i] = string(field)
			}
			mappingBody.SetAttributeValue("source_fields", stringList(sourceFields))
		}
		body.AppendNewline()
	}

	return hclFile.Bytes()
}

func (hclClient *HclClient) ReadMappings(fileName string) (*MappingsFile, error) {
	hclFilePath := hclClient.path(fileName)
	content, err := os.ReadFile(hclFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	mappingsFile, err := Parse(content, hclFilePath)
	if err != nil {
		return nil, err
	}
	hclClient.Logger.Debugf("Read %d mappings from %s", len(mappingsFile.Mappings), hclFilePath)
	return mappingsFile, nil
}

// Parse decodes HCL mappings content. Diagnostics are reported as a
// *types.ConfigError on "mappings".
func Parse(content []byte, fileName string) (*MappingsFile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, fileName)
	if diags.HasErrors() {
		return nil, &types.ConfigError{Field: "mappings", Err: diags}
	}

	decoded := hclMappingsFile{}
	if diags := gohcl.DecodeBody(file.Body, nil, &decoded); diags.HasErrors() {
		return nil, &types.ConfigError{Field: "mappings", Err: diags}
	}

	mappingsFile := &MappingsFile{Mappings: make([]types.Mapping, 0, len(decoded.Mappings))}
	if decoded.Condition != nil {
		mappingsFile.Condition = *decoded.Condition
	}
	for _, entry := range decoded.Mappings {
		mapping := types.Mapping{
			ID:     entry.ID,
			Source: types.FieldRef(entry.Source),
			Target: types.FieldRef(entry.Target),
			Transform: types.TransformSpec{
				ID:     types.TransformID(entry.Transform),
				Params: entry.Params,
			},
			Code: entry.Code,
		}
		if mapping.Transform.ID == "" {
			mapping.Transform.ID = types.TransformNone
		}
		if !mapping.Transform.ID.IsValidTransformID() {
			return nil, &types.ConfigError{Field: "mappings", Err: errors.Errorf("mapping %s: unknown transform %q", entry.ID, entry.Transform)}
		}
		if len(mapping.Transform.Params) == 0 {
			mapping.Transform.Params = nil
		}
		for _, field := range entry.SourceFields {
			mapping.SourceFields = append(mapping.SourceFields, types.FieldRef(field))
		}
		mappingsFile.Mappings = append(mappingsFile.Mappings, mapping)
	}
	return mappingsFile, nil
}

func stringList(values []string) cty.Value {
	elements := make([]cty.Value, len(values))
	for i, value := range values {
		elements[i] = cty.StringVal(value)
	}
	return cty.ListVal(elements)
}

func (hclClient *HclClient) path(fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(hclClient.WorkingFolderPath, fileName)
}
