// Package integration decodes, encodes and validates integration
// definitions, and keeps the single integration being edited.
package integration

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jsonmapper/integration-mapper/fieldpath"
	jsonclient "github.com/jsonmapper/integration-mapper/json"
	"github.com/jsonmapper/integration-mapper/mapping"
	"github.com/jsonmapper/integration-mapper/types"
)

// wireMapping is the stored form of a mapping: the transform id is a plain
// string and its parameters sit next to it.
type wireMapping struct {
	ID           string            `json:"id,omitempty" yaml:"id,omitempty"`
	Source       types.FieldRef    `json:"source" yaml:"source"`
	Target       types.FieldRef    `json:"target" yaml:"target"`
	Transform    types.TransformID `json:"transform" yaml:"transform"`
	Params       []string          `json:"params" yaml:"params,omitempty"`
	JSCode       string            `json:"jsCode" yaml:"jsCode,omitempty"`
	SourceFields []types.FieldRef  `json:"sourceFields" yaml:"sourceFields,omitempty"`
}

type wireDefinition struct {
	Name         string             `json:"name" yaml:"name"`
	SourceType   types.SourceType   `json:"sourceType" yaml:"sourceType"`
	SourceConfig types.SourceConfig `json:"sourceConfig" yaml:"sourceConfig"`
	Target       types.Target       `json:"target" yaml:"target"`
	Mappings     []wireMapping      `json:"mappings" yaml:"mappings"`
	SampleSource any                `json:"sampleSource" yaml:"sampleSource,omitempty"`
	SampleTarget any                `json:"sampleTarget" yaml:"sampleTarget,omitempty"`
	Condition    *string            `json:"condition" yaml:"condition,omitempty"`
}

// Decode reads a definition from JSON or YAML. Optional fields that are
// missing are defaulted. A missing mappings list, a mapping that is not an
// object or an unknown enum value is a *types.ConfigError.
func Decode(raw []byte) (*types.IntegrationDefinition, error) {
	document, err := parseDocument(raw)
	if err != nil {
		return nil, &types.ConfigError{Err: err}
	}

	root, ok := document.(map[string]any)
	if !ok {
		return nil, &types.ConfigError{Err: errors.New("definition is not an object")}
	}

	normalized := make(map[string]any, len(root))
	for key, value := range root {
		normalized[key] = value
	}

	rawMappings, present := root["mappings"]
	if !present || rawMappings == nil {
		return nil, &types.ConfigError{Field: "mappings", Err: errors.New("mappings list is missing")}
	}
	list, ok := rawMappings.([]any)
	if !ok {
		return nil, &types.ConfigError{Field: "mappings", Err: fmt.Errorf("expected a list, got %s", fieldpath.KindOf(rawMappings))}
	}

	mappings := make([]any, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, &types.ConfigError{Field: fmt.Sprintf("mappings[%d]", i), Err: errors.New("mapping is not an object")}
		}
		mappings[i] = normalizeMapping(entry)
	}
	normalized["mappings"] = mappings

	definition := &types.IntegrationDefinition{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           definition,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating decoder")
	}
	if err := decoder.Decode(normalized); err != nil {
		return nil, &types.ConfigError{Err: err}
	}

	if err := applyDefaults(definition, root); err != nil {
		return nil, err
	}
	return definition, nil
}

// Encode writes the definition in the stored JSON form.
func Encode(definition *types.IntegrationDefinition) ([]byte, error) {
	return jsonclient.Marshal(toWire(definition))
}

func EncodeYAML(definition *types.IntegrationDefinition) ([]byte, error) {
	content, err := yaml.Marshal(toWire(definition))
	if err != nil {
		return nil, errors.Wrap(err, "encoding YAML")
	}
	return content, nil
}

// SetSampleSource replaces the sample source document. Mappings are not
// touched, also when raw is malformed.
func SetSampleSource(definition *types.IntegrationDefinition, raw []byte) error {
	document, err := fieldpath.Parse(raw, types.DocumentRoleSource)
	if err != nil {
		return err
	}
	definition.SampleSource = document
	return nil
}

func SetSampleTarget(definition *types.IntegrationDefinition, raw []byte) error {
	document, err := fieldpath.Parse(raw, types.DocumentRoleTarget)
	if err != nil {
		return err
	}
	definition.SampleTarget = document
	return nil
}

func parseDocument(raw []byte) (any, error) {
	var document any
	if json.Valid(raw) {
		if err := json.Unmarshal(raw, &document); err != nil {
			return nil, err
		}
		return document, nil
	}

	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, errors.Wrap(err, "definition is neither JSON nor YAML")
	}

	// Round trip through JSON so YAML integers decode like JSON numbers.
	content, err := json.Marshal(document)
	if err != nil {
		return nil, errors.Wrap(err, "definition cannot be represented as JSON")
	}
	document = nil
	if err := json.Unmarshal(content, &document); err != nil {
		return nil, err
	}
	return document, nil
}

func normalizeMapping(entry map[string]any) map[string]any {
	normalized := make(map[string]any, len(entry))
	for key, value := range entry {
		normalized[key] = value
	}

	spec := map[string]any{"params": entry["params"]}
	switch transformValue := entry["transform"].(type) {
	case map[string]any:
		spec["id"] = transformValue["id"]
		if params, ok := transformValue["params"]; ok && params != nil {
			spec["params"] = params
		}
	case nil:
		spec["id"] = string(types.TransformNone)
	default:
		spec["id"] = transformValue
	}
	normalized["transform"] = spec
	delete(normalized, "params")
	return normalized
}

func applyDefaults(definition *types.IntegrationDefinition, root map[string]any) error {
	if definition.SourceType == "" {
		definition.SourceType = types.SourceTypeWebhook
	}
	if !definition.SourceType.IsValidSourceType() {
		return &types.ConfigError{Field: "sourceType", Err: fmt.Errorf("unknown source type %q", definition.SourceType)}
	}

	target := &definition.Target
	if target.Type == "" {
		target.Type = types.TargetTypeHTTP
	}
	if !target.Type.IsValidTargetType() {
		return &types.ConfigError{Field: "target.type", Err: fmt.Errorf("unknown target type %q", target.Type)}
	}

	target.Method = strings.ToUpper(strings.TrimSpace(target.Method))
	if target.Method == "" {
		target.Method = types.DefaultHTTPMethod
	}

	if target.AuthType == "" {
		target.AuthType = types.AuthTypeNone
	}
	if !target.AuthType.IsValidAuthType() {
		return &types.ConfigError{Field: "target.authType", Err: fmt.Errorf("unknown auth type %q", target.AuthType)}
	}
	if target.AuthType == types.AuthTypeAPIKey && target.Auth.HeaderName == "" {
		target.Auth.HeaderName = types.DefaultAPIKeyHeader
	}

	email := &target.EmailConfig
	if email.SMTPPort == 0 {
		email.SMTPPort = types.DefaultSMTPPort
	}
	if email.Subject == "" {
		email.Subject = types.DefaultEmailSubject
	}
	if _, present := fieldpath.Read(root, "target.emailConfig.useTLS"); !present {
		email.UseTLS = true
	}

	for i := range definition.Mappings {
		m := &definition.Mappings[i]
		if m.Transform.ID == "" {
			m.Transform.ID = types.TransformNone
		}
		if len(m.Transform.Params) == 0 {
			m.Transform.Params = nil
		}
		if len(m.SourceFields) == 0 {
			m.SourceFields = nil
		}
	}
	definition.Mappings = mapping.New(definition.Mappings...).Mappings()
	return nil
}

func toWire(definition *types.IntegrationDefinition) wireDefinition {
	mappings := make([]wireMapping, 0, len(definition.Mappings))
	for _, m := range definition.Mappings {
		mappings = append(mappings, wireMapping{
			ID:           m.ID,
			Source:       m.Source,
			Target:       m.Target,
			Transform:    m.Transform.ID,
			Params:       nonNilStrings(m.Transform.Params),
			JSCode:       m.Code,
			SourceFields: nonNilRefs(m.SourceFields),
		})
	}

	wire := wireDefinition{
		Name:         definition.Name,
		SourceType:   definition.SourceType,
		SourceConfig: definition.SourceConfig,
		Target:       definition.Target,
		Mappings:     mappings,
		SampleSource: jsonclient.Sanitize(definition.SampleSource),
		SampleTarget: jsonclient.Sanitize(definition.SampleTarget),
	}
	if definition.Condition != "" {
		condition := definition.Condition
		wire.Condition = &condition
	}
	return wire
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilRefs(values []types.FieldRef) []types.FieldRef {
	if values == nil {
		return []types.FieldRef{}
	}
	return values
}
