/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jsonmapper/integration-mapper/engine"
	"github.com/jsonmapper/integration-mapper/expression"
	"github.com/jsonmapper/integration-mapper/filepathparser"
	"github.com/jsonmapper/integration-mapper/hcl"
	"github.com/jsonmapper/integration-mapper/history"
	"github.com/jsonmapper/integration-mapper/integration"
	"github.com/jsonmapper/integration-mapper/json"
	"github.com/jsonmapper/integration-mapper/mapping"
	"github.com/jsonmapper/integration-mapper/store"
	"github.com/jsonmapper/integration-mapper/types"
)

const (
	storeFolder   = "integrations"
	historyFolder = "history"
)

func workingFolderPath() string {
	workingFolderPath, err := filepathparser.ParsePath(viper.GetString("workingFolderPath"))
	if err != nil {
		log.Fatalf("Error getting working folder path: %v", err)
	}
	return workingFolderPath
}

func newEngineClient() *engine.EngineClient {
	evaluator := expression.NewHclEvaluator(
		viper.GetDuration("expressionTimeout"),
		viper.GetInt("expressionMaxBytes"),
		viper.GetInt("expressionMaxNodes"),
		log,
	)
	if maxSteps := viper.GetInt("expressionMaxSteps"); maxSteps > 0 {
		evaluator.MaxSteps = maxSteps
	}
	return engine.NewEngineClient(evaluator, log)
}

func newFileStore() *store.FileStore {
	return store.NewFileStore(filepath.Join(workingFolderPath(), storeFolder), viper.GetString("siteUrl"), log)
}

func newHistoryClient() *history.RunHistoryClient {
	return history.NewRunHistoryClient(filepath.Join(workingFolderPath(), historyFolder), log)
}

// loadDefinition reads a definition file as JSON, YAML or HCL. HCL files
// only carry the condition and the mappings.
func loadDefinition(path string, formatFlag string) (*types.IntegrationDefinition, filepathparser.Format, error) {
	definitionPath, err := filepathparser.ParsePath(path)
	if err != nil {
		return nil, "", err
	}
	format, err := filepathparser.ParseFormat(formatFlag, definitionPath)
	if err != nil {
		return nil, "", err
	}

	if format == filepathparser.FormatHCL {
		mappingsFile, err := hcl.NewHclClient(filepath.Dir(definitionPath), log).ReadMappings(definitionPath)
		if err != nil {
			return nil, format, err
		}
		definition := &types.IntegrationDefinition{
			Name:      trimExtension(filepath.Base(definitionPath)),
			Condition: mappingsFile.Condition,
			Target:    types.Target{Type: types.TargetTypeHTTP, Method: types.DefaultHTTPMethod, AuthType: types.AuthTypeNone, Headers: map[string]string{}},
			Mappings:  mapping.New(mappingsFile.Mappings...).Mappings(),
		}
		return definition, format, nil
	}

	content, err := os.ReadFile(definitionPath)
	if err != nil {
		return nil, format, errors.Wrap(err, "reading definition")
	}
	definition, err := integration.Decode(content)
	if err != nil {
		return nil, format, err
	}
	log.Debugf("Loaded definition %q with %d mappings from %s", definition.Name, len(definition.Mappings), definitionPath)
	return definition, format, nil
}

func writeDefinition(path string, format filepathparser.Format, definition *types.IntegrationDefinition) error {
	definitionPath, err := filepathparser.ParsePath(path)
	if err != nil {
		return err
	}

	var content []byte
	switch format {
	case filepathparser.FormatHCL:
		return hcl.NewHclClient(filepath.Dir(definitionPath), log).WriteMappings(definition, definitionPath)
	case filepathparser.FormatYAML:
		content, err = integration.EncodeYAML(definition)
	default:
		content, err = integration.Encode(definition)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(definitionPath, content, 0644); err != nil {
		return errors.Wrap(err, "writing definition")
	}
	log.Debugf("Definition written to %s", definitionPath)
	return nil
}

// readDocument reads a sample or payload file, falling back to the sample
// stored in the definition when path is empty.
func readDocument(path string, role types.DocumentRole, fallback any) (any, error) {
	if path == "" {
		if fallback == nil {
			return nil, errors.Errorf("no %s document given", role)
		}
		return fallback, nil
	}
	documentPath, err := filepathparser.ParsePath(path)
	if err != nil {
		return nil, err
	}
	return json.NewJsonClient(filepath.Dir(documentPath), log).ReadDocument(documentPath, role)
}

func printJSON(out io.Writer, value any) {
	content, err := json.Marshal(value)
	if err != nil {
		log.Fatalf("Error encoding output: %v", err)
	}
	fmt.Fprintln(out, string(content))
}

func trimExtension(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
