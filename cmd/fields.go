/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jsonmapper/integration-mapper/fieldpath"
	"github.com/jsonmapper/integration-mapper/filepathparser"
	"github.com/jsonmapper/integration-mapper/types"
)

// fieldsCmd represents the fields command
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields of the source and target samples",
	Long: `The fields command flattens the sample documents into dotted paths and
prints each path with its kind and a short value preview. Samples are read from
--source and --target, or from the definition given with --definition.

Examples:
  integration-mapper fields --source ./samples/order.json
  integration-mapper fields --definition ./orders.json`,
	Run: func(cmd *cobra.Command, args []string) {
		definitionPath, _ := cmd.Flags().GetString("definition")
		sourcePath, _ := cmd.Flags().GetString("source")
		targetPath, _ := cmd.Flags().GetString("target")

		var sampleSource, sampleTarget any
		if definitionPath != "" {
			definition, _, err := loadDefinition(definitionPath, "")
			if err != nil {
				log.Fatalf("Error loading definition: %v", err)
			}
			sampleSource = definition.SampleSource
			sampleTarget = definition.SampleTarget
		}

		if sourcePath == "" && targetPath == "" && sampleSource == nil && sampleTarget == nil {
			log.Fatal("Give --source, --target or a --definition with samples")
		}

		out := cmd.OutOrStdout()
		for _, sample := range []struct {
			role     types.DocumentRole
			path     string
			fallback any
		}{
			{types.DocumentRoleSource, sourcePath, sampleSource},
			{types.DocumentRoleTarget, targetPath, sampleTarget},
		} {
			if sample.path == "" && sample.fallback == nil {
				continue
			}
			fields, err := flattenSample(sample.path, sample.role, sample.fallback)
			if err != nil {
				log.Fatalf("Error reading %s sample: %v", sample.role, err)
			}
			printFields(out, sample.role, fields)
		}
	},
}

// flattenSample keeps the key order of the file when reading from path.
func flattenSample(path string, role types.DocumentRole, fallback any) ([]types.FlattenedField, error) {
	if path == "" {
		return fieldpath.FlattenValue(fallback), nil
	}
	samplePath, err := filepathparser.ParsePath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(samplePath)
	if err != nil {
		return nil, err
	}
	if _, err := fieldpath.Parse(content, role); err != nil {
		return nil, err
	}
	return fieldpath.Flatten(content)
}

func printFields(out io.Writer, role types.DocumentRole, fields []types.FlattenedField) {
	fmt.Fprintf(out, "%s fields (%d)\n", role, len(fields))
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "PATH\tKIND\tPREVIEW")
	for _, field := range fields {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", field.Path, field.Kind, fieldpath.Preview(field))
	}
	writer.Flush()
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(fieldsCmd)

	fieldsCmd.Flags().StringP("definition", "d", "", "Integration definition file")
	fieldsCmd.Flags().StringP("source", "s", "", "Source sample JSON file")
	fieldsCmd.Flags().StringP("target", "t", "", "Target sample JSON file")
}
