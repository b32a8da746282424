/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jsonmapper/integration-mapper/filepathparser"
	"github.com/jsonmapper/integration-mapper/mapping"
	"github.com/jsonmapper/integration-mapper/transform"
	"github.com/jsonmapper/integration-mapper/types"
)

// mappingsCmd represents the mappings command
var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "List and edit the field mappings of a definition",
	Long: `The mappings commands read the definition given with --definition, apply
the requested change and write the definition back in its own format.

Examples:
  integration-mapper mappings list -d ./orders.json
  integration-mapper mappings add -d ./orders.json --source order.id --target id --transform uppercase
  integration-mapper mappings add -d ./orders.json --target total --transform javascript --field a --field b --code 'fields["a"] + fields["b"]'
  integration-mapper mappings remove -d ./orders.json 6f1c...
  integration-mapper mappings export -d ./orders.json --output ./orders.hcl`,
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the mappings in order",
	Run: func(cmd *cobra.Command, args []string) {
		definition, _ := mustLoadMappingsDefinition(cmd)

		writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tSOURCE\tTARGET\tTRANSFORM\tPARAMS")
		for _, entry := range definition.Mappings {
			source := string(entry.Source)
			if entry.Transform.ID.IsCustom() {
				fields := make([]string, len(entry.SourceFields))
				for i, field := range entry.SourceFields {
					fields[i] = string(field)
				}
				source = "[" + strings.Join(fields, ", ") + "]"
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", entry.ID, source, entry.Target, entry.Transform.ID, strings.Join(entry.Transform.Params, ", "))
		}
		writer.Flush()
	},
}

var mappingsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a mapping",
	Run: func(cmd *cobra.Command, args []string) {
		definition, format := mustLoadMappingsDefinition(cmd)

		source, _ := cmd.Flags().GetString("source")
		target, _ := cmd.Flags().GetString("target")
		transformID, _ := cmd.Flags().GetString("transform")
		params, _ := cmd.Flags().GetStringArray("param")
		code, _ := cmd.Flags().GetString("code")
		fields, _ := cmd.Flags().GetStringArray("field")

		entry := types.Mapping{
			Source:    types.FieldRef(source),
			Target:    types.FieldRef(target),
			Transform: types.TransformSpec{ID: types.TransformID(transformID), Params: params},
			Code:      code,
		}
		if !entry.Transform.ID.IsValidTransformID() {
			log.Fatalf("Unknown transform %q", transformID)
		}
		for _, field := range fields {
			entry.SourceFields = append(entry.SourceFields, types.FieldRef(field))
		}
		if len(entry.Transform.Params) == 0 {
			entry.Transform.Params = nil
		}

		set := mapping.New(definition.Mappings...)
		id := set.Add(entry)
		definition.Mappings = set.Mappings()
		mustWriteMappingsDefinition(cmd, format, definition)

		if added, ok := set.Get(id); ok && added.IsInert() {
			log.Warnf("Mapping %s is incomplete and will be skipped until it has a target and a source", id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
	},
}

var mappingsRemoveCmd = &cobra.Command{
	Use:   "remove <mapping id>",
	Short: "Remove a mapping",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		definition, format := mustLoadMappingsDefinition(cmd)

		set := mapping.New(definition.Mappings...)
		if !set.Remove(args[0]) {
			log.Fatalf("Mapping %s not found", args[0])
		}
		definition.Mappings = set.Mappings()
		mustWriteMappingsDefinition(cmd, format, definition)
		log.Infof("Mapping %s removed, %d left", args[0], set.Len())
	},
}

var mappingsToggleFieldCmd = &cobra.Command{
	Use:   "toggle-field <mapping id> <source path>",
	Short: "Add or remove a source field of a custom transform",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		definition, format := mustLoadMappingsDefinition(cmd)

		set := mapping.New(definition.Mappings...)
		if err := set.ToggleSourceField(args[0], types.FieldRef(args[1])); err != nil {
			log.Fatalf("Error toggling field: %v", err)
		}
		definition.Mappings = set.Mappings()
		mustWriteMappingsDefinition(cmd, format, definition)
	},
}

var mappingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report problems in the mappings",
	Run: func(cmd *cobra.Command, args []string) {
		definition, _ := mustLoadMappingsDefinition(cmd)

		diagnostics := mapping.New(definition.Mappings...).Validate()
		out := cmd.OutOrStdout()
		for _, issue := range diagnostics.All() {
			fmt.Fprintln(out, issue.String())
		}
		if diagnostics.HasErrors() {
			os.Exit(1)
		}
		if len(diagnostics.All()) == 0 {
			fmt.Fprintln(out, "No issues found")
		}
	},
}

var mappingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the definition in another format",
	Run: func(cmd *cobra.Command, args []string) {
		definition, _ := mustLoadMappingsDefinition(cmd)

		output, _ := cmd.Flags().GetString("output")
		outputFormat, _ := cmd.Flags().GetString("to")
		format, err := filepathparser.ParseFormat(outputFormat, output)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err := writeDefinition(output, format, definition); err != nil {
			log.Fatalf("Error exporting definition: %v", err)
		}
		log.Infof("Definition exported as %s to %s", format, output)
	},
}

// transformsCmd represents the transforms command
var transformsCmd = &cobra.Command{
	Use:   "transforms",
	Short: "List the available transforms and their parameters",
	Run: func(cmd *cobra.Command, args []string) {
		writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tLABEL\tPARAMS")
		for _, entry := range transform.All() {
			fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.ID, entry.Label, strings.Join(entry.Parameters, ", "))
		}
		writer.Flush()
	},
}

func mustLoadMappingsDefinition(cmd *cobra.Command) (*types.IntegrationDefinition, filepathparser.Format) {
	definitionPath, _ := cmd.Flags().GetString("definition")
	formatFlag, _ := cmd.Flags().GetString("format")
	definition, format, err := loadDefinition(definitionPath, formatFlag)
	if err != nil {
		log.Fatalf("Error loading definition: %v", err)
	}
	return definition, format
}

func mustWriteMappingsDefinition(cmd *cobra.Command, format filepathparser.Format, definition *types.IntegrationDefinition) {
	definitionPath, _ := cmd.Flags().GetString("definition")
	if err := writeDefinition(definitionPath, format, definition); err != nil {
		log.Fatalf("Error writing definition: %v", err)
	}
}

func init() {
	rootCmd.AddCommand(mappingsCmd)
	mappingsCmd.AddCommand(mappingsListCmd, mappingsAddCmd, mappingsRemoveCmd, mappingsToggleFieldCmd, mappingsValidateCmd, mappingsExportCmd)
	rootCmd.AddCommand(transformsCmd)

	mappingsCmd.PersistentFlags().StringP("definition", "d", "", "Integration definition file")
	mappingsCmd.MarkPersistentFlagRequired("definition")
	mappingsCmd.PersistentFlags().StringP("format", "f", "", "Definition format: json, yaml or hcl (default from the file extension)")

	mappingsAddCmd.Flags().String("source", "", "Source field path")
	mappingsAddCmd.Flags().String("target", "", "Target field path")
	mappingsAddCmd.Flags().String("transform", string(types.TransformNone), "Transform id")
	mappingsAddCmd.Flags().StringArray("param", nil, "Transform parameter, repeat for more")
	mappingsAddCmd.Flags().String("code", "", "Custom transform code")
	mappingsAddCmd.Flags().StringArray("field", nil, "Source field bound for custom transform code, repeat for more")

	mappingsExportCmd.Flags().StringP("output", "o", "", "Output file")
	mappingsExportCmd.MarkFlagRequired("output")
	mappingsExportCmd.Flags().String("to", "", "Output format: json, yaml or hcl (default from the output extension)")
}
