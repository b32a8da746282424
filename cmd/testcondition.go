/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsonmapper/integration-mapper/fieldpath"
	"github.com/jsonmapper/integration-mapper/types"
)

// testConditionCmd represents the test-condition command
var testConditionCmd = &cobra.Command{
	Use:   "test-condition",
	Short: "Evaluate a gating condition against a source sample",
	Long: `The test-condition command evaluates a condition against the flattened
fields of a source document. The condition is taken from --condition or from
the definition. An empty condition always passes.

Examples:
  integration-mapper test-condition --definition ./orders.json --source ./samples/order.json
  integration-mapper test-condition --condition 'fields["status"] == "paid"' --source ./samples/order.json`,
	Run: func(cmd *cobra.Command, args []string) {
		definitionPath, _ := cmd.Flags().GetString("definition")
		sourcePath, _ := cmd.Flags().GetString("source")
		condition, _ := cmd.Flags().GetString("condition")

		var sampleSource any
		if definitionPath != "" {
			definition, _, err := loadDefinition(definitionPath, "")
			if err != nil {
				log.Fatalf("Error loading definition: %v", err)
			}
			sampleSource = definition.SampleSource
			if !cmd.Flags().Changed("condition") {
				condition = definition.Condition
			}
		}

		out := cmd.OutOrStdout()
		if strings.TrimSpace(condition) == "" {
			fmt.Fprintln(out, "No condition set, the integration always runs")
			return
		}

		source, err := readDocument(sourcePath, types.DocumentRoleSource, sampleSource)
		if err != nil {
			log.Fatalf("Error reading source: %v", err)
		}

		fields := fieldpath.FieldMap(fieldpath.FlattenValue(source))
		passed, err := newEngineClient().Evaluator.EvaluateCondition(context.Background(), condition, fields)
		if err != nil {
			log.Fatalf("Condition failed: %v", err)
		}
		if passed {
			fmt.Fprintln(out, "Condition is true, the integration would run")
		} else {
			fmt.Fprintln(out, "Condition is false, the integration would be skipped")
		}
	},
}

func init() {
	rootCmd.AddCommand(testConditionCmd)

	testConditionCmd.Flags().StringP("definition", "d", "", "Integration definition file")
	testConditionCmd.Flags().StringP("source", "s", "", "Source JSON file (default is the sample stored in the definition)")
	testConditionCmd.Flags().StringP("condition", "c", "", "Condition to evaluate instead of the one in the definition")
}
