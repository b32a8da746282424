/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jsonmapper/integration-mapper/engine"
	"github.com/jsonmapper/integration-mapper/filepathparser"
	"github.com/jsonmapper/integration-mapper/mapping"
	"github.com/jsonmapper/integration-mapper/store"
	"github.com/jsonmapper/integration-mapper/types"
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Apply the mappings of a definition to a source sample",
	Long: `The preview command runs the condition and the mappings of a definition
against a source document and prints the resulting output. Nothing is sent.
With --watch the preview is recomputed whenever the definition or the source
file changes.

Examples:
  integration-mapper preview --definition ./orders.json --source ./samples/order.json
  integration-mapper preview --definition ./orders.yaml --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		definitionPath, _ := cmd.Flags().GetString("definition")
		sourcePath, _ := cmd.Flags().GetString("source")
		format, _ := cmd.Flags().GetString("format")
		watch, _ := cmd.Flags().GetBool("watch")

		engineClient := newEngineClient()
		out := cmd.OutOrStdout()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := preview(ctx, out, engineClient, definitionPath, format, sourcePath); err != nil && !watch {
			log.Fatalf("Preview failed: %v", err)
		}
		if !watch {
			return
		}

		paths := []string{definitionPath}
		if sourcePath != "" {
			paths = append(paths, sourcePath)
		}
		for i, path := range paths {
			absolutePath, err := filepathparser.ParsePath(path)
			if err != nil {
				log.Fatalf("Error resolving %s: %v", path, err)
			}
			paths[i] = absolutePath
		}

		log.Infof("Watching %d files, press Ctrl+C to stop", len(paths))
		watcher := store.NewFileWatcher(paths, log)
		err := watcher.Watch(ctx, func(name string) {
			log.Infof("%s changed, recomputing preview", name)
			_ = preview(ctx, out, engineClient, definitionPath, format, sourcePath)
		})
		if err != nil {
			log.Fatalf("Watch failed: %v", err)
		}
	},
}

func preview(ctx context.Context, out io.Writer, engineClient engine.IEngineClient, definitionPath string, format string, sourcePath string) error {
	definition, _, err := loadDefinition(definitionPath, format)
	if err != nil {
		log.Errorf("Error loading definition: %v", err)
		return err
	}
	source, err := readDocument(sourcePath, types.DocumentRoleSource, definition.SampleSource)
	if err != nil {
		log.Errorf("Error reading source: %v", err)
		return err
	}

	diagnostics := mapping.New(definition.Mappings...).Validate()
	for _, issue := range diagnostics.All() {
		if issue.Severity != types.IssueSeverityError {
			log.Warnf("%s", issue)
		}
	}

	result, err := engineClient.Apply(ctx, engine.PlanFor(definition), source)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}
	if result.Skipped {
		fmt.Fprintln(out, "Condition evaluated to false, no output")
		return nil
	}
	printJSON(out, result.Output)
	return nil
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringP("definition", "d", "", "Integration definition file")
	previewCmd.MarkFlagRequired("definition")
	previewCmd.Flags().StringP("source", "s", "", "Source JSON file (default is the sample stored in the definition)")
	previewCmd.Flags().StringP("format", "f", "", "Definition format: json, yaml or hcl (default from the file extension)")
	previewCmd.Flags().Bool("watch", false, "Recompute the preview when the definition or source changes")
}
