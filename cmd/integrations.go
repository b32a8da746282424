/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsonmapper/integration-mapper/integration"
	"github.com/jsonmapper/integration-mapper/types"
)

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Validate a definition and store it as the active integration",
	Long: `The save command validates the definition and writes it to the integration
store in the working folder. Without --id a new integration is created; with
--id the stored integration is updated. The saved integration becomes the
active one.

Examples:
  integration-mapper save --definition ./orders.json
  integration-mapper save --definition ./orders.json --id 0b7d...`,
	Run: func(cmd *cobra.Command, args []string) {
		definitionPath, _ := cmd.Flags().GetString("definition")
		format, _ := cmd.Flags().GetString("format")
		id, _ := cmd.Flags().GetString("id")
		sourcePath, _ := cmd.Flags().GetString("source")
		targetPath, _ := cmd.Flags().GetString("target")

		definition, _, err := loadDefinition(definitionPath, format)
		if err != nil {
			log.Fatalf("Error loading definition: %v", err)
		}
		if sourcePath != "" {
			if definition.SampleSource, err = readDocument(sourcePath, types.DocumentRoleSource, nil); err != nil {
				log.Fatalf("Error reading source sample: %v", err)
			}
		}
		if targetPath != "" {
			if definition.SampleTarget, err = readDocument(targetPath, types.DocumentRoleTarget, nil); err != nil {
				log.Fatalf("Error reading target sample: %v", err)
			}
		}

		workspace := integration.NewWorkspace(newFileStore(), log)
		if id != "" {
			if _, err := workspace.Load(id); err != nil {
				log.Fatalf("Error loading integration %s: %v", id, err)
			}
		}
		workspace.Open(definition).ID = id

		active, err := workspace.Save()
		if err != nil {
			log.Fatalf("Error saving integration: %v", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID: %s\n", active.ID)
		if active.WebhookURL != "" {
			fmt.Fprintf(out, "Webhook URL: %s\n", active.WebhookURL)
		}
	},
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [integration id]",
	Short: "List stored integrations or print one definition",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		integrationStore := newFileStore()
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			records, err := integrationStore.List()
			if err != nil {
				log.Fatalf("Error listing integrations: %v", err)
			}
			writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tACTIVE\tUPDATED\tWEBHOOK URL")
			for _, record := range records {
				fmt.Fprintf(writer, "%s\t%s\t%t\t%s\t%s\n", record.ID, record.Name, record.IsActive, record.UpdatedAt.Format(time.RFC3339), record.WebhookURL)
			}
			writer.Flush()
			return
		}

		active, err := integration.NewWorkspace(integrationStore, log).Load(args[0])
		if err != nil {
			log.Fatalf("Error loading integration: %v", err)
		}
		content, err := integration.Encode(active.Definition)
		if err != nil {
			log.Fatalf("Error encoding definition: %v", err)
		}
		fmt.Fprintln(out, string(content))
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(showCmd)

	saveCmd.Flags().StringP("definition", "d", "", "Integration definition file")
	saveCmd.MarkFlagRequired("definition")
	saveCmd.Flags().StringP("format", "f", "", "Definition format: json, yaml or hcl (default from the file extension)")
	saveCmd.Flags().String("id", "", "Id of the stored integration to update")
	saveCmd.Flags().StringP("source", "s", "", "Source sample to store with the definition")
	saveCmd.Flags().StringP("target", "t", "", "Target sample to store with the definition")
}
