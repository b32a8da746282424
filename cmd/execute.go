/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jsonmapper/integration-mapper/azure"
	"github.com/jsonmapper/integration-mapper/delivery"
	"github.com/jsonmapper/integration-mapper/integration"
	"github.com/jsonmapper/integration-mapper/processor"
	"github.com/jsonmapper/integration-mapper/types"
)

// executeCmd represents the execute command
var executeCmd = &cobra.Command{
	Use:   "execute [integration id]",
	Short: "Run an integration against a payload and deliver the output",
	Long: `The execute command processes one payload: the condition is evaluated, the
mappings are applied and the output is delivered to the HTTP or email target.
Every execution is recorded in the run history, including skipped and failed
ones. Give the id of a stored integration, or --definition to run a definition
that has not been saved.

Examples:
  integration-mapper execute 0b7d... --payload ./samples/order.json
  integration-mapper execute --definition ./orders.json --payload ./samples/order.json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		definitionPath, _ := cmd.Flags().GetString("definition")
		format, _ := cmd.Flags().GetString("format")
		payloadPath, _ := cmd.Flags().GetString("payload")
		if (len(args) == 0) == (definitionPath == "") {
			log.Fatal("Give either an integration id or --definition")
		}

		payload, err := readDocument(payloadPath, types.DocumentRoleSource, nil)
		if err != nil {
			log.Fatalf("Error reading payload: %v", err)
		}

		var tokenClient azure.ITokenClient
		if azureTokenClient, err := azure.NewTokenClient(log); err != nil {
			log.Debugf("Azure credential unavailable, the azure auth type will fail: %v", err)
		} else {
			tokenClient = azureTokenClient
		}

		deliveryClient := delivery.NewDispatchClient(
			delivery.NewHTTPDeliveryClient(viper.GetDuration("deliveryTimeout"), tokenClient, log),
			delivery.NewEmailDeliveryClient(nil, log),
			log,
		)

		processorClient := processor.NewProcessorClient(
			newEngineClient(),
			deliveryClient,
			newHistoryClient(),
			newFileStore(),
			log,
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var record *types.RunRecord
		if len(args) == 1 {
			record, err = processorClient.ProcessStored(ctx, args[0], payload)
		} else {
			definition, _, loadErr := loadDefinition(definitionPath, format)
			if loadErr != nil {
				log.Fatalf("Error loading definition: %v", loadErr)
			}
			record, err = processorClient.Process(ctx, &integration.ActiveIntegration{Definition: definition}, payload)
		}
		if record == nil {
			log.Fatalf("Execution failed: %v", err)
		}

		printRunRecord(cmd, record)
		if err != nil {
			os.Exit(1)
		}
	},
}

func printRunRecord(cmd *cobra.Command, record *types.RunRecord) {
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Run ID:\t%s\n", record.RunID)
	fmt.Fprintf(writer, "Status:\t%s\n", record.Status)
	if record.ErrorMessage != "" {
		fmt.Fprintf(writer, "Message:\t%s\n", record.ErrorMessage)
	}
	if record.FailedTarget != "" {
		fmt.Fprintf(writer, "Failed mapping:\t%s (%s)\n", record.FailedTarget, record.FailedMappingID)
	}
	fmt.Fprintf(writer, "Transformation:\t%dms\n", record.TransformationTime.Milliseconds())
	fmt.Fprintf(writer, "Delivery:\t%dms\n", record.DeliveryTime.Milliseconds())
	fmt.Fprintf(writer, "Created:\t%s\n", record.CreatedAt.Format(time.RFC3339))
	writer.Flush()
}

func init() {
	rootCmd.AddCommand(executeCmd)

	executeCmd.Flags().StringP("definition", "d", "", "Integration definition file to run without saving it")
	executeCmd.Flags().StringP("format", "f", "", "Definition format: json, yaml or hcl (default from the file extension)")
	executeCmd.Flags().StringP("payload", "p", "", "Incoming payload JSON file")
	executeCmd.MarkFlagRequired("payload")
}
