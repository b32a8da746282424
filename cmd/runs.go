/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs [run id]",
	Short: "List recorded runs or print one run with its payloads",
	Long: `The runs command lists the run history, newest first. Give a run id to
print the full record including the incoming payload, the transformed payload
and the outgoing request and response.

Examples:
  integration-mapper runs
  integration-mapper runs --integration 0b7d...
  integration-mapper runs 5a2e...`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		historyClient := newHistoryClient()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			detail, err := historyClient.Get(args[0])
			if err != nil {
				log.Fatalf("Error reading run: %v", err)
			}
			printJSON(out, detail)
			return
		}

		integrationID, _ := cmd.Flags().GetString("integration")
		limit, _ := cmd.Flags().GetInt("limit")
		records, err := historyClient.List(integrationID)
		if err != nil {
			log.Fatalf("Error listing runs: %v", err)
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}

		writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "RUN ID\tINTEGRATION\tSTATUS\tTRANSFORM MS\tDELIVERY MS\tCREATED\tMESSAGE")
		for _, record := range records {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				record.RunID,
				record.IntegrationName,
				record.Status,
				record.TransformationTime.Milliseconds(),
				record.DeliveryTime.Milliseconds(),
				record.CreatedAt.Format(time.RFC3339),
				record.ErrorMessage,
			)
		}
		writer.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().StringP("integration", "i", "", "Only list runs of this integration id")
	runsCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list, 0 for all")
}
