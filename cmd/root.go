/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logrus.New()

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "integration-mapper",
	Short: "Map incoming JSON payloads onto outgoing integration payloads",
	Long: `integration-mapper maintains integration definitions: the field mappings
between a source JSON document and a target JSON document, an optional gating
condition and the delivery target.

Examples:
  # List the fields of a sample payload
  integration-mapper fields --source ./samples/order.json

  # Preview the mapped output while editing the definition
  integration-mapper preview --definition ./orders.json --source ./samples/order.json --watch

  # Save the definition and execute it against a payload
  integration-mapper save --definition ./orders.json
  integration-mapper execute <integration id> --payload ./samples/order.json`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logVerbosity := viper.GetString("verbosity")
		logLevel, err := logrus.ParseLevel(logVerbosity)
		if err != nil {
			log.Fatalf("Invalid log level: %s", logVerbosity)
		}
		log.SetLevel(logLevel)
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.TextFormatter{})
		if viper.GetBool("structuredLogs") {
			log.SetFormatter(&logrus.JSONFormatter{})
		}

		for key, value := range viper.GetViper().AllSettings() {
			log.Debugf("Command Flag: %s = %v", key, value)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is ./integration-mapper.yaml if present)")
	rootCmd.PersistentFlags().StringP("verbosity", "v", "info", "Log level (trace, debug, info, warn, error)")
	viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))
	rootCmd.PersistentFlags().Bool("structuredLogs", false, "Write logs as JSON")
	viper.BindPFlag("structuredLogs", rootCmd.PersistentFlags().Lookup("structuredLogs"))
	rootCmd.PersistentFlags().StringP("workingFolderPath", "w", ".", "Working folder holding the integration store and run history")
	viper.BindPFlag("workingFolderPath", rootCmd.PersistentFlags().Lookup("workingFolderPath"))
	rootCmd.PersistentFlags().String("siteUrl", "http://localhost:8000", "Base URL used to build webhook URLs")
	viper.BindPFlag("siteUrl", rootCmd.PersistentFlags().Lookup("siteUrl"))
	rootCmd.PersistentFlags().Duration("expressionTimeout", 0, "Time limit for one condition or custom transform (default 1s)")
	viper.BindPFlag("expressionTimeout", rootCmd.PersistentFlags().Lookup("expressionTimeout"))
	rootCmd.PersistentFlags().Int("expressionMaxBytes", 0, "Size limit for condition and custom transform code (default 4096)")
	viper.BindPFlag("expressionMaxBytes", rootCmd.PersistentFlags().Lookup("expressionMaxBytes"))
	rootCmd.PersistentFlags().Int("expressionMaxNodes", 0, "Syntax node limit for condition and custom transform code (default 512)")
	viper.BindPFlag("expressionMaxNodes", rootCmd.PersistentFlags().Lookup("expressionMaxNodes"))
	rootCmd.PersistentFlags().Int("expressionMaxSteps", 0, "Step limit for one evaluation of condition or custom transform code (default 100000)")
	viper.BindPFlag("expressionMaxSteps", rootCmd.PersistentFlags().Lookup("expressionMaxSteps"))
	rootCmd.PersistentFlags().Duration("deliveryTimeout", 0, "Time limit for one HTTP delivery (default 30s)")
	viper.BindPFlag("deliveryTimeout", rootCmd.PersistentFlags().Lookup("deliveryTimeout"))
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("integration-mapper")
	}

	viper.SetEnvPrefix("MAPPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			log.Fatalf("Error reading config file: %v", err)
		}
	}
}
