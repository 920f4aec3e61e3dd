package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swimlog/swimsync/internal/config"
	"github.com/swimlog/swimsync/internal/pipeline"
)

// Global configuration instance, loaded before any command runs.
var cfg *config.Config

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	return config.Load(configFile)
}

func preRunConfigE(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err == nil && verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	return nil
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	if item, err := cmd.Flags().GetString("item"); err == nil && len(item) > 0 {
		cfg.Garmin.CredentialItem = item
	}
	if csvPath, err := cmd.Flags().GetString("csv"); err == nil && len(csvPath) > 0 {
		cfg.Export.CSVPath = csvPath
	}
	if sheet, err := cmd.Flags().GetString("sheet"); err == nil && len(sheet) > 0 {
		cfg.Export.SpreadsheetID = sheet
	}
	return pipeline.New(cfg)
}

var rootCmd = &cobra.Command{
	Use:   "swimsync",
	Short: "Sync Garmin Connect swim and health data to CSV and Google Sheets",
	Long: `swimsync pulls daily swim and health metrics from Garmin Connect,
aggregates them into one row per day and writes them to a local CSV file
and, optionally, a Google Sheets spreadsheet.

Credentials are retrieved from a local secret store (Bitwarden CLI or
HashiCorp Vault); nothing sensitive is ever written to disk or logs.`,
	PersistentPreRunE: preRunConfigE,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $HOME/.config/swimsync/config.yaml)")
}

// GetCommandOptions returns the root command for the main wrapper.
func GetCommandOptions() *cobra.Command {
	return rootCmd
}
