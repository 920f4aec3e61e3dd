package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swimlog/swimsync/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and configuration status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Endpoint:        %s\n", cfg.Garmin.Endpoint)
		fmt.Printf("Credential item: %s\n", cfg.Garmin.CredentialItem)
		fmt.Printf("Secrets backend: %s\n", cfg.Secrets.Backend)
		fmt.Printf("CSV output:      %s\n", cfg.Export.CSVPath)
		if len(cfg.Export.SpreadsheetID) > 0 {
			fmt.Printf("Spreadsheet:     %s\n", cfg.Export.SpreadsheetID)
		}

		if session, err := p.SessionStore().LoadSession(); err == nil {
			state := "expired"
			if session.Token != nil && session.Token.Valid() {
				state = fmt.Sprintf("valid until %s",
					session.Token.Expiry.Local().Format(time.RFC1123))
			}
			fmt.Printf("Session:         %s (%s)\n", session.DisplayName, state)
		} else if _, err := p.SessionStore().LoadChallenge(); err == nil {
			fmt.Println("Session:         mfa challenge pending, run 'swimsync mfa <code>'")
		} else {
			fmt.Println("Session:         none")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
