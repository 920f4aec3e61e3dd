package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the current session and clear persisted state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		p.Logout(cmd.Context())
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
