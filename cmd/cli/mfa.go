package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mfaCmd = &cobra.Command{
	Use:   "mfa <code>",
	Short: "Complete a pending sign-in with a one-time code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		if err := p.ResumeMFA(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Println("Signed in. Run 'swimsync sync' to fetch your data.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mfaCmd)
}
