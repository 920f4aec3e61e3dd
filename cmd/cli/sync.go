package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swimlog/swimsync/internal/pipeline"
)

const dateLayout = "2006-01-02"

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch a date range from Garmin Connect and export it",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, _ []string) error {
	start, end, err := parseDateRange(cmd)
	if err != nil {
		return err
	}

	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := p.Authenticate(ctx); err != nil {
		if errors.Is(err, pipeline.ErrMFAPending) {
			fmt.Println("A one-time code is required to finish signing in.")
			fmt.Println("Check your authenticator or email, then run:")
			fmt.Println()
			fmt.Println("  swimsync mfa <code>")
			fmt.Println()
			fmt.Printf("and re-run: swimsync sync --start %s --end %s\n",
				start.Format(dateLayout), end.Format(dateLayout))
			return err
		}
		return err
	}

	return p.Sync(ctx, start, end)
}

func parseDateRange(cmd *cobra.Command) (time.Time, time.Time, error) {
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")

	end := time.Now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -7)

	var err error
	if len(startStr) > 0 {
		if start, err = time.Parse(dateLayout, startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start date: %w", err)
		}
	}
	if len(endStr) > 0 {
		if end, err = time.Parse(dateLayout, endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end date: %w", err)
		}
	}
	return start, end, nil
}

func init() {
	syncCmd.Flags().String("start", "", "Start date (YYYY-MM-DD, default one week ago)")
	syncCmd.Flags().String("end", "", "End date (YYYY-MM-DD, default today)")
	syncCmd.Flags().String("item", "", "Secret store item holding the Garmin login")
	syncCmd.Flags().String("csv", "", "CSV output path")
	syncCmd.Flags().String("sheet", "", "Google Sheets spreadsheet ID")

	rootCmd.AddCommand(syncCmd)
}
