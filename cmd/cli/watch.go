package cli

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swimlog/swimsync/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically sync the trailing window of days",
	RunE: func(cmd *cobra.Command, _ []string) error {
		interval, err := cmd.Flags().GetDuration("every")
		if err != nil {
			return err
		}
		days, err := cmd.Flags().GetInt("days")
		if err != nil {
			return err
		}

		p, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		runOnce := func() {
			end := time.Now().Truncate(24 * time.Hour)
			start := end.AddDate(0, 0, -days+1)

			if err := p.Authenticate(ctx); err != nil {
				if errors.Is(err, pipeline.ErrMFAPending) {
					logrus.Warnln("MFA challenge pending, run 'swimsync mfa <code>'")
					return
				}
				logrus.WithError(err).Errorln("Authentication failed")
				return
			}
			if err := p.Sync(ctx, start, end); err != nil {
				logrus.WithError(err).Errorln("Sync failed")
			}
		}

		logrus.WithFields(logrus.Fields{
			"interval": interval,
			"days":     days,
		}).Infoln("Starting watch")

		scheduler := gocron.NewScheduler(time.UTC)
		if _, err := scheduler.Every(interval).Do(runOnce); err != nil {
			return err
		}
		scheduler.StartBlocking()
		return nil
	},
}

func init() {
	watchCmd.Flags().Duration("every", 6*time.Hour, "Interval between syncs")
	watchCmd.Flags().Int("days", 7, "Trailing window of days to sync each run")
	watchCmd.Flags().String("item", "", "Secret store item holding the Garmin login")
	watchCmd.Flags().String("csv", "", "CSV output path")
	watchCmd.Flags().String("sheet", "", "Google Sheets spreadsheet ID")

	rootCmd.AddCommand(watchCmd)
}
