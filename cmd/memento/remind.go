package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
)

func newRemindCommand(configPath *string) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder pass and exit",
		Long:  "Send every reminder due on the given date (default today in the configured time zone) that has not gone out yet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, _, err := a.scheduler(nil)
			if err != nil {
				return err
			}

			today := sched.Today()
			if date != "" {
				t, err := time.ParseInLocation(model.DateLayout, date, a.loc)
				if err != nil {
					return fmt.Errorf("--date %q: want YYYY-MM-DD", date)
				}
				today = recurrence.StartOfDay(t)
			}

			res, err := sched.RunOnce(cmd.Context(), today)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "run as if today were YYYY-MM-DD")
	return cmd
}
