package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"tablemerge/internal/app"
)

const (
	limitFlag = "limit"
	jobFlag   = "job"
)

// HistoryCommand prints recent runs from the run history.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent merge runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    limitFlag,
				Aliases: []string{"n"},
				Usage:   "number of runs to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  jobFlag,
				Usage: "only runs of this job key",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer
			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				if !a.HistoryEnabled() {
					return errors.New("run history is disabled")
				}
				runs, err := a.Merge().ListRuns(cmd.String(jobFlag), cmd.Int(limitFlag))
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(out, 4, 8, 4, ' ', 0)
				fmt.Fprintln(w, "STARTED\tSTATUS\tTRIGGER\tPROFILE\tROWS\tNOTICES\tDURATION\tFINGERPRINT\tOUTPUT")
				for _, r := range runs {
					status := r.Status
					if r.Error != "" {
						status += ": " + r.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
						r.StartedAt.Local().Format(time.DateTime), status, r.Trigger, r.Profile,
						r.RowsWritten, r.Notices, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
						r.Fingerprint, r.Output)
				}
				return w.Flush()
			})
		},
	}
}
