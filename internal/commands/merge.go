package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"tablemerge/internal/app"
	"tablemerge/internal/etl"
	"tablemerge/internal/service"
)

const (
	methodFlag       = "method"
	extraColumnsFlag = "extra-columns"
	modeFlag         = "mode"
	watchFlag        = "watch"
	scheduleFlag     = "schedule"
	jobIDFlag        = "id"
)

const mergeDescription = `PRIMARY is the one-side table, SECONDARY the many-side table. Each primary
row is written once per matching secondary row with the profile's overlay
columns copied over; rows without a match are written unchanged.

References are file paths (.csv, .tsv, .json, .parquet), file:// or mem://
URLs, or sqlite://PATH?table=T, mysql://..., postgres://... and
mongodb://HOST/DB?collection=C.`

// MergeCommand merges SECONDARY into PRIMARY and writes DESTINATION.
func MergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "merge the secondary table into the primary table",
		ArgsUsage: "PRIMARY SECONDARY DESTINATION",
		Description: mergeDescription,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    methodFlag,
				Aliases: []string{"m"},
				Usage:   "merge profile (see 'tablemerge profiles')",
			},
			&cli.StringFlag{
				Name:  extraColumnsFlag,
				Usage: "columns outside the output schema: error, drop or append",
			},
			&cli.StringFlag{
				Name:  modeFlag,
				Usage: "database destinations: replace or append",
			},
			&cli.BoolFlag{
				Name:  watchFlag,
				Usage: "merge again whenever a local input file changes",
			},
			&cli.StringFlag{
				Name:  scheduleFlag,
				Usage: "merge on a cron schedule, e.g. \"*/5 * * * *\"",
			},
			&cli.StringFlag{
				Name:  jobIDFlag,
				Usage: "job key recorded in the run history (default: the three references)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := exactArgs(cmd, 3); err != nil {
				return err
			}
			if cmd.Bool(watchFlag) && cmd.IsSet(scheduleFlag) {
				return errors.New("--watch and --schedule cannot be combined")
			}
			if cmd.IsSet(scheduleFlag) {
				if err := service.ValidateSchedule(cmd.String(scheduleFlag)); err != nil {
					return err
				}
			}

			args := cmd.Args()
			req := service.JobRequest{
				ID:           cmd.String(jobIDFlag),
				Primary:      args.Get(0),
				Secondary:    args.Get(1),
				Output:       args.Get(2),
				Profile:      cmd.String(methodFlag),
				ExtraColumns: cmd.String(extraColumnsFlag),
				Mode:         cmd.String(modeFlag),
			}
			out := cmd.Root().Writer

			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				job, err := a.NewJob(req)
				if err != nil {
					return err
				}
				svc := a.Merge()

				if cmd.IsSet(scheduleFlag) {
					return svc.Schedule(ctx, job, cmd.String(scheduleFlag))
				}

				result, err := svc.Run(ctx, job, service.TriggerManual)
				if err != nil {
					return err
				}
				printResult(out, job, result)

				if cmd.Bool(watchFlag) {
					return svc.Watch(ctx, job)
				}
				return nil
			})
		},
	}
}

func printResult(w io.Writer, job *etl.MergeJob, r *etl.MergeRunResult) {
	fmt.Fprintf(w, "wrote %d rows to %s (%d matched, %d without match, %d fan-out)\n",
		r.RowsWritten, job.Output.Name(), r.Stats.Matched, r.Stats.Unmatched, r.Stats.FanOut)
	if n := r.Diagnostics.Len(); n > 0 {
		var codes []string
		for _, d := range r.Diagnostics.Warnings {
			codes = append(codes, d.Code)
		}
		fmt.Fprintf(w, "%d notice(s): %s\n", n, summarize(codes))
	}
}

// summarize counts codes in first-seen order: "no-match x2, unmatched-secondary x1".
func summarize(codes []string) string {
	counts := map[string]int{}
	var order []string
	for _, c := range codes {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	parts := make([]string, len(order))
	for i, c := range order {
		parts[i] = fmt.Sprintf("%s x%d", c, counts[c])
	}
	return strings.Join(parts, ", ")
}
