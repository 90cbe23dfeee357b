package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"tablemerge/internal/app"
	"tablemerge/internal/etl"
)

const rowsFlag = "rows"

// PreviewCommand prints the header and first rows of a table reference.
func PreviewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "print the first rows of a table",
		ArgsUsage: "REF",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    rowsFlag,
				Aliases: []string{"n"},
				Usage:   "number of rows",
				Value:   10,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := exactArgs(cmd, 1); err != nil {
				return err
			}
			out := cmd.Root().Writer
			ref := cmd.Args().First()
			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				t, err := a.Preview(ctx, ref, cmd.Int(rowsFlag))
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 4, 8, 2, ' ', 0)
				fmt.Fprintln(w, strings.Join(t.Header, "\t"))
				for _, r := range t.Records {
					fmt.Fprintln(w, strings.Join(previewCells(t.Header, r), "\t"))
				}
				return w.Flush()
			})
		},
	}
}

// previewCells renders r in header order; absent cells print as "-".
func previewCells(header []string, r etl.Record) []string {
	cells := make([]string, len(header))
	for i, col := range header {
		v, ok := r.Get(col)
		switch {
		case !ok:
			cells[i] = "-"
		default:
			cells[i] = strings.ReplaceAll(v, "\t", " ")
		}
	}
	return cells
}
