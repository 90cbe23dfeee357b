package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"tablemerge/internal/etl"
)

// FormatsCommand lists the registered sources and destinations.
func FormatsCommand() *cli.Command {
	return &cli.Command{
		Name:    "formats",
		Aliases: []string{"sources"},
		Usage:   "list supported table references",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := tabwriter.NewWriter(cmd.Root().Writer, 4, 8, 4, ' ', 0)
			fmt.Fprintln(w, "TYPE\tREAD\tWRITE\tEXAMPLE\tOPTIONS")

			writable := map[etl.ResourceKind]bool{}
			for _, d := range etl.ListDestinations() {
				writable[d.Type] = true
			}
			for _, s := range etl.ListSources() {
				var opts []string
				for _, o := range s.Options {
					opts = append(opts, o.Key)
				}
				fmt.Fprintf(w, "%s\tyes\t%s\t%s\t%s\n", s.Type, yesNo(writable[s.Type]), s.Example, strings.Join(opts, ","))
			}
			return w.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
