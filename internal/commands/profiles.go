package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"tablemerge/internal/app"
	"tablemerge/internal/profile"
)

// ProfilesCommand lists the merge profiles, or prints one as YAML.
func ProfilesCommand() *cli.Command {
	return &cli.Command{
		Name:      "profiles",
		Usage:     "list merge profiles, or show one as YAML",
		ArgsUsage: "[NAME]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 1 {
				return exactArgs(cmd, 1)
			}
			out := cmd.Root().Writer
			name := cmd.Args().First()

			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				catalog := a.Profiles()
				if name != "" {
					p, err := catalog.Lookup(name)
					if err != nil {
						return err
					}
					enc := yaml.NewEncoder(out)
					enc.SetIndent(2)
					if err := enc.Encode(profile.File{Profiles: []profile.Profile{p}}); err != nil {
						return err
					}
					return enc.Close()
				}

				def := a.Config().DefaultProfile
				if def == "" {
					def = string(profile.Default)
				}
				w := tabwriter.NewWriter(out, 4, 8, 4, ' ', 0)
				fmt.Fprintln(w, "NAME\tKEYS\tOVERLAY\tSOURCE\tDESCRIPTION")
				for _, p := range catalog.List() {
					name := string(p.Name)
					if name == def {
						name += " (default)"
					}
					origin := "file"
					if p.BuiltIn {
						origin = "built-in"
					}
					fmt.Fprintf(w, "%s\t%s=%s\t%d\t%s\t%s\n", name, p.PrimaryKey, p.SecondaryKey, len(p.Overlay), origin, p.Description)
				}
				return w.Flush()
			})
		},
	}
}
