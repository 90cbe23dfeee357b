// Package commands holds the tablemerge command line.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"tablemerge/internal/app"
	"tablemerge/internal/config"
	"tablemerge/internal/log"
	"tablemerge/internal/service"
)

// Global flags
const (
	ConfigFlag    = "config"
	DebugFlag     = "debug"
	StateDirFlag  = "state-dir"
	NoHistoryFlag = "no-history"
	LogFormatFlag = "log-format"
	ProfilesFlag  = "profiles"
)

// Flags returns the global flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    ConfigFlag,
			Aliases: []string{"c"},
			Usage:   "path to the TOML configuration file",
			Value:   config.DefaultConfigPath(),
			Sources: cli.EnvVars("TABLEMERGE_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  DebugFlag,
			Usage: "enable debug output",
		},
		&cli.StringFlag{
			Name:    StateDirFlag,
			Usage:   "directory holding the run history database",
			Sources: cli.EnvVars("TABLEMERGE_STATE_DIR"),
		},
		&cli.BoolFlag{
			Name:  NoHistoryFlag,
			Usage: "do not record runs in the history database",
		},
		&cli.StringFlag{
			Name:  LogFormatFlag,
			Usage: "log format (text or json)",
		},
		&cli.StringFlag{
			Name:    ProfilesFlag,
			Usage:   "YAML file with extra merge profiles",
			Sources: cli.EnvVars("TABLEMERGE_PROFILES"),
		},
	}
}

// loadConfig reads the configuration file and applies the global flags.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.NewConfigFromToml(cmd.String(ConfigFlag))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet(StateDirFlag) {
		cfg.StateDir = cmd.String(StateDirFlag)
	}
	if cmd.IsSet(ProfilesFlag) {
		cfg.ProfilesFile = cmd.String(ProfilesFlag)
	}
	if cmd.Bool(NoHistoryFlag) {
		cfg.DisableHistory = true
	}
	if cmd.IsSet(LogFormatFlag) {
		cfg.LogFormat = cmd.String(LogFormatFlag)
	}
	if cmd.Bool(DebugFlag) {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// withApp loads the configuration, configures logging and runs fn with a
// ready App, closing it afterwards.
func withApp(ctx context.Context, cmd *cli.Command, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	errOut := cmd.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	if err := log.Configure(cfg.LogLevel, cfg.LogFormat, errOut); err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, service.LogEmitter{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.G(ctx).WithError(err).Warn("close")
		}
	}()
	return fn(ctx, a)
}

// exactArgs fails unless cmd got n positional arguments.
func exactArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d (usage: %s %s)",
			cmd.Name, n, cmd.NArg(), cmd.FullName(), cmd.ArgsUsage)
	}
	return nil
}

// New returns the root command.
func New(version string) *cli.Command {
	return &cli.Command{
		Name:    "tablemerge",
		Usage:   "merge a many-side table into a one-side table on a join key",
		Version: version,
		Flags:   Flags(),
		Commands: []*cli.Command{
			MergeCommand(),
			ProfilesCommand(),
			HistoryCommand(),
			PreviewCommand(),
			FormatsCommand(),
			MCPCommand(),
		},
	}
}
