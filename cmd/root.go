package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tphakala/scenestore/cmd/export"
	"github.com/tphakala/scenestore/cmd/migrate"
	"github.com/tphakala/scenestore/cmd/split"
	"github.com/tphakala/scenestore/cmd/stats"
	"github.com/tphakala/scenestore/internal/buildinfo"
	"github.com/tphakala/scenestore/internal/conf"
)

// RootCommand creates and returns the root command. Settings are loaded
// into settings before any subcommand runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "scenestore",
		Short:         "Scene dataset store",
		Long:          `Manage captured scenes, their labels and the train/val/test dataset splits.`,
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, &configFile)

	rootCmd.AddCommand(
		migrate.Command(settings, build),
		split.Command(settings, build),
		export.Command(settings, build),
		stats.Command(settings, build),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := conf.LoadWithFlags(configFile, flagBindings(cmd.Flags()))
		if err != nil {
			return err
		}
		*settings = *loaded
		return nil
	}

	return rootCmd
}

// settingKeys maps global flags to the settings they override.
var settingKeys = map[string]string{
	"debug":       "debug",
	"database":    "database.type",
	"sqlite-path": "database.sqlite.path",
	"seed":        "partition.seed",
	"metrics":     "metrics.enabled",
}

func setupFlags(rootCmd *cobra.Command, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("database", conf.DatabaseSQLite, "Database backend: sqlite or mysql")
	flags.String("sqlite-path", conf.DefaultSQLitePath, "Path to the SQLite database file")
	flags.Int64("seed", 0, "Seed for reproducible batch split assignment")
	flags.Bool("metrics", true, "Enable Prometheus instrumentation")
}

func flagBindings(flags *pflag.FlagSet) map[string]*pflag.Flag {
	bindings := make(map[string]*pflag.Flag, len(settingKeys))
	for name, key := range settingKeys {
		if f := flags.Lookup(name); f != nil {
			bindings[key] = f
		}
	}
	return bindings
}
