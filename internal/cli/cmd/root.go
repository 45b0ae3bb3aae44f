// Package cmd provides Cobra CLI commands for aether.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aetherbrowser/aether/internal/cli"
	"github.com/aetherbrowser/aether/internal/domain/build"
)

var (
	app        *cli.App
	buildInfo  build.Info
	configFile string
	rootCmd    = &cobra.Command{
		Use:   "aether",
		Short: "Request filter for the Aether browser",
		Long: `Aether - the network request filter of the Aether browser.

Rules are loaded once from blocklist files (EasyList style). A request is
blocked when any rule is a substring of its URL; the first rule in load
order wins.

Use 'aether check' to test URLs, 'aether update' to fetch the configured
lists and 'aether serve' to run the filtering proxy.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip initialization for commands that don't need app context
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}

			var err error
			app, err = cli.NewApp(configFile)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			// Set build info from main.go
			app.BuildInfo = buildInfo
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default $XDG_CONFIG_HOME/aether/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetApp returns the initialized app (for use by subcommands).
func GetApp() *cli.App {
	return app
}

// SetBuildInfo sets the build information (called from main.go before Execute).
func SetBuildInfo(info build.Info) {
	buildInfo = info
}
