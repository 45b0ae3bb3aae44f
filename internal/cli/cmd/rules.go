package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rulesList bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show loaded rule sources",
	Long: `Load the configured rule sources and print how many rules each one
contributed. Skipped sources are listed with the reason. When rules come
from downloaded lists, the time of the last update is shown.

Use --list to print every rule in load order.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().BoolVarP(&rulesList, "list", "l", false, "print every rule in load order")
}

func runRules(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	filter, err := app.NewFilter(app.Ctx())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rulesList {
		for _, rule := range filter.RuleSet().Rules() {
			fmt.Fprintln(out, rule)
		}
		return nil
	}

	fmt.Fprintln(out, app.Theme.RenderSources(filter.Sources(), filter.Mode(), filter.RuleSet().Len()))
	if len(app.Config.ContentFiltering.Lists) == 0 {
		fmt.Fprintln(out, app.Theme.RenderLastUpdate(app.Downloader().Versions().LastCheckTime()))
	}
	return nil
}
