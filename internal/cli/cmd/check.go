package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	urlutil "github.com/aetherbrowser/aether/internal/domain/url"
	"github.com/aetherbrowser/aether/internal/filtering"
)

var checkFailOnBlock bool

var checkCmd = &cobra.Command{
	Use:   "check <url>...",
	Short: "Check whether URLs would be blocked",
	Long: `Load the configured rules and decide each URL.

Host-like arguments such as "ads.example.com/x.js" are checked as
https URLs. The matched rule is shown for blocked URLs. With --fail the command exits
non-zero when any URL is blocked.

Examples:
  aether check https://ads.example.com/banner.js
  aether check --fail https://example.com/ https://tracker.example/pixel`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkFailOnBlock, "fail", false, "exit non-zero if any URL is blocked")
}

func runCheck(cmd *cobra.Command, args []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	var last filtering.BlockRecord
	filter, err := app.NewFilter(app.Ctx(), filtering.WithBlockObserver(func(rec filtering.BlockRecord) {
		last = rec
	}))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	blocked := 0
	for _, arg := range args {
		url := urlutil.Normalize(arg)
		last = filtering.BlockRecord{}
		if filter.ShouldBlock(url) {
			blocked++
			fmt.Fprintln(out, app.Theme.RenderDecision(url, last.Rule, true))
			continue
		}
		fmt.Fprintln(out, app.Theme.RenderDecision(url, "", false))
	}

	if checkFailOnBlock && blocked > 0 {
		return fmt.Errorf("%d of %d URLs blocked", blocked, len(args))
	}
	return nil
}
