package styles

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aetherbrowser/aether/internal/domain/build"
	"github.com/aetherbrowser/aether/internal/filtering"
)

// RenderDecision renders one check result line.
func (t *Theme) RenderDecision(url string, rule filtering.Rule, blocked bool) string {
	if !blocked {
		return fmt.Sprintf("%s %s", t.Badge.Render("ALLOW"), t.Normal.Render(url))
	}
	return fmt.Sprintf("%s %s %s",
		t.BadgeDanger.Render("BLOCK"),
		t.Normal.Render(url),
		t.Subtle.Render("rule: "+string(rule)),
	)
}

// RenderSources renders per-source load results as a table.
func (t *Theme) RenderSources(results []filtering.SourceResult, mode filtering.MatchMode, total int) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := "loaded"
		if !res.Loaded() {
			status = "skipped: " + res.Err.Error()
		}
		rows = append(rows, []string{filepath.Base(res.Path), strconv.Itoa(len(res.Rules)), status})
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Border)).
		Headers("Source", "Rules", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.Highlight.Padding(0, 1)
			}
			if col == 2 && strings.HasPrefix(rows[row][2], "skipped") {
				return t.WarningStyle.Padding(0, 1)
			}
			return t.Normal.Padding(0, 1)
		})

	summary := fmt.Sprintf("%s %s  %s %s",
		t.Subtle.Render("mode"), t.Highlight.Render(string(mode)),
		t.Subtle.Render("total rules"), t.Highlight.Render(strconv.Itoa(total)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, tbl.Render(), summary)
}

// RenderLastUpdate renders when the downloaded lists were last refreshed.
func (t *Theme) RenderLastUpdate(at time.Time) string {
	if at.IsZero() {
		return t.Subtle.Render("lists never downloaded") + " " + t.WarningStyle.Render("run 'aether update'")
	}
	return t.Subtle.Render("lists updated") + " " + t.Highlight.Render(at.Local().Format(time.DateTime))
}

// RenderDownloading renders the in-progress line of a list download.
// p is the latest finished list; a zero p means nothing finished yet.
func (t *Theme) RenderDownloading(spinner string, p filtering.DownloadProgress, total int) string {
	status := t.Subtle.Render("starting")
	if p.File != "" {
		status = t.Subtle.Render("finished") + " " + t.Normal.Render(p.File)
	}
	return fmt.Sprintf("\n  %s Downloading filter lists %s  %s\n",
		spinner,
		t.Highlight.Render(fmt.Sprintf("%d/%d", p.Current, total)),
		status,
	)
}

// RenderDownload renders per-list download results.
func (t *Theme) RenderDownload(results []filtering.DownloadResult) string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		switch {
		case res.Err != nil:
			lines = append(lines, fmt.Sprintf("%s %s %s",
				t.BadgeDanger.Render("FAIL"), t.Normal.Render(res.Source.Name), t.ErrorStyle.Render(res.Err.Error())))
		case res.Updated:
			lines = append(lines, fmt.Sprintf("%s %s %s",
				t.Badge.Render("NEW"), t.Normal.Render(res.Source.Name), t.Subtle.Render(formatBytes(res.Bytes))))
		default:
			lines = append(lines, fmt.Sprintf("%s %s %s",
				t.BadgeMuted.Render("SAME"), t.Normal.Render(res.Source.Name), t.Subtle.Render("not modified")))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderAbout renders build info.
func (t *Theme) RenderAbout(info build.Info) string {
	keyStyle := t.Subtle.Width(10)
	lines := []string{
		t.Title.Render("aether") + " " + t.Subtle.Render("request filter"),
		"",
		keyStyle.Render("Version") + t.Highlight.Render(info.Version),
		keyStyle.Render("Commit") + t.Highlight.Render(info.Commit),
		keyStyle.Render("Built") + t.Highlight.Render(info.BuildDate),
		keyStyle.Render("Go") + t.Highlight.Render(info.GoVersion),
		"",
		t.Subtle.Render(build.RepoURL()),
	}
	return t.Box.Render(strings.Join(lines, "\n"))
}

// RenderError renders an error line.
func (t *Theme) RenderError(err error) string {
	return t.ErrorStyle.Render("error: " + err.Error())
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
