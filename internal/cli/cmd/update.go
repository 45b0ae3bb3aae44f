package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/aetherbrowser/aether/internal/cli/styles"
	"github.com/aetherbrowser/aether/internal/filtering"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the configured filter lists",
	Long: `Fetch every list in [content_filtering].sources into the list
directory. Unchanged lists are skipped using their stored ETag and
Last-Modified values. A failing list does not stop the others.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

// updateState represents the current state of the update process.
type updateState int

const (
	stateDownloading updateState = iota
	stateDone
)

// downloadFunc runs the list download, reporting each finished list.
type downloadFunc func(onProgress func(filtering.DownloadProgress)) ([]filtering.DownloadResult, error)

// progressMsg is sent each time a list finishes.
type progressMsg filtering.DownloadProgress

// downloadDoneMsg is sent when every list has been processed.
type downloadDoneMsg struct {
	results []filtering.DownloadResult
	err     error
}

// updateModel is the bubbletea model for the update command.
type updateModel struct {
	spinner  spinner.Model
	theme    *styles.Theme
	state    updateState
	total    int
	progress filtering.DownloadProgress

	download downloadFunc
	events   chan tea.Msg

	// Final result.
	results  []filtering.DownloadResult
	err      error
	quitting bool
}

func newUpdateModel(theme *styles.Theme, total int, download downloadFunc) updateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Accent)

	return updateModel{
		spinner:  s,
		theme:    theme,
		state:    stateDownloading,
		total:    total,
		download: download,
		// one slot per list plus the final result, so senders never block
		events: make(chan tea.Msg, total+1),
	}
}

func (m updateModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startDownload(), waitForEvent(m.events))
}

func (m updateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.progress = filtering.DownloadProgress(msg)
		return m, waitForEvent(m.events)

	case downloadDoneMsg:
		m.state = stateDone
		m.results = msg.results
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m updateModel) View() string {
	if m.quitting {
		return ""
	}

	if m.err != nil {
		return m.theme.RenderError(m.err) + "\n"
	}

	if m.state == stateDone {
		return m.theme.RenderDownload(m.results) + "\n"
	}

	return m.theme.RenderDownloading(m.spinner.View(), m.progress, m.total)
}

// startDownload runs the download in a command goroutine and streams
// progress and the final result through the events channel.
func (m updateModel) startDownload() tea.Cmd {
	return func() tea.Msg {
		results, err := m.download(func(p filtering.DownloadProgress) {
			m.events <- progressMsg(p)
		})
		m.events <- downloadDoneMsg{results: results, err: err}
		return nil
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// failedAll reports whether every list failed.
func (m updateModel) failedAll() bool {
	if len(m.results) == 0 {
		return false
	}
	for _, res := range m.results {
		if res.Err == nil {
			return false
		}
	}
	return true
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	ctx, cancel := context.WithCancel(app.Ctx())
	defer cancel()

	dl := app.Downloader()
	m := newUpdateModel(app.Theme, len(app.Sources()), func(onProgress func(filtering.DownloadProgress)) ([]filtering.DownloadResult, error) {
		return dl.Download(ctx, onProgress)
	})

	out := cmd.OutOrStdout()
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	interactive := false
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		interactive = true
	} else {
		// cron jobs and pipes: no key input, print the final view once
		opts = append(opts, tea.WithInput(nil), tea.WithoutRenderer())
	}

	finalModel, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	model, ok := finalModel.(updateModel)
	if !ok {
		return nil
	}
	if !interactive {
		fmt.Fprint(out, model.View())
	}
	if model.err != nil {
		return model.err
	}
	if model.failedAll() {
		return fmt.Errorf("all %d lists failed to download", len(model.results))
	}
	return nil
}
