package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ItsSleepy/File-Organiser/internal/organizer"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Margin(0, 0, 1, 0)
	menuStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

type menuStage int

const (
	stageFolder menuStage = iota
	stageCustomPath
	stageMode
	stageConfirm
	stageDetail
	stageRunning
)

// interactiveRunner performs the folder operations the menu offers.
type interactiveRunner interface {
	Preview(folder string) (*organizer.Preview, error)
	Organize(folder string, mode organizer.Mode) (*organizer.Result, error)
}

type menuKeys struct {
	quit    key.Binding
	back    key.Binding
	confirm key.Binding
	submit  key.Binding
}

func newMenuKeys() menuKeys {
	return menuKeys{
		quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		confirm: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	}
}

type previewMsg struct {
	folder  string
	preview *organizer.Preview
	err     error
}

type organizeMsg struct {
	mode   organizer.Mode
	result *organizer.Result
	err    error
}

type interactiveModel struct {
	runner  interactiveRunner
	home    string
	keys    menuKeys
	stage   menuStage
	input   textinput.Model
	folder  string
	preview *organizer.Preview
	notice  string

	// summary is printed once the program exits.
	summary string
	err     error
}

func newInteractiveModel(runner interactiveRunner, home string) interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "/path/to/folder"
	ti.CharLimit = 4096
	ti.Width = 60
	ti.Cursor.SetMode(cursor.CursorStatic)
	return interactiveModel{
		runner: runner,
		home:   home,
		keys:   newMenuKeys(),
		stage:  stageFolder,
		input:  ti,
	}
}

func (m interactiveModel) Init() tea.Cmd {
	return nil
}

func (m interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case previewMsg:
		return m.handlePreview(msg)
	case organizeMsg:
		return m.handleOrganize(msg)
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.summary = "Operation cancelled by user"
			return m, tea.Quit
		}
		switch m.stage {
		case stageFolder:
			return m.updateFolder(msg)
		case stageCustomPath:
			return m.updateCustomPath(msg)
		case stageMode:
			return m.updateMode(msg)
		case stageConfirm:
			return m.updateConfirm(msg)
		case stageDetail:
			m.stage = stageMode
			return m, nil
		}
	}
	return m, nil
}

func (m interactiveModel) updateFolder(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "1":
		return m.loadPreview(".")
	case "2":
		return m.loadPreview(filepath.Join(m.home, "Downloads"))
	case "3":
		return m.loadPreview(filepath.Join(m.home, "Desktop"))
	case "4":
		m.stage = stageCustomPath
		m.input.SetValue("")
		return m, m.input.Focus()
	case "q", "esc":
		m.summary = "Goodbye!"
		return m, tea.Quit
	default:
		m.notice = "Invalid choice. Please enter 1, 2, 3, or 4."
		return m, nil
	}
}

func (m interactiveModel) updateCustomPath(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		m.stage = stageFolder
		m.notice = ""
		return m, nil
	case key.Matches(msg, m.keys.submit):
		folder := strings.TrimSpace(m.input.Value())
		if folder == "" {
			m.notice = "Please enter a valid path"
			return m, nil
		}
		m.input.Blur()
		return m.loadPreview(folder)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m interactiveModel) updateMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "1":
		return m.runOrganize(organizer.ModePreview)
	case "2":
		m.stage = stageConfirm
		return m, nil
	case "3":
		m.stage = stageDetail
		return m, nil
	case "4", "q", "esc":
		m.summary = "Goodbye!"
		return m, tea.Quit
	default:
		m.notice = "Invalid choice. Please enter 1, 2, 3, or 4."
		return m, nil
	}
}

func (m interactiveModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.confirm) {
		return m.runOrganize(organizer.ModeExecute)
	}
	m.summary = "Operation cancelled."
	return m, tea.Quit
}

func (m interactiveModel) loadPreview(folder string) (tea.Model, tea.Cmd) {
	m.stage = stageRunning
	m.folder = folder
	runner := m.runner
	return m, func() tea.Msg {
		preview, err := runner.Preview(folder)
		return previewMsg{folder: folder, preview: preview, err: err}
	}
}

func (m interactiveModel) runOrganize(mode organizer.Mode) (tea.Model, tea.Cmd) {
	m.stage = stageRunning
	runner := m.runner
	folder := m.folder
	return m, func() tea.Msg {
		result, err := runner.Organize(folder, mode)
		return organizeMsg{mode: mode, result: result, err: err}
	}
}

func (m interactiveModel) handlePreview(msg previewMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.summary = "Error: " + msg.err.Error()
		return m, tea.Quit
	}
	if msg.preview == nil || msg.preview.Total == 0 {
		m.summary = "No files found to organize in this folder."
		return m, tea.Quit
	}
	m.preview = msg.preview
	m.folder = msg.preview.Target
	m.stage = stageMode
	return m, nil
}

func (m interactiveModel) handleOrganize(msg organizeMsg) (tea.Model, tea.Cmd) {
	var b bytes.Buffer
	if msg.result != nil {
		writeOrganizeResult(&b, msg.result, false)
		if msg.mode == organizer.ModeExecute && len(msg.result.Records) > 0 {
			fmt.Fprintln(&b, "Check the organization_logs folder for detailed logs.")
			fmt.Fprintln(&b, "Run `organizer undo` to reverse this organization if needed.")
		}
	}
	if msg.err != nil {
		m.err = msg.err
		fmt.Fprintf(&b, "Error: %v\n", msg.err)
	}
	m.summary = strings.TrimRight(b.String(), "\n")
	return m, tea.Quit
}

func (m interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Intelligent File Organizer"))
	b.WriteString("\n")

	switch m.stage {
	case stageFolder:
		b.WriteString(menuStyle.Render(strings.Join([]string{
			"Select folder to organize:",
			"1. Current directory",
			"2. Downloads folder",
			"3. Desktop",
			"4. Custom path",
		}, "\n")))
	case stageCustomPath:
		b.WriteString("Enter the full path to the folder:\n")
		b.WriteString(m.input.View())
	case stageMode:
		b.WriteString("Selected folder: " + m.folder + "\n")
		b.WriteString(previewSummary(m.preview) + "\n")
		b.WriteString(menuStyle.Render(strings.Join([]string{
			"Operation mode:",
			"1. Dry run (preview only, safe)",
			"2. Organize files (actually move files)",
			"3. Show detailed preview",
			"4. Exit",
		}, "\n")))
	case stageConfirm:
		b.WriteString(noticeStyle.Render("WARNING: this will actually move files!") + "\n")
		b.WriteString("Are you sure you want to continue? (y/N)")
	case stageDetail:
		var detail bytes.Buffer
		writePreview(&detail, m.preview, false)
		b.WriteString(detail.String())
		b.WriteString(helpStyle.Render("Press any key to return to the menu"))
	case stageRunning:
		b.WriteString("Working...")
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice))
	}
	b.WriteString("\n" + helpStyle.Render("ctrl+c to quit") + "\n")
	return b.String()
}

// sessionRunner runs menu actions through the same session wiring as the
// direct commands, with terminal logging silenced while the menu is drawn.
type sessionRunner struct {
	cmd *cobra.Command
	ctx *commandContext
}

func (r sessionRunner) Preview(folder string) (*organizer.Preview, error) {
	sess, err := r.ctx.openSession(r.cmd, folder, sessionOptions{quiet: true})
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return previewWith(sess)
}

func (r sessionRunner) Organize(folder string, mode organizer.Mode) (*organizer.Result, error) {
	sess, err := r.ctx.openSession(r.cmd, folder, sessionOptions{mutating: mode == organizer.ModeExecute, quiet: true})
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return organizeWith(sess, mode)
}

func newInteractiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Choose a folder and an operation from a menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, ctx)
		},
	}
}

func runInteractive(cmd *cobra.Command, ctx *commandContext) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	model := newInteractiveModel(sessionRunner{cmd: cmd, ctx: ctx}, home)
	program := tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}
		return fmt.Errorf("interactive mode: %w", err)
	}
	m, ok := final.(interactiveModel)
	if !ok {
		return nil
	}
	if m.summary != "" {
		fmt.Fprintln(cmd.OutOrStdout(), m.summary)
	}
	return m.err
}
