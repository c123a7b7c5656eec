// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for opsdeck.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opsdeck/opsdeck/internal/checklist"
	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/logging"
	"github.com/opsdeck/opsdeck/internal/session"
	"github.com/opsdeck/opsdeck/internal/sop"
)

// appState represents which "screen" we're on
type appState int

const (
	stateHome appState = iota // Procedure library + run history
	stateRun                  // Executing or viewing one checklist
)

// homeFocus tracks which of the two home lists has the keyboard.
type homeFocus int

const (
	focusSOPs homeFocus = iota
	focusRuns
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithManager overrides the session manager (tests inject fakes through it).
func WithManager(mgr *session.Manager) AppOption {
	return func(a *App) {
		if mgr != nil {
			a.manager = mgr
		}
	}
}

// WithLibrary overrides the procedure library.
func WithLibrary(lib SOPLister) AppOption {
	return func(a *App) {
		if lib != nil {
			a.library = lib
		}
	}
}

// SOPLister is the slice of the library the home screen needs.
type SOPLister interface {
	List() ([]sop.SOP, error)
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	config  *config.Config
	logger  *logging.Logger
	manager *session.Manager
	library SOPLister

	// UI components
	sopMenu   list.Model
	runMenu   list.Model
	focus     homeFocus
	runView   *runView
	statusMsg string
	err       error

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// sopItem implements list.Item for the procedure menu.
type sopItem struct {
	sop sop.SOP
}

func (i sopItem) Title() string { return i.sop.Title }
func (i sopItem) Description() string {
	return fmt.Sprintf("%d steps · %s", len(i.sop.Steps), i.sop.ID)
}
func (i sopItem) FilterValue() string { return i.sop.Title }

// runItem implements list.Item for the run history menu.
type runItem struct {
	run checklist.Checklist
}

func (i runItem) Title() string { return i.run.SOPTitle }
func (i runItem) Description() string {
	report := checklist.Progress(i.run.Steps)
	label := "in progress"
	if i.run.Status == checklist.StatusCompleted {
		label = "completed"
	}
	return fmt.Sprintf("%s · %d/%d (%d%%) · %s",
		label, report.Completed, report.Total, report.Percentage,
		i.run.UpdatedAt.Format("2006-01-02 15:04"))
}
func (i runItem) FilterValue() string { return i.run.SOPTitle }

// NewApp creates a new App instance wired to the project's .opsdeck state.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	if err := config.InitOpsdeckDir(projectDir); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(projectDir)
	if err != nil {
		return nil, err
	}

	library, err := sop.NewLibrary(cfg.SOPsDir())
	if err != nil {
		return nil, err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return nil, err
	}
	mgr, err := session.New(library, repo,
		session.WithAutosaveDelay(cfg.AutosaveDelay()),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	sopMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	sopMenu.Title = "Procedures"
	sopMenu.SetShowStatusBar(false)
	sopMenu.SetFilteringEnabled(false)
	runMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	runMenu.Title = "Runs"
	runMenu.SetShowStatusBar(false)
	runMenu.SetFilteringEnabled(false)

	app := &App{
		state:   stateHome,
		config:  cfg,
		logger:  logger,
		manager: mgr,
		library: library,
		sopMenu: sopMenu,
		runMenu: runMenu,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.refreshHome()
	return app, nil
}

// openRepository selects the storage driver from config.
func openRepository(cfg *config.Config) (checklist.Repository, error) {
	switch cfg.Storage() {
	case config.StorageSQLite:
		return checklist.OpenSQLite(cfg.RunDBPath())
	default:
		return checklist.NewFileRepository(cfg.RunStorePath()), nil
	}
}

// refreshHome reloads both home lists from their sources.
func (a *App) refreshHome() {
	if sops, err := a.library.List(); err == nil {
		items := make([]list.Item, len(sops))
		for i := range sops {
			items[i] = sopItem{sop: sops[i]}
		}
		a.sopMenu.SetItems(items)
	} else {
		a.err = err
	}
	if runs, err := a.manager.RecentChecklists(50); err == nil {
		items := make([]list.Item, len(runs))
		for i := range runs {
			items[i] = runItem{run: runs[i]}
		}
		a.runMenu.SetItems(items)
	} else {
		a.err = err
	}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		half := maxInt(0, msg.Width/2-4)
		a.sopMenu.SetSize(half, maxInt(0, msg.Height-8))
		a.runMenu.SetSize(half, maxInt(0, msg.Height-8))
		if a.runView != nil {
			a.runView.setSize(msg.Width, msg.Height)
		}
		return a, nil

	case tea.KeyMsg:
		if a.state == stateRun && a.runView != nil {
			return a.updateRun(msg)
		}
		return a.updateHome(msg)
	}
	return a, nil
}

func (a *App) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		a.logger.Printf("tui: session closed")
		return a, tea.Quit

	case "tab":
		if a.focus == focusSOPs {
			a.focus = focusRuns
		} else {
			a.focus = focusSOPs
		}
		return a, nil

	case "d":
		if a.focus == focusRuns {
			if item, ok := a.runMenu.SelectedItem().(runItem); ok {
				if err := a.manager.DeleteChecklist(item.run.ID); err != nil {
					a.err = err
				} else {
					a.statusMsg = "Run deleted"
					a.refreshHome()
				}
			}
		}
		return a, nil

	case "enter":
		a.err = nil
		a.statusMsg = ""
		if a.focus == focusSOPs {
			item, ok := a.sopMenu.SelectedItem().(sopItem)
			if !ok {
				return a, nil
			}
			s, err := a.manager.StartFromSOP(item.sop.ID)
			if err != nil {
				a.err = err
				return a, nil
			}
			a.runView = newRunView(a, s, nil)
			a.state = stateRun
			return a, nil
		}
		item, ok := a.runMenu.SelectedItem().(runItem)
		if !ok {
			return a, nil
		}
		// Completed runs open as historical records; anything else resumes.
		if item.run.Status == checklist.StatusCompleted {
			view, err := a.manager.ViewCompleted(item.run.ID)
			if err != nil {
				a.err = err
				return a, nil
			}
			a.runView = newRunView(a, nil, view)
		} else {
			s, err := a.manager.Resume(item.run.ID)
			if err != nil {
				a.err = err
				return a, nil
			}
			a.runView = newRunView(a, s, nil)
		}
		a.state = stateRun
		return a, nil
	}

	var cmd tea.Cmd
	if a.focus == focusSOPs {
		a.sopMenu, cmd = a.sopMenu.Update(msg)
	} else {
		a.runMenu, cmd = a.runMenu.Update(msg)
	}
	return a, cmd
}

func (a *App) updateRun(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	leave, cmd := a.runView.handleKey(msg)
	if leave {
		a.runView = nil
		a.state = stateHome
		a.refreshHome()
	}
	return a, cmd
}

// View renders the current screen.
func (a *App) View() string {
	if a.state == stateRun && a.runView != nil {
		return a.runView.View()
	}
	return a.viewHome()
}

func (a *App) viewHome() string {
	header := titleStyle.Render("⬡ OPSDECK") + "\n"

	sopTitle := "Procedures"
	runTitle := "Runs"
	if a.focus == focusSOPs {
		sopTitle = focusedStyle.Render("▸ " + sopTitle)
		runTitle = dimStyle.Render("  " + runTitle)
	} else {
		sopTitle = dimStyle.Render("  " + sopTitle)
		runTitle = focusedStyle.Render("▸ " + runTitle)
	}
	a.sopMenu.Title = sopTitle
	a.runMenu.Title = runTitle

	columns := lipgloss.JoinHorizontal(lipgloss.Top, a.sopMenu.View(), "  ", a.runMenu.View())

	footer := statusStyle.Render("tab: switch · enter: run/resume · d: delete run · q: quit")
	if a.statusMsg != "" {
		footer = statusStyle.Render(a.statusMsg) + "\n" + footer
	}
	if a.err != nil {
		footer = errorStyle.Render(userMessage(a.err)) + "\n" + footer
	}
	return header + "\n" + columns + "\n\n" + footer
}

// userMessage flattens the session error taxonomy into something a person
// running a checklist should read.
func userMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrSOPNotFound):
		return "That procedure no longer exists."
	case errors.Is(err, session.ErrSOPHasNoSteps):
		return "That procedure has no steps to run."
	case errors.Is(err, session.ErrChecklistNotFound):
		return "That run no longer exists."
	case errors.Is(err, session.ErrChecklistInvalid):
		return "That run is damaged and cannot be opened."
	case errors.Is(err, session.ErrSourceSOPDeleted):
		return "The source procedure was deleted; the run cannot be restarted."
	default:
		return err.Error()
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
