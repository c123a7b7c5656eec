package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opsdeck/opsdeck/internal/checklist"
	"github.com/opsdeck/opsdeck/internal/session"
)

var (
	stepDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	stepPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	noteStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Italic(true)
	confirmStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	progressStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
)

// confirmKind tracks which destructive action is awaiting a y/n answer.
type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmReset
	confirmRestart
)

// runView renders one checklist run. Exactly one of interactive/readonly
// is set; a read-only view simply has no session to mutate, so every
// editing key path is unreachable for it.
type runView struct {
	app         *App
	interactive *session.InteractiveSession
	readonly    *session.ReadOnlySession

	cursor      int
	editingNote bool
	noteInput   textinput.Model
	confirm     confirmKind
	restart     *session.RestartCheck
	statusMsg   string
	width       int
	height      int
}

func newRunView(app *App, s *session.InteractiveSession, view *session.ReadOnlySession) *runView {
	input := textinput.New()
	input.Placeholder = "Add a note for this step"
	input.CharLimit = 280
	return &runView{
		app:         app,
		interactive: s,
		readonly:    view,
		noteInput:   input,
		width:       app.width,
		height:      app.height,
	}
}

func (v *runView) setSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *runView) checklist() checklist.Checklist {
	if v.readonly != nil {
		return v.readonly.Checklist()
	}
	return v.interactive.Checklist()
}

func (v *runView) progress() checklist.Report {
	if v.readonly != nil {
		return v.readonly.Progress()
	}
	return v.interactive.Progress()
}

// handleKey processes one key press. The returned leave flag tells the app
// to drop back to the home screen.
func (v *runView) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if v.editingNote {
		return v.handleNoteKey(msg)
	}
	if v.confirm != confirmNone {
		return v.handleConfirmKey(msg)
	}

	current := v.checklist()
	switch msg.String() {
	case "ctrl+c":
		return false, tea.Quit

	case "esc", "b":
		if v.readonly != nil {
			v.readonly.Back()
		} else {
			v.interactive.Back()
		}
		return true, nil

	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
		return false, nil

	case "down", "j":
		if v.cursor < len(current.Steps)-1 {
			v.cursor++
		}
		return false, nil
	}

	if v.readonly != nil {
		// Historical records take no other input.
		return false, nil
	}

	switch msg.String() {
	case " ":
		step := current.Steps[v.cursor]
		if err := v.interactive.ToggleStep(v.cursor, !step.Completed); err != nil {
			v.statusMsg = err.Error()
		}
		return false, nil

	case "n", "enter":
		v.editingNote = true
		v.noteInput.SetValue(current.Steps[v.cursor].UserNote)
		v.noteInput.Focus()
		return false, textinput.Blink

	case "a":
		if err := v.interactive.MarkAllComplete(); err != nil {
			v.statusMsg = err.Error()
		} else {
			v.statusMsg = "All steps completed"
		}
		return false, nil

	case "r":
		v.confirm = confirmReset
		return false, nil

	case "R":
		check, err := v.interactive.PrepareRestart()
		if err != nil {
			v.statusMsg = userMessage(err)
			return false, nil
		}
		if check.Stale {
			v.restart = &check
			v.confirm = confirmRestart
			return false, nil
		}
		return false, v.doRestart()
	}
	return false, nil
}

func (v *runView) handleNoteKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if err := v.interactive.UpdateStepNote(v.cursor, v.noteInput.Value()); err != nil {
			v.statusMsg = err.Error()
		}
		v.editingNote = false
		v.noteInput.Blur()
		return false, nil
	case "esc":
		v.editingNote = false
		v.noteInput.Blur()
		return false, nil
	}
	var cmd tea.Cmd
	v.noteInput, cmd = v.noteInput.Update(msg)
	return false, cmd
}

func (v *runView) handleConfirmKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	kind := v.confirm
	v.confirm = confirmNone
	switch msg.String() {
	case "y", "Y":
		if kind == confirmReset {
			if err := v.interactive.ResetAll(); err != nil {
				v.statusMsg = err.Error()
			} else {
				v.statusMsg = "Checklist reset"
			}
			return false, nil
		}
		return false, v.doRestart()
	default:
		v.restart = nil
		v.statusMsg = "Cancelled"
		return false, nil
	}
}

// doRestart swaps this view onto a brand-new checklist; the old run stays
// in the history untouched.
func (v *runView) doRestart() tea.Cmd {
	fresh, err := v.interactive.Restart()
	if err != nil {
		v.statusMsg = userMessage(err)
		return nil
	}
	v.interactive = fresh
	v.restart = nil
	v.cursor = 0
	v.statusMsg = "Started a fresh run"
	return nil
}

func (v *runView) View() string {
	current := v.checklist()
	report := v.progress()

	var b strings.Builder
	b.WriteString(titleStyle.Render(current.SOPTitle))
	if v.readonly != nil {
		b.WriteString(dimStyle.Render("  (read-only)"))
	}
	b.WriteString("\n")
	b.WriteString(progressStyle.Render(fmt.Sprintf("%d/%d steps · %d%%", report.Completed, report.Total, report.Percentage)))
	b.WriteString("\n\n")

	for i, step := range current.Steps {
		marker := "[ ]"
		style := stepPendingStyle
		if step.Completed {
			marker = "[x]"
			style = stepDoneStyle
		}
		line := fmt.Sprintf("%s %d. %s", marker, step.Order, step.Text)
		if i == v.cursor {
			line = cursorStyle.Render("▸ ") + style.Render(line)
		} else {
			line = "  " + style.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if step.Note != "" {
			b.WriteString(noteStyle.Render("      guide: " + step.Note))
			b.WriteString("\n")
		}
		if step.UserNote != "" {
			b.WriteString(noteStyle.Render("      note: " + step.UserNote))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if v.editingNote {
		b.WriteString(v.noteInput.View())
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("enter: save note · esc: cancel"))
		return b.String()
	}

	switch v.confirm {
	case confirmReset:
		b.WriteString(confirmStyle.Render("Reset all steps and notes? This cannot be undone. (y/n)"))
		return b.String()
	case confirmRestart:
		b.WriteString(confirmStyle.Render("The procedure changed since this checklist was created — start a new one with the updated steps? (y/n)"))
		return b.String()
	}

	if v.statusMsg != "" {
		b.WriteString(statusStyle.Render(v.statusMsg))
		b.WriteString("\n")
	}
	if v.readonly != nil {
		b.WriteString(statusStyle.Render("esc: back"))
	} else {
		b.WriteString(statusStyle.Render("space: toggle · n: note · a: all done · r: reset · R: restart · esc: back"))
	}
	return b.String()
}
