// cmd/opsdeck/main.go
//
// This is the entry point for the opsdeck CLI.
// Running `opsdeck` with no arguments launches the TUI; subcommands give
// headless access to the same checklist engine for scripting.

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "Run standard operating procedures as tracked checklists",
	Long: `opsdeck turns SOP definitions (YAML files under .opsdeck/sops) into
tracked checklist runs. The bare command opens the interactive TUI;
subcommands operate on procedures and runs from scripts.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		app, err := tui.NewApp(cwd)
		if err != nil {
			return err
		}
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
