package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/checklist"
	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/logging"
	"github.com/opsdeck/opsdeck/internal/session"
	"github.com/opsdeck/opsdeck/internal/sop"
)

// runtime bundles everything a headless command needs.
type runtime struct {
	cfg     *config.Config
	logger  *logging.Logger
	library *sop.Library
	manager *session.Manager
}

func (r *runtime) close() {
	if r.logger != nil {
		_ = r.logger.Close()
	}
}

// newRuntime wires the engine exactly as the TUI does, in the current
// working directory.
func newRuntime() (*runtime, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	if err := config.InitOpsdeckDir(cwd); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cwd)
	if err != nil {
		return nil, err
	}
	library, err := sop.NewLibrary(cfg.SOPsDir())
	if err != nil {
		return nil, err
	}
	var repo checklist.Repository
	if cfg.Storage() == config.StorageSQLite {
		repo, err = checklist.OpenSQLite(cfg.RunDBPath())
		if err != nil {
			return nil, err
		}
	} else {
		repo = checklist.NewFileRepository(cfg.RunStorePath())
	}
	mgr, err := session.New(library, repo,
		session.WithAutosaveDelay(cfg.AutosaveDelay()),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, library: library, manager: mgr}, nil
}

var sopsCmd = &cobra.Command{
	Use:   "sops",
	Short: "List the procedures in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		sops, err := rt.library.List()
		if err != nil {
			return err
		}
		if len(sops) == 0 {
			fmt.Println("No procedures found. Add YAML files under", rt.cfg.SOPsDir())
			return nil
		}
		for _, s := range sops {
			fmt.Printf("%-24s %-40s %d steps\n", s.ID, s.Title, len(s.Steps))
		}
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List checklist runs, most recently touched first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		runs, err := rt.manager.RecentChecklists(0)
		if err != nil {
			return err
		}
		for _, c := range runs {
			report := checklist.Progress(c.Steps)
			fmt.Printf("%-36s %-32s %-12s %3d%%  %s\n",
				c.ID, c.SOPTitle, c.Status, report.Percentage,
				c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start <sop-id>",
	Short: "Create a new checklist run from a procedure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		c, err := rt.manager.CreateFromSOP(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Started run %s (%s, %d steps)\n", c.ID, c.SOPTitle, c.TotalSteps)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the steps and progress of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		c, err := rt.manager.Checklist(args[0])
		if err != nil {
			return err
		}
		report := checklist.Progress(c.Steps)
		fmt.Printf("%s · %s · %d/%d (%d%%)\n", c.SOPTitle, c.Status, report.Completed, report.Total, report.Percentage)
		for _, step := range c.Steps {
			marker := "[ ]"
			if step.Completed {
				marker = "[x]"
			}
			fmt.Printf("  %s %d. %s\n", marker, step.Order, step.Text)
			if step.UserNote != "" {
				fmt.Printf("        note: %s\n", step.UserNote)
			}
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <run-id> <step-number>",
	Short: "Mark one step of a run complete",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		var stepNo int
		if _, err := fmt.Sscanf(args[1], "%d", &stepNo); err != nil || stepNo < 1 {
			return fmt.Errorf("step number must be a positive integer, got %q", args[1])
		}
		s, err := rt.manager.Resume(args[0])
		if err != nil {
			return err
		}
		if err := s.ToggleStep(stepNo-1, true); err != nil {
			return err
		}
		s.Back()
		c, err := rt.manager.Checklist(args[0])
		if err != nil {
			return err
		}
		report := checklist.Progress(c.Steps)
		fmt.Printf("Step %d done · %d/%d (%d%%)\n", stepNo, report.Completed, report.Total, report.Percentage)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a checklist run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		if err := rt.manager.DeleteChecklist(args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sopsCmd, runsCmd, startCmd, showCmd, checkCmd, deleteCmd)
}
