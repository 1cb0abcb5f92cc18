package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/graph"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks and their lifecycle",
}

var (
	taskCreateFile    string
	taskCreateMode    string
	taskCreateProject string
	taskListStatus    string
	taskListProject   string
	taskJSON          bool
	taskSummary       string
	taskVerifyScore   int
)

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a batch of tasks from a JSON file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		raw, err := readTaskBatch(taskCreateFile)
		if err != nil {
			return err
		}
		mode, err := store.ParseUpdateMode(taskCreateMode)
		if err != nil {
			return MapError(err)
		}

		created, err := services.Task.CreateTasksFromJSON(raw, mode, taskCreateProject)
		if err != nil {
			return MapError(fmt.Errorf("failed to create tasks: %w", err))
		}

		if taskJSON {
			return printJSON(created)
		}
		fmt.Printf("Created %d task(s).\n", len(created))
		for _, t := range created {
			fmt.Printf("  %s  %s\n", t.ID, t.Name)
		}
		if warn := services.Task.CycleWarning(); warn != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", warn)
		}
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks grouped by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		groups, err := services.Task.ListTasks(taskListStatus, taskListProject)
		if err != nil {
			return MapError(err)
		}
		if taskJSON {
			return printJSON(groups.Groups)
		}

		for _, status := range domain.AllTaskStatuses() {
			tasks := groups.Groups[status]
			if len(tasks) == 0 {
				continue
			}
			fmt.Printf("%s (%d)\n", status.DisplayName(), len(tasks))
			for _, t := range tasks {
				order := "-"
				if pos, ok := t.OrderKey(); ok {
					order = strconv.Itoa(pos)
				}
				fmt.Printf("  [%s] %s  %s\n", order, t.ID, t.Name)
			}
		}
		fmt.Printf("Total: %d\n", groups.Total)
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show full details for one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		t, err := services.Task.GetTask(args[0])
		if err != nil {
			return MapError(err)
		}
		return printJSON(t)
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Move a task to in_progress (dependencies must be completed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		t, err := services.Task.StartTask(args[0])
		if err != nil {
			return MapError(fmt.Errorf("failed to start task: %w", err))
		}
		fmt.Printf("Task %s is now %s.\n", t.ID, t.Status)
		return nil
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task completed with a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		t, err := services.Task.CompleteTask(args[0], taskSummary)
		if err != nil {
			return MapError(fmt.Errorf("failed to complete task: %w", err))
		}
		fmt.Printf("Task %s completed.\n", t.ID)
		return nil
	},
}

var taskVerifyCmd = &cobra.Command{
	Use:   "verify <task-id>",
	Short: "Record a verification score; passing scores complete the task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		t, err := services.Task.VerifyTask(args[0], taskVerifyScore, taskSummary)
		if err != nil {
			return MapError(fmt.Errorf("failed to verify task: %w", err))
		}
		if t.Status.IsTerminal() {
			fmt.Printf("Task %s verified and completed (score %d).\n", t.ID, taskVerifyScore)
		} else {
			fmt.Printf("Task %s needs rework (score %d); feedback recorded.\n", t.ID, taskVerifyScore)
		}
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task (refused for completed tasks and dependency targets)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		if err := services.Task.DeleteTask(args[0]); err != nil {
			return MapError(fmt.Errorf("failed to delete task: %w", err))
		}
		fmt.Printf("Task %s deleted.\n", args[0])
		return nil
	},
}

var taskReorderCmd = &cobra.Command{
	Use:   "reorder <task-id>=<position> ...",
	Short: "Apply manual ordering hints; the full order is recalculated to stay dependency-safe",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		hints, err := parseOrderHints(args)
		if err != nil {
			return MapError(err)
		}

		ordered, warn, err := services.Task.ReorderTasks(hints)
		if err != nil {
			return MapError(fmt.Errorf("failed to reorder tasks: %w", err))
		}

		if taskJSON {
			return printJSON(ordered)
		}
		for _, t := range ordered {
			pos, _ := t.OrderKey()
			fmt.Printf("%3d  %s  %s\n", pos, t.ID, t.Name)
		}
		if warn != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", warn)
		}
		return nil
	},
}

func readTaskBatch(file string) ([]byte, error) {
	if file == "" || file == "-" {
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return nil, fmt.Errorf("failed to read batch from stdin: %w", err)
		}
		return data, nil
	}
	// #nosec G304 -- path supplied explicitly by the operator
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return data, nil
}

func parseOrderHints(args []string) ([]graph.OrderHint, error) {
	hints := make([]graph.OrderHint, 0, len(args))
	for _, arg := range args {
		id, posStr, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, &domain.ValidationError{Field: "reorder", Reason: fmt.Sprintf("expected <task-id>=<position>, got %q", arg)}
		}
		pos, err := strconv.Atoi(posStr)
		if err != nil || pos < 0 {
			return nil, &domain.ValidationError{Field: "reorder", Reason: fmt.Sprintf("position must be a non-negative integer, got %q", posStr)}
		}
		hints = append(hints, graph.OrderHint{TaskID: id, Position: pos})
	}
	return hints, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	taskCreateCmd.Flags().StringVarP(&taskCreateFile, "file", "f", "", "JSON batch file ('-' for stdin)")
	taskCreateCmd.Flags().StringVarP(&taskCreateMode, "mode", "m", "append", "Update mode (append, overwrite, selective)")
	taskCreateCmd.Flags().StringVarP(&taskCreateProject, "project", "p", "", "Project ID to attach the tasks to")
	taskListCmd.Flags().StringVarP(&taskListStatus, "status", "s", "all", "Filter by status (pending, in_progress, completed, blocked, all)")
	taskListCmd.Flags().StringVarP(&taskListProject, "project", "p", "", "Filter by project ID")
	taskCompleteCmd.Flags().StringVar(&taskSummary, "summary", "", "Completion summary")
	taskVerifyCmd.Flags().IntVar(&taskVerifyScore, "score", 0, "Verification score (0-100)")
	taskVerifyCmd.Flags().StringVar(&taskSummary, "summary", "", "Verification summary or feedback")
	taskCmd.PersistentFlags().BoolVar(&taskJSON, "json", false, "Output JSON")

	taskCmd.AddCommand(taskCreateCmd, taskListCmd, taskShowCmd, taskStartCmd,
		taskCompleteCmd, taskVerifyCmd, taskDeleteCmd, taskReorderCmd)
	RootCmd.AddCommand(taskCmd)
}
