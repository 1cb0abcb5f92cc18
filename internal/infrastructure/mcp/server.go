// Package mcp exposes the engine's operations to MCP clients over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/farazpawle/agent-flow-sub001/internal/application"
	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/graph"
	"github.com/farazpawle/agent-flow-sub001/internal/infrastructure/watch"
	"github.com/farazpawle/agent-flow-sub001/internal/infrastructure/wiring"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

type Server struct {
	mcpServer *mcp.Server
	services  *wiring.AppServices
	root      string
}

// mcpErr returns a user-friendly error for MCP clients.
// Internal details are omitted — only the friendly message is returned.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

func NewServer(root string) (*Server, error) {
	services, err := wiring.BuildAppServices(root)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}

	info := mcp.ServerInfo{
		Name:    "agentflow",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Agentflow MCP Server"),
			mcp.WithDescription("Agentflow exposes a dependency-ordered task store with durable persistence to MCP clients."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Use tools to create task batches, walk the dependency-safe execution order, and query hot and archived tasks."),
		),
		services: services,
		root:     root,
	}

	s.registerTools()
	return s, nil
}

type CreateTasksArgs struct {
	Tasks      []store.TaskDraft `json:"tasks" jsonschema:"description=The batch of tasks to create"`
	UpdateMode string            `json:"updateMode,omitempty" jsonschema:"description=append (default) keeps existing tasks; overwrite replaces all non-completed tasks; selective replaces same-named tasks in place"`
	ProjectID  string            `json:"projectId,omitempty" jsonschema:"description=Project to attach the tasks to"`
}

type TaskIDArgs struct {
	TaskID string `json:"taskId" jsonschema:"description=The task ID"`
}

type StatusArgs struct {
	TaskID string `json:"taskId" jsonschema:"description=The task ID"`
	Status string `json:"status" jsonschema:"description=Target status: pending, in_progress, completed, or blocked"`
}

type CompleteArgs struct {
	TaskID  string `json:"taskId" jsonschema:"description=The task ID"`
	Summary string `json:"summary,omitempty" jsonschema:"description=Completion summary"`
}

type VerifyArgs struct {
	TaskID  string `json:"taskId" jsonschema:"description=The task ID"`
	Score   int    `json:"score" jsonschema:"description=Verification score 0-100; 80 and above completes the task"`
	Summary string `json:"summary,omitempty" jsonschema:"description=Verification summary or rework feedback"`
}

type UpdateContentArgs struct {
	TaskID string          `json:"taskId" jsonschema:"description=The task ID"`
	Patch  store.TaskPatch `json:"patch" jsonschema:"description=Fields to change; omitted fields are untouched"`
}

type ListArgs struct {
	Status    string `json:"status,omitempty" jsonschema:"description=Filter by status, or all"`
	ProjectID string `json:"projectId,omitempty" jsonschema:"description=Filter by project"`
}

type ReorderArgs struct {
	Hints []graph.OrderHint `json:"hints" jsonschema:"description=Desired positions; the engine recalculates a dependency-safe full order"`
}

type QueryArgs struct {
	Query           string `json:"query" jsonschema:"description=Free text or an exact task ID"`
	IncludeArchived bool   `json:"includeArchived,omitempty" jsonschema:"description=Also search cold storage"`
	Page            int    `json:"page,omitempty" jsonschema:"description=Result page, starting at 1"`
}

type ClearArgs struct {
	Confirm bool `json:"confirm" jsonschema:"description=Must be true; all tasks are removed after a backup is written"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("create_tasks").
		Description("Create a batch of tasks atomically with dependency references by ID or by name within the batch").
		Handler(s.handleCreateTasks)

	s.mcpServer.Tool("list_tasks").
		Description("List tasks grouped by status, in dependency-safe execution order").
		Handler(s.handleListTasks)

	s.mcpServer.Tool("get_task").
		Description("Retrieve one task with its full content and conversation history").
		Handler(s.handleGetTask)

	s.mcpServer.Tool("execute_task").
		Description("Move a task to in_progress; refused while its dependencies are incomplete").
		Handler(s.handleExecuteTask)

	s.mcpServer.Tool("update_task_status").
		Description("Transition a task to an explicit lifecycle status").
		Handler(s.handleUpdateStatus)

	s.mcpServer.Tool("complete_task").
		Description("Mark a task completed with a summary").
		Handler(s.handleCompleteTask)

	s.mcpServer.Tool("verify_task").
		Description("Score a task's result; passing scores complete it, failing scores record rework feedback").
		Handler(s.handleVerifyTask)

	s.mcpServer.Tool("update_task_content").
		Description("Partially update a non-completed task's content fields").
		Handler(s.handleUpdateContent)

	s.mcpServer.Tool("delete_task").
		Description("Delete a task; refused for completed tasks and for dependency targets").
		Handler(s.handleDeleteTask)

	s.mcpServer.Tool("reorder_tasks").
		Description("Apply manual ordering hints and get back the recalculated dependency-safe order").
		Handler(s.handleReorderTasks)

	s.mcpServer.Tool("query_tasks").
		Description("Fuzzy-search tasks by text, or resolve an exact task ID, optionally including archived tasks").
		Handler(s.handleQueryTasks)

	s.mcpServer.Tool("clear_all_tasks").
		Description("Remove every task after writing a timestamped backup file").
		Handler(s.handleClearAll)
}

func (s *Server) handleCreateTasks(ctx context.Context, args CreateTasksArgs) (any, error) {
	mode, err := store.ParseUpdateMode(args.UpdateMode)
	if err != nil {
		return nil, mcpErr(err.Error())
	}
	created, err := s.services.Task.CreateTasks(args.Tasks, mode, args.ProjectID)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to create tasks: %v", err))
	}

	result := map[string]any{"created": created}
	if warn := s.services.Task.CycleWarning(); warn != nil {
		result["warning"] = warn.Error()
	}
	return result, nil
}

func (s *Server) handleListTasks(ctx context.Context, args ListArgs) (any, error) {
	groups, err := s.services.Task.ListTasks(args.Status, args.ProjectID)
	if err != nil {
		return nil, mcpErr(err.Error())
	}
	return groups, nil
}

func (s *Server) handleGetTask(ctx context.Context, args TaskIDArgs) (any, error) {
	t, err := s.services.Task.GetTask(args.TaskID)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Task not found: %s", args.TaskID))
	}
	return t, nil
}

func (s *Server) handleExecuteTask(ctx context.Context, args TaskIDArgs) (any, error) {
	t, err := s.services.Task.StartTask(args.TaskID)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to start task: %v", err))
	}
	return t, nil
}

func (s *Server) handleUpdateStatus(ctx context.Context, args StatusArgs) (any, error) {
	target, err := domain.ParseTaskStatus(args.Status)
	if err != nil {
		return nil, mcpErr(err.Error())
	}
	t, err := s.services.Task.UpdateTaskStatus(args.TaskID, target)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to update status: %v", err))
	}
	return t, nil
}

func (s *Server) handleCompleteTask(ctx context.Context, args CompleteArgs) (any, error) {
	t, err := s.services.Task.CompleteTask(args.TaskID, args.Summary)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to complete task: %v", err))
	}
	return t, nil
}

func (s *Server) handleVerifyTask(ctx context.Context, args VerifyArgs) (any, error) {
	t, err := s.services.Task.VerifyTask(args.TaskID, args.Score, args.Summary)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to verify task: %v", err))
	}
	return map[string]any{
		"task":      t,
		"completed": t.Status.IsTerminal(),
		"threshold": application.VerificationThreshold,
	}, nil
}

func (s *Server) handleUpdateContent(ctx context.Context, args UpdateContentArgs) (any, error) {
	t, err := s.services.Task.UpdateTaskContent(args.TaskID, args.Patch)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to update task: %v", err))
	}
	return t, nil
}

func (s *Server) handleDeleteTask(ctx context.Context, args TaskIDArgs) (string, error) {
	if err := s.services.Task.DeleteTask(args.TaskID); err != nil {
		return "", mcpErr(fmt.Sprintf("Failed to delete task: %v", err))
	}
	return fmt.Sprintf("Task %s deleted", args.TaskID), nil
}

func (s *Server) handleReorderTasks(ctx context.Context, args ReorderArgs) (any, error) {
	ordered, warn, err := s.services.Task.ReorderTasks(args.Hints)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to reorder tasks: %v", err))
	}
	result := map[string]any{"order": ordered}
	if warn != nil {
		result["warning"] = warn.Error()
	}
	return result, nil
}

func (s *Server) handleQueryTasks(ctx context.Context, args QueryArgs) (any, error) {
	page, err := s.services.Query.Query(args.Query, args.IncludeArchived, args.Page)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Query failed: %v", err))
	}
	return page, nil
}

func (s *Server) handleClearAll(ctx context.Context, args ClearArgs) (any, error) {
	backup, removed, err := s.services.Task.ClearAllTasks(args.Confirm)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to clear tasks: %v", err))
	}
	return map[string]any{"removed": removed, "backup": backup}, nil
}

// StartStdio serves MCP over stdio until the client disconnects,
// running the archival schedule and the external-edit watcher in the
// background for the lifetime of the session.
func (s *Server) StartStdio() error {
	return s.ServeStdio(context.Background())
}

func (s *Server) ServeStdio(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.services.Close()

	if err := s.services.Archiver.Start(s.services.Config.ArchiveSchedule); err != nil {
		return fmt.Errorf("start archiver: %w", err)
	}

	watcher, err := watch.NewDataWatcher(s.root, 0, func() {
		if err := s.services.ReloadFromDisk(); err != nil {
			s.services.Logger.Error("external reload failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("start data watcher: %w", err)
	}
	go func() { _ = watcher.Run(ctx) }()

	return mcp.ServeStdio(ctx, s.mcpServer)
}
