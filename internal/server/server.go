// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the store, builds the engine, and
// injects them into the tools/prompts/resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"stratum/internal/config"
	"stratum/internal/ctxtools"
	"stratum/internal/engine"
	"stratum/internal/prompts"
	"stratum/internal/resources"
	"stratum/internal/store"
	"stratum/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts, and
// resources registered. This is the single place where all dependencies
// are resolved.
//
// The returned cleanup function closes the store's database connection and
// must be called on shutdown (typically via defer). It is always non-nil
// and safe to call even if initialization failed.
func New(cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	st, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", "error", err)
		}
	}

	eng := engine.New(st, cfg, logger)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"stratum",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register workspace tools ---

	projectCreate := tools.NewProjectCreateTool(eng)
	s.AddTool(projectCreate.Definition(), projectCreate.Handle)

	projectList := tools.NewProjectListTool(eng)
	s.AddTool(projectList.Definition(), projectList.Handle)

	branchCreate := tools.NewBranchCreateTool(eng)
	s.AddTool(branchCreate.Definition(), branchCreate.Handle)

	branchList := tools.NewBranchListTool(eng)
	s.AddTool(branchList.Definition(), branchList.Handle)

	// --- Register task tools ---

	taskCreate := tools.NewTaskCreateTool(eng)
	s.AddTool(taskCreate.Definition(), taskCreate.Handle)

	taskGet := tools.NewTaskGetTool(eng)
	s.AddTool(taskGet.Definition(), taskGet.Handle)

	taskList := tools.NewTaskListTool(eng)
	s.AddTool(taskList.Definition(), taskList.Handle)

	taskStatus := tools.NewTaskStatusTool(eng)
	s.AddTool(taskStatus.Definition(), taskStatus.Handle)

	taskComplete := tools.NewTaskCompleteTool(eng)
	s.AddTool(taskComplete.Definition(), taskComplete.Handle)

	taskDelete := tools.NewTaskDeleteTool(eng)
	s.AddTool(taskDelete.Definition(), taskDelete.Handle)

	subtaskAdd := tools.NewSubtaskAddTool(eng)
	s.AddTool(subtaskAdd.Definition(), subtaskAdd.Handle)

	subtaskUpdate := tools.NewSubtaskUpdateTool(eng)
	s.AddTool(subtaskUpdate.Definition(), subtaskUpdate.Handle)

	// --- Register context tools ---

	ctxCreate := ctxtools.NewCtxCreateTool(eng)
	s.AddTool(ctxCreate.Definition(), ctxCreate.Handle)

	ctxGet := ctxtools.NewCtxGetTool(eng)
	s.AddTool(ctxGet.Definition(), ctxGet.Handle)

	ctxUpdate := ctxtools.NewCtxUpdateTool(eng)
	s.AddTool(ctxUpdate.Definition(), ctxUpdate.Handle)

	ctxResolve := ctxtools.NewCtxResolveTool(eng)
	s.AddTool(ctxResolve.Definition(), ctxResolve.Handle)

	ctxDelegate := ctxtools.NewCtxDelegateTool(eng)
	s.AddTool(ctxDelegate.Definition(), ctxDelegate.Handle)

	// --- Register delegation queue tools ---

	delegationApprove := ctxtools.NewDelegationApproveTool(eng)
	s.AddTool(delegationApprove.Definition(), delegationApprove.Handle)

	delegationReject := ctxtools.NewDelegationRejectTool(eng)
	s.AddTool(delegationReject.Definition(), delegationReject.Handle)

	delegationList := ctxtools.NewDelegationListTool(eng)
	s.AddTool(delegationList.Definition(), delegationList.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(eng)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)
	s.AddResource(resourceHandler.PendingDelegationsResource(), resourceHandler.HandlePendingDelegations)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when the store
// hasn't been opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the context store effectively.
func serverInstructions() string {
	return `You have access to Stratum, a hierarchical context store for agentic work.

## What Stratum is

Stratum keeps shared working context in a four-level hierarchy:

    global → project → branch → task

Each level owns a JSON document. Reading a context resolves the whole chain:
deeper levels are deep-merged over shallower ones, key by key, so a task sees
everything its branch, project, and the global level agreed on, plus its own
data. Writes are optimistically versioned; every context write bumps the
owner's version.

## When to use it

- At session start: run ctx_resolve on the task you are working on to load
  every convention and decision that applies to it.
- When you learn something that outlives the current task (a convention, a
  naming rule, an architectural decision): promote it with ctx_delegate
  instead of writing it into the task context, so future tasks inherit it.
- When you finish work: task_complete with a real summary. The summary lands
  in the task context, so whoever picks up the follow-up reads it as context,
  not as archaeology.

## Working with tasks

1. task_create under a branch; the task starts in todo.
2. task_update_status fires lifecycle events (start, block, send_for_review,
   begin_testing, finalize, ...). Run task_get to see which events are legal
   from the current status instead of guessing.
3. Subtasks are the checklist: subtask_add to plan, subtask_update to track.
   Their progress is folded into the task context automatically.
4. task_complete needs a summary and closes the loop. It is refused while
   any subtask is still open.

## Writing context well

- Write the SMALLEST scope that is still correct: task-specific facts at the
  task level, shared decisions delegated upward.
- Use dot paths with ctx_update (conventions.style, policies.review) rather
  than overwriting whole documents; use deep_merge when folding an object
  into existing data.
- When you must not lose concurrent edits, pass expected_version and retry
  on conflict with a fresh read.
- Payload keys on the auto-approval whitelist (conventions and naming by
  default) merge upward immediately on ctx_delegate; everything else waits
  in the pending queue for delegation_approve or delegation_reject.

## Resources

- stratum://status: store totals, tasks by status, cache statistics.
- stratum://delegations/pending: the review queue, oldest first.
`
}
