package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

const defaultMaxToolRounds = 6

// SequentialRunner executes tasks in order, feeding each task's parsed
// output into the next task's prompt. Tool-carrying roles get a bounded
// tool-call loop.
type SequentialRunner struct {
	Provider      LLMProvider
	Logger        *log.Logger
	MaxToolRounds int
	// OnTokens, when set, observes per-call token usage.
	OnTokens func(stage, model string, inputTokens, outputTokens int64)
}

// Kickoff runs every task and returns a KickoffResult whose FinalOutput is
// the last task's raw text.
func (r *SequentialRunner) Kickoff(ctx context.Context, tasks []Task, opts KickoffOptions) (interface{}, error) {
	result := &KickoffResult{}
	prev := map[string]interface{}{}

	for i := range tasks {
		task := tasks[i]
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		if opts.OnTaskStart != nil {
			opts.OnTaskStart(task)
		}
		r.logf("[RUNNER] task %s (%s) starting", task.ID, task.Stage)

		raw, err := r.runTask(ctx, task, task.BuildPrompt(prev))
		if err != nil {
			return nil, fmt.Errorf("task %s (%s): %w", task.ID, task.Stage, err)
		}
		result.TaskOutputs = append(result.TaskOutputs, TaskOutput{
			TaskID: task.ID,
			Stage:  task.Stage,
			Raw:    raw,
		})

		// best-effort parse for the next prompt; a stage that emits
		// unparseable text hands an empty map forward
		if parsed, perr := ExtractResult(raw); perr == nil {
			prev = parsed
		} else {
			r.logf("[RUNNER] task %s (%s) output not parseable, passing empty context", task.ID, task.Stage)
			prev = map[string]interface{}{}
		}
	}
	return result, nil
}

// runTask drives one task to completion, resolving tool calls along the way.
func (r *SequentialRunner) runTask(ctx context.Context, task Task, prompt string) (string, error) {
	full := roleHeader(task.Role) + prompt
	maxRounds := r.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}

	transcript := full
	for round := 0; round < maxRounds; round++ {
		answer, err := r.generate(ctx, task, transcript)
		if err != nil {
			return "", err
		}
		name, args, ok := parseToolCall(answer)
		if !ok || len(task.Role.Tools) == 0 {
			return answer, nil
		}

		tool, found := ToolByName(task.Role.Tools, name)
		var observation map[string]interface{}
		if !found {
			observation = map[string]interface{}{"error": fmt.Sprintf("unknown tool: %s", name)}
		} else {
			r.logf("[RUNNER] task %s invoking tool %s", task.ID, tool.Name())
			observation = tool.Invoke(ctx, args)
		}
		obs, _ := json.Marshal(observation)
		transcript += fmt.Sprintf("\n\nTOOL RESULT (%s): %s\n\nContinue. Use another tool if you need more material, otherwise give your final answer.", name, obs)
	}

	// tool budget exhausted: demand a final answer
	transcript += "\n\nYou have no tool calls left. Give your final answer now."
	return r.generate(ctx, task, transcript)
}

func (r *SequentialRunner) generate(ctx context.Context, task Task, prompt string) (string, error) {
	answer, in, out, err := r.Provider.GenerateWithTokens(ctx, prompt, task.Role.Model, nil)
	if err != nil {
		return "", err
	}
	if r.OnTokens != nil {
		r.OnTokens(task.Stage, task.Role.Model, in, out)
	}
	return strings.TrimSpace(answer), nil
}

func (r *SequentialRunner) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// parseToolCall recognizes a {"tool": name, "args": {...}} reply. Anything
// else is treated as a final answer.
func parseToolCall(answer string) (string, map[string]interface{}, bool) {
	m, err := extractFromText(answer)
	if err != nil {
		return "", nil, false
	}
	name, ok := m["tool"].(string)
	if !ok || name == "" {
		return "", nil, false
	}
	args, _ := m["args"].(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return name, args, true
}

// roleHeader renders the persona and tool protocol preamble for a task.
func roleHeader(role Role) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\nYour goal: %s\n\n", role.Name, role.Backstory, role.Goal)
	if len(role.Tools) > 0 {
		fmt.Fprintf(&b, "You can use these tools:\n%s\n\n", DescribeTools(role.Tools))
		b.WriteString("To use a tool, respond ONLY with JSON of the form {\"tool\": \"<name>\", \"args\": {...}}. When you have enough material, respond with your final answer instead.\n\n")
	}
	return b.String()
}

// HierarchicalRunner asks a coordinator model to order the tasks before
// delegating execution to a SequentialRunner. An unusable coordinator reply
// keeps the given order.
type HierarchicalRunner struct {
	Sequential       *SequentialRunner
	CoordinatorModel string
}

func (r *HierarchicalRunner) Kickoff(ctx context.Context, tasks []Task, opts KickoffOptions) (interface{}, error) {
	ordered := r.planOrder(ctx, tasks)
	return r.Sequential.Kickoff(ctx, ordered, opts)
}

// planOrder asks the coordinator for a stage ordering. The plan is only
// honored when it is a permutation of the actual stages.
func (r *HierarchicalRunner) planOrder(ctx context.Context, tasks []Task) []Task {
	if len(tasks) < 2 {
		return tasks
	}
	var stages []string
	for _, t := range tasks {
		stages = append(stages, t.Stage)
	}
	prompt := fmt.Sprintf(`You coordinate an encyclopedia writing pipeline with these stages: %s.
Decide the order they should run in. %s
Schema: {"order": ["stage", ...]}`, strings.Join(stages, ", "), jsonOnlyInstruction)

	answer, err := r.Sequential.Provider.Generate(ctx, prompt, r.CoordinatorModel, nil)
	if err != nil {
		r.Sequential.logf("[RUNNER] coordinator unavailable, keeping given order: %v", err)
		return tasks
	}
	plan, err := extractFromText(answer)
	if err != nil {
		return tasks
	}
	order := stringSliceField(plan, "order")
	ordered := reorderTasks(tasks, order)
	if ordered == nil {
		r.Sequential.logf("[RUNNER] coordinator plan %v not a valid ordering, keeping given order", order)
		return tasks
	}
	return ordered
}

// reorderTasks maps a stage-name ordering back onto tasks. It returns nil
// unless every stage appears exactly once.
func reorderTasks(tasks []Task, order []string) []Task {
	if len(order) != len(tasks) {
		return nil
	}
	byStage := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byStage[t.Stage] = t
	}
	out := make([]Task, 0, len(tasks))
	for _, stage := range order {
		t, ok := byStage[stage]
		if !ok {
			return nil
		}
		delete(byStage, stage)
		out = append(out, t)
	}
	return out
}
