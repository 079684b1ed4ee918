// Package core contains the article generation pipeline: role contracts,
// the execution runner, result extraction and the crew orchestrator.
package core

import (
	"context"
	"fmt"
	"time"
)

// Process selects the task execution discipline for a crew.
type Process string

const (
	// ProcessSequential runs the three stages strictly in order, each stage
	// receiving the previous stage's raw output. Default.
	ProcessSequential Process = "sequential"
	// ProcessHierarchical lets a coordinator model reorder task execution.
	ProcessHierarchical Process = "hierarchical"
)

// Run result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Per-run pipeline states.
const (
	StateCreated     = "created"
	StateResearching = "researching"
	StateWriting     = "writing"
	StateEditing     = "editing"
	StateExtracting  = "extracting"
	StateValidated   = "validated"
	StateUnvalidated = "unvalidated"
	StateDone        = "done"
	StateFailed      = "failed"
)

// Stage names, used for task identity and status reporting.
const (
	StageResearch = "research"
	StageWriting  = "writing"
	StageEditing  = "editing"
)

// ConfigurationError reports a missing or unsupported credential/model
// selection. Fatal: raised before any stage begins.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ToolCapability is one retrieval capability bound to a role. Invoke never
// raises on upstream failure: errors come back as an {"error": ...} mapping
// so the role's own reasoning can decide whether to retry.
type ToolCapability interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, args map[string]interface{}) map[string]interface{}
}

// Role is a persona configuration driving one pipeline stage.
type Role struct {
	Name            string
	Goal            string
	Backstory       string
	Model           string
	Tools           []ToolCapability
	AllowDelegation bool
}

// Task is one unit of work assigned to a role. BuildPrompt is a pure
// function of the previous stage's parsed output; the runner resolves
// stage-to-stage data passing by calling it once the prior task completes.
// When the prior output could not be parsed the builder receives an empty
// map.
type Task struct {
	ID             string
	Stage          string
	Description    string
	ExpectedOutput string
	Role           Role
	BuildPrompt    func(prev map[string]interface{}) string
}

// KickoffOptions carries per-run hooks into a runner.
type KickoffOptions struct {
	OnTaskStart func(task Task)
}

// TaskRunner executes an ordered set of tasks and returns a final raw
// result. The return type is deliberately loose: the crew unwraps wrapper
// objects before extraction.
type TaskRunner interface {
	Kickoff(ctx context.Context, tasks []Task, opts KickoffOptions) (interface{}, error)
}

// TaskOutput is one task's raw output.
type TaskOutput struct {
	TaskID string `json:"task_id"`
	Stage  string `json:"stage"`
	Raw    string `json:"raw"`
}

// KickoffResult wraps all task outputs of one runner invocation.
type KickoffResult struct {
	TaskOutputs []TaskOutput `json:"task_outputs"`
}

// FinalOutput returns the most recent task's raw output.
func (r *KickoffResult) FinalOutput() interface{} {
	if r == nil || len(r.TaskOutputs) == 0 {
		return ""
	}
	return r.TaskOutputs[len(r.TaskOutputs)-1].Raw
}

// LLMProvider is the black-box language model capability.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// ModelInfo describes one configured model.
type ModelInfo struct {
	Name            string
	Provider        string
	MaxTokens       int
	CostPer1KInput  float64
	CostPer1KOutput float64
}

// RunResult is the uniform envelope every pipeline run produces. Validated
// distinguishes a fully-validated article from the best-effort raw mapping
// fallback.
type RunResult struct {
	Status         string                 `json:"status"`
	Article        map[string]interface{} `json:"article,omitempty"`
	Validated      bool                   `json:"validated"`
	Error          string                 `json:"error,omitempty"`
	ProcessingTime float64                `json:"processing_time"`
}

// ProcessingStatus tracks one in-flight run.
type ProcessingStatus struct {
	RunID       string    `json:"run_id"`
	Topic       string    `json:"topic"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// ParseProcess validates a process name, defaulting empty to sequential.
func ParseProcess(s string) (Process, error) {
	switch Process(s) {
	case "":
		return ProcessSequential, nil
	case ProcessSequential, ProcessHierarchical:
		return Process(s), nil
	default:
		return "", fmt.Errorf("unsupported process: %s", s)
	}
}
