package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wikigen/wikigen/internal/agent/telemetry"
	"github.com/wikigen/wikigen/internal/article"
	"github.com/wikigen/wikigen/internal/config"
	"github.com/wikigen/wikigen/internal/wikipedia"
)

// Crew orchestrates the research, writing and editing roles into one
// article-producing pipeline. A single Crew serves many concurrent runs.
type Crew struct {
	cfg      *config.Config
	provider LLMProvider
	runner   TaskRunner
	tools    []ToolCapability
	logger   *log.Logger
	tele     *telemetry.Telemetry

	mu       sync.RWMutex
	statuses map[string]*ProcessingStatus
}

// RunParams are the per-run knobs. Zero values fall back to the configured
// article defaults.
type RunParams struct {
	Topic    string
	MinWords int
	Sections int
}

// NewCrew wires a crew from configuration. It fails fast with a
// *ConfigurationError when no LLM provider is usable.
func NewCrew(cfg *config.Config, process Process, logger *log.Logger, tele *telemetry.Telemetry) (*Crew, error) {
	if logger == nil {
		logger = log.Default()
	}
	provider, err := NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	wiki := wikipedia.NewClient(cfg.Wikipedia.Language, cfg.Wikipedia.BaseURL, cfg.Wikipedia.Timeout)
	tools := instrumentTools(NewWikipediaTools(wiki, cfg.Wikipedia.SearchLimit), tele)

	c := &Crew{
		cfg:      cfg,
		provider: provider,
		tools:    tools,
		logger:   logger,
		tele:     tele,
		statuses: make(map[string]*ProcessingStatus),
	}

	seq := &SequentialRunner{
		Provider: provider,
		Logger:   logger,
		OnTokens: func(stage, model string, in, out int64) {
			tele.RecordTokens(stage, model, in, out, provider.CalculateCost(in, out, model))
		},
	}
	switch process {
	case ProcessHierarchical:
		c.runner = &HierarchicalRunner{
			Sequential:       seq,
			CoordinatorModel: c.modelFor(cfg.LLM.Routing.Editing),
		}
	default:
		c.runner = seq
	}
	return c, nil
}

// Run executes the full pipeline for one topic. It never returns an error:
// every failure mode, panics included, collapses into a RunResult with
// status "error". ProcessingTime is always populated.
func (c *Crew) Run(ctx context.Context, params RunParams) (result RunResult) {
	started := time.Now()
	runID := uuid.NewString()
	c.setStatus(runID, params.Topic, StateCreated)
	c.logger.Printf("[CREW] run %s starting: %q", runID, params.Topic)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("[CREW] run %s panicked: %v", runID, r)
			result = RunResult{Status: StatusError, Error: fmt.Sprintf("internal error: %v", r)}
		}
		result.ProcessingTime = roundSeconds(time.Since(started))
		if result.Status == StatusError {
			c.updateStatus(runID, StateFailed)
		} else {
			c.updateStatus(runID, StateDone)
		}
		c.tele.RecordRun(result.Status, time.Since(started).Seconds())
		c.logger.Printf("[CREW] run %s finished: status=%s validated=%t time=%.2fs",
			runID, result.Status, result.Validated, result.ProcessingTime)
	}()

	minWords := params.MinWords
	if minWords <= 0 {
		minWords = c.cfg.Article.MinWords
	}
	sections := params.Sections
	if sections <= 0 {
		sections = c.cfg.Article.SectionsCount
	}

	tasks := NewPipelineTasks(params.Topic, minWords, sections,
		NewResearcherRole(c.modelFor(c.cfg.LLM.Routing.Research), c.tools),
		NewWriterRole(c.modelFor(c.cfg.LLM.Routing.Writing)),
		NewEditorRole(c.modelFor(c.cfg.LLM.Routing.Editing)))

	raw, err := c.runner.Kickoff(ctx, tasks, KickoffOptions{
		OnTaskStart: func(task Task) {
			c.updateStatus(runID, stageState(task.Stage))
		},
	})
	if err != nil {
		return RunResult{Status: StatusError, Error: err.Error()}
	}

	c.updateStatus(runID, StateExtracting)
	mapping, err := ExtractResult(unwrapRawOutput(raw))
	if err != nil {
		return RunResult{Status: StatusError, Error: err.Error()}
	}

	doc, err := article.FromMap(mapping, time.Now())
	if err != nil {
		// the pipeline produced structured output that fails document
		// validation; surface it as-is rather than discarding the run
		c.logger.Printf("[CREW] run %s produced unvalidated article: %v", runID, err)
		c.updateStatus(runID, StateUnvalidated)
		return RunResult{Status: StatusSuccess, Article: mapping, Validated: false}
	}

	c.updateStatus(runID, StateValidated)
	if !doc.MeetsMinimumWords(minWords) {
		c.logger.Printf("[CREW] run %s article below word target: %d < %d", runID, doc.WordCount(), minWords)
	}
	return RunResult{Status: StatusSuccess, Article: doc.AsMap(), Validated: true}
}

// GetStatus returns a copy of a run's tracking record.
func (c *Crew) GetStatus(runID string) (ProcessingStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.statuses[runID]
	if !ok {
		return ProcessingStatus{}, false
	}
	return *st, true
}

func (c *Crew) setStatus(runID, topic, state string) {
	now := time.Now()
	c.mu.Lock()
	c.statuses[runID] = &ProcessingStatus{
		RunID:       runID,
		Topic:       topic,
		State:       state,
		CreatedAt:   now,
		LastUpdated: now,
	}
	c.mu.Unlock()
}

func (c *Crew) updateStatus(runID, state string) {
	c.mu.Lock()
	if st, ok := c.statuses[runID]; ok {
		st.State = state
		st.LastUpdated = time.Now()
	}
	c.mu.Unlock()
}

// modelFor resolves a routed model key, falling back to the configured
// fallback model.
func (c *Crew) modelFor(key string) string {
	if key != "" {
		return key
	}
	return c.cfg.LLM.Routing.Fallback
}

func stageState(stage string) string {
	switch stage {
	case StageResearch:
		return StateResearching
	case StageWriting:
		return StateWriting
	case StageEditing:
		return StateEditing
	}
	return StateCreated
}

const maxUnwrapDepth = 4

// unwrapRawOutput peels wrapper objects off a runner's result until a
// plain document candidate remains. Wrappers are recognized by an "output"
// or "result" key, or a FinalOutput accessor; an unrecognized wrapper is
// rendered to text so the extraction cascade still gets a chance at it.
func unwrapRawOutput(raw interface{}) interface{} {
	for depth := 0; depth < maxUnwrapDepth; depth++ {
		switch v := raw.(type) {
		case nil, string, []byte, json.RawMessage, map[string]interface{}:
			if m, ok := v.(map[string]interface{}); ok {
				if inner, ok := m["output"]; ok {
					raw = inner
					continue
				}
				if inner, ok := m["result"]; ok {
					raw = inner
					continue
				}
			}
			return raw
		case interface{ FinalOutput() interface{} }:
			raw = v.FinalOutput()
			continue
		default:
			return fmt.Sprint(raw)
		}
	}
	return raw
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// instrumentedTool counts invocations before delegating.
type instrumentedTool struct {
	ToolCapability
	tele *telemetry.Telemetry
}

func (t *instrumentedTool) Invoke(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	t.tele.RecordTool(t.Name())
	return t.ToolCapability.Invoke(ctx, args)
}

func instrumentTools(tools []ToolCapability, tele *telemetry.Telemetry) []ToolCapability {
	out := make([]ToolCapability, len(tools))
	for i, tool := range tools {
		out[i] = &instrumentedTool{ToolCapability: tool, tele: tele}
	}
	return out
}
