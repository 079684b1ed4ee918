package core

import (
	"strings"
	"testing"
)

func TestWritingPromptIncludesResearchNotes(t *testing.T) {
	research := map[string]interface{}{
		"topic":   "Quantum computing",
		"summary": "Computing with qubits that exploit superposition.",
	}
	prompt := WritingTaskPrompt("Quantum computing", research, 300, 3)
	if !strings.Contains(prompt, "exploit superposition") {
		t.Fatal("prompt should embed the research notes")
	}
	if !strings.Contains(prompt, "At least 300 words") {
		t.Fatal("prompt should state the word minimum")
	}
	if !strings.Contains(prompt, "strict JSON") {
		t.Fatal("prompt should demand strict JSON output")
	}
}

func TestWritingPromptTolerateMissingNotes(t *testing.T) {
	prompt := WritingTaskPrompt("Anything", nil, 300, 2)
	if !strings.Contains(prompt, "{}") {
		t.Fatal("nil notes should render as an empty object")
	}
}

func TestPipelineTasksChainStages(t *testing.T) {
	tools := []ToolCapability{}
	tasks := NewPipelineTasks("Jazz", 400, 3,
		NewResearcherRole("gpt-4o", tools), NewWriterRole("gpt-4o-mini"), NewEditorRole("gpt-4o-mini"))
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	stages := []string{StageResearch, StageWriting, StageEditing}
	for i, task := range tasks {
		if task.Stage != stages[i] {
			t.Fatalf("task %d: stage %q, want %q", i, task.Stage, stages[i])
		}
		if task.BuildPrompt == nil {
			t.Fatalf("task %d: missing prompt builder", i)
		}
	}
	// the writing prompt reflects the research output it is given
	writing := tasks[1].BuildPrompt(map[string]interface{}{"summary": "born 1900s New Orleans"})
	if !strings.Contains(writing, "born 1900s New Orleans") {
		t.Fatal("writing prompt should carry research material forward")
	}
}

func TestResearchPromptOrdersToolUsage(t *testing.T) {
	prompt := ResearchTaskPrompt("Jazz")
	if !strings.Contains(prompt, "broad search") {
		t.Fatal("prompt should demand a broad search first")
	}
	if !strings.Contains(prompt, "main_sections") {
		t.Fatal("prompt should name the bundle schema")
	}
}

func TestEditingPromptSuppressesMetaCommentary(t *testing.T) {
	prompt := EditingTaskPrompt("Jazz", map[string]interface{}{"title": "Jazz"}, 300)
	if !strings.Contains(prompt, "commentary about the edits") {
		t.Fatal("prompt should suppress edit commentary")
	}
}

func TestResearchBundleFromMapLenient(t *testing.T) {
	bundle := ResearchBundleFromMap(map[string]interface{}{
		"topic":    "  Go  ",
		"keywords": []interface{}{"language", 42, "compiler"},
		"sources":  "not-a-list",
		"main_sections": []interface{}{
			map[string]interface{}{"title": "History", "content": "Designed at Google."},
			"not-a-section",
		},
	})
	if bundle.Topic != "Go" {
		t.Fatalf("topic: %q", bundle.Topic)
	}
	if len(bundle.Keywords) != 2 {
		t.Fatalf("keywords should skip non-strings: %v", bundle.Keywords)
	}
	if bundle.Sources != nil {
		t.Fatalf("mistyped sources should be nil, got %v", bundle.Sources)
	}
	if len(bundle.MainSections) != 1 || bundle.MainSections[0].Title != "History" {
		t.Fatalf("main_sections: %+v", bundle.MainSections)
	}
	if bundle.Summary != "" {
		t.Fatalf("missing summary should be empty, got %q", bundle.Summary)
	}
}

func TestResearcherRoleCarriesTools(t *testing.T) {
	tools := []ToolCapability{&WikipediaSearchTool{}}
	r := NewResearcherRole("gpt-4o", tools)
	if len(r.Tools) != 1 {
		t.Fatal("researcher should carry the provided tools")
	}
	if len(NewWriterRole("gpt-4o-mini").Tools) != 0 {
		t.Fatal("writer carries no tools")
	}
}
