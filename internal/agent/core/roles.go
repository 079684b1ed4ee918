package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NewResearcherRole builds the research persona. It is the only role that
// carries tools.
func NewResearcherRole(model string, tools []ToolCapability) Role {
	return Role{
		Name:  "Encyclopedia Researcher",
		Goal:  "Gather accurate, well-sourced factual material about a topic",
		Backstory: "You are a meticulous researcher with years of experience " +
			"verifying facts for reference publications. You cross-check claims, " +
			"prefer primary descriptions over speculation, and always note where " +
			"a fact came from.",
		Model: model,
		Tools: tools,
	}
}

// NewWriterRole builds the drafting persona.
func NewWriterRole(model string) Role {
	return Role{
		Name:  "Encyclopedia Writer",
		Goal:  "Turn research notes into a clear, neutral encyclopedia article",
		Backstory: "You are a professional reference writer. You organize " +
			"material into logical sections, write in a neutral register, and " +
			"never invent facts that are not in your source notes.",
		Model: model,
	}
}

// NewEditorRole builds the revision persona.
func NewEditorRole(model string) Role {
	return Role{
		Name:  "Encyclopedia Editor",
		Goal:  "Polish a draft article into its final publishable form",
		Backstory: "You are a senior editor for an encyclopedia. You tighten " +
			"prose, fix structural problems, enforce section ordering, and make " +
			"sure the summary stands on its own.",
		Model: model,
	}
}

const jsonOnlyInstruction = "Respond ONLY with strict JSON. No prose, no markdown fences, no commentary before or after the JSON object."

// ResearchTaskPrompt asks the researcher for a structured research bundle on
// a topic.
func ResearchTaskPrompt(topic string) string {
	return fmt.Sprintf(`Research the topic %q for an encyclopedia article.

Work in this order:
1. Run a broad search for the topic first.
2. Fetch summaries for the top 2-3 results.
3. Fetch the full sectioned content for at least 2 of them.

Then compile what you learned. Do not rely on memory alone; every fact should trace back to a fetched page, and every page you used belongs in sources.

When you are done, %s
Schema:
{
  "topic": "...",
  "summary": "...",
  "main_sections": [{"title": "...", "content": "..."}],
  "keywords": ["..."],
  "sources": ["..."]
}`, topic, jsonOnlyInstruction)
}

// WritingTaskPrompt asks the writer to draft a full article from research
// notes. Missing fields in the notes render as empty values rather than
// failing.
func WritingTaskPrompt(topic string, research map[string]interface{}, minWords, sections int) string {
	notes := renderNotes(research)
	return fmt.Sprintf(`Write an encyclopedia article about %q based on these research notes:

%s

Requirements:
- At least %d words in total.
- A title, an introductory section, at least %d body sections with descriptive subtitles, and a concluding section.
- A summary of the whole article, at least 100 characters, that stands on its own.
- Rewrite everything in your own words; never copy sentences verbatim from the research notes.
- Neutral, factual tone. Do not invent facts absent from the notes.

%s
Schema:
{
  "title": "...",
  "summary": "...",
  "sections": [{"title": "...", "content": "..."}],
  "metadata": {"keywords": ["..."], "sources": ["..."], "generated_at": "..."}
}`, topic, notes, minWords, sections, jsonOnlyInstruction)
}

// EditingTaskPrompt asks the editor to revise a draft into its final form.
func EditingTaskPrompt(topic string, draft map[string]interface{}, minWords int) string {
	notes := renderNotes(draft)
	return fmt.Sprintf(`Edit this draft encyclopedia article about %q into its final form:

%s

Do a grammar and clarity pass, then a coherence pass across sections. Make sure every section has substantive content and the total length stays at or above %d words. Preserve the metadata keywords and sources, trimming anything irrelevant.

Do not include any commentary about the edits you made, and nothing about how the article was produced. The output is the article itself and nothing else.

%s
Return the complete article with the same schema as the draft: title, summary, sections (title and content each), metadata (keywords, sources, generated_at).`, topic, notes, minWords, jsonOnlyInstruction)
}

// renderNotes serializes a context map for inclusion in a prompt. A nil or
// empty map renders as an empty object so downstream prompts still make
// sense when a previous stage's output could not be parsed.
func renderNotes(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(b)
}

// NewPipelineTasks builds the three-stage task chain for one article run.
// Each task's prompt builder closes over the run parameters and receives the
// previous stage's parsed output map.
func NewPipelineTasks(topic string, minWords, sections int, researcher, writer, editor Role) []Task {
	return []Task{
		{
			Stage:          StageResearch,
			Description:    fmt.Sprintf("Research %q", topic),
			ExpectedOutput: "JSON research bundle with key facts, subtopics, keywords and sources",
			Role:           researcher,
			BuildPrompt: func(prev map[string]interface{}) string {
				return ResearchTaskPrompt(topic)
			},
		},
		{
			Stage:          StageWriting,
			Description:    fmt.Sprintf("Write article about %q", topic),
			ExpectedOutput: "JSON article draft with title, summary, sections, keywords and sources",
			Role:           writer,
			BuildPrompt: func(prev map[string]interface{}) string {
				return WritingTaskPrompt(topic, prev, minWords, sections)
			},
		},
		{
			Stage:          StageEditing,
			Description:    fmt.Sprintf("Edit article about %q", topic),
			ExpectedOutput: "final JSON article",
			Role:           editor,
			BuildPrompt: func(prev map[string]interface{}) string {
				return EditingTaskPrompt(topic, prev, minWords)
			},
		},
	}
}

// BundleSection is one titled block of research material.
type BundleSection struct {
	Title   string
	Content string
}

// ResearchBundle is the structured output of the research stage. Parsing is
// lenient: missing or mistyped fields default to empty values - it feeds
// the writing prompt, it is not a final artifact.
type ResearchBundle struct {
	Topic        string
	Summary      string
	MainSections []BundleSection
	Keywords     []string
	Sources      []string
}

// ResearchBundleFromMap pulls the known fields out of a parsed research
// result, ignoring anything it does not recognize.
func ResearchBundleFromMap(m map[string]interface{}) ResearchBundle {
	b := ResearchBundle{
		Topic:    stringField(m, "topic"),
		Summary:  stringField(m, "summary"),
		Keywords: stringSliceField(m, "keywords"),
		Sources:  stringSliceField(m, "sources"),
	}
	if raw, ok := m["main_sections"].([]interface{}); ok {
		for _, item := range raw {
			sec, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			b.MainSections = append(b.MainSections, BundleSection{
				Title:   stringField(sec, "title"),
				Content: stringField(sec, "content"),
			})
		}
	}
	return b
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
