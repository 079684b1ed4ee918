// Package article defines the structured article document produced by the
// generation pipeline and the invariants it must satisfy.
package article

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinSections is the minimum number of sections a valid article carries.
	MinSections = 2
	// MinSummaryLen is the minimum summary length in characters.
	MinSummaryLen = 100
	// MinSectionContentLen is the minimum section content length in characters.
	MinSectionContentLen = 50
)

// ValidationError reports a violated document invariant. It is recoverable:
// the crew falls back to the raw extracted mapping when construction fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("article validation failed on %s: %s", e.Field, e.Reason)
}

// Section is one titled block of article body text.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Metadata carries keywords, citation labels and the generation timestamp.
// GeneratedAt is always set by the crew at conversion time; any value present
// in the LLM output is discarded.
type Metadata struct {
	Keywords    []string  `json:"keywords"`
	Sources     []string  `json:"sources"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Article is the validated final document. Instances are only created through
// FromMap; a failed validation produces no Article, only a *ValidationError.
type Article struct {
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
	Metadata Metadata  `json:"metadata"`
}

// FromMap builds a validated Article from an extracted mapping. Missing
// title/summary default to empty strings and missing sequences to empty
// slices, so only the invariants themselves can fail construction.
// generatedAt stamps Metadata.GeneratedAt regardless of input.
func FromMap(data map[string]interface{}, generatedAt time.Time) (*Article, error) {
	a := &Article{
		Title:   str(data["title"]),
		Summary: str(data["summary"]),
	}

	if raw, ok := data["sections"].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			a.Sections = append(a.Sections, Section{
				Title:   str(m["title"]),
				Content: str(m["content"]),
			})
		}
	}

	meta, _ := data["metadata"].(map[string]interface{})
	a.Metadata = Metadata{
		Keywords:    strSlice(meta["keywords"]),
		Sources:     strSlice(meta["sources"]),
		GeneratedAt: generatedAt,
	}

	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Article) validate() error {
	if a.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(a.Summary); n < MinSummaryLen {
		return &ValidationError{Field: "summary", Reason: fmt.Sprintf("must be at least %d characters, got %d", MinSummaryLen, n)}
	}
	if len(a.Sections) < MinSections {
		return &ValidationError{Field: "sections", Reason: fmt.Sprintf("must have at least %d sections, got %d", MinSections, len(a.Sections))}
	}
	for i, s := range a.Sections {
		if s.Title == "" {
			return &ValidationError{Field: fmt.Sprintf("sections[%d].title", i), Reason: "must not be empty"}
		}
		if n := utf8.RuneCountInString(s.Content); n < MinSectionContentLen {
			return &ValidationError{Field: fmt.Sprintf("sections[%d].content", i), Reason: fmt.Sprintf("must be at least %d characters, got %d", MinSectionContentLen, n)}
		}
	}
	return nil
}

// WordCount returns the whitespace-delimited token count of the summary
// concatenated with all section contents. Informational only: it never gates
// validation.
func (a *Article) WordCount() int {
	parts := []string{a.Summary}
	for _, s := range a.Sections {
		parts = append(parts, s.Content)
	}
	return len(strings.Fields(strings.Join(parts, " ")))
}

// MeetsMinimumWords reports whether the article reaches the caller's word
// target. Exposed for callers who want to enforce it; the crew does not.
func (a *Article) MeetsMinimumWords(minWords int) bool {
	return a.WordCount() >= minWords
}

// AsMap renders the article as a plain mapping matching the produced article
// JSON shape, suitable for the run result envelope.
func (a *Article) AsMap() map[string]interface{} {
	sections := make([]interface{}, len(a.Sections))
	for i, s := range a.Sections {
		sections[i] = map[string]interface{}{"title": s.Title, "content": s.Content}
	}
	return map[string]interface{}{
		"title":    a.Title,
		"summary":  a.Summary,
		"sections": sections,
		"metadata": map[string]interface{}{
			"keywords":     toIfaces(a.Metadata.Keywords),
			"sources":      toIfaces(a.Metadata.Sources),
			"generated_at": a.Metadata.GeneratedAt.Format(time.RFC3339),
		},
	}
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func strSlice(v interface{}) []string {
	out := []string{}
	switch x := v.(type) {
	case []string:
		return x
	case []interface{}:
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func toIfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
