package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/wikigen/wikigen/internal/wikipedia"
)

// WikipediaSearchTool searches Wikipedia and returns matching page titles
// with snippets.
type WikipediaSearchTool struct {
	client *wikipedia.Client
	limit  int
}

func (t *WikipediaSearchTool) Name() string { return "wikipedia_search" }

func (t *WikipediaSearchTool) Description() string {
	return "Search Wikipedia for pages matching a query. Args: {\"query\": string}. Returns a list of page titles with snippets."
}

func (t *WikipediaSearchTool) Invoke(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	query := strArg(args, "query")
	if query == "" {
		return map[string]interface{}{"error": "query is required"}
	}
	results, err := t.client.Search(ctx, query, t.limit)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	items := make([]interface{}, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]interface{}{
			"title":   r.Title,
			"snippet": r.Snippet,
		})
	}
	return map[string]interface{}{"results": items}
}

// WikipediaSummaryTool fetches the introductory extract of a page.
type WikipediaSummaryTool struct {
	client *wikipedia.Client
}

func (t *WikipediaSummaryTool) Name() string { return "wikipedia_summary" }

func (t *WikipediaSummaryTool) Description() string {
	return "Fetch the introduction of a Wikipedia page. Args: {\"title\": string}."
}

func (t *WikipediaSummaryTool) Invoke(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	title := strArg(args, "title")
	if title == "" {
		return map[string]interface{}{"error": "title is required"}
	}
	page, err := t.client.Summary(ctx, title, intArg(args, "pageid"))
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return map[string]interface{}{"title": page.Title, "summary": page.Summary}
}

// WikipediaContentTool fetches the full plain-text content of a page,
// optionally split into sections.
type WikipediaContentTool struct {
	client *wikipedia.Client
}

func (t *WikipediaContentTool) Name() string { return "wikipedia_content" }

func (t *WikipediaContentTool) Description() string {
	return "Fetch the full text of a Wikipedia page. Args: {\"title\": string, \"sections\": bool (optional)}."
}

func (t *WikipediaContentTool) Invoke(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	title := strArg(args, "title")
	if title == "" {
		return map[string]interface{}{"error": "title is required"}
	}
	if wantSections, _ := args["sections"].(bool); wantSections {
		page, err := t.client.ContentBySections(ctx, title, intArg(args, "pageid"))
		if err != nil {
			return map[string]interface{}{"error": err.Error()}
		}
		out := make([]interface{}, 0, len(page.Sections))
		for _, s := range page.Sections {
			out = append(out, map[string]interface{}{
				"title":   s.Title,
				"content": s.Content,
			})
		}
		return map[string]interface{}{"title": page.Title, "sections": out}
	}
	page, err := t.client.Content(ctx, title, intArg(args, "pageid"))
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return map[string]interface{}{"title": page.Title, "content": page.Content}
}

// NewWikipediaTools builds the standard research toolset backed by one client.
func NewWikipediaTools(client *wikipedia.Client, searchLimit int) []ToolCapability {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return []ToolCapability{
		&WikipediaSearchTool{client: client, limit: searchLimit},
		&WikipediaSummaryTool{client: client},
		&WikipediaContentTool{client: client},
	}
}

// ToolByName finds a tool in a set, matching case-insensitively.
func ToolByName(tools []ToolCapability, name string) (ToolCapability, bool) {
	for _, t := range tools {
		if strings.EqualFold(t.Name(), name) {
			return t, true
		}
	}
	return nil, false
}

// DescribeTools renders a prompt-friendly listing of the available tools.
func DescribeTools(tools []ToolCapability) string {
	if len(tools) == 0 {
		return "none"
	}
	var b strings.Builder
	for i, t := range tools {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s", t.Name(), t.Description())
	}
	return b.String()
}

func strArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// intArg tolerates the float64 numbers JSON decoding produces.
func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
