package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wikigen/wikigen/internal/wikipedia"
)

func newToolServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, []ToolCapability) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := wikipedia.NewClient("en", srv.URL, 5*time.Second)
	return srv, NewWikipediaTools(client, 3)
}

func TestWikipediaSearchToolReturnsResults(t *testing.T) {
	_, tools := newToolServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"search":[{"title":"Go (programming language)","snippet":"compiled language"}]}}`))
	})
	tool, ok := ToolByName(tools, "wikipedia_search")
	if !ok {
		t.Fatal("wikipedia_search not found")
	}
	out := tool.Invoke(context.Background(), map[string]interface{}{"query": "golang"})
	if errMsg, ok := out["error"]; ok {
		t.Fatalf("unexpected error: %v", errMsg)
	}
	results, ok := out["results"].([]interface{})
	if !ok || len(results) != 1 {
		t.Fatalf("expected one result, got %#v", out["results"])
	}
	first := results[0].(map[string]interface{})
	if first["title"] != "Go (programming language)" {
		t.Fatalf("unexpected title: %v", first["title"])
	}
}

func TestToolErrorsAreDataNotFailures(t *testing.T) {
	_, tools := newToolServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	tool, _ := ToolByName(tools, "wikipedia_summary")
	out := tool.Invoke(context.Background(), map[string]interface{}{"title": "Anything"})
	msg, ok := out["error"].(string)
	if !ok || msg == "" {
		t.Fatalf("expected error message in result map, got %#v", out)
	}
}

func TestToolMissingArgument(t *testing.T) {
	_, tools := newToolServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called")
	})
	tool, _ := ToolByName(tools, "wikipedia_content")
	out := tool.Invoke(context.Background(), map[string]interface{}{})
	if _, ok := out["error"]; !ok {
		t.Fatalf("expected error for missing title, got %#v", out)
	}
}

func TestToolByNameCaseInsensitive(t *testing.T) {
	_, tools := newToolServer(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, ok := ToolByName(tools, "Wikipedia_Search"); !ok {
		t.Fatal("lookup should match case-insensitively")
	}
	if _, ok := ToolByName(tools, "no_such_tool"); ok {
		t.Fatal("lookup should fail for unknown tool")
	}
}

func TestDescribeToolsListsEveryTool(t *testing.T) {
	_, tools := newToolServer(t, func(w http.ResponseWriter, r *http.Request) {})
	desc := DescribeTools(tools)
	for _, name := range []string{"wikipedia_search", "wikipedia_summary", "wikipedia_content"} {
		if !strings.Contains(desc, name) {
			t.Fatalf("description missing %s:\n%s", name, desc)
		}
	}
	if DescribeTools(nil) != "none" {
		t.Fatal("empty toolset should describe as none")
	}
}
