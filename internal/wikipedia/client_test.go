package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient("en", srv.URL, 5*time.Second), srv
}

func TestSearchStripsMarkup(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("list"); got != "search" {
			t.Errorf("expected list=search, got %s", got)
		}
		w.Write([]byte(`{"query":{"search":[
			{"title":"Go (programming language)","snippet":"<span class=\"searchmatch\">Go</span> is a language","pageid":12}
		]}}`))
	})
	defer srv.Close()

	results, err := c.Search(context.Background(), "go", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Snippet != "Go is a language" {
		t.Errorf("markup not stripped: %q", results[0].Snippet)
	}
	if results[0].PageID != 12 {
		t.Errorf("unexpected pageid: %d", results[0].PageID)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"srsearch-error","info":"search backend down"}}`))
	})
	defer srv.Close()

	_, err := c.Search(context.Background(), "go", 5)
	if err == nil || err.Error() != "search backend down" {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("exintro") != "1" {
			t.Errorf("summary should request intro extract only")
		}
		w.Write([]byte(`{"query":{"pages":{"12":{"title":"Go","extract":"Go is a compiled language."}}}}`))
	})
	defer srv.Close()

	sum, err := c.Summary(context.Background(), "Go", 0)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if sum.Summary != "Go is a compiled language." || sum.PageID != "12" {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestContentMissingPage(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{"-1":{"title":"Nope","missing":""}}}}`))
	})
	defer srv.Close()

	if _, err := c.Content(context.Background(), "Nope", 0); err == nil {
		t.Fatal("expected error for missing page")
	}
}

func TestContentRequiresSelector(t *testing.T) {
	c := NewClient("en", "http://localhost:0", time.Second)
	if _, err := c.Content(context.Background(), "", 0); err == nil {
		t.Fatal("expected error when neither title nor pageid given")
	}
}

func TestSplitSections(t *testing.T) {
	content := "Lead paragraph here.\n== History ==\nOld stuff.\nMore old stuff.\n=== Early years ===\nVery old.\n== Design ==\nNew stuff."
	sections := SplitSections(content)
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d: %+v", len(sections), sections)
	}
	if sections[0].Title != "Introduction" || sections[0].Content != "Lead paragraph here." {
		t.Errorf("unexpected lead section: %+v", sections[0])
	}
	if sections[1].Title != "History" {
		t.Errorf("unexpected section title: %s", sections[1].Title)
	}
	if sections[2].Title != "Early years" {
		t.Errorf("sub-headings should become sections, got %s", sections[2].Title)
	}
	if sections[3].Title != "Design" || sections[3].Content != "New stuff." {
		t.Errorf("unexpected final section: %+v", sections[3])
	}
}

func TestSplitSectionsEmptySectionsDropped(t *testing.T) {
	sections := SplitSections("== A ==\n== B ==\ncontent")
	if len(sections) != 1 || sections[0].Title != "B" {
		t.Fatalf("empty sections should be dropped, got %+v", sections)
	}
}
