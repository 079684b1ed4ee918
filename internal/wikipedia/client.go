// Package wikipedia is a thin client for the MediaWiki action API, used by
// the research role's tool bindings.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SearchResult is one ranked hit from a full-text search.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	PageID  int    `json:"pageid"`
}

// PageSummary is a page's lead-section extract.
type PageSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	PageID  string `json:"pageid"`
}

// PageContent is a page's full plain-text extract.
type PageContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	PageID  string `json:"pageid"`
}

// PageSection is one heading-delimited block of a sectioned extract.
type PageSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SectionedContent is a page extract split on == heading == markers.
type SectionedContent struct {
	Title    string        `json:"title"`
	Sections []PageSection `json:"sections"`
	PageID   string        `json:"pageid"`
}

// Client talks to one language edition of the action API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given language code (e.g. "en", "pt").
// baseURL overrides the derived endpoint when non-empty, which tests use to
// point at a local server.
func NewClient(language, baseURL string, timeout time.Duration) *Client {
	if language == "" {
		language = "en"
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language)
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Search runs a full-text search and returns up to limit ranked results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("utf8", "1")

	var raw struct {
		Error *apiError `json:"error"`
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
				PageID  int    `json:"pageid"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &raw); err != nil {
		return nil, err
	}
	if raw.Error != nil {
		return nil, raw.Error
	}

	out := make([]SearchResult, 0, len(raw.Query.Search))
	for _, item := range raw.Query.Search {
		out = append(out, SearchResult{
			Title:   item.Title,
			Snippet: stripSearchMarkup(item.Snippet),
			PageID:  item.PageID,
		})
	}
	return out, nil
}

// Summary fetches the intro extract of a page by title or, when title is
// empty, by numeric page ID.
func (c *Client) Summary(ctx context.Context, title string, pageID int) (PageSummary, error) {
	params := extractParams()
	params.Set("exintro", "1")
	if err := setPageSelector(params, title, pageID); err != nil {
		return PageSummary{}, err
	}

	page, id, err := c.fetchExtract(ctx, params, title)
	if err != nil {
		return PageSummary{}, err
	}
	return PageSummary{Title: page.Title, Summary: page.Extract, PageID: id}, nil
}

// Content fetches the full plain-text extract of a page.
func (c *Client) Content(ctx context.Context, title string, pageID int) (PageContent, error) {
	params := extractParams()
	if err := setPageSelector(params, title, pageID); err != nil {
		return PageContent{}, err
	}

	page, id, err := c.fetchExtract(ctx, params, title)
	if err != nil {
		return PageContent{}, err
	}
	return PageContent{Title: page.Title, Content: page.Extract, PageID: id}, nil
}

// ContentBySections fetches the full extract and splits it on wiki-style
// == heading == lines. Text before the first heading becomes an
// "Introduction" section.
func (c *Client) ContentBySections(ctx context.Context, title string, pageID int) (SectionedContent, error) {
	params := extractParams()
	params.Set("exsectionformat", "wiki")
	if err := setPageSelector(params, title, pageID); err != nil {
		return SectionedContent{}, err
	}

	page, id, err := c.fetchExtract(ctx, params, title)
	if err != nil {
		return SectionedContent{}, err
	}
	return SectionedContent{
		Title:    page.Title,
		Sections: SplitSections(page.Extract),
		PageID:   id,
	}, nil
}

// SplitSections parses a plain-text extract into heading-delimited sections.
func SplitSections(content string) []PageSection {
	var sections []PageSection
	current := PageSection{Title: "Introduction"}
	flush := func() {
		current.Content = strings.TrimSpace(current.Content)
		if current.Content != "" {
			sections = append(sections, current)
		}
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := headingTitle(trimmed); ok {
			flush()
			current = PageSection{Title: heading}
			continue
		}
		if current.Content != "" {
			current.Content += "\n" + line
		} else {
			current.Content = line
		}
	}
	flush()
	return sections
}

// headingTitle recognizes == Title == and === Title === lines. Sub-headings
// are treated as plain sections.
func headingTitle(line string) (string, bool) {
	for _, marker := range []string{"===", "=="} {
		if strings.HasPrefix(line, marker+" ") && strings.HasSuffix(line, " "+marker) {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, marker), marker)), true
		}
	}
	return "", false
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	if e.Info != "" {
		return e.Info
	}
	return "wikipedia API error: " + e.Code
}

type extractPage struct {
	Title   string
	Extract string
}

func extractParams() url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exlimit", "1")
	params.Set("explaintext", "1")
	params.Set("format", "json")
	params.Set("utf8", "1")
	params.Set("redirects", "1")
	return params
}

func setPageSelector(params url.Values, title string, pageID int) error {
	switch {
	case title != "":
		params.Set("titles", title)
	case pageID > 0:
		params.Set("pageids", strconv.Itoa(pageID))
	default:
		return fmt.Errorf("a page title or page id is required")
	}
	return nil
}

func (c *Client) fetchExtract(ctx context.Context, params url.Values, title string) (extractPage, string, error) {
	var raw struct {
		Error *apiError `json:"error"`
		Query struct {
			Pages map[string]struct {
				Title   string           `json:"title"`
				Extract string           `json:"extract"`
				Missing *json.RawMessage `json:"missing"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &raw); err != nil {
		return extractPage{}, "", err
	}
	if raw.Error != nil {
		return extractPage{}, "", raw.Error
	}
	if len(raw.Query.Pages) == 0 {
		return extractPage{}, "", fmt.Errorf("no page found")
	}
	for id, page := range raw.Query.Pages {
		if page.Missing != nil || id == "-1" {
			return extractPage{}, "", fmt.Errorf("page %q not found", title)
		}
		return extractPage{Title: page.Title, Extract: page.Extract}, id, nil
	}
	return extractPage{}, "", fmt.Errorf("no page found")
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// stripSearchMarkup removes the searchmatch span markup the API injects into
// snippets.
func stripSearchMarkup(s string) string {
	s = strings.ReplaceAll(s, `<span class="searchmatch">`, "")
	return strings.ReplaceAll(s, "</span>", "")
}
