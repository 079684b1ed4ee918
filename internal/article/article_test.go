package article

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validMap() map[string]interface{} {
	return map[string]interface{}{
		"title":   "Test Article",
		"summary": strings.Repeat("s", 110),
		"sections": []interface{}{
			map[string]interface{}{"title": "S1", "content": strings.Repeat("a", 60)},
			map[string]interface{}{"title": "S2", "content": strings.Repeat("b", 60)},
		},
		"metadata": map[string]interface{}{
			"keywords": []interface{}{"k1", "k2"},
			"sources":  []interface{}{"Source A"},
		},
	}
}

func TestFromMapValid(t *testing.T) {
	now := time.Now()
	a, err := FromMap(validMap(), now)
	if err != nil {
		t.Fatalf("expected valid article, got %v", err)
	}
	if a.Title != "Test Article" {
		t.Errorf("unexpected title: %s", a.Title)
	}
	if len(a.Sections) != 2 {
		t.Errorf("expected 2 sections, got %d", len(a.Sections))
	}
	if !a.Metadata.GeneratedAt.Equal(now) {
		t.Errorf("generated_at should be the conversion timestamp")
	}
	if len(a.Metadata.Keywords) != 2 || a.Metadata.Keywords[0] != "k1" {
		t.Errorf("unexpected keywords: %v", a.Metadata.Keywords)
	}
}

func TestFromMapSingleSectionFails(t *testing.T) {
	m := validMap()
	m["sections"] = []interface{}{
		map[string]interface{}{"title": "Only", "content": strings.Repeat("a", 60)},
	}
	_, err := FromMap(m, time.Now())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "sections" {
		t.Errorf("expected sections field, got %s", verr.Field)
	}
}

func TestFromMapShortSummaryFails(t *testing.T) {
	m := validMap()
	m["summary"] = "too short"
	if _, err := FromMap(m, time.Now()); err == nil {
		t.Fatal("expected error for short summary")
	}
}

func TestFromMapShortSectionContentFails(t *testing.T) {
	m := validMap()
	m["sections"] = []interface{}{
		map[string]interface{}{"title": "S1", "content": strings.Repeat("a", 60)},
		map[string]interface{}{"title": "S2", "content": "short"},
	}
	if _, err := FromMap(m, time.Now()); err == nil {
		t.Fatal("expected error for short section content")
	}
}

func TestLengthInvariantsCountCharactersNotBytes(t *testing.T) {
	// 60 accented characters are 120 bytes but still under the 100-character
	// summary minimum
	m := validMap()
	m["summary"] = strings.Repeat("é", 60)
	if _, err := FromMap(m, time.Now()); err == nil {
		t.Fatal("60-character summary must fail regardless of byte length")
	}

	// a 100-character accented summary and 50-character accented sections
	// sit exactly on the minimums
	m = validMap()
	m["summary"] = strings.Repeat("é", 100)
	m["sections"] = []interface{}{
		map[string]interface{}{"title": "S1", "content": strings.Repeat("ã", 50)},
		map[string]interface{}{"title": "S2", "content": strings.Repeat("ç", 50)},
	}
	if _, err := FromMap(m, time.Now()); err != nil {
		t.Fatalf("character-exact minimums should validate: %v", err)
	}
}

func TestFromMapMissingTitleFails(t *testing.T) {
	m := validMap()
	delete(m, "title")
	if _, err := FromMap(m, time.Now()); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestFromMapDiscardsInputGeneratedAt(t *testing.T) {
	m := validMap()
	m["metadata"].(map[string]interface{})["generated_at"] = "1999-01-01T00:00:00Z"
	now := time.Now()
	a, err := FromMap(m, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Metadata.GeneratedAt.Equal(now) {
		t.Errorf("generated_at from input should be ignored, got %v", a.Metadata.GeneratedAt)
	}
}

func TestWordCount(t *testing.T) {
	a := &Article{
		Summary: "a b c",
		Sections: []Section{
			{Title: "S", Content: "one two three four five"},
		},
	}
	if got := a.WordCount(); got != 8 {
		t.Fatalf("expected word count 8, got %d", got)
	}
	if a.MeetsMinimumWords(8) != true {
		t.Error("expected MeetsMinimumWords(8) to be true")
	}
	if a.MeetsMinimumWords(9) != false {
		t.Error("expected MeetsMinimumWords(9) to be false")
	}
}

func TestAsMapShape(t *testing.T) {
	a, err := FromMap(validMap(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := a.AsMap()
	if m["title"] != "Test Article" {
		t.Errorf("unexpected title in map: %v", m["title"])
	}
	meta, ok := m["metadata"].(map[string]interface{})
	if !ok {
		t.Fatal("metadata missing from map")
	}
	if _, ok := meta["generated_at"].(string); !ok {
		t.Error("generated_at should render as a string")
	}
	sections, ok := m["sections"].([]interface{})
	if !ok || len(sections) != 2 {
		t.Fatalf("unexpected sections: %v", m["sections"])
	}
}
