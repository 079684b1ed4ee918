package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func mustMarshal(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func sampleMapping() map[string]interface{} {
	return map[string]interface{}{
		"title":   "T",
		"summary": "S",
		"nested":  map[string]interface{}{"keywords": []interface{}{"a", "b"}},
	}
}

func TestExtractNativeMappingPassesThrough(t *testing.T) {
	m := sampleMapping()
	got, err := ExtractResult(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("mapping changed: %v", got)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := ExtractResult(42)
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractPlainJSON(t *testing.T) {
	m := sampleMapping()
	got, err := ExtractResult(mustMarshal(t, m))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestExtractDoubleEncodedJSON(t *testing.T) {
	m := sampleMapping()
	double := mustMarshal(t, mustMarshal(t, m))
	got, err := ExtractResult(double)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("double-encoded payload not recovered: %v", got)
	}
}

func TestExtractFencedBlock(t *testing.T) {
	m := sampleMapping()
	text := "Here is the article you asked for:\n```json\n" + mustMarshal(t, m) + "\n```\nLet me know if you need edits."
	got, err := ExtractResult(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("fenced payload not recovered: %v", got)
	}
}

func TestExtractBraceSpanInProse(t *testing.T) {
	m := sampleMapping()
	text := "Sure! The final result is " + mustMarshal(t, m) + " and that concludes the task."
	got, err := ExtractResult(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("embedded payload not recovered: %v", got)
	}
}

func TestExtractLineByLine(t *testing.T) {
	// The brace span over the whole text is invalid because of the stray
	// brace in the prefix, so only the per-line strategy succeeds.
	text := "log: open { unclosed\n" + `{"title":"T"}` + "\nlog: done"
	got, err := ExtractResult(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["title"] != "T" {
		t.Fatalf("unexpected mapping: %v", got)
	}
}

func TestExtractFailureCarriesRaw(t *testing.T) {
	_, err := ExtractResult("not json at all")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if exErr.Raw != "not json at all" {
		t.Fatalf("raw text not preserved: %q", exErr.Raw)
	}
}

func TestExtractJSONArrayFails(t *testing.T) {
	if _, err := ExtractResult(`["a", "b"]`); err == nil {
		t.Fatal("a JSON array is not a mapping")
	}
}

func TestDecodeMappingBoundedDepth(t *testing.T) {
	m := map[string]interface{}{"k": "v"}
	triple := mustMarshal(t, mustMarshal(t, mustMarshal(t, m)))
	// Triple-encoded is beyond the bounded depth; treated as not-a-mapping.
	if _, ok := decodeMapping(triple); ok {
		t.Fatal("expected triple-encoded payload to be rejected")
	}
}
