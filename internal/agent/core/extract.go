package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionError means no strategy could locate a JSON mapping in a
// pipeline result. Raw carries the original text for diagnosis.
type ExtractionError struct {
	Raw    string
	Reason string
}

func (e *ExtractionError) Error() string {
	if e.Reason != "" {
		return "could not extract JSON from result: " + e.Reason
	}
	return "could not extract JSON from result"
}

// maxDecodeDepth bounds the stringified-JSON-within-JSON recursion: a
// payload encoded twice is recovered, deeper nesting is not chased.
const maxDecodeDepth = 2

// ExtractResult turns an arbitrary pipeline output value into a structured
// mapping. Native mappings pass through unchanged; text goes through an
// ordered cascade of locating strategies; anything else fails immediately.
func ExtractResult(raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case string:
		return extractFromText(v)
	case []byte:
		return extractFromText(string(v))
	case json.RawMessage:
		return extractFromText(string(v))
	default:
		return nil, &ExtractionError{Raw: fmt.Sprint(raw), Reason: fmt.Sprintf("unsupported type %T", raw)}
	}
}

// extractFromText applies the locating cascade. Each strategy is attempted
// only if the previous yields no mapping; individual parse failures never
// escape, only exhaustion of all strategies does.
func extractFromText(text string) (map[string]interface{}, error) {
	// 1. The whole text is JSON (possibly encoded twice).
	if m, ok := decodeMapping(text); ok {
		return m, nil
	}

	// 2. A ```json fenced block.
	if inner, ok := fencedBlock(text); ok {
		if m, ok := decodeMapping(inner); ok {
			return m, nil
		}
	}

	// 3. A greedy brace-delimited span: first { through last }.
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if m, ok := decodeMapping(text[start : end+1]); ok {
				return m, nil
			}
		}
	}

	// 4. Individual lines.
	for _, line := range strings.Split(text, "\n") {
		if m, ok := decodeMapping(strings.TrimSpace(line)); ok {
			return m, nil
		}
	}

	return nil, &ExtractionError{Raw: text}
}

// decodeMapping parses s as JSON, unwrapping a double-encoded payload up to
// maxDecodeDepth times. It reports false on anything that is not ultimately
// a mapping.
func decodeMapping(s string) (map[string]interface{}, bool) {
	for depth := 0; depth < maxDecodeDepth; depth++ {
		var parsed interface{}
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return nil, false
		}
		switch v := parsed.(type) {
		case map[string]interface{}:
			return v, true
		case string:
			s = v
		default:
			return nil, false
		}
	}
	return nil, false
}

// fencedBlock returns the content of the first ```json fence, if present.
func fencedBlock(text string) (string, bool) {
	const marker = "```json"
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(marker):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
