package plantid

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode parses raw model output text into a sanitized Identification.
// The text may be wrapped in markdown code fences (``` or ```json) or
// embedded in prose; Decode strips the wrapping, extracts the first JSON
// object, and runs the result through Sanitize.
//
// A parse failure is returned as an error: the same malformed text will not
// parse on a second attempt, so callers must treat it as terminal.
func Decode(raw string) (*Identification, error) {
	text := stripFences(raw)

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object in model output (length %d)", len(raw))
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, fmt.Errorf("unterminated JSON object in model output")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON in model output: %w (text: %s)", err, truncate(text, 200))
	}
	return Sanitize(obj), nil
}

// stripFences removes ```json ... ``` or ``` ... ``` wrapping, returning the
// original text when no fences are present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
