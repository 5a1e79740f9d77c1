package generate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedRegexp = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	objectRegexp = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON pulls a JSON document out of a model answer. It accepts the answer as-is,
// then the first fenced code block, then the outermost {...} span.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if text != "" && json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}

	if m := fencedRegexp.FindStringSubmatch(text); m != nil {
		if block := strings.TrimSpace(m[1]); json.Valid([]byte(block)) {
			return json.RawMessage(block), nil
		}
	}

	if span := objectRegexp.FindString(text); span != "" && json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}

	return nil, fmt.Errorf("%w: answer holds no JSON document", ErrGenerationFailed)
}
