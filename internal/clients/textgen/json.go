package textgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petrel-quant/petrel/internal/domain"
)

// ExtractJSON pulls the first JSON object out of a model response and
// unmarshals it into v. Models wrap output in code fences or prose despite
// instructions, so everything outside the outermost braces is discarded.
func ExtractJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("%w: no JSON object found in response", domain.ErrSchemaViolation)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaViolation, err)
	}
	return nil
}
