package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseResponse extracts the JSON result from model output, which may be
// wrapped in a code fence or surrounded by prose.
func parseResponse(resp string) (*Result, error) {
	resp = strings.TrimSpace(resp)

	var result Result
	if err := json.Unmarshal([]byte(resp), &result); err == nil && result.Category != "" {
		return &result, nil
	}

	cleaned := strings.ReplaceAll(resp, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("no json object in %q", truncate(resp, 200))}
	}

	result = Result{}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &result); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("parse json: %w", err)}
	}
	if result.Category == "" {
		result.Category = "general"
	}
	return &result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
