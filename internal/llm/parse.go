package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON decodes a reply that is expected to contain a single top-level
// JSON value. Models wrap replies in markdown fences or prose often enough
// that a strict json.Unmarshal alone is not reliable: on failure the first
// balanced object (or array) substring is retried before giving up.
func ExtractJSON(raw string, v any) error {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	if err := json.Unmarshal([]byte(clean), v); err == nil {
		return nil
	}

	if sub, ok := firstBalanced(clean, '{', '}'); ok {
		if err := json.Unmarshal([]byte(sub), v); err == nil {
			return nil
		}
	}
	if sub, ok := firstBalanced(clean, '[', ']'); ok {
		if err := json.Unmarshal([]byte(sub), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no valid JSON found in reply")
}

// firstBalanced returns the first balanced open..closing substring, tracking
// string literals so braces inside quoted values do not confuse the count.
func firstBalanced(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
