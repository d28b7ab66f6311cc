package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soralis/avatarchat/internal/model/chat"
)

// replyEntry is the subset of fields the completion is asked to produce.
type replyEntry struct {
	Text             string `json:"text"`
	FacialExpression string `json:"facialExpression"`
	Animation        string `json:"animation"`
}

// ParseMessages sanitizes a raw completion reply and parses it into
// normalized messages. Models occasionally wrap output in Markdown fences, a
// {"messages": ...} envelope, or a bare object; all three are tolerated.
func ParseMessages(raw string) ([]chat.Message, error) {
	cleaned := stripControlChars(stripCodeFences(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("empty completion reply")
	}

	var probe struct {
		Messages json.RawMessage `json:"messages"`
	}
	payload := json.RawMessage(cleaned)
	if err := json.Unmarshal(payload, &probe); err == nil && len(probe.Messages) > 0 {
		payload = probe.Messages
	}

	var entries []replyEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		// Not an array; accept a single object.
		var single replyEntry
		if err := json.Unmarshal(payload, &single); err != nil {
			return nil, fmt.Errorf("completion reply is not valid JSON: %w", err)
		}
		entries = []replyEntry{single}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("completion reply contains no messages")
	}

	messages := make([]chat.Message, len(entries))
	for i, entry := range entries {
		messages[i] = chat.Message{
			Text:             strings.TrimSpace(entry.Text),
			FacialExpression: entry.FacialExpression,
			Animation:        entry.Animation,
		}
		messages[i].Normalize()
	}
	return messages, nil
}

// stripCodeFences removes a leading/trailing Markdown code fence pair,
// including an optional language tag on the opening fence.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		// A short token like "json" on the fence line is a language tag.
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{[") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// stripControlChars drops raw ASCII control characters, which are invalid
// inside JSON string values; escaped sequences like \n are untouched.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
