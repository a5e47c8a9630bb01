package worker

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedJSON matches a markdown-fenced JSON block. Models frequently wrap
// their JSON output in ```json fences even when told not to.
var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON pulls an embedded JSON object out of free reply text.
// Best-effort: tries a fenced ```json block first, then the outermost
// brace-delimited substring. Returns nil when nothing parseable is found —
// callers must tolerate an absent result.
func ExtractJSON(reply string) json.RawMessage {
	if m := fencedJSON.FindStringSubmatch(reply); m != nil {
		if candidate := compactValid(m[1]); candidate != nil {
			return candidate
		}
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		return compactValid(reply[start : end+1])
	}
	return nil
}

// compactValid returns s as a RawMessage if it is valid JSON, else nil.
func compactValid(s string) json.RawMessage {
	raw := json.RawMessage(s)
	if !json.Valid(raw) {
		return nil
	}
	return raw
}
